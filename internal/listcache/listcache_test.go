package listcache

import (
	"testing"
	"time"

	"github.com/lildude/fitsync/internal/platform"
	"github.com/stretchr/testify/assert"
)

func TestGetReturnsFreshEntry(t *testing.T) {
	c := New()
	key := Key{Platform: "garmin_us", Limit: 10}
	activities := []platform.Activity{{ID: "a1"}, {ID: "a2"}}

	c.Put(key, activities)

	got, hit := c.Get(key, 30*time.Minute)
	assert.True(t, hit)
	assert.Equal(t, activities, got)
}

func TestGetMissesOnDifferentKey(t *testing.T) {
	c := New()
	c.Put(Key{Platform: "garmin_us", Limit: 10}, []platform.Activity{{ID: "a1"}})

	tests := []struct {
		name string
		key  Key
	}{
		{"different platform", Key{Platform: "garmin_cn", Limit: 10}},
		{"different limit", Key{Platform: "garmin_us", Limit: 100}},
		{"different type filter", Key{Platform: "garmin_us", Limit: 10, ActivityType: "running"}},
		{"different start date", Key{Platform: "garmin_us", Limit: 10, StartDate: "2023-01-01"}},
		{"different end date", Key{Platform: "garmin_us", Limit: 10, EndDate: "2023-12-31"}},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			_, hit := c.Get(tc.key, 30*time.Minute)
			assert.False(t, hit)
		})
	}
}

func TestGetExpiresOldEntries(t *testing.T) {
	now := time.Date(2024, 1, 1, 12, 0, 0, 0, time.UTC)
	c := NewWithClock(func() time.Time { return now })
	key := Key{Platform: "garmin_us", Limit: 10}

	c.Put(key, []platform.Activity{{ID: "a1"}})

	now = now.Add(29 * time.Minute)
	_, hit := c.Get(key, 30*time.Minute)
	assert.True(t, hit)

	now = now.Add(2 * time.Minute)
	_, hit = c.Get(key, 30*time.Minute)
	assert.False(t, hit, "an entry older than maxAge must never be returned")
}

func TestClearDropsAllEntries(t *testing.T) {
	c := New()
	k1 := Key{Platform: "garmin_us", Limit: 10}
	k2 := Key{Platform: "coros_cn", Limit: 10}
	c.Put(k1, []platform.Activity{{ID: "a1"}})
	c.Put(k2, []platform.Activity{{ID: "b1"}})

	c.Clear()

	_, hit := c.Get(k1, time.Hour)
	assert.False(t, hit)
	_, hit = c.Get(k2, time.Hour)
	assert.False(t, hit)
}
