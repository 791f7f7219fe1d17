// Package platform defines the capability contract implemented by every
// fitness platform adapter.
package platform

import (
	"context"
	"fmt"
	"time"
)

// Credential holds the login details for one platform account.
type Credential struct {
	Email    string `yaml:"email" json:"email"`
	Password string `yaml:"password" json:"password"`
}

// Activity holds only the data we want from a platform's activity listing.
// Everything beyond ID is informational.
type Activity struct {
	ID            string        `json:"id"`
	StartTime     time.Time     `json:"startTime"`
	Type          string        `json:"activityType"`
	Duration      time.Duration `json:"duration"`
	Distance      float64       `json:"distance"`      // metres
	ElevationGain float64       `json:"elevationGain"` // metres
	AvgHeartRate  int           `json:"avgHR"`
	Calories      int           `json:"calories"`
}

// ListOptions are the filters passed to an adapter's activity listing.
// Dates are inclusive calendar days in YYYY-MM-DD form; adapters translate
// them to whatever their API expects.
type ListOptions struct {
	Limit        int
	ActivityType string // comma-joined type tags, empty means all
	StartDate    string
	EndDate      string
}

// ConflictStrategy tells a destination how to treat an activity it may
// already have. Enforcement is an upload-time concern of the adapter.
type ConflictStrategy string

const (
	SkipExisting    ConflictStrategy = "skip_existing"
	ReplaceExisting ConflictStrategy = "replace_existing"
)

// ParseConflictStrategy validates a strategy tag from config or a flag.
func ParseConflictStrategy(s string) (ConflictStrategy, error) {
	switch ConflictStrategy(s) {
	case SkipExisting, ReplaceExisting:
		return ConflictStrategy(s), nil
	}
	return "", fmt.Errorf("unknown conflict strategy %q", s)
}

// UploadOptions carry per-upload settings to a destination adapter.
type UploadOptions struct {
	Conflict ConflictStrategy
}

// Platform is the capability set every adapter exposes. Authenticate must be
// idempotent and cheap to call repeatedly: adapters check their cached
// session token before attempting a live credential exchange. The other
// operations assume Authenticate has been called and succeeded.
type Platform interface {
	// Key returns the account key this adapter was configured under,
	// e.g. "garmin_us".
	Key() string
	Authenticate(ctx context.Context) error
	ListActivities(ctx context.Context, opts ListOptions) ([]Activity, error)
	// DownloadActivity fetches the binary track file for an activity into
	// the cache directory and returns its path. Re-downloading the same id
	// overwrites the previous file.
	DownloadActivity(ctx context.Context, activityID string) (string, error)
}

// Destination is implemented by adapters that can act as a sync target.
type Destination interface {
	Platform
	// UploadActivity pushes a previously downloaded track file and returns
	// the id the platform assigned to it.
	UploadActivity(ctx context.Context, payloadPath string, opts UploadOptions) (string, error)
}
