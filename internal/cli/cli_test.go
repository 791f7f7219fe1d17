package cli

import (
	"bytes"
	"io"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/lildude/fitsync/internal/platform"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRootCommandRegistersSubcommands(t *testing.T) {
	cmd := NewRootCommand()

	var names []string
	for _, sub := range cmd.Commands() {
		names = append(names, sub.Name())
	}
	for _, want := range []string{"auth", "list", "download", "sync", "clear-cache"} {
		assert.Contains(t, names, want)
	}

	assert.NotNil(t, cmd.PersistentFlags().Lookup("config"))
	assert.NotNil(t, cmd.PersistentFlags().Lookup("verbose"))
}

func TestSplitTypes(t *testing.T) {
	tests := []struct {
		in   string
		want []string
	}{
		{"", nil},
		{"running", []string{"running"}},
		{"running,cycling", []string{"running", "cycling"}},
		{" running , cycling ", []string{"running", "cycling"}},
		{"running,,cycling,", []string{"running", "cycling"}},
	}
	for _, tc := range tests {
		assert.Equal(t, tc.want, splitTypes(tc.in), "input %q", tc.in)
	}
}

func TestDisplayType(t *testing.T) {
	assert.Equal(t, "Running", displayType("running"))
	assert.Equal(t, "Trail Running", displayType("trail_running"))
	assert.Equal(t, "Indoor Bike", displayType("indoor_bike"))
}

func TestActivityFilename(t *testing.T) {
	a := platform.Activity{
		ID:        "a1",
		StartTime: time.Date(2024, 1, 31, 7, 30, 0, 0, time.UTC),
		Type:      "running",
	}
	assert.Equal(t, "20240131_running_2.fit", activityFilename(a, 2))

	// Missing metadata degrades to placeholders rather than odd names.
	assert.Equal(t, "unknown_activity_1.fit", activityFilename(platform.Activity{ID: "a2"}, 1))
}

func TestPrintActivities(t *testing.T) {
	activities := []platform.Activity{
		{
			ID:        "11111",
			StartTime: time.Date(2024, 1, 31, 7, 30, 0, 0, time.UTC),
			Type:      "trail_running",
			Duration:  90 * time.Minute,
			Distance:  12500,
		},
	}

	var buf bytes.Buffer
	printActivities(&buf, "garmin_us", activities)

	out := buf.String()
	assert.Contains(t, out, "Activities from garmin_us:")
	assert.Contains(t, out, "2024-01-31 07:30")
	assert.Contains(t, out, "Trail Running")
	assert.Contains(t, out, "1h30m0s")
	assert.Contains(t, out, "12.5 km")
	assert.Contains(t, out, "ID: 11111")
}

func writeTestConfig(t *testing.T, cacheDir string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yaml")
	content := `
accounts:
  garmin_us:
    email: us@example.com
    password: secret
cache:
  directory: ` + cacheDir + "\n"
	require.NoError(t, os.WriteFile(path, []byte(content), 0o600))
	return path
}

func execute(t *testing.T, args ...string) error {
	t.Helper()
	t.Setenv("ENV", "test")
	cmd := NewRootCommand()
	cmd.SetOut(io.Discard)
	cmd.SetErr(io.Discard)
	cmd.SetArgs(args)
	return cmd.Execute()
}

func TestClearCacheRemovesEverything(t *testing.T) {
	cacheDir := t.TempDir()
	require.NoError(t, os.MkdirAll(filepath.Join(cacheDir, "auth"), 0o755))
	require.NoError(t, os.WriteFile(filepath.Join(cacheDir, "auth", "garmin_us.json"), []byte("{}"), 0o600))
	require.NoError(t, os.WriteFile(filepath.Join(cacheDir, "11111.fit"), []byte("fit"), 0o644))

	cfg := writeTestConfig(t, cacheDir)
	require.NoError(t, execute(t, "clear-cache", "--config", cfg))

	entries, err := os.ReadDir(cacheDir)
	require.NoError(t, err)
	assert.Empty(t, entries, "the cache directory is recreated empty")
}

func TestClearCacheAuthOnly(t *testing.T) {
	cacheDir := t.TempDir()
	require.NoError(t, os.MkdirAll(filepath.Join(cacheDir, "auth"), 0o755))
	require.NoError(t, os.WriteFile(filepath.Join(cacheDir, "auth", "garmin_us.json"), []byte("{}"), 0o600))
	require.NoError(t, os.WriteFile(filepath.Join(cacheDir, "11111.fit"), []byte("fit"), 0o644))

	cfg := writeTestConfig(t, cacheDir)
	require.NoError(t, execute(t, "clear-cache", "--auth-only", "--config", cfg))

	assert.NoDirExists(t, filepath.Join(cacheDir, "auth"))
	assert.FileExists(t, filepath.Join(cacheDir, "11111.fit"), "track files survive an auth-only clear")
}

func TestClearCacheAuthOnlyWhenAlreadyClear(t *testing.T) {
	cacheDir := t.TempDir()
	cfg := writeTestConfig(t, cacheDir)
	assert.NoError(t, execute(t, "clear-cache", "--auth-only", "--config", cfg))
}

func TestRootCommandRejectsMissingConfig(t *testing.T) {
	err := execute(t, "auth", "--config", filepath.Join(t.TempDir(), "nope.yaml"))
	assert.Error(t, err)
}

func TestListRequiresAccountFlag(t *testing.T) {
	cacheDir := t.TempDir()
	cfg := writeTestConfig(t, cacheDir)
	err := execute(t, "list", "--config", cfg)
	assert.ErrorContains(t, err, "account")
}

func TestListRejectsUnknownAccount(t *testing.T) {
	cacheDir := t.TempDir()
	cfg := writeTestConfig(t, cacheDir)
	err := execute(t, "list", "--account", "nope", "--config", cfg)
	assert.ErrorContains(t, err, "not configured")
}

func TestSyncRejectsUnknownConflictStrategy(t *testing.T) {
	cacheDir := t.TempDir()
	cfg := writeTestConfig(t, cacheDir)
	err := execute(t, "sync", "--conflict-strategy", "merge", "--config", cfg)
	assert.ErrorContains(t, err, "conflict strategy")
}
