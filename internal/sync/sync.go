// Package sync orchestrates activity synchronization between platform
// adapters: it resolves sync rules, lists and filters source activities,
// downloads each track file and re-uploads it to the destination,
// tolerating individual failures.
package sync

import (
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/lildude/fitsync/internal/config"
	"github.com/lildude/fitsync/internal/coros"
	"github.com/lildude/fitsync/internal/garmin"
	"github.com/lildude/fitsync/internal/listcache"
	"github.com/lildude/fitsync/internal/platform"
	"github.com/sirupsen/logrus"
)

const (
	// listBatchSize is the fixed batch size used when listing a rule's
	// source activities.
	listBatchSize = 100

	// defaultListMaxAge is how long a cached activity listing stays valid.
	defaultListMaxAge = 30 * time.Minute
)

// Manager wires configured accounts to platform adapters and runs sync
// rules against them. It is not safe for concurrent use; runs are strictly
// sequential by design.
type Manager struct {
	cfg       *config.Config
	platforms map[string]platform.Platform
	lists     *listcache.Cache
	log       logrus.FieldLogger
}

// New builds a Manager from the loaded configuration, constructing an
// adapter for every known account key. Accounts with an unknown key are
// logged and skipped; rules referencing them resolve as uninitialized.
func New(cfg *config.Config, log logrus.FieldLogger) *Manager {
	m := &Manager{
		cfg:       cfg,
		platforms: make(map[string]platform.Platform),
		lists:     listcache.New(),
		log:       log,
	}

	for key, creds := range cfg.Accounts {
		var (
			p   platform.Platform
			err error
		)
		switch key {
		case garmin.US.Key:
			p, err = garmin.New(garmin.US, creds, cfg.Cache.Directory, log)
		case garmin.CN.Key:
			p, err = garmin.New(garmin.CN, creds, cfg.Cache.Directory, log)
		case coros.Key:
			p, err = coros.New(creds, cfg.Cache.Directory, log)
		default:
			log.Warnf("no adapter for account %q, skipping", key)
			continue
		}
		if err != nil {
			log.Errorf("initializing adapter for %s: %s", key, err)
			continue
		}
		m.platforms[key] = p
	}

	return m
}

// Register installs (or replaces) an adapter under its own key. Exists for
// tests and for callers composing custom adapters.
func (m *Manager) Register(p platform.Platform) {
	m.platforms[p.Key()] = p
}

// Platform returns the adapter configured under key.
func (m *Manager) Platform(key string) (platform.Platform, bool) {
	p, ok := m.platforms[key]
	return p, ok
}

// AuthenticateAll authenticates every initialized adapter and reports
// whether all of them succeeded.
func (m *Manager) AuthenticateAll(ctx context.Context) bool {
	ok := true
	for key, p := range m.platforms {
		m.log.Infof("authenticating with %s", key)
		if err := p.Authenticate(ctx); err != nil {
			m.log.Errorf("authentication failed for %s: %s", key, err)
			ok = false
		}
	}
	return ok
}

// Options are the ad hoc overrides for one sync run. Source and
// Destination, when both set, replace the configured rule set with a single
// synthetic rule; the other fields override the matching rule field only.
type Options struct {
	Source        string
	Destination   string
	ActivityTypes []string
	StartDate     string
	EndDate       string
	DryRun        bool
	Conflict      platform.ConflictStrategy
}

// Sync runs the resolved rules and returns the total number of synced
// activities. Per-activity and per-rule failures are logged and tolerated;
// the only short-circuit is an unresolvable explicit override pair, which
// returns 0 immediately.
func (m *Manager) Sync(ctx context.Context, opts Options) int {
	rules := m.resolveRules(opts)

	total := 0
	for _, rule := range rules {
		total += m.syncRule(ctx, rule, opts)
	}
	return total
}

// resolveRules picks the rule set for a run. Invalid configured rules are
// skipped with a warning; an invalid override pair yields no rules at all.
func (m *Manager) resolveRules(opts Options) []config.SyncRule {
	if opts.Source != "" && opts.Destination != "" {
		for _, key := range []string{opts.Source, opts.Destination} {
			if _, ok := m.cfg.Accounts[key]; !ok {
				m.log.Errorf("platform %s not configured", key)
				return nil
			}
			if _, ok := m.platforms[key]; !ok {
				m.log.Errorf("platform %s not initialized", key)
				return nil
			}
		}

		conflict := opts.Conflict
		if conflict == "" {
			conflict = platform.SkipExisting
		}
		return []config.SyncRule{{
			Source:        opts.Source,
			Destination:   opts.Destination,
			ActivityTypes: opts.ActivityTypes,
			StartDate:     opts.StartDate,
			EndDate:       opts.EndDate,
			Conflict:      conflict,
		}}
	}

	var rules []config.SyncRule
	for _, rule := range m.cfg.SyncRules {
		if !m.ruleResolvable(rule) {
			continue
		}
		rules = append(rules, rule)
	}
	return rules
}

func (m *Manager) ruleResolvable(rule config.SyncRule) bool {
	for _, key := range []string{rule.Source, rule.Destination} {
		if _, ok := m.cfg.Accounts[key]; !ok {
			m.log.Warnf("skipping rule %s→%s: platform %s not configured", rule.Source, rule.Destination, key)
			return false
		}
		if _, ok := m.platforms[key]; !ok {
			m.log.Warnf("skipping rule %s→%s: platform %s not initialized", rule.Source, rule.Destination, key)
			return false
		}
	}
	return true
}

// syncRule executes one rule and returns how many activities it synced.
func (m *Manager) syncRule(ctx context.Context, rule config.SyncRule, opts Options) int {
	// Call-level overrides win per field over the rule's own filters.
	types := rule.ActivityTypes
	if len(opts.ActivityTypes) > 0 {
		types = opts.ActivityTypes
	}
	start, end := rule.StartDate, rule.EndDate
	if opts.StartDate != "" {
		start = opts.StartDate
	}
	if opts.EndDate != "" {
		end = opts.EndDate
	}

	activities := m.Activities(ctx, Query{
		Platform:      rule.Source,
		Limit:         listBatchSize,
		ActivityTypes: types,
		StartDate:     start,
		EndDate:       end,
	})

	// Second filter pass: adapters are not trusted to honour the type
	// filter perfectly, so re-filter by exact tag membership.
	if len(types) > 0 {
		kept := activities[:0:0]
		for _, a := range activities {
			if typeInSet(a.Type, types) {
				kept = append(kept, a)
			}
		}
		if removed := len(activities) - len(kept); removed > 0 {
			m.log.Warnf("%s returned %d activities outside the requested types; dropped", rule.Source, removed)
		}
		activities = kept
	}

	m.log.Infof("found %d activities to sync from %s to %s", len(activities), rule.Source, rule.Destination)

	var dst platform.Destination
	if !opts.DryRun {
		d, ok := m.platforms[rule.Destination].(platform.Destination)
		if !ok {
			m.log.Errorf("skipping rule %s→%s: %s does not accept uploads", rule.Source, rule.Destination, rule.Destination)
			return 0
		}
		if err := d.Authenticate(ctx); err != nil {
			m.log.Errorf("skipping rule %s→%s: authentication failed for %s: %s", rule.Source, rule.Destination, rule.Destination, err)
			return 0
		}
		dst = d
	}

	src := m.platforms[rule.Source]
	synced := 0
	for _, a := range activities {
		if a.ID == "" {
			continue
		}

		payload, err := src.DownloadActivity(ctx, a.ID)
		if err != nil {
			m.log.Warnf("failed to download activity %s: %s", a.ID, err)
			continue
		}

		if opts.DryRun {
			m.log.Infof("[dry run] would upload %s to %s", payload, rule.Destination)
			synced++
			continue
		}

		newID, err := dst.UploadActivity(ctx, payload, platform.UploadOptions{Conflict: rule.Conflict})
		if err != nil || newID == "" {
			m.log.Errorf("failed to upload activity %s to %s: %v", a.ID, rule.Destination, err)
			continue
		}
		m.log.Infof("synced activity %s to %s as %s", a.ID, rule.Destination, newID)
		synced++
	}
	return synced
}

func typeInSet(tag string, set []string) bool {
	for _, t := range set {
		if tag == t {
			return true
		}
	}
	return false
}

// Query describes one activity listing request.
type Query struct {
	Platform      string
	Limit         int
	ActivityTypes []string
	StartDate     string
	EndDate       string
	// SkipCache forces a fresh listing.
	SkipCache bool
	// MaxAge overrides the default cache max age when non-zero.
	MaxAge time.Duration
}

// Activities returns a listing for the query, served from the in-process
// cache when a fresh enough entry exists. On a miss it authenticates and
// queries the adapter; failures yield an empty list and are never cached.
func (m *Manager) Activities(ctx context.Context, q Query) []platform.Activity {
	p, ok := m.platforms[q.Platform]
	if !ok {
		m.log.Errorf("platform %s not configured", q.Platform)
		return nil
	}

	typeFilter := strings.Join(q.ActivityTypes, ",")
	key := listcache.Key{
		Platform:     q.Platform,
		Limit:        q.Limit,
		ActivityType: typeFilter,
		StartDate:    q.StartDate,
		EndDate:      q.EndDate,
	}
	maxAge := q.MaxAge
	if maxAge == 0 {
		maxAge = defaultListMaxAge
	}

	if !q.SkipCache {
		if activities, hit := m.lists.Get(key, maxAge); hit {
			m.log.Debugf("activity listing for %s served from cache", q.Platform)
			return activities
		}
	}

	if err := p.Authenticate(ctx); err != nil {
		m.log.Errorf("authentication failed for %s: %s", q.Platform, err)
		return nil
	}

	activities, err := p.ListActivities(ctx, platform.ListOptions{
		Limit:        q.Limit,
		ActivityType: typeFilter,
		StartDate:    q.StartDate,
		EndDate:      q.EndDate,
	})
	if err != nil {
		m.log.Errorf("listing activities from %s: %s", q.Platform, err)
		return nil
	}

	m.lists.Put(key, activities)
	return activities
}

// ClearActivityCache drops every cached activity listing.
func (m *Manager) ClearActivityCache() {
	m.lists.Clear()
}

// DownloadActivity downloads one activity's track file. With an outputDir
// the cached payload is copied to outputDir/outputFilename (or the
// original base name) and the copy's path returned; without one, the
// adapter's own cache path is returned directly.
func (m *Manager) DownloadActivity(ctx context.Context, platformID, activityID, outputDir, outputFilename string) (string, error) {
	p, ok := m.platforms[platformID]
	if !ok {
		return "", fmt.Errorf("platform %s not configured", platformID)
	}

	if err := p.Authenticate(ctx); err != nil {
		return "", fmt.Errorf("authentication failed for %s: %w", platformID, err)
	}

	payload, err := p.DownloadActivity(ctx, activityID)
	if err != nil {
		return "", fmt.Errorf("downloading activity %s: %w", activityID, err)
	}

	if outputDir == "" {
		return payload, nil
	}

	if err := os.MkdirAll(outputDir, 0o755); err != nil {
		return "", fmt.Errorf("creating output directory %s: %w", outputDir, err)
	}

	name := outputFilename
	if name == "" {
		name = filepath.Base(payload)
	}
	dest := filepath.Join(outputDir, name)
	if err := copyFile(payload, dest); err != nil {
		return "", err
	}
	return dest, nil
}

func copyFile(src, dest string) error {
	in, err := os.Open(src)
	if err != nil {
		return fmt.Errorf("opening %s: %w", src, err)
	}
	defer in.Close()

	out, err := os.Create(dest)
	if err != nil {
		return fmt.Errorf("creating %s: %w", dest, err)
	}
	defer out.Close()

	if _, err := io.Copy(out, in); err != nil {
		return fmt.Errorf("copying to %s: %w", dest, err)
	}
	return nil
}
