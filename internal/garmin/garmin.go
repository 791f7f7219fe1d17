// Package garmin implements the Garmin Connect platform adapter. The US and
// CN regions run the same API on different hosts, so one adapter serves
// both, configured per region.
package garmin

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"net/url"
	"os"
	"path/filepath"
	"strconv"
	"time"

	"github.com/lildude/fitsync/internal/client"
	"github.com/lildude/fitsync/internal/platform"
	"github.com/lildude/fitsync/internal/tokencache"
	"github.com/sirupsen/logrus"
	"golang.org/x/oauth2"
)

// Region carries the per-region endpoints. Garmin China is a separate
// deployment with its own accounts, not a locale of the US one.
type Region struct {
	Key      string
	BaseURL  string
	TokenURL string
}

var (
	US = Region{
		Key:      "garmin_us",
		BaseURL:  "https://connect.garmin.com",
		TokenURL: "https://connect.garmin.com/oauth/token",
	}
	CN = Region{
		Key:      "garmin_cn",
		BaseURL:  "https://connect.garmin.cn",
		TokenURL: "https://connect.garmin.cn/oauth/token",
	}
)

const startTimeLayout = "2006-01-02 15:04:05"

// Platform is a Garmin Connect adapter for one account.
type Platform struct {
	region   Region
	creds    platform.Credential
	cacheDir string
	tokens   *tokencache.Store
	session  *tokencache.SessionToken
	api      *client.Client
	log      logrus.FieldLogger
}

// New returns an adapter for the given region and account. The cache
// directory is created if it does not exist.
func New(region Region, creds platform.Credential, cacheDir string, log logrus.FieldLogger) (*Platform, error) {
	if err := os.MkdirAll(cacheDir, 0o755); err != nil {
		return nil, fmt.Errorf("creating cache directory %s: %w", cacheDir, err)
	}

	return &Platform{
		region:   region,
		creds:    creds,
		cacheDir: cacheDir,
		tokens:   tokencache.NewStore(cacheDir, region.Key),
		log:      log,
	}, nil
}

// Key returns the account key this adapter serves.
func (p *Platform) Key() string {
	return p.region.Key
}

// Authenticate establishes or reuses a session. A valid persisted token is
// reused without a network call; otherwise the credentials are exchanged
// for a fresh token which is then persisted.
func (p *Platform) Authenticate(ctx context.Context) error {
	if p.session.Valid(p.creds.Email) && p.api != nil {
		return nil
	}

	if sess, err := p.tokens.Load(p.creds.Email); err == nil {
		p.log.Debugf("reusing cached session for %s", p.region.Key)
		p.setSession(sess)
		return nil
	}

	p.log.Infof("authenticating with %s as %s", p.region.Key, p.creds.Email)
	conf := &oauth2.Config{
		ClientID: "fitsync",
		Endpoint: oauth2.Endpoint{TokenURL: p.region.TokenURL},
	}
	tok, err := conf.PasswordCredentialsToken(ctx, p.creds.Email, p.creds.Password)
	if err != nil {
		return fmt.Errorf("authenticating with %s: %w", p.region.Key, err)
	}

	sess := &tokencache.SessionToken{
		Owner:    p.creds.Email,
		Token:    tok.AccessToken,
		Expiry:   tok.Expiry,
		Platform: p.region.Key,
	}
	if uid, ok := tok.Extra("userId").(string); ok {
		sess.UserID = uid
	}
	if sess.Expiry.IsZero() {
		sess.Expiry = time.Now().Add(time.Hour)
	}
	if err := p.tokens.Save(sess); err != nil {
		p.log.Warnf("unable to persist session token for %s: %s", p.region.Key, err)
	}

	p.setSession(sess)
	return nil
}

// setSession wires up an API client whose transport sends the session
// token as an Authorization: Bearer header.
func (p *Platform) setSession(sess *tokencache.SessionToken) {
	p.session = sess
	ts := oauth2.StaticTokenSource(&oauth2.Token{AccessToken: sess.Token})
	base, _ := url.Parse(p.region.BaseURL)
	p.api = client.NewClient(base, oauth2.NewClient(context.Background(), ts))
}

// garminActivity is the subset of the activity search response we map.
type garminActivity struct {
	ActivityID     int64  `json:"activityId"`
	StartTimeLocal string `json:"startTimeLocal"`
	ActivityType   struct {
		TypeKey string `json:"typeKey"`
	} `json:"activityType"`
	Duration      float64 `json:"duration"` // seconds
	Distance      float64 `json:"distance"`
	ElevationGain float64 `json:"elevationGain"`
	AverageHR     float64 `json:"averageHR"`
	Calories      float64 `json:"calories"`
}

// ListActivities returns up to opts.Limit activities, newest first as
// served by the activity search endpoint.
func (p *Platform) ListActivities(ctx context.Context, opts platform.ListOptions) ([]platform.Activity, error) {
	if p.api == nil {
		return nil, fmt.Errorf("%s: not authenticated", p.region.Key)
	}

	q := url.Values{}
	q.Set("start", "0")
	q.Set("limit", strconv.Itoa(opts.Limit))
	if opts.ActivityType != "" {
		q.Set("activityType", opts.ActivityType)
	}
	if opts.StartDate != "" {
		q.Set("startDate", opts.StartDate)
	}
	if opts.EndDate != "" {
		q.Set("endDate", opts.EndDate)
	}

	req, err := p.api.NewRequest(ctx, "GET", "/activitylist-service/activities/search/activities?"+q.Encode(), nil)
	if err != nil {
		return nil, fmt.Errorf("creating list request: %w", err)
	}

	var raw []garminActivity
	resp, err := p.api.Do(req, &raw)
	if resp != nil {
		defer resp.Body.Close()
	}
	if err != nil {
		return nil, fmt.Errorf("listing activities from %s: %w", p.region.Key, err)
	}

	activities := make([]platform.Activity, 0, len(raw))
	for _, ga := range raw {
		a := platform.Activity{
			ID:            strconv.FormatInt(ga.ActivityID, 10),
			Type:          ga.ActivityType.TypeKey,
			Duration:      time.Duration(ga.Duration * float64(time.Second)),
			Distance:      ga.Distance,
			ElevationGain: ga.ElevationGain,
			AvgHeartRate:  int(ga.AverageHR),
			Calories:      int(ga.Calories),
		}
		if t, perr := time.Parse(startTimeLayout, ga.StartTimeLocal); perr == nil {
			a.StartTime = t
		}
		activities = append(activities, a)
	}
	return activities, nil
}

// DownloadActivity fetches the FIT file for an activity into the cache
// directory and returns its path. Re-downloads overwrite.
func (p *Platform) DownloadActivity(ctx context.Context, activityID string) (string, error) {
	if p.api == nil {
		return "", fmt.Errorf("%s: not authenticated", p.region.Key)
	}

	p.log.Debugf("downloading activity %s from %s", activityID, p.region.Key)
	req, err := p.api.NewRequest(ctx, "GET", "/download-service/files/activity/"+activityID, nil)
	if err != nil {
		return "", fmt.Errorf("creating download request: %w", err)
	}

	dest := filepath.Join(p.cacheDir, activityID+".fit")
	if err := p.api.Download(req, dest); err != nil {
		return "", fmt.Errorf("downloading activity %s from %s: %w", activityID, p.region.Key, err)
	}
	return dest, nil
}

type uploadResult struct {
	DetailedImportResult struct {
		Successes []struct {
			InternalID int64 `json:"internalId"`
		} `json:"successes"`
	} `json:"detailedImportResult"`
}

// UploadActivity pushes a FIT file and returns the new activity id. The
// conflict strategy travels as a query parameter; deduplication itself
// happens server side.
func (p *Platform) UploadActivity(ctx context.Context, payloadPath string, opts platform.UploadOptions) (string, error) {
	if p.api == nil {
		return "", fmt.Errorf("%s: not authenticated", p.region.Key)
	}

	data, err := os.ReadFile(payloadPath)
	if err != nil {
		return "", fmt.Errorf("reading payload %s: %w", payloadPath, err)
	}

	target := "/upload-service/upload/.fit"
	if opts.Conflict != "" {
		target += "?conflict=" + url.QueryEscape(string(opts.Conflict))
	}
	req, err := p.api.NewRequest(ctx, "POST", target, nil)
	if err != nil {
		return "", fmt.Errorf("creating upload request: %w", err)
	}
	req.Body = io.NopCloser(bytes.NewReader(data))
	req.ContentLength = int64(len(data))
	req.Header.Set("Content-Type", "application/octet-stream")

	var result uploadResult
	resp, err := p.api.Do(req, &result)
	if resp != nil {
		defer resp.Body.Close()
	}
	if err != nil {
		return "", fmt.Errorf("uploading %s to %s: %w", payloadPath, p.region.Key, err)
	}

	if len(result.DetailedImportResult.Successes) == 0 {
		return "", fmt.Errorf("%s rejected upload of %s", p.region.Key, payloadPath)
	}
	return strconv.FormatInt(result.DetailedImportResult.Successes[0].InternalID, 10), nil
}
