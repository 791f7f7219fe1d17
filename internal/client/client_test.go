package client

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"net/url"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// setup returns a client pointed at a test server, the server's mux and a
// teardown function.
func setup() (*Client, *http.ServeMux, func()) {
	mux := http.NewServeMux()
	server := httptest.NewServer(mux)
	u, _ := url.Parse(server.URL)
	return NewClient(u, nil), mux, server.Close
}

func TestNewRequestSetsHeaders(t *testing.T) {
	c, _, teardown := setup()
	defer teardown()

	body := map[string]string{"account": "me@example.com"}
	req, err := c.NewRequest(context.Background(), "POST", "/account/login", body)
	require.NoError(t, err)

	assert.Equal(t, "application/json", req.Header.Get("Content-Type"))
	assert.Equal(t, "application/json", req.Header.Get("Accept"))
	assert.Equal(t, userAgent, req.Header.Get("User-Agent"))

	data, _ := io.ReadAll(req.Body)
	assert.JSONEq(t, `{"account":"me@example.com"}`, string(data))
}

func TestDoDecodesResponse(t *testing.T) {
	c, mux, teardown := setup()
	defer teardown()

	mux.HandleFunc("/thing", func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprintln(w, `{"id": "a1"}`)
	})

	var out struct {
		ID string `json:"id"`
	}
	req, _ := c.NewRequest(context.Background(), "GET", "/thing", nil)
	resp, err := c.Do(req, &out)
	require.NoError(t, err)
	defer resp.Body.Close()

	assert.Equal(t, "a1", out.ID)
}

func TestDoTreatsNon2xxAsError(t *testing.T) {
	c, mux, teardown := setup()
	defer teardown()

	mux.HandleFunc("/thing", func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "nope", http.StatusUnauthorized)
	})

	req, _ := c.NewRequest(context.Background(), "GET", "/thing", nil)
	resp, err := c.Do(req, nil)
	require.Error(t, err)
	assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)
}

func TestDownloadWritesFile(t *testing.T) {
	c, mux, teardown := setup()
	defer teardown()

	payload := []byte("binary track file contents")
	mux.HandleFunc("/files/activity/a1", func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write(payload)
	})

	dest := filepath.Join(t.TempDir(), "a1.fit")
	req, _ := c.NewRequest(context.Background(), "GET", "/files/activity/a1", nil)
	require.NoError(t, c.Download(req, dest))

	got, err := os.ReadFile(dest)
	require.NoError(t, err)
	assert.Equal(t, payload, got)
}

func TestDownloadOverwrites(t *testing.T) {
	c, mux, teardown := setup()
	defer teardown()

	mux.HandleFunc("/files/activity/a1", func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte("fresh"))
	})

	dest := filepath.Join(t.TempDir(), "a1.fit")
	require.NoError(t, os.WriteFile(dest, []byte("stale contents"), 0o644))

	req, _ := c.NewRequest(context.Background(), "GET", "/files/activity/a1", nil)
	require.NoError(t, c.Download(req, dest))

	got, _ := os.ReadFile(dest)
	assert.Equal(t, "fresh", string(got))
}

func TestDownloadErrorLeavesNoPartialResult(t *testing.T) {
	c, mux, teardown := setup()
	defer teardown()

	mux.HandleFunc("/files/activity/a1", func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "gone", http.StatusNotFound)
	})

	dest := filepath.Join(t.TempDir(), "a1.fit")
	req, _ := c.NewRequest(context.Background(), "GET", "/files/activity/a1", nil)
	err := c.Download(req, dest)
	require.Error(t, err)

	_, statErr := os.Stat(dest)
	assert.True(t, os.IsNotExist(statErr))
}
