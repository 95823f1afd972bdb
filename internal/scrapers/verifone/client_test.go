package verifone

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"
	"time"
	"workorder-invoicer/internal/components/chrono"
	"workorder-invoicer/internal/components/telemetry"
	"workorder-invoicer/internal/credentials"
	"workorder-invoicer/internal/scrapers"

	"github.com/stretchr/testify/require"
)

func newPortal(t *testing.T) *httptest.Server {
	mux := http.NewServeMux()
	mux.HandleFunc("/list", func(w http.ResponseWriter, r *http.Request) {
		if r.Header.Get("Cookie") != "sid=1" || r.FormValue("aura.token") != "list-token" {
			w.WriteHeader(http.StatusUnauthorized)
			return
		}
		w.Write([]byte(listFixture))
	})
	mux.HandleFunc("/detail", func(w http.ResponseWriter, r *http.Request) {
		if r.FormValue("aura.token") != "detail-token" {
			w.WriteHeader(http.StatusUnauthorized)
			return
		}
		w.Write([]byte(detailFixture))
	})
	mux.HandleFunc("/pii", func(w http.ResponseWriter, r *http.Request) {
		if r.FormValue("aura.token") != "pii-token" {
			w.WriteHeader(http.StatusUnauthorized)
			return
		}
		w.Write([]byte(sensitiveFixture))
	})
	server := httptest.NewServer(mux)
	t.Cleanup(server.Close)
	return server
}

func newTestClient(t *testing.T, server *httptest.Server, captureDir string) (*Client, *credentials.MemoryStore, *telemetry.TestingAPI) {
	store := credentials.NewMemoryStore(map[string]string{
		credentials.ListURL:        server.URL + "/list",
		credentials.DetailURL:      server.URL + "/detail",
		credentials.SensitiveURL:   server.URL + "/pii",
		credentials.Origin:         server.URL,
		credentials.Cookie:         "sid=1",
		credentials.ListToken:      "list-token",
		credentials.DetailToken:    "detail-token",
		credentials.SensitiveToken: "pii-token",
	})
	tel := telemetry.NewTestingAPI()
	clock := chrono.FixedImpl{At: time.Date(2025, time.October, 3, 9, 0, 0, 0, time.UTC)}
	client := NewClient(store, Options{
		Timeout:           time.Second * 5,
		RequestsPerSecond: 100,
		CaptureDir:        captureDir,
	}, clock, tel)
	return client, store, tel
}

func TestClient(t *testing.T) {
	ctx := context.Background()
	server := newPortal(t)
	captureDir := t.TempDir()
	client, _, tel := newTestClient(t, server, captureDir)

	ids, err := client.ListWorkOrderIDs(ctx, "", 200)
	require.NoError(t, err)
	require.Equal(t, []string{"0WOb", "0WOa", "0WOc"}, ids)
	require.Equal(t, int64(3), tel.Count("verifone_scraper: client.list"))

	wo, err := client.FetchDetail(ctx, "0WO1")
	require.NoError(t, err)
	require.Equal(t, "00012345", wo.JobID)

	_, err = client.FetchDetail(ctx, "0WODENIED")
	require.ErrorIs(t, err, ErrRecordAccessDenied)
	require.NotEmpty(t, tel.Reports("warning", "client.fetch-detail"))

	sensitive, err := client.FetchSensitive(ctx, "0WO1")
	require.NoError(t, err)
	require.Equal(t, "T1000", sensitive.TerminalID)

	for _, name := range []string{"header.json", "raw_response_0WO1.json", "raw_pii_response_0WO1.json"} {
		_, err := os.Stat(filepath.Join(captureDir, name))
		require.NoError(t, err, name)
	}

	// incomplete captures only warn, the request still goes out
	require.NotEmpty(t, tel.Reports("warning", "client.credentials"))
}

func TestCaptureRecordStaysInDir(t *testing.T) {
	root := t.TempDir()
	captureDir := filepath.Join(root, "captures")
	client, _, tel := newTestClient(t, newPortal(t), captureDir)

	client.captureRecord("raw_response", "x/../../escaped", []byte(`{}`))
	client.captureRecord("raw_response", "0WO1", []byte(`{}`))

	_, err := os.Stat(filepath.Join(captureDir, "raw_response_0WO1.json"))
	require.NoError(t, err)
	matches, err := filepath.Glob(filepath.Join(root, "*.json"))
	require.NoError(t, err)
	require.Empty(t, matches)
	entries, err := os.ReadDir(captureDir)
	require.NoError(t, err)
	require.Len(t, entries, 1)
	require.Len(t, tel.Reports("warning", "client.capture"), 1)
}

func TestClientPicksUpRefreshedCredentials(t *testing.T) {
	ctx := context.Background()
	server := newPortal(t)
	client, store, tel := newTestClient(t, server, "")

	require.NoError(t, store.Update(ctx, map[string]string{credentials.DetailToken: "expired"}))
	_, err := client.FetchDetail(ctx, "0WO1")
	var transportErr *scrapers.TransportError
	require.True(t, errors.As(err, &transportErr))
	require.Equal(t, http.StatusUnauthorized, transportErr.StatusCode)
	require.NotEmpty(t, tel.Reports("warning", "resty.response"))

	require.NoError(t, store.Update(ctx, map[string]string{credentials.DetailToken: "detail-token"}))
	_, err = client.FetchDetail(ctx, "0WO1")
	require.NoError(t, err)

	require.NoError(t, store.Update(ctx, map[string]string{credentials.SensitiveToken: "expired"}))
	_, err = client.FetchSensitive(ctx, "0WO1")
	require.ErrorIs(t, err, ErrSensitiveDataUnavailable)
}

func TestListFailure(t *testing.T) {
	server := newPortal(t)
	client, store, tel := newTestClient(t, server, "")
	require.NoError(t, store.Update(context.Background(), map[string]string{credentials.Cookie: "sid=old"}))

	_, err := client.ListWorkOrderIDs(context.Background(), "", 0)
	require.Error(t, err)
	require.Len(t, tel.Reports("broken", "client.list"), 1)
}

func TestNonceDiffersPerCall(t *testing.T) {
	server := newPortal(t)
	client, _, _ := newTestClient(t, server, "")
	first := client.nonce("0WO1")
	second := client.nonce("0WO1")
	require.Len(t, first, 64)
	require.NotEqual(t, first, second)
}
