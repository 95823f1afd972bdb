package ingenico

import (
	"context"
	"net/http"
	"net/http/httptest"
	"net/url"
	"sync/atomic"
	"testing"
	"time"
	"workorder-invoicer/internal/components/chrono"
	"workorder-invoicer/internal/components/telemetry"
	"workorder-invoicer/internal/credentials"

	"github.com/stretchr/testify/require"
)

type fakePortal struct {
	server *httptest.Server

	postStatus  int
	listStatus  int
	location    string
	listBody    string
	formBody    string
	formFetches atomic.Int32
	posts       atomic.Int32
	listFetches atomic.Int32
	lastForm    atomic.Value
}

func newFakePortal(t *testing.T) *fakePortal {
	p := &fakePortal{
		postStatus: http.StatusFound,
		listStatus: http.StatusOK,
		location:   "/FSPClosedJobList.aspx",
		listBody:   resultsPage,
		formBody:   searchPage,
	}
	mux := http.NewServeMux()
	mux.HandleFunc("/FSPClosedJobSearch.aspx", func(w http.ResponseWriter, r *http.Request) {
		session, err := r.Cookie("ASP.NET_SessionId")
		if err != nil || session.Value != "sess" {
			http.Redirect(w, r, "/login.aspx", http.StatusFound)
			return
		}
		if r.Method == http.MethodGet {
			p.formFetches.Add(1)
			w.Write([]byte(p.formBody))
			return
		}
		p.posts.Add(1)
		r.ParseForm()
		p.lastForm.Store(r.PostForm)
		if p.postStatus == http.StatusFound {
			w.Header().Set("Location", p.location)
		}
		w.WriteHeader(p.postStatus)
	})
	mux.HandleFunc("/FSPClosedJobList.aspx", func(w http.ResponseWriter, r *http.Request) {
		p.listFetches.Add(1)
		w.WriteHeader(p.listStatus)
		w.Write([]byte(p.listBody))
	})
	mux.HandleFunc("/login.aspx", func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`<html><form id="login"></form></html>`))
	})
	p.server = httptest.NewServer(mux)
	t.Cleanup(p.server.Close)
	return p
}

func newTestClient(p *fakePortal, maxRetries int) (*Client, *telemetry.TestingAPI) {
	store := credentials.NewMemoryStore(map[string]string{
		credentials.IngenicoSearchURL:                 p.server.URL + "/FSPClosedJobSearch.aspx",
		credentials.IngenicoListURL:                   p.server.URL + "/FSPClosedJobList.aspx",
		credentials.IngenicoUserAgent:                 "Mozilla/5.0",
		credentials.IngenicoCookieSessionID:           "sess",
		credentials.IngenicoCookieRequestVerification: "rvt",
		credentials.IngenicoFromDate:                  "01/09/25",
	})
	tel := telemetry.NewTestingAPI()
	clock := chrono.FixedImpl{At: time.Date(2025, time.October, 3, 9, 30, 0, 0, time.UTC)}
	client := NewClient(store, Options{
		Timeout:           time.Second * 5,
		MaxRetries:        maxRetries,
		RequestsPerSecond: 100,
	}, clock, tel)
	return client, tel
}

func TestSearch(t *testing.T) {
	p := newFakePortal(t)
	client, tel := newTestClient(p, 1)

	result := client.Search(context.Background(), Filters{ToDate: "30/09/25"})
	require.True(t, result.Success, result.Message)
	require.Equal(t, 1, result.Attempts)
	require.Len(t, result.Jobs, 2)
	require.Equal(t, "J1001", result.Jobs[0]["JobID"])
	require.Equal(t, []string{"JobID", "Merchant", "Closed Date"}, result.Headers)
	require.Equal(t, resultsPage, string(result.RawHTML))
	require.Equal(t, Filters{
		FromDate:   "01/09/25",
		ToDate:     "30/09/25",
		AssignedTo: "5516",
		JobType:    "ALL",
		PageSize:   "100",
	}, result.Filters)
	require.Equal(t, int64(2), tel.Count("ingenico_scraper: client.search"))

	form := p.lastForm.Load().(url.Values)
	require.Equal(t, []string{"vs+/="}, form["__VIEWSTATE"])
	require.Equal(t, []string{"gen1"}, form["__VIEWSTATEGENERATOR"])
	require.Equal(t, []string{"ev1"}, form["__EVENTVALIDATION"])
	require.Equal(t, []string{"rvt"}, form["__RequestVerificationToken"])
	require.Equal(t, []string{"01/09/25"}, form["ctl00$ContentPlaceHolder1$txtFromDate"])
	require.Equal(t, []string{"30/09/25"}, form["ctl00$ContentPlaceHolder1$txtToDate"])
	require.Equal(t, []string{" GO "}, form["ctl00$ContentPlaceHolder1$btnSearch"])
	require.Equal(t, []string{""}, form["ctl00$ContentPlaceHolder1$txtJobIDs"])
}

func TestSearchFailedNeverFetchesList(t *testing.T) {
	p := newFakePortal(t)
	p.postStatus = http.StatusOK
	client, _ := newTestClient(p, 1)

	result := client.Search(context.Background(), Filters{})
	require.False(t, result.Success)
	require.Equal(t, CodeUnknown, result.Error)
	require.Contains(t, result.Message, "Error processing search")
	require.Equal(t, 2, result.Attempts)
	require.Equal(t, int32(2), p.posts.Load())
	require.Equal(t, int32(0), p.listFetches.Load())
}

func TestSearchUnexpectedRedirect(t *testing.T) {
	p := newFakePortal(t)
	p.location = "/Error.aspx"
	client, _ := newTestClient(p, 0)

	result := client.Search(context.Background(), Filters{})
	require.False(t, result.Success)
	require.Equal(t, 1, result.Attempts)
	require.Contains(t, result.Message, "/Error.aspx")
	require.Equal(t, int32(0), p.listFetches.Load())
}

func TestSearchSessionExpired(t *testing.T) {
	p := newFakePortal(t)
	p.listBody = `<html><body>Please log in</body></html>`
	client, tel := newTestClient(p, 1)

	result := client.Search(context.Background(), Filters{})
	require.False(t, result.Success)
	require.Equal(t, CodeSessionExpired, result.Error)
	require.Equal(t, 2, result.Attempts)
	require.Equal(t, int32(2), p.formFetches.Load())
	require.Len(t, tel.Reports("broken", "client.search"), 1)
}

func TestSearchListServerError(t *testing.T) {
	p := newFakePortal(t)
	p.listStatus = http.StatusInternalServerError
	client, tel := newTestClient(p, 1)

	var result SearchResult
	require.NotPanics(t, func() {
		result = client.Search(context.Background(), Filters{})
	})
	require.False(t, result.Success)
	require.Equal(t, CodeUnknown, result.Error)
	require.Contains(t, result.Message, "500")
	require.Equal(t, 2, result.Attempts)
	require.Equal(t, int32(2), p.listFetches.Load())
	require.NotEmpty(t, tel.Reports("warning", "client.list-fetch"))
}

func TestSearchMissingTokens(t *testing.T) {
	p := newFakePortal(t)
	p.formBody = `<html><input id="__VIEWSTATE" value="x" /></html>`
	client, _ := newTestClient(p, 0)

	result := client.Search(context.Background(), Filters{})
	require.False(t, result.Success)
	require.Equal(t, CodeUnknown, result.Error)
	require.Contains(t, result.Message, ErrTokenExtraction.Error())
	require.Equal(t, int32(0), p.posts.Load())
}

func TestOriginOf(t *testing.T) {
	require.Equal(t, "https://services.ingenico.com.au", originOf("https://services.ingenico.com.au/eCAMS/FSPClosedJobSearch.aspx"))
	require.Equal(t, "", originOf("not a url"))
}
