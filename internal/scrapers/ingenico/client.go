package ingenico

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/http/cookiejar"
	"net/url"
	"strings"
	"time"
	"workorder-invoicer/internal/components/assert"
	"workorder-invoicer/internal/components/chrono"
	"workorder-invoicer/internal/components/telemetry"
	"workorder-invoicer/internal/credentials"
	"workorder-invoicer/internal/scrapers"

	cloudflarebp "github.com/DaRealFreak/cloudflare-bp-go"
	"github.com/go-resty/resty/v2"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"golang.org/x/time/rate"
)

var tracer = otel.Tracer("workorder-invoicer/internal/scrapers/ingenico")

const (
	report_client_search      = "client.search"
	report_client_form_fetch  = "client.form-fetch"
	report_client_search_post = "client.search-post"
	report_client_list_fetch  = "client.list-fetch"
)

const acceptHTML = "text/html,application/xhtml+xml,application/xml;q=0.9,image/avif,image/webp,*/*;q=0.8"

type Options struct {
	// Timeout bounds a single request.
	Timeout time.Duration
	// MaxRetries is how many times a failed search sequence is started over.
	MaxRetries int
	// ResultsPage is the page the search post must redirect to.
	ResultsPage string
	// RequestsPerSecond is shared by the three calls of a search.
	RequestsPerSecond float64
}

// Client searches the closed jobs of the Ingenico eCAMS portal. Every search runs in its
// own session: a fresh cookie jar seeded with the captured cookies.
type Client struct {
	store credentials.Store
	opts  Options
	clock chrono.API
	tel   telemetry.API
}

func NewClient(store credentials.Store, opts Options, clock chrono.API, tel telemetry.API) *Client {
	assert.NotNil(store)
	assert.NotNil(clock)
	assert.NotNil(tel)

	if opts.Timeout <= 0 {
		opts.Timeout = time.Second * 30
	}
	if opts.MaxRetries < 0 {
		opts.MaxRetries = 0
	}
	if opts.ResultsPage == "" {
		opts.ResultsPage = "FSPClosedJobList.aspx"
	}
	if opts.RequestsPerSecond <= 0 {
		opts.RequestsPerSecond = 2
	}

	return &Client{
		store: store,
		opts:  opts,
		clock: clock,
		tel:   telemetry.NewScopedAPI("ingenico_scraper", tel),
	}
}

// SearchResult is the outcome of a search, failures are reported in Error and Message
// instead of an error value so they can be handed to an operator as is.
type SearchResult struct {
	Success   bool        `json:"success"`
	Error     string      `json:"error,omitempty"`
	Message   string      `json:"message,omitempty"`
	Filters   Filters     `json:"filters"`
	Headers   []string    `json:"headers,omitempty"`
	Jobs      []ClosedJob `json:"jobs,omitempty"`
	Attempts  int         `json:"attempts"`
	FetchedAt time.Time   `json:"fetched_at"`
	RawHTML   []byte      `json:"-"`
}

type session struct {
	http      *resty.Client
	set       credentials.Set
	searchURL string
	origin    string
}

func originOf(rawURL string) string {
	parsed, err := url.Parse(rawURL)
	if err != nil || parsed.Host == "" {
		return ""
	}
	return fmt.Sprintf("%s://%s", parsed.Scheme, parsed.Host)
}

// noRedirectAfterPost keeps the 302 of the search post visible, redirects of the GET
// calls are followed.
func noRedirectAfterPost(req *http.Request, via []*http.Request) error {
	if len(via) > 0 && via[len(via)-1].Method == http.MethodPost {
		return http.ErrUseLastResponse
	}
	if len(via) >= 10 {
		return errors.New("stopped after 10 redirects")
	}
	return nil
}

func (c *Client) newSession(set credentials.Set) (session, error) {
	searchURL := set.Get(credentials.IngenicoSearchURL)
	parsedSearchURL, err := url.Parse(searchURL)
	if err != nil {
		return session{}, fmt.Errorf("search url: %w", err)
	}

	jar, err := cookiejar.New(nil)
	if err != nil {
		return session{}, err
	}
	var cookies []*http.Cookie
	for _, cookie := range credentials.IngenicoCookies {
		value := set.Get(cookie.Key)
		if value == "" {
			continue
		}
		cookies = append(cookies, &http.Cookie{Name: cookie.Name, Value: value, Path: "/"})
	}
	jar.SetCookies(parsedSearchURL, cookies)

	httpClient := resty.New()
	httpClient.SetCookieJar(jar)
	httpClient.GetClient().Transport = cloudflarebp.AddCloudFlareByPass(httpClient.GetClient().Transport)
	httpClient.SetRedirectPolicy(resty.RedirectPolicyFunc(noRedirectAfterPost))
	httpClient.SetTimeout(c.opts.Timeout)
	httpClient.SetHeaders(map[string]string{
		"User-Agent":                set.Get(credentials.IngenicoUserAgent),
		"Accept":                    acceptHTML,
		"Accept-Language":           set.Get(credentials.IngenicoAcceptLanguage),
		"Upgrade-Insecure-Requests": "1",
	})

	rateLimiter := rate.NewLimiter(rate.Limit(c.opts.RequestsPerSecond), 1)
	httpClient.OnBeforeRequest(func(_ *resty.Client, req *resty.Request) error {
		return rateLimiter.Wait(req.Context())
	})
	telemetry.InstrumentResty(httpClient, c.tel)

	return session{
		http:      httpClient,
		set:       set,
		searchURL: searchURL,
		origin:    originOf(searchURL),
	}, nil
}

func (c *Client) fetchForm(ctx context.Context, s session) (formTokens, error) {
	ctx, span := tracer.Start(ctx, "ingenico:form-fetch")
	defer span.End()

	res, err := s.http.R().SetContext(ctx).Get(s.searchURL)
	err = scrapers.CheckResponse("form fetch", res, err)
	if err == nil {
		var tokens formTokens
		tokens, err = parseFormTokens(res.Body())
		if err == nil {
			return tokens, nil
		}
	}
	span.RecordError(err)
	span.SetStatus(codes.Error, err.Error())
	c.tel.ReportWarning(report_client_form_fetch, err)
	return formTokens{}, err
}

func (c *Client) postSearch(ctx context.Context, s session, tokens formTokens, f Filters) error {
	ctx, span := tracer.Start(ctx, "ingenico:search-post")
	defer span.End()

	res, err := s.http.R().
		SetContext(ctx).
		SetHeader("Content-Type", "application/x-www-form-urlencoded").
		SetHeader("Origin", s.origin).
		SetHeader("Referer", s.searchURL).
		SetFormDataFromValues(searchForm(tokens, s.set.Get(credentials.IngenicoCookieRequestVerification), f)).
		Post(s.searchURL)
	err = scrapers.CheckResponse("search post", res, err, http.StatusFound)
	if err != nil {
		if res != nil && res.StatusCode() != 0 {
			err = fmt.Errorf("%w: status %d", ErrSearchFailed, res.StatusCode())
		}
	} else if location := res.Header().Get("Location"); !strings.Contains(location, c.opts.ResultsPage) {
		err = fmt.Errorf("%w: redirected to %q", ErrSearchFailed, location)
	}
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		c.tel.ReportWarning(report_client_search_post, err)
		return err
	}
	return nil
}

func (c *Client) fetchList(ctx context.Context, s session) ([]byte, Table, error) {
	ctx, span := tracer.Start(ctx, "ingenico:list-fetch")
	defer span.End()

	res, err := s.http.R().
		SetContext(ctx).
		SetHeader("Referer", s.searchURL).
		Get(s.set.Get(credentials.IngenicoListURL))
	err = scrapers.CheckResponse("list fetch", res, err)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		c.tel.ReportWarning(report_client_list_fetch, err)
		return nil, Table{}, err
	}

	table, err := ParseClosedJobs(res.Body())
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		c.tel.ReportWarning(report_client_list_fetch, err)
		return res.Body(), Table{}, err
	}
	span.SetAttributes(attribute.Int("jobs", len(table.Jobs)))
	return res.Body(), table, nil
}

func (c *Client) attempt(ctx context.Context, f Filters) ([]byte, Table, error) {
	set, err := c.store.Load(ctx)
	if err != nil {
		return nil, Table{}, fmt.Errorf("load credentials: %w", err)
	}
	err = set.Require(credentials.IngenicoSearchURL, credentials.IngenicoListURL)
	if err != nil {
		return nil, Table{}, err
	}

	s, err := c.newSession(set)
	if err != nil {
		return nil, Table{}, err
	}
	tokens, err := c.fetchForm(ctx, s)
	if err != nil {
		return nil, Table{}, err
	}
	err = c.postSearch(ctx, s, tokens, f)
	if err != nil {
		return nil, Table{}, err
	}
	return c.fetchList(ctx, s)
}

// Search runs the form fetch, search post and list fetch sequence, starting it over up
// to MaxRetries times when any step fails.
func (c *Client) Search(ctx context.Context, f Filters) SearchResult {
	ctx, span := tracer.Start(ctx, "ingenico:search")
	defer span.End()

	set, err := c.store.Load(ctx)
	if err != nil {
		set = credentials.Set{}
	}
	f = ResolveFilters(set, f)
	span.SetAttributes(
		attribute.String("from_date", f.FromDate),
		attribute.String("to_date", f.ToDate),
	)

	result := SearchResult{Filters: f}
	var lastErr error
	for attempt := 0; attempt <= c.opts.MaxRetries; attempt++ {
		if ctx.Err() != nil {
			lastErr = ctx.Err()
			break
		}
		result.Attempts++

		raw, table, err := c.attempt(ctx, f)
		if err == nil {
			result.Success = true
			result.Headers = table.Headers
			result.Jobs = table.Jobs
			result.RawHTML = raw
			result.FetchedAt = c.clock.Now()
			c.tel.ReportCount(report_client_search, int64(len(table.Jobs)))
			return result
		}
		lastErr = err
		c.tel.ReportDebug("search attempt failed", attempt+1, err)
	}

	span.RecordError(lastErr)
	span.SetStatus(codes.Error, lastErr.Error())
	c.tel.ReportBroken(report_client_search, lastErr)

	result.FetchedAt = c.clock.Now()
	if errors.Is(lastErr, ErrSessionExpired) {
		result.Error = CodeSessionExpired
		result.Message = "Session expired. Refresh the Ingenico credentials from a recent curl capture."
		return result
	}
	result.Error = CodeUnknown
	result.Message = fmt.Sprintf("Error processing search: %v", lastErr)
	return result
}
