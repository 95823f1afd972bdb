package verifone

import (
	"bytes"
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"time"
	"workorder-invoicer/internal/components/assert"
	"workorder-invoicer/internal/components/chrono"
	"workorder-invoicer/internal/components/telemetry"
	"workorder-invoicer/internal/credentials"
	"workorder-invoicer/internal/scrapers"

	"github.com/go-resty/resty/v2"
	"github.com/mazen160/go-random"
	"golang.org/x/time/rate"
)

const (
	report_client_credentials     = "client.credentials"
	report_client_list            = "client.list"
	report_client_fetch_detail    = "client.fetch-detail"
	report_client_fetch_sensitive = "client.fetch-sensitive"
	report_client_capture         = "client.capture"
)

type Options struct {
	// Timeout bounds a single request.
	Timeout time.Duration
	// RequestsPerSecond is shared by every worker using the client.
	RequestsPerSecond float64
	// CaptureDir receives the raw portal responses when set.
	CaptureDir string
}

// Client talks to the Verifone field service portal. Credentials are loaded from the
// store before every request.
type Client struct {
	http       *resty.Client
	store      credentials.Store
	clock      chrono.API
	tel        telemetry.API
	captureDir string
}

func NewClient(store credentials.Store, opts Options, clock chrono.API, tel telemetry.API) *Client {
	assert.NotNil(store)
	assert.NotNil(clock)
	assert.NotNil(tel)

	tel = telemetry.NewScopedAPI("verifone_scraper", tel)

	if opts.Timeout <= 0 {
		opts.Timeout = time.Second * 30
	}
	if opts.RequestsPerSecond <= 0 {
		opts.RequestsPerSecond = 10
	}

	httpClient := resty.New()
	// the captured cookie string is replayed as is, a jar would append to it
	httpClient.SetCookieJar(nil)
	httpClient.SetTimeout(opts.Timeout)

	rateLimiter := rate.NewLimiter(rate.Limit(opts.RequestsPerSecond), int(opts.RequestsPerSecond)+1)
	httpClient.OnBeforeRequest(func(_ *resty.Client, req *resty.Request) error {
		return rateLimiter.Wait(req.Context())
	})

	telemetry.InstrumentResty(httpClient, tel)

	return &Client{
		http:       httpClient,
		store:      store,
		clock:      clock,
		tel:        tel,
		captureDir: opts.CaptureDir,
	}
}

func (c *Client) loadCredentials(ctx context.Context, keys []string) (credentials.Set, error) {
	set, err := c.store.Load(ctx)
	if err != nil {
		return nil, fmt.Errorf("load credentials: %w", err)
	}
	err = set.Require(keys...)
	if err != nil {
		c.tel.ReportWarning(report_client_credentials, err)
	}
	return set, nil
}

func (c *Client) post(ctx context.Context, call string, req Request) ([]byte, error) {
	res, err := c.http.R().
		SetContext(ctx).
		SetHeaderMultiValues(req.Header).
		SetFormDataFromValues(req.Form).
		Post(req.URL)
	err = scrapers.CheckResponse(call, res, err)
	if err != nil {
		return nil, err
	}
	return res.Body(), nil
}

func (c *Client) capture(name string, body []byte) {
	if c.captureDir == "" {
		return
	}
	var out bytes.Buffer
	if json.Indent(&out, body, "", "  ") != nil {
		out.Reset()
		out.Write(body)
	}

	err := os.MkdirAll(c.captureDir, 0755)
	if err == nil {
		err = os.WriteFile(filepath.Join(c.captureDir, name), out.Bytes(), 0644)
	}
	if err != nil {
		c.tel.ReportWarning(report_client_capture, fmt.Errorf("write %s: %w", name, err))
	}
}

var recordIDPattern = regexp.MustCompile(`^[A-Za-z0-9]+$`)

// captureRecord captures the response of a single record, ids that are not plain
// record ids are never turned into file names.
func (c *Client) captureRecord(prefix, id string, body []byte) {
	if c.captureDir == "" {
		return
	}
	if !recordIDPattern.MatchString(id) {
		c.tel.ReportWarning(report_client_capture, fmt.Errorf("skipped capture of record id %q", id))
		return
	}
	c.capture(fmt.Sprintf("%s_%s.json", prefix, id), body)
}

// ListWorkOrderIDs returns the ids of the technician's list view, optionally narrowed
// by a search string. The page size caps how many ids the portal returns.
func (c *Client) ListWorkOrderIDs(ctx context.Context, searchString string, pageSize int) ([]string, error) {
	set, err := c.loadCredentials(ctx, listKeys)
	if err != nil {
		return nil, err
	}

	body, err := c.post(ctx, "list", BuildListRequest(set, searchString, pageSize))
	if err != nil {
		c.tel.ReportBroken(report_client_list, err)
		return nil, err
	}
	c.capture("header.json", body)

	ids, err := ParseListResponse(body)
	if err != nil {
		c.tel.ReportBroken(report_client_list, err)
		return nil, err
	}
	c.tel.ReportCount(report_client_list, int64(len(ids)))
	return ids, nil
}

// FetchDetail fetches the record page of a work order.
func (c *Client) FetchDetail(ctx context.Context, id string) (WorkOrder, error) {
	set, err := c.loadCredentials(ctx, detailKeys)
	if err != nil {
		return WorkOrder{}, err
	}

	body, err := c.post(ctx, "detail", BuildDetailRequest(set, id))
	if err != nil {
		c.tel.ReportWarning(report_client_fetch_detail, id, err)
		return WorkOrder{}, err
	}
	c.captureRecord("raw_response", id, body)

	wo, err := ParseDetailResponse(body, id)
	if err != nil {
		c.tel.ReportWarning(report_client_fetch_detail, id, err)
		return WorkOrder{}, err
	}
	return wo, nil
}

func (c *Client) nonce(id string) string {
	salt, err := random.String(8)
	if err != nil {
		salt = ""
	}
	sum := sha256.Sum256([]byte(fmt.Sprintf("%s%d%s", id, c.clock.Now().UnixNano(), salt)))
	return hex.EncodeToString(sum[:])
}

// FetchSensitive runs the personal-details flow of a work order.
func (c *Client) FetchSensitive(ctx context.Context, id string) (Sensitive, error) {
	set, err := c.loadCredentials(ctx, sensitiveKeys)
	if err != nil {
		return Sensitive{}, err
	}

	body, err := c.post(ctx, "sensitive", BuildSensitiveRequest(set, id, c.nonce(id)))
	if err != nil {
		c.tel.ReportWarning(report_client_fetch_sensitive, id, err)
		return Sensitive{}, fmt.Errorf("%w: %w", ErrSensitiveDataUnavailable, err)
	}
	c.captureRecord("raw_pii_response", id, body)

	sensitive, err := ParseSensitiveResponse(body)
	if err != nil {
		c.tel.ReportWarning(report_client_fetch_sensitive, id, err)
		return Sensitive{}, err
	}
	return sensitive, nil
}
