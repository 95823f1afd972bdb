package config

import (
	"errors"
	"fmt"
	"os"
	"time"
	"workorder-invoicer/internal/components/chrono"
	"workorder-invoicer/internal/components/telemetry"
	"workorder-invoicer/internal/notify"
	"workorder-invoicer/pkg/configutil"
)

// Duration reads as a Go duration string ("30s", "10m") in config files.
type Duration time.Duration

func (d *Duration) UnmarshalJSON(data []byte) error {
	if string(data) == "null" {
		return nil
	}
	if len(data) < 2 || (data[0] != '"' && data[0] != '\'') || data[len(data)-1] != data[0] {
		return fmt.Errorf("duration must be a string, got %s", data)
	}
	parsed, err := time.ParseDuration(string(data[1 : len(data)-1]))
	if err != nil {
		return err
	}
	*d = Duration(parsed)
	return nil
}

func (d Duration) Std() time.Duration {
	return time.Duration(d)
}

type CredentialsConfig struct {
	// Backend is "env" or "sqlite".
	Backend string `json:"backend"`
	// Path is the .env file or the sqlite database.
	Path string `json:"path"`
}

type VerifoneConfig struct {
	RequestTimeout    Duration `json:"request_timeout"`
	RequestsPerSecond float64  `json:"requests_per_second"`
	// CaptureDir receives raw responses when set.
	CaptureDir string `json:"capture_dir"`
}

type IngenicoConfig struct {
	ResultsPage       string   `json:"results_page"`
	MaxRetries        int      `json:"max_retries"`
	RequestTimeout    Duration `json:"request_timeout"`
	RequestsPerSecond float64  `json:"requests_per_second"`
	OutputDir         string   `json:"output_dir"`
}

type InvoiceConfig struct {
	MaxWorkers    int `json:"max_workers"`
	ErrorListSize int `json:"error_list_size"`
	// MaxWorkOrders caps the work orders fetched per run, 0 fetches every one. When
	// unset the MAX_WORK_ORDERS credential applies.
	MaxWorkOrders *int     `json:"max_work_orders"`
	Deadline      Duration `json:"deadline"`
	OutputDir     string   `json:"output_dir"`
}

type ArchiveConfig struct {
	Path string `json:"path"`
}

type ScheduleConfig struct {
	// Invoice and ClosedJobs are cron specs, empty disables the schedule.
	Invoice    string `json:"invoice"`
	ClosedJobs string `json:"closed_jobs"`
}

type ServerConfig struct {
	Port int `json:"port"`
}

type Config struct {
	Credentials CredentialsConfig    `json:"credentials"`
	Verifone    VerifoneConfig       `json:"verifone"`
	Ingenico    IngenicoConfig       `json:"ingenico"`
	Invoice     InvoiceConfig        `json:"invoice"`
	Archive     ArchiveConfig        `json:"archive"`
	Smtp        notify.SmtpConfig    `json:"smtp"`
	Schedule    ScheduleConfig       `json:"schedule"`
	Server      ServerConfig         `json:"server"`
	Telemetry   telemetry.OtlpConfig `json:"telemetry"`
	Timezone    string               `json:"timezone"`
}

func Defaults() Config {
	return Config{
		Credentials: CredentialsConfig{
			Backend: "env",
			Path:    ".env",
		},
		Verifone: VerifoneConfig{
			RequestTimeout:    Duration(30 * time.Second),
			RequestsPerSecond: 10,
		},
		Ingenico: IngenicoConfig{
			ResultsPage:       "FSPClosedJobList.aspx",
			MaxRetries:        1,
			RequestTimeout:    Duration(30 * time.Second),
			RequestsPerSecond: 2,
			OutputDir:         "closedJobIngenico",
		},
		Invoice: InvoiceConfig{
			MaxWorkers:    10,
			ErrorListSize: 10,
			Deadline:      Duration(10 * time.Minute),
			OutputDir:     "VerifoneWorkOrders",
		},
		Archive: ArchiveConfig{
			Path: "state/archive.db",
		},
		Server: ServerConfig{
			Port: 5000,
		},
		Timezone: "Australia/Sydney",
	}
}

// Load reads config.json5 (and config.local.json5) from the working directory or one
// of its parents. Missing files leave the defaults in place.
func Load(name string) (Config, error) {
	cfg, err := configutil.ReadRecursively(name, Defaults())
	if errors.Is(err, os.ErrNotExist) {
		return Defaults(), nil
	}
	if err != nil {
		return Config{}, err
	}
	return cfg, cfg.Validate()
}

func (c Config) Validate() error {
	var errs []error
	switch c.Credentials.Backend {
	case "env", "sqlite":
	default:
		errs = append(errs, fmt.Errorf("credentials.backend must be env or sqlite, got %q", c.Credentials.Backend))
	}
	if c.Credentials.Path == "" {
		errs = append(errs, errors.New("credentials.path is empty"))
	}
	if c.Invoice.MaxWorkOrders != nil && *c.Invoice.MaxWorkOrders < 0 {
		errs = append(errs, errors.New("invoice.max_work_orders must not be negative"))
	}
	if c.Ingenico.MaxRetries < 0 {
		errs = append(errs, errors.New("ingenico.max_retries must not be negative"))
	}
	if _, err := chrono.NewStandardImpl(c.Timezone); err != nil {
		errs = append(errs, fmt.Errorf("timezone: %w", err))
	}
	return errors.Join(errs...)
}
