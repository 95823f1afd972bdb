package report

import (
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"
	"workorder-invoicer/internal/scrapers/ingenico"
	"workorder-invoicer/internal/scrapers/verifone"

	"github.com/stretchr/testify/require"
)

func TestJobTypeClass(t *testing.T) {
	testCases := []struct {
		jobType string
		expect  string
	}{
		{jobType: "Recovery", expect: "jobtype-recovery"},
		{jobType: "Terminal Deinstall", expect: "jobtype-recovery"},
		{jobType: "New Install", expect: "jobtype-install"},
		{jobType: "SWAP", expect: "jobtype-swap"},
		{jobType: "Maintenance", expect: "jobtype-other"},
		{jobType: verifone.NotAvailable, expect: "jobtype-other"},
		{jobType: "", expect: "jobtype-other"},
	}
	for _, test := range testCases {
		require.Equal(t, test.expect, JobTypeClass(test.jobType), test.jobType)
	}
}

func TestWriteInvoice(t *testing.T) {
	dir := t.TempDir()
	first := time.Date(2025, time.October, 3, 9, 15, 0, 0, time.UTC)

	orders := []verifone.WorkOrder{
		{JobID: "WO-2", JobType: "Install", MerchantName: "Fish & Chips", IsOnSite: true},
		{JobID: "WO-1", JobType: "Swap", MerchantName: "<b>Bakery</b>"},
	}
	path, err := WriteInvoice(dir, orders, first)
	require.NoError(t, err)
	require.Equal(t, filepath.Join(dir, "invoice_2025-10-03T09-15-00", "invoice_2025-10-03T09-15-00.html"), path)

	contents, err := os.ReadFile(path)
	require.NoError(t, err)
	page := string(contents)
	require.Contains(t, page, "<p>Total Work Orders: 2</p>")
	require.Contains(t, page, "<p>Generated: 2025-10-03 09:15:00</p>")
	require.Contains(t, page, `<tr class="status-onsite">`)
	require.Contains(t, page, `<span class="jobtype-install">Install</span>`)
	require.Contains(t, page, `<span class="jobtype-swap">Swap</span>`)
	require.Contains(t, page, "Fish &amp; Chips")
	require.Contains(t, page, "&lt;b&gt;Bakery&lt;/b&gt;")
	require.Contains(t, page, "background-color: #2c3e50;")
	require.Contains(t, page, "This invoice was automatically generated")
	require.Less(t, strings.Index(page, "WO-2"), strings.Index(page, "WO-1"))

	_, err = WriteInvoice(dir, nil, first.Add(time.Hour))
	require.NoError(t, err)

	folder, file, err := LatestInvoice(dir)
	require.NoError(t, err)
	require.Equal(t, filepath.Join(dir, "invoice_2025-10-03T10-15-00"), folder)
	require.Equal(t, filepath.Join(folder, "invoice_2025-10-03T10-15-00.html"), file)
}

func TestLatestInvoiceMissing(t *testing.T) {
	_, _, err := LatestInvoice(filepath.Join(t.TempDir(), "nothing"))
	require.ErrorIs(t, err, ErrNoInvoice)

	dir := t.TempDir()
	require.NoError(t, os.Mkdir(filepath.Join(dir, "invoice_2025-10-03T09-15-00"), 0755))
	_, _, err = LatestInvoice(dir)
	require.ErrorIs(t, err, ErrNoInvoice)
}

func TestClosedJobs(t *testing.T) {
	dir := t.TempDir()
	result := ingenico.SearchResult{
		Success: true,
		Filters: ingenico.Filters{FromDate: "01/10/25", ToDate: "31/10/25", AssignedTo: "5516", JobType: "ALL", PageSize: "100"},
		Headers: []string{"JobID", "Merchant"},
		Jobs: []ingenico.ClosedJob{
			{"JobID": "J1", "Merchant": "Cafe"},
			{"JobID": "J2", "Merchant": "Deli"},
		},
		RawHTML: []byte("<html>results</html>"),
	}

	saved, err := WriteClosedJobs(dir, result, time.Date(2025, time.November, 2, 22, 5, 30, 0, time.UTC))
	require.NoError(t, err)
	folder := filepath.Join(dir, "20251102_220530_01-10-25to31-10-25")
	require.Equal(t, SavedClosedJobs{
		Folder:    folder,
		HTMLFile:  filepath.Join(folder, "closed_jobs_01-10-25_31-10-25_20251102_220530.html"),
		JSONFile:  filepath.Join(folder, "closed_jobs_01-10-25_31-10-25_20251102_220530.json"),
		TotalJobs: 2,
	}, saved)

	raw, err := os.ReadFile(saved.HTMLFile)
	require.NoError(t, err)
	require.Equal(t, "<html>results</html>", string(raw))

	encoded, err := os.ReadFile(saved.JSONFile)
	require.NoError(t, err)
	var file struct {
		Metadata map[string]any      `json:"metadata"`
		Jobs     []map[string]string `json:"jobs"`
	}
	require.NoError(t, json.Unmarshal(encoded, &file))
	require.Equal(t, "20251102_220530", file.Metadata["fetch_timestamp"])
	require.Equal(t, float64(2), file.Metadata["total_jobs"])
	require.Equal(t, "5516", file.Metadata["filters"].(map[string]any)["assigned_to"])
	require.Equal(t, "Deli", file.Jobs[1]["Merchant"])

	older := result
	older.Filters.FromDate = "01/09/25"
	older.Filters.ToDate = "30/09/25"
	older.Jobs = nil
	_, err = WriteClosedJobs(dir, older, time.Date(2025, time.October, 1, 8, 0, 0, 0, time.UTC))
	require.NoError(t, err)

	broken := filepath.Join(dir, "20251201_000000_x")
	require.NoError(t, os.Mkdir(broken, 0755))
	require.NoError(t, os.WriteFile(filepath.Join(broken, "closed_jobs.json"), []byte("{"), 0644))

	var skipped []string
	downloads, err := ListDownloads(dir, func(path string, err error) {
		skipped = append(skipped, path)
	})
	require.NoError(t, err)
	require.Equal(t, []string{filepath.Join(broken, "closed_jobs.json")}, skipped)
	require.Len(t, downloads, 2)
	require.Equal(t, Download{
		Folder:    "20251102_220530_01-10-25to31-10-25",
		Timestamp: "20251102_220530",
		DateRange: "01/10/25 - 31/10/25",
		TotalJobs: 2,
		JSONFile:  saved.JSONFile,
		HTMLFile:  saved.HTMLFile,
	}, downloads[0])
	require.Equal(t, "01/09/25 - 30/09/25", downloads[1].DateRange)
	require.Equal(t, 0, downloads[1].TotalJobs)

	empty, err := ListDownloads(filepath.Join(dir, "missing"), nil)
	require.NoError(t, err)
	require.Empty(t, empty)
}
