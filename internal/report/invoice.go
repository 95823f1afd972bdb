package report

import (
	"bytes"
	"embed"
	"errors"
	"fmt"
	"html/template"
	"os"
	"path/filepath"
	"slices"
	"strings"
	"time"
	"workorder-invoicer/internal/scrapers/verifone"
)

//go:embed resources/*.html resources/*.css
var resourceFS embed.FS

var (
	invoiceCSS  template.CSS
	invoiceTmpl *template.Template
)

func init() {
	css, err := resourceFS.ReadFile("resources/invoice.css")
	if err != nil {
		panic("report: failed to read resources/invoice.css: " + err.Error())
	}
	invoiceCSS = template.CSS(css)
	invoiceTmpl = template.Must(template.ParseFS(resourceFS, "resources/invoice.html"))
}

// StampLayout names invoice folders and files, it sorts chronologically.
const StampLayout = "2006-01-02T15-04-05"

var ErrNoInvoice = errors.New("no invoices found")

// JobTypeClass picks the badge style of a job type.
func JobTypeClass(jobType string) string {
	if jobType == "" || jobType == verifone.NotAvailable {
		return "jobtype-other"
	}
	lower := strings.ToLower(jobType)
	switch {
	case strings.Contains(lower, "recovery"), strings.Contains(lower, "deinstall"):
		return "jobtype-recovery"
	case strings.Contains(lower, "install"):
		return "jobtype-install"
	case strings.Contains(lower, "swap"):
		return "jobtype-swap"
	}
	return "jobtype-other"
}

type invoiceRow struct {
	verifone.WorkOrder
	RowClass     string
	JobTypeClass string
}

type invoicePage struct {
	Stamp     string
	Generated string
	CSS       template.CSS
	Rows      []invoiceRow
}

// RenderInvoice renders the rows in the order given.
func RenderInvoice(orders []verifone.WorkOrder, now time.Time) ([]byte, error) {
	page := invoicePage{
		Stamp:     now.Format(StampLayout),
		Generated: now.Format(time.DateTime),
		CSS:       invoiceCSS,
	}
	for _, wo := range orders {
		row := invoiceRow{WorkOrder: wo, JobTypeClass: JobTypeClass(wo.JobType)}
		if wo.IsOnSite {
			row.RowClass = "status-onsite"
		}
		page.Rows = append(page.Rows, row)
	}

	buf := bytes.NewBuffer(nil)
	err := invoiceTmpl.Execute(buf, page)
	if err != nil {
		return nil, fmt.Errorf("render invoice: %w", err)
	}
	return buf.Bytes(), nil
}

// WriteInvoice renders the invoice into <dir>/invoice_<stamp>/invoice_<stamp>.html and
// returns the path of the file.
func WriteInvoice(dir string, orders []verifone.WorkOrder, now time.Time) (string, error) {
	body, err := RenderInvoice(orders, now)
	if err != nil {
		return "", err
	}
	name := "invoice_" + now.Format(StampLayout)
	folder := filepath.Join(dir, name)
	err = os.MkdirAll(folder, 0755)
	if err != nil {
		return "", fmt.Errorf("write invoice: %w", err)
	}
	path := filepath.Join(folder, name+".html")
	err = os.WriteFile(path, body, 0644)
	if err != nil {
		return "", fmt.Errorf("write invoice: %w", err)
	}
	return path, nil
}

// LatestInvoice finds the html file of the most recent invoice folder.
func LatestInvoice(dir string) (folder, file string, err error) {
	entries, err := os.ReadDir(dir)
	if os.IsNotExist(err) {
		return "", "", ErrNoInvoice
	}
	if err != nil {
		return "", "", fmt.Errorf("latest invoice: %w", err)
	}

	var folders []string
	for _, e := range entries {
		if e.IsDir() && strings.HasPrefix(e.Name(), "invoice_") {
			folders = append(folders, e.Name())
		}
	}
	if len(folders) == 0 {
		return "", "", ErrNoInvoice
	}
	slices.Sort(folders)
	folder = filepath.Join(dir, folders[len(folders)-1])

	matches, err := filepath.Glob(filepath.Join(folder, "*.html"))
	if err != nil {
		return "", "", fmt.Errorf("latest invoice: %w", err)
	}
	if len(matches) == 0 {
		return folder, "", fmt.Errorf("%w: no html file in %s", ErrNoInvoice, folder)
	}
	return folder, matches[0], nil
}
