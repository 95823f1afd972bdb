package ingenico

import (
	"bytes"
	"fmt"
	"workorder-invoicer/pkg/htmlutil"

	"github.com/PuerkitoBio/goquery"
)

type formTokens struct {
	ViewState          string
	ViewStateGenerator string
	EventValidation    string
}

func parseFormTokens(body []byte) (formTokens, error) {
	doc, err := goquery.NewDocumentFromReader(bytes.NewBuffer(body))
	if err != nil {
		return formTokens{}, fmt.Errorf("%w: %w", ErrTokenExtraction, err)
	}

	var missing []string
	input := func(id string) string {
		sel := doc.Find(fmt.Sprintf("input[id='%s']", id)).First()
		if sel.Length() == 0 {
			missing = append(missing, id)
			return ""
		}
		return sel.AttrOr("value", "")
	}
	tokens := formTokens{
		ViewState:          input("__VIEWSTATE"),
		ViewStateGenerator: input("__VIEWSTATEGENERATOR"),
		EventValidation:    input("__EVENTVALIDATION"),
	}
	if len(missing) > 0 {
		return formTokens{}, fmt.Errorf("%w: %v", ErrTokenExtraction, missing)
	}
	return tokens, nil
}

// ClosedJob is one row of the closed jobs grid keyed by column header.
type ClosedJob map[string]string

// Table is the parsed closed jobs grid.
type Table struct {
	Headers []string
	Jobs    []ClosedJob
}

const (
	jobsTableSelector = "table#ctl00_ContentPlaceHolder1_grdJob"
	headerRowClass    = "FormGridHeaderCell"
	pagerRowClass     = "FormGridPagerCell"
	bulkColumn        = "Bulk"
	jobIDColumn       = "JobID"
)

// ParseClosedJobs reads the closed jobs grid of the results page.
func ParseClosedJobs(body []byte) (Table, error) {
	doc, err := goquery.NewDocumentFromReader(bytes.NewBuffer(body))
	if err != nil {
		return Table{}, fmt.Errorf("parse results page: %w", err)
	}

	table := doc.Find(jobsTableSelector).First()
	if table.Length() == 0 {
		return Table{}, ErrSessionExpired
	}
	headerRow := table.Find("tr." + headerRowClass).First()
	if headerRow.Length() == 0 {
		return Table{}, ErrMalformedTable
	}

	var headers []string
	headerRow.Find("td,th").Each(func(_ int, cell *goquery.Selection) {
		headers = append(headers, htmlutil.SelectionText(cell))
	})

	out := Table{}
	for _, h := range headers {
		if h != bulkColumn {
			out.Headers = append(out.Headers, h)
		}
	}

	table.Find("tr").Each(func(_ int, row *goquery.Selection) {
		if row.HasClass(headerRowClass) || row.HasClass(pagerRowClass) {
			return
		}
		cells := row.Find("td")
		// the trailing checkbox column is not always rendered
		if cells.Length() == 0 || cells.Length() < len(headers)-1 {
			return
		}

		job := ClosedJob{}
		cells.EachWithBreak(func(i int, cell *goquery.Selection) bool {
			if i >= len(headers) {
				return false
			}
			header := headers[i]
			switch {
			case header == bulkColumn:
			case header == jobIDColumn && cell.Find("a").Length() > 0:
				job[header] = htmlutil.SelectionText(cell.Find("a").First())
			default:
				job[header] = htmlutil.SelectionText(cell)
			}
			return true
		})
		if len(job) > 0 {
			out.Jobs = append(out.Jobs, job)
		}
	})
	return out, nil
}
