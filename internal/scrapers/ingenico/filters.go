package ingenico

import (
	"net/url"
	"workorder-invoicer/internal/credentials"
)

// Filters are the closed job search controls. Dates use the portal's DD/MM/YY format.
type Filters struct {
	FromDate   string `json:"from_date"`
	ToDate     string `json:"to_date"`
	AssignedTo string `json:"assigned_to"`
	JobType    string `json:"job_type"`
	PageSize   string `json:"page_size"`
}

// ResolveFilters fills the unset filters from the credential store, which falls back to
// the built-in defaults.
func ResolveFilters(set credentials.Set, f Filters) Filters {
	fill := func(value *string, key string) {
		if *value == "" {
			*value = set.Get(key)
		}
	}
	fill(&f.FromDate, credentials.IngenicoFromDate)
	fill(&f.ToDate, credentials.IngenicoToDate)
	fill(&f.AssignedTo, credentials.IngenicoAssignedTo)
	fill(&f.JobType, credentials.IngenicoJobType)
	fill(&f.PageSize, credentials.IngenicoPageSize)
	return f
}

const controlPrefix = "ctl00$ContentPlaceHolder1$"

func searchForm(tokens formTokens, requestVerification string, f Filters) url.Values {
	form := url.Values{}
	form.Set("__EVENTTARGET", "")
	form.Set("__EVENTARGUMENT", "")
	form.Set("__VIEWSTATE", tokens.ViewState)
	form.Set("__VIEWSTATEGENERATOR", tokens.ViewStateGenerator)
	form.Set("__EVENTVALIDATION", tokens.EventValidation)
	form.Set("__RequestVerificationToken", requestVerification)
	form.Set(controlPrefix+"cboAssignedTo", f.AssignedTo)
	form.Set(controlPrefix+"cboJobType", f.JobType)
	form.Set(controlPrefix+"txtFromDate", f.FromDate)
	form.Set(controlPrefix+"txtToDate", f.ToDate)
	form.Set(controlPrefix+"cboPageSize", f.PageSize)
	form.Set(controlPrefix+"txtJobIDs", "")
	form.Set(controlPrefix+"btnSearch", " GO ")
	return form
}
