package verifone

// NotAvailable marks a field the portal did not return.
const NotAvailable = "N/A"

// WorkOrder is one row of the invoice. It is filled by the detail call, completed by the
// sensitive call and finally annotated with the MultipleJobID of its location group.
type WorkOrder struct {
	ID string `json:"id"`

	JobID          string `json:"job_id"`
	FSP            string `json:"fsp"`
	ClientID       string `json:"client_id"`
	JobType        string `json:"job_type"`
	TerminalID     string `json:"terminal_id"`
	RequiredBy     string `json:"required_by"`
	MerchantName   string `json:"merchant_name"`
	Street         string `json:"street"`
	Suburb         string `json:"suburb"`
	Postcode       string `json:"postcode"`
	Area           string `json:"area"`
	OnSiteDateTime string `json:"onsite_datetime"`
	OnSiteStartISO string `json:"onsite_start_iso"`
	OnSiteEndISO   string `json:"onsite_end_iso"`
	DeviceType     string `json:"device_type"`
	ProjectNo      string `json:"project_no"`
	Billable       string `json:"billable"`
	Fix            string `json:"fix"`
	SLAMet         string `json:"sla_met"`
	MultipleJobID  string `json:"multiple_job_id"`
	ExtraTime      string `json:"extra_time"`
	AfterHour      string `json:"after_hour"`
	Weekend        string `json:"weekend"`
	ExtraTimeBlock string `json:"extratime_block"`
	Charge         string `json:"charge"`
	IsOnSite       bool   `json:"is_onsite"`
}

// Sensitive holds the fields only the personal-details flow exposes.
type Sensitive struct {
	TerminalID string `json:"terminal_id"`
	Street     string `json:"street"`
	Suburb     string `json:"suburb"`
	Postcode   string `json:"postcode"`
}

// WithSensitive returns a copy of the work order carrying the sensitive fields.
func (w WorkOrder) WithSensitive(s Sensitive) WorkOrder {
	w.TerminalID = s.TerminalID
	w.Street = s.Street
	w.Suburb = s.Suburb
	w.Postcode = s.Postcode
	return w
}
