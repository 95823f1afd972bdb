package credentials

// Verifone list call.
const (
	ListURL              = "API_URL_HEADER"
	Origin               = "ORIGIN_URL"
	ListReferer          = "REFERER_HEADER"
	UserAgent            = "USER_AGENT"
	PageScopeID          = "X_SFDC_PAGE_SCOPE_ID_HEADER"
	RequestID            = "X_SFDC_REQUEST_ID_HEADER"
	Cookie               = "HEADER_COOKIE_STRING"
	EntityName           = "HEADER_ENTITY_NAME"
	ListViewID           = "HEADER_LIST_VIEW_ID"
	FilterName           = "FILTER_NAME"
	FilterID             = "HEADER_FILTER_ID"
	LayoutType           = "HEADER_LAYOUT_TYPE"
	LayoutMode           = "HEADER_LAYOUT_MODE"
	PageSize             = "HEADER_PAGE_SIZE"
	InContextOfComponent = "HEADER_IN_CONTEXT_OF_COMPONENT"
	ListFWUID            = "AURA_FWUID_HEADER"
	ListApp              = "AURA_APP_HEADER"
	ListLoaded           = "AURA_LOADED_HEADER"
	ListPageURI          = "AURA_PAGE_URI_HEADER"
	ListToken            = "AURA_TOKEN_HEADER"
	MaxWorkOrders        = "MAX_WORK_ORDERS"
)

// Values used when a key is unset.
var defaults = map[string]string{
	EntityName:           "WorkOrder",
	ListViewID:           "Technician_Work_Order_List_View",
	FilterName:           "Technician_Work_Order_List_View",
	LayoutType:           "LIST",
	LayoutMode:           "EDIT",
	PageSize:             "50",
	InContextOfComponent: "force:listViewManagerGrid",
	ListLoaded:           "{}",
	MaxWorkOrders:        "5",
	IngenicoFromDate:     "01/10/25",
	IngenicoToDate:       "31/10/25",
	IngenicoAssignedTo:   "5516",
	IngenicoJobType:      "ALL",
	IngenicoPageSize:     "100",
}

// Verifone detail call.
const (
	DetailURL      = "API_URL"
	RefererBase    = "REFERER_BASE_URL"
	AcceptLanguage = "ACCEPT_LANGUAGE"
	DetailFWUID    = "AURA_FWUID"
	DetailVersion  = "AURA_APP_VERSION"
	DetailPageBase = "AURA_PAGE_URI_BASE"
	DetailToken    = "AURA_TOKEN"

	// DetailApp is the aura application serving record pages, it is not captured.
	DetailApp = "siteforce:communityApp"
)

// Verifone sensitive (personal details) call.
const (
	SensitiveURL     = "API_URL_PII"
	FlowDevName      = "FLOW_DEV_NAME"
	SensitiveFWUID   = "AURA_FWUID_PII"
	SensitiveApp     = "AURA_APP_PII"
	SensitiveVersion = "AURA_APP_VERSION_PII"
	SensitiveToken   = "AURA_TOKEN_PII"
)

// Ingenico portal.
const (
	IngenicoSearchURL      = "INGENICO_SEARCH_URL"
	IngenicoListURL        = "INGENICO_LIST_URL"
	IngenicoUserAgent      = "INGENICO_USER_AGENT"
	IngenicoAcceptLanguage = "INGENICO_ACCEPT_LANGUAGE"
	IngenicoFromDate       = "INGENICO_FROM_DATE"
	IngenicoToDate         = "INGENICO_TO_DATE"
	IngenicoAssignedTo     = "INGENICO_ASSIGNED_TO"
	IngenicoJobType        = "INGENICO_JOB_TYPE"
	IngenicoPageSize       = "INGENICO_PAGE_SIZE"

	IngenicoCookieUTMZ                = "INGENICO_COOKIE_UTMZ"
	IngenicoCookieSessionID           = "INGENICO_COOKIE_SESSION_ID"
	IngenicoCookieRequestVerification = "INGENICO_COOKIE_REQUEST_VERIFICATION"
	IngenicoCookieUTMC                = "INGENICO_COOKIE_UTMC"
	IngenicoCookieUTMA                = "INGENICO_COOKIE_UTMA"
	IngenicoCookieUTMT                = "INGENICO_COOKIE_UTMT"
	IngenicoCookieUTMB                = "INGENICO_COOKIE_UTMB"
)

// IngenicoCookie pairs a portal cookie name with the key storing its value.
type IngenicoCookie struct {
	Name string
	Key  string
}

// IngenicoCookies lists the cookies replayed to the Ingenico portal, in the order
// the browser sends them.
var IngenicoCookies = []IngenicoCookie{
	{Name: "__utmz", Key: IngenicoCookieUTMZ},
	{Name: "ASP.NET_SessionId", Key: IngenicoCookieSessionID},
	{Name: "__RequestVerificationToken_L2VDQU1T0", Key: IngenicoCookieRequestVerification},
	{Name: "__utmc", Key: IngenicoCookieUTMC},
	{Name: "__utma", Key: IngenicoCookieUTMA},
	{Name: "__utmt", Key: IngenicoCookieUTMT},
	{Name: "__utmb", Key: IngenicoCookieUTMB},
}

// Known lists every key the scrapers read.
var Known = []string{
	ListURL, Origin, ListReferer, UserAgent, PageScopeID, RequestID, Cookie,
	EntityName, ListViewID, FilterName, FilterID, LayoutType, LayoutMode, PageSize,
	InContextOfComponent, ListFWUID, ListApp, ListLoaded, ListPageURI, ListToken,
	MaxWorkOrders,

	DetailURL, RefererBase, AcceptLanguage, DetailFWUID, DetailVersion,
	DetailPageBase, DetailToken,

	SensitiveURL, FlowDevName, SensitiveFWUID, SensitiveApp, SensitiveVersion,
	SensitiveToken,

	IngenicoSearchURL, IngenicoListURL, IngenicoUserAgent, IngenicoAcceptLanguage,
	IngenicoFromDate, IngenicoToDate, IngenicoAssignedTo, IngenicoJobType,
	IngenicoPageSize,
	IngenicoCookieUTMZ, IngenicoCookieSessionID, IngenicoCookieRequestVerification,
	IngenicoCookieUTMC, IngenicoCookieUTMA, IngenicoCookieUTMT, IngenicoCookieUTMB,
}
