package verifone

import (
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"workorder-invoicer/internal/credentials"
)

// Request is a fully built aura call, ready to be posted.
type Request struct {
	URL    string
	Header http.Header
	Form   url.Values
}

const (
	descriptorLayout   = "serviceComponent://ui.force.components.controllers.lists.listViewManagerGrid.ListViewManagerGridController/ACTION$getRecordLayoutComponent"
	descriptorItems    = "serviceComponent://ui.force.components.controllers.lists.listViewDataManager.ListViewDataManagerController/ACTION$getItems"
	descriptorMetadata = "serviceComponent://ui.force.components.controllers.lists.listViewManager.ListViewManagerController/ACTION$getMetadataInitialLoad"
	descriptorRecord   = "serviceComponent://ui.force.components.controllers.recordGlobalValueProvider.RecordGvpController/ACTION$getRecord"
	descriptorFlow     = "aura://FlowRuntimeConnectController/ACTION$startFlow"
)

// keys each call reads without a default, used to warn about incomplete captures
var (
	listKeys = []string{
		credentials.ListURL, credentials.Origin, credentials.ListReferer,
		credentials.UserAgent, credentials.Cookie, credentials.ListFWUID,
		credentials.ListApp, credentials.ListPageURI, credentials.ListToken,
	}
	detailKeys = []string{
		credentials.DetailURL, credentials.Origin, credentials.RefererBase,
		credentials.UserAgent, credentials.Cookie, credentials.DetailFWUID,
		credentials.DetailVersion, credentials.DetailPageBase, credentials.DetailToken,
	}
	sensitiveKeys = []string{
		credentials.SensitiveURL, credentials.Origin, credentials.UserAgent,
		credentials.Cookie, credentials.FlowDevName, credentials.SensitiveFWUID,
		credentials.SensitiveApp, credentials.SensitiveVersion, credentials.SensitiveToken,
	}
)

type auraAction struct {
	ID                string         `json:"id"`
	Descriptor        string         `json:"descriptor"`
	CallingDescriptor string         `json:"callingDescriptor"`
	Params            map[string]any `json:"params"`
	Storable          bool           `json:"storable,omitempty"`
}

type auraMessage struct {
	Actions []auraAction `json:"actions"`
}

type auraContext struct {
	Mode    string          `json:"mode"`
	FWUID   string          `json:"fwuid"`
	App     string          `json:"app"`
	Loaded  json.RawMessage `json:"loaded"`
	Dn      []string        `json:"dn"`
	Globals map[string]any  `json:"globals"`
	Uad     bool            `json:"uad"`
}

func newAuraContext(fwuid, app string, loaded json.RawMessage) auraContext {
	return auraContext{
		Mode:    "PROD",
		FWUID:   fwuid,
		App:     app,
		Loaded:  loaded,
		Dn:      []string{},
		Globals: map[string]any{},
		Uad:     true,
	}
}

func loadedApp(app, version string) json.RawMessage {
	loaded, _ := json.Marshal(map[string]string{
		fmt.Sprintf("APPLICATION@markup://%s", app): version,
	})
	return loaded
}

func auraForm(message auraMessage, context auraContext, pageURI, token string) url.Values {
	// both values only hold strings, maps and slices so marshalling cannot fail
	encodedMessage, _ := json.Marshal(message)
	encodedContext, _ := json.Marshal(context)

	form := url.Values{}
	form.Set("message", string(encodedMessage))
	form.Set("aura.context", string(encodedContext))
	form.Set("aura.pageURI", pageURI)
	form.Set("aura.token", token)
	return form
}

func baseHeader(set credentials.Set) http.Header {
	header := http.Header{}
	header.Set("Accept", "*/*")
	header.Set("Content-Type", "application/x-www-form-urlencoded; charset=UTF-8")
	header.Set("Origin", set.Get(credentials.Origin))
	header.Set("User-Agent", set.Get(credentials.UserAgent))
	header.Set("Cookie", set.Get(credentials.Cookie))
	return header
}

func listReference(set credentials.Set) map[string]any {
	return map[string]any{
		"entityKeyPrefixOrApiName": set.Get(credentials.EntityName),
		"listViewIdOrName":         set.Get(credentials.ListViewID),
		"inContextOfRecordId":      nil,
		"isMRU":                    false,
		"isSearch":                 false,
	}
}

// BuildListRequest builds the three-action list call. An empty search string is sent
// as null, which the portal reads as "no filter". A page size of 0 uses the stored one.
func BuildListRequest(set credentials.Set, searchString string, pageSize int) Request {
	if pageSize <= 0 {
		stored, err := strconv.Atoi(set.Get(credentials.PageSize))
		if err != nil || stored <= 0 {
			stored, _ = strconv.Atoi(credentials.Set{}.Get(credentials.PageSize))
		}
		pageSize = stored
	}
	var search any
	if searchString != "" {
		search = searchString
	}

	message := auraMessage{Actions: []auraAction{
		{
			ID:                "6975;a",
			Descriptor:        descriptorLayout,
			CallingDescriptor: "UNKNOWN",
			Params: map[string]any{
				"listReference":        listReference(set),
				"layoutType":           set.Get(credentials.LayoutType),
				"layoutMode":           set.Get(credentials.LayoutMode),
				"inContextOfComponent": set.Get(credentials.InContextOfComponent),
				"enableMassActions":    true,
				"enableRowErrors":      true,
				"useHoversForLookup":   false,
			},
		},
		{
			ID:                "6976;a",
			Descriptor:        descriptorItems,
			CallingDescriptor: "UNKNOWN",
			Params: map[string]any{
				"filterName":       set.Get(credentials.FilterName),
				"entityName":       set.Get(credentials.EntityName),
				"pageSize":         pageSize,
				"layoutType":       set.Get(credentials.LayoutType),
				"sortBy":           nil,
				"getCount":         false,
				"enableRowActions": false,
				"offset":           0,
				"searchString":     search,
			},
			Storable: true,
		},
		{
			ID:                "6977;a",
			Descriptor:        descriptorMetadata,
			CallingDescriptor: "UNKNOWN",
			Params: map[string]any{
				"listReference": listReference(set),
			},
		},
	}}

	loaded := json.RawMessage(set.Get(credentials.ListLoaded))
	if !json.Valid(loaded) {
		loaded = json.RawMessage("{}")
	}

	header := baseHeader(set)
	header.Set("Referer", set.Get(credentials.ListReferer))
	header.Set("X-SFDC-Page-Scope-Id", set.Get(credentials.PageScopeID))
	header.Set("X-SFDC-Request-Id", set.Get(credentials.RequestID))

	return Request{
		URL:    set.Get(credentials.ListURL),
		Header: header,
		Form: auraForm(
			message,
			newAuraContext(set.Get(credentials.ListFWUID), set.Get(credentials.ListApp), loaded),
			set.Get(credentials.ListPageURI),
			set.Get(credentials.ListToken),
		),
	}
}

// BuildDetailRequest builds the record page call of a single work order.
func BuildDetailRequest(set credentials.Set, id string) Request {
	message := auraMessage{Actions: []auraAction{{
		ID:                "199;a",
		Descriptor:        descriptorRecord,
		CallingDescriptor: "UNKNOWN",
		Params: map[string]any{
			"recordDescriptor": fmt.Sprintf("%s.undefined.FULL.null.null.null.VIEW.true.null.null.null", id),
		},
	}}}

	header := baseHeader(set)
	header.Set("Referer", set.Get(credentials.RefererBase)+id)
	header.Set("Accept-Language", set.Get(credentials.AcceptLanguage))

	return Request{
		URL:    set.Get(credentials.DetailURL),
		Header: header,
		Form: auraForm(
			message,
			newAuraContext(
				set.Get(credentials.DetailFWUID),
				credentials.DetailApp,
				loadedApp(credentials.DetailApp, set.Get(credentials.DetailVersion)),
			),
			set.Get(credentials.DetailPageBase)+id,
			set.Get(credentials.DetailToken),
		),
	}
}

// SensitivePageURI is the visualforce page the personal-details flow runs in, the nonce
// must differ between calls.
func SensitivePageURI(origin, id, nonce string) string {
	return fmt.Sprintf(
		"/verifonefs/VF_DisplayPIIDetailsWorkOrderPage?id=%s&tour=&isdtp=p1&sfdcIFrameOrigin=%s&sfdcIFrameHost=web&nonce=%s&ltn_app_id=&clc=0",
		id, origin, nonce,
	)
}

// BuildSensitiveRequest builds the flow call returning the terminal and address of a
// work order.
func BuildSensitiveRequest(set credentials.Set, id, nonce string) Request {
	arguments, _ := json.Marshal([]map[string]string{{
		"name":  "recordId",
		"type":  "String",
		"value": id,
	}})
	message := auraMessage{Actions: []auraAction{{
		ID:                "69;a",
		Descriptor:        descriptorFlow,
		CallingDescriptor: "UNKNOWN",
		Params: map[string]any{
			"flowDevName":        set.Get(credentials.FlowDevName),
			"arguments":          string(arguments),
			"enableTrace":        false,
			"enableRollbackMode": false,
			"debugAsUserId":      "",
			"useLatestSubflow":   false,
			"isBuilderDebug":     false,
		},
	}}}

	origin := set.Get(credentials.Origin)
	pageURI := SensitivePageURI(origin, id, nonce)
	app := set.Get(credentials.SensitiveApp)

	header := baseHeader(set)
	header.Set("Referer", origin+pageURI)
	header.Set("Accept-Language", set.Get(credentials.AcceptLanguage))

	return Request{
		URL:    set.Get(credentials.SensitiveURL),
		Header: header,
		Form: auraForm(
			message,
			newAuraContext(
				set.Get(credentials.SensitiveFWUID),
				app,
				loadedApp(app, set.Get(credentials.SensitiveVersion)),
			),
			pageURI,
			set.Get(credentials.SensitiveToken),
		),
	}
}
