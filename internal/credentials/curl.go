package credentials

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"regexp"
	"strings"

	"mvdan.cc/sh/v3/expand"
	"mvdan.cc/sh/v3/syntax"
)

// CapturedRequest is a browser request copied out of the developer tools, either
// as a "copy as cURL (bash)" command or as the plain text of the headers panel.
type CapturedRequest struct {
	URL    string
	Method string
	Header http.Header
	Form   url.Values
}

var (
	ErrNotCaptured = errors.New("not a captured request")
	ErrNoCookie    = errors.New("no cookies found in captured request")
	ErrNoAuraToken = errors.New("no aura.token found in captured request")
)

// ParseCaptured detects the format of text and parses it.
func ParseCaptured(text string) (CapturedRequest, error) {
	text = strings.TrimSpace(text)
	if strings.HasPrefix(text, "curl") {
		return ParseCurl(text)
	}
	return ParseDevTools(text)
}

// ParseCurl parses a curl command line as produced by a browser.
func ParseCurl(command string) (CapturedRequest, error) {
	args, err := splitShellWords(command)
	if err != nil {
		return CapturedRequest{}, err
	}
	if len(args) == 0 || args[0] != "curl" {
		return CapturedRequest{}, fmt.Errorf("%w: command does not start with curl", ErrNotCaptured)
	}

	req := CapturedRequest{
		Header: http.Header{},
		Form:   url.Values{},
	}
	hasData := false

	for i := 1; i < len(args); i++ {
		arg := args[i]
		next := func() string {
			if i+1 >= len(args) {
				return ""
			}
			i++
			return args[i]
		}

		switch arg {
		case "-H", "--header":
			name, value, ok := strings.Cut(next(), ":")
			if ok {
				req.Header.Add(strings.TrimSpace(name), strings.TrimSpace(value))
			}
		case "-b", "--cookie":
			req.Header.Set("Cookie", next())
		case "-A", "--user-agent":
			req.Header.Set("User-Agent", next())
		case "-e", "--referer":
			req.Header.Set("Referer", next())
		case "-X", "--request":
			req.Method = strings.ToUpper(next())
		case "--url":
			req.URL = next()
		case "-d", "--data", "--data-raw", "--data-binary", "--data-ascii":
			hasData = true
			addEncodedForm(req.Form, next())
		case "--data-urlencode":
			hasData = true
			name, value, ok := strings.Cut(next(), "=")
			if ok && name != "" {
				req.Form.Add(name, value)
			}
		default:
			if strings.HasPrefix(arg, "-") {
				continue
			}
			if req.URL == "" {
				req.URL = arg
			}
		}
	}

	if req.URL == "" {
		return CapturedRequest{}, fmt.Errorf("%w: no url in curl command", ErrNotCaptured)
	}
	if req.Method == "" {
		req.Method = http.MethodGet
		if hasData {
			req.Method = http.MethodPost
		}
	}
	return req, nil
}

func addEncodedForm(form url.Values, raw string) {
	for _, pair := range strings.Split(raw, "&") {
		if pair == "" {
			continue
		}
		name, value, _ := strings.Cut(pair, "=")
		if decoded, err := url.QueryUnescape(name); err == nil {
			name = decoded
		}
		if decoded, err := url.QueryUnescape(value); err == nil {
			value = decoded
		}
		form.Add(name, value)
	}
}

// splitShellWords parses a bash command line and returns the words of its first command
// with quoting ($'...' included) and line continuations resolved.
func splitShellWords(command string) ([]string, error) {
	file, err := syntax.NewParser().Parse(strings.NewReader(command), "")
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrNotCaptured, err)
	}
	if len(file.Stmts) == 0 {
		return nil, nil
	}
	call, ok := file.Stmts[0].Cmd.(*syntax.CallExpr)
	if !ok {
		return nil, fmt.Errorf("%w: not a simple command", ErrNotCaptured)
	}

	words := make([]string, 0, len(call.Args))
	for _, word := range call.Args {
		literal, err := expand.Literal(nil, word)
		if err != nil {
			return nil, fmt.Errorf("%w: %w", ErrNotCaptured, err)
		}
		words = append(words, literal)
	}
	return words, nil
}

// ParseDevTools parses the text copied from the headers panel of the browser dev tools:
// "Request URL: ...", "Request Method: ...", header lines and a "Form Data" section.
func ParseDevTools(text string) (CapturedRequest, error) {
	req := CapturedRequest{
		Method: http.MethodPost,
		Header: http.Header{},
		Form:   url.Values{},
	}

	const (
		sectionHeaders = iota
		sectionForm
		sectionQuery
	)
	section := sectionHeaders

	for _, line := range strings.Split(text, "\n") {
		line = strings.TrimSpace(line)
		if line == "" {
			continue
		}
		lower := strings.ToLower(line)

		switch {
		case lower == "form data":
			section = sectionForm
			continue
		case lower == "query string parameters":
			section = sectionQuery
			continue
		case strings.HasPrefix(lower, "request url"):
			_, value, _ := strings.Cut(line, ":")
			req.URL = strings.TrimSpace(value)
			continue
		case strings.HasPrefix(lower, "request method"):
			_, value, _ := strings.Cut(line, ":")
			if method := strings.TrimSpace(value); method != "" {
				req.Method = strings.ToUpper(method)
			}
			continue
		}

		// http/2 pseudo headers such as ":authority:"
		if strings.HasPrefix(line, ":") {
			continue
		}
		name, value, ok := strings.Cut(line, ":")
		if !ok {
			continue
		}
		name = strings.TrimSpace(name)
		value = strings.TrimSpace(value)

		switch section {
		case sectionForm:
			req.Form.Add(name, value)
		case sectionHeaders:
			req.Header.Add(name, value)
		}
	}

	if req.URL == "" {
		return CapturedRequest{}, fmt.Errorf("%w: no request url found", ErrNotCaptured)
	}
	return req, nil
}

// TokenKind selects which aura token slot a captured request refreshes.
type TokenKind string

const (
	TokenList      TokenKind = "HEADER"
	TokenDetail    TokenKind = "FIRST"
	TokenSensitive TokenKind = "PII"
)

func ParseTokenKind(s string) (TokenKind, error) {
	switch kind := TokenKind(strings.ToUpper(strings.TrimSpace(s))); kind {
	case TokenList, TokenDetail, TokenSensitive:
		return kind, nil
	case "":
		return TokenList, nil
	}
	return "", fmt.Errorf("invalid credential type: %s", s)
}

func (k TokenKind) tokenKey() string {
	switch k {
	case TokenDetail:
		return DetailToken
	case TokenSensitive:
		return SensitiveToken
	}
	return ListToken
}

var filterIDRegex = regexp.MustCompile(`WorkOrder-filterId=([^&\s]+)`)

type capturedMessage struct {
	Actions []struct {
		Params map[string]json.RawMessage `json:"params"`
	} `json:"actions"`
}

type capturedContext struct {
	FWUID  string            `json:"fwuid"`
	App    string            `json:"app"`
	Loaded map[string]string `json:"loaded"`
}

// VerifoneUpdates extracts the credential updates carried by a captured portal call.
// The cookie and aura token are always present, a list call additionally carries the
// list view parameters.
func VerifoneUpdates(req CapturedRequest, kind TokenKind) (map[string]string, error) {
	cookie := req.Header.Get("Cookie")
	if cookie == "" {
		return nil, ErrNoCookie
	}
	token := strings.TrimSpace(req.Form.Get("aura.token"))
	if token == "" {
		return nil, ErrNoAuraToken
	}

	updates := map[string]string{
		Cookie:         cookie,
		kind.tokenKey(): token,
	}
	if ua := req.Header.Get("User-Agent"); ua != "" {
		updates[UserAgent] = ua
	}

	var auraContext capturedContext
	if raw := req.Form.Get("aura.context"); raw != "" {
		// partial contexts are fine, every field is optional
		_ = json.Unmarshal([]byte(raw), &auraContext)
	}

	switch kind {
	case TokenList:
		addListUpdates(updates, req, auraContext)
	case TokenDetail:
		setIfPresent(updates, DetailURL, stripQuery(req.URL))
		setIfPresent(updates, DetailFWUID, auraContext.FWUID)
		setIfPresent(updates, DetailVersion, auraContext.Loaded["APPLICATION@markup://"+DetailApp])
		setIfPresent(updates, AcceptLanguage, req.Header.Get("Accept-Language"))
	case TokenSensitive:
		setIfPresent(updates, SensitiveURL, stripQuery(req.URL))
		setIfPresent(updates, SensitiveFWUID, auraContext.FWUID)
		setIfPresent(updates, SensitiveApp, auraContext.App)
		if auraContext.App != "" {
			setIfPresent(updates, SensitiveVersion, auraContext.Loaded["APPLICATION@markup://"+auraContext.App])
		}
		for _, params := range messageParams(req.Form.Get("message")) {
			setIfPresent(updates, FlowDevName, jsonString(params["flowDevName"]))
		}
	}
	return updates, nil
}

func addListUpdates(updates map[string]string, req CapturedRequest, auraContext capturedContext) {
	setIfPresent(updates, ListURL, stripQuery(req.URL))
	setIfPresent(updates, Origin, req.Header.Get("Origin"))
	setIfPresent(updates, PageScopeID, req.Header.Get("X-SFDC-Page-Scope-Id"))
	setIfPresent(updates, RequestID, req.Header.Get("X-SFDC-Request-Id"))
	setIfPresent(updates, ListFWUID, auraContext.FWUID)
	setIfPresent(updates, ListApp, auraContext.App)
	if len(auraContext.Loaded) > 0 {
		loaded, err := json.Marshal(auraContext.Loaded)
		if err == nil {
			updates[ListLoaded] = string(loaded)
		}
	}

	if referer := req.Header.Get("Referer"); referer != "" {
		updates[ListReferer] = referer
		if groups := filterIDRegex.FindStringSubmatch(referer); len(groups) == 2 {
			updates[FilterID] = groups[1]
			updates[ListPageURI] = "/verifonefs/s/recordlist/WorkOrder/Default?WorkOrder-filterId=" + groups[1]
		}
	}

	for _, params := range messageParams(req.Form.Get("message")) {
		if entity := jsonString(params["entityName"]); entity != "" {
			updates[EntityName] = entity
		} else if raw, ok := params["listReference"]; ok {
			var ref struct {
				Entity   string `json:"entityKeyPrefixOrApiName"`
				ListView string `json:"listViewIdOrName"`
			}
			if json.Unmarshal(raw, &ref) == nil {
				setIfPresent(updates, EntityName, ref.Entity)
				setIfPresent(updates, ListViewID, ref.ListView)
			}
		}
		setIfPresent(updates, FilterName, jsonString(params["filterName"]))
		setIfPresent(updates, LayoutType, jsonString(params["layoutType"]))
		setIfPresent(updates, LayoutMode, jsonString(params["layoutMode"]))
	}
}

func messageParams(raw string) []map[string]json.RawMessage {
	if raw == "" {
		return nil
	}
	var message capturedMessage
	if json.Unmarshal([]byte(raw), &message) != nil {
		return nil
	}
	out := make([]map[string]json.RawMessage, 0, len(message.Actions))
	for _, a := range message.Actions {
		out = append(out, a.Params)
	}
	return out
}

func jsonString(raw json.RawMessage) string {
	var s string
	if raw == nil || json.Unmarshal(raw, &s) != nil {
		return ""
	}
	return s
}

func setIfPresent(updates map[string]string, key, value string) {
	if value != "" {
		updates[key] = value
	}
}

func stripQuery(rawURL string) string {
	parsed, err := url.Parse(rawURL)
	if err != nil {
		return rawURL
	}
	parsed.RawQuery = ""
	parsed.Fragment = ""
	return parsed.String()
}

// IngenicoUpdates extracts the portal cookies and the search filters from a captured
// closed-job search.
func IngenicoUpdates(req CapturedRequest) (map[string]string, error) {
	cookieHeader := req.Header.Get("Cookie")
	if cookieHeader == "" {
		return nil, ErrNoCookie
	}

	cookies := map[string]string{}
	for _, c := range parseCookies(cookieHeader) {
		cookies[c.Name] = c.Value
	}

	updates := map[string]string{}
	for _, c := range IngenicoCookies {
		setIfPresent(updates, c.Key, cookies[c.Name])
	}

	filters := map[string]string{
		"cboAssignedTo": IngenicoAssignedTo,
		"cboJobType":    IngenicoJobType,
		"txtFromDate":   IngenicoFromDate,
		"txtToDate":     IngenicoToDate,
		"cboPageSize":   IngenicoPageSize,
	}
	for field, values := range req.Form {
		idx := strings.LastIndex(field, "$")
		key, ok := filters[field[idx+1:]]
		if ok && len(values) > 0 {
			setIfPresent(updates, key, values[0])
		}
	}

	if strings.EqualFold(req.Method, http.MethodPost) && req.URL != "" {
		setIfPresent(updates, IngenicoSearchURL, stripQuery(req.URL))
	}
	setIfPresent(updates, IngenicoUserAgent, req.Header.Get("User-Agent"))
	setIfPresent(updates, IngenicoAcceptLanguage, req.Header.Get("Accept-Language"))
	return updates, nil
}

// parseCookies splits a Cookie header without validating values, captured analytics
// cookies often carry characters net/http rejects.
func parseCookies(header string) []*http.Cookie {
	var out []*http.Cookie
	for _, part := range strings.Split(header, ";") {
		name, value, ok := strings.Cut(strings.TrimSpace(part), "=")
		if ok && name != "" {
			out = append(out, &http.Cookie{Name: name, Value: value})
		}
	}
	return out
}
