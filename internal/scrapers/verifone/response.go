package verifone

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
)

var (
	ErrMalformedListResponse    = errors.New("malformed list response")
	ErrRecordAccessDenied       = errors.New("record access denied")
	ErrRecordNotFound           = errors.New("record not found")
	ErrSensitiveDataUnavailable = errors.New("sensitive data unavailable")
)

type globalValueProviders struct {
	Context struct {
		GlobalValueProviders []json.RawMessage `json:"globalValueProviders"`
	} `json:"context"`
}

func isNull(raw json.RawMessage) bool {
	trimmed := bytes.TrimSpace(raw)
	return len(trimmed) == 0 || bytes.Equal(trimmed, []byte("null"))
}

// objectKeys returns the keys of a JSON object in document order.
func objectKeys(raw json.RawMessage) ([]string, error) {
	dec := json.NewDecoder(bytes.NewReader(raw))
	tok, err := dec.Token()
	if err != nil {
		return nil, err
	}
	if delim, ok := tok.(json.Delim); !ok || delim != '{' {
		return nil, fmt.Errorf("expected an object, got %v", tok)
	}

	var keys []string
	for dec.More() {
		tok, err := dec.Token()
		if err != nil {
			return nil, err
		}
		key, ok := tok.(string)
		if !ok {
			return nil, fmt.Errorf("expected an object key, got %v", tok)
		}
		var skip json.RawMessage
		err = dec.Decode(&skip)
		if err != nil {
			return nil, err
		}
		keys = append(keys, key)
	}
	return keys, nil
}

// ParseListResponse returns the work order ids of a list call in the order the portal
// listed them. The record provider of the list call carries no type discriminant, it is
// always the third provider.
func ParseListResponse(body []byte) ([]string, error) {
	var res globalValueProviders
	err := json.Unmarshal(body, &res)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrMalformedListResponse, err)
	}
	providers := res.Context.GlobalValueProviders
	if len(providers) < 3 {
		return nil, fmt.Errorf(
			"%w: expected at least 3 global value providers, got %d",
			ErrMalformedListResponse, len(providers),
		)
	}

	var provider struct {
		Values json.RawMessage `json:"values"`
	}
	err = json.Unmarshal(providers[2], &provider)
	if err != nil {
		return nil, fmt.Errorf("%w: provider 2: %w", ErrMalformedListResponse, err)
	}
	if isNull(provider.Values) {
		return nil, fmt.Errorf("%w: provider 2 has no values", ErrMalformedListResponse)
	}

	var values struct {
		Records json.RawMessage `json:"records"`
	}
	err = json.Unmarshal(provider.Values, &values)
	if err != nil {
		return nil, fmt.Errorf("%w: provider 2 values: %w", ErrMalformedListResponse, err)
	}
	if isNull(values.Records) {
		return nil, nil
	}

	ids, err := objectKeys(values.Records)
	if err != nil {
		return nil, fmt.Errorf("%w: records: %w", ErrMalformedListResponse, err)
	}
	return ids, nil
}

type recordProvider struct {
	Type   string `json:"type"`
	Values struct {
		Records      map[string]json.RawMessage `json:"records"`
		RecordErrors map[string]json.RawMessage `json:"recordErrors"`
	} `json:"values"`
}

type workOrderRecord struct {
	WorkOrder struct {
		Record struct {
			Fields map[string]json.RawMessage `json:"fields"`
		} `json:"record"`
	} `json:"WorkOrder"`
}

func findRecordProvider(providers []json.RawMessage) (recordProvider, error) {
	for _, raw := range providers {
		var kind struct {
			Type string `json:"type"`
		}
		if json.Unmarshal(raw, &kind) != nil || kind.Type != "$Record" {
			continue
		}
		var provider recordProvider
		err := json.Unmarshal(raw, &provider)
		if err != nil {
			return recordProvider{}, err
		}
		return provider, nil
	}
	return recordProvider{}, fmt.Errorf("no $Record provider")
}

// ParseDetailResponse turns the record page of a work order into an invoice row, the
// sensitive fields stay empty.
func ParseDetailResponse(body []byte, id string) (WorkOrder, error) {
	var res globalValueProviders
	err := json.Unmarshal(body, &res)
	if err != nil {
		return WorkOrder{}, fmt.Errorf("%w: %w", ErrRecordNotFound, err)
	}
	provider, err := findRecordProvider(res.Context.GlobalValueProviders)
	if err != nil {
		return WorkOrder{}, fmt.Errorf("%w: %w", ErrRecordNotFound, err)
	}
	if _, denied := provider.Values.RecordErrors[id]; denied {
		return WorkOrder{}, fmt.Errorf("%w: %s", ErrRecordAccessDenied, id)
	}
	rawRecord, ok := provider.Values.Records[id]
	if !ok {
		return WorkOrder{}, fmt.Errorf("%w: %s", ErrRecordNotFound, id)
	}

	var record workOrderRecord
	err = json.Unmarshal(rawRecord, &record)
	if err != nil {
		return WorkOrder{}, fmt.Errorf("%w: %s: %w", ErrRecordNotFound, id, err)
	}
	f := fields(record.WorkOrder.Record.Fields)

	wo := WorkOrder{
		ID:             id,
		JobID:          f.value("WorkOrderNumber"),
		ClientID:       f.display("Bank_Brand__r"),
		JobType:        f.display("Work_Order_Type__c"),
		Area:           f.display("Zone__c"),
		OnSiteDateTime: f.display("On_Site_Start_Time__c"),
		OnSiteEndISO:   f.value("On_Site_End_Time__c"),
		OnSiteStartISO: f.value("On_Site_Start_Time__c"),
		DeviceType:     f.display("WorkType"),
		Fix:            f.display("Status"),
	}
	wo.ClientID = ClientID(wo.ClientID, wo.DeviceType)
	wo.AfterHour = AfterHours(wo.OnSiteDateTime)
	wo.Weekend = Weekend(wo.OnSiteDateTime)
	wo.IsOnSite = wo.Fix == "On Site"
	return wo, nil
}

type fields map[string]json.RawMessage

type fieldShape struct {
	Value        json.RawMessage `json:"value"`
	DisplayValue json.RawMessage `json:"displayValue"`
}

// scalar renders a json value as text, null is rendered empty.
func scalar(raw json.RawMessage) string {
	if isNull(raw) {
		return ""
	}
	var s string
	if json.Unmarshal(raw, &s) == nil {
		return s
	}
	return strings.TrimSpace(string(raw))
}

func (f fields) shape(name string) (fieldShape, map[string]json.RawMessage, bool) {
	raw, ok := f[name]
	if !ok {
		return fieldShape{}, nil, false
	}
	var keys map[string]json.RawMessage
	if json.Unmarshal(raw, &keys) != nil {
		return fieldShape{}, nil, true
	}
	return fieldShape{Value: keys["value"], DisplayValue: keys["displayValue"]}, keys, true
}

// value reads the raw value of a field, fields that are not objects are their own value.
func (f fields) value(name string) string {
	shape, keys, ok := f.shape(name)
	if !ok {
		return NotAvailable
	}
	if _, hasValue := keys["value"]; hasValue {
		return scalar(shape.Value)
	}
	return scalar(f[name])
}

// display reads the displayValue of a field. Lookups have a null displayValue and carry
// the name of the referenced record inside their value instead.
func (f fields) display(name string) string {
	shape, keys, ok := f.shape(name)
	if !ok {
		return NotAvailable
	}
	if _, hasDisplay := keys["displayValue"]; !hasDisplay {
		return scalar(f[name])
	}
	if !isNull(shape.DisplayValue) {
		return scalar(shape.DisplayValue)
	}
	if _, hasValue := keys["value"]; !hasValue {
		return NotAvailable
	}

	var lookup struct {
		Fields map[string]struct {
			Value json.RawMessage `json:"value"`
		} `json:"fields"`
	}
	if json.Unmarshal(shape.Value, &lookup) == nil {
		if nameField, ok := lookup.Fields["Name"]; ok {
			return scalar(nameField.Value)
		}
	}
	return scalar(shape.Value)
}

type sensitiveResponse struct {
	Actions []struct {
		ReturnValue struct {
			Response struct {
				OutputVariables []struct {
					Value map[string]json.RawMessage `json:"value"`
				} `json:"outputVariables"`
			} `json:"response"`
		} `json:"returnValue"`
	} `json:"actions"`
}

// ParseSensitiveResponse reads the flow output variables, the first carries the terminal
// and street, the second the suburb and postcode. Missing values are empty.
func ParseSensitiveResponse(body []byte) (Sensitive, error) {
	var res sensitiveResponse
	err := json.Unmarshal(body, &res)
	if err != nil {
		return Sensitive{}, fmt.Errorf("%w: %w", ErrSensitiveDataUnavailable, err)
	}
	if len(res.Actions) == 0 {
		return Sensitive{}, fmt.Errorf("%w: no actions", ErrSensitiveDataUnavailable)
	}

	vars := res.Actions[0].ReturnValue.Response.OutputVariables
	out := Sensitive{}
	if len(vars) > 0 {
		out.TerminalID = scalar(vars[0].Value["terminal_id_c__c"])
		out.Street = scalar(vars[0].Value["street__c"])
	}
	if len(vars) > 1 {
		out.Suburb = scalar(vars[1].Value["City"])
		out.Postcode = scalar(vars[1].Value["PostalCode"])
	}
	return out, nil
}
