package verifone

import (
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/require"
)

func TestParseListResponse(t *testing.T) {
	ids, err := ParseListResponse([]byte(listFixture))
	require.NoError(t, err)
	require.Equal(t, []string{"0WOb", "0WOa", "0WOc"}, ids)

	ids, err = ParseListResponse([]byte(`{"context": {"globalValueProviders": [{}, {}, {"values": {}}]}}`))
	require.NoError(t, err)
	require.Empty(t, ids)

	malformed := []string{
		`not json`,
		`{"context": {"globalValueProviders": [{}, {"values": {"records": {"x": {}}}}]}}`,
		`{"context": {"globalValueProviders": [{}, {}, {"type": "$Record"}]}}`,
		`{"context": {"globalValueProviders": [{}, {}, {"values": {"records": ["x"]}}]}}`,
		`{}`,
	}
	for _, body := range malformed {
		_, err := ParseListResponse([]byte(body))
		require.ErrorIs(t, err, ErrMalformedListResponse, body)
	}
}

func TestParseDetailResponse(t *testing.T) {
	wo, err := ParseDetailResponse([]byte(detailFixture), "0WO1")
	require.NoError(t, err)
	expect := WorkOrder{
		ID:             "0WO1",
		JobID:          "00012345",
		ClientID:       "ANZ",
		JobType:        "Install",
		Area:           "Metro",
		OnSiteDateTime: "30/08/2025 7:15 PM",
		OnSiteStartISO: "2025-08-30T09:15:00.000Z",
		OnSiteEndISO:   "2025-08-30T10:00:00.000Z",
		DeviceType:     "Move 5000",
		Fix:            "On Site",
		AfterHour:      "YES",
		Weekend:        "YES",
		IsOnSite:       true,
	}
	if diff := cmp.Diff(expect, wo); diff != "" {
		t.Fatalf("(-want +got)\n%s", diff)
	}

	wo, err = ParseDetailResponse([]byte(detailFixture), "0WO2")
	require.NoError(t, err)
	expect = WorkOrder{
		ID:             "0WO2",
		JobID:          "00012346",
		ClientID:       "CAS",
		JobType:        "Swap",
		Area:           NotAvailable,
		OnSiteDateTime: NotAvailable,
		OnSiteStartISO: NotAvailable,
		OnSiteEndISO:   NotAvailable,
		DeviceType:     "Castles S1F2",
		Fix:            NotAvailable,
		AfterHour:      NotAvailable,
		Weekend:        NotAvailable,
	}
	if diff := cmp.Diff(expect, wo); diff != "" {
		t.Fatalf("(-want +got)\n%s", diff)
	}

	_, err = ParseDetailResponse([]byte(detailFixture), "0WODENIED")
	require.ErrorIs(t, err, ErrRecordAccessDenied)

	_, err = ParseDetailResponse([]byte(detailFixture), "0WOMISSING")
	require.ErrorIs(t, err, ErrRecordNotFound)

	_, err = ParseDetailResponse([]byte(`{"context": {"globalValueProviders": []}}`), "0WO1")
	require.ErrorIs(t, err, ErrRecordNotFound)
}

func TestFieldShapes(t *testing.T) {
	f := fields{
		"plain":      []byte(`"raw"`),
		"number":     []byte(`42`),
		"valueOnly":  []byte(`{"value": "v"}`),
		"nullValue":  []byte(`{"value": null, "displayValue": null}`),
		"displayed":  []byte(`{"value": "v", "displayValue": "Shown"}`),
		"lookupMiss": []byte(`{"value": {"fields": {"Other": {"value": "x"}}}, "displayValue": null}`),
		"noValue":    []byte(`{"displayValue": null}`),
	}

	testCases := []struct {
		name    string
		value   string
		display string
	}{
		{name: "plain", value: "raw", display: "raw"},
		{name: "number", value: "42", display: "42"},
		{name: "valueOnly", value: "v", display: `{"value": "v"}`},
		{name: "nullValue", value: "", display: ""},
		{name: "displayed", value: "v", display: "Shown"},
		{name: "lookupMiss", value: `{"fields": {"Other": {"value": "x"}}}`, display: `{"fields": {"Other": {"value": "x"}}}`},
		{name: "noValue", value: `{"displayValue": null}`, display: NotAvailable},
		{name: "absent", value: NotAvailable, display: NotAvailable},
	}
	for _, test := range testCases {
		require.Equal(t, test.value, f.value(test.name), test.name)
		require.Equal(t, test.display, f.display(test.name), test.name)
	}
}

func TestParseSensitiveResponse(t *testing.T) {
	sensitive, err := ParseSensitiveResponse([]byte(sensitiveFixture))
	require.NoError(t, err)
	require.Equal(t, Sensitive{
		TerminalID: "T1000",
		Street:     "12 George St",
		Suburb:     "Sydney",
		Postcode:   "2000",
	}, sensitive)

	sensitive, err = ParseSensitiveResponse([]byte(`{"actions": [{"returnValue": {"response": {"outputVariables": [{"value": {"street__c": "1 Main Rd"}}]}}}]}`))
	require.NoError(t, err)
	require.Equal(t, Sensitive{Street: "1 Main Rd"}, sensitive)

	_, err = ParseSensitiveResponse([]byte(`{"actions": []}`))
	require.ErrorIs(t, err, ErrSensitiveDataUnavailable)
	_, err = ParseSensitiveResponse([]byte(`<html>login</html>`))
	require.ErrorIs(t, err, ErrSensitiveDataUnavailable)
}
