package htmlutil

import (
	"strings"
	"testing"

	"github.com/PuerkitoBio/goquery"
	"github.com/stretchr/testify/require"
)

func TestCleanText(t *testing.T) {
	testCases := []struct {
		in     string
		expect string
	}{
		{in: "  plain  ", expect: "plain"},
		{in: " ", expect: ""},
		{in: "\u00a0\u00a0", expect: ""},
		{in: "a\u00a0 b", expect: "a  b"},
		{in: "  Corner   Cafe ", expect: "Corner   Cafe"},
		{in: "two\n\t words", expect: "two\n\t words"},
	}
	for _, test := range testCases {
		require.Equal(t, test.expect, CleanText(test.in), test.in)
	}
}

func TestSelectionText(t *testing.T) {
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(
		`<table><tr><td> <a href="#">J-100</a>&nbsp;</td><td>&nbsp;</td><td> Corner   Cafe </td><td> Pty Ltd <b> NSW </b></td></tr></table>`,
	))
	require.NoError(t, err)

	cells := doc.Find("td")
	require.Equal(t, "J-100", SelectionText(cells.Eq(0)))
	require.Equal(t, "", SelectionText(cells.Eq(1)))
	require.Equal(t, "Corner   Cafe", SelectionText(cells.Eq(2)))
	require.Equal(t, "Pty LtdNSW", SelectionText(cells.Eq(3)))
	require.Equal(t, "J-100", GetText(cells.Eq(0).Find("a").Nodes[0]))
}
