package htmlutil

import (
	"bytes"
	"strings"

	"github.com/PuerkitoBio/goquery"
	"golang.org/x/net/html"
)

func GetText(node *html.Node) string {
	var buffer bytes.Buffer
	getTextRecursive(node, &buffer)
	return buffer.String()
}

func getTextRecursive(node *html.Node, buffer *bytes.Buffer) {
	if node == nil {
		return
	}
	if node.Type == html.TextNode {
		buffer.WriteString(node.Data)
		return
	}
	for child := node.FirstChild; child != nil; child = child.NextSibling {
		getTextRecursive(child, buffer)
	}
}

// CleanText trims a cell's text and turns inner non-breaking spaces into plain ones.
// Inner whitespace is kept as the portal sent it.
func CleanText(s string) string {
	return strings.ReplaceAll(strings.TrimSpace(s), "\u00a0", " ")
}

// SelectionText trims the text of every text node in the selection and joins the
// non-empty pieces without a separator.
func SelectionText(sel *goquery.Selection) string {
	var out strings.Builder
	for _, n := range sel.Nodes {
		appendTrimmedText(n, &out)
	}
	return out.String()
}

func appendTrimmedText(node *html.Node, out *strings.Builder) {
	if node == nil {
		return
	}
	if node.Type == html.TextNode {
		out.WriteString(CleanText(node.Data))
		return
	}
	for child := node.FirstChild; child != nil; child = child.NextSibling {
		appendTrimmedText(child, out)
	}
}
