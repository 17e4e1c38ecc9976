package htmlutil

import (
	"bytes"
	"context"
	"net/url"
	"regexp"
	"strings"
	"unicode"

	"github.com/PuerkitoBio/goquery"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"golang.org/x/net/html"
)

var tracer = otel.Tracer("ecourts.lib.htmlutil")

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
	child := node.FirstChild
	for child != nil {
		getTextRecursive(child, buffer)
		child = child.NextSibling
	}
}

var innerWhitespace = regexp.MustCompile(`\s\s+`)

func removeNonPrintable(s string) string {
	newStr := strings.Builder{}
	for _, c := range s {
		if unicode.IsPrint(c) || unicode.IsSpace(c) {
			newStr.WriteRune(c)
		}
	}
	return newStr.String()
}

// CleanText strips non-printable characters, surrounding whitespace and
// collapses runs of inner whitespace into a single space.
func CleanText(s string) string {
	s = removeNonPrintable(s)
	s = strings.TrimSpace(s)
	return innerWhitespace.ReplaceAllString(s, " ")
}

// Text is the cleaned text content of every node in the selection.
func Text(sel *goquery.Selection) string {
	return CleanText(sel.Text())
}

type Anchor struct {
	Name string
	Href string
}

func GetAnchors(ctx context.Context, sel *goquery.Selection) []Anchor {
	_, span := tracer.Start(ctx, "GetAnchors")
	defer span.End()

	anchors := []Anchor{}
	for _, n := range sel.Nodes {
		href := ""
		for _, a := range n.Attr {
			if a.Key == "href" {
				href = a.Val
				break
			}
		}

		link, err := url.Parse(href)
		if err != nil {
			span.RecordError(err)
			span.SetStatus(codes.Error, "got error while parsing url")
			continue
		}

		name := CleanText(GetText(n))
		linkStr := link.String()
		anchors = append(anchors, Anchor{
			Name: name,
			Href: linkStr,
		})
		span.AddEvent("anchor", trace.WithAttributes(
			attribute.String("name", name),
			attribute.String("url", linkStr),
		))
	}

	return anchors
}

// HiddenInputs collects the hidden inputs whose name starts with one of the
// given prefixes or equals one of the given exact names.
func HiddenInputs(doc *goquery.Selection, prefixes []string, names []string) map[string]string {
	out := map[string]string{}
	doc.Find("input[type=hidden]").Each(func(_ int, s *goquery.Selection) {
		name, ok := s.Attr("name")
		if !ok {
			return
		}
		matched := false
		for _, p := range prefixes {
			if strings.HasPrefix(name, p) {
				matched = true
				break
			}
		}
		for _, n := range names {
			if name == n {
				matched = true
				break
			}
		}
		if matched {
			out[name] = s.AttrOr("value", "")
		}
	})
	return out
}

// Options reads every <option> below sel into a label -> value map.
// Options without a value attribute or with a blank label are skipped.
// When accept is non-nil only values it accepts are kept.
func Options(sel *goquery.Selection, accept func(value string) bool) map[string]string {
	out := map[string]string{}
	sel.Find("option").Each(func(_ int, s *goquery.Selection) {
		value, ok := s.Attr("value")
		if !ok {
			return
		}
		label := Text(s)
		if label == "" {
			return
		}
		if accept != nil && !accept(value) {
			return
		}
		out[label] = value
	})
	return out
}

// IsDigits reports whether s is a non-empty run of ASCII digits.
func IsDigits(s string) bool {
	if s == "" {
		return false
	}
	for _, c := range s {
		if c < '0' || c > '9' {
			return false
		}
	}
	return true
}

// CaptionedTable returns the first table whose own <caption> text is exactly
// caption, or an empty selection. Captions of nested tables do not count.
func CaptionedTable(doc *goquery.Selection, caption string) *goquery.Selection {
	return doc.Find("table").FilterFunction(func(_ int, s *goquery.Selection) bool {
		return Text(s.ChildrenFiltered("caption").First()) == caption
	}).First()
}

// Cells returns the <td> children of a row in order, cells of nested
// tables are not included.
func Cells(row *goquery.Selection) []*goquery.Selection {
	var cells []*goquery.Selection
	row.ChildrenFiltered("td").Each(func(_ int, s *goquery.Selection) {
		cells = append(cells, s)
	})
	return cells
}

// NextMatching finds the first element after node in document order that
// matches selector.
func NextMatching(node *goquery.Selection, selector string) *goquery.Selection {
	if node.Length() == 0 {
		return node
	}
	root := node
	for root.Parent().Length() > 0 {
		root = root.Parent()
	}
	target := node.Get(0)
	seen := false
	var found *goquery.Selection
	root.Find("*").EachWithBreak(func(_ int, s *goquery.Selection) bool {
		if s.Get(0) == target {
			seen = true
			return true
		}
		if seen && s.Is(selector) {
			found = s
			return false
		}
		return true
	})
	if found == nil {
		return node.FilterFunction(func(int, *goquery.Selection) bool { return false })
	}
	return found
}

// FindByText returns the first element matching selector whose own cleaned
// text equals text exactly.
func FindByText(doc *goquery.Selection, selector, text string) *goquery.Selection {
	return doc.Find(selector).FilterFunction(func(_ int, s *goquery.Selection) bool {
		return Text(s) == text
	}).First()
}
