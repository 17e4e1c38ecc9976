package htmlutil

import (
	"context"
	"strings"
	"testing"

	"github.com/PuerkitoBio/goquery"
	"github.com/stretchr/testify/require"
)

func parse(t testing.TB, src string) *goquery.Document {
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(src))
	if err != nil {
		t.Fatal(err)
	}
	return doc
}

func TestCleanText(t *testing.T) {
	testCases := []struct {
		in     string
		expect string
	}{
		{in: "  hello  ", expect: "hello"},
		{in: "\n\tCivil   Suit \n", expect: "Civil Suit"},
		{in: "a\u0000b", expect: "ab"},
		{in: "", expect: ""},
	}
	for _, test := range testCases {
		require.Equal(t, test.expect, CleanText(test.in))
	}
}

func TestHiddenInputs(t *testing.T) {
	doc := parse(t, `<form>
		<input type="hidden" name="tok_abc" value="1">
		<input type="hidden" name="tok_def" value="2">
		<input type="hidden" name="scid" value="99">
		<input type="hidden" name="other" value="x">
		<input type="text" name="tok_visible" value="no">
		<input type="hidden" value="nameless">
	</form>`)

	tokens := HiddenInputs(doc.Selection, []string{"tok_"}, []string{"scid"})
	require.Equal(t, map[string]string{
		"tok_abc": "1",
		"tok_def": "2",
		"scid":    "99",
	}, tokens)
}

func TestOptions(t *testing.T) {
	doc := parse(t, `<select name="est_code">
		<option value="">Select</option>
		<option value="HPCH01">  Chamba </option>
		<option value="HPCH02">Dalhousie</option>
		<option>No value</option>
		<option value="X"></option>
	</select>`)

	all := Options(doc.Find("select"), nil)
	require.Equal(t, map[string]string{
		"Select":    "",
		"Chamba":    "HPCH01",
		"Dalhousie": "HPCH02",
	}, all)

	numeric := Options(parse(t, `<option value='7'>Civil</option><option value='x'>Bad</option>`).Selection, IsDigits)
	require.Equal(t, map[string]string{"Civil": "7"}, numeric)
}

func TestIsDigits(t *testing.T) {
	require.True(t, IsDigits("0"))
	require.True(t, IsDigits("1234"))
	require.False(t, IsDigits(""))
	require.False(t, IsDigits("12a"))
	require.False(t, IsDigits("-1"))
	require.False(t, IsDigits("1.5"))
}

func TestCaptionedTable(t *testing.T) {
	doc := parse(t, `
		<table class="data-table-1"><caption>Case Details</caption><tbody><tr><td>a</td></tr></tbody></table>
		<table class="data-table-1"><caption> Acts </caption><tbody><tr><td>b</td><td>c</td></tr></tbody></table>
		<table class="data-table-1"><caption>Acts</caption><tbody><tr><td>second</td></tr></tbody></table>`)

	acts := CaptionedTable(doc.Selection, "Acts")
	require.Equal(t, 1, acts.Length())
	cells := Cells(acts.Find("tbody tr").First())
	require.Len(t, cells, 2)
	require.Equal(t, "b", Text(cells[0]))

	missing := CaptionedTable(doc.Selection, "Orders")
	require.Equal(t, 0, missing.Length())

	nested := parse(t, `
		<table class="layout"><tr><td>
			<table class="data-table-1"><caption>Case Details</caption><tbody><tr><td>inner</td></tr></tbody></table>
		</td></tr></table>`)
	details := CaptionedTable(nested.Selection, "Case Details")
	require.Equal(t, 1, details.Length())
	require.True(t, details.HasClass("data-table-1"))
}

func TestNextMatching(t *testing.T) {
	doc := parse(t, `<div>
		<h5>Petitioner and Advocate</h5>
		<section><div class="Petitioner"><ul><li><p>A</p></li></ul></div></section>
		<h5>Respondent and Advocate</h5>
		<div class="respondent"><ul><li><p>B</p></li></ul></div>
	</div>`)

	heading := FindByText(doc.Selection, "h5", "Respondent and Advocate")
	require.Equal(t, 1, heading.Length())
	require.Equal(t, "B", Text(NextMatching(heading, "div.respondent")))

	heading = FindByText(doc.Selection, "h5", "Petitioner and Advocate")
	require.Equal(t, "A", Text(NextMatching(heading, "div.Petitioner")))

	require.Equal(t, 0, NextMatching(heading, "div.nothing").Length())
	require.Equal(t, 0, FindByText(doc.Selection, "h5", "Petitioner").Length())
}

func TestGetAnchors(t *testing.T) {
	doc := parse(t, `<ul><li><a href="https://chamba.dcourts.gov.in/">  Chamba
		</a></li><li><a href="/x?y=1">X</a></li></ul>`)
	anchors := GetAnchors(context.Background(), doc.Find("a"))
	require.Equal(t, []Anchor{
		{Name: "Chamba", Href: "https://chamba.dcourts.gov.in/"},
		{Name: "X", Href: "/x?y=1"},
	}, anchors)
}
