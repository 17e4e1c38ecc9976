package ecourts

import (
	"context"
	"encoding/json"
	"net/http"
	"strings"
	"sync"
	"testing"
	"time"

	"ecourts-backend/lib/scrapers/ecourts/ecourtstest"
	"ecourts-backend/lib/telemetry"

	"github.com/PuerkitoBio/goquery"
	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/require"
)

func ptr(s string) *string {
	return &s
}

func parseFixture(t testing.TB, name string) *goquery.Document {
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(ecourtstest.Fixture(t, name)))
	require.NoError(t, err)
	return doc
}

func newTestClient(t testing.TB, portal *ecourtstest.Portal) *Client {
	client, err := NewClient(ClientOptions{BaseUrl: portal.URL})
	require.NoError(t, err)
	return client
}

// memoryOutput keeps every diagnostic written to it.
type memoryOutput struct {
	mu    sync.Mutex
	files map[string]string
}

func (o *memoryOutput) Write(id string, contents string) {
	o.mu.Lock()
	defer o.mu.Unlock()
	if o.files == nil {
		o.files = map[string]string{}
	}
	o.files[id] = contents
}

func (o *memoryOutput) get(id string) (string, bool) {
	o.mu.Lock()
	defer o.mu.Unlock()
	contents, ok := o.files[id]
	return contents, ok
}

func TestNewClient(t *testing.T) {
	_, err := NewClient(ClientOptions{BaseUrl: "ftp://ernakulam.dcourts.gov.in"})
	require.Error(t, err)

	client, err := NewClient(ClientOptions{BaseUrl: " https://ernakulam.dcourts.gov.in/ "})
	require.NoError(t, err)
	require.Equal(t, "https://ernakulam.dcourts.gov.in/wp-admin/admin-ajax.php", client.endpoint(ajaxPath))
	require.False(t, client.Session.Initialized())
	require.Empty(t, client.CaptchaUrl())
}

func TestInitialize(t *testing.T) {
	cleanup := telemetry.SetupForTesting(t, "test:ecourts")
	defer cleanup()

	portal := ecourtstest.NewPortal(t)
	client := newTestClient(t, portal)

	err := client.Initialize(context.Background())
	require.NoError(t, err)

	require.Equal(t, ExtraFields{"tok_x": "a", "scid": "123"}, client.Session.Tokens)
	require.Equal(t, []string{
		"District Court Complex, Ernakulam",
		"Munsiff Court Complex, Aluva",
	}, client.Session.CourtComplexes.Labels())
	require.Equal(t, "KLER01,KLER02", client.Session.CourtComplexes["District Court Complex, Ernakulam"])
	require.Contains(t, client.CaptchaUrl(), "id=123")
	require.True(t, strings.HasPrefix(client.CaptchaUrl(), portal.URL+"/?_siwp_captcha"))

	langRequests := portal.Received(actionLangCookie)
	require.Len(t, langRequests, 1)
	require.Equal(t, "en", langRequests[0].Get("lang"))
	require.NotEmpty(t, langRequests[0].Get("time"))
	require.Contains(t, portal.CookieHeaders(actionLangCookie)[0], "PHPSESSID=session-1")

	cookies := client.Cookies()
	require.Equal(t, "session-1", cookies["PHPSESSID"])
	require.Equal(t, "en", cookies["pll_language"])
}

func TestInitializeFailures(t *testing.T) {
	cleanup := telemetry.SetupForTesting(t, "test:ecourts")
	defer cleanup()

	cases := []struct {
		name   string
		status int
		page   string
		err    error
	}{
		{
			name:   "no tokens",
			status: http.StatusOK,
			page:   ecourtstest.Fixture(t, "search_page_no_tokens.html"),
			err:    ErrProtocol,
		},
		{
			name:   "no court select",
			status: http.StatusOK,
			page:   ecourtstest.Fixture(t, "search_page_no_select.html"),
			err:    ErrProtocol,
		},
		{
			name:   "server error",
			status: http.StatusServiceUnavailable,
			page:   "maintenance",
			err:    ErrTransport,
		},
	}

	for _, test := range cases {
		t.Run(test.name, func(t *testing.T) {
			portal := ecourtstest.NewPortal(t)
			portal.SetSearchPage(test.status, test.page)
			client := newTestClient(t, portal)

			err := client.Initialize(context.Background())
			require.ErrorIs(t, err, test.err)
			require.False(t, client.Session.Initialized())
			require.Empty(t, client.Session.CourtComplexes)
			require.Empty(t, client.CaptchaUrl())
		})
	}
}

func TestInitializeUnreachable(t *testing.T) {
	portal := ecourtstest.NewPortal(t)
	portal.Close()
	client := newTestClient(t, portal)

	err := client.Initialize(context.Background())
	require.ErrorIs(t, err, ErrTransport)
	require.False(t, client.Session.Initialized())
}

func TestInitializeTimeout(t *testing.T) {
	portal := ecourtstest.NewPortal(t)
	portal.SetDelay(time.Millisecond * 300)
	client, err := NewClient(ClientOptions{BaseUrl: portal.URL, Timeout: time.Millisecond * 50})
	require.NoError(t, err)

	err = client.Initialize(context.Background())
	require.ErrorIs(t, err, ErrTransport)
	require.False(t, client.Session.Initialized())
}

func TestInitializeReplacesSession(t *testing.T) {
	portal := ecourtstest.NewPortal(t)
	client := newTestClient(t, portal)

	require.NoError(t, client.Initialize(context.Background()))
	client.Session.CaseTypes = Catalog{"Civil": "7"}
	client.Session.CaseTypesScope = "KLER03"

	require.NoError(t, client.Initialize(context.Background()))
	require.Empty(t, client.Session.CaseTypes)
	require.Empty(t, client.Session.CaseTypesScope)
	require.Len(t, portal.Received(actionLangCookie), 2)
}

func TestCaseTypes(t *testing.T) {
	cleanup := telemetry.SetupForTesting(t, "test:ecourts")
	defer cleanup()

	cases := []struct {
		name     string
		body     string
		expected Catalog
	}{
		{
			name:     "unsuccessful",
			body:     ecourtstest.Envelope(t, false, nil),
			expected: Catalog{},
		},
		{
			name:     "non numeric codes",
			body:     ecourtstest.Envelope(t, true, "<option value='7'>Civil</option><option value='x'>Bad</option>"),
			expected: Catalog{"Civil": "7"},
		},
		{
			name:     "malformed json",
			body:     "<html>Internal error</html>",
			expected: Catalog{},
		},
		{
			name:     "data is not html",
			body:     `{"success": true, "data": {"types": []}}`,
			expected: Catalog{},
		},
	}

	for _, test := range cases {
		t.Run(test.name, func(t *testing.T) {
			portal := ecourtstest.NewPortal(t)
			portal.Respond(actionCaseTypes, test.body)
			client := newTestClient(t, portal)
			require.NoError(t, client.Initialize(context.Background()))

			caseTypes, err := client.CaseTypes(context.Background(), "KLER03")
			require.NoError(t, err)
			require.Equal(t, test.expected, caseTypes)

			requests := portal.Received(actionCaseTypes)
			require.Len(t, requests, 1)
			require.Equal(t, "KLER03", requests[0].Get("est_code"))
			require.Equal(t, "courtComplex", requests[0].Get("service_type"))
			require.Equal(t, "a", requests[0].Get("tok_x"))
			require.Equal(t, "123", requests[0].Get("scid"))
		})
	}
}

func TestCaseTypesCached(t *testing.T) {
	portal := ecourtstest.NewPortal(t)
	portal.Respond(actionCaseTypes, ecourtstest.Envelope(t, true,
		`<option value="">Select Case Type</option><option value="7">Civil</option><option value="12">  Original   Suit </option>`,
	))
	client := newTestClient(t, portal)

	_, err := client.CaseTypes(context.Background(), "KLER03")
	require.ErrorIs(t, err, ErrNotInitialized)
	require.Empty(t, portal.Received(actionCaseTypes))

	require.NoError(t, client.Initialize(context.Background()))
	caseTypes, err := client.CaseTypes(context.Background(), "KLER03")
	require.NoError(t, err)
	require.Equal(t, Catalog{"Civil": "7", "Original Suit": "12"}, caseTypes)
	require.Equal(t, caseTypes, client.Session.CaseTypes)
	require.Equal(t, "KLER03", client.Session.CaseTypesScope)
}

func TestCatalogResolve(t *testing.T) {
	catalog := Catalog{
		"OS - Original Suit":     "12",
		"CC - Calendar Case":     "3",
		"MC - Maintenance Cases": "21",
	}

	cases := []struct {
		input string
		label string
		code  string
		ok    bool
	}{
		{input: "OS - Original Suit", label: "OS - Original Suit", code: "12", ok: true},
		{input: "3", label: "CC - Calendar Case", code: "3", ok: true},
		{input: "os - original  suit", label: "OS - Original Suit", code: "12", ok: true},
		{input: "MC - Maintenance Case", label: "MC - Maintenance Cases", code: "21", ok: true},
		{input: "Writ Petition", ok: false},
	}

	for _, test := range cases {
		label, code, ok := catalog.Resolve(test.input)
		require.Equal(t, test.ok, ok, test.input)
		require.Equal(t, test.label, label, test.input)
		require.Equal(t, test.code, code, test.input)
	}
}

func TestCatalogLookup(t *testing.T) {
	catalog := Catalog{
		"Civil Suit":    "1",
		"Civil Appeal":  "2",
		"Criminal Case": "3",
	}

	label, code, ok := catalog.Lookup("civil  appeal")
	require.True(t, ok)
	require.Equal(t, "Civil Appeal", label)
	require.Equal(t, "2", code)

	label, code, ok = catalog.Lookup("3")
	require.True(t, ok)
	require.Equal(t, "Criminal Case", label)
	require.Equal(t, "3", code)

	// similar labels are different case types
	for _, input := range []string{"Criminal Appeal", "Civil Misc", ""} {
		_, _, ok := catalog.Lookup(input)
		require.False(t, ok, input)
	}
}

func TestCaptcha(t *testing.T) {
	portal := ecourtstest.NewPortal(t)
	client := newTestClient(t, portal)

	_, _, err := client.Captcha(context.Background())
	require.ErrorIs(t, err, ErrNoCaptcha)

	require.NoError(t, client.Initialize(context.Background()))
	image, contentType, err := client.Captcha(context.Background())
	require.NoError(t, err)
	require.Equal(t, ecourtstest.CaptchaImage, image)
	require.Equal(t, "image/png", contentType)
	require.Equal(t, []string{"123"}, portal.CaptchaRequests())
}

var testQuery = CaseQuery{
	CourtComplex: "KLER01,KLER02",
	CaseType:     "12",
	CaseNumber:   "120",
	Year:         "2021",
	Captcha:      "x7k2p",
}

func TestSearchRoundTrip(t *testing.T) {
	cleanup := telemetry.SetupForTesting(t, "test:ecourts")
	defer cleanup()

	portal := ecourtstest.NewPortal(t)
	portal.Respond(actionCaseTypes, ecourtstest.Envelope(t, true, `<option value="12">OS - Original Suit</option>`))
	portal.Respond(actionCases, ecourtstest.Envelope(t, true, ecourtstest.Fixture(t, "search_results.html")))
	portal.Respond(actionDetails, ecourtstest.Envelope(t, true, ecourtstest.Fixture(t, "details_full.html")))

	diagnostics := &memoryOutput{}
	client, err := NewClient(ClientOptions{BaseUrl: portal.URL, Diagnostics: diagnostics})
	require.NoError(t, err)

	ctx := context.Background()
	require.NoError(t, client.Initialize(ctx))
	caseTypes, err := client.CaseTypes(ctx, testQuery.CourtComplex)
	require.NoError(t, err)
	require.Equal(t, Catalog{"OS - Original Suit": "12"}, caseTypes)

	record, err := client.Search(ctx, testQuery)
	require.NoError(t, err)
	require.NotNil(t, record)
	require.Equal(t, fullRecord(), *record)

	searches := portal.Received(actionCases)
	require.Len(t, searches, 1)
	search := searches[0]
	require.Equal(t, "courtComplex", search.Get("service_type"))
	require.Equal(t, "KLER01,KLER02", search.Get("est_code"))
	require.Equal(t, "12", search.Get("case_type"))
	require.Equal(t, "120", search.Get("reg_no"))
	require.Equal(t, "2021", search.Get("reg_year"))
	require.Equal(t, "x7k2p", search.Get("siwp_captcha_value"))
	require.Equal(t, "Search", search.Get("submit"))
	require.Equal(t, "a", search.Get("tok_x"))
	require.Equal(t, "123", search.Get("scid"))

	cookies := portal.CookieHeaders(actionCases)
	require.Contains(t, cookies[0], "PHPSESSID=session-1")
	require.Contains(t, cookies[0], "pll_language=en")

	details := portal.Received(actionDetails)
	require.Len(t, details, 1)
	require.Equal(t, "KLER010012342021", details[0].Get("cino"))
	require.Equal(t, "1", details[0].Get("es_ajax_request"))

	searchHtml, ok := diagnostics.get(searchDiagnostic)
	require.True(t, ok)
	require.Contains(t, searchHtml, `data-cno="KLER010012342021"`)
	detailsHtml, ok := diagnostics.get(detailsDiagnostic)
	require.True(t, ok)
	require.Contains(t, detailsHtml, "Process Details")
}

func TestSearchWithoutMatch(t *testing.T) {
	cases := []struct {
		name string
		body string
	}{
		{name: "no data-cno anchor", body: ecourtstest.Envelope(t, true, ecourtstest.Fixture(t, "search_results_empty.html"))},
		{name: "unsuccessful", body: ecourtstest.Envelope(t, false, "Invalid Captcha")},
		{name: "empty data", body: ecourtstest.Envelope(t, true, nil)},
	}

	for _, test := range cases {
		t.Run(test.name, func(t *testing.T) {
			portal := ecourtstest.NewPortal(t)
			portal.Respond(actionCases, test.body)
			client := newTestClient(t, portal)
			require.NoError(t, client.Initialize(context.Background()))

			record, err := client.Search(context.Background(), testQuery)
			require.NoError(t, err)
			require.Nil(t, record)
			require.Empty(t, portal.Received(actionDetails))
		})
	}
}

func TestFindCase(t *testing.T) {
	portal := ecourtstest.NewPortal(t)
	portal.Respond(actionCases, ecourtstest.Envelope(t, true, ecourtstest.Fixture(t, "search_results.html")))
	client := newTestClient(t, portal)

	_, _, err := client.FindCase(context.Background(), testQuery)
	require.ErrorIs(t, err, ErrNotInitialized)

	require.NoError(t, client.Initialize(context.Background()))
	cino, ok, err := client.FindCase(context.Background(), testQuery)
	require.NoError(t, err)
	require.True(t, ok)
	require.Equal(t, CINO("KLER010012342021"), cino)
	require.Empty(t, portal.Received(actionDetails))
}

func TestSearchMalformedResponse(t *testing.T) {
	portal := ecourtstest.NewPortal(t)
	portal.Respond(actionCases, "<b>Fatal error</b>")
	client := newTestClient(t, portal)
	require.NoError(t, client.Initialize(context.Background()))

	record, err := client.Search(context.Background(), testQuery)
	require.ErrorIs(t, err, ErrProtocol)
	require.Nil(t, record)
}

func TestSearchTimeout(t *testing.T) {
	portal := ecourtstest.NewPortal(t)
	portal.RespondWithCase(t)
	client, err := NewClient(ClientOptions{BaseUrl: portal.URL, Timeout: time.Millisecond * 50})
	require.NoError(t, err)
	require.NoError(t, client.Initialize(context.Background()))

	portal.SetDelay(time.Millisecond * 300)
	record, err := client.Search(context.Background(), testQuery)
	require.ErrorIs(t, err, ErrTransport)
	require.Nil(t, record)
}

func TestDetailsEmptyDocument(t *testing.T) {
	portal := ecourtstest.NewPortal(t)
	portal.Respond(actionDetails, ecourtstest.Envelope(t, true, ""))
	client := newTestClient(t, portal)
	require.NoError(t, client.Initialize(context.Background()))

	_, err := client.Details(context.Background(), "KLER010012342021")
	require.ErrorIs(t, err, ErrProtocol)
}

func fullRecord() CaseRecord {
	return CaseRecord{
		CaseType:           ptr("OS - Original Suit"),
		FilingNumber:       ptr("1200/2021"),
		FilingDate:         ptr("04-03-2021"),
		RegistrationNumber: ptr("120/2021"),
		RegistrationDate:   ptr("08-03-2021"),
		CnrNumber:          ptr("KLER010012342021 (Note the CNR number for future reference)"),

		FirstHearingDate:    ptr("15th March 2021"),
		DecisionDate:        ptr("20th January 2024"),
		CaseStatus:          ptr("Case disposed"),
		NatureOfDisposal:    ptr("Contested--DECREED"),
		CourtNumberAndJudge: ptr("2-Principal Munsiff"),

		PoliceStation: ptr("Aluva East"),
		FirNumber:     ptr("245"),
		FirYear:       ptr("2020"),

		Petitioners: []string{"1) Mary Thomas Advocate- K. Ramesh", "2) Joseph Thomas"},
		Respondents: []string{"1) State of Kerala"},
		CaseHistory: []HistoryEntry{
			{
				RegistrationNumber: "120/2021",
				Judge:              "Principal Munsiff",
				BusinessDate:       "15-03-2021",
				HearingDate:        "10-05-2021",
				Purpose:            "Appearance",
			},
			{
				RegistrationNumber: "120/2021",
				Judge:              "Principal Munsiff",
				BusinessDate:       "10-05-2021",
				HearingDate:        "20-01-2024",
				Purpose:            "Judgment",
			},
		},
		Acts: []Act{
			{UnderAct: "Code of Civil Procedure", UnderSection: "26"},
			{UnderAct: "Specific Relief Act", UnderSection: "38"},
		},
		Orders: []Order{
			{OrderNumber: "1", OrderDate: "20-01-2024", OrderDetails: "Order 1", DownloadLink: ptr("/f.pdf")},
			{OrderNumber: "2", OrderDate: "22-01-2024", OrderDetails: "Disposed"},
		},
		ProcessDetails: []ProcessEntry{
			{
				ProcessId:     "P-1",
				ProcessDate:   "16-03-2021",
				ProcessTitle:  "Summons",
				PartyName:     "State of Kerala",
				IssuedProcess: "Issued",
			},
		},
	}
}

func TestParseDetails(t *testing.T) {
	record := ParseDetails(parseFixture(t, "details_full.html"))
	diff := cmp.Diff(fullRecord(), record)
	if diff != "" {
		t.Fatal(diff)
	}
}

func TestParseDetailsPartial(t *testing.T) {
	record := ParseDetails(parseFixture(t, "details_partial.html"))

	// a row with too few cells leaves the whole section unset
	require.Nil(t, record.CaseType)
	require.Nil(t, record.CnrNumber)

	// only the first row of a single row section is read
	require.Equal(t, ptr("15th March 2021"), record.FirstHearingDate)
	require.Equal(t, ptr(""), record.DecisionDate)
	require.Equal(t, ptr("Case pending"), record.CaseStatus)

	require.Nil(t, record.PoliceStation)

	require.NotNil(t, record.CaseHistory)
	require.Empty(t, record.CaseHistory)
	require.Equal(t, []Act{{UnderAct: "Specific Relief Act", UnderSection: "38"}}, record.Acts)
	require.Nil(t, record.Orders)
	require.Nil(t, record.ProcessDetails)

	require.Equal(t, []string{"1) Mary Thomas"}, record.Petitioners)
	require.Nil(t, record.Respondents)
}

func TestParseDetailsNestedTable(t *testing.T) {
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(`
		<table class="layout"><tr><td>
			<table class="data-table-1">
				<caption>Case Details</caption>
				<tbody>
					<tr><td>OS</td><td>100/2021</td><td>01-02-2021</td><td>120/2021</td><td>03-02-2021</td><td>KLER010012342021</td></tr>
				</tbody>
			</table>
		</td></tr></table>
	`))
	require.NoError(t, err)

	record := ParseDetails(doc)
	require.Equal(t, ptr("OS"), record.CaseType)
	require.Equal(t, ptr("KLER010012342021"), record.CnrNumber)
}

func TestParseDetailsHistoryPresence(t *testing.T) {
	empty := ParseDetails(parseFixture(t, "details_partial.html"))
	absent := ParseDetails(parseFixture(t, "search_results_empty.html"))

	require.NotNil(t, empty.CaseHistory)
	require.Len(t, empty.CaseHistory, 0)
	require.Nil(t, absent.CaseHistory)

	emptyJson, err := json.Marshal(empty)
	require.NoError(t, err)
	absentJson, err := json.Marshal(absent)
	require.NoError(t, err)
	require.Contains(t, string(emptyJson), `"case_history":[]`)
	require.NotContains(t, string(absentJson), "case_history")
	require.Equal(t, "{}", string(absentJson))
}

func TestParseDetailsOrders(t *testing.T) {
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(`
		<table>
			<caption>Orders</caption>
			<tbody>
				<tr><td>1</td><td>20-01-2024</td><td><a href="/f.pdf">Order 1</a></td></tr>
				<tr><td>2</td><td>22-01-2024</td><td> Disposed </td></tr>
				<tr><td>3</td><td>23-01-2024</td><td><a name="anchor">Copy</a> pending</td></tr>
			</tbody>
		</table>
	`))
	require.NoError(t, err)

	record := ParseDetails(doc)
	require.Equal(t, []Order{
		{OrderNumber: "1", OrderDate: "20-01-2024", OrderDetails: "Order 1", DownloadLink: ptr("/f.pdf")},
		{OrderNumber: "2", OrderDate: "22-01-2024", OrderDetails: "Disposed"},
		{OrderNumber: "3", OrderDate: "23-01-2024", OrderDetails: "Copy pending"},
	}, record.Orders)
}

func TestCaseRecordJSON(t *testing.T) {
	record := fullRecord()
	record.Acts = []Act{}
	record.FirNumber = nil

	encoded, err := json.Marshal(record)
	require.NoError(t, err)
	require.Contains(t, string(encoded), `"acts":[]`)
	require.Contains(t, string(encoded), `"download_link":"/f.pdf"`)
	require.NotContains(t, string(encoded), "fir_number")

	var decoded CaseRecord
	require.NoError(t, json.Unmarshal(encoded, &decoded))
	require.Equal(t, record, decoded)
	require.NotNil(t, decoded.Acts)
	require.Nil(t, decoded.FirNumber)
}
