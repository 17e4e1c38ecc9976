// Package ecourtstest runs an in-memory district court portal for tests.
package ecourtstest

import (
	"embed"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"net/url"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

// the portal's protocol, duplicated so the fake stays independent of the
// scraper it tests
const (
	SearchPagePath = "/case-status-search-by-case-number/"
	AjaxPath       = "/wp-admin/admin-ajax.php"

	ActionLangCookie = "s3waas_pll_lang_cookie"
	ActionCaseTypes  = "get_case_types"
	ActionCases      = "get_cases"
	ActionDetails    = "get_cnr_details"
)

// SessionCookie is set by the search page.
const SessionCookie = "PHPSESSID=session-1"

// CaptchaImage is served for every captcha request.
var CaptchaImage = []byte("\x89PNG\r\n\x1a\nfake-captcha")

//go:embed testdata
var testdata embed.FS

// Fixture returns one of the html files under testdata/.
func Fixture(t testing.TB, name string) string {
	contents, err := testdata.ReadFile("testdata/" + name)
	require.NoError(t, err)
	return string(contents)
}

// Envelope encodes an admin-ajax.php response, a nil data is left out.
func Envelope(t testing.TB, success bool, data any) string {
	body := map[string]any{"success": success}
	if data != nil {
		body["data"] = data
	}
	out, err := json.Marshal(body)
	require.NoError(t, err)
	return string(out)
}

// Portal imitates the parts of a district court site the scraper talks to.
// responses to admin-ajax.php are looked up by action.
type Portal struct {
	*httptest.Server

	mu         sync.Mutex
	searchPage string
	pageStatus int
	ajax       map[string]string
	requests   map[string][]url.Values
	cookies    map[string][]string
	captchaIds []string
	delay      time.Duration
}

// NewPortal starts a portal serving the search_page.html fixture, it is
// closed when the test ends.
func NewPortal(t testing.TB) *Portal {
	p := &Portal{
		searchPage: Fixture(t, "search_page.html"),
		pageStatus: http.StatusOK,
		ajax: map[string]string{
			ActionLangCookie: "1",
		},
		requests: map[string][]url.Values{},
		cookies:  map[string][]string{},
	}

	mux := http.NewServeMux()
	mux.HandleFunc(SearchPagePath, p.handleSearchPage)
	mux.HandleFunc(AjaxPath, p.handleAjax)
	mux.HandleFunc("/", p.handleCaptcha)

	p.Server = httptest.NewServer(mux)
	t.Cleanup(p.Close)
	return p
}

// wait holds a response back by the configured delay.
func (p *Portal) wait() {
	p.mu.Lock()
	delay := p.delay
	p.mu.Unlock()
	time.Sleep(delay)
}

func (p *Portal) handleSearchPage(w http.ResponseWriter, r *http.Request) {
	p.wait()

	p.mu.Lock()
	defer p.mu.Unlock()

	http.SetCookie(w, &http.Cookie{Name: "PHPSESSID", Value: "session-1", Path: "/"})
	w.Header().Set("Content-Type", "text/html; charset=UTF-8")
	w.WriteHeader(p.pageStatus)
	w.Write([]byte(p.searchPage))
}

func (p *Portal) handleAjax(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		w.WriteHeader(http.StatusMethodNotAllowed)
		return
	}
	err := r.ParseForm()
	if err != nil {
		w.WriteHeader(http.StatusBadRequest)
		return
	}
	p.wait()

	p.mu.Lock()
	defer p.mu.Unlock()

	action := r.PostForm.Get("action")
	p.requests[action] = append(p.requests[action], r.PostForm)
	p.cookies[action] = append(p.cookies[action], r.Header.Get("Cookie"))

	if action == ActionLangCookie {
		http.SetCookie(w, &http.Cookie{Name: "pll_language", Value: r.PostForm.Get("lang"), Path: "/"})
	}
	body, ok := p.ajax[action]
	if !ok {
		// what wordpress answers for an unknown action
		w.Write([]byte("0"))
		return
	}
	w.Header().Set("Content-Type", "application/json; charset=UTF-8")
	w.Write([]byte(body))
}

func (p *Portal) handleCaptcha(w http.ResponseWriter, r *http.Request) {
	if !r.URL.Query().Has("_siwp_captcha") {
		w.WriteHeader(http.StatusNotFound)
		return
	}
	p.mu.Lock()
	p.captchaIds = append(p.captchaIds, r.URL.Query().Get("id"))
	p.mu.Unlock()

	w.Header().Set("Content-Type", "image/png")
	w.Write(CaptchaImage)
}

// Respond sets the body returned for an action.
func (p *Portal) Respond(action, body string) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.ajax[action] = body
}

// SetDelay holds back every search page and admin-ajax.php response.
func (p *Portal) SetDelay(delay time.Duration) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.delay = delay
}

// SetSearchPage replaces the search page and its status code.
func (p *Portal) SetSearchPage(status int, page string) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.pageStatus = status
	p.searchPage = page
}

// Received returns the forms posted for an action, oldest first.
func (p *Portal) Received(action string) []url.Values {
	p.mu.Lock()
	defer p.mu.Unlock()
	return append([]url.Values(nil), p.requests[action]...)
}

// CookieHeaders returns the Cookie header of every request for an action.
func (p *Portal) CookieHeaders(action string) []string {
	p.mu.Lock()
	defer p.mu.Unlock()
	return append([]string(nil), p.cookies[action]...)
}

// CaptchaRequests returns the id of every captcha requested.
func (p *Portal) CaptchaRequests() []string {
	p.mu.Lock()
	defer p.mu.Unlock()
	return append([]string(nil), p.captchaIds...)
}

// RespondWithCase makes the portal find the case in search_results.html and
// answer with details_full.html.
func (p *Portal) RespondWithCase(t testing.TB) {
	p.Respond(ActionCaseTypes, Envelope(t, true, `<option value="">Select Case Type</option><option value="12">OS - Original Suit</option>`))
	p.Respond(ActionCases, Envelope(t, true, Fixture(t, "search_results.html")))
	p.Respond(ActionDetails, Envelope(t, true, Fixture(t, "details_full.html")))
}
