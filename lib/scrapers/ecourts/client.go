package ecourts

import (
	"fmt"
	"net/http"
	"net/http/cookiejar"
	"net/url"
	"sort"
	"strings"
	"time"

	"ecourts-backend/lib/restyutil"
	"ecourts-backend/lib/telemetry"
	"ecourts-backend/lib/textutil"

	cloudflarebp "github.com/DaRealFreak/cloudflare-bp-go"
	"github.com/go-resty/resty/v2"
)

// DefaultTimeout bounds every single request made to the portal.
const DefaultTimeout = time.Second * 15

// ExtraFields are form fields merged into an outgoing payload on top of the
// fields the request builder sets itself.
type ExtraFields map[string]string

// Merge copies every field into payload, overwriting fields of the same name.
func (f ExtraFields) Merge(payload map[string]string) map[string]string {
	for k, v := range f {
		payload[k] = v
	}
	return payload
}

// Catalog maps a human readable label to the code the portal expects.
type Catalog map[string]string

// Labels returns the labels sorted alphabetically.
func (c Catalog) Labels() []string {
	labels := make([]string, 0, len(c))
	for label := range c {
		labels = append(labels, label)
	}
	sort.Strings(labels)
	return labels
}

// Lookup finds the code for a label or a code. Labels only match exactly or
// after NormalizeName, a value that is merely similar to a label is not found.
func (c Catalog) Lookup(labelOrCode string) (label string, code string, ok bool) {
	if code, ok := c[labelOrCode]; ok {
		return labelOrCode, code, true
	}
	for l, code := range c {
		if code != "" && code == labelOrCode {
			return l, code, true
		}
	}
	normalized := textutil.NormalizeName(labelOrCode)
	for _, l := range c.Labels() {
		if textutil.NormalizeName(l) == normalized {
			return l, c[l], true
		}
	}
	return "", "", false
}

// Resolve is Lookup that falls back to the most similar label, tolerating
// small typos. The label it picked should be shown to whoever typed the value.
func (c Catalog) Resolve(labelOrCode string) (label string, code string, ok bool) {
	label, code, ok = c.Lookup(labelOrCode)
	if ok {
		return label, code, true
	}
	match, ok := textutil.BestMatch(labelOrCode, c.Labels())
	if !ok {
		return "", "", false
	}
	return match, c[match], true
}

// Session is everything the portal associates with one browsing session.
// it is reset by every call to Initialize.
type Session struct {
	Jar *cookiejar.Jar
	// Tokens are echoed back on every ajax call, they are assigned once by
	// Initialize and only read afterwards.
	Tokens         ExtraFields
	CaptchaUrl     string
	CourtComplexes Catalog
	// CaseTypes belong to the court complex in CaseTypesScope.
	CaseTypes      Catalog
	CaseTypesScope string
}

func newSession() (Session, error) {
	jar, err := cookiejar.New(nil)
	if err != nil {
		return Session{}, err
	}
	return Session{
		Jar:            jar,
		Tokens:         ExtraFields{},
		CourtComplexes: Catalog{},
		CaseTypes:      Catalog{},
	}, nil
}

func (s Session) Initialized() bool {
	return len(s.Tokens) > 0
}

type Client struct {
	BaseUrl *url.URL
	Http    *resty.Client
	Session Session

	base        string
	diagnostics restyutil.InstrumentOutput
}

type ClientOptions struct {
	BaseUrl string
	// defaults to DefaultTimeout
	Timeout time.Duration
	// wraps the transport so the TLS handshake looks like a browser's
	CloudflareBypass bool
	// receives the raw html returned by search and details calls, can be nil
	Diagnostics restyutil.InstrumentOutput
	// receives full request/response dumps while debug logging is enabled,
	// can be nil
	HttpDump restyutil.InstrumentOutput
}

func NewClient(opts ClientOptions) (*Client, error) {
	base := strings.TrimRight(strings.TrimSpace(opts.BaseUrl), "/")
	baseUrl, err := url.Parse(base)
	if err != nil {
		return nil, err
	}
	if baseUrl.Scheme != "http" && baseUrl.Scheme != "https" {
		return nil, fmt.Errorf("invalid portal url %q: expected an http(s) url", opts.BaseUrl)
	}

	session, err := newSession()
	if err != nil {
		return nil, err
	}

	timeout := opts.Timeout
	if timeout <= 0 {
		timeout = DefaultTimeout
	}

	client := resty.New()
	client.SetCookieJar(session.Jar)
	client.SetTimeout(timeout)
	client.SetHeaders(browserHeaders)
	client.SetRedirectPolicy(resty.DomainCheckRedirectPolicy(baseUrl.Hostname()))
	// retrying is left to the caller, a captcha is single-use
	client.SetRetryCount(0)
	if opts.CloudflareBypass {
		client.GetClient().Transport = cloudflarebp.AddCloudFlareByPass(http.DefaultTransport.(*http.Transport).Clone())
	}

	telemetry.InstrumentResty(client, "ecourts.lib.scrapers.ecourts/http")
	restyutil.InstrumentClient(client, "ecourts-", opts.HttpDump)

	diagnostics := opts.Diagnostics
	if diagnostics == nil {
		diagnostics = restyutil.DiscardOutput{}
	}

	return &Client{
		BaseUrl:     baseUrl,
		Http:        client,
		Session:     session,
		base:        base,
		diagnostics: diagnostics,
	}, nil
}

func (c *Client) endpoint(path string) string {
	return c.base + path
}

// CaptchaUrl is empty until Initialize found a scid token.
func (c *Client) CaptchaUrl() string {
	return c.Session.CaptchaUrl
}

// Cookies returns the cookies the session currently sends to the portal.
func (c *Client) Cookies() map[string]string {
	out := map[string]string{}
	for _, cookie := range c.Session.Jar.Cookies(c.BaseUrl) {
		out[cookie.Name] = cookie.Value
	}
	return out
}
