// Package ecourts scrapes case status records from the S3WaaS district court
// portals (<district>.dcourts.gov.in).
//
// The portals have no API. A session is bootstrapped by loading the search page,
// which hands out per-page `tok_*` hidden inputs and a `scid` used for the
// captcha. Every later step goes through wp-admin/admin-ajax.php, multiplexed by
// an `action` field, and must echo the tokens back together with the cookies
// the server set along the way:
//
//  1. Initialize      GET search page, POST s3waas_pll_lang_cookie
//  2. CaseTypes       POST get_case_types
//  3. FindCase        POST get_cases (captcha gated) -> CINO
//  4. Details         POST get_cnr_details -> HTML document -> CaseRecord
//
// A Client holds exactly one session and is not safe for concurrent use.
package ecourts

import (
	"errors"

	"ecourts-backend/lib/telemetry"
)

var tracer = telemetry.Tracer("ecourts.lib.scrapers.ecourts")

var (
	// ErrNotInitialized is returned by token dependent calls before a
	// successful Initialize.
	ErrNotInitialized = errors.New("portal session is not initialized")
	// ErrTransport wraps connection failures, timeouts and non-2xx statuses.
	ErrTransport = errors.New("portal request failed")
	// ErrProtocol means the portal answered with markup or json the scraper
	// does not understand, usually because the portal changed.
	ErrProtocol = errors.New("unexpected portal response")
	// ErrNoCaptcha is returned when the search page did not hand out a scid.
	ErrNoCaptcha = errors.New("captcha is unavailable for this session")
)

const (
	searchPagePath = "/case-status-search-by-case-number/"
	ajaxPath       = "/wp-admin/admin-ajax.php"
	captchaPath    = "/?_siwp_captcha&id="
)

const (
	actionLangCookie = "s3waas_pll_lang_cookie"
	actionCaseTypes  = "get_case_types"
	actionCases      = "get_cases"
	actionDetails    = "get_cnr_details"
)

const (
	tokenPrefix   = "tok_"
	scidTokenName = "scid"
	courtSelect   = "select[name=est_code]"
)

// file names used for the raw html handed to the diagnostics output
const (
	searchDiagnostic  = "search_response.html"
	detailsDiagnostic = "case_details_response.html"
)

const userAgent = "Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/138.0.0.0 Safari/537.36"

// sent with every request
var browserHeaders = map[string]string{
	"User-Agent":         userAgent,
	"Accept-Language":    "en-US,en-IN;q=0.9,en;q=0.8",
	"DNT":                "1",
	"sec-ch-ua":          `"Not)A;Brand";v="8", "Chromium";v="138", "Google Chrome";v="138"`,
	"sec-ch-ua-mobile":   "?0",
	"sec-ch-ua-platform": `"Windows"`,
}

// top level page load
var navigationHeaders = map[string]string{
	"Accept":                    "text/html,application/xhtml+xml,application/xml;q=0.9,image/avif,image/webp,image/apng,*/*;q=0.8,application/signed-exchange;v=b3;q=0.7",
	"Upgrade-Insecure-Requests": "1",
	"Sec-Fetch-Dest":            "document",
	"Sec-Fetch-Mode":            "navigate",
	"Sec-Fetch-Site":            "none",
	"Sec-Fetch-User":            "?1",
}
