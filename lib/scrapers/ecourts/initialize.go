package ecourts

import (
	"bytes"
	"context"
	"fmt"
	"log/slog"
	"net/url"
	"strconv"
	"time"

	"ecourts-backend/lib/htmlutil"

	"github.com/PuerkitoBio/goquery"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
)

// Initialize performs the handshake the portal's own search page performs and
// replaces the client's session with the result. It must succeed before any
// other call. Calling it again starts a brand new session.
func (c *Client) Initialize(ctx context.Context) error {
	ctx, span := tracer.Start(ctx, "client:Initialize")
	defer span.End()
	span.SetAttributes(attribute.String("base_url", c.base))

	session, err := newSession()
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "failed to create cookie jar")
		return err
	}
	c.Session = session
	c.Http.SetCookieJar(session.Jar)

	err = c.initialize(ctx)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "failed to initialize session")
		slog.WarnContext(ctx, "portal session initialization failed", "base_url", c.base, "err", err)
		// nothing from a half finished handshake is kept
		c.Session = session
		return err
	}

	slog.InfoContext(
		ctx, "portal session initialized",
		"base_url", c.base,
		"tokens", len(c.Session.Tokens),
		"court_complexes", len(c.Session.CourtComplexes),
		"captcha", c.Session.CaptchaUrl != "",
	)
	return nil
}

func (c *Client) initialize(ctx context.Context) error {
	res, err := c.Http.R().
		SetContext(ctx).
		SetHeaders(navigationHeaders).
		Get(c.endpoint(searchPagePath))
	if err != nil {
		return fmt.Errorf("%w: load search page: %s", ErrTransport, err.Error())
	}
	if !res.IsSuccess() {
		return fmt.Errorf("%w: load search page: status %d", ErrTransport, res.StatusCode())
	}

	doc, err := goquery.NewDocumentFromReader(bytes.NewBuffer(res.Body()))
	if err != nil {
		return fmt.Errorf("%w: parse search page: %s", ErrProtocol, err.Error())
	}

	tokens := htmlutil.HiddenInputs(doc.Selection, []string{tokenPrefix}, []string{scidTokenName})
	if len(tokens) == 0 {
		return fmt.Errorf("%w: no dynamic tokens on the search page, the page structure may have changed", ErrProtocol)
	}
	c.Session.Tokens = ExtraFields(tokens)

	// the response only matters for the session cookie it sets
	_, err = c.postAjax(ctx, actionLangCookie, map[string]string{
		"time": strconv.FormatInt(time.Now().Unix(), 10),
		"lang": "en",
	})
	if err != nil {
		return fmt.Errorf("establish session cookie: %w", err)
	}

	sel := doc.Find(courtSelect)
	if sel.Length() == 0 {
		return fmt.Errorf("%w: no court complex select on the search page", ErrProtocol)
	}
	c.Session.CourtComplexes = Catalog(htmlutil.Options(sel.First(), nil))

	scid, ok := tokens[scidTokenName]
	if ok {
		c.Session.CaptchaUrl = c.endpoint(captchaPath + url.QueryEscape(scid))
	}

	return nil
}
