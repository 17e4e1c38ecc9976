package ecourts

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"github.com/PuerkitoBio/goquery"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
)

// FindCase submits a captcha gated search and returns the CINO of the first
// matching case.
//
// ok is false without an error when the portal answered but nothing matched,
// this is also what a wrong captcha looks like.
func (c *Client) FindCase(ctx context.Context, q CaseQuery) (cino CINO, ok bool, err error) {
	ctx, span := tracer.Start(ctx, "client:FindCase")
	defer span.End()
	span.SetAttributes(
		attribute.String("court_complex", q.CourtComplex),
		attribute.String("case_type", q.CaseType),
		attribute.String("case_number", q.CaseNumber),
		attribute.String("year", q.Year),
	)

	if !c.Session.Initialized() {
		span.SetStatus(codes.Error, ErrNotInitialized.Error())
		return "", false, ErrNotInitialized
	}

	env, err := c.postAjaxEnvelope(ctx, actionCases, c.Session.Tokens.Merge(q.payload()))
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "failed to search")
		slog.WarnContext(ctx, "case search failed", "court_complex", q.CourtComplex, "err", err)
		return "", false, err
	}
	if !env.Success {
		slog.InfoContext(ctx, "portal reported no results", "court_complex", q.CourtComplex)
		return "", false, nil
	}
	fragment, err := env.html()
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "failed to read search results")
		return "", false, err
	}
	c.diagnostics.Write(searchDiagnostic, fragment)

	cino, ok, err = parseSearchResults(fragment)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "failed to parse search results")
		return "", false, err
	}
	if !ok {
		slog.InfoContext(ctx, "no case in search results", "court_complex", q.CourtComplex)
		return "", false, nil
	}

	span.SetAttributes(attribute.String("cino", string(cino)))
	return cino, true, nil
}

func parseSearchResults(fragment string) (CINO, bool, error) {
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(fragment))
	if err != nil {
		return "", false, fmt.Errorf("%w: parse search results: %s", ErrProtocol, err.Error())
	}
	cno, ok := doc.Find("a[data-cno]").First().Attr("data-cno")
	if !ok || strings.TrimSpace(cno) == "" {
		return "", false, nil
	}
	return CINO(strings.TrimSpace(cno)), true, nil
}

// Search resolves a query to its case record, it is FindCase followed by
// Details. A nil record with a nil error means no case matched.
func (c *Client) Search(ctx context.Context, q CaseQuery) (*CaseRecord, error) {
	ctx, span := tracer.Start(ctx, "client:Search")
	defer span.End()

	cino, ok, err := c.FindCase(ctx, q)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "failed to find case")
		return nil, err
	}
	if !ok {
		return nil, nil
	}

	record, err := c.Details(ctx, cino)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "failed to fetch case details")
		return nil, err
	}
	return &record, nil
}
