package ecourts

import (
	"context"
	"log/slog"
	"strings"

	"ecourts-backend/lib/htmlutil"

	"github.com/PuerkitoBio/goquery"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
)

// CaseTypes fetches the case types of a court complex and caches them on the
// session. Every failure short of an uninitialized session yields an empty
// catalog, which callers should read as "no case types available".
func (c *Client) CaseTypes(ctx context.Context, courtComplex string) (Catalog, error) {
	ctx, span := tracer.Start(ctx, "client:CaseTypes")
	defer span.End()
	span.SetAttributes(attribute.String("court_complex", courtComplex))

	if !c.Session.Initialized() {
		span.SetStatus(codes.Error, ErrNotInitialized.Error())
		return Catalog{}, ErrNotInitialized
	}

	payload := c.Session.Tokens.Merge(map[string]string{
		"est_code":        courtComplex,
		"service_type":    "courtComplex",
		"es_ajax_request": "1",
	})
	env, err := c.postAjaxEnvelope(ctx, actionCaseTypes, payload)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "failed to fetch case types")
		slog.WarnContext(ctx, "failed to fetch case types", "court_complex", courtComplex, "err", err)
		return Catalog{}, nil
	}
	if !env.Success {
		span.SetStatus(codes.Error, "portal reported failure")
		slog.WarnContext(ctx, "portal refused case types", "court_complex", courtComplex)
		return Catalog{}, nil
	}
	fragment, err := env.html()
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "failed to read case types")
		slog.WarnContext(ctx, "failed to read case types", "court_complex", courtComplex, "err", err)
		return Catalog{}, nil
	}

	caseTypes := ParseCaseTypes(fragment)
	c.Session.CaseTypes = caseTypes
	c.Session.CaseTypesScope = courtComplex

	span.SetAttributes(attribute.Int("case_types", len(caseTypes)))
	return caseTypes, nil
}

// ParseCaseTypes reads an html fragment of <option> elements, options whose
// value is not a plain integer (placeholders like "Select Case Type") are
// dropped.
func ParseCaseTypes(fragment string) Catalog {
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(fragment))
	if err != nil {
		return Catalog{}
	}
	return Catalog(htmlutil.Options(doc.Selection, htmlutil.IsDigits))
}
