package ecourts

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"ecourts-backend/lib/htmlutil"

	"github.com/PuerkitoBio/goquery"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
)

// Details fetches the full record of a case.
func (c *Client) Details(ctx context.Context, cino CINO) (CaseRecord, error) {
	ctx, span := tracer.Start(ctx, "client:Details")
	defer span.End()
	span.SetAttributes(attribute.String("cino", string(cino)))

	if !c.Session.Initialized() {
		span.SetStatus(codes.Error, ErrNotInitialized.Error())
		return CaseRecord{}, ErrNotInitialized
	}

	// unlike the other actions, this one is not token gated
	env, err := c.postAjaxEnvelope(ctx, actionDetails, map[string]string{
		"cino":            string(cino),
		"es_ajax_request": "1",
	})
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "failed to fetch details")
		slog.WarnContext(ctx, "failed to fetch case details", "cino", cino, "err", err)
		return CaseRecord{}, err
	}
	document, err := env.html()
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "failed to read details")
		return CaseRecord{}, err
	}
	if strings.TrimSpace(document) == "" {
		span.SetStatus(codes.Error, "empty details document")
		return CaseRecord{}, fmt.Errorf("%w: details of %s are empty", ErrProtocol, cino)
	}
	c.diagnostics.Write(detailsDiagnostic, document)

	doc, err := goquery.NewDocumentFromReader(strings.NewReader(document))
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "failed to parse details")
		return CaseRecord{}, fmt.Errorf("%w: parse details: %s", ErrProtocol, err.Error())
	}
	return ParseDetails(doc), nil
}

// section describes how one captioned table maps onto a CaseRecord.
type section struct {
	caption string
	// rows with fewer cells are skipped
	cells int
	// multi row sections read every row, the others only the first
	multi bool
	// start runs once the table is found, before any row
	start func(r *CaseRecord)
	row   func(r *CaseRecord, cells []*goquery.Selection)
}

var sections = []section{
	{
		caption: "Case Details",
		cells:   6,
		row: func(r *CaseRecord, cells []*goquery.Selection) {
			r.CaseType = text(cells[0])
			r.FilingNumber = text(cells[1])
			r.FilingDate = text(cells[2])
			r.RegistrationNumber = text(cells[3])
			r.RegistrationDate = text(cells[4])
			r.CnrNumber = text(cells[5])
		},
	},
	{
		caption: "Case Status",
		cells:   5,
		row: func(r *CaseRecord, cells []*goquery.Selection) {
			r.FirstHearingDate = text(cells[0])
			r.DecisionDate = text(cells[1])
			r.CaseStatus = text(cells[2])
			r.NatureOfDisposal = text(cells[3])
			r.CourtNumberAndJudge = text(cells[4])
		},
	},
	{
		caption: "FIR Details",
		cells:   3,
		row: func(r *CaseRecord, cells []*goquery.Selection) {
			r.PoliceStation = text(cells[0])
			r.FirNumber = text(cells[1])
			r.FirYear = text(cells[2])
		},
	},
	{
		caption: "Case History",
		cells:   5,
		multi:   true,
		start:   func(r *CaseRecord) { r.CaseHistory = []HistoryEntry{} },
		row: func(r *CaseRecord, cells []*goquery.Selection) {
			// the business date links to that day's proceedings
			businessDate := htmlutil.Text(cells[2])
			link := cells[2].Find("a").First()
			if link.Length() > 0 {
				businessDate = htmlutil.Text(link)
			}
			r.CaseHistory = append(r.CaseHistory, HistoryEntry{
				RegistrationNumber: htmlutil.Text(cells[0]),
				Judge:              htmlutil.Text(cells[1]),
				BusinessDate:       businessDate,
				HearingDate:        htmlutil.Text(cells[3]),
				Purpose:            htmlutil.Text(cells[4]),
			})
		},
	},
	{
		caption: "Acts",
		cells:   2,
		multi:   true,
		start:   func(r *CaseRecord) { r.Acts = []Act{} },
		row: func(r *CaseRecord, cells []*goquery.Selection) {
			r.Acts = append(r.Acts, Act{
				UnderAct:     htmlutil.Text(cells[0]),
				UnderSection: htmlutil.Text(cells[1]),
			})
		},
	},
	{
		caption: "Orders",
		cells:   3,
		multi:   true,
		start:   func(r *CaseRecord) { r.Orders = []Order{} },
		row: func(r *CaseRecord, cells []*goquery.Selection) {
			order := Order{
				OrderNumber:  htmlutil.Text(cells[0]),
				OrderDate:    htmlutil.Text(cells[1]),
				OrderDetails: htmlutil.Text(cells[2]),
			}
			link := cells[2].Find("a[href]").First()
			if link.Length() > 0 {
				href, _ := link.Attr("href")
				order.DownloadLink = &href
				order.OrderDetails = htmlutil.Text(link)
			}
			r.Orders = append(r.Orders, order)
		},
	},
	{
		caption: "Process Details",
		cells:   5,
		multi:   true,
		start:   func(r *CaseRecord) { r.ProcessDetails = []ProcessEntry{} },
		row: func(r *CaseRecord, cells []*goquery.Selection) {
			r.ProcessDetails = append(r.ProcessDetails, ProcessEntry{
				ProcessId:     htmlutil.Text(cells[0]),
				ProcessDate:   htmlutil.Text(cells[1]),
				ProcessTitle:  htmlutil.Text(cells[2]),
				PartyName:     htmlutil.Text(cells[3]),
				IssuedProcess: htmlutil.Text(cells[4]),
			})
		},
	},
}

func text(sel *goquery.Selection) *string {
	s := htmlutil.Text(sel)
	return &s
}

// party lists are not tables, they are a heading followed by a container
// holding one list item per party.
type partySection struct {
	heading   string
	container string
	assign    func(r *CaseRecord, parties []string)
}

var partySections = []partySection{
	{
		heading:   "Petitioner and Advocate",
		container: "div.Petitioner",
		assign:    func(r *CaseRecord, parties []string) { r.Petitioners = parties },
	},
	{
		heading:   "Respondent and Advocate",
		container: "div.respondent",
		assign:    func(r *CaseRecord, parties []string) { r.Respondents = parties },
	},
}

// ParseDetails extracts a CaseRecord from a details document. Every section
// is optional, whatever cannot be found is left unset.
func ParseDetails(doc *goquery.Document) CaseRecord {
	var record CaseRecord
	for _, s := range sections {
		s.parse(doc.Selection, &record)
	}
	for _, p := range partySections {
		p.parse(doc.Selection, &record)
	}
	return record
}

func (s section) parse(doc *goquery.Selection, r *CaseRecord) {
	table := htmlutil.CaptionedTable(doc, s.caption)
	if table.Length() == 0 {
		return
	}
	if s.start != nil {
		s.start(r)
	}

	rows := table.ChildrenFiltered("tbody").ChildrenFiltered("tr")
	if !s.multi {
		rows = rows.First()
	}
	rows.Each(func(_ int, row *goquery.Selection) {
		cells := htmlutil.Cells(row)
		if len(cells) < s.cells {
			return
		}
		s.row(r, cells)
	})
}

func (p partySection) parse(doc *goquery.Selection, r *CaseRecord) {
	heading := htmlutil.FindByText(doc, "h5", p.heading)
	if heading.Length() == 0 {
		return
	}
	container := htmlutil.NextMatching(heading, p.container)
	list := container.Find("ul").First()
	if list.Length() == 0 {
		return
	}

	parties := []string{}
	list.Find("li").Each(func(_ int, item *goquery.Selection) {
		// the party name is in a <p>, advocates and addresses follow it
		name := item.Find("p").First()
		if name.Length() == 0 {
			name = item
		}
		party := htmlutil.Text(name)
		if party != "" {
			parties = append(parties, party)
		}
	})
	p.assign(r, parties)
}
