package directory

import (
	"bytes"
	"context"
	"fmt"
	"log/slog"
	"net/url"
	"time"

	"ecourts-backend/lib/htmlutil"
	"ecourts-backend/lib/telemetry"

	"github.com/PuerkitoBio/goquery"
	"github.com/go-resty/resty/v2"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"golang.org/x/time/rate"
)

var tracer = telemetry.Tracer("ecourts.lib.directory")

// DefaultIndexUrl lists every state, each state page lists its districts.
const DefaultIndexUrl = "https://ecourts.gov.in/ecourts_home/index.php"

const listSelector = "ul.state-district"

type CrawlerOptions struct {
	// defaults to DefaultIndexUrl
	IndexUrl string
	// pages fetched per second, defaults to 2
	RequestsPerSecond float64
	// defaults to 30s
	Timeout time.Duration
}

// Crawler builds a Directory from the national ecourts site.
type Crawler struct {
	index   *url.URL
	http    *resty.Client
	limiter *rate.Limiter
}

func NewCrawler(opts CrawlerOptions) (*Crawler, error) {
	indexUrl := opts.IndexUrl
	if indexUrl == "" {
		indexUrl = DefaultIndexUrl
	}
	index, err := url.Parse(indexUrl)
	if err != nil {
		return nil, err
	}
	perSecond := opts.RequestsPerSecond
	if perSecond <= 0 {
		perSecond = 2
	}
	timeout := opts.Timeout
	if timeout <= 0 {
		timeout = time.Second * 30
	}

	client := resty.New()
	client.SetTimeout(timeout)
	client.SetHeader("User-Agent", "Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/138.0.0.0 Safari/537.36")
	telemetry.InstrumentResty(client, "ecourts.lib.directory/http")

	return &Crawler{
		index:   index,
		http:    client,
		limiter: rate.NewLimiter(rate.Limit(perSecond), 1),
	}, nil
}

// links fetches a page and returns the anchors of its state/district list,
// hrefs are resolved against the page's url.
func (c *Crawler) links(ctx context.Context, page *url.URL) ([]htmlutil.Anchor, error) {
	err := c.limiter.Wait(ctx)
	if err != nil {
		return nil, err
	}

	res, err := c.http.R().
		SetContext(ctx).
		Get(page.String())
	if err != nil {
		return nil, err
	}
	if !res.IsSuccess() {
		return nil, fmt.Errorf("get %s: status %d", page, res.StatusCode())
	}

	doc, err := goquery.NewDocumentFromReader(bytes.NewBuffer(res.Body()))
	if err != nil {
		return nil, err
	}
	list := doc.Find(listSelector).First()
	if list.Length() == 0 {
		return nil, fmt.Errorf("no %s on %s", listSelector, page)
	}

	var out []htmlutil.Anchor
	for _, a := range htmlutil.GetAnchors(ctx, list.Find("li a[href]")) {
		if a.Name == "" {
			continue
		}
		href, err := page.Parse(a.Href)
		if err != nil {
			slog.WarnContext(ctx, "skipping unparsable link", "page", page.String(), "href", a.Href, "err", err)
			continue
		}
		out = append(out, htmlutil.Anchor{Name: a.Name, Href: href.String()})
	}
	return out, nil
}

// Crawl fetches the state index and every state's district list. A state
// whose page cannot be read is kept with no districts.
func (c *Crawler) Crawl(ctx context.Context) (Directory, error) {
	ctx, span := tracer.Start(ctx, "Crawl")
	defer span.End()

	states, err := c.links(ctx, c.index)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "failed to read state index")
		return nil, err
	}

	dir := Directory{}
	for _, state := range states {
		dir[state.Name] = State{
			Url:       state.Href,
			Districts: c.districts(ctx, state),
		}
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}
	}

	stateCount, districtCount := dir.Count()
	span.SetAttributes(
		attribute.Int("states", stateCount),
		attribute.Int("districts", districtCount),
	)
	slog.InfoContext(ctx, "crawled court directory", "states", stateCount, "districts", districtCount)
	return dir, nil
}

func (c *Crawler) districts(ctx context.Context, state htmlutil.Anchor) map[string]District {
	ctx, span := tracer.Start(ctx, "Crawl:districts")
	defer span.End()
	span.SetAttributes(attribute.String("state", state.Name))

	districts := map[string]District{}

	page, err := url.Parse(state.Href)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "invalid state url")
		return districts
	}
	links, err := c.links(ctx, page)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "failed to read districts")
		slog.WarnContext(ctx, "failed to read districts", "state", state.Name, "url", state.Href, "err", err)
		return districts
	}

	for _, link := range links {
		districts[link.Name] = District{
			CourtUrl: link.Href,
			State:    state.Name,
		}
	}
	return districts
}
