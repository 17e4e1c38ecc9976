package ecourts

import (
	"context"
	"fmt"

	"go.opentelemetry.io/otel/codes"
)

// Captcha downloads a fresh captcha image for the session. Each image is only
// good for a single search.
func (c *Client) Captcha(ctx context.Context) (image []byte, contentType string, err error) {
	ctx, span := tracer.Start(ctx, "client:Captcha")
	defer span.End()

	if c.Session.CaptchaUrl == "" {
		span.SetStatus(codes.Error, ErrNoCaptcha.Error())
		return nil, "", ErrNoCaptcha
	}

	res, err := c.Http.R().
		SetContext(ctx).
		SetHeader("Accept", "image/avif,image/webp,image/apng,image/svg+xml,image/*,*/*;q=0.8").
		SetHeader("Referer", c.endpoint(searchPagePath)).
		Get(c.Session.CaptchaUrl)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "failed to fetch captcha")
		return nil, "", fmt.Errorf("%w: captcha: %s", ErrTransport, err.Error())
	}
	if !res.IsSuccess() {
		span.SetStatus(codes.Error, "failed to fetch captcha")
		return nil, "", fmt.Errorf("%w: captcha: status %d", ErrTransport, res.StatusCode())
	}
	if len(res.Body()) == 0 {
		span.SetStatus(codes.Error, "empty captcha")
		return nil, "", fmt.Errorf("%w: captcha image is empty", ErrProtocol)
	}

	contentType = res.Header().Get("Content-Type")
	if contentType == "" {
		contentType = "image/png"
	}
	return res.Body(), contentType, nil
}
