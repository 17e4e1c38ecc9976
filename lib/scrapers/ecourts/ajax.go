package ecourts

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/go-resty/resty/v2"
)

// envelope is the body of every admin-ajax.php response.
type envelope struct {
	Success bool            `json:"success"`
	Data    json.RawMessage `json:"data"`
}

// html returns data as a string, portals answer with `data: false` or leave
// it out entirely on some failures.
func (e envelope) html() (string, error) {
	if len(e.Data) == 0 || string(e.Data) == "null" {
		return "", nil
	}
	var out string
	err := json.Unmarshal(e.Data, &out)
	if err != nil {
		return "", fmt.Errorf("%w: data is not a string: %s", ErrProtocol, truncate(string(e.Data), 64))
	}
	return out, nil
}

func decodeEnvelope(body []byte) (envelope, error) {
	var env envelope
	err := json.Unmarshal(body, &env)
	if err != nil {
		return envelope{}, fmt.Errorf("%w: malformed json envelope: %s", ErrProtocol, err.Error())
	}
	return env, nil
}

// ajax headers, the portal rejects calls that do not look like they came
// from its own jquery. cookies are attached by the session's jar.
func (c *Client) ajaxHeaders() map[string]string {
	return map[string]string{
		"Accept":           "application/json, text/javascript, */*; q=0.01",
		"Content-Type":     "application/x-www-form-urlencoded; charset=UTF-8",
		"Origin":           c.base,
		"Referer":          c.endpoint(searchPagePath),
		"X-Requested-With": "XMLHttpRequest",
		"Sec-Fetch-Dest":   "empty",
		"Sec-Fetch-Mode":   "cors",
		"Sec-Fetch-Site":   "same-origin",
	}
}

// postAjax posts a form to admin-ajax.php. transport failures and non-2xx
// statuses are returned wrapped in ErrTransport.
func (c *Client) postAjax(ctx context.Context, action string, payload map[string]string) (*resty.Response, error) {
	payload["action"] = action

	res, err := c.Http.R().
		SetContext(ctx).
		SetHeaders(c.ajaxHeaders()).
		SetFormData(payload).
		Post(c.endpoint(ajaxPath))
	if err != nil {
		return nil, fmt.Errorf("%w: %s: %s", ErrTransport, action, err.Error())
	}
	if !res.IsSuccess() {
		return nil, fmt.Errorf("%w: %s: status %d", ErrTransport, action, res.StatusCode())
	}
	return res, nil
}

// postAjaxEnvelope is postAjax followed by decoding the json envelope.
func (c *Client) postAjaxEnvelope(ctx context.Context, action string, payload map[string]string) (envelope, error) {
	res, err := c.postAjax(ctx, action, payload)
	if err != nil {
		return envelope{}, err
	}
	return decodeEnvelope(res.Body())
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n] + "..."
}
