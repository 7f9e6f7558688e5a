package httpregistry

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"net/http"
	"time"
)

type client struct {
	*http.Client
}

func newHTTPClient(requestTimeout time.Duration) *client {
	return &client{&http.Client{Timeout: requestTimeout}}
}

func (c *client) get(
	ctx context.Context, url string, header map[string]string,
) (int, []byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return 0, nil, err
	}
	return c.doRequest(req, header)
}

func (c *client) post(
	ctx context.Context, url string, body interface{}, header map[string]string,
) (int, []byte, error) {
	buf, err := json.Marshal(body)
	if err != nil {
		return 0, nil, err
	}
	req, err := http.NewRequestWithContext(
		ctx, http.MethodPost, url, bytes.NewReader(buf),
	)
	if err != nil {
		return 0, nil, err
	}
	req.Header.Set("Content-Type", "application/json")
	return c.doRequest(req, header)
}

func (c *client) doRequest(
	req *http.Request, header map[string]string,
) (int, []byte, error) {
	for key, value := range header {
		req.Header.Set(key, value)
	}

	rs, err := c.Do(req)
	if err != nil {
		return 0, nil, err
	}
	defer rs.Body.Close()

	body, err := io.ReadAll(rs.Body)
	if err != nil {
		return -1, nil, err
	}
	return rs.StatusCode, body, nil
}
