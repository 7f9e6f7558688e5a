package main

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/tdex-network/tdex-escrow/pkg/jwtauth"
)

const (
	requestTimeout = 30 * time.Second
	tokenTTL       = time.Minute
)

// client talks JSON to escrowd and to the registries it hosts. Requests are
// signed as the configured account whenever an auth secret is set.
type client struct {
	baseURL    string
	account    string
	authSecret []byte
	httpClient *http.Client
}

func newClient(baseURL, account string, authSecret []byte) *client {
	if !strings.HasPrefix(baseURL, "http://") &&
		!strings.HasPrefix(baseURL, "https://") {
		baseURL = "http://" + baseURL
	}
	return &client{
		baseURL:    strings.TrimSuffix(baseURL, "/"),
		account:    account,
		authSecret: authSecret,
		httpClient: &http.Client{Timeout: requestTimeout},
	}
}

func (c *client) get(path string, resp interface{}) error {
	return c.do(http.MethodGet, path, nil, resp)
}

func (c *client) post(path string, body, resp interface{}) error {
	return c.do(http.MethodPost, path, body, resp)
}

func (c *client) delete(path string) error {
	return c.do(http.MethodDelete, path, nil, nil)
}

func (c *client) do(method, path string, body, resp interface{}) error {
	var reqBody io.Reader
	if body != nil {
		buf, err := json.Marshal(body)
		if err != nil {
			return err
		}
		reqBody = bytes.NewReader(buf)
	}

	req, err := http.NewRequestWithContext(
		context.Background(), method, c.baseURL+path, reqBody,
	)
	if err != nil {
		return err
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if len(c.authSecret) > 0 && len(c.account) > 0 {
		token, err := jwtauth.NewToken(c.authSecret, c.account, tokenTTL)
		if err != nil {
			return err
		}
		req.Header.Set("Authorization", "Bearer "+token)
	}

	res, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("unable to connect to escrowd: %w", err)
	}
	defer res.Body.Close()

	if res.StatusCode >= http.StatusBadRequest {
		errResp := struct {
			Error string `json:"error"`
		}{}
		if err := json.NewDecoder(res.Body).Decode(&errResp); err != nil ||
			len(errResp.Error) <= 0 {
			return fmt.Errorf("request failed with status %s", res.Status)
		}
		return errors.New(errResp.Error)
	}

	if resp == nil || res.StatusCode == http.StatusNoContent {
		return nil
	}
	return json.NewDecoder(res.Body).Decode(resp)
}
