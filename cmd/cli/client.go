package main

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"net/url"
	"path/filepath"
	"strings"
	"time"
)

// apiError is a non-2xx answer of the server.
type apiError struct {
	Status    int               `json:"-"`
	Message   string            `json:"error"`
	Details   string            `json:"details,omitempty"`
	Fields    map[string]string `json:"fields,omitempty"`
	Remaining *int              `json:"remaining,omitempty"`
}

func (e *apiError) Error() string {
	var b strings.Builder
	fmt.Fprintf(&b, "%d %s", e.Status, e.Message)
	if e.Details != "" {
		fmt.Fprintf(&b, ": %s", e.Details)
	}
	for k, v := range e.Fields {
		fmt.Fprintf(&b, "\n  %s: %s", k, v)
	}
	if e.Remaining != nil {
		fmt.Fprintf(&b, " (%d attempts remaining)", *e.Remaining)
	}
	return b.String()
}

type client struct {
	base     string
	hc       *http.Client
	token    string
	clientID string
}

func newClient(base string) *client {
	return &client{base: strings.TrimRight(base, "/"), hc: &http.Client{Timeout: 30 * time.Second}}
}

func (c *client) send(req *http.Request, out any) error {
	if c.token != "" {
		req.Header.Set("Authorization", "Bearer "+c.token)
	}
	if c.clientID != "" {
		req.Header.Set("X-Client-Id", c.clientID)
	}
	resp, err := c.hc.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 300 {
		ae := &apiError{Status: resp.StatusCode}
		b, _ := io.ReadAll(io.LimitReader(resp.Body, 64<<10))
		if json.Unmarshal(b, ae) != nil || ae.Message == "" {
			ae.Message = http.StatusText(resp.StatusCode)
		}
		return ae
	}
	if out == nil || resp.StatusCode == http.StatusNoContent {
		return nil
	}
	return json.NewDecoder(resp.Body).Decode(out)
}

// do sends body as JSON and decodes the answer into out when non-nil.
func (c *client) do(ctx context.Context, method, path string, body, out any) error {
	var rd io.Reader
	if body != nil {
		b, err := json.Marshal(body)
		if err != nil {
			return err
		}
		rd = bytes.NewReader(b)
	}
	req, err := http.NewRequestWithContext(ctx, method, c.base+path, rd)
	if err != nil {
		return err
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	return c.send(req, out)
}

// doRaw sends an already encoded JSON document.
func (c *client) doRaw(ctx context.Context, method, path string, doc []byte, out any) error {
	if !json.Valid(doc) {
		return fmt.Errorf("input is not valid JSON")
	}
	return c.do(ctx, method, path, json.RawMessage(doc), out)
}

func (c *client) upload(ctx context.Context, path, fileName string, data []byte, out any) error {
	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	fw, err := mw.CreateFormFile("file", filepath.Base(fileName))
	if err != nil {
		return err
	}
	if _, err = fw.Write(data); err != nil {
		return err
	}
	if err = mw.Close(); err != nil {
		return err
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.base+path, &buf)
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", mw.FormDataContentType())
	return c.send(req, out)
}

// listQuery builds /api/listings parameters, skipping blanks.
func listQuery(params map[string]string) string {
	q := url.Values{}
	for k, v := range params {
		if v = strings.TrimSpace(v); v != "" {
			q.Set(k, v)
		}
	}
	if len(q) == 0 {
		return ""
	}
	return "?" + q.Encode()
}
