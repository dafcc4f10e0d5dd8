package models

import (
	"io"
	"mime"
	"net/http"
	"strings"
)

// jsonGuard turns answers that cannot come from the model backend into
// ErrModelUnavailable: transport failures, error statuses, and bodies that
// are not JSON (a proxy page saying "no available server").
type jsonGuard struct {
	provider string
	next     http.RoundTripper
}

func newJSONGuard(provider string, next http.RoundTripper) *jsonGuard {
	if next == nil {
		next = http.DefaultTransport
	}
	return &jsonGuard{provider: provider, next: next}
}

func (g *jsonGuard) RoundTrip(req *http.Request) (*http.Response, error) {
	resp, err := g.next.RoundTrip(req)
	if err != nil {
		return nil, &ErrModelUnavailable{Provider: g.provider, Cause: err}
	}
	if resp.StatusCode >= http.StatusBadRequest || !isJSON(resp.Header.Get("Content-Type")) {
		return nil, g.reject(resp)
	}
	return resp, nil
}

func (g *jsonGuard) reject(resp *http.Response) error {
	defer resp.Body.Close()
	body, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
	return &ErrModelUnavailable{
		Provider: g.provider,
		Body:     strings.TrimSpace(string(body)),
	}
}

// isJSON accepts application/json, application/x-ndjson and a missing header.
func isJSON(contentType string) bool {
	if contentType == "" {
		return true
	}
	mt, _, err := mime.ParseMediaType(contentType)
	if err != nil {
		return false
	}
	return strings.HasSuffix(mt, "json")
}
