package write

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"

	"github.com/authzed/connector-scim/pkg/auth"
	"github.com/authzed/connector-scim/pkg/config"
)

const maxResponseBytes = 8 << 20

// RESTWriter sends rendered payloads to a REST destination.
type RESTWriter struct {
	dest   config.Destination
	tokens auth.TokenSource
	client *http.Client
}

var _ Writer = &RESTWriter{}

// NewRESTWriter returns a writer for dest. http.DefaultClient is used when
// client is nil.
func NewRESTWriter(dest config.Destination, tokens auth.TokenSource, client *http.Client) *RESTWriter {
	if client == nil {
		client = http.DefaultClient
	}
	if tokens == nil {
		tokens = auth.ConfigTokenSource{}
	}
	return &RESTWriter{dest: dest, tokens: tokens, client: client}
}

func (w *RESTWriter) Write(ctx context.Context, req *Request) (*Response, error) {
	method, err := httpMethod(req.Kind)
	if err != nil {
		return nil, err
	}
	target := strings.TrimRight(w.dest.BaseURL, "/") + "/" + strings.TrimLeft(expandPath(req.Path, req.ID), "/")

	var body io.Reader
	if req.Payload != nil && method != http.MethodGet && method != http.MethodDelete {
		encoded, err := json.Marshal(req.Payload)
		if err != nil {
			return nil, fmt.Errorf("encoding payload: %w", err)
		}
		body = bytes.NewReader(encoded)
	}

	httpReq, err := http.NewRequestWithContext(ctx, method, target, body)
	if err != nil {
		return nil, fmt.Errorf("creating request: %w", err)
	}
	httpReq.Header.Set("Accept", "application/json")
	if body != nil {
		httpReq.Header.Set("Content-Type", "application/json")
	}
	token, err := w.tokens.GetToken(ctx, w.dest.Auth, auth.Outbound)
	if err != nil {
		return nil, err
	}
	if token != "" {
		httpReq.Header.Set("Authorization", "Bearer "+token)
	}

	resp, err := w.client.Do(httpReq)
	if err != nil {
		return nil, fmt.Errorf("request to %s %s failed: %w", method, target, err)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseBytes))
	if err != nil {
		return nil, fmt.Errorf("reading response body: %w", err)
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, &DestinationError{Status: resp.StatusCode, Message: strings.TrimSpace(string(respBody))}
	}

	out := &Response{Status: resp.StatusCode}
	if len(bytes.TrimSpace(respBody)) == 0 {
		return out, nil
	}
	dec := json.NewDecoder(bytes.NewReader(respBody))
	dec.UseNumber()
	var doc any
	if err := dec.Decode(&doc); err != nil {
		return nil, fmt.Errorf("decoding response from %s %s: %w", method, target, err)
	}
	out.Documents = []any{doc}
	return out, nil
}

func httpMethod(kind config.RequestKind) (string, error) {
	switch kind {
	case config.RequestPost:
		return http.MethodPost, nil
	case config.RequestGet:
		return http.MethodGet, nil
	case config.RequestPut:
		return http.MethodPut, nil
	case config.RequestPatch:
		return http.MethodPatch, nil
	case config.RequestDelete:
		return http.MethodDelete, nil
	}
	return "", fmt.Errorf("unsupported request kind %q", kind)
}

// expandPath substitutes the escaped identifier for "{id}".
func expandPath(path, id string) string {
	return strings.ReplaceAll(path, "{id}", url.PathEscape(id))
}
