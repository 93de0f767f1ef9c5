package importer

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/authzed/connector-scim/pkg/auth"
	"github.com/authzed/connector-scim/pkg/config"
	"github.com/authzed/connector-scim/pkg/correlate"
	"github.com/authzed/connector-scim/pkg/scim"
)

// Publisher hands a bulk request to whatever ingests it upstream.
type Publisher interface {
	Publish(ctx context.Context, req *scim.BulkRequest, correlationID string) error
}

// WriterPublisher prints bulk requests as indented JSON.
type WriterPublisher struct {
	out io.Writer
}

var _ Publisher = WriterPublisher{}

// NewWriterPublisher returns a publisher that writes to out.
func NewWriterPublisher(out io.Writer) WriterPublisher {
	return WriterPublisher{out: out}
}

func (p WriterPublisher) Publish(_ context.Context, req *scim.BulkRequest, _ string) error {
	data, err := json.MarshalIndent(req, "", "  ")
	if err != nil {
		return fmt.Errorf("encoding bulk request: %w", err)
	}
	_, err = fmt.Fprintln(p.out, string(data))
	return err
}

// NewBatchingPublisher will publish bulk requests in batches of at most
// batchSize operations
func NewBatchingPublisher(publisher Publisher, batchSize int) Publisher {
	if batchSize <= 0 {
		return publisher
	}
	return BatchingPublisher{
		publisher: publisher,
		batchSize: batchSize,
	}
}

// BatchingPublisher publishes in batches of batchSize operations. Every batch
// keeps the correlation id of the original request.
type BatchingPublisher struct {
	publisher Publisher
	batchSize int
}

func (p BatchingPublisher) Publish(ctx context.Context, req *scim.BulkRequest, correlationID string) error {
	for start := 0; start < len(req.Operations); start += p.batchSize {
		end := start + p.batchSize
		if end > len(req.Operations) {
			end = len(req.Operations)
		}
		batch := &scim.BulkRequest{
			Schemas:      req.Schemas,
			FailOnErrors: req.FailOnErrors,
			Operations:   req.Operations[start:end],
		}
		log.Debug().Str("correlation_id", correlationID).Int("start", start).Int("end", end).Msg("publishing batch")
		if err := p.publisher.Publish(ctx, batch, correlationID); err != nil {
			return err
		}
	}
	return nil
}

// Bus delivers an encoded bulk request to the upstream ingestion queue.
type Bus interface {
	Send(ctx context.Context, correlationID string, body []byte) error
}

// Ack is the reply upstream posts back once it has processed a bulk request.
type Ack struct {
	Status int    `json:"status"`
	Detail string `json:"detail,omitempty"`
}

// BusPublisher sends bulk requests over a Bus. With a Waiter it blocks until
// the correlated acknowledgement arrives or the timeout elapses.
type BusPublisher struct {
	bus     Bus
	waiter  *correlate.Waiter
	timeout time.Duration
}

var _ Publisher = &BusPublisher{}

// NewBusPublisher returns a publisher for bus. A nil waiter publishes
// without waiting for acknowledgement.
func NewBusPublisher(bus Bus, waiter *correlate.Waiter, timeout time.Duration) *BusPublisher {
	return &BusPublisher{bus: bus, waiter: waiter, timeout: timeout}
}

func (p *BusPublisher) Publish(ctx context.Context, req *scim.BulkRequest, correlationID string) error {
	body, err := json.Marshal(req)
	if err != nil {
		return fmt.Errorf("encoding bulk request: %w", err)
	}
	if p.waiter == nil {
		return p.bus.Send(ctx, correlationID, body)
	}

	if err := p.waiter.Register(correlationID); err != nil {
		return err
	}
	if err := p.bus.Send(ctx, correlationID, body); err != nil {
		p.waiter.Forget(correlationID)
		return err
	}
	reply, err := p.waiter.Await(ctx, correlationID, p.timeout)
	if err != nil {
		return err
	}

	var ack Ack
	if err := json.Unmarshal(reply, &ack); err != nil {
		return fmt.Errorf("decoding acknowledgement: %w", err)
	}
	if ack.Status >= 300 {
		return fmt.Errorf("upstream rejected bulk request (%d): %s", ack.Status, ack.Detail)
	}
	log.Info().Str("correlation_id", correlationID).Int("status", ack.Status).Msg("bulk request acknowledged")
	return nil
}

// HTTPBus posts bulk requests to an HTTP ingestion endpoint.
type HTTPBus struct {
	url    string
	auth   config.Auth
	tokens auth.TokenSource
	client *http.Client
}

var _ Bus = &HTTPBus{}

// NewHTTPBus returns a bus that posts to url. http.DefaultClient is used when
// client is nil.
func NewHTTPBus(url string, cfg config.Auth, tokens auth.TokenSource, client *http.Client) *HTTPBus {
	if client == nil {
		client = http.DefaultClient
	}
	if tokens == nil {
		tokens = auth.ConfigTokenSource{}
	}
	return &HTTPBus{url: url, auth: cfg, tokens: tokens, client: client}
}

func (b *HTTPBus) Send(ctx context.Context, correlationID string, body []byte) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, b.url, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("creating request: %w", err)
	}
	req.Header.Set("Content-Type", "application/scim+json")
	req.Header.Set(correlate.HeaderCorrelationID, correlationID)
	token, err := b.tokens.GetToken(ctx, b.auth, auth.Inbound)
	if err != nil {
		return err
	}
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}

	resp, err := b.client.Do(req)
	if err != nil {
		return fmt.Errorf("request to POST %s failed: %w", b.url, err)
	}
	defer resp.Body.Close()
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		msg, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
		return fmt.Errorf("unexpected %d response from POST %s: %s", resp.StatusCode, b.url, strings.TrimSpace(string(msg)))
	}
	return nil
}
