// Package clients implements the core's external collaborators over plain
// HTTP, grounded on the teacher's own client shape for upstream services
// (services/otc-gateway/identity, services/otc-gateway/hsm): a small
// Config struct, a constructor validating the required fields, and one
// method per operation. None of these own domain policy — they only
// marshal requests and unmarshal responses (spec.md §1 Non-goals, §6).
package clients

import (
	"bytes"
	"context"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"sync"
	"time"
)

const (
	defaultMaxAttempts = 5
	defaultMinBackoff  = 2 * time.Second
	defaultMaxBackoff  = 30 * time.Second
)

// OutboxPublisherConfig configures the webhook-shaped event outbox.
type OutboxPublisherConfig struct {
	Endpoint string
	Secret   []byte
	Client   *http.Client
}

// OutboxPublisher delivers every emitted domain event to a single HMAC-
// signed HTTP endpoint, with retry and exponential backoff. Grounded on
// the teacher's integrations/webhooks.Dispatcher, generalised from two
// fixed reward payload shapes to any eventsourcing.Event and queued
// in-process rather than per-payload-type.
type OutboxPublisher struct {
	endpoint    string
	secret      []byte
	client      *http.Client
	maxAttempts int
	minBackoff  time.Duration
	maxBackoff  time.Duration

	ctx    context.Context
	cancel context.CancelFunc
	queue  chan outboxDelivery
	wg     sync.WaitGroup
}

type outboxDelivery struct {
	eventType string
	body      []byte
}

// NewOutboxPublisher constructs a publisher and starts its delivery worker.
func NewOutboxPublisher(cfg OutboxPublisherConfig) (*OutboxPublisher, error) {
	if cfg.Endpoint == "" {
		return nil, errors.New("clients: outbox endpoint required")
	}
	if len(cfg.Secret) == 0 {
		return nil, errors.New("clients: outbox secret required")
	}
	httpClient := cfg.Client
	if httpClient == nil {
		httpClient = &http.Client{Timeout: 15 * time.Second}
	}
	ctx, cancel := context.WithCancel(context.Background())
	p := &OutboxPublisher{
		endpoint:    cfg.Endpoint,
		secret:      append([]byte(nil), cfg.Secret...),
		client:      httpClient,
		maxAttempts: defaultMaxAttempts,
		minBackoff:  defaultMinBackoff,
		maxBackoff:  defaultMaxBackoff,
		ctx:         ctx,
		cancel:      cancel,
		queue:       make(chan outboxDelivery, 256),
	}
	p.wg.Add(1)
	go p.worker()
	return p, nil
}

// Close stops the publisher: it cancels any delivery in flight, drops
// queued events, and waits for the worker goroutine to exit.
func (p *OutboxPublisher) Close() {
	if p == nil {
		return
	}
	p.cancel()
	p.wg.Wait()
}

// Publish implements credit.EventPublisher, queueing event for async,
// retried delivery.
func (p *OutboxPublisher) Publish(ctx context.Context, event interface{ EventType() string }) error {
	body, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("clients: marshal event: %w", err)
	}
	select {
	case p.queue <- outboxDelivery{eventType: event.EventType(), body: body}:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	case <-p.ctx.Done():
		return errors.New("clients: outbox closed")
	}
}

func (p *OutboxPublisher) worker() {
	defer p.wg.Done()
	for {
		select {
		case job := <-p.queue:
			p.process(job)
		case <-p.ctx.Done():
			return
		}
	}
}

func (p *OutboxPublisher) process(job outboxDelivery) {
	backoff := p.minBackoff
	for attempt := 1; attempt <= p.maxAttempts; attempt++ {
		ctx, cancel := context.WithTimeout(p.ctx, p.client.Timeout)
		err := p.send(ctx, job)
		cancel()
		if err == nil {
			return
		}
		if attempt == p.maxAttempts {
			return
		}
		select {
		case <-time.After(backoff):
		case <-p.ctx.Done():
			return
		}
		backoff = nextBackoff(backoff, p.maxBackoff)
	}
}

func (p *OutboxPublisher) send(ctx context.Context, job outboxDelivery) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, p.endpoint, bytes.NewReader(job.body))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("X-Credit-Event", job.eventType)
	req.Header.Set("X-Credit-Signature", p.sign(job.body))
	resp, err := p.client.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	if resp.StatusCode >= 200 && resp.StatusCode < 300 {
		return nil
	}
	return fmt.Errorf("clients: outbox delivery failed with status %d", resp.StatusCode)
}

func (p *OutboxPublisher) sign(body []byte) string {
	mac := hmac.New(sha256.New, p.secret)
	_, _ = mac.Write(body)
	return "sha256=" + hex.EncodeToString(mac.Sum(nil))
}

func nextBackoff(current, max time.Duration) time.Duration {
	next := current * 2
	if next > max || next < current {
		return max
	}
	return next
}
