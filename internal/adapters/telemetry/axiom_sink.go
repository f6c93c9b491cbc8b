// Package telemetry ships request and error events to Axiom. Events are
// buffered and sent in batches by a single worker so recording never waits
// on the network.
package telemetry

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/architeacher/checkpoint/internal/config"
	"github.com/architeacher/checkpoint/internal/domain/model"
	"github.com/architeacher/checkpoint/internal/ports"
	"github.com/architeacher/checkpoint/pkg/circuitbreaker"
	"github.com/architeacher/checkpoint/pkg/logger"
	"github.com/architeacher/checkpoint/pkg/metrics"
	"github.com/architeacher/checkpoint/pkg/metrics/noop"
	"github.com/cenkalti/backoff/v5"
	"go.opentelemetry.io/otel/attribute"
)

const (
	eventTypeRequest = "http_request"
	eventTypeError   = "error"
	eventTypeInfo    = "info"

	metricEventsSent    = "telemetry.events.sent"
	metricEventsFailed  = "telemetry.events.failed"
	metricEventsDropped = "telemetry.events.dropped"
)

var (
	ErrSinkClosed = errors.New("telemetry sink is closed")

	// errIngestRejected marks 4xx answers, resending the same batch cannot succeed.
	errIngestRejected = errors.New("ingest rejected")
)

type (
	event map[string]any

	AxiomSink struct {
		endpoint    string
		service     string
		environment string
		batchSize   int
		interval    time.Duration
		retry       config.Backoff

		token atomic.Pointer[string]

		httpClient *http.Client
		breaker    *circuitbreaker.CircuitBreaker[struct{}]
		metrics    metrics.Client
		logger     logger.Logger
		now        func() time.Time

		events   chan event
		flushReq chan chan error
		done     chan struct{}
		closed   atomic.Bool
		wg       sync.WaitGroup
	}
)

var _ ports.TelemetrySink = (*AxiomSink)(nil)

// NewAxiomSink starts the delivery worker. Shutdown must be called to stop it.
func NewAxiomSink(
	appCfg config.App,
	axiomCfg config.Axiom,
	retryCfg config.Backoff,
	log logger.Logger,
	opts ...Option,
) *AxiomSink {
	sink := &AxiomSink{
		endpoint:    ingestEndpoint(axiomCfg.URL, axiomCfg.Dataset),
		service:     appCfg.ServiceName,
		environment: appCfg.Env.Name,
		batchSize:   max(int(axiomCfg.BatchSize), 1),
		interval:    axiomCfg.FlushInterval,
		retry:       retryCfg,
		httpClient:  &http.Client{Timeout: axiomCfg.Timeout},
		metrics:     noop.NewMetricsClient(),
		logger:      log.Component("axiom_sink"),
		now:         time.Now,
		events:      make(chan event, max(int(axiomCfg.BufferSize), 1)),
		flushReq:    make(chan chan error),
		done:        make(chan struct{}),
	}

	for _, opt := range opts {
		opt(sink)
	}

	if sink.breaker == nil {
		breakerCfg := axiomCfg.CircuitBreaker
		sink.breaker = circuitbreaker.New[struct{}](circuitbreaker.Config{
			Name:             "axiom-ingest",
			Enabled:          breakerCfg.Enabled,
			MaxRequests:      breakerCfg.MaxRequests,
			Interval:         breakerCfg.Interval,
			Timeout:          breakerCfg.Timeout,
			FailureThreshold: breakerCfg.FailureThreshold,
			IsSuccessful: func(err error) bool {
				return err == nil || errors.Is(err, errIngestRejected)
			},
			OnStateChange: func(name string, from, to circuitbreaker.State) {
				sink.logger.Warn().
					Str("breaker", name).
					Str("from", string(from)).
					Str("to", string(to)).
					Msg("circuit breaker state changed")
			},
		})
	}

	sink.UpdateToken(axiomCfg.Token)

	if sink.interval <= 0 {
		sink.interval = 5 * time.Second
	}

	sink.wg.Add(1)
	go sink.run()

	return sink
}

// UpdateToken swaps the API token, used when secrets are reloaded.
func (s *AxiomSink) UpdateToken(token string) {
	token = strings.TrimSpace(token)
	s.token.Store(&token)
}

func (s *AxiomSink) RecordRequest(ctx context.Context, e model.RequestEvent) {
	payload := s.newEvent(eventTypeRequest)
	payload["method"] = e.Method
	payload["url"] = e.Path
	payload["statusCode"] = e.StatusCode
	payload["duration"] = e.Duration.Milliseconds()

	if e.RequestID != "" {
		payload["requestId"] = e.RequestID
	}

	s.enqueue(ctx, payload)
}

func (s *AxiomSink) RecordError(ctx context.Context, e model.ErrorEvent) {
	payload := s.newEvent(eventTypeError)
	payload["name"] = e.Kind
	payload["message"] = e.Message

	if len(e.Context) > 0 {
		payload["context"] = e.Context
	}

	s.enqueue(ctx, payload)
}

func (s *AxiomSink) RecordInfo(ctx context.Context, e model.InfoEvent) {
	payload := s.newEvent(eventTypeInfo)
	payload["message"] = e.Message

	if len(e.Data) > 0 {
		payload["data"] = e.Data
	}

	s.enqueue(ctx, payload)
}

// Flush waits until every event enqueued before the call has been sent or given up on.
func (s *AxiomSink) Flush(ctx context.Context) error {
	reply := make(chan error, 1)

	select {
	case s.flushReq <- reply:
	case <-s.done:
		return ErrSinkClosed
	case <-ctx.Done():
		return ctx.Err()
	}

	select {
	case err := <-reply:
		return err
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Shutdown stops accepting events and sends what is left in the buffer.
func (s *AxiomSink) Shutdown(ctx context.Context) error {
	if s.closed.CompareAndSwap(false, true) {
		close(s.done)
	}

	stopped := make(chan struct{})
	go func() {
		s.wg.Wait()
		close(stopped)
	}()

	select {
	case <-stopped:
		return nil
	case <-ctx.Done():
		return fmt.Errorf("waiting for telemetry worker: %w", ctx.Err())
	}
}

func (s *AxiomSink) newEvent(kind string) event {
	return event{
		"_time":       s.now().UTC().Format(time.RFC3339Nano),
		"type":        kind,
		"service":     s.service,
		"environment": s.environment,
	}
}

func (s *AxiomSink) enqueue(ctx context.Context, e event) {
	if s.closed.Load() {
		s.drop(ctx, "closed")

		return
	}

	select {
	case s.events <- e:
	default:
		s.drop(ctx, "buffer_full")
	}
}

func (s *AxiomSink) drop(ctx context.Context, reason string) {
	s.metrics.Inc(ctx, metricEventsDropped, 1, attribute.String("reason", reason))
}

func (s *AxiomSink) run() {
	defer s.wg.Done()

	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()

	batch := make([]event, 0, s.batchSize)

	for {
		select {
		case e := <-s.events:
			batch = append(batch, e)
			if len(batch) >= s.batchSize {
				s.deliver(batch)
				batch = batch[:0]
			}

		case <-ticker.C:
			if len(batch) > 0 {
				s.deliver(batch)
				batch = batch[:0]
			}

		case reply := <-s.flushReq:
			batch = s.drain(batch)
			reply <- s.deliver(batch)
			batch = batch[:0]

		case <-s.done:
			batch = s.drain(batch)
			s.deliver(batch)

			return
		}
	}
}

// drain moves everything currently buffered into batch.
func (s *AxiomSink) drain(batch []event) []event {
	for {
		select {
		case e := <-s.events:
			batch = append(batch, e)
		default:
			return batch
		}
	}
}

// deliver sends batch in chunks of batchSize. Failures are logged, never returned to recorders.
func (s *AxiomSink) deliver(batch []event) error {
	var errs []error

	for start := 0; start < len(batch); start += s.batchSize {
		chunk := batch[start:min(start+s.batchSize, len(batch))]

		if err := s.send(chunk); err != nil {
			errs = append(errs, err)
		}
	}

	return errors.Join(errs...)
}

func (s *AxiomSink) send(chunk []event) error {
	ctx := context.Background()
	count := len(chunk)

	token := *s.token.Load()
	if token == "" {
		s.metrics.Inc(ctx, metricEventsDropped, count, attribute.String("reason", "no_token"))

		return nil
	}

	body, err := json.Marshal(chunk)
	if err != nil {
		s.metrics.Inc(ctx, metricEventsFailed, count)

		return fmt.Errorf("encoding telemetry batch: %w", err)
	}

	_, err = circuitbreaker.Execute(s.breaker, func() (struct{}, error) {
		return s.postWithRetry(ctx, token, body)
	})
	if err != nil {
		s.metrics.Inc(ctx, metricEventsFailed, count)
		s.logger.Warn().Err(err).Int("events", count).Msg("failed to deliver telemetry batch")

		return err
	}

	s.metrics.Inc(ctx, metricEventsSent, count)

	return nil
}

func (s *AxiomSink) postWithRetry(ctx context.Context, token string, body []byte) (struct{}, error) {
	expBackoff := backoff.NewExponentialBackOff()
	expBackoff.InitialInterval = s.retry.BaseDelay
	expBackoff.Multiplier = s.retry.Multiplier
	expBackoff.RandomizationFactor = s.retry.Jitter
	expBackoff.MaxInterval = s.retry.MaxDelay

	opts := []backoff.RetryOption{
		backoff.WithMaxTries(s.retry.MaxRetries + 1),
		backoff.WithBackOff(expBackoff),
	}

	if s.retry.MaxElapsed > 0 {
		opts = append(opts, backoff.WithMaxElapsedTime(s.retry.MaxElapsed))
	}

	return backoff.Retry(ctx, func() (struct{}, error) {
		return struct{}{}, s.post(ctx, token, body)
	}, opts...)
}

func (s *AxiomSink) post(ctx context.Context, token string, body []byte) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, s.endpoint, bytes.NewReader(body))
	if err != nil {
		return backoff.Permanent(fmt.Errorf("building ingest request: %w", err))
	}

	req.Header.Set("Authorization", "Bearer "+token)
	req.Header.Set("Content-Type", "application/json")

	resp, err := s.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("posting to ingest: %w", err)
	}

	defer resp.Body.Close()
	_, _ = io.Copy(io.Discard, resp.Body)

	switch {
	case resp.StatusCode < http.StatusMultipleChoices:
		return nil
	case resp.StatusCode == http.StatusTooManyRequests || resp.StatusCode >= http.StatusInternalServerError:
		return fmt.Errorf("ingest returned status %d", resp.StatusCode)
	default:
		return backoff.Permanent(fmt.Errorf("%w: status %d", errIngestRejected, resp.StatusCode))
	}
}

func ingestEndpoint(baseURL, dataset string) string {
	return strings.TrimSuffix(baseURL, "/") + "/v1/datasets/" + url.PathEscape(dataset) + "/ingest"
}
