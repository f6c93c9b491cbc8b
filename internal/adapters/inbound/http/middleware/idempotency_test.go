package middleware_test

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/architeacher/checkpoint/internal/adapters/inbound/http/middleware"
	"github.com/architeacher/checkpoint/internal/config"
	"github.com/architeacher/checkpoint/internal/ports"
	"github.com/architeacher/checkpoint/pkg/idempotency"
	"github.com/architeacher/checkpoint/pkg/logger"
	"github.com/stretchr/testify/suite"
)

const validKey = "550e8400-e29b-41d4-a716-446655440000"

var errCacheDown = errors.New("keydb: connection refused")

type fakeIdempotencyCache struct {
	getFn     func(ctx context.Context, key string) (*ports.CachedResponse, error)
	setLockFn func(ctx context.Context, key string, ttl time.Duration) (bool, error)

	getCalls  int
	released  []string
	stored    map[string]*ports.CachedResponse
	storedTTL time.Duration
}

func newFakeIdempotencyCache() *fakeIdempotencyCache {
	return &fakeIdempotencyCache{stored: make(map[string]*ports.CachedResponse)}
}

func (f *fakeIdempotencyCache) Get(ctx context.Context, key string) (*ports.CachedResponse, error) {
	f.getCalls++

	if f.getFn != nil {
		return f.getFn(ctx, key)
	}

	return f.stored[key], nil
}

func (f *fakeIdempotencyCache) Set(_ context.Context, key string, response *ports.CachedResponse, ttl time.Duration) error {
	f.stored[key] = response
	f.storedTTL = ttl

	return nil
}

func (f *fakeIdempotencyCache) SetLock(ctx context.Context, key string, ttl time.Duration) (bool, error) {
	if f.setLockFn != nil {
		return f.setLockFn(ctx, key, ttl)
	}

	return true, nil
}

func (f *fakeIdempotencyCache) ReleaseLock(_ context.Context, key string) error {
	f.released = append(f.released, key)

	return nil
}

func (f *fakeIdempotencyCache) IsHealthy(context.Context) bool {
	return true
}

type IdempotencyTestSuite struct {
	suite.Suite
	cache *fakeIdempotencyCache
	cfg   config.Idempotency
	log   logger.Logger
}

func TestIdempotencyTestSuite(t *testing.T) {
	t.Parallel()
	suite.Run(t, new(IdempotencyTestSuite))
}

func (s *IdempotencyTestSuite) SetupTest() {
	s.cache = newFakeIdempotencyCache()
	s.log = logger.NewTestLogger()
	s.cfg = config.Idempotency{
		Enabled:          true,
		CacheTTL:         24 * time.Hour,
		LockTTL:          30 * time.Second,
		RequiredMethods:  []string{http.MethodPost, http.MethodPatch},
		HeaderName:       "Idempotency-Key",
		ReplayedHeader:   "Idempotent-Replayed",
		MaxBodyBytes:     1 << 10,
		GracefulDegraded: true,
	}
}

func (s *IdempotencyTestSuite) serve(cfg config.Idempotency, next http.Handler, req *http.Request) *httptest.ResponseRecorder {
	rec := httptest.NewRecorder()
	middleware.Idempotency(s.cache, cfg, s.log)(next).ServeHTTP(rec, req)

	return rec
}

func checkinRequest(key, body string) *http.Request {
	req := httptest.NewRequest(http.MethodPost, "/api/computers/checkin", strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")

	if key != "" {
		req.Header.Set("Idempotency-Key", key)
	}

	return req
}

func created(calls *int) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		*calls++

		w.Header().Set("Location", "/api/devices/42")
		w.Header().Set(middleware.RequestIDHeader, "per-request")
		w.WriteHeader(http.StatusCreated)
		_, _ = w.Write([]byte(`{"data":{"id":"42"}}`))
	})
}

func decodeCode(body []byte) string {
	var payload map[string]any
	if err := json.Unmarshal(body, &payload); err != nil {
		return ""
	}

	code, _ := payload["code"].(string)

	return code
}

func (s *IdempotencyTestSuite) TestPassesThrough() {
	cases := []struct {
		name   string
		cfg    func(config.Idempotency) config.Idempotency
		method string
		key    string
	}{
		{
			name: "disabled",
			cfg: func(c config.Idempotency) config.Idempotency {
				c.Enabled = false

				return c
			},
			method: http.MethodPost,
			key:    validKey,
		},
		{
			name:   "read request",
			method: http.MethodGet,
			key:    validKey,
		},
		{
			name:   "no key",
			method: http.MethodPost,
		},
	}

	for _, tc := range cases {
		s.Run(tc.name, func() {
			s.SetupTest()

			cfg := s.cfg
			if tc.cfg != nil {
				cfg = tc.cfg(cfg)
			}

			req := checkinRequest(tc.key, `{"brand":"Lenovo"}`)
			req.Method = tc.method

			calls := 0
			rec := s.serve(cfg, created(&calls), req)

			s.Require().Equal(http.StatusCreated, rec.Code)
			s.Require().Equal(1, calls)
			s.Require().Zero(s.cache.getCalls)
		})
	}
}

func (s *IdempotencyTestSuite) TestNilCachePassesThrough() {
	calls := 0
	rec := httptest.NewRecorder()

	middleware.Idempotency(nil, s.cfg, s.log)(created(&calls)).
		ServeHTTP(rec, checkinRequest(validKey, `{}`))

	s.Require().Equal(http.StatusCreated, rec.Code)
	s.Require().Equal(1, calls)
}

func (s *IdempotencyTestSuite) TestRejectsInvalidKey() {
	calls := 0
	rec := s.serve(s.cfg, created(&calls), checkinRequest("short", `{}`))

	s.Require().Equal(http.StatusBadRequest, rec.Code)
	s.Require().Equal("INVALID_IDEMPOTENCY_KEY", decodeCode(rec.Body.Bytes()))
	s.Require().Zero(calls)
}

func (s *IdempotencyTestSuite) TestRejectsOversizedBody() {
	calls := 0
	rec := s.serve(s.cfg, created(&calls), checkinRequest(validKey, strings.Repeat("x", 2<<10)))

	s.Require().Equal(http.StatusRequestEntityTooLarge, rec.Code)
	s.Require().Equal("PAYLOAD_TOO_LARGE", decodeCode(rec.Body.Bytes()))
	s.Require().Zero(calls)
}

func (s *IdempotencyTestSuite) TestStoresAndReplaysResponse() {
	body := `{"brand":"Lenovo"}`

	var seenKey string
	calls := 0

	next := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		seenKey, _ = idempotency.FromContext(r.Context())

		payload, err := io.ReadAll(r.Body)
		s.Require().NoError(err)
		s.Require().Equal(body, string(payload))

		created(&calls).ServeHTTP(w, r)
	})

	first := s.serve(s.cfg, next, checkinRequest(validKey, body))
	s.Require().Equal(http.StatusCreated, first.Code)
	s.Require().Empty(first.Header().Get("Idempotent-Replayed"))
	s.Require().Equal(validKey, seenKey)

	cacheKey := idempotency.BuildCacheKey(http.MethodPost, "/api/computers/checkin", validKey)
	stored := s.cache.stored[cacheKey]
	s.Require().NotNil(stored)
	s.Require().Equal(24*time.Hour, s.cache.storedTTL)
	s.Require().Equal([]string{cacheKey}, s.cache.released)
	s.Require().NotContains(stored.Headers, middleware.RequestIDHeader)

	replay := s.serve(s.cfg, next, checkinRequest(validKey, body))
	s.Require().Equal(http.StatusCreated, replay.Code)
	s.Require().Equal("true", replay.Header().Get("Idempotent-Replayed"))
	s.Require().Equal("/api/devices/42", replay.Header().Get("Location"))
	s.Require().Equal(first.Body.Bytes(), replay.Body.Bytes())
	s.Require().Equal(1, calls)
}

func (s *IdempotencyTestSuite) TestRejectsKeyReusedWithDifferentBody() {
	cacheKey := idempotency.BuildCacheKey(http.MethodPost, "/api/computers/checkin", validKey)
	s.cache.stored[cacheKey] = &ports.CachedResponse{
		StatusCode:  http.StatusCreated,
		Body:        []byte(`{}`),
		Fingerprint: idempotency.Fingerprint("application/json", []byte(`{"brand":"Lenovo"}`)),
	}

	calls := 0
	rec := s.serve(s.cfg, created(&calls), checkinRequest(validKey, `{"brand":"Dell"}`))

	s.Require().Equal(http.StatusUnprocessableEntity, rec.Code)
	s.Require().Equal("IDEMPOTENCY_KEY_REUSED", decodeCode(rec.Body.Bytes()))
	s.Require().Zero(calls)
}

func (s *IdempotencyTestSuite) TestDoesNotStoreFailures() {
	next := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadRequest)
	})

	rec := s.serve(s.cfg, next, checkinRequest(validKey, `{}`))

	s.Require().Equal(http.StatusBadRequest, rec.Code)
	s.Require().Empty(s.cache.stored)
	s.Require().Len(s.cache.released, 1)
}

func (s *IdempotencyTestSuite) TestConcurrentRequestIsRejected() {
	s.cache.setLockFn = func(context.Context, string, time.Duration) (bool, error) {
		return false, nil
	}

	calls := 0
	rec := s.serve(s.cfg, created(&calls), checkinRequest(validKey, `{}`))

	s.Require().Equal(http.StatusConflict, rec.Code)
	s.Require().Equal("REQUEST_IN_PROGRESS", decodeCode(rec.Body.Bytes()))
	s.Require().Zero(calls)
	s.Require().Empty(s.cache.released)
}

func (s *IdempotencyTestSuite) TestCacheFailure() {
	cases := []struct {
		name       string
		graceful   bool
		failLock   bool
		wantStatus int
		wantCalls  int
	}{
		{
			name:       "lookup fails gracefully",
			graceful:   true,
			wantStatus: http.StatusCreated,
			wantCalls:  1,
		},
		{
			name:       "lock fails gracefully",
			graceful:   true,
			failLock:   true,
			wantStatus: http.StatusCreated,
			wantCalls:  1,
		},
		{
			name:       "lookup fails strictly",
			wantStatus: http.StatusServiceUnavailable,
		},
		{
			name:       "lock fails strictly",
			failLock:   true,
			wantStatus: http.StatusServiceUnavailable,
		},
	}

	for _, tc := range cases {
		s.Run(tc.name, func() {
			s.SetupTest()

			if tc.failLock {
				s.cache.setLockFn = func(context.Context, string, time.Duration) (bool, error) {
					return false, errCacheDown
				}
			} else {
				s.cache.getFn = func(context.Context, string) (*ports.CachedResponse, error) {
					return nil, errCacheDown
				}
			}

			cfg := s.cfg
			cfg.GracefulDegraded = tc.graceful

			calls := 0
			rec := s.serve(cfg, created(&calls), checkinRequest(validKey, `{}`))

			s.Require().Equal(tc.wantStatus, rec.Code)
			s.Require().Equal(tc.wantCalls, calls)

			if tc.wantStatus == http.StatusServiceUnavailable {
				s.Require().Equal("CACHE_UNAVAILABLE", decodeCode(rec.Body.Bytes()))
			}
		})
	}
}

func (s *IdempotencyTestSuite) TestKeyIsScopedPerRoute() {
	calls := 0
	s.serve(s.cfg, created(&calls), checkinRequest(validKey, `{}`))

	req := httptest.NewRequest(http.MethodPost, "/api/medicaldevices/checkin", bytes.NewReader([]byte(`{}`)))
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Idempotency-Key", validKey)

	rec := s.serve(s.cfg, created(&calls), req)

	s.Require().Equal(http.StatusCreated, rec.Code)
	s.Require().Empty(rec.Header().Get("Idempotent-Replayed"))
	s.Require().Equal(2, calls)
	s.Require().Len(s.cache.stored, 2)
}
