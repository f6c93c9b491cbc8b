package repos_test

import (
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/architeacher/checkpoint/internal/adapters/repos"
	"github.com/architeacher/checkpoint/internal/config"
	"github.com/architeacher/checkpoint/internal/infrastructure"
	"github.com/architeacher/checkpoint/pkg/logger"
	"github.com/stretchr/testify/suite"
	"github.com/throttled/throttled/v2"
)

type RateLimitStoreTestSuite struct {
	suite.Suite

	miniRedis   *miniredis.Miniredis
	keydbClient *infrastructure.KeyDBClient
	store       *repos.RateLimitStore
}

func TestRateLimitStoreTestSuite(t *testing.T) {
	t.Parallel()
	suite.Run(t, new(RateLimitStoreTestSuite))
}

func (s *RateLimitStoreTestSuite) SetupTest() {
	s.miniRedis = miniredis.RunT(s.T())
	s.keydbClient = infrastructure.NewKeyDBClient(config.Cache{Address: s.miniRedis.Addr()}, logger.NewTestLogger())
	s.store = repos.NewRateLimitStore(s.keydbClient)
}

func (s *RateLimitStoreTestSuite) TearDownTest() {
	_ = s.keydbClient.Close()
}

func (s *RateLimitStoreTestSuite) TestPrefixesKeys() {
	ctx := s.T().Context()

	stored, err := s.store.SetIfNotExistsWithTTL(ctx, "ip:10.0.0.1", 42, time.Minute)
	s.Require().NoError(err)
	s.Require().True(stored)
	s.Require().True(s.miniRedis.Exists("checkpoint:ratelimit:ip:10.0.0.1"))

	value, _, err := s.store.GetWithTime(ctx, "ip:10.0.0.1")
	s.Require().NoError(err)
	s.Require().Equal(int64(42), value)

	swapped, err := s.store.CompareAndSwapWithTTL(ctx, "ip:10.0.0.1", 42, 43, time.Minute)
	s.Require().NoError(err)
	s.Require().True(swapped)
}

func (s *RateLimitStoreTestSuite) TestDrivesGCRALimiter() {
	limiter, err := throttled.NewGCRARateLimiterCtx(s.store, throttled.RateQuota{
		MaxRate:  throttled.PerMin(1),
		MaxBurst: 1,
	})
	s.Require().NoError(err)

	ctx := s.T().Context()

	for range 2 {
		limited, _, err := limiter.RateLimitCtx(ctx, "ip:192.168.0.9", 1)
		s.Require().NoError(err)
		s.Require().False(limited)
	}

	limited, result, err := limiter.RateLimitCtx(ctx, "ip:192.168.0.9", 1)
	s.Require().NoError(err)
	s.Require().True(limited)
	s.Require().Positive(result.RetryAfter)

	limited, _, err = limiter.RateLimitCtx(ctx, "ip:192.168.0.10", 1)
	s.Require().NoError(err)
	s.Require().False(limited)
}
