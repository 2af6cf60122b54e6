// Package authorizer runs one authorization: extract the credential, resolve
// it through the cache and key service, and build the decision.
package authorizer

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"golang.org/x/sync/singleflight"

	"github.com/rajasatyajit/apikey-authorizer/internal/cache"
	"github.com/rajasatyajit/apikey-authorizer/internal/decision"
	apperrors "github.com/rajasatyajit/apikey-authorizer/internal/errors"
	"github.com/rajasatyajit/apikey-authorizer/internal/keys"
	"github.com/rajasatyajit/apikey-authorizer/internal/logger"
	"github.com/rajasatyajit/apikey-authorizer/internal/metrics"
	"github.com/rajasatyajit/apikey-authorizer/internal/plan"
)

type (
	Request        = decision.Request
	RequestContext = decision.RequestContext
	Decision       = decision.Decision
)

// Resolver looks a credential up in the key-management service
type Resolver interface {
	Resolve(ctx context.Context, value string) (keys.Record, bool, error)
}

// Service authorizes requests. It holds no per-request state and is safe
// for concurrent use.
type Service struct {
	plan     plan.Plan
	cache    *cache.Cache
	resolver Resolver
	builder  *decision.Builder
	now      func() time.Time

	// resolves coalesces concurrent cache misses for the same credential
	resolves singleflight.Group
}

// New creates a Service. A nil cache behaves as a disabled cache.
func New(p plan.Plan, c *cache.Cache, r Resolver, b *decision.Builder) *Service {
	if c == nil {
		c = cache.New(nil, 0)
	}
	return &Service{plan: p, cache: c, resolver: r, builder: b, now: time.Now}
}

// Authorize returns the allow decision for req. Every rejection is reported
// as apperrors.ErrUnauthorized; any other error means the lookup could not
// complete and the request must be denied.
func (s *Service) Authorize(ctx context.Context, req Request) (Decision, error) {
	if logger.RequestID(ctx) == "" {
		ctx = logger.ContextWithRequestID(ctx, uuid.NewString())
	}
	log := logger.WithContext(ctx)

	d, err := s.authorize(ctx, req)
	switch {
	case err == nil:
		metrics.RecordDecision(metrics.OutcomeAllow)
		log.Info("Request authorized", "principal_id", d.PrincipalID, "key", logger.Fingerprint(d.UsageIdentifierKey))
	case errors.Is(err, apperrors.ErrUnauthorized):
		metrics.RecordDecision(metrics.OutcomeUnauthorized)
		log.Info("Request rejected")
	default:
		metrics.RecordDecision(metrics.OutcomeError)
		log.Error("Authorization failed", "error", err)
	}
	return d, err
}

func (s *Service) authorize(ctx context.Context, req Request) (Decision, error) {
	candidate, found, err := s.plan.Evaluate(req.Headers)
	if err != nil {
		return Decision{}, err
	}
	if !found {
		logger.WithContext(ctx).Debug("No credential in request")
		return Decision{}, apperrors.ErrUnauthorized
	}

	rec, found, err := s.lookup(ctx, candidate)
	if err != nil {
		return Decision{}, err
	}
	if !found {
		logger.WithContext(ctx).Debug("No key matches credential", "key", logger.Fingerprint(candidate))
		return Decision{}, apperrors.ErrUnauthorized
	}

	return s.builder.Build(rec, req, candidate)
}

type resolution struct {
	rec   keys.Record
	found bool
}

// lookup serves value from the cache, falling back to the resolver and
// writing the result back
func (s *Service) lookup(ctx context.Context, value string) (keys.Record, bool, error) {
	rec, found, err := s.cache.Get(ctx, value, s.now())
	if err != nil {
		return keys.Record{}, false, err
	}
	if found {
		return rec, true, nil
	}

	v, err, shared := s.resolves.Do(value, func() (any, error) {
		rec, found, err := s.resolver.Resolve(ctx, value)
		if err != nil || !found {
			return resolution{}, err
		}
		if err := s.cache.Put(ctx, rec, s.now()); err != nil {
			return resolution{}, err
		}
		return resolution{rec: rec, found: true}, nil
	})
	if err != nil {
		return keys.Record{}, false, err
	}
	if shared {
		logger.WithContext(ctx).Debug("Shared in-flight key resolution", "key", logger.Fingerprint(value))
	}
	res := v.(resolution)
	return res.rec, res.found, nil
}

// Health reports whether the cache store is reachable
func (s *Service) Health(ctx context.Context) error {
	return s.cache.Health(ctx)
}
