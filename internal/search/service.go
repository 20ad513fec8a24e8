package search

import (
	"context"
	"encoding/json"
	"log/slog"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"

	"github.com/marketfold/shopedge/internal/cache"
	"github.com/marketfold/shopedge/internal/catalog"
	"github.com/marketfold/shopedge/internal/circuitbreaker"
	"github.com/marketfold/shopedge/internal/config"
	"github.com/marketfold/shopedge/internal/logger"
	"github.com/marketfold/shopedge/internal/metrics"
	"github.com/marketfold/shopedge/internal/tracing"
)

// Lister provides the full product set for fallback scans.
type Lister interface {
	List(ctx context.Context) ([]Product, error)
}

// Product aliases the catalog aggregate; search never defines its own
// document shape.
type Product = catalog.Product

// Service answers search queries. Resolution order: cached page by query
// signature, then the index behind its breaker, then a full catalog scan
// through the in-process engine.
type Service struct {
	products Lister
	index    Index
	breaker  *circuitbreaker.CircuitBreaker
	results  *cache.ResultCache
	engine   Engine
	log      *slog.Logger
}

// NewService creates a search service. index may be nil, in which case every
// query scans.
func NewService(products Lister, index Index, results *cache.ResultCache, cfg *config.Config) *Service {
	return &Service{
		products: products,
		index:    index,
		breaker: circuitbreaker.New(circuitbreaker.Config{
			Name:             "search-index",
			FailureThreshold: cfg.IndexFailureThreshold,
			Timeout:          cfg.IndexBreakerTimeout,
		}),
		results: results,
		log:     logger.WithComponent("search"),
	}
}

// Search runs the query and returns one result page.
func (s *Service) Search(ctx context.Context, q Query) (ResultPage, error) {
	ctx, span := tracing.StartSpan(ctx, "search.Search")
	defer span.End()

	q = q.Normalize()
	sig := cache.SearchKey(q.Signature())
	start := time.Now()

	span.SetAttributes(
		attribute.String("search.keyword", q.Keyword),
		attribute.Int("search.page", q.Page),
	)

	if s.results != nil {
		if raw, ok := s.results.Get(sig); ok {
			var page ResultPage
			if err := json.Unmarshal(raw, &page); err == nil {
				metrics.CacheHits.WithLabelValues(cache.NamespaceSearch).Inc()
				metrics.SearchDuration.WithLabelValues("cache").Observe(time.Since(start).Seconds())
				span.SetAttributes(attribute.String("search.source", "cache"))
				return page, nil
			}
		}
		metrics.CacheMisses.WithLabelValues(cache.NamespaceSearch).Inc()
	}

	page, source, err := s.resolve(ctx, q)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "search failed")
		return ResultPage{}, err
	}
	metrics.SearchDuration.WithLabelValues(source).Observe(time.Since(start).Seconds())
	span.SetAttributes(
		attribute.String("search.source", source),
		attribute.Int("search.total_matched", page.TotalMatched),
	)

	if s.results != nil {
		if raw, err := json.Marshal(page); err == nil {
			s.results.Set(sig, raw)
		}
	}
	return page, nil
}

// resolve queries the index behind the breaker and falls back to a full
// scan when the index fails or the breaker is open.
func (s *Service) resolve(ctx context.Context, q Query) (ResultPage, string, error) {
	if s.index != nil {
		var page ResultPage
		err := s.breaker.Call(func() error {
			var qErr error
			page, qErr = s.index.Query(ctx, q)
			return qErr
		})
		if err == nil {
			return page, "index", nil
		}
		metrics.SearchFallbacks.Inc()
		s.log.WarnContext(ctx, "index query failed, scanning catalog", "error", err)
	}

	products, err := s.products.List(ctx)
	if err != nil {
		return ResultPage{}, "", err
	}
	return s.engine.Run(products, q), "scan", nil
}

// BreakerState exposes the index breaker state for the health endpoint.
func (s *Service) BreakerState() circuitbreaker.State {
	return s.breaker.State()
}
