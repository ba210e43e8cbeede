package activityreport

import (
	"context"
	"log/slog"
	"time"

	"golang.org/x/sync/singleflight"

	"github.com/odyssey-erp/odyssey-office/internal/activities"
	"github.com/odyssey-erp/odyssey-office/internal/scope"
)

// Recorder observes report builds and cache lookups.
type Recorder interface {
	ReportBuilt(grouping string, elapsed time.Duration)
	ReportCache(result string)
}

type nopRecorder struct{}

func (nopRecorder) ReportBuilt(string, time.Duration) {}
func (nopRecorder) ReportCache(string)                {}

// Service gates report generation by activity visibility and serves repeated
// requests from the cache.
type Service struct {
	agg     *Aggregator
	cache   *Cache
	metrics Recorder
	logger  *slog.Logger
	group   singleflight.Group
}

// NewService wires a Service. cache and metrics may be nil.
func NewService(agg *Aggregator, cache *Cache, metrics Recorder, logger *slog.Logger) *Service {
	if metrics == nil {
		metrics = nopRecorder{}
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Service{agg: agg, cache: cache, metrics: metrics, logger: logger}
}

// Generate returns the report for req as seen by p.
func (s *Service) Generate(ctx context.Context, p scope.Principal, req Request) (Report, error) {
	if err := req.Validate(); err != nil {
		return Report{}, err
	}
	if err := s.authorize(ctx, p, req); err != nil {
		return Report{}, err
	}

	key, err := s.cache.Key(ctx, req)
	if err != nil {
		s.logger.Warn("activityreport cache version", slog.Any("error", err))
		return s.build(ctx, req)
	}
	if rep, ok, err := s.cache.Get(ctx, key); err != nil {
		s.logger.Warn("activityreport cache get", slog.String("key", key), slog.Any("error", err))
	} else if ok {
		s.metrics.ReportCache("hit")
		return rep, nil
	}
	s.metrics.ReportCache("miss")

	ch := s.group.DoChan(key, func() (any, error) {
		rep, err := s.build(context.WithoutCancel(ctx), req)
		if err != nil {
			return nil, err
		}
		if err := s.cache.Put(context.WithoutCancel(ctx), key, rep); err != nil {
			s.logger.Warn("activityreport cache put", slog.String("key", key), slog.Any("error", err))
		}
		return rep, nil
	})
	select {
	case <-ctx.Done():
		return Report{}, ctx.Err()
	case res := <-ch:
		if res.Err != nil {
			return Report{}, res.Err
		}
		return res.Val.(Report), nil
	}
}

func (s *Service) build(ctx context.Context, req Request) (Report, error) {
	started := time.Now()
	rep, err := s.agg.Build(ctx, req)
	if err != nil {
		return Report{}, err
	}
	s.metrics.ReportBuilt(string(req.Grouping), time.Since(started))
	return rep, nil
}

// authorize allows a report only on a unit or section whose activities p may see.
func (s *Service) authorize(ctx context.Context, p scope.Principal, req Request) error {
	vis := activities.VisibilityFor(p)
	if vis.All {
		return nil
	}
	if vis.None() {
		return ErrScopeNotVisible
	}
	info, err := s.agg.source.Scope(ctx, req.Grouping, req.ScopeID())
	if err != nil {
		return err
	}
	allowed := false
	switch req.Grouping {
	case GroupByUnit:
		allowed = vis.AllowsUnit(info.ID)
	case GroupBySection:
		allowed = vis.AllowsSection(info.ID, info.DepartmentID)
	}
	if !allowed {
		return ErrScopeNotVisible
	}
	return nil
}

// Choices lists the units and sections p may report on, with every financial year.
func (s *Service) Choices(ctx context.Context, p scope.Principal) (Choices, error) {
	all, err := s.agg.source.Choices(ctx)
	if err != nil {
		return Choices{}, err
	}
	vis := activities.VisibilityFor(p)
	c := Choices{FinancialYears: all.FinancialYears}
	for _, u := range all.Units {
		if vis.AllowsUnit(u.ID) {
			c.Units = append(c.Units, u)
		}
	}
	for _, sec := range all.Sections {
		if vis.AllowsSection(sec.ID, sec.DepartmentID) {
			c.Sections = append(c.Sections, sec)
		}
	}
	return c, nil
}
