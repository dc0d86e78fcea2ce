// Package tracker mounts one optimistic container per fitness category and
// hands them to commands through the request context.
package tracker

import (
	"context"
	"log/slog"
	"net/http"

	"golang.org/x/sync/errgroup"

	"github.com/caseydemo/workout-app/internal/domain"
	"github.com/caseydemo/workout-app/internal/logging"
	"github.com/caseydemo/workout-app/internal/optimistic"
	"github.com/caseydemo/workout-app/internal/remote"
)

// Remotes supplies the persistence contract for each category.
type Remotes struct {
	Cardio    optimistic.Remote[domain.Cardio]
	Strength  optimistic.Remote[domain.Strength]
	Nutrition optimistic.Remote[domain.Nutrition]
}

// HTTPRemotes returns Remotes that talk to the entry API at baseURL.
func HTTPRemotes(baseURL string, httpClient *http.Client) Remotes {
	opts := []remote.Option{}
	if httpClient != nil {
		opts = append(opts, remote.WithHTTPClient(httpClient))
	}
	return Remotes{
		Cardio:    remote.NewClient[domain.Cardio](baseURL, string(domain.CategoryCardio), opts...),
		Strength:  remote.NewClient[domain.Strength](baseURL, string(domain.CategoryStrength), opts...),
		Nutrition: remote.NewClient[domain.Nutrition](baseURL, string(domain.CategoryNutrition), opts...),
	}
}

// Option configures Open.
type Option func(*settings)

type settings struct {
	logger *slog.Logger
}

// WithLogger overrides the logger used for rollback and load failure reports.
func WithLogger(logger *slog.Logger) Option {
	return func(s *settings) {
		s.logger = logger
	}
}

// Session holds the three mounted containers.
type Session struct {
	cardio    *optimistic.Container[domain.Cardio]
	strength  *optimistic.Container[domain.Strength]
	nutrition *optimistic.Container[domain.Nutrition]
}

// Open loads every category concurrently. Any loader failure fails the whole
// session and is returned as *optimistic.RemoteOperationError.
func Open(ctx context.Context, remotes Remotes, opts ...Option) (*Session, error) {
	cfg := settings{logger: logging.Discard()}
	for _, opt := range opts {
		opt(&cfg)
	}
	obs := observer{logger: cfg.logger}

	s := &Session{}
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		c, err := mount(gctx, domain.CategoryCardio, remotes.Cardio, obs)
		s.cardio = c
		return err
	})
	g.Go(func() error {
		c, err := mount(gctx, domain.CategoryStrength, remotes.Strength, obs)
		s.strength = c
		return err
	})
	g.Go(func() error {
		c, err := mount(gctx, domain.CategoryNutrition, remotes.Nutrition, obs)
		s.nutrition = c
		return err
	})
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return s, nil
}

func mount[P any](ctx context.Context, category domain.Category, r optimistic.Remote[P], obs observer) (*optimistic.Container[P], error) {
	c, err := optimistic.Mount(ctx, string(category), r, optimistic.WithObserver[P](obs))
	if err != nil {
		return nil, err
	}
	label := string(category)
	pendingGauge.WithLabelValues(label).Set(0)
	c.Subscribe(func(optimistic.Action[P], optimistic.State[P]) {
		pendingGauge.WithLabelValues(label).Set(float64(len(c.Pending())))
	})
	return c, nil
}

// Provide attaches all three containers to ctx.
func (s *Session) Provide(ctx context.Context) context.Context {
	ctx = optimistic.Provide(ctx, s.cardio)
	ctx = optimistic.Provide(ctx, s.strength)
	return optimistic.Provide(ctx, s.nutrition)
}

// Cardio returns the cardio container provided in ctx and panics with
// *optimistic.MissingProviderError when there is none.
func Cardio(ctx context.Context) *optimistic.Container[domain.Cardio] {
	return optimistic.MustUse[domain.Cardio](ctx, string(domain.CategoryCardio))
}

// Strength is Cardio for the strength section.
func Strength(ctx context.Context) *optimistic.Container[domain.Strength] {
	return optimistic.MustUse[domain.Strength](ctx, string(domain.CategoryStrength))
}

// Nutrition is Cardio for the nutrition section.
func Nutrition(ctx context.Context) *optimistic.Container[domain.Nutrition] {
	return optimistic.MustUse[domain.Nutrition](ctx, string(domain.CategoryNutrition))
}
