package library

import (
	"context"
	"fmt"
	"strings"

	"github.com/aristath/sentinel-desk/internal/domain"
	"github.com/rs/zerolog"
)

// Library bundles both categories over one store.
type Library struct {
	Portfolios *Collection[domain.SavedPortfolio]
	Policies   *Collection[domain.AllocationPolicy]
}

// Open loads both collections from store.
func Open(ctx context.Context, store BlobStore, log zerolog.Logger) (*Library, error) {
	portfolios, err := NewCollection[domain.SavedPortfolio](ctx, store, KeySavedPortfolios, log)
	if err != nil {
		return nil, fmt.Errorf("failed to open saved portfolios: %w", err)
	}
	policies, err := NewCollection[domain.AllocationPolicy](ctx, store, KeyAllocationPolicies, log)
	if err != nil {
		return nil, fmt.Errorf("failed to open allocation policies: %w", err)
	}
	return &Library{Portfolios: portfolios, Policies: policies}, nil
}

// SavePortfolio validates and stores a portfolio under name. An existing
// record with the same name is overwritten.
func (l *Library) SavePortfolio(ctx context.Context, name string, p domain.Portfolio) (Record[domain.SavedPortfolio], error) {
	name = strings.TrimSpace(name)
	if err := domain.ValidatePortfolio(p); err != nil {
		return Record[domain.SavedPortfolio]{}, err
	}
	rec := Record[domain.SavedPortfolio]{Name: name, Value: domain.SavedPortfolio{Name: name, Portfolio: p.Clone()}}
	if existing, ok := l.Portfolios.FindByName(ctx, name); ok {
		rec.ID = existing.ID
	}
	return l.Portfolios.Put(ctx, rec)
}

// SavePolicy validates and stores a policy under its name, bumping the
// version when a policy of that name already exists.
func (l *Library) SavePolicy(ctx context.Context, p domain.AllocationPolicy) (Record[domain.AllocationPolicy], error) {
	p.Name = strings.TrimSpace(p.Name)
	p.AllocatorVersion = p.AllocatorVersion.Normalize()
	if err := domain.ValidateConstraints(p.Constraints); err != nil {
		return Record[domain.AllocationPolicy]{}, err
	}

	rec := Record[domain.AllocationPolicy]{Name: p.Name}
	if existing, ok := l.Policies.FindByName(ctx, p.Name); ok {
		rec.ID = existing.ID
		if p.Version <= existing.Value.Version {
			p.Version = existing.Value.Version + 1
		}
	}
	if p.Version <= 0 {
		p.Version = 1
	}
	rec.Value = p
	return l.Policies.Put(ctx, rec)
}
