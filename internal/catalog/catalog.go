// Package catalog keeps the food items stock can be received for.
package catalog

import (
	"context"
	"database/sql"
	"sort"
	"time"

	"github.com/erazemk/shramba/internal/model"
	"github.com/erazemk/shramba/internal/store"
	"go.uber.org/zap"
)

// Service reads and extends the catalog.
type Service struct {
	db     *sql.DB
	logger *zap.Logger
	now    func() time.Time
}

// NewService creates a catalog service.
func NewService(db *sql.DB, logger *zap.Logger) *Service {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Service{db: db, logger: logger, now: time.Now}
}

// Create adds a food item. Names are unique.
func (s *Service) Create(ctx context.Context, item model.FoodItem) (*model.FoodItem, error) {
	if err := item.Validate(); err != nil {
		return nil, err
	}
	if item.ExpirationDate.IsZero() {
		return nil, model.InvalidInputf("expiration_date required")
	}
	item.AddedOn = s.now()

	if err := store.CreateFoodItem(ctx, s.db, &item); err != nil {
		if store.IsUniqueViolation(err) {
			return nil, model.Conflictf("food item %q already exists", item.Name)
		}
		return nil, err
	}
	s.logger.Info("food item added", zap.String("name", item.Name), zap.String("unit", item.Unit))
	return &item, nil
}

// Lookup returns the catalog entry for a food name.
func (s *Service) Lookup(ctx context.Context, name string) (*model.FoodItem, error) {
	item, err := store.GetFoodItem(ctx, s.db, name)
	if err != nil {
		return nil, err
	}
	if item == nil {
		return nil, model.NotFoundf("food item %q not found", name)
	}
	return item, nil
}

// List returns the catalog, optionally limited to one category.
func (s *Service) List(ctx context.Context, category string) ([]model.FoodItem, error) {
	return store.ListFoodItems(ctx, s.db, category)
}

// Expiring returns items whose expiration date falls before now+within,
// soonest first. Already expired items are included.
func (s *Service) Expiring(ctx context.Context, within time.Duration) ([]model.FoodItem, error) {
	items, err := store.ListFoodItems(ctx, s.db, "")
	if err != nil {
		return nil, err
	}
	cutoff := s.now().Add(within)

	var out []model.FoodItem
	for _, it := range items {
		if it.ExpirationDate.Before(cutoff) {
			out = append(out, it)
		}
	}
	sort.SliceStable(out, func(i, j int) bool {
		return out[i].ExpirationDate.Before(out[j].ExpirationDate)
	})
	return out, nil
}
