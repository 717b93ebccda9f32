package products

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync/atomic"
	"time"

	"fancystore/errs"
	"fancystore/models"
	"fancystore/rdx"
	"fancystore/utils"

	"github.com/sirupsen/logrus"
)

const listCacheKey = "products:all"

// Event types published to the Notifier.
const (
	EventCreated = "created"
	EventUpdated = "updated"
	EventDeleted = "deleted"
	EventStock   = "stock"
)

type Event struct {
	Type       string   `json:"type"`
	ProductIDs []string `json:"productIds"`
	At         int64    `json:"at"`
}

// Notifier receives catalog change events.
type Notifier interface {
	Publish(Event)
}

type nopNotifier struct{}

func (nopNotifier) Publish(Event) {}

type Service struct {
	repo     Repository
	cache    rdx.Cache
	cacheTTL time.Duration
	notifier Notifier
	logger   logrus.FieldLogger
	// bumped on every invalidation
	gen atomic.Uint64
}

func NewService(repo Repository, cache rdx.Cache, cacheTTL time.Duration, notifier Notifier, logger logrus.FieldLogger) *Service {
	if cache == nil {
		cache = rdx.NopCache{}
	}
	if notifier == nil {
		notifier = nopNotifier{}
	}
	return &Service{repo: repo, cache: cache, cacheTTL: cacheTTL, notifier: notifier, logger: logger}
}

func (s *Service) List(ctx context.Context) ([]models.Product, error) {
	var cached []models.Product
	if hit, err := s.cache.Get(ctx, listCacheKey, &cached); err != nil {
		s.logger.WithError(err).Warn("product cache read failed")
	} else if hit {
		return cached, nil
	}

	gen := s.gen.Load()
	list, err := s.repo.List(ctx)
	if err != nil {
		return nil, err
	}
	if s.cacheTTL > 0 {
		s.fill(ctx, gen, list)
	}
	return list, nil
}

// fill caches list unless the catalog changed since it was read at gen.
func (s *Service) fill(ctx context.Context, gen uint64, list []models.Product) {
	if s.gen.Load() != gen {
		return
	}
	if err := s.cache.Set(ctx, listCacheKey, list, s.cacheTTL); err != nil {
		s.logger.WithError(err).Warn("product cache write failed")
		return
	}
	// an invalidation may have landed between the check and the write
	if s.gen.Load() != gen {
		if err := s.cache.Delete(ctx, listCacheKey); err != nil {
			s.logger.WithError(err).Warn("product cache invalidation failed")
		}
	}
}

func (s *Service) Get(ctx context.Context, id string) (*models.Product, error) {
	if id == "" {
		return nil, ErrNotFound
	}
	return s.repo.Get(ctx, id)
}

func validateProduct(p *models.Product) error {
	switch {
	case strings.TrimSpace(p.Name) == "":
		return errs.Validation("Name is required")
	case strings.TrimSpace(p.Category) == "":
		return errs.Validation("Category is required")
	case strings.TrimSpace(p.Image) == "":
		return errs.Validation("Image is required")
	case p.Cost < 0:
		return errs.Validation("Cost must be a non-negative number")
	case p.Quantity < 0:
		return errs.Validation("Quantity must be a non-negative integer")
	}
	return nil
}

func (s *Service) Create(ctx context.Context, p models.Product) (*models.Product, error) {
	p.ID = utils.NewObjectID()
	p.Name = strings.TrimSpace(p.Name)
	p.Category = strings.TrimSpace(p.Category)
	if err := validateProduct(&p); err != nil {
		return nil, err
	}
	if err := s.repo.Create(ctx, &p); err != nil {
		return nil, err
	}
	s.changed(ctx, EventCreated, p.ID)
	return &p, nil
}

func (s *Service) Update(ctx context.Context, id string, patch models.ProductPatch) (*models.Product, error) {
	if patch.Empty() {
		return nil, errs.Validation("No fields to update")
	}
	if patch.Name != nil && strings.TrimSpace(*patch.Name) == "" {
		return nil, errs.Validation("Name cannot be empty")
	}
	if patch.Cost != nil && *patch.Cost < 0 {
		return nil, errs.Validation("Cost must be a non-negative number")
	}
	if patch.Quantity != nil && *patch.Quantity < 0 {
		return nil, errs.Validation("Quantity must be a non-negative integer")
	}
	updated, err := s.repo.Update(ctx, id, patch)
	if err != nil {
		return nil, err
	}
	s.changed(ctx, EventUpdated, id)
	return updated, nil
}

func (s *Service) Delete(ctx context.Context, id string) error {
	if err := s.repo.Delete(ctx, id); err != nil {
		return err
	}
	s.changed(ctx, EventDeleted, id)
	return nil
}

// Line is a stock line resolved against the catalog.
type Line struct {
	Product  models.Product
	Quantity int
}

// mergeLines folds duplicate product ids together, keeping first-seen order.
func mergeLines(lines []models.StockLine) ([]models.StockLine, error) {
	merged := make([]models.StockLine, 0, len(lines))
	index := make(map[string]int, len(lines))
	for _, l := range lines {
		if l.ProductID == "" {
			return nil, errs.Validation("Product id is required")
		}
		if l.Quantity < 1 {
			return nil, errs.Validation("Quantity must be at least 1")
		}
		if i, ok := index[l.ProductID]; ok {
			merged[i].Quantity += l.Quantity
			continue
		}
		index[l.ProductID] = len(merged)
		merged = append(merged, l)
	}
	return merged, nil
}

// Check resolves lines against current stock without changing it.
func (s *Service) Check(ctx context.Context, lines []models.StockLine) ([]Line, error) {
	merged, err := mergeLines(lines)
	if err != nil {
		return nil, err
	}
	ids := make([]string, 0, len(merged))
	for _, l := range merged {
		ids = append(ids, l.ProductID)
	}
	found, err := s.repo.GetMany(ctx, ids)
	if err != nil {
		return nil, err
	}

	resolved := make([]Line, 0, len(merged))
	for _, l := range merged {
		p, ok := found[l.ProductID]
		if !ok {
			return nil, errs.NotFound("Product not found: " + l.ProductID)
		}
		if p.Quantity < l.Quantity {
			return nil, &errs.StockError{ProductID: p.ID, Name: p.Name, Requested: l.Quantity, Available: p.Quantity}
		}
		resolved = append(resolved, Line{Product: p, Quantity: l.Quantity})
	}
	return resolved, nil
}

// Reserve takes every line from stock or none of them.
func (s *Service) Reserve(ctx context.Context, lines []models.StockLine) ([]Line, error) {
	resolved, err := s.Check(ctx, lines)
	if err != nil {
		return nil, err
	}

	applied := make([]models.StockLine, 0, len(resolved))
	for _, l := range resolved {
		ok, err := s.repo.Decrement(ctx, l.Product.ID, l.Quantity)
		if err == nil && ok {
			applied = append(applied, models.StockLine{ProductID: l.Product.ID, Quantity: l.Quantity})
			continue
		}
		// roll back whatever was taken before this line
		if rerr := s.restore(context.WithoutCancel(ctx), applied); rerr != nil {
			s.logger.WithError(rerr).Error("stock rollback incomplete")
		}
		if err != nil {
			return nil, err
		}
		available := 0
		if cur, gerr := s.repo.Get(ctx, l.Product.ID); gerr == nil {
			available = cur.Quantity
		} else if errors.Is(gerr, ErrNotFound) {
			return nil, errs.NotFound("Product not found: " + l.Product.ID)
		}
		return nil, &errs.StockError{ProductID: l.Product.ID, Name: l.Product.Name, Requested: l.Quantity, Available: available}
	}

	s.changed(ctx, EventStock, stockIDs(applied)...)
	return resolved, nil
}

// Release gives reserved stock back.
func (s *Service) Release(ctx context.Context, lines []models.StockLine) error {
	merged, err := mergeLines(lines)
	if err != nil {
		return err
	}
	if err := s.restore(ctx, merged); err != nil {
		return err
	}
	s.changed(ctx, EventStock, stockIDs(merged)...)
	return nil
}

func (s *Service) restore(ctx context.Context, lines []models.StockLine) error {
	var errList []error
	for _, l := range lines {
		if err := s.repo.Increment(ctx, l.ProductID, l.Quantity); err != nil {
			errList = append(errList, fmt.Errorf("release %d of %s: %w", l.Quantity, l.ProductID, err))
		}
	}
	return errors.Join(errList...)
}

func stockIDs(lines []models.StockLine) []string {
	ids := make([]string, 0, len(lines))
	for _, l := range lines {
		ids = append(ids, l.ProductID)
	}
	return ids
}

func (s *Service) changed(ctx context.Context, kind string, ids ...string) {
	s.gen.Add(1)
	if err := s.cache.Delete(ctx, listCacheKey); err != nil {
		s.logger.WithError(err).Warn("product cache invalidation failed")
	}
	s.notifier.Publish(Event{Type: kind, ProductIDs: ids, At: time.Now().UnixMilli()})
}
