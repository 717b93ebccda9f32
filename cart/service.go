package cart

import (
	"context"
	"errors"

	"fancystore/errs"
	"fancystore/models"

	"github.com/sirupsen/logrus"
)

// Catalog is the read side of the product store.
type Catalog interface {
	Get(ctx context.Context, id string) (*models.Product, error)
	GetMany(ctx context.Context, ids []string) (map[string]models.Product, error)
}

type Service struct {
	repo    Repository
	catalog Catalog
	logger  logrus.FieldLogger
}

func NewService(repo Repository, catalog Catalog, logger logrus.FieldLogger) *Service {
	return &Service{repo: repo, catalog: catalog, logger: logger}
}

// Add puts one more unit of productID in the cart. Stock is checked but
// not held.
func (s *Service) Add(ctx context.Context, userID, productID string) error {
	if productID == "" {
		return errs.Validation("Product id is required")
	}
	p, err := s.catalog.Get(ctx, productID)
	if err != nil {
		return err
	}
	if p.Quantity <= 0 {
		return &errs.StockError{ProductID: p.ID, Requested: 1, Available: 0}
	}
	return s.repo.AddOne(ctx, userID, productID)
}

// SetQuantity replaces the quantity of an existing line.
func (s *Service) SetQuantity(ctx context.Context, userID, productID string, n int) error {
	if n < 1 {
		return errs.Validation("Quantity must be at least 1")
	}
	p, err := s.catalog.Get(ctx, productID)
	if err != nil {
		return err
	}
	if p.Quantity < n {
		return &errs.StockError{ProductID: p.ID, Requested: n, Available: p.Quantity}
	}
	return s.repo.SetQuantity(ctx, userID, productID, n)
}

// Remove drops the line if present.
func (s *Service) Remove(ctx context.Context, userID, productID string) error {
	return s.repo.RemoveLine(ctx, userID, productID)
}

// View joins the cart with current products. Lines whose product was
// deleted are left out.
func (s *Service) View(ctx context.Context, userID string) ([]models.CartItem, error) {
	c, err := s.repo.Get(ctx, userID)
	if errors.Is(err, ErrCartNotFound) {
		return []models.CartItem{}, nil
	}
	if err != nil {
		return nil, err
	}

	ids := make([]string, 0, len(c.Products))
	for _, l := range c.Products {
		ids = append(ids, l.ProductID)
	}
	found, err := s.catalog.GetMany(ctx, ids)
	if err != nil {
		return nil, err
	}

	items := make([]models.CartItem, 0, len(c.Products))
	for _, l := range c.Products {
		p, ok := found[l.ProductID]
		if !ok {
			s.logger.WithFields(logrus.Fields{"userId": userID, "productId": l.ProductID}).Debug("dropping dangling cart line")
			continue
		}
		items = append(items, models.CartItem{Product: p, CartQuantity: l.Quantity})
	}
	return items, nil
}

// Lines returns the cart lines whose product still exists, or
// ErrCartNotFound. Dangling lines are pruned from the stored cart.
func (s *Service) Lines(ctx context.Context, userID string) ([]models.StockLine, error) {
	c, err := s.repo.Get(ctx, userID)
	if err != nil {
		return nil, err
	}
	lines := c.Lines()
	ids := make([]string, 0, len(lines))
	for _, l := range lines {
		ids = append(ids, l.ProductID)
	}
	found, err := s.catalog.GetMany(ctx, ids)
	if err != nil {
		return nil, err
	}

	kept := make([]models.StockLine, 0, len(lines))
	for _, l := range lines {
		if _, ok := found[l.ProductID]; ok {
			kept = append(kept, l)
			continue
		}
		if err := s.repo.RemoveLine(ctx, userID, l.ProductID); err != nil {
			s.logger.WithError(err).WithField("productId", l.ProductID).Warn("dangling cart line not pruned")
			continue
		}
		s.logger.WithFields(logrus.Fields{"userId": userID, "productId": l.ProductID}).Info("pruned dangling cart line")
	}
	return kept, nil
}

func (s *Service) Clear(ctx context.Context, userID string) error {
	return s.repo.Delete(ctx, userID)
}
