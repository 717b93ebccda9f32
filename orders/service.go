package orders

import (
	"context"

	"fancystore/errs"
	"fancystore/models"

	"github.com/sirupsen/logrus"
)

// Catalog looks up current product records.
type Catalog interface {
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

// List returns all orders newest first, each line joined with the current
// product (nil once the product is deleted).
func (s *Service) List(ctx context.Context) ([]models.OrderView, error) {
	list, err := s.repo.List(ctx)
	if err != nil {
		return nil, err
	}

	seen := map[string]bool{}
	ids := []string{}
	for _, o := range list {
		for _, l := range o.Products {
			if !seen[l.ProductID] {
				seen[l.ProductID] = true
				ids = append(ids, l.ProductID)
			}
		}
	}
	found, err := s.catalog.GetMany(ctx, ids)
	if err != nil {
		return nil, err
	}

	views := make([]models.OrderView, 0, len(list))
	for _, o := range list {
		views = append(views, annotate(o, found))
	}
	return views, nil
}

func annotate(o models.Order, found map[string]models.Product) models.OrderView {
	v := models.OrderView{Order: o, Items: make([]models.OrderItemView, 0, len(o.Products))}
	for _, l := range o.Products {
		item := models.OrderItemView{OrderLine: l}
		if p, ok := found[l.ProductID]; ok {
			item.Product = &p
		}
		v.Items = append(v.Items, item)
	}
	return v
}

// Get returns one order to its owner or to an admin.
func (s *Service) Get(ctx context.Context, id, userID string, isAdmin bool) (*models.OrderView, error) {
	o, err := s.repo.FindByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if !isAdmin && (o.UserID == "" || o.UserID != userID) {
		return nil, errs.Forbidden("Access denied")
	}
	ids := make([]string, 0, len(o.Products))
	for _, l := range o.Products {
		ids = append(ids, l.ProductID)
	}
	found, err := s.catalog.GetMany(ctx, ids)
	if err != nil {
		return nil, err
	}
	v := annotate(*o, found)
	return &v, nil
}
