package cart

import (
	"context"
	"errors"
	"sync"
	"time"

	"fancystore/models"
)

// MemoryRepository is an in-process Repository, used in tests.
type MemoryRepository struct {
	mu        sync.Mutex
	carts     map[string]*models.Cart
	failClear bool
}

func NewMemoryRepository() *MemoryRepository {
	return &MemoryRepository{carts: make(map[string]*models.Cart)}
}

func cloneCart(c *models.Cart) *models.Cart {
	cp := *c
	cp.Products = append([]models.CartLine(nil), c.Products...)
	return &cp
}

func (m *MemoryRepository) Get(_ context.Context, userID string) (*models.Cart, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	c, ok := m.carts[userID]
	if !ok {
		return nil, ErrCartNotFound
	}
	return cloneCart(c), nil
}

func (m *MemoryRepository) AddOne(_ context.Context, userID, productID string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	c, ok := m.carts[userID]
	if !ok {
		c = &models.Cart{UserID: userID}
		m.carts[userID] = c
	}
	c.UpdatedAt = time.Now().UTC()
	for i := range c.Products {
		if c.Products[i].ProductID == productID {
			c.Products[i].Quantity++
			return nil
		}
	}
	c.Products = append(c.Products, models.CartLine{ProductID: productID, Quantity: 1})
	return nil
}

func (m *MemoryRepository) SetQuantity(_ context.Context, userID, productID string, n int) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	c, ok := m.carts[userID]
	if !ok {
		return ErrCartNotFound
	}
	for i := range c.Products {
		if c.Products[i].ProductID == productID {
			c.Products[i].Quantity = n
			return nil
		}
	}
	return ErrItemNotFound
}

func (m *MemoryRepository) RemoveLine(_ context.Context, userID, productID string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	c, ok := m.carts[userID]
	if !ok {
		return nil
	}
	kept := c.Products[:0]
	for _, l := range c.Products {
		if l.ProductID != productID {
			kept = append(kept, l)
		}
	}
	c.Products = kept
	return nil
}

func (m *MemoryRepository) Delete(_ context.Context, userID string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.failClear {
		return errors.New("cart store unavailable")
	}
	delete(m.carts, userID)
	return nil
}

// Put replaces the cart of c.UserID.
func (m *MemoryRepository) Put(c models.Cart) {
	m.mu.Lock()
	m.carts[c.UserID] = cloneCart(&c)
	m.mu.Unlock()
}

// SetFailDelete makes Delete fail, to exercise compensation paths.
func (m *MemoryRepository) SetFailDelete(fail bool) {
	m.mu.Lock()
	m.failClear = fail
	m.mu.Unlock()
}
