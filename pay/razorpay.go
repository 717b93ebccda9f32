package pay

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"fancystore/errs"

	"golang.org/x/time/rate"
)

// OrderRequest asks the gateway for a payable order. Amount is in minor
// units (paise).
type OrderRequest struct {
	Amount   int64  `json:"amount"`
	Currency string `json:"currency"`
	Receipt  string `json:"receipt"`
}

type GatewayOrder struct {
	ID       string `json:"id"`
	Entity   string `json:"entity"`
	Amount   int64  `json:"amount"`
	Currency string `json:"currency"`
	Receipt  string `json:"receipt"`
	Status   string `json:"status"`
}

// Gateway creates orders with the payment provider.
type Gateway interface {
	CreateOrder(ctx context.Context, req OrderRequest) (*GatewayOrder, error)
}

type RazorpayClient struct {
	baseURL   string
	keyID     string
	keySecret string
	http      *http.Client
	limiter   *rate.Limiter
}

// NewRazorpayClient paces outgoing calls at rps requests per second.
func NewRazorpayClient(baseURL, keyID, keySecret string, rps float64) *RazorpayClient {
	if rps <= 0 {
		rps = 5
	}
	return &RazorpayClient{
		baseURL:   strings.TrimRight(baseURL, "/"),
		keyID:     keyID,
		keySecret: keySecret,
		http:      &http.Client{Timeout: 15 * time.Second},
		limiter:   rate.NewLimiter(rate.Limit(rps), 1),
	}
}

type razorpayError struct {
	Error struct {
		Code        string `json:"code"`
		Description string `json:"description"`
	} `json:"error"`
}

func (c *RazorpayClient) CreateOrder(ctx context.Context, in OrderRequest) (*GatewayOrder, error) {
	if err := c.limiter.Wait(ctx); err != nil {
		return nil, errs.Gateway("Order creation failed", fmt.Errorf("rate limit wait: %w", err))
	}

	body, err := json.Marshal(in)
	if err != nil {
		return nil, errs.Internal("Order creation failed", err)
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/orders", bytes.NewReader(body))
	if err != nil {
		return nil, errs.Internal("Order creation failed", err)
	}
	req.SetBasicAuth(c.keyID, c.keySecret)
	req.Header.Set("Content-Type", "application/json")

	res, err := c.http.Do(req)
	if err != nil {
		return nil, errs.Gateway("Order creation failed", err)
	}
	defer res.Body.Close()

	raw, err := io.ReadAll(io.LimitReader(res.Body, 1<<20))
	if err != nil {
		return nil, errs.Gateway("Order creation failed", err)
	}
	if res.StatusCode/100 != 2 {
		var re razorpayError
		if json.Unmarshal(raw, &re) == nil && re.Error.Description != "" {
			return nil, errs.Gateway("Order creation failed", errors.New(re.Error.Description))
		}
		return nil, errs.Gateway("Order creation failed", fmt.Errorf("gateway returned %s", res.Status))
	}

	var order GatewayOrder
	if err := json.Unmarshal(raw, &order); err != nil {
		return nil, errs.Gateway("Order creation failed", fmt.Errorf("decode gateway order: %w", err))
	}
	if order.ID == "" {
		return nil, errs.Gateway("Order creation failed", errors.New("gateway order has no id"))
	}
	return &order, nil
}
