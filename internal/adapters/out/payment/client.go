// Package payment talks to the payment service over HTTP.
package payment

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"time"

	"orderflow/internal/core/domain/model/kernel"
)

var ErrAdjustmentDeclined = errors.New("payment adjustment declined")

type adjustmentRequest struct {
	BuyerID  string `json:"buyerId"`
	Amount   int64  `json:"amount"`
	Currency string `json:"currency"`
}

type declineResponse struct {
	Reason string `json:"reason"`
}

// Client implements ports.PaymentAuthorizer.
type Client struct {
	baseURL *url.URL
	http    *http.Client
}

func NewClient(baseURL string, timeout time.Duration) (*Client, error) {
	u, err := url.Parse(baseURL)
	if err != nil {
		return nil, err
	}
	if u.Scheme == "" || u.Host == "" {
		return nil, fmt.Errorf("payment service url %q is not absolute", baseURL)
	}
	return &Client{baseURL: u, http: &http.Client{Timeout: timeout}}, nil
}

// AuthorizeAdjustment asks to raise the captured amount of the order to
// newTotal. 2xx means authorized; 402, 409 and 422 are a decline.
func (c *Client) AuthorizeAdjustment(ctx context.Context, orderID, buyerID kernel.UUID, newTotal kernel.Money) error {
	body, err := json.Marshal(adjustmentRequest{
		BuyerID:  buyerID.String(),
		Amount:   newTotal.Amount(),
		Currency: newTotal.Currency(),
	})
	if err != nil {
		return err
	}

	endpoint := c.baseURL.JoinPath("payments", orderID.String(), "adjustments")
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint.String(), bytes.NewReader(body))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Idempotency-Key", orderID.String()+":"+fmt.Sprint(newTotal.Amount()))

	resp, err := c.http.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	switch {
	case resp.StatusCode >= 200 && resp.StatusCode < 300:
		_, _ = io.Copy(io.Discard, resp.Body)
		return nil
	case resp.StatusCode == http.StatusPaymentRequired,
		resp.StatusCode == http.StatusConflict,
		resp.StatusCode == http.StatusUnprocessableEntity:
		var decline declineResponse
		_ = json.NewDecoder(io.LimitReader(resp.Body, 4096)).Decode(&decline)
		if decline.Reason == "" {
			return ErrAdjustmentDeclined
		}
		return fmt.Errorf("%w: %s", ErrAdjustmentDeclined, decline.Reason)
	default:
		return fmt.Errorf("payment service answered %s", resp.Status)
	}
}
