/**
 * @description
 * This package provides a client for the Cashfree payment gateway. It
 * encapsulates the logic for making authenticated HTTP requests to the order
 * endpoints, handling request body construction, and parsing responses.
 *
 * Only the order-creation/verification contract matters to the ledger: the
 * checkout widget itself runs in the browser against the session handle this
 * client obtains.
 *
 * @dependencies
 * - bytes, context, encoding/json, fmt, net/http, time: Standard Go libraries.
 */
package cashfree

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log"
	"net/http"
	"time"

	"github.com/shopspring/decimal"
)

// SettlementStatus is the gateway's answer about one order's funds.
type SettlementStatus string

const (
	SettlementSettled SettlementStatus = "settled"
	SettlementFailed  SettlementStatus = "failed"
	SettlementPending SettlementStatus = "pending"
)

// Client is a client for the Cashfree payment gateway API.
type Client struct {
	BaseURL      string
	ClientID     string
	ClientSecret string
	HTTPClient   *http.Client
}

// NewClient creates a new Cashfree API client.
func NewClient(baseURL, clientID, clientSecret string) *Client {
	return &Client{
		BaseURL:      baseURL,
		ClientID:     clientID,
		ClientSecret: clientSecret,
		HTTPClient: &http.Client{
			Timeout: 30 * time.Second,
		},
	}
}

// CreateOrderRequest is the payload for creating a payment order. The order id
// is our transaction id, which keys the later settlement lookup.
type CreateOrderRequest struct {
	OrderID       string `json:"order_id"`
	OrderAmount   string `json:"order_amount"`
	OrderCurrency string `json:"order_currency"`
	CustomerID    string `json:"customer_id"`
}

// CreateOrderResponse carries the session handle the browser checkout needs.
type CreateOrderResponse struct {
	OrderID          string `json:"order_id"`
	PaymentSessionID string `json:"payment_session_id"`
	OrderStatus      string `json:"order_status"`
}

// OrderStatusResponse is the gateway's view of an order when queried.
type OrderStatusResponse struct {
	OrderID     string `json:"order_id"`
	OrderStatus string `json:"order_status"`
	ReferenceID string `json:"cf_order_id"`
}

// ErrorResponse represents an error from the gateway API.
type ErrorResponse struct {
	Message string `json:"message"`
	Code    string `json:"code"`
	Type    string `json:"type"`
}

func (e *ErrorResponse) Error() string {
	if e.Message != "" {
		return fmt.Sprintf("cashfree api error: %s - %s", e.Code, e.Message)
	}
	return "unknown cashfree api error"
}

// CreateOrder registers a payment order and returns the session handle.
func (c *Client) CreateOrder(ctx context.Context, orderID, customerID string, amount decimal.Decimal) (*CreateOrderResponse, error) {
	payload := CreateOrderRequest{
		OrderID:       orderID,
		OrderAmount:   amount.StringFixed(2),
		OrderCurrency: "INR",
		CustomerID:    customerID,
	}
	body, err := json.Marshal(payload)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal order request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, "POST", c.BaseURL+"/orders", bytes.NewBuffer(body))
	if err != nil {
		return nil, fmt.Errorf("failed to create order request: %w", err)
	}
	c.setHeaders(req)

	resp, err := c.HTTPClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("failed to execute order request: %w", err)
	}
	defer resp.Body.Close()

	bodyBytes, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read order response: %w", err)
	}

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, c.decodeError("create_order", resp.StatusCode, bodyBytes)
	}

	var orderResp CreateOrderResponse
	if err := json.Unmarshal(bodyBytes, &orderResp); err != nil {
		return nil, fmt.Errorf("failed to decode order response: %w", err)
	}
	return &orderResp, nil
}

// GetSettlement queries the gateway for the settlement truth of one order.
// The mapping is deliberately conservative: only an explicit PAID answer
// counts as settled, only an explicit terminal failure counts as failed, and
// everything else stays pending so the caller never guesses success.
func (c *Client) GetSettlement(ctx context.Context, orderID string) (SettlementStatus, string, error) {
	req, err := http.NewRequestWithContext(ctx, "GET", c.BaseURL+"/orders/"+orderID, nil)
	if err != nil {
		return SettlementPending, "", fmt.Errorf("failed to create status request: %w", err)
	}
	c.setHeaders(req)

	resp, err := c.HTTPClient.Do(req)
	if err != nil {
		return SettlementPending, "", fmt.Errorf("failed to execute status request: %w", err)
	}
	defer resp.Body.Close()

	bodyBytes, err := io.ReadAll(resp.Body)
	if err != nil {
		return SettlementPending, "", fmt.Errorf("failed to read status response: %w", err)
	}

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return SettlementPending, "", c.decodeError("get_settlement", resp.StatusCode, bodyBytes)
	}

	var statusResp OrderStatusResponse
	if err := json.Unmarshal(bodyBytes, &statusResp); err != nil {
		return SettlementPending, "", fmt.Errorf("failed to decode status response: %w", err)
	}

	switch statusResp.OrderStatus {
	case "PAID":
		return SettlementSettled, statusResp.ReferenceID, nil
	case "EXPIRED", "TERMINATED", "FAILED":
		return SettlementFailed, statusResp.ReferenceID, nil
	default: // ACTIVE, TERMINATION_REQUESTED, anything unrecognized
		return SettlementPending, statusResp.ReferenceID, nil
	}
}

func (c *Client) setHeaders(req *http.Request) {
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "application/json")
	req.Header.Set("x-api-version", "2023-08-01")
	req.Header.Set("x-client-id", c.ClientID)
	req.Header.Set("x-client-secret", c.ClientSecret)
}

func (c *Client) decodeError(op string, status int, body []byte) error {
	var errResp ErrorResponse
	if err := json.Unmarshal(body, &errResp); err != nil {
		log.Printf("level=warn component=cashfree_client op=%s status=%d msg=\"non-2xx response (unparsable error body)\"", op, status)
		return fmt.Errorf("failed to decode error response (status %d)", status)
	}
	log.Printf("level=warn component=cashfree_client op=%s status=%d code=%q detail=%q", op, status, errResp.Code, errResp.Message)
	return &errResp
}
