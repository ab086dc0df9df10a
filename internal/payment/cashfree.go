package payment

import (
	"context"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"
)

type CashfreeConfig struct {
	AppID      string
	SecretKey  string
	APIURL     string
	APIVersion string
	ReturnURL  string
	NotifyURL  string
	Timeout    time.Duration
}

type CashfreeClient struct {
	AppID      string
	SecretKey  string
	APIURL     string
	APIVersion string
	ReturnURL  string
	NotifyURL  string
	HTTPClient *http.Client
}

func NewCashfreeClient(cfg CashfreeConfig) *CashfreeClient {
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = 10 * time.Second
	}

	return &CashfreeClient{
		AppID:      cfg.AppID,
		SecretKey:  cfg.SecretKey,
		APIURL:     cfg.APIURL,
		APIVersion: cfg.APIVersion,
		ReturnURL:  cfg.ReturnURL,
		NotifyURL:  cfg.NotifyURL,
		HTTPClient: &http.Client{
			Timeout: timeout,
		},
	}
}

func (c *CashfreeClient) Name() string { return ProviderCashfree }

type cashfreeCustomer struct {
	CustomerID    string `json:"customer_id"`
	CustomerName  string `json:"customer_name,omitempty"`
	CustomerEmail string `json:"customer_email,omitempty"`
	CustomerPhone string `json:"customer_phone"`
}

type cashfreeOrderMeta struct {
	ReturnURL string `json:"return_url,omitempty"`
	NotifyURL string `json:"notify_url,omitempty"`
}

type cashfreeOrderRequest struct {
	OrderID         string            `json:"order_id"`
	OrderAmount     float64           `json:"order_amount"`
	OrderCurrency   string            `json:"order_currency"`
	CustomerDetails cashfreeCustomer  `json:"customer_details"`
	OrderMeta       cashfreeOrderMeta `json:"order_meta"`
}

type cashfreeOrderResponse struct {
	CFOrderID        json.Number `json:"cf_order_id"`
	OrderID          string      `json:"order_id"`
	OrderStatus      string      `json:"order_status"`
	PaymentSessionID string      `json:"payment_session_id"`
	PaymentLink      string      `json:"payment_link"`
}

func (c *CashfreeClient) headers() map[string]string {
	return map[string]string{
		"x-client-id":     c.AppID,
		"x-client-secret": c.SecretKey,
		"x-api-version":   c.APIVersion,
	}
}

func (c *CashfreeClient) CreatePayment(ctx context.Context, req Request) Result {
	customerID := req.MerchantUserID
	if customerID == "" {
		customerID = "cust_" + req.Phone
	}

	body := cashfreeOrderRequest{
		OrderID:       req.MerchantTransactionID,
		OrderAmount:   req.Amount,
		OrderCurrency: "INR",
		CustomerDetails: cashfreeCustomer{
			CustomerID:    customerID,
			CustomerName:  req.Name,
			CustomerEmail: req.Email,
			CustomerPhone: req.Phone,
		},
		OrderMeta: cashfreeOrderMeta{
			ReturnURL: withQuery(c.ReturnURL, "merchantTransactionId", req.MerchantTransactionID),
			NotifyURL: c.NotifyURL,
		},
	}

	respBody, err := doRequest(ctx, c.HTTPClient, http.MethodPost, c.APIURL+"/orders", c.headers(), body)
	if err != nil {
		return failure(ProviderCashfree, fmt.Errorf("cashfree: %w", err))
	}

	var resp cashfreeOrderResponse
	if err := json.Unmarshal(respBody, &resp); err != nil {
		return failure(ProviderCashfree, fmt.Errorf("cashfree: failed to unmarshal response: %w", err))
	}

	if resp.PaymentLink == "" {
		return failure(ProviderCashfree, errors.New("cashfree: payment link missing in response"))
	}

	return Result{
		Provider:              ProviderCashfree,
		Success:               true,
		URL:                   resp.PaymentLink,
		ProviderTransactionID: resp.CFOrderID.String(),
	}
}

func (c *CashfreeClient) CheckStatus(ctx context.Context, merchantTransactionID string) (StatusResult, error) {
	respBody, err := doRequest(ctx, c.HTTPClient, http.MethodGet, c.APIURL+"/orders/"+url.PathEscape(merchantTransactionID), c.headers(), nil)
	if err != nil {
		return StatusResult{}, fmt.Errorf("cashfree status: %w", err)
	}

	var resp cashfreeOrderResponse
	if err := json.Unmarshal(respBody, &resp); err != nil {
		return StatusResult{}, fmt.Errorf("cashfree status: failed to unmarshal response: %w", err)
	}

	return StatusResult{
		Status:                cashfreeStatus(resp.OrderStatus),
		Code:                  resp.OrderStatus,
		ProviderTransactionID: resp.CFOrderID.String(),
	}, nil
}

// VerifyWebhook checks the x-webhook-signature header: base64(HMAC-SHA256(timestamp + body, secret)).
func (c *CashfreeClient) VerifyWebhook(signature, timestamp string, body []byte) bool {
	mac := hmac.New(sha256.New, []byte(c.SecretKey))
	mac.Write([]byte(timestamp))
	mac.Write(body)
	expected := base64.StdEncoding.EncodeToString(mac.Sum(nil))
	return hmac.Equal([]byte(signature), []byte(expected))
}

func cashfreeStatus(orderStatus string) Status {
	switch strings.ToUpper(orderStatus) {
	case "PAID":
		return StatusSuccess
	case "EXPIRED", "TERMINATED", "TERMINATION_REQUESTED":
		return StatusFailed
	default:
		return StatusPending
	}
}

func withQuery(raw, key, value string) string {
	if raw == "" {
		return ""
	}
	u, err := url.Parse(raw)
	if err != nil {
		return raw
	}
	q := u.Query()
	q.Set(key, value)
	u.RawQuery = q.Encode()
	return u.String()
}
