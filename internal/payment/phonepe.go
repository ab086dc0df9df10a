package payment

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"
	"math"
	"net/http"
	"time"
)

const (
	phonePePayPath    = "/pg/v1/pay"
	phonePeStatusPath = "/pg/v1/status"
)

type PhonePeMode int

const (
	// PhonePeSimple sends the minimal pay-page payload and relies on the redirect.
	PhonePeSimple PhonePeMode = iota
	// PhonePeStandard also registers the server callback and the customer's mobile number.
	PhonePeStandard
)

type PhonePeConfig struct {
	MerchantID  string
	SaltKey     string
	SaltIndex   string
	APIURL      string
	RedirectURL string
	CallbackURL string
	Timeout     time.Duration
}

type PhonePeClient struct {
	MerchantID  string
	SaltKey     string
	SaltIndex   string
	APIURL      string
	RedirectURL string
	CallbackURL string
	Mode        PhonePeMode
	HTTPClient  *http.Client
}

func NewPhonePeClient(cfg PhonePeConfig, mode PhonePeMode) *PhonePeClient {
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = 10 * time.Second
	}

	return &PhonePeClient{
		MerchantID:  cfg.MerchantID,
		SaltKey:     cfg.SaltKey,
		SaltIndex:   cfg.SaltIndex,
		APIURL:      cfg.APIURL,
		RedirectURL: cfg.RedirectURL,
		CallbackURL: cfg.CallbackURL,
		Mode:        mode,
		HTTPClient: &http.Client{
			Timeout: timeout,
		},
	}
}

func (c *PhonePeClient) Name() string {
	if c.Mode == PhonePeStandard {
		return ProviderPhonePeStandard
	}
	return ProviderPhonePeSimple
}

type phonePeInstrument struct {
	Type string `json:"type"`
}

type phonePePayRequest struct {
	MerchantID            string            `json:"merchantId"`
	MerchantTransactionID string            `json:"merchantTransactionId"`
	MerchantUserID        string            `json:"merchantUserId"`
	Amount                int64             `json:"amount"`
	RedirectURL           string            `json:"redirectUrl"`
	RedirectMode          string            `json:"redirectMode"`
	CallbackURL           string            `json:"callbackUrl,omitempty"`
	MobileNumber          string            `json:"mobileNumber,omitempty"`
	PaymentInstrument     phonePeInstrument `json:"paymentInstrument"`
}

type phonePeEnvelope struct {
	Request string `json:"request"`
}

type phonePeResponse struct {
	Success bool   `json:"success"`
	Code    string `json:"code"`
	Message string `json:"message"`
	Data    struct {
		MerchantTransactionID string `json:"merchantTransactionId"`
		TransactionID         string `json:"transactionId"`
		State                 string `json:"state"`
		ResponseCode          string `json:"responseCode"`
		InstrumentResponse    struct {
			Type         string `json:"type"`
			RedirectInfo struct {
				URL    string `json:"url"`
				Method string `json:"method"`
			} `json:"redirectInfo"`
		} `json:"instrumentResponse"`
	} `json:"data"`
}

// ToPaise converts a rupee amount to the integer paise PhonePe expects.
func ToPaise(amount float64) int64 {
	return int64(math.Round(amount * 100))
}

func (c *PhonePeClient) payload(req Request) phonePePayRequest {
	userID := req.MerchantUserID
	if userID == "" {
		userID = "MUID" + req.Phone
	}

	p := phonePePayRequest{
		MerchantID:            c.MerchantID,
		MerchantTransactionID: req.MerchantTransactionID,
		MerchantUserID:        userID,
		Amount:                ToPaise(req.Amount),
		RedirectURL:           withQuery(c.RedirectURL, "merchantTransactionId", req.MerchantTransactionID),
		RedirectMode:          "REDIRECT",
		PaymentInstrument:     phonePeInstrument{Type: "PAY_PAGE"},
	}

	if c.Mode == PhonePeStandard {
		p.RedirectMode = "POST"
		p.CallbackURL = c.CallbackURL
		p.MobileNumber = req.Phone
	}

	return p
}

func (c *PhonePeClient) CreatePayment(ctx context.Context, req Request) Result {
	name := c.Name()

	jsonPayload, err := json.Marshal(c.payload(req))
	if err != nil {
		return failure(name, fmt.Errorf("%s: failed to marshal payload: %w", name, err))
	}
	encoded := base64.StdEncoding.EncodeToString(jsonPayload)

	headers := map[string]string{
		"X-VERIFY": Checksum(encoded, phonePePayPath, c.SaltKey, c.SaltIndex),
	}

	respBody, err := doRequest(ctx, c.HTTPClient, http.MethodPost, c.APIURL+phonePePayPath, headers, phonePeEnvelope{Request: encoded})
	if err != nil {
		return failure(name, fmt.Errorf("%s: %w", name, err))
	}

	var resp phonePeResponse
	if err := json.Unmarshal(respBody, &resp); err != nil {
		return failure(name, fmt.Errorf("%s: failed to unmarshal response: %w", name, err))
	}

	if !resp.Success {
		msg := resp.Message
		if msg == "" {
			msg = resp.Code
		}
		return failure(name, fmt.Errorf("%s: payment not initiated: %s", name, msg))
	}

	url := resp.Data.InstrumentResponse.RedirectInfo.URL
	if url == "" {
		return failure(name, errors.New(name+": redirect url missing in response"))
	}

	return Result{
		Provider:              name,
		Success:               true,
		URL:                   url,
		ProviderTransactionID: resp.Data.TransactionID,
	}
}

func (c *PhonePeClient) CheckStatus(ctx context.Context, merchantTransactionID string) (StatusResult, error) {
	path := fmt.Sprintf("%s/%s/%s", phonePeStatusPath, c.MerchantID, merchantTransactionID)
	headers := map[string]string{
		"X-VERIFY":      Checksum("", path, c.SaltKey, c.SaltIndex),
		"X-MERCHANT-ID": c.MerchantID,
	}

	respBody, err := doRequest(ctx, c.HTTPClient, http.MethodGet, c.APIURL+path, headers, nil)
	if err != nil {
		return StatusResult{}, fmt.Errorf("phonepe status: %w", err)
	}

	var resp phonePeResponse
	if err := json.Unmarshal(respBody, &resp); err != nil {
		return StatusResult{}, fmt.Errorf("phonepe status: failed to unmarshal response: %w", err)
	}

	return StatusResult{
		Status:                phonePeStatus(resp.Code),
		Code:                  resp.Code,
		ProviderTransactionID: resp.Data.TransactionID,
	}, nil
}

// VerifyCallback checks the X-VERIFY header PhonePe sends with server-to-server callbacks.
func (c *PhonePeClient) VerifyCallback(xVerify, response string) bool {
	return VerifyChecksum(xVerify, response, "", c.SaltKey, c.SaltIndex)
}

func phonePeStatus(code string) Status {
	switch code {
	case "PAYMENT_SUCCESS":
		return StatusSuccess
	case "PAYMENT_ERROR", "PAYMENT_DECLINED", "TIMED_OUT", "AUTHORIZATION_FAILED", "PAYMENT_CANCELLED":
		return StatusFailed
	default:
		return StatusPending
	}
}
