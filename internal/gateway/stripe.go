package gateway

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"vibes/internal/logger"
)

// StripeClient talks the Stripe wire protocol (form-encoded requests,
// JSON responses). Every call carries a bounded timeout; only
// GetPaymentIntent retries, and only once, because mutating calls must
// never be auto-repeated.
type StripeClient struct {
	baseURL   string
	secretKey string
	client    *http.Client
}

func NewStripeClient(baseURL, secretKey string, timeout time.Duration) *StripeClient {
	if timeout <= 0 {
		timeout = 15 * time.Second
	}
	return &StripeClient{
		baseURL:   strings.TrimRight(baseURL, "/"),
		secretKey: secretKey,
		client:    &http.Client{Timeout: timeout},
	}
}

type apiError struct {
	Error struct {
		Message string `json:"message"`
		Code    string `json:"code"`
	} `json:"error"`
}

type intentPayload struct {
	ID           string `json:"id"`
	ClientSecret string `json:"client_secret"`
	Status       string `json:"status"`
	Amount       int64  `json:"amount"`
	Currency     string `json:"currency"`
}

func (s *StripeClient) CreateCustomer(ctx context.Context, profile CustomerProfile) (string, error) {
	form := url.Values{}
	form.Set("name", profile.Name)
	form.Set("email", profile.Email)
	if profile.Phone != "" {
		form.Set("phone", profile.Phone)
	}

	var resp struct {
		ID string `json:"id"`
	}
	if err := s.post(ctx, "/v1/customers", form, &resp); err != nil {
		return "", &Error{Op: "create_customer", Err: err}
	}
	return resp.ID, nil
}

func (s *StripeClient) CreatePaymentIntent(ctx context.Context, amountCents int64, currency string, metadata map[string]string) (*Intent, error) {
	form := url.Values{}
	form.Set("amount", strconv.FormatInt(amountCents, 10))
	form.Set("currency", currency)
	for k, v := range metadata {
		form.Set("metadata["+k+"]", v)
	}

	var resp intentPayload
	if err := s.post(ctx, "/v1/payment_intents", form, &resp); err != nil {
		return nil, &IntentCreationError{Reason: err.Error()}
	}
	return intentFromPayload(&resp), nil
}

func (s *StripeClient) ConfirmPaymentIntent(ctx context.Context, intentID, paymentMethod string) (*ConfirmResult, error) {
	form := url.Values{}
	if paymentMethod != "" {
		form.Set("payment_method", paymentMethod)
	}

	var resp intentPayload
	err := s.post(ctx, "/v1/payment_intents/"+intentID+"/confirm", form, &resp)
	if err == nil {
		return &ConfirmResult{Status: mapIntentStatus(resp.Status)}, nil
	}

	// The processor rejects confirmation of an already-succeeded intent.
	// Re-read the intent to tell that apart from a real failure.
	current, getErr := s.GetPaymentIntent(ctx, intentID)
	if getErr == nil && current.Status == IntentStatusSucceeded {
		return &ConfirmResult{Status: IntentStatusSucceeded, AlreadyConfirmed: true}, nil
	}

	return nil, &Error{Op: "confirm_payment_intent", Err: err}
}

func (s *StripeClient) GetPaymentIntent(ctx context.Context, intentID string) (*Intent, error) {
	var resp intentPayload
	err := s.get(ctx, "/v1/payment_intents/"+intentID, &resp)
	if err != nil {
		// Reads are safe to retry once.
		logger.Debug("retrying payment intent read", "intent_id", intentID, "error", err)
		if err = s.get(ctx, "/v1/payment_intents/"+intentID, &resp); err != nil {
			return nil, &Error{Op: "get_payment_intent", Err: err}
		}
	}
	return intentFromPayload(&resp), nil
}

func (s *StripeClient) Refund(ctx context.Context, intentID string, amountCents int64, reason string) (*RefundResult, error) {
	form := url.Values{}
	form.Set("payment_intent", intentID)
	form.Set("amount", strconv.FormatInt(amountCents, 10))
	if reason != "" {
		form.Set("metadata[reason]", reason)
	}

	var resp struct {
		ID     string `json:"id"`
		Status string `json:"status"`
	}
	if err := s.post(ctx, "/v1/refunds", form, &resp); err != nil {
		return nil, &RefundError{Err: err}
	}

	return &RefundResult{
		RefundID:  resp.ID,
		Succeeded: resp.Status == "succeeded" || resp.Status == "pending",
	}, nil
}

func (s *StripeClient) post(ctx context.Context, path string, form url.Values, out interface{}) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, s.baseURL+path, strings.NewReader(form.Encode()))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	return s.do(req, out)
}

func (s *StripeClient) get(ctx context.Context, path string, out interface{}) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, s.baseURL+path, nil)
	if err != nil {
		return err
	}
	return s.do(req, out)
}

func (s *StripeClient) do(req *http.Request, out interface{}) error {
	req.Header.Set("Authorization", "Bearer "+s.secretKey)

	resp, err := s.client.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return err
	}

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		var apiErr apiError
		if json.Unmarshal(body, &apiErr) == nil && apiErr.Error.Message != "" {
			return fmt.Errorf("%s (code=%s, http=%d)", apiErr.Error.Message, apiErr.Error.Code, resp.StatusCode)
		}
		return fmt.Errorf("unexpected status %d", resp.StatusCode)
	}

	return json.Unmarshal(body, out)
}

func intentFromPayload(p *intentPayload) *Intent {
	return &Intent{
		ID:           p.ID,
		ClientSecret: p.ClientSecret,
		Status:       mapIntentStatus(p.Status),
		AmountCents:  p.Amount,
		Currency:     p.Currency,
	}
}

func mapIntentStatus(s string) IntentStatus {
	switch s {
	case "succeeded":
		return IntentStatusSucceeded
	case "processing":
		return IntentStatusProcessing
	case "canceled":
		return IntentStatusCanceled
	case "requires_confirmation", "requires_payment_method", "requires_action":
		return IntentStatusRequiresConfirmation
	default:
		return IntentStatusFailed
	}
}
