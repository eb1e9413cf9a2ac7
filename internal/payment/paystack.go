package payment

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/sirupsen/logrus"
)

// ErrGateway marks failures of the external payment provider, including
// timeouts. Callers may retry; no escrow state is settled on this error.
var ErrGateway = errors.New("payment gateway error")

// Client talks to a Paystack-compatible transaction API. Amounts are in
// minor currency units.
type Client struct {
	logger    *logrus.Logger
	client    *http.Client
	secretKey string
	baseURL   string
}

func NewClient(secretKey, baseURL string, logger *logrus.Logger) *Client {
	return &Client{
		logger:    logger,
		secretKey: secretKey,
		baseURL:   baseURL,
		client: &http.Client{
			Timeout: 10 * time.Second,
		},
	}
}

// InitResult is the redirect handle returned by transaction initialization.
type InitResult struct {
	AuthorizationURL string `json:"authorization_url"`
	AccessCode       string `json:"access_code"`
	Reference        string `json:"reference"`
}

type initResponse struct {
	Status  bool       `json:"status"`
	Message string     `json:"message"`
	Data    InitResult `json:"data"`
}

type verifyResponse struct {
	Status  bool   `json:"status"`
	Message string `json:"message"`
	Data    struct {
		Status string `json:"status"`
	} `json:"data"`
}

// Initialize starts a transaction and returns the authorization handle the
// payer is redirected to.
func (c *Client) Initialize(email string, amountMinor int64, reference string) (*InitResult, error) {
	payload := map[string]interface{}{
		"email":     email,
		"amount":    amountMinor,
		"reference": reference,
	}
	jsonData, err := json.Marshal(payload)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal initialize payload: %v", err)
	}

	req, err := http.NewRequest(http.MethodPost, c.baseURL+"/transaction/initialize", bytes.NewBuffer(jsonData))
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrGateway, err)
	}
	req.Header.Set("Authorization", "Bearer "+c.secretKey)
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%w: initialize request failed: %v", ErrGateway, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(resp.Body)
		switch resp.StatusCode {
		case http.StatusUnauthorized:
			return nil, fmt.Errorf("%w: invalid gateway secret key", ErrGateway)
		case http.StatusBadRequest:
			return nil, fmt.Errorf("%w: rejected initialize request: %s", ErrGateway, string(body))
		default:
			return nil, fmt.Errorf("%w: initialize returned status %d: %s", ErrGateway, resp.StatusCode, string(body))
		}
	}

	var init initResponse
	if err := json.NewDecoder(resp.Body).Decode(&init); err != nil {
		return nil, fmt.Errorf("%w: failed to decode initialize response: %v", ErrGateway, err)
	}
	if !init.Status {
		return nil, fmt.Errorf("%w: %s", ErrGateway, init.Message)
	}

	c.logger.WithField("reference", reference).Debug("Initialized gateway transaction")
	return &init.Data, nil
}

// Verify reports whether the transaction behind reference settled
// successfully. A settled=false result with nil error means the gateway
// answered but the payment did not succeed.
func (c *Client) Verify(reference string) (bool, error) {
	req, err := http.NewRequest(http.MethodGet, c.baseURL+"/transaction/verify/"+reference, nil)
	if err != nil {
		return false, fmt.Errorf("%w: %v", ErrGateway, err)
	}
	req.Header.Set("Authorization", "Bearer "+c.secretKey)

	resp, err := c.client.Do(req)
	if err != nil {
		return false, fmt.Errorf("%w: verify request failed: %v", ErrGateway, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(resp.Body)
		if resp.StatusCode == http.StatusNotFound {
			return false, fmt.Errorf("%w: unknown transaction reference", ErrGateway)
		}
		return false, fmt.Errorf("%w: verify returned status %d: %s", ErrGateway, resp.StatusCode, string(body))
	}

	var verification verifyResponse
	if err := json.NewDecoder(resp.Body).Decode(&verification); err != nil {
		return false, fmt.Errorf("%w: failed to decode verify response: %v", ErrGateway, err)
	}

	return verification.Status && verification.Data.Status == "success", nil
}
