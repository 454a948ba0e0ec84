// Package r4 implements the outbound client for the bank network's API.
// Every request is signed with the same per-endpoint HMAC policies the
// gateway enforces on inbound traffic.
package r4

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"go.uber.org/zap"

	"github.com/lystopay/r4-gateway/internal/auth"
	"github.com/lystopay/r4-gateway/internal/config"
	"github.com/lystopay/r4-gateway/internal/domain"
	"github.com/lystopay/r4-gateway/pkg/observability"
)

// HTTPClient abstracts the HTTP transport for testing.
type HTTPClient interface {
	Do(req *http.Request) (*http.Response, error)
}

// Client talks to the upstream bank network.
type Client struct {
	baseURL    string
	merchantID string
	secret     string
	httpClient HTTPClient
	logger     *zap.Logger
}

// NewClient creates an upstream client from the gateway configuration.
func NewClient(cfg config.R4Config, httpClient HTTPClient, logger *zap.Logger) *Client {
	return &Client{
		baseURL:    cfg.BaseURL,
		merchantID: cfg.MerchantID,
		secret:     cfg.SecretKey,
		httpClient: httpClient,
		logger:     logger,
	}
}

// post signs and sends one request to <base>/<endpoint>, decoding the JSON
// response into out. Unknown response fields are ignored; the bank adds
// fields without notice.
func (c *Client) post(ctx context.Context, endpoint string, signed domain.AuthFieldProvider, body any, out any) error {
	start := time.Now()

	payload, err := auth.CanonicalFor(endpoint, signed)
	if err != nil {
		return err
	}
	signature, err := auth.Sign(c.secret, payload)
	if err != nil {
		return err
	}

	raw, err := json.Marshal(body)
	if err != nil {
		return domain.WrapError(domain.ErrorCodeUpstreamError, "could not encode request", err)
	}

	url := c.baseURL + "/" + endpoint
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(raw))
	if err != nil {
		return domain.WrapError(domain.ErrorCodeUpstreamError, "could not build request", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", signature)
	req.Header.Set("Commerce", c.merchantID)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		observability.ObserveUpstream(endpoint, false, time.Since(start))
		c.logger.Error("upstream request failed",
			zap.String("endpoint", endpoint),
			zap.Error(err))
		return domain.WrapError(domain.ErrorCodeUpstreamTimeout, "bank request failed", err).
			WithDetail("endpoint", endpoint)
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		observability.ObserveUpstream(endpoint, false, time.Since(start))
		return domain.WrapError(domain.ErrorCodeUpstreamBadResponse, "could not read bank response", err)
	}

	if resp.StatusCode != http.StatusOK {
		observability.ObserveUpstream(endpoint, false, time.Since(start))
		c.logger.Warn("upstream returned non-200",
			zap.String("endpoint", endpoint),
			zap.Int("status", resp.StatusCode))
		return domain.NewDomainError(domain.ErrorCodeUpstreamError,
			fmt.Sprintf("bank returned HTTP %d", resp.StatusCode)).
			WithDetail("endpoint", endpoint)
	}

	if err := json.Unmarshal(data, out); err != nil {
		observability.ObserveUpstream(endpoint, false, time.Since(start))
		return domain.WrapError(domain.ErrorCodeUpstreamBadResponse, "could not decode bank response", err)
	}

	observability.ObserveUpstream(endpoint, true, time.Since(start))
	c.logger.Info("upstream request completed",
		zap.String("endpoint", endpoint),
		zap.Int("status", resp.StatusCode),
		zap.Duration("duration", time.Since(start)))
	return nil
}

// QueryRate fetches the central-bank exchange rate for a value date.
func (c *Client) QueryRate(ctx context.Context, req domain.R4BcvRequest) (*domain.R4BcvResponse, error) {
	var out domain.R4BcvResponse
	if err := c.post(ctx, "MBbcv", req, req, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// Vuelto sends change back to a payer.
func (c *Client) Vuelto(ctx context.Context, req domain.R4VueltoRequest) (*domain.StandardResponse, error) {
	var out domain.StandardResponse
	if err := c.post(ctx, "MBvuelto", req, req, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// otpBody is the bank's OTP request shape. Unlike most operations the bank
// expects lowercase keys here.
type otpBody struct {
	Banco    string `json:"banco"`
	Monto    string `json:"monto"`
	Telefono string `json:"telefono"`
	Cedula   string `json:"cedula"`
}

// GenerateOTP asks the client's bank to send a one-time password by SMS.
func (c *Client) GenerateOTP(ctx context.Context, req domain.GenerarOtpRequest) (*domain.GenerarOtpResponse, error) {
	body := otpBody{Banco: req.Banco, Monto: req.Monto, Telefono: req.Telefono, Cedula: req.Cedula}
	var out domain.GenerarOtpResponse
	if err := c.post(ctx, "GenerarOtp", req, body, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// ImmediateDebit charges the client's account using a previously issued OTP.
func (c *Client) ImmediateDebit(ctx context.Context, req domain.DebitoInmediatoRequest) (*domain.StandardResponse, error) {
	var out domain.StandardResponse
	if err := c.post(ctx, "DebitoInmediato", req, req, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// ImmediateCredit deposits funds into the client's account.
func (c *Client) ImmediateCredit(ctx context.Context, req domain.CreditoInmediatoRequest) (*domain.StandardResponse, error) {
	var out domain.StandardResponse
	if err := c.post(ctx, "CreditoInmediato", req, req, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// DomiciliationCNTA enrolls an account for recurring charges.
func (c *Client) DomiciliationCNTA(ctx context.Context, req domain.DomiciliacionCNTARequest) (*domain.StandardResponse, error) {
	var out domain.StandardResponse
	if err := c.post(ctx, "DomiciliacionCNTA", req, req, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// DomiciliationCELE enrolls a mobile-payment phone for recurring charges.
func (c *Client) DomiciliationCELE(ctx context.Context, req domain.DomiciliacionCELERequest) (*domain.StandardResponse, error) {
	var out domain.StandardResponse
	if err := c.post(ctx, "DomiciliacionCELE", req, req, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// QueryOperations checks the final state of a deferred operation.
func (c *Client) QueryOperations(ctx context.Context, req domain.ConsultarOperacionesRequest) (*domain.StandardResponse, error) {
	var out domain.StandardResponse
	if err := c.post(ctx, "ConsultarOperaciones", req, req, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// CICuentas sends an immediate credit addressed by account number.
func (c *Client) CICuentas(ctx context.Context, req domain.CICuentasRequest) (*domain.StandardResponse, error) {
	var out domain.StandardResponse
	if err := c.post(ctx, "CICuentas", req, req, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// C2PCharge charges a client through the C2P flow.
func (c *Client) C2PCharge(ctx context.Context, req domain.R4C2PRequest) (*domain.StandardResponse, error) {
	var out domain.StandardResponse
	if err := c.post(ctx, "MBc2p", req, req, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// C2PVoid reverses a recent C2P charge.
func (c *Client) C2PVoid(ctx context.Context, req domain.R4AnulacionC2PRequest) (*domain.StandardResponse, error) {
	var out domain.StandardResponse
	if err := c.post(ctx, "MBanulacionC2P", req, req, &out); err != nil {
		return nil, err
	}
	return &out, nil
}
