package r4

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/lystopay/r4-gateway/internal/auth"
	"github.com/lystopay/r4-gateway/internal/config"
	"github.com/lystopay/r4-gateway/internal/domain"
)

// MockHTTPClient is a mock implementation of HTTPClient
type MockHTTPClient struct {
	mock.Mock
}

func (m *MockHTTPClient) Do(req *http.Request) (*http.Response, error) {
	args := m.Called(req)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*http.Response), args.Error(1)
}

func testConfig() config.R4Config {
	return config.R4Config{
		BaseURL:    "https://bank.example",
		MerchantID: "merchant-001",
		SecretKey:  "test-secret",
	}
}

func jsonResponse(status int, body string) *http.Response {
	return &http.Response{
		StatusCode: status,
		Body:       io.NopCloser(bytes.NewBufferString(body)),
		Header:     http.Header{"Content-Type": []string{"application/json"}},
	}
}

func TestQueryRate_SignsRequest(t *testing.T) {
	httpClient := new(MockHTTPClient)
	client := NewClient(testConfig(), httpClient, zap.NewNop())

	req := domain.R4BcvRequest{Moneda: "VES", Fechavalor: "2026-01-15"}
	payload, err := auth.CanonicalFor("MBbcv", req)
	require.NoError(t, err)
	wantSig, err := auth.Sign("test-secret", payload)
	require.NoError(t, err)

	httpClient.On("Do", mock.MatchedBy(func(r *http.Request) bool {
		return r.URL.String() == "https://bank.example/MBbcv" &&
			r.Header.Get("Authorization") == wantSig &&
			r.Header.Get("Commerce") == "merchant-001" &&
			r.Header.Get("Content-Type") == "application/json"
	})).Return(jsonResponse(http.StatusOK,
		`{"code":"00","fechavalor":"2026-01-15","tipocambio":36.51}`), nil)

	resp, err := client.QueryRate(context.Background(), req)

	require.NoError(t, err)
	assert.Equal(t, "00", resp.Code)
	assert.InDelta(t, 36.51, resp.TipoCambio, 1e-9)
	httpClient.AssertExpectations(t)
}

func TestGenerateOTP_LowercaseBody(t *testing.T) {
	httpClient := new(MockHTTPClient)
	client := NewClient(testConfig(), httpClient, zap.NewNop())

	var sent map[string]string
	httpClient.On("Do", mock.MatchedBy(func(r *http.Request) bool {
		body, err := io.ReadAll(r.Body)
		if err != nil {
			return false
		}
		r.Body = io.NopCloser(bytes.NewReader(body))
		return json.Unmarshal(body, &sent) == nil
	})).Return(jsonResponse(http.StatusOK,
		`{"code":"202","message":"Se ha recibido el mensaje de forma satisfactoria","success":true}`), nil)

	_, err := client.GenerateOTP(context.Background(), domain.GenerarOtpRequest{
		Banco: "0102", Monto: "10.00", Telefono: "04141234567", Cedula: "V1",
	})

	require.NoError(t, err)
	assert.Equal(t, map[string]string{
		"banco":    "0102",
		"monto":    "10.00",
		"telefono": "04141234567",
		"cedula":   "V1",
	}, sent)
}

func TestPost_TransportErrorIsUpstreamTimeout(t *testing.T) {
	httpClient := new(MockHTTPClient)
	client := NewClient(testConfig(), httpClient, zap.NewNop())

	httpClient.On("Do", mock.Anything).Return(nil, errors.New("connection refused"))

	_, err := client.Vuelto(context.Background(), domain.R4VueltoRequest{
		TelefonoDestino: "04141234567", Monto: "10.00", Banco: "0102", Cedula: "V1",
	})

	require.Error(t, err)
	assert.True(t, domain.IsDomainError(err, domain.ErrorCodeUpstreamTimeout))
}

func TestPost_Non200IsUpstreamError(t *testing.T) {
	httpClient := new(MockHTTPClient)
	client := NewClient(testConfig(), httpClient, zap.NewNop())

	httpClient.On("Do", mock.Anything).
		Return(jsonResponse(http.StatusBadGateway, `{"detail":"maintenance"}`), nil)

	_, err := client.C2PCharge(context.Background(), domain.R4C2PRequest{
		TelefonoDestino: "04141234567", Monto: "10.00", Banco: "0102", Cedula: "V1",
	})

	require.Error(t, err)
	assert.True(t, domain.IsDomainError(err, domain.ErrorCodeUpstreamError))
}

func TestPost_MalformedResponse(t *testing.T) {
	httpClient := new(MockHTTPClient)
	client := NewClient(testConfig(), httpClient, zap.NewNop())

	httpClient.On("Do", mock.Anything).
		Return(jsonResponse(http.StatusOK, `<html>not json</html>`), nil)

	_, err := client.ImmediateCredit(context.Background(), domain.CreditoInmediatoRequest{
		Banco: "0102", Cedula: "V1", Telefono: "04141234567", Monto: "10.00",
	})

	require.Error(t, err)
	assert.True(t, domain.IsDomainError(err, domain.ErrorCodeUpstreamBadResponse))
}

func TestPost_MissingSignedFieldFailsBeforeSending(t *testing.T) {
	httpClient := new(MockHTTPClient)
	client := NewClient(testConfig(), httpClient, zap.NewNop())

	// Banco is part of MBvuelto's signature; the request must not go out.
	_, err := client.Vuelto(context.Background(), domain.R4VueltoRequest{
		TelefonoDestino: "04141234567", Monto: "10.00", Cedula: "V1",
	})

	require.Error(t, err)
	assert.True(t, domain.IsDomainError(err, domain.ErrorCodeAuthMissingField))
	httpClient.AssertNotCalled(t, "Do", mock.Anything)
}
