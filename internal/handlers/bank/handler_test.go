package bank

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/lystopay/r4-gateway/internal/adapters/database"
	"github.com/lystopay/r4-gateway/internal/auth"
	"github.com/lystopay/r4-gateway/internal/banks"
	"github.com/lystopay/r4-gateway/internal/domain"
	"github.com/lystopay/r4-gateway/internal/services/gateway"
)

const (
	testSecret   = "test-secret"
	testToken    = "4f2c1a9e-7b7d-4f7e-9a46-2f6f9b1c8d3a"
	testMerchant = "merchant-001"
)

// stubBank answers canned responses so routing and auth can be tested in
// isolation.
type stubBank struct {
	banks.Handler
	code      string
	rate      domain.R4BcvResponse
	notify    domain.R4NotificaResponse
	verify    domain.VerificoPagoResponse
	dispersal *domain.SuccessResponse
}

func (s *stubBank) Code() string { return s.code }

func (s *stubBank) QueryRate(context.Context, domain.R4BcvRequest) domain.R4BcvResponse {
	return s.rate
}

func (s *stubBank) QueryClientIntent(context.Context, domain.R4ConsultaRequest) domain.R4ConsultaResponse {
	return domain.R4ConsultaResponse{Status: true}
}

func (s *stubBank) Notify(context.Context, domain.R4NotificaRequest) domain.R4NotificaResponse {
	return s.notify
}

func (s *stubBank) Dispersal(context.Context, domain.R4PagosRequest) *domain.SuccessResponse {
	return s.dispersal
}

func (s *stubBank) VerifyPayment(context.Context, domain.VerificoPagoRequest) domain.VerificoPagoResponse {
	return s.verify
}

// stubResolver records the last id it resolved.
type stubResolver struct {
	bank   *stubBank
	lastID string
}

func (r *stubResolver) Resolve(id string) banks.Handler {
	r.lastID = id
	return r.bank
}

// stubExecutor satisfies the procedure port for the upsert route.
type stubExecutor struct{}

func (stubExecutor) Execute(ctx context.Context, proc string, in []any, out []string) (*database.ExecResult, error) {
	return &database.ExecResult{
		Success:    true,
		Procedure:  proc,
		ResultSets: []database.ResultSet{},
		OutParams:  map[string]any{"p_mensaje": "OK", "p_filas": int64(1)},
	}, nil
}

func newTestMux(t *testing.T) (*http.ServeMux, *stubResolver) {
	t.Helper()
	logger := zap.NewNop()

	resolver := &stubResolver{bank: &stubBank{
		code:   "0102",
		rate:   domain.R4BcvResponse{Code: "00", Fechavalor: "2026-01-15", TipoCambio: 36.51},
		notify: domain.R4NotificaResponse{Abono: true},
		verify: domain.VerificoPagoResponse{Referencia: "12345678", Encontrado: true},
	}}

	verifier := auth.NewVerifier(testSecret, testToken, testMerchant, logger)
	service := gateway.NewService(gateway.NewRepository(stubExecutor{}, logger), nil, logger)

	mux := http.NewServeMux()
	NewHandler(verifier, resolver, service, logger).Register(mux)
	return mux, resolver
}

func signFor(t *testing.T, endpoint string, req domain.AuthFieldProvider) string {
	t.Helper()
	payload, err := auth.CanonicalFor(endpoint, req)
	require.NoError(t, err)
	sig, err := auth.Sign(testSecret, payload)
	require.NoError(t, err)
	return sig
}

func post(mux *http.ServeMux, path, authorization string, body any) *httptest.ResponseRecorder {
	raw, _ := json.Marshal(body)
	r := httptest.NewRequest(http.MethodPost, path, bytes.NewReader(raw))
	r.Header.Set("Content-Type", "application/json")
	if authorization != "" {
		r.Header.Set("Authorization", authorization)
	}
	r.Header.Set("Commerce", testMerchant)
	w := httptest.NewRecorder()
	mux.ServeHTTP(w, r)
	return w
}

func TestQueryRate_ValidSignature(t *testing.T) {
	mux, _ := newTestMux(t)

	req := domain.R4BcvRequest{Moneda: "VES", Fechavalor: "2026-01-15"}
	w := post(mux, "/MBbcv", signFor(t, "MBbcv", req), req)

	require.Equal(t, http.StatusOK, w.Code)
	var resp domain.R4BcvResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.Equal(t, "00", resp.Code)
	assert.InDelta(t, 36.51, resp.TipoCambio, 1e-9)
}

func TestQueryRate_TamperedSignature(t *testing.T) {
	mux, _ := newTestMux(t)

	req := domain.R4BcvRequest{Moneda: "VES", Fechavalor: "2026-01-15"}
	sig := signFor(t, "MBbcv", req)
	req.Fechavalor = "2026-01-16"
	w := post(mux, "/MBbcv", sig, req)

	assert.Equal(t, http.StatusUnauthorized, w.Code)
	assert.Contains(t, w.Body.String(), "AUTH_INVALID_SIGNATURE")
}

func TestQueryRate_MissingField(t *testing.T) {
	mux, _ := newTestMux(t)

	req := domain.R4BcvRequest{Fechavalor: "2026-01-15"}
	w := post(mux, "/MBbcv", "any-signature", req)

	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Contains(t, w.Body.String(), "Moneda")
}

func TestQueryRate_MissingAuthorization(t *testing.T) {
	mux, _ := newTestMux(t)

	req := domain.R4BcvRequest{Moneda: "VES", Fechavalor: "2026-01-15"}
	w := post(mux, "/MBbcv", "", req)

	assert.Equal(t, http.StatusUnauthorized, w.Code)
}

func TestQueryRate_MalformedBody(t *testing.T) {
	mux, _ := newTestMux(t)

	r := httptest.NewRequest(http.MethodPost, "/MBbcv", bytes.NewBufferString("{not json"))
	w := httptest.NewRecorder()
	mux.ServeHTTP(w, r)

	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestNotify_Token(t *testing.T) {
	mux, resolver := newTestMux(t)

	req := domain.R4NotificaRequest{
		IdComercio: "comercio-1", BancoEmisor: "0102", Monto: "150.00",
		Referencia: "12345678", CodigoRed: "00",
	}
	w := post(mux, "/R4notifica", testToken, req)

	require.Equal(t, http.StatusOK, w.Code)
	assert.JSONEq(t, `{"abono":true}`, w.Body.String())
	assert.Equal(t, "0102", resolver.lastID, "notification routes by issuing bank")
}

func TestNotify_WrongToken(t *testing.T) {
	mux, _ := newTestMux(t)

	w := post(mux, "/R4notifica", "wrong-token", domain.R4NotificaRequest{Referencia: "1"})

	assert.Equal(t, http.StatusUnauthorized, w.Code)
	assert.Contains(t, w.Body.String(), "AUTH_INVALID_TOKEN")
}

func TestDispersal_SumMismatchStill200(t *testing.T) {
	mux, resolver := newTestMux(t)
	resolver.bank.dispersal = &domain.SuccessResponse{
		Success: false,
		Message: "la suma de montos no coincide con el total",
		Error:   "total 100.00, suma 99.99",
	}

	req := domain.R4PagosRequest{Monto: "100.00", Fecha: "2026-01-15"}
	w := post(mux, "/R4pagos", signFor(t, "R4pagos", req), req)

	// A failed reconciliation is a business answer, not an HTTP error.
	require.Equal(t, http.StatusOK, w.Code)
	var resp domain.SuccessResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.False(t, resp.Success)
	assert.Contains(t, resp.Message, "suma")
	assert.Contains(t, resp.Error, "99.99")
}

func TestDispersal_Accepted(t *testing.T) {
	mux, resolver := newTestMux(t)
	resolver.bank.dispersal = &domain.SuccessResponse{
		Success: true, Message: "Dispersión exitosa",
	}

	req := domain.R4PagosRequest{Monto: "100.00", Fecha: "2026-01-15", Referencia: "12345678"}
	w := post(mux, "/R4pagos", signFor(t, "R4pagos", req), req)

	require.Equal(t, http.StatusOK, w.Code)
	assert.JSONEq(t, `{"success":true,"message":"Dispersión exitosa"}`, w.Body.String())
}

func TestVerifyPayment_RoutesByBank(t *testing.T) {
	mux, resolver := newTestMux(t)

	req := domain.VerificoPagoRequest{Referencia: "12345678", Banco: "0134"}
	w := post(mux, "/VerificoPago", signFor(t, "VerificoPago", req), req)

	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "0134", resolver.lastID)
	assert.Contains(t, w.Body.String(), `"encontrado":true`)
}

func TestVerifyPayment_DefaultsBank(t *testing.T) {
	mux, resolver := newTestMux(t)

	req := domain.VerificoPagoRequest{Referencia: "12345678"}
	w := post(mux, "/VerificoPago", signFor(t, "VerificoPago", req), req)

	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "r4", resolver.lastID)
}

func TestConditionalUpsert_Token(t *testing.T) {
	mux, _ := newTestMux(t)

	req := domain.UpsertCondicionalRequest{
		Fields: map[string]string{"Concepto": "Ajuste"},
		Where:  map[string]string{"Referencia": "12345678"},
	}
	w := post(mux, "/UpsertCondicional", testToken, req)

	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), `"code":"00"`)
}

func TestDynamic_RateSuffix(t *testing.T) {
	mux, resolver := newTestMux(t)

	req := domain.R4BcvRequest{Moneda: "VES", Fechavalor: "2026-01-15"}
	w := post(mux, "/api/banesco/banescobcv", signFor(t, "MBbcv", req), req)

	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "banesco", resolver.lastID)
}

func TestDynamic_IntentSuffix(t *testing.T) {
	mux, resolver := newTestMux(t)

	req := domain.R4ConsultaRequest{IdCliente: "V12345678"}
	w := post(mux, "/api/0134/r4consulta", testToken, req)

	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "0134", resolver.lastID)
	assert.JSONEq(t, `{"status":true}`, w.Body.String())
}

func TestDynamic_UnknownOperation(t *testing.T) {
	mux, _ := newTestMux(t)

	w := post(mux, "/api/banesco/transferencia", testToken, map[string]string{})

	assert.Equal(t, http.StatusNotFound, w.Code)
}
