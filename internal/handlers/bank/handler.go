// Package bank exposes the network-facing HTTP surface. Every route decodes
// the wire shape, authenticates it against the endpoint policy and dispatches
// to the handler of the institution named in the request.
package bank

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/lystopay/r4-gateway/internal/auth"
	"github.com/lystopay/r4-gateway/internal/banks"
	"github.com/lystopay/r4-gateway/internal/domain"
	"github.com/lystopay/r4-gateway/internal/services/gateway"
	"github.com/lystopay/r4-gateway/pkg/observability"
)

const maxBodyBytes = 1 << 20

// RouteCount is the number of network routes Register mounts, reported by the
// health probe.
const RouteCount = 18

// defaultBank is the registry id used when a request names no institution.
const defaultBank = "r4"

// Resolver maps an institution identifier to its handler.
type Resolver interface {
	Resolve(id string) banks.Handler
}

// Handler serves the bank-network routes.
type Handler struct {
	verifier *auth.Verifier
	registry Resolver
	service  *gateway.Service
	logger   *zap.Logger
}

// NewHandler creates the HTTP handler set.
func NewHandler(verifier *auth.Verifier, registry Resolver, service *gateway.Service, logger *zap.Logger) *Handler {
	return &Handler{
		verifier: verifier,
		registry: registry,
		service:  service,
		logger:   logger,
	}
}

// Register mounts every network route on the mux.
func (h *Handler) Register(mux *http.ServeMux) {
	mux.HandleFunc("POST /MBbcv", h.handleQueryRate)
	mux.HandleFunc("POST /R4consulta", h.handleClientIntent)
	mux.HandleFunc("POST /R4notifica", h.handleNotify)
	mux.HandleFunc("POST /R4pagos", h.handleDispersal)
	mux.HandleFunc("POST /MBvuelto", h.handleVuelto)
	mux.HandleFunc("POST /GenerarOtp", h.handleGenerateOTP)
	mux.HandleFunc("POST /DebitoInmediato", h.handleImmediateDebit)
	mux.HandleFunc("POST /CreditoInmediato", h.handleImmediateCredit)
	mux.HandleFunc("POST /DomiciliacionCNTA", h.handleDomiciliationCNTA)
	mux.HandleFunc("POST /DomiciliacionCELE", h.handleDomiciliationCELE)
	mux.HandleFunc("POST /ConsultarOperaciones", h.handleQueryOperations)
	mux.HandleFunc("POST /CICuentas", h.handleCICuentas)
	mux.HandleFunc("POST /MBc2p", h.handleC2PCharge)
	mux.HandleFunc("POST /MBanulacionC2P", h.handleC2PVoid)
	mux.HandleFunc("POST /VerificoPago", h.handleVerifyPayment)
	mux.HandleFunc("POST /CompruebaPago", h.handleCheckProcessed)
	mux.HandleFunc("POST /UpsertCondicional", h.handleConditionalUpsert)
	mux.HandleFunc("POST /api/{bank}/{operation}", h.handleDynamic)
}

func (h *Handler) handleQueryRate(w http.ResponseWriter, r *http.Request) {
	started := time.Now()
	var req domain.R4BcvRequest
	if !h.readBody(w, r, "MBbcv", &req, started) {
		return
	}
	if !h.authorize(w, r, "MBbcv", req, started) {
		return
	}
	resp := h.bank(defaultBank).QueryRate(r.Context(), req)
	h.respond(w, "MBbcv", http.StatusOK, resp, started)
}

func (h *Handler) handleClientIntent(w http.ResponseWriter, r *http.Request) {
	started := time.Now()
	var req domain.R4ConsultaRequest
	if !h.readBody(w, r, "R4consulta", &req, started) {
		return
	}
	if !h.authorize(w, r, "R4consulta", req, started) {
		return
	}
	resp := h.bank(defaultBank).QueryClientIntent(r.Context(), req)
	h.respond(w, "R4consulta", http.StatusOK, resp, started)
}

func (h *Handler) handleNotify(w http.ResponseWriter, r *http.Request) {
	started := time.Now()
	var req domain.R4NotificaRequest
	if !h.readBody(w, r, "R4notifica", &req, started) {
		return
	}
	if !h.authorize(w, r, "R4notifica", req, started) {
		return
	}
	resp := h.bank(req.BancoEmisor).Notify(r.Context(), req)
	h.respond(w, "R4notifica", http.StatusOK, resp, started)
}

func (h *Handler) handleDispersal(w http.ResponseWriter, r *http.Request) {
	started := time.Now()
	var req domain.R4PagosRequest
	if !h.readBody(w, r, "R4pagos", &req, started) {
		return
	}
	if !h.authorize(w, r, "R4pagos", req, started) {
		return
	}
	// Dispersals always answer the success envelope: a failed reconciliation
	// is success=false on HTTP 200, never an HTTP error.
	resp := h.bank(defaultBank).Dispersal(r.Context(), req)
	h.respond(w, "R4pagos", http.StatusOK, resp, started)
}

func (h *Handler) handleVuelto(w http.ResponseWriter, r *http.Request) {
	started := time.Now()
	var req domain.R4VueltoRequest
	if !h.readBody(w, r, "MBvuelto", &req, started) {
		return
	}
	if !h.authorize(w, r, "MBvuelto", req, started) {
		return
	}
	resp := h.bank(req.Banco).Vuelto(r.Context(), req)
	h.respond(w, "MBvuelto", http.StatusOK, resp, started)
}

func (h *Handler) handleGenerateOTP(w http.ResponseWriter, r *http.Request) {
	started := time.Now()
	var req domain.GenerarOtpRequest
	if !h.readBody(w, r, "GenerarOtp", &req, started) {
		return
	}
	if !h.authorize(w, r, "GenerarOtp", req, started) {
		return
	}
	resp := h.bank(req.Banco).GenerateOTP(r.Context(), req)
	h.respond(w, "GenerarOtp", http.StatusOK, resp, started)
}

func (h *Handler) handleImmediateDebit(w http.ResponseWriter, r *http.Request) {
	started := time.Now()
	var req domain.DebitoInmediatoRequest
	if !h.readBody(w, r, "DebitoInmediato", &req, started) {
		return
	}
	if !h.authorize(w, r, "DebitoInmediato", req, started) {
		return
	}
	resp := h.bank(req.Banco).ImmediateDebit(r.Context(), req)
	h.respond(w, "DebitoInmediato", http.StatusOK, resp, started)
}

func (h *Handler) handleImmediateCredit(w http.ResponseWriter, r *http.Request) {
	started := time.Now()
	var req domain.CreditoInmediatoRequest
	if !h.readBody(w, r, "CreditoInmediato", &req, started) {
		return
	}
	if !h.authorize(w, r, "CreditoInmediato", req, started) {
		return
	}
	resp := h.bank(req.Banco).ImmediateCredit(r.Context(), req)
	h.respond(w, "CreditoInmediato", http.StatusOK, resp, started)
}

func (h *Handler) handleDomiciliationCNTA(w http.ResponseWriter, r *http.Request) {
	started := time.Now()
	var req domain.DomiciliacionCNTARequest
	if !h.readBody(w, r, "DomiciliacionCNTA", &req, started) {
		return
	}
	if !h.authorize(w, r, "DomiciliacionCNTA", req, started) {
		return
	}
	resp := h.bank(defaultBank).DomiciliationCNTA(r.Context(), req)
	h.respond(w, "DomiciliacionCNTA", http.StatusOK, resp, started)
}

func (h *Handler) handleDomiciliationCELE(w http.ResponseWriter, r *http.Request) {
	started := time.Now()
	var req domain.DomiciliacionCELERequest
	if !h.readBody(w, r, "DomiciliacionCELE", &req, started) {
		return
	}
	if !h.authorize(w, r, "DomiciliacionCELE", req, started) {
		return
	}
	resp := h.bank(req.Banco).DomiciliationCELE(r.Context(), req)
	h.respond(w, "DomiciliacionCELE", http.StatusOK, resp, started)
}

func (h *Handler) handleQueryOperations(w http.ResponseWriter, r *http.Request) {
	started := time.Now()
	var req domain.ConsultarOperacionesRequest
	if !h.readBody(w, r, "ConsultarOperaciones", &req, started) {
		return
	}
	if !h.authorize(w, r, "ConsultarOperaciones", req, started) {
		return
	}
	resp := h.bank(defaultBank).QueryOperations(r.Context(), req)
	h.respond(w, "ConsultarOperaciones", http.StatusOK, resp, started)
}

func (h *Handler) handleCICuentas(w http.ResponseWriter, r *http.Request) {
	started := time.Now()
	var req domain.CICuentasRequest
	if !h.readBody(w, r, "CICuentas", &req, started) {
		return
	}
	if !h.authorize(w, r, "CICuentas", req, started) {
		return
	}
	resp := h.bank(defaultBank).CICuentas(r.Context(), req)
	h.respond(w, "CICuentas", http.StatusOK, resp, started)
}

func (h *Handler) handleC2PCharge(w http.ResponseWriter, r *http.Request) {
	started := time.Now()
	var req domain.R4C2PRequest
	if !h.readBody(w, r, "MBc2p", &req, started) {
		return
	}
	if !h.authorize(w, r, "MBc2p", req, started) {
		return
	}
	resp := h.bank(req.Banco).C2PCharge(r.Context(), req)
	h.respond(w, "MBc2p", http.StatusOK, resp, started)
}

func (h *Handler) handleC2PVoid(w http.ResponseWriter, r *http.Request) {
	started := time.Now()
	var req domain.R4AnulacionC2PRequest
	if !h.readBody(w, r, "MBanulacionC2P", &req, started) {
		return
	}
	if !h.authorize(w, r, "MBanulacionC2P", req, started) {
		return
	}
	resp := h.bank(req.Banco).C2PVoid(r.Context(), req)
	h.respond(w, "MBanulacionC2P", http.StatusOK, resp, started)
}

func (h *Handler) handleVerifyPayment(w http.ResponseWriter, r *http.Request) {
	started := time.Now()
	var req domain.VerificoPagoRequest
	if !h.readBody(w, r, "VerificoPago", &req, started) {
		return
	}
	if !h.authorize(w, r, "VerificoPago", req, started) {
		return
	}
	resp := h.bank(req.Banco).VerifyPayment(r.Context(), req)
	h.respond(w, "VerificoPago", http.StatusOK, resp, started)
}

func (h *Handler) handleCheckProcessed(w http.ResponseWriter, r *http.Request) {
	started := time.Now()
	var req domain.ComprueboPagoRequest
	if !h.readBody(w, r, "CompruebaPago", &req, started) {
		return
	}
	if !h.authorize(w, r, "CompruebaPago", req, started) {
		return
	}
	resp := h.bank(req.Banco).CheckProcessed(r.Context(), req)
	h.respond(w, "CompruebaPago", http.StatusOK, resp, started)
}

func (h *Handler) handleConditionalUpsert(w http.ResponseWriter, r *http.Request) {
	started := time.Now()
	var req domain.UpsertCondicionalRequest
	if !h.readBody(w, r, "UpsertCondicional", &req, started) {
		return
	}
	if !h.authorize(w, r, "UpsertCondicional", req, started) {
		return
	}
	resp, err := h.service.ConditionalUpsert(r.Context(), req.Fields, req.Where)
	if err != nil {
		h.fail(w, "UpsertCondicional", err, started)
		return
	}
	h.respond(w, "UpsertCondicional", http.StatusOK, resp, started)
}

// handleDynamic serves per-bank routes of the form /api/{bank}/{operation}.
// Only rate and intent queries are exposed this way; the suffix of the
// operation segment selects the handler so bank-specific spellings like
// "banescobcv" or "caroniconsulta" keep working.
func (h *Handler) handleDynamic(w http.ResponseWriter, r *http.Request) {
	started := time.Now()
	bankID := r.PathValue("bank")
	operation := strings.ToLower(r.PathValue("operation"))

	switch {
	case strings.HasSuffix(operation, "bcv"):
		var req domain.R4BcvRequest
		if !h.readBody(w, r, "MBbcv", &req, started) {
			return
		}
		if !h.authorize(w, r, "MBbcv", req, started) {
			return
		}
		resp := h.bank(bankID).QueryRate(r.Context(), req)
		h.respond(w, "MBbcv", http.StatusOK, resp, started)

	case strings.HasSuffix(operation, "consulta"):
		var req domain.R4ConsultaRequest
		if !h.readBody(w, r, "R4consulta", &req, started) {
			return
		}
		if !h.authorize(w, r, "R4consulta", req, started) {
			return
		}
		resp := h.bank(bankID).QueryClientIntent(r.Context(), req)
		h.respond(w, "R4consulta", http.StatusOK, resp, started)

	default:
		h.logger.Warn("unknown dynamic operation",
			zap.String("bank", bankID),
			zap.String("operation", operation))
		writeJSON(w, http.StatusNotFound, errorBody{
			Code:    "404",
			Message: "operación no soportada",
		})
		observability.ObserveRequest("api_dynamic", "404", time.Since(started))
	}
}

// bank resolves the institution handler, defaulting when the request names no
// bank.
func (h *Handler) bank(id string) banks.Handler {
	if strings.TrimSpace(id) == "" {
		id = defaultBank
	}
	return h.registry.Resolve(id)
}

// readBody decodes the JSON body into dst. Malformed bodies are rejected
// before authentication runs.
func (h *Handler) readBody(w http.ResponseWriter, r *http.Request, endpoint string, dst any, started time.Time) bool {
	r.Body = http.MaxBytesReader(w, r.Body, maxBodyBytes)
	if err := json.NewDecoder(r.Body).Decode(dst); err != nil {
		h.logger.Warn("malformed request body",
			zap.String("endpoint", endpoint),
			zap.Error(err))
		h.fail(w, endpoint, domain.WrapError(domain.ErrorCodeValidationFailed,
			"cuerpo de la petición inválido", err), started)
		return false
	}
	return true
}

// authorize runs the endpoint's authentication policy against the request.
func (h *Handler) authorize(w http.ResponseWriter, r *http.Request, endpoint string, req domain.AuthFieldProvider, started time.Time) bool {
	err := h.verifier.VerifyRequest(endpoint,
		r.Header.Get("Authorization"), r.Header.Get("Commerce"), req)
	if err == nil {
		return true
	}
	h.fail(w, endpoint, err, started)
	return false
}

func (h *Handler) respond(w http.ResponseWriter, endpoint string, status int, body any, started time.Time) {
	writeJSON(w, status, body)
	observability.ObserveRequest(endpoint, strconv.Itoa(status), time.Since(started))
}

// fail writes the error payload for a rejected request. Validation failures
// get the explicit rejection shape; everything else gets the error envelope.
func (h *Handler) fail(w http.ResponseWriter, endpoint string, err error, started time.Time) {
	status := statusFor(err)

	var body any
	if domain.IsValidationError(err) {
		body = domain.ValidationErrorResponse{
			Success: false,
			Message: messageFor(err),
			Detail:  detailFor(err),
		}
	} else {
		body = errorBody{
			Code:    string(domain.GetErrorCode(err)),
			Message: messageFor(err),
			Detail:  detailFor(err),
		}
	}

	writeJSON(w, status, body)
	observability.ObserveRequest(endpoint, strconv.Itoa(status), time.Since(started))
}

// statusFor maps a domain error to its HTTP status. Missing-field auth errors
// are client mistakes (400); bad credentials are 401; configuration gaps and
// persistence failures are the gateway's fault (500).
func statusFor(err error) int {
	switch {
	case domain.IsDomainError(err, domain.ErrorCodeAuthMissingField):
		return http.StatusBadRequest
	case domain.IsDomainError(err, domain.ErrorCodeAuthIPNotAllowed):
		return http.StatusForbidden
	case domain.IsAuthError(err):
		return http.StatusUnauthorized
	case domain.IsValidationError(err):
		return http.StatusBadRequest
	default:
		return http.StatusInternalServerError
	}
}

func messageFor(err error) string {
	var de *domain.DomainError
	if errors.As(err, &de) {
		return de.Message
	}
	return "error interno"
}

func detailFor(err error) string {
	var de *domain.DomainError
	if errors.As(err, &de) {
		for _, key := range []string{"field", "suma", "endpoint"} {
			if v, ok := de.Details[key].(string); ok && v != "" {
				return key + ": " + v
			}
		}
	}
	return ""
}

type errorBody struct {
	Code    string `json:"code"`
	Message string `json:"message"`
	Detail  string `json:"detail,omitempty"`
}

func writeJSON(w http.ResponseWriter, status int, body any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(body)
}
