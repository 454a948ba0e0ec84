package gateway

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"github.com/lystopay/r4-gateway/internal/domain"
	"github.com/lystopay/r4-gateway/pkg/observability"
)

// sumTolerance is the largest accepted gap between a dispersal total and the
// sum of its parts.
var sumTolerance = decimal.NewFromFloat(0.01)

// PaymentProber performs the upstream probe used when a payment cannot be
// confirmed locally.
type PaymentProber interface {
	Vuelto(ctx context.Context, req domain.R4VueltoRequest) (*domain.StandardResponse, error)
}

// Service orchestrates notification persistence, dispersal validation and
// payment verification.
type Service struct {
	repo   *Repository
	prober PaymentProber
	logger *zap.Logger
}

// NewService creates the orchestrator.
func NewService(repo *Repository, prober PaymentProber, logger *zap.Logger) *Service {
	return &Service{repo: repo, prober: prober, logger: logger}
}

// QueryClientIntent accepts every authenticated payment intent. At this stage
// the payer has already been routed to the commerce; rejection happens later
// when the notification is reconciled.
func (s *Service) QueryClientIntent(ctx context.Context, req domain.R4ConsultaRequest) domain.R4ConsultaResponse {
	s.logger.Info("payment intent accepted",
		zap.String("client", req.IdCliente),
		zap.String("amount", req.Monto))
	return domain.R4ConsultaResponse{Status: true}
}

// ProcessNotification persists an incoming payment and decides the abono
// flag. The stored procedure owns idempotency: code 1 credits, code 0 is a
// duplicate answered without credit, anything else fails closed.
func (s *Service) ProcessNotification(ctx context.Context, req domain.R4NotificaRequest) domain.R4NotificaResponse {
	if req.CodigoRed != "00" {
		// Failed-leg notifications are still recorded for reconciliation;
		// the procedure decides whether they credit.
		s.logger.Warn("notification with non-success network code",
			zap.String("codigo_red", req.CodigoRed),
			zap.String("referencia", req.Referencia))
	}

	result, err := s.repo.SaveNotification(ctx, Notification{
		IdComercio:       req.IdComercio,
		TelefonoComercio: req.TelefonoComercio,
		TelefonoEmisor:   req.TelefonoEmisor,
		Concepto:         req.Concepto,
		BancoEmisor:      req.BancoEmisor,
		Monto:            req.Monto,
		FechaHora:        req.FechaHora,
		Referencia:       req.Referencia,
		CodigoRed:        req.CodigoRed,
	})
	if err != nil {
		// Fail closed: the payer must not be credited on uncertain persistence.
		s.logger.Error("notification persistence failed, rejecting credit",
			zap.String("referencia", req.Referencia),
			zap.Error(err))
		observability.CountNotification("failed")
		return domain.R4NotificaResponse{Abono: false}
	}

	switch result.Code {
	case 1:
		observability.CountNotification("credited")
		s.logger.Info("notification credited",
			zap.String("referencia", req.Referencia),
			zap.String("mensaje", result.Message))
		return domain.R4NotificaResponse{Abono: true}
	case 0:
		// Duplicate reference: already credited on the first delivery, so a
		// replay must never credit again. Still an HTTP success.
		observability.CountNotification("duplicate")
		s.logger.Info("duplicate notification ignored",
			zap.String("referencia", req.Referencia),
			zap.String("mensaje", result.Message))
		return domain.R4NotificaResponse{Abono: false}
	default:
		observability.CountNotification("failed")
		s.logger.Warn("notification rejected by procedure",
			zap.String("referencia", req.Referencia),
			zap.Int64("codigo", result.Code),
			zap.String("mensaje", result.Message))
		return domain.R4NotificaResponse{Abono: false}
	}
}

// ProcessDispersal validates that the dispersal parts sum to the declared
// total. The answer is always the success envelope: a failed reconciliation
// comes back success=false with the mismatch in error, still an HTTP success.
func (s *Service) ProcessDispersal(ctx context.Context, req domain.R4PagosRequest) *domain.SuccessResponse {
	total, err := decimal.NewFromString(req.Monto)
	if err != nil {
		return &domain.SuccessResponse{
			Success: false,
			Message: "monto de dispersión inválido",
			Error:   "monto: " + req.Monto,
		}
	}

	sum := decimal.Zero
	for _, p := range req.Personas {
		part, err := decimal.NewFromString(p.MontoPart)
		if err != nil {
			return &domain.SuccessResponse{
				Success: false,
				Message: "monto de beneficiario inválido",
				Error:   "documento: " + p.Documento,
			}
		}
		sum = sum.Add(part)
	}

	if total.Sub(sum).Abs().GreaterThanOrEqual(sumTolerance) {
		s.logger.Warn("dispersal sum mismatch",
			zap.String("referencia", req.Referencia),
			zap.String("total", total.String()),
			zap.String("sum", sum.String()))
		return &domain.SuccessResponse{
			Success: false,
			Message: "la suma de montos no coincide con el total",
			Error:   fmt.Sprintf("total %s, suma %s", total.String(), sum.String()),
		}
	}

	s.logger.Info("dispersal accepted",
		zap.String("referencia", req.Referencia),
		zap.Int("beneficiaries", len(req.Personas)),
		zap.String("total", total.String()))
	return &domain.SuccessResponse{
		Success: true,
		Message: "Dispersión exitosa",
	}
}

// VerifyPayment confirms a payment against the local store, falling back to
// an upstream probe when the store has no match and the request carries
// enough data to ask the bank. encontrado is true only on a local hit or a
// bank-confirmed payment.
func (s *Service) VerifyPayment(ctx context.Context, req domain.VerificoPagoRequest) domain.VerificoPagoResponse {
	row, err := s.repo.FindNotification(ctx, NotificationFilter{
		TelefonoEmisor: req.Telefono,
		BancoEmisor:    req.Banco,
		Monto:          req.Monto,
		FechaHora:      req.FechaHora,
		Referencia:     req.Referencia,
	})
	if err != nil {
		s.logger.Error("verification lookup failed", zap.Error(err))
		return domain.VerificoPagoResponse{Referencia: req.Referencia}
	}

	if row != nil && row.Referencia != "" {
		if req.Monto != "" && !amountsMatch(req.Monto, row.Monto) {
			s.logger.Warn("verification amount mismatch",
				zap.String("referencia", row.Referencia),
				zap.String("requested", req.Monto),
				zap.String("stored", row.Monto))
			return domain.VerificoPagoResponse{Referencia: req.Referencia}
		}
		return domain.VerificoPagoResponse{
			Telefono:   row.TelefonoEmisor,
			Banco:      row.BancoEmisor,
			Monto:      row.Monto,
			FechaHora:  row.FechaHora,
			Referencia: row.Referencia,
			Encontrado: true,
		}
	}

	// Local miss. Probe the bank when the request identifies the payer.
	if s.prober != nil && req.Telefono != "" && req.Banco != "" && req.Monto != "" {
		probe, err := s.prober.Vuelto(ctx, domain.R4VueltoRequest{
			TelefonoDestino: req.Telefono,
			Banco:           req.Banco,
			Monto:           req.Monto,
			Cedula:          req.Referencia,
		})
		if err != nil {
			s.logger.Warn("upstream verification probe failed", zap.Error(err))
			return domain.VerificoPagoResponse{Referencia: req.Referencia}
		}
		if probe.Code == "00" {
			return domain.VerificoPagoResponse{
				Telefono:   req.Telefono,
				Banco:      req.Banco,
				Monto:      req.Monto,
				FechaHora:  req.FechaHora,
				Referencia: firstNonEmpty(probe.Reference, req.Referencia),
				Encontrado: true,
			}
		}
		// Pending (04/06), unknown (98) or bank error (99): not confirmed.
		s.logger.Info("upstream probe did not confirm payment",
			zap.String("code", probe.Code),
			zap.String("referencia", req.Referencia))
	}

	return domain.VerificoPagoResponse{Referencia: req.Referencia}
}

// CheckProcessed reports whether a notification has been consumed downstream.
func (s *Service) CheckProcessed(ctx context.Context, req domain.ComprueboPagoRequest) domain.ComprueboPagoResponse {
	result, err := s.repo.ProcessNotification(ctx, NotificationFilter{
		TelefonoEmisor: req.Telefono,
		BancoEmisor:    req.Banco,
		Monto:          req.Monto,
		FechaHora:      req.FechaHora,
		Referencia:     req.Referencia,
	})
	if err != nil {
		s.logger.Error("processed check failed",
			zap.String("referencia", req.Referencia),
			zap.Error(err))
		return domain.ComprueboPagoResponse{Procesado: false, Mensaje: "error consultando el pago"}
	}
	return domain.ComprueboPagoResponse{Procesado: result.Processed, Mensaje: result.Message}
}

// ConditionalUpsert applies a guarded field update to the notification store.
func (s *Service) ConditionalUpsert(ctx context.Context, fields, where map[string]string) (*domain.StandardResponse, error) {
	if len(fields) == 0 {
		return nil, domain.NewDomainError(domain.ErrorCodeValidationMissingField, "no fields to update")
	}
	rows, err := s.repo.ConditionalUpsert(ctx, fields, where)
	if err != nil {
		return nil, err
	}
	s.logger.Info("conditional upsert applied", zap.Int64("rows", rows))
	return &domain.StandardResponse{
		Code:    "00",
		Message: "Actualización aplicada",
		Success: domain.Bool(true),
		Id:      uuid.NewString(),
	}, nil
}

// amountsMatch compares two wire amounts, preferring exact decimal equality
// and falling back to string equality when either side does not parse.
func amountsMatch(a, b string) bool {
	da, errA := decimal.NewFromString(a)
	db, errB := decimal.NewFromString(b)
	if errA == nil && errB == nil {
		return da.Equal(db)
	}
	return a == b
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if v != "" {
			return v
		}
	}
	return ""
}
