// Package banks defines the per-institution handler contract and the default
// adapter that speaks the common network dialect. Institutions whose hosts
// deviate from the default behavior get their own adapter type.
package banks

import (
	"context"

	"github.com/lystopay/r4-gateway/internal/domain"
)

// Handler is the operation set every bank adapter implements. Operations
// never surface transport errors: upstream failures degrade to the
// protocol-valid pending/failure codes the network defines.
type Handler interface {
	// Code returns the institution code the adapter was resolved for.
	Code() string

	QueryRate(ctx context.Context, req domain.R4BcvRequest) domain.R4BcvResponse
	QueryClientIntent(ctx context.Context, req domain.R4ConsultaRequest) domain.R4ConsultaResponse
	Notify(ctx context.Context, req domain.R4NotificaRequest) domain.R4NotificaResponse
	Dispersal(ctx context.Context, req domain.R4PagosRequest) *domain.SuccessResponse
	Vuelto(ctx context.Context, req domain.R4VueltoRequest) *domain.StandardResponse
	GenerateOTP(ctx context.Context, req domain.GenerarOtpRequest) *domain.StandardResponse
	ImmediateDebit(ctx context.Context, req domain.DebitoInmediatoRequest) *domain.StandardResponse
	ImmediateCredit(ctx context.Context, req domain.CreditoInmediatoRequest) *domain.StandardResponse
	DomiciliationCNTA(ctx context.Context, req domain.DomiciliacionCNTARequest) *domain.StandardResponse
	DomiciliationCELE(ctx context.Context, req domain.DomiciliacionCELERequest) *domain.StandardResponse
	QueryOperations(ctx context.Context, req domain.ConsultarOperacionesRequest) *domain.StandardResponse
	CICuentas(ctx context.Context, req domain.CICuentasRequest) *domain.StandardResponse
	C2PCharge(ctx context.Context, req domain.R4C2PRequest) *domain.StandardResponse
	C2PVoid(ctx context.Context, req domain.R4AnulacionC2PRequest) *domain.StandardResponse
	VerifyPayment(ctx context.Context, req domain.VerificoPagoRequest) domain.VerificoPagoResponse
	CheckProcessed(ctx context.Context, req domain.ComprueboPagoRequest) domain.ComprueboPagoResponse
}

// Registrar is the registry surface adapters use to register themselves.
type Registrar interface {
	Register(code, alias string, factory func(code string) Handler)
}
