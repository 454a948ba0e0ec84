package auth

import (
	"crypto/hmac"
	"strings"

	"go.uber.org/zap"

	"github.com/lystopay/r4-gateway/internal/domain"
)

// Policy declares how requests to one endpoint are authenticated: either a
// static bearer token, or an HMAC over the listed fields joined in order.
type Policy struct {
	Fields    []string
	Separator string
	TokenOnly bool
}

// Policies returns the per-endpoint authentication table. Field order is part
// of the signing contract with the bank network.
func Policies() map[string]Policy {
	return map[string]Policy{
		"MBbcv":                {Fields: []string{"Fechavalor", "Moneda"}},
		"R4pagos":              {Fields: []string{"monto", "fecha"}},
		"MBvuelto":             {Fields: []string{"TelefonoDestino", "Monto", "Banco", "Cedula"}},
		"GenerarOtp":           {Fields: []string{"Banco", "Monto", "Telefono", "Cedula"}},
		"DebitoInmediato":      {Fields: []string{"Banco", "Cedula", "Telefono", "Monto", "OTP"}},
		"CreditoInmediato":     {Fields: []string{"Banco", "Cedula", "Telefono", "Monto"}},
		"DomiciliacionCNTA":    {Fields: []string{"cuenta"}},
		"DomiciliacionCELE":    {Fields: []string{"telefono"}},
		"ConsultarOperaciones": {Fields: []string{"id"}},
		"CICuentas":            {Fields: []string{"Cedula", "Cuenta", "Monto"}},
		"MBc2p":                {Fields: []string{"TelefonoDestino", "Monto", "Banco", "Cedula"}},
		"MBanulacionC2P":       {Fields: []string{"Banco"}},
		"VerificoPago":         {Fields: []string{"Referencia"}},
		"R4consulta":           {TokenOnly: true},
		"R4notifica":           {TokenOnly: true},
		"CompruebaPago":        {TokenOnly: true},
		"UpsertCondicional":    {TokenOnly: true},
	}
}

// Verifier authenticates inbound requests against the policy table.
type Verifier struct {
	policies   map[string]Policy
	secret     string
	token      string
	merchantID string
	logger     *zap.Logger
}

// NewVerifier creates a request verifier. token is the UUID expected on
// token-only endpoints; merchantID is matched against the Commerce header.
func NewVerifier(secret, token, merchantID string, logger *zap.Logger) *Verifier {
	return &Verifier{
		policies:   Policies(),
		secret:     secret,
		token:      token,
		merchantID: merchantID,
		logger:     logger,
	}
}

// CanonicalPayload joins the policy's fields in declared order. A missing or
// empty field aborts with an auth error naming the field.
func (v *Verifier) CanonicalPayload(endpoint string, fields map[string]string) (string, error) {
	return canonicalPayload(v.policies, endpoint, fields)
}

// CanonicalFor builds the signable payload for an outbound request using the
// shared policy table. Signing and verification must agree on field order.
func CanonicalFor(endpoint string, req domain.AuthFieldProvider) (string, error) {
	return canonicalPayload(Policies(), endpoint, req.AuthFields())
}

func canonicalPayload(policies map[string]Policy, endpoint string, fields map[string]string) (string, error) {
	policy, ok := policies[endpoint]
	if !ok {
		return "", domain.ErrMissingPolicy.WithDetail("endpoint", endpoint)
	}
	values := make([]string, 0, len(policy.Fields))
	for _, name := range policy.Fields {
		value, ok := fields[name]
		if !ok || value == "" {
			return "", domain.NewDomainError(domain.ErrorCodeAuthMissingField,
				"required field missing for signature").WithDetail("field", name)
		}
		values = append(values, value)
	}
	return strings.Join(values, policy.Separator), nil
}

// VerifyRequest authenticates one request. authorization is the raw
// Authorization header; commerce is the Commerce header. Returns nil when the
// request is authentic, otherwise a DomainError the transport layer maps to a
// status code.
func (v *Verifier) VerifyRequest(endpoint, authorization, commerce string, req domain.AuthFieldProvider) error {
	policy, ok := v.policies[endpoint]
	if !ok {
		return domain.ErrMissingPolicy.WithDetail("endpoint", endpoint)
	}

	if authorization == "" {
		return domain.ErrMissingSignature.WithDetail("endpoint", endpoint)
	}

	if policy.TokenOnly {
		if !hmac.Equal([]byte(authorization), []byte(v.token)) {
			v.logger.Warn("authorization token mismatch",
				zap.String("endpoint", endpoint),
				zap.String("provided", mask(authorization)))
			return domain.ErrInvalidToken.WithDetail("endpoint", endpoint)
		}
		// Commerce mismatch is logged but tolerated: several live
		// counterparties send their own internal commerce ids here.
		if commerce != "" && commerce != v.merchantID {
			v.logger.Warn("commerce header does not match merchant id",
				zap.String("endpoint", endpoint),
				zap.String("commerce", commerce))
		}
		v.logger.Debug("token accepted", zap.String("endpoint", endpoint))
		return nil
	}

	payload, err := v.CanonicalPayload(endpoint, req.AuthFields())
	if err != nil {
		return err
	}
	if !Verify(v.secret, payload, authorization) {
		v.logger.Warn("signature verification failed",
			zap.String("endpoint", endpoint),
			zap.String("provided", mask(authorization)))
		return domain.ErrInvalidSignature.WithDetail("endpoint", endpoint)
	}
	v.logger.Debug("signature verified",
		zap.String("endpoint", endpoint),
		zap.String("signature", mask(authorization)))
	return nil
}

// mask keeps the first 8 characters of a credential for log correlation.
func mask(s string) string {
	if len(s) <= 8 {
		return s
	}
	return s[:8] + "..."
}
