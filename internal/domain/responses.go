package domain

// R4BcvResponse returns the exchange rate for the requested value date.
type R4BcvResponse struct {
	Code       string  `json:"code"`
	Fechavalor string  `json:"fechavalor"`
	TipoCambio float64 `json:"tipocambio"`
}

// R4ConsultaResponse accepts or rejects an incoming payment intent.
type R4ConsultaResponse struct {
	Status bool `json:"status"`
}

// R4NotificaResponse acknowledges a payment notification. The bank credits
// the payer only when abono is true.
type R4NotificaResponse struct {
	Abono bool `json:"abono"`
}

// VerificoPagoResponse echoes the stored notification columns when found.
type VerificoPagoResponse struct {
	Telefono   string `json:"Telefono"`
	Banco      string `json:"Banco"`
	Monto      string `json:"Monto"`
	FechaHora  string `json:"FechaHora"`
	Referencia string `json:"Referencia"`
	Encontrado bool   `json:"encontrado"`
}

// ComprueboPagoResponse reports whether a notification has been processed.
type ComprueboPagoResponse struct {
	Procesado bool   `json:"procesado"`
	Mensaje   string `json:"mensaje"`
}

// StandardResponse is the common envelope for bank-operation results.
// Codes follow the network convention: "00" success, "ACCP" accepted,
// "AC00" pending, "202" message received.
type StandardResponse struct {
	Code      string `json:"code"`
	Message   string `json:"message"`
	Reference string `json:"reference,omitempty"`
	Success   *bool  `json:"success,omitempty"`
	Id        string `json:"Id,omitempty"`
	UUID      string `json:"uuid,omitempty"`
}

// SuccessResponse is the minimal success/failure envelope used by dispersals.
type SuccessResponse struct {
	Success bool   `json:"success"`
	Message string `json:"message"`
	Error   string `json:"error,omitempty"`
}

// GenerarOtpResponse reports the bank's OTP generation result.
type GenerarOtpResponse struct {
	Code    string `json:"code"`
	Message string `json:"message"`
	Success bool   `json:"success"`
}

// ValidationErrorResponse is the explicit rejection payload for requests that
// authenticate but fail a business rule.
type ValidationErrorResponse struct {
	Success bool   `json:"success"`
	Message string `json:"message"`
	Detail  string `json:"detail,omitempty"`
}

// Bool returns a pointer to b for optional wire fields.
func Bool(b bool) *bool { return &b }
