package domain

// Inbound and outbound message shapes for the R4 mobile-payment network.
// Field names and casing are the network's wire contract and must not change.
// Amounts travel as strings; parsing happens at the service layer.

// AuthFieldProvider exposes the values an authentication policy may sign over.
// Keys are the wire field names the policy table references.
type AuthFieldProvider interface {
	AuthFields() map[string]string
}

// R4BcvRequest asks for the central-bank exchange rate on a value date.
type R4BcvRequest struct {
	Moneda     string `json:"Moneda"`
	Fechavalor string `json:"Fechavalor"`
}

func (r R4BcvRequest) AuthFields() map[string]string {
	return map[string]string{
		"Moneda":     r.Moneda,
		"Fechavalor": r.Fechavalor,
	}
}

// R4ConsultaRequest asks whether a client may receive a payment.
type R4ConsultaRequest struct {
	IdCliente        string `json:"IdCliente"`
	Monto            string `json:"Monto,omitempty"`
	TelefonoComercio string `json:"TelefonoComercio,omitempty"`
}

func (r R4ConsultaRequest) AuthFields() map[string]string {
	return map[string]string{
		"IdCliente":        r.IdCliente,
		"Monto":            r.Monto,
		"TelefonoComercio": r.TelefonoComercio,
	}
}

// R4NotificaRequest is the bank's notification of an incoming mobile payment.
type R4NotificaRequest struct {
	IdComercio       string `json:"IdComercio"`
	TelefonoComercio string `json:"TelefonoComercio"`
	TelefonoEmisor   string `json:"TelefonoEmisor"`
	Concepto         string `json:"Concepto"`
	BancoEmisor      string `json:"BancoEmisor"`
	Monto            string `json:"Monto"`
	FechaHora        string `json:"FechaHora"`
	Referencia       string `json:"Referencia"`
	CodigoRed        string `json:"CodigoRed"`
}

func (r R4NotificaRequest) AuthFields() map[string]string {
	return map[string]string{
		"IdComercio":       r.IdComercio,
		"TelefonoComercio": r.TelefonoComercio,
		"TelefonoEmisor":   r.TelefonoEmisor,
		"BancoEmisor":      r.BancoEmisor,
		"Monto":            r.Monto,
		"FechaHora":        r.FechaHora,
		"Referencia":       r.Referencia,
	}
}

// PersonaPago is one beneficiary inside a dispersal order.
type PersonaPago struct {
	Nombres   string `json:"nombres"`
	Documento string `json:"documento"`
	Destino   string `json:"destino"`
	MontoPart string `json:"montoPart"`
}

// R4PagosRequest is a dispersal order: a total amount split across beneficiaries.
// The sum of montoPart must match monto within 0.01.
type R4PagosRequest struct {
	Monto      string        `json:"monto"`
	Fecha      string        `json:"fecha"`
	Referencia string        `json:"Referencia"`
	Personas   []PersonaPago `json:"personas"`
}

func (r R4PagosRequest) AuthFields() map[string]string {
	return map[string]string{
		"monto": r.Monto,
		"fecha": r.Fecha,
	}
}

// R4VueltoRequest sends change back to a payer via mobile payment.
type R4VueltoRequest struct {
	TelefonoDestino string `json:"TelefonoDestino"`
	Cedula          string `json:"Cedula"`
	Banco           string `json:"Banco"`
	Monto           string `json:"Monto"`
	Concepto        string `json:"Concepto,omitempty"`
	Ip              string `json:"Ip,omitempty"`
}

func (r R4VueltoRequest) AuthFields() map[string]string {
	return map[string]string{
		"TelefonoDestino": r.TelefonoDestino,
		"Monto":           r.Monto,
		"Banco":           r.Banco,
		"Cedula":          r.Cedula,
	}
}

// GenerarOtpRequest asks the client's bank to SMS a one-time password.
type GenerarOtpRequest struct {
	Banco    string `json:"Banco"`
	Monto    string `json:"Monto"`
	Telefono string `json:"Telefono"`
	Cedula   string `json:"Cedula"`
}

func (r GenerarOtpRequest) AuthFields() map[string]string {
	return map[string]string{
		"Banco":    r.Banco,
		"Monto":    r.Monto,
		"Telefono": r.Telefono,
		"Cedula":   r.Cedula,
	}
}

// DebitoInmediatoRequest charges the client's account. Requires a valid OTP.
type DebitoInmediatoRequest struct {
	Banco    string `json:"Banco"`
	Monto    string `json:"Monto"`
	Telefono string `json:"Telefono"`
	Cedula   string `json:"Cedula"`
	Nombre   string `json:"Nombre"`
	OTP      string `json:"OTP"`
	Concepto string `json:"Concepto"`
}

func (r DebitoInmediatoRequest) AuthFields() map[string]string {
	return map[string]string{
		"Banco":    r.Banco,
		"Cedula":   r.Cedula,
		"Telefono": r.Telefono,
		"Monto":    r.Monto,
		"OTP":      r.OTP,
	}
}

// CreditoInmediatoRequest deposits funds directly into the client's account.
type CreditoInmediatoRequest struct {
	Banco    string `json:"Banco"`
	Cedula   string `json:"Cedula"`
	Telefono string `json:"Telefono"`
	Monto    string `json:"Monto"`
	Concepto string `json:"Concepto"`
}

func (r CreditoInmediatoRequest) AuthFields() map[string]string {
	return map[string]string{
		"Banco":    r.Banco,
		"Cedula":   r.Cedula,
		"Telefono": r.Telefono,
		"Monto":    r.Monto,
	}
}

// DomiciliacionCNTARequest enrolls an account number for recurring charges.
type DomiciliacionCNTARequest struct {
	DocId    string `json:"docId"`
	Nombre   string `json:"nombre"`
	Cuenta   string `json:"cuenta"`
	Monto    string `json:"monto"`
	Concepto string `json:"concepto"`
}

func (r DomiciliacionCNTARequest) AuthFields() map[string]string {
	return map[string]string{"cuenta": r.Cuenta}
}

// DomiciliacionCELERequest enrolls a mobile-payment phone for recurring charges.
// The first submission is affiliation only; no charge is made.
type DomiciliacionCELERequest struct {
	DocId    string `json:"docId"`
	Telefono string `json:"telefono"`
	Nombre   string `json:"nombre"`
	Banco    string `json:"banco"`
	Monto    string `json:"monto"`
	Concepto string `json:"concepto"`
}

func (r DomiciliacionCELERequest) AuthFields() map[string]string {
	return map[string]string{"telefono": r.Telefono}
}

// ConsultarOperacionesRequest checks the final state of a deferred operation.
type ConsultarOperacionesRequest struct {
	Id string `json:"Id"`
}

func (r ConsultarOperacionesRequest) AuthFields() map[string]string {
	return map[string]string{"id": r.Id}
}

// CICuentasRequest is an immediate credit addressed by account number.
type CICuentasRequest struct {
	Cedula   string `json:"Cedula"`
	Cuenta   string `json:"Cuenta"`
	Monto    string `json:"Monto"`
	Concepto string `json:"Concepto"`
}

func (r CICuentasRequest) AuthFields() map[string]string {
	return map[string]string{
		"Cedula": r.Cedula,
		"Cuenta": r.Cuenta,
		"Monto":  r.Monto,
	}
}

// R4C2PRequest charges a client through the C2P flow.
type R4C2PRequest struct {
	TelefonoDestino string `json:"TelefonoDestino"`
	Cedula          string `json:"Cedula"`
	Concepto        string `json:"Concepto"`
	Banco           string `json:"Banco"`
	Ip              string `json:"Ip"`
	Monto           string `json:"Monto"`
	Otp             string `json:"Otp"`
}

func (r R4C2PRequest) AuthFields() map[string]string {
	return map[string]string{
		"TelefonoDestino": r.TelefonoDestino,
		"Monto":           r.Monto,
		"Banco":           r.Banco,
		"Cedula":          r.Cedula,
	}
}

// R4AnulacionC2PRequest reverses a recent C2P charge by reference.
type R4AnulacionC2PRequest struct {
	Cedula     string `json:"Cedula"`
	Banco      string `json:"Banco"`
	Referencia string `json:"Referencia"`
}

func (r R4AnulacionC2PRequest) AuthFields() map[string]string {
	return map[string]string{"Banco": r.Banco}
}

// VerificoPagoRequest carries the lookup filters for payment verification.
// All fields are optional; empty values are passed through to the procedure.
type VerificoPagoRequest struct {
	Telefono   string `json:"Telefono,omitempty"`
	Banco      string `json:"Banco,omitempty"`
	Monto      string `json:"Monto,omitempty"`
	FechaHora  string `json:"FechaHora,omitempty"`
	Referencia string `json:"Referencia,omitempty"`
}

func (r VerificoPagoRequest) AuthFields() map[string]string {
	return map[string]string{"Referencia": r.Referencia}
}

// UpsertCondicionalRequest applies a guarded field update to the notification
// store. Both maps are column-name keyed.
type UpsertCondicionalRequest struct {
	Fields map[string]string `json:"fields"`
	Where  map[string]string `json:"where"`
}

func (r UpsertCondicionalRequest) AuthFields() map[string]string {
	return map[string]string{}
}

// ComprueboPagoRequest carries the same filters as verification; only the
// reference participates in processing.
type ComprueboPagoRequest struct {
	Telefono   string `json:"Telefono,omitempty"`
	Banco      string `json:"Banco,omitempty"`
	Monto      string `json:"Monto,omitempty"`
	FechaHora  string `json:"FechaHora,omitempty"`
	Referencia string `json:"Referencia,omitempty"`
}

func (r ComprueboPagoRequest) AuthFields() map[string]string {
	return map[string]string{"Referencia": r.Referencia}
}
