package banks

import (
	"context"

	"go.uber.org/zap"

	"github.com/lystopay/r4-gateway/internal/adapters/r4"
	"github.com/lystopay/r4-gateway/internal/domain"
	"github.com/lystopay/r4-gateway/internal/services/gateway"
)

// CaroniAdapter handles Banco Caroní, whose host answers rate and
// notification traffic with deferred placeholders instead of final results.
type CaroniAdapter struct {
	*R4Adapter
}

// NewCaroniAdapter creates the Caroní variant on top of the default adapter.
func NewCaroniAdapter(code string, service *gateway.Service, upstream *r4.Client, logger *zap.Logger) *CaroniAdapter {
	return &CaroniAdapter{R4Adapter: NewR4Adapter(code, service, upstream, logger)}
}

// QueryRate always reports a zero rate; Caroní publishes rates out of band.
func (a *CaroniAdapter) QueryRate(ctx context.Context, req domain.R4BcvRequest) domain.R4BcvResponse {
	return domain.R4BcvResponse{Code: "00", Fechavalor: req.Fechavalor, TipoCambio: 0}
}

// Notify defers crediting: Caroní settles notifications in a later batch, so
// the abono decision stays pending until reconciliation.
func (a *CaroniAdapter) Notify(ctx context.Context, req domain.R4NotificaRequest) domain.R4NotificaResponse {
	a.logger.Info("notification held for deferred settlement",
		zap.String("referencia", req.Referencia))
	return domain.R4NotificaResponse{Abono: false}
}

// institution is one row of the seed table.
type institution struct {
	code  string
	alias string
}

// institutions lists the network's member banks. Codes are the 4-digit
// clearing identifiers.
var institutions = []institution{
	{"0102", "bdv"},
	{"0104", "bvc"},
	{"0105", "mercantil"},
	{"0108", "provincial"},
	{"0114", "bancaribe"},
	{"0115", "bancoexterior"},
	{"0128", "caroni"},
	{"0134", "banesco"},
	{"0137", "sofitasa"},
	{"0138", "plaza"},
	{"0146", "bangente"},
	{"0151", "bfc"},
	{"0156", "100banco"},
	{"0157", "delsur"},
	{"0163", "tesoro"},
	{"0166", "agricola"},
	{"0168", "bancrecer"},
	{"0169", "mibanco"},
	{"0171", "activo"},
	{"0172", "bancamiga"},
	{"0174", "banplus"},
	{"0175", "bicentenario"},
	{"0177", "banfanb"},
	{"0191", "bnc"},
}

// Seed registers every member institution plus the network default. Banks
// without a dedicated variant use the default adapter.
func Seed(reg Registrar, service *gateway.Service, upstream *r4.Client, logger *zap.Logger) {
	defaultFactory := func(code string) Handler {
		return NewR4Adapter(code, service, upstream, logger)
	}

	reg.Register("r4", "r4", defaultFactory)

	for _, inst := range institutions {
		switch inst.alias {
		case "caroni":
			reg.Register(inst.code, inst.alias, func(code string) Handler {
				return NewCaroniAdapter(code, service, upstream, logger)
			})
		default:
			reg.Register(inst.code, inst.alias, defaultFactory)
		}
	}
}
