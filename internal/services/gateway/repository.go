package gateway

import (
	"context"
	"encoding/json"
	"strings"

	"go.uber.org/zap"

	"github.com/lystopay/r4-gateway/internal/adapters/database"
	"github.com/lystopay/r4-gateway/internal/domain"
)

// Stored procedure names. Parameter order is the database contract.
const (
	procSaveNotification    = "sp_guardar_notificacion_r4"
	procQueryNotification   = "sp_consulta_notificacion_r4"
	procProcessNotification = "sp_proceso_notificacion_r4"
	procConditionalUpsert   = "sp_upsert_condicional_r4"
)

// ProcedureExecutor is the narrow port onto the stored-procedure tier.
type ProcedureExecutor interface {
	Execute(ctx context.Context, proc string, in []any, out []string) (*database.ExecResult, error)
}

// Notification mirrors one row of the notification store.
type Notification struct {
	IdComercio       string
	TelefonoComercio string
	TelefonoEmisor   string
	Concepto         string
	BancoEmisor      string
	Monto            string
	FechaHora        string
	Referencia       string
	CodigoRed        string
}

// NotificationFilter selects notifications; empty fields are not filtered on.
type NotificationFilter struct {
	IdComercio       string
	TelefonoComercio string
	TelefonoEmisor   string
	BancoEmisor      string
	Monto            string
	FechaHora        string
	Referencia       string
}

// SaveResult carries the idempotency outcome of persisting a notification.
// Code 1 means credited, 0 means the reference was already stored.
type SaveResult struct {
	Message string
	Code    int64
}

// ProcessResult reports whether a stored notification has been processed.
type ProcessResult struct {
	Message   string
	Processed bool
}

// Repository wraps the stored procedures behind typed operations.
type Repository struct {
	exec   ProcedureExecutor
	logger *zap.Logger
}

// NewRepository creates the notification repository.
func NewRepository(exec ProcedureExecutor, logger *zap.Logger) *Repository {
	return &Repository{exec: exec, logger: logger}
}

// SaveNotification persists an incoming payment notification. The procedure
// owns the idempotency decision; callers act on the returned code.
func (r *Repository) SaveNotification(ctx context.Context, n Notification) (*SaveResult, error) {
	in := []any{
		n.IdComercio,
		n.TelefonoComercio,
		n.TelefonoEmisor,
		n.Concepto,
		n.BancoEmisor,
		n.Monto,
		n.FechaHora,
		n.Referencia,
		n.CodigoRed,
	}
	res, err := r.exec.Execute(ctx, procSaveNotification, in, []string{"p_mensaje", "p_codigo"})
	if err != nil {
		return nil, err
	}
	return &SaveResult{
		Message: res.OutString("p_mensaje"),
		Code:    res.OutInt("p_codigo"),
	}, nil
}

// FindNotification looks up the first notification matching the filter.
// Returns (nil, nil) when nothing matches.
func (r *Repository) FindNotification(ctx context.Context, f NotificationFilter) (*Notification, error) {
	in := []any{
		f.IdComercio,
		f.TelefonoComercio,
		f.TelefonoEmisor,
		f.BancoEmisor,
		f.Monto,
		f.FechaHora,
		f.Referencia,
	}
	res, err := r.exec.Execute(ctx, procQueryNotification, in, nil)
	if err != nil {
		return nil, err
	}

	for _, rs := range res.ResultSets {
		if len(rs.Rows) == 0 {
			continue
		}
		n := mapNotification(rs.Columns, rs.Rows[0])
		return &n, nil
	}
	return nil, nil
}

// ProcessNotification marks a notification processed and reports the outcome.
func (r *Repository) ProcessNotification(ctx context.Context, f NotificationFilter) (*ProcessResult, error) {
	in := []any{
		f.TelefonoEmisor,
		f.BancoEmisor,
		f.Monto,
		f.FechaHora,
		f.Referencia,
	}
	res, err := r.exec.Execute(ctx, procProcessNotification, in, []string{"p_mensaje", "p_procesado"})
	if err != nil {
		return nil, err
	}
	return &ProcessResult{
		Message:   res.OutString("p_mensaje"),
		Processed: res.OutInt("p_procesado") != 0,
	}, nil
}

// ConditionalUpsert updates or inserts notification fields matching the given
// conditions. Field and condition sets travel JSON-encoded; the procedure
// builds the statement server-side.
func (r *Repository) ConditionalUpsert(ctx context.Context, fields, where map[string]string) (int64, error) {
	fieldsJSON, err := json.Marshal(fields)
	if err != nil {
		return 0, domain.WrapError(domain.ErrorCodeValidationFailed, "could not encode fields", err)
	}
	whereJSON, err := json.Marshal(where)
	if err != nil {
		return 0, domain.WrapError(domain.ErrorCodeValidationFailed, "could not encode conditions", err)
	}

	res, err := r.exec.Execute(ctx, procConditionalUpsert,
		[]any{string(fieldsJSON), string(whereJSON)}, []string{"p_mensaje", "p_filas"})
	if err != nil {
		return 0, err
	}
	rows := res.OutInt("p_filas")
	if rows == 0 {
		rows = res.RowsAffected
	}
	return rows, nil
}

// notificationColumns is the positional fallback when the driver reports no
// usable column names for the query procedure's result set.
var notificationColumns = []string{
	"IdComercio", "TelefonoComercio", "TelefonoEmisor",
	"BancoEmisor", "Monto", "FechaHora", "Referencia",
}

// mapNotification builds a Notification from a result row. Columns are
// matched by name when present; a full table row also carries Concepto and
// CodigoRed, which the name match picks up for free.
func mapNotification(columns []string, row []any) Notification {
	var n Notification
	named := false
	for i, col := range columns {
		if i >= len(row) {
			break
		}
		value := asString(row[i])
		switch strings.ToLower(col) {
		case "idcomercio":
			n.IdComercio, named = value, true
		case "telefonocomercio":
			n.TelefonoComercio, named = value, true
		case "telefonoemisor":
			n.TelefonoEmisor, named = value, true
		case "concepto":
			n.Concepto, named = value, true
		case "bancoemisor":
			n.BancoEmisor, named = value, true
		case "monto":
			n.Monto, named = value, true
		case "fechahora":
			n.FechaHora, named = value, true
		case "referencia":
			n.Referencia, named = value, true
		case "codigored":
			n.CodigoRed, named = value, true
		}
	}
	if named {
		return n
	}

	for i, col := range notificationColumns {
		if i >= len(row) {
			break
		}
		value := asString(row[i])
		switch col {
		case "IdComercio":
			n.IdComercio = value
		case "TelefonoComercio":
			n.TelefonoComercio = value
		case "TelefonoEmisor":
			n.TelefonoEmisor = value
		case "BancoEmisor":
			n.BancoEmisor = value
		case "Monto":
			n.Monto = value
		case "FechaHora":
			n.FechaHora = value
		case "Referencia":
			n.Referencia = value
		}
	}
	return n
}

func asString(v any) string {
	switch s := v.(type) {
	case nil:
		return ""
	case string:
		return s
	case []byte:
		return string(s)
	default:
		b, _ := json.Marshal(v)
		return strings.Trim(string(b), `"`)
	}
}
