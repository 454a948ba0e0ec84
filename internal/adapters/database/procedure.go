package database

import (
	"context"
	"fmt"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/lystopay/r4-gateway/internal/domain"
	"github.com/lystopay/r4-gateway/pkg/observability"
)

// ResultSet is one result set produced by a stored procedure.
type ResultSet struct {
	Columns []string `json:"columnas"`
	Rows    [][]any  `json:"filas"`
}

// ExecResult is the envelope every procedure call produces. Callers always
// receive a structured result: on failure Success is false, ResultSets is
// empty (never nil) and Err carries the cause.
type ExecResult struct {
	Success      bool           `json:"exito"`
	Procedure    string         `json:"sp"`
	ResultSets   []ResultSet    `json:"resultados"`
	OutParams    map[string]any `json:"parametros_out"`
	RowsAffected int64          `json:"filas_afectadas"`
	Err          string         `json:"error,omitempty"`
}

// FirstRow returns the first row of the first result set.
func (r *ExecResult) FirstRow() ([]any, bool) {
	if len(r.ResultSets) == 0 || len(r.ResultSets[0].Rows) == 0 {
		return nil, false
	}
	return r.ResultSets[0].Rows[0], true
}

// OutString returns an OUT parameter as a string, "" when absent or NULL.
func (r *ExecResult) OutString(name string) string {
	v, ok := r.OutParams[name]
	if !ok || v == nil {
		return ""
	}
	return fmt.Sprintf("%v", v)
}

// OutInt returns an OUT parameter as an int64, 0 when absent or unparseable.
func (r *ExecResult) OutInt(name string) int64 {
	v, ok := r.OutParams[name]
	if !ok || v == nil {
		return 0
	}
	switch n := v.(type) {
	case int64:
		return n
	case int:
		return int64(n)
	case float64:
		return int64(n)
	case []byte:
		return parseInt(string(n))
	case string:
		return parseInt(n)
	default:
		return 0
	}
}

func parseInt(s string) int64 {
	var n int64
	if _, err := fmt.Sscanf(strings.TrimSpace(s), "%d", &n); err != nil {
		return 0
	}
	return n
}

// Executor invokes stored procedures generically: positional IN parameters,
// OUT parameters recovered through session variables, and every result set
// drained. Each call runs on a dedicated connection so session variables are
// never shared between requests.
type Executor struct {
	adapter *Adapter
	logger  *zap.Logger
}

// NewExecutor creates a procedure executor on the given pool.
func NewExecutor(adapter *Adapter, logger *zap.Logger) *Executor {
	return &Executor{adapter: adapter, logger: logger}
}

// sessionVar names the session variable holding OUT parameter position idx.
// The position index continues after the IN parameters, mirroring the order
// the procedure declares its arguments.
func sessionVar(proc string, idx int) string {
	return fmt.Sprintf("@_%s_%d", proc, idx)
}

// Execute runs proc with the given IN values and OUT parameter names.
// It returns the envelope plus a DomainError when the call failed; the
// envelope is populated in both cases.
func (e *Executor) Execute(ctx context.Context, proc string, in []any, out []string) (*ExecResult, error) {
	start := time.Now()
	res := &ExecResult{
		Procedure:  proc,
		ResultSets: []ResultSet{},
		OutParams:  make(map[string]any),
	}

	conn, err := e.adapter.DB().Conn(ctx)
	if err != nil {
		return e.fail(res, start, domain.ErrorCodeDatabaseUnavailable, "could not acquire connection", err)
	}
	defer conn.Close()

	placeholders := make([]string, 0, len(in)+len(out))
	for range in {
		placeholders = append(placeholders, "?")
	}
	for i := range out {
		placeholders = append(placeholders, sessionVar(proc, len(in)+i))
	}
	call := fmt.Sprintf("CALL %s(%s)", proc, strings.Join(placeholders, ", "))

	if len(out) == 0 {
		// No OUT parameters: query form so every result set is visible.
		rows, err := conn.QueryContext(ctx, call, in...)
		if err != nil {
			return e.fail(res, start, domain.ErrorCodeProcedureFailed, "procedure call failed", err)
		}
		defer rows.Close()

		for {
			cols, err := rows.Columns()
			if err != nil {
				return e.fail(res, start, domain.ErrorCodeProcedureBadResult, "could not read result columns", err)
			}
			// DML-only calls surface a columnless result; skip those.
			if len(cols) > 0 {
				rs := ResultSet{Columns: cols, Rows: [][]any{}}
				for rows.Next() {
					values := make([]any, len(cols))
					ptrs := make([]any, len(cols))
					for i := range values {
						ptrs[i] = &values[i]
					}
					if err := rows.Scan(ptrs...); err != nil {
						return e.fail(res, start, domain.ErrorCodeProcedureBadResult, "row scan failed", err)
					}
					for i, v := range values {
						values[i] = normalizeValue(v)
					}
					rs.Rows = append(rs.Rows, values)
				}
				res.ResultSets = append(res.ResultSets, rs)
			}
			if !rows.NextResultSet() {
				break
			}
		}
		if err := rows.Err(); err != nil {
			return e.fail(res, start, domain.ErrorCodeProcedureBadResult, "result iteration failed", err)
		}
	} else {
		// OUT parameters: exec form captures the affected-row count, then the
		// session variables are read back by name.
		execRes, err := conn.ExecContext(ctx, call, in...)
		if err != nil {
			return e.fail(res, start, domain.ErrorCodeProcedureFailed, "procedure call failed", err)
		}
		if affected, err := execRes.RowsAffected(); err == nil {
			res.RowsAffected = affected
		}

		selects := make([]string, len(out))
		for i, name := range out {
			selects[i] = fmt.Sprintf("%s AS `%s`", sessionVar(proc, len(in)+i), name)
		}
		row := conn.QueryRowContext(ctx, "SELECT "+strings.Join(selects, ", "))

		values := make([]any, len(out))
		ptrs := make([]any, len(out))
		for i := range values {
			ptrs[i] = &values[i]
		}
		if err := row.Scan(ptrs...); err != nil {
			return e.fail(res, start, domain.ErrorCodeProcedureBadResult, "could not recover out parameters", err)
		}
		for i, name := range out {
			res.OutParams[name] = normalizeValue(values[i])
		}
	}

	res.Success = true
	observability.ObserveProcedure(proc, true, time.Since(start))
	e.logger.Debug("stored procedure executed",
		zap.String("procedure", proc),
		zap.Int("result_sets", len(res.ResultSets)),
		zap.Int64("rows_affected", res.RowsAffected),
		zap.Duration("duration", time.Since(start)))
	return res, nil
}

// fail finalizes the envelope for an error path. ResultSets is reset so a
// partially captured call never leaks half a result.
func (e *Executor) fail(res *ExecResult, start time.Time, code domain.ErrorCode, msg string, err error) (*ExecResult, error) {
	res.Success = false
	res.ResultSets = []ResultSet{}
	res.Err = fmt.Sprintf("%s: %v", msg, err)

	observability.ObserveProcedure(res.Procedure, false, time.Since(start))
	e.logger.Error("stored procedure failed",
		zap.String("procedure", res.Procedure),
		zap.String("message", msg),
		zap.Error(err))
	return res, domain.WrapError(code, msg, err).WithDetail("procedure", res.Procedure)
}

// normalizeValue converts driver types into plain Go values. The MySQL driver
// returns []byte for text columns; strings are what callers expect.
func normalizeValue(v any) any {
	switch b := v.(type) {
	case []byte:
		return string(b)
	case time.Time:
		return b.Format("2006-01-02 15:04:05")
	default:
		return v
	}
}
