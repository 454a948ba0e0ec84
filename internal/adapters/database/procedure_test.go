package database

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/lystopay/r4-gateway/internal/domain"
)

func TestSessionVar_ContinuesAfterInParams(t *testing.T) {
	// sp_guardar_notificacion_r4 declares 9 IN parameters, so its two OUT
	// parameters live at positions 9 and 10.
	assert.Equal(t, "@_sp_guardar_notificacion_r4_9", sessionVar("sp_guardar_notificacion_r4", 9))
	assert.Equal(t, "@_sp_guardar_notificacion_r4_10", sessionVar("sp_guardar_notificacion_r4", 10))
}

func TestOutString(t *testing.T) {
	res := &ExecResult{OutParams: map[string]any{
		"p_mensaje": "Notificación registrada",
		"p_null":    nil,
		"p_num":     int64(7),
	}}

	assert.Equal(t, "Notificación registrada", res.OutString("p_mensaje"))
	assert.Equal(t, "", res.OutString("p_null"))
	assert.Equal(t, "", res.OutString("p_missing"))
	assert.Equal(t, "7", res.OutString("p_num"))
}

func TestOutInt(t *testing.T) {
	res := &ExecResult{OutParams: map[string]any{
		"as_int64":  int64(1),
		"as_int":    0,
		"as_float":  float64(2),
		"as_bytes":  []byte("3"),
		"as_string": " 4 ",
		"as_null":   nil,
		"as_junk":   "not a number",
	}}

	assert.Equal(t, int64(1), res.OutInt("as_int64"))
	assert.Equal(t, int64(0), res.OutInt("as_int"))
	assert.Equal(t, int64(2), res.OutInt("as_float"))
	assert.Equal(t, int64(3), res.OutInt("as_bytes"))
	assert.Equal(t, int64(4), res.OutInt("as_string"))
	assert.Equal(t, int64(0), res.OutInt("as_null"))
	assert.Equal(t, int64(0), res.OutInt("as_junk"))
	assert.Equal(t, int64(0), res.OutInt("missing"))
}

func TestFirstRow(t *testing.T) {
	empty := &ExecResult{ResultSets: []ResultSet{}}
	_, ok := empty.FirstRow()
	assert.False(t, ok)

	noRows := &ExecResult{ResultSets: []ResultSet{{Columns: []string{"a"}, Rows: [][]any{}}}}
	_, ok = noRows.FirstRow()
	assert.False(t, ok)

	res := &ExecResult{ResultSets: []ResultSet{{
		Columns: []string{"Referencia", "Monto"},
		Rows:    [][]any{{"12345678", "150.00"}, {"87654321", "10.00"}},
	}}}
	row, ok := res.FirstRow()
	assert.True(t, ok)
	assert.Equal(t, []any{"12345678", "150.00"}, row)
}

// newMockExecutor wires the executor to a mocked driver so the CALL/SELECT
// round trip can be asserted without a MySQL server.
func newMockExecutor(t *testing.T) (*Executor, sqlmock.Sqlmock) {
	t.Helper()
	db, mock, err := sqlmock.New(sqlmock.QueryMatcherOption(sqlmock.QueryMatcherEqual))
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })
	return NewExecutor(&Adapter{db: db, logger: zap.NewNop()}, zap.NewNop()), mock
}

func TestExecute_QueryPathCapturesResultSet(t *testing.T) {
	e, mock := newMockExecutor(t)

	mock.ExpectQuery("CALL sp_consulta_notificacion_r4(?, ?, ?, ?, ?, ?, ?)").
		WithArgs("", "", "04141234567", "", "", "", "12345678").
		WillReturnRows(sqlmock.NewRows([]string{"Referencia", "Monto"}).
			AddRow("12345678", "150.00"))

	res, err := e.Execute(context.Background(), "sp_consulta_notificacion_r4",
		[]any{"", "", "04141234567", "", "", "", "12345678"}, nil)

	require.NoError(t, err)
	assert.True(t, res.Success)
	require.Len(t, res.ResultSets, 1)
	assert.Equal(t, []string{"Referencia", "Monto"}, res.ResultSets[0].Columns)
	require.Len(t, res.ResultSets[0].Rows, 1)
	assert.Equal(t, []any{"12345678", "150.00"}, res.ResultSets[0].Rows[0])
	assert.NotNil(t, res.OutParams)
	assert.Empty(t, res.OutParams)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestExecute_QueryPathDrainsEveryResultSet(t *testing.T) {
	e, mock := newMockExecutor(t)

	first := sqlmock.NewRows([]string{"Referencia"}).AddRow("12345678")
	second := sqlmock.NewRows([]string{"Total"}).AddRow(int64(2))
	mock.ExpectQuery("CALL sp_consulta_notificacion_r4(?)").
		WithArgs("12345678").
		WillReturnRows(first, second)

	res, err := e.Execute(context.Background(), "sp_consulta_notificacion_r4",
		[]any{"12345678"}, nil)

	require.NoError(t, err)
	require.Len(t, res.ResultSets, 2)
	assert.Equal(t, []any{"12345678"}, res.ResultSets[0].Rows[0])
	assert.Equal(t, []any{int64(2)}, res.ResultSets[1].Rows[0])
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestExecute_OutParamsRecoveredThroughSessionVariables(t *testing.T) {
	e, mock := newMockExecutor(t)

	in := []any{
		"comercio-1", "04120000000", "04141234567", "Pago factura",
		"0102", "150.00", "2026-01-15 14:30:05", "12345678", "00",
	}
	mock.ExpectExec("CALL sp_guardar_notificacion_r4(?, ?, ?, ?, ?, ?, ?, ?, ?, " +
		"@_sp_guardar_notificacion_r4_9, @_sp_guardar_notificacion_r4_10)").
		WithArgs("comercio-1", "04120000000", "04141234567", "Pago factura",
			"0102", "150.00", "2026-01-15 14:30:05", "12345678", "00").
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectQuery("SELECT @_sp_guardar_notificacion_r4_9 AS `p_mensaje`, " +
		"@_sp_guardar_notificacion_r4_10 AS `p_codigo`").
		WillReturnRows(sqlmock.NewRows([]string{"p_mensaje", "p_codigo"}).
			AddRow("Notificación registrada", int64(1)))

	res, err := e.Execute(context.Background(), "sp_guardar_notificacion_r4",
		in, []string{"p_mensaje", "p_codigo"})

	require.NoError(t, err)
	assert.True(t, res.Success)
	assert.Equal(t, int64(1), res.RowsAffected)
	assert.Equal(t, "Notificación registrada", res.OutString("p_mensaje"))
	assert.Equal(t, int64(1), res.OutInt("p_codigo"))
	assert.NotNil(t, res.ResultSets)
	assert.Empty(t, res.ResultSets)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestExecute_FailureEnvelope(t *testing.T) {
	e, mock := newMockExecutor(t)

	mock.ExpectQuery("CALL sp_consulta_notificacion_r4(?)").
		WithArgs("12345678").
		WillReturnError(errors.New("PROCEDURE lysto.sp_consulta_notificacion_r4 does not exist"))

	res, err := e.Execute(context.Background(), "sp_consulta_notificacion_r4",
		[]any{"12345678"}, nil)

	require.Error(t, err)
	assert.True(t, domain.IsDomainError(err, domain.ErrorCodeProcedureFailed))
	require.NotNil(t, res, "callers always get a structured envelope")
	assert.False(t, res.Success)
	assert.NotNil(t, res.ResultSets)
	assert.Empty(t, res.ResultSets)
	assert.NotEmpty(t, res.Err)
	assert.Equal(t, "sp_consulta_notificacion_r4", res.Procedure)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestExecute_OutRecoverySelectFailure(t *testing.T) {
	e, mock := newMockExecutor(t)

	mock.ExpectExec("CALL sp_upsert_condicional_r4(?, ?, @_sp_upsert_condicional_r4_2, @_sp_upsert_condicional_r4_3)").
		WithArgs("{}", "{}").
		WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectQuery("SELECT @_sp_upsert_condicional_r4_2 AS `p_mensaje`, @_sp_upsert_condicional_r4_3 AS `p_filas`").
		WillReturnError(errors.New("connection reset"))

	res, err := e.Execute(context.Background(), "sp_upsert_condicional_r4",
		[]any{"{}", "{}"}, []string{"p_mensaje", "p_filas"})

	require.Error(t, err)
	assert.True(t, domain.IsDomainError(err, domain.ErrorCodeProcedureBadResult))
	assert.False(t, res.Success)
	assert.Empty(t, res.ResultSets)
	assert.NotEmpty(t, res.Err)
}

func TestNormalizeValue(t *testing.T) {
	assert.Equal(t, "texto", normalizeValue([]byte("texto")))

	ts := time.Date(2026, 1, 15, 14, 30, 5, 0, time.UTC)
	assert.Equal(t, "2026-01-15 14:30:05", normalizeValue(ts))

	assert.Equal(t, int64(5), normalizeValue(int64(5)))
	assert.Nil(t, normalizeValue(nil))
}
