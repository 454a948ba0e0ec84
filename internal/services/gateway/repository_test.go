package gateway

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/lystopay/r4-gateway/internal/adapters/database"
	"github.com/lystopay/r4-gateway/internal/domain"
)

// MockExecutor is a mock implementation of ProcedureExecutor
type MockExecutor struct {
	mock.Mock
}

func (m *MockExecutor) Execute(ctx context.Context, proc string, in []any, out []string) (*database.ExecResult, error) {
	args := m.Called(ctx, proc, in, out)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*database.ExecResult), args.Error(1)
}

func okResult(out map[string]any) *database.ExecResult {
	return &database.ExecResult{
		Success:    true,
		ResultSets: []database.ResultSet{},
		OutParams:  out,
	}
}

func TestSaveNotification_PassesParamsInOrder(t *testing.T) {
	exec := new(MockExecutor)
	repo := NewRepository(exec, zap.NewNop())

	expectedIn := []any{
		"comercio-1", "04120000000", "04141234567", "Pago factura",
		"0102", "150.00", "2026-01-15 14:30:05", "12345678", "00",
	}
	exec.On("Execute", mock.Anything, "sp_guardar_notificacion_r4",
		expectedIn, []string{"p_mensaje", "p_codigo"}).
		Return(okResult(map[string]any{"p_mensaje": "Registrada", "p_codigo": int64(1)}), nil)

	res, err := repo.SaveNotification(context.Background(), Notification{
		IdComercio:       "comercio-1",
		TelefonoComercio: "04120000000",
		TelefonoEmisor:   "04141234567",
		Concepto:         "Pago factura",
		BancoEmisor:      "0102",
		Monto:            "150.00",
		FechaHora:        "2026-01-15 14:30:05",
		Referencia:       "12345678",
		CodigoRed:        "00",
	})

	require.NoError(t, err)
	assert.Equal(t, int64(1), res.Code)
	assert.Equal(t, "Registrada", res.Message)
	exec.AssertExpectations(t)
}

func TestFindNotification_NamedColumns(t *testing.T) {
	exec := new(MockExecutor)
	repo := NewRepository(exec, zap.NewNop())

	exec.On("Execute", mock.Anything, "sp_consulta_notificacion_r4", mock.Anything, []string(nil)).
		Return(&database.ExecResult{
			Success: true,
			ResultSets: []database.ResultSet{{
				Columns: []string{
					"IdComercio", "TelefonoComercio", "TelefonoEmisor", "Concepto",
					"BancoEmisor", "Monto", "FechaHora", "Referencia", "CodigoRed",
				},
				Rows: [][]any{{
					"comercio-1", "04120000000", "04141234567", "Pago factura",
					"0102", "150.00", "2026-01-15 14:30:05", "12345678", "00",
				}},
			}},
			OutParams: map[string]any{},
		}, nil)

	n, err := repo.FindNotification(context.Background(), NotificationFilter{Referencia: "12345678"})

	require.NoError(t, err)
	require.NotNil(t, n)
	assert.Equal(t, "12345678", n.Referencia)
	assert.Equal(t, "Pago factura", n.Concepto)
	assert.Equal(t, "00", n.CodigoRed)
}

func TestFindNotification_PositionalFallback(t *testing.T) {
	exec := new(MockExecutor)
	repo := NewRepository(exec, zap.NewNop())

	// Driver reported no usable names; rows map by the procedure's declared
	// 7-column order.
	exec.On("Execute", mock.Anything, "sp_consulta_notificacion_r4", mock.Anything, []string(nil)).
		Return(&database.ExecResult{
			Success: true,
			ResultSets: []database.ResultSet{{
				Columns: []string{"c0", "c1", "c2", "c3", "c4", "c5", "c6"},
				Rows: [][]any{{
					"comercio-1", "04120000000", "04141234567",
					"0102", "150.00", "2026-01-15 14:30:05", "12345678",
				}},
			}},
			OutParams: map[string]any{},
		}, nil)

	n, err := repo.FindNotification(context.Background(), NotificationFilter{Referencia: "12345678"})

	require.NoError(t, err)
	require.NotNil(t, n)
	assert.Equal(t, "12345678", n.Referencia)
	assert.Equal(t, "0102", n.BancoEmisor)
	assert.Equal(t, "150.00", n.Monto)
}

func TestFindNotification_NoMatch(t *testing.T) {
	exec := new(MockExecutor)
	repo := NewRepository(exec, zap.NewNop())

	exec.On("Execute", mock.Anything, "sp_consulta_notificacion_r4", mock.Anything, []string(nil)).
		Return(&database.ExecResult{
			Success:    true,
			ResultSets: []database.ResultSet{{Columns: []string{"Referencia"}, Rows: [][]any{}}},
			OutParams:  map[string]any{},
		}, nil)

	n, err := repo.FindNotification(context.Background(), NotificationFilter{Referencia: "none"})

	require.NoError(t, err)
	assert.Nil(t, n)
}

func TestProcessNotification_OutParams(t *testing.T) {
	exec := new(MockExecutor)
	repo := NewRepository(exec, zap.NewNop())

	expectedIn := []any{"04141234567", "0102", "150.00", "2026-01-15 14:30:05", "12345678"}
	exec.On("Execute", mock.Anything, "sp_proceso_notificacion_r4",
		expectedIn, []string{"p_mensaje", "p_procesado"}).
		Return(okResult(map[string]any{"p_mensaje": "Procesado", "p_procesado": int64(1)}), nil)

	res, err := repo.ProcessNotification(context.Background(), NotificationFilter{
		TelefonoEmisor: "04141234567",
		BancoEmisor:    "0102",
		Monto:          "150.00",
		FechaHora:      "2026-01-15 14:30:05",
		Referencia:     "12345678",
	})

	require.NoError(t, err)
	assert.True(t, res.Processed)
	assert.Equal(t, "Procesado", res.Message)
}

func TestConditionalUpsert_EncodesJSON(t *testing.T) {
	exec := new(MockExecutor)
	repo := NewRepository(exec, zap.NewNop())

	exec.On("Execute", mock.Anything, "sp_upsert_condicional_r4",
		[]any{`{"Concepto":"Ajuste"}`, `{"Referencia":"12345678"}`},
		[]string{"p_mensaje", "p_filas"}).
		Return(okResult(map[string]any{"p_mensaje": "OK", "p_filas": int64(1)}), nil)

	rows, err := repo.ConditionalUpsert(context.Background(),
		map[string]string{"Concepto": "Ajuste"},
		map[string]string{"Referencia": "12345678"})

	require.NoError(t, err)
	assert.Equal(t, int64(1), rows)
}

func TestConditionalUpsert_FallsBackToRowsAffected(t *testing.T) {
	exec := new(MockExecutor)
	repo := NewRepository(exec, zap.NewNop())

	res := okResult(map[string]any{"p_mensaje": "OK", "p_filas": int64(0)})
	res.RowsAffected = 3
	exec.On("Execute", mock.Anything, "sp_upsert_condicional_r4", mock.Anything, mock.Anything).
		Return(res, nil)

	rows, err := repo.ConditionalUpsert(context.Background(),
		map[string]string{"Concepto": "Ajuste"}, nil)

	require.NoError(t, err)
	assert.Equal(t, int64(3), rows)
}

func TestRepository_PropagatesExecutorError(t *testing.T) {
	exec := new(MockExecutor)
	repo := NewRepository(exec, zap.NewNop())

	exec.On("Execute", mock.Anything, mock.Anything, mock.Anything, mock.Anything).
		Return(nil, domain.ErrDatabaseUnavailable)

	_, err := repo.SaveNotification(context.Background(), Notification{Referencia: "1"})
	assert.Error(t, err)

	_, err = repo.FindNotification(context.Background(), NotificationFilter{})
	assert.Error(t, err)
}
