package sdk

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// fakeInvoker decodes the command envelope and replies per-op, letting
// tests exercise the handle types without a real provider actor.
func fakeInvoker(t *testing.T, reply func(op string, args json.RawMessage) ([]byte, error)) Invoker {
	t.Helper()
	return func(kind ProviderKind, name string, raw []byte) ([]byte, error) {
		var cmd command
		require.NoError(t, json.Unmarshal(raw, &cmd))
		return reply(cmd.Op, cmd.Args)
	}
}

func TestDatabaseHandleQueryExecute(t *testing.T) {
	invoke := fakeInvoker(t, func(op string, args json.RawMessage) ([]byte, error) {
		switch op {
		case "query":
			return json.Marshal([]Row{{"id": float64(1)}})
		case "execute":
			return json.Marshal(struct {
				RowsAffected int64 `json:"rows_affected"`
			}{RowsAffected: 3})
		default:
			t.Fatalf("unexpected op %q", op)
			return nil, nil
		}
	})
	h := DatabaseHandle{name: "primary-db", invoke: invoke}

	rows, err := h.Query("SELECT 1")
	require.NoError(t, err)
	assert.Equal(t, []Row{{"id": float64(1)}}, rows)

	affected, err := h.Execute("UPDATE t SET x = 1")
	require.NoError(t, err)
	assert.Equal(t, int64(3), affected)
}

func TestDatabaseHandleBeginTransactionCommit(t *testing.T) {
	var gotTxID string
	invoke := fakeInvoker(t, func(op string, args json.RawMessage) ([]byte, error) {
		switch op {
		case "begin_transaction":
			return json.Marshal(struct {
				TxID string `json:"tx_id"`
			}{TxID: "tx-1"})
		case "tx_execute":
			var a txQueryArgs
			require.NoError(t, json.Unmarshal(args, &a))
			gotTxID = a.TxID
			return json.Marshal(struct {
				RowsAffected int64 `json:"rows_affected"`
			}{RowsAffected: 1})
		case "tx_commit":
			var a txIDArgs
			require.NoError(t, json.Unmarshal(args, &a))
			gotTxID = a.TxID
			return json.Marshal(struct{}{})
		default:
			t.Fatalf("unexpected op %q", op)
			return nil, nil
		}
	})
	h := DatabaseHandle{name: "primary-db", invoke: invoke}

	tx, err := h.BeginTransaction()
	require.NoError(t, err)
	assert.Equal(t, "tx-1", tx.txID)

	affected, err := tx.Execute("INSERT INTO t VALUES ($1)", 1)
	require.NoError(t, err)
	assert.Equal(t, int64(1), affected)
	assert.Equal(t, "tx-1", gotTxID)

	require.NoError(t, tx.Commit())
	assert.Equal(t, "tx-1", gotTxID)
}

func TestDatabaseHandleTransactionRollback(t *testing.T) {
	rolledBack := false
	invoke := fakeInvoker(t, func(op string, args json.RawMessage) ([]byte, error) {
		switch op {
		case "begin_transaction":
			return json.Marshal(struct {
				TxID string `json:"tx_id"`
			}{TxID: "tx-2"})
		case "tx_rollback":
			rolledBack = true
			return json.Marshal(struct{}{})
		default:
			t.Fatalf("unexpected op %q", op)
			return nil, nil
		}
	})
	h := DatabaseHandle{name: "primary-db", invoke: invoke}

	tx, err := h.BeginTransaction()
	require.NoError(t, err)

	require.NoError(t, tx.Rollback())
	assert.True(t, rolledBack)
}
