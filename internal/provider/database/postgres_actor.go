// Package database implements the Database Provider Actor kind (spec
// §4.4) backed by PostgreSQL via pgx.
package database

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"go.uber.org/zap"

	"github.com/aras-services/native-gateway/internal/domain"
	"github.com/aras-services/native-gateway/internal/provider/actor"
)

// Activate opens a pgxpool against the descriptor's config (expects a
// "dsn" key) and spawns the actor that owns it.
func Activate(ctx context.Context, desc *domain.ProviderDescriptor, inboxDepth int, logger *zap.Logger) (*actor.Actor, error) {
	dsn := desc.Config["dsn"]
	pool, err := pgxpool.New(ctx, dsn)
	if err != nil {
		return nil, &domain.ConnectionError{Message: err.Error()}
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, &domain.ConnectionError{Message: err.Error()}
	}

	handle := newDispatch(pool)
	test := func(ctx context.Context) (time.Duration, error) {
		start := time.Now()
		err := pool.Ping(ctx)
		return time.Since(start), err
	}
	info := func() domain.ConnectionInfo {
		stat := pool.Stat()
		return domain.ConnectionInfo{
			Kind:    domain.ProviderKindDatabase,
			Subtype: desc.Subtype,
			Details: map[string]string{
				"total_conns": fmt.Sprintf("%d", stat.TotalConns()),
			},
		}
	}

	return actor.Spawn(desc.Name, domain.ProviderKindDatabase, inboxDepth, handle, test, info, pool.Close, logger), nil
}

type queryArgs struct {
	SQL    string `json:"sql"`
	Params []any  `json:"params"`
}

type txQueryArgs struct {
	TxID   string `json:"tx_id"`
	SQL    string `json:"sql"`
	Params []any  `json:"params"`
}

type txIDArgs struct {
	TxID string `json:"tx_id"`
}

// newDispatch builds the actor's command handler, closing over a table of
// transactions opened by begin_transaction. The actor's inbox already
// serializes every call onto this actor, so a plain map is safe here
// without its own lock: commit/rollback for one transaction can never run
// concurrently with the query that opened it.
func newDispatch(pool *pgxpool.Pool) actor.Handler {
	txs := make(map[string]pgx.Tx)
	return func(ctx context.Context, op string, rawArgs []byte) ([]byte, error) {
		return dispatch(ctx, pool, txs, op, rawArgs)
	}
}

func dispatch(ctx context.Context, pool *pgxpool.Pool, txs map[string]pgx.Tx, op string, rawArgs []byte) ([]byte, error) {
	switch op {
	case "query":
		var args queryArgs
		if err := json.Unmarshal(rawArgs, &args); err != nil {
			return nil, err
		}
		rows, err := pool.Query(ctx, args.SQL, args.Params...)
		if err != nil {
			return nil, err
		}
		defer rows.Close()
		results, err := collectRows(rows)
		if err != nil {
			return nil, err
		}
		return json.Marshal(results)

	case "query_one":
		var args queryArgs
		if err := json.Unmarshal(rawArgs, &args); err != nil {
			return nil, err
		}
		rows, err := pool.Query(ctx, args.SQL, args.Params...)
		if err != nil {
			return nil, err
		}
		defer rows.Close()
		results, err := collectRows(rows)
		if err != nil {
			return nil, err
		}
		reply := struct {
			Row   map[string]any `json:"row"`
			Found bool           `json:"found"`
		}{}
		if len(results) > 0 {
			reply.Row = results[0]
			reply.Found = true
		}
		return json.Marshal(reply)

	case "execute":
		var args queryArgs
		if err := json.Unmarshal(rawArgs, &args); err != nil {
			return nil, err
		}
		tag, err := pool.Exec(ctx, args.SQL, args.Params...)
		if err != nil {
			return nil, err
		}
		reply := struct {
			RowsAffected int64 `json:"rows_affected"`
		}{RowsAffected: tag.RowsAffected()}
		return json.Marshal(reply)

	case "begin_transaction":
		tx, err := pool.Begin(ctx)
		if err != nil {
			return nil, err
		}
		txID := uuid.NewString()
		txs[txID] = tx
		reply := struct {
			TxID string `json:"tx_id"`
		}{TxID: txID}
		return json.Marshal(reply)

	case "tx_query":
		var args txQueryArgs
		if err := json.Unmarshal(rawArgs, &args); err != nil {
			return nil, err
		}
		tx, err := lookupTx(txs, args.TxID)
		if err != nil {
			return nil, err
		}
		rows, err := tx.Query(ctx, args.SQL, args.Params...)
		if err != nil {
			return nil, err
		}
		defer rows.Close()
		results, err := collectRows(rows)
		if err != nil {
			return nil, err
		}
		return json.Marshal(results)

	case "tx_query_one":
		var args txQueryArgs
		if err := json.Unmarshal(rawArgs, &args); err != nil {
			return nil, err
		}
		tx, err := lookupTx(txs, args.TxID)
		if err != nil {
			return nil, err
		}
		rows, err := tx.Query(ctx, args.SQL, args.Params...)
		if err != nil {
			return nil, err
		}
		defer rows.Close()
		results, err := collectRows(rows)
		if err != nil {
			return nil, err
		}
		reply := struct {
			Row   map[string]any `json:"row"`
			Found bool           `json:"found"`
		}{}
		if len(results) > 0 {
			reply.Row = results[0]
			reply.Found = true
		}
		return json.Marshal(reply)

	case "tx_execute":
		var args txQueryArgs
		if err := json.Unmarshal(rawArgs, &args); err != nil {
			return nil, err
		}
		tx, err := lookupTx(txs, args.TxID)
		if err != nil {
			return nil, err
		}
		tag, err := tx.Exec(ctx, args.SQL, args.Params...)
		if err != nil {
			return nil, err
		}
		reply := struct {
			RowsAffected int64 `json:"rows_affected"`
		}{RowsAffected: tag.RowsAffected()}
		return json.Marshal(reply)

	case "tx_commit":
		var args txIDArgs
		if err := json.Unmarshal(rawArgs, &args); err != nil {
			return nil, err
		}
		tx, err := lookupTx(txs, args.TxID)
		if err != nil {
			return nil, err
		}
		delete(txs, args.TxID)
		if err := tx.Commit(ctx); err != nil {
			return nil, err
		}
		return json.Marshal(struct{}{})

	case "tx_rollback":
		var args txIDArgs
		if err := json.Unmarshal(rawArgs, &args); err != nil {
			return nil, err
		}
		tx, err := lookupTx(txs, args.TxID)
		if err != nil {
			return nil, err
		}
		delete(txs, args.TxID)
		if err := tx.Rollback(ctx); err != nil {
			return nil, err
		}
		return json.Marshal(struct{}{})

	default:
		return nil, fmt.Errorf("database provider: unknown op %q", op)
	}
}

func lookupTx(txs map[string]pgx.Tx, txID string) (pgx.Tx, error) {
	tx, ok := txs[txID]
	if !ok {
		return nil, fmt.Errorf("database provider: unknown transaction %q", txID)
	}
	return tx, nil
}

func collectRows(rows pgx.Rows) ([]map[string]any, error) {
	fields := rows.FieldDescriptions()
	var out []map[string]any
	for rows.Next() {
		values, err := rows.Values()
		if err != nil {
			return nil, err
		}
		row := make(map[string]any, len(fields))
		for i, f := range fields {
			row[string(f.Name)] = values[i]
		}
		out = append(out, row)
	}
	return out, rows.Err()
}
