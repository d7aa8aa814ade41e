package sdk

import (
	"encoding/json"
	"fmt"
	"time"
)

// command is the envelope every provider handle serializes before calling
// invoke; op identifies which command variant args holds.
type command struct {
	Op   string          `json:"op"`
	Args json.RawMessage `json:"args"`
}

func send[Args, Reply any](invoke Invoker, kind ProviderKind, name, op string, args Args) (Reply, error) {
	var reply Reply
	encodedArgs, err := json.Marshal(args)
	if err != nil {
		return reply, fmt.Errorf("encode args: %w", err)
	}
	raw, err := json.Marshal(command{Op: op, Args: encodedArgs})
	if err != nil {
		return reply, fmt.Errorf("encode command: %w", err)
	}
	replyBytes, err := invoke(kind, name, raw)
	if err != nil {
		return reply, err
	}
	if err := json.Unmarshal(replyBytes, &reply); err != nil {
		return reply, fmt.Errorf("decode reply: %w", err)
	}
	return reply, nil
}

// --- Database ---

type DatabaseHandle struct {
	name   string
	invoke Invoker
}

type Row map[string]any

type queryArgs struct {
	SQL    string `json:"sql"`
	Params []any  `json:"params"`
}

func (h DatabaseHandle) Query(sql string, params ...any) ([]Row, error) {
	return send[queryArgs, []Row](h.invoke, KindDatabase, h.name, "query", queryArgs{SQL: sql, Params: params})
}

func (h DatabaseHandle) QueryOne(sql string, params ...any) (Row, bool, error) {
	type reply struct {
		Row   Row  `json:"row"`
		Found bool `json:"found"`
	}
	r, err := send[queryArgs, reply](h.invoke, KindDatabase, h.name, "query_one", queryArgs{SQL: sql, Params: params})
	return r.Row, r.Found, err
}

func (h DatabaseHandle) Execute(sql string, params ...any) (int64, error) {
	type reply struct {
		RowsAffected int64 `json:"rows_affected"`
	}
	r, err := send[queryArgs, reply](h.invoke, KindDatabase, h.name, "execute", queryArgs{SQL: sql, Params: params})
	return r.RowsAffected, err
}

// BeginTransaction opens a transaction on the provider's connection pool
// and returns a handle scoped to it. The returned DatabaseTxHandle must be
// resolved with exactly one Commit or Rollback call.
func (h DatabaseHandle) BeginTransaction() (DatabaseTxHandle, error) {
	type reply struct {
		TxID string `json:"tx_id"`
	}
	r, err := send[struct{}, reply](h.invoke, KindDatabase, h.name, "begin_transaction", struct{}{})
	if err != nil {
		return DatabaseTxHandle{}, err
	}
	return DatabaseTxHandle{name: h.name, txID: r.TxID, invoke: h.invoke}, nil
}

// DatabaseTxHandle scopes Query/Execute calls to one open transaction.
// Every op it sends carries the transaction id so the provider actor
// routes the work to the pgx.Tx begin_transaction opened, rather than the
// pool directly.
type DatabaseTxHandle struct {
	name   string
	txID   string
	invoke Invoker
}

type txQueryArgs struct {
	TxID   string `json:"tx_id"`
	SQL    string `json:"sql"`
	Params []any  `json:"params"`
}

type txIDArgs struct {
	TxID string `json:"tx_id"`
}

func (h DatabaseTxHandle) Query(sql string, params ...any) ([]Row, error) {
	return send[txQueryArgs, []Row](h.invoke, KindDatabase, h.name, "tx_query", txQueryArgs{TxID: h.txID, SQL: sql, Params: params})
}

func (h DatabaseTxHandle) QueryOne(sql string, params ...any) (Row, bool, error) {
	type reply struct {
		Row   Row  `json:"row"`
		Found bool `json:"found"`
	}
	r, err := send[txQueryArgs, reply](h.invoke, KindDatabase, h.name, "tx_query_one", txQueryArgs{TxID: h.txID, SQL: sql, Params: params})
	return r.Row, r.Found, err
}

func (h DatabaseTxHandle) Execute(sql string, params ...any) (int64, error) {
	type reply struct {
		RowsAffected int64 `json:"rows_affected"`
	}
	r, err := send[txQueryArgs, reply](h.invoke, KindDatabase, h.name, "tx_execute", txQueryArgs{TxID: h.txID, SQL: sql, Params: params})
	return r.RowsAffected, err
}

func (h DatabaseTxHandle) Commit() error {
	_, err := send[txIDArgs, struct{}](h.invoke, KindDatabase, h.name, "tx_commit", txIDArgs{TxID: h.txID})
	return err
}

func (h DatabaseTxHandle) Rollback() error {
	_, err := send[txIDArgs, struct{}](h.invoke, KindDatabase, h.name, "tx_rollback", txIDArgs{TxID: h.txID})
	return err
}

// --- Cache ---

type CacheHandle struct {
	name   string
	invoke Invoker
}

func (h CacheHandle) Get(key string) ([]byte, bool, error) {
	type args struct {
		Key string `json:"key"`
	}
	type reply struct {
		Value []byte `json:"value"`
		Found bool   `json:"found"`
	}
	r, err := send[args, reply](h.invoke, KindCache, h.name, "get", args{Key: key})
	return r.Value, r.Found, err
}

func (h CacheHandle) Set(key string, value []byte, ttl time.Duration) error {
	type args struct {
		Key        string `json:"key"`
		Value      []byte `json:"value"`
		TTLSeconds int64  `json:"ttl_seconds"`
	}
	_, err := send[args, struct{}](h.invoke, KindCache, h.name, "set", args{Key: key, Value: value, TTLSeconds: int64(ttl.Seconds())})
	return err
}

func (h CacheHandle) Delete(key string) (bool, error) {
	type args struct {
		Key string `json:"key"`
	}
	type reply struct {
		Deleted bool `json:"deleted"`
	}
	r, err := send[args, reply](h.invoke, KindCache, h.name, "delete", args{Key: key})
	return r.Deleted, err
}

func (h CacheHandle) Increment(key string, amount int64) (int64, error) {
	type args struct {
		Key    string `json:"key"`
		Amount int64  `json:"amount"`
	}
	type reply struct {
		Value int64 `json:"value"`
	}
	r, err := send[args, reply](h.invoke, KindCache, h.name, "increment", args{Key: key, Amount: amount})
	return r.Value, err
}

// --- Object Storage ---

type StorageHandle struct {
	name   string
	invoke Invoker
}

type ObjectInfo struct {
	Key  string `json:"key"`
	Size int64  `json:"size"`
}

func (h StorageHandle) Put(key string, body []byte, contentType string) error {
	type args struct {
		Key         string `json:"key"`
		Body        []byte `json:"body"`
		ContentType string `json:"content_type"`
	}
	_, err := send[args, struct{}](h.invoke, KindStorage, h.name, "put", args{Key: key, Body: body, ContentType: contentType})
	return err
}

func (h StorageHandle) Get(key string) ([]byte, error) {
	type args struct {
		Key string `json:"key"`
	}
	type reply struct {
		Body []byte `json:"body"`
	}
	r, err := send[args, reply](h.invoke, KindStorage, h.name, "get", args{Key: key})
	return r.Body, err
}

func (h StorageHandle) Delete(key string) error {
	type args struct {
		Key string `json:"key"`
	}
	_, err := send[args, struct{}](h.invoke, KindStorage, h.name, "delete", args{Key: key})
	return err
}

func (h StorageHandle) List(prefix string) ([]ObjectInfo, error) {
	type args struct {
		Prefix string `json:"prefix"`
	}
	type reply struct {
		Objects []ObjectInfo `json:"objects"`
	}
	r, err := send[args, reply](h.invoke, KindStorage, h.name, "list", args{Prefix: prefix})
	return r.Objects, err
}

func (h StorageHandle) PresignedURL(key string, ttl time.Duration) (string, error) {
	type args struct {
		Key        string `json:"key"`
		TTLSeconds int64  `json:"ttl_seconds"`
	}
	type reply struct {
		URL string `json:"url"`
	}
	r, err := send[args, reply](h.invoke, KindStorage, h.name, "presigned_url", args{Key: key, TTLSeconds: int64(ttl.Seconds())})
	return r.URL, err
}

// --- Email ---

type EmailHandle struct {
	name   string
	invoke Invoker
}

func (h EmailHandle) Send(from, to, subject, body string, isHTML bool) error {
	type args struct {
		From    string `json:"from"`
		To      string `json:"to"`
		Subject string `json:"subject"`
		Body    string `json:"body"`
		IsHTML  bool   `json:"is_html"`
	}
	_, err := send[args, struct{}](h.invoke, KindEmail, h.name, "send", args{From: from, To: to, Subject: subject, Body: body, IsHTML: isHTML})
	return err
}

// --- File Transfer ---

type FileTransferHandle struct {
	name   string
	invoke Invoker
}

type DirEntry struct {
	Name  string `json:"name"`
	IsDir bool   `json:"is_dir"`
	Size  int64  `json:"size"`
}

func (h FileTransferHandle) Put(path string, body []byte) error {
	type args struct {
		Path string `json:"path"`
		Body []byte `json:"body"`
	}
	_, err := send[args, struct{}](h.invoke, KindFileTransfer, h.name, "put", args{Path: path, Body: body})
	return err
}

func (h FileTransferHandle) Get(path string) ([]byte, error) {
	type args struct {
		Path string `json:"path"`
	}
	type reply struct {
		Body []byte `json:"body"`
	}
	r, err := send[args, reply](h.invoke, KindFileTransfer, h.name, "get", args{Path: path})
	return r.Body, err
}

func (h FileTransferHandle) List(path string) ([]DirEntry, error) {
	type args struct {
		Path string `json:"path"`
	}
	type reply struct {
		Entries []DirEntry `json:"entries"`
	}
	r, err := send[args, reply](h.invoke, KindFileTransfer, h.name, "list", args{Path: path})
	return r.Entries, err
}

func (h FileTransferHandle) Delete(path string) error {
	type args struct {
		Path string `json:"path"`
	}
	_, err := send[args, struct{}](h.invoke, KindFileTransfer, h.name, "delete", args{Path: path})
	return err
}
