package sdk

import "time"

// Invoker sends an encoded command to a named provider and returns its
// encoded reply. The gateway binds this directly to the real Provider
// Registry for in-process callers (internal/handlerctx); a compiled
// handler image binds it to the host callback pointer handed in on every
// call to handler_entry (see the compiler's generated project shim).
type Invoker func(kind ProviderKind, name string, command []byte) ([]byte, error)

// ProviderKind mirrors internal/domain.ProviderKind for handler projects
// that only import pkg/sdk.
type ProviderKind string

const (
	KindDatabase     ProviderKind = "database"
	KindCache        ProviderKind = "cache"
	KindStorage      ProviderKind = "storage"
	KindEmail        ProviderKind = "email"
	KindFileTransfer ProviderKind = "file-transfer"
)

// Context is the per-request value handed to handler code. Not shared
// across requests; the provider handles it returns are shared, reusable
// references to the underlying actor.
type Context struct {
	RequestID string
	Deadline  *time.Time
	invoke    Invoker
}

// NewContext builds a Context bound to invoke. Handler projects never call
// this directly — the generated project shim constructs it on entry.
func NewContext(requestID string, deadline *time.Time, invoke Invoker) Context {
	return Context{RequestID: requestID, Deadline: deadline, invoke: invoke}
}

func (c Context) Database(name string) DatabaseHandle {
	return DatabaseHandle{name: name, invoke: c.invoke}
}

func (c Context) Cache(name string) CacheHandle {
	return CacheHandle{name: name, invoke: c.invoke}
}

func (c Context) Storage(name string) StorageHandle {
	return StorageHandle{name: name, invoke: c.invoke}
}

func (c Context) Email(name string) EmailHandle {
	return EmailHandle{name: name, invoke: c.invoke}
}

func (c Context) FileTransfer(name string) FileTransferHandle {
	return FileTransferHandle{name: name, invoke: c.invoke}
}
