package sdk

import (
	"encoding/json"
	"fmt"
	"unsafe"

	"github.com/ebitengine/purego"
)

// hostCallbackFunc is the Go-side shape the gateway's host callback
// pointer is rebound to via purego.RegisterFunc on the handler side. Every
// pointer argument crosses as a plain uintptr — the same convention
// entryFunc (internal/image) and handler_entry's generated shim use — and
// the reply length comes back through the outLen out-parameter. It
// mirrors internal/handlerctx.HostCallback's signature exactly; both ends
// must agree on this shape, which is why it lives in the shared SDK
// rather than being duplicated per handler project.
type hostCallbackFunc func(kindPtr uintptr, kindLen int32, namePtr uintptr, nameLen int32, cmdPtr uintptr, cmdLen int32, outLen *int32) uintptr

// BindHostCallback rebinds the raw function pointer passed into
// handler_entry into a live Invoker a handler can call through
// Context.Database/Cache/Storage/Email/FileTransfer.
func BindHostCallback(raw uintptr) Invoker {
	var call hostCallbackFunc
	purego.RegisterFunc(&call, raw)

	return func(kind ProviderKind, name string, command []byte) ([]byte, error) {
		kindBytes := []byte(kind)
		nameBytes := []byte(name)
		var outLen int32

		replyPtr := call(
			ptrOf(kindBytes), int32(len(kindBytes)),
			ptrOf(nameBytes), int32(len(nameBytes)),
			ptrOf(command), int32(len(command)),
			&outLen,
		)
		if replyPtr == 0 || outLen == 0 {
			return nil, fmt.Errorf("provider %s: empty reply", name)
		}
		raw := unsafe.Slice((*byte)(unsafe.Pointer(replyPtr)), outLen)

		var envelope struct {
			Value []byte `json:"value,omitempty"`
			Error string `json:"error,omitempty"`
		}
		if err := json.Unmarshal(raw, &envelope); err != nil {
			return nil, err
		}
		if envelope.Error != "" {
			return nil, fmt.Errorf("%s", envelope.Error)
		}
		return envelope.Value, nil
	}
}

func ptrOf(b []byte) uintptr {
	if len(b) == 0 {
		return 0
	}
	return uintptr(unsafe.Pointer(&b[0]))
}
