// Package handlerctx builds the Handler Context (spec §4.6): the
// per-request value handler code uses to reach providers by name. Two
// shapes exist for the same sdk.Context: an in-process one the Request
// Dispatcher builds for every request, and a cross-FFI one built around a
// host callback function pointer handed to the loaded image on every call.
package handlerctx

import (
	"context"
	"encoding/json"
	"time"
	"unsafe"

	"github.com/ebitengine/purego"

	"github.com/aras-services/native-gateway/internal/domain"
	"github.com/aras-services/native-gateway/internal/provider/actor"
	"github.com/aras-services/native-gateway/pkg/sdk"
)

// Resolver is the subset of the Provider Registry the context needs.
type Resolver interface {
	Resolve(name string, kind domain.ProviderKind) (*actor.Actor, error)
}

// InProcess builds an sdk.Context whose provider calls go straight to the
// live Provider Registry — no FFI involved. The Dispatcher builds one per
// request; a loaded image reads only its request id and deadline, and
// native handler code reaches providers through HostCallback instead.
func InProcess(requestID string, deadline *time.Time, resolver Resolver) sdk.Context {
	invoke := func(kind sdk.ProviderKind, name string, command []byte) ([]byte, error) {
		a, err := resolver.Resolve(name, domain.ProviderKind(kind))
		if err != nil {
			return nil, err
		}
		var cmd struct {
			Op   string          `json:"op"`
			Args json.RawMessage `json:"args"`
		}
		if err := json.Unmarshal(command, &cmd); err != nil {
			return nil, err
		}
		return a.Send(context.Background(), cmd.Op, cmd.Args)
	}
	return sdk.NewContext(requestID, deadline, invoke)
}

// HostCallback builds the raw C-callable function pointer passed as
// handler_entry's hostCallback argument: the purego trampoline a loaded
// handler image invokes (after rebinding it with purego.RegisterFunc in
// sdk.BindHostCallback) to reach the live Provider Registry across the FFI
// boundary. Every call crosses as kind/name/command byte buffers and
// returns a pointer to a newly-allocated, JSON-encoded reply envelope
// whose length is written through outLen.
func HostCallback(resolver Resolver) uintptr {
	callback := func(kindPtr uintptr, kindLen int32, namePtr uintptr, nameLen int32, cmdPtr uintptr, cmdLen int32, outLen *int32) uintptr {
		kind := domain.ProviderKind(bytesFrom(kindPtr, kindLen))
		name := string(bytesFrom(namePtr, nameLen))
		command := bytesFrom(cmdPtr, cmdLen)

		a, err := resolver.Resolve(name, kind)
		if err != nil {
			return writeReply(nil, err, outLen)
		}
		var cmd struct {
			Op   string          `json:"op"`
			Args json.RawMessage `json:"args"`
		}
		if err := json.Unmarshal(command, &cmd); err != nil {
			return writeReply(nil, err, outLen)
		}
		reply, err := a.Send(context.Background(), cmd.Op, cmd.Args)
		return writeReply(reply, err, outLen)
	}
	return purego.NewCallback(callback)
}

func bytesFrom(ptr uintptr, length int32) []byte {
	if ptr == 0 || length == 0 {
		return nil
	}
	return unsafe.Slice((*byte)(unsafe.Pointer(ptr)), length)
}

func writeReply(value []byte, err error, outLen *int32) uintptr {
	envelope := struct {
		Value []byte `json:"value,omitempty"`
		Error string `json:"error,omitempty"`
	}{Value: value}
	if err != nil {
		envelope.Error = err.Error()
	}
	encoded, _ := json.Marshal(envelope)
	*outLen = int32(len(encoded))
	if len(encoded) == 0 {
		return 0
	}
	return uintptr(unsafe.Pointer(&encoded[0]))
}
