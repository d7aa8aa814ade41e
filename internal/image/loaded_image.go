// Package image implements the Loaded Image (spec §4.1): the owner of one
// dynamically-loaded handler library, its resolved entry symbol, and the
// atomic admission bookkeeping that lets the Registry hand out guards
// without ever closing a library a request still holds.
package image

import (
	"context"
	"fmt"
	"path/filepath"
	"runtime"
	"sync/atomic"
	"time"
	"unsafe"

	"github.com/ebitengine/purego"

	"github.com/aras-services/native-gateway/internal/domain"
	"github.com/aras-services/native-gateway/pkg/sdk"
)

// drainingBit marks the high bit of the packed state word; the remaining
// bits hold the active-request count. Packing both into one word makes
// the "check draining, then increment" step in Acquire a single CAS, per
// the ordering rule in spec §4.1.
const drainingBit = uint64(1) << 63

// entryFunc is the Go-side shape handler_entry is bound to via
// purego.RegisterLibFunc. Context and Request cross as a raw pointer plus
// an explicit length (JSON-encoded sdk.ContextWire/sdk.Request); the
// response crosses the same way in reverse, with outLen as an out
// parameter the handler side fills in before returning the pointer — the
// same ptr+len+outLen convention internal/handlerctx uses for the host
// callback direction.
type entryFunc func(ctxPtr uintptr, ctxLen int32, reqPtr uintptr, reqLen int32, hostCallback uintptr, outLen *int32) uintptr

// Image is one Loaded Image: a library handle plus its resolved entry
// point and admission state.
type Image struct {
	id        string
	path      string
	handle    uintptr
	entry     entryFunc
	createdAt time.Time

	state atomic.Uint64 // packed draining-bit + active-count
}

// ArtifactName returns the platform-specific leaf the Registry expects
// under <handlers>/{id}/target/release/ (spec §4.2).
func ArtifactName(id string) string {
	switch runtime.GOOS {
	case "windows":
		return fmt.Sprintf("handler_%s.dll", id)
	case "darwin":
		return fmt.Sprintf("libhandler_%s.dylib", id)
	default:
		return fmt.Sprintf("libhandler_%s.so", id)
	}
}

// Load opens the library at path, resolves handler_entry, and checks the
// embedded ABI version marker before returning a usable Image.
func Load(id, path string) (*Image, error) {
	handle, err := purego.Dlopen(path, purego.RTLD_NOW|purego.RTLD_GLOBAL)
	if err != nil {
		return nil, &domain.LoadError{Reason: domain.LoadErrorMissingFile, Path: path, Wrapped: err}
	}

	var abiVersion func() uint32
	if err := registerSymbol(handle, "sdk_abi_version", &abiVersion); err != nil {
		purego.Dlclose(handle)
		return nil, &domain.LoadError{Reason: domain.LoadErrorMissingSymbol, Path: path, Wrapped: err}
	}
	if abiVersion() != sdk.ABIVersion {
		purego.Dlclose(handle)
		return nil, &domain.LoadError{Reason: domain.LoadErrorABIMismatch, Path: path}
	}

	var entry entryFunc
	if err := registerSymbol(handle, "handler_entry", &entry); err != nil {
		purego.Dlclose(handle)
		return nil, &domain.LoadError{Reason: domain.LoadErrorMissingSymbol, Path: path, Wrapped: err}
	}

	return &Image{
		id:        id,
		path:      path,
		handle:    handle,
		entry:     entry,
		createdAt: time.Now(),
	}, nil
}

func registerSymbol[T any](handle uintptr, name string, fptr *T) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("resolve symbol %s: %v", name, r)
		}
	}()
	purego.RegisterLibFunc(fptr, handle, name)
	return nil
}

// Guard witnesses one in-flight request against an Image. Its release
// decrements the active-request counter.
type Guard struct {
	img *Image
}

func (g *Guard) Release() {
	g.img.state.Add(^uint64(0)) // -1, leaves the draining bit untouched
}

// Acquire atomically checks the draining flag and increments the counter
// in one step (spec §4.1's linearizability requirement). Returns nil if
// the image is draining.
func (img *Image) Acquire() *Guard {
	for {
		old := img.state.Load()
		if old&drainingBit != 0 {
			return nil
		}
		if img.state.CompareAndSwap(old, old+1) {
			return &Guard{img: img}
		}
	}
}

// BeginDrain sets the draining flag. Idempotent; never clears.
func (img *Image) BeginDrain() {
	for {
		old := img.state.Load()
		if old&drainingBit != 0 {
			return
		}
		if img.state.CompareAndSwap(old, old|drainingBit) {
			return
		}
	}
}

func (img *Image) ActiveCount() uint64 { return img.state.Load() &^ drainingBit }
func (img *Image) IsDraining() bool    { return img.state.Load()&drainingBit != 0 }
func (img *Image) IsDrained() bool     { return img.IsDraining() && img.ActiveCount() == 0 }

func (img *Image) ID() string          { return img.id }
func (img *Image) Path() string        { return img.path }
func (img *Image) CreatedAt() time.Time { return img.createdAt }

// Execute invokes the entry function under an already-held guard and
// converts a handler panic into a 500-class Response rather than letting
// it escape into the dispatcher's goroutine.
func (img *Image) Execute(ctx context.Context, hctx sdk.Context, req domain.Request, hostCallback uintptr) (resp domain.Response, err error) {
	defer func() {
		if r := recover(); r != nil {
			err = &domain.HandlerPanic{Message: fmt.Sprintf("%v", r)}
			resp = domain.Response{Status: 500, Body: []byte(`{"error":"handler panic"}`)}
		}
	}()

	wire := sdk.ContextWire{RequestID: hctx.RequestID}
	if hctx.Deadline != nil {
		wire.HasDead = true
		wire.DeadlineMS = hctx.Deadline.UnixMilli()
	}
	ctxJSON, encErr := sdk.EncodeContext(wire)
	if encErr != nil {
		return domain.Response{}, encErr
	}
	reqJSON, encErr := sdk.EncodeRequest(sdk.Request{
		Method: req.Method, Path: req.Path, Query: req.Query, Headers: req.Headers,
		Body: req.Body, PathParams: req.PathParams, RequestID: req.RequestID,
	})
	if encErr != nil {
		return domain.Response{}, encErr
	}

	var outLen int32
	respPtr := img.entry(ptrOf(ctxJSON), int32(len(ctxJSON)), ptrOf(reqJSON), int32(len(reqJSON)), hostCallback, &outLen)
	if respPtr == 0 || outLen == 0 {
		return domain.Response{}, fmt.Errorf("handler %s: empty response", img.id)
	}
	respJSON := unsafe.Slice((*byte)(unsafe.Pointer(respPtr)), outLen)

	sdkResp, decErr := sdk.DecodeResponse(respJSON)
	if decErr != nil {
		return domain.Response{}, decErr
	}
	return domain.Response{Status: sdkResp.Status, Headers: sdkResp.Headers, Body: sdkResp.Body}, nil
}

func ptrOf(b []byte) uintptr {
	if len(b) == 0 {
		return 0
	}
	return uintptr(unsafe.Pointer(&b[0]))
}

// Close unmaps the library. Callers (the drain watchdog) must only call
// this once the image is drained, or be forcing an unload past its
// deadline (an acknowledged hazard, spec §4.2/§5).
func (img *Image) Close() error {
	return purego.Dlclose(img.handle)
}

// Dir is the per-endpoint project root the Compiler writes to and the
// Registry reads artifacts from.
func Dir(handlersRoot, id string) string {
	return filepath.Join(handlersRoot, id)
}

// ArtifactPath is the full path to the compiled release artifact.
func ArtifactPath(handlersRoot, id string) string {
	return filepath.Join(Dir(handlersRoot, id), "target", "release", ArtifactName(id))
}
