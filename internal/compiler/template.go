package compiler

import (
	"os"
	"path/filepath"
	"text/template"
)

var goModTemplate = template.Must(template.New("go.mod").Parse(
	`module handler/{{.ID}}

go 1.22

require {{.SDKModule}} v0.0.0

replace {{.SDKModule}} => {{.SDKPath}}
`))

// handlerShimTemplate is the generated entry point: a thin cgo export
// around the user's Handle function. Everything after the empty
// func main() is the endpoint author's own source, copied in verbatim.
var handlerShimTemplate = template.Must(template.New("handler.go").Parse(
	`package main

// #include <stdint.h>
import "C"

import (
	"time"
	"unsafe"

	sdk "{{.SDKModule}}"
)

//export sdk_abi_version
func sdk_abi_version() C.uint32_t { return C.uint32_t(sdk.ABIVersion) }

// handler_entry takes Context and Request as pointer+length pairs and
// returns the Response the same way: the handler allocates the reply
// buffer with C.CBytes and reports its length through outLen, mirroring
// the host callback's own ptr+len+outLen convention.
//export handler_entry
func handler_entry(ctxPtr *C.char, ctxLen C.int, reqPtr *C.char, reqLen C.int, hostCallback C.uintptr_t, outLen *C.int) *C.char {
	wire, _ := sdk.DecodeContext(C.GoBytes(unsafe.Pointer(ctxPtr), ctxLen))
	req, _ := sdk.DecodeRequest(C.GoBytes(unsafe.Pointer(reqPtr), reqLen))

	var deadline *time.Time
	if wire.HasDead {
		t := time.UnixMilli(wire.DeadlineMS)
		deadline = &t
	}
	hctx := sdk.NewContext(wire.RequestID, deadline, sdk.BindHostCallback(uintptr(hostCallback)))

	resp := Handle(hctx, req)

	encoded, _ := sdk.EncodeResponse(resp)
	*outLen = C.int(len(encoded))
	if len(encoded) == 0 {
		return nil
	}
	return (*C.char)(C.CBytes(encoded))
}

func main() {}

{{.Source}}
`))

type projectVars struct {
	ID        string
	SDKModule string
	SDKPath   string
	Source    string
}

// writeProject materializes the per-endpoint project tree: a go.mod
// requiring the SDK and a single source file holding the generated shim
// plus the user-supplied Handle function.
func writeProject(dir, id, sdkModule, sourceCode string) error {
	vars := projectVars{ID: id, SDKModule: sdkModule, SDKPath: "../../../pkg/sdk", Source: sourceCode}

	goModPath := filepath.Join(dir, "go.mod")
	if err := renderToFile(goModPath, goModTemplate, vars); err != nil {
		return err
	}

	handlerPath := filepath.Join(dir, "handler.go")
	return renderToFile(handlerPath, handlerShimTemplate, vars)
}

func renderToFile(path string, tmpl *template.Template, vars projectVars) error {
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	defer f.Close()
	return tmpl.Execute(f, vars)
}
