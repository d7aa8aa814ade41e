// Package sdk defines the wire shape of the handler ABI: the Context,
// Request, and Response values that cross the boundary between the
// gateway process and a loaded handler library, plus the version marker
// the Registry checks at load time. Handler projects and the gateway MUST
// link the same sdk version — that is the whole of the compatibility
// contract (see spec §6/§9).
package sdk

import "encoding/json"

// ABIVersion is embedded into every compiled handler artifact as the
// exported symbol sdk_abi_version (see the handler shim rendered by
// internal/compiler/template.go). The Registry compares it
// against its own ABIVersion at load and refuses a mismatch with
// LoadError{abi-mismatch}.
const ABIVersion uint32 = 1

// Request mirrors internal/domain.Request. Kept as an independent type so
// handler projects (built as standalone Go modules) never import the
// gateway's internal packages.
type Request struct {
	Method     string            `json:"method"`
	Path       string            `json:"path"`
	Query      map[string]string `json:"query,omitempty"`
	Headers    map[string]string `json:"headers,omitempty"`
	Body       []byte            `json:"body,omitempty"`
	PathParams map[string]string `json:"path_params,omitempty"`
	RequestID  string            `json:"request_id"`
}

// Response mirrors internal/domain.Response.
type Response struct {
	Status  int               `json:"status"`
	Headers map[string]string `json:"headers,omitempty"`
	Body    []byte            `json:"body,omitempty"`
}

// ContextWire is the encoded form of Context that actually crosses the ABI
// boundary — it carries no callback value, only the metadata. The host
// callback pointer travels as a separate handler_entry argument (see
// internal/image) and is rebound into a live Invoker on the handler side.
type ContextWire struct {
	RequestID  string     `json:"request_id"`
	DeadlineMS int64      `json:"deadline_ms,omitempty"`
	HasDead    bool       `json:"has_deadline,omitempty"`
}

// EncodeRequest/DecodeRequest, EncodeResponse/DecodeResponse, and
// EncodeContext/DecodeContext are the marshal pairs used on both sides of
// the FFI call: the gateway encodes before the call and decodes what the
// handler returns; the generated project shim does the inverse.
func EncodeRequest(r Request) ([]byte, error) { return json.Marshal(r) }
func DecodeRequest(b []byte) (Request, error) {
	var r Request
	err := json.Unmarshal(b, &r)
	return r, err
}
func EncodeResponse(r Response) ([]byte, error) { return json.Marshal(r) }
func DecodeResponse(b []byte) (Response, error) {
	var r Response
	err := json.Unmarshal(b, &r)
	return r, err
}
func EncodeContext(c ContextWire) ([]byte, error) { return json.Marshal(c) }
func DecodeContext(b []byte) (ContextWire, error) {
	var c ContextWire
	err := json.Unmarshal(b, &c)
	return c, err
}
