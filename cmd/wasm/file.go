//go:build js && wasm

package main

import (
	"bytes"
	"fmt"
	"io"
	"syscall/js"

	"github.com/inamate/svgfit/internal/acquire"
)

// jsFile is a browser File read through its arrayBuffer() promise.
type jsFile struct {
	v js.Value
}

// fileSource returns nil for undefined or null, which the engine treats as
// no selection.
func fileSource(v js.Value) acquire.Source {
	if v.IsUndefined() || v.IsNull() {
		return nil
	}
	return jsFile{v: v}
}

func (f jsFile) Name() string {
	if n := f.v.Get("name"); n.Type() == js.TypeString {
		return n.String()
	}
	return "file"
}

// Open reads the whole file; it must not run on the JS event loop goroutine.
func (f jsFile) Open() (io.ReadCloser, error) {
	buf, err := await(f.v.Call("arrayBuffer"))
	if err != nil {
		return nil, fmt.Errorf("read %s: %w", f.Name(), err)
	}
	arr := js.Global().Get("Uint8Array").New(buf)
	data := make([]byte, arr.Get("length").Int())
	js.CopyBytesToGo(data, arr)
	return io.NopCloser(bytes.NewReader(data)), nil
}
