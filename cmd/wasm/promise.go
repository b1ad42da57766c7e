//go:build js && wasm

package main

import (
	"encoding/json"
	"syscall/js"
)

// newPromise runs fn on a goroutine and returns the JS Promise it settles.
func newPromise(fn func(resolve, reject js.Value)) js.Value {
	var executor js.Func
	executor = js.FuncOf(func(this js.Value, args []js.Value) interface{} {
		resolve, reject := args[0], args[1]
		go fn(resolve, reject)
		executor.Release()
		return nil
	})
	return js.Global().Get("Promise").New(executor)
}

// await blocks the calling goroutine until p settles.
func await(p js.Value) (js.Value, error) {
	done := make(chan struct{})
	var (
		result js.Value
		err    error
	)

	onOK := js.FuncOf(func(this js.Value, args []js.Value) interface{} {
		result = args[0]
		close(done)
		return nil
	})
	onErr := js.FuncOf(func(this js.Value, args []js.Value) interface{} {
		err = js.Error{Value: args[0]}
		close(done)
		return nil
	})
	defer onOK.Release()
	defer onErr.Release()

	p.Call("then", onOK, onErr)
	<-done
	return result, err
}

func toJSON(v interface{}) string {
	data, err := json.Marshal(v)
	if err != nil {
		return "{}"
	}
	return string(data)
}
