//go:build js && wasm

package main

import (
	"strings"
	"syscall/js"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// consoleWriter sends each encoded log line to the browser console.
type consoleWriter struct {
	console js.Value
}

func (w consoleWriter) Write(p []byte) (int, error) {
	w.console.Call("log", strings.TrimRight(string(p), "\n"))
	return len(p), nil
}

func newConsoleLogger(debug bool) *zap.Logger {
	level := zapcore.InfoLevel
	if debug {
		level = zapcore.DebugLevel
	}
	ec := zap.NewDevelopmentEncoderConfig()
	ec.EncodeCaller = nil
	ec.TimeKey = zapcore.OmitKey
	core := zapcore.NewCore(zapcore.NewConsoleEncoder(ec),
		zapcore.AddSync(consoleWriter{console: js.Global().Get("console")}), level)
	return zap.New(core).Named("svgfit")
}
