// Package acquire reads the full text of a user-selected SVG file.
package acquire

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"mime/multipart"
	"os"
	"path/filepath"
	"regexp"
	"strings"

	"golang.org/x/net/html/charset"
)

// DefaultLimit caps a single read.
const DefaultLimit = 10 << 20 // 10MB

var (
	// ErrNoFile is returned when nothing was selected. Callers treat it as a no-op.
	ErrNoFile = errors.New("no file selected")
	// ErrTooLarge is returned when the file exceeds the read limit.
	ErrTooLarge = errors.New("file too large")
	// ErrEncoding is returned for text in an unknown or broken character encoding.
	ErrEncoding = errors.New("bad text encoding")
)

// Source is a file the user picked.
type Source interface {
	Name() string
	Open() (io.ReadCloser, error)
}

type fileSource string

// File returns a Source reading a local path. An empty path means no selection.
func File(path string) Source {
	if path == "" {
		return nil
	}
	return fileSource(path)
}

func (f fileSource) Name() string                 { return filepath.Base(string(f)) }
func (f fileSource) Open() (io.ReadCloser, error) { return os.Open(string(f)) }

type uploadSource struct {
	hdr *multipart.FileHeader
}

// Upload returns a Source reading a multipart form file. A nil header means no selection.
func Upload(hdr *multipart.FileHeader) Source {
	if hdr == nil {
		return nil
	}
	return uploadSource{hdr: hdr}
}

func (u uploadSource) Name() string { return u.hdr.Filename }
func (u uploadSource) Open() (io.ReadCloser, error) {
	f, err := u.hdr.Open()
	if err != nil {
		return nil, err
	}
	return f, nil
}

type bytesSource struct {
	name string
	data []byte
}

// Bytes returns a Source over in-memory data.
func Bytes(name string, data []byte) Source {
	return bytesSource{name: name, data: data}
}

func (b bytesSource) Name() string { return b.name }
func (b bytesSource) Open() (io.ReadCloser, error) {
	return io.NopCloser(bytes.NewReader(b.data)), nil
}

// Result is the single completion of an asynchronous read.
type Result struct {
	Name string
	Text string
	Err  error
}

// Text reads src completely and returns it as UTF-8 text.
// A limit <= 0 means DefaultLimit.
func Text(ctx context.Context, src Source, limit int64) (string, error) {
	if src == nil {
		return "", ErrNoFile
	}
	if limit <= 0 {
		limit = DefaultLimit
	}
	if err := ctx.Err(); err != nil {
		return "", err
	}

	rc, err := src.Open()
	if err != nil {
		return "", fmt.Errorf("open %s: %w", src.Name(), err)
	}
	defer rc.Close()

	data, err := io.ReadAll(io.LimitReader(rc, limit+1))
	if err != nil {
		return "", fmt.Errorf("read %s: %w", src.Name(), err)
	}
	if int64(len(data)) > limit {
		return "", fmt.Errorf("%s: %w (max %d bytes)", src.Name(), ErrTooLarge, limit)
	}
	if err := ctx.Err(); err != nil {
		return "", err
	}

	return Decode(data)
}

// Async reads src on its own goroutine and calls done exactly once.
func Async(ctx context.Context, src Source, limit int64, done func(Result)) {
	name := ""
	if src != nil {
		name = src.Name()
	}
	go func() {
		text, err := Text(ctx, src, limit)
		done(Result{Name: name, Text: text, Err: err})
	}()
}

var encodingDecl = regexp.MustCompile(`^(\s*<\?xml[^>]*?encoding\s*=\s*["'])([A-Za-z0-9._:-]+)(["'])`)

// Decode converts XML bytes to UTF-8 text, honoring a UTF-16 byte order mark
// or the encoding declared in the prolog. The declaration is rewritten to UTF-8
// so the XML decoder does not convert the text a second time.
func Decode(data []byte) (string, error) {
	decoded := false
	if hasBOM(data) {
		e, name, _ := charset.DetermineEncoding(data, "text/xml")
		out, err := e.NewDecoder().Bytes(data)
		if err != nil {
			return "", fmt.Errorf("%w: %s: %w", ErrEncoding, name, err)
		}
		data, decoded = out, true
	}
	data = bytes.TrimPrefix(data, []byte("\xef\xbb\xbf"))

	m := encodingDecl.FindSubmatchIndex(data)
	if m == nil {
		return string(data), nil
	}

	if !decoded {
		label := strings.ToLower(string(data[m[4]:m[5]]))
		e, name := charset.Lookup(label)
		if e == nil {
			return "", fmt.Errorf("%w: unsupported encoding %q", ErrEncoding, label)
		}
		if name != "utf-8" {
			out, err := e.NewDecoder().Bytes(data)
			if err != nil {
				return "", fmt.Errorf("%w: %s: %w", ErrEncoding, name, err)
			}
			data = out
			if m = encodingDecl.FindSubmatchIndex(data); m == nil {
				return string(data), nil
			}
		}
	}

	var b strings.Builder
	b.Grow(len(data))
	b.Write(data[:m[4]])
	b.WriteString("UTF-8")
	b.Write(data[m[5]:])
	return b.String(), nil
}

func hasBOM(data []byte) bool {
	return bytes.HasPrefix(data, []byte{0xfe, 0xff}) || bytes.HasPrefix(data, []byte{0xff, 0xfe})
}
