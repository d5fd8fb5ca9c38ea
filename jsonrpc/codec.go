package jsonrpc

import (
	"bufio"
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"strconv"
	"strings"
	"sync"
)

const headerContentLength = "Content-Length"

// Reader reads Content-Length framed messages from a byte stream.
type Reader struct {
	reader *bufio.Reader
}

// NewReader creates a Reader over r.
func NewReader(r io.Reader) *Reader {
	return &Reader{reader: bufio.NewReaderSize(r, 64*1024)}
}

// ReadBody reads one frame and returns its raw body.
//
// It returns io.EOF when the stream ends cleanly between frames and
// io.ErrUnexpectedEOF when it ends inside one. A header block without a
// usable Content-Length yields ErrMissingContentLength or
// ErrInvalidContentLength.
func (r *Reader) ReadBody() ([]byte, error) {
	contentLength := -1
	sawHeader := false

	for {
		line, err := r.reader.ReadString('\n')
		if err != nil {
			if errors.Is(err, io.EOF) {
				if !sawHeader && line == "" {
					return nil, io.EOF
				}
				return nil, io.ErrUnexpectedEOF
			}
			return nil, fmt.Errorf("read header: %w", err)
		}
		sawHeader = true

		line = strings.TrimSuffix(line, "\n")
		line = strings.TrimSuffix(line, "\r")
		if line == "" {
			break
		}

		name, value, ok := strings.Cut(line, ":")
		if !ok {
			// Not a header; ignore it like any other unknown header.
			continue
		}
		if !strings.EqualFold(strings.TrimSpace(name), headerContentLength) {
			continue
		}
		n, err := strconv.Atoi(strings.TrimSpace(value))
		if err != nil || n < 0 {
			return nil, fmt.Errorf("%w: %q", ErrInvalidContentLength, strings.TrimSpace(value))
		}
		contentLength = n
	}

	if contentLength < 0 {
		return nil, ErrMissingContentLength
	}

	body := make([]byte, contentLength)
	if _, err := io.ReadFull(r.reader, body); err != nil {
		if errors.Is(err, io.EOF) {
			return nil, io.ErrUnexpectedEOF
		}
		return nil, fmt.Errorf("read body: %w", err)
	}
	return body, nil
}

// Read reads one frame and decodes it. A body that is not valid JSON-RPC is
// reported with an error wrapping ErrParse; the stream stays usable.
func (r *Reader) Read() (*Message, error) {
	body, err := r.ReadBody()
	if err != nil {
		return nil, err
	}
	return Decode(body)
}

// Writer writes Content-Length framed messages. Writes are serialized so
// concurrent callers never interleave frames.
type Writer struct {
	mu     sync.Mutex
	writer *bufio.Writer
}

// NewWriter creates a Writer over w.
func NewWriter(w io.Writer) *Writer {
	return &Writer{writer: bufio.NewWriter(w)}
}

// Write encodes msg and writes it as one frame.
func (w *Writer) Write(msg *Message) error {
	if msg.JSONRPC == "" {
		msg.JSONRPC = Version
	}
	data, err := json.Marshal(msg)
	if err != nil {
		return fmt.Errorf("marshal message: %w", err)
	}
	return w.WriteBody(data)
}

// WriteBody writes an already encoded body as one frame and flushes.
func (w *Writer) WriteBody(body []byte) error {
	w.mu.Lock()
	defer w.mu.Unlock()

	if _, err := fmt.Fprintf(w.writer, "%s: %d\r\n\r\n", headerContentLength, len(body)); err != nil {
		return fmt.Errorf("write header: %w", err)
	}
	if _, err := w.writer.Write(body); err != nil {
		return fmt.Errorf("write body: %w", err)
	}
	if err := w.writer.Flush(); err != nil {
		return fmt.Errorf("flush: %w", err)
	}
	return nil
}

// Encode returns the framed bytes for any JSON value.
func Encode(v any) ([]byte, error) {
	body, err := json.Marshal(v)
	if err != nil {
		return nil, fmt.Errorf("marshal value: %w", err)
	}
	var buf bytes.Buffer
	fmt.Fprintf(&buf, "%s: %d\r\n\r\n", headerContentLength, len(body))
	buf.Write(body)
	return buf.Bytes(), nil
}

// DecodeValue parses a frame body into a generic JSON value. Numbers are
// kept as json.Number so they survive a round trip unchanged.
func DecodeValue(body []byte) (any, error) {
	dec := json.NewDecoder(bytes.NewReader(body))
	dec.UseNumber()
	var v any
	if err := dec.Decode(&v); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrParse, err)
	}
	if dec.More() {
		return nil, fmt.Errorf("%w: trailing data after JSON value", ErrParse)
	}
	return v, nil
}
