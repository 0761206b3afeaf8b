package httphead

import (
	"bufio"
	"bytes"
	"errors"
	"fmt"
	"io"
	"net/http"
)

// initialBufferSize is the starting capacity of the head buffer; it doubles
// whenever it fills before the header terminator arrives.
const initialBufferSize = 8 * 1024

var (
	// ErrClosedEarly reports a peer that went away before completing its
	// header section.
	ErrClosedEarly = errors.New("connection closed before headers completed")

	// ErrMalformed reports a head that contained the terminator but did not
	// parse as an HTTP/1.x request.
	ErrMalformed = errors.New("malformed request head")

	// ErrTooLarge reports a header section exceeding the configured cap.
	ErrTooLarge = errors.New("request head too large")
)

var headerTerminator = []byte("\r\n\r\n")

// Read consumes bytes from r until a complete HTTP/1.x header section has
// arrived, parses the request line, and returns the request-target path
// together with every byte read so far. Bytes past the terminator (a body
// prefix, or the start of a pipelined request) are included verbatim; the
// caller must forward them unmodified.
//
// maxBytes caps the accumulated head; zero disables the cap.
func Read(r io.Reader, maxBytes int) (path string, raw []byte, err error) {
	buf := make([]byte, initialBufferSize)
	total := 0

	for {
		n, rerr := r.Read(buf[total:])
		total += n

		if n > 0 {
			if end := bytes.Index(buf[:total], headerTerminator); end >= 0 {
				path, perr := parsePath(buf[:end+len(headerTerminator)])
				switch {
				case perr == nil:
					return path, buf[:total], nil
				case errors.Is(perr, io.ErrUnexpectedEOF):
					// Parser wants more bytes even though the terminator is
					// present; keep reading.
				default:
					return "", nil, fmt.Errorf("%w: %v", ErrMalformed, perr)
				}
			}
		}

		if rerr != nil {
			if errors.Is(rerr, io.EOF) {
				return "", nil, ErrClosedEarly
			}
			return "", nil, fmt.Errorf("reading request head: %w", rerr)
		}

		if total == len(buf) {
			if maxBytes > 0 && len(buf) >= maxBytes {
				return "", nil, ErrTooLarge
			}
			grown := make([]byte, len(buf)*2)
			copy(grown, buf[:total])
			buf = grown
		}
	}
}

// parsePath extracts the request-target from a complete header section.
// The query string is kept attached: routing treats the whole target as
// the path, exactly as received on the wire.
func parsePath(head []byte) (string, error) {
	req, err := http.ReadRequest(bufio.NewReader(bytes.NewReader(head)))
	if err != nil {
		return "", err
	}

	if req.RequestURI == "" {
		return "/", nil
	}
	return req.RequestURI, nil
}
