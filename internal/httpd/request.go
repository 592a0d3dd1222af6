package httpd

import (
	"bytes"
	"fmt"
	"net"
	"strconv"
	"strings"
	"time"
)

// Request is one framed request: method, path, header map, and a bounded
// body. It lives for a single connection and is discarded after the
// response is written.
type Request struct {
	Method string
	Path   string
	Header map[string]string
	Body   []byte

	// RemoteAddr is the peer address, for logging.
	RemoteAddr string
}

var crlfcrlf = []byte("\r\n\r\n")

// readChunkSize is the per-Read buffer size while scanning for the
// header terminator.
const readChunkSize = 1024

// Framer reads a byte stream from a connection and produces a complete
// Request or a framing error. Every Read is bounded by ReadTimeout; the
// header block is bounded by MaxHeaderBytes and the body by MaxBodyBytes.
type Framer struct {
	MaxHeaderBytes int
	MaxBodyBytes   int
	ReadTimeout    time.Duration
}

// ReadRequest frames a single request from conn.
func (f *Framer) ReadRequest(conn net.Conn) (*Request, error) {
	header, rest, err := f.readHeaderBlock(conn)
	if err != nil {
		return nil, err
	}

	req, contentLength, err := parseHeader(header)
	if err != nil {
		return nil, err
	}
	req.RemoteAddr = conn.RemoteAddr().String()

	if contentLength > f.MaxBodyBytes {
		return nil, fmt.Errorf("%w: content-length %d exceeds %d", ErrBodyTooLarge, contentLength, f.MaxBodyBytes)
	}
	if contentLength > 0 {
		body, err := f.readBody(conn, rest, contentLength)
		if err != nil {
			return nil, err
		}
		req.Body = body
	}
	return req, nil
}

// readHeaderBlock accumulates bytes until CRLFCRLF, returning the header
// bytes and any body bytes read past the terminator.
func (f *Framer) readHeaderBlock(conn net.Conn) (header, rest []byte, err error) {
	var buf []byte
	chunk := make([]byte, readChunkSize)

	for {
		if i := bytes.Index(buf, crlfcrlf); i >= 0 {
			return buf[:i], buf[i+len(crlfcrlf):], nil
		}
		if len(buf) > f.MaxHeaderBytes {
			return nil, nil, fmt.Errorf("%w: no terminator within %d bytes", ErrHeaderTooLarge, f.MaxHeaderBytes)
		}

		if err := conn.SetReadDeadline(time.Now().Add(f.ReadTimeout)); err != nil {
			return nil, nil, err
		}
		n, err := conn.Read(chunk)
		if n > 0 {
			buf = append(buf, chunk[:n]...)
			continue
		}
		if err != nil {
			return nil, nil, fmt.Errorf("%w: connection ended before header terminator: %v", ErrMalformed, err)
		}
	}
}

// readBody completes the body, starting from bytes already pulled in
// while scanning the header. A short read is a framing failure.
func (f *Framer) readBody(conn net.Conn, rest []byte, contentLength int) ([]byte, error) {
	if len(rest) >= contentLength {
		return rest[:contentLength], nil
	}

	body := make([]byte, contentLength)
	n := copy(body, rest)
	for n < contentLength {
		if err := conn.SetReadDeadline(time.Now().Add(f.ReadTimeout)); err != nil {
			return nil, err
		}
		m, err := conn.Read(body[n:])
		n += m
		if err != nil && n < contentLength {
			return nil, fmt.Errorf("%w: body short read, got %d of %d bytes: %v", ErrMalformed, n, contentLength, err)
		}
	}
	return body, nil
}

// parseHeader splits the header block into the request line and the
// header map, and extracts Content-Length.
func parseHeader(header []byte) (*Request, int, error) {
	lines := strings.Split(string(header), "\r\n")
	if len(lines) == 0 {
		return nil, 0, fmt.Errorf("%w: empty header block", ErrMalformed)
	}

	fields := strings.Fields(lines[0])
	if len(fields) < 2 {
		return nil, 0, fmt.Errorf("%w: bad request line %q", ErrMalformed, lines[0])
	}

	req := &Request{
		Method: fields[0],
		Path:   fields[1],
		Header: make(map[string]string, len(lines)-1),
	}

	contentLength := 0
	for _, line := range lines[1:] {
		if line == "" {
			continue
		}
		colon := strings.IndexByte(line, ':')
		if colon < 0 {
			// No key/value to collect.
			continue
		}
		key := line[:colon]
		value := strings.TrimLeft(line[colon+1:], " ")
		req.Header[key] = value

		if strings.EqualFold(key, "Content-Length") {
			n, err := strconv.ParseUint(value, 10, 31)
			if err != nil {
				return nil, 0, fmt.Errorf("%w: bad content-length %q", ErrMalformed, value)
			}
			contentLength = int(n)
		}
	}
	return req, contentLength, nil
}
