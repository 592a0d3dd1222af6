package httpd

import "errors"

// Framing errors. All of them terminate the connection after a
// best-effort error response.
var (
	// ErrHeaderTooLarge is returned when the header block exceeds the
	// configured maximum before the CRLFCRLF terminator is seen.
	ErrHeaderTooLarge = errors.New("httpd: request header too large")

	// ErrBodyTooLarge is returned when Content-Length exceeds the
	// configured maximum body size.
	ErrBodyTooLarge = errors.New("httpd: request body too large")

	// ErrMalformed is returned for an unparseable request line, a bad
	// Content-Length, or a body shorter than declared.
	ErrMalformed = errors.New("httpd: malformed request")
)
