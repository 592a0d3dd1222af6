package httpd

import (
	"encoding/json"
	"fmt"
	"net"
	"strings"
	"time"
)

// Response is one outgoing response: status code, header map, body bytes.
type Response struct {
	Status int
	Header map[string]string
	Body   []byte
}

// NewResponse creates an empty response with the given status.
func NewResponse(status int) *Response {
	return &Response{Status: status, Header: make(map[string]string)}
}

// envelope is the structured document carried by every API response body.
type envelope struct {
	Success bool            `json:"success"`
	Message string          `json:"message"`
	Data    json.RawMessage `json:"data,omitempty"`
}

// JSON builds a response whose body is the standard
// {success, message, data?} envelope. data may be nil.
func JSON(status int, success bool, message string, data any) *Response {
	env := envelope{Success: success, Message: message}
	if data != nil {
		raw, err := json.Marshal(data)
		if err != nil {
			return JSON(500, false, "failed to encode response data", nil)
		}
		env.Data = raw
	}

	body, _ := json.Marshal(env)
	resp := NewResponse(status)
	resp.Header["Content-Type"] = "application/json"
	resp.Body = body
	return resp
}

// statusText maps the status codes this server actually sends.
func statusText(status int) string {
	switch status {
	case 200:
		return "OK"
	case 204:
		return "No Content"
	case 400:
		return "Bad Request"
	case 404:
		return "Not Found"
	case 500:
		return "Internal Server Error"
	case 503:
		return "Service Unavailable"
	default:
		return "Unknown"
	}
}

// corsHeaders are set on every response, the preflight included.
var corsHeaders = [...][2]string{
	{"Access-Control-Allow-Origin", "*"},
	{"Access-Control-Allow-Methods", "GET, POST, PUT, DELETE, OPTIONS"},
	{"Access-Control-Allow-Headers", "Content-Type"},
}

// Write serializes the response as an ASCII status line, header lines,
// and body, bounded by a single write deadline.
func (r *Response) Write(conn net.Conn, timeout time.Duration) error {
	var b strings.Builder
	fmt.Fprintf(&b, "HTTP/1.1 %d %s\r\n", r.Status, statusText(r.Status))

	for _, h := range corsHeaders {
		fmt.Fprintf(&b, "%s: %s\r\n", h[0], h[1])
	}
	for key, value := range r.Header {
		if strings.HasPrefix(key, "Access-Control-") {
			continue
		}
		fmt.Fprintf(&b, "%s: %s\r\n", key, value)
	}
	fmt.Fprintf(&b, "Content-Length: %d\r\n", len(r.Body))
	fmt.Fprintf(&b, "Connection: close\r\n")
	b.WriteString("\r\n")

	if err := conn.SetWriteDeadline(time.Now().Add(timeout)); err != nil {
		return err
	}
	if _, err := conn.Write([]byte(b.String())); err != nil {
		return err
	}
	_, err := conn.Write(r.Body)
	return err
}
