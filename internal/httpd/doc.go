// Package httpd is parkd's hand-built request pipeline: a TCP accept
// loop, an admission gate bounding in-flight connections, a fixed worker
// pool, byte-level request framing with per-read deadlines, and ordered
// exact/prefix routing. There is no keep-alive and no chunked transfer;
// every connection carries exactly one request and one response.
package httpd
