package httpd

import (
	"errors"
	"fmt"
	"net"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"golang.org/x/time/rate"
)

// Metrics receives transport-level counters. A nil Metrics disables
// instrumentation.
type Metrics interface {
	ConnAccepted()
	ConnRejected()
	RequestServed(status int)
}

// ServerConfig holds the transport parameters.
type ServerConfig struct {
	Addr           string
	Workers        int
	MaxInflight    int
	ReadTimeout    time.Duration
	WriteTimeout   time.Duration
	MaxHeaderBytes int
	MaxBodyBytes   int

	// AcceptRate throttles the accept loop to this many connections per
	// second. Zero disables the throttle.
	AcceptRate float64
}

// Server is the accept loop binding sockets to the gate, worker pool,
// framer, and router. Connections are not kept alive: one request, one
// response, close.
type Server struct {
	cfg     ServerConfig
	router  *Router
	framer  *Framer
	gate    *Gate
	pool    *WorkerPool
	limiter *rate.Limiter
	metrics Metrics
	logger  zerolog.Logger

	mu     sync.Mutex
	ln     net.Listener
	closed bool
	wg     sync.WaitGroup
}

// NewServer wires a server from its parts. metrics may be nil.
func NewServer(cfg ServerConfig, router *Router, metrics Metrics, logger zerolog.Logger) *Server {
	s := &Server{
		cfg:    cfg,
		router: router,
		framer: &Framer{
			MaxHeaderBytes: cfg.MaxHeaderBytes,
			MaxBodyBytes:   cfg.MaxBodyBytes,
			ReadTimeout:    cfg.ReadTimeout,
		},
		gate:    NewGate(cfg.MaxInflight),
		pool:    NewWorkerPool(cfg.Workers, cfg.MaxInflight),
		metrics: metrics,
		logger:  logger,
	}
	if cfg.AcceptRate > 0 {
		s.limiter = rate.NewLimiter(rate.Limit(cfg.AcceptRate), cfg.MaxInflight)
	}
	return s
}

// Start binds the listen socket and launches the accept loop.
func (s *Server) Start() error {
	ln, err := net.Listen("tcp", s.cfg.Addr)
	if err != nil {
		return fmt.Errorf("listen %s: %w", s.cfg.Addr, err)
	}

	s.mu.Lock()
	s.ln = ln
	s.mu.Unlock()

	s.logger.Info().Str("addr", ln.Addr().String()).Int("workers", s.cfg.Workers).
		Int("max_inflight", s.cfg.MaxInflight).Msg("server listening")

	s.wg.Add(1)
	go s.acceptLoop(ln)
	return nil
}

// Addr returns the bound listen address, or nil before Start.
func (s *Server) Addr() net.Addr {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.ln == nil {
		return nil
	}
	return s.ln.Addr()
}

// Stop closes the listener, stops the worker pool after in-flight
// connections drain, and joins the accept loop.
func (s *Server) Stop() error {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return nil
	}
	s.closed = true
	ln := s.ln
	s.mu.Unlock()

	var err error
	if ln != nil {
		err = ln.Close()
	}
	s.wg.Wait()
	s.pool.Stop()
	s.logger.Info().Msg("server stopped")
	return err
}

func (s *Server) isClosed() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.closed
}

func (s *Server) acceptLoop(ln net.Listener) {
	defer s.wg.Done()

	for {
		conn, err := ln.Accept()
		if err != nil {
			if s.isClosed() || errors.Is(err, net.ErrClosed) {
				return
			}
			s.logger.Warn().Err(err).Msg("accept failed")
			continue
		}

		if s.limiter != nil && !s.limiter.Allow() {
			s.reject(conn, "server overloaded")
			continue
		}
		if !s.gate.TryAcquire() {
			s.reject(conn, "too many connections")
			continue
		}

		submitted := s.pool.Submit(func() { s.handleConn(conn) })
		if !submitted {
			s.gate.Release()
			s.reject(conn, "server shutting down")
		}
	}
}

// reject answers 503 directly from the accept loop, without consuming a
// worker, and closes the socket.
func (s *Server) reject(conn net.Conn, msg string) {
	if s.metrics != nil {
		s.metrics.ConnRejected()
	}
	s.logger.Warn().Str("remote", conn.RemoteAddr().String()).Str("reason", msg).
		Msg("connection rejected")
	resp := JSON(503, false, msg, nil)
	_ = resp.Write(conn, s.cfg.WriteTimeout)
	_ = conn.Close()
}

// handleConn frames, routes, and answers a single connection on a worker.
func (s *Server) handleConn(conn net.Conn) {
	defer s.gate.Release()
	defer conn.Close()

	if s.metrics != nil {
		s.metrics.ConnAccepted()
	}

	logger := s.logger.With().
		Str("request_id", uuid.NewString()).
		Str("remote", conn.RemoteAddr().String()).
		Logger()

	if tc, ok := conn.(*net.TCPConn); ok {
		_ = tc.SetKeepAlive(true)
	}

	resp := s.serve(conn, logger)
	if resp == nil {
		// Framing timed out or the peer went away; nothing to answer.
		return
	}

	if s.metrics != nil {
		s.metrics.RequestServed(resp.Status)
	}
	if err := resp.Write(conn, s.cfg.WriteTimeout); err != nil {
		logger.Warn().Err(err).Msg("response write failed")
	}
	if tc, ok := conn.(*net.TCPConn); ok {
		_ = tc.CloseWrite()
	}
}

// serve frames and dispatches, converting failures into responses. A nil
// return means the connection should just be dropped.
func (s *Server) serve(conn net.Conn, logger zerolog.Logger) (resp *Response) {
	defer func() {
		if r := recover(); r != nil {
			logger.Error().Interface("panic", r).Msg("handler panicked")
			resp = JSON(500, false, fmt.Sprintf("internal error: %v", r), nil)
		}
	}()

	req, err := s.framer.ReadRequest(conn)
	if err != nil {
		var nerr net.Error
		if errors.As(err, &nerr) && nerr.Timeout() {
			logger.Warn().Err(err).Msg("request read timed out")
			return nil
		}
		logger.Warn().Err(err).Msg("request framing failed")
		switch {
		case errors.Is(err, ErrHeaderTooLarge), errors.Is(err, ErrBodyTooLarge), errors.Is(err, ErrMalformed):
			return JSON(400, false, err.Error(), nil)
		default:
			return JSON(500, false, err.Error(), nil)
		}
	}

	start := time.Now()
	resp = s.router.Dispatch(req)
	logger.Info().
		Str("method", req.Method).
		Str("path", req.Path).
		Int("status", resp.Status).
		Dur("elapsed", time.Since(start)).
		Msg("request served")
	return resp
}
