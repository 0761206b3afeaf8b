package tcpserver

import (
	"context"
	"errors"
	"log/slog"
	"net"
	"runtime/debug"

	validation "github.com/go-ozzo/ozzo-validation/v4"
	"github.com/go-ozzo/ozzo-validation/v4/is"
)

// Handler handles one accepted connection. Implementations own the
// connection and must close it before returning.
type Handler interface {
	Handle(ctx context.Context, conn net.Conn)
}

// Server accepts TCP connections and dispatches each one to its own
// goroutine, so a slow or faulty connection never blocks the accept loop.
type Server struct {
	listener net.Listener
	handler  Handler
	logger   *slog.Logger
}

// New validates the address and binds the listener immediately, so startup
// fails fast on an unusable address.
func New(addr string, handler Handler, logger *slog.Logger) (*Server, error) {
	if err := validateHost(addr); err != nil {
		return nil, err
	}

	listener, err := net.Listen("tcp", addr)
	if err != nil {
		return nil, err
	}

	return &Server{
		listener: listener,
		handler:  handler,
		logger:   logger,
	}, nil
}

// Start accepts connections until the listener is closed via Shutdown.
// Returns nil on clean shutdown.
func (s *Server) Start(ctx context.Context) error {
	s.logger.Info("Accepting connections",
		slog.String("address", s.listener.Addr().String()))

	for {
		conn, err := s.listener.Accept()
		if err != nil {
			if errors.Is(err, net.ErrClosed) {
				return nil
			}
			return err
		}

		go s.serve(ctx, conn)
	}
}

// Shutdown closes the listener; in-flight connections finish on their own.
func (s *Server) Shutdown() error {
	return s.listener.Close()
}

// Addr returns the bound listen address.
func (s *Server) Addr() net.Addr {
	return s.listener.Addr()
}

func (s *Server) serve(ctx context.Context, conn net.Conn) {
	defer func() {
		if r := recover(); r != nil {
			s.logger.Error("Connection handler panicked",
				slog.Any("panic", r),
				slog.String("stack", string(debug.Stack())))
			conn.Close()
		}
	}()

	s.handler.Handle(ctx, conn)
}

func validateHost(value interface{}) error {
	addr, ok := value.(string)
	if !ok {
		return validation.NewError("validation_invalid_type", "must be a string")
	}

	host, port, err := net.SplitHostPort(addr)

	if err != nil {
		return validation.NewError("validation_invalid_hostport", "must be in host:port format")
	}

	if port == "" {
		return validation.NewError("validation_invalid_port", "port cant be empty")
	}

	if host != "" {
		if err := is.Host.Validate(host); err != nil {
			return validation.NewError("validation_invalid_host", "invalid host")
		}
	}

	return err
}
