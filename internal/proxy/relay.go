package proxy

import (
	"errors"
	"io"
	"log/slog"
	"net"
	"sync"
	"syscall"
)

// relay copies bytes between client and backend in both directions until
// both streams are exhausted, returning the byte count moved each way.
// Finishing one direction half-closes the peer's write side so the other
// end sees EOF.
func (h *Handler) relay(client, backend net.Conn) (toBackend, toClient int64) {
	var wg sync.WaitGroup
	wg.Add(1)

	go func() {
		defer wg.Done()
		n, err := io.Copy(backend, client)
		toBackend = n
		closeWrite(backend)
		h.logRelayError("client_to_backend", err)
	}()

	n, err := io.Copy(client, backend)
	toClient = n
	closeWrite(client)
	h.logRelayError("backend_to_client", err)

	wg.Wait()
	return toBackend, toClient
}

// logRelayError logs mid-stream failures, except the ones that are just the
// normal ways a TCP peer goes away.
func (h *Handler) logRelayError(direction string, err error) {
	if err == nil || isBenignRelayError(err) {
		return
	}

	h.logger.Warn("Relay error",
		slog.String("direction", direction),
		slog.Any("err", err))
}

func isBenignRelayError(err error) bool {
	return errors.Is(err, io.EOF) ||
		errors.Is(err, net.ErrClosed) ||
		errors.Is(err, syscall.ECONNRESET) ||
		errors.Is(err, syscall.EPIPE)
}

// closeWrite half-closes the write side when the transport supports it
// (TCP does), falling back to a full close otherwise.
func closeWrite(conn net.Conn) {
	type writeCloser interface {
		CloseWrite() error
	}

	if wc, ok := conn.(writeCloser); ok {
		_ = wc.CloseWrite()
		return
	}
	_ = conn.Close()
}
