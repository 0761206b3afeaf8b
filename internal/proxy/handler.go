package proxy

import (
	"context"
	"log/slog"
	"net"
	"time"

	"github.com/angeloszaimis/pathproxy/internal/httphead"
	"github.com/angeloszaimis/pathproxy/internal/metrics"
	"github.com/angeloszaimis/pathproxy/internal/rewrite"
	"github.com/angeloszaimis/pathproxy/internal/routetable"
)

// badGatewayResponse is written verbatim to the client when the backend
// dial fails. The bytes are part of the proxy's wire contract.
var badGatewayResponse = []byte("HTTP/1.1 502 Bad Gateway\r\nContent-Length: 15\r\n\r\nBad Gateway\r\n")

// Handler proxies a single client connection: it reads the request head,
// resolves the backend from the route table, optionally rewrites the
// request-line path, and relays bytes in both directions until either side
// closes.
type Handler struct {
	logger         *slog.Logger
	table          *routetable.Table
	rewritePaths   bool
	maxHeaderBytes int
	headerTimeout  time.Duration
	dialTimeout    time.Duration
	collector      *metrics.Collector
}

func NewHandler(
	logger *slog.Logger,
	table *routetable.Table,
	rewritePaths bool,
	maxHeaderBytes int,
	headerTimeout time.Duration,
	dialTimeout time.Duration,
	collector *metrics.Collector,
) *Handler {
	return &Handler{
		logger:         logger,
		table:          table,
		rewritePaths:   rewritePaths,
		maxHeaderBytes: maxHeaderBytes,
		headerTimeout:  headerTimeout,
		dialTimeout:    dialTimeout,
		collector:      collector,
	}
}

// Handle owns client for its whole lifetime and closes it before returning.
// Every failure is terminal for this connection only; nothing propagates to
// the accept loop.
func (h *Handler) Handle(ctx context.Context, client net.Conn) {
	defer client.Close()

	clientAddr := client.RemoteAddr().String()
	h.emitEvent(metrics.Event{Type: metrics.EventConnectionAccepted, Timestamp: time.Now()})

	if h.headerTimeout > 0 {
		if err := client.SetReadDeadline(time.Now().Add(h.headerTimeout)); err != nil {
			h.logger.Warn("Failed to set read deadline",
				slog.String("client", clientAddr),
				slog.Any("err", err))
			return
		}
	}

	path, raw, err := httphead.Read(client, h.maxHeaderBytes)
	if err != nil {
		// The client disconnected or sent garbage before completing its
		// headers; there is nothing useful to answer.
		h.logger.Warn("Failed to read request from client",
			slog.String("client", clientAddr),
			slog.Any("err", err))
		return
	}

	if h.headerTimeout > 0 {
		if err := client.SetReadDeadline(time.Time{}); err != nil {
			h.logger.Warn("Failed to clear read deadline",
				slog.String("client", clientAddr),
				slog.Any("err", err))
			return
		}
	}

	backendAddr, matchedPrefix := h.table.Resolve(path)
	h.emitEvent(metrics.Event{
		Type:      metrics.EventRequestRouted,
		Timestamp: time.Now(),
		Backend:   backendAddr,
	})

	forward := raw
	if h.rewritePaths && matchedPrefix != "" {
		forward = rewrite.StripPrefix(raw, matchedPrefix)
		h.emitEvent(metrics.Event{
			Type:      metrics.EventPathRewritten,
			Timestamp: time.Now(),
			Backend:   backendAddr,
		})
		h.logger.Info("Proxying request",
			slog.String("client", clientAddr),
			slog.String("path", path),
			slog.String("backend", backendAddr),
			slog.String("rewritten_path", rewrite.NewPath(path, matchedPrefix)))
	} else {
		h.logger.Info("Proxying request",
			slog.String("client", clientAddr),
			slog.String("path", path),
			slog.String("backend", backendAddr))
	}

	dialer := net.Dialer{Timeout: h.dialTimeout}
	backend, err := dialer.DialContext(ctx, "tcp", backendAddr)
	if err != nil {
		h.logger.Error("Failed to connect to backend",
			slog.String("client", clientAddr),
			slog.String("backend", backendAddr),
			slog.Any("err", err))
		h.emitEvent(metrics.Event{
			Type:      metrics.EventBackendUnreachable,
			Timestamp: time.Now(),
			Backend:   backendAddr,
		})
		// Best effort: the client may already be gone.
		_, _ = client.Write(badGatewayResponse)
		return
	}
	defer backend.Close()

	if _, err := backend.Write(forward); err != nil {
		// Headers may be partially delivered; no response can be synthesized.
		h.logger.Error("Failed to forward request to backend",
			slog.String("client", clientAddr),
			slog.String("backend", backendAddr),
			slog.Any("err", err))
		return
	}

	start := time.Now()
	toBackend, toClient := h.relay(client, backend)
	h.emitEvent(metrics.Event{
		Type:           metrics.EventRelayCompleted,
		Timestamp:      time.Now(),
		Backend:        backendAddr,
		Duration:       time.Since(start),
		BytesToBackend: int64(len(forward)) + toBackend,
		BytesToClient:  toClient,
	})
}

func (h *Handler) emitEvent(event metrics.Event) {
	if h.collector == nil {
		return
	}

	select {
	case h.collector.EventChannel() <- event:
	default:
	}
}
