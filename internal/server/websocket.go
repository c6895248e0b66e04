package server

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"

	"github.com/Bilal0876/live-transcription-service/internal/config"
	"github.com/Bilal0876/live-transcription-service/internal/hub"
	"github.com/Bilal0876/live-transcription-service/internal/metrics"
	"github.com/Bilal0876/live-transcription-service/internal/protocol"
	"github.com/Bilal0876/live-transcription-service/internal/session"
)

const (
	writeTimeout = 10 * time.Second

	// directBuffer holds replies (pong, files_ready) addressed to one
	// client, separate from the broadcast channel.
	directBuffer = 16
)

// WSServer accepts WebSocket clients, subscribes each one to the
// broadcast hub and answers its control messages.
type WSServer struct {
	logger   *slog.Logger
	metrics  *metrics.Metrics
	config   config.ServerConfig
	hub      *hub.Hub
	recorder *session.Recorder

	upgrader   websocket.Upgrader
	httpServer *http.Server
	listener   net.Listener

	wg sync.WaitGroup

	mu          sync.RWMutex
	clients     map[string]*websocket.Conn
	connections uint64
}

// Stats represents WebSocket server statistics for monitoring
type Stats struct {
	ActiveClients    int    `json:"active_clients"`
	TotalConnections uint64 `json:"total_connections"`
}

// NewWSServer creates a new WebSocket server
func NewWSServer(cfg config.ServerConfig, h *hub.Hub, recorder *session.Recorder,
	m *metrics.Metrics, logger *slog.Logger) *WSServer {

	s := &WSServer{
		logger:   logger,
		metrics:  m,
		config:   cfg,
		hub:      h,
		recorder: recorder,
		clients:  make(map[string]*websocket.Conn),
		upgrader: websocket.Upgrader{
			ReadBufferSize:  4096,
			WriteBufferSize: 4096,
			// Browser clients connect from arbitrary origins.
			CheckOrigin: func(r *http.Request) bool { return true },
		},
	}

	mux := http.NewServeMux()
	mux.HandleFunc("/", s.handleWebSocket)

	s.httpServer = &http.Server{
		Handler: mux,
	}

	return s
}

// Start begins accepting WebSocket connections. The bind error is
// returned synchronously; Serve runs in the background.
func (s *WSServer) Start() error {
	addr := fmt.Sprintf("%s:%d", s.config.BindAddress, s.config.Port)

	listener, err := net.Listen("tcp", addr)
	if err != nil {
		return fmt.Errorf("failed to listen on %s: %w", addr, err)
	}
	s.listener = listener

	s.logger.Info("WebSocket server started",
		slog.String("address", listener.Addr().String()),
	)

	s.wg.Add(1)
	go func() {
		defer s.wg.Done()
		if err := s.httpServer.Serve(listener); err != nil && !errors.Is(err, http.ErrServerClosed) {
			s.logger.Error("WebSocket server error", slog.String("error", err.Error()))
		}
	}()

	return nil
}

// Addr returns the bound listen address. Useful when the configured port
// is 0.
func (s *WSServer) Addr() string {
	if s.listener == nil {
		return ""
	}
	return s.listener.Addr().String()
}

// Stop gracefully stops the server, closing all client connections.
func (s *WSServer) Stop(ctx context.Context) error {
	s.logger.Info("Stopping WebSocket server...")

	// Shutdown stops the listener but does not touch hijacked
	// connections; close the clients explicitly.
	err := s.httpServer.Shutdown(ctx)

	s.mu.Lock()
	for _, conn := range s.clients {
		conn.Close()
	}
	s.mu.Unlock()

	s.wg.Wait()
	return err
}

// handleWebSocket upgrades the connection and runs the client session
// until the peer disconnects.
func (s *WSServer) handleWebSocket(w http.ResponseWriter, r *http.Request) {
	conn, err := s.upgrader.Upgrade(w, r, nil)
	if err != nil {
		s.logger.Warn("WebSocket upgrade failed",
			slog.String("remote_addr", r.RemoteAddr),
			slog.String("error", err.Error()),
		)
		return
	}

	clientID := uuid.NewString()

	s.mu.Lock()
	s.clients[clientID] = conn
	s.connections++
	s.mu.Unlock()

	s.metrics.RecordClientConnected()

	s.logger.Info("Client connected",
		slog.String("client_id", clientID),
		slog.String("remote_addr", r.RemoteAddr),
	)

	s.runClient(clientID, conn)
}

// runClient owns one client session: it subscribes to the hub, starts
// the write pump and runs the read loop in the handler goroutine.
func (s *WSServer) runClient(clientID string, conn *websocket.Conn) {
	subID, broadcast := s.hub.Subscribe()
	s.metrics.SetSubscribers(s.hub.Count())

	direct := make(chan []byte, directBuffer)
	done := make(chan struct{})

	defer func() {
		s.hub.Unsubscribe(subID)
		s.metrics.SetSubscribers(s.hub.Count())

		close(done)
		conn.Close()

		s.mu.Lock()
		delete(s.clients, clientID)
		s.mu.Unlock()

		s.metrics.RecordClientDisconnected()
		s.logger.Info("Client disconnected", slog.String("client_id", clientID))
	}()

	s.wg.Add(1)
	go s.writePump(clientID, conn, broadcast, direct, done)

	if !s.sendDirect(direct, protocol.NewStatus("Connected to live transcription service")) {
		return
	}

	for {
		_, data, err := conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err,
				websocket.CloseNormalClosure, websocket.CloseGoingAway) {
				s.logger.Warn("Client read error",
					slog.String("client_id", clientID),
					slog.String("error", err.Error()),
				)
			}
			return
		}

		s.metrics.RecordMessageReceived()
		s.dispatch(clientID, data, direct)
	}
}

// dispatch routes one client message. Malformed and unknown messages are
// dropped without closing the connection.
func (s *WSServer) dispatch(clientID string, data []byte, direct chan<- []byte) {
	msgType, err := protocol.ParseType(data)
	if err != nil {
		s.logger.Debug("Ignoring malformed client message",
			slog.String("client_id", clientID),
			slog.String("error", err.Error()),
		)
		return
	}

	switch msgType {
	case protocol.TypePing:
		s.sendDirect(direct, protocol.NewPong())

	case protocol.TypeDownloadFiles:
		s.handleDownload(clientID, direct)

	default:
		s.logger.Debug("Ignoring unknown message type",
			slog.String("client_id", clientID),
			slog.String("message_type", msgType),
		)
	}
}

// handleDownload exports the session audio and sends it inline to the
// requesting client only.
func (s *WSServer) handleDownload(clientID string, direct chan<- []byte) {
	startTime := time.Now()

	artifact, err := s.recorder.Export()
	if err != nil {
		if errors.Is(err, session.ErrNoAudio) {
			s.sendDirect(direct, protocol.NewFilesReadyEmpty("No audio recorded yet"))
			return
		}

		s.logger.Error("Audio export failed",
			slog.String("client_id", clientID),
			slog.String("error", err.Error()),
		)
		s.sendDirect(direct, protocol.NewFilesReadyEmpty("Audio export failed"))
		return
	}

	s.metrics.RecordExport(time.Since(startTime).Seconds(), len(artifact.WAV))

	s.logger.Info("Audio export requested",
		slog.String("client_id", clientID),
		slog.String("filename", artifact.Filename),
		slog.Int("wav_bytes", len(artifact.WAV)),
	)

	s.sendDirect(direct,
		protocol.NewFilesReady(artifact.Filename, artifact.WAV, "Files ready for download"))
}

// encodable is any outbound protocol message.
type encodable interface {
	Encode() ([]byte, error)
}

// sendDirect queues a reply for the write pump. Returns false when the
// client is too far behind to accept it.
func (s *WSServer) sendDirect(direct chan<- []byte, msg encodable) bool {
	data, err := msg.Encode()
	if err != nil {
		s.logger.Error("Failed to encode message", slog.String("error", err.Error()))
		return false
	}

	select {
	case direct <- data:
		return true
	default:
		return false
	}
}

// writePump is the single writer for one connection. It interleaves
// broadcast segments and direct replies; the gorilla connection allows
// only one concurrent writer.
func (s *WSServer) writePump(clientID string, conn *websocket.Conn,
	broadcast <-chan []byte, direct <-chan []byte, done <-chan struct{}) {

	defer s.wg.Done()

	write := func(data []byte) bool {
		conn.SetWriteDeadline(time.Now().Add(writeTimeout))
		if err := conn.WriteMessage(websocket.TextMessage, data); err != nil {
			s.logger.Debug("Client write failed",
				slog.String("client_id", clientID),
				slog.String("error", err.Error()),
			)
			return false
		}
		s.metrics.RecordMessageSent()
		return true
	}

	for {
		select {
		case data, ok := <-broadcast:
			// The hub closes the channel when the subscriber is
			// removed; the read loop handles the disconnect.
			if !ok {
				return
			}
			if !write(data) {
				return
			}
		case data := <-direct:
			if !write(data) {
				return
			}
		case <-done:
			return
		}
	}
}

// GetStats returns current server statistics
func (s *WSServer) GetStats() Stats {
	s.mu.RLock()
	defer s.mu.RUnlock()

	return Stats{
		ActiveClients:    len(s.clients),
		TotalConnections: s.connections,
	}
}
