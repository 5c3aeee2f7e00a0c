package websocket

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"

	"github.com/litergames/litergames-backend/internal/entity"
)

type coordinator interface {
	Announce(connectionID string, user *entity.User)
	CreateRoom(connectionID string) error
	JoinRoom(connectionID, code string) error
	LeaveRoom(connectionID string) error
	MakeTurn(connectionID, code string, cell int) error
	ResetGame(connectionID, code string) error
	SendChat(connectionID, text string) error
	RelaySignal(connectionID, targetConnectionID string, signal json.RawMessage)
	Disconnect(connectionID string)
}

type Server struct {
	logger  *slog.Logger
	hub     *Hub
	session coordinator

	upgrader websocket.Upgrader

	handlers map[string]func(connectionID string, payload json.RawMessage) error
}

func New(logger *slog.Logger, hub *Hub, session coordinator) *Server {
	server := &Server{
		logger:  logger,
		hub:     hub,
		session: session,

		upgrader: websocket.Upgrader{
			CheckOrigin: func(*http.Request) bool { return true },
		},

		handlers: make(map[string]func(string, json.RawMessage) error),
	}

	server.handlers["user:join"] = server.handleUserJoin
	server.handlers["room:create"] = server.handleRoomCreate
	server.handlers["room:join"] = server.handleRoomJoin
	server.handlers["room:leave"] = server.handleRoomLeave
	server.handlers["game:move"] = server.handleGameMove
	server.handlers["game:reset"] = server.handleGameReset
	server.handlers["chat:send"] = server.handleChatSend
	server.handlers["voice:signal"] = server.handleVoiceSignal

	return server
}

// Start - starts the WebSocket server and shuts it down when the context is
// canceled.
func (that *Server) Start(ctx context.Context, port string) error {
	srv := &http.Server{
		Addr:        ":" + port,
		Handler:     that.Handler(),
		IdleTimeout: 30 * time.Second,
	}

	go func() {
		<-ctx.Done()

		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()

		_ = srv.Shutdown(shutdownCtx)
	}()

	if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return fmt.Errorf("failed to start server: %w", err)
	}

	return nil
}

// Handler exposes the /ws endpoint for tests.
func (that *Server) Handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("/ws", that.serveWS)
	return mux
}

// serveWS upgrades the connection, assigns it a fresh connection ID and
// pumps inbound messages until the client goes away.
func (that *Server) serveWS(writer http.ResponseWriter, req *http.Request) {
	log := that.logger.With("method", "serveWS")

	sock, err := that.upgrader.Upgrade(writer, req, nil)
	if err != nil {
		log.Error("failed to upgrade connection", "error", err)
		return
	}

	conn := &connection{
		id:   uuid.NewString(),
		sock: sock,
	}

	that.hub.add(conn)
	log.Info("WebSocket connection established", "connectionID", conn.id)

	defer func() {
		that.hub.remove(conn.id)
		that.session.Disconnect(conn.id)
		_ = sock.Close()
	}()

	that.readLoop(conn)
}

func (that *Server) readLoop(conn *connection) {
	log := that.logger.With("method", "readLoop", "connectionID", conn.id)

	for {
		_, raw, err := conn.sock.ReadMessage()
		if err != nil {
			log.Info("connection closed", "error", err)
			return
		}

		var message Message
		if err = json.Unmarshal(raw, &message); err != nil {
			log.Error("failed to unmarshal message", "error", err)
			continue
		}

		handler, ok := that.handlers[message.Action]
		if !ok {
			log.Error("unknown action", "action", message.Action)
			continue
		}

		if err = handler(conn.id, message.Payload); err != nil {
			log.Error("error processing message", "action", message.Action, "error", err)
		}
	}
}
