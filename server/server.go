package server

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"

	"github.com/wfunc/boardserver/config"
	"github.com/wfunc/boardserver/logger"
	"github.com/wfunc/boardserver/monitor"
	"github.com/wfunc/boardserver/network"
	"github.com/wfunc/boardserver/registry"
)

type GameServer struct {
	cfg        config.ServerConfig
	upgrader   websocket.Upgrader
	dispatcher *Dispatcher
	httpServer *http.Server
}

func NewGameServer(cfg config.ServerConfig, dispatcher *Dispatcher, mon *monitor.Monitor) *GameServer {
	s := &GameServer{
		cfg:        cfg,
		dispatcher: dispatcher,
		upgrader: websocket.Upgrader{
			CheckOrigin: func(r *http.Request) bool {
				return true // 允许所有跨域请求
			},
		},
	}

	mux := http.NewServeMux()
	mux.HandleFunc("/ws", s.handleWebSocket)
	mon.Register(mux)

	s.httpServer = &http.Server{
		Addr:              cfg.HTTPAddress,
		Handler:           mux,
		ReadHeaderTimeout: 10 * time.Second,
	}
	return s
}

// Handler exposes the routes, mainly for httptest.
func (s *GameServer) Handler() http.Handler {
	return s.httpServer.Handler
}

func (s *GameServer) Start() error {
	logger.Log.Infof("Game server listening on %s", s.cfg.HTTPAddress)
	if err := s.httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

func (s *GameServer) Shutdown(ctx context.Context) error {
	return s.httpServer.Shutdown(ctx)
}

// identity labels a connection. It is never used for authorization.
func identity(r *http.Request) string {
	if user := r.URL.Query().Get("user"); user != "" {
		return user
	}
	if user := r.Header.Get("X-User-ID"); user != "" {
		return user
	}
	return "anon-" + uuid.New().String()[:8]
}

func (s *GameServer) handleWebSocket(w http.ResponseWriter, r *http.Request) {
	conn, err := s.upgrader.Upgrade(w, r, nil)
	if err != nil {
		logger.Log.Infof("Failed to upgrade connection: %v", err)
		return
	}
	if s.cfg.ReadLimit > 0 {
		conn.SetReadLimit(s.cfg.ReadLimit)
	}
	s.handleConnection(network.NewWSConnection(conn), identity(r))
}

func (s *GameServer) handleConnection(wsConn network.Connection, userID string) {
	if s.cfg.Heartbeat > 0 {
		wsConn.SetHeartbeat(s.cfg.Heartbeat)
	}
	client := registry.NewClient(uuid.New().String(), userID, wsConn)
	if !s.dispatcher.Connect(client) {
		wsConn.Close()
		return
	}

	logger.Log.Infof("New connection from %s, client ID: %s, user: %s", wsConn.RemoteAddr(), client.ID, userID)

	defer func() {
		logger.Log.Infof("Connection closed from %s, client ID: %s", wsConn.RemoteAddr(), client.ID)
		s.dispatcher.Disconnect(client.ID)
		wsConn.Close()
	}()

	for {
		packet, err := wsConn.ReadPacket()
		if errors.Is(err, network.ErrMalformedPacket) {
			logger.Log.Debugf("Malformed frame from %s", client.ID)
			continue
		}
		if err != nil {
			return
		}
		if err := s.dispatcher.Submit(client.ID, packet); err != nil {
			return
		}
	}
}
