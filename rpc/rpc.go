package rpc

import (
	"context"
	"encoding/json"
	"errors"
	"net"
	"net/rpc"
	"time"

	"github.com/wfunc/boardserver/logger"
	"github.com/wfunc/boardserver/models"
	"github.com/wfunc/boardserver/services"
)

// Server manages the RPC listener.
type Server struct {
	listener net.Listener
	address  string
	rpc      *rpc.Server
}

// NewServer listens on addr and registers the lobby service under "Lobby".
func NewServer(addr string, lobby *services.LobbyService) (*Server, error) {
	srv := rpc.NewServer()
	if err := srv.RegisterName("Lobby", NewLobbyService(lobby)); err != nil {
		return nil, err
	}

	listener, err := net.Listen("tcp", addr)
	if err != nil {
		return nil, err
	}
	return &Server{
		listener: listener,
		address:  listener.Addr().String(),
		rpc:      srv,
	}, nil
}

// Addr is the bound address, useful when listening on port 0.
func (s *Server) Addr() string {
	return s.address
}

// Start begins listening for RPC requests.
func (s *Server) Start() {
	logger.Log.Infof("RPC server listening on %s", s.address)
	for {
		conn, err := s.listener.Accept()
		if err != nil {
			if errors.Is(err, net.ErrClosed) {
				logger.Log.Info("RPC server listener closed.")
				return
			}
			logger.Log.Errorf("RPC server accept error: %v", err)
			continue
		}
		go s.rpc.ServeConn(conn)
	}
}

// Stop closes the RPC listener.
func (s *Server) Stop() {
	if s.listener != nil {
		logger.Log.Info("Stopping RPC server.")
		s.listener.Close()
	}
}

// LobbyService is the struct that exposes RPC methods.
// Methods follow the net/rpc signature: exported method, exported arguments,
// second argument is a pointer, return type is error.
type LobbyService struct {
	lobby *services.LobbyService
}

func NewLobbyService(lobby *services.LobbyService) *LobbyService {
	return &LobbyService{lobby: lobby}
}

// Args names a session, or a user for Connections. Stats and List ignore it.
type Args struct {
	ID string
}

// SessionReply carries the game state as JSON so gob never sees the
// engine-specific state types.
type SessionReply struct {
	ID        string
	GameType  string
	Players   []string
	Phase     string
	State     []byte
	CreatedAt time.Time
}

type ListReply struct {
	Sessions []SessionReply
}

type ConnectionsReply struct {
	Connections []models.ConnectionInfo
}

type RecordReply struct {
	Record models.SessionRecord
}

func (l *LobbyService) Stats(_ *Args, reply *models.LobbyStats) error {
	*reply = l.lobby.Stats()
	return nil
}

func (l *LobbyService) Session(args *Args, reply *SessionReply) error {
	snap, err := l.lobby.Session(args.ID)
	if err != nil {
		return err
	}
	state, err := json.Marshal(snap.State)
	if err != nil {
		return err
	}
	*reply = SessionReply{
		ID:        snap.RoomID,
		GameType:  string(snap.GameType),
		Players:   snap.Players,
		Phase:     snap.Phase,
		State:     state,
		CreatedAt: snap.CreatedAt,
	}
	return nil
}

func (l *LobbyService) List(_ *Args, reply *ListReply) error {
	for _, snap := range l.lobby.Sessions() {
		reply.Sessions = append(reply.Sessions, SessionReply{
			ID:        snap.RoomID,
			GameType:  string(snap.GameType),
			Players:   snap.Players,
			Phase:     snap.Phase,
			CreatedAt: snap.CreatedAt,
		})
	}
	return nil
}

func (l *LobbyService) Connections(args *Args, reply *ConnectionsReply) error {
	reply.Connections = l.lobby.Connections(args.ID)
	return nil
}

func (l *LobbyService) Record(args *Args, reply *RecordReply) error {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	record, err := l.lobby.Record(ctx, args.ID)
	if err != nil {
		return err
	}
	reply.Record = *record
	return nil
}
