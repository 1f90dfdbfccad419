// services/lobby_service.go
package services

import (
	"context"
	"errors"
	"sort"

	"github.com/wfunc/boardserver/matchmaking"
	"github.com/wfunc/boardserver/models"
	"github.com/wfunc/boardserver/persistence"
	"github.com/wfunc/boardserver/registry"
	"github.com/wfunc/boardserver/room"
)

var ErrSessionNotFound = errors.New("session not found")

// LobbyService answers read-only questions about the lobby for the admin
// surface. Everything it returns is a copy.
type LobbyService struct {
	clients *registry.Registry
	queue   *matchmaking.Queue
	rooms   *room.Manager
	archive *persistence.Archiver
}

func NewLobbyService(clients *registry.Registry, queue *matchmaking.Queue, rooms *room.Manager, archive *persistence.Archiver) *LobbyService {
	return &LobbyService{clients: clients, queue: queue, rooms: rooms, archive: archive}
}

// Stats 获取大厅统计
func (s *LobbyService) Stats() models.LobbyStats {
	return models.LobbyStats{
		Online:         s.clients.Count(),
		Waiting:        s.queue.Len(),
		ActiveSessions: s.rooms.Count(),
	}
}

// Connections lists live connections, oldest first. A non-empty userID
// keeps only that user's connections.
func (s *LobbyService) Connections(userID string) []models.ConnectionInfo {
	clients := s.clients.List()
	if userID != "" {
		clients = s.clients.GetByUserID(userID)
	}

	infos := make([]models.ConnectionInfo, 0, len(clients))
	for _, c := range clients {
		sessionID, _ := s.rooms.SessionOf(c.ID)
		infos = append(infos, models.ConnectionInfo{
			ID:         c.ID,
			UserID:     c.UserID,
			SessionID:  sessionID,
			CreatedAt:  c.CreatedAt,
			LastActive: c.LastActive(),
		})
	}
	sort.Slice(infos, func(i, j int) bool {
		if !infos[i].CreatedAt.Equal(infos[j].CreatedAt) {
			return infos[i].CreatedAt.Before(infos[j].CreatedAt)
		}
		return infos[i].ID < infos[j].ID
	})
	return infos
}

// Session returns a live session by id.
func (s *LobbyService) Session(id string) (room.Snapshot, error) {
	snap, ok := s.rooms.Get(id)
	if !ok {
		return room.Snapshot{}, ErrSessionNotFound
	}
	return snap, nil
}

// Sessions lists live sessions.
func (s *LobbyService) Sessions() []room.Snapshot {
	return s.rooms.List()
}

// Record 获取已归档的对局
func (s *LobbyService) Record(ctx context.Context, id string) (*models.SessionRecord, error) {
	if s.archive == nil {
		return nil, persistence.ErrLoadUnsupported
	}
	return s.archive.Load(ctx, id)
}
