package network

import "encoding/json"

// Inbound events.
const (
	EventHeartbeat           = "heartbeat"
	EventJoinQueue           = "joinQueue"
	EventLeaveQueue          = "leaveQueue"
	EventJoinFiveInARowQueue = "joinFiveInARowQueue"
	EventMakeFiveInARowMove  = "makeFiveInARowMove"
	EventLeaveFiveInARowGame = "leaveFiveInARowGame"
	EventGetFiveInARowState  = "getFiveInARowState"
	EventMoveBall            = "moveBall"
)

// Outbound events.
const (
	EventQueueStatus          = "queueStatus"
	EventMatchFound           = "matchFound"
	EventMatchFound5          = "matchFound5"
	EventMoveMade             = "moveMade"
	EventMoveResult           = "moveResult"
	EventOpponentDisconnected = "opponentDisconnected"
	EventGameState            = "gameState"
	EventGameLeft             = "gameLeft"
)

// Envelope is the JSON frame exchanged in both directions.
type Envelope struct {
	Event string          `json:"event"`
	Data  json.RawMessage `json:"data,omitempty"`
}

type JoinQueueRequest struct {
	GameType string `json:"gameType"`
}

type QueueStatus struct {
	Status   string `json:"status"`
	Message  string `json:"message"`
	Position int    `json:"position,omitempty"`
}

type MatchFound struct {
	GameID   string `json:"gameId"`
	Opponent string `json:"opponent"`
	GameType string `json:"gameType"`
}

type MatchFound5 struct {
	GameID       string `json:"gameId"`
	PlayerNumber int    `json:"playerNumber"`
	Opponent     string `json:"opponent"`
	GameState    any    `json:"gameState"`
}

type MoveMade struct {
	Row       int `json:"row"`
	Col       int `json:"col"`
	Player    int `json:"player"`
	GameState any `json:"gameState"`
}

type MoveResult struct {
	Success bool   `json:"success"`
	Message string `json:"message,omitempty"`
}

type Notice struct {
	Message string `json:"message"`
}

type GameState struct {
	GameState any    `json:"gameState,omitempty"`
	Error     string `json:"error,omitempty"`
}
