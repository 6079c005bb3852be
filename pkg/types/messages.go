package types

// Client -> Server intents. Every intent is one JSON object with a "type" field:
//
//	createRoom     name, isPrivate, password?
//	joinRoom       roomId, name, password?
//	joinLobby      roomId, name?            (name reconnects an existing player)
//	startGame      roomId, settings?
//	joinGame       roomId
//	submitAnswers  roomId, answers {category: word}
//	nextRound      roomId
//	backToLobby    roomId
//	leaveRoom      roomId
//	kickPlayer     roomId, playerId
const (
	IntentCreateRoom    = "createRoom"
	IntentJoinRoom      = "joinRoom"
	IntentJoinLobby     = "joinLobby"
	IntentStartGame     = "startGame"
	IntentJoinGame      = "joinGame"
	IntentSubmitAnswers = "submitAnswers"
	IntentNextRound     = "nextRound"
	IntentBackToLobby   = "backToLobby"
	IntentLeaveRoom     = "leaveRoom"
	IntentKickPlayer    = "kickPlayer"
)

// Server -> Client snapshot types.
const (
	MsgRoomCreated  = "roomCreated"
	MsgRoomJoined   = "roomJoined"
	MsgLobbyUpdate  = "lobbyUpdate"
	MsgPlayerJoined = "playerJoined"
	MsgPlayerLeft   = "playerLeft"
	MsgGameStarting = "gameStarting"
	MsgGameUpdate   = "gameUpdate"
	MsgTimeWarning  = "timeWarning"
	MsgRoundStart   = "roundStart"
	MsgRoundEnd     = "roundEnd"
	MsgGameEnd      = "gameEnd"
	MsgError        = "error"
)

type ClientMessage struct {
	Type      string            `json:"type"`
	RoomID    string            `json:"roomId,omitempty"`
	Name      string            `json:"name,omitempty"`
	IsPrivate bool              `json:"isPrivate,omitempty"`
	Password  string            `json:"password,omitempty"`
	Settings  *SettingsPatch    `json:"settings,omitempty"`
	Answers   map[string]string `json:"answers,omitempty"`
	PlayerID  string            `json:"playerId,omitempty"`
}

// SettingsPatch overrides room settings at game start; absent fields keep
// their current value.
type SettingsPatch struct {
	RoundTime   *int     `json:"roundTime,omitempty"`
	TotalRounds *int     `json:"totalRounds,omitempty"`
	Categories  []string `json:"categories,omitempty"`
}

// ServerMessage is the envelope for everything the server pushes. Version is
// the room's snapshot counter; it only grows within one room.
type ServerMessage struct {
	Type    string `json:"type"`
	Version int    `json:"version,omitempty"`
	Data    any    `json:"data,omitempty"`
}

type Error struct {
	Message string `json:"message"`
	Code    string `json:"code,omitempty"`
}

// ErrorMessage builds an error envelope addressed to a single connection.
func ErrorMessage(code, message string) ServerMessage {
	return ServerMessage{Type: MsgError, Data: Error{Message: message, Code: code}}
}
