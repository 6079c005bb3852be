package types

type Player struct {
	ID     string `json:"id"`
	Name   string `json:"name"`
	IsHost bool   `json:"isHost"`
}

type Settings struct {
	RoundTime   int      `json:"roundTime"`
	TotalRounds int      `json:"totalRounds"`
	Categories  []string `json:"categories"`
}

// Room is the public shape of a room; the password never leaves the server.
type Room struct {
	ID           string   `json:"id"`
	HostID       string   `json:"hostId"`
	IsPrivate    bool     `json:"isPrivate"`
	Players      []Player `json:"players"`
	Settings     Settings `json:"settings"`
	GameState    string   `json:"gameState"`
	CurrentRound int      `json:"currentRound"`
}

// RoomEntered is the payload of roomCreated and roomJoined.
type RoomEntered struct {
	Room     Room   `json:"room"`
	PlayerID string `json:"playerId"`
}

type LobbyUpdate struct {
	Players   []Player `json:"players"`
	Settings  Settings `json:"settings"`
	IsPrivate bool     `json:"isPrivate"`
}

type AnswerScore struct {
	Answer string `json:"answer"`
	Score  int    `json:"score"`
}

type RoundResult struct {
	PlayerID string                 `json:"playerId"`
	Answers  map[string]AnswerScore `json:"answers"`
}

type GameUpdate struct {
	CurrentRound  int            `json:"currentRound"`
	TotalRounds   int            `json:"totalRounds"`
	TimeLeft      int            `json:"timeLeft"`
	CurrentLetter string         `json:"currentLetter"`
	Categories    []string       `json:"categories"`
	Players       []Player       `json:"players"`
	Scores        map[string]int `json:"scores"`
	RoundResults  []RoundResult  `json:"roundResults"`
	GameState     string         `json:"gameState"`
}

type TimeWarning struct {
	TimeLeft int `json:"timeLeft"`
}

type RoundStart struct {
	Round  int    `json:"round"`
	Letter string `json:"letter"`
}

type RoundEnd struct {
	RoundResults []RoundResult `json:"roundResults"`
}

type GameEnd struct {
	Scores  map[string]int `json:"scores"`
	Players []Player       `json:"players"`
}

// RoomSummary is one row of the public room browser.
type RoomSummary struct {
	ID         string `json:"id"`
	HostName   string `json:"hostName"`
	Players    int    `json:"players"`
	MaxPlayers int    `json:"maxPlayers"`
}
