package engine

import (
	"maps"
	"slices"
	"strings"
)

type GameState string

const (
	StateLobby       GameState = "lobby"
	StateActiveRound GameState = "playing"
	StateScoring     GameState = "scoring"
	StateFinished    GameState = "finished"
)

// WarningThreshold is the remaining time at which every tick also warns.
const WarningThreshold = 10

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

// SettingsPatch carries the fields a host may override at game start.
type SettingsPatch struct {
	RoundTime   *int
	TotalRounds *int
	Categories  []string
}

type AnswerScore struct {
	Answer string `json:"answer"`
	Score  int    `json:"score"`
}

type PlayerRoundResult struct {
	PlayerID string                 `json:"playerId"`
	Answers  map[string]AnswerScore `json:"answers"`
}

// Total sums the category scores of one round.
func (r PlayerRoundResult) Total() int {
	total := 0
	for _, a := range r.Answers {
		total += a.Score
	}
	return total
}

// Dictionary is the read-only wordlist lookup.
type Dictionary interface {
	Contains(category, normalizedWord string) bool
}

type Rules struct {
	MaxPlayers      int
	RequireWordlist bool
	Words           Dictionary
	Letters         LetterDrawer
}

// Room is the authoritative state of one game room. It is not safe for
// concurrent use; the owning actor serializes every Apply.
type Room struct {
	ID            string
	HostID        string
	IsPrivate     bool
	Players       []Player
	Settings      Settings
	State         GameState
	CurrentRound  int
	TimeLeft      int
	CurrentLetter string
	Answers       map[string]map[string]string
	Scores        map[string]int
	RoundResults  []PlayerRoundResult
	Submitted     map[string]bool
	Rules         Rules
}

type CommandType string

const (
	CmdJoin          CommandType = "Join"
	CmdLeave         CommandType = "Leave"
	CmdKick          CommandType = "Kick"
	CmdReconnect     CommandType = "Reconnect"
	CmdStartGame     CommandType = "StartGame"
	CmdSubmitAnswers CommandType = "SubmitAnswers"
	CmdEndRound      CommandType = "EndRound"
	CmdNextRound     CommandType = "NextRound"
	CmdBackToLobby   CommandType = "BackToLobby"
	CmdTick          CommandType = "Tick"
)

/*
	CmdJoin          -> EvtPlayerJoined
	CmdLeave         -> EvtPlayerLeft [-> EvtHostChanged] [-> EvtRoomEmptied] [-> EvtRoundEnded ...]
	CmdKick          -> EvtPlayerKicked -> (as CmdLeave)
	CmdReconnect     -> EvtPlayerReconnected
	CmdStartGame     -> EvtGameStarted -> EvtRoundStarted
	CmdSubmitAnswers -> EvtAnswersSubmitted (AllSubmitted tells the caller to send CmdEndRound)
	CmdTick          -> EvtTimerTicked [-> EvtTimeWarning] [-> EvtTimerExpired, caller sends CmdEndRound]
	CmdEndRound      -> EvtRoundEnded [-> EvtGameCompleted]
	CmdNextRound     -> EvtRoundStarted
	CmdBackToLobby   -> EvtReturnedToLobby
*/

type Command struct {
	Type     CommandType
	PlayerID string
	Name     string
	TargetID string
	Settings *SettingsPatch
	Answers  map[string]string
}

type EventType string

const (
	EvtPlayerJoined      EventType = "PlayerJoined"
	EvtPlayerLeft        EventType = "PlayerLeft"
	EvtPlayerKicked      EventType = "PlayerKicked"
	EvtHostChanged       EventType = "HostChanged"
	EvtPlayerReconnected EventType = "PlayerReconnected"
	EvtRoomEmptied       EventType = "RoomEmptied"
	EvtGameStarted       EventType = "GameStarted"
	EvtRoundStarted      EventType = "RoundStarted"
	EvtAnswersSubmitted  EventType = "AnswersSubmitted"
	EvtTimerTicked       EventType = "TimerTicked"
	EvtTimeWarning       EventType = "TimeWarning"
	EvtTimerExpired      EventType = "TimerExpired"
	EvtRoundEnded        EventType = "RoundEnded"
	EvtGameCompleted     EventType = "GameCompleted"
	EvtReturnedToLobby   EventType = "ReturnedToLobby"
)

type Event struct {
	Type         EventType
	Player       Player
	PreviousID   string
	Round        int
	Letter       string
	TimeLeft     int
	AllSubmitted bool
}

// Apply runs cmd against r. On error r is left untouched.
func Apply(r *Room, cmd Command) ([]Event, error) {
	switch cmd.Type {
	case CmdJoin:
		return join(r, cmd.PlayerID, cmd.Name)
	case CmdLeave:
		return leave(r, cmd.PlayerID)
	case CmdKick:
		return kick(r, cmd.PlayerID, cmd.TargetID)
	case CmdReconnect:
		return reconnect(r, cmd.PlayerID, cmd.Name)
	case CmdStartGame:
		return startGame(r, cmd.PlayerID, cmd.Settings)
	case CmdSubmitAnswers:
		return submitAnswers(r, cmd.PlayerID, cmd.Answers)
	case CmdEndRound:
		return endRound(r), nil
	case CmdNextRound:
		return nextRound(r, cmd.PlayerID)
	case CmdBackToLobby:
		return backToLobby(r, cmd.PlayerID)
	case CmdTick:
		return tick(r), nil
	default:
		return nil, ErrUnsupportedCommand
	}
}

func join(r *Room, id, name string) ([]Event, error) {
	name = strings.TrimSpace(name)
	if name == "" || id == "" {
		return nil, ErrInvalidName
	}
	if r.State != StateLobby {
		return nil, ErrGameInProgress
	}
	if len(r.Players) >= r.maxPlayers() {
		return nil, ErrRoomFull
	}
	if _, ok := r.Player(id); ok {
		return nil, ErrAlreadyJoined
	}
	if _, ok := r.PlayerByName(name); ok {
		return nil, ErrNameTaken
	}

	p := Player{ID: id, Name: name}
	// the first player into an emptied room takes over as host
	if len(r.Players) == 0 {
		p.IsHost = true
		r.HostID = id
	}
	r.Players = append(r.Players, p)

	events := []Event{{Type: EvtPlayerJoined, Player: p}}
	if p.IsHost {
		events = append(events, Event{Type: EvtHostChanged, Player: p})
	}
	return events, nil
}

func leave(r *Room, id string) ([]Event, error) {
	idx := r.playerIndex(id)
	if idx < 0 {
		return nil, ErrPlayerNotFound
	}

	p := r.Players[idx]
	r.Players = slices.Delete(r.Players, idx, idx+1)
	delete(r.Submitted, id)
	delete(r.Answers, id)
	delete(r.Scores, id)

	events := []Event{{Type: EvtPlayerLeft, Player: p}}

	if len(r.Players) == 0 {
		r.HostID = ""
		resetRound(r)
		return append(events, Event{Type: EvtRoomEmptied}), nil
	}

	if r.HostID == id {
		r.Players[0].IsHost = true
		r.HostID = r.Players[0].ID
		events = append(events, Event{Type: EvtHostChanged, Player: r.Players[0]})
	}

	if r.State == StateActiveRound && len(r.Submitted) == len(r.Players) {
		events = append(events, Event{Type: EvtAnswersSubmitted, AllSubmitted: true})
	}
	return events, nil
}

func kick(r *Room, by, target string) ([]Event, error) {
	if !r.isHost(by) {
		return nil, ErrNotHost
	}
	p, ok := r.Player(target)
	if !ok {
		return nil, ErrPlayerNotFound
	}

	events, err := leave(r, target)
	if err != nil {
		return nil, err
	}
	return append([]Event{{Type: EvtPlayerKicked, Player: p}}, events...), nil
}

func reconnect(r *Room, newID, name string) ([]Event, error) {
	idx := slices.IndexFunc(r.Players, func(p Player) bool { return p.Name == name })
	if idx < 0 || name == "" {
		return nil, ErrPlayerNotFound
	}

	oldID := r.Players[idx].ID
	if oldID == newID {
		return nil, nil
	}
	if _, taken := r.Player(newID); taken {
		return nil, ErrAlreadyJoined
	}

	r.Players[idx].ID = newID
	if r.HostID == oldID {
		r.HostID = newID
	}
	if s, ok := r.Scores[oldID]; ok {
		delete(r.Scores, oldID)
		r.Scores[newID] = s
	}
	if a, ok := r.Answers[oldID]; ok {
		delete(r.Answers, oldID)
		r.Answers[newID] = a
	}
	if r.Submitted[oldID] {
		delete(r.Submitted, oldID)
		r.Submitted[newID] = true
	}

	return []Event{{Type: EvtPlayerReconnected, Player: r.Players[idx], PreviousID: oldID}}, nil
}

func startGame(r *Room, by string, patch *SettingsPatch) ([]Event, error) {
	if !r.isHost(by) {
		return nil, ErrNotHost
	}
	if len(r.Players) < 2 {
		return nil, ErrNotEnoughPlayers
	}
	if r.State != StateLobby {
		return nil, ErrInvalidTransition
	}
	settings, err := mergeSettings(r.Settings, patch)
	if err != nil {
		return nil, err
	}

	r.Settings = settings
	r.State = StateActiveRound
	r.CurrentRound = 1
	r.CurrentLetter = r.drawLetter()
	r.TimeLeft = r.Settings.RoundTime
	r.Answers = map[string]map[string]string{}
	r.Scores = map[string]int{}
	r.RoundResults = nil
	r.Submitted = map[string]bool{}
	for _, p := range r.Players {
		r.Scores[p.ID] = 0
	}

	return []Event{
		{Type: EvtGameStarted},
		{Type: EvtRoundStarted, Round: r.CurrentRound, Letter: r.CurrentLetter, TimeLeft: r.TimeLeft},
	}, nil
}

func submitAnswers(r *Room, id string, answers map[string]string) ([]Event, error) {
	if r.State != StateActiveRound {
		return nil, ErrGameNotActive
	}
	p, ok := r.Player(id)
	if !ok {
		return nil, ErrPlayerNotFound
	}

	// last write wins until the round ends
	r.Answers[id] = maps.Clone(answers)
	if r.Answers[id] == nil {
		r.Answers[id] = map[string]string{}
	}
	r.Submitted[id] = true

	return []Event{{
		Type:         EvtAnswersSubmitted,
		Player:       p,
		AllSubmitted: len(r.Submitted) == len(r.Players),
	}}, nil
}

// endRound is a no-op outside an active round, which makes a tick racing an
// all-submitted trigger harmless.
func endRound(r *Room) []Event {
	if r.State != StateActiveRound {
		return nil
	}

	r.RoundResults = Score(r)
	for _, res := range r.RoundResults {
		r.Scores[res.PlayerID] += res.Total()
	}

	events := []Event{{Type: EvtRoundEnded, Round: r.CurrentRound}}
	if r.CurrentRound >= r.Settings.TotalRounds {
		r.State = StateFinished
		return append(events, Event{Type: EvtGameCompleted, Round: r.CurrentRound})
	}
	r.State = StateScoring
	return events
}

func nextRound(r *Room, by string) ([]Event, error) {
	if !r.isHost(by) {
		return nil, ErrNotHost
	}
	if r.State != StateScoring {
		return nil, ErrInvalidTransition
	}

	r.CurrentRound++
	r.CurrentLetter = r.drawLetter()
	r.TimeLeft = r.Settings.RoundTime
	r.Answers = map[string]map[string]string{}
	r.Submitted = map[string]bool{}
	r.State = StateActiveRound

	return []Event{{Type: EvtRoundStarted, Round: r.CurrentRound, Letter: r.CurrentLetter, TimeLeft: r.TimeLeft}}, nil
}

func backToLobby(r *Room, by string) ([]Event, error) {
	if _, ok := r.Player(by); !ok {
		return nil, ErrPlayerNotFound
	}
	if r.State == StateLobby {
		return nil, ErrInvalidTransition
	}
	resetRound(r)
	return []Event{{Type: EvtReturnedToLobby}}, nil
}

func tick(r *Room) []Event {
	if r.State != StateActiveRound {
		return nil
	}
	if r.TimeLeft > 0 {
		r.TimeLeft--
	}

	events := []Event{{Type: EvtTimerTicked, Round: r.CurrentRound, TimeLeft: r.TimeLeft}}
	if r.TimeLeft <= WarningThreshold {
		events = append(events, Event{Type: EvtTimeWarning, Round: r.CurrentRound, TimeLeft: r.TimeLeft})
	}
	if r.TimeLeft == 0 {
		events = append(events, Event{Type: EvtTimerExpired, Round: r.CurrentRound})
	}
	return events
}

func resetRound(r *Room) {
	r.State = StateLobby
	r.CurrentRound = 0
	r.TimeLeft = r.Settings.RoundTime
	r.CurrentLetter = ""
	r.Answers = map[string]map[string]string{}
	r.Scores = map[string]int{}
	r.RoundResults = nil
	r.Submitted = map[string]bool{}
}

func mergeSettings(cur Settings, patch *SettingsPatch) (Settings, error) {
	out := cur
	out.Categories = slices.Clone(cur.Categories)
	if patch == nil {
		return out, nil
	}

	if patch.RoundTime != nil {
		if *patch.RoundTime <= 0 {
			return cur, ErrInvalidSettings
		}
		out.RoundTime = *patch.RoundTime
	}
	if patch.TotalRounds != nil {
		if *patch.TotalRounds <= 0 {
			return cur, ErrInvalidSettings
		}
		out.TotalRounds = *patch.TotalRounds
	}
	if patch.Categories != nil {
		cats := uniqueCategories(patch.Categories)
		if len(cats) == 0 {
			return cur, ErrInvalidSettings
		}
		out.Categories = cats
	}
	return out, nil
}
