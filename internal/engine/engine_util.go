package engine

import (
	"maps"
	"slices"
	"strings"
)

const DefaultMaxPlayers = 8

func DefaultSettings() Settings {
	return Settings{
		RoundTime:   60,
		TotalRounds: 5,
		Categories:  []string{"فواكه", "خضار", "حيوان", "بلد", "جماد", "لون"},
	}
}

// NewRoom builds a lobby-state room with owner as its only player and host.
func NewRoom(id string, owner Player, private bool, settings Settings, rules Rules) (*Room, error) {
	owner.Name = strings.TrimSpace(owner.Name)
	if owner.ID == "" || owner.Name == "" {
		return nil, ErrInvalidName
	}
	if settings.RoundTime <= 0 || settings.TotalRounds <= 0 {
		return nil, ErrInvalidSettings
	}
	settings.Categories = uniqueCategories(settings.Categories)
	if len(settings.Categories) == 0 {
		return nil, ErrInvalidSettings
	}

	owner.IsHost = true
	r := &Room{
		ID:        id,
		HostID:    owner.ID,
		IsPrivate: private,
		Players:   []Player{owner},
		Settings:  settings,
		Rules:     rules,
	}
	resetRound(r)
	return r, nil
}

func (r *Room) Player(id string) (Player, bool) {
	if i := r.playerIndex(id); i >= 0 {
		return r.Players[i], true
	}
	return Player{}, false
}

func (r *Room) PlayerByName(name string) (Player, bool) {
	i := slices.IndexFunc(r.Players, func(p Player) bool { return p.Name == name })
	if i < 0 {
		return Player{}, false
	}
	return r.Players[i], true
}

func (r *Room) Host() (Player, bool) {
	return r.Player(r.HostID)
}

func (r *Room) isHost(id string) bool {
	return id != "" && id == r.HostID
}

func (r *Room) playerIndex(id string) int {
	return slices.IndexFunc(r.Players, func(p Player) bool { return p.ID == id })
}

func (r *Room) maxPlayers() int {
	if r.Rules.MaxPlayers > 0 {
		return r.Rules.MaxPlayers
	}
	return DefaultMaxPlayers
}

func (r *Room) drawLetter() string {
	if r.Rules.Letters == nil {
		return NewUniformDrawer(nil).Draw()
	}
	return r.Rules.Letters.Draw()
}

// Clone returns a deep copy safe to hand to another goroutine.
func (r *Room) Clone() Room {
	c := *r
	c.Players = slices.Clone(r.Players)
	c.Settings.Categories = slices.Clone(r.Settings.Categories)
	c.Answers = make(map[string]map[string]string, len(r.Answers))
	for id, a := range r.Answers {
		c.Answers[id] = maps.Clone(a)
	}
	c.Scores = maps.Clone(r.Scores)
	c.Submitted = maps.Clone(r.Submitted)
	c.RoundResults = make([]PlayerRoundResult, len(r.RoundResults))
	for i, res := range r.RoundResults {
		c.RoundResults[i] = PlayerRoundResult{PlayerID: res.PlayerID, Answers: maps.Clone(res.Answers)}
	}
	return c
}

func ContainsEvent(events []Event, eventType EventType) bool {
	for _, event := range events {
		if event.Type == eventType {
			return true
		}
	}
	return false
}

func uniqueCategories(in []string) []string {
	out := make([]string, 0, len(in))
	seen := make(map[string]bool, len(in))
	for _, c := range in {
		c = strings.TrimSpace(c)
		if c == "" || seen[c] {
			continue
		}
		seen[c] = true
		out = append(out, c)
	}
	return out
}
