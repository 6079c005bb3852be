package room

import (
	"maps"
	"slices"

	"github.com/DoyleJ11/khodar-backend/internal/engine"
	"github.com/DoyleJ11/khodar-backend/pkg/types"
)

func playerView(p engine.Player) types.Player {
	return types.Player{ID: p.ID, Name: p.Name, IsHost: p.IsHost}
}

func playersView(ps []engine.Player) []types.Player {
	out := make([]types.Player, len(ps))
	for i, p := range ps {
		out[i] = playerView(p)
	}
	return out
}

func settingsView(s engine.Settings) types.Settings {
	return types.Settings{
		RoundTime:   s.RoundTime,
		TotalRounds: s.TotalRounds,
		Categories:  slices.Clone(s.Categories),
	}
}

func roomView(st *engine.Room) types.Room {
	return types.Room{
		ID:           st.ID,
		HostID:       st.HostID,
		IsPrivate:    st.IsPrivate,
		Players:      playersView(st.Players),
		Settings:     settingsView(st.Settings),
		GameState:    string(st.State),
		CurrentRound: st.CurrentRound,
	}
}

func lobbyView(st *engine.Room) types.LobbyUpdate {
	return types.LobbyUpdate{
		Players:   playersView(st.Players),
		Settings:  settingsView(st.Settings),
		IsPrivate: st.IsPrivate,
	}
}

func gameView(st *engine.Room) types.GameUpdate {
	return types.GameUpdate{
		CurrentRound:  st.CurrentRound,
		TotalRounds:   st.Settings.TotalRounds,
		TimeLeft:      st.TimeLeft,
		CurrentLetter: st.CurrentLetter,
		Categories:    slices.Clone(st.Settings.Categories),
		Players:       playersView(st.Players),
		Scores:        copyScores(st.Scores),
		RoundResults:  resultsView(st.RoundResults),
		GameState:     string(st.State),
	}
}

func resultsView(rs []engine.PlayerRoundResult) []types.RoundResult {
	out := make([]types.RoundResult, len(rs))
	for i, res := range rs {
		answers := make(map[string]types.AnswerScore, len(res.Answers))
		for c, a := range res.Answers {
			answers[c] = types.AnswerScore{Answer: a.Answer, Score: a.Score}
		}
		out[i] = types.RoundResult{PlayerID: res.PlayerID, Answers: answers}
	}
	return out
}

func copyScores(s map[string]int) map[string]int {
	if s == nil {
		return map[string]int{}
	}
	return maps.Clone(s)
}
