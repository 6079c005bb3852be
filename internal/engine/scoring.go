package engine

import (
	"strings"

	"github.com/DoyleJ11/khodar-backend/internal/lexicon"
)

const (
	ScoreInvalid   = 0
	ScoreDuplicate = 5
	ScoreUnique    = 10
)

// Score computes one result per player, in player order, for the room's
// current answers. It does not mutate r and uses no randomness.
func Score(r *Room) []PlayerRoundResult {
	cats := r.Settings.Categories

	// valid[p][category] holds the normalized answer when it earns points
	valid := make(map[string]map[string]string, len(r.Players))
	counts := make(map[string]map[string]int, len(cats))
	for _, c := range cats {
		counts[c] = map[string]int{}
	}

	for _, p := range r.Players {
		valid[p.ID] = map[string]string{}
		for _, c := range cats {
			norm, ok := validAnswer(r, c, r.Answers[p.ID][c])
			if !ok {
				continue
			}
			valid[p.ID][c] = norm
			counts[c][norm]++
		}
	}

	results := make([]PlayerRoundResult, 0, len(r.Players))
	for _, p := range r.Players {
		res := PlayerRoundResult{PlayerID: p.ID, Answers: make(map[string]AnswerScore, len(cats))}
		for _, c := range cats {
			score := ScoreInvalid
			if norm, ok := valid[p.ID][c]; ok {
				if counts[c][norm] == 1 {
					score = ScoreUnique
				} else {
					score = ScoreDuplicate
				}
			}
			res.Answers[c] = AnswerScore{Answer: r.Answers[p.ID][c], Score: score}
		}
		results = append(results, res)
	}
	return results
}

func validAnswer(r *Room, category, raw string) (string, bool) {
	if strings.TrimSpace(raw) == "" {
		return "", false
	}
	norm := lexicon.Normalize(raw)
	if !lexicon.StartsWithLetter(norm, r.CurrentLetter) {
		return "", false
	}
	if r.Rules.RequireWordlist {
		if r.Rules.Words == nil || !r.Rules.Words.Contains(category, norm) {
			return "", false
		}
	}
	return norm, true
}
