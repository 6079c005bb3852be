// Package wordlist holds the per-category word lists used for answer validation.
// A Set is filled once at startup and is read-only afterwards, so it can be
// shared by every room without locking.
package wordlist

import (
	"sort"

	"github.com/DoyleJ11/khodar-backend/internal/lexicon"
)

// DefaultFiles maps each default category to its word file.
var DefaultFiles = map[string]string{
	"فواكه": "fruits.txt",
	"خضار":  "vegetables.txt",
	"حيوان": "animals.txt",
	"بلد":   "countries.txt",
	"جماد":  "objects.txt",
	"لون":   "colors.txt",
}

type Set struct {
	words map[string]map[string]struct{}
}

func New() *Set {
	return &Set{words: make(map[string]map[string]struct{})}
}

// Ensure registers a category even when it has no words.
func (s *Set) Ensure(category string) {
	if _, ok := s.words[category]; !ok {
		s.words[category] = make(map[string]struct{})
	}
}

// Add normalizes word and stores it under category. Not safe once the set is shared.
func (s *Set) Add(category, word string) {
	w := lexicon.Normalize(word)
	if w == "" {
		return
	}
	s.Ensure(category)
	s.words[category][w] = struct{}{}
}

// Contains expects an already normalized word.
func (s *Set) Contains(category, normalizedWord string) bool {
	if s == nil {
		return false
	}
	list, ok := s.words[category]
	if !ok {
		return false
	}
	_, ok = list[normalizedWord]
	return ok
}

func (s *Set) Categories() []string {
	out := make([]string, 0, len(s.words))
	for c := range s.words {
		out = append(out, c)
	}
	sort.Strings(out)
	return out
}

func (s *Set) Len(category string) int {
	return len(s.words[category])
}

// Each calls fn for every stored (category, word) pair in a stable order.
func (s *Set) Each(fn func(category, word string)) {
	for _, c := range s.Categories() {
		words := make([]string, 0, len(s.words[c]))
		for w := range s.words[c] {
			words = append(words, w)
		}
		sort.Strings(words)
		for _, w := range words {
			fn(c, w)
		}
	}
}
