package engine

import (
	"fmt"
	"math/rand/v2"
	"sync"
)

type LetterPolicy string

const (
	LetterPolicyWeighted LetterPolicy = "weighted"
	LetterPolicyUniform  LetterPolicy = "uniform"
)

// Alphabet is the 28 letter Arabic alphabet used by the uniform policy.
var Alphabet = []string{
	"ا", "ب", "ت", "ث", "ج", "ح", "خ", "د", "ذ", "ر", "ز", "س", "ش", "ص",
	"ض", "ط", "ظ", "ع", "غ", "ف", "ق", "ك", "ل", "م", "ن", "ه", "و", "ي",
}

// WeightedLetters over-represents letters with large playable vocabularies.
// A letter appearing n times is drawn with weight n.
var WeightedLetters = []string{
	"أ", "أ", "أ",
	"ب", "ب", "ب", "ب",
	"ت", "ت", "ت",
	"ج", "ج", "ج",
	"ح", "ح",
	"خ", "خ",
	"د", "د", "د",
	"ر", "ر", "ر",
	"س", "س", "س", "س",
	"ش", "ش", "ش",
	"ص", "ص",
	"ض",
	"ط", "ط",
	"ظ",
	"ع", "ع", "ع",
	"غ", "غ",
	"ف", "ف", "ف",
	"ق", "ق", "ق",
	"ك", "ك", "ك",
	"ل", "ل", "ل", "ل",
	"م", "م", "م", "م",
	"ن", "ن", "ن",
	"ه", "ه", "ه",
	"و", "و", "و",
	"ي", "ي", "ي", "ي",
}

type LetterDrawer interface {
	Draw() string
}

// TableDrawer picks uniformly from a table; duplicates in the table act as
// weights. It is safe for concurrent use.
type TableDrawer struct {
	mu    sync.Mutex
	rng   *rand.Rand
	table []string
}

func newTableDrawer(table []string, src rand.Source) *TableDrawer {
	d := &TableDrawer{table: table}
	if src != nil {
		d.rng = rand.New(src)
	}
	return d
}

func NewUniformDrawer(src rand.Source) *TableDrawer {
	return newTableDrawer(Alphabet, src)
}

func NewWeightedDrawer(src rand.Source) *TableDrawer {
	return newTableDrawer(WeightedLetters, src)
}

func (d *TableDrawer) Draw() string {
	if d.rng == nil {
		return d.table[rand.IntN(len(d.table))]
	}
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.table[d.rng.IntN(len(d.table))]
}

func ParseLetterPolicy(s string) (LetterPolicy, error) {
	switch LetterPolicy(s) {
	case LetterPolicyWeighted, "":
		return LetterPolicyWeighted, nil
	case LetterPolicyUniform:
		return LetterPolicyUniform, nil
	default:
		return "", fmt.Errorf("unknown letter policy %q", s)
	}
}

// NewDrawer returns the drawer for policy; src may be nil for the global source.
func NewDrawer(policy LetterPolicy, src rand.Source) LetterDrawer {
	if policy == LetterPolicyUniform {
		return NewUniformDrawer(src)
	}
	return NewWeightedDrawer(src)
}
