package classifier

import (
	"context"
	"fmt"
	"strings"
	"unicode"

	"github.com/carzh/robot-color-picker/internal/color"
	"github.com/carzh/robot-color-picker/internal/config"
)

// DefaultTerms associates everyday objects with the color they usually have.
var DefaultTerms = map[color.Color][]string{
	color.Red: {
		"apple", "cherry", "strawberry", "tomato", "blood", "fire", "rose",
		"ruby", "brick", "stop sign", "lava", "ketchup", "cardinal",
	},
	color.Orange: {
		"carrot", "pumpkin", "tangerine", "mandarin", "apricot", "peach",
		"sunset", "rust", "basketball", "tiger", "traffic cone",
	},
	color.Yellow: {
		"banana", "lemon", "sun", "sunflower", "gold", "butter", "corn",
		"canary", "cheese", "taxi", "yolk", "bee",
	},
	color.Green: {
		"grass", "leaf", "lime", "frog", "emerald", "forest", "cucumber",
		"broccoli", "mint", "pea", "pine", "moss",
	},
	color.Blue: {
		"sky", "ocean", "sea", "water", "sapphire", "denim", "blueberry",
		"navy", "jeans", "ice", "lake",
	},
	color.Purple: {
		"grape", "violet", "lavender", "plum", "eggplant", "amethyst",
		"lilac", "royal", "orchid",
	},
}

// Lexicon scores a candidate by how many of its associated terms occur in the
// command as whole words, singular or plural. It is deterministic and needs
// no model.
type Lexicon struct {
	terms map[color.Color][][]string
}

// NewLexicon creates a lexicon; a nil map selects DefaultTerms.
func NewLexicon(terms map[color.Color][]string) *Lexicon {
	if terms == nil {
		terms = DefaultTerms
	}
	normalized := make(map[color.Color][][]string, len(terms))
	for c, words := range terms {
		for _, w := range words {
			if fields := strings.Fields(normalize(w)); len(fields) > 0 {
				normalized[c] = append(normalized[c], fields)
			}
		}
	}
	return &Lexicon{terms: normalized}
}

// NewLexiconFromConfig starts from DefaultTerms and replaces the term list of
// every color named in the configuration.
func NewLexiconFromConfig(cfg config.LexiconConfig) (*Lexicon, error) {
	terms := make(map[color.Color][]string, len(DefaultTerms))
	for c, words := range DefaultTerms {
		terms[c] = words
	}
	for label, words := range cfg.Terms {
		c, err := color.ParseColor(label)
		if err != nil {
			return nil, fmt.Errorf("lexicon: %w", err)
		}
		terms[c] = words
	}
	return NewLexicon(terms), nil
}

// Score implements resolver.Classifier.
func (l *Lexicon) Score(ctx context.Context, command string, candidates []color.Color) ([]float64, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	words := strings.Fields(normalize(command))
	scores := make([]float64, len(candidates))
	for i, c := range candidates {
		for _, term := range l.terms[c] {
			scores[i] += float64(countTerm(words, term))
		}
	}
	return scores, nil
}

// countTerm counts the positions in words where every word of term occurs in
// order.
func countTerm(words, term []string) int {
	n := 0
	for i := 0; i+len(term) <= len(words); i++ {
		matched := true
		for j, t := range term {
			if w := words[i+j]; w != t && singular(w) != t {
				matched = false
				break
			}
		}
		if matched {
			n++
		}
	}
	return n
}

// singular strips a regular English plural ending from w.
func singular(w string) string {
	switch {
	case len(w) > 4 && strings.HasSuffix(w, "ies"):
		return w[:len(w)-3] + "y"
	case len(w) > 4 && (strings.HasSuffix(w, "ches") || strings.HasSuffix(w, "shes") ||
		strings.HasSuffix(w, "sses") || strings.HasSuffix(w, "xes") || strings.HasSuffix(w, "oes")):
		return w[:len(w)-2]
	case len(w) > 3 && strings.HasSuffix(w, "s") && !strings.HasSuffix(w, "ss"):
		return w[:len(w)-1]
	}
	return w
}

// normalize lowercases s and collapses every run of non-letters into a single
// space.
func normalize(s string) string {
	fields := strings.FieldsFunc(strings.ToLower(s), func(r rune) bool {
		return !unicode.IsLetter(r)
	})
	return strings.Join(fields, " ")
}
