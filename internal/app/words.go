package app

import (
	"errors"
	"fmt"
	"math/rand"
	"os"
	"sort"
	"strings"

	"gopkg.in/yaml.v3"

	"imposter-rounds/internal/domain"
)

// ErrEmptyWordBank is returned when a word list contains no usable words
var ErrEmptyWordBank = errors.New("word bank is empty")

// DefaultWords is a curated list of words that work well for the game
var DefaultWords = []string{
	// Tech
	"hacker", "cyborg", "android", "hologram", "matrix",
	"laser", "plasma", "quantum", "binary", "pixel",
	"drone", "robot", "avatar", "firewall", "satellite",

	// Animals
	"dragon", "phoenix", "unicorn", "kraken", "tiger",
	"falcon", "wolf", "dolphin", "octopus", "scorpion",

	// Places
	"casino", "subway", "rooftop", "warehouse", "temple",
	"pyramid", "bunker", "harbor", "factory", "stadium",

	// Objects
	"diamond", "mirror", "helmet", "compass", "lantern",
	"umbrella", "hammer", "anchor", "hourglass", "ice cream",

	// Food & Drinks
	"coffee", "sushi", "burger", "pizza", "chocolate",
	"cinnamon", "wasabi", "honey", "popcorn", "pancake",

	// Nature
	"thunder", "tornado", "volcano", "glacier", "meteor",
	"eclipse", "aurora", "tsunami", "avalanche", "rainbow",
}

// WordBank holds the secret word candidates
type WordBank struct {
	words []string
}

// NewWordBank builds a bank from words, dropping blanks and duplicates that
// differ only in case or spacing
func NewWordBank(words []string) (*WordBank, error) {
	seen := make(map[string]bool, len(words))
	unique := make([]string, 0, len(words))
	for _, w := range words {
		w = strings.TrimSpace(w)
		key := domain.NormalizeWord(w)
		if key == "" || seen[key] {
			continue
		}
		seen[key] = true
		unique = append(unique, w)
	}
	if len(unique) == 0 {
		return nil, ErrEmptyWordBank
	}

	sort.Slice(unique, func(i, j int) bool {
		return strings.ToLower(unique[i]) < strings.ToLower(unique[j])
	})

	return &WordBank{words: unique}, nil
}

// DefaultWordBank returns the built-in word bank
func DefaultWordBank() *WordBank {
	bank, _ := NewWordBank(DefaultWords)
	return bank
}

// LoadWordBank reads a YAML (or JSON) word list from disk
func LoadWordBank(path string) (*WordBank, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read word list: %w", err)
	}

	words, err := ParseWordList(data)
	if err != nil {
		return nil, fmt.Errorf("parse word list %s: %w", path, err)
	}

	return NewWordBank(words)
}

// ParseWordList accepts either a flat sequence of words or a mapping of
// category names to sequences, which is flattened
func ParseWordList(data []byte) ([]string, error) {
	var root yaml.Node
	if err := yaml.Unmarshal(data, &root); err != nil {
		return nil, err
	}
	if len(root.Content) == 0 {
		return nil, ErrEmptyWordBank
	}

	doc := root.Content[0]
	switch doc.Kind {
	case yaml.SequenceNode:
		var words []string
		if err := doc.Decode(&words); err != nil {
			return nil, err
		}
		return words, nil
	case yaml.MappingNode:
		var categories map[string][]string
		if err := doc.Decode(&categories); err != nil {
			return nil, err
		}
		names := make([]string, 0, len(categories))
		for name := range categories {
			names = append(names, name)
		}
		sort.Strings(names)

		words := make([]string, 0)
		for _, name := range names {
			words = append(words, categories[name]...)
		}
		return words, nil
	default:
		return nil, fmt.Errorf("unsupported word list layout")
	}
}

// Len returns the number of words in the bank
func (b *WordBank) Len() int {
	return len(b.words)
}

// Words returns a copy of the words in the bank
func (b *WordBank) Words() []string {
	out := make([]string, len(b.words))
	copy(out, b.words)
	return out
}

// Pick returns a random word not in excluded. When every word has been used
// it falls back to any word.
func (b *WordBank) Pick(rng *rand.Rand, excluded []string) string {
	excludeMap := make(map[string]bool, len(excluded))
	for _, w := range excluded {
		excludeMap[domain.NormalizeWord(w)] = true
	}

	candidates := make([]string, 0, len(b.words))
	for _, w := range b.words {
		if !excludeMap[domain.NormalizeWord(w)] {
			candidates = append(candidates, w)
		}
	}
	if len(candidates) == 0 {
		candidates = b.words
	}

	return candidates[rng.Intn(len(candidates))]
}
