package usecase

import (
	"fmt"
	"hash/fnv"
	"math/rand"
	"regexp"
	"strings"
	"sync"
	"unicode/utf8"

	"github.com/mmuslimabdulj/hero-arena/internal/domain"
)

// Given names for hero suggestions
var givenNames = []string{
	"Arin", "Bram", "Cato", "Dara", "Edda", "Fenn", "Galen", "Hilde", "Ilya", "Juno",
	"Kael", "Lira", "Mako", "Nessa", "Orin", "Pell", "Quill", "Rhea", "Soren", "Tova",
	"Ulric", "Vela", "Wren", "Xan", "Yara", "Zed", "Ash", "Brin", "Corin", "Dax",
	"Elsk", "Faye", "Grim", "Hale", "Ivo", "Jory", "Kit", "Lune", "Mira", "Nox",
}

// Epithets appended as "<name> the <epithet>"
var epithets = []string{
	"Bold", "Brave", "Swift", "Grim", "Wise", "Quiet", "Loud", "Lucky", "Stout", "Sly",
	"Keen", "Wild", "Red", "Gray", "Young", "Old", "Tall", "Small", "Fierce", "Calm",
	"Stubborn", "Nimble", "Patient", "Restless", "Hungry", "Sleepy", "Fearless", "Tireless",
}

// Crest colors for hero cards
var crestColors = []string{
	"#FFD100",
	"#FF6AC1",
	"#00E676",
	"#00E5FF",
	"#FF5252",
	"#B388FF",
	"#FF9100",
	"#69F0AE",
}

// NameSuggester proposes hero names that have not been handed out recently
type NameSuggester struct {
	mu     sync.Mutex
	issued map[string]bool
	limit  int
}

// NewNameSuggester creates a NameSuggester that remembers up to limit names
func NewNameSuggester(limit int) *NameSuggester {
	if limit <= 0 {
		limit = 1000
	}
	return &NameSuggester{
		issued: make(map[string]bool),
		limit:  limit,
	}
}

// Suggest returns a name of at most MaxHeroNameLength characters
func (ns *NameSuggester) Suggest() string {
	ns.mu.Lock()
	defer ns.mu.Unlock()

	if len(ns.issued) >= ns.limit {
		ns.issued = make(map[string]bool)
	}

	var name string
	maxAttempts := 100

	for i := 0; i < maxAttempts; i++ {
		name = compose(givenNames[rand.Intn(len(givenNames))], epithets[rand.Intn(len(epithets))])

		if !ns.issued[name] {
			break
		}

		// Fall back to a numbered name after max attempts
		if i == maxAttempts-1 {
			name = fmt.Sprintf("%s %d", givenNames[rand.Intn(len(givenNames))], rand.Intn(999))
		}
	}

	ns.issued[name] = true
	return name
}

// Release forgets a suggestion so it can be offered again
func (ns *NameSuggester) Release(name string) {
	ns.mu.Lock()
	defer ns.mu.Unlock()
	delete(ns.issued, name)
}

// IssuedCount returns the number of remembered suggestions
func (ns *NameSuggester) IssuedCount() int {
	ns.mu.Lock()
	defer ns.mu.Unlock()
	return len(ns.issued)
}

func compose(given, epithet string) string {
	name := given + " the " + epithet
	if utf8.RuneCountInString(name) > domain.MaxHeroNameLength {
		return given + " " + epithet
	}
	return name
}

// CrestColor picks a stable accent color for a hero id
func CrestColor(heroID string) string {
	h := fnv.New32a()
	h.Write([]byte(heroID))
	return crestColors[h.Sum32()%uint32(len(crestColors))]
}

var (
	htmlTagRegex     = regexp.MustCompile(`<[^>]*>`)
	controlCharRegex = regexp.MustCompile(`[\x00-\x1F\x7F]`)
)

// SanitizeHeroName strips markup and control characters from user input.
// Length is not enforced here.
func SanitizeHeroName(name string) string {
	name = htmlTagRegex.ReplaceAllString(name, "")
	name = controlCharRegex.ReplaceAllString(name, "")
	return strings.TrimSpace(name)
}
