// Package viewmodel defines the types the page templates render. It does not
// import game packages so templates stay decoupled from them.
package viewmodel

// HeroCard is a hero as shown on the page.
type HeroCard struct {
	ID          string
	Name        string
	HP          int
	MaxHP       int
	XP          int
	XPPerLevel  int
	Level       int
	Crest       string // css color derived from the hero id
	Provisional bool
	CanBattle   bool
	Defeated    bool
}

// HPPercent is the health bar fill.
func (h HeroCard) HPPercent() int {
	return percent(h.HP, h.MaxHP)
}

// XPPercent is the experience bar fill.
func (h HeroCard) XPPercent() int {
	return percent(h.XP, h.XPPerLevel)
}

func percent(v, max int) int {
	if max <= 0 || v <= 0 {
		return 0
	}
	if v >= max {
		return 100
	}
	return v * 100 / max
}

// IndexPage carries everything the index page needs.
type IndexPage struct {
	Title         string
	Accounts      []string // suggested identities
	FreeformLogin bool     // any well-formed address may be typed
	LedgerMode    string
	PackageID     string
	NameMaxLength int
	SuggestedName string
	WSPath        string

	// Server-rendered initial state; the script replaces it once the
	// socket reports.
	State   string
	Address string
	Hero    *HeroCard
}
