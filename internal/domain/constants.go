package domain

import "time"

// ==== Hero Constants ====

const (
	// MaxHP is the upper bound of a hero's health
	MaxHP = 100

	// XPPerLevel is the experience needed to gain one level
	XPPerLevel = 100

	// StartLevel is the level of a freshly created hero
	StartLevel = 1

	// BattleXP is the experience granted by a single battle
	BattleXP = 20

	// BattleDamage is the health lost in a single battle
	BattleDamage = 20

	// MinBattleHP is the health required to start a battle
	MinBattleHP = 20

	// MaxHeroNameLength is the client-side limit on hero names, in characters
	MaxHeroNameLength = 20
)

// ==== WebSocket Constants ====

// MaxMessageSize is the maximum allowed WebSocket message size in bytes
const MaxMessageSize = 4096

// MaxHistorySize is the number of activity notices kept per identity
const MaxHistorySize = 50

// ==== Session Constants ====

// SessionTTL is the default session token time-to-live
const SessionTTL = 24 * time.Hour

// ==== Rate Limit Constants ====

const (
	// DefaultRateLimitAPI is the default rate limit for API endpoints (requests/sec)
	DefaultRateLimitAPI = 10

	// DefaultRateLimitWS is the default rate limit for WebSocket connections (req/sec)
	DefaultRateLimitWS = 5

	// DefaultRateLimitStrict is the stricter rate limit for sensitive endpoints
	DefaultRateLimitStrict = 2
)

// ==== Timing Constants ====

const (
	// PollInterval is how often a session re-reads canonical hero state
	PollInterval = 2 * time.Second

	// RequestTimeout bounds a single outbound ledger request
	RequestTimeout = 30 * time.Second

	// ShutdownGracePeriod is the time allowed for in-flight HTTP requests on shutdown
	ShutdownGracePeriod = 30 * time.Second
)
