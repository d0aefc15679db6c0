package room

import "time"

// Config carries every tunable the room state machine uses. Defaults match
// the shipped game; the server config file can override any of them.
type Config struct {
	TickInterval       time.Duration
	TurnResultsDisplay time.Duration
	WinThreshold       int
	RedealCap          int
	DeclareMax         int
	ScoreBonus         int
	ZeroDeclMultiplier int
	EventRingSize      int
	OfflineQueueSize   int
	InboxSize          int
}

// DefaultConfig returns the standard game tuning
func DefaultConfig() Config {
	return Config{
		TickInterval:       500 * time.Millisecond,
		TurnResultsDisplay: 7 * time.Second,
		WinThreshold:       50,
		RedealCap:          3,
		DeclareMax:         8,
		ScoreBonus:         5,
		ZeroDeclMultiplier: 2,
		EventRingSize:      1000,
		OfflineQueueSize:   200,
		InboxSize:          256,
	}
}
