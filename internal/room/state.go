package room

import (
	"github.com/liaptui/liaptui/internal/rules"
)

// Phase is one of the seven coarse states a room occupies
type Phase int

const (
	Lobby Phase = iota
	Preparation
	Declaration
	Turn
	TurnResults
	Scoring
	GameOver
)

// String returns the wire name of a phase
func (p Phase) String() string {
	switch p {
	case Lobby:
		return "LOBBY"
	case Preparation:
		return "PREPARATION"
	case Declaration:
		return "DECLARATION"
	case Turn:
		return "TURN"
	case TurnResults:
		return "TURN_RESULTS"
	case Scoring:
		return "SCORING"
	case GameOver:
		return "GAME_OVER"
	default:
		return "UNKNOWN"
	}
}

// Player is one seat's occupant. OriginalIsBot preserves whether the seat
// was human at game start so reconnection can restore control after a
// disconnect flipped IsBot.
type Player struct {
	Name          string
	Seat          int
	IsBot         bool
	OriginalIsBot bool
	Connected     bool

	Hand             rules.Hand
	Declared         int
	DeclaredSet      bool
	Captured         int
	PilesWonThisTurn int
	Score            int
	Ready            bool
}

// SeatPlay is one play within the current trick
type SeatPlay struct {
	Seat   int
	Pieces rules.Play
	Type   rules.PlayType
}

// ActionKind discriminates inbound game actions
type ActionKind int

const (
	ActionStartGame ActionKind = iota
	ActionDeclare
	ActionPlay
	ActionAcceptRedeal
	ActionDeclineRedeal
	ActionPlayerReady
	ActionLeaveGame
)

// String names the action for logs
func (k ActionKind) String() string {
	switch k {
	case ActionStartGame:
		return "start_game"
	case ActionDeclare:
		return "declare"
	case ActionPlay:
		return "play"
	case ActionAcceptRedeal:
		return "accept_redeal"
	case ActionDeclineRedeal:
		return "decline_redeal"
	case ActionPlayerReady:
		return "player_ready"
	case ActionLeaveGame:
		return "leave_game"
	default:
		return "unknown"
	}
}

// RejectFunc delivers an action_rejected to the submitting connection
// only. Bot-submitted actions carry nil; a bot rejection is a bug and is
// logged instead.
type RejectFunc func(reason, detail string)

// Action is one entry of a room's inbound queue
type Action struct {
	Kind   ActionKind
	Seat   int
	Value  int
	Pieces rules.Play
	Reject RejectFunc
}
