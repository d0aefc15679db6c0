package protocol

import (
	"encoding/json"

	"github.com/liaptui/liaptui/internal/rules"
)

// Client -> Server event kinds
const (
	EventCreateRoom    = "create_room"
	EventJoinRoom      = "join_room"
	EventLeaveRoom     = "leave_room"
	EventAddBot        = "add_bot"
	EventRemovePlayer  = "remove_player"
	EventStartGame     = "start_game"
	EventDeclare       = "declare"
	EventPlay          = "play"
	EventAcceptRedeal  = "accept_redeal"
	EventDeclineRedeal = "decline_redeal"
	EventPlayerReady   = "player_ready"
	EventLeaveGame     = "leave_game"
	EventPing          = "ping"
	EventAck           = "ack"
	EventRequestResync = "request_resync"
	EventClientReady   = "client_ready"
	EventListRooms     = "list_rooms"
)

// Server -> Client event kinds
const (
	EventRoomCreated     = "room_created"
	EventRoomJoined      = "room_joined"
	EventRoomUpdate      = "room_update"
	EventRoomListUpdate  = "room_list_update"
	EventRoomClosed      = "room_closed"
	EventPhaseChange     = "phase_change"
	EventHandDealt       = "hand_dealt"
	EventRedealOffered   = "redeal_offered"
	EventRedealDecided   = "redeal_decided"
	EventDeclarationMade = "declaration_made"
	EventPlayMade        = "play_made"
	EventTurnResolved    = "turn_resolved"
	EventRoundScored     = "round_scored"
	EventGameEnded       = "game_ended"
	EventPlayerLeft      = "player_left"
	EventSnapshot        = "snapshot"
	EventPong            = "pong"
	EventActionRejected  = "action_rejected"
	EventResyncResponse  = "resync_response"
	EventRoomError       = "room_error"
	EventError           = "error"
)

// Message is the transport envelope shared by both directions. Outbound
// room events carry Seq; inbound messages may carry Ack.
type Message struct {
	Event string          `json:"event"`
	Data  json.RawMessage `json:"data,omitempty"`
	Seq   int64           `json:"seq,omitempty"`
	Ack   int64           `json:"ack,omitempty"`
}

// NewMessage builds an envelope around a typed payload
func NewMessage(event string, data any) (*Message, error) {
	raw, err := json.Marshal(data)
	if err != nil {
		return nil, err
	}
	return &Message{Event: event, Data: raw}, nil
}

// Client -> Server payloads

type CreateRoomData struct {
	PlayerName string `json:"player_name"`
}

type JoinRoomData struct {
	RoomCode   string `json:"room_code"`
	PlayerName string `json:"player_name"`
}

type RemovePlayerData struct {
	Seat int `json:"seat"`
}

type DeclareData struct {
	Value int `json:"value"`
}

type PlayData struct {
	Pieces []rules.Piece `json:"pieces"`
}

type AckData struct {
	Seq int64 `json:"seq"`
}

type RequestResyncData struct {
	FromSeq int64 `json:"from_seq"`
}

// Server -> Client payloads

type RoomCreatedData struct {
	RoomID   string `json:"room_id"`
	RoomCode string `json:"room_code"`
}

type RoomJoinedData struct {
	RoomID   string `json:"room_id"`
	RoomCode string `json:"room_code"`
	Seat     int    `json:"seat"`
}

// SeatInfo describes one seat in a room update
type SeatInfo struct {
	Name      string `json:"name,omitempty"`
	Occupied  bool   `json:"occupied"`
	IsBot     bool   `json:"is_bot"`
	Connected bool   `json:"connected"`
}

type RoomUpdateData struct {
	Seats   [4]SeatInfo `json:"seats"`
	Host    int         `json:"host"`
	Started bool        `json:"started"`
}

// RoomSummary is one entry of a lobby listing
type RoomSummary struct {
	RoomCode string `json:"room_code"`
	HostName string `json:"host_name"`
	Occupied int    `json:"occupied"`
	Total    int    `json:"total"`
	Started  bool   `json:"started"`
}

type RoomListUpdateData struct {
	Rooms []RoomSummary `json:"rooms"`
}

type RoomClosedData struct {
	Reason string `json:"reason,omitempty"`
}

type PhaseChangeData struct {
	Phase     string          `json:"phase"`
	PhaseData json.RawMessage `json:"phase_data,omitempty"`
}

type HandDealtData struct {
	Seat int           `json:"seat"`
	Hand []rules.Piece `json:"hand"`
}

type RedealOfferedData struct {
	Seat int `json:"seat"`
}

type RedealDecidedData struct {
	Seat     int  `json:"seat"`
	Accepted bool `json:"accepted"`
}

type DeclarationMadeData struct {
	Seat  int `json:"seat"`
	Value int `json:"value"`
}

type PlayMadeData struct {
	Seat     int           `json:"seat"`
	Pieces   []rules.Piece `json:"pieces"`
	PlayType string        `json:"play_type"`
}

type TurnResolvedData struct {
	Winner           int           `json:"winner"`
	WinningPlay      []rules.Piece `json:"winning_play"`
	PilesWonThisTurn [4]int        `json:"piles_won_this_turn"`
	NextStarter      int           `json:"next_starter"`
	TurnNumber       int           `json:"turn_number"`
}

type RoundScoredData struct {
	PerSeatDelta [4]int `json:"per_seat_delta"`
	Cumulative   [4]int `json:"cumulative"`
}

type GameEndedData struct {
	Winner      int    `json:"winner"`
	FinalScores [4]int `json:"final_scores"`
	Reason      string `json:"reason,omitempty"`
}

type PlayerLeftData struct {
	Seat int `json:"seat"`
}

type ActionRejectedData struct {
	Reason string `json:"reason"`
	Detail string `json:"detail,omitempty"`
}

type ResyncResponseData struct {
	Events []Message `json:"events"`
	// Full is set when the requested sequence fell below the retained
	// window and the first event is a synthesized snapshot.
	Full bool `json:"full,omitempty"`
}

// SnapshotData is the full per-seat room state synthesized when a client
// resyncs from below the event ring's floor
type SnapshotData struct {
	RoomID       string         `json:"room_id"`
	RoomCode     string         `json:"room_code"`
	Phase        string         `json:"phase"`
	Round        int            `json:"round"`
	Starter      int            `json:"starter"`
	CurrentTurn  int            `json:"current_turn"`
	TurnNumber   int            `json:"turn_number"`
	Seats        [4]SeatInfo    `json:"seats"`
	Host         int            `json:"host"`
	Started      bool           `json:"started"`
	Declarations [4]*int        `json:"declarations"`
	Captured     [4]int         `json:"captured"`
	Scores       [4]int         `json:"scores"`
	Trick        []PlayMadeData `json:"trick"`
	Hand         []rules.Piece  `json:"hand,omitempty"`
	Seq          int64          `json:"seq"`
}

type RoomErrorData struct {
	Detail string `json:"detail"`
}

type ErrorData struct {
	Reason string `json:"reason"`
}

// Rejection reasons surfaced through action_rejected
const (
	ReasonInvalidMessage     = "INVALID_MESSAGE"
	ReasonUnknownEvent       = "UNKNOWN_EVENT"
	ReasonSchemaMismatch     = "SCHEMA_MISMATCH"
	ReasonWrongPhase         = "WRONG_PHASE"
	ReasonNotYourTurn        = "NOT_YOUR_TURN"
	ReasonNotHost            = "NOT_HOST"
	ReasonNotFull            = "NOT_FULL"
	ReasonRoomFull           = "ROOM_FULL"
	ReasonRoomNotFound       = "ROOM_NOT_FOUND"
	ReasonIllegalPlay        = "ILLEGAL_PLAY"
	ReasonIllegalDeclaration = "ILLEGAL_DECLARATION"
	ReasonRateLimited        = "RATE_LIMITED"
	ReasonBusy               = "BUSY"
	ReasonResyncTooOld       = "RESYNC_TOO_OLD"
)

// Transport close reasons surfaced through error just before the server
// drops the connection
const (
	ReasonSeatTaken          = "SEAT_TAKEN"
	ReasonRetransmitExceeded = "RETRANSMIT_EXCEEDED"
)
