package model

import "time"

// RoleID is one of the five fixed prompt categories collected per player per round.
type RoleID string

const (
	RoleHead       RoleID = "head"
	RoleTorso      RoleID = "torso"
	RoleLegs       RoleID = "legs"
	RolePose       RoleID = "pose"
	RoleBackground RoleID = "background"
)

// RoleOrder is the fixed collection order. Prompts are accepted strictly in
// this order, one at a time, per player per round.
var RoleOrder = []RoleID{RoleHead, RoleTorso, RoleLegs, RolePose, RoleBackground}

// RoleLabels are the display labels shown while collecting each role.
var RoleLabels = map[RoleID]string{
	RoleHead:       "1) Head",
	RoleTorso:      "2) Torso & Arms",
	RoleLegs:       "3) Legs & Lower Body",
	RolePose:       "4) Pose",
	RoleBackground: "5) Background",
}

// SessionStatus is the coarse aggregate status of a session or round.
type SessionStatus string

const (
	StatusWaiting    SessionStatus = "waiting"
	StatusCollecting SessionStatus = "collecting"
	StatusReady      SessionStatus = "ready"
	StatusGenerating SessionStatus = "generating"
	StatusCompleted  SessionStatus = "completed"
)

// PlayerStatus tracks a single player's progress within a round.
type PlayerStatus string

const (
	PlayerPending    PlayerStatus = "pending"
	PlayerCollecting PlayerStatus = "collecting"
	PlayerReady      PlayerStatus = "ready"
	PlayerGenerating PlayerStatus = "generating"
	PlayerCompleted  PlayerStatus = "completed"
)

const (
	// RoundCount is fixed for the lifetime of a session.
	RoundCount = 4
	// MaxPlayers caps joins per session.
	MaxPlayers = 6
)

// PromptMap holds one value per role; nil until the role's prompt is submitted.
type PromptMap map[RoleID]*string

// NewPromptMap returns a map with all five role keys present and unset.
func NewPromptMap() PromptMap {
	m := make(PromptMap, len(RoleOrder))
	for _, role := range RoleOrder {
		m[role] = nil
	}
	return m
}

// Clone returns an independent copy.
func (m PromptMap) Clone() PromptMap {
	out := make(PromptMap, len(m))
	for role, v := range m {
		if v == nil {
			out[role] = nil
			continue
		}
		s := *v
		out[role] = &s
	}
	return out
}

// PlayerRoundState is a player's per-round progress record.
type PlayerRoundState struct {
	Prompts          PromptMap    `json:"prompts"`
	CurrentRoleIndex int          `json:"currentRoleIndex"`
	Status           PlayerStatus `json:"status"`
	FinalPrompt      string       `json:"finalPrompt,omitempty"`
	// ResultImage is hydrated from the image payload store on load and
	// stripped from the session record on save.
	ResultImage string `json:"resultImage,omitempty"`
	Score       int    `json:"score,omitempty"`
	GeneratedAt int64  `json:"generatedAt,omitempty"`
	UpdatedAt   int64  `json:"updatedAt,omitempty"`
}

// NewPlayerRoundState returns a fresh entry in the given status.
func NewPlayerRoundState(status PlayerStatus) *PlayerRoundState {
	return &PlayerRoundState{
		Prompts:          NewPromptMap(),
		CurrentRoleIndex: 0,
		Status:           status,
		UpdatedAt:        NowMillis(),
	}
}

// Reset returns the entry to a clean slate in the given status, clearing
// prompts, cursor, score and any generation output.
func (e *PlayerRoundState) Reset(status PlayerStatus) {
	e.Prompts = NewPromptMap()
	e.CurrentRoleIndex = 0
	e.Status = status
	e.FinalPrompt = ""
	e.ResultImage = ""
	e.Score = 0
	e.GeneratedAt = 0
	e.UpdatedAt = NowMillis()
}

// Clone returns an independent copy.
func (e *PlayerRoundState) Clone() *PlayerRoundState {
	out := *e
	out.Prompts = e.Prompts.Clone()
	return &out
}

// Round is one of the four fixed round slots.
type Round struct {
	ID                string                       `json:"id"`
	Index             int                          `json:"index"`
	GoalImageBase64   string                       `json:"goalImageBase64,omitempty"`
	GoalImageMimeType string                       `json:"goalImageMimeType,omitempty"`
	Status            SessionStatus                `json:"status"`
	Entries           map[string]*PlayerRoundState `json:"entries"`
	CreatedAt         int64                        `json:"createdAt"`
	UpdatedAt         int64                        `json:"updatedAt"`
}

// Clone returns an independent copy.
func (r *Round) Clone() *Round {
	out := *r
	out.Entries = make(map[string]*PlayerRoundState, len(r.Entries))
	for playerID, entry := range r.Entries {
		out.Entries[playerID] = entry.Clone()
	}
	return &out
}

// Player is a participant in display (join) order.
type Player struct {
	ID       string `json:"id"`
	Name     string `json:"name"`
	JoinedAt int64  `json:"joinedAt"`
	// Top-level collection fields mirror round progress for lobby display;
	// the per-round entries are authoritative.
	Prompts          PromptMap    `json:"prompts"`
	CurrentRoleIndex int          `json:"currentRoleIndex"`
	Status           PlayerStatus `json:"status"`
	FinalPrompt      string       `json:"finalPrompt,omitempty"`
	ResultImage      string       `json:"resultImage,omitempty"`
	GeneratedAt      int64        `json:"generatedAt,omitempty"`
}

// Clone returns an independent copy.
func (p *Player) Clone() *Player {
	out := *p
	out.Prompts = p.Prompts.Clone()
	return &out
}

// Session is the root aggregate, one per game room.
type Session struct {
	ID string `json:"id"`
	// HostSecret authorizes privileged operations. It is persisted with the
	// record but never serialized to clients (see Snapshot).
	HostSecret string        `json:"hostSecret,omitempty"`
	HostName   string        `json:"hostName"`
	CreatedAt  int64         `json:"createdAt"`
	UpdatedAt  int64         `json:"updatedAt"`
	Status     SessionStatus `json:"status"`
	// APIKey optionally overrides the server's image generation credential.
	APIKey            string    `json:"apiKey,omitempty"`
	CurrentRoundIndex int       `json:"currentRoundIndex"`
	Players           []*Player `json:"players"`
	Rounds            []*Round  `json:"rounds"`
}

// Round returns the round at index, or nil when out of range.
func (s *Session) Round(index int) *Round {
	if index < 0 || index >= len(s.Rounds) {
		return nil
	}
	return s.Rounds[index]
}

// Player returns the player with the given id, or nil.
func (s *Session) Player(id string) *Player {
	for _, p := range s.Players {
		if p.ID == id {
			return p
		}
	}
	return nil
}

// Clone returns a deep copy; mutating the copy never affects the original.
func (s *Session) Clone() *Session {
	out := *s
	out.Players = make([]*Player, len(s.Players))
	for i, p := range s.Players {
		out.Players[i] = p.Clone()
	}
	out.Rounds = make([]*Round, len(s.Rounds))
	for i, r := range s.Rounds {
		out.Rounds[i] = r.Clone()
	}
	return &out
}

// NowMillis is the timestamp unit used across session records.
func NowMillis() int64 {
	return time.Now().UnixMilli()
}
