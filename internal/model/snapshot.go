package model

// Snapshot is the externally serialized view of a session. The host secret is
// removed and the raw credential is replaced by a presence flag; everything
// else matches the stored aggregate.
type Snapshot struct {
	ID                string        `json:"id"`
	HostName          string        `json:"hostName"`
	CreatedAt         int64         `json:"createdAt"`
	UpdatedAt         int64         `json:"updatedAt"`
	Status            SessionStatus `json:"status"`
	HasAPIKey         bool          `json:"hasApiKey"`
	CurrentRoundIndex int           `json:"currentRoundIndex"`
	Players           []*Player     `json:"players"`
	Rounds            []*Round      `json:"rounds"`
}

// NewSnapshot redacts a session for client consumption. The input is cloned
// first so callers may keep mutating their copy.
func NewSnapshot(s *Session) *Snapshot {
	c := s.Clone()
	return &Snapshot{
		ID:                c.ID,
		HostName:          c.HostName,
		CreatedAt:         c.CreatedAt,
		UpdatedAt:         c.UpdatedAt,
		Status:            c.Status,
		HasAPIKey:         c.APIKey != "",
		CurrentRoundIndex: c.CurrentRoundIndex,
		Players:           c.Players,
		Rounds:            c.Rounds,
	}
}
