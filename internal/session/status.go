package session

import "dressup/internal/model"

// ReduceEntries derives a round's status from its entries. This is the single
// source of truth the mutators consult; the stored round/session status fields
// exist so the live feed can compare cheaply, they are never set independently
// of this reduction except when a round is forced to collecting on start or
// advance.
//
// An empty entry map reduces to collecting: a round with no players yet is
// trivially not ready.
func ReduceEntries(entries map[string]*model.PlayerRoundState) model.SessionStatus {
	if len(entries) == 0 {
		return model.StatusCollecting
	}
	completed := 0
	settled := 0
	for _, entry := range entries {
		switch entry.Status {
		case model.PlayerCompleted:
			completed++
			settled++
		case model.PlayerReady:
			settled++
		}
	}
	switch {
	case completed == len(entries):
		return model.StatusCompleted
	case settled == len(entries):
		return model.StatusReady
	default:
		return model.StatusCollecting
	}
}

// applyCollectingReduction runs after a prompt submission: every entry ready
// or completed makes the round (and session) ready, anything else keeps both
// collecting. A full reduction over all entries, not just the triggering one.
func applyCollectingReduction(s *model.Session, r *model.Round) {
	if status := ReduceEntries(r.Entries); status == model.StatusReady || status == model.StatusCompleted {
		r.Status = model.StatusReady
		s.Status = model.StatusReady
	} else {
		r.Status = model.StatusCollecting
		s.Status = model.StatusCollecting
	}
}

// applyForwardReduction runs after a generation result lands. It only ever
// advances the round forward; a round mid-generation stays generating until
// every entry settles.
func applyForwardReduction(s *model.Session, r *model.Round) {
	switch ReduceEntries(r.Entries) {
	case model.StatusCompleted:
		r.Status = model.StatusCompleted
		s.Status = model.StatusCompleted
	case model.StatusReady:
		r.Status = model.StatusReady
		s.Status = model.StatusReady
	}
}
