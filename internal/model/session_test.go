package model

import (
	"encoding/json"
	"strings"
	"testing"
)

func TestCloneIndependence(t *testing.T) {
	prompt := "original"
	s := &Session{
		ID: "ROOM42",
		Players: []*Player{
			{ID: "p1", Name: "Alice", Prompts: NewPromptMap()},
		},
		Rounds: []*Round{
			{
				ID:    "r1",
				Index: 1,
				Entries: map[string]*PlayerRoundState{
					"p1": {Prompts: PromptMap{RoleHead: &prompt}, Status: PlayerCollecting},
				},
			},
		},
	}

	c := s.Clone()
	c.Players[0].Name = "Mallory"
	*c.Rounds[0].Entries["p1"].Prompts[RoleHead] = "tampered"
	c.Rounds[0].Entries["p2"] = NewPlayerRoundState(PlayerPending)

	if s.Players[0].Name != "Alice" {
		t.Fatal("clone shares player structs")
	}
	if *s.Rounds[0].Entries["p1"].Prompts[RoleHead] != "original" {
		t.Fatal("clone shares prompt values")
	}
	if len(s.Rounds[0].Entries) != 1 {
		t.Fatal("clone shares the entries map")
	}
}

func TestNewPromptMapHasAllRoles(t *testing.T) {
	m := NewPromptMap()
	if len(m) != len(RoleOrder) {
		t.Fatalf("expected %d keys, got %d", len(RoleOrder), len(m))
	}
	for _, role := range RoleOrder {
		v, ok := m[role]
		if !ok {
			t.Fatalf("role %s missing", role)
		}
		if v != nil {
			t.Fatalf("role %s should start unset", role)
		}
	}
}

func TestSnapshotRedaction(t *testing.T) {
	s := &Session{
		ID:         "ROOM42",
		HostSecret: "very-secret",
		APIKey:     "raw-credential",
		Players:    []*Player{},
		Rounds:     []*Round{},
	}
	data, err := json.Marshal(NewSnapshot(s))
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}
	text := string(data)
	if strings.Contains(text, "very-secret") || strings.Contains(text, "raw-credential") {
		t.Fatalf("snapshot leaked a secret: %s", text)
	}
	if !strings.Contains(text, `"hasApiKey":true`) {
		t.Fatal("snapshot should carry the credential presence flag")
	}
}

func TestSessionAccessors(t *testing.T) {
	s := &Session{
		Players: []*Player{{ID: "p1"}},
		Rounds:  []*Round{{Index: 1}},
	}
	if s.Round(-1) != nil || s.Round(1) != nil {
		t.Fatal("out-of-range round should be nil")
	}
	if s.Round(0) == nil {
		t.Fatal("round 0 should resolve")
	}
	if s.Player("p1") == nil || s.Player("nope") != nil {
		t.Fatal("player lookup by id")
	}
}
