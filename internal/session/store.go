package session

import (
	"context"
	"crypto/rand"
	"fmt"

	"github.com/google/uuid"

	"dressup/internal/model"
)

// roomCodeAlphabet excludes visually ambiguous characters (I, O, 0, 1).
const roomCodeAlphabet = "ABCDEFGHJKLMNPQRSTUVWXYZ23456789"

const roomCodeLength = 6

// Store is the session state machine. Every mutating operation follows the
// same pattern: load the aggregate, validate preconditions, mutate in memory,
// save, notify. The repository provides no cross-operation locking; concurrent
// writers to the same room race at whole-session granularity and the last
// writer wins, which is accepted for this workload. Each operation's internal
// invariants (cursor advancement, status reduction) stay self-consistent
// regardless.
type Store struct {
	repo     *Repository
	notifier *Notifier
}

// NewStore builds the state machine over a repository. notifier may be nil.
func NewStore(repo *Repository, notifier *Notifier) *Store {
	return &Store{repo: repo, notifier: notifier}
}

// Repository exposes the backing repository (read path for live feeds).
func (st *Store) Repository() *Repository {
	return st.repo
}

func (st *Store) notify(id string) {
	if st.notifier != nil {
		st.notifier.Notify(id)
	}
}

func (st *Store) save(ctx context.Context, s *model.Session) (*model.Session, error) {
	saved, err := st.repo.Save(ctx, s)
	if err != nil {
		return nil, err
	}
	st.notify(s.ID)
	return saved, nil
}

func (st *Store) load(ctx context.Context, id string) (*model.Session, error) {
	s, err := st.repo.Load(ctx, id)
	if err != nil {
		return nil, err
	}
	if s == nil {
		return nil, notFound("session %s not found", id)
	}
	return s, nil
}

func ensureRound(s *model.Session, roundIndex int) (*model.Round, error) {
	round := s.Round(roundIndex)
	if round == nil {
		return nil, notFound("round %d not found", roundIndex+1)
	}
	return round, nil
}

func ensureEntry(round *model.Round, playerID string) (*model.PlayerRoundState, error) {
	entry, ok := round.Entries[playerID]
	if !ok {
		return nil, notFound("player not found in this round")
	}
	return entry, nil
}

// Create makes a new session: fresh room code, fresh host secret, four empty
// rounds, no players, waiting, currentRoundIndex -1. The returned session
// includes the host secret; it is handed to the creator exactly once.
func (st *Store) Create(ctx context.Context, hostName string) (*model.Session, error) {
	id, err := st.generateRoomCode(ctx)
	if err != nil {
		return nil, err
	}

	now := model.NowMillis()
	s := &model.Session{
		ID:                id,
		HostSecret:        uuid.NewString(),
		HostName:          hostName,
		CreatedAt:         now,
		UpdatedAt:         now,
		Status:            model.StatusWaiting,
		CurrentRoundIndex: -1,
		Players:           []*model.Player{},
		Rounds:            make([]*model.Round, 0, model.RoundCount),
	}
	for i := 0; i < model.RoundCount; i++ {
		s.Rounds = append(s.Rounds, &model.Round{
			ID:        uuid.NewString(),
			Index:     i + 1,
			Status:    model.StatusWaiting,
			Entries:   make(map[string]*model.PlayerRoundState),
			CreatedAt: now,
			UpdatedAt: now,
		})
	}
	return st.save(ctx, s)
}

// Join appends a player and creates that player's entry in every round. A late
// joiner dropped into a round already collecting starts collecting immediately
// instead of waiting.
func (st *Store) Join(ctx context.Context, id, name string) (*model.Session, *model.Player, error) {
	s, err := st.load(ctx, id)
	if err != nil {
		return nil, nil, err
	}
	if len(s.Players) >= model.MaxPlayers {
		return nil, nil, capacityExceeded("session is full (maximum %d players)", model.MaxPlayers)
	}

	player := &model.Player{
		ID:       uuid.NewString(),
		Name:     name,
		JoinedAt: model.NowMillis(),
		Prompts:  model.NewPromptMap(),
		Status:   model.PlayerPending,
	}
	s.Players = append(s.Players, player)

	for _, round := range s.Rounds {
		status := model.PlayerPending
		if round.Status == model.StatusCollecting {
			status = model.PlayerCollecting
		}
		round.Entries[player.ID] = model.NewPlayerRoundState(status)
		round.UpdatedAt = model.NowMillis()
	}

	saved, err := st.save(ctx, s)
	if err != nil {
		return nil, nil, err
	}
	return saved, player.Clone(), nil
}

// UpdateRoundGoalImage sets the reference image of a round. No status change.
func (st *Store) UpdateRoundGoalImage(ctx context.Context, id string, roundIndex int, base64, mimeType string) (*model.Session, error) {
	s, err := st.load(ctx, id)
	if err != nil {
		return nil, err
	}
	round, err := ensureRound(s, roundIndex)
	if err != nil {
		return nil, err
	}
	round.GoalImageBase64 = base64
	round.GoalImageMimeType = mimeType
	round.UpdatedAt = model.NowMillis()
	return st.save(ctx, s)
}

// UpdateAPIKey sets the session-level image generation credential override.
// Host authorization is the caller's responsibility (ValidateHost).
func (st *Store) UpdateAPIKey(ctx context.Context, id, apiKey string) (*model.Session, error) {
	s, err := st.load(ctx, id)
	if err != nil {
		return nil, err
	}
	s.APIKey = apiKey
	return st.save(ctx, s)
}

// StartRound begins (or explicitly re-runs) collection for a round. Requires
// the goal image. Every current player's entry is reset to collecting with a
// cleared cursor, and any stored result payload for the pair is deleted.
func (st *Store) StartRound(ctx context.Context, id string, roundIndex int) (*model.Session, error) {
	s, err := st.load(ctx, id)
	if err != nil {
		return nil, err
	}
	round, err := ensureRound(s, roundIndex)
	if err != nil {
		return nil, err
	}
	if round.GoalImageBase64 == "" {
		return nil, invalidState("round goal image is missing")
	}

	s.CurrentRoundIndex = roundIndex
	s.Status = model.StatusCollecting
	if err := st.collectRound(ctx, s, round); err != nil {
		return nil, err
	}
	return st.save(ctx, s)
}

// collectRound forces a round into collecting and wipes every present
// player's entry along with its stored payload.
func (st *Store) collectRound(ctx context.Context, s *model.Session, round *model.Round) error {
	round.Status = model.StatusCollecting
	round.UpdatedAt = model.NowMillis()
	for _, player := range s.Players {
		entry, ok := round.Entries[player.ID]
		if !ok {
			entry = model.NewPlayerRoundState(model.PlayerCollecting)
			round.Entries[player.ID] = entry
		}
		entry.Reset(model.PlayerCollecting)
		if err := st.repo.Images().Delete(ctx, s.ID, round.ID, player.ID); err != nil {
			return fmt.Errorf("clear image %s/%s/%s: %w", s.ID, round.ID, player.ID, err)
		}
	}
	return nil
}

// SubmitPrompt records the next role prompt for a player. Submissions are
// strictly ordered by the entry cursor; the fifth accepted prompt flips the
// entry to ready. Round and session status are recomputed from all entries
// after every submission.
func (st *Store) SubmitPrompt(ctx context.Context, id string, roundIndex int, playerID, prompt string) (*model.Session, error) {
	s, err := st.load(ctx, id)
	if err != nil {
		return nil, err
	}
	round, err := ensureRound(s, roundIndex)
	if err != nil {
		return nil, err
	}
	if round.Status != model.StatusCollecting && round.Status != model.StatusReady {
		return nil, invalidState("round is not collecting prompts at the moment")
	}
	entry, err := ensureEntry(round, playerID)
	if err != nil {
		return nil, err
	}
	if entry.Status != model.PlayerCollecting {
		return nil, invalidState("player is not currently entering prompts")
	}
	if entry.CurrentRoleIndex >= len(model.RoleOrder) {
		return nil, invalidState("all prompts already collected for this player")
	}

	role := model.RoleOrder[entry.CurrentRoleIndex]
	entry.Prompts[role] = &prompt
	entry.CurrentRoleIndex++
	entry.UpdatedAt = model.NowMillis()
	if entry.CurrentRoleIndex >= len(model.RoleOrder) {
		entry.Status = model.PlayerReady
	}

	applyCollectingReduction(s, round)
	round.UpdatedAt = model.NowMillis()
	return st.save(ctx, s)
}

// SetPlayerGenerating marks an entry (and coarsely the round and session) as
// generating. Last writer wins when several players generate concurrently.
func (st *Store) SetPlayerGenerating(ctx context.Context, id string, roundIndex int, playerID string) (*model.Session, error) {
	s, err := st.load(ctx, id)
	if err != nil {
		return nil, err
	}
	round, err := ensureRound(s, roundIndex)
	if err != nil {
		return nil, err
	}
	entry, err := ensureEntry(round, playerID)
	if err != nil {
		return nil, err
	}

	entry.Status = model.PlayerGenerating
	entry.UpdatedAt = model.NowMillis()
	round.Status = model.StatusGenerating
	round.UpdatedAt = model.NowMillis()
	s.Status = model.StatusGenerating
	return st.save(ctx, s)
}

// SetPlayerResult stores a generation result and completes the entry. No
// phase guard beyond existence: a result may overwrite a previous one, the
// generate handler gates triggering separately.
func (st *Store) SetPlayerResult(ctx context.Context, id string, roundIndex int, playerID, finalPrompt, image string) (*model.Session, error) {
	s, err := st.load(ctx, id)
	if err != nil {
		return nil, err
	}
	round, err := ensureRound(s, roundIndex)
	if err != nil {
		return nil, err
	}
	entry, err := ensureEntry(round, playerID)
	if err != nil {
		return nil, err
	}

	entry.FinalPrompt = finalPrompt
	entry.ResultImage = image
	entry.GeneratedAt = model.NowMillis()
	entry.Status = model.PlayerCompleted
	entry.UpdatedAt = model.NowMillis()

	applyForwardReduction(s, round)
	round.UpdatedAt = model.NowMillis()
	return st.save(ctx, s)
}

// SetPlayerScore records the host's score for an entry. Range validation is
// the caller's concern; scoring never changes workflow state.
func (st *Store) SetPlayerScore(ctx context.Context, id string, roundIndex int, playerID string, score int) (*model.Session, error) {
	s, err := st.load(ctx, id)
	if err != nil {
		return nil, err
	}
	round, err := ensureRound(s, roundIndex)
	if err != nil {
		return nil, err
	}
	entry, err := ensureEntry(round, playerID)
	if err != nil {
		return nil, err
	}

	entry.Score = score
	entry.UpdatedAt = model.NowMillis()
	round.UpdatedAt = model.NowMillis()
	return st.save(ctx, s)
}

// AdvanceRound moves to the next round, resetting its entries to collecting
// exactly like StartRound. On the last round it marks the session completed
// and leaves the index unchanged; calling it again is a no-op beyond another
// save. Unlike StartRound it does not require the next round's goal image:
// the host is trusted to have preloaded all four before starting.
func (st *Store) AdvanceRound(ctx context.Context, id string) (*model.Session, error) {
	s, err := st.load(ctx, id)
	if err != nil {
		return nil, err
	}
	if s.CurrentRoundIndex < 0 {
		return nil, invalidState("no round has started yet")
	}
	if s.CurrentRoundIndex >= len(s.Rounds)-1 {
		s.Status = model.StatusCompleted
		return st.save(ctx, s)
	}

	s.CurrentRoundIndex++
	round := s.Rounds[s.CurrentRoundIndex]
	if err := st.collectRound(ctx, s, round); err != nil {
		return nil, err
	}
	s.Status = model.StatusCollecting
	return st.save(ctx, s)
}

// Reset returns the whole session to waiting: no current round, every player
// and entry back to pending, every stored payload deleted.
func (st *Store) Reset(ctx context.Context, id string) (*model.Session, error) {
	s, err := st.load(ctx, id)
	if err != nil {
		return nil, err
	}

	s.Status = model.StatusWaiting
	s.CurrentRoundIndex = -1
	for _, player := range s.Players {
		player.Prompts = model.NewPromptMap()
		player.CurrentRoleIndex = 0
		player.Status = model.PlayerPending
		player.FinalPrompt = ""
		player.ResultImage = ""
		player.GeneratedAt = 0
	}
	for _, round := range s.Rounds {
		round.Status = model.StatusWaiting
		round.UpdatedAt = model.NowMillis()
		for playerID, entry := range round.Entries {
			entry.Reset(model.PlayerPending)
			if err := st.repo.Images().Delete(ctx, s.ID, round.ID, playerID); err != nil {
				return nil, fmt.Errorf("clear image %s/%s/%s: %w", s.ID, round.ID, playerID, err)
			}
		}
	}
	return st.save(ctx, s)
}

// Get returns the current session state, or a NotFound error.
func (st *Store) Get(ctx context.Context, id string) (*model.Session, error) {
	return st.load(ctx, id)
}

// ValidateHost compares the secret against the stored one. It returns false
// for both an unknown room and a wrong secret; callers cannot distinguish the
// two from the boolean.
func (st *Store) ValidateHost(ctx context.Context, id, hostSecret string) bool {
	if hostSecret == "" {
		return false
	}
	s, err := st.repo.Load(ctx, id)
	if err != nil || s == nil {
		return false
	}
	return s.HostSecret == hostSecret
}

// generateRoomCode draws 6-character codes until one is free.
func (st *Store) generateRoomCode(ctx context.Context) (string, error) {
	for attempts := 0; attempts < 10; attempts++ {
		buf := make([]byte, roomCodeLength)
		if _, err := rand.Read(buf); err != nil {
			return "", err
		}
		code := make([]byte, roomCodeLength)
		for i := range code {
			code[i] = roomCodeAlphabet[int(buf[i])%len(roomCodeAlphabet)]
		}
		exists, err := st.repo.Exists(ctx, string(code))
		if err != nil {
			return "", err
		}
		if !exists {
			return string(code), nil
		}
	}
	return "", unavailable("failed to generate a unique room code")
}
