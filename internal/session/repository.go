package session

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"dressup/internal/model"
	"dressup/internal/storage"
)

// DefaultTTL is how long an idle room survives. Every save renews it, so an
// active room keeps sliding forward.
const DefaultTTL = 6 * time.Hour

const sessionKeyPrefix = "session:"

// Repository persists Session aggregates as single JSON records keyed by room
// code. Result image payloads are stripped out on save and rehydrated on load;
// they live in the ImageStore because they routinely exceed a comfortable
// per-record size.
type Repository struct {
	kv     storage.KV
	images *ImageStore
	ttl    time.Duration
}

// NewRepository builds a repository and its companion image store over kv.
func NewRepository(kv storage.KV, ttl time.Duration) *Repository {
	if ttl <= 0 {
		ttl = DefaultTTL
	}
	return &Repository{kv: kv, images: NewImageStore(kv, ttl), ttl: ttl}
}

// Images exposes the companion payload store sharing this repository's TTL.
func (r *Repository) Images() *ImageStore {
	return r.images
}

func sessionKey(id string) string {
	return sessionKeyPrefix + id
}

// Load returns an independent copy of the session, or nil when absent.
// Every entry with a stored payload gets its ResultImage rehydrated.
func (r *Repository) Load(ctx context.Context, id string) (*model.Session, error) {
	data, ok, err := r.kv.Get(ctx, sessionKey(id))
	if err != nil {
		return nil, fmt.Errorf("load session %s: %w", id, err)
	}
	if !ok {
		return nil, nil
	}

	var s model.Session
	if err := json.Unmarshal([]byte(data), &s); err != nil {
		return nil, fmt.Errorf("decode session %s: %w", id, err)
	}

	for _, round := range s.Rounds {
		for playerID, entry := range round.Entries {
			payload, ok, err := r.images.Get(ctx, s.ID, round.ID, playerID)
			if err != nil {
				return nil, fmt.Errorf("hydrate image %s/%s/%s: %w", s.ID, round.ID, playerID, err)
			}
			if ok {
				entry.ResultImage = payload
			}
		}
	}
	return &s, nil
}

// Save stamps updatedAt, persists present result images to the image store,
// writes the stripped record with a renewed TTL, and returns an independent
// copy of the logical state the caller handed in (images included).
//
// The updatedAt stamp is strictly increasing across saves: two mutations
// landing within the same millisecond must still produce distinct values,
// otherwise live feeds comparing the stamp would silently skip the second.
func (r *Repository) Save(ctx context.Context, s *model.Session) (*model.Session, error) {
	now := model.NowMillis()
	if now <= s.UpdatedAt {
		now = s.UpdatedAt + 1
	}
	s.UpdatedAt = now

	record := s.Clone()
	for _, round := range record.Rounds {
		for playerID, entry := range round.Entries {
			if entry.ResultImage != "" {
				if err := r.images.Put(ctx, record.ID, round.ID, playerID, entry.ResultImage); err != nil {
					return nil, fmt.Errorf("store image %s/%s/%s: %w", record.ID, round.ID, playerID, err)
				}
			}
			entry.ResultImage = ""
		}
	}

	data, err := json.Marshal(record)
	if err != nil {
		return nil, fmt.Errorf("encode session %s: %w", s.ID, err)
	}
	if err := r.kv.Set(ctx, sessionKey(s.ID), string(data), r.ttl); err != nil {
		return nil, fmt.Errorf("save session %s: %w", s.ID, err)
	}
	return s.Clone(), nil
}

// Exists reports whether a room code is taken. Used for collision-free code
// generation only.
func (r *Repository) Exists(ctx context.Context, id string) (bool, error) {
	return r.kv.Exists(ctx, sessionKey(id))
}
