package session

import (
	"context"
	"fmt"
	"strconv"
	"strings"
	"sync/atomic"
	"time"

	"golang.org/x/sync/errgroup"

	"dressup/internal/storage"
)

// DefaultChunkSize is the number of characters written per chunk record.
// Result payloads are base64 strings that can exceed the backing store's
// comfortable per-record size, so they are paginated manually.
const DefaultChunkSize = 900_000

// ImageStore persists result image payloads out-of-band from the session
// record, keyed by (session, round, player). A small metadata record holds the
// chunk count; chunk records follow under the same TTL.
type ImageStore struct {
	kv        storage.KV
	ttl       time.Duration
	chunkSize int
}

// NewImageStore builds a store writing records with the given TTL.
func NewImageStore(kv storage.KV, ttl time.Duration) *ImageStore {
	return &ImageStore{kv: kv, ttl: ttl, chunkSize: DefaultChunkSize}
}

func (s *ImageStore) metaKey(sessionID, roundID, playerID string) string {
	return fmt.Sprintf("image:%s:%s:%s:meta", sessionID, roundID, playerID)
}

func (s *ImageStore) chunkKey(sessionID, roundID, playerID string, index int) string {
	return fmt.Sprintf("image:%s:%s:%s:chunk:%d", sessionID, roundID, playerID, index)
}

// Put stores payload, replacing any previous payload for the key. An empty
// payload deletes. Chunk writes are issued concurrently and all awaited; when
// the new payload spans fewer chunks than the previous one, the now-orphaned
// trailing chunk records are removed so a reader can never see stale bytes
// beyond the declared count.
func (s *ImageStore) Put(ctx context.Context, sessionID, roundID, playerID, payload string) error {
	if payload == "" {
		return s.Delete(ctx, sessionID, roundID, playerID)
	}

	metaKey := s.metaKey(sessionID, roundID, playerID)
	previousCount, err := s.chunkCount(ctx, metaKey)
	if err != nil {
		return err
	}

	var chunks []string
	for offset := 0; offset < len(payload); offset += s.chunkSize {
		end := offset + s.chunkSize
		if end > len(payload) {
			end = len(payload)
		}
		chunks = append(chunks, payload[offset:end])
	}

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		return s.kv.Set(gctx, metaKey, strconv.Itoa(len(chunks)), s.ttl)
	})
	for index, chunk := range chunks {
		index, chunk := index, chunk
		g.Go(func() error {
			return s.kv.Set(gctx, s.chunkKey(sessionID, roundID, playerID, index), chunk, s.ttl)
		})
	}
	if err := g.Wait(); err != nil {
		return err
	}

	if previousCount > len(chunks) {
		var orphans []string
		for index := len(chunks); index < previousCount; index++ {
			orphans = append(orphans, s.chunkKey(sessionID, roundID, playerID, index))
		}
		return s.kv.Del(ctx, orphans...)
	}
	return nil
}

// Get reconstructs the payload. Absence of the metadata record, or of any
// declared chunk, yields ("", false, nil): no payload is the common case
// before generation, and a partially expired payload must never surface as a
// corrupt result.
func (s *ImageStore) Get(ctx context.Context, sessionID, roundID, playerID string) (string, bool, error) {
	count, err := s.chunkCount(ctx, s.metaKey(sessionID, roundID, playerID))
	if err != nil {
		return "", false, err
	}
	if count <= 0 {
		return "", false, nil
	}

	parts := make([]string, count)
	var missing atomic.Bool
	g, gctx := errgroup.WithContext(ctx)
	for index := 0; index < count; index++ {
		index := index
		g.Go(func() error {
			value, ok, err := s.kv.Get(gctx, s.chunkKey(sessionID, roundID, playerID, index))
			if err != nil {
				return err
			}
			if !ok {
				missing.Store(true)
				return nil
			}
			parts[index] = value
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return "", false, err
	}
	if missing.Load() {
		return "", false, nil
	}
	return strings.Join(parts, ""), true, nil
}

// Delete removes the metadata record and every declared chunk. Idempotent,
// tolerant of partial prior state.
func (s *ImageStore) Delete(ctx context.Context, sessionID, roundID, playerID string) error {
	metaKey := s.metaKey(sessionID, roundID, playerID)
	count, err := s.chunkCount(ctx, metaKey)
	if err != nil {
		return err
	}
	keys := []string{metaKey}
	for index := 0; index < count; index++ {
		keys = append(keys, s.chunkKey(sessionID, roundID, playerID, index))
	}
	return s.kv.Del(ctx, keys...)
}

func (s *ImageStore) chunkCount(ctx context.Context, metaKey string) (int, error) {
	value, ok, err := s.kv.Get(ctx, metaKey)
	if err != nil || !ok {
		return 0, err
	}
	count, err := strconv.Atoi(value)
	if err != nil || count < 0 {
		// Unparseable metadata is treated as no payload.
		return 0, nil
	}
	return count, nil
}
