package session

import (
	"context"
	"strings"
	"testing"
	"time"

	"dressup/internal/storage"
)

func newTestImageStore(chunkSize int) (*ImageStore, *storage.MemoryKV) {
	kv := storage.NewMemoryKV()
	s := NewImageStore(kv, time.Hour)
	s.chunkSize = chunkSize
	return s, kv
}

func TestImageStoreRoundTrip(t *testing.T) {
	s, _ := newTestImageStore(4)
	ctx := context.Background()
	payload := strings.Repeat("abcdefghij", 3) // 30 chars, 8 chunks of 4

	if err := s.Put(ctx, "S", "R", "P", payload); err != nil {
		t.Fatalf("put: %v", err)
	}
	got, ok, err := s.Get(ctx, "S", "R", "P")
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if !ok || got != payload {
		t.Fatalf("payload mismatch: ok=%v got %q", ok, got)
	}
}

func TestImageStoreAbsent(t *testing.T) {
	s, _ := newTestImageStore(4)
	_, ok, err := s.Get(context.Background(), "S", "R", "P")
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if ok {
		t.Fatal("missing payload should report absent")
	}
}

func TestImageStoreShrinkLeavesNoOrphans(t *testing.T) {
	s, kv := newTestImageStore(4)
	ctx := context.Background()

	if err := s.Put(ctx, "S", "R", "P", strings.Repeat("x", 16)); err != nil {
		t.Fatalf("put long: %v", err)
	}
	if err := s.Put(ctx, "S", "R", "P", "shorty"); err != nil {
		t.Fatalf("put short: %v", err)
	}

	got, ok, err := s.Get(ctx, "S", "R", "P")
	if err != nil || !ok || got != "shorty" {
		t.Fatalf("expected replacement payload, got ok=%v %q err=%v", ok, got, err)
	}
	for index := 2; index < 4; index++ {
		if _, present, _ := kv.Get(ctx, s.chunkKey("S", "R", "P", index)); present {
			t.Fatalf("trailing chunk %d should have been removed", index)
		}
	}
}

func TestImageStoreMissingChunkReportsAbsent(t *testing.T) {
	s, kv := newTestImageStore(4)
	ctx := context.Background()

	if err := s.Put(ctx, "S", "R", "P", strings.Repeat("x", 12)); err != nil {
		t.Fatalf("put: %v", err)
	}
	if err := kv.Del(ctx, s.chunkKey("S", "R", "P", 1)); err != nil {
		t.Fatalf("del: %v", err)
	}

	_, ok, err := s.Get(ctx, "S", "R", "P")
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if ok {
		t.Fatal("a payload with a missing chunk must surface as absent, never corrupt")
	}
}

func TestImageStoreEmptyPutDeletes(t *testing.T) {
	s, _ := newTestImageStore(4)
	ctx := context.Background()

	if err := s.Put(ctx, "S", "R", "P", "payload"); err != nil {
		t.Fatalf("put: %v", err)
	}
	if err := s.Put(ctx, "S", "R", "P", ""); err != nil {
		t.Fatalf("empty put: %v", err)
	}
	if _, ok, _ := s.Get(ctx, "S", "R", "P"); ok {
		t.Fatal("empty put should delete the payload")
	}
}

func TestImageStoreDeleteIdempotent(t *testing.T) {
	s, _ := newTestImageStore(4)
	ctx := context.Background()
	if err := s.Delete(ctx, "S", "R", "P"); err != nil {
		t.Fatalf("delete of absent payload should succeed: %v", err)
	}
}

func TestImageStoreUnparseableMeta(t *testing.T) {
	s, kv := newTestImageStore(4)
	ctx := context.Background()
	if err := kv.Set(ctx, s.metaKey("S", "R", "P"), "garbage", time.Hour); err != nil {
		t.Fatalf("set: %v", err)
	}
	_, ok, err := s.Get(ctx, "S", "R", "P")
	if err != nil || ok {
		t.Fatalf("unparseable metadata should read as absent, got ok=%v err=%v", ok, err)
	}
}
