package storage

import (
	"context"
	"testing"
	"time"
)

func TestMemoryKVRoundTrip(t *testing.T) {
	kv := NewMemoryKV()
	ctx := context.Background()

	if err := kv.Set(ctx, "k", "v", 0); err != nil {
		t.Fatalf("set: %v", err)
	}
	got, ok, err := kv.Get(ctx, "k")
	if err != nil || !ok || got != "v" {
		t.Fatalf("get: ok=%v got=%q err=%v", ok, got, err)
	}

	exists, err := kv.Exists(ctx, "k")
	if err != nil || !exists {
		t.Fatalf("exists: %v %v", exists, err)
	}
	if exists, _ := kv.Exists(ctx, "missing"); exists {
		t.Fatal("missing key should not exist")
	}
}

func TestMemoryKVExpiry(t *testing.T) {
	kv := NewMemoryKV()
	ctx := context.Background()

	if err := kv.Set(ctx, "k", "v", 10*time.Millisecond); err != nil {
		t.Fatalf("set: %v", err)
	}
	time.Sleep(25 * time.Millisecond)

	if _, ok, _ := kv.Get(ctx, "k"); ok {
		t.Fatal("expired key should read as absent")
	}
}

func TestMemoryKVSetRenewsTTL(t *testing.T) {
	kv := NewMemoryKV()
	ctx := context.Background()

	kv.Set(ctx, "k", "v", 30*time.Millisecond)
	time.Sleep(20 * time.Millisecond)
	kv.Set(ctx, "k", "v2", 30*time.Millisecond)
	time.Sleep(20 * time.Millisecond)

	got, ok, _ := kv.Get(ctx, "k")
	if !ok || got != "v2" {
		t.Fatalf("renewed key should survive, ok=%v got=%q", ok, got)
	}
}

func TestMemoryKVDel(t *testing.T) {
	kv := NewMemoryKV()
	ctx := context.Background()

	kv.Set(ctx, "a", "1", 0)
	kv.Set(ctx, "b", "2", 0)
	if err := kv.Del(ctx, "a", "b", "never-existed"); err != nil {
		t.Fatalf("del: %v", err)
	}
	if _, ok, _ := kv.Get(ctx, "a"); ok {
		t.Fatal("deleted key should be gone")
	}
	if _, ok, _ := kv.Get(ctx, "b"); ok {
		t.Fatal("deleted key should be gone")
	}
}
