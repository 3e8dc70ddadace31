package memory_test

import (
	"context"
	"errors"
	"sync"
	"testing"

	"github.com/tailored-agentic-units/shopassist/memory"
)

func TestCache_Bootstrap_AllKeys(t *testing.T) {
	root := t.TempDir()
	writeTestFile(t, root, "shop_user_id", "u1")
	writeTestFile(t, root, "pref_currency", "INR")

	cache := memory.NewCache(memory.NewFileStore(root))
	if err := cache.Bootstrap(context.Background()); err != nil {
		t.Fatalf("Bootstrap() error = %v", err)
	}

	for _, key := range []string{"shop_user_id", "pref_currency"} {
		if _, ok := cache.Get(key); !ok {
			t.Errorf("Get(%s) = false, want true", key)
		}
	}
}

func TestCache_Bootstrap_WithPrefixes(t *testing.T) {
	root := t.TempDir()
	writeTestFile(t, root, "shop_user_id", "u1")
	writeTestFile(t, root, "pref_currency", "INR")

	cache := memory.NewCache(memory.NewFileStore(root))
	if err := cache.Bootstrap(context.Background(), "shop_"); err != nil {
		t.Fatalf("Bootstrap() error = %v", err)
	}

	val, ok := cache.Get("shop_user_id")
	if !ok {
		t.Fatal("Get(shop_user_id) = false, want true")
	}
	if string(val) != "u1" {
		t.Errorf("Get(shop_user_id) = %q, want %q", val, "u1")
	}

	if _, ok := cache.Get("pref_currency"); ok {
		t.Error("Get(pref_currency) should return false, not in bootstrap prefix")
	}
}

func TestCache_Bootstrap_EmptyStore(t *testing.T) {
	cache := memory.NewCache(memory.NewFileStore(t.TempDir()))
	if err := cache.Bootstrap(context.Background(), "shop_"); err != nil {
		t.Fatalf("Bootstrap() error = %v", err)
	}
	if _, ok := cache.Get("shop_user_id"); ok {
		t.Error("Get() on empty store should return false")
	}
}

func TestCache_Bootstrap_KeepsPendingWrites(t *testing.T) {
	root := t.TempDir()
	writeTestFile(t, root, "shop_user_id", "stored")

	cache := memory.NewCache(memory.NewFileStore(root))
	cache.Set("shop_user_id", []byte("pending"))

	if err := cache.Bootstrap(context.Background()); err != nil {
		t.Fatalf("Bootstrap() error = %v", err)
	}

	val, _ := cache.Get("shop_user_id")
	if string(val) != "pending" {
		t.Errorf("Bootstrap overwrote pending write: got %q", val)
	}
}

func TestCache_Set_DefensiveCopy(t *testing.T) {
	cache := memory.NewCache(memory.NewMapStore())

	input := []byte("original")
	cache.Set("key", input)
	input[0] = 'X'

	val, _ := cache.Get("key")
	if string(val) != "original" {
		t.Errorf("Set() did not copy input, got %q after mutation", val)
	}

	val[0] = 'Y'
	again, _ := cache.Get("key")
	if string(again) != "original" {
		t.Errorf("Get() returned mutable reference, got %q after mutation", again)
	}
}

func TestCache_Flush(t *testing.T) {
	store := memory.NewMapStore()
	ctx := context.Background()
	if err := store.Save(ctx, memory.Entry{Key: "shop_session_id", Value: []byte("old")}); err != nil {
		t.Fatalf("Save() error = %v", err)
	}

	cache := memory.NewCache(store)
	cache.Set("shop_user_id", []byte("u1"))
	cache.Delete("shop_session_id")

	// Nothing reaches the store before Flush.
	if _, err := store.Load(ctx, "shop_user_id"); !errors.Is(err, memory.ErrKeyNotFound) {
		t.Errorf("Load() before Flush error = %v, want ErrKeyNotFound", err)
	}

	if err := cache.Flush(ctx); err != nil {
		t.Fatalf("Flush() error = %v", err)
	}

	entries, err := store.Load(ctx, "shop_user_id")
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if string(entries[0].Value) != "u1" {
		t.Errorf("got %q, want %q", entries[0].Value, "u1")
	}
	if _, err := store.Load(ctx, "shop_session_id"); !errors.Is(err, memory.ErrKeyNotFound) {
		t.Errorf("deleted key still stored: error = %v", err)
	}
}

func TestCache_Concurrent(t *testing.T) {
	cache := memory.NewCache(memory.NewMapStore())
	const n = 100

	var wg sync.WaitGroup
	wg.Add(3 * n)
	for i := 0; i < n; i++ {
		go func() {
			defer wg.Done()
			cache.Set("shop_user_id", []byte("u"))
		}()
		go func() {
			defer wg.Done()
			_, _ = cache.Get("shop_user_id")
		}()
		go func() {
			defer wg.Done()
			_ = cache.Flush(context.Background())
		}()
	}
	wg.Wait()
}
