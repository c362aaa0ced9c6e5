package cache

import (
	"context"
	"errors"
	"fmt"
	"net"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/redis/go-redis/v9"
)

func TestNullCache(t *testing.T) {
	ctx := context.Background()
	c := NewNullCache()
	defer c.Close()

	if err := c.Set(ctx, "key", []byte("value"), time.Hour); err != nil {
		t.Errorf("Set error: %v", err)
	}
	data, hit, err := c.Get(ctx, "key")
	if err != nil || hit || data != nil {
		t.Errorf("Get = %q, %v, %v; want miss", data, hit, err)
	}
	if err := c.Delete(ctx, "key"); err != nil {
		t.Errorf("Delete error: %v", err)
	}
}

func TestHash(t *testing.T) {
	h1 := Hash([]byte("hello"))
	if h1 != Hash([]byte("hello")) {
		t.Error("Hash should be deterministic")
	}
	if h1 == Hash([]byte("world")) {
		t.Error("Different inputs should produce different hashes")
	}
	if len(h1) != 64 {
		t.Errorf("Hash length should be 64, got %d", len(h1))
	}
}

func TestCacheable(t *testing.T) {
	if Cacheable(0) {
		t.Error("entropy-seeded request reported cacheable")
	}
	if !Cacheable(42) {
		t.Error("seeded request reported uncacheable")
	}
}

func TestDefaultKeyer(t *testing.T) {
	k := NewDefaultKeyer()
	base := ArtifactKeyOpts{Depth: 3, Iterations: 200, Gravity: 0.1, Scaling: 10, SlowDown: 1, Format: "svg", Theme: "light"}

	key := k.ArtifactKey("ADDR1", 7, base)
	if !strings.HasPrefix(key, KeyTypeArtifact+":") {
		t.Errorf("key %q lacks type prefix", key)
	}
	if strings.Contains(key, "ADDR1") {
		t.Errorf("key %q embeds the raw address", key)
	}
	if key != k.ArtifactKey("ADDR1", 7, base) {
		t.Error("ArtifactKey should be deterministic")
	}

	variants := map[string]string{
		"address": k.ArtifactKey("ADDR2", 7, base),
		"seed":    k.ArtifactKey("ADDR1", 8, base),
	}
	dark := base
	dark.Theme = "dark"
	variants["theme"] = k.ArtifactKey("ADDR1", 7, dark)
	deeper := base
	deeper.Depth = 4
	variants["depth"] = k.ArtifactKey("ADDR1", 7, deeper)
	dot := base
	dot.Format = "dot"
	variants["format"] = k.ArtifactKey("ADDR1", 7, dot)

	for name, v := range variants {
		if v == key {
			t.Errorf("changing %s did not change the key", name)
		}
	}
}

func TestScopedKeyer(t *testing.T) {
	scoped := NewScopedKeyer(nil, "prod:")
	key := scoped.ArtifactKey("ADDR1", 1, ArtifactKeyOpts{Format: "svg"})
	want := "prod:" + NewDefaultKeyer().ArtifactKey("ADDR1", 1, ArtifactKeyOpts{Format: "svg"})
	if key != want {
		t.Errorf("ScopedKeyer key = %q, want %q", key, want)
	}
}

func TestFileCache(t *testing.T) {
	ctx := context.Background()
	c, err := NewFileCache(t.TempDir())
	if err != nil {
		t.Fatal(err)
	}

	if _, hit, _ := c.Get(ctx, "k"); hit {
		t.Fatal("hit on empty cache")
	}
	if err := c.Set(ctx, "k", []byte("<svg/>"), 0); err != nil {
		t.Fatal(err)
	}
	data, hit, err := c.Get(ctx, "k")
	if err != nil || !hit || string(data) != "<svg/>" {
		t.Fatalf("Get = %q, %v, %v", data, hit, err)
	}
	if err := c.Delete(ctx, "k"); err != nil {
		t.Fatal(err)
	}
	if err := c.Delete(ctx, "k"); err != nil {
		t.Errorf("Delete of missing key: %v", err)
	}
	if _, hit, _ := c.Get(ctx, "k"); hit {
		t.Error("hit after Delete")
	}
}

func TestFileCacheExpiry(t *testing.T) {
	ctx := context.Background()
	c, _ := NewFileCache(t.TempDir())
	now := time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)
	c.now = func() time.Time { return now }

	_ = c.Set(ctx, "short", []byte("a"), time.Minute)
	_ = c.Set(ctx, "long", []byte("b"), time.Hour)
	_ = c.Set(ctx, "forever", []byte("c"), 0)

	now = now.Add(2 * time.Minute)
	if _, hit, _ := c.Get(ctx, "short"); hit {
		t.Error("expired entry returned")
	}
	if _, hit, _ := c.Get(ctx, "long"); !hit {
		t.Error("live entry missing")
	}

	now = now.Add(24 * time.Hour)
	n, err := c.Prune()
	if err != nil {
		t.Fatal(err)
	}
	if n != 1 {
		t.Errorf("Prune removed %d entries, want 1", n)
	}
	if _, hit, _ := c.Get(ctx, "forever"); !hit {
		t.Error("entry without ttl pruned")
	}
}

func TestFileCacheCorruptEntry(t *testing.T) {
	ctx := context.Background()
	c, _ := NewFileCache(t.TempDir())
	_ = c.Set(ctx, "k", []byte("x"), 0)
	if err := os.WriteFile(c.path("k"), []byte("{not json"), 0o644); err != nil {
		t.Fatal(err)
	}
	if _, hit, err := c.Get(ctx, "k"); hit || err != nil {
		t.Errorf("corrupt entry: hit=%v err=%v, want a silent miss", hit, err)
	}
	if _, err := os.Stat(c.path("k")); !errors.Is(err, os.ErrNotExist) {
		t.Error("corrupt entry left on disk")
	}
}

func TestFileCacheClear(t *testing.T) {
	ctx := context.Background()
	dir := t.TempDir()
	c, _ := NewFileCache(dir)
	for _, k := range []string{"a", "b", "c"} {
		_ = c.Set(ctx, k, []byte(k), 0)
	}
	n, err := c.Clear()
	if err != nil || n != 3 {
		t.Fatalf("Clear = %d, %v; want 3", n, err)
	}
	entries, _ := os.ReadDir(dir)
	if len(entries) != 0 {
		t.Errorf("%d entries left in %s", len(entries), filepath.Base(dir))
	}
}

func TestRetryableError(t *testing.T) {
	if Retryable(nil) != nil {
		t.Error("Retryable(nil) should return nil")
	}
	err := Retryable(ErrNetwork)
	if !IsRetryable(err) {
		t.Error("IsRetryable should return true for wrapped error")
	}
	if !errors.Is(err, ErrNetwork) {
		t.Error("wrapped error lost")
	}
	if IsRetryable(ErrClosed) {
		t.Error("IsRetryable should return false for unwrapped error")
	}
}

func TestRetryWithBackoff(t *testing.T) {
	ctx := context.Background()

	calls := 0
	err := RetryWithBackoff(ctx, 3, time.Millisecond, func() error {
		calls++
		return ErrClosed
	})
	if err != ErrClosed || calls != 1 {
		t.Errorf("non-retryable: err=%v calls=%d", err, calls)
	}

	calls = 0
	err = RetryWithBackoff(ctx, 3, time.Millisecond, func() error {
		calls++
		if calls < 2 {
			return Retryable(ErrNetwork)
		}
		return nil
	})
	if err != nil || calls != 2 {
		t.Errorf("retry then succeed: err=%v calls=%d", err, calls)
	}

	calls = 0
	err = RetryWithBackoff(ctx, 3, time.Millisecond, func() error {
		calls++
		return Retryable(ErrNetwork)
	})
	if !errors.Is(err, ErrNetwork) || calls != 3 {
		t.Errorf("exhausted: err=%v calls=%d", err, calls)
	}
}

func TestRetryWithBackoffContextCancel(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	err := RetryWithBackoff(ctx, 3, time.Hour, func() error {
		return Retryable(ErrNetwork)
	})
	if err != context.Canceled {
		t.Errorf("Should return context error: %v", err)
	}
}

func TestClassifyTimeouts(t *testing.T) {
	ctx := context.Background()
	timeouts := []error{
		fmt.Errorf("dial tcp 10.0.0.1:6379: %w", context.DeadlineExceeded),
		&net.OpError{Op: "read", Net: "tcp", Err: os.ErrDeadlineExceeded},
	}
	if _, err := (&net.Dialer{Timeout: time.Nanosecond}).Dial("tcp", "192.0.2.1:6379"); err != nil {
		timeouts = append(timeouts, err)
	}
	for _, raw := range timeouts {
		got := classify(ctx, raw)
		if !errors.Is(got, ErrNetwork) || !IsRetryable(got) {
			t.Errorf("classify(%v) = %v; want a retryable ErrNetwork", raw, got)
		}
	}

	cancelled, cancel := context.WithCancel(ctx)
	cancel()
	raw := fmt.Errorf("dial tcp: %w", context.Canceled)
	if got := classify(cancelled, raw); got != raw || IsRetryable(got) {
		t.Errorf("classify after cancel = %v; want the raw error", got)
	}
	if classify(ctx, nil) != nil {
		t.Error("classify(nil) != nil")
	}
}

func TestRedisCacheUnreachable(t *testing.T) {
	ctx := context.Background()
	client := redis.NewClient(&redis.Options{Addr: "127.0.0.1:1", MaxRetries: -1, DialTimeout: 100 * time.Millisecond})
	c := NewRedisCache(client, WithRetry(2, time.Millisecond))

	_, hit, err := c.Get(ctx, "k")
	if hit || !errors.Is(err, ErrNetwork) {
		t.Errorf("Get = %v, %v; want ErrNetwork", hit, err)
	}
	if err := c.Set(ctx, "k", []byte("v"), time.Minute); !errors.Is(err, ErrNetwork) {
		t.Errorf("Set error = %v", err)
	}

	if err := c.Close(); err != nil {
		t.Fatal(err)
	}
	if err := c.Close(); err != nil {
		t.Errorf("second Close: %v", err)
	}
	if _, _, err := c.Get(ctx, "k"); !errors.Is(err, ErrClosed) {
		t.Errorf("Get after Close = %v", err)
	}
}

func TestDialRedisUnreachable(t *testing.T) {
	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()
	if _, err := DialRedis(ctx, "127.0.0.1:1"); !errors.Is(err, ErrNetwork) {
		t.Errorf("DialRedis error = %v, want ErrNetwork", err)
	}
}

// TestRedisCacheRoundTrip runs against a real server when FLOWGRAPH_TEST_REDIS
// names one.
func TestRedisCacheRoundTrip(t *testing.T) {
	addr := os.Getenv("FLOWGRAPH_TEST_REDIS")
	if addr == "" {
		t.Skip("FLOWGRAPH_TEST_REDIS not set")
	}
	ctx := context.Background()
	c, err := DialRedis(ctx, addr, WithRedisPrefix("flowgraph-test:"))
	if err != nil {
		t.Fatal(err)
	}
	defer c.Close()

	if err := c.Set(ctx, "k", []byte("<svg/>"), time.Minute); err != nil {
		t.Fatal(err)
	}
	data, hit, err := c.Get(ctx, "k")
	if err != nil || !hit || string(data) != "<svg/>" {
		t.Fatalf("Get = %q, %v, %v", data, hit, err)
	}
	_ = c.Delete(ctx, "k")
	if _, hit, _ := c.Get(ctx, "k"); hit {
		t.Error("hit after Delete")
	}
}
