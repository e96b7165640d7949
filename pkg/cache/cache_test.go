package cache

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	memerrors "github.com/matzehuels/memtower/pkg/errors"
)

func TestNullCache(t *testing.T) {
	ctx := context.Background()
	c := NewNullCache()
	defer c.Close()

	if err := c.Set(ctx, "key", []byte("value"), time.Hour); err != nil {
		t.Fatalf("Set: %v", err)
	}
	data, hit, err := c.Get(ctx, "key")
	if err != nil || hit || data != nil {
		t.Errorf("Get = %q, %v, %v; want miss", data, hit, err)
	}
	if err := c.Delete(ctx, "key"); err != nil {
		t.Errorf("Delete: %v", err)
	}
}

func TestFileCache(t *testing.T) {
	ctx := context.Background()
	c, err := NewFileCache(filepath.Join(t.TempDir(), "artifacts"))
	if err != nil {
		t.Fatalf("NewFileCache: %v", err)
	}

	if _, hit, _ := c.Get(ctx, "missing"); hit {
		t.Error("empty cache reported a hit")
	}

	if err := c.Set(ctx, "a", []byte("<svg/>"), time.Hour); err != nil {
		t.Fatalf("Set: %v", err)
	}
	data, hit, err := c.Get(ctx, "a")
	if err != nil || !hit || string(data) != "<svg/>" {
		t.Errorf("Get = %q, %v, %v", data, hit, err)
	}

	if err := c.Delete(ctx, "a"); err != nil {
		t.Fatalf("Delete: %v", err)
	}
	if _, hit, _ := c.Get(ctx, "a"); hit {
		t.Error("deleted key still present")
	}
	if err := c.Delete(ctx, "a"); err != nil {
		t.Errorf("Delete of missing key: %v", err)
	}
}

func TestFileCacheExpiry(t *testing.T) {
	ctx := context.Background()
	c, err := NewFileCache(t.TempDir())
	if err != nil {
		t.Fatal(err)
	}

	if err := c.Set(ctx, "short", []byte("x"), time.Nanosecond); err != nil {
		t.Fatal(err)
	}
	time.Sleep(time.Millisecond)
	if _, hit, _ := c.Get(ctx, "short"); hit {
		t.Error("expired entry reported as hit")
	}
	if _, err := os.Stat(c.path("short")); !os.IsNotExist(err) {
		t.Error("expired entry not removed")
	}

	if err := c.Set(ctx, "forever", []byte("x"), 0); err != nil {
		t.Fatal(err)
	}
	if _, hit, _ := c.Get(ctx, "forever"); !hit {
		t.Error("zero ttl entry missing")
	}
}

func TestFileCacheCorruptEntry(t *testing.T) {
	ctx := context.Background()
	c, err := NewFileCache(t.TempDir())
	if err != nil {
		t.Fatal(err)
	}
	path := c.path("bad")
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(path, []byte("{not json"), 0o644); err != nil {
		t.Fatal(err)
	}
	if _, hit, err := c.Get(ctx, "bad"); hit || err != nil {
		t.Errorf("corrupt entry: hit=%v err=%v", hit, err)
	}
}

func TestFileCacheClear(t *testing.T) {
	ctx := context.Background()
	c, err := NewFileCache(t.TempDir())
	if err != nil {
		t.Fatal(err)
	}
	for _, k := range []string{"a", "b", "c"} {
		if err := c.Set(ctx, k, []byte(k), 0); err != nil {
			t.Fatal(err)
		}
	}

	n, err := c.Clear()
	if err != nil {
		t.Fatalf("Clear: %v", err)
	}
	if n != 3 {
		t.Errorf("Clear removed %d entries, want 3", n)
	}
	entries, _ := os.ReadDir(c.Dir())
	if len(entries) != 0 {
		t.Errorf("cache dir not empty: %v", entries)
	}
}

func TestOpen(t *testing.T) {
	ctx := context.Background()
	dir := t.TempDir()

	tests := []struct {
		url  string
		want string
	}{
		{"", "null"},
		{"none", "null"},
		{dir, "file"},
		{"file://" + dir, "file"},
	}
	for _, tt := range tests {
		t.Run(tt.url, func(t *testing.T) {
			c, err := Open(ctx, tt.url)
			if err != nil {
				t.Fatalf("Open: %v", err)
			}
			defer c.Close()
			var got string
			switch c.(type) {
			case NullCache:
				got = "null"
			case *FileCache:
				got = "file"
			}
			if got != tt.want {
				t.Errorf("Open(%q) = %T, want %s", tt.url, c, tt.want)
			}
		})
	}

	if _, err := Open(ctx, "memcached://localhost"); !errors.Is(err, ErrUnsupportedURL) {
		t.Errorf("unknown scheme: err = %v", err)
	}
}

func TestMongoDatabase(t *testing.T) {
	tests := map[string]string{
		"mongodb://localhost:27017":                   DefaultMongoDatabase,
		"mongodb://localhost:27017/":                  DefaultMongoDatabase,
		"mongodb://user:pw@localhost/traces?w=1":      "traces",
		"mongodb+srv://cluster.example.net/artifacts": "artifacts",
	}
	for uri, want := range tests {
		if got := mongoDatabase(uri); got != want {
			t.Errorf("mongoDatabase(%q) = %q, want %q", uri, got, want)
		}
	}
}

func TestHash(t *testing.T) {
	h := Hash([]byte("hello"))
	if h != Hash([]byte("hello")) {
		t.Error("Hash is not deterministic")
	}
	if h == Hash([]byte("world")) {
		t.Error("different inputs share a hash")
	}
	if len(h) != 64 {
		t.Errorf("len(Hash) = %d, want 64", len(h))
	}
}

func TestDefaultKeyer(t *testing.T) {
	k := NewDefaultKeyer()
	base := ArtifactKeyOpts{
		LayoutKeyOpts: LayoutKeyOpts{Shape: "structured", TargetWidth: 10000, HeightCap: 10000},
		Format:        "svg",
	}

	key := k.ArtifactKey("abc", base)
	if !strings.HasPrefix(key, "artifact:") {
		t.Errorf("ArtifactKey = %q", key)
	}
	if key != k.ArtifactKey("abc", base) {
		t.Error("ArtifactKey is not deterministic")
	}

	variants := []func(*ArtifactKeyOpts){
		func(o *ArtifactKeyOpts) { o.Format = "png" },
		func(o *ArtifactKeyOpts) { o.Tooltips = true },
		func(o *ArtifactKeyOpts) { o.TargetWidth = 500 },
		func(o *ArtifactKeyOpts) { o.RulesHash = "r1" },
		func(o *ArtifactKeyOpts) { o.CaseSensitive = true },
	}
	for i, mutate := range variants {
		o := base
		mutate(&o)
		if k.ArtifactKey("abc", o) == key {
			t.Errorf("variant %d shares the base key", i)
		}
	}
	if k.ArtifactKey("abd", base) == key {
		t.Error("different traces share a key")
	}

	if sk := k.StatsKey("abc", base.LayoutKeyOpts); !strings.HasPrefix(sk, "stats:") {
		t.Errorf("StatsKey = %q", sk)
	}
}

func TestScopedKeyer(t *testing.T) {
	inner := NewDefaultKeyer()
	scoped := NewScopedKeyer(inner, "staging:")
	opts := ArtifactKeyOpts{Format: "json"}

	if got, want := scoped.ArtifactKey("h", opts), "staging:"+inner.ArtifactKey("h", opts); got != want {
		t.Errorf("ArtifactKey = %q, want %q", got, want)
	}
	if got := NewScopedKeyer(nil, "p:").StatsKey("h", LayoutKeyOpts{}); got != "p:"+inner.StatsKey("h", LayoutKeyOpts{}) {
		t.Errorf("nil inner StatsKey = %q", got)
	}
}

func TestRetryableError(t *testing.T) {
	if Retryable(nil) != nil {
		t.Error("Retryable(nil) should be nil")
	}
	base := errors.New("connection reset")
	err := Retryable(base)
	if !IsRetryable(err) || !errors.Is(err, base) {
		t.Errorf("Retryable(%v) lost its identity", base)
	}
	if err.Error() != base.Error() {
		t.Errorf("message = %q", err.Error())
	}
	if IsRetryable(base) {
		t.Error("plain error reported retryable")
	}
}

func TestConnError(t *testing.T) {
	tests := []struct {
		name  string
		cause error
		code  memerrors.Code
	}{
		{"deadline", context.DeadlineExceeded, memerrors.ErrCodeTimeout},
		{"wrapped deadline", fmt.Errorf("dial: %w", context.DeadlineExceeded), memerrors.ErrCodeTimeout},
		{"refused", errors.New("dial tcp 127.0.0.1:1: connection refused"), memerrors.ErrCodeNetwork},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := connError("redis", tt.cause)
			if got := memerrors.GetCode(err); got != tt.code {
				t.Errorf("code = %q, want %q", got, tt.code)
			}
			if !errors.Is(err, tt.cause) {
				t.Errorf("%v does not wrap %v", err, tt.cause)
			}
		})
	}
}

func TestOpenUnreachableRedis(t *testing.T) {
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	_, err := Open(ctx, "redis://127.0.0.1:1/0")
	if err == nil {
		t.Fatal("expected error for unreachable redis")
	}
	switch code := memerrors.GetCode(err); code {
	case memerrors.ErrCodeNetwork, memerrors.ErrCodeTimeout:
	default:
		t.Errorf("code = %q, want NETWORK_ERROR or TIMEOUT", code)
	}
}

func TestRetryWithBackoff(t *testing.T) {
	retryDelay = time.Millisecond
	t.Cleanup(func() { retryDelay = 100 * time.Millisecond })

	ctx := context.Background()
	permanent := errors.New("permanent")
	transient := errors.New("transient")

	tests := []struct {
		name      string
		failures  int
		err       error
		wantCalls int
		wantErr   error
	}{
		{"success", 0, nil, 1, nil},
		{"permanent", 5, permanent, 1, permanent},
		{"recovers", 1, Retryable(transient), 2, nil},
		{"exhausted", 5, Retryable(transient), 3, transient},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			calls := 0
			err := RetryWithBackoff(ctx, func() error {
				calls++
				if calls <= tt.failures {
					return tt.err
				}
				return nil
			})
			if err != tt.wantErr {
				t.Errorf("err = %v, want %v", err, tt.wantErr)
			}
			if calls != tt.wantCalls {
				t.Errorf("calls = %d, want %d", calls, tt.wantCalls)
			}
		})
	}
}

func TestRetryWithBackoffContextCancel(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	err := RetryWithBackoff(ctx, func() error {
		return Retryable(errors.New("down"))
	})
	if err != context.Canceled {
		t.Errorf("err = %v, want context.Canceled", err)
	}
}
