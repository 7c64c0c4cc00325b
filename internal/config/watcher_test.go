package config

import (
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/danmuck/actormgr/internal/testutil/testlog"
)

func writeConfig(t *testing.T, path, listen string) {
	t.Helper()
	data := []byte("[server]\nlisten_addr = \"" + listen + "\"\n")
	if err := os.WriteFile(path, data, 0o600); err != nil {
		t.Fatalf("write config: %v", err)
	}
}

func TestWatcherReloadNotifiesCallbacks(t *testing.T) {
	testlog.Start(t)
	clearEnv(t)
	path := filepath.Join(t.TempDir(), "managerd.toml")
	writeConfig(t, path, ":7001")

	w, err := NewWatcher(path, 10*time.Millisecond)
	if err != nil {
		t.Fatalf("new watcher: %v", err)
	}
	defer w.Stop()

	var (
		mu  sync.Mutex
		got []string
	)
	w.OnChange(func(old, next Config) {
		mu.Lock()
		defer mu.Unlock()
		got = append(got, old.Server.ListenAddr+"->"+next.Server.ListenAddr)
	})
	w.OnChange(func(Config, Config) { panic("callback failure") })

	writeConfig(t, path, ":7002")
	if err := w.Reload(); err != nil {
		t.Fatalf("reload: %v", err)
	}
	if w.Current().Server.ListenAddr != ":7002" {
		t.Fatalf("unexpected current config: %+v", w.Current().Server)
	}
	mu.Lock()
	defer mu.Unlock()
	if len(got) != 1 || got[0] != ":7001->:7002" {
		t.Fatalf("unexpected callbacks: %v", got)
	}
}

func TestWatcherKeepsConfigOnInvalidReload(t *testing.T) {
	testlog.Start(t)
	clearEnv(t)
	path := filepath.Join(t.TempDir(), "managerd.toml")
	writeConfig(t, path, ":7001")

	w, err := NewWatcher(path, 0)
	if err != nil {
		t.Fatalf("new watcher: %v", err)
	}
	defer w.Stop()

	writeConfig(t, path, "")
	if err := w.Reload(); err == nil {
		t.Fatalf("expected reload failure for empty listen addr")
	}
	if w.Current().Server.ListenAddr != ":7001" {
		t.Fatalf("expected previous config kept, got %+v", w.Current().Server)
	}
}

func TestWatcherObservesFileWrites(t *testing.T) {
	testlog.Start(t)
	clearEnv(t)
	path := filepath.Join(t.TempDir(), "managerd.toml")
	writeConfig(t, path, ":7001")

	w, err := NewWatcher(path, 100*time.Millisecond)
	if err != nil {
		t.Fatalf("new watcher: %v", err)
	}
	changed := make(chan Config, 16)
	w.OnChange(func(_, next Config) { changed <- next })
	if err := w.Start(); err != nil {
		t.Fatalf("start watcher: %v", err)
	}
	defer w.Stop()

	writeConfig(t, path, ":7003")
	deadline := time.After(5 * time.Second)
	for {
		select {
		case next := <-changed:
			if next.Server.ListenAddr == ":7003" {
				return
			}
		case <-deadline:
			t.Fatalf("timed out waiting for reload, current %+v", w.Current().Server)
		}
	}
}
