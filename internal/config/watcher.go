package config

import (
	"errors"
	"fmt"
	"path/filepath"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"
	"github.com/rs/zerolog/log"
)

const DefaultDebounce = 500 * time.Millisecond

// ChangeFunc receives the previous and the newly loaded configuration.
type ChangeFunc func(old, next Config)

// Watcher reloads one config file when it changes on disk. A reload that
// fails to load or validate keeps the previous configuration.
type Watcher struct {
	path     string
	debounce time.Duration
	fs       *fsnotify.Watcher

	mu      sync.RWMutex
	current Config

	cbMu      sync.RWMutex
	callbacks []ChangeFunc

	done chan struct{}
	wg   sync.WaitGroup
	once sync.Once
}

// NewWatcher loads path once and prepares to watch it.
func NewWatcher(path string, debounce time.Duration) (*Watcher, error) {
	if debounce <= 0 {
		debounce = DefaultDebounce
	}
	abs, err := filepath.Abs(path)
	if err != nil {
		return nil, fmt.Errorf("config watch %s: %w", path, err)
	}
	cfg, err := Load(abs)
	if err != nil {
		return nil, err
	}
	fsw, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, fmt.Errorf("config watch %s: %w", path, err)
	}
	return &Watcher{
		path:     abs,
		debounce: debounce,
		fs:       fsw,
		current:  cfg,
		done:     make(chan struct{}),
	}, nil
}

// Start watches the file's directory so editors that replace the file by
// rename are still observed.
func (w *Watcher) Start() error {
	if err := w.fs.Add(filepath.Dir(w.path)); err != nil {
		return fmt.Errorf("config watch %s: %w", w.path, err)
	}
	w.wg.Add(1)
	go w.loop()
	return nil
}

func (w *Watcher) Stop() error {
	var err error
	w.once.Do(func() {
		close(w.done)
		err = w.fs.Close()
		w.wg.Wait()
	})
	return err
}

func (w *Watcher) Current() Config {
	w.mu.RLock()
	defer w.mu.RUnlock()
	return w.current
}

func (w *Watcher) OnChange(fn ChangeFunc) {
	w.cbMu.Lock()
	defer w.cbMu.Unlock()
	w.callbacks = append(w.callbacks, fn)
}

// Reload loads the file now and notifies callbacks on success.
func (w *Watcher) Reload() error {
	next, err := Load(w.path)
	if err != nil {
		return err
	}
	w.mu.Lock()
	old := w.current
	w.current = next
	w.mu.Unlock()

	w.cbMu.RLock()
	callbacks := append([]ChangeFunc(nil), w.callbacks...)
	w.cbMu.RUnlock()
	for _, cb := range callbacks {
		w.invoke(cb, old, next)
	}
	log.Info().Str("path", w.path).Msg("config reloaded")
	return nil
}

func (w *Watcher) invoke(cb ChangeFunc, old, next Config) {
	defer func() {
		if r := recover(); r != nil {
			log.Error().Interface("panic", r).Str("path", w.path).Msg("config change callback panicked")
		}
	}()
	cb(old, next)
}

func (w *Watcher) loop() {
	defer w.wg.Done()

	var timer *time.Timer
	defer func() {
		if timer != nil {
			timer.Stop()
		}
	}()

	for {
		select {
		case <-w.done:
			return
		case ev, ok := <-w.fs.Events:
			if !ok {
				return
			}
			if filepath.Clean(ev.Name) != w.path {
				continue
			}
			if !ev.Has(fsnotify.Write) && !ev.Has(fsnotify.Create) {
				continue
			}
			if timer != nil {
				timer.Stop()
			}
			timer = time.AfterFunc(w.debounce, func() {
				select {
				case <-w.done:
					return
				default:
				}
				if err := w.Reload(); err != nil {
					log.Warn().Err(err).Str("path", w.path).Msg("config reload failed; keeping previous config")
				}
			})
		case err, ok := <-w.fs.Errors:
			if !ok {
				return
			}
			if !errors.Is(err, fsnotify.ErrEventOverflow) {
				log.Warn().Err(err).Str("path", w.path).Msg("config watcher error")
			}
		}
	}
}
