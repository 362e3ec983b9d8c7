package config

import (
	"context"
	"log/slog"
	"os"
	"path/filepath"
	"sync/atomic"
	"time"

	"github.com/fsnotify/fsnotify"
	"gopkg.in/yaml.v3"
)

// PolicyHolder provides lock-free reads of the active anti-spam policy and
// atomic swaps when the config file changes on disk.
type PolicyHolder struct {
	v atomic.Value // Policy
}

func NewPolicyHolder(p Policy) *PolicyHolder {
	h := &PolicyHolder{}
	h.v.Store(p)
	return h
}

// Current returns the active policy.
func (h *PolicyHolder) Current() Policy {
	return h.v.Load().(Policy)
}

// Set replaces the active policy. Invalid policies are ignored.
func (h *PolicyHolder) Set(p Policy) error {
	if err := p.Validate(); err != nil {
		return err
	}
	h.v.Store(p)
	return nil
}

const reloadDebounce = 250 * time.Millisecond

// Watch reloads the policy section whenever the config file is rewritten.
// It watches the parent directory because editors typically replace the file
// (rename+create) rather than writing in place. Blocks until ctx is done.
func (h *PolicyHolder) Watch(ctx context.Context, path string, log *slog.Logger) error {
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return err
	}
	defer watcher.Close()

	dir := filepath.Dir(path)
	if err := watcher.Add(dir); err != nil {
		return err
	}
	target := filepath.Clean(path)

	var timer *time.Timer
	reload := func() {
		if err := h.reloadFrom(target); err != nil {
			log.Warn("policy reload failed, keeping previous policy", "path", target, "error", err)
			return
		}
		log.Info("policy reloaded", "path", target)
	}

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case event, ok := <-watcher.Events:
			if !ok {
				return nil
			}
			if filepath.Clean(event.Name) != target {
				continue
			}
			if event.Has(fsnotify.Write) || event.Has(fsnotify.Create) {
				// Debounce: editors fire several events per save.
				if timer != nil {
					timer.Stop()
				}
				timer = time.AfterFunc(reloadDebounce, reload)
			}
		case err, ok := <-watcher.Errors:
			if !ok {
				return nil
			}
			log.Warn("policy watcher error", "error", err)
		}
	}
}

func (h *PolicyHolder) reloadFrom(path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return err
	}
	var file struct {
		Policy Policy `yaml:"policy"`
	}
	file.Policy = DefaultPolicy()
	if err := yaml.Unmarshal(data, &file); err != nil {
		return err
	}
	return h.Set(file.Policy)
}
