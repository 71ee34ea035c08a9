package policyterms

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"
	"github.com/opdclaims/adjudicator/internal/claims"
	"github.com/rs/zerolog/log"
)

// FileSource serves policy terms from a JSON file and hot-reloads when the
// file changes, so plan updates do not require a restart.
type FileSource struct {
	mu      sync.RWMutex
	path    string
	terms   map[string]claims.PolicyTerms
	watcher *fsnotify.Watcher
	done    chan struct{}
}

// NewFileSource loads the file once and starts watching its directory.
// The file holds either a single terms document or an array of them;
// entries are keyed by their policy_id.
func NewFileSource(path string) (*FileSource, error) {
	fs := &FileSource{
		path: path,
		done: make(chan struct{}),
	}

	if err := fs.reload(); err != nil {
		return nil, fmt.Errorf("initial load: %w", err)
	}

	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, fmt.Errorf("create watcher: %w", err)
	}
	if err := watcher.Add(filepath.Dir(path)); err != nil {
		watcher.Close()
		return nil, fmt.Errorf("watch directory: %w", err)
	}
	fs.watcher = watcher

	go fs.watch()

	return fs, nil
}

func (f *FileSource) Terms(ctx context.Context, policyID string) (claims.PolicyTerms, error) {
	f.mu.RLock()
	defer f.mu.RUnlock()

	terms, ok := f.terms[policyID]
	if !ok {
		return claims.PolicyTerms{}, ErrNotFound
	}
	return terms, nil
}

func (f *FileSource) Close() error {
	close(f.done)
	if f.watcher != nil {
		return f.watcher.Close()
	}
	return nil
}

func (f *FileSource) reload() error {
	data, err := os.ReadFile(f.path)
	if err != nil {
		return fmt.Errorf("read terms file: %w", err)
	}

	loaded, err := parseTermsFile(data)
	if err != nil {
		return err
	}

	f.mu.Lock()
	f.terms = loaded
	f.mu.Unlock()

	log.Info().Str("path", f.path).Int("count", len(loaded)).Msg("policy terms loaded from file")
	return nil
}

func parseTermsFile(data []byte) (map[string]claims.PolicyTerms, error) {
	out := make(map[string]claims.PolicyTerms)

	var many []claims.PolicyTerms
	if err := json.Unmarshal(data, &many); err == nil {
		for _, t := range many {
			if t.PolicyID != "" {
				out[t.PolicyID] = t
			}
		}
		return out, nil
	}

	var one claims.PolicyTerms
	if err := json.Unmarshal(data, &one); err != nil {
		return nil, fmt.Errorf("parse terms file: %w", err)
	}
	if one.PolicyID == "" {
		return nil, fmt.Errorf("terms file entry has no policy_id")
	}
	out[one.PolicyID] = one
	return out, nil
}

func (f *FileSource) watch() {
	debounce := time.NewTimer(0)
	if !debounce.Stop() {
		<-debounce.C
	}

	for {
		select {
		case event, ok := <-f.watcher.Events:
			if !ok {
				return
			}
			if f.shouldHandle(event) {
				debounce.Reset(500 * time.Millisecond)
			}

		case <-debounce.C:
			if err := f.reload(); err != nil {
				log.Error().Err(err).Msg("failed to reload policy terms, keeping previous")
			}

		case err, ok := <-f.watcher.Errors:
			if !ok {
				return
			}
			log.Error().Err(err).Msg("terms watcher error")

		case <-f.done:
			return
		}
	}
}

func (f *FileSource) shouldHandle(event fsnotify.Event) bool {
	if !event.Has(fsnotify.Write) && !event.Has(fsnotify.Create) {
		return false
	}
	return filepath.Clean(event.Name) == filepath.Clean(f.path)
}
