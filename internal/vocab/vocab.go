// Package vocab loads vocabulary (.voc) resource files and provides the
// phrase-matching helpers the playback skill relies on: exact utterance
// matching against a vocabulary and stripping the trigger word from an
// utterance to recover the search phrase.
//
// Vocabulary files are plain text, one accepted form per line. Lookup checks
// the skill's own resources first, then the shared framework resources.
// Loaded files are cached per language and name; an optional filesystem
// watcher invalidates cache entries when a .voc file changes on disk.
package vocab

import (
	"bufio"
	"context"
	"os"
	"path/filepath"
	"regexp"
	"strings"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"

	"github.com/chordflow/encore/internal/errors"
	"github.com/chordflow/encore/internal/logging"
)

// DefaultLang is the language used when a caller passes an empty lang code.
const DefaultLang = "en-us"

// debounceDelay coalesces the burst of filesystem events most editors emit
// for a single save.
const debounceDelay = 50 * time.Millisecond

// Matcher resolves and caches vocabulary files.
type Matcher struct {
	skillDir     string
	frameworkDir string
	defaultLang  string
	log          *logging.Logger

	// cache maps lang+name to the vocabulary's lines.
	cache map[string][]string
	mu    sync.RWMutex
}

// Option configures a Matcher.
type Option func(*Matcher)

// WithDefaultLang overrides the language used when none is given.
func WithDefaultLang(lang string) Option {
	return func(m *Matcher) {
		if lang != "" {
			m.defaultLang = lang
		}
	}
}

// WithLogger sets the logger. A nil logger falls back to a no-op logger.
func WithLogger(log *logging.Logger) Option {
	return func(m *Matcher) {
		if log != nil {
			m.log = log.WithComponent("vocab")
		}
	}
}

// New creates a Matcher that searches skillDir first and frameworkDir second.
// Either directory may be empty, in which case it is skipped during lookup.
func New(skillDir, frameworkDir string, opts ...Option) *Matcher {
	m := &Matcher{
		skillDir:     skillDir,
		frameworkDir: frameworkDir,
		defaultLang:  DefaultLang,
		log:          logging.Nop(),
		cache:        make(map[string][]string),
	}
	for _, opt := range opts {
		opt(m)
	}
	return m
}

// MatchExact reports whether the utterance is exactly one of the vocabulary's
// entries. Unlike a containment match, "play next song" does not match a
// vocabulary holding only "play". A missing vocabulary file is an error:
// callers depend on the file existing and should fail loudly rather than
// silently never matching.
func (m *Matcher) MatchExact(utterance, name, lang string) (bool, error) {
	if utterance == "" {
		return false, nil
	}

	lines, err := m.load(name, lang)
	if err != nil {
		return false, err
	}

	for _, line := range lines {
		if strings.TrimSpace(line) == utterance {
			return true, nil
		}
	}
	return false, nil
}

// ExtractPhrase removes everything up to and including the first occurrence
// of the trigger word from the utterance, returning the trimmed remainder.
// "could you play some smooth jazz" with trigger "play" yields
// "some smooth jazz". If the trigger never occurs the utterance is returned
// trimmed but otherwise intact.
func (m *Matcher) ExtractPhrase(utterance, trigger string) string {
	if trigger == "" {
		return strings.TrimSpace(utterance)
	}

	re, err := regexp.Compile("^.*?" + regexp.QuoteMeta(trigger))
	if err != nil {
		return strings.TrimSpace(utterance)
	}
	return strings.TrimSpace(re.ReplaceAllString(utterance, ""))
}

// Preload resolves and caches a vocabulary without matching anything,
// surfacing a missing file before it matters at runtime.
func (m *Matcher) Preload(name, lang string) error {
	_, err := m.load(name, lang)
	return err
}

// Invalidate drops the cached entry for a vocabulary, forcing a reload on
// next use.
func (m *Matcher) Invalidate(name, lang string) {
	if lang == "" {
		lang = m.defaultLang
	}
	m.mu.Lock()
	delete(m.cache, lang+name)
	m.mu.Unlock()
}

// InvalidateAll drops every cached vocabulary.
func (m *Matcher) InvalidateAll() {
	m.mu.Lock()
	m.cache = make(map[string][]string)
	m.mu.Unlock()
}

// CacheSize returns the number of cached vocabularies.
func (m *Matcher) CacheSize() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.cache)
}

// load returns the lines of the named vocabulary, reading from disk on a
// cache miss.
func (m *Matcher) load(name, lang string) ([]string, error) {
	if lang == "" {
		lang = m.defaultLang
	}
	key := lang + name

	m.mu.RLock()
	lines, ok := m.cache[key]
	m.mu.RUnlock()
	if ok {
		return lines, nil
	}

	path, err := m.resolve(name, lang)
	if err != nil {
		return nil, err
	}

	lines, err = readLines(path)
	if err != nil {
		return nil, errors.NewVocabError("failed to read vocabulary", err).
			WithFile(filepath.Base(path)).
			WithLang(lang)
	}

	m.mu.Lock()
	m.cache[key] = lines
	m.mu.Unlock()

	m.log.Debug("vocabulary loaded", "name", name, "lang", lang, "path", path, "entries", len(lines))
	return lines, nil
}

// resolve finds the .voc file for a vocabulary name, checking the skill's
// resources before the framework's shared text resources.
func (m *Matcher) resolve(name, lang string) (string, error) {
	var candidates []string
	if m.skillDir != "" {
		candidates = append(candidates, filepath.Join(m.skillDir, "vocab", lang, name+".voc"))
	}
	if m.frameworkDir != "" {
		candidates = append(candidates, filepath.Join(m.frameworkDir, "text", lang, name+".voc"))
	}

	for _, path := range candidates {
		if info, err := os.Stat(path); err == nil && !info.IsDir() {
			return path, nil
		}
	}

	return "", errors.NewNotFoundError("vocabulary", name+".voc").
		WithCause(errors.ErrVocabNotFound)
}

func readLines(path string) ([]string, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	var lines []string
	scanner := bufio.NewScanner(f)
	for scanner.Scan() {
		lines = append(lines, scanner.Text())
	}
	return lines, scanner.Err()
}

// Watch invalidates cached vocabularies when their .voc files change on
// disk. It blocks until ctx is cancelled or the watcher fails. Events are
// debounced so an editor's save burst produces a single invalidation.
func (m *Matcher) Watch(ctx context.Context) error {
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return errors.Wrap(err, "vocab: failed to create watcher")
	}
	defer watcher.Close()

	for _, root := range []string{m.skillDir, m.frameworkDir} {
		if root == "" {
			continue
		}
		if err := watchDirRecursive(watcher, root); err != nil {
			m.log.Warn("failed to watch vocabulary dir", "dir", root, "error", err)
		}
	}

	debounce := time.NewTimer(0)
	if !debounce.Stop() {
		<-debounce.C
	}

	pending := make(map[string]struct{})

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()

		case event, ok := <-watcher.Events:
			if !ok {
				return nil
			}
			if event.Op&(fsnotify.Write|fsnotify.Create|fsnotify.Remove|fsnotify.Rename) == 0 {
				continue
			}
			if filepath.Ext(event.Name) != ".voc" {
				// New directories still need watching for future .voc files.
				if event.Op&fsnotify.Create != 0 {
					if info, err := os.Stat(event.Name); err == nil && info.IsDir() {
						_ = watchDirRecursive(watcher, event.Name)
					}
				}
				continue
			}

			pending[event.Name] = struct{}{}
			debounce.Reset(debounceDelay)

		case <-debounce.C:
			for path := range pending {
				m.invalidatePath(path)
			}
			pending = make(map[string]struct{})

		case err, ok := <-watcher.Errors:
			if !ok {
				return nil
			}
			m.log.Warn("vocabulary watcher error", "error", err)
		}
	}
}

// invalidatePath maps a changed file path back to its cache entry. The
// parent directory name is the language code, the file stem the vocabulary
// name.
func (m *Matcher) invalidatePath(path string) {
	name := strings.TrimSuffix(filepath.Base(path), ".voc")
	lang := filepath.Base(filepath.Dir(path))

	m.mu.Lock()
	_, cached := m.cache[lang+name]
	delete(m.cache, lang+name)
	m.mu.Unlock()

	if cached {
		m.log.Info("vocabulary reloaded", "name", name, "lang", lang)
	}
}

func watchDirRecursive(watcher *fsnotify.Watcher, root string) error {
	return filepath.Walk(root, func(path string, info os.FileInfo, err error) error {
		if err != nil {
			return nil
		}
		if info.IsDir() {
			_ = watcher.Add(path)
		}
		return nil
	})
}
