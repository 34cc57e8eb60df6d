// Package docs provides a knowledge source over a local directory of
// markdown and text documents. The corpus is indexed in memory and
// reindexed when files change on disk.
package docs

import (
	"context"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"

	"github.com/fsnotify/fsnotify"

	"github.com/custodia-labs/quorum-cli/internal/core/domain"
	"github.com/custodia-labs/quorum-cli/internal/core/ports/driven"
	"github.com/custodia-labs/quorum-cli/internal/logger"
	"github.com/custodia-labs/quorum-cli/internal/sources/queryutil"
)

// Ensure Source implements the interface.
var _ driven.KnowledgeSource = (*Source)(nil)

// Default configuration values.
const (
	DefaultMaxResults = 10
	DefaultPriority   = 5

	snippetLength = 240
)

// indexedExtensions are the file types included in the corpus.
var indexedExtensions = map[string]bool{
	".md":       true,
	".markdown": true,
	".txt":      true,
}

// Config holds configuration for the docs source.
type Config struct {
	// ID is the registry key (default: "docs").
	ID string

	// Root is the directory containing the documents (required).
	Root string

	// MaxResults caps documents returned per query (default: 10).
	MaxResults int

	// Priority orders the source in fallback plans.
	Priority int

	// Watch enables reindexing on file change events.
	Watch bool
}

// document is one indexed file.
type document struct {
	path    string
	title   string
	content string
	terms   map[string]int
}

// Source searches a local document corpus by keyword scoring.
type Source struct {
	root       string
	maxResults int
	meta       domain.SourceMetadata

	mu   sync.RWMutex
	docs map[string]*document

	watcher *fsnotify.Watcher
	done    chan struct{}
}

// New creates a docs source and builds the initial index.
func New(cfg Config) (*Source, error) {
	if cfg.Root == "" {
		return nil, fmt.Errorf("docs: root directory is required")
	}
	info, err := os.Stat(cfg.Root)
	if err != nil {
		return nil, fmt.Errorf("docs: %w", err)
	}
	if !info.IsDir() {
		return nil, fmt.Errorf("docs: %s is not a directory", cfg.Root)
	}
	if cfg.ID == "" {
		cfg.ID = "docs"
	}
	if cfg.MaxResults == 0 {
		cfg.MaxResults = DefaultMaxResults
	}
	if cfg.Priority == 0 {
		cfg.Priority = DefaultPriority
	}

	s := &Source{
		root:       cfg.Root,
		maxResults: cfg.MaxResults,
		docs:       make(map[string]*document),
		done:       make(chan struct{}),
		meta: domain.SourceMetadata{
			ID:          cfg.ID,
			Name:        "Local Docs",
			Description: "Local markdown and text documents: notes, READMEs, and internal docs",
			Capabilities: []string{
				"keyword search over local documents",
			},
			ExampleQueries: []string{
				"What do the onboarding notes say about VPN access?",
			},
			Priority: cfg.Priority,
		},
	}

	if err := s.reindex(); err != nil {
		return nil, err
	}

	if cfg.Watch {
		if err := s.startWatcher(); err != nil {
			return nil, err
		}
	}

	return s, nil
}

// Metadata returns the source descriptor.
func (s *Source) Metadata() domain.SourceMetadata {
	return s.meta
}

// IsAvailable reports whether the corpus directory still exists.
func (s *Source) IsAvailable(_ context.Context) bool {
	info, err := os.Stat(s.root)
	return err == nil && info.IsDir()
}

// Query scores indexed documents against the query keywords. Failures
// are reported in the result, never returned.
func (s *Source) Query(_ context.Context, qctx domain.QueryContext) domain.SourceResult {
	result := domain.SourceResult{SourceID: s.meta.ID}

	keywords := queryutil.Keywords(qctx.Query)
	if len(keywords) == 0 {
		result.Data = map[string]any{"documents": []any{}}
		return result
	}

	type scored struct {
		doc   *document
		score int
	}

	s.mu.RLock()
	var matches []scored
	for _, doc := range s.docs {
		score := 0
		for _, kw := range keywords {
			score += doc.terms[kw]
		}
		if score > 0 {
			matches = append(matches, scored{doc: doc, score: score})
		}
	}
	s.mu.RUnlock()

	sort.Slice(matches, func(i, j int) bool {
		if matches[i].score != matches[j].score {
			return matches[i].score > matches[j].score
		}
		return matches[i].doc.path < matches[j].doc.path
	})
	if len(matches) > s.maxResults {
		matches = matches[:s.maxResults]
	}

	documents := make([]map[string]any, 0, len(matches))
	for _, m := range matches {
		rel, err := filepath.Rel(s.root, m.doc.path)
		if err != nil {
			rel = m.doc.path
		}

		documents = append(documents, map[string]any{
			"path":    rel,
			"title":   m.doc.title,
			"score":   m.score,
			"snippet": snippetFor(m.doc.content, keywords),
		})

		result.Citations = append(result.Citations, domain.Citation{
			SourceID: s.meta.ID,
			Type:     domain.CitationDocument,
			ID:       rel,
			Title:    m.doc.title,
			URL:      "file://" + m.doc.path,
			Snippet:  snippetFor(m.doc.content, keywords),
		})
	}

	result.Data = map[string]any{"documents": documents}
	return result
}

// Close stops the file watcher if one is running.
func (s *Source) Close() error {
	close(s.done)
	if s.watcher != nil {
		return s.watcher.Close()
	}
	return nil
}

// reindex rebuilds the whole index from disk.
func (s *Source) reindex() error {
	docs := make(map[string]*document)

	err := filepath.WalkDir(s.root, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() {
			if strings.HasPrefix(d.Name(), ".") && path != s.root {
				return filepath.SkipDir
			}
			return nil
		}
		if !indexedExtensions[filepath.Ext(path)] {
			return nil
		}

		doc, err := loadDocument(path)
		if err != nil {
			logger.Warn("docs: skipping %s: %v", path, err)
			return nil
		}
		docs[path] = doc
		return nil
	})
	if err != nil {
		return fmt.Errorf("docs: index %s: %w", s.root, err)
	}

	s.mu.Lock()
	s.docs = docs
	s.mu.Unlock()

	logger.Debug("docs: indexed %d documents under %s", len(docs), s.root)
	return nil
}

// startWatcher begins watching the corpus for changes. Events trigger a
// single-file update; renames and removals drop the entry.
func (s *Source) startWatcher() error {
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("docs: create watcher: %w", err)
	}
	s.watcher = watcher

	err = filepath.WalkDir(s.root, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() && !strings.HasPrefix(d.Name(), ".") {
			return watcher.Add(path)
		}
		return nil
	})
	if err != nil {
		watcher.Close()
		return fmt.Errorf("docs: watch %s: %w", s.root, err)
	}

	go s.watchLoop()
	return nil
}

// watchLoop applies filesystem events to the index until Close.
func (s *Source) watchLoop() {
	for {
		select {
		case <-s.done:
			return

		case event, ok := <-s.watcher.Events:
			if !ok {
				return
			}
			s.handleEvent(event)

		case err, ok := <-s.watcher.Errors:
			if !ok {
				return
			}
			logger.Warn("docs: watcher error: %v", err)
		}
	}
}

// handleEvent updates the index for one filesystem event.
func (s *Source) handleEvent(event fsnotify.Event) {
	if event.Op.Has(fsnotify.Remove) || event.Op.Has(fsnotify.Rename) {
		s.mu.Lock()
		delete(s.docs, event.Name)
		s.mu.Unlock()
		return
	}

	if !event.Op.Has(fsnotify.Create) && !event.Op.Has(fsnotify.Write) {
		return
	}

	info, err := os.Stat(event.Name)
	if err != nil {
		return
	}
	if info.IsDir() {
		// New subdirectory: watch it and pick up its contents.
		if event.Op.Has(fsnotify.Create) {
			_ = s.watcher.Add(event.Name)
			if err := s.reindex(); err != nil {
				logger.Warn("docs: reindex failed: %v", err)
			}
		}
		return
	}
	if !indexedExtensions[filepath.Ext(event.Name)] {
		return
	}

	doc, err := loadDocument(event.Name)
	if err != nil {
		logger.Warn("docs: reload %s: %v", event.Name, err)
		return
	}

	s.mu.Lock()
	s.docs[event.Name] = doc
	s.mu.Unlock()
}

// loadDocument reads and tokenizes one file.
func loadDocument(path string) (*document, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	content := string(data)

	return &document{
		path:    path,
		title:   titleFor(path, content),
		content: content,
		terms:   queryutil.TermCounts(content),
	}, nil
}

// titleFor uses the first markdown heading, falling back to the file name.
func titleFor(path, content string) string {
	for _, line := range strings.Split(content, "\n") {
		line = strings.TrimSpace(line)
		if strings.HasPrefix(line, "#") {
			return strings.TrimSpace(strings.TrimLeft(line, "#"))
		}
	}
	return filepath.Base(path)
}

// snippetFor returns the first line containing any keyword.
func snippetFor(content string, keywords []string) string {
	for _, line := range strings.Split(content, "\n") {
		lower := strings.ToLower(line)
		for _, kw := range keywords {
			if strings.Contains(lower, kw) {
				return queryutil.Truncate(strings.TrimSpace(line), snippetLength)
			}
		}
	}
	return queryutil.Truncate(strings.TrimSpace(content), snippetLength)
}
