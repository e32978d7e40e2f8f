// Package store is the per-document segment store: it imports an XLIFF 2.0
// document into a relational model, serves paginated segment views, persists
// target edits with state transitions, maintains ranked alternative-
// translation matches, propagates confirmed translations to similar
// segments, and rebuilds the document for export.
package store

import (
	"database/sql"
	_ "embed"
	"fmt"
	"os"
	"regexp"
	"sync"

	"github.com/beevik/etree"
	_ "github.com/mattn/go-sqlite3"

	"github.com/seglab/xliffcat/internal/config"
	"github.com/seglab/xliffcat/internal/logging"
	"github.com/seglab/xliffcat/internal/tm"
)

//go:embed schema.sql
var schema string

// Store handles database operations for one document. Mutation entry points
// (segment update, match upsert, propagation, export rewrite) hold the write
// lock; listings hold the read lock, so reads may overlap each other but
// never a mutation.
type Store struct {
	mu  sync.RWMutex
	db  *sql.DB
	cfg config.Config
	log *logging.Logger

	xliffFile string
	srcLang   string
	tgtLang   string

	// document is the parsed source tree, carrying ids back-filled at
	// import so export reuses them.
	document *etree.Document

	memories tm.Pool
	merger   tm.Merger

	// compiled filter pattern cache, keyed by the last filter text
	patternMu   sync.Mutex
	lastFilter  string
	lastPattern *regexp.Regexp
}

// Open opens the store for an XLIFF file, creating and importing the
// database next to it on first use. srcLang and tgtLang override the
// document's own declared languages when non-empty.
func Open(xliffFile, srcLang, tgtLang string, cfg config.Config, log *logging.Logger) (*Store, error) {
	dbPath := xliffFile + ".db"
	_, err := os.Stat(dbPath)
	needsLoading := os.IsNotExist(err)

	db, err := sql.Open("sqlite3", dbPath)
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}

	s := &Store{
		db:        db,
		cfg:       cfg,
		log:       log,
		xliffFile: xliffFile,
		srcLang:   srcLang,
		tgtLang:   tgtLang,
	}

	doc := etree.NewDocument()
	if err := doc.ReadFromFile(xliffFile); err != nil {
		db.Close()
		return nil, fmt.Errorf("parse document: %w", err)
	}
	s.document = doc
	if root := doc.Root(); root != nil {
		if s.srcLang == "" {
			s.srcLang = root.SelectAttrValue("srcLang", cfg.SrcLang)
		}
		if s.tgtLang == "" {
			s.tgtLang = root.SelectAttrValue("trgLang", cfg.TgtLang)
		}
	}

	if needsLoading {
		if _, err := db.Exec(schema); err != nil {
			db.Close()
			return nil, fmt.Errorf("init schema: %w", err)
		}
		if err := s.importDocument(); err != nil {
			db.Close()
			os.Remove(dbPath)
			return nil, fmt.Errorf("import document: %w", err)
		}
		// Persist the ids back-filled during import so later sessions see them.
		if err := doc.WriteToFile(xliffFile); err != nil {
			db.Close()
			os.Remove(dbPath)
			return nil, fmt.Errorf("save document: %w", err)
		}
		log.Info("imported document", "file", xliffFile, "srcLang", s.srcLang, "tgtLang", s.tgtLang)
	}
	return s, nil
}

// SetMemories wires the translation-memory pool used for TM lookups and the
// fire-and-forget save of confirmed pairs.
func (s *Store) SetMemories(pool tm.Pool) { s.memories = pool }

// SetMerger wires the skeleton-merge collaborator used by ExportTranslations.
func (s *Store) SetMerger(m tm.Merger) { s.merger = m }

// SrcLang returns the document's source language.
func (s *Store) SrcLang() string { return s.srcLang }

// TgtLang returns the document's target language.
func (s *Store) TgtLang() string { return s.tgtLang }

// Size returns the number of translatable segments.
func (s *Store) Size() (int, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var count int
	err := s.db.QueryRow("SELECT count(*) FROM segments WHERE type='S'").Scan(&count)
	if err != nil {
		return 0, fmt.Errorf("count segments: %w", err)
	}
	return count, nil
}

// Close closes the database connection.
func (s *Store) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.db.Close()
}

// patternFor returns a compiled filter pattern, reusing the previous one
// when the filter text has not changed.
func (s *Store) patternFor(filterText string) (*regexp.Regexp, error) {
	s.patternMu.Lock()
	defer s.patternMu.Unlock()
	if s.lastPattern != nil && s.lastFilter == filterText {
		return s.lastPattern, nil
	}
	p, err := regexp.Compile(filterText)
	if err != nil {
		return nil, fmt.Errorf("compile filter: %w", err)
	}
	s.lastFilter = filterText
	s.lastPattern = p
	return p, nil
}
