package memory

import (
	"context"
	"encoding/gob"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sync"

	"github.com/hupe1980/interviewmesh/core"
	"github.com/hupe1980/interviewmesh/logging"
	"github.com/hupe1980/interviewmesh/model"
)

// Entry is the metadata record stored alongside each vector,
// index-position-aligned with it.
type Entry struct {
	Text      string          `json:"text"`
	SessionID string          `json:"session_id"`
	Scores    *core.ScoreCard `json:"scores,omitempty"`
	Topic     string          `json:"topic,omitempty"`
}

// SearchResult is an Entry annotated with its squared L2 distance to the
// query.
type SearchResult struct {
	Entry
	Distance float64 `json:"distance"`
}

// Options configure a Store.
type Options struct {
	// Dimension overrides the embedder's vector dimension. Zero keeps the
	// embedder's value.
	Dimension int
	Logger    logging.Logger
}

// Store is the shared semantic memory over past interview answers. All
// sessions write into one index + metadata pair; mutating operations are
// serialized internally to keep the two aligned, and both artifacts are
// rewritten to disk synchronously before each mutating call returns.
type Store struct {
	mu        sync.Mutex
	embedder  model.Embedder
	index     *flatIndex
	entries   []Entry
	indexPath string
	metaPath  string
	logger    logging.Logger
}

// NewStore opens (or creates) a store rooted at path. Two co-located files
// are used: <path>.index holding the serialized vectors and
// <path>_metadata.json holding the metadata array. Unreadable or corrupt
// files are discarded and the store starts empty.
func NewStore(embedder model.Embedder, path string, optFns ...func(o *Options)) (*Store, error) {
	opts := Options{}
	for _, fn := range optFns {
		fn(&opts)
	}
	dim := opts.Dimension
	if dim == 0 {
		dim = embedder.Dimension()
	}

	s := &Store{
		embedder:  embedder,
		index:     newFlatIndex(dim),
		indexPath: path + ".index",
		metaPath:  path + "_metadata.json",
		logger:    logging.OrNoOp(opts.Logger),
	}
	s.load()

	return s, nil
}

// load restores index and metadata from disk, tolerating absence or
// corruption of either file. If the pair disagrees on length the store
// starts empty rather than guessing an alignment.
func (s *Store) load() {
	index, err := readIndex(s.indexPath, s.index.dim)
	if err != nil {
		s.logger.Warn("memory.index.load_failed", "path", s.indexPath, "error", err)
		return
	}
	entries, err := readEntries(s.metaPath)
	if err != nil {
		s.logger.Warn("memory.metadata.load_failed", "path", s.metaPath, "error", err)
		return
	}
	if index.len() != len(entries) {
		s.logger.Warn("memory.load.misaligned", "vectors", index.len(), "entries", len(entries))
		return
	}
	s.index = index
	s.entries = entries
}

// Len returns the number of stored records.
func (s *Store) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.index.len()
}

// AddEmbedding embeds text via the embedding collaborator and appends the
// vector with its metadata record at the next index, persisting both
// structures before returning. The returned value is the new record's
// position. An embedding failure aborts the write entirely.
func (s *Store) AddEmbedding(ctx context.Context, text string, entry Entry) (int, error) {
	vec, err := s.embedder.Embed(ctx, text)
	if err != nil {
		return 0, fmt.Errorf("embed: %w", err)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	pos, err := s.index.add(vec)
	if err != nil {
		return 0, err
	}
	entry.Text = text
	s.entries = append(s.entries, entry)

	if err := s.persistLocked(); err != nil {
		// Roll back the in-memory append so index, metadata and disk agree.
		s.index.vectors = s.index.vectors[:pos]
		s.entries = s.entries[:pos]
		return 0, err
	}
	return pos, nil
}

// SearchSimilar embeds the query and returns the k closest records,
// ascending by squared L2 distance, annotated with that distance. k is
// clamped to the store size. When sessionFilter is non-empty, records of
// other sessions are dropped after the top-k scan, so fewer than k results
// may come back even if more matching records exist deeper in the index.
func (s *Store) SearchSimilar(ctx context.Context, query string, k int, sessionFilter string) ([]SearchResult, error) {
	s.mu.Lock()
	empty := s.index.len() == 0
	s.mu.Unlock()
	if empty {
		return []SearchResult{}, nil
	}

	vec, err := s.embedder.Embed(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("embed query: %w", err)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	positions, distances, err := s.index.search(vec, k)
	if err != nil {
		return nil, err
	}

	results := make([]SearchResult, 0, len(positions))
	for i, pos := range positions {
		entry := s.entries[pos]
		if sessionFilter != "" && entry.SessionID != sessionFilter {
			continue
		}
		results = append(results, SearchResult{Entry: entry, Distance: distances[i]})
	}
	return results, nil
}

// GetBySession returns every record owned by the session, insertion order
// preserved.
func (s *Store) GetBySession(sessionID string) []Entry {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []Entry
	for _, e := range s.entries {
		if e.SessionID == sessionID {
			out = append(out, e)
		}
	}
	return out
}

// DeleteSession removes every record owned by the session. The flat index
// has no deletion primitive, so the store is rebuilt from scratch:
// every retained record is re-embedded and reinserted into a fresh index,
// then both artifacts are persisted. A session with no records is a no-op
// that issues no embedding calls.
func (s *Store) DeleteSession(ctx context.Context, sessionID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	var remaining []Entry
	for _, e := range s.entries {
		if e.SessionID != sessionID {
			remaining = append(remaining, e)
		}
	}
	if len(remaining) == len(s.entries) {
		return nil
	}

	index := newFlatIndex(s.index.dim)
	entries := make([]Entry, 0, len(remaining))
	for _, e := range remaining {
		vec, err := s.embedder.Embed(ctx, e.Text)
		if err != nil {
			return fmt.Errorf("rebuild embed: %w", err)
		}
		if _, err := index.add(vec); err != nil {
			return err
		}
		entries = append(entries, e)
	}

	s.index = index
	s.entries = entries
	return s.persistLocked()
}

// Clear resets the store to an empty index and metadata and persists.
func (s *Store) Clear() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.index = newFlatIndex(s.index.dim)
	s.entries = nil
	return s.persistLocked()
}

// persistLocked rewrites both artifacts. Caller holds the mutex.
func (s *Store) persistLocked() error {
	if dir := filepath.Dir(s.indexPath); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("create index dir: %w", err)
		}
	}
	if err := writeIndex(s.indexPath, s.index); err != nil {
		return err
	}
	return writeEntries(s.metaPath, s.entries)
}

// indexFile is the on-disk representation of the flat index.
type indexFile struct {
	Dim     int
	Vectors [][]float32
}

func writeIndex(path string, ix *flatIndex) error {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("write index: %w", err)
	}
	defer f.Close()
	if err := gob.NewEncoder(f).Encode(indexFile{Dim: ix.dim, Vectors: ix.vectors}); err != nil {
		return fmt.Errorf("encode index: %w", err)
	}
	return nil
}

func readIndex(path string, dim int) (*flatIndex, error) {
	f, err := os.Open(path)
	if os.IsNotExist(err) {
		return newFlatIndex(dim), nil
	}
	if err != nil {
		return nil, err
	}
	defer f.Close()

	var file indexFile
	if err := gob.NewDecoder(f).Decode(&file); err != nil {
		return nil, fmt.Errorf("decode index: %w", err)
	}
	if file.Dim != dim {
		return nil, fmt.Errorf("%w: stored %d, expected %d", ErrDimensionMismatch, file.Dim, dim)
	}
	return &flatIndex{dim: file.Dim, vectors: file.Vectors}, nil
}

func writeEntries(path string, entries []Entry) error {
	if entries == nil {
		entries = []Entry{}
	}
	data, err := json.Marshal(entries)
	if err != nil {
		return fmt.Errorf("encode metadata: %w", err)
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return fmt.Errorf("write metadata: %w", err)
	}
	return nil
}

func readEntries(path string) ([]Entry, error) {
	data, err := os.ReadFile(path)
	if os.IsNotExist(err) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	var entries []Entry
	if err := json.Unmarshal(data, &entries); err != nil {
		return nil, fmt.Errorf("decode metadata: %w", err)
	}
	return entries, nil
}
