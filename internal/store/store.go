package store

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/quizdrop/quizdrop-backend/internal/model"
)

// Store errors.
var (
	// ErrCorruptStore means the collection file exists but does not parse.
	ErrCorruptStore = errors.New("corrupt collection file")
	// ErrInvalidRef means a payload reference points outside the public dir.
	ErrInvalidRef = errors.New("invalid payload reference")
)

// publicPrefix is the URL prefix payload references are served under.
const publicPrefix = "/public/"

// Store is the only path to the filesystem: it owns the collection file,
// the public payload directory and the upload staging directory under a
// single storage root.
//
// The embedded RWMutex serializes access. Individual methods do not lock;
// callers hold the lock across read-modify-write sequences (write lock for
// any mutation, read lock for reads) so that a whole operation observes a
// consistent view. A restore takes the write lock for its full duration.
type Store struct {
	sync.RWMutex

	root       string
	collection string
	publicDir  string
	stagingDir string
	log        zerolog.Logger
}

// New creates a Store rooted at dataDir.
func New(dataDir string, log zerolog.Logger) *Store {
	return &Store{
		root:       dataDir,
		collection: filepath.Join(dataDir, "quizzes_metadata.json"),
		publicDir:  filepath.Join(dataDir, "public"),
		stagingDir: filepath.Join(dataDir, "uploads"),
		log:        log.With().Str("component", "store").Logger(),
	}
}

// Init creates the storage directories if they do not exist yet.
func (s *Store) Init() error {
	for _, dir := range []string{s.root, s.publicDir, s.stagingDir} {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("create dir %s: %w", dir, err)
		}
	}
	return nil
}

// Root returns the storage root directory.
func (s *Store) Root() string { return s.root }

// CollectionFile returns the path of the persisted collection.
func (s *Store) CollectionFile() string { return s.collection }

// PublicDir returns the payload directory.
func (s *Store) PublicDir() string { return s.publicDir }

// LoadCollection reads the full ordered collection of quiz records.
// A missing collection file yields an empty collection.
func (s *Store) LoadCollection() ([]model.QuizRecord, error) {
	data, err := os.ReadFile(s.collection)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return []model.QuizRecord{}, nil
		}
		return nil, fmt.Errorf("read collection: %w", err)
	}

	var records []model.QuizRecord
	if err := json.Unmarshal(data, &records); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrCorruptStore, err)
	}
	if records == nil {
		records = []model.QuizRecord{}
	}
	return records, nil
}

// SaveCollection serializes the full sequence and overwrites the collection
// file. This is a whole-file overwrite, never an append.
func (s *Store) SaveCollection(records []model.QuizRecord) error {
	data, err := json.MarshalIndent(records, "", "  ")
	if err != nil {
		return fmt.Errorf("encode collection: %w", err)
	}
	if err := os.WriteFile(s.collection, data, 0o644); err != nil {
		return fmt.Errorf("write collection: %w", err)
	}
	return nil
}

// StageUpload copies an in-flight upload into the private staging area and
// returns its path. Staged files are invisible to the public store until
// promoted.
func (s *Store) StageUpload(r io.Reader, ext string) (string, error) {
	if err := os.MkdirAll(s.stagingDir, 0o755); err != nil {
		return "", fmt.Errorf("create staging dir: %w", err)
	}

	path := filepath.Join(s.stagingDir, uuid.New().String()+ext)
	dst, err := os.Create(path)
	if err != nil {
		return "", fmt.Errorf("create staged file: %w", err)
	}
	defer dst.Close()

	if _, err := io.Copy(dst, r); err != nil {
		os.Remove(path)
		return "", fmt.Errorf("write staged file: %w", err)
	}
	return path, nil
}

// ReadStaged returns the contents of a staged upload.
func (s *Store) ReadStaged(path string) ([]byte, error) {
	return os.ReadFile(path)
}

// DiscardStaged removes a staged upload. An already-missing file is fine.
func (s *Store) DiscardStaged(path string) {
	if path == "" {
		return
	}
	if err := os.Remove(path); err != nil && !errors.Is(err, fs.ErrNotExist) {
		s.log.Warn().Err(err).Str("path", path).Msg("Failed to discard staged upload")
	}
}

// PromotePayload moves a staged upload into the public payload directory
// under a fresh name derived from the quiz title and the current time, and
// returns its public reference.
func (s *Store) PromotePayload(stagedPath, title string) (string, error) {
	if err := os.MkdirAll(s.publicDir, 0o755); err != nil {
		return "", fmt.Errorf("create public dir: %w", err)
	}

	// Nanosecond resolution keeps back-to-back promotes of the same title
	// from landing on the same name.
	name := "quiz-" + sanitizeName(title) + "-" + strconv.FormatInt(time.Now().UnixNano(), 10) + ".json"
	if err := os.Rename(stagedPath, filepath.Join(s.publicDir, name)); err != nil {
		return "", fmt.Errorf("promote payload: %w", err)
	}
	return publicPrefix + name, nil
}

// ReadPayload returns the stored payload bytes for a public reference.
func (s *Store) ReadPayload(ref string) ([]byte, error) {
	path, err := s.payloadPath(ref)
	if err != nil {
		return nil, err
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read payload: %w", err)
	}
	return data, nil
}

// DeletePayload unlinks the payload file behind a public reference.
// Callers decide whether a missing file is fatal; it is reported as-is.
func (s *Store) DeletePayload(ref string) error {
	path, err := s.payloadPath(ref)
	if err != nil {
		return err
	}
	if err := os.Remove(path); err != nil {
		return fmt.Errorf("delete payload: %w", err)
	}
	return nil
}

// payloadPath resolves a public reference to a path inside the public dir.
// References that escape the directory are rejected.
func (s *Store) payloadPath(ref string) (string, error) {
	name, ok := strings.CutPrefix(ref, publicPrefix)
	if !ok || name == "" {
		return "", fmt.Errorf("%w: %q", ErrInvalidRef, ref)
	}
	if name != filepath.Base(name) || name == "." || name == ".." {
		return "", fmt.Errorf("%w: %q", ErrInvalidRef, ref)
	}
	return filepath.Join(s.publicDir, name), nil
}

// sanitizeName keeps payload file names filesystem-safe. Anything outside
// a conservative character set collapses to a dash.
func sanitizeName(title string) string {
	var b strings.Builder
	for _, r := range title {
		switch {
		case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z', r >= '0' && r <= '9', r == '.', r == '_', r == '-':
			b.WriteRune(r)
		default:
			b.WriteRune('-')
		}
	}
	if b.Len() == 0 {
		return "untitled"
	}
	return b.String()
}
