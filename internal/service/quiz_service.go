package service

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"regexp"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"golang.org/x/crypto/bcrypt"

	"github.com/quizdrop/quizdrop-backend/internal/config"
	"github.com/quizdrop/quizdrop-backend/internal/model"
	"github.com/quizdrop/quizdrop-backend/internal/store"
)

// Common service errors.
var (
	ErrNotFound     = errors.New("quiz not found")
	ErrForbidden    = errors.New("incorrect password")
	ErrValidation   = errors.New("validation failed")
	ErrInvalidField = errors.New("invalid search field")
)

// emailPattern is the basic local@domain shape accepted for author emails.
var emailPattern = regexp.MustCompile(`^[^\s@]+@[^\s@]+\.[^\s@]+$`)

// minPasswordLen is the minimum raw password length before hashing.
const minPasswordLen = 6

// QuizMeta is the mutable metadata of a quiz record.
type QuizMeta struct {
	Title       string
	Subject     string
	Description string
	AuthorName  string
	AuthorEmail string
}

// QuizService implements the quiz record lifecycle: create, search, get,
// list, password-gated update and delete. All collection mutations follow
// the same discipline: take the store's write lock, load the whole
// collection, mutate, save it back.
type QuizService struct {
	store *store.Store
	cfg   *config.Config
	log   zerolog.Logger
}

// NewQuizService creates a new QuizService.
func NewQuizService(st *store.Store, cfg *config.Config, log zerolog.Logger) *QuizService {
	return &QuizService{
		store: st,
		cfg:   cfg,
		log:   log.With().Str("component", "quiz_service").Logger(),
	}
}

// StagePayload parks an uploaded question file in the staging area until
// validation decides its fate.
func (s *QuizService) StagePayload(r io.Reader) (string, error) {
	return s.store.StageUpload(r, ".json")
}

// Create validates metadata, password and the staged payload, then stores
// the payload, appends the record to the collection and persists it.
// On any validation failure the staged payload is discarded and nothing
// is mutated.
func (s *QuizService) Create(meta QuizMeta, stagedPath, rawPassword string) (*model.QuizRecord, error) {
	if err := validateMeta(meta); err != nil {
		s.store.DiscardStaged(stagedPath)
		return nil, err
	}
	if len(rawPassword) < minPasswordLen {
		s.store.DiscardStaged(stagedPath)
		return nil, fmt.Errorf("%w: the password is required and must be at least %d characters", ErrValidation, minPasswordLen)
	}

	data, err := s.store.ReadStaged(stagedPath)
	if err != nil {
		s.store.DiscardStaged(stagedPath)
		return nil, fmt.Errorf("read staged payload: %w", err)
	}
	if err := validatePayload(data); err != nil {
		s.store.DiscardStaged(stagedPath)
		return nil, err
	}

	digest, err := bcrypt.GenerateFromPassword([]byte(rawPassword), s.cfg.BcryptCost)
	if err != nil {
		s.store.DiscardStaged(stagedPath)
		return nil, fmt.Errorf("hash password: %w", err)
	}

	s.store.Lock()
	defer s.store.Unlock()

	records, err := s.store.LoadCollection()
	if err != nil {
		s.store.DiscardStaged(stagedPath)
		return nil, err
	}

	ref, err := s.store.PromotePayload(stagedPath, meta.Title)
	if err != nil {
		s.store.DiscardStaged(stagedPath)
		return nil, err
	}

	rec := model.QuizRecord{
		ID:             uuid.New().String(),
		Title:          meta.Title,
		Subject:        meta.Subject,
		Description:    meta.Description,
		AuthorName:     meta.AuthorName,
		AuthorEmail:    meta.AuthorEmail,
		FileRef:        ref,
		CreatedAt:      time.Now().UTC(),
		PasswordDigest: string(digest),
	}

	records = append(records, rec)
	if err := s.store.SaveCollection(records); err != nil {
		return nil, err
	}

	s.log.Info().Str("quiz_id", rec.ID).Str("title", rec.Title).Msg("Quiz created")
	pub := rec.Public()
	return &pub, nil
}

// Search filters the collection by a case-insensitive substring match of
// query against the chosen field. The empty query matches every record.
// Results keep collection order and carry no password digest.
func (s *QuizService) Search(field model.SearchField, query string) ([]model.QuizRecord, error) {
	if _, ok := (model.QuizRecord{}).Value(field); !ok {
		return nil, fmt.Errorf("%w: %q", ErrInvalidField, field)
	}

	s.store.RLock()
	defer s.store.RUnlock()

	records, err := s.store.LoadCollection()
	if err != nil {
		return nil, err
	}

	needle := strings.ToLower(query)
	matches := []model.QuizRecord{}
	for _, rec := range records {
		value, _ := rec.Value(field)
		if strings.Contains(strings.ToLower(value), needle) {
			matches = append(matches, rec.Public())
		}
	}
	return matches, nil
}

// Get returns a single record by id, digest stripped.
func (s *QuizService) Get(id string) (*model.QuizRecord, error) {
	s.store.RLock()
	defer s.store.RUnlock()

	records, err := s.store.LoadCollection()
	if err != nil {
		return nil, err
	}
	_, rec, err := findRecord(records, id)
	if err != nil {
		return nil, err
	}
	pub := rec.Public()
	return &pub, nil
}

// List returns all records in collection order, digests stripped.
func (s *QuizService) List() ([]model.QuizRecord, error) {
	s.store.RLock()
	defer s.store.RUnlock()

	records, err := s.store.LoadCollection()
	if err != nil {
		return nil, err
	}
	out := make([]model.QuizRecord, 0, len(records))
	for _, rec := range records {
		out = append(out, rec.Public())
	}
	return out, nil
}

// Payload returns the stored question bank for a record.
func (s *QuizService) Payload(id string) ([]byte, error) {
	s.store.RLock()
	defer s.store.RUnlock()

	records, err := s.store.LoadCollection()
	if err != nil {
		return nil, err
	}
	_, rec, err := findRecord(records, id)
	if err != nil {
		return nil, err
	}
	return s.store.ReadPayload(rec.FileRef)
}

// VerifyOwnership reports whether rawPassword matches the record's digest.
// A wrong password is a false result, not an error; an unknown id is
// ErrNotFound.
func (s *QuizService) VerifyOwnership(id, rawPassword string) (bool, error) {
	s.store.RLock()
	defer s.store.RUnlock()

	records, err := s.store.LoadCollection()
	if err != nil {
		return false, err
	}
	_, rec, err := findRecord(records, id)
	if err != nil {
		return false, err
	}
	return checkPassword(rec.PasswordDigest, rawPassword), nil
}

// Update mutates a record's metadata and optionally replaces its payload.
// Existence is checked before the password, the password before any
// validation or mutation. With a payload replacement the new file is
// promoted and the collection saved before the old file is unlinked, so a
// failure can only leak an orphan, never dangle the record's reference.
// id, createdAt and the password digest are never touched.
func (s *QuizService) Update(id string, meta QuizMeta, rawPassword, stagedPath string) error {
	s.store.Lock()
	defer s.store.Unlock()

	records, err := s.store.LoadCollection()
	if err != nil {
		s.store.DiscardStaged(stagedPath)
		return err
	}
	idx, rec, err := findRecord(records, id)
	if err != nil {
		s.store.DiscardStaged(stagedPath)
		return err
	}
	if !checkPassword(rec.PasswordDigest, rawPassword) {
		s.store.DiscardStaged(stagedPath)
		return ErrForbidden
	}
	if err := validateMeta(meta); err != nil {
		s.store.DiscardStaged(stagedPath)
		return err
	}

	oldRef := ""
	if stagedPath != "" {
		data, err := s.store.ReadStaged(stagedPath)
		if err != nil {
			s.store.DiscardStaged(stagedPath)
			return fmt.Errorf("read staged payload: %w", err)
		}
		if err := validatePayload(data); err != nil {
			s.store.DiscardStaged(stagedPath)
			return err
		}

		newRef, err := s.store.PromotePayload(stagedPath, meta.Title)
		if err != nil {
			s.store.DiscardStaged(stagedPath)
			return err
		}
		oldRef = rec.FileRef
		rec.FileRef = newRef
	}

	rec.Title = meta.Title
	rec.Subject = meta.Subject
	rec.Description = meta.Description
	rec.AuthorName = meta.AuthorName
	rec.AuthorEmail = meta.AuthorEmail
	records[idx] = rec

	if err := s.store.SaveCollection(records); err != nil {
		return err
	}

	// Only now is the old payload expendable. A failed unlink leaves an
	// orphaned file, which reconciliation can clean up later.
	if oldRef != "" {
		if err := s.store.DeletePayload(oldRef); err != nil {
			s.log.Warn().Err(err).Str("quiz_id", id).Str("ref", oldRef).Msg("Old payload not removed")
		}
	}

	s.log.Info().Str("quiz_id", id).Msg("Quiz updated")
	return nil
}

// Delete removes a record and its payload after an ownership proof.
// A missing payload file is logged but does not block removing the record.
func (s *QuizService) Delete(id, rawPassword string) error {
	s.store.Lock()
	defer s.store.Unlock()

	records, err := s.store.LoadCollection()
	if err != nil {
		return err
	}
	idx, rec, err := findRecord(records, id)
	if err != nil {
		return err
	}
	if !checkPassword(rec.PasswordDigest, rawPassword) {
		return ErrForbidden
	}

	if err := s.store.DeletePayload(rec.FileRef); err != nil {
		s.log.Warn().Err(err).Str("quiz_id", id).Str("ref", rec.FileRef).Msg("Payload not removed during delete")
	}

	records = append(records[:idx], records[idx+1:]...)
	if err := s.store.SaveCollection(records); err != nil {
		return err
	}

	s.log.Info().Str("quiz_id", id).Msg("Quiz deleted")
	return nil
}

// findRecord locates a record by id within the loaded collection.
func findRecord(records []model.QuizRecord, id string) (int, model.QuizRecord, error) {
	for i, rec := range records {
		if rec.ID == id {
			return i, rec, nil
		}
	}
	return -1, model.QuizRecord{}, ErrNotFound
}

// checkPassword compares a plaintext password against a bcrypt digest.
func checkPassword(digest, raw string) bool {
	return bcrypt.CompareHashAndPassword([]byte(digest), []byte(raw)) == nil
}

// validateMeta enforces the required metadata fields and the email shape.
func validateMeta(meta QuizMeta) error {
	if strings.TrimSpace(meta.Title) == "" || strings.TrimSpace(meta.Subject) == "" {
		return fmt.Errorf("%w: title and subject are required", ErrValidation)
	}
	if strings.TrimSpace(meta.AuthorName) == "" {
		return fmt.Errorf("%w: the author name is required", ErrValidation)
	}
	if meta.AuthorEmail != "" && !emailPattern.MatchString(meta.AuthorEmail) {
		return fmt.Errorf("%w: the email address format is not valid", ErrValidation)
	}
	return nil
}

// validatePayload checks that a question bank parses as an array where
// every question carries text, at least one option and a correct answer.
// Whether correctAnswer actually appears among options is not checked,
// matching the upload contract.
func validatePayload(data []byte) error {
	var questions []model.Question
	if err := json.Unmarshal(data, &questions); err != nil || questions == nil {
		return fmt.Errorf("%w: the file must contain a JSON array of questions", ErrValidation)
	}
	for _, q := range questions {
		if q.Question == "" || len(q.Options) == 0 || q.CorrectAnswer == "" {
			return fmt.Errorf("%w: every question needs question, options and correctAnswer", ErrValidation)
		}
	}
	return nil
}
