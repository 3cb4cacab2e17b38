package service

import (
	"archive/zip"
	"crypto/subtle"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"github.com/rs/zerolog"

	"github.com/quizdrop/quizdrop-backend/internal/config"
	"github.com/quizdrop/quizdrop-backend/internal/store"
)

// Archive errors.
var (
	ErrBackup         = errors.New("backup failed")
	ErrInvalidArchive = errors.New("invalid backup archive")
)

// ArchiveService builds full-store ZIP snapshots and restores the store's
// file tree from an uploaded archive. It works on the store's layout
// (collection file plus public dir), not its in-memory logic.
type ArchiveService struct {
	store *store.Store
	cfg   *config.Config
	log   zerolog.Logger
}

// NewArchiveService creates a new ArchiveService.
func NewArchiveService(st *store.Store, cfg *config.Config, log zerolog.Logger) *ArchiveService {
	return &ArchiveService{
		store: st,
		cfg:   cfg,
		log:   log.With().Str("component", "archive_service").Logger(),
	}
}

// StageArchive parks an uploaded backup ZIP in the staging area.
func (s *ArchiveService) StageArchive(r io.Reader) (string, error) {
	return s.store.StageUpload(r, ".zip")
}

// DiscardArchive drops a staged backup ZIP.
func (s *ArchiveService) DiscardArchive(stagedPath string) {
	s.store.DiscardStaged(stagedPath)
}

// WriteBackup streams a ZIP snapshot of the store to w: the collection
// file at its root name and the public payload directory recursively,
// deflate-compressed. The store's read lock is held for the duration so
// the snapshot is internally consistent.
func (s *ArchiveService) WriteBackup(w io.Writer) error {
	s.store.RLock()
	defer s.store.RUnlock()

	zw := zip.NewWriter(w)

	if err := s.addFile(zw, s.store.CollectionFile(), filepath.Base(s.store.CollectionFile())); err != nil {
		zw.Close()
		return fmt.Errorf("%w: %v", ErrBackup, err)
	}

	publicDir := s.store.PublicDir()
	err := filepath.WalkDir(publicDir, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() {
			return nil
		}
		rel, err := filepath.Rel(publicDir, path)
		if err != nil {
			return err
		}
		return s.addFile(zw, path, filepath.ToSlash(filepath.Join("public", rel)))
	})
	if err != nil {
		zw.Close()
		return fmt.Errorf("%w: %v", ErrBackup, err)
	}

	if err := zw.Close(); err != nil {
		return fmt.Errorf("%w: %v", ErrBackup, err)
	}
	return nil
}

// addFile copies one file into the archive under the given entry name.
func (s *ArchiveService) addFile(zw *zip.Writer, path, name string) error {
	src, err := os.Open(path)
	if err != nil {
		return err
	}
	defer src.Close()

	dst, err := zw.CreateHeader(&zip.FileHeader{
		Name:   name,
		Method: zip.Deflate,
	})
	if err != nil {
		return err
	}
	_, err = io.Copy(dst, src)
	return err
}

// Restore checks the supplied secret against the configured restore secret,
// then extracts the staged archive directly over the storage root,
// overwriting whatever is present. Afterwards the collection file and the
// public dir must both exist or the restore is rejected — whatever was
// extracted stays; there is no rollback. The store's write lock is held so
// no other operation observes a half-restored tree.
func (s *ArchiveService) Restore(zipPath, suppliedSecret string) error {
	if s.cfg.RestoreSecret == "" ||
		subtle.ConstantTimeCompare([]byte(suppliedSecret), []byte(s.cfg.RestoreSecret)) != 1 {
		return ErrForbidden
	}

	s.store.Lock()
	defer s.store.Unlock()

	zr, err := zip.OpenReader(zipPath)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrInvalidArchive, err)
	}
	defer zr.Close()

	root := s.store.Root()
	for _, entry := range zr.File {
		if err := s.extractEntry(entry, root); err != nil {
			return fmt.Errorf("%w: %v", ErrInvalidArchive, err)
		}
	}

	if _, err := os.Stat(s.store.CollectionFile()); err != nil {
		return fmt.Errorf("%w: collection file missing after extraction", ErrInvalidArchive)
	}
	if info, err := os.Stat(s.store.PublicDir()); err != nil || !info.IsDir() {
		return fmt.Errorf("%w: public directory missing after extraction", ErrInvalidArchive)
	}

	s.log.Info().Int("entries", len(zr.File)).Msg("Store restored from backup")
	return nil
}

// extractEntry writes one archive entry under root, refusing names that
// would escape it.
func (s *ArchiveService) extractEntry(entry *zip.File, root string) error {
	name := filepath.FromSlash(entry.Name)
	if filepath.IsAbs(name) || strings.Contains(name, "..") {
		return fmt.Errorf("unsafe entry name %q", entry.Name)
	}
	dest := filepath.Join(root, name)

	if entry.FileInfo().IsDir() {
		return os.MkdirAll(dest, 0o755)
	}
	if err := os.MkdirAll(filepath.Dir(dest), 0o755); err != nil {
		return err
	}

	src, err := entry.Open()
	if err != nil {
		return err
	}
	defer src.Close()

	dst, err := os.Create(dest)
	if err != nil {
		return err
	}
	defer dst.Close()

	_, err = io.Copy(dst, src)
	return err
}
