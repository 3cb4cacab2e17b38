package service

import (
	"archive/zip"
	"bytes"
	"errors"
	"io"
	"os"
	"path/filepath"
	"testing"

	"github.com/rs/zerolog"
	"golang.org/x/crypto/bcrypt"

	"github.com/quizdrop/quizdrop-backend/internal/config"
	"github.com/quizdrop/quizdrop-backend/internal/store"
)

const testRestoreSecret = "restore-secret"

func newTestArchiveService(t *testing.T) (*ArchiveService, *QuizService, *store.Store) {
	t.Helper()
	cfg := &config.Config{
		DataDir:       t.TempDir(),
		BcryptCost:    bcrypt.MinCost,
		RestoreSecret: testRestoreSecret,
	}
	st := store.New(cfg.DataDir, zerolog.Nop())
	if err := st.Init(); err != nil {
		t.Fatalf("store init: %v", err)
	}
	return NewArchiveService(st, cfg, zerolog.Nop()),
		NewQuizService(st, cfg, zerolog.Nop()),
		st
}

// readZip maps entry name to contents.
func readZip(t *testing.T, data []byte) map[string][]byte {
	t.Helper()
	zr, err := zip.NewReader(bytes.NewReader(data), int64(len(data)))
	if err != nil {
		t.Fatalf("zip.NewReader() = %v", err)
	}
	out := make(map[string][]byte)
	for _, f := range zr.File {
		rc, err := f.Open()
		if err != nil {
			t.Fatal(err)
		}
		b, err := io.ReadAll(rc)
		rc.Close()
		if err != nil {
			t.Fatal(err)
		}
		out[f.Name] = b
	}
	return out
}

func TestBackupContainsCollectionAndPayloads(t *testing.T) {
	arc, quiz, st := newTestArchiveService(t)

	rec := mustCreate(t, quiz, algebraMeta(), validPayload, "secret1")

	var buf bytes.Buffer
	if err := arc.WriteBackup(&buf); err != nil {
		t.Fatalf("WriteBackup() = %v", err)
	}

	entries := readZip(t, buf.Bytes())

	collection, err := os.ReadFile(st.CollectionFile())
	if err != nil {
		t.Fatal(err)
	}
	if got, ok := entries["quizzes_metadata.json"]; !ok || !bytes.Equal(got, collection) {
		t.Fatal("collection file missing or altered in backup")
	}

	records, _ := st.LoadCollection()
	payloadName := filepath.Base(records[0].FileRef)
	if got, ok := entries["public/"+payloadName]; !ok || string(got) != validPayload {
		t.Fatalf("payload for %s missing or altered in backup", rec.ID)
	}
}

func TestBackupFailsWithoutCollection(t *testing.T) {
	arc, _, _ := newTestArchiveService(t)

	var buf bytes.Buffer
	if err := arc.WriteBackup(&buf); !errors.Is(err, ErrBackup) {
		t.Fatalf("WriteBackup() = %v, want ErrBackup", err)
	}
}

func TestRestoreSecretGate(t *testing.T) {
	arc, quiz, st := newTestArchiveService(t)
	mustCreate(t, quiz, algebraMeta(), validPayload, "secret1")

	// The secret is verified before the archive is even opened: a path to
	// a nonexistent file still yields Forbidden, not an archive error.
	if err := arc.Restore(filepath.Join(st.Root(), "nope.zip"), "wrong"); !errors.Is(err, ErrForbidden) {
		t.Fatalf("Restore(wrong secret) = %v, want ErrForbidden", err)
	}

	records, err := st.LoadCollection()
	if err != nil || len(records) != 1 {
		t.Fatalf("store touched by forbidden restore: %v (%d records)", err, len(records))
	}
}

func TestRestoreDisabledWithoutConfiguredSecret(t *testing.T) {
	arc, _, _ := newTestArchiveService(t)
	arc.cfg.RestoreSecret = ""

	// An unset server secret must not make an empty password valid.
	if err := arc.Restore("whatever.zip", ""); !errors.Is(err, ErrForbidden) {
		t.Fatalf("Restore() = %v, want ErrForbidden", err)
	}
}

func TestBackupRestoreRoundTrip(t *testing.T) {
	arcA, quizA, stA := newTestArchiveService(t)
	mustCreate(t, quizA, algebraMeta(), validPayload, "secret1")
	mustCreate(t, quizA, QuizMeta{Title: "Biology", Subject: "Science", AuthorName: "Ben"}, `[{"question":"cells?","options":["yes"],"correctAnswer":"yes"}]`, "secret2")

	var buf bytes.Buffer
	if err := arcA.WriteBackup(&buf); err != nil {
		t.Fatalf("WriteBackup() = %v", err)
	}

	// Restore into a completely empty store.
	arcB, quizB, stB := newTestArchiveService(t)
	staged, err := arcB.StageArchive(bytes.NewReader(buf.Bytes()))
	if err != nil {
		t.Fatalf("StageArchive() = %v", err)
	}
	if err := arcB.Restore(staged, testRestoreSecret); err != nil {
		t.Fatalf("Restore() = %v", err)
	}

	wantRecords, err := stA.LoadCollection()
	if err != nil {
		t.Fatal(err)
	}
	gotRecords, err := stB.LoadCollection()
	if err != nil {
		t.Fatalf("restored collection unreadable: %v", err)
	}
	if len(gotRecords) != len(wantRecords) {
		t.Fatalf("restored %d records, want %d", len(gotRecords), len(wantRecords))
	}
	for i := range wantRecords {
		if gotRecords[i].ID != wantRecords[i].ID || gotRecords[i].FileRef != wantRecords[i].FileRef {
			t.Fatalf("record %d = %+v, want %+v", i, gotRecords[i], wantRecords[i])
		}
		want, err := stA.ReadPayload(wantRecords[i].FileRef)
		if err != nil {
			t.Fatal(err)
		}
		got, err := quizB.Payload(gotRecords[i].ID)
		if err != nil || !bytes.Equal(got, want) {
			t.Fatalf("payload %d not restored byte-for-byte: %v", i, err)
		}
	}
}

func TestRestoreRejectsIncompleteArchive(t *testing.T) {
	arc, _, st := newTestArchiveService(t)

	// A valid ZIP that lacks the collection file.
	path := filepath.Join(t.TempDir(), "partial.zip")
	f, err := os.Create(path)
	if err != nil {
		t.Fatal(err)
	}
	zw := zip.NewWriter(f)
	w, _ := zw.Create("public/quiz-x.json")
	w.Write([]byte("[]"))
	zw.Close()
	f.Close()

	if err := arc.Restore(path, testRestoreSecret); !errors.Is(err, ErrInvalidArchive) {
		t.Fatalf("Restore() = %v, want ErrInvalidArchive", err)
	}
	// No rollback by design: the extracted payload dir stays.
	if _, err := os.Stat(filepath.Join(st.PublicDir(), "quiz-x.json")); err != nil {
		t.Fatalf("extracted entry missing: %v", err)
	}
}

func TestRestoreRejectsGarbage(t *testing.T) {
	arc, _, st := newTestArchiveService(t)

	path := filepath.Join(st.Root(), "uploads", "junk.zip")
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(path, []byte("this is not a zip"), 0o644); err != nil {
		t.Fatal(err)
	}
	if err := arc.Restore(path, testRestoreSecret); !errors.Is(err, ErrInvalidArchive) {
		t.Fatalf("Restore() = %v, want ErrInvalidArchive", err)
	}
}

func TestRestoreRejectsEscapingEntries(t *testing.T) {
	arc, _, st := newTestArchiveService(t)

	path := filepath.Join(t.TempDir(), "slip.zip")
	f, err := os.Create(path)
	if err != nil {
		t.Fatal(err)
	}
	zw := zip.NewWriter(f)
	w, _ := zw.Create("../escape.txt")
	w.Write([]byte("boom"))
	zw.Close()
	f.Close()

	if err := arc.Restore(path, testRestoreSecret); !errors.Is(err, ErrInvalidArchive) {
		t.Fatalf("Restore() = %v, want ErrInvalidArchive", err)
	}
	if _, err := os.Stat(filepath.Join(filepath.Dir(st.Root()), "escape.txt")); err == nil {
		t.Fatal("entry escaped the storage root")
	}
}
