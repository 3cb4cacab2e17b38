package main

import (
	"bufio"
	"fmt"
	"os"
	"strings"
	"syscall"

	"golang.org/x/crypto/bcrypt"
	"golang.org/x/term"

	"github.com/quizdrop/quizdrop-backend/internal/config"
	"github.com/quizdrop/quizdrop-backend/internal/logger"
	"github.com/quizdrop/quizdrop-backend/internal/store"
)

// Operator tool: replace the owner password of a quiz record when the
// author has lost theirs. Works directly on the collection file, so stop
// the server (or accept a lost-update risk) before running it.
func main() {
	// ─── Load Configuration ────────────────────────────────────────────
	cfg := config.Load()

	// ─── Initialize Logger ─────────────────────────────────────────────
	log := logger.Setup(cfg.LogLevel, cfg.LogFormat)

	st := store.New(cfg.DataDir, log)
	if err := st.Init(); err != nil {
		log.Fatal().Err(err).Msg("Failed to initialize storage directories")
	}

	// ─── CLI Input ─────────────────────────────────────────────────────
	reader := bufio.NewReader(os.Stdin)

	fmt.Println("=== Reset Quiz Password ===")

	fmt.Print("Enter Quiz ID: ")
	id, _ := reader.ReadString('\n')
	id = strings.TrimSpace(id)
	if id == "" {
		fmt.Println("Error: Quiz ID is required")
		return
	}

	fmt.Print("Enter New Password (min 6 chars): ")
	passwordBytes, err := term.ReadPassword(int(syscall.Stdin))
	fmt.Println()
	if err != nil {
		fmt.Printf("Error reading password: %v\n", err)
		return
	}
	password := string(passwordBytes)
	if len(password) < 6 {
		fmt.Println("Error: Password must be at least 6 characters")
		return
	}

	fmt.Print("Confirm New Password: ")
	confirmBytes, err := term.ReadPassword(int(syscall.Stdin))
	fmt.Println()
	if err != nil {
		fmt.Printf("Error reading password: %v\n", err)
		return
	}
	if password != string(confirmBytes) {
		fmt.Println("Error: Passwords do not match")
		return
	}

	// ─── Apply ─────────────────────────────────────────────────────────
	st.Lock()
	defer st.Unlock()

	records, err := st.LoadCollection()
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to load collection")
	}

	found := false
	for i, rec := range records {
		if rec.ID != id {
			continue
		}
		digest, err := bcrypt.GenerateFromPassword([]byte(password), cfg.BcryptCost)
		if err != nil {
			log.Fatal().Err(err).Msg("Failed to hash password")
		}
		records[i].PasswordDigest = string(digest)
		found = true
		fmt.Printf("Updating %q (%s)\n", rec.Title, rec.ID)
		break
	}
	if !found {
		fmt.Println("Error: No quiz with that ID")
		os.Exit(1)
	}

	if err := st.SaveCollection(records); err != nil {
		log.Fatal().Err(err).Msg("Failed to save collection")
	}

	fmt.Println("Password updated successfully.")
}
