// Package state persists the record of the last delivery and decides whether
// today's content was already sent.
package state

import (
	"bytes"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"errors"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"github.com/tartampluch/go-daily-events/internal/apperr"
	"github.com/tartampluch/go-daily-events/internal/catalog"
	"github.com/tartampluch/go-daily-events/internal/config"
)

// Record is the persisted outcome of the last successful delivery.
type Record struct {
	LastSent string `json:"last_sent"`
	SHA256   string `json:"sha256"`
}

// Fingerprint is the hex SHA-256 of content.
func Fingerprint(content string) string {
	sum := sha256.Sum256([]byte(content))
	return hex.EncodeToString(sum[:])
}

// Store reads and writes the record at Path.
type Store struct {
	Path string
}

// Read loads the record. Absence, unreadable files and malformed content all
// yield nil; only the last two are logged.
func (s *Store) Read() *Record {
	log := slog.With(config.LogKeyComponent, config.CompState, config.LogKeyPath, s.Path)

	data, err := os.ReadFile(s.Path)
	if err != nil {
		if !errors.Is(err, fs.ErrNotExist) {
			log.Warn(config.MsgStateUnreadable, config.LogKeyError, err)
		}
		return nil
	}
	data = bytes.TrimSpace(data)
	if len(data) == 0 {
		return nil
	}

	var raw map[string]any
	if err := json.Unmarshal(data, &raw); err == nil {
		rec := Record{
			LastSent: strings.TrimSpace(stringField(raw, "last_sent")),
			SHA256:   strings.TrimSpace(stringField(raw, "sha256")),
		}
		if rec.LastSent != "" && rec.SHA256 != "" {
			return &rec
		}
	}
	log.Warn(config.MsgStateIgnored)
	return nil
}

func stringField(raw map[string]any, key string) string {
	s, _ := raw[key].(string)
	return s
}

// Write replaces the record atomically: the content goes to a sibling
// temporary file that is then renamed over Path.
func (s *Store) Write(rec Record) error {
	data, err := json.MarshalIndent(rec, "", "  ")
	if err != nil {
		return apperr.WrapRuntime(err, "%s '%s'", config.ErrStateWrite, s.Path)
	}
	data = append(data, '\n')

	if err := WriteFileAtomic(s.Path, data); err != nil {
		return apperr.WrapRuntime(err, "%s '%s'", config.ErrStateWrite, s.Path)
	}
	slog.Info(config.MsgStateWritten,
		config.LogKeyComponent, config.CompState,
		config.LogKeyPath, s.Path,
		config.LogKeyDate, rec.LastSent,
	)
	return nil
}

// WriteFileAtomic writes data to path through "<path>.tmp" and a rename.
// Missing parent directories are created.
func WriteFileAtomic(path string, data []byte) error {
	if dir := filepath.Dir(path); dir != "" {
		if err := os.MkdirAll(dir, config.DirPermUserRWX); err != nil {
			return err
		}
	}
	tmp := path + config.TempSuffix
	defer func() { _ = os.Remove(tmp) }()

	if err := os.WriteFile(tmp, data, config.FilePermUserRW); err != nil {
		return err
	}
	return os.Rename(tmp, path)
}

// Decision is the outcome of the idempotency check.
type Decision int

const (
	Proceed Decision = iota
	Skip
)

func (d Decision) String() string {
	if d == Skip {
		return "skip"
	}
	return "proceed"
}

// Guard compares today's content with the stored record.
// A nil Store disables the guard.
type Guard struct {
	Store *Store
	Force bool
}

// Check returns Skip when the record already holds today's date and the
// fingerprint of content, unless Force is set.
func (g *Guard) Check(today catalog.Date, content string) Decision {
	if g == nil || g.Store == nil || g.Force {
		return Proceed
	}
	rec := g.Store.Read()
	if rec == nil {
		return Proceed
	}
	if rec.LastSent == today.String() && rec.SHA256 == Fingerprint(content) {
		slog.Info(config.MsgAlreadySent,
			config.LogKeyComponent, config.CompState,
			config.LogKeyDate, rec.LastSent,
		)
		return Skip
	}
	return Proceed
}

// Commit records content as delivered today.
func (g *Guard) Commit(today catalog.Date, content string) error {
	if g == nil || g.Store == nil {
		return nil
	}
	return g.Store.Write(Record{LastSent: today.String(), SHA256: Fingerprint(content)})
}
