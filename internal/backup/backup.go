// Package backup writes encrypted snapshots of the household database to
// S3-compatible storage and restores them.
package backup

import (
	"bytes"
	"context"
	"database/sql"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/dukerupert/homebase/internal/database"
	"github.com/dukerupert/homebase/internal/objstore"
)

var ErrNoPassphrase = errors.New("backup passphrase is not set")

type Config struct {
	Bucket     string
	Prefix     string
	Passphrase string
}

type Manager struct {
	db     *sql.DB
	client objstore.API
	cfg    Config
	logger *slog.Logger
	now    func() time.Time
}

func NewManager(db *sql.DB, client objstore.API, cfg Config, logger *slog.Logger) *Manager {
	if cfg.Prefix == "" {
		cfg.Prefix = "backups"
	}
	return &Manager{db: db, client: client, cfg: cfg, logger: logger, now: time.Now}
}

// Run snapshots the live database with VACUUM INTO, seals it and uploads it.
// It returns the object key.
func (m *Manager) Run(ctx context.Context) (string, error) {
	if m.cfg.Passphrase == "" {
		return "", ErrNoPassphrase
	}

	tmpDir, err := os.MkdirTemp("", "homebase-backup-")
	if err != nil {
		return "", fmt.Errorf("create temp dir: %w", err)
	}
	defer os.RemoveAll(tmpDir)

	snapshot := filepath.Join(tmpDir, "snapshot.db")
	if _, err := m.db.ExecContext(ctx, "VACUUM INTO ?", snapshot); err != nil {
		return "", fmt.Errorf("snapshot database: %w", err)
	}
	plaintext, err := os.ReadFile(snapshot)
	if err != nil {
		return "", fmt.Errorf("read snapshot: %w", err)
	}

	sealed, err := seal(plaintext, m.cfg.Passphrase)
	if err != nil {
		return "", err
	}

	key := fmt.Sprintf("%s/homebase-%s.db.enc", m.cfg.Prefix, m.now().UTC().Format("20060102T150405Z"))
	_, err = m.client.PutObject(ctx, &s3.PutObjectInput{
		Bucket:        aws.String(m.cfg.Bucket),
		Key:           aws.String(key),
		Body:          bytes.NewReader(sealed),
		ContentLength: aws.Int64(int64(len(sealed))),
	})
	if err != nil {
		return "", fmt.Errorf("upload backup: %w", err)
	}

	m.logger.Info("backup uploaded", "key", key, "bytes", len(sealed))
	return key, nil
}

// Restore downloads key, checks it decrypts to a sound homebase database
// and moves it over dst. The server must not be running against dst.
func (m *Manager) Restore(ctx context.Context, key, dst string) error {
	if m.cfg.Passphrase == "" {
		return ErrNoPassphrase
	}

	out, err := m.client.GetObject(ctx, &s3.GetObjectInput{
		Bucket: aws.String(m.cfg.Bucket),
		Key:    aws.String(key),
	})
	if err != nil {
		return fmt.Errorf("download backup: %w", err)
	}
	sealed, err := io.ReadAll(out.Body)
	out.Body.Close()
	if err != nil {
		return fmt.Errorf("read backup: %w", err)
	}

	plaintext, err := open(sealed, m.cfg.Passphrase)
	if err != nil {
		return err
	}

	tmp := dst + ".restore"
	if err := os.WriteFile(tmp, plaintext, 0o600); err != nil {
		return fmt.Errorf("write restored database: %w", err)
	}
	if err := verify(tmp); err != nil {
		os.Remove(tmp)
		return err
	}
	// Stale WAL files from the replaced database must not be replayed.
	os.Remove(dst + "-wal")
	os.Remove(dst + "-shm")
	if err := os.Rename(tmp, dst); err != nil {
		return fmt.Errorf("replace database: %w", err)
	}

	m.logger.Info("backup restored", "key", key, "path", dst)
	return nil
}

func verify(path string) error {
	db, err := database.Connect(path)
	if err != nil {
		return fmt.Errorf("open restored database: %w", err)
	}
	defer db.Close()

	var result string
	if err := db.QueryRow("PRAGMA integrity_check").Scan(&result); err != nil {
		return fmt.Errorf("integrity check: %w", err)
	}
	if result != "ok" {
		return fmt.Errorf("integrity check: %s", result)
	}
	var n int
	if err := db.QueryRow("SELECT COUNT(*) FROM responsibility_completions").Scan(&n); err != nil {
		return fmt.Errorf("restored file is not a homebase database: %w", err)
	}
	return nil
}
