// Package backup snapshots the local cache into encrypted objects on
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
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	_ "modernc.org/sqlite"

	"github.com/dukerupert/grocysync/internal/config"
)

// ErrDisabled is returned when no S3 destination is configured.
var ErrDisabled = errors.New("backup not configured: S3 credentials missing")

// ErrNoSnapshots is returned by Restore when the bucket holds no snapshot.
var ErrNoSnapshots = errors.New("no snapshots found")

const keyPrefix = "grocysync/"

// s3Client is an interface for testability.
type s3Client interface {
	PutObject(ctx context.Context, input *s3.PutObjectInput, opts ...func(*s3.Options)) (*s3.PutObjectOutput, error)
	GetObject(ctx context.Context, input *s3.GetObjectInput, opts ...func(*s3.Options)) (*s3.GetObjectOutput, error)
	DeleteObject(ctx context.Context, input *s3.DeleteObjectInput, opts ...func(*s3.Options)) (*s3.DeleteObjectOutput, error)
	ListObjectsV2(ctx context.Context, input *s3.ListObjectsV2Input, opts ...func(*s3.Options)) (*s3.ListObjectsV2Output, error)
}

// Config holds backup manager configuration.
type Config struct {
	S3            config.S3Config
	DBPath        string
	Passphrase    string
	Interval      time.Duration
	RetentionDays int
}

// State represents the backup manager state.
type State string

const (
	StateIdle     State = "idle"
	StateRunning  State = "running"
	StateDisabled State = "disabled"
	StateError    State = "error"
)

// Status holds the current backup manager status.
type Status struct {
	State      State      `json:"state"`
	LastBackup *time.Time `json:"last_backup,omitempty"`
	Error      string     `json:"error,omitempty"`
	InProgress bool       `json:"in_progress"`
}

// StatusCallback is called whenever the backup state changes.
type StatusCallback func(Status)

// Snapshot describes one stored backup object.
type Snapshot struct {
	Key          string    `json:"key"`
	Size         int64     `json:"size"`
	LastModified time.Time `json:"last_modified"`
}

// Manager writes and restores encrypted cache snapshots.
type Manager struct {
	mu       sync.RWMutex
	cfg      Config
	status   Status
	callback StatusCallback
	logger   *slog.Logger

	db     *sql.DB
	client s3Client

	cancel context.CancelFunc
	done   chan struct{}
}

// NewManager creates a backup manager. db may be nil when the manager is
// only used to restore.
func NewManager(cfg Config, db *sql.DB, callback StatusCallback, logger *slog.Logger) *Manager {
	if logger == nil {
		logger = slog.Default()
	}
	m := &Manager{
		cfg:      cfg,
		db:       db,
		callback: callback,
		logger:   logger,
		status:   Status{State: StateDisabled},
	}

	if cfg.S3.Enabled() {
		m.client = newS3Client(cfg.S3)
		m.status.State = StateIdle
	}

	return m
}

func newS3Client(cfg config.S3Config) *s3.Client {
	opts := s3.Options{
		Region:       cfg.Region,
		Credentials:  credentials.NewStaticCredentialsProvider(cfg.AccessKey, cfg.SecretKey, ""),
		UsePathStyle: true,
	}
	if cfg.Endpoint != "" {
		opts.BaseEndpoint = aws.String(cfg.Endpoint)
	}
	return s3.New(opts)
}

// Start begins the scheduled backup loop. It does nothing when backups are
// disabled, no interval is set or no passphrase is configured.
func (m *Manager) Start(ctx context.Context) {
	m.mu.Lock()
	if m.status.State == StateDisabled || m.cfg.Interval <= 0 || m.cfg.Passphrase == "" || m.cancel != nil {
		m.mu.Unlock()
		return
	}
	ctx, m.cancel = context.WithCancel(ctx)
	m.done = make(chan struct{})
	interval := m.cfg.Interval
	m.mu.Unlock()

	go func() {
		defer close(m.done)
		ticker := time.NewTicker(interval)
		defer ticker.Stop()

		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				m.scheduled(ctx)
			}
		}
	}()
}

// Stop gracefully stops the backup loop.
func (m *Manager) Stop() {
	m.mu.RLock()
	cancel := m.cancel
	done := m.done
	m.mu.RUnlock()

	if cancel != nil {
		cancel()
	}
	if done != nil {
		<-done
	}
}

// Status returns the current backup status.
func (m *Manager) Status() Status {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.status
}

func (m *Manager) setStatus(s Status) {
	m.mu.Lock()
	m.status = s
	m.mu.Unlock()
	if m.callback != nil {
		m.callback(s)
	}
}

func (m *Manager) fail(err error) error {
	m.setStatus(Status{State: StateError, Error: err.Error()})
	return err
}

func (m *Manager) scheduled(ctx context.Context) {
	m.mu.RLock()
	passphrase := m.cfg.Passphrase
	retention := m.cfg.RetentionDays
	m.mu.RUnlock()

	if _, err := m.RunNow(ctx, passphrase); err != nil {
		m.logger.Error("scheduled backup failed", "error", err)
		return
	}
	if retention > 0 {
		if _, err := m.Cleanup(ctx, retention); err != nil {
			m.logger.Error("backup cleanup failed", "error", err)
		}
	}
}

func (m *Manager) s3() (s3Client, string, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	if m.client == nil {
		return nil, "", ErrDisabled
	}
	return m.client, m.cfg.S3.Bucket, nil
}

// RunNow snapshots the cache, encrypts it and uploads it.
func (m *Manager) RunNow(ctx context.Context, passphrase string) (Snapshot, error) {
	client, bucket, err := m.s3()
	if err != nil {
		return Snapshot{}, err
	}
	if passphrase == "" {
		return Snapshot{}, fmt.Errorf("backup passphrase is required")
	}
	if m.db == nil {
		return Snapshot{}, fmt.Errorf("backup: no database handle")
	}

	m.setStatus(Status{State: StateRunning, InProgress: true})

	plaintext, err := m.snapshot(ctx)
	if err != nil {
		return Snapshot{}, m.fail(err)
	}

	sealed, err := Seal(plaintext, passphrase)
	if err != nil {
		return Snapshot{}, m.fail(fmt.Errorf("encrypt snapshot: %w", err))
	}

	now := time.Now().UTC()
	key := keyPrefix + "cache-" + now.Format("2006-01-02T150405.000Z") + ".db.enc"
	_, err = client.PutObject(ctx, &s3.PutObjectInput{
		Bucket:        aws.String(bucket),
		Key:           aws.String(key),
		Body:          bytes.NewReader(sealed),
		ContentLength: aws.Int64(int64(len(sealed))),
	})
	if err != nil {
		return Snapshot{}, m.fail(fmt.Errorf("upload to s3: %w", err))
	}

	m.setStatus(Status{State: StateIdle, LastBackup: &now})
	m.logger.Info("backup uploaded", "key", key, "bytes", len(sealed))
	return Snapshot{Key: key, Size: int64(len(sealed)), LastModified: now}, nil
}

// snapshot checkpoints the WAL and writes a consistent copy of the cache
// with VACUUM INTO, which also works for in-memory databases.
func (m *Manager) snapshot(ctx context.Context) ([]byte, error) {
	if _, err := m.db.ExecContext(ctx, "PRAGMA wal_checkpoint(TRUNCATE)"); err != nil {
		return nil, fmt.Errorf("wal checkpoint: %w", err)
	}

	dir, err := os.MkdirTemp("", "grocysync-backup-")
	if err != nil {
		return nil, fmt.Errorf("create temp dir: %w", err)
	}
	defer os.RemoveAll(dir)

	copyPath := filepath.Join(dir, "cache.db")
	if _, err := m.db.ExecContext(ctx, "VACUUM INTO ?", copyPath); err != nil {
		return nil, fmt.Errorf("copy database: %w", err)
	}
	data, err := os.ReadFile(copyPath)
	if err != nil {
		return nil, fmt.Errorf("read snapshot: %w", err)
	}
	return data, nil
}

// List returns stored snapshots, newest first.
func (m *Manager) List(ctx context.Context) ([]Snapshot, error) {
	client, bucket, err := m.s3()
	if err != nil {
		return nil, err
	}

	var out []Snapshot
	var token *string
	for {
		page, err := client.ListObjectsV2(ctx, &s3.ListObjectsV2Input{
			Bucket:            aws.String(bucket),
			Prefix:            aws.String(keyPrefix),
			ContinuationToken: token,
		})
		if err != nil {
			return nil, fmt.Errorf("list snapshots: %w", err)
		}
		for _, obj := range page.Contents {
			key := aws.ToString(obj.Key)
			if !strings.HasSuffix(key, ".db.enc") {
				continue
			}
			out = append(out, Snapshot{
				Key:          key,
				Size:         aws.ToInt64(obj.Size),
				LastModified: aws.ToTime(obj.LastModified),
			})
		}
		if !aws.ToBool(page.IsTruncated) {
			break
		}
		token = page.NextContinuationToken
	}

	sort.Slice(out, func(i, j int) bool { return out[i].Key > out[j].Key })
	return out, nil
}

// Restore downloads a snapshot (the newest when key is empty), decrypts it,
// checks its integrity and replaces the cache file. The cache must not be
// open while this runs.
func (m *Manager) Restore(ctx context.Context, key, passphrase string) (string, error) {
	client, bucket, err := m.s3()
	if err != nil {
		return "", err
	}
	if m.cfg.DBPath == "" || m.cfg.DBPath == ":memory:" {
		return "", fmt.Errorf("restore needs a file-backed cache, got %q", m.cfg.DBPath)
	}

	if key == "" {
		snaps, err := m.List(ctx)
		if err != nil {
			return "", err
		}
		if len(snaps) == 0 {
			return "", ErrNoSnapshots
		}
		key = snaps[0].Key
	}

	result, err := client.GetObject(ctx, &s3.GetObjectInput{
		Bucket: aws.String(bucket),
		Key:    aws.String(key),
	})
	if err != nil {
		return "", fmt.Errorf("download from s3: %w", err)
	}
	sealed, err := io.ReadAll(result.Body)
	result.Body.Close()
	if err != nil {
		return "", fmt.Errorf("read snapshot: %w", err)
	}

	plaintext, err := Open(sealed, passphrase)
	if err != nil {
		return "", fmt.Errorf("decrypt snapshot: %w", err)
	}

	staged := m.cfg.DBPath + ".restore"
	if err := os.WriteFile(staged, plaintext, 0o600); err != nil {
		return "", fmt.Errorf("write restored db: %w", err)
	}
	defer os.Remove(staged)

	if err := checkIntegrity(ctx, staged); err != nil {
		return "", err
	}

	os.Remove(m.cfg.DBPath + "-wal")
	os.Remove(m.cfg.DBPath + "-shm")
	if err := os.Rename(staged, m.cfg.DBPath); err != nil {
		return "", fmt.Errorf("replace database: %w", err)
	}

	m.logger.Info("backup restored", "key", key, "path", m.cfg.DBPath)
	return key, nil
}

func checkIntegrity(ctx context.Context, path string) error {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return fmt.Errorf("open restored db: %w", err)
	}
	defer db.Close()

	var integrity string
	if err := db.QueryRowContext(ctx, "PRAGMA integrity_check").Scan(&integrity); err != nil {
		return fmt.Errorf("integrity check: %w", err)
	}
	if integrity != "ok" {
		return fmt.Errorf("integrity check failed: %s", integrity)
	}

	var n int
	err = db.QueryRowContext(ctx, `SELECT count(*) FROM sqlite_master WHERE type = 'table' AND name = 'sync_watermarks'`).Scan(&n)
	if err != nil {
		return fmt.Errorf("inspect restored db: %w", err)
	}
	if n == 0 {
		return fmt.Errorf("restored db is not a grocysync cache")
	}
	return nil
}

// Cleanup deletes snapshots older than the retention period, always keeping
// the newest one. It returns the number of deleted objects.
func (m *Manager) Cleanup(ctx context.Context, retentionDays int) (int, error) {
	client, bucket, err := m.s3()
	if err != nil {
		return 0, nil
	}

	snaps, err := m.List(ctx)
	if err != nil {
		return 0, err
	}

	before := time.Now().UTC().AddDate(0, 0, -retentionDays)
	deleted := 0
	for i, snap := range snaps {
		if i == 0 || !snap.LastModified.Before(before) {
			continue
		}
		if _, err := client.DeleteObject(ctx, &s3.DeleteObjectInput{
			Bucket: aws.String(bucket),
			Key:    aws.String(snap.Key),
		}); err != nil {
			m.logger.Warn("delete snapshot failed", "key", snap.Key, "error", err)
			continue
		}
		deleted++
	}
	return deleted, nil
}
