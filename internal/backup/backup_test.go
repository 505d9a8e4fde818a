package backup

import (
	"bytes"
	"context"
	"errors"
	"io"
	"path/filepath"
	"sort"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/aws/aws-sdk-go-v2/service/s3/types"

	"github.com/dukerupert/grocysync/internal/config"
	"github.com/dukerupert/grocysync/internal/database"
	"github.com/dukerupert/grocysync/internal/model"
	"github.com/dukerupert/grocysync/internal/store"
)

type mockObject struct {
	data     []byte
	modified time.Time
}

// mockS3Client implements s3Client for testing.
type mockS3Client struct {
	mu      sync.Mutex
	objects map[string]mockObject
	putErr  error
}

func newMockS3() *mockS3Client {
	return &mockS3Client{objects: make(map[string]mockObject)}
}

func (m *mockS3Client) PutObject(_ context.Context, input *s3.PutObjectInput, _ ...func(*s3.Options)) (*s3.PutObjectOutput, error) {
	if m.putErr != nil {
		return nil, m.putErr
	}
	data, _ := io.ReadAll(input.Body)
	m.mu.Lock()
	defer m.mu.Unlock()
	m.objects[*input.Key] = mockObject{data: data, modified: time.Now().UTC()}
	return &s3.PutObjectOutput{}, nil
}

func (m *mockS3Client) GetObject(_ context.Context, input *s3.GetObjectInput, _ ...func(*s3.Options)) (*s3.GetObjectOutput, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	obj, ok := m.objects[*input.Key]
	if !ok {
		return nil, errors.New("NoSuchKey")
	}
	return &s3.GetObjectOutput{Body: io.NopCloser(bytes.NewReader(obj.data))}, nil
}

func (m *mockS3Client) DeleteObject(_ context.Context, input *s3.DeleteObjectInput, _ ...func(*s3.Options)) (*s3.DeleteObjectOutput, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.objects, *input.Key)
	return &s3.DeleteObjectOutput{}, nil
}

func (m *mockS3Client) ListObjectsV2(_ context.Context, input *s3.ListObjectsV2Input, _ ...func(*s3.Options)) (*s3.ListObjectsV2Output, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var keys []string
	for k := range m.objects {
		if strings.HasPrefix(k, aws.ToString(input.Prefix)) {
			keys = append(keys, k)
		}
	}
	sort.Strings(keys)
	out := &s3.ListObjectsV2Output{IsTruncated: aws.Bool(false)}
	for _, k := range keys {
		obj := m.objects[k]
		out.Contents = append(out.Contents, types.Object{
			Key:          aws.String(k),
			Size:         aws.Int64(int64(len(obj.data))),
			LastModified: aws.Time(obj.modified),
		})
	}
	return out, nil
}

func (m *mockS3Client) put(key string, data []byte, modified time.Time) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.objects[key] = mockObject{data: data, modified: modified}
}

var testS3 = config.S3Config{Bucket: "test", AccessKey: "key", SecretKey: "secret", Region: "us-east-1"}

func newTestManager(t *testing.T, cfg Config, withDB bool) (*Manager, *mockS3Client, *store.Stores) {
	t.Helper()
	var st *store.Stores
	m := NewManager(cfg, nil, nil, nil)
	if withDB {
		db, err := database.Open(":memory:")
		if err != nil {
			t.Fatalf("open test db: %v", err)
		}
		t.Cleanup(func() { db.Close() })
		m.db = db
		st = store.New(db)
	}
	mock := newMockS3()
	m.client = mock
	return m, mock, st
}

func TestManagerStateLifecycle(t *testing.T) {
	if got := NewManager(Config{}, nil, nil, nil).Status().State; got != StateDisabled {
		t.Errorf("state = %q, want %q", got, StateDisabled)
	}
	if got := NewManager(Config{S3: testS3}, nil, nil, nil).Status().State; got != StateIdle {
		t.Errorf("state = %q, want %q", got, StateIdle)
	}
}

func TestDisabledManager(t *testing.T) {
	m := NewManager(Config{}, nil, nil, nil)
	ctx := context.Background()

	if _, err := m.RunNow(ctx, "secret"); !errors.Is(err, ErrDisabled) {
		t.Errorf("RunNow err = %v, want ErrDisabled", err)
	}
	if _, err := m.Restore(ctx, "", "secret"); !errors.Is(err, ErrDisabled) {
		t.Errorf("Restore err = %v, want ErrDisabled", err)
	}
	if n, err := m.Cleanup(ctx, 30); n != 0 || err != nil {
		t.Errorf("Cleanup = %d, %v", n, err)
	}

	m.Start(ctx)
	m.Stop()
}

func TestManagerStopSafety(t *testing.T) {
	m, _, _ := newTestManager(t, Config{S3: testS3, Interval: time.Hour, Passphrase: "secret"}, true)

	ctx, cancel := context.WithCancel(context.Background())
	m.Start(ctx)
	cancel()
	m.Stop()
	m.Stop()
}

func TestRunNowAndRestore(t *testing.T) {
	var mu sync.Mutex
	var states []State
	dbPath := filepath.Join(t.TempDir(), "cache.db")

	m, mock, st := newTestManager(t, Config{S3: testS3, DBPath: dbPath}, true)
	m.callback = func(s Status) {
		mu.Lock()
		states = append(states, s.State)
		mu.Unlock()
	}

	ctx := context.Background()
	if err := st.Products.UpsertAll(ctx, []model.Product{{ID: 1, Name: "Milk", Active: true}}); err != nil {
		t.Fatal(err)
	}

	snap, err := m.RunNow(ctx, "secret")
	if err != nil {
		t.Fatalf("run backup: %v", err)
	}
	if !strings.HasPrefix(snap.Key, keyPrefix) {
		t.Errorf("key = %q", snap.Key)
	}
	if _, ok := mock.objects[snap.Key]; !ok {
		t.Fatal("snapshot not uploaded")
	}

	mu.Lock()
	if len(states) != 2 || states[0] != StateRunning || states[1] != StateIdle {
		t.Errorf("states = %v, want [running idle]", states)
	}
	mu.Unlock()

	if _, err := m.Restore(ctx, "", "wrong"); !errors.Is(err, ErrWrongPassphrase) {
		t.Errorf("restore with wrong passphrase err = %v", err)
	}

	key, err := m.Restore(ctx, "", "secret")
	if err != nil {
		t.Fatalf("restore: %v", err)
	}
	if key != snap.Key {
		t.Errorf("restored %q, want %q", key, snap.Key)
	}

	db, err := database.Open(dbPath)
	if err != nil {
		t.Fatalf("open restored db: %v", err)
	}
	defer db.Close()
	p, err := store.New(db).Products.FindByID(ctx, 1)
	if err != nil || p == nil || p.Name != "Milk" {
		t.Errorf("restored product = %+v, %v", p, err)
	}
}

func TestRunNowUploadFailure(t *testing.T) {
	m, mock, _ := newTestManager(t, Config{S3: testS3}, true)
	mock.putErr = errors.New("bucket gone")

	if _, err := m.RunNow(context.Background(), "secret"); err == nil {
		t.Fatal("expected upload error")
	}
	if s := m.Status(); s.State != StateError || s.Error == "" {
		t.Errorf("status = %+v, want error state", s)
	}
}

func TestRunNowNeedsPassphrase(t *testing.T) {
	m, _, _ := newTestManager(t, Config{S3: testS3}, true)
	if _, err := m.RunNow(context.Background(), ""); err == nil {
		t.Fatal("expected error without passphrase")
	}
}

func TestRestoreRejectsForeignObject(t *testing.T) {
	dbPath := filepath.Join(t.TempDir(), "cache.db")
	m, mock, _ := newTestManager(t, Config{S3: testS3, DBPath: dbPath}, false)

	mock.put(keyPrefix+"cache-x.db.enc", []byte("definitely not encrypted"), time.Now())
	if _, err := m.Restore(context.Background(), "", "secret"); !errors.Is(err, ErrNotSnapshot) {
		t.Errorf("err = %v, want ErrNotSnapshot", err)
	}

	sealed, _ := Seal([]byte("plain text, not sqlite"), "secret")
	mock.put(keyPrefix+"cache-y.db.enc", sealed, time.Now())
	if _, err := m.Restore(context.Background(), keyPrefix+"cache-y.db.enc", "secret"); err == nil {
		t.Error("expected integrity failure")
	}
}

func TestRestoreEmptyBucket(t *testing.T) {
	dbPath := filepath.Join(t.TempDir(), "cache.db")
	m, _, _ := newTestManager(t, Config{S3: testS3, DBPath: dbPath}, false)
	if _, err := m.Restore(context.Background(), "", "secret"); !errors.Is(err, ErrNoSnapshots) {
		t.Errorf("err = %v, want ErrNoSnapshots", err)
	}
}

func TestListAndCleanup(t *testing.T) {
	m, mock, _ := newTestManager(t, Config{S3: testS3}, false)
	now := time.Now().UTC()

	mock.put(keyPrefix+"cache-2024-01-01T000000.000Z.db.enc", []byte("a"), now.AddDate(0, 0, -90))
	mock.put(keyPrefix+"cache-2024-02-01T000000.000Z.db.enc", []byte("b"), now.AddDate(0, 0, -60))
	mock.put(keyPrefix+"cache-2024-03-01T000000.000Z.db.enc", []byte("c"), now.AddDate(0, 0, -1))
	mock.put(keyPrefix+"notes.txt", []byte("skip"), now)

	snaps, err := m.List(context.Background())
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(snaps) != 3 {
		t.Fatalf("got %d snapshots, want 3", len(snaps))
	}
	if !strings.Contains(snaps[0].Key, "2024-03-01") {
		t.Errorf("newest = %q", snaps[0].Key)
	}

	n, err := m.Cleanup(context.Background(), 30)
	if err != nil {
		t.Fatalf("cleanup: %v", err)
	}
	if n != 2 {
		t.Errorf("deleted %d, want 2", n)
	}

	mock.put(keyPrefix+"cache-2024-03-01T000000.000Z.db.enc", []byte("c"), now.AddDate(0, 0, -365))
	if n, _ := m.Cleanup(context.Background(), 30); n != 0 {
		t.Errorf("newest snapshot deleted, n = %d", n)
	}
}
