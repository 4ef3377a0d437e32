package storage

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/google/uuid"
	"twscrape/pkg/config"
	"twscrape/pkg/twitter"
)

// Kind names what a collection holds
type Kind string

const (
	KindTweets    Kind = "tweets"
	KindFollowers Kind = "followers"
)

// ErrExists is returned when output is present and overwriting is off
var ErrExists = errors.New("output already exists")

// Run identifies one collection for one user
type Run struct {
	ID        uuid.UUID
	StartedAt time.Time
	Max       int
}

// NewRun starts a run with a fresh id
func NewRun(max int) Run {
	return Run{ID: uuid.New(), StartedAt: time.Now(), Max: max}
}

// Manifest describes a saved collection. It is written next to the data file.
type Manifest struct {
	RunID      uuid.UUID `json:"run_id"`
	UserID     string    `json:"user_id"`
	Kind       Kind      `json:"kind"`
	Count      int       `json:"count"`
	Max        int       `json:"max"`
	File       string    `json:"file"`
	StartedAt  time.Time `json:"started_at"`
	FinishedAt time.Time `json:"finished_at"`
}

// Duration is how long the collection took
func (m *Manifest) Duration() time.Duration {
	return m.FinishedAt.Sub(m.StartedAt)
}

// Manager writes collected records below a base directory
type Manager struct {
	baseDir     string
	userFolders bool
	overwrite   bool
	pretty      bool

	mu    sync.Mutex
	saved map[string]bool
}

// NewManager creates a new storage manager
func NewManager(cfg *config.OutputConfig) (*Manager, error) {
	if err := os.MkdirAll(cfg.BaseDirectory, 0755); err != nil {
		return nil, fmt.Errorf("failed to create output directory: %w", err)
	}

	return &Manager{
		baseDir:     cfg.BaseDirectory,
		userFolders: cfg.CreateUserFolders,
		overwrite:   cfg.OverwriteExisting,
		pretty:      cfg.Pretty,
		saved:       make(map[string]bool),
	}, nil
}

// Path returns where the records of kind for userID are stored
func (m *Manager) Path(userID string, kind Kind) string {
	if m.userFolders {
		return filepath.Join(m.baseDir, userID, string(kind)+".json")
	}
	return filepath.Join(m.baseDir, fmt.Sprintf("%s_%s.json", userID, kind))
}

func manifestPath(dataPath string) string {
	return dataPath[:len(dataPath)-len(".json")] + ".manifest.json"
}

// Exists checks if records of kind are already stored for userID
func (m *Manager) Exists(userID string, kind Kind) bool {
	_, err := os.Stat(m.Path(userID, kind))
	return err == nil
}

// CheckWritable returns ErrExists when saving would overwrite existing output
func (m *Manager) CheckWritable(userID string, kind Kind) error {
	if m.overwrite || !m.Exists(userID, kind) {
		return nil
	}
	return fmt.Errorf("%w: %s", ErrExists, m.Path(userID, kind))
}

// SaveTweets stores tweets and their manifest
func (m *Manager) SaveTweets(userID string, tweets []twitter.Tweet, run Run) (*Manifest, error) {
	return save(m, userID, KindTweets, tweets, run)
}

// SaveFollowers stores followers and their manifest
func (m *Manager) SaveFollowers(userID string, followers []twitter.Follower, run Run) (*Manifest, error) {
	return save(m, userID, KindFollowers, followers, run)
}

func save[T any](m *Manager, userID string, kind Kind, records []T, run Run) (*Manifest, error) {
	if err := m.CheckWritable(userID, kind); err != nil {
		return nil, err
	}

	path := m.Path(userID, kind)
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return nil, fmt.Errorf("failed to create user directory: %w", err)
	}

	if records == nil {
		records = []T{}
	}
	data, err := m.marshal(records)
	if err != nil {
		return nil, fmt.Errorf("failed to encode %s: %w", kind, err)
	}
	if err := writeAtomic(path, data); err != nil {
		return nil, err
	}

	manifest := &Manifest{
		RunID:      run.ID,
		UserID:     userID,
		Kind:       kind,
		Count:      len(records),
		Max:        run.Max,
		File:       filepath.Base(path),
		StartedAt:  run.StartedAt,
		FinishedAt: time.Now(),
	}
	data, err = json.MarshalIndent(manifest, "", "  ")
	if err != nil {
		return nil, fmt.Errorf("failed to encode manifest: %w", err)
	}
	if err := writeAtomic(manifestPath(path), data); err != nil {
		return nil, err
	}

	m.mu.Lock()
	m.saved[path] = true
	m.mu.Unlock()

	return manifest, nil
}

func (m *Manager) marshal(v interface{}) ([]byte, error) {
	if m.pretty {
		return json.MarshalIndent(v, "", "  ")
	}
	return json.Marshal(v)
}

// LoadTweets reads stored tweets for userID
func (m *Manager) LoadTweets(userID string) ([]twitter.Tweet, error) {
	var tweets []twitter.Tweet
	if err := readJSON(m.Path(userID, KindTweets), &tweets); err != nil {
		return nil, err
	}
	return tweets, nil
}

// LoadFollowers reads stored followers for userID
func (m *Manager) LoadFollowers(userID string) ([]twitter.Follower, error) {
	var followers []twitter.Follower
	if err := readJSON(m.Path(userID, KindFollowers), &followers); err != nil {
		return nil, err
	}
	return followers, nil
}

// LoadManifest reads the manifest of the last saved run
func (m *Manager) LoadManifest(userID string, kind Kind) (*Manifest, error) {
	var manifest Manifest
	if err := readJSON(manifestPath(m.Path(userID, kind)), &manifest); err != nil {
		return nil, err
	}
	return &manifest, nil
}

// GetOutputDir returns the output directory path
func (m *Manager) GetOutputDir() string {
	return m.baseDir
}

// GetSavedCount returns how many files this manager has written
func (m *Manager) GetSavedCount() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.saved)
}

func readJSON(path string, v interface{}) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("failed to read %s: %w", path, err)
	}
	if err := json.Unmarshal(data, v); err != nil {
		return fmt.Errorf("failed to decode %s: %w", path, err)
	}
	return nil
}

// writeAtomic writes data to a temporary file and renames it into place
func writeAtomic(path string, data []byte) error {
	tempFile := path + ".tmp"
	if err := os.WriteFile(tempFile, data, 0644); err != nil {
		os.Remove(tempFile)
		return fmt.Errorf("failed to write temporary file: %w", err)
	}

	if err := os.Rename(tempFile, path); err != nil {
		os.Remove(tempFile)
		return fmt.Errorf("failed to rename temporary file: %w", err)
	}

	return nil
}
