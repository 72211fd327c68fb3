package checkpoint

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"runtime"
	"time"

	"followscope/pkg/logger"
)

// Version is the on-disk format version
const Version = 1

// Phase records how far a scan got before it stopped
type Phase string

const (
	PhaseStarted      Phase = "started"
	PhaseIDsCollected Phase = "ids_collected"
)

// Checkpoint represents the state of an interrupted scan
type Checkpoint struct {
	UserID       string    `json:"user_id"`
	RunID        string    `json:"run_id"`
	Phase        Phase     `json:"phase"`
	FollowingIDs []string  `json:"following_ids"`
	FollowerIDs  []string  `json:"follower_ids"`
	CreatedAt    time.Time `json:"created_at"`
	UpdatedAt    time.Time `json:"updated_at"`
	Version      int       `json:"version"`
}

// Manager handles checkpoint operations for one account
type Manager struct {
	checkpointPath string
	logger         logger.Logger
}

// NewManager creates a checkpoint manager for userID. An empty dir selects
// the platform data directory.
func NewManager(userID, dir string) (*Manager, error) {
	if userID == "" {
		return nil, fmt.Errorf("checkpoint requires a user id")
	}
	if dir == "" {
		dataDir, err := getDataDirectory()
		if err != nil {
			return nil, fmt.Errorf("failed to get data directory: %w", err)
		}
		dir = filepath.Join(dataDir, "checkpoints")
	}

	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("failed to create checkpoints directory: %w", err)
	}

	return &Manager{
		checkpointPath: filepath.Join(dir, fmt.Sprintf("%s.checkpoint.json", userID)),
		logger:         logger.GetLogger(),
	}, nil
}

// SetLogger replaces the manager's logger
func (m *Manager) SetLogger(l logger.Logger) {
	m.logger = l
}

// Path returns the checkpoint file location
func (m *Manager) Path() string {
	return m.checkpointPath
}

// Create saves and returns a fresh checkpoint for a new run
func (m *Manager) Create(userID, runID string) (*Checkpoint, error) {
	now := time.Now()
	cp := &Checkpoint{
		UserID:    userID,
		RunID:     runID,
		Phase:     PhaseStarted,
		CreatedAt: now,
		UpdatedAt: now,
		Version:   Version,
	}

	if err := m.Save(cp); err != nil {
		return nil, fmt.Errorf("failed to save initial checkpoint: %w", err)
	}

	m.logger.InfoWithFields("Checkpoint created", map[string]interface{}{
		"user_id": userID,
		"run_id":  runID,
		"path":    m.checkpointPath,
	})

	return cp, nil
}

// Load loads an existing checkpoint. It returns nil, nil when none exists.
func (m *Manager) Load() (*Checkpoint, error) {
	file, err := os.Open(m.checkpointPath)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to open checkpoint file: %w", err)
	}
	defer file.Close()

	var cp Checkpoint
	if err := json.NewDecoder(file).Decode(&cp); err != nil {
		return nil, fmt.Errorf("failed to decode checkpoint: %w", err)
	}
	if cp.Version != Version {
		m.logger.WarnWithFields("Ignoring checkpoint with unknown version", map[string]interface{}{
			"version": cp.Version,
			"path":    m.checkpointPath,
		})
		return nil, nil
	}

	m.logger.InfoWithFields("Checkpoint loaded", map[string]interface{}{
		"user_id":   cp.UserID,
		"phase":     cp.Phase,
		"following": len(cp.FollowingIDs),
		"followers": len(cp.FollowerIDs),
		"updated":   cp.UpdatedAt,
	})

	return &cp, nil
}

// Save saves the checkpoint to disk atomically
func (m *Manager) Save(cp *Checkpoint) error {
	cp.UpdatedAt = time.Now()

	tempPath := m.checkpointPath + ".tmp"
	file, err := os.Create(tempPath)
	if err != nil {
		return fmt.Errorf("failed to create temporary checkpoint file: %w", err)
	}

	encoder := json.NewEncoder(file)
	encoder.SetIndent("", "  ")
	if err := encoder.Encode(cp); err != nil {
		file.Close()
		os.Remove(tempPath)
		return fmt.Errorf("failed to encode checkpoint: %w", err)
	}

	if err := file.Sync(); err != nil {
		file.Close()
		os.Remove(tempPath)
		return fmt.Errorf("failed to sync checkpoint file: %w", err)
	}

	if err := file.Close(); err != nil {
		os.Remove(tempPath)
		return fmt.Errorf("failed to close checkpoint file: %w", err)
	}

	if err := os.Rename(tempPath, m.checkpointPath); err != nil {
		os.Remove(tempPath)
		return fmt.Errorf("failed to replace checkpoint file: %w", err)
	}

	m.logger.DebugWithFields("Checkpoint saved", map[string]interface{}{
		"user_id": cp.UserID,
		"phase":   cp.Phase,
	})

	return nil
}

// RecordIDs stores both collected ID sets and advances the phase
func (m *Manager) RecordIDs(cp *Checkpoint, following, followers []string) error {
	cp.FollowingIDs = following
	cp.FollowerIDs = followers
	cp.Phase = PhaseIDsCollected
	return m.Save(cp)
}

// Delete removes the checkpoint file
func (m *Manager) Delete() error {
	if err := os.Remove(m.checkpointPath); err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("failed to delete checkpoint: %w", err)
	}

	m.logger.Debug("Checkpoint deleted")
	return nil
}

// Exists checks if a checkpoint file exists
func (m *Manager) Exists() bool {
	_, err := os.Stat(m.checkpointPath)
	return err == nil
}

// Info returns a summary of the checkpoint, or nil if none exists
func (m *Manager) Info() (map[string]interface{}, error) {
	cp, err := m.Load()
	if err != nil || cp == nil {
		return nil, err
	}

	return map[string]interface{}{
		"user_id":    cp.UserID,
		"run_id":     cp.RunID,
		"phase":      cp.Phase,
		"following":  len(cp.FollowingIDs),
		"followers":  len(cp.FollowerIDs),
		"created_at": cp.CreatedAt,
		"updated_at": cp.UpdatedAt,
		"age":        time.Since(cp.UpdatedAt),
	}, nil
}

// getDataDirectory returns the appropriate data directory for the current OS
func getDataDirectory() (string, error) {
	var dataDir string

	switch runtime.GOOS {
	case "darwin":
		home, err := os.UserHomeDir()
		if err != nil {
			return "", err
		}
		dataDir = filepath.Join(home, "Library", "Application Support", "followscope")
	case "windows":
		appData := os.Getenv("APPDATA")
		if appData == "" {
			return "", fmt.Errorf("APPDATA environment variable not set")
		}
		dataDir = filepath.Join(appData, "followscope")
	default:
		if xdgDataHome := os.Getenv("XDG_DATA_HOME"); xdgDataHome != "" {
			dataDir = filepath.Join(xdgDataHome, "followscope")
		} else {
			home, err := os.UserHomeDir()
			if err != nil {
				return "", err
			}
			dataDir = filepath.Join(home, ".local", "share", "followscope")
		}
	}

	if err := os.MkdirAll(dataDir, 0o755); err != nil {
		return "", fmt.Errorf("failed to create data directory: %w", err)
	}

	return dataDir, nil
}
