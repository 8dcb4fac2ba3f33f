package whisper

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
)

var (
	ErrUnknownModel  = errors.New("unknown model")
	ErrModelNotFound = errors.New("model not found")
)

// ModelPath returns where modelID lives inside dir. An empty dir means
// DefaultModelsDir.
func ModelPath(dir, modelID string) (string, error) {
	info := GetModel(modelID)
	if info == nil {
		return "", fmt.Errorf("%w: %s", ErrUnknownModel, modelID)
	}

	if dir == "" {
		d, err := DefaultModelsDir()
		if err != nil {
			return "", fmt.Errorf("resolve models directory: %w", err)
		}
		dir = d
	}
	return filepath.Join(dir, info.Filename), nil
}

// Load resolves a named model in dir and fails if the file is absent or empty.
// Download and unpacking are handled outside this program.
func Load(dir, modelID string) (string, error) {
	path, err := ModelPath(dir, modelID)
	if err != nil {
		return "", err
	}

	st, err := os.Stat(path)
	if err != nil {
		if os.IsNotExist(err) {
			return "", fmt.Errorf("%w: %s (expected %s)", ErrModelNotFound, modelID, path)
		}
		return "", fmt.Errorf("stat model %s: %w", path, err)
	}
	if st.IsDir() || st.Size() == 0 {
		return "", fmt.Errorf("%w: %s is not a model file", ErrModelNotFound, path)
	}

	return path, nil
}

// IsInstalled returns true if the model file is present in dir
func IsInstalled(dir, modelID string) bool {
	_, err := Load(dir, modelID)
	return err == nil
}

// ListInstalled returns IDs of all installed models in dir
func ListInstalled(dir string) []string {
	var installed []string
	for _, m := range models {
		if IsInstalled(dir, m.ID) {
			installed = append(installed, m.ID)
		}
	}
	return installed
}
