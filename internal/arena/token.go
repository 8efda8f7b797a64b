package arena

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
)

// LoadToken reads the API token stored by `bomsync login`.
func LoadToken(path string) (string, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return "", fmt.Errorf("arena: read token %s: %w", path, err)
	}
	token := strings.TrimSpace(string(data))
	if token == "" {
		return "", fmt.Errorf("arena: token file %s is empty (run bomsync login)", path)
	}
	return token, nil
}

// SaveToken writes the API token readable only by the owner.
func SaveToken(path, token string) error {
	if err := os.MkdirAll(filepath.Dir(path), 0700); err != nil {
		return fmt.Errorf("arena: create token dir: %w", err)
	}
	if err := os.WriteFile(path, []byte(token+"\n"), 0600); err != nil {
		return fmt.Errorf("arena: write token %s: %w", path, err)
	}
	return nil
}
