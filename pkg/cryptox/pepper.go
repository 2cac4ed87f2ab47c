package cryptox

import (
	"crypto/rand"
	"encoding/base64"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
)

const pepperLength = 32

var ErrEmptyPepperPath = errors.New("pepper path must not be empty")

// LoadOrGeneratePepper loads the pepper from path, generating and persisting
// a new one (mode 0600) when the file does not exist yet.
func LoadOrGeneratePepper(path string) (string, error) {
	if strings.TrimSpace(path) == "" {
		return "", ErrEmptyPepperPath
	}

	path = filepath.Clean(path)
	if err := os.MkdirAll(filepath.Dir(path), 0750); err != nil {
		return "", fmt.Errorf("failed to create pepper directory: %w", err)
	}

	data, err := os.ReadFile(path)
	switch {
	case err == nil:
		pepper := strings.TrimSpace(string(data))
		if pepper == "" {
			return "", fmt.Errorf("pepper file %s is empty", path)
		}
		return pepper, nil
	case !errors.Is(err, os.ErrNotExist):
		return "", fmt.Errorf("failed to read pepper file: %w", err)
	}

	pepper, err := GeneratePepper()
	if err != nil {
		return "", err
	}
	if err := os.WriteFile(path, []byte(pepper), 0600); err != nil {
		return "", fmt.Errorf("failed to write pepper file: %w", err)
	}
	return pepper, nil
}

// GeneratePepper returns a new random pepper, base64url encoded.
func GeneratePepper() (string, error) {
	buf := make([]byte, pepperLength)
	if _, err := rand.Read(buf); err != nil {
		return "", fmt.Errorf("failed to generate pepper: %w", err)
	}
	return base64.RawURLEncoding.EncodeToString(buf), nil
}
