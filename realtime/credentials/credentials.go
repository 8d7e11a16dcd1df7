// Package credentials provides the token sources a realtime.Client can
// attach to its connection target.
package credentials

import (
	"context"
	"errors"
	"fmt"
	"os"
	"strings"
)

// ErrNoToken is returned when a store holds no credential. The client then
// connects without one.
var ErrNoToken = errors.New("credentials: no token available")

// Static always returns the same token. An empty Static returns ErrNoToken.
type Static string

// Token implements realtime.CredentialStore.
func (s Static) Token(context.Context) (string, error) {
	if s == "" {
		return "", ErrNoToken
	}
	return string(s), nil
}

// FileStore reads the token from a file on every lookup, so rotating the
// file takes effect on the next connection attempt.
type FileStore struct {
	Path string
}

// NewFileStore returns a FileStore reading from path.
func NewFileStore(path string) *FileStore {
	return &FileStore{Path: path}
}

// Token implements realtime.CredentialStore.
func (f *FileStore) Token(context.Context) (string, error) {
	data, err := os.ReadFile(f.Path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return "", ErrNoToken
		}
		return "", fmt.Errorf("read token file: %w", err)
	}
	token := strings.TrimSpace(string(data))
	if token == "" {
		return "", ErrNoToken
	}
	return token, nil
}
