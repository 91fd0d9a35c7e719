package storage

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"regexp"
	"strings"
	"sync"

	logx "pullupd/pkg/logx"
)

// fileStore keeps one <key>.json file per blob under a directory.
//
// Writes go through a temp file + rename so a crash mid-write never leaves a
// torn blob behind.
type fileStore struct {
	log logx.Logger
	dir string

	mu sync.Mutex
}

var blobKeyRe = regexp.MustCompile(`^[a-z0-9][a-z0-9._-]*$`)

func openFile(cfg Config, log logx.Logger) (Store, error) {
	dir := strings.TrimSpace(cfg.Path)
	if dir == "" {
		return nil, errors.New("storage.path is required for file driver")
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, err
	}
	return &fileStore{log: log, dir: dir}, nil
}

func (s *fileStore) Close() error { return nil }

func (s *fileStore) blobPath(key string) (string, error) {
	key = strings.TrimSpace(strings.ToLower(key))
	if !blobKeyRe.MatchString(key) {
		return "", errors.New("invalid blob key: " + key)
	}
	return filepath.Join(s.dir, key+".json"), nil
}

func (s *fileStore) GetBlob(ctx context.Context, key string) ([]byte, bool, error) {
	_ = ctx
	path, err := s.blobPath(key)
	if err != nil {
		return nil, false, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	b, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, false, nil
		}
		return nil, false, err
	}
	return b, true, nil
}

func (s *fileStore) PutBlob(ctx context.Context, key string, data []byte) error {
	_ = ctx
	path, err := s.blobPath(key)
	if err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	tmp := path + ".tmp"
	if err := os.WriteFile(tmp, data, 0o600); err != nil {
		return err
	}
	if err := os.Rename(tmp, path); err != nil {
		_ = os.Remove(tmp)
		return err
	}
	return nil
}
