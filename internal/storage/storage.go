package storage

import (
	"context"
	"errors"
	"strings"
	"time"

	logx "pullupd/pkg/logx"
)

// ErrDisabled is returned by a nil-safe call on a disabled store.
var ErrDisabled = errors.New("storage disabled")

// Store is the minimal persistence API: named JSON blobs.
//
// Callers at the domain boundary treat any error as "value absent" on read
// and ignore it on write; availability wins over durability here.
type Store interface {
	GetBlob(ctx context.Context, key string) (data []byte, ok bool, err error)
	PutBlob(ctx context.Context, key string, data []byte) error
	Close() error
}

type Config struct {
	Driver      string
	Path        string
	BusyTimeout time.Duration // sqlite only
}

// Open initializes the configured store.
// It returns (nil, nil) if storage is disabled.
func Open(cfg Config, log logx.Logger) (Store, error) {
	driver := strings.ToLower(strings.TrimSpace(cfg.Driver))
	if driver == "" || driver == "none" {
		return nil, nil
	}
	if log.IsZero() {
		log = logx.Nop()
	}

	switch driver {
	case "file":
		return openFile(cfg, log)
	case "sqlite", "sqlite3":
		return openSQLite(cfg, log)
	default:
		return nil, errors.New("unknown storage driver: " + driver)
	}
}
