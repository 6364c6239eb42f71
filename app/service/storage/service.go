// Package storage is the durable write-through collaborator: completed
// summary artifacts are persisted as JSON documents under the data
// directory. Session purges never touch these files.
package storage

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/DandyChux/raecer-bot/app/config"
	"github.com/samber/do"
)

var ErrPersistence = errors.New("durable write failed")

type Service struct {
	dataDir string
}

func New(di *do.Injector) (*Service, error) {
	cfg := do.MustInvoke[*config.Config](di)

	return NewService(cfg.Storage.DataDir)
}

func NewService(dataDir string) (*Service, error) {
	if err := os.MkdirAll(dataDir, 0755); err != nil {
		return nil, fmt.Errorf("failed to create data directory: %w", err)
	}

	return &Service{dataDir: dataDir}, nil
}

// Append writes doc as an indented JSON document named name under the data
// directory. Failures surface as ErrPersistence.
func (s *Service) Append(ctx context.Context, name string, doc any) error {
	if err := ctx.Err(); err != nil {
		return fmt.Errorf("%w: %w", ErrPersistence, err)
	}

	path := filepath.Join(s.dataDir, name)

	file, err := os.OpenFile(path, os.O_WRONLY|os.O_CREATE|os.O_TRUNC, 0644)
	if err != nil {
		return fmt.Errorf("%w: failed to create %s: %w", ErrPersistence, name, err)
	}
	defer file.Close()

	encoder := json.NewEncoder(file)
	encoder.SetIndent("", "  ")

	if err = encoder.Encode(doc); err != nil {
		return fmt.Errorf("%w: failed to write %s: %w", ErrPersistence, name, err)
	}

	return nil
}
