package repository

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"

	"github.com/programmingdumpster/partybot/internal/repository"
)

type FileRepository struct {
	path string
}

func NewFileRepository(dir, name string) repository.PartyRepository {
	return &FileRepository{path: filepath.Join(dir, name)}
}

// LoadParties returns an error wrapping both repository.ErrNoSnapshot and
// fs.ErrNotExist when no snapshot was ever written.
func (r *FileRepository) LoadParties(_ context.Context) (map[string]repository.Party, error) {
	b, err := os.ReadFile(r.path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, fmt.Errorf("%w: %w", repository.ErrNoSnapshot, err)
		}
		return nil, fmt.Errorf("read party snapshot %s: %w", r.path, err)
	}
	parties := make(map[string]repository.Party)
	if err := json.Unmarshal(b, &parties); err != nil {
		return nil, fmt.Errorf("decode party snapshot %s: %w", r.path, err)
	}
	return parties, nil
}

func (r *FileRepository) SaveParties(_ context.Context, parties map[string]repository.Party) error {
	if parties == nil {
		parties = map[string]repository.Party{}
	}
	b, err := json.MarshalIndent(parties, "", "    ")
	if err != nil {
		return fmt.Errorf("encode party snapshot: %w", err)
	}
	dir := filepath.Dir(r.path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("create data dir %s: %w", dir, err)
	}

	tmp, err := os.CreateTemp(dir, filepath.Base(r.path)+".*.tmp")
	if err != nil {
		return fmt.Errorf("create temp snapshot: %w", err)
	}
	tmpName := tmp.Name()
	committed := false
	defer func() {
		if !committed {
			_ = os.Remove(tmpName)
		}
	}()

	if _, err := tmp.Write(b); err != nil {
		_ = tmp.Close()
		return fmt.Errorf("write temp snapshot: %w", err)
	}
	if err := tmp.Sync(); err != nil {
		_ = tmp.Close()
		return fmt.Errorf("sync temp snapshot: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("close temp snapshot: %w", err)
	}
	if err := os.Rename(tmpName, r.path); err != nil {
		return fmt.Errorf("replace party snapshot: %w", err)
	}
	committed = true
	return nil
}
