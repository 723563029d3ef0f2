// Package storage persists user data and the correction-factor table
// as JSON documents over an archive backend.
package storage

import (
	"context"
	"encoding/json"

	"github.com/Haoqi7/FundQuant-Pro/internal/core"
	"github.com/Haoqi7/FundQuant-Pro/internal/storage/archive"
	"go.uber.org/zap"
)

const (
	userDataPath = "userdata.json"
	factorsPath  = "factors.json"
)

// UserData is everything the user owns: portfolio, history, watchlist
// and advisory settings. It is saved as one document so a snapshot is
// always internally consistent.
type UserData struct {
	Positions    []core.Position     `json:"positions"`
	Transactions []core.Transaction  `json:"transactions"`
	Watchlist    []string            `json:"watchlist"`
	Advisory     core.AdvisoryConfig `json:"advisory"`
}

// Store reads and writes the application documents.
type Store struct {
	backend archive.Backend
	logger  *zap.Logger
}

// New creates a store over the given backend.
func New(backend archive.Backend, logger *zap.Logger) *Store {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Store{backend: backend, logger: logger}
}

// LoadUserData returns the persisted user data, or zero-value defaults
// when no document exists yet.
func (s *Store) LoadUserData(ctx context.Context) (UserData, error) {
	var data UserData

	ok, err := s.backend.Exists(ctx, userDataPath)
	if err != nil {
		return data, core.WrapError(core.ErrStorageFailed, err)
	}
	if !ok {
		s.logger.Info("no user data document, starting fresh")
		return data, nil
	}

	raw, err := s.backend.Read(ctx, userDataPath)
	if err != nil {
		return data, core.WrapError(core.ErrStorageFailed, err)
	}
	if err := json.Unmarshal(raw, &data); err != nil {
		return UserData{}, core.WrapError(core.ErrStorageFailed, err)
	}
	return data, nil
}

// SaveUserData writes the full user data document.
func (s *Store) SaveUserData(ctx context.Context, data UserData) error {
	raw, err := json.MarshalIndent(data, "", "  ")
	if err != nil {
		return err
	}
	if err := s.backend.Write(ctx, userDataPath, raw); err != nil {
		return core.WrapError(core.ErrStorageFailed, err)
	}
	return nil
}

// LoadFactorTable returns the persisted correction factors, or an
// empty table when none were saved yet.
func (s *Store) LoadFactorTable(ctx context.Context) (core.FactorTable, error) {
	table := core.FactorTable{}

	ok, err := s.backend.Exists(ctx, factorsPath)
	if err != nil {
		return table, core.WrapError(core.ErrStorageFailed, err)
	}
	if !ok {
		return table, nil
	}

	raw, err := s.backend.Read(ctx, factorsPath)
	if err != nil {
		return table, core.WrapError(core.ErrStorageFailed, err)
	}
	if err := json.Unmarshal(raw, &table); err != nil {
		return core.FactorTable{}, core.WrapError(core.ErrStorageFailed, err)
	}
	return table, nil
}

// SaveFactorTable writes the factor table, kept in its own document so
// calibration never races a user data save.
func (s *Store) SaveFactorTable(ctx context.Context, table core.FactorTable) error {
	raw, err := json.MarshalIndent(table, "", "  ")
	if err != nil {
		return err
	}
	if err := s.backend.Write(ctx, factorsPath, raw); err != nil {
		return core.WrapError(core.ErrStorageFailed, err)
	}
	return nil
}
