// Package file keeps one JSON policy document per account on disk.
package file

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"github.com/bnema/quotaguard/internal/domain"
	"github.com/bnema/quotaguard/internal/ports"
)

const (
	storeDirMode   = 0o700
	policyFileMode = 0o600
	policyExt      = ".json"
)

type Store struct {
	root string
	mu   sync.RWMutex
}

var _ ports.PolicyStore = (*Store)(nil)

func NewStore(root string) *Store {
	return &Store{root: filepath.Clean(root)}
}

func (s *Store) Put(ctx context.Context, id domain.AccountID, doc domain.PolicyDocument) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	path, err := s.pathForAccount(id)
	if err != nil {
		return err
	}

	data, err := doc.Encode()
	if err != nil {
		return fmt.Errorf("encode policy for %q: %w", id, err)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if err := os.MkdirAll(filepath.Dir(path), storeDirMode); err != nil {
		return fmt.Errorf("create policy directory: %w", err)
	}

	tmp, err := os.CreateTemp(filepath.Dir(path), ".policy-*")
	if err != nil {
		return fmt.Errorf("create temp policy file: %w", err)
	}
	tmpName := tmp.Name()
	defer func() { _ = os.Remove(tmpName) }()

	if _, err := tmp.Write(data); err != nil {
		_ = tmp.Close()
		return fmt.Errorf("write policy %q: %w", id, err)
	}
	if err := tmp.Chmod(policyFileMode); err != nil {
		_ = tmp.Close()
		return fmt.Errorf("chmod policy %q: %w", id, err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("close policy %q: %w", id, err)
	}
	if err := os.Rename(tmpName, path); err != nil {
		return fmt.Errorf("replace policy %q: %w", id, err)
	}

	return nil
}

func (s *Store) Get(ctx context.Context, id domain.AccountID) (domain.PolicyDocument, error) {
	if err := ctx.Err(); err != nil {
		return domain.PolicyDocument{}, err
	}

	path, err := s.pathForAccount(id)
	if err != nil {
		return domain.PolicyDocument{}, err
	}

	s.mu.RLock()
	defer s.mu.RUnlock()

	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return domain.PolicyDocument{}, fmt.Errorf("policy %q: %w", id, domain.ErrPolicyNotFound)
		}
		return domain.PolicyDocument{}, fmt.Errorf("read policy %q: %w", id, err)
	}

	doc, err := domain.ParsePolicyDocument(data)
	if err != nil {
		return domain.PolicyDocument{}, fmt.Errorf("parse policy %q: %w", id, err)
	}
	return doc, nil
}

func (s *Store) pathForAccount(id domain.AccountID) (string, error) {
	trimmed := strings.TrimSpace(string(id))
	if trimmed == "" {
		return "", domain.ErrEmptyAccountID
	}

	cleaned := filepath.Clean(trimmed)
	if filepath.IsAbs(cleaned) || strings.HasPrefix(cleaned, "..") || cleaned == "." || strings.ContainsRune(cleaned, filepath.Separator) {
		return "", fmt.Errorf("invalid account id for policy path %q", id)
	}

	return filepath.Join(s.root, cleaned+policyExt), nil
}
