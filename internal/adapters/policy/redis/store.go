// Package redis stores policy documents as JSON strings in Redis.
package redis

import (
	"context"
	"errors"
	"fmt"

	goredis "github.com/redis/go-redis/v9"

	"github.com/bnema/quotaguard/internal/domain"
	"github.com/bnema/quotaguard/internal/ports"
)

const defaultKeyPrefix = "quotaguard:policy:"

type Store struct {
	client    goredis.Cmdable
	keyPrefix string
}

var _ ports.PolicyStore = (*Store)(nil)

type Option func(*Store)

func WithKeyPrefix(prefix string) Option {
	return func(s *Store) {
		if prefix != "" {
			s.keyPrefix = prefix
		}
	}
}

func NewStore(client goredis.Cmdable, opts ...Option) *Store {
	s := &Store{client: client, keyPrefix: defaultKeyPrefix}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

func (s *Store) key(id domain.AccountID) string {
	return s.keyPrefix + string(id)
}

func (s *Store) Get(ctx context.Context, id domain.AccountID) (domain.PolicyDocument, error) {
	if err := id.Validate(); err != nil {
		return domain.PolicyDocument{}, err
	}

	data, err := s.client.Get(ctx, s.key(id)).Bytes()
	if err != nil {
		if errors.Is(err, goredis.Nil) {
			return domain.PolicyDocument{}, fmt.Errorf("policy %q: %w", id, domain.ErrPolicyNotFound)
		}
		return domain.PolicyDocument{}, fmt.Errorf("redis get policy %q: %w", id, err)
	}

	doc, err := domain.ParsePolicyDocument(data)
	if err != nil {
		return domain.PolicyDocument{}, fmt.Errorf("parse policy %q: %w", id, err)
	}
	return doc, nil
}

func (s *Store) Put(ctx context.Context, id domain.AccountID, doc domain.PolicyDocument) error {
	if err := id.Validate(); err != nil {
		return err
	}

	data, err := doc.Encode()
	if err != nil {
		return fmt.Errorf("encode policy for %q: %w", id, err)
	}

	if err := s.client.Set(ctx, s.key(id), data, 0).Err(); err != nil {
		return fmt.Errorf("redis set policy %q: %w", id, err)
	}
	return nil
}
