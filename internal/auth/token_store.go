// Package auth manages the Spotify OAuth token lifecycle: authorization,
// code exchange, persistence and transparent refresh.
package auth

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"golang.org/x/oauth2"

	"github.com/justestif/spotigen/internal/kvstore"
)

// TokenKey is the fixed key the single account's tokens are stored under.
const TokenKey = "spotify_tokens"

// expirySkew is subtracted from the provider lifetime so tokens are refreshed early.
const expirySkew = 60

// TokenRecord is the persisted token state.
type TokenRecord struct {
	AccessToken  string `json:"access_token"`
	RefreshToken string `json:"refresh_token,omitempty"`
	ExpiresAt    int64  `json:"expires_at"`
	TokenType    string `json:"token_type,omitempty"`
	Scope        string `json:"scope,omitempty"`
}

// Expired reports whether the access token must be refreshed at now.
func (r *TokenRecord) Expired(now time.Time) bool {
	return now.Unix() >= r.ExpiresAt
}

// newRecord builds a record from a token endpoint response received at issuedAt.
func newRecord(tok *oauth2.Token, issuedAt time.Time) *TokenRecord {
	rec := &TokenRecord{
		AccessToken:  tok.AccessToken,
		RefreshToken: tok.RefreshToken,
		TokenType:    tok.TokenType,
		ExpiresAt:    issuedAt.Unix() + tok.ExpiresIn - expirySkew,
	}
	if scope, ok := tok.Extra("scope").(string); ok {
		rec.Scope = scope
	}
	return rec
}

// merge returns a copy of r with the non-empty fields of a refresh response
// applied and the expiry recomputed.
func (r *TokenRecord) merge(tok *oauth2.Token, issuedAt time.Time) *TokenRecord {
	fresh := newRecord(tok, issuedAt)
	merged := *r
	merged.AccessToken = fresh.AccessToken
	merged.ExpiresAt = fresh.ExpiresAt
	if fresh.RefreshToken != "" {
		merged.RefreshToken = fresh.RefreshToken
	}
	if fresh.TokenType != "" {
		merged.TokenType = fresh.TokenType
	}
	if fresh.Scope != "" {
		merged.Scope = fresh.Scope
	}
	return &merged
}

// TokenStore persists the TokenRecord in the key-value store.
type TokenStore struct {
	kv  kvstore.Store
	key string
}

// NewTokenStore creates a TokenStore using TokenKey.
func NewTokenStore(kv kvstore.Store) *TokenStore {
	return &TokenStore{kv: kv, key: TokenKey}
}

// Load reads the stored record.
// Returns (nil, nil) if nothing is stored.
func (s *TokenStore) Load(ctx context.Context) (*TokenRecord, error) {
	data, err := s.kv.Get(ctx, s.key)
	if err != nil {
		if errors.Is(err, kvstore.ErrNotFound) {
			return nil, nil
		}
		return nil, fmt.Errorf("reading token record: %w", err)
	}

	var rec TokenRecord
	if err := json.Unmarshal(data, &rec); err != nil {
		return nil, fmt.Errorf("parsing token record: %w", err)
	}

	return &rec, nil
}

// Save replaces the stored record. Records never expire from the store.
func (s *TokenStore) Save(ctx context.Context, rec *TokenRecord) error {
	if rec == nil {
		return errors.New("cannot save nil token record")
	}

	data, err := json.Marshal(rec)
	if err != nil {
		return fmt.Errorf("encoding token record: %w", err)
	}

	if err := s.kv.Set(ctx, s.key, data, 0); err != nil {
		return fmt.Errorf("writing token record: %w", err)
	}

	return nil
}

// Delete removes the stored record.
// Returns nil if nothing is stored.
func (s *TokenStore) Delete(ctx context.Context) error {
	if err := s.kv.Delete(ctx, s.key); err != nil {
		return fmt.Errorf("removing token record: %w", err)
	}
	return nil
}
