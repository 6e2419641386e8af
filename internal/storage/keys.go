package storage

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/glabrego/deck-cli/internal/accounts"
	"github.com/glabrego/deck-cli/internal/nostr"
)

func (r *Repository) ListKeys(ctx context.Context) ([]accounts.Keypair, error) {
	rows, err := r.db.QueryContext(ctx, `SELECT pubkey, secret FROM keys ORDER BY rowid`)
	if err != nil {
		return nil, fmt.Errorf("query keys: %w", err)
	}
	defer rows.Close()

	var out []accounts.Keypair
	for rows.Next() {
		var pubHex string
		var secHex sql.NullString
		if err := rows.Scan(&pubHex, &secHex); err != nil {
			return nil, fmt.Errorf("scan key: %w", err)
		}
		pk, err := nostr.ParsePubkey(pubHex)
		if err != nil {
			return nil, fmt.Errorf("stored key: %w", err)
		}
		kp := accounts.Keypair{Pubkey: pk}
		if secHex.Valid && secHex.String != "" {
			kp.Secret, err = accounts.ParseSecretKey(secHex.String)
			if err != nil {
				return nil, fmt.Errorf("stored secret for %s: %w", pk.Short(), err)
			}
		}
		out = append(out, kp)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("rows iteration: %w", err)
	}
	return out, nil
}

// SaveKey upserts kp; a later save with a secret upgrades a read-only key.
func (r *Repository) SaveKey(ctx context.Context, kp accounts.Keypair) error {
	var secret sql.NullString
	if kp.Secret != nil {
		secret = sql.NullString{String: kp.Secret.Hex(), Valid: true}
	}
	_, err := r.db.ExecContext(ctx, `
INSERT INTO keys (pubkey, secret, added_at) VALUES (?, ?, ?)
ON CONFLICT(pubkey) DO UPDATE SET secret=COALESCE(excluded.secret, keys.secret)
`, kp.Pubkey.Hex(), secret, time.Now().UTC().Format(time.RFC3339Nano))
	if err != nil {
		return fmt.Errorf("save key %s: %w", kp.Pubkey.Short(), err)
	}
	return nil
}

func (r *Repository) DeleteKey(ctx context.Context, kp accounts.Keypair) error {
	if _, err := r.db.ExecContext(ctx, `DELETE FROM keys WHERE pubkey = ?`, kp.Pubkey.Hex()); err != nil {
		return fmt.Errorf("delete key %s: %w", kp.Pubkey.Short(), err)
	}
	return nil
}

// KeyStore adapts Repository to accounts.KeyStorage, bounding each call
// with its own timeout.
type KeyStore struct {
	repo    *Repository
	timeout time.Duration
}

func NewKeyStore(repo *Repository, timeout time.Duration) *KeyStore {
	if timeout <= 0 {
		timeout = 5 * time.Second
	}
	return &KeyStore{repo: repo, timeout: timeout}
}

func (s *KeyStore) Keys() ([]accounts.Keypair, error) {
	ctx, cancel := context.WithTimeout(context.Background(), s.timeout)
	defer cancel()
	return s.repo.ListKeys(ctx)
}

func (s *KeyStore) AddKey(kp accounts.Keypair) error {
	ctx, cancel := context.WithTimeout(context.Background(), s.timeout)
	defer cancel()
	return s.repo.SaveKey(ctx, kp)
}

func (s *KeyStore) RemoveKey(kp accounts.Keypair) error {
	ctx, cancel := context.WithTimeout(context.Background(), s.timeout)
	defer cancel()
	return s.repo.DeleteKey(ctx, kp)
}
