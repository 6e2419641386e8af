// Package accounts keeps the known identities and which one is active.
package accounts

import (
	"encoding/hex"
	"fmt"

	"github.com/glabrego/deck-cli/internal/logs"
	"github.com/glabrego/deck-cli/internal/nostr"
)

// SecretKey is an opaque handle to signing material. Signing happens
// elsewhere; this package only needs to know whether a key exists.
type SecretKey [32]byte

func ParseSecretKey(s string) (*SecretKey, error) {
	var sk SecretKey
	b, err := hex.DecodeString(s)
	if err != nil || len(b) != len(sk) {
		return nil, fmt.Errorf("parse secret key: %w", nostr.ErrInvalidKey)
	}
	copy(sk[:], b)
	return &sk, nil
}

func (sk *SecretKey) Hex() string { return hex.EncodeToString(sk[:]) }

type Keypair struct {
	Pubkey nostr.Pubkey
	Secret *SecretKey
}

// CanSign reports whether actions that need a signature are allowed.
func (kp Keypair) CanSign() bool { return kp.Secret != nil }

// KeyStorage persists identities. Errors are reported but never block the
// in-memory manager.
type KeyStorage interface {
	Keys() ([]Keypair, error)
	AddKey(kp Keypair) error
	RemoveKey(kp Keypair) error
}

type Manager struct {
	selected *int
	accounts []Keypair
	store    KeyStorage
}

// NewManager loads every stored identity. selected comes from persisted
// settings and is only checked when used.
func NewManager(selected *int, store KeyStorage) *Manager {
	accounts, err := store.Keys()
	if err != nil {
		logs.Warning.Printf("accounts: load keys: %v", err)
		accounts = nil
	}
	m := &Manager{accounts: accounts, store: store}
	if selected != nil {
		idx := *selected
		m.selected = &idx
	}
	return m
}

func (m *Manager) All() []Keypair { return m.accounts }

func (m *Manager) Len() int { return len(m.accounts) }

func (m *Manager) Get(index int) (Keypair, bool) {
	if index < 0 || index >= len(m.accounts) {
		return Keypair{}, false
	}
	return m.accounts[index], true
}

func (m *Manager) Find(pk nostr.Pubkey) (Keypair, bool) {
	for _, kp := range m.accounts {
		if kp.Pubkey == pk {
			return kp, true
		}
	}
	return Keypair{}, false
}

// Add appends kp. A storage error is returned for logging; kp is kept
// in memory either way.
func (m *Manager) Add(kp Keypair) error {
	err := m.store.AddKey(kp)
	m.accounts = append(m.accounts, kp)
	if err != nil {
		return fmt.Errorf("store key %s: %w", kp.Pubkey.Short(), err)
	}
	return nil
}

// Remove deletes the identity at index and keeps the selection pointing at
// the same identity, or clears it when that identity was removed.
// Out-of-range indices are ignored.
func (m *Manager) Remove(index int) error {
	if index < 0 || index >= len(m.accounts) {
		return nil
	}
	kp := m.accounts[index]
	err := m.store.RemoveKey(kp)
	m.accounts = append(m.accounts[:index], m.accounts[index+1:]...)

	if m.selected != nil {
		switch sel := *m.selected; {
		case sel > index:
			m.Select(sel - 1)
		case sel == index:
			m.ClearSelection()
		}
	}

	if err != nil {
		return fmt.Errorf("remove stored key %s: %w", kp.Pubkey.Short(), err)
	}
	return nil
}

func (m *Manager) Select(index int) {
	if index < 0 || index >= len(m.accounts) {
		return
	}
	m.selected = &index
}

func (m *Manager) ClearSelection() { m.selected = nil }

func (m *Manager) SelectedIndex() (int, bool) {
	if m.selected == nil {
		return 0, false
	}
	return *m.selected, true
}

// Selected returns the active identity, if the selection is set and still
// in range.
func (m *Manager) Selected() (Keypair, bool) {
	if m.selected == nil {
		return Keypair{}, false
	}
	return m.Get(*m.selected)
}
