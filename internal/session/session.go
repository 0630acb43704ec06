// Package session implements the encrypted-session middleware of spec
// §4.7: X25519 ECDH key exchange, HKDF-SHA256 derivation, and
// AES-256-GCM per-message encryption with a fresh random nonce.
package session

import (
	"crypto/aes"
	"crypto/cipher"
	"crypto/ecdh"
	"crypto/rand"
	"crypto/sha256"
	"errors"
	"fmt"
	"io"
	"sync"

	"golang.org/x/crypto/hkdf"
)

// ErrDecryptFailed is returned when AES-GCM authentication fails; per
// spec §4.7 this must translate to an HTTP 400 at the middleware
// boundary, never a 500.
var ErrDecryptFailed = errors.New("session: decryption failed")

const (
	keySize   = 32 // AES-256
	nonceSize = 12 // 96-bit GCM nonce
)

// hkdfInfo labels this application's key derivation context distinctly
// from any other HKDF use in the codebase.
var hkdfInfo = []byte("ddalab-session-v1")

// KeyExchange performs one side of an X25519 ECDH exchange and
// derives the 32-byte symmetric key via HKDF-SHA256. The server holds
// an ephemeral key pair per session, per spec §4.7.
type KeyExchange struct {
	private *ecdh.PrivateKey
}

// NewKeyExchange generates a fresh ephemeral X25519 key pair.
func NewKeyExchange() (*KeyExchange, error) {
	priv, err := ecdh.X25519().GenerateKey(rand.Reader)
	if err != nil {
		return nil, fmt.Errorf("session: generating ephemeral key: %w", err)
	}
	return &KeyExchange{private: priv}, nil
}

// PublicKey returns the raw bytes to send to the peer.
func (k *KeyExchange) PublicKey() []byte {
	return k.private.PublicKey().Bytes()
}

// DeriveSharedKey computes the ECDH shared secret against the peer's
// raw public key bytes and derives a 32-byte symmetric key via
// HKDF-SHA256.
func (k *KeyExchange) DeriveSharedKey(peerPublicKey []byte) ([]byte, error) {
	peer, err := ecdh.X25519().NewPublicKey(peerPublicKey)
	if err != nil {
		return nil, fmt.Errorf("session: invalid peer public key: %w", err)
	}
	secret, err := k.private.ECDH(peer)
	if err != nil {
		return nil, fmt.Errorf("session: ECDH: %w", err)
	}

	reader := hkdf.New(sha256.New, secret, nil, hkdfInfo)
	key := make([]byte, keySize)
	if _, err := io.ReadFull(reader, key); err != nil {
		return nil, fmt.Errorf("session: HKDF expand: %w", err)
	}
	return key, nil
}

// Cipher wraps a derived 32-byte key for per-message AES-256-GCM
// encryption/decryption.
type Cipher struct {
	gcm cipher.AEAD
}

// NewCipher builds a Cipher from a 32-byte symmetric key.
func NewCipher(key []byte) (*Cipher, error) {
	if len(key) != keySize {
		return nil, fmt.Errorf("session: key must be %d bytes, got %d", keySize, len(key))
	}
	block, err := aes.NewCipher(key)
	if err != nil {
		return nil, fmt.Errorf("session: aes.NewCipher: %w", err)
	}
	gcm, err := cipher.NewGCM(block)
	if err != nil {
		return nil, fmt.Errorf("session: cipher.NewGCM: %w", err)
	}
	return &Cipher{gcm: gcm}, nil
}

// Encrypt produces nonce||ciphertext||tag, with a fresh random nonce
// drawn from the OS CSPRNG on every call (spec §4.7: "the nonce is
// never reused within a session").
func (c *Cipher) Encrypt(plaintext []byte) ([]byte, error) {
	nonce := make([]byte, nonceSize)
	if _, err := io.ReadFull(rand.Reader, nonce); err != nil {
		return nil, fmt.Errorf("session: generating nonce: %w", err)
	}
	return c.gcm.Seal(nonce, nonce, plaintext, nil), nil
}

// Decrypt reverses Encrypt. Any authentication failure is reported as
// ErrDecryptFailed, never a lower-level crypto error, so callers can
// map it to the required 400 response uniformly.
func (c *Cipher) Decrypt(data []byte) ([]byte, error) {
	if len(data) < nonceSize {
		return nil, ErrDecryptFailed
	}
	nonce, ciphertext := data[:nonceSize], data[nonceSize:]
	plaintext, err := c.gcm.Open(nil, nonce, ciphertext, nil)
	if err != nil {
		return nil, ErrDecryptFailed
	}
	return plaintext, nil
}

// Record is the server-side state bound to one session: its symmetric
// key (never logged or serialized in plaintext) and derived Cipher.
type Record struct {
	SessionID string
	cipher    *Cipher
}

// NewRecord binds a derived key to a session id.
func NewRecord(sessionID string, key []byte) (*Record, error) {
	c, err := NewCipher(key)
	if err != nil {
		return nil, err
	}
	return &Record{SessionID: sessionID, cipher: c}, nil
}

// Store is a concurrency-safe map of active session records, keyed by
// session id, used by the key-exchange and middleware handlers.
type Store struct {
	mu      sync.RWMutex
	records map[string]*Record
}

// NewStore creates an empty session Store.
func NewStore() *Store {
	return &Store{records: make(map[string]*Record)}
}

// Put registers a session record, replacing any existing one for the
// same id.
func (s *Store) Put(r *Record) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.records[r.SessionID] = r
}

// Get returns the record for sessionID, if any.
func (s *Store) Get(sessionID string) (*Record, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	r, ok := s.records[sessionID]
	return r, ok
}

// Delete removes a session record (logout).
func (s *Store) Delete(sessionID string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.records, sessionID)
}

// Encrypt encrypts plaintext for this session's symmetric key.
func (r *Record) Encrypt(plaintext []byte) ([]byte, error) {
	return r.cipher.Encrypt(plaintext)
}

// Decrypt decrypts data for this session's symmetric key.
func (r *Record) Decrypt(data []byte) ([]byte, error) {
	return r.cipher.Decrypt(data)
}
