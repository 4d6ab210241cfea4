package solana

import (
	"bytes"
	"crypto/ed25519"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"strings"

	"filippo.io/edwards25519"
	solana "github.com/gagliardetto/solana-go"
	"github.com/joho/godotenv"
	"github.com/mr-tron/base58"

	"fastbot-go/internal/swap"
)

var _ swap.Credentials = (*Wallet)(nil)

// Env keys consulted by LoadPrivateKeyFromEnv, in order.
var privateKeyEnv = []string{"SOLANA_PRIVATE_KEY", "SOLANA_PRIVATE_KEY_BASE58"}

// LoadPrivateKeyFromEnv reads the signing key from the environment (or a .env file).
func LoadPrivateKeyFromEnv() (solana.PrivateKey, error) {
	_ = godotenv.Load() // best-effort
	for _, k := range privateKeyEnv {
		if v := os.Getenv(k); v != "" {
			return ParsePrivateKey(v)
		}
	}
	return nil, errors.New("SOLANA_PRIVATE_KEY not set")
}

// ParsePrivateKey accepts a 64-byte keypair as base58, hex, or a JSON byte array (solana-keygen format).
func ParsePrivateKey(s string) (solana.PrivateKey, error) {
	s = strings.TrimSpace(s)
	var raw []byte
	switch {
	case strings.HasPrefix(s, "["):
		var ints []int
		if err := json.Unmarshal([]byte(s), &ints); err != nil {
			return nil, fmt.Errorf("decode keypair array: %w", err)
		}
		raw = make([]byte, len(ints))
		for i, v := range ints {
			if v < 0 || v > 255 {
				return nil, fmt.Errorf("keypair byte %d out of range", i)
			}
			raw[i] = byte(v)
		}
	case len(s) == 2*ed25519.PrivateKeySize && isHex(s):
		b, err := hex.DecodeString(s)
		if err != nil {
			return nil, fmt.Errorf("decode hex key: %w", err)
		}
		raw = b
	default:
		b, err := base58.Decode(s)
		if err != nil {
			return nil, fmt.Errorf("decode base58 key: %w", err)
		}
		raw = b
	}
	if len(raw) != ed25519.PrivateKeySize {
		return nil, fmt.Errorf("private key must be %d bytes, got %d", ed25519.PrivateKeySize, len(raw))
	}
	return solana.PrivateKey(raw), nil
}

func isHex(s string) bool {
	_, err := hex.DecodeString(s)
	return err == nil
}

// Wallet pairs the signing key with the configured owner address.
type Wallet struct {
	key   solana.PrivateKey
	owner solana.PublicKey
}

// NewWallet parses owner; an empty owner means "derive it from the key".
func NewWallet(key solana.PrivateKey, owner string) (*Wallet, error) {
	w := &Wallet{key: key}
	if owner == "" {
		if len(key) != ed25519.PrivateKeySize {
			return nil, fmt.Errorf("private key must be %d bytes, got %d", ed25519.PrivateKeySize, len(key))
		}
		w.owner = key.PublicKey()
		return w, nil
	}
	pk, err := solana.PublicKeyFromBase58(owner)
	if err != nil {
		return nil, fmt.Errorf("parse owner public key: %w", err)
	}
	w.owner = pk
	return w, nil
}

// Address is the owner's base58 public key.
func (w *Wallet) Address() string { return w.owner.String() }

// PrivateKey returns the signing key.
func (w *Wallet) PrivateKey() solana.PrivateKey { return w.key }

// Validate confirms the key is a consistent ed25519 pair whose public half is the configured owner.
func (w *Wallet) Validate() error {
	if len(w.key) != ed25519.PrivateKeySize {
		return fmt.Errorf("private key must be %d bytes, got %d", ed25519.PrivateKeySize, len(w.key))
	}
	derived := ed25519.NewKeyFromSeed(w.key[:ed25519.SeedSize]).Public().(ed25519.PublicKey)
	if !bytes.Equal(derived, w.key[ed25519.SeedSize:]) {
		return errors.New("private key seed does not match its embedded public key")
	}
	if !w.key.PublicKey().Equals(w.owner) {
		return errors.New("public key does not match the private key")
	}
	if _, err := new(edwards25519.Point).SetBytes(w.owner[:]); err != nil {
		return fmt.Errorf("owner is not a valid ed25519 point: %w", err)
	}
	return nil
}
