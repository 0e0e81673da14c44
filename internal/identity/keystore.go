package identity

import (
	"crypto/ed25519"
	"crypto/rand"
	"encoding/base64"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"sync"

	"golang.org/x/crypto/blake2b"
)

// SchemeEd25519 is the signature scheme flag for ed25519 keys.
const SchemeEd25519 byte = 0x00

// intentTransaction prefixes transaction bytes before hashing: scope
// TransactionData, version V0, app id Sui.
var intentTransaction = []byte{0, 0, 0}

var ErrUnsupportedScheme = errors.New("identity: unsupported key scheme")

// Keystore holds ed25519 keys loaded from a sui.keystore file.
type Keystore struct {
	mu   sync.RWMutex
	path string
	keys map[string]ed25519.PrivateKey // address -> key
}

// LoadKeystore reads a keystore file. A missing file yields an empty store
// bound to path.
func LoadKeystore(path string) (*Keystore, error) {
	ks := &Keystore{path: path, keys: make(map[string]ed25519.PrivateKey)}

	data, err := os.ReadFile(path)
	if errors.Is(err, os.ErrNotExist) {
		return ks, nil
	}
	if err != nil {
		return nil, fmt.Errorf("read keystore: %w", err)
	}

	var entries []string
	if err := json.Unmarshal(data, &entries); err != nil {
		return nil, fmt.Errorf("decode keystore: %w", err)
	}
	for i, entry := range entries {
		key, err := decodeEntry(entry)
		if errors.Is(err, ErrUnsupportedScheme) {
			continue
		}
		if err != nil {
			return nil, fmt.Errorf("keystore entry %d: %w", i, err)
		}
		ks.keys[Address(key.Public().(ed25519.PublicKey))] = key
	}
	return ks, nil
}

func decodeEntry(entry string) (ed25519.PrivateKey, error) {
	raw, err := base64.StdEncoding.DecodeString(entry)
	if err != nil {
		return nil, err
	}
	if len(raw) != 1+ed25519.SeedSize {
		return nil, fmt.Errorf("unexpected key length %d", len(raw))
	}
	if raw[0] != SchemeEd25519 {
		return nil, ErrUnsupportedScheme
	}
	return ed25519.NewKeyFromSeed(raw[1:]), nil
}

// Address derives the account address of an ed25519 public key.
func Address(pub ed25519.PublicKey) string {
	buf := make([]byte, 0, 1+len(pub))
	buf = append(buf, SchemeEd25519)
	buf = append(buf, pub...)
	sum := blake2b.Sum256(buf)
	return "0x" + hex.EncodeToString(sum[:])
}

// Generate creates a new key, adds it to the store and returns its address.
func (k *Keystore) Generate() (string, error) {
	_, priv, err := ed25519.GenerateKey(rand.Reader)
	if err != nil {
		return "", fmt.Errorf("generate key: %w", err)
	}
	address := Address(priv.Public().(ed25519.PublicKey))

	k.mu.Lock()
	k.keys[address] = priv
	k.mu.Unlock()
	return address, nil
}

// Save writes the store back to its file.
func (k *Keystore) Save() error {
	k.mu.RLock()
	addresses := k.sortedLocked()
	entries := make([]string, 0, len(addresses))
	for _, a := range addresses {
		raw := append([]byte{SchemeEd25519}, k.keys[a].Seed()...)
		entries = append(entries, base64.StdEncoding.EncodeToString(raw))
	}
	k.mu.RUnlock()

	data, err := json.MarshalIndent(entries, "", "  ")
	if err != nil {
		return err
	}
	if err := os.MkdirAll(filepath.Dir(k.path), 0o700); err != nil {
		return fmt.Errorf("create keystore dir: %w", err)
	}
	return os.WriteFile(k.path, data, 0o600)
}

func (k *Keystore) sortedLocked() []string {
	out := make([]string, 0, len(k.keys))
	for a := range k.keys {
		out = append(out, a)
	}
	sort.Strings(out)
	return out
}

// Accounts lists the addresses the store can sign for.
func (k *Keystore) Accounts() []string {
	k.mu.RLock()
	defer k.mu.RUnlock()
	return k.sortedLocked()
}

// Validate accepts only addresses held by the store.
func (k *Keystore) Validate(address string) (string, error) {
	n, err := NormalizeAddress(address)
	if err != nil {
		return "", err
	}
	k.mu.RLock()
	_, ok := k.keys[n]
	k.mu.RUnlock()
	if !ok {
		return "", ErrUnknownAddress
	}
	return n, nil
}

// Sign produces a serialized transaction signature for address:
// base64(flag || signature || public key).
func (k *Keystore) Sign(address string, txBytes []byte) (string, error) {
	k.mu.RLock()
	key, ok := k.keys[address]
	k.mu.RUnlock()
	if !ok {
		return "", ErrUnknownAddress
	}

	msg := make([]byte, 0, len(intentTransaction)+len(txBytes))
	msg = append(msg, intentTransaction...)
	msg = append(msg, txBytes...)
	digest := blake2b.Sum256(msg)

	sig := ed25519.Sign(key, digest[:])
	pub := key.Public().(ed25519.PublicKey)

	out := make([]byte, 0, 1+len(sig)+len(pub))
	out = append(out, SchemeEd25519)
	out = append(out, sig...)
	out = append(out, pub...)
	return base64.StdEncoding.EncodeToString(out), nil
}
