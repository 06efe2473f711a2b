// Package wallet supplies the identity a join is made under: a rotating set of
// mock addresses in demo mode, or the Ethereum address of a configured
// private key in real mode.
package wallet

import (
	"encoding/hex"
	"errors"
	"fmt"
	"strings"
	"sync"

	"github.com/decred/dcrd/dcrec/secp256k1/v4"
	"golang.org/x/crypto/sha3"
)

var (
	ErrNoWallet   = errors.New("no wallet configured")
	ErrInvalidKey = errors.New("invalid private key")
)

// placeholderKey is the value shipped in the example env file.
const placeholderKey = "your_ethereum_private_key_here"

// DemoAddresses are handed out round-robin to demo players.
var DemoAddresses = []string{
	"0x1234567890123456789012345678901234567890",
	"0x2345678901234567890123456789012345678901",
	"0x3456789012345678901234567890123456789012",
	"0x4567890123456789012345678901234567890123",
	"0x5678901234567890123456789012345678901234",
}

// Provider yields the address for the next join.
type Provider interface {
	Address() (string, error)
}

// Rotation cycles through a fixed address list.
type Rotation struct {
	mu    sync.Mutex
	addrs []string
	next  int
}

// NewRotation returns a Rotation over addrs, or over DemoAddresses when none
// are given.
func NewRotation(addrs ...string) *Rotation {
	if len(addrs) == 0 {
		addrs = DemoAddresses
	}
	return &Rotation{addrs: append([]string(nil), addrs...)}
}

func (r *Rotation) Address() (string, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	a := r.addrs[r.next]
	r.next = (r.next + 1) % len(r.addrs)
	return a, nil
}

// Key is a wallet backed by a secp256k1 private key.
type Key struct {
	address string
}

func (k *Key) Address() (string, error) { return k.address, nil }

type unconfigured struct{}

func (unconfigured) Address() (string, error) { return "", ErrNoWallet }

// IsConfigured reports whether raw looks like a real key setting rather than
// an empty or placeholder value.
func IsConfigured(raw string) bool {
	raw = strings.TrimSpace(raw)
	return raw != "" && raw != placeholderKey
}

// FromPrivateKey returns the wallet for a hex encoded key, with or without
// 0x prefix. An unset or placeholder key yields a Provider that always fails
// with ErrNoWallet.
func FromPrivateKey(raw string) (Provider, error) {
	if !IsConfigured(raw) {
		return unconfigured{}, nil
	}

	b, err := hex.DecodeString(strings.TrimPrefix(strings.TrimSpace(raw), "0x"))
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidKey, err)
	}
	if len(b) != 32 {
		return nil, fmt.Errorf("%w: want 32 bytes, got %d", ErrInvalidKey, len(b))
	}

	priv := secp256k1.PrivKeyFromBytes(b)
	if priv.Key.IsZero() {
		return nil, fmt.Errorf("%w: zero scalar", ErrInvalidKey)
	}
	return &Key{address: addressOf(priv.PubKey())}, nil
}

// addressOf is the last 20 bytes of keccak256 over the uncompressed public
// key without its 0x04 prefix, EIP-55 checksummed.
func addressOf(pub *secp256k1.PublicKey) string {
	h := sha3.NewLegacyKeccak256()
	h.Write(pub.SerializeUncompressed()[1:])
	sum := h.Sum(nil)
	return Checksum(hex.EncodeToString(sum[12:]))
}

// Checksum applies EIP-55 mixed-case encoding to a hex address.
func Checksum(addr string) string {
	lower := strings.ToLower(strings.TrimPrefix(addr, "0x"))

	h := sha3.NewLegacyKeccak256()
	h.Write([]byte(lower))
	digest := hex.EncodeToString(h.Sum(nil))

	out := []byte(lower)
	for i, c := range out {
		if c >= 'a' && c <= 'f' && digest[i] >= '8' {
			out[i] = c - 'a' + 'A'
		}
	}
	return "0x" + string(out)
}
