package wallet

import (
	"strings"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRotation(t *testing.T) {
	r := NewRotation()

	var got []string
	for range len(DemoAddresses) + 2 {
		a, err := r.Address()
		require.NoError(t, err)
		got = append(got, a)
	}

	assert.Equal(t, DemoAddresses, got[:len(DemoAddresses)])
	assert.Equal(t, DemoAddresses[:2], got[len(DemoAddresses):])
}

func TestRotationConcurrent(t *testing.T) {
	r := NewRotation("a", "b")
	var (
		wg   sync.WaitGroup
		mu   sync.Mutex
		seen = map[string]int{}
	)
	for range 100 {
		wg.Add(1)
		go func() {
			defer wg.Done()
			a, _ := r.Address()
			mu.Lock()
			seen[a]++
			mu.Unlock()
		}()
	}
	wg.Wait()
	assert.Equal(t, map[string]int{"a": 50, "b": 50}, seen)
}

func TestFromPrivateKey(t *testing.T) {
	tests := []struct {
		name string
		key  string
	}{
		{name: "bare hex", key: "4c0883a69102937d6231471b5dbb6204fe5129617082792ae468d01a3f362318"},
		{name: "0x prefix", key: "0x4c0883a69102937d6231471b5dbb6204fe5129617082792ae468d01a3f362318"},
		{name: "surrounding space", key: " 4c0883a69102937d6231471b5dbb6204fe5129617082792ae468d01a3f362318\n"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			p, err := FromPrivateKey(tt.key)
			require.NoError(t, err)
			addr, err := p.Address()
			require.NoError(t, err)
			assert.Equal(t, "0x2c7536E3605D9C16a7a3D7b1898e529396a65c23", addr)
		})
	}
}

func TestFromPrivateKeyUnset(t *testing.T) {
	for _, raw := range []string{"", "  ", "your_ethereum_private_key_here"} {
		assert.False(t, IsConfigured(raw), raw)
		p, err := FromPrivateKey(raw)
		require.NoError(t, err)
		_, err = p.Address()
		assert.ErrorIs(t, err, ErrNoWallet)
	}
}

func TestFromPrivateKeyInvalid(t *testing.T) {
	for _, raw := range []string{"zz", "0x1234", strings.Repeat("0", 64)} {
		_, err := FromPrivateKey(raw)
		assert.ErrorIs(t, err, ErrInvalidKey, raw)
	}
}

func TestChecksum(t *testing.T) {
	for _, want := range []string{
		"0x5aAeb6053F3E94C9b9A09f33669435E7Ef1BeAed",
		"0xfB6916095ca1df60bB79Ce92cE3Ea74c37c5d359",
		"0xdbF03B407c01E7cD3CBea99509d93f8DDDC8C6FB",
		"0xD1220A0cf47c7B9Be7A2E6BA89F429762e7b9aDb",
	} {
		assert.Equal(t, want, Checksum(strings.ToLower(want)))
	}
}
