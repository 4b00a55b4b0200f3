package identity

import (
	"crypto/sha256"
	"fmt"
	"strings"

	"fxrelay/internal/domain"

	"github.com/btcsuite/btcutil/bech32"
)

// Addresses carry either a 20 byte account hash or a 32 byte contract hash.
const (
	accountAddrLen  = 20
	contractAddrLen = 32
)

// AddressValidator accepts canonical lower-case bech32 addresses with a fixed
// human-readable prefix.
type AddressValidator struct {
	prefix string // read only
}

// Validate returns the canonical form of addr or an error wrapping
// domain.ErrAddressInvalid.
func (v *AddressValidator) Validate(addr string) (string, error) {
	if addr == "" {
		return "", fmt.Errorf("%w: empty address", domain.ErrAddressInvalid)
	}
	if addr != strings.ToLower(addr) {
		return "", fmt.Errorf("%w: %q is not lower case", domain.ErrAddressInvalid, addr)
	}
	hrp, data, err := bech32.Decode(addr)
	if err != nil {
		return "", fmt.Errorf("%w: %v", domain.ErrAddressInvalid, err)
	}
	if hrp != v.prefix {
		return "", fmt.Errorf("%w: unsupported prefix %q", domain.ErrAddressInvalid, hrp)
	}
	decoded, err := bech32.ConvertBits(data, 5, 8, false)
	if err != nil {
		return "", fmt.Errorf("%w: %v", domain.ErrAddressInvalid, err)
	}
	if len(decoded) != accountAddrLen && len(decoded) != contractAddrLen {
		return "", fmt.Errorf("%w: invalid address length %d", domain.ErrAddressInvalid, len(decoded))
	}
	return addr, nil
}

// Derive builds a deterministic contract address from a label, the way the
// host assigns addresses to instantiated nodes.
func (v *AddressValidator) Derive(label string) (string, error) {
	sum := sha256.Sum256([]byte("node/" + label))
	return encode(v.prefix, sum[:])
}

// Account builds a deterministic account address from a name.
func (v *AddressValidator) Account(name string) (string, error) {
	sum := sha256.Sum256([]byte("account/" + name))
	return encode(v.prefix, sum[:accountAddrLen])
}

// MustAccount is Account for fixtures and demos.
func (v *AddressValidator) MustAccount(name string) string {
	addr, err := v.Account(name)
	if err != nil {
		panic(err)
	}
	return addr
}

func encode(prefix string, raw []byte) (string, error) {
	conv, err := bech32.ConvertBits(raw, 8, 5, true)
	if err != nil {
		return "", fmt.Errorf("failed to convert address bits: %w", err)
	}
	encoded, err := bech32.Encode(prefix, conv)
	if err != nil {
		return "", fmt.Errorf("failed to encode address: %w", err)
	}
	return encoded, nil
}

func NewAddressValidator(prefix string) (*AddressValidator, error) {
	prefix = strings.TrimSpace(prefix)
	if prefix == "" || prefix != strings.ToLower(prefix) {
		return nil, fmt.Errorf("%w: invalid address prefix %q", domain.ErrConfig, prefix)
	}
	return &AddressValidator{prefix: prefix}, nil
}
