package programs

import (
	"errors"
	"fmt"

	"github.com/fxamacker/cbor/v2"
)

// BundleVersion is the current bundle format version.
const BundleVersion = 1

// ErrHashMismatch is returned when a bundle entry's source does not match
// its declared hash.
var ErrHashMismatch = errors.New("programs: bundle entry hash mismatch")

// Bundle is the portable form of a registry.
type Bundle struct {
	Version  uint8   `cbor:"1,keyasint"`
	Programs []Entry `cbor:"2,keyasint"`
}

// Entry is one program in a bundle.
type Entry struct {
	Hash   [32]byte `cbor:"1,keyasint"`
	Name   string   `cbor:"2,keyasint"`
	Source string   `cbor:"3,keyasint"`
}

var cborEncMode cbor.EncMode

func init() {
	em, err := cbor.CanonicalEncOptions().EncMode()
	if err != nil {
		panic(fmt.Sprintf("programs: failed to create CBOR enc mode: %v", err))
	}
	cborEncMode = em
}

// Bundle snapshots the registry.
func (r *Registry) Bundle() *Bundle {
	b := &Bundle{Version: BundleVersion}
	for _, p := range r.All() {
		b.Programs = append(b.Programs, Entry{Hash: p.Hash(), Name: p.Name, Source: p.Source})
	}
	return b
}

// MarshalBundle serializes a Bundle to CBOR bytes.
func MarshalBundle(b *Bundle) ([]byte, error) {
	return cborEncMode.Marshal(b)
}

// UnmarshalBundle deserializes a Bundle from CBOR bytes.
func UnmarshalBundle(data []byte) (*Bundle, error) {
	var b Bundle
	if err := cbor.Unmarshal(data, &b); err != nil {
		return nil, fmt.Errorf("programs: unmarshal bundle: %w", err)
	}
	if b.Version != BundleVersion {
		return nil, fmt.Errorf("programs: unsupported bundle version %d", b.Version)
	}
	return &b, nil
}

// FromBundle rebuilds a registry, verifying every entry's hash.
func FromBundle(b *Bundle) (*Registry, error) {
	r := NewRegistry()
	for _, e := range b.Programs {
		p := Program{Name: e.Name, Source: e.Source}
		if p.Hash() != e.Hash {
			return nil, fmt.Errorf("%w: %q", ErrHashMismatch, e.Name)
		}
		if err := r.Add(p); err != nil {
			return nil, err
		}
	}
	return r, nil
}
