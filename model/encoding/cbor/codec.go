package cbor

import (
	"fmt"

	"github.com/fxamacker/cbor/v2"

	"github.com/zenith-chain/node/model/encoding"
)

// EncMode is the canonical encoding mode shared by every component which hashes or
// persists cbor. Canonical encoding is what makes identifiers deterministic.
var EncMode = func() cbor.EncMode {
	options := cbor.CoreDetEncOptions()
	encMode, err := options.EncMode()
	if err != nil {
		panic(fmt.Errorf("could not initialize cbor encoding mode: %w", err))
	}
	return encMode
}()

// DecMode rejects duplicate map keys and caps nesting and sizes, as input may come
// from untrusted peers.
var DecMode = func() cbor.DecMode {
	options := cbor.DecOptions{
		DupMapKey:        cbor.DupMapKeyEnforcedAPF,
		MaxNestedLevels:  16,
		MaxArrayElements: 1 << 16,
		MaxMapPairs:      1 << 16,
	}
	decMode, err := options.DecMode()
	if err != nil {
		panic(fmt.Errorf("could not initialize cbor decoding mode: %w", err))
	}
	return decMode
}()

var _ encoding.Marshaler = (*Marshaler)(nil)

type Marshaler struct{}

func NewMarshaler() *Marshaler {
	return &Marshaler{}
}

func (m *Marshaler) Marshal(val interface{}) ([]byte, error) {
	return EncMode.Marshal(val)
}

func (m *Marshaler) Unmarshal(b []byte, val interface{}) error {
	return DecMode.Unmarshal(b, val)
}

func (m *Marshaler) MustMarshal(val interface{}) []byte {
	b, err := m.Marshal(val)
	if err != nil {
		panic(err)
	}
	return b
}

func (m *Marshaler) MustUnmarshal(b []byte, val interface{}) {
	err := m.Unmarshal(b, val)
	if err != nil {
		panic(err)
	}
}

// Default is the marshaler used for identifiers, state snapshots and the wire.
var Default = NewMarshaler()
