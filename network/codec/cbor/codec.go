// Package cbor encodes gossip messages as a one byte message code followed by the
// canonical cbor encoding of the message.
package cbor

import (
	"fmt"

	"github.com/zenith-chain/node/model/encoding/cbor"
	"github.com/zenith-chain/node/network/codec"
)

// MaxMessageSize bounds every encoded message accepted from the network.
const MaxMessageSize = 4 << 20

type Codec struct{}

func NewCodec() *Codec {
	return &Codec{}
}

// Encode encodes a *chain.Block or a *chain.Transaction.
func (c *Codec) Encode(v interface{}) ([]byte, error) {
	code, what, err := codec.MessageCodeFromInterface(v)
	if err != nil {
		return nil, fmt.Errorf("could not determine envelope code: %w", err)
	}

	payload, err := cbor.EncMode.Marshal(v)
	if err != nil {
		return nil, fmt.Errorf("could not encode %s payload: %w", what, err)
	}

	data := make([]byte, 0, len(payload)+1)
	data = append(data, code)
	data = append(data, payload...)
	return data, nil
}

// Decode returns a *chain.Block or a *chain.Transaction.
// Expected error returns during normal operations:
//   - codec.ErrInvalidEncoding if the message is empty or too large
//   - codec.ErrUnknownMsgCode if the message code is not known
//   - codec.ErrMsgUnmarshal if the payload does not decode into the message type
func (c *Codec) Decode(data []byte) (interface{}, error) {
	if len(data) == 0 {
		return nil, fmt.Errorf("empty message: %w", codec.ErrInvalidEncoding)
	}
	if len(data) > MaxMessageSize {
		return nil, fmt.Errorf("message of %d bytes exceeds limit: %w", len(data), codec.ErrInvalidEncoding)
	}

	code := data[0]
	v, what, err := codec.InterfaceFromMessageCode(code)
	if err != nil {
		return nil, err
	}

	err = cbor.DecMode.Unmarshal(data[1:], v)
	if err != nil {
		return nil, codec.NewMsgUnmarshalErr(code, what, err)
	}
	return v, nil
}
