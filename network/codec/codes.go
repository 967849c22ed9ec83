package codec

import (
	"fmt"

	"github.com/zenith-chain/node/model/chain"
)

const (
	CodeMin uint8 = iota + 1

	CodeBlock
	CodeTransaction

	CodeMax
)

// MessageCodeFromInterface returns the correct Code based on the underlying type of message v.
func MessageCodeFromInterface(v interface{}) (uint8, string, error) {
	switch v.(type) {
	case *chain.Block:
		return CodeBlock, "CodeBlock", nil
	case *chain.Transaction:
		return CodeTransaction, "CodeTransaction", nil
	default:
		return 0, "", fmt.Errorf("invalid encode type (%T)", v)
	}
}

// InterfaceFromMessageCode returns an interface with the correct underlying go type
// of the message code represents.
// Expected error returns during normal operations:
//   - ErrUnknownMsgCode if message code does not match any of the configured message codes above.
func InterfaceFromMessageCode(code uint8) (interface{}, string, error) {
	switch code {
	case CodeBlock:
		return &chain.Block{}, "CodeBlock", nil
	case CodeTransaction:
		return &chain.Transaction{}, "CodeTransaction", nil
	default:
		return nil, "", NewUnknownMsgCodeErr(code)
	}
}
