package logging

import (
	"github.com/zenith-chain/node/model/chain"
)

// Entity is implemented by every value identified by the hash of its content.
type Entity interface {
	ID() chain.Identifier
}

// ID returns the identifier of an entity as bytes, for zerolog's Hex fields.
func ID(entity Entity) []byte {
	id := entity.ID()
	return id[:]
}
