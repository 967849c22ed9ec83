package encoding

// Marshaler marshals and unmarshals values to and from bytes.
type Marshaler interface {
	// Marshal marshals a value to bytes.
	//
	// This function returns an error if the value type is not supported by this marshaler.
	Marshal(interface{}) ([]byte, error)

	// Unmarshal unmarshals bytes to a value.
	//
	// This functions returns an error if the bytes do not fit the provided value type.
	Unmarshal([]byte, interface{}) error

	// MustMarshal marshals a value to bytes.
	//
	// This functions panics if marshaling fails.
	MustMarshal(interface{}) []byte

	// MustUnmarshal unmarshals bytes to a value.
	//
	// This functions panics if decoding fails.
	MustUnmarshal([]byte, interface{})
}
