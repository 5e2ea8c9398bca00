package durapack

import (
	"github.com/fxamacker/cbor/v2"
)

// SerializablePayload is the capability every payload type wrapped in a
// frame must provide: a way to become bytes. The interface carries only
// ToBytes; each instance below pairs it with a package-level XxxFromBytes
// function that reconstructs the value from bytes.
type SerializablePayload interface {
	ToBytes() ([]byte, error)
}

// RawPayload is the identity instance: payload bytes are used as-is.
type RawPayload []byte

// ToBytes returns p unchanged.
func (p RawPayload) ToBytes() ([]byte, error) { return []byte(p), nil }

// RawPayloadFromBytes reconstructs a RawPayload from wire bytes.
func RawPayloadFromBytes(b []byte) (RawPayload, error) { return RawPayload(b), nil }

// TextPayload is the UTF-8 text instance.
type TextPayload string

// ToBytes returns p's UTF-8 bytes.
func (p TextPayload) ToBytes() ([]byte, error) { return []byte(p), nil }

// TextPayloadFromBytes reconstructs a TextPayload from wire bytes.
func TextPayloadFromBytes(b []byte) (TextPayload, error) { return TextPayload(b), nil }

// CBORPayload wraps an arbitrary Go value encoded with CBOR, the one
// domain-stack addition alongside the two default instances.
type CBORPayload struct {
	Value interface{}
}

// ToBytes CBOR-encodes p.Value.
func (p CBORPayload) ToBytes() ([]byte, error) {
	return cbor.Marshal(p.Value)
}

// CBORPayloadFromBytes decodes wire bytes into a CBORPayload holding a
// generic map/slice/scalar value.
func CBORPayloadFromBytes(b []byte) (CBORPayload, error) {
	var v interface{}
	if err := cbor.Unmarshal(b, &v); err != nil {
		return CBORPayload{}, err
	}
	return CBORPayload{Value: v}, nil
}
