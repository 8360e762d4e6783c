package cache

import (
	"encoding/json"
	"fmt"

	"github.com/vmihailenco/msgpack/v5"

	"github.com/saviornt/CacheManager/internal/types"
)

// MsgpackSerializer implements Serializer using MessagePack encoding.
// It is the default codec: compact, fast, and schema-free.
type MsgpackSerializer struct{}

// NewMsgpackSerializer creates a new MessagePack serializer.
func NewMsgpackSerializer() *MsgpackSerializer {
	return &MsgpackSerializer{}
}

// Marshal serializes a value to MessagePack bytes.
func (s *MsgpackSerializer) Marshal(v any) ([]byte, error) {
	data, err := msgpack.Marshal(v)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", types.ErrSerialization, err)
	}
	return data, nil
}

// Unmarshal deserializes MessagePack bytes into the destination.
func (s *MsgpackSerializer) Unmarshal(data []byte, dest any) error {
	if err := msgpack.Unmarshal(data, dest); err != nil {
		return fmt.Errorf("%w: %w", types.ErrSerialization, err)
	}
	return nil
}

// JSONSerializer implements Serializer using JSON encoding.
// Useful when cached payloads must stay human-readable.
type JSONSerializer struct{}

// NewJSONSerializer creates a new JSON serializer.
func NewJSONSerializer() *JSONSerializer {
	return &JSONSerializer{}
}

// Marshal serializes a value to JSON bytes.
func (s *JSONSerializer) Marshal(v any) ([]byte, error) {
	data, err := json.Marshal(v)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", types.ErrSerialization, err)
	}
	return data, nil
}

// Unmarshal deserializes JSON bytes into the destination.
func (s *JSONSerializer) Unmarshal(data []byte, dest any) error {
	if err := json.Unmarshal(data, dest); err != nil {
		return fmt.Errorf("%w: %w", types.ErrSerialization, err)
	}
	return nil
}

var _ types.Serializer = (*MsgpackSerializer)(nil)
var _ types.Serializer = (*JSONSerializer)(nil)
