package cache

import (
	"bytes"
	"fmt"

	"github.com/saviornt/CacheManager/internal/types"
)

// Payload marker bytes. Every encoded payload starts with one so the
// decoder knows whether the body went through compression.
const (
	markerCompressed   = 'C'
	markerUncompressed = 'U'
)

// signatureSeparator splits the hex signature from the payload when
// signing is enabled.
const signatureSeparator = "|"

// valueCodec turns Go values into the bytes stored in layers and back.
// The pipeline is serialize, compress when the body is large enough,
// encrypt, then sign. Decoding reverses it.
//
//nolint:govet // Pipeline stages read top to bottom
type valueCodec struct {
	serializer types.Serializer
	compressor types.Compressor
	encryptor  types.Encryptor
	signer     types.Signer

	compressMinSize int
}

func newValueCodec(
	serializer types.Serializer,
	compressor types.Compressor,
	encryptor types.Encryptor,
	signer types.Signer,
	compressMinSize int,
) *valueCodec {
	if serializer == nil {
		serializer = NewMsgpackSerializer()
	}
	return &valueCodec{
		serializer:      serializer,
		compressor:      compressor,
		encryptor:       encryptor,
		signer:          signer,
		compressMinSize: compressMinSize,
	}
}

// Encode produces the wire form of a value.
func (c *valueCodec) Encode(v any) ([]byte, error) {
	body, err := c.serializer.Marshal(v)
	if err != nil {
		return nil, err
	}

	payload := make([]byte, 0, len(body)+1)
	if c.compressor != nil && len(body) >= c.compressMinSize {
		compressed, err := c.compressor.Compress(body)
		if err != nil {
			return nil, err
		}
		// Skip compression when it does not pay off
		if len(compressed) < len(body) {
			payload = append(payload, markerCompressed)
			payload = append(payload, compressed...)
		} else {
			payload = append(payload, markerUncompressed)
			payload = append(payload, body...)
		}
	} else {
		payload = append(payload, markerUncompressed)
		payload = append(payload, body...)
	}

	if c.encryptor != nil {
		payload, err = c.encryptor.Encrypt(payload)
		if err != nil {
			return nil, err
		}
	}

	if c.signer != nil {
		sig := c.signer.Sign(payload)
		signed := make([]byte, 0, len(sig)+1+len(payload))
		signed = append(signed, sig...)
		signed = append(signed, signatureSeparator...)
		signed = append(signed, payload...)
		payload = signed
	}

	return payload, nil
}

// Decode reverses Encode into dest.
func (c *valueCodec) Decode(data []byte, dest any) error {
	if len(data) == 0 {
		return fmt.Errorf("%w: empty payload", types.ErrSerialization)
	}

	if c.signer != nil {
		idx := bytes.IndexByte(data, signatureSeparator[0])
		if idx < 0 {
			return fmt.Errorf("%w: missing signature", types.ErrSecurity)
		}
		sig, payload := string(data[:idx]), data[idx+1:]
		if !c.signer.Verify(payload, sig) {
			return fmt.Errorf("%w: signature mismatch", types.ErrSecurity)
		}
		data = payload
	}

	if c.encryptor != nil {
		var err error
		data, err = c.encryptor.Decrypt(data)
		if err != nil {
			return err
		}
	}

	if len(data) < 1 {
		return fmt.Errorf("%w: truncated payload", types.ErrSerialization)
	}

	marker, body := data[0], data[1:]
	switch marker {
	case markerCompressed:
		if c.compressor == nil {
			return fmt.Errorf("%w: compressed payload without compressor", types.ErrSerialization)
		}
		var err error
		body, err = c.compressor.Decompress(body)
		if err != nil {
			return err
		}
	case markerUncompressed:
		// Body is the serialized value as-is
	default:
		return fmt.Errorf("%w: unknown payload marker %q", types.ErrSerialization, marker)
	}

	return c.serializer.Unmarshal(body, dest)
}
