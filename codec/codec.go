package codec

import "errors"

// ErrCorruptPayload is returned by Decode when stored bytes cannot be parsed
// back into a payload mapping.
var ErrCorruptPayload = errors.New("corrupt session payload")

// ErrInvalidValueType is returned by Encode when the payload contains a value
// outside the supported set.
var ErrInvalidValueType = errors.New("unsupported session value type")

// ErrPayloadTooLarge is returned by Encode when the encoded payload exceeds
// the configured size cap.
var ErrPayloadTooLarge = errors.New("session payload too large")

// ErrPayloadTooDeep is returned by Encode when the payload nests beyond the
// supported depth.
var ErrPayloadTooDeep = errors.New("session payload nested too deep")

// Codec converts a session payload mapping to and from its stored byte form.
//
// Implementations must be safe for concurrent use and must guarantee that
// Decode(Encode(m)) deep-equals m for every supported mapping m.
type Codec interface {
	Encode(payload map[string]any) ([]byte, error)
	Decode(data []byte) (map[string]any, error)
}
