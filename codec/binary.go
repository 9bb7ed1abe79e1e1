package codec

import (
	"bytes"
	"encoding/binary"
	"errors"
	"fmt"
	"io"
	"math"
)

const payloadFormatVersionCurrent = 1

// maxDepth bounds value nesting. It also guarantees Encode terminates on
// accidentally cyclic structures instead of recursing forever.
const maxDepth = 32

const (
	tagNil byte = iota
	tagFalse
	tagTrue
	tagInt
	tagFloat
	tagString
	tagArray
	tagMap
)

// Binary is the default payload codec: version byte, then one type-tagged
// value tree with big-endian lengths.
type Binary struct {
	maxSize int
}

// NewBinary creates a [Binary] codec. maxSize caps the encoded payload in
// bytes; zero or negative disables the cap.
func NewBinary(maxSize int) *Binary {
	return &Binary{maxSize: maxSize}
}

// Encode serializes payload. It fails with [ErrInvalidValueType] on values
// outside the supported set, [ErrPayloadTooDeep] past the nesting cap, and
// [ErrPayloadTooLarge] when the result exceeds the configured size cap.
func (c *Binary) Encode(payload map[string]any) ([]byte, error) {
	var buf bytes.Buffer
	buf.WriteByte(payloadFormatVersionCurrent)

	if err := encodeMap(&buf, payload, 0); err != nil {
		return nil, err
	}

	if c.maxSize > 0 && buf.Len() > c.maxSize {
		return nil, fmt.Errorf("%w: %d bytes over %d cap", ErrPayloadTooLarge, buf.Len(), c.maxSize)
	}
	return buf.Bytes(), nil
}

// Decode parses stored bytes back into a payload mapping. Any malformed
// input, including trailing garbage, fails with [ErrCorruptPayload].
func (c *Binary) Decode(data []byte) (map[string]any, error) {
	reader := bytes.NewReader(data)

	version, err := reader.ReadByte()
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrCorruptPayload, err)
	}
	if version != payloadFormatVersionCurrent {
		return nil, fmt.Errorf("%w: unknown format version %d", ErrCorruptPayload, version)
	}

	payload, err := decodeMap(reader, 0)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrCorruptPayload, err)
	}
	if reader.Len() != 0 {
		return nil, fmt.Errorf("%w: %d trailing bytes", ErrCorruptPayload, reader.Len())
	}
	return payload, nil
}

func encodeValue(buf *bytes.Buffer, v any, depth int) error {
	if depth > maxDepth {
		return ErrPayloadTooDeep
	}

	switch val := v.(type) {
	case nil:
		buf.WriteByte(tagNil)
	case bool:
		if val {
			buf.WriteByte(tagTrue)
		} else {
			buf.WriteByte(tagFalse)
		}
	case int:
		writeInt(buf, int64(val))
	case int8:
		writeInt(buf, int64(val))
	case int16:
		writeInt(buf, int64(val))
	case int32:
		writeInt(buf, int64(val))
	case int64:
		writeInt(buf, val)
	case uint:
		if uint64(val) > math.MaxInt64 {
			return fmt.Errorf("%w: uint value overflows int64", ErrInvalidValueType)
		}
		writeInt(buf, int64(val))
	case uint8:
		writeInt(buf, int64(val))
	case uint16:
		writeInt(buf, int64(val))
	case uint32:
		writeInt(buf, int64(val))
	case uint64:
		if val > math.MaxInt64 {
			return fmt.Errorf("%w: uint64 value overflows int64", ErrInvalidValueType)
		}
		writeInt(buf, int64(val))
	case float32:
		writeFloat(buf, float64(val))
	case float64:
		writeFloat(buf, val)
	case string:
		buf.WriteByte(tagString)
		writeLen(buf, len(val))
		buf.WriteString(val)
	case []any:
		buf.WriteByte(tagArray)
		writeLen(buf, len(val))
		for _, item := range val {
			if err := encodeValue(buf, item, depth+1); err != nil {
				return err
			}
		}
	case map[string]any:
		if err := encodeMap(buf, val, depth); err != nil {
			return err
		}
	default:
		return fmt.Errorf("%w: %T", ErrInvalidValueType, v)
	}

	return nil
}

func encodeMap(buf *bytes.Buffer, m map[string]any, depth int) error {
	if depth > maxDepth {
		return ErrPayloadTooDeep
	}

	buf.WriteByte(tagMap)
	writeLen(buf, len(m))
	for key, value := range m {
		writeLen(buf, len(key))
		buf.WriteString(key)
		if err := encodeValue(buf, value, depth+1); err != nil {
			return err
		}
	}
	return nil
}

func writeInt(buf *bytes.Buffer, v int64) {
	buf.WriteByte(tagInt)
	var raw [8]byte
	binary.BigEndian.PutUint64(raw[:], uint64(v))
	buf.Write(raw[:])
}

func writeFloat(buf *bytes.Buffer, v float64) {
	buf.WriteByte(tagFloat)
	var raw [8]byte
	binary.BigEndian.PutUint64(raw[:], math.Float64bits(v))
	buf.Write(raw[:])
}

func writeLen(buf *bytes.Buffer, n int) {
	var raw [4]byte
	binary.BigEndian.PutUint32(raw[:], uint32(n))
	buf.Write(raw[:])
}

func decodeValue(reader *bytes.Reader, depth int) (any, error) {
	if depth > maxDepth {
		return nil, errors.New("nesting too deep")
	}

	tag, err := reader.ReadByte()
	if err != nil {
		return nil, err
	}

	switch tag {
	case tagNil:
		return nil, nil
	case tagFalse:
		return false, nil
	case tagTrue:
		return true, nil
	case tagInt:
		raw, err := readFull(reader, 8)
		if err != nil {
			return nil, err
		}
		return int64(binary.BigEndian.Uint64(raw)), nil
	case tagFloat:
		raw, err := readFull(reader, 8)
		if err != nil {
			return nil, err
		}
		return math.Float64frombits(binary.BigEndian.Uint64(raw)), nil
	case tagString:
		return readString(reader)
	case tagArray:
		count, err := readLen(reader)
		if err != nil {
			return nil, err
		}
		items := make([]any, 0, count)
		for i := 0; i < count; i++ {
			item, err := decodeValue(reader, depth+1)
			if err != nil {
				return nil, err
			}
			items = append(items, item)
		}
		return items, nil
	case tagMap:
		return decodeMapBody(reader, depth)
	default:
		return nil, fmt.Errorf("unknown value tag %d", tag)
	}
}

func decodeMap(reader *bytes.Reader, depth int) (map[string]any, error) {
	tag, err := reader.ReadByte()
	if err != nil {
		return nil, err
	}
	if tag != tagMap {
		return nil, fmt.Errorf("expected mapping tag, got %d", tag)
	}
	return decodeMapBody(reader, depth)
}

func decodeMapBody(reader *bytes.Reader, depth int) (map[string]any, error) {
	if depth > maxDepth {
		return nil, errors.New("nesting too deep")
	}

	count, err := readLen(reader)
	if err != nil {
		return nil, err
	}

	m := make(map[string]any, count)
	for i := 0; i < count; i++ {
		key, err := readString(reader)
		if err != nil {
			return nil, err
		}
		value, err := decodeValue(reader, depth+1)
		if err != nil {
			return nil, err
		}
		m[key] = value
	}
	return m, nil
}

func readLen(reader *bytes.Reader) (int, error) {
	raw, err := readFull(reader, 4)
	if err != nil {
		return 0, err
	}
	n := binary.BigEndian.Uint32(raw)
	// A length can never exceed the bytes actually remaining; this rejects
	// hostile lengths before any allocation.
	if int(n) > reader.Len() {
		return 0, fmt.Errorf("length %d exceeds remaining %d bytes", n, reader.Len())
	}
	return int(n), nil
}

func readString(reader *bytes.Reader) (string, error) {
	n, err := readLen(reader)
	if err != nil {
		return "", err
	}
	raw, err := readFull(reader, n)
	if err != nil {
		return "", err
	}
	return string(raw), nil
}

func readFull(reader *bytes.Reader, n int) ([]byte, error) {
	raw := make([]byte, n)
	if _, err := io.ReadFull(reader, raw); err != nil {
		return nil, err
	}
	return raw, nil
}
