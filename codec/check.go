package codec

import (
	"fmt"
	"math"
)

// CheckValue reports whether v can be encoded by the binary codec, without
// encoding it. Lets callers reject bad values at write time instead of at
// save time.
func CheckValue(v any) error {
	return checkValue(v, 0)
}

func checkValue(v any, depth int) error {
	if depth > maxDepth {
		return ErrPayloadTooDeep
	}

	switch val := v.(type) {
	case nil, bool, int, int8, int16, int32, int64,
		uint8, uint16, uint32, float32, float64, string:
		return nil
	case uint:
		if uint64(val) > math.MaxInt64 {
			return fmt.Errorf("%w: uint value overflows int64", ErrInvalidValueType)
		}
		return nil
	case uint64:
		if val > math.MaxInt64 {
			return fmt.Errorf("%w: uint64 value overflows int64", ErrInvalidValueType)
		}
		return nil
	case []any:
		for _, item := range val {
			if err := checkValue(item, depth+1); err != nil {
				return err
			}
		}
		return nil
	case map[string]any:
		for _, item := range val {
			if err := checkValue(item, depth+1); err != nil {
				return err
			}
		}
		return nil
	default:
		return fmt.Errorf("%w: %T", ErrInvalidValueType, v)
	}
}
