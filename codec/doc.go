// Package codec provides the versioned binary payload encoding used to persist
// session data.
//
// # Binary encoding
//
// Payloads are stored as a compact binary format: a leading format version
// byte followed by one type-tagged value tree. The encoder is append-only
// across versions: new versions add tags but never reinterpret old ones.
//
// # Value model
//
// The supported value set is closed: nil, bool, int64, float64, string,
// []any, and map[string]any. Other Go integer and float widths are
// normalized at encode time; everything else is rejected with
// [ErrInvalidValueType] before any bytes reach a store.
//
// # What this package must NOT do
//
//   - Import mosession or mosession/store (no upward imports).
//   - Touch any backend; it is pure serialization.
//   - Silently truncate or coerce unsupported values.
package codec
