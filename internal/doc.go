// Package internal contains helper utilities that are intentionally private to
// mosession, currently limited to secure session identifier generation.
//
// # What this package must NOT do
//
//   - Export types that appear in the public mosession API.
//   - Be imported by any package outside the mosession module.
package internal
