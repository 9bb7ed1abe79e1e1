package mosession

import "time"

// InstructionOp tells the transport adapter what to do with the client's
// session token after a request.
type InstructionOp int

const (
	// OpNone: leave the client's token alone.
	OpNone InstructionOp = iota
	// OpSetToken: issue (or replace) the token named Name with Token,
	// valid for TTL. TTL zero means a non-expiring token.
	OpSetToken
	// OpUnsetToken: remove the token named Name from the client.
	OpUnsetToken
)

// String implements fmt.Stringer for log output.
func (op InstructionOp) String() string {
	switch op {
	case OpNone:
		return "none"
	case OpSetToken:
		return "set-token"
	case OpUnsetToken:
		return "unset-token"
	default:
		return "unknown"
	}
}

// Instruction is the transport-agnostic outcome of [Engine.End]: what the
// caller must do with the client-held token. An HTTP adapter maps it to a
// Set-Cookie header; other transports map it however they carry tokens.
type Instruction struct {
	Op InstructionOp
	// Name is the configured token name (Token.CookieName). Set for
	// OpSetToken and OpUnsetToken.
	Name string
	// Token is the identifier to hand to the client. Set for OpSetToken.
	Token string
	// TTL is the token lifetime. Zero means permanent. Set for OpSetToken.
	TTL time.Duration
}

// None is the no-op instruction.
func None() Instruction { return Instruction{Op: OpNone} }
