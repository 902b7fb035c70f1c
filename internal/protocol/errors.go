package protocol

// Result codes carried by RESULT.code. An accepted command has no code.
const (
	// Rejected by the transport before the command reaches the world.
	ErrProtoBadRequest = "E_PROTO_BAD_REQUEST"
	ErrRateLimit       = "E_RATE_LIMIT"
	ErrWorldBusy       = "E_WORLD_BUSY"

	// Rejected by the world while applying the command at a tick boundary.
	ErrBadRequest    = "E_BAD_REQUEST"
	ErrOccupied      = "E_OCCUPIED"
	ErrNotFound      = "E_NOT_FOUND"
	ErrOutOfBounds   = "E_OUT_OF_BOUNDS"
	ErrInvalidTarget = "E_INVALID_TARGET"
	ErrBlocked       = "E_BLOCKED"
	ErrInternal      = "E_INTERNAL"
)

// IsKnownCode reports whether code is empty or one of the codes above.
func IsKnownCode(code string) bool {
	switch code {
	case "",
		ErrProtoBadRequest, ErrRateLimit, ErrWorldBusy,
		ErrBadRequest, ErrOccupied, ErrNotFound, ErrOutOfBounds,
		ErrInvalidTarget, ErrBlocked, ErrInternal:
		return true
	}
	return false
}
