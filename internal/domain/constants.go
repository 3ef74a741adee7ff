package domain

// ==== Room Constants ====

// GlobalRoom is the room every authenticated connection joins on login.
const GlobalRoom = "global"

// DefaultPrivateRoomPrefix reserves a namespace for derived 1:1 rooms so
// they can never collide with explicitly joined room names.
const DefaultPrivateRoomPrefix = "pm:"

// ==== WebSocket Constants ====

// DefaultMaxMessageSize is the maximum inbound frame size in bytes.
// Large enough for base64 file payloads.
const DefaultMaxMessageSize = 10 << 20

// ==== Pagination Constants ====

// DefaultPageSize is the history page size when the caller gives none.
const DefaultPageSize = 20

// ==== Rate Limit Constants ====

const (
	// DefaultRateLimitAPI is the default rate limit for API endpoints (requests/sec)
	DefaultRateLimitAPI = 10

	// DefaultRateLimitWS is the default rate limit for WebSocket connections (req/sec)
	DefaultRateLimitWS = 5
)
