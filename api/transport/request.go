package transport

// Header and query names shared by the server handlers and pkg/client.
const (
	HeaderIdempotencyKey = "Idempotency-Key"
	QueryBoardID         = "boardId"
	QueryStatus          = "status"
)
