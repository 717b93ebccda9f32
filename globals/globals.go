package globals

// Context keys
type ContextKey string

const (
	UserIDKey   ContextKey = "userId"
	IsAdminKey  ContextKey = "isAdmin"
	TokenIDKey  ContextKey = "tokenId"
	TokenExpKey ContextKey = "tokenExp"
)
