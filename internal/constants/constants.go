package constants

// Context keys shared between middleware and handlers.
const (
	ContextKeyUserID = "user_id"
	ContextKeyUser   = "current_user"
)

// Pagination bounds.
const (
	MinPageSize     = 1
	DefaultPageSize = 20
	MaxPageSize     = 100
)

const (
	MinPasswordLength = 8

	// MaxSuggestedRoles caps AI-generated workflow role suggestions.
	MaxSuggestedRoles = 10

	// InvitationTTLDays is how long a company invitation stays acceptable.
	InvitationTTLDays = 14
)
