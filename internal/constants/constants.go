package constants

// Context keys used to carry the authenticated principal through a request.
const (
	ContextKeyUserID = "user_id"
	ContextKeyUser   = "current_user"
)

const (
	MinPasswordLength = 8

	// MaxPasswordLength is bcrypt's input limit; longer passwords are
	// rejected up front instead of erroring inside the hasher.
	MaxPasswordLength = 72

	// MaxUsernameLength matches the column width of users.username.
	MaxUsernameLength = 50
)
