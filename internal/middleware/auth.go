package middleware

import (
	"errors"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/project/task-manager-api/internal/constants"
	apierrors "github.com/project/task-manager-api/internal/errors"
	"github.com/project/task-manager-api/internal/models"
	"github.com/project/task-manager-api/internal/repository"
	"github.com/project/task-manager-api/internal/token"
	"gorm.io/gorm"
)

const bearerPrefix = "Bearer "

// Authenticate validates the bearer token on every request and binds the
// resolved user as the request principal. Requests without a token pass
// through anonymous; protected routes reject them via RequireAuth. There is no
// session store or revocation list: expiry and account deactivation are the
// only invalidation mechanisms.
func Authenticate(tokens *token.JWT, userRepo repository.UserRepository) gin.HandlerFunc {
	return func(c *gin.Context) {
		authHeader := c.GetHeader("Authorization")
		if authHeader == "" || !strings.HasPrefix(authHeader, bearerPrefix) {
			c.Next()
			return
		}

		tokenString := strings.TrimPrefix(authHeader, bearerPrefix)

		userID, err := tokens.ExtractSubject(tokenString)
		if err != nil {
			if errors.Is(err, token.ErrTokenExpired) {
				apierrors.UnauthorizedWithCode(c, apierrors.ErrCodeTokenExpired, "Token expired. Please log in again.")
			} else {
				apierrors.Unauthorized(c, "Invalid token.")
			}
			c.Abort()
			return
		}

		user, err := userRepo.FindByID(userID)
		if err != nil {
			// A store failure is not a verdict on the session.
			if !errors.Is(err, gorm.ErrRecordNotFound) {
				apierrors.InternalError(c, "Internal server error")
				c.Abort()
				return
			}
			apierrors.UnauthorizedWithCode(c, apierrors.ErrCodeAccountDeactivated, "Account deactivated. Please log in again.")
			c.Abort()
			return
		}

		// Deactivation must immediately invalidate live tokens.
		if !user.IsActive {
			apierrors.UnauthorizedWithCode(c, apierrors.ErrCodeAccountDeactivated, "Account deactivated. Please log in again.")
			c.Abort()
			return
		}

		// Bind at most one principal per request.
		if _, bound := c.Get(constants.ContextKeyUserID); !bound {
			c.Set(constants.ContextKeyUserID, user.ID)
			c.Set(constants.ContextKeyUser, user)
		}

		c.Next()
	}
}

// RequireAuth rejects requests that reach it without a bound principal.
func RequireAuth() gin.HandlerFunc {
	return func(c *gin.Context) {
		if _, exists := c.Get(constants.ContextKeyUserID); !exists {
			apierrors.Unauthorized(c, "")
			c.Abort()
			return
		}

		c.Next()
	}
}

// GetUserID retrieves the current user ID from context
func GetUserID(c *gin.Context) (uint64, bool) {
	userID, exists := c.Get(constants.ContextKeyUserID)
	if !exists {
		return 0, false
	}

	switch v := userID.(type) {
	case uint64:
		return v, true
	case uint:
		return uint64(v), true
	case int:
		if v < 0 {
			return 0, false
		}
		return uint64(v), true
	default:
		return 0, false
	}
}

// GetCurrentUser retrieves the authenticated user from context
func GetCurrentUser(c *gin.Context) (*models.User, bool) {
	value, exists := c.Get(constants.ContextKeyUser)
	if !exists {
		return nil, false
	}

	user, ok := value.(*models.User)
	if !ok {
		return nil, false
	}

	return user, true
}
