package handler

import (
	"github.com/gin-gonic/gin"

	"course-media/pkg/auth"
)

const identityKey = "identity"

// ResolveIdentity attaches the caller's identity to the request when a
// valid token is present (Authorization header or session cookie) and
// lets the request continue anonymously otherwise. Services decide
// whether anonymous access is acceptable.
func ResolveIdentity(tokens *auth.TokenManager) gin.HandlerFunc {
	return func(c *gin.Context) {
		raw := auth.ExtractBearer(c.GetHeader("Authorization"))
		if raw == "" {
			if cookie, err := c.Cookie("session"); err == nil {
				raw = cookie
			}
		}
		if raw == "" {
			c.Next()
			return
		}

		identity, err := tokens.Parse(raw)
		if err != nil {
			c.Next()
			return
		}

		c.Set(identityKey, &identity)
		c.Next()
	}
}

func identityFromContext(c *gin.Context) *auth.Identity {
	value, ok := c.Get(identityKey)
	if !ok {
		return nil
	}
	identity, ok := value.(*auth.Identity)
	if !ok {
		return nil
	}
	return identity
}
