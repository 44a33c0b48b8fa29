package identity

import "github.com/gin-gonic/gin"

// ContextKey is the gin context key under which the auth middleware stores
// the resolved identity for the request.
const ContextKey = "identity"

// Identity is the authenticated caller of a request. The zero value means
// "no identity": metadata attribution falls back to "system" and audit
// attribution to "anonymous".
type Identity struct {
	Username string `json:"username"`
	Email    string `json:"email"`
}

// Attribution returns the username used for lifecycle metadata stamping.
func (id Identity) Attribution() string {
	if id.Username == "" {
		return "system"
	}
	return id.Username
}

// AuditName returns the name recorded in audit entries.
func (id Identity) AuditName() string {
	if id.Username == "" {
		return "anonymous"
	}
	return id.Username
}

// FromContext returns the identity attached to the request, if any.
func FromContext(c *gin.Context) Identity {
	if v, ok := c.Get(ContextKey); ok {
		if id, ok := v.(Identity); ok {
			return id
		}
	}
	return Identity{}
}

// FromClaims maps verified token claims to an identity. The username is taken
// from preferred_username (OIDC) or username, falling back to sub.
func FromClaims(claims map[string]interface{}) Identity {
	id := Identity{}
	for _, k := range []string{"preferred_username", "username", "sub"} {
		if v, _ := claims[k].(string); v != "" {
			id.Username = v
			break
		}
	}
	id.Email, _ = claims["email"].(string)
	return id
}
