package identity

import (
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/require"
)

func TestAttribution(t *testing.T) {
	require.Equal(t, "alice", Identity{Username: "alice"}.Attribution())
	require.Equal(t, "system", Identity{}.Attribution())
	require.Equal(t, "anonymous", Identity{}.AuditName())
	require.Equal(t, "alice", Identity{Username: "alice"}.AuditName())
}

func TestFromClaims(t *testing.T) {
	id := FromClaims(map[string]interface{}{"preferred_username": "alice", "email": "a@example.com"})
	require.Equal(t, "alice", id.Username)
	require.Equal(t, "a@example.com", id.Email)

	id = FromClaims(map[string]interface{}{"sub": "svc-1"})
	require.Equal(t, "svc-1", id.Username)

	id = FromClaims(map[string]interface{}{})
	require.Equal(t, "system", id.Attribution())
}

func TestFromContext(t *testing.T) {
	c, _ := gin.CreateTestContext(nil)
	require.Equal(t, Identity{}, FromContext(c))

	c.Set(ContextKey, Identity{Username: "bob"})
	require.Equal(t, "bob", FromContext(c).Username)
}
