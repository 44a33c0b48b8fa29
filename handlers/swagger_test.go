package handlers

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/require"
)

func TestSwaggerEndpoints(t *testing.T) {
	g := gin.New()
	RegisterSwagger(g)

	rw := httptest.NewRecorder()
	g.ServeHTTP(rw, httptest.NewRequest(http.MethodGet, "/swagger/index.html", nil))
	require.Equal(t, http.StatusOK, rw.Code)
	require.Contains(t, rw.Header().Get("Content-Type"), "text/html")

	rw = httptest.NewRecorder()
	g.ServeHTTP(rw, httptest.NewRequest(http.MethodGet, "/swagger/doc.json", nil))
	require.Equal(t, http.StatusOK, rw.Code)

	var doc map[string]interface{}
	require.NoError(t, json.Unmarshal(rw.Body.Bytes(), &doc))
	paths := doc["paths"].(map[string]interface{})
	require.Contains(t, paths, "/api/v1/collections")
	require.Contains(t, paths, "/auth/login")
}
