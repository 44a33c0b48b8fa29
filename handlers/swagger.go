package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"
)

// RegisterSwagger registers minimal Swagger/OpenAPI endpoints.
// - GET /swagger/index.html  -> a small HTML page that loads the OpenAPI JSON
// - GET /swagger/doc.json    -> machine-readable OpenAPI JSON
func RegisterSwagger(rg *gin.Engine) {
	rg.GET("/swagger/index.html", func(c *gin.Context) {
		c.Header("Content-Type", "text/html; charset=utf-8")
		c.String(http.StatusOK, swaggerHTML)
	})

	rg.GET("/swagger/doc.json", func(c *gin.Context) {
		c.Data(http.StatusOK, "application/json", []byte(swaggerJSON))
	})
}

const swaggerHTML = `<!doctype html>
<html>
  <head>
    <meta charset="utf-8" />
    <title>docgate — Swagger</title>
    <link rel="stylesheet" href="https://unpkg.com/swagger-ui-dist@4/swagger-ui.css" />
  </head>
  <body>
    <div id="swagger-ui"></div>
    <script src="https://unpkg.com/swagger-ui-dist@4/swagger-ui-bundle.js"></script>
    <script>
      window.ui = SwaggerUIBundle({
        url: '/swagger/doc.json',
        dom_id: '#swagger-ui',
      })
    </script>
  </body>
</html>`

// Minimal OpenAPI document describing the service surface.
const swaggerJSON = `{
  "openapi": "3.0.0",
  "info": { "title": "docgate", "version": "v0.1.0" },
  "paths": {
    "/auth/login": {
      "post": { "summary": "Exchange credentials for tokens", "requestBody": { "content": { "application/json": { "schema": {"type":"object","properties":{"username":{"type":"string"},"password":{"type":"string"}}}}}}, "responses": { "200": { "description": "tokens returned" }, "401": { "description": "invalid credentials" } } }
    },
    "/auth/refresh": {
      "post": { "summary": "Refresh access token", "requestBody": { "content": { "application/json": { "schema": {"type":"object","properties":{"refresh_token":{"type":"string"}}}}}}, "responses": { "200": { "description": "new access token" }, "401": { "description": "invalid refresh" } } }
    },
    "/auth/logout": {
      "post": { "summary": "Logout and invalidate refresh token", "responses": { "200": { "description": "logged out" } } }
    },
    "/api/v1/me": {
      "get": { "summary": "Get the authenticated account", "responses": { "200": { "description": "user or identity" } } }
    },
    "/api/v1/collections": {
      "get": { "summary": "List collections", "responses": { "200": { "description": "collection names" } } },
      "post": { "summary": "Create a collection (idempotent)", "requestBody": { "content": { "application/json": { "schema": {"type":"object","properties":{"name":{"type":"string"}}}}}}, "responses": { "201": { "description": "created" }, "200": { "description": "already exists" } } }
    },
    "/api/v1/collections/{collection}/documents": {
      "post": { "summary": "Insert a document", "responses": { "201": { "description": "generated id" } } }
    },
    "/api/v1/collections/{collection}/documents/search": {
      "post": { "summary": "Find active documents", "requestBody": { "content": { "application/json": { "schema": {"type":"object","properties":{"filter":{"type":"object"},"projection":{"type":"object"},"sort":{"type":"object"},"limit":{"type":"integer"},"skip":{"type":"integer"}}}}}}, "responses": { "200": { "description": "matching documents" } } }
    },
    "/api/v1/collections/{collection}/documents/delete": {
      "post": { "summary": "Soft-delete documents by filter", "responses": { "200": { "description": "count deleted" } } }
    },
    "/api/v1/collections/{collection}/documents/{id}": {
      "get": { "summary": "Get an active document by id", "responses": { "200": { "description": "document" }, "404": { "description": "not found" } } },
      "patch": { "summary": "Update an active document", "responses": { "200": { "description": "updated document" }, "404": { "description": "not found" } } },
      "delete": { "summary": "Soft-delete a document", "responses": { "204": { "description": "deleted" }, "404": { "description": "not found" } } }
    },
    "/health": { "get": { "summary": "Liveness check", "responses": { "200": { "description": "healthy" } } } },
    "/ready": { "get": { "summary": "Readiness check", "responses": { "200": { "description": "ready" }, "503": { "description": "not ready" } } } }
  }
}`
