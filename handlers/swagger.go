package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"
)

// RegisterSwagger registers minimal Swagger/OpenAPI endpoints for the portal.
// - GET /swagger/index.html  -> a small HTML page that loads the OpenAPI JSON
// - GET /swagger/doc.json    -> machine-readable OpenAPI JSON
func RegisterSwagger(rg *gin.Engine) {
	rg.GET("/swagger/index.html", func(c *gin.Context) {
		c.Header("Content-Type", "text/html; charset=utf-8")
		c.String(http.StatusOK, swaggerHTML)
	})

	rg.GET("/swagger/doc.json", func(c *gin.Context) {
		c.Data(http.StatusOK, "application/json; charset=utf-8", []byte(swaggerJSON))
	})
}

const swaggerHTML = `<!doctype html>
<html>
  <head>
    <meta charset="utf-8" />
    <title>docflow portal - Swagger</title>
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

const swaggerJSON = `{
  "openapi": "3.0.0",
  "info": { "title": "docflow-portal", "version": "v0.1.0" },
  "paths": {
    "/auth/login": {
      "post": {
        "summary": "Log in against the backend; sets the token cookie",
        "requestBody": { "content": { "multipart/form-data": { "schema": {"type":"object","properties":{"email":{"type":"string"},"password":{"type":"string"}}}}}},
        "responses": { "200": { "description": "LOGIN_SUCCESSFUL envelope" }, "401": { "description": "LOGIN_FAIL envelope" } }
      }
    },
    "/auth/register": {
      "post": { "summary": "Register a user", "requestBody": { "content": { "multipart/form-data": { "schema": {"type":"object","properties":{"email":{"type":"string"},"password":{"type":"string"},"questionIdx":{"type":"integer"},"answer":{"type":"string"},"role":{"type":"string"}}}}}}, "responses": { "200": { "description": "REGISTER_SUCCESS envelope" } } }
    },
    "/auth/logout": {
      "post": { "summary": "Revoke the token and clear cookies", "responses": { "200": { "description": "logged out" } } }
    },
    "/dashboard/{user}/{id}": {
      "get": { "summary": "Load a field partner's board for role pm or fp", "responses": { "200": { "description": "columns, actions, messages, instructions, due date" }, "403": { "description": "session bound to the other role" }, "409": { "description": "busy" } } }
    },
    "/dashboard/{user}/{id}/finish": {
      "post": { "summary": "Field partner marks the application Complete", "responses": { "200": { "description": "redirect to the PM overview" }, "401": { "description": "no usable backend token" }, "403": { "description": "not a field partner" }, "409": { "description": "busy" } } }
    },
    "/dashboard/{user}/{id}/update": {
      "get": { "summary": "Portfolio manager edits the requirements", "responses": { "200": { "description": "redirect to setup" }, "403": { "description": "not a portfolio manager" } } }
    },
    "/documents/{id}/status": {
      "put": { "summary": "Approve or reject a pending document", "responses": { "200": { "description": "UPDATE_DOC_STATUS_SUCCESS envelope" }, "401": { "description": "no usable backend token" }, "409": { "description": "transition not allowed or busy" } } }
    },
    "/documents/{id}/upload": {
      "put": { "summary": "Upload a missing or rejected document", "responses": { "200": { "description": "UPLOAD_FILE_SUCCESS envelope" }, "401": { "description": "no usable backend token" }, "409": { "description": "transition not allowed or busy" } } }
    },
    "/health": { "get": { "summary": "Liveness check", "responses": { "200": { "description": "healthy" } } } },
    "/ready": { "get": { "summary": "Readiness check", "responses": { "200": { "description": "ready" }, "503": { "description": "not ready" } } } }
  }
}`
