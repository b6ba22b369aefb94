package handler

import (
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"agenthub/pkg/apperr"
	"agenthub/pkg/response"
)

// respondErr translates a service error into the standard envelope using
// the error's kind for the status code.
func respondErr(c *gin.Context, err error) {
	status := apperr.HTTPStatus(err)
	c.JSON(status, response.Error(status, err.Error()))
}

// tenantFrom reads the tenant id stashed by the auth middleware
func tenantFrom(c *gin.Context) (uuid.UUID, bool) {
	raw, ok := c.Get("tenantID")
	if !ok {
		return uuid.Nil, false
	}
	s, ok := raw.(string)
	if !ok {
		return uuid.Nil, false
	}
	id, err := uuid.Parse(s)
	if err != nil {
		return uuid.Nil, false
	}
	return id, true
}

// actorFrom reads the acting user's id; nil for unauthenticated automation paths
func actorFrom(c *gin.Context) *uuid.UUID {
	raw, ok := c.Get("userID")
	if !ok {
		return nil
	}
	s, ok := raw.(string)
	if !ok {
		return nil
	}
	id, err := uuid.Parse(s)
	if err != nil {
		return nil
	}
	return &id
}

// roleFrom reads the acting user's role
func roleFrom(c *gin.Context) string {
	raw, ok := c.Get("userRole")
	if !ok {
		return ""
	}
	s, _ := raw.(string)
	return s
}

// requireTenant aborts with 401 when no tenant claim is present. Every
// domain route runs behind auth middleware, so a missing claim means a
// broken token, not a missing login.
func requireTenant(c *gin.Context) (uuid.UUID, bool) {
	tenantID, ok := tenantFrom(c)
	if !ok {
		c.JSON(401, response.Error(401, "Tenant claim missing from token"))
		return uuid.Nil, false
	}
	return tenantID, true
}

// parseID parses a path parameter as a UUID, responding 400 on failure
func parseID(c *gin.Context, param string) (uuid.UUID, bool) {
	id, err := uuid.Parse(c.Param(param))
	if err != nil {
		c.JSON(400, response.Error(400, "Invalid "+param+" parameter"))
		return uuid.Nil, false
	}
	return id, true
}
