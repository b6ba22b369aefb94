package handler

import (
	"net/http"

	"agenthub/internal/middleware"
	"agenthub/internal/service"
	"agenthub/pkg/response"

	"github.com/gin-gonic/gin"
)

type PermissionHandler struct {
	permissionService service.PermissionService
}

func NewPermissionHandler(permissionService service.PermissionService) *PermissionHandler {
	return &PermissionHandler{permissionService: permissionService}
}

func (h *PermissionHandler) RegisterRoutes(router *gin.RouterGroup) {
	perms := router.Group("/api/permissions")
	{
		perms.GET("", middleware.RequirePermission("permissions.manage_all"), h.GetPermissions)
		perms.GET("/groups", middleware.RequirePermission("permissions.manage_all"), h.GetGroups)
		perms.POST("/save", middleware.RequirePermission("permissions.manage_all"), h.SaveChanges)
		perms.POST("/bulk-toggle", middleware.RequirePermission("permissions.manage_all"), h.BulkToggle)
		perms.POST("/seed", middleware.RequirePermission("permissions.manage_all"), h.SeedDefaults)
		perms.GET("/role-filters/:role", middleware.RequirePermission("permissions.manage_all"), h.GetRoleFilter)
		perms.GET("/keys", middleware.RequirePermission("permissions.manage_all"), h.GetEnabledKeys)
	}
}

// GetPermissions returns permission records grouped by category and role
// @Summary      Get permission matrix
// @Tags         permissions
// @Security     BearerAuth
// @Produce      json
// @Param        role  query     string  false  "Filter by role"
// @Success      200   {object}  response.Response
// @Router       /api/permissions [get]
func (h *PermissionHandler) GetPermissions(c *gin.Context) {
	tenantID, ok := requireTenant(c)
	if !ok {
		return
	}
	matrix, err := h.permissionService.GetByCategory(c.Request.Context(), tenantID, c.Query("role"))
	if err != nil {
		respondErr(c, err)
		return
	}
	c.JSON(http.StatusOK, response.Success(http.StatusOK, matrix))
}

// GetGroups returns the derived view/edit grouping for a category
// @Summary      Get grouped permissions
// @Tags         permissions
// @Security     BearerAuth
// @Produce      json
// @Param        category  query     string  false  "Filter by category"
// @Success      200       {object}  response.Response
// @Router       /api/permissions/groups [get]
func (h *PermissionHandler) GetGroups(c *gin.Context) {
	tenantID, ok := requireTenant(c)
	if !ok {
		return
	}
	groups, err := h.permissionService.ComputeGroups(c.Request.Context(), tenantID, c.Query("category"))
	if err != nil {
		respondErr(c, err)
		return
	}
	c.JSON(http.StatusOK, response.Success(http.StatusOK, groups))
}

// SaveChanges applies a batch of staged edits as independent updates and
// reports per-item outcomes. Partial failure is a success response; callers
// inspect the per-item errors and keep failed edits staged.
// @Summary      Save permission changes
// @Tags         permissions
// @Security     BearerAuth
// @Accept       json
// @Produce      json
// @Param        payload  body      service.SavePermissionsRequest  true  "Staged changes"
// @Success      200      {object}  response.Response
// @Failure      400      {object}  response.Response
// @Router       /api/permissions/save [post]
func (h *PermissionHandler) SaveChanges(c *gin.Context) {
	tenantID, ok := requireTenant(c)
	if !ok {
		return
	}
	var req service.SavePermissionsRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, response.Error(http.StatusBadRequest, "Invalid request payload: "+err.Error()))
		return
	}

	results, err := h.permissionService.SaveChanges(c.Request.Context(), tenantID, actorFrom(c), req)
	if err != nil {
		respondErr(c, err)
		return
	}

	// Permission edits invalidate the middleware's grant cache for this tenant
	middleware.ClearPermissionCache("", "")

	failed := 0
	for _, r := range results {
		if r.Err != nil {
			failed++
		}
	}
	c.JSON(http.StatusOK, response.Success(http.StatusOK, gin.H{
		"results": results,
		"failed":  failed,
	}))
}

// BulkToggle enables or disables a set of permission records immediately
// @Summary      Bulk toggle permissions
// @Tags         permissions
// @Security     BearerAuth
// @Accept       json
// @Produce      json
// @Param        payload  body      service.BulkToggleRequest  true  "Permission ids and target state"
// @Success      200      {object}  response.Response
// @Failure      400      {object}  response.Response
// @Router       /api/permissions/bulk-toggle [post]
func (h *PermissionHandler) BulkToggle(c *gin.Context) {
	tenantID, ok := requireTenant(c)
	if !ok {
		return
	}
	var req service.BulkToggleRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, response.Error(http.StatusBadRequest, "Invalid request payload: "+err.Error()))
		return
	}

	affected, err := h.permissionService.BulkToggle(c.Request.Context(), tenantID, actorFrom(c), req)
	if err != nil {
		respondErr(c, err)
		return
	}
	middleware.ClearPermissionCache("", "")
	c.JSON(http.StatusOK, response.Success(http.StatusOK, gin.H{"affected": affected}))
}

// SeedDefaults fills missing default permission records for the tenant
// @Summary      Seed default permissions
// @Tags         permissions
// @Security     BearerAuth
// @Produce      json
// @Success      200  {object}  response.Response
// @Router       /api/permissions/seed [post]
func (h *PermissionHandler) SeedDefaults(c *gin.Context) {
	tenantID, ok := requireTenant(c)
	if !ok {
		return
	}
	created, updated, err := h.permissionService.SeedDefaults(c.Request.Context(), tenantID, actorFrom(c))
	if err != nil {
		respondErr(c, err)
		return
	}
	middleware.ClearPermissionCache("", "")
	c.JSON(http.StatusOK, response.Success(http.StatusOK, gin.H{
		"created": created,
		"updated": updated,
	}))
}

// GetRoleFilter returns the data-filter rules attached to a role
// @Summary      Get role data filter
// @Tags         permissions
// @Security     BearerAuth
// @Produce      json
// @Param        role  path      string  true  "Role name"
// @Success      200   {object}  response.Response
// @Failure      400   {object}  response.Response
// @Router       /api/permissions/role-filters/{role} [get]
func (h *PermissionHandler) GetRoleFilter(c *gin.Context) {
	tenantID, ok := requireTenant(c)
	if !ok {
		return
	}
	rules, err := h.permissionService.RoleFilter(c.Request.Context(), tenantID, c.Param("role"))
	if err != nil {
		respondErr(c, err)
		return
	}
	c.JSON(http.StatusOK, response.Success(http.StatusOK, gin.H{
		"role":         c.Param("role"),
		"filter_rules": rules,
	}))
}

// GetEnabledKeys returns the enabled permission keys for a role
// @Summary      Get enabled permission keys
// @Tags         permissions
// @Security     BearerAuth
// @Produce      json
// @Param        role  query     string  true  "Role name"
// @Success      200   {object}  response.Response
// @Router       /api/permissions/keys [get]
func (h *PermissionHandler) GetEnabledKeys(c *gin.Context) {
	tenantID, ok := requireTenant(c)
	if !ok {
		return
	}
	role := c.Query("role")
	if role == "" {
		c.JSON(http.StatusBadRequest, response.Error(http.StatusBadRequest, "role query parameter is required"))
		return
	}
	keys, err := h.permissionService.EnabledKeys(c.Request.Context(), tenantID, role)
	if err != nil {
		respondErr(c, err)
		return
	}
	c.JSON(http.StatusOK, response.Success(http.StatusOK, gin.H{
		"role": role,
		"keys": keys,
	}))
}
