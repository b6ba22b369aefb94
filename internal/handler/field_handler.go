package handler

import (
	"net/http"

	"agenthub/internal/middleware"
	"agenthub/internal/service"
	"agenthub/pkg/response"

	"github.com/gin-gonic/gin"
)

type FieldHandler struct {
	catalog service.CatalogService
	access  service.AccessService
}

func NewFieldHandler(catalog service.CatalogService, access service.AccessService) *FieldHandler {
	return &FieldHandler{catalog: catalog, access: access}
}

func (h *FieldHandler) RegisterRoutes(router *gin.RouterGroup) {
	fields := router.Group("/api/fields")
	{
		fields.GET("", middleware.RequirePermission("fields.view"), h.ListFields)
		fields.GET("/options", middleware.RequirePermission("agents.view"), h.FieldOptions)
		fields.POST("", middleware.RequirePermission("fields.manage_all"), h.CreateField)
		fields.PUT("/:field_name", middleware.RequirePermission("fields.manage_all"), h.UpdateField)
		fields.DELETE("/:field_name", middleware.RequirePermission("fields.manage_all"), h.DeleteField)
	}

	rules := router.Group("/api/field-access")
	{
		rules.GET("", middleware.RequirePermission("fields.view"), h.ListAccessRules)
		rules.GET("/resolve", middleware.RequirePermission("fields.view"), h.ResolveAccess)
		rules.PUT("", middleware.RequirePermission("fields.manage_all"), h.UpsertAccessRule)
	}
}

// ListFields returns the full catalog: builtin fields plus enabled custom fields
// @Summary      List catalog fields
// @Tags         fields
// @Security     BearerAuth
// @Produce      json
// @Success      200  {object}  response.Response
// @Router       /api/fields [get]
func (h *FieldHandler) ListFields(c *gin.Context) {
	tenantID, ok := requireTenant(c)
	if !ok {
		return
	}
	fields, err := h.catalog.ListFields(c.Request.Context(), tenantID)
	if err != nil {
		respondErr(c, err)
		return
	}
	c.JSON(http.StatusOK, response.Success(http.StatusOK, fields))
}

// FieldOptions resolves the selectable options for a field, honoring
// parent-dependent option sets.
// @Summary      Resolve field options
// @Tags         fields
// @Security     BearerAuth
// @Produce      json
// @Param        field         query     string  true   "Field name"
// @Param        source        query     string  false  "Field source"
// @Param        parent_value  query     string  false  "Selected value of the parent field"
// @Success      200           {object}  response.Response
// @Failure      404           {object}  response.Response
// @Router       /api/fields/options [get]
func (h *FieldHandler) FieldOptions(c *gin.Context) {
	tenantID, ok := requireTenant(c)
	if !ok {
		return
	}
	fieldName := c.Query("field")
	if fieldName == "" {
		c.JSON(http.StatusBadRequest, response.Error(http.StatusBadRequest, "field query parameter is required"))
		return
	}

	field, err := h.catalog.GetField(c.Request.Context(), tenantID, c.Query("source"), fieldName)
	if err != nil {
		respondErr(c, err)
		return
	}

	result := service.OptionsFor(*field, c.Query("parent_value"))
	c.JSON(http.StatusOK, response.Success(http.StatusOK, result))
}

// CreateField adds a tenant-custom field definition
// @Summary      Create custom field
// @Tags         fields
// @Security     BearerAuth
// @Accept       json
// @Produce      json
// @Param        payload  body      service.CreateFieldRequest  true  "Field payload"
// @Success      201      {object}  response.Response
// @Failure      400      {object}  response.Response
// @Router       /api/fields [post]
func (h *FieldHandler) CreateField(c *gin.Context) {
	tenantID, ok := requireTenant(c)
	if !ok {
		return
	}
	var req service.CreateFieldRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, response.Error(http.StatusBadRequest, "Invalid request payload: "+err.Error()))
		return
	}

	field, err := h.catalog.CreateField(c.Request.Context(), tenantID, actorFrom(c), req)
	if err != nil {
		respondErr(c, err)
		return
	}
	c.JSON(http.StatusCreated, response.Success(http.StatusCreated, field))
}

// UpdateField updates a custom field definition
// @Summary      Update custom field
// @Tags         fields
// @Security     BearerAuth
// @Accept       json
// @Produce      json
// @Param        field_name  path      string                      true  "Field name"
// @Param        payload     body      service.UpdateFieldRequest  true  "Update payload"
// @Success      200         {object}  response.Response
// @Failure      404         {object}  response.Response
// @Router       /api/fields/{field_name} [put]
func (h *FieldHandler) UpdateField(c *gin.Context) {
	tenantID, ok := requireTenant(c)
	if !ok {
		return
	}
	var req service.UpdateFieldRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, response.Error(http.StatusBadRequest, "Invalid request payload: "+err.Error()))
		return
	}

	field, err := h.catalog.UpdateField(c.Request.Context(), tenantID, actorFrom(c), c.Param("field_name"), req)
	if err != nil {
		respondErr(c, err)
		return
	}
	c.JSON(http.StatusOK, response.Success(http.StatusOK, field))
}

// DeleteField removes a custom field definition
// @Summary      Delete custom field
// @Tags         fields
// @Security     BearerAuth
// @Produce      json
// @Param        field_name  path      string  true  "Field name"
// @Success      200         {object}  response.Response
// @Failure      404         {object}  response.Response
// @Router       /api/fields/{field_name} [delete]
func (h *FieldHandler) DeleteField(c *gin.Context) {
	tenantID, ok := requireTenant(c)
	if !ok {
		return
	}
	if err := h.catalog.DeleteField(c.Request.Context(), tenantID, actorFrom(c), c.Param("field_name")); err != nil {
		respondErr(c, err)
		return
	}
	c.JSON(http.StatusOK, response.Success(http.StatusOK, gin.H{"message": "field deleted"}))
}

// ListAccessRules returns the per-field role access rules
// @Summary      List field access rules
// @Tags         fields
// @Security     BearerAuth
// @Produce      json
// @Param        request_type  query     string  false  "Filter by request surface"
// @Success      200           {object}  response.Response
// @Router       /api/field-access [get]
func (h *FieldHandler) ListAccessRules(c *gin.Context) {
	tenantID, ok := requireTenant(c)
	if !ok {
		return
	}
	rules, err := h.access.ListRules(c.Request.Context(), tenantID, c.Query("request_type"))
	if err != nil {
		respondErr(c, err)
		return
	}
	c.JSON(http.StatusOK, response.Success(http.StatusOK, rules))
}

// UpsertAccessRule creates or replaces the access rule for one field/surface
// @Summary      Upsert field access rule
// @Tags         fields
// @Security     BearerAuth
// @Accept       json
// @Produce      json
// @Param        payload  body      service.UpsertAccessRuleRequest  true  "Rule payload"
// @Success      200      {object}  response.Response
// @Failure      400      {object}  response.Response
// @Router       /api/field-access [put]
func (h *FieldHandler) UpsertAccessRule(c *gin.Context) {
	tenantID, ok := requireTenant(c)
	if !ok {
		return
	}
	var req service.UpsertAccessRuleRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, response.Error(http.StatusBadRequest, "Invalid request payload: "+err.Error()))
		return
	}

	rule, err := h.access.UpsertRule(c.Request.Context(), tenantID, req)
	if err != nil {
		respondErr(c, err)
		return
	}
	c.JSON(http.StatusOK, response.Success(http.StatusOK, rule))
}

// ResolveAccess answers whether a role may view and edit one field on a surface
// @Summary      Resolve field access
// @Tags         field-access
// @Security     BearerAuth
// @Produce      json
// @Param        role          query     string  true   "Role name"
// @Param        request_type  query     string  true   "Request surface"
// @Param        source        query     string  true   "Field source"
// @Param        field         query     string  true   "Field name"
// @Success      200           {object}  response.Response
// @Router       /api/field-access/resolve [get]
func (h *FieldHandler) ResolveAccess(c *gin.Context) {
	tenantID, ok := requireTenant(c)
	if !ok {
		return
	}
	role := c.Query("role")
	requestType := c.Query("request_type")
	source := c.Query("source")
	field := c.Query("field")
	if role == "" || requestType == "" || source == "" || field == "" {
		c.JSON(http.StatusBadRequest, response.Error(http.StatusBadRequest, "role, request_type, source and field query parameters are required"))
		return
	}

	access, err := h.access.Resolve(c.Request.Context(), tenantID, role, requestType, source, field)
	if err != nil {
		respondErr(c, err)
		return
	}
	c.JSON(http.StatusOK, response.Success(http.StatusOK, access))
}
