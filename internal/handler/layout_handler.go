package handler

import (
	"net/http"

	"agenthub/internal/middleware"
	"agenthub/internal/service"
	"agenthub/pkg/response"

	"github.com/gin-gonic/gin"
)

type LayoutHandler struct {
	layoutService service.LayoutService
}

func NewLayoutHandler(layoutService service.LayoutService) *LayoutHandler {
	return &LayoutHandler{layoutService: layoutService}
}

func (h *LayoutHandler) RegisterRoutes(router *gin.RouterGroup) {
	layouts := router.Group("/api/layouts")
	{
		layouts.GET("/render", middleware.RequirePermission("agents.view"), h.RenderLayout)
		layouts.GET("", middleware.RequirePermission("layouts.manage_all"), h.ListLayouts)
		layouts.POST("", middleware.RequirePermission("layouts.manage_all"), h.CreateLayout)
		layouts.GET("/:id", middleware.RequirePermission("layouts.manage_all"), h.GetLayout)
		layouts.PUT("/:id", middleware.RequirePermission("layouts.manage_all"), h.UpdateLayout)
		layouts.DELETE("/:id", middleware.RequirePermission("layouts.manage_all"), h.DeleteLayout)
		layouts.POST("/:id/sections", middleware.RequirePermission("layouts.manage_all"), h.AddSection)
		layouts.DELETE("/:id/sections/:section_id", middleware.RequirePermission("layouts.manage_all"), h.DeleteSection)
		layouts.POST("/:id/sections/reorder", middleware.RequirePermission("layouts.manage_all"), h.ReorderSections)
		layouts.POST("/:id/fields", middleware.RequirePermission("layouts.manage_all"), h.AddFieldToSection)
		layouts.POST("/:id/default", middleware.RequirePermission("layouts.manage_all"), h.SetDefault)
	}
}

// RenderLayout resolves the active layout for a surface and filters its
// fields by the caller's access.
// @Summary      Render form layout
// @Tags         layouts
// @Security     BearerAuth
// @Produce      json
// @Param        request_type  query     string  true   "Surface: vendor, admin, approver, end_user"
// @Param        agent_type    query     string  false  "Agent type for layout resolution"
// @Success      200           {object}  response.Response
// @Failure      404           {object}  response.Response
// @Router       /api/layouts/render [get]
func (h *LayoutHandler) RenderLayout(c *gin.Context) {
	tenantID, ok := requireTenant(c)
	if !ok {
		return
	}
	requestType := c.Query("request_type")
	if requestType == "" {
		c.JSON(http.StatusBadRequest, response.Error(http.StatusBadRequest, "request_type query parameter is required"))
		return
	}
	var agentType *string
	if at := c.Query("agent_type"); at != "" {
		agentType = &at
	}

	layout, err := h.layoutService.GetLayout(c.Request.Context(), tenantID, requestType, agentType)
	if err != nil {
		respondErr(c, err)
		return
	}
	sections, err := h.layoutService.RenderableSections(c.Request.Context(), tenantID, roleFrom(c), layout)
	if err != nil {
		respondErr(c, err)
		return
	}

	c.JSON(http.StatusOK, response.Success(http.StatusOK, gin.H{
		"layout":   layout,
		"sections": sections,
	}))
}

// ListLayouts returns all layouts for a surface
// @Summary      List layouts
// @Tags         layouts
// @Security     BearerAuth
// @Produce      json
// @Param        request_type  query     string  false  "Filter by surface"
// @Success      200           {object}  response.Response
// @Router       /api/layouts [get]
func (h *LayoutHandler) ListLayouts(c *gin.Context) {
	tenantID, ok := requireTenant(c)
	if !ok {
		return
	}
	layouts, err := h.layoutService.ListLayouts(c.Request.Context(), tenantID, c.Query("request_type"))
	if err != nil {
		respondErr(c, err)
		return
	}
	c.JSON(http.StatusOK, response.Success(http.StatusOK, layouts))
}

// CreateLayout creates a new form layout
// @Summary      Create layout
// @Tags         layouts
// @Security     BearerAuth
// @Accept       json
// @Produce      json
// @Param        payload  body      service.CreateLayoutRequest  true  "Layout payload"
// @Success      201      {object}  response.Response
// @Failure      400      {object}  response.Response
// @Router       /api/layouts [post]
func (h *LayoutHandler) CreateLayout(c *gin.Context) {
	tenantID, ok := requireTenant(c)
	if !ok {
		return
	}
	var req service.CreateLayoutRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, response.Error(http.StatusBadRequest, "Invalid request payload: "+err.Error()))
		return
	}

	layout, err := h.layoutService.CreateLayout(c.Request.Context(), tenantID, actorFrom(c), req)
	if err != nil {
		respondErr(c, err)
		return
	}
	c.JSON(http.StatusCreated, response.Success(http.StatusCreated, layout))
}

// GetLayout returns one layout by id
// @Summary      Get layout
// @Tags         layouts
// @Security     BearerAuth
// @Produce      json
// @Param        id   path      string  true  "Layout ID"
// @Success      200  {object}  response.Response
// @Failure      404  {object}  response.Response
// @Router       /api/layouts/{id} [get]
func (h *LayoutHandler) GetLayout(c *gin.Context) {
	tenantID, ok := requireTenant(c)
	if !ok {
		return
	}
	id, ok := parseID(c, "id")
	if !ok {
		return
	}
	layout, err := h.layoutService.GetLayoutByID(c.Request.Context(), tenantID, id)
	if err != nil {
		respondErr(c, err)
		return
	}
	c.JSON(http.StatusOK, response.Success(http.StatusOK, layout))
}

// UpdateLayout replaces layout metadata, sections or dependencies
// @Summary      Update layout
// @Tags         layouts
// @Security     BearerAuth
// @Accept       json
// @Produce      json
// @Param        id       path      string                       true  "Layout ID"
// @Param        payload  body      service.UpdateLayoutRequest  true  "Update payload"
// @Success      200      {object}  response.Response
// @Failure      400      {object}  response.Response
// @Router       /api/layouts/{id} [put]
func (h *LayoutHandler) UpdateLayout(c *gin.Context) {
	tenantID, ok := requireTenant(c)
	if !ok {
		return
	}
	id, ok := parseID(c, "id")
	if !ok {
		return
	}
	var req service.UpdateLayoutRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, response.Error(http.StatusBadRequest, "Invalid request payload: "+err.Error()))
		return
	}

	layout, err := h.layoutService.UpdateLayout(c.Request.Context(), tenantID, actorFrom(c), id, req)
	if err != nil {
		respondErr(c, err)
		return
	}
	c.JSON(http.StatusOK, response.Success(http.StatusOK, layout))
}

// DeleteLayout removes a layout
// @Summary      Delete layout
// @Tags         layouts
// @Security     BearerAuth
// @Produce      json
// @Param        id   path      string  true  "Layout ID"
// @Success      200  {object}  response.Response
// @Failure      404  {object}  response.Response
// @Router       /api/layouts/{id} [delete]
func (h *LayoutHandler) DeleteLayout(c *gin.Context) {
	tenantID, ok := requireTenant(c)
	if !ok {
		return
	}
	id, ok := parseID(c, "id")
	if !ok {
		return
	}
	if err := h.layoutService.DeleteLayout(c.Request.Context(), tenantID, actorFrom(c), id); err != nil {
		respondErr(c, err)
		return
	}
	c.JSON(http.StatusOK, response.Success(http.StatusOK, gin.H{"message": "layout deleted"}))
}

// AddSection appends a new section to the layout
// @Summary      Add section
// @Tags         layouts
// @Security     BearerAuth
// @Accept       json
// @Produce      json
// @Param        id       path      string                     true  "Layout ID"
// @Param        payload  body      service.AddSectionRequest  true  "Section payload"
// @Success      200      {object}  response.Response
// @Failure      400      {object}  response.Response
// @Router       /api/layouts/{id}/sections [post]
func (h *LayoutHandler) AddSection(c *gin.Context) {
	tenantID, ok := requireTenant(c)
	if !ok {
		return
	}
	id, ok := parseID(c, "id")
	if !ok {
		return
	}
	var req service.AddSectionRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, response.Error(http.StatusBadRequest, "Invalid request payload: "+err.Error()))
		return
	}

	layout, err := h.layoutService.AddSection(c.Request.Context(), tenantID, actorFrom(c), id, req)
	if err != nil {
		respondErr(c, err)
		return
	}
	c.JSON(http.StatusOK, response.Success(http.StatusOK, layout))
}

// DeleteSection removes a section and its field placements
// @Summary      Delete section
// @Tags         layouts
// @Security     BearerAuth
// @Produce      json
// @Param        id          path      string  true  "Layout ID"
// @Param        section_id  path      string  true  "Section ID"
// @Success      200         {object}  response.Response
// @Failure      404         {object}  response.Response
// @Router       /api/layouts/{id}/sections/{section_id} [delete]
func (h *LayoutHandler) DeleteSection(c *gin.Context) {
	tenantID, ok := requireTenant(c)
	if !ok {
		return
	}
	id, ok := parseID(c, "id")
	if !ok {
		return
	}

	layout, err := h.layoutService.DeleteSection(c.Request.Context(), tenantID, actorFrom(c), id, c.Param("section_id"))
	if err != nil {
		respondErr(c, err)
		return
	}
	c.JSON(http.StatusOK, response.Success(http.StatusOK, layout))
}

// ReorderSections applies a new section order
// @Summary      Reorder sections
// @Tags         layouts
// @Security     BearerAuth
// @Accept       json
// @Produce      json
// @Param        id       path      string                          true  "Layout ID"
// @Param        payload  body      service.ReorderSectionsRequest  true  "Ordered section ids"
// @Success      200      {object}  response.Response
// @Failure      400      {object}  response.Response
// @Router       /api/layouts/{id}/sections/reorder [post]
func (h *LayoutHandler) ReorderSections(c *gin.Context) {
	tenantID, ok := requireTenant(c)
	if !ok {
		return
	}
	id, ok := parseID(c, "id")
	if !ok {
		return
	}
	var req service.ReorderSectionsRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, response.Error(http.StatusBadRequest, "Invalid request payload: "+err.Error()))
		return
	}

	layout, err := h.layoutService.ReorderSections(c.Request.Context(), tenantID, actorFrom(c), id, req)
	if err != nil {
		respondErr(c, err)
		return
	}
	c.JSON(http.StatusOK, response.Success(http.StatusOK, layout))
}

// AddFieldToSection places a catalog field into a section. A field may
// appear at most once across the whole layout.
// @Summary      Add field to section
// @Tags         layouts
// @Security     BearerAuth
// @Accept       json
// @Produce      json
// @Param        id       path      string                   true  "Layout ID"
// @Param        payload  body      service.AddFieldRequest  true  "Placement payload"
// @Success      200      {object}  response.Response
// @Failure      400      {object}  response.Response
// @Router       /api/layouts/{id}/fields [post]
func (h *LayoutHandler) AddFieldToSection(c *gin.Context) {
	tenantID, ok := requireTenant(c)
	if !ok {
		return
	}
	id, ok := parseID(c, "id")
	if !ok {
		return
	}
	var req service.AddFieldRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, response.Error(http.StatusBadRequest, "Invalid request payload: "+err.Error()))
		return
	}

	layout, err := h.layoutService.AddFieldToSection(c.Request.Context(), tenantID, actorFrom(c), id, req)
	if err != nil {
		respondErr(c, err)
		return
	}
	c.JSON(http.StatusOK, response.Success(http.StatusOK, layout))
}

// SetDefault promotes a layout to the surface default. When another default
// exists the call fails with 409 unless confirm_replace is set.
// @Summary      Set default layout
// @Tags         layouts
// @Security     BearerAuth
// @Accept       json
// @Produce      json
// @Param        id       path      string                     true  "Layout ID"
// @Param        payload  body      service.SetDefaultRequest  true  "Confirmation payload"
// @Success      200      {object}  response.Response
// @Failure      409      {object}  response.Response
// @Router       /api/layouts/{id}/default [post]
func (h *LayoutHandler) SetDefault(c *gin.Context) {
	tenantID, ok := requireTenant(c)
	if !ok {
		return
	}
	id, ok := parseID(c, "id")
	if !ok {
		return
	}
	var req service.SetDefaultRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, response.Error(http.StatusBadRequest, "Invalid request payload: "+err.Error()))
		return
	}

	layout, err := h.layoutService.SetDefault(c.Request.Context(), tenantID, actorFrom(c), id, req)
	if err != nil {
		respondErr(c, err)
		return
	}
	c.JSON(http.StatusOK, response.Success(http.StatusOK, layout))
}
