package handler

import (
	"net/http"

	"agenthub/internal/middleware"
	"agenthub/internal/repository"
	"agenthub/internal/service"
	"agenthub/pkg/pagination"
	"agenthub/pkg/response"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

type IncidentHandler struct {
	incidentService service.IncidentService
}

func NewIncidentHandler(incidentService service.IncidentService) *IncidentHandler {
	return &IncidentHandler{incidentService: incidentService}
}

func (h *IncidentHandler) RegisterRoutes(router *gin.RouterGroup) {
	incidents := router.Group("/api/incidents")
	{
		incidents.GET("", middleware.RequirePermission("incidents.view"), h.ListIncidents)
		incidents.POST("", middleware.RequirePermission("incidents.edit"), h.CreateIncident)
		incidents.GET("/:id", middleware.RequirePermission("incidents.view"), h.GetIncident)
		incidents.PUT("/:id", middleware.RequirePermission("incidents.edit"), h.UpdateIncident)
	}
}

// ListIncidents returns paginated security incidents with optional filters
// @Summary      List incidents
// @Tags         incidents
// @Security     BearerAuth
// @Produce      json
// @Param        page      query     int     false  "Page number (default: 1)"
// @Param        limit     query     int     false  "Items per page (default: 20)"
// @Param        agent_id  query     string  false  "Filter by agent"
// @Param        status    query     string  false  "Filter by status"
// @Param        severity  query     string  false  "Filter by severity"
// @Param        cve_id    query     string  false  "Filter by CVE id"
// @Success      200       {object}  response.Response
// @Router       /api/incidents [get]
func (h *IncidentHandler) ListIncidents(c *gin.Context) {
	tenantID, ok := requireTenant(c)
	if !ok {
		return
	}
	p := pagination.Parse(c)
	filter := repository.IncidentFilter{
		Status:   c.Query("status"),
		Severity: c.Query("severity"),
		CveID:    c.Query("cve_id"),
	}
	if raw := c.Query("agent_id"); raw != "" {
		agentID, err := uuid.Parse(raw)
		if err != nil {
			c.JSON(http.StatusBadRequest, response.Error(http.StatusBadRequest, "Invalid agent_id parameter"))
			return
		}
		filter.AgentID = &agentID
	}

	incidents, total, err := h.incidentService.List(c.Request.Context(), tenantID, filter, p)
	if err != nil {
		respondErr(c, err)
		return
	}
	c.JSON(http.StatusOK, response.Paginated(http.StatusOK, incidents, p.Page, p.Limit, total))
}

// CreateIncident reports a CVE or security event against an agent
// @Summary      Report incident
// @Tags         incidents
// @Security     BearerAuth
// @Accept       json
// @Produce      json
// @Param        payload  body      service.CreateIncidentRequest  true  "Incident payload"
// @Success      201      {object}  response.Response
// @Failure      400      {object}  response.Response
// @Router       /api/incidents [post]
func (h *IncidentHandler) CreateIncident(c *gin.Context) {
	tenantID, ok := requireTenant(c)
	if !ok {
		return
	}
	var req service.CreateIncidentRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, response.Error(http.StatusBadRequest, "Invalid request payload: "+err.Error()))
		return
	}

	incident, err := h.incidentService.Create(c.Request.Context(), tenantID, actorFrom(c), req)
	if err != nil {
		respondErr(c, err)
		return
	}
	c.JSON(http.StatusCreated, response.Success(http.StatusCreated, incident))
}

// GetIncident returns one incident
// @Summary      Get incident
// @Tags         incidents
// @Security     BearerAuth
// @Produce      json
// @Param        id   path      string  true  "Incident ID"
// @Success      200  {object}  response.Response
// @Failure      404  {object}  response.Response
// @Router       /api/incidents/{id} [get]
func (h *IncidentHandler) GetIncident(c *gin.Context) {
	tenantID, ok := requireTenant(c)
	if !ok {
		return
	}
	id, ok := parseID(c, "id")
	if !ok {
		return
	}
	incident, err := h.incidentService.Get(c.Request.Context(), tenantID, id)
	if err != nil {
		respondErr(c, err)
		return
	}
	c.JSON(http.StatusOK, response.Success(http.StatusOK, incident))
}

// UpdateIncident edits an incident; score changes re-derive severity
// @Summary      Update incident
// @Tags         incidents
// @Security     BearerAuth
// @Accept       json
// @Produce      json
// @Param        id       path      string                         true  "Incident ID"
// @Param        payload  body      service.UpdateIncidentRequest  true  "Update payload"
// @Success      200      {object}  response.Response
// @Failure      400      {object}  response.Response
// @Router       /api/incidents/{id} [put]
func (h *IncidentHandler) UpdateIncident(c *gin.Context) {
	tenantID, ok := requireTenant(c)
	if !ok {
		return
	}
	id, ok := parseID(c, "id")
	if !ok {
		return
	}
	var req service.UpdateIncidentRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, response.Error(http.StatusBadRequest, "Invalid request payload: "+err.Error()))
		return
	}

	incident, err := h.incidentService.Update(c.Request.Context(), tenantID, actorFrom(c), id, req)
	if err != nil {
		respondErr(c, err)
		return
	}
	c.JSON(http.StatusOK, response.Success(http.StatusOK, incident))
}
