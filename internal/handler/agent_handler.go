package handler

import (
	"net/http"

	"agenthub/internal/middleware"
	"agenthub/internal/repository"
	"agenthub/internal/service"
	"agenthub/pkg/pagination"
	"agenthub/pkg/response"

	"github.com/gin-gonic/gin"
)

type AgentHandler struct {
	agentService service.AgentService
}

func NewAgentHandler(agentService service.AgentService) *AgentHandler {
	return &AgentHandler{agentService: agentService}
}

func (h *AgentHandler) RegisterRoutes(router *gin.RouterGroup) {
	agents := router.Group("/api/agents")
	{
		agents.GET("", middleware.RequirePermission("agents.view"), h.ListAgents)
		agents.POST("", middleware.RequirePermission("agents.create"), h.CreateAgent)
		agents.GET("/:id", middleware.RequirePermission("agents.view"), h.GetAgent)
		agents.PUT("/:id", middleware.RequirePermission("agents.edit"), h.UpdateAgent)
		agents.DELETE("/:id", middleware.RequirePermission("agents.delete"), h.DeleteAgent)
		agents.POST("/:id/submit", middleware.RequirePermission("agents.edit"), h.SubmitAgent)
		agents.POST("/:id/suspend", middleware.RequirePermission("agents.approve"), h.SuspendAgent)
	}
}

// ListAgents returns paginated agents with optional filters
// @Summary      List agents
// @Tags         agents
// @Security     BearerAuth
// @Produce      json
// @Param        page    query     int     false  "Page number (default: 1)"
// @Param        limit   query     int     false  "Items per page (default: 20)"
// @Param        status  query     string  false  "Filter by status"
// @Param        type    query     string  false  "Filter by agent type"
// @Param        search  query     string  false  "Search by name or vendor"
// @Success      200     {object}  response.Response
// @Router       /api/agents [get]
func (h *AgentHandler) ListAgents(c *gin.Context) {
	tenantID, ok := requireTenant(c)
	if !ok {
		return
	}
	p := pagination.Parse(c)
	filter := repository.AgentFilter{
		Status:    c.Query("status"),
		AgentType: c.Query("type"),
		Search:    c.Query("search"),
	}

	agents, total, err := h.agentService.List(c.Request.Context(), tenantID, filter, p)
	if err != nil {
		respondErr(c, err)
		return
	}
	c.JSON(http.StatusOK, response.Paginated(http.StatusOK, agents, p.Page, p.Limit, total))
}

// CreateAgent registers a new agent in DRAFT status
// @Summary      Register agent
// @Tags         agents
// @Security     BearerAuth
// @Accept       json
// @Produce      json
// @Param        payload  body      service.CreateAgentRequest  true  "Agent payload"
// @Success      201      {object}  response.Response
// @Failure      400      {object}  response.Response
// @Router       /api/agents [post]
func (h *AgentHandler) CreateAgent(c *gin.Context) {
	tenantID, ok := requireTenant(c)
	if !ok {
		return
	}
	var req service.CreateAgentRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, response.Error(http.StatusBadRequest, "Invalid request payload: "+err.Error()))
		return
	}

	agent, err := h.agentService.Create(c.Request.Context(), tenantID, actorFrom(c), req)
	if err != nil {
		respondErr(c, err)
		return
	}
	c.JSON(http.StatusCreated, response.Success(http.StatusCreated, agent))
}

// GetAgent returns one agent
// @Summary      Get agent
// @Tags         agents
// @Security     BearerAuth
// @Produce      json
// @Param        id   path      string  true  "Agent ID"
// @Success      200  {object}  response.Response
// @Failure      404  {object}  response.Response
// @Router       /api/agents/{id} [get]
func (h *AgentHandler) GetAgent(c *gin.Context) {
	tenantID, ok := requireTenant(c)
	if !ok {
		return
	}
	id, ok := parseID(c, "id")
	if !ok {
		return
	}

	agent, err := h.agentService.Get(c.Request.Context(), tenantID, id)
	if err != nil {
		respondErr(c, err)
		return
	}
	c.JSON(http.StatusOK, response.Success(http.StatusOK, agent))
}

// UpdateAgent updates a draft or submitted agent
// @Summary      Update agent
// @Tags         agents
// @Security     BearerAuth
// @Accept       json
// @Produce      json
// @Param        id       path      string                      true  "Agent ID"
// @Param        payload  body      service.UpdateAgentRequest  true  "Update payload"
// @Success      200      {object}  response.Response
// @Failure      409      {object}  response.Response
// @Router       /api/agents/{id} [put]
func (h *AgentHandler) UpdateAgent(c *gin.Context) {
	tenantID, ok := requireTenant(c)
	if !ok {
		return
	}
	id, ok := parseID(c, "id")
	if !ok {
		return
	}
	var req service.UpdateAgentRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, response.Error(http.StatusBadRequest, "Invalid request payload: "+err.Error()))
		return
	}

	agent, err := h.agentService.Update(c.Request.Context(), tenantID, actorFrom(c), id, req)
	if err != nil {
		respondErr(c, err)
		return
	}
	c.JSON(http.StatusOK, response.Success(http.StatusOK, agent))
}

// DeleteAgent removes an agent not currently under assessment
// @Summary      Delete agent
// @Tags         agents
// @Security     BearerAuth
// @Produce      json
// @Param        id   path      string  true  "Agent ID"
// @Success      200  {object}  response.Response
// @Failure      409  {object}  response.Response
// @Router       /api/agents/{id} [delete]
func (h *AgentHandler) DeleteAgent(c *gin.Context) {
	tenantID, ok := requireTenant(c)
	if !ok {
		return
	}
	id, ok := parseID(c, "id")
	if !ok {
		return
	}

	if err := h.agentService.Delete(c.Request.Context(), tenantID, actorFrom(c), id); err != nil {
		respondErr(c, err)
		return
	}
	c.JSON(http.StatusOK, response.Success(http.StatusOK, gin.H{"message": "agent deleted"}))
}

// SubmitAgent moves a draft agent into SUBMITTED
// @Summary      Submit agent for review
// @Tags         agents
// @Security     BearerAuth
// @Produce      json
// @Param        id   path      string  true  "Agent ID"
// @Success      200  {object}  response.Response
// @Failure      409  {object}  response.Response
// @Router       /api/agents/{id}/submit [post]
func (h *AgentHandler) SubmitAgent(c *gin.Context) {
	tenantID, ok := requireTenant(c)
	if !ok {
		return
	}
	id, ok := parseID(c, "id")
	if !ok {
		return
	}

	agent, err := h.agentService.Submit(c.Request.Context(), tenantID, actorFrom(c), id)
	if err != nil {
		respondErr(c, err)
		return
	}
	c.JSON(http.StatusOK, response.Success(http.StatusOK, agent))
}

// SuspendAgent takes an approved agent out of service
// @Summary      Suspend agent
// @Tags         agents
// @Security     BearerAuth
// @Produce      json
// @Param        id   path      string  true  "Agent ID"
// @Success      200  {object}  response.Response
// @Failure      409  {object}  response.Response
// @Router       /api/agents/{id}/suspend [post]
func (h *AgentHandler) SuspendAgent(c *gin.Context) {
	tenantID, ok := requireTenant(c)
	if !ok {
		return
	}
	id, ok := parseID(c, "id")
	if !ok {
		return
	}

	agent, err := h.agentService.Suspend(c.Request.Context(), tenantID, actorFrom(c), id)
	if err != nil {
		respondErr(c, err)
		return
	}
	c.JSON(http.StatusOK, response.Success(http.StatusOK, agent))
}
