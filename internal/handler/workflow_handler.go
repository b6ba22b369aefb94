package handler

import (
	"net/http"
	"strconv"

	"agenthub/internal/middleware"
	"agenthub/internal/service"
	"agenthub/pkg/response"

	"github.com/gin-gonic/gin"
)

type WorkflowHandler struct {
	workflowService service.WorkflowService
}

func NewWorkflowHandler(workflowService service.WorkflowService) *WorkflowHandler {
	return &WorkflowHandler{workflowService: workflowService}
}

func (h *WorkflowHandler) RegisterRoutes(router *gin.RouterGroup) {
	workflows := router.Group("/api/workflows")
	{
		workflows.GET("", middleware.RequirePermission("workflows.view"), h.ListWorkflows)
		workflows.POST("", middleware.RequirePermission("workflows.manage_all"), h.CreateWorkflow)
		workflows.GET("/:id", middleware.RequirePermission("workflows.view"), h.GetWorkflow)
		workflows.PUT("/:id", middleware.RequirePermission("workflows.manage_all"), h.UpdateWorkflow)
		workflows.DELETE("/:id", middleware.RequirePermission("workflows.manage_all"), h.DeleteWorkflow)
		workflows.POST("/:id/steps/reorder", middleware.RequirePermission("workflows.manage_all"), h.ReorderStep)
		workflows.PUT("/:id/steps/:step_number", middleware.RequirePermission("workflows.manage_all"), h.UpdateStep)
		workflows.POST("/:id/first-step", middleware.RequirePermission("workflows.manage_all"), h.SetFirstStep)
		workflows.GET("/:id/steps/:step_number/assignees", middleware.RequirePermission("workflows.view"), h.ResolveAssignee)
	}

	groups := router.Group("/api/approver-groups")
	{
		groups.GET("", middleware.RequirePermission("workflows.view"), h.ListGroups)
		groups.POST("", middleware.RequirePermission("workflows.manage_all"), h.CreateGroup)
		groups.DELETE("/:id", middleware.RequirePermission("workflows.manage_all"), h.DeleteGroup)
	}
}

// ListWorkflows returns all workflow templates for the tenant
// @Summary      List workflows
// @Tags         workflows
// @Security     BearerAuth
// @Produce      json
// @Success      200  {object}  response.Response
// @Router       /api/workflows [get]
func (h *WorkflowHandler) ListWorkflows(c *gin.Context) {
	tenantID, ok := requireTenant(c)
	if !ok {
		return
	}
	templates, err := h.workflowService.ListWorkflows(c.Request.Context(), tenantID)
	if err != nil {
		respondErr(c, err)
		return
	}
	c.JSON(http.StatusOK, response.Success(http.StatusOK, templates))
}

// CreateWorkflow creates a template with its ordered steps
// @Summary      Create workflow
// @Tags         workflows
// @Security     BearerAuth
// @Accept       json
// @Produce      json
// @Param        payload  body      service.CreateWorkflowRequest  true  "Workflow payload"
// @Success      201      {object}  response.Response
// @Failure      400      {object}  response.Response
// @Router       /api/workflows [post]
func (h *WorkflowHandler) CreateWorkflow(c *gin.Context) {
	tenantID, ok := requireTenant(c)
	if !ok {
		return
	}
	var req service.CreateWorkflowRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, response.Error(http.StatusBadRequest, "Invalid request payload: "+err.Error()))
		return
	}

	template, err := h.workflowService.CreateWorkflow(c.Request.Context(), tenantID, actorFrom(c), req)
	if err != nil {
		respondErr(c, err)
		return
	}
	c.JSON(http.StatusCreated, response.Success(http.StatusCreated, template))
}

// GetWorkflow returns one template with steps in order
// @Summary      Get workflow
// @Tags         workflows
// @Security     BearerAuth
// @Produce      json
// @Param        id   path      string  true  "Workflow ID"
// @Success      200  {object}  response.Response
// @Failure      404  {object}  response.Response
// @Router       /api/workflows/{id} [get]
func (h *WorkflowHandler) GetWorkflow(c *gin.Context) {
	tenantID, ok := requireTenant(c)
	if !ok {
		return
	}
	id, ok := parseID(c, "id")
	if !ok {
		return
	}
	template, err := h.workflowService.GetWorkflow(c.Request.Context(), tenantID, id)
	if err != nil {
		respondErr(c, err)
		return
	}
	c.JSON(http.StatusOK, response.Success(http.StatusOK, template))
}

// UpdateWorkflow updates template metadata
// @Summary      Update workflow
// @Tags         workflows
// @Security     BearerAuth
// @Accept       json
// @Produce      json
// @Param        id       path      string                         true  "Workflow ID"
// @Param        payload  body      service.UpdateWorkflowRequest  true  "Update payload"
// @Success      200      {object}  response.Response
// @Failure      400      {object}  response.Response
// @Router       /api/workflows/{id} [put]
func (h *WorkflowHandler) UpdateWorkflow(c *gin.Context) {
	tenantID, ok := requireTenant(c)
	if !ok {
		return
	}
	id, ok := parseID(c, "id")
	if !ok {
		return
	}
	var req service.UpdateWorkflowRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, response.Error(http.StatusBadRequest, "Invalid request payload: "+err.Error()))
		return
	}

	template, err := h.workflowService.UpdateWorkflow(c.Request.Context(), tenantID, actorFrom(c), id, req)
	if err != nil {
		respondErr(c, err)
		return
	}
	c.JSON(http.StatusOK, response.Success(http.StatusOK, template))
}

// DeleteWorkflow removes a template and its steps
// @Summary      Delete workflow
// @Tags         workflows
// @Security     BearerAuth
// @Produce      json
// @Param        id   path      string  true  "Workflow ID"
// @Success      200  {object}  response.Response
// @Failure      404  {object}  response.Response
// @Router       /api/workflows/{id} [delete]
func (h *WorkflowHandler) DeleteWorkflow(c *gin.Context) {
	tenantID, ok := requireTenant(c)
	if !ok {
		return
	}
	id, ok := parseID(c, "id")
	if !ok {
		return
	}
	if err := h.workflowService.DeleteWorkflow(c.Request.Context(), tenantID, actorFrom(c), id); err != nil {
		respondErr(c, err)
		return
	}
	c.JSON(http.StatusOK, response.Success(http.StatusOK, gin.H{"message": "workflow deleted"}))
}

// ReorderStep moves a step to a new position; remaining steps renumber 1..N
// @Summary      Reorder workflow step
// @Tags         workflows
// @Security     BearerAuth
// @Accept       json
// @Produce      json
// @Param        id       path      string                      true  "Workflow ID"
// @Param        payload  body      service.ReorderStepRequest  true  "From/to positions"
// @Success      200      {object}  response.Response
// @Failure      400      {object}  response.Response
// @Router       /api/workflows/{id}/steps/reorder [post]
func (h *WorkflowHandler) ReorderStep(c *gin.Context) {
	tenantID, ok := requireTenant(c)
	if !ok {
		return
	}
	id, ok := parseID(c, "id")
	if !ok {
		return
	}
	var req service.ReorderStepRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, response.Error(http.StatusBadRequest, "Invalid request payload: "+err.Error()))
		return
	}

	template, err := h.workflowService.ReorderStep(c.Request.Context(), tenantID, actorFrom(c), id, req)
	if err != nil {
		respondErr(c, err)
		return
	}
	c.JSON(http.StatusOK, response.Success(http.StatusOK, template))
}

// UpdateStep replaces one step's definition including its assignment rule
// @Summary      Update workflow step
// @Tags         workflows
// @Security     BearerAuth
// @Accept       json
// @Produce      json
// @Param        id           path      string             true  "Workflow ID"
// @Param        step_number  path      int                true  "Step number"
// @Param        payload      body      service.StepInput  true  "Step payload"
// @Success      200          {object}  response.Response
// @Failure      400          {object}  response.Response
// @Router       /api/workflows/{id}/steps/{step_number} [put]
func (h *WorkflowHandler) UpdateStep(c *gin.Context) {
	tenantID, ok := requireTenant(c)
	if !ok {
		return
	}
	id, ok := parseID(c, "id")
	if !ok {
		return
	}
	stepNumber, err := strconv.Atoi(c.Param("step_number"))
	if err != nil || stepNumber < 1 {
		c.JSON(http.StatusBadRequest, response.Error(http.StatusBadRequest, "Invalid step_number parameter"))
		return
	}
	var req service.StepInput
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, response.Error(http.StatusBadRequest, "Invalid request payload: "+err.Error()))
		return
	}

	template, err := h.workflowService.UpdateStep(c.Request.Context(), tenantID, actorFrom(c), id, stepNumber, req)
	if err != nil {
		respondErr(c, err)
		return
	}
	c.JSON(http.StatusOK, response.Success(http.StatusOK, template))
}

// SetFirstStep flags one step as the entry step without reordering
// @Summary      Set first step
// @Tags         workflows
// @Security     BearerAuth
// @Accept       json
// @Produce      json
// @Param        id       path      string                       true  "Workflow ID"
// @Param        payload  body      service.SetFirstStepRequest  true  "Step number"
// @Success      200      {object}  response.Response
// @Failure      400      {object}  response.Response
// @Router       /api/workflows/{id}/first-step [post]
func (h *WorkflowHandler) SetFirstStep(c *gin.Context) {
	tenantID, ok := requireTenant(c)
	if !ok {
		return
	}
	id, ok := parseID(c, "id")
	if !ok {
		return
	}
	var req service.SetFirstStepRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, response.Error(http.StatusBadRequest, "Invalid request payload: "+err.Error()))
		return
	}

	template, err := h.workflowService.SetFirstStep(c.Request.Context(), tenantID, actorFrom(c), id, req)
	if err != nil {
		respondErr(c, err)
		return
	}
	c.JSON(http.StatusOK, response.Success(http.StatusOK, template))
}

// ResolveAssignee resolves a step's assignment rule into candidate users
// @Summary      Resolve step assignees
// @Tags         workflows
// @Security     BearerAuth
// @Produce      json
// @Param        id           path      string  true  "Workflow ID"
// @Param        step_number  path      int     true  "Step number"
// @Success      200          {object}  response.Response
// @Failure      404          {object}  response.Response
// @Router       /api/workflows/{id}/steps/{step_number}/assignees [get]
func (h *WorkflowHandler) ResolveAssignee(c *gin.Context) {
	tenantID, ok := requireTenant(c)
	if !ok {
		return
	}
	id, ok := parseID(c, "id")
	if !ok {
		return
	}
	stepNumber, err := strconv.Atoi(c.Param("step_number"))
	if err != nil || stepNumber < 1 {
		c.JSON(http.StatusBadRequest, response.Error(http.StatusBadRequest, "Invalid step_number parameter"))
		return
	}

	template, err := h.workflowService.GetWorkflow(c.Request.Context(), tenantID, id)
	if err != nil {
		respondErr(c, err)
		return
	}
	for i := range template.Steps {
		if template.Steps[i].StepNumber == stepNumber {
			assignment, err := h.workflowService.ResolveAssignee(c.Request.Context(), tenantID, &template.Steps[i])
			if err != nil {
				respondErr(c, err)
				return
			}
			c.JSON(http.StatusOK, response.Success(http.StatusOK, assignment))
			return
		}
	}
	c.JSON(http.StatusNotFound, response.Error(http.StatusNotFound, "step not found"))
}

// ListGroups returns the tenant's approver groups with members
// @Summary      List approver groups
// @Tags         workflows
// @Security     BearerAuth
// @Produce      json
// @Success      200  {object}  response.Response
// @Router       /api/approver-groups [get]
func (h *WorkflowHandler) ListGroups(c *gin.Context) {
	tenantID, ok := requireTenant(c)
	if !ok {
		return
	}
	groups, err := h.workflowService.ListGroups(c.Request.Context(), tenantID)
	if err != nil {
		respondErr(c, err)
		return
	}
	c.JSON(http.StatusOK, response.Success(http.StatusOK, groups))
}

// CreateGroup creates an approver group with initial members
// @Summary      Create approver group
// @Tags         workflows
// @Security     BearerAuth
// @Accept       json
// @Produce      json
// @Param        payload  body      service.CreateGroupRequest  true  "Group payload"
// @Success      201      {object}  response.Response
// @Failure      400      {object}  response.Response
// @Router       /api/approver-groups [post]
func (h *WorkflowHandler) CreateGroup(c *gin.Context) {
	tenantID, ok := requireTenant(c)
	if !ok {
		return
	}
	var req service.CreateGroupRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, response.Error(http.StatusBadRequest, "Invalid request payload: "+err.Error()))
		return
	}

	group, err := h.workflowService.CreateGroup(c.Request.Context(), tenantID, req)
	if err != nil {
		respondErr(c, err)
		return
	}
	c.JSON(http.StatusCreated, response.Success(http.StatusCreated, group))
}

// DeleteGroup removes an approver group
// @Summary      Delete approver group
// @Tags         workflows
// @Security     BearerAuth
// @Produce      json
// @Param        id   path      string  true  "Group ID"
// @Success      200  {object}  response.Response
// @Failure      404  {object}  response.Response
// @Router       /api/approver-groups/{id} [delete]
func (h *WorkflowHandler) DeleteGroup(c *gin.Context) {
	tenantID, ok := requireTenant(c)
	if !ok {
		return
	}
	id, ok := parseID(c, "id")
	if !ok {
		return
	}
	if err := h.workflowService.DeleteGroup(c.Request.Context(), tenantID, id); err != nil {
		respondErr(c, err)
		return
	}
	c.JSON(http.StatusOK, response.Success(http.StatusOK, gin.H{"message": "group deleted"}))
}
