package handler

import (
	"context"
	"net/http"

	"agenthub/internal/middleware"
	"agenthub/internal/model"
	"agenthub/internal/service"
	"agenthub/pkg/pagination"
	"agenthub/pkg/response"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

type AssessmentHandler struct {
	assessmentService service.AssessmentService
}

func NewAssessmentHandler(assessmentService service.AssessmentService) *AssessmentHandler {
	return &AssessmentHandler{assessmentService: assessmentService}
}

func (h *AssessmentHandler) RegisterRoutes(router *gin.RouterGroup) {
	assessments := router.Group("/api/assessments")
	{
		assessments.GET("", middleware.RequirePermission("assessments.view"), h.ListAssignments)
		assessments.POST("", middleware.RequirePermission("assessments.edit"), h.StartAssessment)
		assessments.GET("/questions", middleware.RequirePermission("assessments.view"), h.ListQuestions)
		assessments.POST("/questions", middleware.RequirePermission("assessments.edit"), h.CreateQuestion)
		assessments.PUT("/questions/:id", middleware.RequirePermission("assessments.edit"), h.UpdateQuestion)
		assessments.GET("/:id", middleware.RequirePermission("assessments.view"), h.GetAssignment)
		assessments.PUT("/:id/responses/:question_id", middleware.RequirePermission("assessments.create"), h.SubmitResponse)
		assessments.PUT("/:id/reviews/:question_id", middleware.RequirePermission("assessments.edit"), h.ReviewQuestion)
		assessments.POST("/:id/advance", middleware.RequirePermission("assessments.edit"), h.AdvanceStep)
		assessments.POST("/:id/approve", middleware.RequirePermission("agents.approve"), h.Approve)
		assessments.POST("/:id/reject", middleware.RequirePermission("agents.reject"), h.Reject)
		assessments.POST("/:id/cancel", middleware.RequirePermission("assessments.edit"), h.Cancel)
	}
}

// ListAssignments returns paginated assessment runs
// @Summary      List assessments
// @Tags         assessments
// @Security     BearerAuth
// @Produce      json
// @Param        page    query     int     false  "Page number (default: 1)"
// @Param        limit   query     int     false  "Items per page (default: 20)"
// @Param        status  query     string  false  "Filter by status"
// @Success      200     {object}  response.Response
// @Router       /api/assessments [get]
func (h *AssessmentHandler) ListAssignments(c *gin.Context) {
	tenantID, ok := requireTenant(c)
	if !ok {
		return
	}
	p := pagination.Parse(c)

	list, total, err := h.assessmentService.ListAssignments(c.Request.Context(), tenantID, c.Query("status"), p)
	if err != nil {
		respondErr(c, err)
		return
	}
	c.JSON(http.StatusOK, response.Paginated(http.StatusOK, list, p.Page, p.Limit, total))
}

// StartAssessment opens a workflow run for an agent
// @Summary      Start assessment
// @Tags         assessments
// @Security     BearerAuth
// @Accept       json
// @Produce      json
// @Param        payload  body      service.StartAssessmentRequest  true  "Agent and optional template"
// @Success      201      {object}  response.Response
// @Failure      409      {object}  response.Response
// @Router       /api/assessments [post]
func (h *AssessmentHandler) StartAssessment(c *gin.Context) {
	tenantID, ok := requireTenant(c)
	if !ok {
		return
	}
	var req service.StartAssessmentRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, response.Error(http.StatusBadRequest, "Invalid request payload: "+err.Error()))
		return
	}

	assignment, err := h.assessmentService.StartAssessment(c.Request.Context(), tenantID, actorFrom(c), req)
	if err != nil {
		respondErr(c, err)
		return
	}
	c.JSON(http.StatusCreated, response.Success(http.StatusCreated, assignment))
}

// ListQuestions returns the active question catalog
// @Summary      List assessment questions
// @Tags         assessments
// @Security     BearerAuth
// @Produce      json
// @Param        category  query     string  false  "Filter by category"
// @Success      200       {object}  response.Response
// @Router       /api/assessments/questions [get]
func (h *AssessmentHandler) ListQuestions(c *gin.Context) {
	tenantID, ok := requireTenant(c)
	if !ok {
		return
	}
	questions, err := h.assessmentService.ListQuestions(c.Request.Context(), tenantID, c.Query("category"))
	if err != nil {
		respondErr(c, err)
		return
	}
	c.JSON(http.StatusOK, response.Success(http.StatusOK, questions))
}

// CreateQuestion adds a question to the assessment catalog
// @Summary      Create assessment question
// @Tags         assessments
// @Security     BearerAuth
// @Accept       json
// @Produce      json
// @Param        payload  body      service.CreateQuestionRequest  true  "Question"
// @Success      201      {object}  response.Response
// @Failure      400      {object}  response.Response
// @Router       /api/assessments/questions [post]
func (h *AssessmentHandler) CreateQuestion(c *gin.Context) {
	tenantID, ok := requireTenant(c)
	if !ok {
		return
	}
	var req service.CreateQuestionRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, response.Error(http.StatusBadRequest, "Invalid request payload: "+err.Error()))
		return
	}

	question, err := h.assessmentService.CreateQuestion(c.Request.Context(), tenantID, actorFrom(c), req)
	if err != nil {
		respondErr(c, err)
		return
	}
	c.JSON(http.StatusCreated, response.Success(http.StatusCreated, question))
}

// UpdateQuestion edits a catalog question
// @Summary      Update assessment question
// @Tags         assessments
// @Security     BearerAuth
// @Accept       json
// @Produce      json
// @Param        id       path      string                         true  "Question ID"
// @Param        payload  body      service.UpdateQuestionRequest  true  "Changes"
// @Success      200      {object}  response.Response
// @Failure      404      {object}  response.Response
// @Router       /api/assessments/questions/{id} [put]
func (h *AssessmentHandler) UpdateQuestion(c *gin.Context) {
	tenantID, ok := requireTenant(c)
	if !ok {
		return
	}
	questionID, ok := parseID(c, "id")
	if !ok {
		return
	}
	var req service.UpdateQuestionRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, response.Error(http.StatusBadRequest, "Invalid request payload: "+err.Error()))
		return
	}

	question, err := h.assessmentService.UpdateQuestion(c.Request.Context(), tenantID, actorFrom(c), questionID, req)
	if err != nil {
		respondErr(c, err)
		return
	}
	c.JSON(http.StatusOK, response.Success(http.StatusOK, question))
}

// GetAssignment returns one run with its responses and reviews
// @Summary      Get assessment
// @Tags         assessments
// @Security     BearerAuth
// @Produce      json
// @Param        id   path      string  true  "Assessment ID"
// @Success      200  {object}  response.Response
// @Failure      404  {object}  response.Response
// @Router       /api/assessments/{id} [get]
func (h *AssessmentHandler) GetAssignment(c *gin.Context) {
	tenantID, ok := requireTenant(c)
	if !ok {
		return
	}
	id, ok := parseID(c, "id")
	if !ok {
		return
	}
	detail, err := h.assessmentService.GetAssignment(c.Request.Context(), tenantID, id)
	if err != nil {
		respondErr(c, err)
		return
	}
	c.JSON(http.StatusOK, response.Success(http.StatusOK, detail))
}

// SubmitResponse saves the vendor's answer for one question
// @Summary      Submit response
// @Tags         assessments
// @Security     BearerAuth
// @Accept       json
// @Produce      json
// @Param        id           path      string                         true  "Assessment ID"
// @Param        question_id  path      string                         true  "Question ID"
// @Param        payload      body      service.SubmitResponseRequest  true  "Answer payload"
// @Success      200          {object}  response.Response
// @Failure      409          {object}  response.Response
// @Router       /api/assessments/{id}/responses/{question_id} [put]
func (h *AssessmentHandler) SubmitResponse(c *gin.Context) {
	tenantID, ok := requireTenant(c)
	if !ok {
		return
	}
	id, ok := parseID(c, "id")
	if !ok {
		return
	}
	questionID, ok := parseID(c, "question_id")
	if !ok {
		return
	}
	var req service.SubmitResponseRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, response.Error(http.StatusBadRequest, "Invalid request payload: "+err.Error()))
		return
	}

	resp, err := h.assessmentService.SubmitResponse(c.Request.Context(), tenantID, actorFrom(c), id, questionID, req)
	if err != nil {
		respondErr(c, err)
		return
	}
	c.JSON(http.StatusOK, response.Success(http.StatusOK, resp))
}

// ReviewQuestion records the reviewer's verdict for one question. fail and
// in_progress verdicts require a comment.
// @Summary      Review question
// @Tags         assessments
// @Security     BearerAuth
// @Accept       json
// @Produce      json
// @Param        id           path      string                         true  "Assessment ID"
// @Param        question_id  path      string                         true  "Question ID"
// @Param        payload      body      service.ReviewQuestionRequest  true  "Verdict payload"
// @Success      200          {object}  response.Response
// @Failure      409          {object}  response.Response
// @Router       /api/assessments/{id}/reviews/{question_id} [put]
func (h *AssessmentHandler) ReviewQuestion(c *gin.Context) {
	tenantID, ok := requireTenant(c)
	if !ok {
		return
	}
	id, ok := parseID(c, "id")
	if !ok {
		return
	}
	questionID, ok := parseID(c, "question_id")
	if !ok {
		return
	}
	var req service.ReviewQuestionRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, response.Error(http.StatusBadRequest, "Invalid request payload: "+err.Error()))
		return
	}

	review, err := h.assessmentService.ReviewQuestion(c.Request.Context(), tenantID, actorFrom(c), id, questionID, req)
	if err != nil {
		respondErr(c, err)
		return
	}
	c.JSON(http.StatusOK, response.Success(http.StatusOK, review))
}

// AdvanceStep moves a run to its next workflow step
// @Summary      Advance assessment step
// @Tags         assessments
// @Security     BearerAuth
// @Produce      json
// @Param        id   path      string  true  "Assessment ID"
// @Success      200  {object}  response.Response
// @Failure      409  {object}  response.Response
// @Router       /api/assessments/{id}/advance [post]
func (h *AssessmentHandler) AdvanceStep(c *gin.Context) {
	tenantID, ok := requireTenant(c)
	if !ok {
		return
	}
	id, ok := parseID(c, "id")
	if !ok {
		return
	}
	assignment, err := h.assessmentService.AdvanceStep(c.Request.Context(), tenantID, actorFrom(c), id)
	if err != nil {
		respondErr(c, err)
		return
	}
	c.JSON(http.StatusOK, response.Success(http.StatusOK, assignment))
}

// Approve closes a run as approved and marks the agent APPROVED
// @Summary      Approve assessment
// @Tags         assessments
// @Security     BearerAuth
// @Accept       json
// @Produce      json
// @Param        id       path      string                   true  "Assessment ID"
// @Param        payload  body      service.DecisionRequest  true  "Optional note"
// @Success      200      {object}  response.Response
// @Failure      409      {object}  response.Response
// @Router       /api/assessments/{id}/approve [post]
func (h *AssessmentHandler) Approve(c *gin.Context) {
	h.decide(c, h.assessmentService.Approve)
}

// Reject closes a run as rejected; a reason is mandatory
// @Summary      Reject assessment
// @Tags         assessments
// @Security     BearerAuth
// @Accept       json
// @Produce      json
// @Param        id       path      string                   true  "Assessment ID"
// @Param        payload  body      service.DecisionRequest  true  "Rejection reason"
// @Success      200      {object}  response.Response
// @Failure      400      {object}  response.Response
// @Router       /api/assessments/{id}/reject [post]
func (h *AssessmentHandler) Reject(c *gin.Context) {
	h.decide(c, h.assessmentService.Reject)
}

func (h *AssessmentHandler) decide(c *gin.Context, fn func(ctx context.Context, tenantID uuid.UUID, actorID *uuid.UUID, id uuid.UUID, req service.DecisionRequest) (*model.AgentAssignment, error)) {
	tenantID, ok := requireTenant(c)
	if !ok {
		return
	}
	id, ok := parseID(c, "id")
	if !ok {
		return
	}
	var req service.DecisionRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, response.Error(http.StatusBadRequest, "Invalid request payload: "+err.Error()))
		return
	}

	assignment, err := fn(c.Request.Context(), tenantID, actorFrom(c), id, req)
	if err != nil {
		respondErr(c, err)
		return
	}
	c.JSON(http.StatusOK, response.Success(http.StatusOK, assignment))
}

// Cancel aborts a run and returns the agent to DRAFT
// @Summary      Cancel assessment
// @Tags         assessments
// @Security     BearerAuth
// @Produce      json
// @Param        id   path      string  true  "Assessment ID"
// @Success      200  {object}  response.Response
// @Failure      409  {object}  response.Response
// @Router       /api/assessments/{id}/cancel [post]
func (h *AssessmentHandler) Cancel(c *gin.Context) {
	tenantID, ok := requireTenant(c)
	if !ok {
		return
	}
	id, ok := parseID(c, "id")
	if !ok {
		return
	}
	assignment, err := h.assessmentService.Cancel(c.Request.Context(), tenantID, actorFrom(c), id)
	if err != nil {
		respondErr(c, err)
		return
	}
	c.JSON(http.StatusOK, response.Success(http.StatusOK, assignment))
}
