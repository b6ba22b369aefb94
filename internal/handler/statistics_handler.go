package handler

import (
	"net/http"

	"agenthub/internal/middleware"
	"agenthub/internal/service"
	"agenthub/pkg/response"

	"github.com/gin-gonic/gin"
)

type StatisticsHandler struct {
	statsService service.StatisticsService
}

func NewStatisticsHandler(statsService service.StatisticsService) *StatisticsHandler {
	return &StatisticsHandler{statsService: statsService}
}

func (h *StatisticsHandler) RegisterRoutes(router *gin.RouterGroup) {
	stats := router.Group("/api/statistics")
	{
		stats.GET("/dashboard", middleware.RequirePermission("nav.dashboard"), h.Dashboard)
	}
}

// Dashboard returns the aggregate counts behind the landing dashboard
// @Summary      Dashboard statistics
// @Tags         statistics
// @Security     BearerAuth
// @Produce      json
// @Success      200  {object}  response.Response
// @Router       /api/statistics/dashboard [get]
func (h *StatisticsHandler) Dashboard(c *gin.Context) {
	tenantID, ok := requireTenant(c)
	if !ok {
		return
	}
	stats, err := h.statsService.Dashboard(c.Request.Context(), tenantID)
	if err != nil {
		respondErr(c, err)
		return
	}
	c.JSON(http.StatusOK, response.Success(http.StatusOK, stats))
}
