package controller

import (
	"academician_hub_backend/internal/util"
	"time"

	"github.com/gin-gonic/gin"
)

type HealthController struct {
	startTime time.Time
}

func NewHealthController() *HealthController {
	return &HealthController{startTime: time.Now()}
}

// @Summary 健康检查
// @Tags 系统模块
// @Produce json
// @Success 200 {object} util.Response
// @Router /api/health [get]
func (c *HealthController) Health(ctx *gin.Context) {
	util.Success(ctx, gin.H{
		"status": "ok",
		"uptime": time.Since(c.startTime).String(),
	})
}
