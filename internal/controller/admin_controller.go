package controller

import (
	"academician_hub_backend/internal/service"
	"academician_hub_backend/internal/util"

	"github.com/gin-gonic/gin"
)

type AdminController struct {
	Reward       *service.RewardService
	UnitProgress *service.UnitProgressService
}

func NewAdminController(reward *service.RewardService, unitProgress *service.UnitProgressService) *AdminController {
	return &AdminController{
		Reward:       reward,
		UnitProgress: unitProgress,
	}
}

// @Summary 手动回放奖励补偿队列
// @Description 定时任务之外的人工触发入口，排障用
// @Tags 管理模块
// @Produce json
// @Security BearerAuth
// @Success 200 {object} util.Response
// @Router /api/admin/rewards/replay [post]
func (c *AdminController) ReplayPendingRewards(ctx *gin.Context) {
	if err := c.Reward.ProcessPendingRewards(); err != nil {
		util.RenderEngineError(ctx, err)
		return
	}
	util.Success(ctx, gin.H{"replayed": true})
}

// @Summary 查看任意用户的进度台账
// @Description 管理员支持工具，按课程与难度返回原始记录
// @Tags 管理模块
// @Produce json
// @Security BearerAuth
// @Param userId path int true "用户ID"
// @Param courseId path int true "课程ID"
// @Param level path string true "难度"
// @Success 200 {object} util.Response
// @Router /api/admin/users/{userId}/progress/{courseId}/{level} [get]
func (c *AdminController) GetUserProgress(ctx *gin.Context) {
	userID, ok := parseUintParam(ctx, "userId")
	if !ok {
		return
	}
	courseID, ok := parseUintParam(ctx, "courseId")
	if !ok {
		return
	}

	recs, err := c.UnitProgress.RawProgress(userID, courseID, ctx.Param("level"))
	if err != nil {
		util.RenderEngineError(ctx, err)
		return
	}

	util.Success(ctx, recs)
}
