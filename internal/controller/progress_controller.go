package controller

import (
	"academician_hub_backend/internal/model"
	"academician_hub_backend/internal/service"
	"academician_hub_backend/internal/util"
	"strconv"

	"github.com/gin-gonic/gin"
)

type ProgressController struct {
	UnitProgress   *service.UnitProgressService
	CourseProgress *service.CourseProgressService
}

func NewProgressController(unitProgress *service.UnitProgressService,
	courseProgress *service.CourseProgressService) *ProgressController {
	return &ProgressController{
		UnitProgress:   unitProgress,
		CourseProgress: courseProgress,
	}
}

func parseUintParam(ctx *gin.Context, name string) (uint, bool) {
	value, err := strconv.ParseUint(ctx.Param(name), 10, 64)
	if err != nil {
		util.BadRequest(ctx, "Invalid "+name)
		return 0, false
	}
	return uint(value), true
}

func parseIntParam(ctx *gin.Context, name string) (int, bool) {
	value, err := strconv.Atoi(ctx.Param(name))
	if err != nil {
		util.BadRequest(ctx, "Invalid "+name)
		return 0, false
	}
	return value, true
}

// @Summary 获取某课程某难度的单元列表
// @Description 按门禁求值返回每个单元的访问状态与完成计数
// @Tags 进度模块
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param courseId path int true "课程ID"
// @Param level path string true "难度"
// @Success 200 {object} util.Response
// @Router /api/progress/{courseId}/{level}/units [get]
func (c *ProgressController) GetUnits(ctx *gin.Context) {
	user := util.GetUserFromContext(ctx)
	if user == nil {
		util.Unauthorized(ctx)
		return
	}

	courseID, ok := parseUintParam(ctx, "courseId")
	if !ok {
		return
	}

	resp, err := c.UnitProgress.ListUnits(user.UserID, courseID, ctx.Param("level"), user.Role == model.Admin)
	if err != nil {
		util.RenderEngineError(ctx, err)
		return
	}

	util.Success(ctx, resp)
}

// @Summary 获取单元详情
// @Description 前置单元未完成且非管理员时返回 403 并带 requiredOrdinal
// @Tags 进度模块
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param courseId path int true "课程ID"
// @Param level path string true "难度"
// @Param ordinal path int true "单元序号"
// @Success 200 {object} util.Response
// @Failure 403 {object} util.Response
// @Router /api/progress/{courseId}/{level}/units/{ordinal} [get]
func (c *ProgressController) GetUnit(ctx *gin.Context) {
	user := util.GetUserFromContext(ctx)
	if user == nil {
		util.Unauthorized(ctx)
		return
	}

	courseID, ok := parseUintParam(ctx, "courseId")
	if !ok {
		return
	}
	ordinal, ok := parseIntParam(ctx, "ordinal")
	if !ok {
		return
	}

	detail, err := c.UnitProgress.GetUnit(user.UserID, courseID, ctx.Param("level"), ordinal, user.Role == model.Admin)
	if err != nil {
		util.RenderEngineError(ctx, err)
		return
	}

	util.Success(ctx, detail)
}

type AssignmentSubmissionRequest struct {
	AssignmentIndex *int `json:"assignmentIndex" binding:"required"`
}

// @Summary 提交作业
// @Description 首交计入完成计数，重交仅刷新时间戳
// @Tags 进度模块
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param courseId path int true "课程ID"
// @Param level path string true "难度"
// @Param ordinal path int true "单元序号"
// @Param submission body AssignmentSubmissionRequest true "作业下标"
// @Success 200 {object} util.Response
// @Router /api/progress/{courseId}/{level}/units/{ordinal}/assignment [post]
func (c *ProgressController) SubmitAssignment(ctx *gin.Context) {
	user := util.GetUserFromContext(ctx)
	if user == nil {
		util.Unauthorized(ctx)
		return
	}

	courseID, ok := parseUintParam(ctx, "courseId")
	if !ok {
		return
	}
	ordinal, ok := parseIntParam(ctx, "ordinal")
	if !ok {
		return
	}

	var req AssignmentSubmissionRequest
	if err := ctx.ShouldBindJSON(&req); err != nil {
		util.BadRequest(ctx, err.Error())
		return
	}

	result, err := c.UnitProgress.SubmitAssignment(user.UserID, courseID, ctx.Param("level"),
		ordinal, *req.AssignmentIndex, user.Role == model.Admin)
	if err != nil {
		util.RenderEngineError(ctx, err)
		return
	}

	util.Success(ctx, result)
}

type QuizSubmissionRequest struct {
	QuizIndex *int `json:"quizIndex" binding:"required"`
	Score     *int `json:"score" binding:"required"`
}

// @Summary 提交测验成绩
// @Description 同一下标重交覆盖成绩，不再增计数；响应含是否刚完成整个单元
// @Tags 进度模块
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param courseId path int true "课程ID"
// @Param level path string true "难度"
// @Param ordinal path int true "单元序号"
// @Param submission body QuizSubmissionRequest true "测验下标与百分制成绩"
// @Success 200 {object} util.Response
// @Router /api/progress/{courseId}/{level}/units/{ordinal}/quiz [post]
func (c *ProgressController) SubmitQuiz(ctx *gin.Context) {
	user := util.GetUserFromContext(ctx)
	if user == nil {
		util.Unauthorized(ctx)
		return
	}

	courseID, ok := parseUintParam(ctx, "courseId")
	if !ok {
		return
	}
	ordinal, ok := parseIntParam(ctx, "ordinal")
	if !ok {
		return
	}

	var req QuizSubmissionRequest
	if err := ctx.ShouldBindJSON(&req); err != nil {
		util.BadRequest(ctx, err.Error())
		return
	}

	result, err := c.UnitProgress.SubmitQuiz(user.UserID, courseID, ctx.Param("level"),
		ordinal, *req.QuizIndex, *req.Score, user.Role == model.Admin)
	if err != nil {
		util.RenderEngineError(ctx, err)
		return
	}

	util.Success(ctx, result)
}

// @Summary 获取某课程某难度的台账原始记录
// @Tags 进度模块
// @Produce json
// @Security BearerAuth
// @Param courseId path int true "课程ID"
// @Param level path string true "难度"
// @Success 200 {object} util.Response
// @Router /api/progress/{courseId}/{level} [get]
func (c *ProgressController) GetRawProgress(ctx *gin.Context) {
	user := util.GetUserFromContext(ctx)
	if user == nil {
		util.Unauthorized(ctx)
		return
	}

	courseID, ok := parseUintParam(ctx, "courseId")
	if !ok {
		return
	}

	recs, err := c.UnitProgress.RawProgress(user.UserID, courseID, ctx.Param("level"))
	if err != nil {
		util.RenderEngineError(ctx, err)
		return
	}

	util.Success(ctx, recs)
}

// @Summary 获取当前用户全部课程进度
// @Tags 进度模块
// @Produce json
// @Security BearerAuth
// @Success 200 {object} util.Response
// @Router /api/progress [get]
func (c *ProgressController) GetAllProgress(ctx *gin.Context) {
	user := util.GetUserFromContext(ctx)
	if user == nil {
		util.Unauthorized(ctx)
		return
	}

	recs, err := c.CourseProgress.GetAll(user.UserID)
	if err != nil {
		util.RenderEngineError(ctx, err)
		return
	}

	util.Success(ctx, recs)
}

// @Summary 获取单课程进度
// @Tags 进度模块
// @Produce json
// @Security BearerAuth
// @Param courseId path int true "课程ID"
// @Success 200 {object} util.Response
// @Failure 404 {object} util.Response
// @Router /api/progress/{courseId} [get]
func (c *ProgressController) GetCourseProgress(ctx *gin.Context) {
	user := util.GetUserFromContext(ctx)
	if user == nil {
		util.Unauthorized(ctx)
		return
	}

	courseID, ok := parseUintParam(ctx, "courseId")
	if !ok {
		return
	}

	rec, err := c.CourseProgress.GetByCourse(user.UserID, courseID)
	if err != nil {
		util.RenderEngineError(ctx, err)
		return
	}

	util.Success(ctx, rec)
}

// @Summary XP 排行榜
// @Tags 进度模块
// @Produce json
// @Security BearerAuth
// @Param limit query int false "榜单长度，默认 10"
// @Success 200 {object} util.Response
// @Router /api/leaderboard [get]
func (c *ProgressController) GetLeaderboard(ctx *gin.Context) {
	limit, _ := strconv.Atoi(ctx.DefaultQuery("limit", "10"))

	entries, err := c.CourseProgress.Leaderboard(limit)
	if err != nil {
		util.RenderEngineError(ctx, err)
		return
	}

	util.Success(ctx, entries)
}

// @Summary 学习总览统计
// @Tags 进度模块
// @Produce json
// @Security BearerAuth
// @Success 200 {object} util.Response
// @Router /api/progress/stats/overview [get]
func (c *ProgressController) GetStatsOverview(ctx *gin.Context) {
	user := util.GetUserFromContext(ctx)
	if user == nil {
		util.Unauthorized(ctx)
		return
	}

	stats, err := c.CourseProgress.StatsOverview(user.UserID)
	if err != nil {
		util.RenderEngineError(ctx, err)
		return
	}

	util.Success(ctx, stats)
}
