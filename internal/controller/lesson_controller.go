package controller

import (
	"academician_hub_backend/internal/service"
	"academician_hub_backend/internal/util"

	"github.com/gin-gonic/gin"
)

type LessonController struct {
	CourseProgress *service.CourseProgressService
}

func NewLessonController(courseProgress *service.CourseProgressService) *LessonController {
	return &LessonController{CourseProgress: courseProgress}
}

// @Summary 结课
// @Description 附带小测的课节要求达标成绩；重复结课幂等返回 xpAwarded=0
// @Tags 课程模块
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param lessonId path int true "课节ID"
// @Param completion body service.LessonCompletionRequest false "可选的小测成绩与学习时长"
// @Success 200 {object} util.Response
// @Failure 400 {object} util.Response
// @Router /api/lessons/{lessonId}/complete [post]
func (c *LessonController) CompleteLesson(ctx *gin.Context) {
	user := util.GetUserFromContext(ctx)
	if user == nil {
		util.Unauthorized(ctx)
		return
	}

	lessonID, ok := parseUintParam(ctx, "lessonId")
	if !ok {
		return
	}

	var req service.LessonCompletionRequest
	if ctx.Request.ContentLength > 0 {
		if err := ctx.ShouldBindJSON(&req); err != nil {
			util.BadRequest(ctx, err.Error())
			return
		}
	}

	result, err := c.CourseProgress.CompleteLesson(user.UserID, lessonID, req)
	if err != nil {
		util.RenderEngineError(ctx, err)
		return
	}

	util.Success(ctx, result)
}
