package controller

import (
	"academician_hub_backend/internal/service"
	"academician_hub_backend/internal/util"

	"github.com/gin-gonic/gin"
)

type CourseController struct {
	Catalog *service.CatalogService
}

func NewCourseController(catalog *service.CatalogService) *CourseController {
	return &CourseController{Catalog: catalog}
}

// @Summary 获取已发布课程列表
// @Tags 课程模块
// @Produce json
// @Success 200 {object} util.Response
// @Router /api/courses [get]
func (c *CourseController) ListCourses(ctx *gin.Context) {
	courses, err := c.Catalog.ListCourses()
	if err != nil {
		util.RenderEngineError(ctx, err)
		return
	}
	util.Success(ctx, courses)
}

// @Summary 获取课程详情
// @Tags 课程模块
// @Produce json
// @Param id path int true "课程ID"
// @Success 200 {object} util.Response
// @Failure 404 {object} util.Response
// @Router /api/courses/{id} [get]
func (c *CourseController) GetCourse(ctx *gin.Context) {
	id, ok := parseUintParam(ctx, "id")
	if !ok {
		return
	}

	course, err := c.Catalog.GetCourse(id)
	if err != nil {
		util.RenderEngineError(ctx, err)
		return
	}
	util.Success(ctx, course)
}

// @Summary 获取课程的课节列表
// @Tags 课程模块
// @Produce json
// @Param id path int true "课程ID"
// @Success 200 {object} util.Response
// @Failure 404 {object} util.Response
// @Router /api/courses/{id}/lessons [get]
func (c *CourseController) GetCourseLessons(ctx *gin.Context) {
	id, ok := parseUintParam(ctx, "id")
	if !ok {
		return
	}

	lessons, err := c.Catalog.GetCourseLessons(id)
	if err != nil {
		util.RenderEngineError(ctx, err)
		return
	}
	util.Success(ctx, lessons)
}
