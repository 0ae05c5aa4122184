package service

import (
	"academician_hub_backend/internal/model"
	"academician_hub_backend/internal/repository"
	"academician_hub_backend/internal/util"
	"errors"

	"gorm.io/gorm"
)

// CatalogService 内容目录的只读视图，供前端渲染课程/课节列表
type CatalogService struct {
	CatalogRepo *repository.CatalogRepository
}

func NewCatalogService(catalogRepo *repository.CatalogRepository) *CatalogService {
	return &CatalogService{CatalogRepo: catalogRepo}
}

func (s *CatalogService) ListCourses() ([]model.Course, error) {
	return s.CatalogRepo.ListCourses()
}

func (s *CatalogService) GetCourse(id uint) (*model.Course, error) {
	course, err := s.CatalogRepo.FindCourseByID(id)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, util.ErrCourseNotFound
		}
		return nil, err
	}
	return course, nil
}

func (s *CatalogService) GetCourseLessons(courseID uint) ([]model.Lesson, error) {
	if _, err := s.GetCourse(courseID); err != nil {
		return nil, err
	}
	return s.CatalogRepo.ListLessons(courseID)
}
