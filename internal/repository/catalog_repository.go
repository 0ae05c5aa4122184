package repository

import (
	"academician_hub_backend/internal/model"

	"gorm.io/gorm"
)

// CatalogRepository 内容目录的只读访问。目录由内容端维护，
// 进度引擎不写任何目录表。
type CatalogRepository struct {
	DB *gorm.DB
}

func NewCatalogRepository(db *gorm.DB) *CatalogRepository {
	return &CatalogRepository{DB: db}
}

func (r *CatalogRepository) FindCourseByID(id uint) (*model.Course, error) {
	var course model.Course
	err := r.DB.First(&course, id).Error
	if err != nil {
		return nil, err
	}
	return &course, nil
}

func (r *CatalogRepository) ListCourses() ([]model.Course, error) {
	var courses []model.Course
	err := r.DB.Where("published = ?", true).Order("subject, title").Find(&courses).Error
	return courses, err
}

// ListUnits 某课程某难度下的全部单元，按序号升序
func (r *CatalogRepository) ListUnits(courseID uint, level model.CourseLevel) ([]model.CourseUnit, error) {
	var units []model.CourseUnit
	err := r.DB.Where("course_id = ? AND level = ?", courseID, level).
		Order("ordinal ASC").
		Find(&units).Error
	return units, err
}

func (r *CatalogRepository) FindUnit(courseID uint, level model.CourseLevel, ordinal int) (*model.CourseUnit, error) {
	var unit model.CourseUnit
	err := r.DB.Where("course_id = ? AND level = ? AND ordinal = ?", courseID, level, ordinal).
		First(&unit).Error
	if err != nil {
		return nil, err
	}
	return &unit, nil
}

func (r *CatalogRepository) FindLessonByID(id uint) (*model.Lesson, error) {
	var lesson model.Lesson
	err := r.DB.First(&lesson, id).Error
	if err != nil {
		return nil, err
	}
	return &lesson, nil
}

func (r *CatalogRepository) ListLessons(courseID uint) ([]model.Lesson, error) {
	var lessons []model.Lesson
	err := r.DB.Where("course_id = ? AND published = ?", courseID, true).
		Order("`order` ASC").
		Find(&lessons).Error
	return lessons, err
}

func (r *CatalogRepository) CountPublishedLessons(courseID uint) (int64, error) {
	var count int64
	err := r.DB.Model(&model.Lesson{}).
		Where("course_id = ? AND published = ?", courseID, true).
		Count(&count).Error
	return count, err
}
