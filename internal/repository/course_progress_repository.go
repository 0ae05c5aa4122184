package repository

import (
	"academician_hub_backend/internal/model"
	"academician_hub_backend/internal/util"
	"errors"
	"fmt"

	"gorm.io/gorm"
)

type CourseProgressRepository struct {
	DB    *gorm.DB
	locks *keyLock
}

func NewCourseProgressRepository(db *gorm.DB) *CourseProgressRepository {
	return &CourseProgressRepository{
		DB:    db,
		locks: newKeyLock(),
	}
}

func courseProgressKey(userID, courseID uint) string {
	return fmt.Sprintf("course:%d:%d", userID, courseID)
}

func (r *CourseProgressRepository) FindByUserAndCourse(userID, courseID uint) (*model.CourseProgress, error) {
	var rec model.CourseProgress
	err := r.DB.
		Preload("CompletedLessons").
		Preload("QuizScores").
		Where("user_id = ? AND course_id = ?", userID, courseID).
		First(&rec).Error
	if err != nil {
		return nil, err
	}
	return &rec, nil
}

// FindAllByUser 用户名下全部课程进度，最近访问在前
func (r *CourseProgressRepository) FindAllByUser(userID uint) ([]model.CourseProgress, error) {
	var recs []model.CourseProgress
	err := r.DB.
		Preload("CompletedLessons").
		Where("user_id = ?", userID).
		Order("last_accessed DESC").
		Find(&recs).Error
	return recs, err
}

// Update 同一 (user, course) 键上的串行读-改-写，语义同 UnitProgressRepository.Update
func (r *CourseProgressRepository) Update(userID, courseID uint,
	fn func(tx *gorm.DB, rec *model.CourseProgress) error) error {

	return r.locks.Do(courseProgressKey(userID, courseID), func() error {
		var lastErr error
		for attempt := 0; attempt < maxWriteRetries; attempt++ {
			lastErr = r.DB.Transaction(func(tx *gorm.DB) error {
				var rec model.CourseProgress
				err := tx.
					Preload("CompletedLessons").
					Preload("QuizScores").
					Where("user_id = ? AND course_id = ?", userID, courseID).
					First(&rec).Error
				if err != nil {
					if errors.Is(err, gorm.ErrRecordNotFound) {
						return fn(tx, nil)
					}
					return err
				}
				return fn(tx, &rec)
			})
			if lastErr == nil || !errors.Is(lastErr, gorm.ErrDuplicatedKey) {
				return lastErr
			}
		}
		return util.ErrConcurrencyConflict
	})
}

// CountCompletedLessons 用户全部课程的结课总数（总览统计用）
func (r *CourseProgressRepository) CountCompletedLessons(userID uint) (int64, error) {
	var count int64
	err := r.DB.Model(&model.LessonCompletion{}).
		Joins("JOIN course_progress ON course_progress.id = lesson_completions.course_progress_id").
		Where("course_progress.user_id = ?", userID).
		Count(&count).Error
	return count, err
}
