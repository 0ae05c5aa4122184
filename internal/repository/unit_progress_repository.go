package repository

import (
	"academician_hub_backend/internal/model"
	"academician_hub_backend/internal/util"
	"errors"
	"fmt"

	"gorm.io/gorm"
)

// 写冲突（唯一索引碰撞/事务失败）时读-改-写的内部重试次数上限
const maxWriteRetries = 3

type UnitProgressRepository struct {
	DB    *gorm.DB
	locks *keyLock
}

func NewUnitProgressRepository(db *gorm.DB) *UnitProgressRepository {
	return &UnitProgressRepository{
		DB:    db,
		locks: newKeyLock(),
	}
}

func progressKey(userID, courseID uint, level model.CourseLevel, ordinal int) string {
	return fmt.Sprintf("unit:%d:%d:%s:%d", userID, courseID, level, ordinal)
}

func (r *UnitProgressRepository) Find(userID, courseID uint, level model.CourseLevel, ordinal int) (*model.UnitProgress, error) {
	var rec model.UnitProgress
	err := r.DB.
		Preload("QuizScores").
		Preload("AssignmentSubmissions").
		Where("user_id = ? AND course_id = ? AND level = ? AND ordinal = ?",
			userID, courseID, level, ordinal).
		First(&rec).Error
	if err != nil {
		return nil, err
	}
	return &rec, nil
}

// FindAll 用户在某课程某难度下的全部进度记录，按序号升序
func (r *UnitProgressRepository) FindAll(userID, courseID uint, level model.CourseLevel) ([]model.UnitProgress, error) {
	var recs []model.UnitProgress
	err := r.DB.
		Where("user_id = ? AND course_id = ? AND level = ?", userID, courseID, level).
		Order("ordinal ASC").
		Find(&recs).Error
	return recs, err
}

func (r *UnitProgressRepository) Create(rec *model.UnitProgress) error {
	return r.DB.Create(rec).Error
}

// Update 同一进度键上的串行读-改-写。fn 在事务内拿到当前记录
// （不存在时为 nil），fn 之外的并发写入由键锁 + 唯一索引兜底；
// 唯一索引碰撞重试 maxWriteRetries 次后以 ErrConcurrencyConflict 上抛。
func (r *UnitProgressRepository) Update(userID, courseID uint, level model.CourseLevel, ordinal int,
	fn func(tx *gorm.DB, rec *model.UnitProgress) error) error {

	return r.locks.Do(progressKey(userID, courseID, level, ordinal), func() error {
		var lastErr error
		for attempt := 0; attempt < maxWriteRetries; attempt++ {
			lastErr = r.DB.Transaction(func(tx *gorm.DB) error {
				var rec model.UnitProgress
				err := tx.
					Preload("QuizScores").
					Preload("AssignmentSubmissions").
					Where("user_id = ? AND course_id = ? AND level = ? AND ordinal = ?",
						userID, courseID, level, ordinal).
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

// RecountCounters 从子表行数重算计数器，保证派生不变量
func (r *UnitProgressRepository) RecountCounters(tx *gorm.DB, rec *model.UnitProgress) error {
	var quizzes, assignments int64

	if err := tx.Model(&model.UnitQuizScore{}).
		Where("unit_progress_id = ?", rec.ID).
		Count(&quizzes).Error; err != nil {
		return err
	}
	if err := tx.Model(&model.UnitAssignmentSubmission{}).
		Where("unit_progress_id = ?", rec.ID).
		Count(&assignments).Error; err != nil {
		return err
	}

	rec.QuizzesCompleted = int(quizzes)
	rec.AssignmentsCompleted = int(assignments)
	return nil
}
