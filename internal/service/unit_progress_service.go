package service

import (
	"academician_hub_backend/internal/model"
	"academician_hub_backend/internal/repository"
	"academician_hub_backend/internal/util"
	"errors"
	"time"

	"academician_hub_backend/pkg/monitoring"

	"gorm.io/gorm"
)

// UnitProgressService 完成事件协调器：把测验/作业事件落进进度台账，
// 重算状态机，并在单元首次完成时通知奖励端。
type UnitProgressService struct {
	CatalogRepo  *repository.CatalogRepository
	ProgressRepo *repository.UnitProgressRepository
	Reward       *RewardService
}

func NewUnitProgressService(catalogRepo *repository.CatalogRepository,
	progressRepo *repository.UnitProgressRepository, reward *RewardService) *UnitProgressService {
	return &UnitProgressService{
		CatalogRepo:  catalogRepo,
		ProgressRepo: progressRepo,
		Reward:       reward,
	}
}

type CourseBrief struct {
	ID    uint   `json:"id"`
	Title string `json:"title"`
}

type UnitSummary struct {
	Ordinal              int              `json:"ordinal"`
	Topic                string           `json:"topic"`
	Status               model.UnitStatus `json:"status"`
	AssignmentsCompleted int              `json:"assignmentsCompleted"`
	TotalAssignments     int              `json:"totalAssignments"`
	QuizzesCompleted     int              `json:"quizzesCompleted"`
	TotalQuizzes         int              `json:"totalQuizzes"`
	CompletedAt          *time.Time       `json:"completedAt"`
}

type UnitListResponse struct {
	Course CourseBrief   `json:"course"`
	Level  string        `json:"level"`
	Units  []UnitSummary `json:"units"`
}

type UnitDetail struct {
	Ordinal  int                 `json:"ordinal"`
	Topic    string              `json:"topic"`
	Summary  string              `json:"summary"`
	Progress *model.UnitProgress `json:"progress"`
}

type SubmissionResult struct {
	Status               model.UnitStatus `json:"status"`
	AssignmentsCompleted int              `json:"assignmentsCompleted"`
	TotalAssignments     int              `json:"totalAssignments"`
	QuizzesCompleted     int              `json:"quizzesCompleted"`
	TotalQuizzes         int              `json:"totalQuizzes"`
	UnitCompleted        bool             `json:"unitCompleted"`
}

func (s *UnitProgressService) findCourse(courseID uint) (*model.Course, error) {
	course, err := s.CatalogRepo.FindCourseByID(courseID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, util.ErrCourseNotFound
		}
		return nil, err
	}
	return course, nil
}

func (s *UnitProgressService) findUnit(courseID uint, level model.CourseLevel, ordinal int) (*model.CourseUnit, error) {
	unit, err := s.CatalogRepo.FindUnit(courseID, level, ordinal)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, util.ErrUnitNotFound
		}
		return nil, err
	}
	return unit, nil
}

// ListUnits 门禁求值后的单元列表。只读，不创建任何进度记录。
func (s *UnitProgressService) ListUnits(userID, courseID uint, levelName string, isAdmin bool) (*UnitListResponse, error) {
	course, err := s.findCourse(courseID)
	if err != nil {
		return nil, err
	}
	level := model.NormalizeLevel(levelName)

	units, err := s.CatalogRepo.ListUnits(courseID, level)
	if err != nil {
		return nil, err
	}

	recs, err := s.ProgressRepo.FindAll(userID, courseID, level)
	if err != nil {
		return nil, err
	}
	byOrdinal := make(map[int]*model.UnitProgress, len(recs))
	for i := range recs {
		byOrdinal[recs[i].Ordinal] = &recs[i]
	}

	resp := &UnitListResponse{
		Course: CourseBrief{ID: course.ID, Title: course.Title},
		Level:  string(level),
		Units:  make([]UnitSummary, 0, len(units)),
	}

	for _, unit := range units {
		rec := byOrdinal[unit.Ordinal]
		prev := byOrdinal[unit.Ordinal-1]

		summary := UnitSummary{
			Ordinal:          unit.Ordinal,
			Topic:            unit.Topic,
			Status:           EvaluateUnitStatus(rec, prev, unit.Ordinal, isAdmin),
			TotalAssignments: unit.TotalAssignments,
			TotalQuizzes:     unit.TotalQuizzes,
		}
		if rec != nil {
			summary.AssignmentsCompleted = rec.AssignmentsCompleted
			summary.QuizzesCompleted = rec.QuizzesCompleted
			summary.TotalAssignments = rec.TotalAssignments
			summary.TotalQuizzes = rec.TotalQuizzes
			summary.CompletedAt = rec.CompletedAt
		}
		resp.Units = append(resp.Units, summary)
	}

	return resp, nil
}

// checkGate 非管理员访问序号>1的单元时校验前置单元已完成
func (s *UnitProgressService) checkGate(userID, courseID uint, level model.CourseLevel, ordinal int, isAdmin bool) error {
	if isAdmin || ordinal <= 1 {
		return nil
	}

	prev, err := s.ProgressRepo.Find(userID, courseID, level, ordinal-1)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return &util.GateLockedError{RequiredOrdinal: ordinal - 1}
		}
		return err
	}
	if prev.Status != model.StatusCompleted {
		return &util.GateLockedError{RequiredOrdinal: ordinal - 1}
	}
	return nil
}

// GetUnit 单元详情。非管理员首访时惰性创建进度记录（总量从目录拷贝，
// 仅此一次）；管理员未创建过记录时返回合成视图，不落库。
func (s *UnitProgressService) GetUnit(userID, courseID uint, levelName string, ordinal int, isAdmin bool) (*UnitDetail, error) {
	if _, err := s.findCourse(courseID); err != nil {
		return nil, err
	}
	level := model.NormalizeLevel(levelName)

	unit, err := s.findUnit(courseID, level, ordinal)
	if err != nil {
		return nil, err
	}

	if err := s.checkGate(userID, courseID, level, ordinal, isAdmin); err != nil {
		return nil, err
	}

	detail := &UnitDetail{
		Ordinal: unit.Ordinal,
		Topic:   unit.Topic,
		Summary: unit.Summary,
	}

	if isAdmin {
		rec, err := s.ProgressRepo.Find(userID, courseID, level, ordinal)
		if err != nil {
			if !errors.Is(err, gorm.ErrRecordNotFound) {
				return nil, err
			}
			detail.Progress = s.transientRecord(userID, unit)
			return detail, nil
		}
		detail.Progress = rec
		return detail, nil
	}

	err = s.ProgressRepo.Update(userID, courseID, level, ordinal, func(tx *gorm.DB, rec *model.UnitProgress) error {
		if rec == nil {
			rec = newProgressRecord(userID, unit)
			if err := tx.Create(rec).Error; err != nil {
				return err
			}
		}
		detail.Progress = rec
		return nil
	})
	if err != nil {
		return nil, err
	}

	return detail, nil
}

// transientRecord 管理员视图下未持久化的零值记录
func (s *UnitProgressService) transientRecord(userID uint, unit *model.CourseUnit) *model.UnitProgress {
	return &model.UnitProgress{
		UserID:           userID,
		CourseID:         unit.CourseID,
		Level:            unit.Level,
		Ordinal:          unit.Ordinal,
		Topic:            unit.Topic,
		Status:           model.StatusUnlocked,
		TotalAssignments: unit.TotalAssignments,
		TotalQuizzes:     unit.TotalQuizzes,
	}
}

// newProgressRecord 惰性建账，总量拷贝自目录声明。目录若声明 0/0 的
// 空单元，该记录没有可提交的下标，停留在 unlocked 且不会解锁后继。
func newProgressRecord(userID uint, unit *model.CourseUnit) *model.UnitProgress {
	now := time.Now()
	return &model.UnitProgress{
		UserID:           userID,
		CourseID:         unit.CourseID,
		Level:            unit.Level,
		Ordinal:          unit.Ordinal,
		Topic:            unit.Topic,
		Status:           model.StatusUnlocked,
		TotalAssignments: unit.TotalAssignments,
		TotalQuizzes:     unit.TotalQuizzes,
		UnlockedAt:       &now,
	}
}

// applyTransitions 事件落账后的状态机推进，返回是否刚转入 completed
func applyTransitions(rec *model.UnitProgress, now time.Time) bool {
	wasCompleted := rec.Status == model.StatusCompleted

	if rec.IsComplete() {
		rec.Status = model.StatusCompleted
		if rec.CompletedAt == nil {
			rec.CompletedAt = &now
		}
		return !wasCompleted
	}

	if rec.Status == model.StatusLocked || rec.Status == model.StatusUnlocked {
		rec.Status = model.StatusInProgress
		if rec.StartedAt == nil {
			rec.StartedAt = &now
		}
	}
	return false
}

func (s *UnitProgressService) persistRecord(tx *gorm.DB, rec *model.UnitProgress) error {
	return tx.Model(&model.UnitProgress{}).
		Where("id = ?", rec.ID).
		Updates(map[string]interface{}{
			"status":                rec.Status,
			"quizzes_completed":     rec.QuizzesCompleted,
			"assignments_completed": rec.AssignmentsCompleted,
			"started_at":            rec.StartedAt,
			"completed_at":          rec.CompletedAt,
		}).Error
}

// SubmitQuiz 记录一次测验成绩。同一 quizIndex 重交只覆盖成绩与时间戳，
// 不再增计数（对完成计数幂等）。
func (s *UnitProgressService) SubmitQuiz(userID, courseID uint, levelName string, ordinal, quizIndex, score int, isAdmin bool) (*SubmissionResult, error) {
	if _, err := s.findCourse(courseID); err != nil {
		return nil, err
	}
	level := model.NormalizeLevel(levelName)

	unit, err := s.findUnit(courseID, level, ordinal)
	if err != nil {
		return nil, err
	}

	// 校验失败不触碰台账
	if quizIndex < 0 || quizIndex >= unit.TotalQuizzes {
		return nil, &util.OutOfRangeError{Kind: "quiz", Index: quizIndex, Total: unit.TotalQuizzes}
	}
	if score < 0 || score > 100 {
		return nil, &util.OutOfRangeError{Kind: "score", Index: score, Total: 101}
	}

	if err := s.checkGate(userID, courseID, level, ordinal, isAdmin); err != nil {
		return nil, err
	}

	var result SubmissionResult
	justCompleted := false

	err = s.ProgressRepo.Update(userID, courseID, level, ordinal, func(tx *gorm.DB, rec *model.UnitProgress) error {
		now := time.Now()

		if rec == nil {
			rec = newProgressRecord(userID, unit)
			if err := tx.Create(rec).Error; err != nil {
				return err
			}
		}

		var existing *model.UnitQuizScore
		for i := range rec.QuizScores {
			if rec.QuizScores[i].QuizIndex == quizIndex {
				existing = &rec.QuizScores[i]
				break
			}
		}

		if existing != nil {
			if err := tx.Model(existing).Updates(map[string]interface{}{
				"score":        score,
				"completed_at": now,
			}).Error; err != nil {
				return err
			}
		} else {
			entry := &model.UnitQuizScore{
				UnitProgressID: rec.ID,
				QuizIndex:      quizIndex,
				Score:          score,
				CompletedAt:    now,
			}
			if err := tx.Create(entry).Error; err != nil {
				return err
			}
		}

		if err := s.ProgressRepo.RecountCounters(tx, rec); err != nil {
			return err
		}
		justCompleted = applyTransitions(rec, now)

		if err := s.persistRecord(tx, rec); err != nil {
			return err
		}

		result = SubmissionResult{
			Status:               rec.Status,
			AssignmentsCompleted: rec.AssignmentsCompleted,
			TotalAssignments:     rec.TotalAssignments,
			QuizzesCompleted:     rec.QuizzesCompleted,
			TotalQuizzes:         rec.TotalQuizzes,
			UnitCompleted:        justCompleted,
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	if justCompleted {
		monitoring.UnitCompletions.Inc()
		s.Reward.NotifyUnitCompleted(userID, courseID, string(level), ordinal)
	}

	return &result, nil
}

// SubmitAssignment 记录一次作业提交。重交刷新时间戳并回到 submitted 状态，
// 首交才增计数。
func (s *UnitProgressService) SubmitAssignment(userID, courseID uint, levelName string, ordinal, assignmentIndex int, isAdmin bool) (*SubmissionResult, error) {
	if _, err := s.findCourse(courseID); err != nil {
		return nil, err
	}
	level := model.NormalizeLevel(levelName)

	unit, err := s.findUnit(courseID, level, ordinal)
	if err != nil {
		return nil, err
	}

	if assignmentIndex < 0 || assignmentIndex >= unit.TotalAssignments {
		return nil, &util.OutOfRangeError{Kind: "assignment", Index: assignmentIndex, Total: unit.TotalAssignments}
	}

	if err := s.checkGate(userID, courseID, level, ordinal, isAdmin); err != nil {
		return nil, err
	}

	var result SubmissionResult
	justCompleted := false

	err = s.ProgressRepo.Update(userID, courseID, level, ordinal, func(tx *gorm.DB, rec *model.UnitProgress) error {
		now := time.Now()

		if rec == nil {
			rec = newProgressRecord(userID, unit)
			if err := tx.Create(rec).Error; err != nil {
				return err
			}
		}

		var existing *model.UnitAssignmentSubmission
		for i := range rec.AssignmentSubmissions {
			if rec.AssignmentSubmissions[i].AssignmentIndex == assignmentIndex {
				existing = &rec.AssignmentSubmissions[i]
				break
			}
		}

		if existing != nil {
			if err := tx.Model(existing).Updates(map[string]interface{}{
				"submitted_at": now,
				"status":       model.SubmissionSubmitted,
			}).Error; err != nil {
				return err
			}
		} else {
			entry := &model.UnitAssignmentSubmission{
				UnitProgressID:  rec.ID,
				AssignmentIndex: assignmentIndex,
				SubmittedAt:     now,
				Status:          model.SubmissionSubmitted,
			}
			if err := tx.Create(entry).Error; err != nil {
				return err
			}
		}

		if err := s.ProgressRepo.RecountCounters(tx, rec); err != nil {
			return err
		}
		justCompleted = applyTransitions(rec, now)

		if err := s.persistRecord(tx, rec); err != nil {
			return err
		}

		result = SubmissionResult{
			Status:               rec.Status,
			AssignmentsCompleted: rec.AssignmentsCompleted,
			TotalAssignments:     rec.TotalAssignments,
			QuizzesCompleted:     rec.QuizzesCompleted,
			TotalQuizzes:         rec.TotalQuizzes,
			UnitCompleted:        justCompleted,
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	if justCompleted {
		monitoring.UnitCompletions.Inc()
		s.Reward.NotifyUnitCompleted(userID, courseID, string(level), ordinal)
	}

	return &result, nil
}

// RawProgress 用户在某课程某难度下的台账原始记录
func (s *UnitProgressService) RawProgress(userID, courseID uint, levelName string) ([]model.UnitProgress, error) {
	if _, err := s.findCourse(courseID); err != nil {
		return nil, err
	}
	return s.ProgressRepo.FindAll(userID, courseID, model.NormalizeLevel(levelName))
}
