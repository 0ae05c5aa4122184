package service

import (
	"academician_hub_backend/internal/model"
	"academician_hub_backend/internal/repository"
	"academician_hub_backend/internal/util"
	"academician_hub_backend/pkg/logger"
	"academician_hub_backend/pkg/monitoring"
	"errors"
	"time"

	"go.uber.org/zap"
	"gorm.io/gorm"
)

// CourseProgressService 课程粒度进度：结课事件（带小测门槛）、
// XP 发放与总览统计。
type CourseProgressService struct {
	CatalogRepo  *repository.CatalogRepository
	ProgressRepo *repository.CourseProgressRepository
	UserRepo     *repository.UserRepository
	Reward       *RewardService
}

func NewCourseProgressService(catalogRepo *repository.CatalogRepository,
	progressRepo *repository.CourseProgressRepository,
	userRepo *repository.UserRepository,
	reward *RewardService) *CourseProgressService {
	return &CourseProgressService{
		CatalogRepo:  catalogRepo,
		ProgressRepo: progressRepo,
		UserRepo:     userRepo,
		Reward:       reward,
	}
}

type LessonCompletionRequest struct {
	QuizScore *int `json:"quizScore"`
	TimeSpent int  `json:"timeSpent"`
}

type LessonCompletionResult struct {
	XPAwarded        int  `json:"xpAwarded"`
	NewLevel         int  `json:"newLevel"`
	LeveledUp        bool `json:"leveledUp"`
	AlreadyCompleted bool `json:"alreadyCompleted"`
}

type OverviewStats struct {
	TotalCourses     int     `json:"totalCourses"`
	CompletedLessons int     `json:"completedLessons"`
	TotalXP          int     `json:"totalXP"`
	Level            int     `json:"level"`
	TotalTimeSpent   int     `json:"totalTimeSpent"`
	AverageProgress  float64 `json:"averageProgress"`
}

// CompleteLesson 结课。课节附带小测时必须已有达标成绩（本次随请求
// 提交的成绩先落账再判门槛）。结课集合幂等，重复结课不再发 XP。
// XP 记账在台账提交之后进行，失败只入重试队列，不回滚结课状态。
func (s *CourseProgressService) CompleteLesson(userID, lessonID uint, req LessonCompletionRequest) (*LessonCompletionResult, error) {
	lesson, err := s.CatalogRepo.FindLessonByID(lessonID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, util.ErrLessonNotFound
		}
		return nil, err
	}

	if req.QuizScore != nil && (*req.QuizScore < 0 || *req.QuizScore > 100) {
		return nil, &util.OutOfRangeError{Kind: "score", Index: *req.QuizScore, Total: 101}
	}

	totalLessons, err := s.CatalogRepo.CountPublishedLessons(lesson.CourseID)
	if err != nil {
		return nil, err
	}

	rewardCfg := s.Reward.Config()
	newlyCompleted := false

	err = s.ProgressRepo.Update(userID, lesson.CourseID, func(tx *gorm.DB, rec *model.CourseProgress) error {
		now := time.Now()

		if rec == nil {
			rec = &model.CourseProgress{
				UserID:       userID,
				CourseID:     lesson.CourseID,
				LastAccessed: now,
			}
			if err := tx.Create(rec).Error; err != nil {
				return err
			}
		}

		if req.QuizScore != nil {
			if err := s.recordQuizScore(tx, rec, lessonID, *req.QuizScore, now); err != nil {
				return err
			}
		}

		if lesson.HasQuiz() {
			if err := s.checkQuizGate(rec, lessonID, rewardCfg.PassingScore); err != nil {
				return err
			}
		}

		alreadyDone := false
		for _, done := range rec.CompletedLessons {
			if done.LessonID == lessonID {
				alreadyDone = true
				break
			}
		}

		updates := map[string]interface{}{
			"current_lesson_id": lessonID,
			"last_accessed":     now,
		}
		if req.TimeSpent > 0 {
			updates["time_spent"] = gorm.Expr("time_spent + ?", req.TimeSpent)
		}

		if !alreadyDone {
			completion := &model.LessonCompletion{
				CourseProgressID: rec.ID,
				LessonID:         lessonID,
				CompletedAt:      now,
			}
			if err := tx.Create(completion).Error; err != nil {
				return err
			}

			var completed int64
			if err := tx.Model(&model.LessonCompletion{}).
				Where("course_progress_id = ?", rec.ID).
				Count(&completed).Error; err != nil {
				return err
			}

			updates["xp_earned"] = gorm.Expr("xp_earned + ?", rewardCfg.LessonXP)
			if totalLessons > 0 {
				updates["progress"] = int(completed * 100 / totalLessons)
			}
			newlyCompleted = true
		}

		return tx.Model(&model.CourseProgress{}).
			Where("id = ?", rec.ID).
			Updates(updates).Error
	})
	if err != nil {
		return nil, err
	}

	result := &LessonCompletionResult{AlreadyCompleted: !newlyCompleted}
	if !newlyCompleted {
		if user, err := s.UserRepo.FindByID(userID); err == nil {
			result.NewLevel = s.Reward.LevelForXP(user.XP)
		}
		return result, nil
	}

	monitoring.LessonCompletions.Inc()
	result.XPAwarded = rewardCfg.LessonXP

	xp, err := s.Reward.AddXP(userID, rewardCfg.LessonXP)
	if err != nil {
		// 台账已提交，记账延后补偿
		logger.Log.Error("reward accrual unavailable, queueing for retry",
			zap.Uint("userId", userID),
			zap.Uint("lessonId", lessonID),
			zap.Error(err))
		if qErr := s.Reward.QueuePendingReward(userID, rewardCfg.LessonXP, "lesson-completion"); qErr != nil {
			logger.Log.Error("pending reward lost, replay manually via admin endpoint",
				zap.Uint("userId", userID),
				zap.Error(qErr))
		}
		return result, nil
	}

	result.NewLevel = xp.NewLevel
	result.LeveledUp = xp.LeveledUp
	return result, nil
}

func (s *CourseProgressService) recordQuizScore(tx *gorm.DB, rec *model.CourseProgress, lessonID uint, score int, now time.Time) error {
	for i := range rec.QuizScores {
		if rec.QuizScores[i].LessonID == lessonID {
			rec.QuizScores[i].Score = score
			return tx.Model(&rec.QuizScores[i]).Updates(map[string]interface{}{
				"score":        score,
				"attempted_at": now,
			}).Error
		}
	}

	entry := model.LessonQuizScore{
		CourseProgressID: rec.ID,
		LessonID:         lessonID,
		Score:            score,
		AttemptedAt:      now,
	}
	if err := tx.Create(&entry).Error; err != nil {
		return err
	}
	rec.QuizScores = append(rec.QuizScores, entry)
	return nil
}

// checkQuizGate 附带小测的课节要求历史成绩达到及格线
func (s *CourseProgressService) checkQuizGate(rec *model.CourseProgress, lessonID uint, passingScore int) error {
	var best *int
	for i := range rec.QuizScores {
		if rec.QuizScores[i].LessonID != lessonID {
			continue
		}
		score := rec.QuizScores[i].Score
		if best == nil || score > *best {
			best = &score
		}
	}

	if best != nil && *best >= passingScore {
		return nil
	}
	return &util.GateNotSatisfiedError{
		LessonID:      lessonID,
		RequiredScore: passingScore,
		BestScore:     best,
	}
}

// GetAll 用户全部课程进度，最近访问在前
func (s *CourseProgressService) GetAll(userID uint) ([]model.CourseProgress, error) {
	return s.ProgressRepo.FindAllByUser(userID)
}

// GetByCourse 单课程进度，不存在即 NotFound（不惰性创建）
func (s *CourseProgressService) GetByCourse(userID, courseID uint) (*model.CourseProgress, error) {
	rec, err := s.ProgressRepo.FindByUserAndCourse(userID, courseID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, util.ErrProgressNotFound
		}
		return nil, err
	}
	return rec, nil
}

type LeaderboardEntry struct {
	UserID uint   `json:"userId"`
	Name   string `json:"name"`
	XP     int    `json:"xp"`
	Level  int    `json:"level"`
}

// Leaderboard XP 排行榜
func (s *CourseProgressService) Leaderboard(limit int) ([]LeaderboardEntry, error) {
	if limit <= 0 || limit > 100 {
		limit = 10
	}

	users, err := s.UserRepo.FindTopByXP(limit)
	if err != nil {
		return nil, err
	}

	entries := make([]LeaderboardEntry, 0, len(users))
	for _, u := range users {
		entries = append(entries, LeaderboardEntry{
			UserID: u.ID,
			Name:   u.Name,
			XP:     u.XP,
			Level:  s.Reward.LevelForXP(u.XP),
		})
	}
	return entries, nil
}

// StatsOverview 跨课程总览
func (s *CourseProgressService) StatsOverview(userID uint) (*OverviewStats, error) {
	user, err := s.UserRepo.FindByID(userID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, util.ErrUserNotFound
		}
		return nil, err
	}

	all, err := s.ProgressRepo.FindAllByUser(userID)
	if err != nil {
		return nil, err
	}

	completedLessons, err := s.ProgressRepo.CountCompletedLessons(userID)
	if err != nil {
		return nil, err
	}

	stats := &OverviewStats{
		TotalCourses:     len(all),
		CompletedLessons: int(completedLessons),
		TotalXP:          user.XP,
		Level:            s.Reward.LevelForXP(user.XP),
	}
	for _, p := range all {
		stats.TotalTimeSpent += p.TimeSpent
		stats.AverageProgress += float64(p.Progress)
	}
	if len(all) > 0 {
		stats.AverageProgress /= float64(len(all))
	}

	return stats, nil
}
