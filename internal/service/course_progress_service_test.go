package service

import (
	"academician_hub_backend/internal/model"
	"academician_hub_backend/internal/util"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
)

func intPtr(v int) *int { return &v }

func TestCompleteLessonAwardsXPAndLevelsUp(t *testing.T) {
	env := newTestEnv(t)
	user := env.createUser(t, model.Student)
	course := env.createCourse(t)
	first := env.createLesson(t, course.ID, 1, 0)
	second := env.createLesson(t, course.ID, 2, 0)

	res, err := env.courseProgress.CompleteLesson(user.ID, first.ID, LessonCompletionRequest{TimeSpent: 12})
	require.NoError(t, err)
	assert.Equal(t, 50, res.XPAwarded)
	assert.Equal(t, 1, res.NewLevel)
	assert.False(t, res.LeveledUp)
	assert.False(t, res.AlreadyCompleted)

	// 第二课结课后恰好跨过 100 XP，升级事件可区分
	res, err = env.courseProgress.CompleteLesson(user.ID, second.ID, LessonCompletionRequest{})
	require.NoError(t, err)
	assert.Equal(t, 50, res.XPAwarded)
	assert.Equal(t, 2, res.NewLevel)
	assert.True(t, res.LeveledUp)

	refreshed, err := env.userRepo.FindByID(user.ID)
	require.NoError(t, err)
	assert.Equal(t, 100, refreshed.XP)
	assert.Equal(t, 2, refreshed.Level)

	rec, err := env.courseProgress.GetByCourse(user.ID, course.ID)
	require.NoError(t, err)
	assert.Equal(t, 100, rec.Progress)
	assert.Equal(t, 100, rec.XPEarned)
	assert.Equal(t, 12, rec.TimeSpent)
	assert.Len(t, rec.CompletedLessons, 2)
}

func TestCompleteLessonIsIdempotent(t *testing.T) {
	env := newTestEnv(t)
	user := env.createUser(t, model.Student)
	course := env.createCourse(t)
	lesson := env.createLesson(t, course.ID, 1, 0)
	env.createLesson(t, course.ID, 2, 0)

	_, err := env.courseProgress.CompleteLesson(user.ID, lesson.ID, LessonCompletionRequest{})
	require.NoError(t, err)

	res, err := env.courseProgress.CompleteLesson(user.ID, lesson.ID, LessonCompletionRequest{})
	require.NoError(t, err)
	assert.True(t, res.AlreadyCompleted)
	assert.Equal(t, 0, res.XPAwarded)
	assert.False(t, res.LeveledUp)

	refreshed, err := env.userRepo.FindByID(user.ID)
	require.NoError(t, err)
	assert.Equal(t, 50, refreshed.XP)

	rec, err := env.courseProgress.GetByCourse(user.ID, course.ID)
	require.NoError(t, err)
	assert.Len(t, rec.CompletedLessons, 1)
	assert.Equal(t, 50, rec.Progress)
}

func TestCompleteLessonQuizGate(t *testing.T) {
	env := newTestEnv(t)
	user := env.createUser(t, model.Student)
	course := env.createCourse(t)
	lesson := env.createLesson(t, course.ID, 1, 5)

	var gateErr *util.GateNotSatisfiedError

	// 无成绩直接结课：拒绝
	_, err := env.courseProgress.CompleteLesson(user.ID, lesson.ID, LessonCompletionRequest{})
	require.ErrorAs(t, err, &gateErr)
	assert.Equal(t, 70, gateErr.RequiredScore)
	assert.Nil(t, gateErr.BestScore)

	// 不及格成绩随请求提交：拒绝，且整笔事务回滚，结课集合不被触碰
	_, err = env.courseProgress.CompleteLesson(user.ID, lesson.ID, LessonCompletionRequest{QuizScore: intPtr(60)})
	require.ErrorAs(t, err, &gateErr)
	require.NotNil(t, gateErr.BestScore)
	assert.Equal(t, 60, *gateErr.BestScore)

	_, err = env.courseRepo.FindByUserAndCourse(user.ID, course.ID)
	assert.True(t, errors.Is(err, gorm.ErrRecordNotFound))

	refreshed, err := env.userRepo.FindByID(user.ID)
	require.NoError(t, err)
	assert.Equal(t, 0, refreshed.XP)

	// 达标成绩放行
	res, err := env.courseProgress.CompleteLesson(user.ID, lesson.ID, LessonCompletionRequest{QuizScore: intPtr(85)})
	require.NoError(t, err)
	assert.Equal(t, 50, res.XPAwarded)

	rec, err := env.courseProgress.GetByCourse(user.ID, course.ID)
	require.NoError(t, err)
	require.Len(t, rec.QuizScores, 1)
	assert.Equal(t, 85, rec.QuizScores[0].Score)
	assert.Len(t, rec.CompletedLessons, 1)
}

func TestCompleteLessonValidation(t *testing.T) {
	env := newTestEnv(t)
	user := env.createUser(t, model.Student)
	course := env.createCourse(t)
	lesson := env.createLesson(t, course.ID, 1, 0)

	_, err := env.courseProgress.CompleteLesson(user.ID, 9999, LessonCompletionRequest{})
	assert.ErrorIs(t, err, util.ErrLessonNotFound)

	var outOfRange *util.OutOfRangeError
	_, err = env.courseProgress.CompleteLesson(user.ID, lesson.ID, LessonCompletionRequest{QuizScore: intPtr(150)})
	require.ErrorAs(t, err, &outOfRange)
	assert.Equal(t, "score", outOfRange.Kind)
}

func TestGetByCourseNotFound(t *testing.T) {
	env := newTestEnv(t)
	user := env.createUser(t, model.Student)
	course := env.createCourse(t)

	_, err := env.courseProgress.GetByCourse(user.ID, course.ID)
	assert.ErrorIs(t, err, util.ErrProgressNotFound)
}

func TestStatsOverview(t *testing.T) {
	env := newTestEnv(t)
	user := env.createUser(t, model.Student)
	course := env.createCourse(t)
	first := env.createLesson(t, course.ID, 1, 0)
	env.createLesson(t, course.ID, 2, 0)

	_, err := env.courseProgress.CompleteLesson(user.ID, first.ID, LessonCompletionRequest{TimeSpent: 30})
	require.NoError(t, err)

	stats, err := env.courseProgress.StatsOverview(user.ID)
	require.NoError(t, err)
	assert.Equal(t, 1, stats.TotalCourses)
	assert.Equal(t, 1, stats.CompletedLessons)
	assert.Equal(t, 50, stats.TotalXP)
	assert.Equal(t, 1, stats.Level)
	assert.Equal(t, 30, stats.TotalTimeSpent)
	assert.InDelta(t, 50.0, stats.AverageProgress, 0.01)
}
