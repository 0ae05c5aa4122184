package service

import (
	"academician_hub_backend/internal/config"
	"academician_hub_backend/internal/model"
	"academician_hub_backend/internal/repository"
	"academician_hub_backend/pkg/logger"
	"fmt"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"
)

func init() {
	logger.Log = zap.NewNop()
}

type testEnv struct {
	db             *gorm.DB
	catalogRepo    *repository.CatalogRepository
	unitRepo       *repository.UnitProgressRepository
	courseRepo     *repository.CourseProgressRepository
	userRepo       *repository.UserRepository
	reward         *RewardService
	unitProgress   *UnitProgressService
	courseProgress *CourseProgressService
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()

	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{
		Logger:         gormlogger.Default.LogMode(gormlogger.Silent),
		TranslateError: true,
	})
	require.NoError(t, err)

	sqlDB, err := db.DB()
	require.NoError(t, err)
	sqlDB.SetMaxOpenConns(1)

	require.NoError(t, db.AutoMigrate(
		&model.User{},
		&model.Course{},
		&model.CourseUnit{},
		&model.Lesson{},
		&model.UnitProgress{},
		&model.UnitQuizScore{},
		&model.UnitAssignmentSubmission{},
		&model.CourseProgress{},
		&model.LessonCompletion{},
		&model.LessonQuizScore{},
	))

	rewardCfg := config.RewardConfig{}
	rewardCfg.ApplyDefaults()

	env := &testEnv{db: db}
	env.catalogRepo = repository.NewCatalogRepository(db)
	env.unitRepo = repository.NewUnitProgressRepository(db)
	env.courseRepo = repository.NewCourseProgressRepository(db)
	env.userRepo = repository.NewUserRepository(db)
	env.reward = NewRewardService(env.userRepo, nil, rewardCfg)
	env.unitProgress = NewUnitProgressService(env.catalogRepo, env.unitRepo, env.reward)
	env.courseProgress = NewCourseProgressService(env.catalogRepo, env.courseRepo, env.userRepo, env.reward)
	return env
}

var userSeq uint64

func (e *testEnv) createUser(t *testing.T, role model.UserRole) *model.User {
	t.Helper()
	user := &model.User{
		Name:     "测试用户",
		Email:    fmt.Sprintf("user-%d@example.com", atomic.AddUint64(&userSeq, 1)),
		Password: "secret",
		Role:     role,
		Level:    1,
	}
	require.NoError(t, e.userRepo.Create(user))
	return user
}

func (e *testEnv) createCourse(t *testing.T) *model.Course {
	t.Helper()
	course := &model.Course{
		Title:     "代数基础",
		Subject:   "math",
		Published: true,
	}
	require.NoError(t, e.db.Create(course).Error)
	return course
}

func (e *testEnv) createUnit(t *testing.T, courseID uint, level model.CourseLevel, ordinal, assignments, quizzes int) *model.CourseUnit {
	t.Helper()
	unit := &model.CourseUnit{
		CourseID:         courseID,
		Level:            level,
		Ordinal:          ordinal,
		Topic:            fmt.Sprintf("第 %d 单元", ordinal),
		TotalAssignments: assignments,
		TotalQuizzes:     quizzes,
	}
	require.NoError(t, e.db.Create(unit).Error)
	return unit
}

func (e *testEnv) createLesson(t *testing.T, courseID uint, order, quizQuestions int) *model.Lesson {
	t.Helper()
	lesson := &model.Lesson{
		CourseID:          courseID,
		Title:             fmt.Sprintf("第 %d 课", order),
		Order:             order,
		QuizQuestionCount: quizQuestions,
		Published:         true,
	}
	require.NoError(t, e.db.Create(lesson).Error)
	return lesson
}
