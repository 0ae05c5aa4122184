package service

import (
	"academician_hub_backend/internal/model"
	"academician_hub_backend/internal/util"
	"errors"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
)

func TestSubmitQuizThenAssignmentCompletesUnit(t *testing.T) {
	env := newTestEnv(t)
	user := env.createUser(t, model.Student)
	course := env.createCourse(t)
	env.createUnit(t, course.ID, model.Beginner, 1, 1, 1)

	// 首次提交测验：计数 1，单元进入 in-progress
	res, err := env.unitProgress.SubmitQuiz(user.ID, course.ID, "beginner", 1, 0, 85, false)
	require.NoError(t, err)
	assert.Equal(t, model.StatusInProgress, res.Status)
	assert.Equal(t, 1, res.QuizzesCompleted)
	assert.Equal(t, 0, res.AssignmentsCompleted)
	assert.False(t, res.UnitCompleted)

	// 同一下标重交：成绩覆盖，计数不变
	res, err = env.unitProgress.SubmitQuiz(user.ID, course.ID, "beginner", 1, 0, 92, false)
	require.NoError(t, err)
	assert.Equal(t, 1, res.QuizzesCompleted)
	assert.False(t, res.UnitCompleted)

	stored, err := env.unitRepo.Find(user.ID, course.ID, model.Beginner, 1)
	require.NoError(t, err)
	require.Len(t, stored.QuizScores, 1)
	assert.Equal(t, 92, stored.QuizScores[0].Score)

	// 最后一项作业提交后单元完成
	res, err = env.unitProgress.SubmitAssignment(user.ID, course.ID, "beginner", 1, 0, false)
	require.NoError(t, err)
	assert.Equal(t, model.StatusCompleted, res.Status)
	assert.Equal(t, 1, res.AssignmentsCompleted)
	assert.True(t, res.UnitCompleted)

	stored, err = env.unitRepo.Find(user.ID, course.ID, model.Beginner, 1)
	require.NoError(t, err)
	require.NotNil(t, stored.CompletedAt)
	firstCompletedAt := *stored.CompletedAt

	// 完成后的重交：状态保持 completed，UnitCompleted 不再置位，完成时间不变
	res, err = env.unitProgress.SubmitAssignment(user.ID, course.ID, "beginner", 1, 0, false)
	require.NoError(t, err)
	assert.Equal(t, model.StatusCompleted, res.Status)
	assert.Equal(t, 1, res.AssignmentsCompleted)
	assert.False(t, res.UnitCompleted)

	stored, err = env.unitRepo.Find(user.ID, course.ID, model.Beginner, 1)
	require.NoError(t, err)
	require.NotNil(t, stored.CompletedAt)
	assert.True(t, stored.CompletedAt.Equal(firstCompletedAt))
}

func TestUnitCompletesWithFailingQuizScore(t *testing.T) {
	env := newTestEnv(t)
	user := env.createUser(t, model.Student)
	course := env.createCourse(t)
	env.createUnit(t, course.ID, model.Beginner, 1, 3, 2)

	// 完成判定只看计数，成绩高低不影响
	_, err := env.unitProgress.SubmitAssignment(user.ID, course.ID, "beginner", 1, 0, false)
	require.NoError(t, err)
	_, err = env.unitProgress.SubmitAssignment(user.ID, course.ID, "beginner", 1, 1, false)
	require.NoError(t, err)
	_, err = env.unitProgress.SubmitQuiz(user.ID, course.ID, "beginner", 1, 0, 90, false)
	require.NoError(t, err)
	res, err := env.unitProgress.SubmitQuiz(user.ID, course.ID, "beginner", 1, 1, 40, false)
	require.NoError(t, err)
	assert.False(t, res.UnitCompleted)

	res, err = env.unitProgress.SubmitAssignment(user.ID, course.ID, "beginner", 1, 2, false)
	require.NoError(t, err)
	assert.Equal(t, model.StatusCompleted, res.Status)
	assert.Equal(t, 3, res.AssignmentsCompleted)
	assert.Equal(t, 2, res.QuizzesCompleted)
	assert.True(t, res.UnitCompleted)
}

func TestEmptyUnitStaysUnlockedAndBlocksSuccessor(t *testing.T) {
	env := newTestEnv(t)
	user := env.createUser(t, model.Student)
	course := env.createCourse(t)
	env.createUnit(t, course.ID, model.Beginner, 1, 0, 0)
	env.createUnit(t, course.ID, model.Beginner, 2, 1, 0)

	// 目录声明 0/0 的空单元没有可提交的下标，永远到不了 completed
	detail, err := env.unitProgress.GetUnit(user.ID, course.ID, "beginner", 1, false)
	require.NoError(t, err)
	assert.Equal(t, model.StatusUnlocked, detail.Progress.Status)

	var outOfRange *util.OutOfRangeError
	_, err = env.unitProgress.SubmitAssignment(user.ID, course.ID, "beginner", 1, 0, false)
	require.ErrorAs(t, err, &outOfRange)

	var gateLocked *util.GateLockedError
	_, err = env.unitProgress.GetUnit(user.ID, course.ID, "beginner", 2, false)
	require.ErrorAs(t, err, &gateLocked)
	assert.Equal(t, 1, gateLocked.RequiredOrdinal)
}

func TestSubmitQuizValidatesBeforeWriting(t *testing.T) {
	env := newTestEnv(t)
	user := env.createUser(t, model.Student)
	course := env.createCourse(t)
	env.createUnit(t, course.ID, model.Beginner, 1, 1, 2)

	var outOfRange *util.OutOfRangeError

	_, err := env.unitProgress.SubmitQuiz(user.ID, course.ID, "beginner", 1, 5, 80, false)
	require.ErrorAs(t, err, &outOfRange)
	assert.Equal(t, "quiz", outOfRange.Kind)
	assert.Equal(t, 2, outOfRange.Total)

	_, err = env.unitProgress.SubmitQuiz(user.ID, course.ID, "beginner", 1, 0, 101, false)
	require.ErrorAs(t, err, &outOfRange)
	assert.Equal(t, "score", outOfRange.Kind)

	_, err = env.unitProgress.SubmitAssignment(user.ID, course.ID, "beginner", 1, 1, false)
	require.ErrorAs(t, err, &outOfRange)
	assert.Equal(t, "assignment", outOfRange.Kind)

	// 校验失败不得留下任何台账痕迹
	_, err = env.unitRepo.Find(user.ID, course.ID, model.Beginner, 1)
	assert.True(t, errors.Is(err, gorm.ErrRecordNotFound))
}

func TestGateBlocksUntilPredecessorCompleted(t *testing.T) {
	env := newTestEnv(t)
	user := env.createUser(t, model.Student)
	course := env.createCourse(t)
	env.createUnit(t, course.ID, model.Beginner, 1, 1, 0)
	env.createUnit(t, course.ID, model.Beginner, 2, 1, 0)

	var gateLocked *util.GateLockedError

	_, err := env.unitProgress.GetUnit(user.ID, course.ID, "beginner", 2, false)
	require.ErrorAs(t, err, &gateLocked)
	assert.Equal(t, 1, gateLocked.RequiredOrdinal)

	_, err = env.unitProgress.SubmitAssignment(user.ID, course.ID, "beginner", 2, 0, false)
	require.ErrorAs(t, err, &gateLocked)

	// 完成第 1 单元后放行
	res, err := env.unitProgress.SubmitAssignment(user.ID, course.ID, "beginner", 1, 0, false)
	require.NoError(t, err)
	require.True(t, res.UnitCompleted)

	detail, err := env.unitProgress.GetUnit(user.ID, course.ID, "beginner", 2, false)
	require.NoError(t, err)
	assert.Equal(t, model.StatusUnlocked, detail.Progress.Status)
}

func TestAdminBypassesGateWithoutFakingProgress(t *testing.T) {
	env := newTestEnv(t)
	admin := env.createUser(t, model.Admin)
	course := env.createCourse(t)
	env.createUnit(t, course.ID, model.Beginner, 1, 1, 1)
	env.createUnit(t, course.ID, model.Beginner, 2, 1, 1)
	env.createUnit(t, course.ID, model.Beginner, 3, 1, 1)

	// 管理员可直达任意单元
	detail, err := env.unitProgress.GetUnit(admin.ID, course.ID, "beginner", 3, true)
	require.NoError(t, err)
	require.NotNil(t, detail.Progress)
	assert.Equal(t, model.StatusUnlocked, detail.Progress.Status)
	assert.Equal(t, 0, detail.Progress.QuizzesCompleted)

	// 只读访问不落库
	_, err = env.unitRepo.Find(admin.ID, course.ID, model.Beginner, 3)
	assert.True(t, errors.Is(err, gorm.ErrRecordNotFound))

	// 写路径照常创建记录并走完成判定
	res, err := env.unitProgress.SubmitQuiz(admin.ID, course.ID, "beginner", 2, 0, 100, true)
	require.NoError(t, err)
	assert.Equal(t, model.StatusInProgress, res.Status)
	assert.False(t, res.UnitCompleted)

	stored, err := env.unitRepo.Find(admin.ID, course.ID, model.Beginner, 2)
	require.NoError(t, err)
	assert.Equal(t, 1, stored.QuizzesCompleted)
}

func TestGetUnitLazilyCreatesRecordOnce(t *testing.T) {
	env := newTestEnv(t)
	user := env.createUser(t, model.Student)
	course := env.createCourse(t)
	env.createUnit(t, course.ID, model.Beginner, 1, 2, 3)

	detail, err := env.unitProgress.GetUnit(user.ID, course.ID, "beginner", 1, false)
	require.NoError(t, err)
	require.NotNil(t, detail.Progress)
	assert.Equal(t, model.StatusUnlocked, detail.Progress.Status)
	assert.Equal(t, 2, detail.Progress.TotalAssignments)
	assert.Equal(t, 3, detail.Progress.TotalQuizzes)
	assert.NotNil(t, detail.Progress.UnlockedAt)

	_, err = env.unitProgress.GetUnit(user.ID, course.ID, "beginner", 1, false)
	require.NoError(t, err)

	var count int64
	require.NoError(t, env.db.Model(&model.UnitProgress{}).
		Where("user_id = ?", user.ID).Count(&count).Error)
	assert.EqualValues(t, 1, count)
}

func TestListUnitsRelocksAfterRegression(t *testing.T) {
	env := newTestEnv(t)
	user := env.createUser(t, model.Student)
	course := env.createCourse(t)
	env.createUnit(t, course.ID, model.Beginner, 1, 1, 0)
	env.createUnit(t, course.ID, model.Beginner, 2, 1, 0)
	env.createUnit(t, course.ID, model.Beginner, 3, 1, 0)

	// 台账里单元 2 是 completed，但其前置回退成了 in-progress
	require.NoError(t, env.unitRepo.Create(&model.UnitProgress{
		UserID: user.ID, CourseID: course.ID, Level: model.Beginner, Ordinal: 1,
		Status: model.StatusInProgress, TotalAssignments: 1,
	}))
	require.NoError(t, env.unitRepo.Create(&model.UnitProgress{
		UserID: user.ID, CourseID: course.ID, Level: model.Beginner, Ordinal: 2,
		Status: model.StatusCompleted, TotalAssignments: 1, AssignmentsCompleted: 1,
	}))

	resp, err := env.unitProgress.ListUnits(user.ID, course.ID, "beginner", false)
	require.NoError(t, err)
	require.Len(t, resp.Units, 3)
	assert.Equal(t, model.StatusUnlocked, resp.Units[0].Status)
	assert.Equal(t, model.StatusLocked, resp.Units[1].Status)
	// 门禁只看直接前置的存量记录，不做传递性回锁
	assert.Equal(t, model.StatusUnlocked, resp.Units[2].Status)

	// 管理员看到的是真实存量状态
	adminResp, err := env.unitProgress.ListUnits(user.ID, course.ID, "beginner", true)
	require.NoError(t, err)
	assert.Equal(t, model.StatusInProgress, adminResp.Units[0].Status)
	assert.Equal(t, model.StatusCompleted, adminResp.Units[1].Status)
}

func TestLevelNameNormalization(t *testing.T) {
	env := newTestEnv(t)
	user := env.createUser(t, model.Student)
	course := env.createCourse(t)
	env.createUnit(t, course.ID, model.Beginner, 1, 1, 0)

	// Basic 与 beginner 指向同一档位
	res, err := env.unitProgress.SubmitAssignment(user.ID, course.ID, "Basic", 1, 0, false)
	require.NoError(t, err)
	assert.True(t, res.UnitCompleted)

	stored, err := env.unitRepo.Find(user.ID, course.ID, model.Beginner, 1)
	require.NoError(t, err)
	assert.Equal(t, model.StatusCompleted, stored.Status)
}

func TestUnknownCourseAndUnit(t *testing.T) {
	env := newTestEnv(t)
	user := env.createUser(t, model.Student)
	course := env.createCourse(t)
	env.createUnit(t, course.ID, model.Beginner, 1, 1, 0)

	_, err := env.unitProgress.ListUnits(user.ID, 9999, "beginner", false)
	assert.ErrorIs(t, err, util.ErrCourseNotFound)

	_, err = env.unitProgress.GetUnit(user.ID, course.ID, "beginner", 7, false)
	assert.ErrorIs(t, err, util.ErrUnitNotFound)
}

func TestConcurrentSubmissionsKeepCountersExact(t *testing.T) {
	env := newTestEnv(t)
	user := env.createUser(t, model.Student)
	course := env.createCourse(t)
	const totalAssignments = 8
	env.createUnit(t, course.ID, model.Beginner, 1, totalAssignments, 0)

	// 不同下标并发提交：全部成功，计数恰好等于提交数
	var wg sync.WaitGroup
	errs := make([]error, totalAssignments)
	for i := 0; i < totalAssignments; i++ {
		wg.Add(1)
		go func(idx int) {
			defer wg.Done()
			_, errs[idx] = env.unitProgress.SubmitAssignment(user.ID, course.ID, "beginner", 1, idx, false)
		}(i)
	}
	wg.Wait()
	for i, err := range errs {
		require.NoError(t, err, "assignment %d", i)
	}

	stored, err := env.unitRepo.Find(user.ID, course.ID, model.Beginner, 1)
	require.NoError(t, err)
	assert.Equal(t, totalAssignments, stored.AssignmentsCompleted)
	assert.Equal(t, model.StatusCompleted, stored.Status)
}

func TestConcurrentSameIndexCountsOnce(t *testing.T) {
	env := newTestEnv(t)
	user := env.createUser(t, model.Student)
	course := env.createCourse(t)
	env.createUnit(t, course.ID, model.Beginner, 1, 4, 0)

	var wg sync.WaitGroup
	const workers = 6
	errs := make([]error, workers)
	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func(idx int) {
			defer wg.Done()
			_, errs[idx] = env.unitProgress.SubmitAssignment(user.ID, course.ID, "beginner", 1, 0, false)
		}(i)
	}
	wg.Wait()
	for _, err := range errs {
		require.NoError(t, err)
	}

	stored, err := env.unitRepo.Find(user.ID, course.ID, model.Beginner, 1)
	require.NoError(t, err)
	assert.Equal(t, 1, stored.AssignmentsCompleted)
	require.Len(t, stored.AssignmentSubmissions, 1)
}
