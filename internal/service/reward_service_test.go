package service

import (
	"academician_hub_backend/internal/config"
	"academician_hub_backend/internal/model"
	"academician_hub_backend/internal/util"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLevelForXP(t *testing.T) {
	env := newTestEnv(t)

	tests := []struct {
		xp   int
		want int
	}{
		{0, 1},
		{99, 1},
		{100, 2},
		{150, 2},
		{249, 3},
		{1000, 11},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, env.reward.LevelForXP(tt.xp), "xp=%d", tt.xp)
	}
}

func TestAddXPAccumulatesAndLevelsUp(t *testing.T) {
	env := newTestEnv(t)
	user := env.createUser(t, model.Student)

	res, err := env.reward.AddXP(user.ID, 40)
	require.NoError(t, err)
	assert.Equal(t, 40, res.NewTotalXP)
	assert.Equal(t, 1, res.NewLevel)
	assert.False(t, res.LeveledUp)

	res, err = env.reward.AddXP(user.ID, 60)
	require.NoError(t, err)
	assert.Equal(t, 100, res.NewTotalXP)
	assert.Equal(t, 2, res.NewLevel)
	assert.True(t, res.LeveledUp)

	// 等级落库，后续读取一致
	refreshed, err := env.userRepo.FindByID(user.ID)
	require.NoError(t, err)
	assert.Equal(t, 2, refreshed.Level)

	// 同级内加分不触发升级
	res, err = env.reward.AddXP(user.ID, 10)
	require.NoError(t, err)
	assert.Equal(t, 2, res.NewLevel)
	assert.False(t, res.LeveledUp)
}

func TestAddXPUnknownUser(t *testing.T) {
	env := newTestEnv(t)

	_, err := env.reward.AddXP(9999, 50)
	assert.Error(t, err)
}

func TestRewardServiceToleratesMissingRedis(t *testing.T) {
	env := newTestEnv(t)
	user := env.createUser(t, model.Student)

	// Redis 不可用时事件广播静默降级，补偿入队显式报不可用
	env.reward.NotifyUnitCompleted(user.ID, 1, "beginner", 2)
	err := env.reward.QueuePendingReward(user.ID, 50, "lesson-completion")
	assert.ErrorIs(t, err, util.ErrRewardAccrualUnavailable)
	assert.NoError(t, env.reward.ProcessPendingRewards())
}

func TestRewardConfigHotSwap(t *testing.T) {
	env := newTestEnv(t)

	assert.Equal(t, 70, env.reward.Config().PassingScore)

	updated := config.RewardConfig{LessonXP: 80, PassingScore: 60, XPPerLevel: 200, RetryIntervalSecs: 30}
	env.reward.UpdateConfig(updated)

	assert.Equal(t, 60, env.reward.Config().PassingScore)
	assert.Equal(t, 2, env.reward.LevelForXP(200))
}
