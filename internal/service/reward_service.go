package service

import (
	"academician_hub_backend/internal/config"
	"academician_hub_backend/internal/repository"
	"academician_hub_backend/internal/util"
	"academician_hub_backend/pkg/logger"
	"academician_hub_backend/pkg/monitoring"
	"context"
	"encoding/json"
	"sync"
	"time"

	"github.com/go-redis/redis/v8"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

const (
	levelUpChannel       = "user:levelup"
	unitCompletedChannel = "unit:completed"
	pendingRewardQueue   = "reward:pending"
)

// RewardService 身份/奖励台账的写侧边界：XP 原子累加、等级重算、
// 升级与单元完成事件广播。记账失败进入 redis 重试队列，
// 绝不回滚已提交的进度台账。
type RewardService struct {
	UserRepo *repository.UserRepository
	Redis    *redis.Client

	mu  sync.RWMutex
	cfg config.RewardConfig
}

func NewRewardService(userRepo *repository.UserRepository, rdb *redis.Client, cfg config.RewardConfig) *RewardService {
	return &RewardService{
		UserRepo: userRepo,
		Redis:    rdb,
		cfg:      cfg,
	}
}

// Config 当前奖励参数快照
func (s *RewardService) Config() config.RewardConfig {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.cfg
}

// UpdateConfig 配置热重载入口
func (s *RewardService) UpdateConfig(cfg config.RewardConfig) {
	s.mu.Lock()
	s.cfg = cfg
	s.mu.Unlock()
}

type XPResult struct {
	NewTotalXP int  `json:"newTotalXP"`
	NewLevel   int  `json:"newLevel"`
	LeveledUp  bool `json:"leveledUp"`
}

// EventID 供订阅方去重，广播是 at-least-once 的
type levelUpEvent struct {
	EventID string `json:"eventId"`
	UserID  uint   `json:"userId"`
	Name    string `json:"name"`
	Level   int    `json:"level"`
}

type unitCompletedEvent struct {
	EventID  string `json:"eventId"`
	UserID   uint   `json:"userId"`
	CourseID uint   `json:"courseId"`
	Level    string `json:"level"`
	Ordinal  int    `json:"ordinal"`
}

type pendingReward struct {
	UserID uint   `json:"userId"`
	Amount int    `json:"amount"`
	Reason string `json:"reason"`
}

// AddXP 累加 XP 并重算等级（floor(xp/xpPerLevel)+1）。
// 升级时广播 user:levelup 事件，与同级加分可区分。
func (s *RewardService) AddXP(userID uint, amount int) (*XPResult, error) {
	user, err := s.UserRepo.IncrementXP(userID, amount)
	if err != nil {
		return nil, err
	}

	newLevel := s.LevelForXP(user.XP)
	leveledUp := newLevel > user.Level
	if newLevel != user.Level {
		if err := s.UserRepo.UpdateLevel(userID, newLevel); err != nil {
			return nil, err
		}
	}

	if leveledUp {
		s.publish(levelUpChannel, levelUpEvent{
			EventID: uuid.New().String(),
			UserID:  user.ID,
			Name:    user.Name,
			Level:   newLevel,
		})
	}

	return &XPResult{
		NewTotalXP: user.XP,
		NewLevel:   newLevel,
		LeveledUp:  leveledUp,
	}, nil
}

// NotifyUnitCompleted 单元首次转入 completed 时的尽力而为通知，
// 失败只记日志，不影响调用方。
func (s *RewardService) NotifyUnitCompleted(userID, courseID uint, level string, ordinal int) {
	s.publish(unitCompletedChannel, unitCompletedEvent{
		EventID:  uuid.New().String(),
		UserID:   userID,
		CourseID: courseID,
		Level:    level,
		Ordinal:  ordinal,
	})
}

// QueuePendingReward 记账失败后的 at-least-once 补偿入队。
// 入队也失败时返回 ErrRewardAccrualUnavailable，由调用方决定是否告警。
func (s *RewardService) QueuePendingReward(userID uint, amount int, reason string) error {
	if s.Redis == nil {
		return util.ErrRewardAccrualUnavailable
	}

	payload, err := json.Marshal(pendingReward{UserID: userID, Amount: amount, Reason: reason})
	if err != nil {
		return err
	}

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	if err := s.Redis.RPush(ctx, pendingRewardQueue, payload).Err(); err != nil {
		logger.Log.Error("failed to queue pending reward",
			zap.Uint("userId", userID),
			zap.Int("amount", amount),
			zap.Error(err))
		return util.ErrRewardAccrualUnavailable
	}
	return nil
}

// ProcessPendingRewards 后台定时回放重试队列，仍失败的重新入队
func (s *RewardService) ProcessPendingRewards() error {
	if s.Redis == nil {
		return nil
	}

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	for {
		payload, err := s.Redis.LPop(ctx, pendingRewardQueue).Bytes()
		if err == redis.Nil {
			return nil
		}
		if err != nil {
			return err
		}

		var pending pendingReward
		if err := json.Unmarshal(payload, &pending); err != nil {
			logger.Log.Warn("dropping malformed pending reward", zap.ByteString("payload", payload))
			continue
		}

		if _, err := s.AddXP(pending.UserID, pending.Amount); err != nil {
			logger.Log.Warn("reward replay failed, re-queueing",
				zap.Uint("userId", pending.UserID),
				zap.Error(err))
			s.Redis.RPush(ctx, pendingRewardQueue, payload)
			return err
		}
		monitoring.RewardRetries.Inc()
	}
}

func (s *RewardService) publish(channel string, event interface{}) {
	if s.Redis == nil {
		return
	}

	payload, err := json.Marshal(event)
	if err != nil {
		return
	}

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	if err := s.Redis.Publish(ctx, channel, payload).Err(); err != nil {
		logger.Log.Warn("event publish failed",
			zap.String("channel", channel),
			zap.Error(err))
	}
}

// LevelForXP 等级换算，完成判定与展示共用
func (s *RewardService) LevelForXP(xp int) int {
	return xp/s.Config().XPPerLevel + 1
}
