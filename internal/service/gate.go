package service

import "academician_hub_backend/internal/model"

// EvaluateUnitStatus 计算某单元对调用者呈现的访问状态。纯函数，
// 列表/详情读取路径每次调用，绝不写台账。
//
// 规则：
//   - 管理员：有记录用记录状态，否则 unlocked（绕过前置检查但不掩盖真实进度）；
//   - 序号 1：已完成显示 completed，否则 unlocked；
//   - 其余：前置单元 completed 时用自身记录状态（无记录为 unlocked），
//     否则一律 locked——前置回退时锁定优先于任何已存状态。
func EvaluateUnitStatus(rec, prev *model.UnitProgress, ordinal int, isAdmin bool) model.UnitStatus {
	if isAdmin {
		if rec != nil {
			return rec.Status
		}
		return model.StatusUnlocked
	}

	if ordinal == 1 {
		if rec != nil && rec.Status == model.StatusCompleted {
			return model.StatusCompleted
		}
		return model.StatusUnlocked
	}

	if prev != nil && prev.Status == model.StatusCompleted {
		if rec != nil {
			return rec.Status
		}
		return model.StatusUnlocked
	}

	return model.StatusLocked
}
