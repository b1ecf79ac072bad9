package task

import (
	"context"
	"time"

	"go.uber.org/zap"
)

// ==================== TaskManager 后台任务管理器 ====================

// TaskManager 统一管理后台任务
type TaskManager struct {
	cleanupTask *SessionCleanupTask
	logger      *zap.Logger
}

// TaskManagerDeps 任务管理器依赖
type TaskManagerDeps struct {
	Sessions SessionCleaner
	Attempts AttemptExpirer
	Limiter  LimiterSweeper
	Logger   *zap.Logger
}

// TaskManagerConfig 任务管理器配置
type TaskManagerConfig struct {
	CleanupEnabled bool
	CleanupSpec    string
}

// DefaultConfig 默认配置
func DefaultConfig() *TaskManagerConfig {
	return &TaskManagerConfig{
		CleanupEnabled: true,
		CleanupSpec:    DefaultCleanupSpec,
	}
}

// NewTaskManager 创建任务管理器
func NewTaskManager(deps *TaskManagerDeps, cfg *TaskManagerConfig) *TaskManager {
	if cfg == nil {
		cfg = DefaultConfig()
	}
	logger := deps.Logger
	if logger == nil {
		logger = zap.NewNop()
	}

	tm := &TaskManager{logger: logger}

	if cfg.CleanupEnabled && (deps.Sessions != nil || deps.Attempts != nil) {
		tm.cleanupTask = NewSessionCleanupTask(deps.Sessions, deps.Attempts, cfg.CleanupSpec, logger)
		if deps.Limiter != nil {
			tm.cleanupTask.SetLimiterSweeper(deps.Limiter)
		}
	}

	return tm
}

// ==================== 生命周期管理 ====================

// Start 启动所有任务
func (tm *TaskManager) Start() error {
	tm.logger.Info("[TaskManager] 正在启动后台任务...")

	if tm.cleanupTask != nil {
		if err := tm.cleanupTask.Start(); err != nil {
			return err
		}
	}

	tm.logger.Info("[TaskManager] 后台任务已全部启动")
	return nil
}

// Stop 停止所有任务
func (tm *TaskManager) Stop() {
	tm.logger.Info("[TaskManager] 正在停止后台任务...")

	if tm.cleanupTask != nil {
		tm.cleanupTask.Stop()
	}

	tm.logger.Info("[TaskManager] 后台任务已全部停止")
}

// ==================== 手动触发接口 ====================

// TriggerCleanup 立即执行一次清理
func (tm *TaskManager) TriggerCleanup(ctx context.Context) (*CleanupResult, error) {
	if tm.cleanupTask == nil {
		return nil, ErrTaskDisabled
	}
	ctx, cancel := context.WithTimeout(ctx, 5*time.Minute)
	defer cancel()
	return tm.cleanupTask.RunOnce(ctx)
}

// ==================== 状态查询 ====================

// Status 获取任务状态
func (tm *TaskManager) Status() map[string]bool {
	return map[string]bool{
		"session_cleanup": tm.cleanupTask != nil,
	}
}

// ==================== 错误定义 ====================

type TaskError string

func (e TaskError) Error() string { return string(e) }

const (
	ErrTaskDisabled TaskError = "task is disabled"
)
