package task

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/robfig/cron/v3"
	"go.uber.org/zap"
)

// DefaultCleanupSpec 每 30 分钟
const DefaultCleanupSpec = "0 */30 * * * *"

// ==================== 外部服务依赖 ====================

// SessionCleaner 删除过期 intake 副本
type SessionCleaner interface {
	CleanupExpired(ctx context.Context) (int64, error)
}

// AttemptExpirer 标记过期的结账记录
type AttemptExpirer interface {
	ExpireStale(ctx context.Context, now time.Time) (int64, error)
}

// LimiterSweeper 清理限流器中长期不活跃的客户端
type LimiterSweeper interface {
	Sweep(idle time.Duration) int
}

// ==================== SessionCleanupTask ====================

// CleanupResult 单次清理结果
type CleanupResult struct {
	Sessions int64 `json:"sessions"`
	Attempts int64 `json:"attempts"`
	Limiters int   `json:"limiters"`
}

// SessionCleanupTask 定时清理过期数据
type SessionCleanupTask struct {
	sessions SessionCleaner
	attempts AttemptExpirer
	limiter  LimiterSweeper
	spec     string
	now      func() time.Time
	logger   *zap.Logger
	cron     *cron.Cron

	// 同一时刻只跑一次
	running sync.Mutex
}

// NewSessionCleanupTask spec 为空时使用 DefaultCleanupSpec
func NewSessionCleanupTask(sessions SessionCleaner, attempts AttemptExpirer, spec string, logger *zap.Logger) *SessionCleanupTask {
	if spec == "" {
		spec = DefaultCleanupSpec
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &SessionCleanupTask{
		sessions: sessions,
		attempts: attempts,
		spec:     spec,
		now:      time.Now,
		logger:   logger,
		cron:     cron.New(cron.WithSeconds()),
	}
}

// SetLimiterSweeper 顺带清理限流器（可选注入）
func (t *SessionCleanupTask) SetLimiterSweeper(l LimiterSweeper) {
	t.limiter = l
}

// Start 启动定时任务
func (t *SessionCleanupTask) Start() error {
	_, err := t.cron.AddFunc(t.spec, func() {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Minute)
		defer cancel()
		if _, err := t.RunOnce(ctx); err != nil {
			t.logger.Error("[SessionCleanupTask] 清理失败", zap.Error(err))
		}
	})
	if err != nil {
		return err
	}

	t.cron.Start()
	t.logger.Info("[SessionCleanupTask] 已启动", zap.String("spec", t.spec))
	return nil
}

// Stop 等待正在执行的任务结束
func (t *SessionCleanupTask) Stop() {
	ctx := t.cron.Stop()
	<-ctx.Done()
	t.logger.Info("[SessionCleanupTask] 已停止")
}

// RunOnce 执行一次清理，单项失败不影响其他项
func (t *SessionCleanupTask) RunOnce(ctx context.Context) (*CleanupResult, error) {
	t.running.Lock()
	defer t.running.Unlock()

	var (
		result CleanupResult
		errs   []error
	)

	if t.sessions != nil {
		n, err := t.sessions.CleanupExpired(ctx)
		if err != nil {
			errs = append(errs, err)
		}
		result.Sessions = n
	}

	if t.attempts != nil {
		n, err := t.attempts.ExpireStale(ctx, t.now())
		if err != nil {
			errs = append(errs, err)
		}
		result.Attempts = n
	}

	if t.limiter != nil {
		result.Limiters = t.limiter.Sweep(time.Hour)
	}

	t.logger.Info("[SessionCleanupTask] 清理完成",
		zap.Int64("sessions", result.Sessions),
		zap.Int64("attempts", result.Attempts),
		zap.Int("limiters", result.Limiters),
	)
	return &result, errors.Join(errs...)
}
