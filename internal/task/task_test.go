package task

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"
	"gorm.io/datatypes"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"songgift_backend/internal/model"
	"songgift_backend/internal/repository"
	"songgift_backend/internal/service"
	"songgift_backend/pkg/database"
)

var testNow = time.Date(2026, 6, 1, 9, 0, 0, 0, time.UTC)

// ==================== 辅助函数 ====================

func setupTaskTestDB(t *testing.T) *gorm.DB {
	db, err := database.Open(database.Options{Driver: "sqlite", DSN: ":memory:", LogLevel: logger.Silent})
	if err != nil {
		t.Fatalf("连接测试数据库失败: %v", err)
	}
	if err := database.Migrate(db, model.All()...); err != nil {
		t.Fatalf("数据库迁移失败: %v", err)
	}
	t.Cleanup(func() { database.Close(db) })
	return db
}

type failingCleaner struct{}

func (failingCleaner) CleanupExpired(context.Context) (int64, error) {
	return 0, errors.New("db down")
}

type countingSweeper struct{ calls int }

func (s *countingSweeper) Sweep(time.Duration) int {
	s.calls++
	return 2
}

// ==================== 测试 ====================

func TestSessionCleanupTask_RunOnce(t *testing.T) {
	db := setupTaskTestDB(t)
	ctx := context.Background()
	sessionRepo := repository.NewSessionDataRepository(db)
	attemptRepo := repository.NewCheckoutAttemptRepository(db)

	for id, exp := range map[string]time.Time{
		"old":   testNow.Add(-time.Minute),
		"fresh": testNow.Add(time.Hour),
	} {
		require.NoError(t, sessionRepo.Upsert(ctx, &model.SessionData{SessionID: id, IntakePayload: datatypes.JSON(`{}`), ExpiresAt: exp}))
	}
	require.NoError(t, attemptRepo.Create(ctx, &model.CheckoutAttempt{
		StripeCheckoutSessionID: "cs_stale", SessionID: "old", Status: model.CheckoutAttemptOpen, ExpiresAt: testNow.Add(-time.Hour),
	}))
	require.NoError(t, attemptRepo.Create(ctx, &model.CheckoutAttempt{
		StripeCheckoutSessionID: "cs_open", SessionID: "fresh", Status: model.CheckoutAttemptOpen, ExpiresAt: testNow.Add(time.Hour),
	}))

	sessions := service.NewSessionService(sessionRepo, time.Hour, service.FixedClock(testNow), nil)
	task := NewSessionCleanupTask(sessions, attemptRepo, "", zaptest.NewLogger(t))
	task.now = func() time.Time { return testNow }
	sweeper := &countingSweeper{}
	task.SetLimiterSweeper(sweeper)

	res, err := task.RunOnce(ctx)
	require.NoError(t, err)
	assert.Equal(t, int64(1), res.Sessions)
	assert.Equal(t, int64(1), res.Attempts)
	assert.Equal(t, 2, res.Limiters)
	assert.Equal(t, 1, sweeper.calls)

	_, err = sessionRepo.GetBySessionID(ctx, "old")
	assert.ErrorIs(t, err, gorm.ErrRecordNotFound)
	_, err = sessionRepo.GetBySessionID(ctx, "fresh")
	assert.NoError(t, err)

	stale, err := attemptRepo.GetByStripeSessionID(ctx, "cs_stale")
	require.NoError(t, err)
	assert.Equal(t, model.CheckoutAttemptExpired, stale.Status)
	open, err := attemptRepo.GetByStripeSessionID(ctx, "cs_open")
	require.NoError(t, err)
	assert.Equal(t, model.CheckoutAttemptOpen, open.Status)

	// 再跑一次没有可清理的
	res, err = task.RunOnce(ctx)
	require.NoError(t, err)
	assert.Zero(t, res.Sessions)
	assert.Zero(t, res.Attempts)
}

func TestSessionCleanupTask_PartialFailure(t *testing.T) {
	db := setupTaskTestDB(t)
	attemptRepo := repository.NewCheckoutAttemptRepository(db)
	require.NoError(t, attemptRepo.Create(context.Background(), &model.CheckoutAttempt{
		StripeCheckoutSessionID: "cs_stale", SessionID: "s", Status: model.CheckoutAttemptOpen, ExpiresAt: testNow.Add(-time.Hour),
	}))

	task := NewSessionCleanupTask(failingCleaner{}, attemptRepo, "", nil)
	task.now = func() time.Time { return testNow }

	res, err := task.RunOnce(context.Background())
	assert.Error(t, err)
	assert.Equal(t, int64(1), res.Attempts)
}

func TestSessionCleanupTask_StartStop(t *testing.T) {
	task := NewSessionCleanupTask(nil, nil, "*/1 * * * * *", nil)
	require.NoError(t, task.Start())
	task.Stop()

	bad := NewSessionCleanupTask(nil, nil, "not a cron", nil)
	assert.Error(t, bad.Start())
}

func TestTaskManager(t *testing.T) {
	tm := NewTaskManager(&TaskManagerDeps{}, nil)
	_, err := tm.TriggerCleanup(context.Background())
	assert.ErrorIs(t, err, ErrTaskDisabled)
	assert.False(t, tm.Status()["session_cleanup"])
	require.NoError(t, tm.Start())
	tm.Stop()

	db := setupTaskTestDB(t)
	tm = NewTaskManager(&TaskManagerDeps{Attempts: repository.NewCheckoutAttemptRepository(db)}, &TaskManagerConfig{CleanupEnabled: true})
	assert.True(t, tm.Status()["session_cleanup"])
	res, err := tm.TriggerCleanup(context.Background())
	require.NoError(t, err)
	assert.Zero(t, res.Attempts)
}
