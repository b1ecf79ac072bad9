package repository

import (
	"context"
	"errors"
	"testing"
	"time"

	"songgift_backend/internal/model"
	"songgift_backend/pkg/database"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/datatypes"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

func setupTestDB(t *testing.T) *gorm.DB {
	db, err := database.Open(database.Options{
		Driver:   "sqlite",
		DSN:      ":memory:",
		LogLevel: logger.Silent,
	})
	if err != nil {
		t.Fatalf("连接测试数据库失败: %v", err)
	}
	if err := database.Migrate(db, model.All()...); err != nil {
		t.Fatalf("数据库迁移失败: %v", err)
	}
	t.Cleanup(func() { database.Close(db) })
	return db
}

func newTestOrder(stripeID, trackingID string) *model.Order {
	now := time.Date(2026, 5, 1, 9, 0, 0, 0, time.UTC)
	return &model.Order{
		TrackingID:              trackingID,
		PaidAt:                  now,
		CustomerEmail:           "a@b.com",
		AmountPaid:              11800,
		Currency:                "usd",
		DeliverySpeed:           model.DeliveryExpress,
		ExpectedDeliveryAt:      now.AddDate(0, 0, 1),
		OrderStatus:             model.OrderStatusPaid,
		IntakePayload:           datatypes.JSON(`{"recipientName":"Maria"}`),
		MusicStyle:              datatypes.JSONSlice[string]{"acoustic", "gospel"},
		StripeCheckoutSessionID: stripeID,
	}
}

// ==================== Order ====================

func TestOrderRepo_CreateAndGet(t *testing.T) {
	db := setupTestDB(t)
	repo := NewOrderRepository(db)
	ctx := context.Background()

	order := newTestOrder("cs_test_1", "SG-ABCDEFGH")
	require.NoError(t, repo.Create(ctx, order))
	assert.NotZero(t, order.ID)

	got, err := repo.GetByTrackingID(ctx, "SG-ABCDEFGH")
	require.NoError(t, err)
	assert.Equal(t, "cs_test_1", got.StripeCheckoutSessionID)
	assert.Equal(t, []string{"acoustic", "gospel"}, []string(got.MusicStyle))
	assert.JSONEq(t, `{"recipientName":"Maria"}`, string(got.IntakePayload))
	assert.Equal(t, 118.0, got.GetAmountPaid())

	got, err = repo.GetByStripeSessionID(ctx, "cs_test_1")
	require.NoError(t, err)
	assert.Equal(t, "SG-ABCDEFGH", got.TrackingID)

	_, err = repo.GetByTrackingID(ctx, "SG-00000000")
	assert.True(t, errors.Is(err, gorm.ErrRecordNotFound))
}

func TestOrderRepo_UniqueStripeSession(t *testing.T) {
	db := setupTestDB(t)
	repo := NewOrderRepository(db)
	ctx := context.Background()

	require.NoError(t, repo.Create(ctx, newTestOrder("cs_dup", "SG-AAAAAAAA")))

	exists, err := repo.ExistsByStripeSessionID(ctx, "cs_dup")
	require.NoError(t, err)
	assert.True(t, exists)

	exists, err = repo.ExistsByStripeSessionID(ctx, "cs_other")
	require.NoError(t, err)
	assert.False(t, exists)

	err = repo.Create(ctx, newTestOrder("cs_dup", "SG-BBBBBBBB"))
	assert.True(t, errors.Is(err, gorm.ErrDuplicatedKey), "got %v", err)

	n, err := repo.Count(ctx)
	require.NoError(t, err)
	assert.Equal(t, int64(1), n)
}

// ==================== SessionData ====================

func TestSessionDataRepo_Upsert(t *testing.T) {
	db := setupTestDB(t)
	repo := NewSessionDataRepository(db)
	ctx := context.Background()
	exp := time.Now().Add(time.Hour)

	require.NoError(t, repo.Upsert(ctx, &model.SessionData{
		SessionID:     "sess-1",
		IntakePayload: datatypes.JSON(`{"v":1}`),
		CustomerEmail: "old@b.com",
		ExpiresAt:     exp,
	}))
	require.NoError(t, repo.Upsert(ctx, &model.SessionData{
		SessionID:     "sess-1",
		IntakePayload: datatypes.JSON(`{"v":2}`),
		CustomerEmail: "a@b.com",
		ExpiresAt:     exp,
	}))

	got, err := repo.GetBySessionID(ctx, "sess-1")
	require.NoError(t, err)
	assert.JSONEq(t, `{"v":2}`, string(got.IntakePayload))
	assert.Equal(t, "a@b.com", got.CustomerEmail)

	var n int64
	db.Model(&model.SessionData{}).Count(&n)
	assert.Equal(t, int64(1), n)

	require.NoError(t, repo.DeleteBySessionID(ctx, "sess-1"))
	_, err = repo.GetBySessionID(ctx, "sess-1")
	assert.True(t, errors.Is(err, gorm.ErrRecordNotFound))
}

func TestSessionDataRepo_DeleteExpired(t *testing.T) {
	db := setupTestDB(t)
	repo := NewSessionDataRepository(db)
	ctx := context.Background()
	now := time.Date(2026, 5, 1, 12, 0, 0, 0, time.UTC)

	for id, exp := range map[string]time.Time{
		"old":   now.Add(-time.Minute),
		"edge":  now,
		"fresh": now.Add(time.Minute),
	} {
		require.NoError(t, repo.Upsert(ctx, &model.SessionData{
			SessionID: id, IntakePayload: datatypes.JSON(`{}`), ExpiresAt: exp,
		}))
	}

	n, err := repo.DeleteExpired(ctx, now)
	require.NoError(t, err)
	assert.Equal(t, int64(2), n)

	_, err = repo.GetBySessionID(ctx, "fresh")
	assert.NoError(t, err)
}

// ==================== CheckoutAttempt ====================

func TestCheckoutAttemptRepo(t *testing.T) {
	db := setupTestDB(t)
	repo := NewCheckoutAttemptRepository(db)
	ctx := context.Background()
	now := time.Date(2026, 5, 1, 12, 0, 0, 0, time.UTC)

	require.NoError(t, repo.Create(ctx, &model.CheckoutAttempt{
		StripeCheckoutSessionID: "cs_open",
		SessionID:               "sess-1",
		Status:                  model.CheckoutAttemptOpen,
		ExpiresAt:               now.Add(time.Hour),
	}))
	require.NoError(t, repo.Create(ctx, &model.CheckoutAttempt{
		StripeCheckoutSessionID: "cs_stale",
		SessionID:               "sess-2",
		Status:                  model.CheckoutAttemptOpen,
		ExpiresAt:               now.Add(-time.Hour),
	}))

	require.NoError(t, repo.MarkCompleted(ctx, "cs_open", now))
	got, err := repo.GetByStripeSessionID(ctx, "cs_open")
	require.NoError(t, err)
	assert.Equal(t, model.CheckoutAttemptCompleted, got.Status)
	require.NotNil(t, got.CompletedAt)

	n, err := repo.ExpireStale(ctx, now)
	require.NoError(t, err)
	assert.Equal(t, int64(1), n)

	got, err = repo.GetByStripeSessionID(ctx, "cs_stale")
	require.NoError(t, err)
	assert.Equal(t, model.CheckoutAttemptExpired, got.Status)
}

// ==================== Newsletter ====================

func TestNewsletterRepo_Duplicate(t *testing.T) {
	db := setupTestDB(t)
	repo := NewNewsletterRepository(db)
	ctx := context.Background()

	require.NoError(t, repo.Create(ctx, &model.NewsletterSubscriber{Email: "a@b.com", Source: model.NewsletterSourceSite}))

	err := repo.Create(ctx, &model.NewsletterSubscriber{Email: "a@b.com"})
	assert.True(t, errors.Is(err, gorm.ErrDuplicatedKey), "got %v", err)

	sub, err := repo.GetByEmail(ctx, "a@b.com")
	require.NoError(t, err)
	assert.Equal(t, "/", sub.PagePath)
}
