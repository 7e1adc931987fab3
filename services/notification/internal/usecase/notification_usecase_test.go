package usecase

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"classifieds/pkg/apperr"
	"classifieds/pkg/database"
	"classifieds/pkg/logger"
	"classifieds/pkg/models"
	"classifieds/pkg/pagination"
	"classifieds/services/notification/internal/repo/persistent"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
)

type memoryInbox struct {
	mu      sync.Mutex
	lists   map[string][]string
	subs    map[string][]chan string
	failing bool
}

func newMemoryInbox() *memoryInbox {
	return &memoryInbox{lists: map[string][]string{}, subs: map[string][]chan string{}}
}

func (i *memoryInbox) Push(ctx context.Context, userID string, payload []byte) error {
	i.mu.Lock()
	defer i.mu.Unlock()
	if i.failing {
		return errors.New("redis down")
	}
	list := append([]string{string(payload)}, i.lists[userID]...)
	if len(list) > 100 {
		list = list[:100]
	}
	i.lists[userID] = list
	for _, ch := range i.subs[userID] {
		ch <- string(payload)
	}
	return nil
}

func (i *memoryInbox) Range(ctx context.Context, userID string, offset, limit int) ([]string, int64, error) {
	i.mu.Lock()
	defer i.mu.Unlock()
	list := i.lists[userID]
	if offset >= len(list) {
		return nil, int64(len(list)), nil
	}
	end := offset + limit
	if end > len(list) {
		end = len(list)
	}
	return list[offset:end], int64(len(list)), nil
}

func (i *memoryInbox) Subscribe(ctx context.Context, userID string) (<-chan string, func() error) {
	i.mu.Lock()
	defer i.mu.Unlock()
	ch := make(chan string, 10)
	i.subs[userID] = append(i.subs[userID], ch)
	return ch, func() error { return nil }
}

func setup(t *testing.T) (NotificationUseCase, *gorm.DB, *memoryInbox) {
	t.Helper()
	db, err := database.NewMemoryDB()
	require.NoError(t, err)
	t.Cleanup(func() { database.Close(db) })

	inbox := newMemoryInbox()
	return NewNotificationUseCase(persistent.NewNotificationRepository(db), inbox, logger.New(), nil), db, inbox
}

func task(userID string, notificationType models.NotificationType, message string) map[string]interface{} {
	return map[string]interface{}{
		"id":              "n-" + message,
		"type":            string(notificationType),
		"user_id":         userID,
		"recipient_email": "seller@example.com",
		"product_id":      "p-1",
		"message":         message,
		"priority":        float64(3),
		"created_at":      "2026-03-01T12:00:00.5Z",
	}
}

func TestHandleTask_DeliversToInbox(t *testing.T) {
	uc, _, inbox := setup(t)
	ctx := context.Background()
	live, stop := uc.Subscribe(ctx, "u-1")
	defer stop()

	require.NoError(t, uc.HandleTask(ctx, task("u-1", models.NotificationProductApproved, "first")))
	require.NoError(t, uc.HandleTask(ctx, task("u-1", models.NotificationProductExpiring, "second")))

	items, total, err := uc.GetInbox(ctx, "u-1", 0, 0)
	require.NoError(t, err)
	assert.Equal(t, int64(2), total)
	require.Len(t, items, 2)
	assert.Equal(t, "second", items[0].Message)
	assert.Equal(t, models.NotificationProductExpiring, items[0].Type)
	assert.Equal(t, "p-1", items[1].ProductID)
	assert.True(t, items[1].CreatedAt.Equal(time.Date(2026, 3, 1, 12, 0, 0, 500000000, time.UTC)))

	select {
	case payload := <-live:
		assert.Contains(t, payload, `"message":"first"`)
	default:
		t.Fatal("expected a live notification")
	}
	assert.Empty(t, inbox.lists["u-2"])
}

func TestHandleTask_DropsMalformed(t *testing.T) {
	uc, _, inbox := setup(t)
	ctx := context.Background()

	bad := []map[string]interface{}{
		task("u-1", "NEW_POST", "x"),
		task("", models.NotificationProductApproved, "x"),
		task("u-1", models.NotificationProductApproved, ""),
		{},
	}
	for _, tk := range bad {
		assert.NoError(t, uc.HandleTask(ctx, tk))
	}
	assert.Empty(t, inbox.lists)
}

func TestHandleTask_StorageFailureIsRetried(t *testing.T) {
	uc, _, inbox := setup(t)
	inbox.failing = true

	err := uc.HandleTask(context.Background(), task("u-1", models.NotificationProductRejected, "no"))
	assert.Error(t, err)
}

func TestGetInbox_Paging(t *testing.T) {
	uc, _, _ := setup(t)
	ctx := context.Background()
	for _, msg := range []string{"a", "b", "c"} {
		require.NoError(t, uc.HandleTask(ctx, task("u-1", models.NotificationProductExpired, msg)))
	}

	items, total, err := uc.GetInbox(ctx, "u-1", 1, 1)
	require.NoError(t, err)
	assert.Equal(t, int64(3), total)
	require.Len(t, items, 1)
	assert.Equal(t, "b", items[0].Message)

	items, _, err = uc.GetInbox(ctx, "u-1", 10, 5)
	require.NoError(t, err)
	assert.Empty(t, items)
}

func TestGetHistory(t *testing.T) {
	uc, db, _ := setup(t)
	ctx := context.Background()

	user := &models.User{Email: "seller@example.com", Password: "x", IsActive: true}
	require.NoError(t, db.Create(user).Error)
	other := &models.User{Email: "other@example.com", Password: "x", IsActive: true}
	require.NoError(t, db.Create(other).Error)

	base := time.Date(2026, 3, 1, 0, 0, 0, 0, time.UTC)
	rows := []models.Notification{
		{Type: models.NotificationProductApproved, Message: "by id", UserID: user.ID, RecipientEmail: "old@example.com", CreatedAt: base},
		{Type: models.NotificationProductExpired, Message: "by email", RecipientEmail: user.Email, CreatedAt: base.Add(time.Hour)},
		{Type: models.NotificationProductExpired, Message: "not mine", UserID: other.ID, RecipientEmail: other.Email, CreatedAt: base.Add(2 * time.Hour)},
	}
	for i := range rows {
		require.NoError(t, db.Create(&rows[i]).Error)
	}

	items, meta, err := uc.GetHistory(ctx, user.ID, pagination.Params{Page: 1, Limit: 20})
	require.NoError(t, err)
	assert.Equal(t, int64(2), meta.Total)
	require.Len(t, items, 2)
	assert.Equal(t, "by email", items[0].Message)
	assert.Equal(t, "by id", items[1].Message)

	_, _, err = uc.GetHistory(ctx, "11111111-1111-1111-1111-111111111111", pagination.Params{Page: 1, Limit: 20})
	assert.ErrorIs(t, err, apperr.ErrNotFound)
}
