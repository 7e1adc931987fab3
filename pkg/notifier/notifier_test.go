package notifier

import (
	"context"
	"errors"
	"testing"

	"classifieds/pkg/database"
	"classifieds/pkg/logger"
	"classifieds/pkg/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

type MockPublisher struct {
	mock.Mock
}

func (m *MockPublisher) PublishNotificationTask(ctx context.Context, task map[string]interface{}) error {
	args := m.Called(ctx, task)
	return args.Error(0)
}

func TestRecordAndExists(t *testing.T) {
	db, err := database.NewMemoryDB()
	require.NoError(t, err)
	defer database.Close(db)

	n := New(nil, logger.New(), nil)
	productID := "22222222-2222-2222-2222-222222222222"

	exists, err := n.Exists(db, models.NotificationProductExpiring, productID, "seller@example.com")
	require.NoError(t, err)
	assert.False(t, exists)

	require.NoError(t, n.Record(db, &models.Notification{
		Type:           models.NotificationProductExpiring,
		Message:        "expires soon",
		RecipientEmail: "seller@example.com",
		ProductID:      &productID,
	}))

	exists, err = n.Exists(db, models.NotificationProductExpiring, productID, "seller@example.com")
	require.NoError(t, err)
	assert.True(t, exists)

	exists, err = n.Exists(db, models.NotificationProductExpired, productID, "seller@example.com")
	require.NoError(t, err)
	assert.False(t, exists)
}

func TestDispatch_PublishesTasks(t *testing.T) {
	publisher := new(MockPublisher)
	n := New(publisher, logger.New(), nil)
	productID := "p-1"

	publisher.On("PublishNotificationTask", mock.Anything, mock.MatchedBy(func(task map[string]interface{}) bool {
		return task["type"] == "PRODUCT_APPROVED" && task["product_id"] == "p-1" && task["user_id"] == "seller-1"
	})).Return(nil).Once()

	n.Dispatch(context.Background(), models.Notification{
		ID:             "n-1",
		Type:           models.NotificationProductApproved,
		UserID:         "seller-1",
		RecipientEmail: "seller@example.com",
		ProductID:      &productID,
	})

	publisher.AssertExpectations(t)
}

func TestDispatch_PublishFailureIsSwallowed(t *testing.T) {
	publisher := new(MockPublisher)
	n := New(publisher, logger.New(), nil)

	publisher.On("PublishNotificationTask", mock.Anything, mock.Anything).Return(errors.New("channel closed")).Twice()

	assert.NotPanics(t, func() {
		n.Dispatch(context.Background(),
			models.Notification{ID: "n-1", Type: models.NotificationProductExpired},
			models.Notification{ID: "n-2", Type: models.NotificationProductExpired},
		)
	})
	publisher.AssertExpectations(t)
}

func TestDispatch_NilPublisher(t *testing.T) {
	n := New(nil, logger.New(), nil)
	assert.NotPanics(t, func() {
		n.Dispatch(context.Background(), models.Notification{ID: "n-1"})
	})
}
