package usecase

import (
	"context"
	"testing"
	"time"

	"classifieds/pkg/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func (f *fixture) setExpiry(t *testing.T, productID string, expiresAt time.Time) {
	t.Helper()
	require.NoError(t, f.db.Model(&models.Product{}).Where("id = ?", productID).Update("expires_at", expiresAt).Error)
}

func (f *fixture) status(t *testing.T, productID string) models.ProductStatus {
	t.Helper()
	var p models.Product
	require.NoError(t, f.db.First(&p, "id = ?", productID).Error)
	return p.Status
}

func TestExpireOldProducts(t *testing.T) {
	f := setup(t)
	seller := f.seller(t, 0, false)
	ctx := context.Background()

	due := f.approved(t, seller.ID)
	f.setExpiry(t, due.ID, f.now.Add(-time.Minute))
	boundary := f.approved(t, seller.ID)
	f.setExpiry(t, boundary.ID, f.now)
	live := f.approved(t, seller.ID)
	pending := f.create(t, seller.ID)

	result, err := f.sweeper.ExpireOldProducts(ctx, f.now)
	require.NoError(t, err)
	assert.Equal(t, 2, result.Expired)

	assert.Equal(t, models.StatusExpired, f.status(t, due.ID))
	assert.Equal(t, models.StatusExpired, f.status(t, boundary.ID))
	assert.Equal(t, models.StatusApproved, f.status(t, live.ID))
	assert.Equal(t, models.StatusPending, f.status(t, pending.ID))

	ns := f.notifications(t, due.ID, models.NotificationProductExpired)
	require.Len(t, ns, 1)
	assert.Equal(t, seller.Email, ns[0].RecipientEmail)

	again, err := f.sweeper.ExpireOldProducts(ctx, f.now)
	require.NoError(t, err)
	assert.Zero(t, again.Expired)
	assert.Len(t, f.notifications(t, due.ID, models.NotificationProductExpired), 1)
}

func TestExpireOldProducts_ClearsLapsedVip(t *testing.T) {
	f := setup(t)
	seller := f.seller(t, 0, false)
	ctx := context.Background()

	lapsed := f.approved(t, seller.ID)
	active := f.approved(t, seller.ID)
	pendingLapsed := f.create(t, seller.ID)

	require.NoError(t, f.db.Model(&models.Product{}).Where("id IN ?", []string{lapsed.ID, pendingLapsed.ID}).
		Updates(map[string]interface{}{"is_vip": true, "vip_until": f.now.Add(-time.Hour)}).Error)
	require.NoError(t, f.db.Model(&models.Product{}).Where("id = ?", active.ID).
		Updates(map[string]interface{}{"is_vip": true, "vip_until": f.now.Add(time.Hour)}).Error)

	result, err := f.sweeper.ExpireOldProducts(ctx, f.now)
	require.NoError(t, err)
	assert.Zero(t, result.Expired)
	assert.Equal(t, int64(2), result.VipCleared)

	var products []models.Product
	require.NoError(t, f.db.Find(&products).Error)
	for _, p := range products {
		assert.Equal(t, p.ID == active.ID, p.IsVip, p.ID)
	}
}

func TestNotifyExpiringProducts(t *testing.T) {
	f := setup(t)
	seller := f.seller(t, 0, false)
	ctx := context.Background()

	soon := f.approved(t, seller.ID)
	f.setExpiry(t, soon.ID, f.now.Add(12*time.Hour))
	edge := f.approved(t, seller.ID)
	f.setExpiry(t, edge.ID, f.now.Add(24*time.Hour))
	later := f.approved(t, seller.ID)
	f.setExpiry(t, later.ID, f.now.Add(25*time.Hour))
	already := f.approved(t, seller.ID)
	f.setExpiry(t, already.ID, f.now)

	notified, err := f.sweeper.NotifyExpiringProducts(ctx, f.now)
	require.NoError(t, err)
	assert.Equal(t, 2, notified)

	assert.Len(t, f.notifications(t, soon.ID, models.NotificationProductExpiring), 1)
	assert.Len(t, f.notifications(t, edge.ID, models.NotificationProductExpiring), 1)
	assert.Empty(t, f.notifications(t, later.ID, models.NotificationProductExpiring))
	assert.Empty(t, f.notifications(t, already.ID, models.NotificationProductExpiring))

	again, err := f.sweeper.NotifyExpiringProducts(ctx, f.now.Add(30*time.Minute))
	require.NoError(t, err)
	assert.Zero(t, again)
	assert.Len(t, f.notifications(t, soon.ID, models.NotificationProductExpiring), 1)
}
