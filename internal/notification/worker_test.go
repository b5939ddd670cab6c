package notification

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"net/http"
	"testing"
	"time"

	"github.com/SherClockHolmes/webpush-go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"park-permit-backend/internal/db"
	"park-permit-backend/internal/model"
)

// mockSender is a mock implementation of the NotificationSender interface.
type mockSender struct {
	SendFunc func(payload []byte, sub *webpush.Subscription, options *webpush.Options) (*http.Response, error)
}

// Send calls the mock SendFunc.
func (m *mockSender) Send(payload []byte, sub *webpush.Subscription, options *webpush.Options) (*http.Response, error) {
	return m.SendFunc(payload, sub, options)
}

func respWithStatus(code int) *http.Response {
	return &http.Response{
		StatusCode: code,
		Body:       io.NopCloser(bytes.NewReader(nil)),
	}
}

func newTestDB(t *testing.T) *gorm.DB {
	t.Helper()
	dsn := fmt.Sprintf("file:%s?mode=memory&cache=shared", t.Name())
	gormDB, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	require.NoError(t, err)
	sqlDB, err := gormDB.DB()
	require.NoError(t, err)
	t.Cleanup(func() { sqlDB.Close() })

	require.NoError(t, gormDB.AutoMigrate(&model.PushSubscription{}, &model.SubscriptionArea{}))
	return gormDB
}

func seedSubscription(t *testing.T, gormDB *gorm.DB, endpoint string, areas ...string) {
	t.Helper()
	require.NoError(t, gormDB.Create(&model.PushSubscription{
		Endpoint: endpoint,
		P256DH:   "key",
		Auth:     "auth",
	}).Error)
	for _, area := range areas {
		require.NoError(t, gormDB.Create(&model.SubscriptionArea{
			Endpoint: endpoint,
			AreaName: area,
		}).Error)
	}
}

func TestWorkerPool_NotifiesAreaSubscribersOnly(t *testing.T) {
	gormDB := newTestDB(t)
	seedSubscription(t, gormDB, "https://push.example/erp-subscriber", "ERP")
	seedSubscription(t, gormDB, "https://push.example/other-subscriber", "McCarren")

	var notified []string
	var payloads []string
	wp := NewWorkerPool(1, db.NewHandleFromDB(gormDB), &webpush.Options{})
	wp.SetSender(&mockSender{
		SendFunc: func(payload []byte, sub *webpush.Subscription, options *webpush.Options) (*http.Response, error) {
			notified = append(notified, sub.Endpoint)
			payloads = append(payloads, string(payload))
			return respWithStatus(http.StatusCreated), nil
		},
	})

	wp.sendNotificationsForArea(context.Background(), "ERP")

	require.Equal(t, []string{"https://push.example/erp-subscriber"}, notified)
	assert.Contains(t, payloads[0], "East River Park")
}

func TestWorkerPool_DeletesExpiredSubscription(t *testing.T) {
	gormDB := newTestDB(t)
	seedSubscription(t, gormDB, "https://push.example/expired", "ERP")

	wp := NewWorkerPool(1, db.NewHandleFromDB(gormDB), &webpush.Options{})
	wp.SetSender(&mockSender{
		SendFunc: func(payload []byte, sub *webpush.Subscription, options *webpush.Options) (*http.Response, error) {
			return respWithStatus(http.StatusGone), nil
		},
	})

	wp.sendNotificationsForArea(context.Background(), "ERP")

	var count int64
	require.NoError(t, gormDB.Model(&model.PushSubscription{}).Count(&count).Error)
	assert.Equal(t, int64(0), count)

	// The per-area fan-out rows must not outlive the subscription.
	require.NoError(t, gormDB.Model(&model.SubscriptionArea{}).Count(&count).Error)
	assert.Equal(t, int64(0), count)
}

func TestWorkerPool_DispatchReachesWorkers(t *testing.T) {
	wp := NewWorkerPool(1, nil, nil)

	go wp.Dispatch("ERP")
	assert.Equal(t, "ERP", <-wp.Jobs())
}

func TestWorkerPool_DispatchNeverBlocksWhenSaturated(t *testing.T) {
	// No workers running, so the second job finds the buffer full.
	wp := NewWorkerPool(1, nil, nil)

	done := make(chan struct{})
	go func() {
		wp.Dispatch("ERP")
		wp.Dispatch("McCarren")
		wp.Dispatch("RedHook")
		close(done)
	}()

	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("Dispatch blocked once the buffered channel filled")
	}

	// The first job is queued, the overflow is dropped.
	assert.Len(t, wp.Jobs(), 1)
	assert.Equal(t, "ERP", <-wp.Jobs())
}
