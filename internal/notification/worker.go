package notification

import (
	"context"
	"fmt"
	"log"
	"net/http"

	"github.com/SherClockHolmes/webpush-go"
	"gorm.io/gorm"

	"park-permit-backend/internal/catalog"
	"park-permit-backend/internal/db"
	"park-permit-backend/internal/model"
)

// NotificationSender defines the interface for sending a web push notification.
type NotificationSender interface {
	Send(payload []byte, sub *webpush.Subscription, options *webpush.Options) (*http.Response, error)
}

// WebPushSender is a real implementation of NotificationSender using the webpush library.
type WebPushSender struct{}

// Send sends a notification using the webpush library.
func (s *WebPushSender) Send(payload []byte, sub *webpush.Subscription, options *webpush.Options) (*http.Response, error) {
	return webpush.SendNotification(payload, sub, options)
}

// WorkerPool manages a pool of workers for sending "area updated" notifications.
type WorkerPool struct {
	size    int
	jobs    chan string
	dbh     *db.Handle
	webpush *webpush.Options
	sender  NotificationSender
}

// NewWorkerPool creates a new worker pool. Jobs are area names.
func NewWorkerPool(size int, dbh *db.Handle, webpushOptions *webpush.Options) *WorkerPool {
	return &WorkerPool{
		size:    size,
		jobs:    make(chan string, size), // Buffered channel
		dbh:     dbh,
		webpush: webpushOptions,
		sender:  &WebPushSender{}, // Use the real sender by default
	}
}

// SetSender replaces the sender, for tests.
func (wp *WorkerPool) SetSender(s NotificationSender) {
	wp.sender = s
}

// Start launches the worker goroutines.
func (wp *WorkerPool) Start(ctx context.Context) {
	for i := 0; i < wp.size; i++ {
		go wp.worker(ctx, i)
	}
}

// worker is the actual worker goroutine.
func (wp *WorkerPool) worker(ctx context.Context, id int) {
	log.Printf("Worker %d started", id)
	for {
		select {
		case areaName := <-wp.jobs:
			log.Printf("Worker %d processing area %s", id, areaName)
			wp.sendNotificationsForArea(ctx, areaName)
		case <-ctx.Done():
			log.Printf("Worker %d shutting down", id)
			return
		}
	}
}

// Dispatch queues a job without blocking the caller. When the pool is
// saturated or not running the job is dropped; the area's next refresh will
// dispatch again.
func (wp *WorkerPool) Dispatch(areaName string) {
	select {
	case wp.jobs <- areaName:
	default:
		log.Printf("Notification queue is full, dropping job for area %s", areaName)
	}
}

// Jobs returns the jobs channel for testing.
func (wp *WorkerPool) Jobs() chan string {
	return wp.jobs
}

// sendNotificationsForArea fetches subscriptions and sends notifications for a given area.
func (wp *WorkerPool) sendNotificationsForArea(ctx context.Context, areaName string) {
	gdb, err := wp.dbh.Get(ctx)
	if err != nil {
		log.Printf("Error getting database handle: %v", err)
		return
	}

	var subscriptions []model.PushSubscription
	err = gdb.WithContext(ctx).
		Joins("JOIN subscription_areas sa ON sa.endpoint = push_subscriptions.endpoint").
		Where("sa.area_name = ?", areaName).
		Find(&subscriptions).Error
	if err != nil {
		log.Printf("Error fetching subscriptions for area %s: %v", areaName, err)
		return
	}

	if len(subscriptions) == 0 {
		return
	}

	log.Printf("Sending %d notifications for area %s", len(subscriptions), areaName)

	areaLabel := areaName
	if area, ok := catalog.AreaByName(areaName); ok {
		areaLabel = area.DisplayName
	}

	message := fmt.Sprintf("Field permits updated for %s", areaLabel)
	for _, sub := range subscriptions {
		wp.sendNotification(ctx, gdb, sub, []byte(message))
	}
}

// sendNotification sends a single web push notification.
func (wp *WorkerPool) sendNotification(ctx context.Context, gdb *gorm.DB, sub model.PushSubscription, payload []byte) {
	// Manually construct the webpush.Subscription object
	wpSub := &webpush.Subscription{
		Endpoint: sub.Endpoint,
		Keys: webpush.Keys{
			P256dh: sub.P256DH,
			Auth:   sub.Auth,
		},
	}

	resp, err := wp.sender.Send(payload, wpSub, wp.webpush)
	if err != nil {
		log.Printf("Error sending notification to %s: %v", sub.Endpoint, err)
		return
	}
	defer resp.Body.Close()

	// Handle expired subscriptions
	if resp.StatusCode == http.StatusGone {
		log.Printf("Subscription for endpoint %s is expired. Deleting.", sub.Endpoint)
		// SQLite does not enforce the cascade, so the fan-out rows are
		// removed explicitly.
		if err := gdb.WithContext(ctx).Where("endpoint = ?", sub.Endpoint).Delete(&model.SubscriptionArea{}).Error; err != nil {
			log.Printf("Failed to delete area links for expired subscription %s: %v", sub.Endpoint, err)
		}
		if err := gdb.WithContext(ctx).Delete(&sub).Error; err != nil {
			log.Printf("Failed to delete expired subscription %s: %v", sub.Endpoint, err)
		}
	}
}
