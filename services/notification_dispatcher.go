package services

import (
	"context"
	"log"
	"sync"
	"time"

	"bikeToWorkAPI/internal/metrics"
	"bikeToWorkAPI/internal/notification"

	"github.com/google/uuid"
)

type PushNotificationProvider interface {
	SendPush(ctx context.Context, tokens []notification.DeviceToken, title, body string, data map[string]any) error
}

type deliveryStore interface {
	DeviceTokens(ctx context.Context, userID uuid.UUID) ([]notification.DeviceToken, error)
	MarkDelivery(ctx context.Context, notificationID uuid.UUID, status notification.NotificationStatus, reason string) error
	PurgeRead(ctx context.Context, olderThan time.Duration) (int64, error)
}

const readRetention = 90 * 24 * time.Hour

// NotificationDispatcher pushes stored notifications to devices on a small
// worker pool so request handlers never wait on FCM.
type NotificationDispatcher struct {
	store        deliveryStore
	mu           sync.RWMutex
	pushProvider PushNotificationProvider
	workers      int
	jobQueue     chan *notification.Notification
	stopChan     chan struct{}
	stopOnce     sync.Once
	wg           sync.WaitGroup
}

func NewNotificationDispatcher(store deliveryStore, workers int) *NotificationDispatcher {
	if workers <= 0 {
		workers = 1
	}
	dispatcher := &NotificationDispatcher{
		store:    store,
		workers:  workers,
		jobQueue: make(chan *notification.Notification, 100),
		stopChan: make(chan struct{}),
	}

	dispatcher.startWorkers()

	dispatcher.wg.Add(1)
	go dispatcher.cleanupReadNotifications()

	return dispatcher
}

func (d *NotificationDispatcher) SetPushProvider(provider PushNotificationProvider) {
	d.mu.Lock()
	d.pushProvider = provider
	d.mu.Unlock()
}

func (d *NotificationDispatcher) provider() PushNotificationProvider {
	d.mu.RLock()
	defer d.mu.RUnlock()
	return d.pushProvider
}

func (d *NotificationDispatcher) startWorkers() {
	for i := 0; i < d.workers; i++ {
		d.wg.Add(1)
		go d.worker()
	}
}

func (d *NotificationDispatcher) worker() {
	defer d.wg.Done()
	for {
		select {
		case notif := <-d.jobQueue:
			d.processJob(notif)
		case <-d.stopChan:
			return
		}
	}
}

func (d *NotificationDispatcher) processJob(notif *notification.Notification) {
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	provider := d.provider()
	if provider == nil {
		log.Printf("Skipping push for notification %s: no provider", notif.ID)
		return
	}

	tokens, err := d.store.DeviceTokens(ctx, notif.UserID)
	if err != nil {
		log.Printf("Push failed for user %s: %v", notif.UserID, err)
		d.mark(ctx, notif.ID, notification.StatusFailed, err.Error())
		return
	}
	if len(tokens) == 0 {
		d.mark(ctx, notif.ID, notification.StatusSent, "")
		return
	}

	if err := provider.SendPush(ctx, tokens, notif.Title, notif.Message, notif.Data); err != nil {
		log.Printf("Push failed for user %s: %v", notif.UserID, err)
		metrics.PushDeliveries.WithLabelValues(string(notification.StatusFailed)).Inc()
		d.mark(ctx, notif.ID, notification.StatusFailed, err.Error())
		return
	}

	metrics.PushDeliveries.WithLabelValues(string(notification.StatusSent)).Inc()
	d.mark(ctx, notif.ID, notification.StatusSent, "")
}

func (d *NotificationDispatcher) mark(ctx context.Context, id uuid.UUID, status notification.NotificationStatus, reason string) {
	if err := d.store.MarkDelivery(ctx, id, status, reason); err != nil {
		log.Printf("%v", err)
	}
}

// DispatchNotification queues a notification, dropping it if the queue stays
// full for five seconds. The stored row is kept either way.
func (d *NotificationDispatcher) DispatchNotification(notif *notification.Notification) {
	select {
	case d.jobQueue <- notif:
	case <-d.stopChan:
		log.Printf("Dispatcher stopped, notification %s not queued", notif.ID)
	case <-time.After(5 * time.Second):
		log.Printf("Failed to queue notification %s: queue full", notif.ID)
	}
}

func (d *NotificationDispatcher) cleanupReadNotifications() {
	defer d.wg.Done()
	ticker := time.NewTicker(24 * time.Hour)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			ctx, cancel := context.WithTimeout(context.Background(), time.Minute)
			n, err := d.store.PurgeRead(ctx, readRetention)
			cancel()
			if err != nil {
				log.Printf("Failed to cleanup old read notifications: %v", err)
				continue
			}
			if n > 0 {
				log.Printf("Cleaned up %d old read notifications", n)
			}
		case <-d.stopChan:
			return
		}
	}
}

// Stop waits for the workers to exit. Queued jobs not yet picked up are dropped.
func (d *NotificationDispatcher) Stop() {
	d.stopOnce.Do(func() {
		log.Println("Stopping notification dispatcher...")
		close(d.stopChan)
		d.wg.Wait()
		log.Println("Notification dispatcher stopped")
	})
}

// LogPushProvider only logs; used when FCM credentials are missing.
type LogPushProvider struct{}

func (LogPushProvider) SendPush(ctx context.Context, tokens []notification.DeviceToken, title, body string, data map[string]any) error {
	log.Printf("LOG PUSH: Sending to %d devices: %s - %s", len(tokens), title, body)
	return nil
}
