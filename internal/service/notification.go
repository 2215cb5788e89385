package service

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/sirupsen/logrus"

	"delivery/internal/config"
	"delivery/internal/domain"
	"delivery/internal/metrics"
)

const (
	channelSMS   = "sms"
	channelEmail = "email"

	statusUpdateSubject = "Delivery Status Update"
)

// Sender dispatches messages through the notification service.
type Sender interface {
	SendSMS(ctx context.Context, recipient, message string) error
	SendEmail(ctx context.Context, recipient, subject, message string) error
}

// NotificationService sends best-effort notifications. Each send runs on
// its own goroutine with its own timeout, detached from the request, and
// failures are only logged and counted.
type NotificationService struct {
	sender            Sender
	timeout           time.Duration
	customerRecipient string
	log               logrus.FieldLogger
	metrics           *metrics.Metrics

	wg sync.WaitGroup
}

// NewNotificationService creates a new NotificationService.
func NewNotificationService(
	sender Sender,
	cfg config.NotificationConfig,
	log logrus.FieldLogger,
	m *metrics.Metrics,
) *NotificationService {
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = 3 * time.Second
	}
	return &NotificationService{
		sender:            sender,
		timeout:           timeout,
		customerRecipient: cfg.CustomerRecipient,
		log:               log,
		metrics:           m,
	}
}

// NotifyDriverAssigned texts the driver about a new assignment.
func (s *NotificationService) NotifyDriverAssigned(driver *domain.Driver, delivery *domain.Delivery, street string) {
	if street == "" {
		street = "the restaurant"
	}
	message := fmt.Sprintf("New delivery assignment for order %s from %s", delivery.OrderID, street)

	s.dispatch(channelSMS, logrus.Fields{
		"order_id":  delivery.OrderID,
		"driver_id": driver.ID,
	}, func(ctx context.Context) error {
		return s.sender.SendSMS(ctx, driver.Contact, message)
	})
}

// NotifyStatusChanged emails the customer about a status transition.
func (s *NotificationService) NotifyStatusChanged(delivery *domain.Delivery) {
	message := fmt.Sprintf("Your order status has been updated to: %s", delivery.Status)

	s.dispatch(channelEmail, logrus.Fields{
		"order_id": delivery.OrderID,
		"status":   delivery.Status,
	}, func(ctx context.Context) error {
		return s.sender.SendEmail(ctx, s.customerRecipient, statusUpdateSubject, message)
	})
}

func (s *NotificationService) dispatch(channel string, fields logrus.Fields, send func(ctx context.Context) error) {
	if s == nil || s.sender == nil {
		return
	}

	s.wg.Add(1)
	go func() {
		defer s.wg.Done()

		ctx, cancel := context.WithTimeout(context.Background(), s.timeout)
		defer cancel()

		if err := send(ctx); err != nil {
			s.metrics.NotificationFailure(channel)
			s.log.WithFields(fields).
				WithField("channel", channel).
				WithError(err).
				Warn("notification failed")
		}
	}()
}

// Wait blocks until in-flight notifications finish or ctx is done.
func (s *NotificationService) Wait(ctx context.Context) error {
	if s == nil {
		return nil
	}

	done := make(chan struct{})
	go func() {
		s.wg.Wait()
		close(done)
	}()

	select {
	case <-done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}
