package notifications

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/robfig/cron/v3"
	"go.uber.org/zap"
	"gorm.io/gorm"

	"github.com/arnavshah/restaurant-scheduler-api/pkg/database"
	"github.com/arnavshah/restaurant-scheduler-api/pkg/models"
)

// ErrDraftNotFound is returned for drafts unknown to the business
var ErrDraftNotFound = errors.New("draft not found")

// Dispatcher delivers one notification over its channel and returns the
// provider's message id
type Dispatcher interface {
	Send(ctx context.Context, n database.Notification) (string, error)
}

// LogDispatcher only logs notifications
type LogDispatcher struct {
	Logger *zap.Logger
}

// Send logs the notification and reports it delivered
func (d LogDispatcher) Send(_ context.Context, n database.Notification) (string, error) {
	d.Logger.Info("Schedule notification",
		zap.String("draft_id", n.DraftID),
		zap.String("staff_id", n.StaffID),
		zap.String("channel", n.Channel))
	return "log-" + n.ID, nil
}

// Summary counts notifications by status
type Summary struct {
	Sent    int `json:"sent"`
	Failed  int `json:"failed"`
	Pending int `json:"pending"`
}

// Status is the delivery state of a draft's notifications
type Status struct {
	Notifications []database.Notification `json:"notifications"`
	Summary       Summary                 `json:"summary"`
	SuccessRate   float64                 `json:"success_rate"`
}

// RetryResult reports one retry pass
type RetryResult struct {
	Retried int     `json:"retried"`
	Sent    int     `json:"sent"`
	Failed  int     `json:"failed"`
	Status  *Status `json:"status,omitempty"`
}

// Service records publish notifications and retries failed deliveries
type Service struct {
	db              *gorm.DB
	dispatcher      Dispatcher
	logger          *zap.Logger
	maxRetries      int
	defaultChannels []string

	// PendingTimeout is how long a record may stay pending before retries
	// treat it as an interrupted delivery
	PendingTimeout time.Duration

	// serialises retry passes so a record is never sent twice concurrently
	retryMu sync.Mutex
}

// NewService creates a notification service
func NewService(db *gorm.DB, dispatcher Dispatcher, logger *zap.Logger, maxRetries int, defaultChannels []string) *Service {
	if len(defaultChannels) == 0 {
		defaultChannels = []string{"email"}
	}
	return &Service{
		db:              db,
		dispatcher:      dispatcher,
		logger:          logger,
		maxRetries:      maxRetries,
		defaultChannels: defaultChannels,
		PendingTimeout:  10 * time.Minute,
	}
}

// NotifyPublished creates one record per assigned staff member and channel
// and attempts delivery. Delivery failures are stored on the records; only
// storage errors are returned.
func (s *Service) NotifyPublished(ctx context.Context, draft *models.ScheduleDraft) ([]database.Notification, error) {
	settings := draft.NotificationSettings
	if settings == nil || !settings.Enabled {
		return nil, nil
	}
	channels := settings.Channels
	if len(channels) == 0 {
		channels = s.defaultChannels
	}

	seen := make(map[string]bool)
	var records []database.Notification
	for _, a := range draft.Assignments() {
		if !a.Active() || seen[a.StaffID] {
			continue
		}
		seen[a.StaffID] = true
		for _, ch := range channels {
			records = append(records, database.Notification{
				ID:         uuid.NewString(),
				DraftID:    draft.ID,
				BusinessID: draft.BusinessID,
				StaffID:    a.StaffID,
				StaffName:  a.StaffName,
				Channel:    ch,
				Status:     models.NotificationPending,
			})
		}
	}
	if len(records) == 0 {
		return records, nil
	}
	if err := s.db.WithContext(ctx).Create(&records).Error; err != nil {
		return nil, fmt.Errorf("failed to store notifications: %w", err)
	}

	for i := range records {
		if err := s.deliver(ctx, &records[i]); err != nil {
			s.logger.Error("Notification delivery interrupted",
				zap.String("draft_id", draft.ID),
				zap.Int("left_pending", len(records)-i),
				zap.Error(err))
			return records, err
		}
	}
	return records, nil
}

// deliver sends one record and stores the outcome
func (s *Service) deliver(ctx context.Context, n *database.Notification) error {
	externalID, err := s.dispatcher.Send(ctx, *n)
	if err != nil {
		n.Status = models.NotificationFailed
		n.ErrorMessage = err.Error()
		s.logger.Warn("Notification delivery failed",
			zap.String("notification_id", n.ID),
			zap.String("channel", n.Channel),
			zap.Int("retry_count", n.RetryCount),
			zap.Error(err))
	} else {
		n.Status = models.NotificationSent
		n.ErrorMessage = ""
		n.ExternalID = externalID
	}

	return s.db.WithContext(ctx).Model(n).Updates(map[string]any{
		"status":        n.Status,
		"error_message": n.ErrorMessage,
		"external_id":   n.ExternalID,
		"retry_count":   n.RetryCount,
	}).Error
}

func (s *Service) checkDraft(ctx context.Context, businessID, draftID string) error {
	if _, err := database.GetDraft(s.db.WithContext(ctx), businessID, draftID); err != nil {
		if errors.Is(err, database.ErrNotFound) {
			return ErrDraftNotFound
		}
		return err
	}
	return nil
}

// Status lists a draft's notifications with a per-status summary
func (s *Service) Status(ctx context.Context, businessID, draftID string) (*Status, error) {
	if err := s.checkDraft(ctx, businessID, draftID); err != nil {
		return nil, err
	}

	var records []database.Notification
	if err := s.db.WithContext(ctx).Where("draft_id = ?", draftID).Order("created_at, staff_id, channel").Find(&records).Error; err != nil {
		return nil, err
	}

	st := &Status{Notifications: records}
	if st.Notifications == nil {
		st.Notifications = []database.Notification{}
	}
	for _, n := range records {
		switch n.Status {
		case models.NotificationSent:
			st.Summary.Sent++
		case models.NotificationFailed:
			st.Summary.Failed++
		default:
			st.Summary.Pending++
		}
	}
	if len(records) > 0 {
		st.SuccessRate = float64(st.Summary.Sent) / float64(len(records))
	}
	return st, nil
}

// Retry re-sends a draft's failed notifications that still have retries
// left, restricted to ids when given. Records left pending longer than
// PendingTimeout by an interrupted publish count as failed. Sent records are
// never touched, so calling Retry again is safe.
func (s *Service) Retry(ctx context.Context, businessID, draftID string, ids []string) (*RetryResult, error) {
	if err := s.checkDraft(ctx, businessID, draftID); err != nil {
		return nil, err
	}

	q := s.db.WithContext(ctx).Where("draft_id = ?", draftID)
	if len(ids) > 0 {
		q = q.Where("id IN ?", ids)
	}
	res, err := s.retry(ctx, q)
	if err != nil {
		return nil, err
	}
	if res.Status, err = s.Status(ctx, businessID, draftID); err != nil {
		return nil, err
	}
	return res, nil
}

// RetryAllFailed retries every eligible failed or stale pending notification
func (s *Service) RetryAllFailed(ctx context.Context) (*RetryResult, error) {
	return s.retry(ctx, s.db.WithContext(ctx))
}

func (s *Service) retry(ctx context.Context, q *gorm.DB) (*RetryResult, error) {
	s.retryMu.Lock()
	defer s.retryMu.Unlock()

	var records []database.Notification
	stale := time.Now().Add(-s.PendingTimeout)
	err := q.Where("retry_count < ?", s.maxRetries).
		Where(s.db.Where("status = ?", models.NotificationFailed).
			Or("status = ? AND created_at < ?", models.NotificationPending, stale)).
		Order("created_at, id").Find(&records).Error
	if err != nil {
		return nil, err
	}

	res := &RetryResult{}
	for i := range records {
		if err := ctx.Err(); err != nil {
			return res, err
		}
		records[i].RetryCount++
		if err := s.deliver(ctx, &records[i]); err != nil {
			return res, err
		}
		res.Retried++
		if records[i].Status == models.NotificationSent {
			res.Sent++
		} else {
			res.Failed++
		}
	}
	return res, nil
}

// StartSweeper retries failed notifications on the given cron schedule
// until the returned cron is stopped
func (s *Service) StartSweeper(schedule string) (*cron.Cron, error) {
	c := cron.New()
	_, err := c.AddFunc(schedule, func() {
		res, err := s.RetryAllFailed(context.Background())
		if err != nil {
			s.logger.Error("Notification retry sweep failed", zap.Error(err))
			return
		}
		if res.Retried > 0 {
			s.logger.Info("Notification retry sweep",
				zap.Int("retried", res.Retried),
				zap.Int("sent", res.Sent),
				zap.Int("failed", res.Failed))
		}
	})
	if err != nil {
		return nil, fmt.Errorf("invalid retry schedule %q: %w", schedule, err)
	}
	c.Start()
	s.logger.Info("Notification retry sweep scheduled", zap.String("schedule", schedule))
	return c, nil
}
