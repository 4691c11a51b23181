package notify

import (
	"context"

	"go.uber.org/zap"

	"github.com/vrooli/jobs/logger"
)

// Log is a Dispatcher that only writes structured log lines
type Log struct {
	logger *zap.SugaredLogger
}

// NewLog creates a logging dispatcher
func NewLog(log *zap.SugaredLogger) *Log {
	return &Log{logger: log}
}

// SendReminder logs one line per recipient
func (l *Log) SendReminder(ctx context.Context, r Reminder) error {
	log := logger.FromContext(ctx, l.logger)
	for _, recipient := range r.Recipients {
		log.Infow("Reminder",
			logger.FieldScheduleID, r.ScheduleID,
			logger.FieldObjectType, r.ObjectType,
			logger.FieldUserID, recipient.UserID,
			"occurrence_start", r.OccurrenceStart,
			"delays", recipient.Delays)
	}
	return nil
}

// SendActivityEvent logs the event
func (l *Log) SendActivityEvent(ctx context.Context, e ActivityEvent) error {
	logger.FromContext(ctx, l.logger).Infow("Moderation activity",
		logger.FieldReportID, e.ReportID,
		logger.FieldObjectID, e.ObjectID,
		logger.FieldObjectType, e.ObjectType,
		"owner_id", e.OwnerID,
		"owner_kind", e.OwnerKind,
		"contributors", len(e.Contributors),
		logger.FieldStatus, e.Status)
	return nil
}
