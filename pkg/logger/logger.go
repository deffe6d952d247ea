package logger

import (
	"os"

	"github.com/sirupsen/logrus"
)

// Logger wraps logrus.Logger with additional functionality
type Logger struct {
	*logrus.Logger
}

// New creates a new logger instance
func New(level string) *Logger {
	log := logrus.New()

	logLevel, err := logrus.ParseLevel(level)
	if err != nil {
		logLevel = logrus.InfoLevel
	}
	log.SetLevel(logLevel)

	log.SetFormatter(&logrus.JSONFormatter{
		TimestampFormat: "2006-01-02T15:04:05.000Z07:00",
		FieldMap: logrus.FieldMap{
			logrus.FieldKeyTime:  "timestamp",
			logrus.FieldKeyLevel: "level",
			logrus.FieldKeyMsg:   "message",
		},
	})

	log.SetOutput(os.Stdout)

	return &Logger{Logger: log}
}

// WithFields creates a new logger entry with the specified fields
func (l *Logger) WithFields(fields map[string]interface{}) *logrus.Entry {
	return l.Logger.WithFields(fields)
}

// WithField creates a new logger entry with a single field
func (l *Logger) WithField(key string, value interface{}) *logrus.Entry {
	return l.Logger.WithField(key, value)
}

// WithError creates a new logger entry with an error field
func (l *Logger) WithError(err error) *logrus.Entry {
	return l.Logger.WithError(err)
}

// WithUserID creates a new logger entry with user ID field
func (l *Logger) WithUserID(userID string) *logrus.Entry {
	return l.Logger.WithField("user_id", userID)
}

// WithOrgID creates a new logger entry with organisation ID field
func (l *Logger) WithOrgID(orgID string) *logrus.Entry {
	return l.Logger.WithField("org_id", orgID)
}

// WithSessionID creates a new logger entry with session ID field
func (l *Logger) WithSessionID(sessionID string) *logrus.Entry {
	return l.Logger.WithField("session_id", sessionID)
}

// WithRoom creates a new logger entry with realtime room field
func (l *Logger) WithRoom(roomID string) *logrus.Entry {
	return l.Logger.WithField("room", roomID)
}

// WithComponent creates a new logger entry with component name field
func (l *Logger) WithComponent(component string) *logrus.Entry {
	return l.Logger.WithField("component", component)
}

// Audit logs audit events with structured format
func (l *Logger) Audit(userID, action, resource string, success bool, details map[string]interface{}) {
	entry := l.Logger.WithFields(logrus.Fields{
		"audit":    true,
		"user_id":  userID,
		"action":   action,
		"resource": resource,
		"success":  success,
		"details":  details,
	})

	if success {
		entry.Info("Audit event")
	} else {
		entry.Warn("Audit event failed")
	}
}

// Broadcast logs a realtime broadcast with its room and sequence number
func (l *Logger) Broadcast(roomID, event string, seq uint64, recipients int) {
	l.Logger.WithFields(logrus.Fields{
		"room":       roomID,
		"event":      event,
		"seq":        seq,
		"recipients": recipients,
	}).Debug("Broadcast delivered")
}

// PushDelivery logs a push notification delivery attempt
func (l *Logger) PushDelivery(userID string, success bool, errorCode string) {
	entry := l.Logger.WithFields(logrus.Fields{
		"push":    true,
		"user_id": userID,
		"success": success,
	})
	if errorCode != "" {
		entry = entry.WithField("error_code", errorCode)
	}

	if success {
		entry.Debug("Push notification delivered")
	} else {
		entry.Warn("Push notification failed")
	}
}
