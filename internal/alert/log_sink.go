package alert

import (
	"context"

	"github.com/sirupsen/logrus"

	"sandwich-guard/internal/domain"
)

// LogChannel writes verdicts to a logrus logger. Risk verdicts of medium and
// above log at warn level.
type LogChannel struct {
	log logrus.FieldLogger
}

// NewLogChannel creates a log channel. A nil logger uses the standard logger.
func NewLogChannel(log logrus.FieldLogger) *LogChannel {
	if log == nil {
		log = logrus.StandardLogger()
	}
	return &LogChannel{log: log.WithField("component", "verdict")}
}

// Name implements Channel.
func (c *LogChannel) Name() string { return "log" }

// Deliver implements Channel.
func (c *LogChannel) Deliver(_ context.Context, v domain.RiskVerdict) error {
	entry := c.log.WithFields(logrus.Fields{
		"kind": v.Kind,
		"risk": v.Level,
	})
	if v.Signature != "" {
		entry = entry.WithField("signature", v.Signature)
	}
	if v.Pool != nil {
		entry = entry.WithField("pool", *v.Pool)
	}
	if v.SessionID != "" {
		entry = entry.WithField("session", v.SessionID)
	}

	if v.IsAlert() {
		entry.Warn(v.Reason)
	} else {
		entry.Info(v.Reason)
	}
	return nil
}
