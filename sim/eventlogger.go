package sim

import (
	"reflect"

	"github.com/sirupsen/logrus"
)

// EventLogger is a hook that logs every handled event and every process
// state transition at debug level.
type EventLogger struct {
	Logger *logrus.Logger
}

// NewEventLogger returns an EventLogger that writes to the given logger.
func NewEventLogger(logger *logrus.Logger) *EventLogger {
	return &EventLogger{Logger: logger}
}

// Func writes the event information into the logger.
func (h *EventLogger) Func(ctx HookCtx) {
	switch ctx.Pos {
	case HookPosBeforeEvent:
		evt, ok := ctx.Item.(Event)
		if !ok {
			return
		}

		h.Logger.WithFields(logrus.Fields{
			"time":  float64(evt.Time()),
			"event": reflect.TypeOf(evt).String(),
		}).Debug("event")
	case HookPosProcessState:
		p, ok := ctx.Item.(*Process)
		if !ok {
			return
		}

		h.Logger.WithFields(logrus.Fields{
			"time":    float64(ctx.Now),
			"process": p.Name(),
			"state":   p.State().String(),
		}).Debug("process")
	}
}
