package alert

import (
	"context"
	"time"

	"github.com/sirupsen/logrus"

	"sandwich-guard/internal/domain"
	"sandwich-guard/internal/observability"
)

// DefaultQueueSize is the dispatcher queue capacity when none is given.
const DefaultQueueSize = 256

const drainTimeout = 5 * time.Second

// Dispatcher is a Sink backed by a bounded queue. A single worker delivers
// each verdict to every channel in order. When the queue is full the verdict
// is dropped and counted; Notify never blocks.
type Dispatcher struct {
	channels []Channel
	queue    chan domain.RiskVerdict
	log      logrus.FieldLogger
	done     chan struct{}
}

// NewDispatcher creates a dispatcher over channels.
func NewDispatcher(queueSize int, log logrus.FieldLogger, channels ...Channel) *Dispatcher {
	if queueSize <= 0 {
		queueSize = DefaultQueueSize
	}
	if log == nil {
		log = logrus.StandardLogger()
	}
	return &Dispatcher{
		channels: channels,
		queue:    make(chan domain.RiskVerdict, queueSize),
		log:      log.WithField("component", "alert"),
		done:     make(chan struct{}),
	}
}

// Notify enqueues v for delivery.
func (d *Dispatcher) Notify(v domain.RiskVerdict) {
	select {
	case d.queue <- v:
	default:
		observability.RecordAlertDropped()
		d.log.WithFields(logrus.Fields{
			"level_risk": v.Level,
			"signature":  v.Signature,
		}).Warn("alert queue full, dropping verdict")
	}
}

// Run delivers queued verdicts until ctx is cancelled, then drains what is
// left with a short deadline and returns.
func (d *Dispatcher) Run(ctx context.Context) {
	defer close(d.done)
	for {
		select {
		case v := <-d.queue:
			d.deliver(ctx, v)
		case <-ctx.Done():
			d.drain()
			return
		}
	}
}

// Done is closed when Run has returned.
func (d *Dispatcher) Done() <-chan struct{} {
	return d.done
}

func (d *Dispatcher) drain() {
	ctx, cancel := context.WithTimeout(context.Background(), drainTimeout)
	defer cancel()
	for {
		select {
		case v := <-d.queue:
			d.deliver(ctx, v)
		default:
			return
		}
	}
}

func (d *Dispatcher) deliver(ctx context.Context, v domain.RiskVerdict) {
	for _, ch := range d.channels {
		err := ch.Deliver(ctx, v)
		observability.RecordAlertDelivery(ch.Name(), err)
		if err != nil {
			d.log.WithError(err).WithField("sink", ch.Name()).Warn("alert delivery failed")
		}
	}
}
