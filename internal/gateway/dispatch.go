package gateway

import (
	"fmt"
	"log/slog"
	"net"
	"time"

	"github.com/Celisium/openpmu-61850-sv-bridge/internal/egress"
	"github.com/Celisium/openpmu-61850-sv-bridge/internal/metrics"
	"github.com/Celisium/openpmu-61850-sv-bridge/internal/openpmu"
	"github.com/Celisium/openpmu-61850-sv-bridge/internal/sampleq"
)

// dispatcher is the single long-lived consumer (C7): it waits for the
// head-of-queue window's deadline, renders it, and sends it. A send
// error is fatal and is returned from run so Service.Run can propagate
// it and shut down the whole gateway.
type dispatcher struct {
	queue    *sampleq.Queue
	sender   egress.Sender
	dest     *net.UDPAddr
	channels []openpmu.ChannelSpec
	logger   *slog.Logger
	metrics  *metrics.Metrics
}

func (d *dispatcher) run() error {
	for {
		sleepSecs, ok := d.queue.Wait(nowSeconds)
		if !ok {
			d.logger.Info("dispatch scheduler shutting down")
			return nil
		}

		// Sleep is intentionally not cancellable: a spurious late arrival
		// that lands in the head buffer during this sleep is accepted,
		// since the queue lock prevents a torn read of it.
		if sleepSecs > 0 {
			time.Sleep(time.Duration(sleepSecs * float64(time.Second)))
		}

		buf := d.queue.Pop()
		if d.metrics != nil {
			d.metrics.QueueDepth.Set(float64(d.queue.Len()))
		}

		doc := openpmu.Encode(buf, d.channels)
		if err := d.sender.SendTo([]byte(doc), d.dest); err != nil {
			if d.metrics != nil {
				d.metrics.DispatchSendErrors.Inc()
			}
			return fmt.Errorf("dispatch: send failed: %w", err)
		}
		if d.metrics != nil {
			d.metrics.WindowsDispatched.Inc()
		}
		d.logger.Debug("dispatched window", "start_time", buf.StartTime)
	}
}

func nowSeconds() float64 {
	return float64(time.Now().UnixNano()) / 1e9
}
