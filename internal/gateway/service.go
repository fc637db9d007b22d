package gateway

import (
	"context"
	"log/slog"
	"sync"

	"github.com/Celisium/openpmu-61850-sv-bridge/internal/capture"
	"github.com/Celisium/openpmu-61850-sv-bridge/internal/egress"
	"github.com/Celisium/openpmu-61850-sv-bridge/internal/metrics"
	"github.com/Celisium/openpmu-61850-sv-bridge/internal/sampleq"
	"github.com/Celisium/openpmu-61850-sv-bridge/internal/wire"
)

// dropWarnEvery is how many semantic sample drops accumulate (within
// one capture goroutine lifetime) between rate-limited Warn log lines,
// so a misbehaving merging unit is visible without flooding the log.
const dropWarnEvery = 100

// Service wires the three fixed stages of the gateway together: the
// capture goroutine (producer), the dispatch scheduler (consumer), and
// the shared Queue between them.
type Service struct {
	cfg      Config
	receiver capture.Receiver
	sender   egress.Sender
	logger   *slog.Logger
	metrics  *metrics.Metrics

	queue *sampleq.Queue
	wg    sync.WaitGroup

	// drops is touched only by runCapture's single goroutine.
	drops uint64
}

// NewService constructs a Service ready to Run. receiver and sender are
// caller-owned and are not closed by Service; m may be nil to disable
// metrics.
func NewService(cfg Config, receiver capture.Receiver, sender egress.Sender, logger *slog.Logger, m *metrics.Metrics) *Service {
	if logger == nil {
		logger = slog.Default()
	}
	return &Service{
		cfg:      cfg,
		receiver: receiver,
		sender:   sender,
		logger:   logger,
		metrics:  m,
		queue:    sampleq.NewQueue(),
	}
}

// Run starts the capture and dispatch goroutines and blocks until ctx
// is cancelled or the dispatcher reports a fatal send error. On return
// both goroutines have exited.
func (s *Service) Run(ctx context.Context) error {
	s.logger.Info("gateway starting",
		"interface", s.cfg.Interface,
		"sample_rate", s.cfg.SampleRate,
		"length", s.cfg.Length,
	)

	errCh := make(chan error, 1)

	s.wg.Add(2)
	go s.runCapture(ctx)
	go s.runDispatch(errCh)

	var err error
	select {
	case <-ctx.Done():
		s.logger.Info("gateway shutting down", "reason", ctx.Err())
	case err = <-errCh:
		s.logger.Error("dispatch scheduler failed, shutting down", "error", err)
	}

	s.queue.SetDone()
	s.wg.Wait()
	return err
}

func (s *Service) runCapture(ctx context.Context) {
	defer s.wg.Done()

	buf := make([]byte, capture.MaxFrameSize)
	for {
		select {
		case <-ctx.Done():
			return
		default:
		}

		frame, err := s.receiver.Recv(buf)
		if err != nil {
			if ctx.Err() != nil {
				return
			}
			s.logger.Warn("capture: receive failed", "error", err)
			continue
		}
		if frame.TimestampS < 0 {
			s.logger.Warn("capture: dropping frame with negative timestamp")
			continue
		}

		msg, err := wire.Parse(frame.Payload)
		if err != nil {
			if s.metrics != nil {
				s.metrics.FramesDropped.WithLabelValues("decode_error").Inc()
			}
			s.logger.Debug("capture: dropping unparseable frame", "error", err)
			continue
		}
		if s.metrics != nil {
			s.metrics.FramesDecoded.Inc()
		}

		for _, asdu := range msg.Asdus {
			reason := s.queue.InsertSample(uint64(frame.TimestampS), frame.TimestampNS, s.cfg.SampleRate, s.cfg.Length, asdu)
			if reason != sampleq.DropNone {
				s.recordDrop(reason, asdu)
			}
		}
	}
}

// recordDrop logs, counts, and rate-limit-escalates one semantic sample
// drop reported by Queue.InsertSample.
func (s *Service) recordDrop(reason sampleq.DropReason, asdu wire.Asdu) {
	if s.metrics != nil {
		s.metrics.SamplesDropped.Inc()
	}
	s.logger.Debug("dropping sample: did not map into any live window",
		"reason", reason, "svid", asdu.Svid, "smp_cnt", asdu.SmpCnt)

	s.drops++
	if s.drops%dropWarnEvery == 0 {
		s.logger.Warn("samples dropped: did not map into any live window",
			"reason", reason, "svid", asdu.Svid, "total_drops", s.drops)
	}
}

func (s *Service) runDispatch(errCh chan<- error) {
	defer s.wg.Done()

	d := &dispatcher{
		queue:    s.queue,
		sender:   s.sender,
		dest:     s.cfg.Destination,
		channels: s.cfg.ChannelSpecs(),
		logger:   s.logger,
		metrics:  s.metrics,
	}
	if err := d.run(); err != nil {
		errCh <- err
	}
}
