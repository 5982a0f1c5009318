// Package monitor watches a wallet and selected pools for sandwich-attack risk.
package monitor

import (
	"context"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
	"github.com/robfig/cron/v3"
	"github.com/sirupsen/logrus"
	"golang.org/x/sync/errgroup"

	"sandwich-guard/internal/activity"
	"sandwich-guard/internal/alert"
	"sandwich-guard/internal/config"
	"sandwich-guard/internal/discovery"
	"sandwich-guard/internal/domain"
	"sandwich-guard/internal/impact"
	"sandwich-guard/internal/observability"
	"sandwich-guard/internal/risk"
	"sandwich-guard/internal/solana"
	"sandwich-guard/internal/storage"
	"sandwich-guard/internal/storage/memory"
)

// Session notices sent to the sink as info verdicts.
const (
	InfoStarted = "Monitoring active. You will be alerted of potential sandwich attacks."
	InfoStopped = "Monitoring stopped"
)

// State is the monitor lifecycle state.
type State int32

const (
	StateIdle State = iota
	StateActive
)

// String returns the string representation of State.
func (s State) String() string {
	if s == StateActive {
		return "active"
	}
	return "idle"
}

// Options contains configuration for creating a Monitor.
type Options struct {
	RPC        solana.RPCClient
	WS         solana.WSClient // nil disables the wallet subscription loop
	Classifier *discovery.Classifier
	Ledger     *activity.Ledger
	Config     *config.Store
	Sink       alert.Sink
	Cursors    storage.CursorStore // default: in-memory
	Settings   config.MonitorConfig
	Logger     logrus.FieldLogger
	Now        func() time.Time
}

// Monitor runs at most one monitoring session at a time.
// States: Idle -> Active (Start) -> Idle (Stop), re-entrant.
type Monitor struct {
	rpc        solana.RPCClient
	ws         solana.WSClient
	classifier *discovery.Classifier
	estimator  *impact.Estimator
	ledger     *activity.Ledger
	cfg        *config.Store
	scorer     *risk.Scorer
	sink       alert.Sink
	cursors    storage.CursorStore
	settings   config.MonitorConfig
	seen       *SeenSet
	log        logrus.FieldLogger
	now        func() time.Time

	lifecycle sync.Mutex // serializes Start and Stop
	session   *session
	state     atomic.Int32
}

// New creates an idle monitor.
func New(opts Options) (*Monitor, error) {
	if opts.RPC == nil {
		return nil, fmt.Errorf("monitor: rpc client is required")
	}
	if opts.Config == nil {
		return nil, fmt.Errorf("monitor: config store is required")
	}
	if opts.Sink == nil {
		return nil, fmt.Errorf("monitor: sink is required")
	}

	classifier := opts.Classifier
	if classifier == nil {
		classifier = discovery.NewClassifier(nil)
	}
	ledger := opts.Ledger
	if ledger == nil {
		ledger = activity.NewLedger()
	}
	cursors := opts.Cursors
	if cursors == nil {
		cursors = memory.NewCursorStore()
	}
	settings := withMonitorDefaults(opts.Settings)

	logger := opts.Logger
	if logger == nil {
		logger = logrus.StandardLogger()
	}
	now := opts.Now
	if now == nil {
		now = time.Now
	}

	return &Monitor{
		rpc:        opts.RPC,
		ws:         opts.WS,
		classifier: classifier,
		estimator:  impact.NewEstimator(classifier),
		ledger:     ledger,
		cfg:        opts.Config,
		scorer:     risk.NewScorer(opts.Config),
		sink:       opts.Sink,
		cursors:    cursors,
		settings:   settings,
		seen:       NewSeenSet(settings.SeenTTL),
		log:        logger.WithField("component", "monitor"),
		now:        now,
	}, nil
}

func withMonitorDefaults(s config.MonitorConfig) config.MonitorConfig {
	if s.PollBatchSize <= 0 {
		s.PollBatchSize = config.DefaultPollBatchSize
	}
	if s.WalletBatchSize <= 0 {
		s.WalletBatchSize = config.DefaultWalletBatchSize
	}
	if s.ErrorBackoffMultiplier <= 0 {
		s.ErrorBackoffMultiplier = config.DefaultErrorBackoffMultiplier
	}
	if s.FailureReportAfter <= 0 {
		s.FailureReportAfter = config.DefaultFailureReportAfter
	}
	if s.SeenTTL <= 0 {
		s.SeenTTL = config.DefaultSeenTTL
	}
	if s.HousekeepingSchedule == "" {
		s.HousekeepingSchedule = config.DefaultHousekeepingSchedule
	}
	return s
}

// State returns the current lifecycle state.
func (m *Monitor) State() State {
	return State(m.state.Load())
}

// SessionID returns the id of the running session, or "" when idle.
func (m *Monitor) SessionID() string {
	m.lifecycle.Lock()
	defer m.lifecycle.Unlock()
	if m.session == nil {
		return ""
	}
	return m.session.id
}

// Start begins monitoring wallet. ctx bounds the session's lifetime in
// addition to Stop.
func (m *Monitor) Start(ctx context.Context, wallet string) error {
	if wallet == "" {
		return ErrWalletRequired
	}

	m.lifecycle.Lock()
	defer m.lifecycle.Unlock()
	if m.session != nil {
		return ErrAlreadyActive
	}

	housekeeping := cron.New()
	if _, err := housekeeping.AddFunc(m.settings.HousekeepingSchedule, m.housekeep); err != nil {
		return fmt.Errorf("register housekeeping: %w", err)
	}

	sessCtx, cancel := context.WithCancel(ctx)
	s := &session{
		m:            m,
		id:           uuid.NewString(),
		wallet:       wallet,
		cancel:       cancel,
		housekeeping: housekeeping,
		log:          m.log.WithField("wallet", wallet),
	}
	s.log = s.log.WithField("session", s.id)

	m.session = s
	m.state.Store(int32(StateActive))
	observability.SessionStarted()

	s.emit(domain.NewInfo(InfoStarted, m.now().UnixMilli()))
	s.log.Info("monitoring started")

	g, gctx := errgroup.WithContext(sessCtx)
	g.Go(func() error { return s.pollLoop(gctx) })
	if m.ws != nil {
		g.Go(func() error { return s.walletLoop(gctx) })
	}
	s.group = g
	housekeeping.Start()
	return nil
}

// Stop ends the running session. It waits for both loops to finish their
// current iteration and releases the wallet subscription. No verdict from the
// session reaches the sink after Stop returns, other than the stop notice.
func (m *Monitor) Stop() error {
	m.lifecycle.Lock()
	defer m.lifecycle.Unlock()

	s := m.session
	if s == nil {
		return ErrNotActive
	}
	s.shutdown()

	m.session = nil
	m.state.Store(int32(StateIdle))
	observability.SessionStopped()

	v := domain.NewInfo(InfoStopped, m.now().UnixMilli())
	v.SessionID = s.id
	m.sink.Notify(v)
	observability.RecordVerdict(string(v.Kind), v.Level.String())
	s.log.Info("monitoring stopped")
	return nil
}

// housekeep evicts expired seen signatures and idle pools.
func (m *Monitor) housekeep() {
	now := m.now()
	m.seen.Evict(now)
	pools := m.ledger.Sweep(now.UnixMilli(), m.cfg.Load().TimeWindowSeconds)
	observability.UpdateHousekeeping(m.seen.Len(), pools)
	m.log.WithFields(logrus.Fields{
		"seen":  m.seen.Len(),
		"pools": pools,
	}).Debug("housekeeping done")
}
