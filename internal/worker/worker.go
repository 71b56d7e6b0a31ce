package worker

import (
	"context"
	"fmt"
	"log/slog"
	"sync"

	"github.com/google/uuid"

	"github.com/reportworks/report-be/internal/cache"
	"github.com/reportworks/report-be/internal/notify"
	"github.com/reportworks/report-be/internal/worker/directory"
	"github.com/reportworks/report-be/internal/worker/domain"
	"github.com/reportworks/report-be/shared/rabbitmq"
)

// ReportStore is the persistence surface the worker needs
type ReportStore interface {
	MarkPreparing(ctx context.Context, reportID string) error
	CompleteReport(ctx context.Context, reportID, summary string) error
	FailReport(ctx context.Context, reportID string) error
}

// ResultCache writes computed report payloads
type ResultCache interface {
	SetReport(ctx context.Context, payload *cache.ReportPayload) error
}

// StatusNotifier pushes status change events to subscribers
type StatusNotifier interface {
	Publish(ctx context.Context, event notify.StatusEvent) error
}

// ReportDataFetcher aggregates directory data for a report
type ReportDataFetcher interface {
	FetchReportData(ctx context.Context, kind string, filters []string) (*directory.SummaryData, error)
}

// Config holds worker configuration
type Config struct {
	Logger        *slog.Logger
	Store         ReportStore
	Cache         ResultCache
	Notifier      StatusNotifier
	Directory     ReportDataFetcher
	RabbitClient  *rabbitmq.Client
	Concurrency   int
	PrefetchCount int
}

// Worker consumes report requests and processes them. Requests for the same
// report id always land on the same lane, so redeliveries and retries of one
// report are handled in order.
type Worker struct {
	logger        *slog.Logger
	store         ReportStore
	cache         ResultCache
	notifier      StatusNotifier
	directory     ReportDataFetcher
	rabbitClient  *rabbitmq.Client
	concurrency   int
	prefetchCount int
	workerID      string
	laneChans     []chan *domain.ReportTask
	wg            sync.WaitGroup
	stopChan      chan struct{}
}

// NewWorker creates a new worker instance
func NewWorker(cfg *Config) *Worker {
	concurrency := cfg.Concurrency
	if concurrency <= 0 {
		concurrency = 1
	}

	laneChans := make([]chan *domain.ReportTask, concurrency)
	for i := range laneChans {
		laneChans[i] = make(chan *domain.ReportTask, 1)
	}

	return &Worker{
		logger:        cfg.Logger,
		store:         cfg.Store,
		cache:         cfg.Cache,
		notifier:      cfg.Notifier,
		directory:     cfg.Directory,
		rabbitClient:  cfg.RabbitClient,
		concurrency:   concurrency,
		prefetchCount: cfg.PrefetchCount,
		workerID:      fmt.Sprintf("report-worker-%s", uuid.NewString()[:8]),
		laneChans:     laneChans,
		stopChan:      make(chan struct{}),
	}
}

// Start begins consuming and processing report requests. It blocks until the
// context is canceled or the delivery channel closes.
func (w *Worker) Start(ctx context.Context) error {
	w.logger.Info("Starting worker",
		slog.String("worker_id", w.workerID),
		slog.Int("concurrency", w.concurrency),
		slog.Int("prefetch_count", w.prefetchCount),
	)

	deliveries, err := w.setupConsumer()
	if err != nil {
		return fmt.Errorf("failed to set up consumer: %w", err)
	}

	w.spawnLanes(ctx)
	w.dispatch(ctx, deliveries)

	return nil
}

// Stop gracefully stops the worker
func (w *Worker) Stop() {
	w.logger.Info("Stopping worker...")
	close(w.stopChan)
	w.wg.Wait()
	w.logger.Info("Worker stopped")
}
