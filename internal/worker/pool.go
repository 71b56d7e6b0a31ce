package worker

import (
	"context"
	"fmt"
	"log/slog"
)

// spawnLanes starts one goroutine per lane
func (w *Worker) spawnLanes(ctx context.Context) {
	w.logger.Info("Spawning worker lanes",
		slog.Int("concurrency", w.concurrency),
		slog.String("worker_id", w.workerID),
	)

	for i := 0; i < w.concurrency; i++ {
		w.wg.Add(1)
		go w.laneLoop(ctx, i)
	}
}

// laneLoop processes tasks for one lane sequentially. Every task is ACKed
// after processing, success or failure; failures are recorded on the report
// row and retried through the retry endpoint, not by requeueing.
func (w *Worker) laneLoop(ctx context.Context, laneNum int) {
	defer w.wg.Done()

	laneName := fmt.Sprintf("%s-%d", w.workerID, laneNum)
	w.logger.Info("Worker lane started",
		slog.String("lane", laneName),
	)

	for {
		select {
		case <-w.stopChan:
			w.logger.Info("Worker lane stopping - stopChan closed",
				slog.String("lane", laneName),
			)
			return

		case <-ctx.Done():
			w.logger.Info("Worker lane stopping - context canceled",
				slog.String("lane", laneName),
			)
			return

		case task, ok := <-w.laneChans[laneNum]:
			if !ok {
				return
			}

			w.logger.Info("Lane received task",
				slog.String("lane", laneName),
				slog.String("report_id", task.Message.ReportID),
				slog.Uint64("delivery_tag", task.DeliveryTag),
			)

			if err := w.processReport(ctx, task); err != nil {
				w.logger.Error("Report processing failed",
					slog.String("lane", laneName),
					slog.String("report_id", task.Message.ReportID),
					slog.String("error", err.Error()),
				)
			}

			channel := w.rabbitClient.GetChannel()
			if channel == nil {
				w.logger.Error("Failed to get RabbitMQ channel for ACK",
					slog.String("lane", laneName),
					slog.String("report_id", task.Message.ReportID),
				)
				continue
			}

			if ackErr := channel.Ack(task.DeliveryTag, false); ackErr != nil {
				w.logger.Error("Failed to ACK message",
					slog.String("lane", laneName),
					slog.String("report_id", task.Message.ReportID),
					slog.String("error", ackErr.Error()),
				)
			}
		}
	}
}
