package worker

import (
	"context"
	"encoding/json"
	"fmt"
	"hash/fnv"
	"log/slog"

	"github.com/google/uuid"
	amqp "github.com/rabbitmq/amqp091-go"

	"github.com/reportworks/report-be/internal/worker/domain"
)

// setupConsumer starts consuming from the report request queue with QoS applied
func (w *Worker) setupConsumer() (<-chan amqp.Delivery, error) {
	deliveries, err := w.rabbitClient.Consume(w.workerID, w.prefetchCount)
	if err != nil {
		return nil, fmt.Errorf("failed to start consuming: %w", err)
	}

	w.logger.Info("RabbitMQ consumer started",
		slog.String("consumer_tag", w.workerID),
	)

	return deliveries, nil
}

// dispatch reads deliveries and routes each task to the lane owning its
// report id. It returns when the context is canceled or the delivery channel
// closes.
func (w *Worker) dispatch(ctx context.Context, deliveries <-chan amqp.Delivery) {
	w.logger.Info("Message dispatcher started",
		slog.String("worker_id", w.workerID),
	)

	for {
		select {
		case <-ctx.Done():
			w.logger.Info("Message dispatcher stopped - context canceled")
			return

		case delivery, ok := <-deliveries:
			if !ok {
				w.logger.Warn("RabbitMQ delivery channel closed")
				return
			}

			var msg domain.ReportRequestMessage
			if err := json.Unmarshal(delivery.Body, &msg); err != nil {
				w.logger.Error("Failed to parse message JSON",
					slog.String("error", err.Error()),
					slog.String("body", string(delivery.Body)),
				)
				// Malformed messages can never succeed, drop without requeue
				if nackErr := delivery.Nack(false, false); nackErr != nil {
					w.logger.Error("Failed to NACK malformed message",
						slog.String("error", nackErr.Error()),
					)
				}
				continue
			}

			if _, err := uuid.Parse(msg.ReportID); err != nil {
				w.logger.Error("Invalid report_id format - not a UUID",
					slog.String("report_id", msg.ReportID),
					slog.String("error", err.Error()),
				)
				if nackErr := delivery.Nack(false, false); nackErr != nil {
					w.logger.Error("Failed to NACK message with invalid report_id",
						slog.String("error", nackErr.Error()),
					)
				}
				continue
			}

			task := &domain.ReportTask{
				Message:     msg,
				DeliveryTag: delivery.DeliveryTag,
			}

			lane := w.laneFor(msg.ReportID)

			select {
			case w.laneChans[lane] <- task:
				w.logger.Debug("Task dispatched",
					slog.String("report_id", msg.ReportID),
					slog.Int("lane", lane),
					slog.Uint64("delivery_tag", delivery.DeliveryTag),
				)
			case <-ctx.Done():
				w.logger.Info("Message dispatcher stopped while dispatching task")
				// Requeue so another worker picks it up
				if nackErr := delivery.Nack(false, true); nackErr != nil {
					w.logger.Error("Failed to NACK message on shutdown",
						slog.String("error", nackErr.Error()),
					)
				}
				return
			}
		}
	}
}

// laneFor maps a report id to a fixed lane so all deliveries for one report
// are processed sequentially
func (w *Worker) laneFor(reportID string) int {
	h := fnv.New32a()
	h.Write([]byte(reportID))
	return int(h.Sum32() % uint32(w.concurrency))
}
