package service

import (
	"context"
	"errors"
	"time"

	"github.com/robfig/cron/v3"
	"go.uber.org/zap"

	"github.com/mmeshcher/smm-panel/internal/metrics"
	"github.com/mmeshcher/smm-panel/internal/model"
)

// DefaultReconcileSchedule задаёт расписание сверки по умолчанию.
const DefaultReconcileSchedule = "@every 1m"

// DefaultReconcileBatchSize задаёт число заказов в одном запросе статусов по умолчанию.
const DefaultReconcileBatchSize = 100

// Report содержит итоги одного цикла сверки.
type Report struct {
	Checked int
	Updated int
	Skipped int
	Failed  int
}

// Reconciler периодически сверяет статусы выполняющихся заказов с поставщиком.
type Reconciler struct {
	repo      Repository
	provider  Provider
	logger    *zap.Logger
	schedule  string
	batchSize int
}

// NewReconciler создаёт Reconciler. Пустое расписание и неположительный размер пакета заменяются значениями по умолчанию.
func NewReconciler(repo Repository, prov Provider, logger *zap.Logger, schedule string, batchSize int) *Reconciler {
	if logger == nil {
		logger = zap.NewNop()
	}
	if schedule == "" {
		schedule = DefaultReconcileSchedule
	}
	if batchSize <= 0 {
		batchSize = DefaultReconcileBatchSize
	}
	return &Reconciler{
		repo:      repo,
		provider:  prov,
		logger:    logger,
		schedule:  schedule,
		batchSize: batchSize,
	}
}

// Start запускает сверку по расписанию и блокируется до отмены ctx.
// Новый цикл пропускается, пока предыдущий не завершился.
func (r *Reconciler) Start(ctx context.Context) error {
	c := cron.New(cron.WithChain(cron.SkipIfStillRunning(cron.DiscardLogger)))

	if _, err := c.AddFunc(r.schedule, func() { r.RunOnce(ctx) }); err != nil {
		return err
	}

	c.Start()
	r.logger.Info("reconciler started", zap.String("schedule", r.schedule), zap.Int("batch_size", r.batchSize))

	<-ctx.Done()
	<-c.Stop().Done()

	return nil
}

// RunOnce выполняет один цикл сверки. Ошибка отдельного заказа или пакета не прерывает цикл.
func (r *Reconciler) RunOnce(ctx context.Context) Report {
	start := time.Now()
	var rep Report

	orders, err := r.repo.GetOrdersByStatus(ctx, model.OrderStatusInProgress)
	if err != nil {
		r.logger.Error("failed to load orders in progress", zap.Error(err))
		return rep
	}

	for from := 0; from < len(orders); from += r.batchSize {
		if ctx.Err() != nil {
			break
		}
		to := min(from+r.batchSize, len(orders))
		r.reconcileBatch(ctx, orders[from:to], &rep)
	}

	metrics.ReconcileRun(time.Since(start), rep.Updated, rep.Skipped, rep.Failed)
	r.logger.Info("reconcile cycle finished",
		zap.Int("checked", rep.Checked),
		zap.Int("updated", rep.Updated),
		zap.Int("skipped", rep.Skipped),
		zap.Int("failed", rep.Failed),
		zap.Duration("duration", time.Since(start)),
	)

	return rep
}

func (r *Reconciler) reconcileBatch(ctx context.Context, batch []model.Order, rep *Report) {
	ids := make([]string, 0, len(batch))
	for _, o := range batch {
		ids = append(ids, o.ProviderOrderID)
	}

	statuses, err := r.provider.Statuses(ctx, ids)
	if err != nil {
		r.logger.Warn("failed to fetch order statuses", zap.Int("orders", len(ids)), zap.Error(err))
		rep.Failed += len(batch)
		return
	}

	for _, o := range batch {
		rep.Checked++

		remote, ok := statuses[o.ProviderOrderID]
		if !ok {
			r.logger.Debug("provider returned no status", zap.Int64("order_id", o.ID))
			rep.Skipped++
			continue
		}

		status, ok := remote.ModelStatus()
		if !ok {
			r.logger.Warn("unknown provider status",
				zap.Int64("order_id", o.ID),
				zap.String("status", remote.Status),
			)
			rep.Skipped++
			continue
		}

		if status == o.Status && remote.StartCount == o.StartCount && remote.Remains == o.Remains {
			rep.Skipped++
			continue
		}

		applied, err := r.repo.UpdateOrderProgress(ctx, o.ID, o.Version, status, remote.StartCount, remote.Remains)
		if err != nil {
			if errors.Is(err, context.Canceled) {
				return
			}
			r.logger.Error("failed to update order", zap.Int64("order_id", o.ID), zap.Error(err))
			rep.Failed++
			continue
		}
		if !applied {
			r.logger.Debug("order changed concurrently", zap.Int64("order_id", o.ID))
			rep.Skipped++
			continue
		}

		rep.Updated++
	}
}
