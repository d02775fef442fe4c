package worker

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"github.com/fenxiao-next/internal/logger"
	"github.com/fenxiao-next/internal/provider"
	"github.com/fenxiao-next/internal/queue"
	"github.com/fenxiao-next/internal/service"

	"github.com/hibiken/asynq"
)

// Consumer 异步任务消费者
type Consumer struct {
	*provider.Container
}

// NewConsumer 创建消费者
func NewConsumer(c *provider.Container) *Consumer {
	return &Consumer{
		Container: c,
	}
}

// Register 注册消费者
func (c *Consumer) Register(mux *asynq.ServeMux) {
	if c == nil || mux == nil {
		logger.Debugw("worker_register_skip_nil", "consumer_nil", c == nil, "mux_nil", mux == nil)
		return
	}
	mux.HandleFunc(queue.TaskCommissionSettle, c.handleCommissionSettle)
	mux.HandleFunc(queue.TaskCommissionClawback, c.handleCommissionClawback)
	mux.HandleFunc(queue.TaskCommissionConfirm, c.handleCommissionConfirm)
}

func (c *Consumer) handleCommissionSettle(_ context.Context, task *asynq.Task) error {
	if c == nil || task == nil {
		logger.Debugw("worker_commission_settle_skip_nil", "consumer_nil", c == nil, "task_nil", task == nil)
		return nil
	}
	var payload queue.CommissionSettlePayload
	if err := json.Unmarshal(task.Payload(), &payload); err != nil {
		logger.Warnw("worker_commission_settle_unmarshal_failed", "error", err)
		return err
	}
	if payload.OrderID == 0 {
		logger.Debugw("worker_commission_settle_skip_invalid_payload", "order_id", payload.OrderID)
		return nil
	}
	if c.CommissionService == nil {
		logger.Warnw("worker_commission_settle_skip_service_nil", "order_id", payload.OrderID)
		return nil
	}
	if err := c.CommissionService.HandleOrderPaid(payload.OrderID); err != nil {
		if errors.Is(err, service.ErrNotFound) {
			logger.Debugw("worker_commission_settle_skip_order_not_found", "order_id", payload.OrderID)
			return nil
		}
		logger.Warnw("worker_commission_settle_failed", "order_id", payload.OrderID, "error", err)
		return err
	}
	return nil
}

func (c *Consumer) handleCommissionConfirm(_ context.Context, task *asynq.Task) error {
	if c == nil || task == nil {
		logger.Debugw("worker_commission_confirm_skip_nil", "consumer_nil", c == nil, "task_nil", task == nil)
		return nil
	}
	var payload queue.CommissionConfirmPayload
	if err := json.Unmarshal(task.Payload(), &payload); err != nil {
		logger.Warnw("worker_commission_confirm_unmarshal_failed", "error", err)
		return err
	}
	if c.CommissionService == nil {
		logger.Warnw("worker_commission_confirm_skip_service_nil")
		return nil
	}
	confirmed, err := c.CommissionService.ConfirmDueCommissions(time.Now(), payload.Limit)
	if err != nil {
		logger.Warnw("worker_commission_confirm_failed", "error", err)
		return err
	}
	if confirmed > 0 {
		logger.Infow("worker_commission_confirm_done", "confirmed", confirmed)
	}
	return nil
}

func (c *Consumer) handleCommissionClawback(_ context.Context, task *asynq.Task) error {
	if c == nil || task == nil {
		logger.Debugw("worker_commission_clawback_skip_nil", "consumer_nil", c == nil, "task_nil", task == nil)
		return nil
	}
	var payload queue.CommissionClawbackPayload
	if err := json.Unmarshal(task.Payload(), &payload); err != nil {
		logger.Warnw("worker_commission_clawback_unmarshal_failed", "error", err)
		return err
	}
	if payload.OrderID == 0 {
		logger.Debugw("worker_commission_clawback_skip_invalid_payload", "order_id", payload.OrderID)
		return nil
	}
	if c.CommissionService == nil {
		logger.Warnw("worker_commission_clawback_skip_service_nil", "order_id", payload.OrderID)
		return nil
	}
	if err := c.CommissionService.HandleOrderRefunded(payload.OrderID, payload.Reason); err != nil {
		if errors.Is(err, service.ErrNotFound) {
			logger.Debugw("worker_commission_clawback_skip_order_not_found", "order_id", payload.OrderID)
			return nil
		}
		logger.Warnw("worker_commission_clawback_failed", "order_id", payload.OrderID, "error", err)
		return err
	}
	return nil
}
