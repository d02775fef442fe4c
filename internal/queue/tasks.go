package queue

import (
	"encoding/json"

	"github.com/fenxiao-next/internal/constants"

	"github.com/hibiken/asynq"
)

const (
	// TaskCommissionSettle 订单支付后的佣金结算任务
	TaskCommissionSettle = constants.TaskCommissionSettle
	// TaskCommissionClawback 订单退款后的佣金回收任务
	TaskCommissionClawback = constants.TaskCommissionClawback
	// TaskCommissionConfirm 到期佣金确认任务
	TaskCommissionConfirm = constants.TaskCommissionConfirm
)

// CommissionSettlePayload 佣金结算任务载荷
type CommissionSettlePayload struct {
	OrderID uint `json:"order_id"`
}

// CommissionClawbackPayload 佣金回收任务载荷
type CommissionClawbackPayload struct {
	OrderID uint   `json:"order_id"`
	Reason  string `json:"reason"`
}

// CommissionConfirmPayload 到期佣金确认任务载荷
type CommissionConfirmPayload struct {
	Limit int `json:"limit"`
}

// NewCommissionSettleTask 创建佣金结算任务
func NewCommissionSettleTask(payload CommissionSettlePayload) (*asynq.Task, error) {
	body, err := json.Marshal(payload)
	if err != nil {
		return nil, err
	}
	return asynq.NewTask(TaskCommissionSettle, body), nil
}

// NewCommissionClawbackTask 创建佣金回收任务
func NewCommissionClawbackTask(payload CommissionClawbackPayload) (*asynq.Task, error) {
	body, err := json.Marshal(payload)
	if err != nil {
		return nil, err
	}
	return asynq.NewTask(TaskCommissionClawback, body), nil
}

// NewCommissionConfirmTask 创建到期佣金确认任务
func NewCommissionConfirmTask(payload CommissionConfirmPayload) (*asynq.Task, error) {
	body, err := json.Marshal(payload)
	if err != nil {
		return nil, err
	}
	return asynq.NewTask(TaskCommissionConfirm, body), nil
}
