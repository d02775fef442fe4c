package worker

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/fenxiao-next/internal/constants"
	"github.com/fenxiao-next/internal/models"
	"github.com/fenxiao-next/internal/provider"
	"github.com/fenxiao-next/internal/queue"
	"github.com/fenxiao-next/internal/repository"
	"github.com/fenxiao-next/internal/service"

	"github.com/glebarez/sqlite"
	"github.com/hibiken/asynq"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

type workerSettingRepo struct {
	store map[string]models.JSON
}

func (m *workerSettingRepo) GetByKey(key string) (*models.Setting, error) {
	value, ok := m.store[key]
	if !ok {
		return nil, nil
	}
	return &models.Setting{Key: key, ValueJSON: value}, nil
}

func (m *workerSettingRepo) Upsert(key string, value models.JSON) (*models.Setting, error) {
	m.store[key] = value
	return &models.Setting{Key: key, ValueJSON: value}, nil
}

func setupConsumerTest(t *testing.T) (*Consumer, *gorm.DB) {
	t.Helper()

	dsn := fmt.Sprintf("file:worker_%d?mode=memory&cache=shared", time.Now().UnixNano())
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{})
	if err != nil {
		t.Fatalf("open sqlite failed: %v", err)
	}
	if err := db.AutoMigrate(
		&models.User{},
		&models.AffiliateProfile{},
		&models.AffiliateCommission{},
		&models.AffiliateAccount{},
		&models.LedgerEntry{},
		&models.Order{},
		&models.OrderItem{},
		&models.CommissionRule{},
	); err != nil {
		t.Fatalf("auto migrate failed: %v", err)
	}

	settingService := service.NewSettingService(&workerSettingRepo{store: map[string]models.JSON{}})
	if _, err := settingService.UpdateAffiliateSetting(service.AffiliateSetting{
		Enabled:     true,
		DefaultRate: 10,
	}); err != nil {
		t.Fatalf("update affiliate setting failed: %v", err)
	}
	ledgerService := service.NewLedgerService(repository.NewLedgerRepository(db))
	commissionService := service.NewCommissionService(
		repository.NewAffiliateRepository(db),
		repository.NewCommissionRuleRepository(db),
		repository.NewOrderRepository(db),
		settingService,
		ledgerService,
	)

	consumer := NewConsumer(&provider.Container{CommissionService: commissionService})
	return consumer, db
}

func seedPaidOrderWithReferrer(t *testing.T, db *gorm.DB) *models.Order {
	t.Helper()
	profile := &models.AffiliateProfile{
		UserID:        10,
		AffiliateCode: "workertst",
		Status:        constants.AffiliateProfileStatusActive,
	}
	if err := db.Create(profile).Error; err != nil {
		t.Fatalf("create profile failed: %v", err)
	}
	now := time.Now()
	order := &models.Order{
		OrderNo:            fmt.Sprintf("FX%d", time.Now().UnixNano()),
		UserID:             99,
		Status:             constants.OrderStatusPaid,
		Currency:           "CNY",
		TotalAmount:        models.NewMoneyFromDecimal(decimal.NewFromInt(100)),
		AffiliateProfileID: &profile.ID,
		PaidAt:             &now,
	}
	if err := db.Create(order).Error; err != nil {
		t.Fatalf("create order failed: %v", err)
	}
	return order
}

func TestHandleCommissionSettleTask(t *testing.T) {
	consumer, db := setupConsumerTest(t)
	order := seedPaidOrderWithReferrer(t, db)

	task, err := queue.NewCommissionSettleTask(queue.CommissionSettlePayload{OrderID: order.ID})
	if err != nil {
		t.Fatalf("build task failed: %v", err)
	}
	if err := consumer.handleCommissionSettle(context.Background(), task); err != nil {
		t.Fatalf("handle settle task failed: %v", err)
	}

	var count int64
	if err := db.Model(&models.AffiliateCommission{}).Where("order_id = ?", order.ID).Count(&count).Error; err != nil {
		t.Fatalf("count commissions failed: %v", err)
	}
	if count != 1 {
		t.Fatalf("expected 1 commission, got %d", count)
	}
}

func TestHandleCommissionSettleTaskInvalidPayload(t *testing.T) {
	consumer, _ := setupConsumerTest(t)

	task := asynq.NewTask(queue.TaskCommissionSettle, []byte("not-json"))
	if err := consumer.handleCommissionSettle(context.Background(), task); err == nil {
		t.Fatalf("expected error for invalid payload")
	}

	task = asynq.NewTask(queue.TaskCommissionSettle, []byte(`{"order_id":0}`))
	if err := consumer.handleCommissionSettle(context.Background(), task); err != nil {
		t.Fatalf("zero order id should be skipped, got %v", err)
	}
}

func TestHandleCommissionClawbackTask(t *testing.T) {
	consumer, db := setupConsumerTest(t)
	order := seedPaidOrderWithReferrer(t, db)

	settleTask, err := queue.NewCommissionSettleTask(queue.CommissionSettlePayload{OrderID: order.ID})
	if err != nil {
		t.Fatalf("build settle task failed: %v", err)
	}
	if err := consumer.handleCommissionSettle(context.Background(), settleTask); err != nil {
		t.Fatalf("handle settle task failed: %v", err)
	}

	clawbackTask, err := queue.NewCommissionClawbackTask(queue.CommissionClawbackPayload{
		OrderID: order.ID,
		Reason:  "订单退款",
	})
	if err != nil {
		t.Fatalf("build clawback task failed: %v", err)
	}
	if err := consumer.handleCommissionClawback(context.Background(), clawbackTask); err != nil {
		t.Fatalf("handle clawback task failed: %v", err)
	}

	var commission models.AffiliateCommission
	if err := db.Where("order_id = ?", order.ID).First(&commission).Error; err != nil {
		t.Fatalf("load commission failed: %v", err)
	}
	if commission.Status != constants.AffiliateCommissionStatusInvalid {
		t.Fatalf("commission status = %s, want invalid", commission.Status)
	}
}

func TestHandleCommissionConfirmTask(t *testing.T) {
	consumer, db := setupConsumerTest(t)

	profile := &models.AffiliateProfile{
		UserID:        20,
		AffiliateCode: "confirmts",
		Status:        constants.AffiliateProfileStatusActive,
	}
	if err := db.Create(profile).Error; err != nil {
		t.Fatalf("create profile failed: %v", err)
	}
	due := time.Now().Add(-time.Hour)
	commission := &models.AffiliateCommission{
		AffiliateProfileID: profile.ID,
		OrderID:            1,
		CommissionType:     constants.AffiliateCommissionTypeOrder,
		Basis:              constants.PayoutBasisSalesAmount,
		BaseAmount:         models.NewMoneyFromDecimal(decimal.NewFromInt(100)),
		CommissionAmount:   models.NewMoneyFromDecimal(decimal.NewFromInt(10)),
		Status:             constants.AffiliateCommissionStatusPendingConfirm,
		ConfirmAt:          &due,
	}
	if err := db.Create(commission).Error; err != nil {
		t.Fatalf("create commission failed: %v", err)
	}

	task, err := queue.NewCommissionConfirmTask(queue.CommissionConfirmPayload{Limit: 50})
	if err != nil {
		t.Fatalf("build confirm task failed: %v", err)
	}
	if err := consumer.handleCommissionConfirm(context.Background(), task); err != nil {
		t.Fatalf("handle confirm task failed: %v", err)
	}

	var updated models.AffiliateCommission
	if err := db.First(&updated, commission.ID).Error; err != nil {
		t.Fatalf("load commission failed: %v", err)
	}
	if updated.Status != constants.AffiliateCommissionStatusAvailable {
		t.Fatalf("commission status = %s, want available", updated.Status)
	}
}
