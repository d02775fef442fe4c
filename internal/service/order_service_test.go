package service

import (
	"errors"
	"fmt"
	"strings"
	"testing"
	"time"

	"github.com/fenxiao-next/internal/constants"
	"github.com/fenxiao-next/internal/models"
	"github.com/fenxiao-next/internal/repository"

	"github.com/glebarez/sqlite"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

type orderServiceTestEnv struct {
	db               *gorm.DB
	orderService     *OrderService
	affiliateService *AffiliateService
	settingService   *SettingService
}

func setupOrderServiceTest(t *testing.T) orderServiceTestEnv {
	t.Helper()

	dsn := fmt.Sprintf("file:order_service_%d?mode=memory&cache=shared", time.Now().UnixNano())
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{})
	if err != nil {
		t.Fatalf("open sqlite failed: %v", err)
	}
	if err := db.AutoMigrate(
		&models.User{},
		&models.Category{},
		&models.Product{},
		&models.AffiliateProfile{},
		&models.AffiliateClick{},
		&models.AffiliateCommission{},
		&models.AffiliateAccount{},
		&models.LedgerEntry{},
		&models.Order{},
		&models.OrderItem{},
		&models.CommissionRule{},
	); err != nil {
		t.Fatalf("auto migrate failed: %v", err)
	}

	settingService := NewSettingService(newMockSettingRepo())
	ledgerService := NewLedgerService(repository.NewLedgerRepository(db))
	affiliateRepo := repository.NewAffiliateRepository(db)
	userRepo := repository.NewUserRepository(db)
	affiliateService := NewAffiliateService(affiliateRepo, userRepo, settingService, ledgerService)
	commissionService := NewCommissionService(
		affiliateRepo,
		repository.NewCommissionRuleRepository(db),
		repository.NewOrderRepository(db),
		settingService,
		ledgerService,
	)
	orderService := NewOrderService(
		repository.NewOrderRepository(db),
		repository.NewProductRepository(db),
		userRepo,
		affiliateService,
		commissionService,
		nil,
	)
	return orderServiceTestEnv{
		db:               db,
		orderService:     orderService,
		affiliateService: affiliateService,
		settingService:   settingService,
	}
}

func createTestProduct(t *testing.T, db *gorm.DB, slug, price, cost string, active bool) *models.Product {
	t.Helper()
	category := &models.Category{
		Slug:     slug + "-cat",
		NameJSON: models.JSON{"zh-CN": "测试分类", "en-US": "Test Category"},
	}
	if err := db.Create(category).Error; err != nil {
		t.Fatalf("create category failed: %v", err)
	}
	product := &models.Product{
		CategoryID:  category.ID,
		Slug:        slug,
		TitleJSON:   models.JSON{"zh-CN": "测试商品", "en-US": "Test Product"},
		PriceAmount: models.NewMoneyFromDecimal(decimal.RequireFromString(price)),
		CostAmount:  models.NewMoneyFromDecimal(decimal.RequireFromString(cost)),
		IsActive:    active,
	}
	if err := db.Create(product).Error; err != nil {
		t.Fatalf("create product failed: %v", err)
	}
	return product
}

func TestCreateOrderSnapshotsAffiliateAndTotals(t *testing.T) {
	env := setupOrderServiceTest(t)
	enableAffiliate(t, env.settingService, 10, 0)

	referrerUser := createTestUser(t, env.db, "ref@example.com", constants.UserStatusActive)
	referrer, err := env.affiliateService.OpenAffiliate(referrerUser.ID, "")
	if err != nil {
		t.Fatalf("open affiliate failed: %v", err)
	}
	buyer := createTestUser(t, env.db, "buyer@example.com", constants.UserStatusActive)
	product := createTestProduct(t, env.db, "pro-license", "100", "30", true)

	order, err := env.orderService.CreateOrder(CreateOrderInput{
		UserID:        buyer.ID,
		Items:         []OrderItemInput{{ProductID: product.ID, Quantity: 2}},
		AffiliateCode: referrer.AffiliateCode,
		ClientIP:      "203.0.113.9",
	})
	if err != nil {
		t.Fatalf("create order failed: %v", err)
	}

	if order.Status != constants.OrderStatusPendingPayment {
		t.Fatalf("order status = %s, want pending_payment", order.Status)
	}
	if !strings.HasPrefix(order.OrderNo, "FX") {
		t.Fatalf("order no %q missing prefix", order.OrderNo)
	}
	if !order.TotalAmount.Decimal.Equal(decimal.RequireFromString("200")) {
		t.Fatalf("total = %s, want 200", order.TotalAmount.Decimal)
	}
	if !order.CostAmount.Decimal.Equal(decimal.RequireFromString("60")) {
		t.Fatalf("cost = %s, want 60", order.CostAmount.Decimal)
	}
	if order.AffiliateProfileID == nil || *order.AffiliateProfileID != referrer.ID {
		t.Fatalf("affiliate snapshot = %v, want %d", order.AffiliateProfileID, referrer.ID)
	}
	if order.AffiliateCode != referrer.AffiliateCode {
		t.Fatalf("affiliate code snapshot = %q", order.AffiliateCode)
	}
	if !order.IsFirstOrder {
		t.Fatalf("expected first order flag")
	}
	if len(order.Items) != 1 {
		t.Fatalf("expected 1 item, got %d", len(order.Items))
	}
	item := order.Items[0]
	if item.CategoryID != product.CategoryID || item.Quantity != 2 {
		t.Fatalf("item snapshot = category %d quantity %d", item.CategoryID, item.Quantity)
	}
	if !item.UnitCost.Decimal.Equal(decimal.RequireFromString("30")) {
		t.Fatalf("unit cost snapshot = %s, want 30", item.UnitCost.Decimal)
	}
}

func TestCreateOrderSelfReferralNotAttributed(t *testing.T) {
	env := setupOrderServiceTest(t)
	enableAffiliate(t, env.settingService, 10, 0)

	user := createTestUser(t, env.db, "a@example.com", constants.UserStatusActive)
	profile, err := env.affiliateService.OpenAffiliate(user.ID, "")
	if err != nil {
		t.Fatalf("open affiliate failed: %v", err)
	}
	product := createTestProduct(t, env.db, "pro-license", "100", "30", true)

	order, err := env.orderService.CreateOrder(CreateOrderInput{
		UserID:        user.ID,
		Items:         []OrderItemInput{{ProductID: product.ID, Quantity: 1}},
		AffiliateCode: profile.AffiliateCode,
	})
	if err != nil {
		t.Fatalf("create order failed: %v", err)
	}
	if order.AffiliateProfileID != nil || order.AffiliateCode != "" {
		t.Fatalf("self referral should not attribute, got %v / %q", order.AffiliateProfileID, order.AffiliateCode)
	}
}

func TestCreateOrderInactiveProductRejected(t *testing.T) {
	env := setupOrderServiceTest(t)

	user := createTestUser(t, env.db, "a@example.com", constants.UserStatusActive)
	product := createTestProduct(t, env.db, "off-shelf", "100", "30", false)

	_, err := env.orderService.CreateOrder(CreateOrderInput{
		UserID: user.ID,
		Items:  []OrderItemInput{{ProductID: product.ID, Quantity: 1}},
	})
	if !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound for inactive product, got %v", err)
	}
}

func TestCreateOrderFirstOrderFlagClearsAfterPaid(t *testing.T) {
	env := setupOrderServiceTest(t)

	user := createTestUser(t, env.db, "a@example.com", constants.UserStatusActive)
	product := createTestProduct(t, env.db, "pro-license", "100", "30", true)

	first, err := env.orderService.CreateOrder(CreateOrderInput{
		UserID: user.ID,
		Items:  []OrderItemInput{{ProductID: product.ID, Quantity: 1}},
	})
	if err != nil {
		t.Fatalf("create first order failed: %v", err)
	}
	if !first.IsFirstOrder {
		t.Fatalf("expected first order flag on first order")
	}
	if _, err := env.orderService.MarkOrderPaid(first.ID); err != nil {
		t.Fatalf("pay first order failed: %v", err)
	}

	second, err := env.orderService.CreateOrder(CreateOrderInput{
		UserID: user.ID,
		Items:  []OrderItemInput{{ProductID: product.ID, Quantity: 1}},
	})
	if err != nil {
		t.Fatalf("create second order failed: %v", err)
	}
	if second.IsFirstOrder {
		t.Fatalf("second order should not carry first order flag")
	}
}

func TestMarkOrderPaidSettlesCommission(t *testing.T) {
	env := setupOrderServiceTest(t)
	enableAffiliate(t, env.settingService, 10, 0)

	referrerUser := createTestUser(t, env.db, "ref@example.com", constants.UserStatusActive)
	referrer, err := env.affiliateService.OpenAffiliate(referrerUser.ID, "")
	if err != nil {
		t.Fatalf("open affiliate failed: %v", err)
	}
	buyer := createTestUser(t, env.db, "buyer@example.com", constants.UserStatusActive)
	product := createTestProduct(t, env.db, "pro-license", "100", "30", true)

	order, err := env.orderService.CreateOrder(CreateOrderInput{
		UserID:        buyer.ID,
		Items:         []OrderItemInput{{ProductID: product.ID, Quantity: 1}},
		AffiliateCode: referrer.AffiliateCode,
	})
	if err != nil {
		t.Fatalf("create order failed: %v", err)
	}

	paid, err := env.orderService.MarkOrderPaid(order.ID)
	if err != nil {
		t.Fatalf("mark order paid failed: %v", err)
	}
	if paid.Status != constants.OrderStatusPaid || paid.PaidAt == nil {
		t.Fatalf("order not marked paid: status=%s", paid.Status)
	}

	rows := listOrderCommissions(t, env.db, order.ID)
	if len(rows) != 1 {
		t.Fatalf("expected 1 commission after payment, got %d", len(rows))
	}
	if rows[0].AffiliateProfileID != referrer.ID {
		t.Fatalf("commission owner = %d, want %d", rows[0].AffiliateProfileID, referrer.ID)
	}
	if !rows[0].CommissionAmount.Decimal.Equal(decimal.RequireFromString("10")) {
		t.Fatalf("commission = %s, want 10", rows[0].CommissionAmount.Decimal)
	}
	if got := accountBalance(t, env.db, referrer.ID); !got.Equal(decimal.RequireFromString("10")) {
		t.Fatalf("referrer balance = %s, want 10", got)
	}
}

func TestMarkOrderPaidTwiceRejected(t *testing.T) {
	env := setupOrderServiceTest(t)

	user := createTestUser(t, env.db, "a@example.com", constants.UserStatusActive)
	product := createTestProduct(t, env.db, "pro-license", "100", "30", true)
	order, err := env.orderService.CreateOrder(CreateOrderInput{
		UserID: user.ID,
		Items:  []OrderItemInput{{ProductID: product.ID, Quantity: 1}},
	})
	if err != nil {
		t.Fatalf("create order failed: %v", err)
	}

	if _, err := env.orderService.MarkOrderPaid(order.ID); err != nil {
		t.Fatalf("first pay failed: %v", err)
	}
	if _, err := env.orderService.MarkOrderPaid(order.ID); !errors.Is(err, ErrOrderStatusInvalid) {
		t.Fatalf("expected ErrOrderStatusInvalid, got %v", err)
	}
}

func TestCancelOrderGuards(t *testing.T) {
	env := setupOrderServiceTest(t)

	user := createTestUser(t, env.db, "a@example.com", constants.UserStatusActive)
	other := createTestUser(t, env.db, "b@example.com", constants.UserStatusActive)
	product := createTestProduct(t, env.db, "pro-license", "100", "30", true)
	order, err := env.orderService.CreateOrder(CreateOrderInput{
		UserID: user.ID,
		Items:  []OrderItemInput{{ProductID: product.ID, Quantity: 1}},
	})
	if err != nil {
		t.Fatalf("create order failed: %v", err)
	}

	if _, err := env.orderService.CancelOrder(order.ID, other.ID); !errors.Is(err, ErrNotFound) {
		t.Fatalf("cancel by stranger should fail, got %v", err)
	}

	canceled, err := env.orderService.CancelOrder(order.ID, user.ID)
	if err != nil {
		t.Fatalf("cancel order failed: %v", err)
	}
	if canceled.Status != constants.OrderStatusCanceled || canceled.CanceledAt == nil {
		t.Fatalf("order not canceled: status=%s", canceled.Status)
	}

	if _, err := env.orderService.MarkOrderPaid(order.ID); !errors.Is(err, ErrOrderStatusInvalid) {
		t.Fatalf("paying canceled order should fail, got %v", err)
	}
}

func TestRefundOrderClawsBackCommission(t *testing.T) {
	env := setupOrderServiceTest(t)
	enableAffiliate(t, env.settingService, 10, 0)

	referrerUser := createTestUser(t, env.db, "ref@example.com", constants.UserStatusActive)
	referrer, err := env.affiliateService.OpenAffiliate(referrerUser.ID, "")
	if err != nil {
		t.Fatalf("open affiliate failed: %v", err)
	}
	buyer := createTestUser(t, env.db, "buyer@example.com", constants.UserStatusActive)
	product := createTestProduct(t, env.db, "pro-license", "100", "30", true)

	order, err := env.orderService.CreateOrder(CreateOrderInput{
		UserID:        buyer.ID,
		Items:         []OrderItemInput{{ProductID: product.ID, Quantity: 1}},
		AffiliateCode: referrer.AffiliateCode,
	})
	if err != nil {
		t.Fatalf("create order failed: %v", err)
	}
	if _, err := env.orderService.MarkOrderPaid(order.ID); err != nil {
		t.Fatalf("mark order paid failed: %v", err)
	}

	refunded, err := env.orderService.RefundOrder(order.ID, "质量问题退款")
	if err != nil {
		t.Fatalf("refund order failed: %v", err)
	}
	if refunded.Status != constants.OrderStatusRefunded || refunded.RefundedAt == nil {
		t.Fatalf("order not refunded: status=%s", refunded.Status)
	}

	rows := listOrderCommissions(t, env.db, order.ID)
	if rows[0].Status != constants.AffiliateCommissionStatusInvalid {
		t.Fatalf("commission status = %s, want invalid", rows[0].Status)
	}
	if got := accountBalance(t, env.db, referrer.ID); !got.IsZero() {
		t.Fatalf("balance after refund = %s, want 0", got)
	}

	if _, err := env.orderService.RefundOrder(order.ID, "重复退款"); !errors.Is(err, ErrOrderStatusInvalid) {
		t.Fatalf("double refund should fail, got %v", err)
	}
}
