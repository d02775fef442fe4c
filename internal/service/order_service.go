package service

import (
	"crypto/rand"
	"fmt"
	"math/big"
	"strings"
	"time"

	"github.com/fenxiao-next/internal/constants"
	"github.com/fenxiao-next/internal/logger"
	"github.com/fenxiao-next/internal/models"
	"github.com/fenxiao-next/internal/queue"
	"github.com/fenxiao-next/internal/repository"

	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

const orderExpireMinutes = 30

// OrderService 订单服务
type OrderService struct {
	orderRepo         repository.OrderRepository
	productRepo       repository.ProductRepository
	userRepo          repository.UserRepository
	affiliateService  *AffiliateService
	commissionService *CommissionService
	queueClient       *queue.Client
}

// NewOrderService 创建订单服务
func NewOrderService(
	orderRepo repository.OrderRepository,
	productRepo repository.ProductRepository,
	userRepo repository.UserRepository,
	affiliateService *AffiliateService,
	commissionService *CommissionService,
	queueClient *queue.Client,
) *OrderService {
	return &OrderService{
		orderRepo:         orderRepo,
		productRepo:       productRepo,
		userRepo:          userRepo,
		affiliateService:  affiliateService,
		commissionService: commissionService,
		queueClient:       queueClient,
	}
}

// OrderItemInput 下单商品入参
type OrderItemInput struct {
	ProductID uint `json:"product_id"`
	Quantity  int  `json:"quantity"`
}

// CreateOrderInput 下单入参
type CreateOrderInput struct {
	UserID        uint
	Items         []OrderItemInput
	AffiliateCode string
	ClientIP      string
}

// CreateOrder 创建订单
// 推广归因、首单标记与成本均在下单时快照，后续结算不再回查实时状态。
func (s *OrderService) CreateOrder(input CreateOrderInput) (*models.Order, error) {
	if input.UserID == 0 {
		return nil, ErrInvalidCredentials
	}
	user, err := s.userRepo.GetByID(input.UserID)
	if err != nil {
		return nil, err
	}
	if user == nil {
		return nil, ErrNotFound
	}
	if strings.TrimSpace(user.Status) == constants.UserStatusDisabled {
		return nil, ErrUserDisabled
	}
	if len(input.Items) == 0 {
		return nil, fmt.Errorf("订单商品不能为空")
	}

	items, totalAmount, costAmount, err := s.buildOrderItems(input.Items)
	if err != nil {
		return nil, err
	}

	var affiliateProfileID *uint
	affiliateCode := ""
	if s.affiliateService != nil {
		affiliateProfileID, affiliateCode, err = s.affiliateService.ResolveOrderAffiliateSnapshot(input.UserID, input.AffiliateCode)
		if err != nil {
			return nil, err
		}
	}

	paidCount, err := s.orderRepo.CountPaidByUser(input.UserID, 0)
	if err != nil {
		return nil, err
	}

	now := time.Now()
	expiresAt := now.Add(orderExpireMinutes * time.Minute)
	order := &models.Order{
		OrderNo:            generateOrderNo(),
		UserID:             input.UserID,
		Status:             constants.OrderStatusPendingPayment,
		Currency:           "CNY",
		OriginalAmount:     models.NewMoneyFromDecimal(totalAmount),
		TotalAmount:        models.NewMoneyFromDecimal(totalAmount),
		CostAmount:         models.NewMoneyFromDecimal(costAmount),
		AffiliateProfileID: affiliateProfileID,
		AffiliateCode:      affiliateCode,
		IsFirstOrder:       paidCount == 0,
		ClientIP:           input.ClientIP,
		ExpiresAt:          &expiresAt,
		Items:              items,
	}
	if err := s.orderRepo.Create(order); err != nil {
		return nil, err
	}
	return order, nil
}

// MarkOrderPaid 标记订单已支付并触发佣金结算
func (s *OrderService) MarkOrderPaid(orderID uint) (*models.Order, error) {
	var order *models.Order
	err := s.orderRepo.Transaction(func(tx *gorm.DB) error {
		repo := s.orderRepo.WithTx(tx)
		locked, err := repo.GetByIDForUpdate(orderID)
		if err != nil {
			return err
		}
		if locked == nil {
			return ErrNotFound
		}
		if locked.Status != constants.OrderStatusPendingPayment {
			return ErrOrderStatusInvalid
		}
		now := time.Now()
		locked.Status = constants.OrderStatusPaid
		locked.PaidAt = &now
		if err := repo.Update(locked); err != nil {
			return err
		}
		order = locked
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.dispatchCommissionSettle(order.ID)
	return order, nil
}

// RefundOrder 订单退款并触发佣金回收
func (s *OrderService) RefundOrder(orderID uint, reason string) (*models.Order, error) {
	var order *models.Order
	err := s.orderRepo.Transaction(func(tx *gorm.DB) error {
		repo := s.orderRepo.WithTx(tx)
		locked, err := repo.GetByIDForUpdate(orderID)
		if err != nil {
			return err
		}
		if locked == nil {
			return ErrNotFound
		}
		if locked.Status != constants.OrderStatusPaid && locked.Status != constants.OrderStatusCompleted {
			return ErrOrderStatusInvalid
		}
		now := time.Now()
		locked.Status = constants.OrderStatusRefunded
		locked.RefundedAt = &now
		if err := repo.Update(locked); err != nil {
			return err
		}
		order = locked
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.dispatchCommissionClawback(order.ID, reason)
	return order, nil
}

// CancelOrder 取消待支付订单
func (s *OrderService) CancelOrder(orderID uint, userID uint) (*models.Order, error) {
	var order *models.Order
	err := s.orderRepo.Transaction(func(tx *gorm.DB) error {
		repo := s.orderRepo.WithTx(tx)
		locked, err := repo.GetByIDForUpdate(orderID)
		if err != nil {
			return err
		}
		if locked == nil {
			return ErrNotFound
		}
		if userID != 0 && locked.UserID != userID {
			return ErrNotFound
		}
		if locked.Status != constants.OrderStatusPendingPayment {
			return ErrOrderStatusInvalid
		}
		now := time.Now()
		locked.Status = constants.OrderStatusCanceled
		locked.CanceledAt = &now
		if err := repo.Update(locked); err != nil {
			return err
		}
		order = locked
		return nil
	})
	if err != nil {
		return nil, err
	}
	return order, nil
}

// GetOrderByUser 买家查询自己的订单
func (s *OrderService) GetOrderByUser(orderID uint, userID uint) (*models.Order, error) {
	order, err := s.orderRepo.GetByID(orderID)
	if err != nil {
		return nil, err
	}
	if order == nil || order.UserID != userID {
		return nil, ErrNotFound
	}
	return order, nil
}

// ListOrdersByUser 买家订单列表
func (s *OrderService) ListOrdersByUser(filter repository.OrderListFilter) ([]models.Order, int64, error) {
	if filter.UserID == 0 {
		return []models.Order{}, 0, nil
	}
	return s.orderRepo.List(filter)
}

// ListOrdersForAdmin 后台订单列表
func (s *OrderService) ListOrdersForAdmin(filter repository.OrderListFilter) ([]models.Order, int64, error) {
	return s.orderRepo.List(filter)
}

// GetOrderForAdmin 后台订单详情
func (s *OrderService) GetOrderForAdmin(orderID uint) (*models.Order, error) {
	order, err := s.orderRepo.GetByID(orderID)
	if err != nil {
		return nil, err
	}
	if order == nil {
		return nil, ErrNotFound
	}
	return order, nil
}

func (s *OrderService) buildOrderItems(inputs []OrderItemInput) ([]models.OrderItem, decimal.Decimal, decimal.Decimal, error) {
	totalAmount := decimal.Zero
	costAmount := decimal.Zero
	items := make([]models.OrderItem, 0, len(inputs))
	for _, item := range inputs {
		if item.Quantity <= 0 {
			return nil, decimal.Zero, decimal.Zero, fmt.Errorf("商品数量必须大于 0")
		}
		product, err := s.productRepo.GetByID(item.ProductID)
		if err != nil {
			return nil, decimal.Zero, decimal.Zero, err
		}
		if product == nil || !product.IsActive {
			return nil, decimal.Zero, decimal.Zero, ErrNotFound
		}
		quantity := decimal.NewFromInt(int64(item.Quantity))
		lineTotal := product.PriceAmount.Decimal.Mul(quantity)
		lineCost := product.CostAmount.Decimal.Mul(quantity)
		totalAmount = totalAmount.Add(lineTotal)
		costAmount = costAmount.Add(lineCost)
		items = append(items, models.OrderItem{
			ProductID:  product.ID,
			CategoryID: product.CategoryID,
			TitleJSON:  product.TitleJSON,
			UnitPrice:  product.PriceAmount,
			UnitCost:   product.CostAmount,
			Quantity:   item.Quantity,
			TotalPrice: models.NewMoneyFromDecimal(lineTotal),
		})
	}
	return items, totalAmount, costAmount, nil
}

// dispatchCommissionSettle 结算任务优先走队列，队列未启用时同步结算。
func (s *OrderService) dispatchCommissionSettle(orderID uint) {
	if s.queueClient.Enabled() {
		err := s.queueClient.EnqueueCommissionSettle(queue.CommissionSettlePayload{OrderID: orderID})
		if err == nil {
			return
		}
		logger.SW().Errorw("commission_settle_enqueue_failed", "order_id", orderID, "error", err)
	}
	if s.commissionService == nil {
		return
	}
	if err := s.commissionService.HandleOrderPaid(orderID); err != nil {
		logger.SW().Errorw("commission_settle_failed", "order_id", orderID, "error", err)
	}
}

func (s *OrderService) dispatchCommissionClawback(orderID uint, reason string) {
	if s.queueClient.Enabled() {
		err := s.queueClient.EnqueueCommissionClawback(queue.CommissionClawbackPayload{OrderID: orderID, Reason: reason})
		if err == nil {
			return
		}
		logger.SW().Errorw("commission_clawback_enqueue_failed", "order_id", orderID, "error", err)
	}
	if s.commissionService == nil {
		return
	}
	if err := s.commissionService.HandleOrderRefunded(orderID, reason); err != nil {
		logger.SW().Errorw("commission_clawback_failed", "order_id", orderID, "error", err)
	}
}

func generateOrderNo() string {
	now := time.Now().Format("20060102150405")
	return fmt.Sprintf("FX%s%s", now, randNumeric(6))
}

func randNumeric(length int) string {
	var b strings.Builder
	for i := 0; i < length; i++ {
		n, err := rand.Int(rand.Reader, big.NewInt(10))
		if err != nil {
			b.WriteString("0")
			continue
		}
		b.WriteString(fmt.Sprintf("%d", n.Int64()))
	}
	return b.String()
}
