package service

import (
	"fmt"
	"strings"
	"time"

	"github.com/fenxiao-next/internal/constants"
	"github.com/fenxiao-next/internal/logger"
	"github.com/fenxiao-next/internal/models"
	"github.com/fenxiao-next/internal/repository"

	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

// CommissionService 佣金结算服务
// 负责订单支付后的直接佣金与多级分润、确认期流转以及退款回扣。
type CommissionService struct {
	affiliateRepo  repository.AffiliateRepository
	ruleRepo       repository.CommissionRuleRepository
	orderRepo      repository.OrderRepository
	settingService *SettingService
	ledgerService  *LedgerService
}

// NewCommissionService 创建佣金结算服务
func NewCommissionService(
	affiliateRepo repository.AffiliateRepository,
	ruleRepo repository.CommissionRuleRepository,
	orderRepo repository.OrderRepository,
	settingService *SettingService,
	ledgerService *LedgerService,
) *CommissionService {
	return &CommissionService{
		affiliateRepo:  affiliateRepo,
		ruleRepo:       ruleRepo,
		orderRepo:      orderRepo,
		settingService: settingService,
		ledgerService:  ledgerService,
	}
}

// HandleOrderPaid 订单支付成功后的佣金结算入口
// 配置缺陷只影响对应环节并记录日志，存储读取失败才返回错误。
func (s *CommissionService) HandleOrderPaid(orderID uint) error {
	if orderID == 0 || s.affiliateRepo == nil || s.orderRepo == nil {
		return nil
	}
	setting, err := s.settingService.GetAffiliateSetting()
	if err != nil {
		return err
	}
	if !setting.Enabled {
		return nil
	}

	order, err := s.orderRepo.GetByID(orderID)
	if err != nil {
		return err
	}
	if order == nil || order.PaidAt == nil {
		return nil
	}
	if order.AffiliateProfileID == nil || *order.AffiliateProfileID == 0 {
		return nil
	}

	profile, err := s.affiliateRepo.GetProfileByID(*order.AffiliateProfileID)
	if err != nil {
		return err
	}
	if profile == nil {
		return nil
	}
	if strings.TrimSpace(profile.Status) != constants.AffiliateProfileStatusActive {
		logger.Infow("commission_skipped_profile_inactive",
			"order_id", order.ID,
			"affiliate_profile_id", profile.ID,
			"status", profile.Status,
		)
		return nil
	}
	// 自购不产生佣金
	if order.UserID > 0 && profile.UserID == order.UserID {
		return nil
	}

	ctx := s.buildOrderContext(order)
	rules, err := s.ruleRepo.ListActive()
	if err != nil {
		return err
	}

	paidAt := *order.PaidAt
	rule, action := SelectRule(rules, ctx, paidAt)
	if action == nil {
		// 无规则命中时回退兜底比例
		fallback := RuleAction{
			Type:  constants.CommissionActionPercentage,
			Value: decimal.NewFromFloat(setting.DefaultRate),
		}
		action = &fallback
	}

	directBase := order.TotalAmount.Decimal.Round(2)
	directAmount := ComputeCommission(*action, directBase)

	mlmSetting, err := s.settingService.GetMLMSetting()
	if err != nil {
		return err
	}
	uplineBase := s.resolvePayoutBasis(order, mlmSetting.Basis)
	payouts, err := DistributeUpline(profile.ID, mlmSetting, uplineBase, s.affiliateRepo.GetSponsorID)
	if err != nil {
		return err
	}

	status := constants.AffiliateCommissionStatusPendingConfirm
	var confirmAt *time.Time
	var availableAt *time.Time
	if setting.ConfirmDays <= 0 {
		status = constants.AffiliateCommissionStatusAvailable
		availableAt = &paidAt
	} else {
		t := paidAt.Add(time.Duration(setting.ConfirmDays) * 24 * time.Hour)
		confirmAt = &t
	}

	return s.affiliateRepo.Transaction(func(tx *gorm.DB) error {
		repo := s.affiliateRepo.WithTx(tx)

		if directAmount.GreaterThan(decimal.Zero) {
			var ruleID *uint
			ratePercent := decimal.Zero
			if action.Type == constants.CommissionActionPercentage {
				ratePercent = action.Value.Round(2)
			}
			if rule != nil {
				id := rule.ID
				ruleID = &id
			}
			commission := &models.AffiliateCommission{
				AffiliateProfileID: profile.ID,
				OrderID:            order.ID,
				RuleID:             ruleID,
				CommissionType:     constants.AffiliateCommissionTypeOrder,
				Level:              0,
				Basis:              constants.PayoutBasisSalesAmount,
				BaseAmount:         models.NewMoneyFromDecimal(directBase),
				RatePercent:        models.NewMoneyFromDecimal(ratePercent),
				CommissionAmount:   models.NewMoneyFromDecimal(directAmount),
				Status:             status,
				ConfirmAt:          confirmAt,
				AvailableAt:        availableAt,
			}
			if err := s.createCommissionInTx(tx, repo, commission); err != nil {
				return err
			}
		}

		for _, payout := range payouts {
			sponsor, err := repo.GetProfileByID(payout.AffiliateProfileID)
			if err != nil {
				return err
			}
			if sponsor == nil || strings.TrimSpace(sponsor.Status) != constants.AffiliateProfileStatusActive {
				logger.Infow("upline_payout_skipped_profile_inactive",
					"order_id", order.ID,
					"affiliate_profile_id", payout.AffiliateProfileID,
					"level", payout.Level,
				)
				continue
			}
			commission := &models.AffiliateCommission{
				AffiliateProfileID: payout.AffiliateProfileID,
				OrderID:            order.ID,
				CommissionType:     constants.AffiliateCommissionTypeUpline,
				Level:              payout.Level,
				Basis:              mlmSetting.Basis,
				BaseAmount:         models.NewMoneyFromDecimal(uplineBase),
				RatePercent:        models.NewMoneyFromDecimal(payout.RatePercent),
				CommissionAmount:   models.NewMoneyFromDecimal(payout.Amount),
				Status:             status,
				ConfirmAt:          confirmAt,
				AvailableAt:        availableAt,
			}
			if err := s.createCommissionInTx(tx, repo, commission); err != nil {
				return err
			}
		}
		return nil
	})
}

// createCommissionInTx 创建佣金记录，已存在时跳过；立即可用状态同步入账
func (s *CommissionService) createCommissionInTx(tx *gorm.DB, repo repository.AffiliateRepository, commission *models.AffiliateCommission) error {
	existing, err := repo.GetCommission(commission.OrderID, commission.AffiliateProfileID, commission.CommissionType, commission.Level)
	if err != nil {
		return err
	}
	if existing != nil {
		return nil
	}
	if err := repo.CreateCommission(commission); err != nil {
		if isUniqueViolation(err) {
			return nil
		}
		return err
	}
	if commission.Status != constants.AffiliateCommissionStatusAvailable {
		return nil
	}
	return s.creditCommissionInTx(tx, commission)
}

// ConfirmDueCommissions 将确认期已到的佣金转为可用并入账
func (s *CommissionService) ConfirmDueCommissions(now time.Time, limit int) (int, error) {
	confirmed := 0
	err := s.affiliateRepo.Transaction(func(tx *gorm.DB) error {
		repo := s.affiliateRepo.WithTx(tx)
		rows, err := repo.ListDueCommissionsForUpdate(now, limit)
		if err != nil {
			return err
		}
		for i := range rows {
			commission := &rows[i]
			commission.Status = constants.AffiliateCommissionStatusAvailable
			availableAt := now
			commission.AvailableAt = &availableAt
			commission.UpdatedAt = now
			if err := repo.UpdateCommission(commission); err != nil {
				return err
			}
			if err := s.creditCommissionInTx(tx, commission); err != nil {
				return err
			}
			confirmed++
		}
		return nil
	})
	if err != nil {
		return 0, err
	}
	return confirmed, nil
}

// HandleOrderRefunded 订单退款后的佣金回扣
// 未确认的佣金直接作废，已入账的佣金按余额回扣。
func (s *CommissionService) HandleOrderRefunded(orderID uint, reason string) error {
	if orderID == 0 {
		return nil
	}
	return s.affiliateRepo.Transaction(func(tx *gorm.DB) error {
		repo := s.affiliateRepo.WithTx(tx)
		rows, err := repo.ListCommissionsByOrderForUpdate(orderID, []string{
			constants.AffiliateCommissionStatusPendingConfirm,
			constants.AffiliateCommissionStatusAvailable,
		})
		if err != nil {
			return err
		}
		now := time.Now()
		for i := range rows {
			commission := &rows[i]
			credited := commission.Status == constants.AffiliateCommissionStatusAvailable
			commission.Status = constants.AffiliateCommissionStatusInvalid
			commission.InvalidReason = strings.TrimSpace(reason)
			commission.UpdatedAt = now
			if err := repo.UpdateCommission(commission); err != nil {
				return err
			}
			if !credited {
				continue
			}
			orderRef := commission.OrderID
			commissionID := commission.ID
			if _, _, err := s.ledgerService.ApplyInTx(tx, LedgerChangeInput{
				AffiliateProfileID: commission.AffiliateProfileID,
				Delta:              commission.CommissionAmount.Decimal.Neg(),
				Type:               constants.LedgerTypeRefundDeduction,
				Level:              commission.Level,
				Basis:              commission.Basis,
				OrderID:            &orderRef,
				CommissionID:       &commissionID,
				Reference:          buildLedgerReference("refund", commission.ID),
				Remark:             commission.InvalidReason,
				AllowPartial:       true,
			}); err != nil {
				return err
			}
		}
		return nil
	})
}

// ListCommissions 查询佣金记录
func (s *CommissionService) ListCommissions(filter repository.AffiliateCommissionListFilter) ([]models.AffiliateCommission, int64, error) {
	return s.affiliateRepo.ListCommissions(filter)
}

func (s *CommissionService) creditCommissionInTx(tx *gorm.DB, commission *models.AffiliateCommission) error {
	entryType := constants.LedgerTypeCommission
	if commission.CommissionType == constants.AffiliateCommissionTypeUpline {
		entryType = constants.LedgerTypeUplineBonus
	}
	orderRef := commission.OrderID
	commissionID := commission.ID
	_, _, err := s.ledgerService.ApplyInTx(tx, LedgerChangeInput{
		AffiliateProfileID: commission.AffiliateProfileID,
		Delta:              commission.CommissionAmount.Decimal,
		Type:               entryType,
		Level:              commission.Level,
		Basis:              commission.Basis,
		OrderID:            &orderRef,
		CommissionID:       &commissionID,
		Reference:          buildLedgerReference("commission", commission.ID),
	})
	return err
}

// buildOrderContext 构造规则匹配用的订单快照
func (s *CommissionService) buildOrderContext(order *models.Order) OrderContext {
	categoryIDs := make([]uint, 0, len(order.Items))
	seen := make(map[uint]struct{}, len(order.Items))
	for _, item := range order.Items {
		if item.CategoryID == 0 {
			continue
		}
		if _, ok := seen[item.CategoryID]; ok {
			continue
		}
		seen[item.CategoryID] = struct{}{}
		categoryIDs = append(categoryIDs, item.CategoryID)
	}
	return OrderContext{
		OrderAmount:   order.TotalAmount.Decimal.Round(2),
		IsNewCustomer: order.IsFirstOrder,
		CategoryIDs:   categoryIDs,
	}
}

// resolvePayoutBasis 按口径解析分润基数（利润为负时归零并告警）
func (s *CommissionService) resolvePayoutBasis(order *models.Order, basis string) decimal.Decimal {
	switch basis {
	case constants.PayoutBasisProfit:
		profit := order.TotalAmount.Decimal.Sub(order.CostAmount.Decimal).Round(2)
		if profit.IsNegative() {
			logger.Warnw("payout_basis_profit_negative",
				"order_id", order.ID,
				"total_amount", order.TotalAmount.String(),
				"cost_amount", order.CostAmount.String(),
			)
			return decimal.Zero
		}
		return profit
	default:
		return order.TotalAmount.Decimal.Round(2)
	}
}

func buildLedgerReference(action string, id uint) string {
	return fmt.Sprintf("%s:%d", action, id)
}
