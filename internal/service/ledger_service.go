package service

import (
	"fmt"
	"strings"
	"time"

	"github.com/fenxiao-next/internal/constants"
	"github.com/fenxiao-next/internal/logger"
	"github.com/fenxiao-next/internal/models"
	"github.com/fenxiao-next/internal/repository"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

// LedgerService 佣金账务服务
// 余额变动在行锁事务内完成，流水携带变动前后余额，保证可追溯。
type LedgerService struct {
	ledgerRepo repository.LedgerRepository
}

// NewLedgerService 创建账务服务
func NewLedgerService(ledgerRepo repository.LedgerRepository) *LedgerService {
	return &LedgerService{ledgerRepo: ledgerRepo}
}

// LedgerChangeInput 余额变动入参
// Delta 为正表示入账，为负表示出账。
type LedgerChangeInput struct {
	AffiliateProfileID uint
	Delta              decimal.Decimal
	Type               string
	Level              int
	Basis              string
	OrderID            *uint
	CommissionID       *uint
	Reference          string
	Remark             string
	Currency           string
	// AllowPartial 出账时余额不足按余额截断（用于退款回扣）
	AllowPartial bool
}

// LedgerAdminAdjustInput 人工调账入参
// Delta 为正表示入账，为负表示出账。
type LedgerAdminAdjustInput struct {
	AffiliateProfileID uint
	Delta              decimal.Decimal
	Type               string
	Remark             string
}

// AdminAdjust 人工调整账户余额
// type 仅允许 payout / admin_adjust，payout 只能出账；每次调账生成独立 Reference。
func (s *LedgerService) AdminAdjust(input LedgerAdminAdjustInput) (*models.AffiliateAccount, *models.LedgerEntry, error) {
	adjustType := strings.ToLower(strings.TrimSpace(input.Type))
	if adjustType == "" {
		adjustType = constants.LedgerTypeAdminAdjust
	}
	if adjustType != constants.LedgerTypePayout && adjustType != constants.LedgerTypeAdminAdjust {
		return nil, nil, ErrLedgerAdjustInvalid
	}

	delta := input.Delta.Round(2)
	if delta.IsZero() {
		return nil, nil, ErrLedgerAdjustInvalid
	}
	if adjustType == constants.LedgerTypePayout && delta.GreaterThan(decimal.Zero) {
		return nil, nil, ErrLedgerAdjustInvalid
	}

	return s.Change(LedgerChangeInput{
		AffiliateProfileID: input.AffiliateProfileID,
		Delta:              delta,
		Type:               adjustType,
		Reference:          fmt.Sprintf("adjust:%s", uuid.NewString()),
		Remark:             strings.TrimSpace(input.Remark),
	})
}

// GetAccount 查询账户
func (s *LedgerService) GetAccount(profileID uint) (*models.AffiliateAccount, error) {
	return s.ledgerRepo.GetAccountByProfileID(profileID)
}

// ListEntries 查询账务流水
func (s *LedgerService) ListEntries(filter repository.LedgerEntryListFilter) ([]models.LedgerEntry, int64, error) {
	return s.ledgerRepo.ListEntries(filter)
}

// Change 在独立事务内执行余额变动
func (s *LedgerService) Change(input LedgerChangeInput) (*models.AffiliateAccount, *models.LedgerEntry, error) {
	var accountResult *models.AffiliateAccount
	var entryResult *models.LedgerEntry
	if err := s.ledgerRepo.Transaction(func(tx *gorm.DB) error {
		account, entry, err := s.ApplyInTx(tx, input)
		if err != nil {
			return err
		}
		accountResult = account
		entryResult = entry
		return nil
	}); err != nil {
		return nil, nil, err
	}
	return accountResult, entryResult, nil
}

// ApplyInTx 在既有事务内执行余额变动
// 同一 Reference 的变动只生效一次，重复调用返回已有流水。
func (s *LedgerService) ApplyInTx(tx *gorm.DB, input LedgerChangeInput) (*models.AffiliateAccount, *models.LedgerEntry, error) {
	repo := s.ledgerRepo.WithTx(tx)
	now := time.Now()

	if reference := strings.TrimSpace(input.Reference); reference != "" {
		existing, err := repo.GetEntryByReference(reference)
		if err != nil {
			return nil, nil, err
		}
		if existing != nil {
			account, err := repo.GetAccountByProfileID(input.AffiliateProfileID)
			if err != nil {
				return nil, nil, err
			}
			return account, existing, nil
		}
	}

	account, err := s.ensureAccountForUpdate(repo, input.AffiliateProfileID, now)
	if err != nil {
		return nil, nil, err
	}

	delta := input.Delta.Round(2)
	before := account.Balance.Decimal.Round(2)
	after := before.Add(delta).Round(2)
	if after.LessThan(decimal.Zero) {
		if !input.AllowPartial {
			return nil, nil, ErrLedgerInsufficientBalance
		}
		// 余额不足时按余额截断出账，差额记录日志
		logger.Warnw("ledger_debit_clamped_to_balance",
			"affiliate_profile_id", input.AffiliateProfileID,
			"requested", delta.Abs().String(),
			"balance", before.String(),
			"type", input.Type,
		)
		delta = before.Neg()
		after = decimal.Zero
	}

	direction := constants.LedgerDirectionIn
	amount := delta
	if delta.LessThan(decimal.Zero) {
		direction = constants.LedgerDirectionOut
		amount = delta.Abs()
	}

	account.Balance = models.NewMoneyFromDecimal(after)
	account.UpdatedAt = now
	if err := repo.UpdateAccount(account); err != nil {
		return nil, nil, ErrLedgerAccountUpdateFailed
	}

	entry := &models.LedgerEntry{
		AffiliateProfileID: input.AffiliateProfileID,
		OrderID:            input.OrderID,
		CommissionID:       input.CommissionID,
		Type:               input.Type,
		Direction:          direction,
		Level:              input.Level,
		Basis:              input.Basis,
		Amount:             models.NewMoneyFromDecimal(amount),
		BalanceBefore:      models.NewMoneyFromDecimal(before),
		BalanceAfter:       models.NewMoneyFromDecimal(after),
		Currency:           normalizeLedgerCurrency(input.Currency),
		Reference:          strings.TrimSpace(input.Reference),
		Remark:             input.Remark,
		CreatedAt:          now,
	}
	if err := repo.CreateEntry(entry); err != nil {
		return nil, nil, ErrLedgerEntryCreateFailed
	}

	return account, entry, nil
}

func (s *LedgerService) ensureAccountForUpdate(repo repository.LedgerRepository, profileID uint, now time.Time) (*models.AffiliateAccount, error) {
	account, err := repo.GetAccountByProfileIDForUpdate(profileID)
	if err != nil {
		return nil, err
	}
	if account != nil {
		return account, nil
	}

	account = &models.AffiliateAccount{
		AffiliateProfileID: profileID,
		Balance:            models.NewMoneyFromDecimal(decimal.Zero),
		Currency:           "CNY",
		CreatedAt:          now,
		UpdatedAt:          now,
	}
	if err := repo.CreateAccount(account); err != nil {
		// 并发创建时回退到已有记录
		existing, getErr := repo.GetAccountByProfileIDForUpdate(profileID)
		if getErr == nil && existing != nil {
			return existing, nil
		}
		return nil, err
	}
	return account, nil
}

func normalizeLedgerCurrency(currency string) string {
	normalized := strings.ToUpper(strings.TrimSpace(currency))
	if normalized == "" {
		return "CNY"
	}
	return normalized
}
