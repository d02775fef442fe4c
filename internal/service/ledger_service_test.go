package service

import (
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/fenxiao-next/internal/constants"
	"github.com/fenxiao-next/internal/models"
	"github.com/fenxiao-next/internal/repository"

	"github.com/glebarez/sqlite"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

func setupLedgerServiceTest(t *testing.T) (*LedgerService, *gorm.DB) {
	t.Helper()

	dsn := fmt.Sprintf("file:ledger_service_%d?mode=memory&cache=shared", time.Now().UnixNano())
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{})
	if err != nil {
		t.Fatalf("open sqlite failed: %v", err)
	}
	if err := db.AutoMigrate(&models.AffiliateAccount{}, &models.LedgerEntry{}); err != nil {
		t.Fatalf("auto migrate failed: %v", err)
	}
	return NewLedgerService(repository.NewLedgerRepository(db)), db
}

func TestLedgerChangeCreatesAccountAndEntry(t *testing.T) {
	svc, _ := setupLedgerServiceTest(t)

	account, entry, err := svc.Change(LedgerChangeInput{
		AffiliateProfileID: 1,
		Delta:              decimal.NewFromFloat(12.34),
		Type:               constants.LedgerTypeCommission,
		Reference:          "commission:1",
	})
	if err != nil {
		t.Fatalf("ledger change failed: %v", err)
	}
	if !account.Balance.Decimal.Equal(decimal.NewFromFloat(12.34)) {
		t.Fatalf("expected balance 12.34, got %s", account.Balance)
	}
	if entry.Direction != constants.LedgerDirectionIn {
		t.Fatalf("expected direction in, got %q", entry.Direction)
	}
	if !entry.BalanceBefore.Decimal.Equal(decimal.Zero) {
		t.Fatalf("expected balance before 0, got %s", entry.BalanceBefore)
	}
	if !entry.BalanceAfter.Decimal.Equal(decimal.NewFromFloat(12.34)) {
		t.Fatalf("expected balance after 12.34, got %s", entry.BalanceAfter)
	}
}

func TestLedgerChangeBalanceChain(t *testing.T) {
	svc, _ := setupLedgerServiceTest(t)

	if _, _, err := svc.Change(LedgerChangeInput{
		AffiliateProfileID: 1,
		Delta:              decimal.NewFromInt(100),
		Type:               constants.LedgerTypeCommission,
		Reference:          "commission:10",
	}); err != nil {
		t.Fatalf("first change failed: %v", err)
	}

	account, entry, err := svc.Change(LedgerChangeInput{
		AffiliateProfileID: 1,
		Delta:              decimal.NewFromInt(-30),
		Type:               constants.LedgerTypePayout,
		Reference:          "payout:1",
	})
	if err != nil {
		t.Fatalf("second change failed: %v", err)
	}
	if !entry.BalanceBefore.Decimal.Equal(decimal.NewFromInt(100)) {
		t.Fatalf("expected balance before 100, got %s", entry.BalanceBefore)
	}
	if !entry.BalanceAfter.Decimal.Equal(decimal.NewFromInt(70)) {
		t.Fatalf("expected balance after 70, got %s", entry.BalanceAfter)
	}
	if entry.Direction != constants.LedgerDirectionOut {
		t.Fatalf("expected direction out, got %q", entry.Direction)
	}
	if !entry.Amount.Decimal.Equal(decimal.NewFromInt(30)) {
		t.Fatalf("expected amount 30, got %s", entry.Amount)
	}
	if !account.Balance.Decimal.Equal(decimal.NewFromInt(70)) {
		t.Fatalf("expected balance 70, got %s", account.Balance)
	}
}

func TestLedgerChangeIdempotentByReference(t *testing.T) {
	svc, db := setupLedgerServiceTest(t)

	input := LedgerChangeInput{
		AffiliateProfileID: 1,
		Delta:              decimal.NewFromInt(50),
		Type:               constants.LedgerTypeCommission,
		Reference:          "commission:77",
	}
	if _, _, err := svc.Change(input); err != nil {
		t.Fatalf("first change failed: %v", err)
	}
	account, entry, err := svc.Change(input)
	if err != nil {
		t.Fatalf("repeated change failed: %v", err)
	}
	if !account.Balance.Decimal.Equal(decimal.NewFromInt(50)) {
		t.Fatalf("expected balance unchanged at 50, got %s", account.Balance)
	}
	if entry == nil || entry.Reference != "commission:77" {
		t.Fatalf("expected existing entry returned, got %+v", entry)
	}

	var count int64
	if err := db.Model(&models.LedgerEntry{}).Count(&count).Error; err != nil {
		t.Fatalf("count entries failed: %v", err)
	}
	if count != 1 {
		t.Fatalf("expected single entry, got %d", count)
	}
}

func TestLedgerChangeInsufficientBalanceRejected(t *testing.T) {
	svc, _ := setupLedgerServiceTest(t)

	_, _, err := svc.Change(LedgerChangeInput{
		AffiliateProfileID: 1,
		Delta:              decimal.NewFromInt(-10),
		Type:               constants.LedgerTypePayout,
		Reference:          "payout:overdraw",
	})
	if !errors.Is(err, ErrLedgerInsufficientBalance) {
		t.Fatalf("expected insufficient balance error, got %v", err)
	}
}

func TestLedgerChangeAllowPartialClampsToBalance(t *testing.T) {
	svc, _ := setupLedgerServiceTest(t)

	if _, _, err := svc.Change(LedgerChangeInput{
		AffiliateProfileID: 1,
		Delta:              decimal.NewFromInt(20),
		Type:               constants.LedgerTypeCommission,
		Reference:          "commission:88",
	}); err != nil {
		t.Fatalf("credit failed: %v", err)
	}

	account, entry, err := svc.Change(LedgerChangeInput{
		AffiliateProfileID: 1,
		Delta:              decimal.NewFromInt(-50),
		Type:               constants.LedgerTypeRefundDeduction,
		Reference:          "refund:88",
		AllowPartial:       true,
	})
	if err != nil {
		t.Fatalf("partial debit failed: %v", err)
	}
	if !account.Balance.Decimal.Equal(decimal.Zero) {
		t.Fatalf("expected balance clamped to 0, got %s", account.Balance)
	}
	if !entry.Amount.Decimal.Equal(decimal.NewFromInt(20)) {
		t.Fatalf("expected debit truncated to 20, got %s", entry.Amount)
	}
	if !entry.BalanceAfter.Decimal.Equal(decimal.Zero) {
		t.Fatalf("expected balance after 0, got %s", entry.BalanceAfter)
	}
}

func TestLedgerEntriesAppendOnlyTrail(t *testing.T) {
	svc, db := setupLedgerServiceTest(t)

	refs := []string{"commission:1", "commission:2", "payout:1"}
	deltas := []int64{10, 15, -5}
	for i := range refs {
		if _, _, err := svc.Change(LedgerChangeInput{
			AffiliateProfileID: 2,
			Delta:              decimal.NewFromInt(deltas[i]),
			Type:               constants.LedgerTypeCommission,
			Reference:          refs[i],
		}); err != nil {
			t.Fatalf("change %d failed: %v", i, err)
		}
	}

	var entries []models.LedgerEntry
	if err := db.Where("affiliate_profile_id = ?", 2).Order("id asc").Find(&entries).Error; err != nil {
		t.Fatalf("load entries failed: %v", err)
	}
	if len(entries) != 3 {
		t.Fatalf("expected 3 entries, got %d", len(entries))
	}
	// 每条流水的期初余额等于上一条的期末余额
	for i := 1; i < len(entries); i++ {
		if !entries[i].BalanceBefore.Decimal.Equal(entries[i-1].BalanceAfter.Decimal) {
			t.Fatalf("entry %d balance chain broken: before=%s prev after=%s",
				i, entries[i].BalanceBefore, entries[i-1].BalanceAfter)
		}
	}
	if !entries[2].BalanceAfter.Decimal.Equal(decimal.NewFromInt(20)) {
		t.Fatalf("expected final balance 20, got %s", entries[2].BalanceAfter)
	}
}

func TestLedgerAdminAdjustRejectsBadInput(t *testing.T) {
	svc, _ := setupLedgerServiceTest(t)

	cases := []struct {
		name  string
		input LedgerAdminAdjustInput
	}{
		{"零金额", LedgerAdminAdjustInput{AffiliateProfileID: 1, Delta: decimal.Zero}},
		{"非法类型", LedgerAdminAdjustInput{AffiliateProfileID: 1, Delta: decimal.NewFromInt(10), Type: "bonus"}},
		{"payout入账", LedgerAdminAdjustInput{AffiliateProfileID: 1, Delta: decimal.NewFromInt(10), Type: constants.LedgerTypePayout}},
	}
	for _, tc := range cases {
		if _, _, err := svc.AdminAdjust(tc.input); !errors.Is(err, ErrLedgerAdjustInvalid) {
			t.Fatalf("%s: expected ErrLedgerAdjustInvalid, got %v", tc.name, err)
		}
	}
}

func TestLedgerAdminAdjustCreditThenPayout(t *testing.T) {
	svc, db := setupLedgerServiceTest(t)

	account, entry, err := svc.AdminAdjust(LedgerAdminAdjustInput{
		AffiliateProfileID: 1,
		Delta:              decimal.NewFromInt(50),
		Remark:             "活动补贴",
	})
	if err != nil {
		t.Fatalf("admin adjust credit failed: %v", err)
	}
	if entry.Type != constants.LedgerTypeAdminAdjust || entry.Direction != constants.LedgerDirectionIn {
		t.Fatalf("unexpected credit entry: type=%s direction=%s", entry.Type, entry.Direction)
	}
	if !account.Balance.Decimal.Equal(decimal.NewFromInt(50)) {
		t.Fatalf("expected balance 50, got %s", account.Balance.String())
	}

	account, entry, err = svc.AdminAdjust(LedgerAdminAdjustInput{
		AffiliateProfileID: 1,
		Delta:              decimal.NewFromInt(-30),
		Type:               constants.LedgerTypePayout,
	})
	if err != nil {
		t.Fatalf("payout failed: %v", err)
	}
	if entry.Type != constants.LedgerTypePayout || entry.Direction != constants.LedgerDirectionOut {
		t.Fatalf("unexpected payout entry: type=%s direction=%s", entry.Type, entry.Direction)
	}
	if !account.Balance.Decimal.Equal(decimal.NewFromInt(20)) {
		t.Fatalf("expected balance 20, got %s", account.Balance.String())
	}

	// 超出余额的提现不允许部分截断
	if _, _, err := svc.AdminAdjust(LedgerAdminAdjustInput{
		AffiliateProfileID: 1,
		Delta:              decimal.NewFromInt(-100),
		Type:               constants.LedgerTypePayout,
	}); !errors.Is(err, ErrLedgerInsufficientBalance) {
		t.Fatalf("expected ErrLedgerInsufficientBalance, got %v", err)
	}

	var entries []models.LedgerEntry
	if err := db.Order("id ASC").Find(&entries).Error; err != nil {
		t.Fatalf("load entries failed: %v", err)
	}
	if len(entries) != 2 {
		t.Fatalf("expected 2 entries, got %d", len(entries))
	}
	if entries[0].Reference == entries[1].Reference || entries[0].Reference == "" {
		t.Fatalf("expected distinct non-empty references, got %q and %q", entries[0].Reference, entries[1].Reference)
	}
}
