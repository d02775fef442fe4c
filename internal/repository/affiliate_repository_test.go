package repository

import (
	"fmt"
	"testing"
	"time"

	"github.com/fenxiao-next/internal/constants"
	"github.com/fenxiao-next/internal/models"

	"github.com/glebarez/sqlite"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

func setupAffiliateRepositoryTest(t *testing.T) (*GormAffiliateRepository, *gorm.DB) {
	t.Helper()
	dsn := fmt.Sprintf("file:affiliate_repo_%d?mode=memory&cache=shared", time.Now().UnixNano())
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{})
	if err != nil {
		t.Fatalf("open sqlite failed: %v", err)
	}
	if err := db.AutoMigrate(
		&models.AffiliateProfile{},
		&models.AffiliateClick{},
		&models.AffiliateCommission{},
		&models.Order{},
	); err != nil {
		t.Fatalf("migrate affiliate tables failed: %v", err)
	}
	return NewAffiliateRepository(db), db
}

func seedProfile(t *testing.T, repo *GormAffiliateRepository, userID uint, code string, sponsorID *uint) *models.AffiliateProfile {
	t.Helper()
	profile := &models.AffiliateProfile{
		UserID:        userID,
		AffiliateCode: code,
		SponsorID:     sponsorID,
		Status:        constants.AffiliateProfileStatusActive,
	}
	if err := repo.CreateProfile(profile); err != nil {
		t.Fatalf("create profile failed: %v", err)
	}
	return profile
}

func TestGetSponsorID(t *testing.T) {
	repo, _ := setupAffiliateRepositoryTest(t)
	root := seedProfile(t, repo, 1, "ROOTCODE1", nil)
	child := seedProfile(t, repo, 2, "CHILDCODE", &root.ID)

	sponsorID, err := repo.GetSponsorID(child.ID)
	if err != nil {
		t.Fatalf("get sponsor id failed: %v", err)
	}
	if sponsorID == nil || *sponsorID != root.ID {
		t.Fatalf("sponsor id = %v, want %d", sponsorID, root.ID)
	}

	sponsorID, err = repo.GetSponsorID(root.ID)
	if err != nil {
		t.Fatalf("get root sponsor failed: %v", err)
	}
	if sponsorID != nil {
		t.Fatalf("root sponsor should be nil, got %v", sponsorID)
	}

	sponsorID, err = repo.GetSponsorID(9999)
	if err != nil {
		t.Fatalf("missing profile should not error: %v", err)
	}
	if sponsorID != nil {
		t.Fatalf("missing profile sponsor should be nil, got %v", sponsorID)
	}
}

func TestUpdateProfileSponsor(t *testing.T) {
	repo, _ := setupAffiliateRepositoryTest(t)
	a := seedProfile(t, repo, 1, "CODEAAAA1", nil)
	b := seedProfile(t, repo, 2, "CODEBBBB2", nil)

	if err := repo.UpdateProfileSponsor(b.ID, &a.ID, time.Now()); err != nil {
		t.Fatalf("bind sponsor failed: %v", err)
	}
	updated, err := repo.GetProfileByID(b.ID)
	if err != nil {
		t.Fatalf("get profile failed: %v", err)
	}
	if updated.SponsorID == nil || *updated.SponsorID != a.ID {
		t.Fatalf("sponsor = %v, want %d", updated.SponsorID, a.ID)
	}

	if err := repo.UpdateProfileSponsor(b.ID, nil, time.Now()); err != nil {
		t.Fatalf("unbind sponsor failed: %v", err)
	}
	updated, err = repo.GetProfileByID(b.ID)
	if err != nil {
		t.Fatalf("get profile failed: %v", err)
	}
	if updated.SponsorID != nil {
		t.Fatalf("sponsor should be cleared, got %v", updated.SponsorID)
	}
}

func TestGetProfileByCodeNormalizesCase(t *testing.T) {
	repo, _ := setupAffiliateRepositoryTest(t)
	profile := seedProfile(t, repo, 1, "ABCD1234", nil)

	found, err := repo.GetProfileByCode(" abcd1234 ")
	if err != nil {
		t.Fatalf("get by code failed: %v", err)
	}
	if found == nil || found.ID != profile.ID {
		t.Fatalf("profile lookup failed, got %v", found)
	}

	missing, err := repo.GetProfileByCode("ZZZZ9999")
	if err != nil {
		t.Fatalf("get missing code failed: %v", err)
	}
	if missing != nil {
		t.Fatalf("expected nil for unknown code, got %v", missing)
	}
}

func TestCommissionUniquePerOrderProfileTypeLevel(t *testing.T) {
	repo, _ := setupAffiliateRepositoryTest(t)
	profile := seedProfile(t, repo, 1, "COMMCODE1", nil)

	commission := &models.AffiliateCommission{
		AffiliateProfileID: profile.ID,
		OrderID:            100,
		CommissionType:     constants.AffiliateCommissionTypeOrder,
		Level:              0,
		Basis:              constants.PayoutBasisSalesAmount,
		CommissionAmount:   models.NewMoneyFromDecimal(decimal.NewFromInt(10)),
		Status:             constants.AffiliateCommissionStatusAvailable,
	}
	if err := repo.CreateCommission(commission); err != nil {
		t.Fatalf("create commission failed: %v", err)
	}

	dup := &models.AffiliateCommission{
		AffiliateProfileID: profile.ID,
		OrderID:            100,
		CommissionType:     constants.AffiliateCommissionTypeOrder,
		Level:              0,
		Basis:              constants.PayoutBasisSalesAmount,
		CommissionAmount:   models.NewMoneyFromDecimal(decimal.NewFromInt(10)),
		Status:             constants.AffiliateCommissionStatusAvailable,
	}
	if err := repo.CreateCommission(dup); err == nil {
		t.Fatalf("expected unique violation for duplicate commission")
	}

	// 不同层级的佣金允许共存
	upline := &models.AffiliateCommission{
		AffiliateProfileID: profile.ID,
		OrderID:            100,
		CommissionType:     constants.AffiliateCommissionTypeUpline,
		Level:              1,
		Basis:              constants.PayoutBasisSalesAmount,
		CommissionAmount:   models.NewMoneyFromDecimal(decimal.NewFromInt(5)),
		Status:             constants.AffiliateCommissionStatusAvailable,
	}
	if err := repo.CreateCommission(upline); err != nil {
		t.Fatalf("create upline commission failed: %v", err)
	}

	found, err := repo.GetCommission(100, profile.ID, constants.AffiliateCommissionTypeOrder, 0)
	if err != nil {
		t.Fatalf("get commission failed: %v", err)
	}
	if found == nil || found.ID != commission.ID {
		t.Fatalf("commission lookup failed, got %v", found)
	}
}

func TestListCommissionsFilter(t *testing.T) {
	repo, _ := setupAffiliateRepositoryTest(t)
	profile := seedProfile(t, repo, 1, "LISTCODE1", nil)
	other := seedProfile(t, repo, 2, "LISTCODE2", nil)

	statuses := []string{
		constants.AffiliateCommissionStatusPendingConfirm,
		constants.AffiliateCommissionStatusAvailable,
		constants.AffiliateCommissionStatusInvalid,
	}
	for i, status := range statuses {
		commission := &models.AffiliateCommission{
			AffiliateProfileID: profile.ID,
			OrderID:            uint(200 + i),
			CommissionType:     constants.AffiliateCommissionTypeOrder,
			Basis:              constants.PayoutBasisSalesAmount,
			CommissionAmount:   models.NewMoneyFromDecimal(decimal.NewFromInt(int64(i + 1))),
			Status:             status,
		}
		if err := repo.CreateCommission(commission); err != nil {
			t.Fatalf("create commission failed: %v", err)
		}
	}
	outsider := &models.AffiliateCommission{
		AffiliateProfileID: other.ID,
		OrderID:            300,
		CommissionType:     constants.AffiliateCommissionTypeOrder,
		Basis:              constants.PayoutBasisSalesAmount,
		CommissionAmount:   models.NewMoneyFromDecimal(decimal.NewFromInt(9)),
		Status:             constants.AffiliateCommissionStatusAvailable,
	}
	if err := repo.CreateCommission(outsider); err != nil {
		t.Fatalf("create outsider commission failed: %v", err)
	}

	rows, total, err := repo.ListCommissions(AffiliateCommissionListFilter{
		AffiliateProfileID: profile.ID,
		Page:               1,
		PageSize:           10,
	})
	if err != nil {
		t.Fatalf("list commissions failed: %v", err)
	}
	if total != 3 || len(rows) != 3 {
		t.Fatalf("profile filter total = %d rows = %d, want 3/3", total, len(rows))
	}

	rows, total, err = repo.ListCommissions(AffiliateCommissionListFilter{
		AffiliateProfileID: profile.ID,
		Status:             constants.AffiliateCommissionStatusAvailable,
		Page:               1,
		PageSize:           10,
	})
	if err != nil {
		t.Fatalf("list by status failed: %v", err)
	}
	if total != 1 || len(rows) != 1 {
		t.Fatalf("status filter total = %d rows = %d, want 1/1", total, len(rows))
	}
	if rows[0].Status != constants.AffiliateCommissionStatusAvailable {
		t.Fatalf("filtered status = %s", rows[0].Status)
	}
}

func TestSumCommissionByProfile(t *testing.T) {
	repo, _ := setupAffiliateRepositoryTest(t)
	profile := seedProfile(t, repo, 1, "SUMCODE12", nil)

	amounts := map[string]int64{
		constants.AffiliateCommissionStatusPendingConfirm: 3,
		constants.AffiliateCommissionStatusAvailable:      7,
		constants.AffiliateCommissionStatusInvalid:        11,
	}
	orderID := uint(400)
	for status, amount := range amounts {
		commission := &models.AffiliateCommission{
			AffiliateProfileID: profile.ID,
			OrderID:            orderID,
			CommissionType:     constants.AffiliateCommissionTypeOrder,
			Basis:              constants.PayoutBasisSalesAmount,
			CommissionAmount:   models.NewMoneyFromDecimal(decimal.NewFromInt(amount)),
			Status:             status,
		}
		if err := repo.CreateCommission(commission); err != nil {
			t.Fatalf("create commission failed: %v", err)
		}
		orderID++
	}

	sum, err := repo.SumCommissionByProfile(profile.ID, []string{constants.AffiliateCommissionStatusAvailable})
	if err != nil {
		t.Fatalf("sum available failed: %v", err)
	}
	if !sum.Equal(decimal.NewFromInt(7)) {
		t.Fatalf("available sum = %s, want 7", sum)
	}

	sum, err = repo.SumCommissionByProfile(profile.ID, []string{
		constants.AffiliateCommissionStatusPendingConfirm,
		constants.AffiliateCommissionStatusAvailable,
	})
	if err != nil {
		t.Fatalf("sum pending+available failed: %v", err)
	}
	if !sum.Equal(decimal.NewFromInt(10)) {
		t.Fatalf("combined sum = %s, want 10", sum)
	}
}
