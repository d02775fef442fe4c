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
	"gorm.io/gorm"
)

func setupAffiliateServiceTest(t *testing.T) (*AffiliateService, *SettingService, *gorm.DB) {
	t.Helper()

	dsn := fmt.Sprintf("file:affiliate_service_%d?mode=memory&cache=shared", time.Now().UnixNano())
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{})
	if err != nil {
		t.Fatalf("open sqlite failed: %v", err)
	}
	if err := db.AutoMigrate(
		&models.User{},
		&models.AffiliateProfile{},
		&models.AffiliateClick{},
		&models.AffiliateCommission{},
		&models.AffiliateAccount{},
		&models.LedgerEntry{},
	); err != nil {
		t.Fatalf("auto migrate failed: %v", err)
	}

	settingService := NewSettingService(newMockSettingRepo())
	ledgerService := NewLedgerService(repository.NewLedgerRepository(db))
	svc := NewAffiliateService(
		repository.NewAffiliateRepository(db),
		repository.NewUserRepository(db),
		settingService,
		ledgerService,
	)
	return svc, settingService, db
}

func createTestUser(t *testing.T, db *gorm.DB, email, status string) *models.User {
	t.Helper()
	user := &models.User{
		Email:        email,
		PasswordHash: "$2a$10$invalidhashforunittests00000000000000000000000000000",
		Status:       status,
	}
	if err := db.Create(user).Error; err != nil {
		t.Fatalf("create user failed: %v", err)
	}
	return user
}

func TestOpenAffiliateDisabled(t *testing.T) {
	svc, _, db := setupAffiliateServiceTest(t)
	user := createTestUser(t, db, "a@example.com", constants.UserStatusActive)

	if _, err := svc.OpenAffiliate(user.ID, ""); !errors.Is(err, ErrAffiliateDisabled) {
		t.Fatalf("expected ErrAffiliateDisabled, got %v", err)
	}
}

func TestOpenAffiliateCreatesProfile(t *testing.T) {
	svc, settings, db := setupAffiliateServiceTest(t)
	enableAffiliate(t, settings, 10, 0)
	user := createTestUser(t, db, "a@example.com", constants.UserStatusActive)

	profile, err := svc.OpenAffiliate(user.ID, "")
	if err != nil {
		t.Fatalf("open affiliate failed: %v", err)
	}
	if profile.UserID != user.ID {
		t.Fatalf("profile user = %d, want %d", profile.UserID, user.ID)
	}
	if len(profile.AffiliateCode) != affiliateCodeLength {
		t.Fatalf("affiliate code %q has unexpected length", profile.AffiliateCode)
	}
	if profile.Status != constants.AffiliateProfileStatusActive {
		t.Fatalf("profile status = %s, want active", profile.Status)
	}
	if profile.SponsorID != nil {
		t.Fatalf("expected no sponsor, got %v", profile.SponsorID)
	}
}

func TestOpenAffiliateAlreadyOpened(t *testing.T) {
	svc, settings, db := setupAffiliateServiceTest(t)
	enableAffiliate(t, settings, 10, 0)
	user := createTestUser(t, db, "a@example.com", constants.UserStatusActive)

	if _, err := svc.OpenAffiliate(user.ID, ""); err != nil {
		t.Fatalf("first open failed: %v", err)
	}
	if _, err := svc.OpenAffiliate(user.ID, ""); !errors.Is(err, ErrAffiliateAlreadyOpened) {
		t.Fatalf("expected ErrAffiliateAlreadyOpened, got %v", err)
	}
}

func TestOpenAffiliateDisabledUserRejected(t *testing.T) {
	svc, settings, db := setupAffiliateServiceTest(t)
	enableAffiliate(t, settings, 10, 0)
	user := createTestUser(t, db, "a@example.com", constants.UserStatusDisabled)

	if _, err := svc.OpenAffiliate(user.ID, ""); !errors.Is(err, ErrUserDisabled) {
		t.Fatalf("expected ErrUserDisabled, got %v", err)
	}
}

func TestOpenAffiliateBindsSponsorByCode(t *testing.T) {
	svc, settings, db := setupAffiliateServiceTest(t)
	enableAffiliate(t, settings, 10, 0)

	sponsorUser := createTestUser(t, db, "sponsor@example.com", constants.UserStatusActive)
	sponsor, err := svc.OpenAffiliate(sponsorUser.ID, "")
	if err != nil {
		t.Fatalf("open sponsor failed: %v", err)
	}

	user := createTestUser(t, db, "a@example.com", constants.UserStatusActive)
	profile, err := svc.OpenAffiliate(user.ID, " "+sponsor.AffiliateCode+" ")
	if err != nil {
		t.Fatalf("open with sponsor code failed: %v", err)
	}
	if profile.SponsorID == nil || *profile.SponsorID != sponsor.ID {
		t.Fatalf("sponsor binding = %v, want %d", profile.SponsorID, sponsor.ID)
	}
}

func TestOpenAffiliateInvalidSponsorCode(t *testing.T) {
	svc, settings, db := setupAffiliateServiceTest(t)
	enableAffiliate(t, settings, 10, 0)
	user := createTestUser(t, db, "a@example.com", constants.UserStatusActive)

	if _, err := svc.OpenAffiliate(user.ID, "nosuchcode"); !errors.Is(err, ErrAffiliateCodeInvalid) {
		t.Fatalf("expected ErrAffiliateCodeInvalid, got %v", err)
	}
}

func TestOpenAffiliateDisabledSponsorCodeRejected(t *testing.T) {
	svc, settings, db := setupAffiliateServiceTest(t)
	enableAffiliate(t, settings, 10, 0)

	sponsorUser := createTestUser(t, db, "sponsor@example.com", constants.UserStatusActive)
	sponsor, err := svc.OpenAffiliate(sponsorUser.ID, "")
	if err != nil {
		t.Fatalf("open sponsor failed: %v", err)
	}
	if _, err := svc.UpdateProfileStatus(sponsor.ID, constants.AffiliateProfileStatusDisabled); err != nil {
		t.Fatalf("disable sponsor failed: %v", err)
	}

	user := createTestUser(t, db, "a@example.com", constants.UserStatusActive)
	if _, err := svc.OpenAffiliate(user.ID, sponsor.AffiliateCode); !errors.Is(err, ErrAffiliateCodeInvalid) {
		t.Fatalf("expected ErrAffiliateCodeInvalid for disabled sponsor, got %v", err)
	}
}

func TestAssignSponsorSelfRejected(t *testing.T) {
	svc, settings, db := setupAffiliateServiceTest(t)
	enableAffiliate(t, settings, 10, 0)
	user := createTestUser(t, db, "a@example.com", constants.UserStatusActive)
	profile, err := svc.OpenAffiliate(user.ID, "")
	if err != nil {
		t.Fatalf("open failed: %v", err)
	}

	if _, err := svc.AssignSponsor(profile.ID, profile.ID); !errors.Is(err, ErrSponsorSelf) {
		t.Fatalf("expected ErrSponsorSelf, got %v", err)
	}
}

func TestAssignSponsorCycleRejected(t *testing.T) {
	svc, settings, db := setupAffiliateServiceTest(t)
	enableAffiliate(t, settings, 10, 0)

	userA := createTestUser(t, db, "a@example.com", constants.UserStatusActive)
	userB := createTestUser(t, db, "b@example.com", constants.UserStatusActive)
	userC := createTestUser(t, db, "c@example.com", constants.UserStatusActive)
	a, _ := svc.OpenAffiliate(userA.ID, "")
	b, _ := svc.OpenAffiliate(userB.ID, "")
	c, _ := svc.OpenAffiliate(userC.ID, "")

	// 形成 a <- b <- c 的推荐链
	if _, err := svc.AssignSponsor(b.ID, a.ID); err != nil {
		t.Fatalf("assign b->a failed: %v", err)
	}
	if _, err := svc.AssignSponsor(c.ID, b.ID); err != nil {
		t.Fatalf("assign c->b failed: %v", err)
	}

	// 把链尾设为链首的上级会成环
	if _, err := svc.AssignSponsor(a.ID, c.ID); !errors.Is(err, ErrSponsorCycle) {
		t.Fatalf("expected ErrSponsorCycle, got %v", err)
	}
	if _, err := svc.AssignSponsor(a.ID, b.ID); !errors.Is(err, ErrSponsorCycle) {
		t.Fatalf("expected ErrSponsorCycle for indirect cycle, got %v", err)
	}
}

func TestAssignSponsorUnbind(t *testing.T) {
	svc, settings, db := setupAffiliateServiceTest(t)
	enableAffiliate(t, settings, 10, 0)

	userA := createTestUser(t, db, "a@example.com", constants.UserStatusActive)
	userB := createTestUser(t, db, "b@example.com", constants.UserStatusActive)
	a, _ := svc.OpenAffiliate(userA.ID, "")
	b, _ := svc.OpenAffiliate(userB.ID, "")

	if _, err := svc.AssignSponsor(b.ID, a.ID); err != nil {
		t.Fatalf("assign failed: %v", err)
	}
	updated, err := svc.AssignSponsor(b.ID, 0)
	if err != nil {
		t.Fatalf("unbind failed: %v", err)
	}
	if updated.SponsorID != nil {
		t.Fatalf("expected sponsor cleared, got %v", updated.SponsorID)
	}
}

func TestAssignSponsorNotFound(t *testing.T) {
	svc, settings, db := setupAffiliateServiceTest(t)
	enableAffiliate(t, settings, 10, 0)
	user := createTestUser(t, db, "a@example.com", constants.UserStatusActive)
	profile, _ := svc.OpenAffiliate(user.ID, "")

	if _, err := svc.AssignSponsor(profile.ID, 9999); !errors.Is(err, ErrSponsorNotFound) {
		t.Fatalf("expected ErrSponsorNotFound, got %v", err)
	}
}

func TestUpdateProfileStatus(t *testing.T) {
	svc, settings, db := setupAffiliateServiceTest(t)
	enableAffiliate(t, settings, 10, 0)
	user := createTestUser(t, db, "a@example.com", constants.UserStatusActive)
	profile, _ := svc.OpenAffiliate(user.ID, "")

	if _, err := svc.UpdateProfileStatus(profile.ID, "frozen"); !errors.Is(err, ErrAffiliateProfileStatusInvalid) {
		t.Fatalf("expected ErrAffiliateProfileStatusInvalid, got %v", err)
	}

	updated, err := svc.UpdateProfileStatus(profile.ID, " Disabled ")
	if err != nil {
		t.Fatalf("update status failed: %v", err)
	}
	if updated.Status != constants.AffiliateProfileStatusDisabled {
		t.Fatalf("status = %s, want disabled", updated.Status)
	}
}

func TestTrackClickRecordsRow(t *testing.T) {
	svc, settings, db := setupAffiliateServiceTest(t)
	enableAffiliate(t, settings, 10, 0)
	user := createTestUser(t, db, "a@example.com", constants.UserStatusActive)
	profile, _ := svc.OpenAffiliate(user.ID, "")

	err := svc.TrackClick(AffiliateTrackClickInput{
		AffiliateCode: profile.AffiliateCode,
		LandingPath:   "/products/pro-license",
		ClientIP:      "203.0.113.9",
		UserAgent:     "unit-test",
	})
	if err != nil {
		t.Fatalf("track click failed: %v", err)
	}

	var clicks []models.AffiliateClick
	if err := db.Find(&clicks).Error; err != nil {
		t.Fatalf("list clicks failed: %v", err)
	}
	if len(clicks) != 1 {
		t.Fatalf("expected 1 click, got %d", len(clicks))
	}
	if clicks[0].AffiliateProfileID != profile.ID || clicks[0].LandingPath != "/products/pro-license" {
		t.Fatalf("unexpected click row: %+v", clicks[0])
	}
}

func TestTrackClickUnknownCodeIgnored(t *testing.T) {
	svc, settings, db := setupAffiliateServiceTest(t)
	enableAffiliate(t, settings, 10, 0)

	if err := svc.TrackClick(AffiliateTrackClickInput{AffiliateCode: "nosuchcode"}); err != nil {
		t.Fatalf("track click failed: %v", err)
	}
	var count int64
	if err := db.Model(&models.AffiliateClick{}).Count(&count).Error; err != nil {
		t.Fatalf("count clicks failed: %v", err)
	}
	if count != 0 {
		t.Fatalf("unknown code should not record click, got %d", count)
	}
}

func TestResolveOrderAffiliateSnapshot(t *testing.T) {
	svc, settings, db := setupAffiliateServiceTest(t)
	enableAffiliate(t, settings, 10, 0)

	referrerUser := createTestUser(t, db, "ref@example.com", constants.UserStatusActive)
	referrer, _ := svc.OpenAffiliate(referrerUser.ID, "")
	buyer := createTestUser(t, db, "buyer@example.com", constants.UserStatusActive)

	profileID, code, err := svc.ResolveOrderAffiliateSnapshot(buyer.ID, referrer.AffiliateCode)
	if err != nil {
		t.Fatalf("resolve snapshot failed: %v", err)
	}
	if profileID == nil || *profileID != referrer.ID || code != referrer.AffiliateCode {
		t.Fatalf("snapshot = %v / %q", profileID, code)
	}
}

func TestResolveOrderAffiliateSnapshotSelfPurchase(t *testing.T) {
	svc, settings, db := setupAffiliateServiceTest(t)
	enableAffiliate(t, settings, 10, 0)

	user := createTestUser(t, db, "a@example.com", constants.UserStatusActive)
	profile, _ := svc.OpenAffiliate(user.ID, "")

	profileID, code, err := svc.ResolveOrderAffiliateSnapshot(user.ID, profile.AffiliateCode)
	if err != nil {
		t.Fatalf("resolve snapshot failed: %v", err)
	}
	if profileID != nil || code != "" {
		t.Fatalf("self purchase should not attribute, got %v / %q", profileID, code)
	}
}

func TestResolveOrderAffiliateSnapshotDisabledProfile(t *testing.T) {
	svc, settings, db := setupAffiliateServiceTest(t)
	enableAffiliate(t, settings, 10, 0)

	user := createTestUser(t, db, "a@example.com", constants.UserStatusActive)
	profile, _ := svc.OpenAffiliate(user.ID, "")
	if _, err := svc.UpdateProfileStatus(profile.ID, constants.AffiliateProfileStatusDisabled); err != nil {
		t.Fatalf("disable profile failed: %v", err)
	}

	buyer := createTestUser(t, db, "buyer@example.com", constants.UserStatusActive)
	profileID, _, err := svc.ResolveOrderAffiliateSnapshot(buyer.ID, profile.AffiliateCode)
	if err != nil {
		t.Fatalf("resolve snapshot failed: %v", err)
	}
	if profileID != nil {
		t.Fatalf("disabled profile should not attribute, got %v", profileID)
	}
}
