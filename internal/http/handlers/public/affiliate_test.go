package public

import (
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/fenxiao-next/internal/constants"
	"github.com/fenxiao-next/internal/models"
	"github.com/fenxiao-next/internal/provider"
	"github.com/fenxiao-next/internal/repository"
	"github.com/fenxiao-next/internal/service"

	"github.com/gin-gonic/gin"
	"github.com/glebarez/sqlite"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

func setupLedgerEntriesTest(t *testing.T, uid uint) (*gin.Engine, *gorm.DB, *service.LedgerService) {
	t.Helper()
	gin.SetMode(gin.TestMode)

	dsn := fmt.Sprintf("file:public_affiliate_%d?mode=memory&cache=shared", time.Now().UnixNano())
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{})
	if err != nil {
		t.Fatalf("open sqlite failed: %v", err)
	}
	if err := db.AutoMigrate(&models.User{}, &models.AffiliateProfile{}, &models.AffiliateAccount{}, &models.LedgerEntry{}, &models.Setting{}); err != nil {
		t.Fatalf("auto migrate failed: %v", err)
	}

	affiliateRepo := repository.NewAffiliateRepository(db)
	ledgerService := service.NewLedgerService(repository.NewLedgerRepository(db))
	settingService := service.NewSettingService(repository.NewSettingRepository(db))
	affiliateService := service.NewAffiliateService(affiliateRepo, repository.NewUserRepository(db), settingService, ledgerService)

	handler := New(&provider.Container{
		AffiliateService: affiliateService,
		LedgerService:    ledgerService,
	})

	r := gin.New()
	r.Use(func(c *gin.Context) {
		c.Set("user_id", uid)
	})
	r.GET("/user/affiliate/ledger-entries", handler.ListAffiliateLedgerEntries)
	return r, db, ledgerService
}

func getLedgerEntries(t *testing.T, r *gin.Engine, query string) (int, []models.LedgerEntry) {
	t.Helper()

	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/user/affiliate/ledger-entries"+query, nil)
	r.ServeHTTP(w, req)

	if w.Code != http.StatusOK {
		t.Fatalf("http status want 200 got %d", w.Code)
	}
	var envelope struct {
		StatusCode int                  `json:"status_code"`
		Data       []models.LedgerEntry `json:"data"`
	}
	if err := json.Unmarshal(w.Body.Bytes(), &envelope); err != nil {
		t.Fatalf("unmarshal response failed: %v", err)
	}
	return envelope.StatusCode, envelope.Data
}

func TestListAffiliateLedgerEntriesRequiresProfile(t *testing.T) {
	r, _, _ := setupLedgerEntriesTest(t, 7)

	code, _ := getLedgerEntries(t, r, "")
	if code != 400 {
		t.Fatalf("status_code want 400 got %d", code)
	}
}

func TestListAffiliateLedgerEntriesScopedToOwnProfile(t *testing.T) {
	r, db, ledgerService := setupLedgerEntriesTest(t, 1)

	mine := models.AffiliateProfile{UserID: 1, AffiliateCode: "MINE0001", Status: constants.AffiliateProfileStatusActive}
	other := models.AffiliateProfile{UserID: 2, AffiliateCode: "OTHER001", Status: constants.AffiliateProfileStatusActive}
	if err := db.Create(&mine).Error; err != nil {
		t.Fatalf("create profile failed: %v", err)
	}
	if err := db.Create(&other).Error; err != nil {
		t.Fatalf("create profile failed: %v", err)
	}

	seed := []service.LedgerChangeInput{
		{AffiliateProfileID: mine.ID, Delta: decimal.NewFromInt(30), Type: constants.LedgerTypeCommission, Reference: "commission:1"},
		{AffiliateProfileID: mine.ID, Delta: decimal.NewFromInt(-10), Type: constants.LedgerTypePayout, Reference: "payout:1"},
		{AffiliateProfileID: other.ID, Delta: decimal.NewFromInt(99), Type: constants.LedgerTypeCommission, Reference: "commission:2"},
	}
	for _, input := range seed {
		if _, _, err := ledgerService.Change(input); err != nil {
			t.Fatalf("seed ledger change failed: %v", err)
		}
	}

	code, entries := getLedgerEntries(t, r, "")
	if code != 0 {
		t.Fatalf("status_code want 0 got %d", code)
	}
	if len(entries) != 2 {
		t.Fatalf("expected 2 entries, got %d", len(entries))
	}
	for _, entry := range entries {
		if entry.AffiliateProfileID != mine.ID {
			t.Fatalf("entry %d belongs to profile %d", entry.ID, entry.AffiliateProfileID)
		}
	}

	code, entries = getLedgerEntries(t, r, "?type=payout")
	if code != 0 {
		t.Fatalf("status_code want 0 got %d", code)
	}
	if len(entries) != 1 || entries[0].Type != constants.LedgerTypePayout {
		t.Fatalf("expected single payout entry, got %d", len(entries))
	}
}
