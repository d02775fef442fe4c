package admin

import (
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
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

func setupAdjustLedgerTest(t *testing.T) (*gin.Engine, *gorm.DB) {
	t.Helper()
	gin.SetMode(gin.TestMode)

	dsn := fmt.Sprintf("file:admin_affiliate_%d?mode=memory&cache=shared", time.Now().UnixNano())
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{})
	if err != nil {
		t.Fatalf("open sqlite failed: %v", err)
	}
	if err := db.AutoMigrate(&models.AffiliateProfile{}, &models.AffiliateAccount{}, &models.LedgerEntry{}); err != nil {
		t.Fatalf("auto migrate failed: %v", err)
	}

	handler := New(&provider.Container{
		AffiliateRepo: repository.NewAffiliateRepository(db),
		LedgerService: service.NewLedgerService(repository.NewLedgerRepository(db)),
	})

	r := gin.New()
	r.POST("/admin/affiliates/:id/ledger-adjust", handler.AdjustAffiliateLedger)
	return r, db
}

func postAdjustLedger(t *testing.T, r *gin.Engine, profileID uint, body string) (int, map[string]json.RawMessage) {
	t.Helper()

	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodPost,
		fmt.Sprintf("/admin/affiliates/%d/ledger-adjust", profileID),
		strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	r.ServeHTTP(w, req)

	if w.Code != http.StatusOK {
		t.Fatalf("http status want 200 got %d", w.Code)
	}
	var envelope struct {
		StatusCode int                        `json:"status_code"`
		Data       map[string]json.RawMessage `json:"data"`
	}
	if err := json.Unmarshal(w.Body.Bytes(), &envelope); err != nil {
		t.Fatalf("unmarshal response failed: %v", err)
	}
	return envelope.StatusCode, envelope.Data
}

func TestAdjustAffiliateLedgerCreditsAccount(t *testing.T) {
	r, db := setupAdjustLedgerTest(t)

	profile := models.AffiliateProfile{UserID: 1, AffiliateCode: "CODEA001", Status: constants.AffiliateProfileStatusActive}
	if err := db.Create(&profile).Error; err != nil {
		t.Fatalf("create profile failed: %v", err)
	}

	code, data := postAdjustLedger(t, r, profile.ID, `{"delta":"50","remark":"活动补贴"}`)
	if code != 0 {
		t.Fatalf("status_code want 0 got %d", code)
	}

	var entry models.LedgerEntry
	if err := json.Unmarshal(data["entry"], &entry); err != nil {
		t.Fatalf("unmarshal entry failed: %v", err)
	}
	if entry.Type != constants.LedgerTypeAdminAdjust || entry.Direction != constants.LedgerDirectionIn {
		t.Fatalf("unexpected entry: type=%s direction=%s", entry.Type, entry.Direction)
	}

	var account models.AffiliateAccount
	if err := db.Where("affiliate_profile_id = ?", profile.ID).First(&account).Error; err != nil {
		t.Fatalf("load account failed: %v", err)
	}
	if !account.Balance.Decimal.Equal(decimal.NewFromInt(50)) {
		t.Fatalf("balance want 50 got %s", account.Balance)
	}
}

func TestAdjustAffiliateLedgerUnknownProfile(t *testing.T) {
	r, _ := setupAdjustLedgerTest(t)

	code, _ := postAdjustLedger(t, r, 999, `{"delta":"10"}`)
	if code != 404 {
		t.Fatalf("status_code want 404 got %d", code)
	}
}

func TestAdjustAffiliateLedgerRejectsInvalidAdjustment(t *testing.T) {
	r, db := setupAdjustLedgerTest(t)

	profile := models.AffiliateProfile{UserID: 2, AffiliateCode: "CODEB002", Status: constants.AffiliateProfileStatusActive}
	if err := db.Create(&profile).Error; err != nil {
		t.Fatalf("create profile failed: %v", err)
	}

	// payout 只能出账
	code, _ := postAdjustLedger(t, r, profile.ID, `{"delta":"10","type":"payout"}`)
	if code != 400 {
		t.Fatalf("positive payout status_code want 400 got %d", code)
	}

	// 余额不足的提现直接拒绝
	code, _ = postAdjustLedger(t, r, profile.ID, `{"delta":"-10","type":"payout"}`)
	if code != 400 {
		t.Fatalf("insufficient payout status_code want 400 got %d", code)
	}
}
