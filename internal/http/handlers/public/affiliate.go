package public

import (
	"errors"
	"strconv"
	"strings"

	"github.com/fenxiao-next/internal/http/response"
	"github.com/fenxiao-next/internal/repository"
	"github.com/fenxiao-next/internal/service"

	"github.com/gin-gonic/gin"
)

const (
	defaultAffiliateCookieName = "fx_ref"
	defaultCookieExpireDays    = 30
)

func (h *Handler) affiliateCookieName() string {
	if h.Config != nil && strings.TrimSpace(h.Config.Affiliate.CookieName) != "" {
		return strings.TrimSpace(h.Config.Affiliate.CookieName)
	}
	return defaultAffiliateCookieName
}

func (h *Handler) affiliateCookieMaxAge() int {
	days := defaultCookieExpireDays
	if h.Config != nil && h.Config.Affiliate.CookieExpireDays > 0 {
		days = h.Config.Affiliate.CookieExpireDays
	}
	return days * 24 * 3600
}

// TrackAffiliateClick 记录推广点击并写入归因 Cookie
// 推广落地页通过 GET /affiliate/track?code=xxx 调用，点击记录失败不影响归因。
func (h *Handler) TrackAffiliateClick(c *gin.Context) {
	code := strings.TrimSpace(c.Query("code"))
	if code == "" {
		respondError(c, response.CodeBadRequest, "error.affiliate_code_invalid", nil)
		return
	}

	if err := h.AffiliateService.TrackClick(service.AffiliateTrackClickInput{
		AffiliateCode: code,
		LandingPath:   strings.TrimSpace(c.Query("path")),
		Referer:       c.GetHeader("Referer"),
		ClientIP:      c.ClientIP(),
		UserAgent:     c.GetHeader("User-Agent"),
	}); err != nil {
		switch {
		case errors.Is(err, service.ErrAffiliateDisabled):
			respondError(c, response.CodeBadRequest, "error.affiliate_disabled", nil)
			return
		case errors.Is(err, service.ErrAffiliateCodeInvalid):
			respondError(c, response.CodeBadRequest, "error.affiliate_code_invalid", nil)
			return
		default:
			requestLog(c).Warnw("affiliate_track_click_failed", "code", code, "error", err)
		}
	}

	c.SetCookie(h.affiliateCookieName(), code, h.affiliateCookieMaxAge(), "/", "", false, true)
	response.Success(c, gin.H{"tracked": true})
}

// OpenAffiliateRequest 开通推广请求
type OpenAffiliateRequest struct {
	SponsorCode string `json:"sponsor_code"`
}

// OpenAffiliate 开通推广档案
// 未显式传上级推广码时回退到归因 Cookie。
func (h *Handler) OpenAffiliate(c *gin.Context) {
	uid, ok := getUserID(c)
	if !ok {
		return
	}

	var req OpenAffiliateRequest
	if err := c.ShouldBindJSON(&req); err != nil && c.Request.ContentLength > 0 {
		respondError(c, response.CodeBadRequest, "error.bad_request", err)
		return
	}

	sponsorCode := strings.TrimSpace(req.SponsorCode)
	if sponsorCode == "" {
		if cookie, err := c.Cookie(h.affiliateCookieName()); err == nil {
			sponsorCode = strings.TrimSpace(cookie)
		}
	}

	profile, err := h.AffiliateService.OpenAffiliate(uid, sponsorCode)
	if err != nil {
		switch {
		case errors.Is(err, service.ErrAffiliateDisabled):
			respondError(c, response.CodeBadRequest, "error.affiliate_disabled", nil)
		case errors.Is(err, service.ErrAffiliateAlreadyOpened):
			respondError(c, response.CodeBadRequest, "error.affiliate_exists", nil)
		case errors.Is(err, service.ErrNotFound):
			respondError(c, response.CodeNotFound, "error.user_not_found", nil)
		default:
			respondError(c, response.CodeInternal, "error.affiliate_open_failed", err)
		}
		return
	}
	response.Success(c, profile)
}

// GetAffiliateDashboard 获取推广看板
func (h *Handler) GetAffiliateDashboard(c *gin.Context) {
	uid, ok := getUserID(c)
	if !ok {
		return
	}

	data, err := h.AffiliateService.GetUserDashboard(uid)
	if err != nil {
		respondError(c, response.CodeInternal, "error.affiliate_fetch_failed", err)
		return
	}
	response.Success(c, data)
}

// ListAffiliateCommissions 查询我的佣金记录
func (h *Handler) ListAffiliateCommissions(c *gin.Context) {
	uid, ok := getUserID(c)
	if !ok {
		return
	}

	page, _ := strconv.Atoi(c.DefaultQuery("page", "1"))
	pageSize, _ := strconv.Atoi(c.DefaultQuery("page_size", "20"))
	page, pageSize = normalizePagination(page, pageSize)
	status := strings.TrimSpace(c.Query("status"))

	rows, total, err := h.AffiliateService.ListUserCommissions(uid, page, pageSize, status)
	if err != nil {
		respondError(c, response.CodeInternal, "error.commission_fetch_failed", err)
		return
	}
	pagination := response.NewPagination(page, pageSize, total)
	response.SuccessWithPage(c, rows, pagination)
}

// ListAffiliateLedgerEntries 查询我的账务流水
func (h *Handler) ListAffiliateLedgerEntries(c *gin.Context) {
	uid, ok := getUserID(c)
	if !ok {
		return
	}

	profile, err := h.AffiliateService.GetProfileByUserID(uid)
	if err != nil {
		respondError(c, response.CodeInternal, "error.ledger_fetch_failed", err)
		return
	}
	if profile == nil {
		respondError(c, response.CodeBadRequest, "error.affiliate_not_opened", nil)
		return
	}

	page, _ := strconv.Atoi(c.DefaultQuery("page", "1"))
	pageSize, _ := strconv.Atoi(c.DefaultQuery("page_size", "20"))
	page, pageSize = normalizePagination(page, pageSize)

	entries, total, err := h.LedgerService.ListEntries(repository.LedgerEntryListFilter{
		Page:               page,
		PageSize:           pageSize,
		AffiliateProfileID: profile.ID,
		Type:               strings.TrimSpace(c.Query("type")),
		Direction:          strings.TrimSpace(c.Query("direction")),
	})
	if err != nil {
		respondError(c, response.CodeInternal, "error.ledger_fetch_failed", err)
		return
	}

	pagination := response.NewPagination(page, pageSize, total)
	response.SuccessWithPage(c, entries, pagination)
}
