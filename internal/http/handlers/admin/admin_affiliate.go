package admin

import (
	"errors"
	"strconv"

	"github.com/fenxiao-next/internal/http/response"
	"github.com/fenxiao-next/internal/repository"
	"github.com/fenxiao-next/internal/service"

	"github.com/gin-gonic/gin"
	"github.com/shopspring/decimal"
)

// GetAffiliateSettings 获取推广返利设置
func (h *Handler) GetAffiliateSettings(c *gin.Context) {
	setting, err := h.SettingService.GetAffiliateSetting()
	if err != nil {
		respondError(c, response.CodeInternal, "error.settings_fetch_failed", err)
		return
	}
	response.Success(c, setting)
}

// UpdateAffiliateSettings 更新推广返利设置
func (h *Handler) UpdateAffiliateSettings(c *gin.Context) {
	var req service.AffiliateSetting
	if err := c.ShouldBindJSON(&req); err != nil {
		respondError(c, response.CodeBadRequest, "error.bad_request", err)
		return
	}

	setting, err := h.SettingService.UpdateAffiliateSetting(req)
	if err != nil {
		if errors.Is(err, service.ErrAffiliateConfigInvalid) {
			respondError(c, response.CodeBadRequest, "error.bad_request", nil)
			return
		}
		respondError(c, response.CodeInternal, "error.settings_save_failed", err)
		return
	}
	response.Success(c, setting)
}

// GetMLMSettings 获取多级分润设置
func (h *Handler) GetMLMSettings(c *gin.Context) {
	setting, err := h.SettingService.GetMLMSetting()
	if err != nil {
		respondError(c, response.CodeInternal, "error.settings_fetch_failed", err)
		return
	}
	response.Success(c, setting)
}

// UpdateMLMSettings 更新多级分润设置
func (h *Handler) UpdateMLMSettings(c *gin.Context) {
	var req service.MLMSetting
	if err := c.ShouldBindJSON(&req); err != nil {
		respondError(c, response.CodeBadRequest, "error.bad_request", err)
		return
	}

	setting, err := h.SettingService.UpdateMLMSetting(req)
	if err != nil {
		if errors.Is(err, service.ErrMLMConfigInvalid) {
			respondError(c, response.CodeBadRequest, "error.mlm_setting_invalid", err)
			return
		}
		respondError(c, response.CodeInternal, "error.settings_save_failed", err)
		return
	}
	response.Success(c, setting)
}

// GetAdminAffiliates 推广用户列表
func (h *Handler) GetAdminAffiliates(c *gin.Context) {
	page, _ := strconv.Atoi(c.DefaultQuery("page", "1"))
	pageSize, _ := strconv.Atoi(c.DefaultQuery("page_size", "20"))
	page, pageSize = normalizePagination(page, pageSize)

	filter := repository.AffiliateProfileListFilter{
		Page:     page,
		PageSize: pageSize,
		Code:     c.Query("code"),
		Status:   c.Query("status"),
		Keyword:  c.Query("search"),
	}
	if raw := c.Query("sponsor_id"); raw != "" {
		if sponsorID, err := strconv.ParseUint(raw, 10, 64); err == nil {
			filter.SponsorID = uint(sponsorID)
		}
	}

	items, total, err := h.AffiliateService.ListAdminProfiles(filter)
	if err != nil {
		respondError(c, response.CodeInternal, "error.affiliate_fetch_failed", err)
		return
	}

	pagination := response.NewPagination(page, pageSize, total)
	response.SuccessWithPage(c, items, pagination)
}

// UpdateAffiliateStatusRequest 更新推广用户状态请求
type UpdateAffiliateStatusRequest struct {
	Status string `json:"status" binding:"required"`
}

// UpdateAdminAffiliateStatus 更新推广用户状态
func (h *Handler) UpdateAdminAffiliateStatus(c *gin.Context) {
	id, ok := parseIDParam(c)
	if !ok {
		return
	}

	var req UpdateAffiliateStatusRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondError(c, response.CodeBadRequest, "error.bad_request", err)
		return
	}

	profile, err := h.AffiliateService.UpdateProfileStatus(id, req.Status)
	if err != nil {
		switch {
		case errors.Is(err, service.ErrNotFound):
			respondError(c, response.CodeNotFound, "error.affiliate_not_found", nil)
		case errors.Is(err, service.ErrAffiliateProfileStatusInvalid):
			respondError(c, response.CodeBadRequest, "error.bad_request", nil)
		default:
			respondError(c, response.CodeInternal, "error.affiliate_save_failed", err)
		}
		return
	}
	response.Success(c, profile)
}

// AssignSponsorRequest 指定上级请求
// sponsor_profile_id 为 0 表示解绑上级。
type AssignSponsorRequest struct {
	SponsorProfileID uint `json:"sponsor_profile_id"`
}

// AssignAdminAffiliateSponsor 调整推广用户的上级
func (h *Handler) AssignAdminAffiliateSponsor(c *gin.Context) {
	id, ok := parseIDParam(c)
	if !ok {
		return
	}

	var req AssignSponsorRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondError(c, response.CodeBadRequest, "error.bad_request", err)
		return
	}

	profile, err := h.AffiliateService.AssignSponsor(id, req.SponsorProfileID)
	if err != nil {
		switch {
		case errors.Is(err, service.ErrNotFound):
			respondError(c, response.CodeNotFound, "error.affiliate_not_found", nil)
		case errors.Is(err, service.ErrSponsorNotFound):
			respondError(c, response.CodeBadRequest, "error.sponsor_not_found", nil)
		case errors.Is(err, service.ErrSponsorSelf):
			respondError(c, response.CodeBadRequest, "error.sponsor_self", nil)
		case errors.Is(err, service.ErrSponsorCycle):
			respondError(c, response.CodeBadRequest, "error.sponsor_cycle", nil)
		default:
			respondError(c, response.CodeInternal, "error.affiliate_save_failed", err)
		}
		return
	}
	response.Success(c, profile)
}

// GetAdminCommissions 佣金记录列表
func (h *Handler) GetAdminCommissions(c *gin.Context) {
	page, _ := strconv.Atoi(c.DefaultQuery("page", "1"))
	pageSize, _ := strconv.Atoi(c.DefaultQuery("page_size", "20"))
	page, pageSize = normalizePagination(page, pageSize)

	filter := repository.AffiliateCommissionListFilter{
		Page:           page,
		PageSize:       pageSize,
		OrderNo:        c.Query("order_no"),
		CommissionType: c.Query("commission_type"),
		Status:         c.Query("status"),
		Keyword:        c.Query("search"),
	}
	if raw := c.Query("affiliate_profile_id"); raw != "" {
		if profileID, err := strconv.ParseUint(raw, 10, 64); err == nil {
			filter.AffiliateProfileID = uint(profileID)
		}
	}
	if raw := c.Query("level"); raw != "" {
		if level, err := strconv.Atoi(raw); err == nil {
			filter.Level = &level
		}
	}

	commissions, total, err := h.CommissionService.ListCommissions(filter)
	if err != nil {
		respondError(c, response.CodeInternal, "error.commission_fetch_failed", err)
		return
	}

	pagination := response.NewPagination(page, pageSize, total)
	response.SuccessWithPage(c, commissions, pagination)
}

// GetAdminLedgerEntries 账务流水列表
func (h *Handler) GetAdminLedgerEntries(c *gin.Context) {
	page, _ := strconv.Atoi(c.DefaultQuery("page", "1"))
	pageSize, _ := strconv.Atoi(c.DefaultQuery("page_size", "20"))
	page, pageSize = normalizePagination(page, pageSize)

	filter := repository.LedgerEntryListFilter{
		Page:      page,
		PageSize:  pageSize,
		Type:      c.Query("type"),
		Direction: c.Query("direction"),
	}
	if raw := c.Query("affiliate_profile_id"); raw != "" {
		if profileID, err := strconv.ParseUint(raw, 10, 64); err == nil {
			filter.AffiliateProfileID = uint(profileID)
		}
	}
	if raw := c.Query("order_id"); raw != "" {
		if orderID, err := strconv.ParseUint(raw, 10, 64); err == nil {
			filter.OrderID = uint(orderID)
		}
	}

	entries, total, err := h.LedgerService.ListEntries(filter)
	if err != nil {
		respondError(c, response.CodeInternal, "error.ledger_fetch_failed", err)
		return
	}

	pagination := response.NewPagination(page, pageSize, total)
	response.SuccessWithPage(c, entries, pagination)
}

// AdjustAffiliateLedgerRequest 人工调账请求
// delta 为正表示入账，为负表示出账；type 可选 payout / admin_adjust，默认 admin_adjust。
type AdjustAffiliateLedgerRequest struct {
	Delta  decimal.Decimal `json:"delta"`
	Type   string          `json:"type"`
	Remark string          `json:"remark"`
}

// AdjustAffiliateLedger 人工调整推广账户余额
func (h *Handler) AdjustAffiliateLedger(c *gin.Context) {
	id, ok := parseIDParam(c)
	if !ok {
		return
	}

	var req AdjustAffiliateLedgerRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondError(c, response.CodeBadRequest, "error.bad_request", err)
		return
	}

	profile, err := h.AffiliateRepo.GetProfileByID(id)
	if err != nil {
		respondError(c, response.CodeInternal, "error.affiliate_fetch_failed", err)
		return
	}
	if profile == nil {
		respondError(c, response.CodeNotFound, "error.affiliate_not_found", nil)
		return
	}

	account, entry, err := h.LedgerService.AdminAdjust(service.LedgerAdminAdjustInput{
		AffiliateProfileID: profile.ID,
		Delta:              req.Delta,
		Type:               req.Type,
		Remark:             req.Remark,
	})
	if err != nil {
		switch {
		case errors.Is(err, service.ErrLedgerAdjustInvalid):
			respondError(c, response.CodeBadRequest, "error.bad_request", nil)
		case errors.Is(err, service.ErrLedgerInsufficientBalance):
			respondError(c, response.CodeBadRequest, "error.balance_insufficient", nil)
		default:
			respondError(c, response.CodeInternal, "error.ledger_save_failed", err)
		}
		return
	}

	response.Success(c, gin.H{
		"account": account,
		"entry":   entry,
	})
}
