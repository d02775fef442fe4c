package admin

import (
	"errors"
	"strconv"

	"github.com/fenxiao-next/internal/http/response"
	"github.com/fenxiao-next/internal/repository"
	"github.com/fenxiao-next/internal/service"

	"github.com/gin-gonic/gin"
)

// GetAdminRules 佣金规则列表
func (h *Handler) GetAdminRules(c *gin.Context) {
	page, _ := strconv.Atoi(c.DefaultQuery("page", "1"))
	pageSize, _ := strconv.Atoi(c.DefaultQuery("page_size", "20"))
	page, pageSize = normalizePagination(page, pageSize)

	filter := repository.CommissionRuleListFilter{
		Page:     page,
		PageSize: pageSize,
		Keyword:  c.Query("search"),
	}
	if raw := c.Query("is_active"); raw != "" {
		active := raw == "true" || raw == "1"
		filter.IsActive = &active
	}

	rules, total, err := h.CommissionRuleService.ListRules(filter)
	if err != nil {
		respondError(c, response.CodeInternal, "error.rule_fetch_failed", err)
		return
	}

	pagination := response.NewPagination(page, pageSize, total)
	response.SuccessWithPage(c, rules, pagination)
}

// GetAdminRule 佣金规则详情
func (h *Handler) GetAdminRule(c *gin.Context) {
	id, ok := parseIDParam(c)
	if !ok {
		return
	}

	rule, err := h.CommissionRuleService.GetRule(id)
	if err != nil {
		if errors.Is(err, service.ErrNotFound) {
			respondError(c, response.CodeNotFound, "error.rule_not_found", nil)
			return
		}
		respondError(c, response.CodeInternal, "error.rule_fetch_failed", err)
		return
	}
	response.Success(c, rule)
}

// CreateRule 创建佣金规则
func (h *Handler) CreateRule(c *gin.Context) {
	var req service.CommissionRuleInput
	if err := c.ShouldBindJSON(&req); err != nil {
		respondError(c, response.CodeBadRequest, "error.bad_request", err)
		return
	}

	rule, err := h.CommissionRuleService.CreateRule(req)
	if err != nil {
		if errors.Is(err, service.ErrRuleInvalid) {
			respondError(c, response.CodeBadRequest, "error.rule_invalid", err)
			return
		}
		respondError(c, response.CodeInternal, "error.rule_save_failed", err)
		return
	}
	response.Success(c, rule)
}

// UpdateRule 更新佣金规则
func (h *Handler) UpdateRule(c *gin.Context) {
	id, ok := parseIDParam(c)
	if !ok {
		return
	}

	var req service.CommissionRuleInput
	if err := c.ShouldBindJSON(&req); err != nil {
		respondError(c, response.CodeBadRequest, "error.bad_request", err)
		return
	}

	rule, err := h.CommissionRuleService.UpdateRule(id, req)
	if err != nil {
		switch {
		case errors.Is(err, service.ErrNotFound):
			respondError(c, response.CodeNotFound, "error.rule_not_found", nil)
		case errors.Is(err, service.ErrRuleInvalid):
			respondError(c, response.CodeBadRequest, "error.rule_invalid", err)
		default:
			respondError(c, response.CodeInternal, "error.rule_save_failed", err)
		}
		return
	}
	response.Success(c, rule)
}

// UpdateRuleStatusRequest 启停规则请求
type UpdateRuleStatusRequest struct {
	IsActive *bool `json:"is_active" binding:"required"`
}

// UpdateRuleStatus 启用/停用佣金规则
func (h *Handler) UpdateRuleStatus(c *gin.Context) {
	id, ok := parseIDParam(c)
	if !ok {
		return
	}

	var req UpdateRuleStatusRequest
	if err := c.ShouldBindJSON(&req); err != nil || req.IsActive == nil {
		respondError(c, response.CodeBadRequest, "error.bad_request", err)
		return
	}

	rule, err := h.CommissionRuleService.UpdateRuleStatus(id, *req.IsActive)
	if err != nil {
		if errors.Is(err, service.ErrNotFound) {
			respondError(c, response.CodeNotFound, "error.rule_not_found", nil)
			return
		}
		respondError(c, response.CodeInternal, "error.rule_save_failed", err)
		return
	}
	response.Success(c, rule)
}

// DeleteRule 删除佣金规则
func (h *Handler) DeleteRule(c *gin.Context) {
	id, ok := parseIDParam(c)
	if !ok {
		return
	}

	if err := h.CommissionRuleService.DeleteRule(id); err != nil {
		if errors.Is(err, service.ErrNotFound) {
			respondError(c, response.CodeNotFound, "error.rule_not_found", nil)
			return
		}
		respondError(c, response.CodeInternal, "error.rule_save_failed", err)
		return
	}
	response.Success(c, nil)
}

func parseIDParam(c *gin.Context) (uint, bool) {
	raw := c.Param("id")
	id, err := strconv.ParseUint(raw, 10, 64)
	if err != nil || id == 0 {
		respondError(c, response.CodeBadRequest, "error.bad_request", nil)
		return 0, false
	}
	return uint(id), true
}
