package service

import (
	"fmt"
	"strings"
	"time"

	"github.com/fenxiao-next/internal/models"
	"github.com/fenxiao-next/internal/repository"
)

// CommissionRuleService 佣金规则管理服务
type CommissionRuleService struct {
	repo repository.CommissionRuleRepository
}

// NewCommissionRuleService 创建佣金规则服务
func NewCommissionRuleService(repo repository.CommissionRuleRepository) *CommissionRuleService {
	return &CommissionRuleService{repo: repo}
}

// CommissionRuleInput 规则创建/更新入参
type CommissionRuleInput struct {
	Name       string      `json:"name"`
	IsActive   *bool       `json:"is_active"`
	Priority   int         `json:"priority"`
	Conditions models.JSON `json:"conditions"`
	Action     models.JSON `json:"action"`
	StartAt    *time.Time  `json:"start_at"`
	EndAt      *time.Time  `json:"end_at"`
	Remark     string      `json:"remark"`
}

// GetRule 获取单条规则
func (s *CommissionRuleService) GetRule(id uint) (*models.CommissionRule, error) {
	rule, err := s.repo.GetByID(id)
	if err != nil {
		return nil, err
	}
	if rule == nil {
		return nil, ErrNotFound
	}
	return rule, nil
}

// ListRules 分页查询规则
func (s *CommissionRuleService) ListRules(filter repository.CommissionRuleListFilter) ([]models.CommissionRule, int64, error) {
	return s.repo.List(filter)
}

// CreateRule 创建规则
// 条件与动作 JSON 在写入前校验，避免把不可解析的规则留给结算路径。
func (s *CommissionRuleService) CreateRule(input CommissionRuleInput) (*models.CommissionRule, error) {
	rule := &models.CommissionRule{
		IsActive: true,
		Priority: input.Priority,
	}
	if err := s.applyRuleInput(rule, input); err != nil {
		return nil, err
	}
	if err := s.repo.Create(rule); err != nil {
		return nil, err
	}
	return rule, nil
}

// UpdateRule 更新规则
func (s *CommissionRuleService) UpdateRule(id uint, input CommissionRuleInput) (*models.CommissionRule, error) {
	rule, err := s.repo.GetByID(id)
	if err != nil {
		return nil, err
	}
	if rule == nil {
		return nil, ErrNotFound
	}
	rule.Priority = input.Priority
	if err := s.applyRuleInput(rule, input); err != nil {
		return nil, err
	}
	if err := s.repo.Update(rule); err != nil {
		return nil, err
	}
	return rule, nil
}

// UpdateRuleStatus 启用/停用规则
func (s *CommissionRuleService) UpdateRuleStatus(id uint, isActive bool) (*models.CommissionRule, error) {
	rule, err := s.repo.GetByID(id)
	if err != nil {
		return nil, err
	}
	if rule == nil {
		return nil, ErrNotFound
	}
	rule.IsActive = isActive
	if err := s.repo.Update(rule); err != nil {
		return nil, err
	}
	return rule, nil
}

// DeleteRule 删除规则
func (s *CommissionRuleService) DeleteRule(id uint) error {
	rule, err := s.repo.GetByID(id)
	if err != nil {
		return err
	}
	if rule == nil {
		return ErrNotFound
	}
	return s.repo.Delete(id)
}

func (s *CommissionRuleService) applyRuleInput(rule *models.CommissionRule, input CommissionRuleInput) error {
	name := strings.TrimSpace(input.Name)
	if name == "" {
		return fmt.Errorf("%w: 规则名称不能为空", ErrRuleInvalid)
	}
	rule.Name = name

	if input.IsActive != nil {
		rule.IsActive = *input.IsActive
	}
	if input.StartAt != nil && input.EndAt != nil && input.EndAt.Before(*input.StartAt) {
		return fmt.Errorf("%w: 生效时间晚于失效时间", ErrRuleInvalid)
	}
	rule.StartAt = input.StartAt
	rule.EndAt = input.EndAt
	rule.Remark = strings.TrimSpace(input.Remark)

	conditions := input.Conditions
	if conditions == nil {
		conditions = models.JSON{}
	}
	if _, err := ParseRuleConditions(conditions); err != nil {
		return err
	}
	rule.ConditionJSON = conditions

	if _, err := ParseRuleAction(input.Action); err != nil {
		return err
	}
	rule.ActionJSON = input.Action
	return nil
}
