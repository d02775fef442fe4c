package repository

import (
	"errors"
	"strings"

	"github.com/fenxiao-next/internal/models"

	"gorm.io/gorm"
)

// CommissionRuleRepository 佣金规则数据访问接口
type CommissionRuleRepository interface {
	GetByID(id uint) (*models.CommissionRule, error)
	List(filter CommissionRuleListFilter) ([]models.CommissionRule, int64, error)
	ListActive() ([]models.CommissionRule, error)
	Create(rule *models.CommissionRule) error
	Update(rule *models.CommissionRule) error
	Delete(id uint) error
}

// GormCommissionRuleRepository GORM 佣金规则仓储实现
type GormCommissionRuleRepository struct {
	db *gorm.DB
}

// NewCommissionRuleRepository 创建佣金规则仓库
func NewCommissionRuleRepository(db *gorm.DB) *GormCommissionRuleRepository {
	return &GormCommissionRuleRepository{db: db}
}

// GetByID 根据 ID 获取规则
func (r *GormCommissionRuleRepository) GetByID(id uint) (*models.CommissionRule, error) {
	if id == 0 {
		return nil, nil
	}
	var rule models.CommissionRule
	if err := r.db.First(&rule, id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &rule, nil
}

// List 规则列表
func (r *GormCommissionRuleRepository) List(filter CommissionRuleListFilter) ([]models.CommissionRule, int64, error) {
	query := r.db.Model(&models.CommissionRule{})
	if keyword := strings.TrimSpace(filter.Keyword); keyword != "" {
		query = query.Where("name LIKE ?", "%"+keyword+"%")
	}
	if filter.IsActive != nil {
		query = query.Where("is_active = ?", *filter.IsActive)
	}

	var total int64
	if err := query.Count(&total).Error; err != nil {
		return nil, 0, err
	}
	query = applyPagination(query, filter.Page, filter.PageSize)

	var rules []models.CommissionRule
	if err := query.Order("priority DESC, created_at ASC, id ASC").Find(&rules).Error; err != nil {
		return nil, 0, err
	}
	return rules, total, nil
}

// ListActive 查询全部启用规则
// 排序与规则选择一致：优先级降序，创建时间升序兜底。
func (r *GormCommissionRuleRepository) ListActive() ([]models.CommissionRule, error) {
	var rules []models.CommissionRule
	if err := r.db.Where("is_active = ?", true).
		Order("priority DESC, created_at ASC, id ASC").
		Find(&rules).Error; err != nil {
		return nil, err
	}
	return rules, nil
}

// Create 创建规则
func (r *GormCommissionRuleRepository) Create(rule *models.CommissionRule) error {
	return r.db.Create(rule).Error
}

// Update 更新规则
func (r *GormCommissionRuleRepository) Update(rule *models.CommissionRule) error {
	return r.db.Save(rule).Error
}

// Delete 删除规则（软删除）
func (r *GormCommissionRuleRepository) Delete(id uint) error {
	if id == 0 {
		return nil
	}
	return r.db.Delete(&models.CommissionRule{}, id).Error
}
