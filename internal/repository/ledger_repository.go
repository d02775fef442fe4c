package repository

import (
	"errors"
	"strings"

	"github.com/fenxiao-next/internal/models"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// LedgerRepository 佣金账务数据访问接口
type LedgerRepository interface {
	Transaction(fn func(tx *gorm.DB) error) error
	WithTx(tx *gorm.DB) LedgerRepository

	GetAccountByProfileID(profileID uint) (*models.AffiliateAccount, error)
	GetAccountByProfileIDForUpdate(profileID uint) (*models.AffiliateAccount, error)
	CreateAccount(account *models.AffiliateAccount) error
	UpdateAccount(account *models.AffiliateAccount) error

	CreateEntry(entry *models.LedgerEntry) error
	GetEntryByReference(reference string) (*models.LedgerEntry, error)
	ListEntries(filter LedgerEntryListFilter) ([]models.LedgerEntry, int64, error)
}

// GormLedgerRepository GORM 账务仓储实现
type GormLedgerRepository struct {
	db *gorm.DB
}

// NewLedgerRepository 创建账务仓库
func NewLedgerRepository(db *gorm.DB) *GormLedgerRepository {
	return &GormLedgerRepository{db: db}
}

// WithTx 绑定事务
func (r *GormLedgerRepository) WithTx(tx *gorm.DB) LedgerRepository {
	if tx == nil {
		return r
	}
	return &GormLedgerRepository{db: tx}
}

// Transaction 执行事务
func (r *GormLedgerRepository) Transaction(fn func(tx *gorm.DB) error) error {
	if fn == nil {
		return nil
	}
	return r.db.Transaction(fn)
}

// GetAccountByProfileID 按推广用户ID获取账户
func (r *GormLedgerRepository) GetAccountByProfileID(profileID uint) (*models.AffiliateAccount, error) {
	if profileID == 0 {
		return nil, nil
	}
	var account models.AffiliateAccount
	if err := r.db.Where("affiliate_profile_id = ?", profileID).First(&account).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &account, nil
}

// GetAccountByProfileIDForUpdate 按推广用户ID加锁获取账户
func (r *GormLedgerRepository) GetAccountByProfileIDForUpdate(profileID uint) (*models.AffiliateAccount, error) {
	if profileID == 0 {
		return nil, nil
	}
	var account models.AffiliateAccount
	if err := r.db.Clauses(clause.Locking{Strength: "UPDATE"}).
		Where("affiliate_profile_id = ?", profileID).
		First(&account).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &account, nil
}

// CreateAccount 创建账户
func (r *GormLedgerRepository) CreateAccount(account *models.AffiliateAccount) error {
	return r.db.Create(account).Error
}

// UpdateAccount 更新账户
func (r *GormLedgerRepository) UpdateAccount(account *models.AffiliateAccount) error {
	return r.db.Save(account).Error
}

// CreateEntry 创建账务流水（只增不改）
func (r *GormLedgerRepository) CreateEntry(entry *models.LedgerEntry) error {
	return r.db.Create(entry).Error
}

// GetEntryByReference 按幂等引用查询流水
func (r *GormLedgerRepository) GetEntryByReference(reference string) (*models.LedgerEntry, error) {
	normalized := strings.TrimSpace(reference)
	if normalized == "" {
		return nil, nil
	}
	var entry models.LedgerEntry
	if err := r.db.Where("reference = ?", normalized).First(&entry).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &entry, nil
}

// ListEntries 查询账务流水列表
func (r *GormLedgerRepository) ListEntries(filter LedgerEntryListFilter) ([]models.LedgerEntry, int64, error) {
	query := r.db.Model(&models.LedgerEntry{})
	if filter.AffiliateProfileID != 0 {
		query = query.Where("affiliate_profile_id = ?", filter.AffiliateProfileID)
	}
	if filter.OrderID != 0 {
		query = query.Where("order_id = ?", filter.OrderID)
	}
	if entryType := strings.TrimSpace(filter.Type); entryType != "" {
		query = query.Where("type = ?", entryType)
	}
	if direction := strings.TrimSpace(filter.Direction); direction != "" {
		query = query.Where("direction = ?", direction)
	}
	if filter.CreatedFrom != nil {
		query = query.Where("created_at >= ?", *filter.CreatedFrom)
	}
	if filter.CreatedTo != nil {
		query = query.Where("created_at <= ?", *filter.CreatedTo)
	}

	var total int64
	if err := query.Count(&total).Error; err != nil {
		return nil, 0, err
	}
	query = applyPagination(query, filter.Page, filter.PageSize)

	var entries []models.LedgerEntry
	if err := query.Order("id DESC").Find(&entries).Error; err != nil {
		return nil, 0, err
	}
	return entries, total, nil
}
