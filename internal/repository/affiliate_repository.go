package repository

import (
	"errors"
	"strings"
	"time"

	"github.com/fenxiao-next/internal/constants"
	"github.com/fenxiao-next/internal/models"

	"github.com/shopspring/decimal"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// AffiliateProfileStatsAggregate 推广用户统计聚合结果
type AffiliateProfileStatsAggregate struct {
	ClickCount          int64
	ValidOrderCount     int64
	PendingCommission   decimal.Decimal
	AvailableCommission decimal.Decimal
}

// AffiliateRepository 推广返利数据访问接口
type AffiliateRepository interface {
	Transaction(fn func(tx *gorm.DB) error) error
	WithTx(tx *gorm.DB) AffiliateRepository

	GetProfileByID(id uint) (*models.AffiliateProfile, error)
	GetProfileByUserID(userID uint) (*models.AffiliateProfile, error)
	GetProfileByCode(code string) (*models.AffiliateProfile, error)
	GetSponsorID(profileID uint) (*uint, error)
	CreateProfile(profile *models.AffiliateProfile) error
	UpdateProfile(profile *models.AffiliateProfile) error
	UpdateProfileStatus(id uint, status string, updatedAt time.Time) error
	UpdateProfileSponsor(id uint, sponsorID *uint, updatedAt time.Time) error
	ListProfiles(filter AffiliateProfileListFilter) ([]models.AffiliateProfile, int64, error)
	CountProfilesBySponsor(sponsorID uint) (int64, error)

	CreateClick(click *models.AffiliateClick) error
	CountClicksByProfile(profileID uint) (int64, error)

	GetCommission(orderID, profileID uint, commissionType string, level int) (*models.AffiliateCommission, error)
	CreateCommission(commission *models.AffiliateCommission) error
	UpdateCommission(commission *models.AffiliateCommission) error
	ListCommissions(filter AffiliateCommissionListFilter) ([]models.AffiliateCommission, int64, error)
	ListCommissionsByOrderForUpdate(orderID uint, statuses []string) ([]models.AffiliateCommission, error)
	ListDueCommissionsForUpdate(before time.Time, limit int) ([]models.AffiliateCommission, error)
	SumCommissionByProfile(profileID uint, statuses []string) (decimal.Decimal, error)
	GetProfileStatsBatch(profileIDs []uint) (map[uint]AffiliateProfileStatsAggregate, error)
}

// GormAffiliateRepository GORM 推广返利仓储
type GormAffiliateRepository struct {
	db *gorm.DB
}

// NewAffiliateRepository 创建推广返利仓储
func NewAffiliateRepository(db *gorm.DB) *GormAffiliateRepository {
	return &GormAffiliateRepository{db: db}
}

// WithTx 绑定事务
func (r *GormAffiliateRepository) WithTx(tx *gorm.DB) AffiliateRepository {
	if tx == nil {
		return r
	}
	return &GormAffiliateRepository{db: tx}
}

// Transaction 执行事务
func (r *GormAffiliateRepository) Transaction(fn func(tx *gorm.DB) error) error {
	if fn == nil {
		return nil
	}
	return r.db.Transaction(fn)
}

// GetProfileByID 按ID获取推广档案
func (r *GormAffiliateRepository) GetProfileByID(id uint) (*models.AffiliateProfile, error) {
	if id == 0 {
		return nil, nil
	}
	var profile models.AffiliateProfile
	if err := r.db.Preload("User").First(&profile, id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &profile, nil
}

// GetProfileByUserID 按用户ID获取推广档案
func (r *GormAffiliateRepository) GetProfileByUserID(userID uint) (*models.AffiliateProfile, error) {
	if userID == 0 {
		return nil, nil
	}
	var profile models.AffiliateProfile
	if err := r.db.Preload("User").Where("user_id = ?", userID).First(&profile).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &profile, nil
}

// GetProfileByCode 按联盟ID获取推广档案
func (r *GormAffiliateRepository) GetProfileByCode(code string) (*models.AffiliateProfile, error) {
	normalized := strings.ToUpper(strings.TrimSpace(code))
	if normalized == "" {
		return nil, nil
	}
	var profile models.AffiliateProfile
	if err := r.db.Preload("User").Where("affiliate_code = ?", normalized).First(&profile).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &profile, nil
}

// GetSponsorID 查询上级推广用户ID（档案不存在时返回 nil）
// 上行链遍历只取 sponsor_id 一列，避免整行读取。
func (r *GormAffiliateRepository) GetSponsorID(profileID uint) (*uint, error) {
	if profileID == 0 {
		return nil, nil
	}
	var row struct {
		SponsorID *uint `gorm:"column:sponsor_id"`
	}
	err := r.db.Model(&models.AffiliateProfile{}).
		Select("sponsor_id").
		Where("id = ?", profileID).
		Take(&row).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return row.SponsorID, nil
}

// CreateProfile 创建推广档案
func (r *GormAffiliateRepository) CreateProfile(profile *models.AffiliateProfile) error {
	return r.db.Create(profile).Error
}

// UpdateProfile 更新推广档案
func (r *GormAffiliateRepository) UpdateProfile(profile *models.AffiliateProfile) error {
	return r.db.Save(profile).Error
}

// UpdateProfileStatus 更新推广档案状态
func (r *GormAffiliateRepository) UpdateProfileStatus(id uint, status string, updatedAt time.Time) error {
	if id == 0 {
		return nil
	}
	return r.db.Model(&models.AffiliateProfile{}).
		Where("id = ?", id).
		Updates(map[string]interface{}{
			"status":     strings.TrimSpace(status),
			"updated_at": updatedAt,
		}).Error
}

// UpdateProfileSponsor 更新上级推广用户
func (r *GormAffiliateRepository) UpdateProfileSponsor(id uint, sponsorID *uint, updatedAt time.Time) error {
	if id == 0 {
		return nil
	}
	return r.db.Model(&models.AffiliateProfile{}).
		Where("id = ?", id).
		Updates(map[string]interface{}{
			"sponsor_id": sponsorID,
			"updated_at": updatedAt,
		}).Error
}

// ListProfiles 查询推广档案列表
func (r *GormAffiliateRepository) ListProfiles(filter AffiliateProfileListFilter) ([]models.AffiliateProfile, int64, error) {
	query := r.db.Model(&models.AffiliateProfile{}).Preload("User")
	if filter.UserID != 0 {
		query = query.Where("affiliate_profiles.user_id = ?", filter.UserID)
	}
	if filter.SponsorID != 0 {
		query = query.Where("affiliate_profiles.sponsor_id = ?", filter.SponsorID)
	}
	if code := strings.TrimSpace(filter.Code); code != "" {
		query = query.Where("affiliate_profiles.affiliate_code = ?", strings.ToUpper(code))
	}
	if status := strings.TrimSpace(filter.Status); status != "" {
		query = query.Where("affiliate_profiles.status = ?", status)
	}
	if keyword := strings.TrimSpace(filter.Keyword); keyword != "" {
		like := "%" + keyword + "%"
		query = query.
			Joins("LEFT JOIN users ON users.id = affiliate_profiles.user_id").
			Where("(users.email LIKE ? OR users.display_name LIKE ? OR affiliate_profiles.affiliate_code LIKE ?)", like, like, like)
	}

	var total int64
	if err := query.Count(&total).Error; err != nil {
		return nil, 0, err
	}
	query = applyPagination(query, filter.Page, filter.PageSize)

	var rows []models.AffiliateProfile
	if err := query.Order("affiliate_profiles.id desc").Find(&rows).Error; err != nil {
		return nil, 0, err
	}
	return rows, total, nil
}

// CountProfilesBySponsor 统计直属下级数量
func (r *GormAffiliateRepository) CountProfilesBySponsor(sponsorID uint) (int64, error) {
	if sponsorID == 0 {
		return 0, nil
	}
	var total int64
	if err := r.db.Model(&models.AffiliateProfile{}).
		Where("sponsor_id = ?", sponsorID).
		Count(&total).Error; err != nil {
		return 0, err
	}
	return total, nil
}

// CreateClick 创建推广点击记录
func (r *GormAffiliateRepository) CreateClick(click *models.AffiliateClick) error {
	return r.db.Create(click).Error
}

// CountClicksByProfile 统计推广点击数
func (r *GormAffiliateRepository) CountClicksByProfile(profileID uint) (int64, error) {
	if profileID == 0 {
		return 0, nil
	}
	var total int64
	if err := r.db.Model(&models.AffiliateClick{}).Where("affiliate_profile_id = ?", profileID).Count(&total).Error; err != nil {
		return 0, err
	}
	return total, nil
}

// GetCommission 按订单、推广人、类型与层级查询佣金
func (r *GormAffiliateRepository) GetCommission(orderID, profileID uint, commissionType string, level int) (*models.AffiliateCommission, error) {
	if orderID == 0 || profileID == 0 {
		return nil, nil
	}
	ctype := strings.TrimSpace(commissionType)
	if ctype == "" {
		ctype = constants.AffiliateCommissionTypeOrder
	}
	var commission models.AffiliateCommission
	if err := r.db.Where("order_id = ? AND affiliate_profile_id = ? AND commission_type = ? AND level = ?",
		orderID, profileID, ctype, level).
		First(&commission).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &commission, nil
}

// CreateCommission 创建佣金记录
func (r *GormAffiliateRepository) CreateCommission(commission *models.AffiliateCommission) error {
	return r.db.Create(commission).Error
}

// UpdateCommission 更新佣金记录
func (r *GormAffiliateRepository) UpdateCommission(commission *models.AffiliateCommission) error {
	return r.db.Save(commission).Error
}

// ListCommissions 查询佣金记录
func (r *GormAffiliateRepository) ListCommissions(filter AffiliateCommissionListFilter) ([]models.AffiliateCommission, int64, error) {
	query := r.db.Model(&models.AffiliateCommission{}).
		Preload("AffiliateProfile").
		Preload("AffiliateProfile.User").
		Preload("Order").
		Preload("Rule")
	if filter.AffiliateProfileID != 0 {
		query = query.Where("affiliate_commissions.affiliate_profile_id = ?", filter.AffiliateProfileID)
	}
	if filter.OrderID != 0 {
		query = query.Where("affiliate_commissions.order_id = ?", filter.OrderID)
	}
	if orderNo := strings.TrimSpace(filter.OrderNo); orderNo != "" {
		query = query.Joins("LEFT JOIN orders ON orders.id = affiliate_commissions.order_id").
			Where("orders.order_no LIKE ?", "%"+orderNo+"%")
	}
	if ctype := strings.TrimSpace(filter.CommissionType); ctype != "" {
		query = query.Where("affiliate_commissions.commission_type = ?", ctype)
	}
	if status := strings.TrimSpace(filter.Status); status != "" {
		query = query.Where("affiliate_commissions.status = ?", status)
	}
	if filter.Level != nil {
		query = query.Where("affiliate_commissions.level = ?", *filter.Level)
	}
	if keyword := strings.TrimSpace(filter.Keyword); keyword != "" {
		like := "%" + keyword + "%"
		query = query.
			Joins("LEFT JOIN affiliate_profiles ap ON ap.id = affiliate_commissions.affiliate_profile_id").
			Joins("LEFT JOIN users u ON u.id = ap.user_id").
			Where("(u.email LIKE ? OR u.display_name LIKE ? OR ap.affiliate_code LIKE ?)", like, like, like)
	}
	if filter.CreatedFrom != nil {
		query = query.Where("affiliate_commissions.created_at >= ?", *filter.CreatedFrom)
	}
	if filter.CreatedTo != nil {
		query = query.Where("affiliate_commissions.created_at <= ?", *filter.CreatedTo)
	}

	var total int64
	if err := query.Count(&total).Error; err != nil {
		return nil, 0, err
	}
	query = applyPagination(query, filter.Page, filter.PageSize)

	var rows []models.AffiliateCommission
	if err := query.Order("affiliate_commissions.id desc").Find(&rows).Error; err != nil {
		return nil, 0, err
	}
	return rows, total, nil
}

// ListCommissionsByOrderForUpdate 按订单查询佣金并加锁
func (r *GormAffiliateRepository) ListCommissionsByOrderForUpdate(orderID uint, statuses []string) ([]models.AffiliateCommission, error) {
	if orderID == 0 {
		return []models.AffiliateCommission{}, nil
	}
	query := r.db.Model(&models.AffiliateCommission{}).
		Clauses(clause.Locking{Strength: "UPDATE"}).
		Where("order_id = ?", orderID)
	if len(statuses) > 0 {
		query = query.Where("status IN ?", statuses)
	}
	var rows []models.AffiliateCommission
	if err := query.Order("id asc").Find(&rows).Error; err != nil {
		return nil, err
	}
	return rows, nil
}

// ListDueCommissionsForUpdate 查询并锁定确认期已到的待确认佣金
func (r *GormAffiliateRepository) ListDueCommissionsForUpdate(before time.Time, limit int) ([]models.AffiliateCommission, error) {
	if limit <= 0 {
		limit = 100
	}
	var rows []models.AffiliateCommission
	if err := r.db.Clauses(clause.Locking{Strength: "UPDATE"}).
		Where("status = ? AND confirm_at IS NOT NULL AND confirm_at <= ?",
			constants.AffiliateCommissionStatusPendingConfirm, before).
		Order("confirm_at asc, id asc").
		Limit(limit).
		Find(&rows).Error; err != nil {
		return nil, err
	}
	return rows, nil
}

// SumCommissionByProfile 汇总指定状态佣金金额
func (r *GormAffiliateRepository) SumCommissionByProfile(profileID uint, statuses []string) (decimal.Decimal, error) {
	if profileID == 0 || len(statuses) == 0 {
		return decimal.Zero, nil
	}
	var row struct {
		Total decimal.Decimal `gorm:"column:total"`
	}
	if err := r.db.Model(&models.AffiliateCommission{}).
		Where("affiliate_profile_id = ? AND status IN ?", profileID, statuses).
		Select("COALESCE(SUM(commission_amount), 0) AS total").
		Scan(&row).Error; err != nil {
		return decimal.Zero, err
	}
	return row.Total.Round(2), nil
}

// GetProfileStatsBatch 批量汇总推广用户统计信息
func (r *GormAffiliateRepository) GetProfileStatsBatch(profileIDs []uint) (map[uint]AffiliateProfileStatsAggregate, error) {
	result := make(map[uint]AffiliateProfileStatsAggregate, len(profileIDs))
	if len(profileIDs) == 0 {
		return result, nil
	}

	for _, id := range profileIDs {
		if id == 0 {
			continue
		}
		result[id] = AffiliateProfileStatsAggregate{
			PendingCommission:   decimal.Zero,
			AvailableCommission: decimal.Zero,
		}
	}

	var clickRows []struct {
		AffiliateProfileID uint  `gorm:"column:affiliate_profile_id"`
		Total              int64 `gorm:"column:total"`
	}
	if err := r.db.Model(&models.AffiliateClick{}).
		Select("affiliate_profile_id, COUNT(*) AS total").
		Where("affiliate_profile_id IN ?", profileIDs).
		Group("affiliate_profile_id").
		Scan(&clickRows).Error; err != nil {
		return nil, err
	}
	for _, row := range clickRows {
		item := result[row.AffiliateProfileID]
		item.ClickCount = row.Total
		result[row.AffiliateProfileID] = item
	}

	var validRows []struct {
		AffiliateProfileID uint  `gorm:"column:affiliate_profile_id"`
		Total              int64 `gorm:"column:total"`
	}
	if err := r.db.Model(&models.AffiliateCommission{}).
		Select("affiliate_profile_id, COUNT(DISTINCT order_id) AS total").
		Where("affiliate_profile_id IN ? AND status NOT IN ?", profileIDs, []string{
			constants.AffiliateCommissionStatusRejected,
			constants.AffiliateCommissionStatusInvalid,
		}).
		Group("affiliate_profile_id").
		Scan(&validRows).Error; err != nil {
		return nil, err
	}
	for _, row := range validRows {
		item := result[row.AffiliateProfileID]
		item.ValidOrderCount = row.Total
		result[row.AffiliateProfileID] = item
	}

	var pendingRows []struct {
		AffiliateProfileID uint            `gorm:"column:affiliate_profile_id"`
		Total              decimal.Decimal `gorm:"column:total"`
	}
	if err := r.db.Model(&models.AffiliateCommission{}).
		Select("affiliate_profile_id, COALESCE(SUM(commission_amount), 0) AS total").
		Where("affiliate_profile_id IN ? AND status = ?", profileIDs, constants.AffiliateCommissionStatusPendingConfirm).
		Group("affiliate_profile_id").
		Scan(&pendingRows).Error; err != nil {
		return nil, err
	}
	for _, row := range pendingRows {
		item := result[row.AffiliateProfileID]
		item.PendingCommission = row.Total.Round(2)
		result[row.AffiliateProfileID] = item
	}

	var availableRows []struct {
		AffiliateProfileID uint            `gorm:"column:affiliate_profile_id"`
		Total              decimal.Decimal `gorm:"column:total"`
	}
	if err := r.db.Model(&models.AffiliateCommission{}).
		Select("affiliate_profile_id, COALESCE(SUM(commission_amount), 0) AS total").
		Where("affiliate_profile_id IN ? AND status = ?", profileIDs, constants.AffiliateCommissionStatusAvailable).
		Group("affiliate_profile_id").
		Scan(&availableRows).Error; err != nil {
		return nil, err
	}
	for _, row := range availableRows {
		item := result[row.AffiliateProfileID]
		item.AvailableCommission = row.Total.Round(2)
		result[row.AffiliateProfileID] = item
	}

	return result, nil
}
