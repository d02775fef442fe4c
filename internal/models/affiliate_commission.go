package models

import (
	"time"

	"gorm.io/gorm"
)

// AffiliateCommission 推广返利佣金记录
// Level 为 0 表示直接推广佣金，1..N 表示多级分销的上级层级。
type AffiliateCommission struct {
	ID                 uint           `gorm:"primarykey" json:"id"`                                                                                          // 主键
	AffiliateProfileID uint           `gorm:"not null;index;index:idx_affiliate_commission_unique,unique" json:"affiliate_profile_id"`                       // 推广用户ID
	OrderID            uint           `gorm:"not null;index;index:idx_affiliate_commission_unique,unique" json:"order_id"`                                   // 订单ID
	RuleID             *uint          `gorm:"index" json:"rule_id,omitempty"`                                                                                // 命中规则ID（回退默认费率时为空）
	CommissionType     string         `gorm:"type:varchar(20);not null;default:'order';index:idx_affiliate_commission_unique,unique" json:"commission_type"` // 佣金类型（order/upline）
	Level              int            `gorm:"not null;default:0;index:idx_affiliate_commission_unique,unique" json:"level"`                                  // 分销层级
	Basis              string         `gorm:"type:varchar(20);not null;default:'sales_amount'" json:"basis"`                                                 // 佣金基数口径
	BaseAmount         Money          `gorm:"type:decimal(20,2);not null;default:0" json:"base_amount"`                                                      // 佣金基数金额
	RatePercent        Money          `gorm:"type:decimal(10,2);not null;default:0" json:"rate_percent"`                                                     // 佣金比例（百分比；固定额时为 0）
	CommissionAmount   Money          `gorm:"type:decimal(20,2);not null;default:0" json:"commission_amount"`                                                // 佣金金额
	Status             string         `gorm:"type:varchar(32);not null;index" json:"status"`                                                                 // 佣金状态
	ConfirmAt          *time.Time     `gorm:"index" json:"confirm_at,omitempty"`                                                                             // 待确认到期时间
	AvailableAt        *time.Time     `gorm:"index" json:"available_at,omitempty"`                                                                           // 转可提现时间
	InvalidReason      string         `gorm:"type:varchar(255)" json:"invalid_reason"`                                                                       // 失效原因
	CreatedAt          time.Time      `gorm:"index" json:"created_at"`                                                                                       // 创建时间
	UpdatedAt          time.Time      `gorm:"index" json:"updated_at"`                                                                                       // 更新时间
	DeletedAt          gorm.DeletedAt `gorm:"index" json:"-"`                                                                                                // 软删除时间

	AffiliateProfile AffiliateProfile `gorm:"foreignKey:AffiliateProfileID" json:"affiliate_profile,omitempty"` // 推广用户
	Order            Order            `gorm:"foreignKey:OrderID" json:"order,omitempty"`                        // 关联订单
	Rule             *CommissionRule  `gorm:"foreignKey:RuleID" json:"rule,omitempty"`                          // 命中规则
}

// TableName 指定表名
func (AffiliateCommission) TableName() string {
	return "affiliate_commissions"
}
