package models

import (
	"time"

	"gorm.io/gorm"
)

// AffiliateAccount 推广用户佣金账户
type AffiliateAccount struct {
	ID                 uint           `gorm:"primarykey" json:"id"`                                    // 主键
	AffiliateProfileID uint           `gorm:"not null;uniqueIndex" json:"affiliate_profile_id"`        // 推广用户ID
	Balance            Money          `gorm:"type:decimal(20,2);not null;default:0" json:"balance"`    // 当前余额
	Currency           string         `gorm:"type:varchar(10);not null;default:'CNY'" json:"currency"` // 币种
	CreatedAt          time.Time      `gorm:"index" json:"created_at"`                                 // 创建时间
	UpdatedAt          time.Time      `json:"updated_at"`                                              // 更新时间
	DeletedAt          gorm.DeletedAt `gorm:"index" json:"-"`                                          // 软删除时间

	AffiliateProfile AffiliateProfile `gorm:"foreignKey:AffiliateProfileID" json:"affiliate_profile,omitempty"` // 推广用户
}

// TableName 指定表名
func (AffiliateAccount) TableName() string {
	return "affiliate_accounts"
}

// LedgerEntry 佣金账务流水（只增不改）
// 每条流水携带变动前后余额，写入必须在行锁事务内完成。
type LedgerEntry struct {
	ID                 uint      `gorm:"primarykey" json:"id"`                                        // 主键
	AffiliateProfileID uint      `gorm:"not null;index" json:"affiliate_profile_id"`                  // 推广用户ID
	OrderID            *uint     `gorm:"index" json:"order_id,omitempty"`                             // 来源订单ID
	CommissionID       *uint     `gorm:"index" json:"commission_id,omitempty"`                        // 关联佣金记录ID
	Type               string    `gorm:"type:varchar(32);not null;index" json:"type"`                 // 流水类型
	Direction          string    `gorm:"type:varchar(8);not null" json:"direction"`                   // 方向（in/out）
	Level              int       `gorm:"not null;default:0" json:"level"`                             // 分销层级（直接佣金为 0）
	Basis              string    `gorm:"type:varchar(20)" json:"basis"`                               // 佣金基数口径
	Amount             Money     `gorm:"type:decimal(20,2);not null;default:0" json:"amount"`         // 变动金额（恒为正）
	BalanceBefore      Money     `gorm:"type:decimal(20,2);not null;default:0" json:"balance_before"` // 变动前余额
	BalanceAfter       Money     `gorm:"type:decimal(20,2);not null;default:0" json:"balance_after"`  // 变动后余额
	Currency           string    `gorm:"type:varchar(10);not null;default:'CNY'" json:"currency"`     // 币种
	Reference          string    `gorm:"type:varchar(128);uniqueIndex" json:"reference"`              // 幂等引用标识
	Remark             string    `gorm:"type:varchar(255)" json:"remark"`                             // 备注
	CreatedAt          time.Time `gorm:"index" json:"created_at"`                                     // 创建时间

	AffiliateProfile AffiliateProfile `gorm:"foreignKey:AffiliateProfileID" json:"affiliate_profile,omitempty"` // 推广用户
}

// TableName 指定表名
func (LedgerEntry) TableName() string {
	return "ledger_entries"
}
