package models

import (
	"time"

	"gorm.io/gorm"
)

// Order 订单表
type Order struct {
	ID                 uint           `gorm:"primarykey" json:"id"`                                         // 主键
	OrderNo            string         `gorm:"uniqueIndex;not null" json:"order_no"`                         // 订单编号
	UserID             uint           `gorm:"index;not null" json:"user_id,omitempty"`                      // 用户ID（游客订单为 0）
	GuestEmail         string         `gorm:"index" json:"guest_email,omitempty"`                           // 游客邮箱
	Status             string         `gorm:"index;not null" json:"status"`                                 // 订单状态
	Currency           string         `gorm:"not null" json:"currency"`                                     // 币种
	OriginalAmount     Money          `gorm:"type:decimal(20,2);not null;default:0" json:"original_amount"` // 原始金额
	DiscountAmount     Money          `gorm:"type:decimal(20,2);not null;default:0" json:"discount_amount"` // 优惠金额
	TotalAmount        Money          `gorm:"type:decimal(20,2);not null;default:0" json:"total_amount"`    // 实付金额
	CostAmount         Money          `gorm:"type:decimal(20,2);not null;default:0" json:"cost_amount"`     // 成本金额合计（利润口径基数用）
	AffiliateProfileID *uint          `gorm:"index" json:"affiliate_profile_id,omitempty"`                  // 归因推广用户ID（下单时快照）
	AffiliateCode      string         `gorm:"type:varchar(32)" json:"affiliate_code,omitempty"`             // 归因推广码快照
	IsFirstOrder       bool           `gorm:"not null;default:false" json:"is_first_order"`                 // 是否买家首单（下单时快照）
	ClientIP           string         `gorm:"type:varchar(64)" json:"client_ip,omitempty"`                  // 下单客户端IP
	ExpiresAt          *time.Time     `gorm:"index" json:"expires_at"`                                      // 过期时间
	PaidAt             *time.Time     `gorm:"index" json:"paid_at"`                                         // 支付时间
	CanceledAt         *time.Time     `gorm:"index" json:"canceled_at"`                                     // 取消时间
	RefundedAt         *time.Time     `gorm:"index" json:"refunded_at"`                                     // 退款时间
	CreatedAt          time.Time      `gorm:"index" json:"created_at"`                                      // 创建时间
	UpdatedAt          time.Time      `gorm:"index" json:"updated_at"`                                      // 更新时间
	DeletedAt          gorm.DeletedAt `gorm:"index" json:"-"`                                               // 软删除时间

	Items []OrderItem `gorm:"foreignKey:OrderID" json:"items,omitempty"` // 订单项
	// 关联
	AffiliateProfile *AffiliateProfile `gorm:"foreignKey:AffiliateProfileID" json:"affiliate_profile,omitempty"` // 归因推广用户
}

// TableName 指定表名
func (Order) TableName() string {
	return "orders"
}
