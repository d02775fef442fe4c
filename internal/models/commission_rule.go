package models

import (
	"time"

	"gorm.io/gorm"
)

// CommissionRule 佣金规则表
// conditions / action 以 JSON 存储，读取时再做校验与解析。
type CommissionRule struct {
	ID            uint           `gorm:"primarykey" json:"id"`                         // 主键
	Name          string         `gorm:"type:varchar(120);not null" json:"name"`       // 规则名称
	IsActive      bool           `gorm:"not null;default:true;index" json:"is_active"` // 是否启用
	Priority      int            `gorm:"not null;default:0;index" json:"priority"`     // 优先级（数值越大越先匹配）
	ConditionJSON JSON           `gorm:"type:json" json:"conditions"`                  // 匹配条件（空对象表示恒真）
	ActionJSON    JSON           `gorm:"type:json;not null" json:"action"`             // 佣金动作（percentage/fixed）
	StartAt       *time.Time     `gorm:"index" json:"start_at,omitempty"`              // 生效时间（含）
	EndAt         *time.Time     `gorm:"index" json:"end_at,omitempty"`                // 失效时间（含）
	Remark        string         `gorm:"type:varchar(255)" json:"remark"`              // 备注
	CreatedAt     time.Time      `gorm:"index" json:"created_at"`                      // 创建时间
	UpdatedAt     time.Time      `json:"updated_at"`                                   // 更新时间
	DeletedAt     gorm.DeletedAt `gorm:"index" json:"-"`                               // 软删除时间
}

// TableName 指定表名
func (CommissionRule) TableName() string {
	return "commission_rules"
}
