package models

import (
	"time"
)

// AffiliateClick 推广链接点击记录
type AffiliateClick struct {
	ID                 uint      `gorm:"primarykey" json:"id"`                       // 主键
	AffiliateProfileID uint      `gorm:"not null;index" json:"affiliate_profile_id"` // 推广用户ID
	Code               string    `gorm:"type:varchar(32);index" json:"code"`         // 推广码
	IP                 string    `gorm:"type:varchar(64)" json:"ip"`                 // 访问IP
	UserAgent          string    `gorm:"type:varchar(255)" json:"user_agent"`        // UA
	Referer            string    `gorm:"type:varchar(255)" json:"referer"`           // 来源页
	LandingPath        string    `gorm:"type:varchar(255)" json:"landing_path"`      // 落地路径
	CreatedAt          time.Time `gorm:"index" json:"created_at"`                    // 点击时间
}

// TableName 指定表名
func (AffiliateClick) TableName() string {
	return "affiliate_clicks"
}
