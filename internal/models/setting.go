package models

// Setting 系统设置表，分销与多级返佣配置按键值对存储
type Setting struct {
	Key       string `gorm:"primarykey" json:"key"`  // 配置键，如 affiliate / mlm
	ValueJSON JSON   `gorm:"type:json" json:"value"` // 配置内容
}

// TableName 指定表名
func (Setting) TableName() string {
	return "settings"
}
