package models

import (
	"strings"

	"github.com/fenxiao-next/internal/logger"

	"golang.org/x/crypto/bcrypt"
)

// InitDefaultAdmin 确保系统存在可登录的管理员账号
func InitDefaultAdmin(username, password string) error {
	if username = strings.TrimSpace(username); username == "" {
		username = "admin"
	}

	var count int64
	DB.Model(&Admin{}).Count(&count)

	// 已有管理员时只补齐默认账号的超级管理员标记
	if count > 0 {
		if err := DB.Model(&Admin{}).Where("username = ?", username).Update("is_super", true).Error; err != nil {
			logger.Warnw("ensure_default_admin_super_failed", "username", username, "error", err)
		}
		return nil
	}

	usingDefaultPassword := password == ""
	if usingDefaultPassword {
		password = "admin123"
	}
	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return err
	}

	admin := Admin{
		Username:     username,
		PasswordHash: string(hash),
		IsSuper:      true,
	}
	if err := DB.Create(&admin).Error; err != nil {
		return err
	}

	if usingDefaultPassword {
		logger.Warnw("default_admin_created_with_default_password", "username", username)
		logger.Warnw("default_admin_password_change_required", "username", username)
	} else {
		logger.Warnw("default_admin_created", "username", username, "password_hidden", true)
	}
	return nil
}
