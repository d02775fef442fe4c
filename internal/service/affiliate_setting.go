package service

import (
	"fmt"
	"math"

	"github.com/fenxiao-next/internal/constants"
	"github.com/fenxiao-next/internal/models"
)

const (
	affiliateDefaultRateMin = 0
	affiliateDefaultRateMax = 100
	affiliateConfirmDaysMin = 0
	affiliateConfirmDaysMax = 3650
)

// AffiliateSetting 推广返利配置
// DefaultRate 为无规则命中时的兜底佣金比例（百分比）。
type AffiliateSetting struct {
	Enabled     bool    `json:"enabled"`
	DefaultRate float64 `json:"default_rate"`
	ConfirmDays int     `json:"confirm_days"`
}

// AffiliateDefaultSetting 默认推广返利配置
func AffiliateDefaultSetting() AffiliateSetting {
	return NormalizeAffiliateSetting(AffiliateSetting{
		Enabled:     false,
		DefaultRate: 0,
		ConfirmDays: 0,
	})
}

// NormalizeAffiliateSetting 归一化推广返利配置
func NormalizeAffiliateSetting(setting AffiliateSetting) AffiliateSetting {
	setting.DefaultRate = roundAffiliateDecimal(setting.DefaultRate)
	if setting.DefaultRate < affiliateDefaultRateMin {
		setting.DefaultRate = affiliateDefaultRateMin
	}
	if setting.DefaultRate > affiliateDefaultRateMax {
		setting.DefaultRate = affiliateDefaultRateMax
	}

	if setting.ConfirmDays < affiliateConfirmDaysMin {
		setting.ConfirmDays = affiliateConfirmDaysMin
	}
	if setting.ConfirmDays > affiliateConfirmDaysMax {
		setting.ConfirmDays = affiliateConfirmDaysMax
	}
	return setting
}

// ValidateAffiliateSetting 校验推广返利配置
func ValidateAffiliateSetting(setting AffiliateSetting) error {
	normalized := NormalizeAffiliateSetting(setting)
	if normalized.DefaultRate < affiliateDefaultRateMin || normalized.DefaultRate > affiliateDefaultRateMax {
		return fmt.Errorf("%w: 兜底佣金比例必须在 0-100 之间", ErrAffiliateConfigInvalid)
	}
	if normalized.ConfirmDays < affiliateConfirmDaysMin || normalized.ConfirmDays > affiliateConfirmDaysMax {
		return fmt.Errorf("%w: 佣金确认天数必须在 0-3650 之间", ErrAffiliateConfigInvalid)
	}
	return nil
}

// AffiliateSettingToMap 将推广返利配置转换为 settings 存储结构
func AffiliateSettingToMap(setting AffiliateSetting) map[string]interface{} {
	normalized := NormalizeAffiliateSetting(setting)
	return map[string]interface{}{
		"enabled":      normalized.Enabled,
		"default_rate": normalized.DefaultRate,
		"confirm_days": normalized.ConfirmDays,
	}
}

func affiliateSettingFromJSON(raw models.JSON, fallback AffiliateSetting) AffiliateSetting {
	result := fallback

	if enabledRaw, ok := raw["enabled"]; ok {
		result.Enabled = parseSettingBool(enabledRaw)
	}
	if rateRaw, ok := raw["default_rate"]; ok {
		if parsed, err := parseSettingFloat(rateRaw); err == nil {
			result.DefaultRate = parsed
		}
	}
	if confirmDaysRaw, ok := raw["confirm_days"]; ok {
		if parsed, err := parseSettingInt(confirmDaysRaw); err == nil {
			result.ConfirmDays = parsed
		}
	}

	return NormalizeAffiliateSetting(result)
}

func normalizeAffiliateSettingMap(value map[string]interface{}) models.JSON {
	setting := affiliateSettingFromJSON(models.JSON(value), AffiliateDefaultSetting())
	return models.JSON(AffiliateSettingToMap(setting))
}

// GetAffiliateSetting 获取推广返利设置（优先 settings，空时回退默认）
func (s *SettingService) GetAffiliateSetting() (AffiliateSetting, error) {
	fallback := AffiliateDefaultSetting()
	if s == nil {
		return fallback, nil
	}

	value, err := s.GetByKey(constants.SettingKeyAffiliateConfig)
	if err != nil {
		return fallback, err
	}
	if value == nil {
		return fallback, nil
	}
	return affiliateSettingFromJSON(value, fallback), nil
}

// UpdateAffiliateSetting 更新推广返利设置
func (s *SettingService) UpdateAffiliateSetting(setting AffiliateSetting) (AffiliateSetting, error) {
	normalized := NormalizeAffiliateSetting(setting)
	if err := ValidateAffiliateSetting(normalized); err != nil {
		return AffiliateDefaultSetting(), err
	}
	if _, err := s.Update(constants.SettingKeyAffiliateConfig, AffiliateSettingToMap(normalized)); err != nil {
		return AffiliateDefaultSetting(), err
	}
	return normalized, nil
}

func roundAffiliateDecimal(value float64) float64 {
	return math.Round(value*100) / 100
}
