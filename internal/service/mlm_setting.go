package service

import (
	"fmt"
	"strings"

	"github.com/fenxiao-next/internal/constants"
	"github.com/fenxiao-next/internal/models"
)

const (
	mlmLevelRateMin = 0
	mlmLevelRateMax = 100
)

// MLMSetting 多级分润配置
// LevelRates 下标 0 对应层级 1，长度必须等于 MaxLevels。
type MLMSetting struct {
	Enabled    bool      `json:"enabled"`
	MaxLevels  int       `json:"max_levels"`
	Basis      string    `json:"basis"`
	LevelRates []float64 `json:"level_rates"`
}

// MLMDefaultSetting 默认多级分润配置（关闭状态）
func MLMDefaultSetting() MLMSetting {
	return NormalizeMLMSetting(MLMSetting{
		Enabled:    false,
		MaxLevels:  0,
		Basis:      constants.PayoutBasisSalesAmount,
		LevelRates: []float64{},
	})
}

// NormalizeMLMSetting 归一化多级分润配置
// MaxLevels 截断到层级上限，LevelRates 按 MaxLevels 补零或截断。
func NormalizeMLMSetting(setting MLMSetting) MLMSetting {
	if setting.MaxLevels < 0 {
		setting.MaxLevels = 0
	}
	if setting.MaxLevels > constants.MaxPayoutLevelsCap {
		setting.MaxLevels = constants.MaxPayoutLevelsCap
	}

	setting.Basis = normalizeMLMBasis(setting.Basis)

	rates := make([]float64, setting.MaxLevels)
	for i := 0; i < setting.MaxLevels; i++ {
		var rate float64
		if i < len(setting.LevelRates) {
			rate = roundAffiliateDecimal(setting.LevelRates[i])
		}
		if rate < mlmLevelRateMin {
			rate = mlmLevelRateMin
		}
		if rate > mlmLevelRateMax {
			rate = mlmLevelRateMax
		}
		rates[i] = rate
	}
	setting.LevelRates = rates
	return setting
}

// ValidateMLMSetting 校验多级分润配置
func ValidateMLMSetting(setting MLMSetting) error {
	if setting.MaxLevels < 0 || setting.MaxLevels > constants.MaxPayoutLevelsCap {
		return fmt.Errorf("%w: 分润层级必须在 0-%d 之间", ErrMLMConfigInvalid, constants.MaxPayoutLevelsCap)
	}
	if basis := normalizeMLMBasis(setting.Basis); basis != constants.PayoutBasisSalesAmount && basis != constants.PayoutBasisProfit {
		return fmt.Errorf("%w: 不支持的分润基数口径 %q", ErrMLMConfigInvalid, setting.Basis)
	}
	if len(setting.LevelRates) != setting.MaxLevels {
		return fmt.Errorf("%w: 层级比例数量 %d 与分润层级 %d 不一致", ErrMLMConfigInvalid, len(setting.LevelRates), setting.MaxLevels)
	}
	for i, rate := range setting.LevelRates {
		if rate < mlmLevelRateMin || rate > mlmLevelRateMax {
			return fmt.Errorf("%w: 第 %d 层比例必须在 0-100 之间", ErrMLMConfigInvalid, i+1)
		}
	}
	return nil
}

// MLMSettingToMap 将多级分润配置转换为 settings 存储结构
func MLMSettingToMap(setting MLMSetting) map[string]interface{} {
	normalized := NormalizeMLMSetting(setting)
	rates := make([]interface{}, 0, len(normalized.LevelRates))
	for _, rate := range normalized.LevelRates {
		rates = append(rates, rate)
	}
	return map[string]interface{}{
		"enabled":     normalized.Enabled,
		"max_levels":  normalized.MaxLevels,
		"basis":       normalized.Basis,
		"level_rates": rates,
	}
}

func mlmSettingFromJSON(raw models.JSON, fallback MLMSetting) MLMSetting {
	result := fallback

	if enabledRaw, ok := raw["enabled"]; ok {
		result.Enabled = parseSettingBool(enabledRaw)
	}
	if levelsRaw, ok := raw["max_levels"]; ok {
		if parsed, err := parseSettingInt(levelsRaw); err == nil {
			result.MaxLevels = parsed
		}
	}
	if basisRaw, ok := raw["basis"]; ok {
		result.Basis = normalizeSettingText(basisRaw)
	}
	if ratesRaw, ok := raw["level_rates"]; ok {
		result.LevelRates = normalizeSettingFloatList(ratesRaw)
	}

	return NormalizeMLMSetting(result)
}

func normalizeMLMSettingMap(value map[string]interface{}) models.JSON {
	setting := mlmSettingFromJSON(models.JSON(value), MLMDefaultSetting())
	return models.JSON(MLMSettingToMap(setting))
}

func normalizeMLMBasis(basis string) string {
	normalized := strings.ToLower(strings.TrimSpace(basis))
	switch normalized {
	case constants.PayoutBasisSalesAmount, constants.PayoutBasisProfit:
		return normalized
	default:
		return constants.PayoutBasisSalesAmount
	}
}

// GetMLMSetting 获取多级分润设置（优先 settings，空时回退默认）
func (s *SettingService) GetMLMSetting() (MLMSetting, error) {
	fallback := MLMDefaultSetting()
	if s == nil {
		return fallback, nil
	}

	value, err := s.GetByKey(constants.SettingKeyMLMConfig)
	if err != nil {
		return fallback, err
	}
	if value == nil {
		return fallback, nil
	}
	return mlmSettingFromJSON(value, fallback), nil
}

// UpdateMLMSetting 更新多级分润设置
func (s *SettingService) UpdateMLMSetting(setting MLMSetting) (MLMSetting, error) {
	normalized := NormalizeMLMSetting(setting)
	if err := ValidateMLMSetting(normalized); err != nil {
		return MLMDefaultSetting(), err
	}
	if _, err := s.Update(constants.SettingKeyMLMConfig, MLMSettingToMap(normalized)); err != nil {
		return MLMDefaultSetting(), err
	}
	return normalized, nil
}
