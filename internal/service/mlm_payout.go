package service

import (
	"github.com/fenxiao-next/internal/logger"

	"github.com/shopspring/decimal"
)

// SponsorLookup 查询指定推广档案的上级档案ID
// 档案不存在或无上级时返回 nil，存储读取失败返回错误。
type SponsorLookup func(profileID uint) (*uint, error)

// UplinePayout 单个上级的分润结果
type UplinePayout struct {
	Level              int
	AffiliateProfileID uint
	RatePercent        decimal.Decimal
	Amount             decimal.Decimal
}

// DistributeUpline 沿推荐链向上逐级计算分润
// 从 startProfileID 的上级记为层级 1，依次到 MaxLevels 层。
// 链条断裂提前结束；检测到环时告警并返回已得的部分结果；
// 分润关闭或基数非正时返回空列表。仅存储读取失败会返回错误。
func DistributeUpline(startProfileID uint, setting MLMSetting, base decimal.Decimal, lookup SponsorLookup) ([]UplinePayout, error) {
	payouts := []UplinePayout{}
	if !setting.Enabled || setting.MaxLevels <= 0 || lookup == nil {
		return payouts, nil
	}
	if startProfileID == 0 || base.LessThanOrEqual(decimal.Zero) {
		return payouts, nil
	}

	seen := map[uint]struct{}{startProfileID: {}}
	current := startProfileID
	for level := 1; level <= setting.MaxLevels; level++ {
		sponsorID, err := lookup(current)
		if err != nil {
			return nil, err
		}
		if sponsorID == nil || *sponsorID == 0 {
			break
		}
		if _, ok := seen[*sponsorID]; ok {
			logger.Warnw("upline_chain_cycle_detected",
				"start_profile_id", startProfileID,
				"cycle_profile_id", *sponsorID,
				"level", level,
			)
			break
		}
		seen[*sponsorID] = struct{}{}

		rate := decimal.Zero
		if level-1 < len(setting.LevelRates) {
			rate = decimal.NewFromFloat(setting.LevelRates[level-1]).Round(2)
		} else {
			// 配置缺失该层比例时跳过该层，继续向上走
			logger.Warnw("upline_level_rate_missing",
				"start_profile_id", startProfileID,
				"level", level,
				"max_levels", setting.MaxLevels,
			)
		}
		amount := base.Mul(rate).Div(decimal.NewFromInt(100)).Round(2)
		if amount.IsNegative() {
			amount = decimal.Zero
		}
		if amount.GreaterThan(decimal.Zero) {
			payouts = append(payouts, UplinePayout{
				Level:              level,
				AffiliateProfileID: *sponsorID,
				RatePercent:        rate,
				Amount:             amount,
			})
		}

		current = *sponsorID
	}
	return payouts, nil
}
