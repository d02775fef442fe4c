package service

import (
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/fenxiao-next/internal/constants"
	"github.com/fenxiao-next/internal/logger"
	"github.com/fenxiao-next/internal/models"

	"github.com/shopspring/decimal"
)

// RuleConditions 佣金规则匹配条件
// 所有条件取交集（AND），零值字段视为不限制，空条件恒为真。
type RuleConditions struct {
	MinOrderAmount *decimal.Decimal
	CustomerType   string
	CategoryIDs    []uint
}

// RuleAction 佣金规则动作
type RuleAction struct {
	Type  string
	Value decimal.Decimal
}

// OrderContext 规则匹配时的订单快照
type OrderContext struct {
	OrderAmount   decimal.Decimal
	IsNewCustomer bool
	CategoryIDs   []uint
}

// ParseRuleConditions 解析规则条件 JSON
// nil 或空对象返回恒真条件，字段非法时返回错误。
func ParseRuleConditions(raw models.JSON) (RuleConditions, error) {
	var cond RuleConditions
	if len(raw) == 0 {
		return cond, nil
	}

	if amountRaw, ok := raw["minOrderAmount"]; ok && amountRaw != nil {
		parsed, err := parseRuleDecimal(amountRaw)
		if err != nil {
			return cond, fmt.Errorf("%w: minOrderAmount 非法: %v", ErrRuleInvalid, err)
		}
		if parsed.IsNegative() {
			return cond, fmt.Errorf("%w: minOrderAmount 不能为负数", ErrRuleInvalid)
		}
		cond.MinOrderAmount = &parsed
	}

	if typeRaw, ok := raw["customerType"]; ok && typeRaw != nil {
		text, ok := typeRaw.(string)
		if !ok {
			return cond, fmt.Errorf("%w: customerType 必须为字符串", ErrRuleInvalid)
		}
		normalized := strings.ToUpper(strings.TrimSpace(text))
		switch normalized {
		case "", constants.CustomerTypeAll:
			// ALL 与缺省等价，不限制
		case constants.CustomerTypeNew, constants.CustomerTypeReturning:
			cond.CustomerType = normalized
		default:
			return cond, fmt.Errorf("%w: 不支持的 customerType %q", ErrRuleInvalid, text)
		}
	}

	if idsRaw, ok := raw["categoryIds"]; ok && idsRaw != nil {
		ids, err := parseRuleUintList(idsRaw)
		if err != nil {
			return cond, fmt.Errorf("%w: categoryIds 非法: %v", ErrRuleInvalid, err)
		}
		cond.CategoryIDs = ids
	}

	return cond, nil
}

// ParseRuleAction 解析规则动作 JSON
func ParseRuleAction(raw models.JSON) (RuleAction, error) {
	var action RuleAction
	if len(raw) == 0 {
		return action, fmt.Errorf("%w: 动作不能为空", ErrRuleInvalid)
	}

	typeRaw, ok := raw["type"]
	if !ok {
		return action, fmt.Errorf("%w: 缺少动作类型", ErrRuleInvalid)
	}
	typeText, ok := typeRaw.(string)
	if !ok {
		return action, fmt.Errorf("%w: 动作类型必须为字符串", ErrRuleInvalid)
	}
	switch normalized := strings.ToLower(strings.TrimSpace(typeText)); normalized {
	case constants.CommissionActionPercentage, constants.CommissionActionFixed:
		action.Type = normalized
	default:
		return action, fmt.Errorf("%w: 不支持的动作类型 %q", ErrRuleInvalid, typeText)
	}

	valueRaw, ok := raw["value"]
	if !ok || valueRaw == nil {
		return action, fmt.Errorf("%w: 缺少动作数值", ErrRuleInvalid)
	}
	value, err := parseRuleDecimal(valueRaw)
	if err != nil {
		return action, fmt.Errorf("%w: 动作数值非法: %v", ErrRuleInvalid, err)
	}
	if value.IsNegative() {
		return action, fmt.Errorf("%w: 动作数值不能为负数", ErrRuleInvalid)
	}
	if action.Type == constants.CommissionActionPercentage && value.GreaterThan(decimal.NewFromInt(100)) {
		return action, fmt.Errorf("%w: 比例动作数值不能超过 100", ErrRuleInvalid)
	}
	action.Value = value
	return action, nil
}

// MatchConditions 判定订单是否命中条件（纯函数）
func MatchConditions(cond RuleConditions, ctx OrderContext) bool {
	if cond.MinOrderAmount != nil && ctx.OrderAmount.LessThan(*cond.MinOrderAmount) {
		return false
	}

	switch cond.CustomerType {
	case constants.CustomerTypeNew:
		if !ctx.IsNewCustomer {
			return false
		}
	case constants.CustomerTypeReturning:
		if ctx.IsNewCustomer {
			return false
		}
	}

	if len(cond.CategoryIDs) > 0 {
		allowed := make(map[uint]struct{}, len(cond.CategoryIDs))
		for _, id := range cond.CategoryIDs {
			allowed[id] = struct{}{}
		}
		matched := false
		for _, id := range ctx.CategoryIDs {
			if _, ok := allowed[id]; ok {
				matched = true
				break
			}
		}
		if !matched {
			return false
		}
	}

	return true
}

// ComputeCommission 按动作计算佣金金额（四舍五入保留两位，负数归零）
// 固定额动作与订单基数无关，基数为零时同样生效。
func ComputeCommission(action RuleAction, base decimal.Decimal) decimal.Decimal {
	var amount decimal.Decimal
	switch action.Type {
	case constants.CommissionActionPercentage:
		amount = base.Mul(action.Value).Div(decimal.NewFromInt(100))
	case constants.CommissionActionFixed:
		amount = action.Value
	default:
		return decimal.Zero
	}
	amount = amount.Round(2)
	if amount.IsNegative() {
		logger.Warnw("commission_amount_clamped_to_zero",
			"action_type", action.Type,
			"raw_amount", amount.String(),
		)
		return decimal.Zero
	}
	return amount
}

// RuleWindowContains 判定时间是否落在规则生效窗口内（边界含端点）
func RuleWindowContains(rule *models.CommissionRule, now time.Time) bool {
	if rule == nil {
		return false
	}
	if rule.StartAt != nil && now.Before(*rule.StartAt) {
		return false
	}
	if rule.EndAt != nil && now.After(*rule.EndAt) {
		return false
	}
	return true
}

// SelectRule 从规则集中选出首条命中规则
// 顺序为优先级降序、创建时间升序；条件或动作非法的规则记录日志后跳过。
// 无命中时返回 nil，由调用方回退兜底比例。
func SelectRule(rules []models.CommissionRule, ctx OrderContext, now time.Time) (*models.CommissionRule, *RuleAction) {
	if len(rules) == 0 {
		return nil, nil
	}

	ordered := make([]*models.CommissionRule, 0, len(rules))
	for i := range rules {
		ordered = append(ordered, &rules[i])
	}
	sort.SliceStable(ordered, func(i, j int) bool {
		if ordered[i].Priority != ordered[j].Priority {
			return ordered[i].Priority > ordered[j].Priority
		}
		if !ordered[i].CreatedAt.Equal(ordered[j].CreatedAt) {
			return ordered[i].CreatedAt.Before(ordered[j].CreatedAt)
		}
		return ordered[i].ID < ordered[j].ID
	})

	for _, rule := range ordered {
		if !rule.IsActive {
			continue
		}
		if !RuleWindowContains(rule, now) {
			continue
		}
		cond, err := ParseRuleConditions(rule.ConditionJSON)
		if err != nil {
			logger.Warnw("commission_rule_conditions_invalid",
				"rule_id", rule.ID,
				"rule_name", rule.Name,
				"error", err,
			)
			continue
		}
		if !MatchConditions(cond, ctx) {
			continue
		}
		action, err := ParseRuleAction(rule.ActionJSON)
		if err != nil {
			logger.Warnw("commission_rule_action_invalid",
				"rule_id", rule.ID,
				"rule_name", rule.Name,
				"error", err,
			)
			continue
		}
		return rule, &action
	}
	return nil, nil
}

func parseRuleDecimal(raw interface{}) (decimal.Decimal, error) {
	switch v := raw.(type) {
	case float32:
		return decimal.NewFromFloat32(v), nil
	case float64:
		return decimal.NewFromFloat(v), nil
	case int:
		return decimal.NewFromInt(int64(v)), nil
	case int64:
		return decimal.NewFromInt(v), nil
	case string:
		trimmed := strings.TrimSpace(v)
		if trimmed == "" {
			return decimal.Zero, fmt.Errorf("empty string")
		}
		return decimal.NewFromString(trimmed)
	default:
		return decimal.Zero, fmt.Errorf("unsupported value type %T", raw)
	}
}

func parseRuleUintList(raw interface{}) ([]uint, error) {
	items, ok := raw.([]interface{})
	if !ok {
		return nil, fmt.Errorf("expected array")
	}
	ids := make([]uint, 0, len(items))
	for _, item := range items {
		parsed, err := parseSettingInt(item)
		if err != nil {
			return nil, err
		}
		if parsed < 0 {
			return nil, fmt.Errorf("negative id")
		}
		ids = append(ids, uint(parsed))
	}
	return ids, nil
}
