package constants

// 订单状态常量
const (
	OrderStatusPendingPayment = "pending_payment"
	OrderStatusPaid           = "paid"
	OrderStatusCompleted      = "completed"
	OrderStatusCanceled       = "canceled"
	OrderStatusRefunded       = "refunded"
)

// 用户状态常量
const (
	UserStatusActive   = "active"
	UserStatusDisabled = "disabled"
)

// 推广返利状态常量
const (
	AffiliateProfileStatusActive   = "active"
	AffiliateProfileStatusDisabled = "disabled"
)

// 推广返利佣金状态常量
const (
	AffiliateCommissionStatusPendingConfirm = "pending_confirm"
	AffiliateCommissionStatusAvailable      = "available"
	AffiliateCommissionStatusRejected       = "rejected"
	AffiliateCommissionStatusInvalid        = "invalid"
)

// 推广返利佣金类型常量
const (
	AffiliateCommissionTypeOrder  = "order"
	AffiliateCommissionTypeUpline = "upline"
)

// 佣金规则动作类型常量
const (
	CommissionActionPercentage = "percentage"
	CommissionActionFixed      = "fixed"
)

// 买家类型条件常量
const (
	CustomerTypeAll       = "ALL"
	CustomerTypeNew       = "NEW"
	CustomerTypeReturning = "RETURNING"
)

// 多级分润基数口径常量
const (
	PayoutBasisSalesAmount = "sales_amount"
	PayoutBasisProfit      = "profit"
)

// 账务流水类型常量
const (
	LedgerTypeCommission      = "commission"
	LedgerTypeUplineBonus     = "upline_bonus"
	LedgerTypePayout          = "payout"
	LedgerTypeRefundDeduction = "refund_deduction"
	LedgerTypeAdminAdjust     = "admin_adjust"
)

// 账务流水方向常量
const (
	LedgerDirectionIn  = "in"
	LedgerDirectionOut = "out"
)

// 后台管理员角色常量
const (
	AdminRoleSuper    = "super"
	AdminRoleOperator = "operator"
	AdminRoleFinance  = "finance"
)

// 多级分润层级上限（配置值超过该上限按上限截断）
const MaxPayoutLevelsCap = 10

// 系统设置键常量
const (
	SettingKeySiteConfig      = "site_config"
	SettingKeyAffiliateConfig = "affiliate_config"
	SettingKeyMLMConfig       = "mlm_config"
)

// 异步队列名称常量
const (
	QueueDefault = "default"
)

// 异步任务类型常量
const (
	TaskCommissionSettle   = "commission:settle"
	TaskCommissionClawback = "commission:clawback"
	TaskCommissionConfirm  = "commission:confirm"
)
