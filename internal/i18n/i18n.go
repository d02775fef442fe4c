package i18n

import (
	"fmt"
	"strings"

	"github.com/gin-gonic/gin"
)

const (
	// LocaleZH 简体中文
	LocaleZH = "zh-CN"
	// LocaleEN 英文
	LocaleEN = "en-US"
)

var defaultLocale = LocaleZH

// messages 文案表（键 -> 语言 -> 文案）
var messages = map[string]map[string]string{
	"error.bad_request": {
		LocaleZH: "请求参数错误",
		LocaleEN: "invalid request",
	},
	"error.unauthorized": {
		LocaleZH: "未登录或登录已过期",
		LocaleEN: "unauthorized",
	},
	"error.forbidden": {
		LocaleZH: "无权限访问",
		LocaleEN: "forbidden",
	},
	"error.not_found": {
		LocaleZH: "资源不存在",
		LocaleEN: "not found",
	},
	"error.internal": {
		LocaleZH: "服务器内部错误",
		LocaleEN: "internal server error",
	},
	"error.too_many_requests": {
		LocaleZH: "请求过于频繁，请稍后再试",
		LocaleEN: "too many requests",
	},
	"error.invalid_credentials": {
		LocaleZH: "账号或密码错误",
		LocaleEN: "invalid username or password",
	},
	"error.user_id_invalid": {
		LocaleZH: "用户标识无效",
		LocaleEN: "invalid user id",
	},
	"error.admin_id_invalid": {
		LocaleZH: "管理员标识无效",
		LocaleEN: "invalid admin id",
	},
	"error.user_not_found": {
		LocaleZH: "用户不存在",
		LocaleEN: "user not found",
	},
	"error.email_exists": {
		LocaleZH: "邮箱已被注册",
		LocaleEN: "email already registered",
	},
	"error.affiliate_disabled": {
		LocaleZH: "分销功能未开启",
		LocaleEN: "affiliate program is disabled",
	},
	"error.affiliate_not_found": {
		LocaleZH: "推广账号不存在",
		LocaleEN: "affiliate profile not found",
	},
	"error.affiliate_exists": {
		LocaleZH: "已开通推广账号",
		LocaleEN: "affiliate profile already exists",
	},
	"error.affiliate_code_invalid": {
		LocaleZH: "推广码无效",
		LocaleEN: "invalid referral code",
	},
	"error.sponsor_not_found": {
		LocaleZH: "上级推广账号不存在",
		LocaleEN: "sponsor profile not found",
	},
	"error.sponsor_cycle": {
		LocaleZH: "不允许形成循环推荐关系",
		LocaleEN: "sponsor assignment would create a cycle",
	},
	"error.sponsor_self": {
		LocaleZH: "不能将自己设为上级",
		LocaleEN: "cannot sponsor yourself",
	},
	"error.rule_not_found": {
		LocaleZH: "佣金规则不存在",
		LocaleEN: "commission rule not found",
	},
	"error.rule_invalid": {
		LocaleZH: "佣金规则配置无效",
		LocaleEN: "invalid commission rule",
	},
	"error.mlm_setting_invalid": {
		LocaleZH: "多级分润配置无效",
		LocaleEN: "invalid multi-level payout settings",
	},
	"error.order_not_found": {
		LocaleZH: "订单不存在",
		LocaleEN: "order not found",
	},
	"error.order_status_invalid": {
		LocaleZH: "订单状态不允许该操作",
		LocaleEN: "order status does not allow this operation",
	},
	"error.product_not_found": {
		LocaleZH: "商品不存在",
		LocaleEN: "product not found",
	},
	"error.category_not_found": {
		LocaleZH: "分类不存在",
		LocaleEN: "category not found",
	},
	"error.balance_insufficient": {
		LocaleZH: "账户余额不足",
		LocaleEN: "insufficient balance",
	},
	"error.password_weak": {
		LocaleZH: "密码强度不足",
		LocaleEN: "password does not meet policy",
	},
	"error.jwt_secret_missing": {
		LocaleZH: "服务端未配置签名密钥",
		LocaleEN: "server jwt secret not configured",
	},
	"error.auth_header_missing": {
		LocaleZH: "缺少认证信息",
		LocaleEN: "authorization header missing",
	},
	"error.auth_header_invalid": {
		LocaleZH: "认证信息格式错误",
		LocaleEN: "authorization header invalid",
	},
	"error.token_invalid": {
		LocaleZH: "登录凭证无效",
		LocaleEN: "token invalid",
	},
	"error.token_revoked": {
		LocaleZH: "登录凭证已失效，请重新登录",
		LocaleEN: "token revoked, please login again",
	},
	"error.user_disabled": {
		LocaleZH: "账号已被禁用",
		LocaleEN: "account disabled",
	},
	"error.rate_limited": {
		LocaleZH: "请求过于频繁，请 %d 秒后重试",
		LocaleEN: "too many requests, retry in %d seconds",
	},
	"error.rate_limit_unavailable": {
		LocaleZH: "限流服务暂不可用",
		LocaleEN: "rate limiter unavailable",
	},
	"error.login_failed": {
		LocaleZH: "登录失败，请稍后重试",
		LocaleEN: "login failed, please retry later",
	},
	"error.admin_login_invalid": {
		LocaleZH: "账号或密码错误",
		LocaleEN: "invalid username or password",
	},
	"error.login_too_many": {
		LocaleZH: "登录尝试过于频繁，请 %d 秒后重试",
		LocaleEN: "too many login attempts, retry in %d seconds",
	},
	"error.register_failed": {
		LocaleZH: "注册失败，请稍后重试",
		LocaleEN: "register failed, please retry later",
	},
	"error.password_change_failed": {
		LocaleZH: "密码修改失败",
		LocaleEN: "failed to change password",
	},
	"error.settings_fetch_failed": {
		LocaleZH: "获取设置失败",
		LocaleEN: "failed to fetch settings",
	},
	"error.settings_save_failed": {
		LocaleZH: "保存设置失败",
		LocaleEN: "failed to save settings",
	},
	"error.rule_fetch_failed": {
		LocaleZH: "获取佣金规则失败",
		LocaleEN: "failed to fetch commission rules",
	},
	"error.rule_save_failed": {
		LocaleZH: "保存佣金规则失败",
		LocaleEN: "failed to save commission rule",
	},
	"error.affiliate_fetch_failed": {
		LocaleZH: "获取推广信息失败",
		LocaleEN: "failed to fetch affiliate data",
	},
	"error.affiliate_save_failed": {
		LocaleZH: "保存推广信息失败",
		LocaleEN: "failed to save affiliate data",
	},
	"error.affiliate_open_failed": {
		LocaleZH: "开通推广失败",
		LocaleEN: "failed to open affiliate account",
	},
	"error.commission_fetch_failed": {
		LocaleZH: "获取佣金记录失败",
		LocaleEN: "failed to fetch commissions",
	},
	"error.ledger_fetch_failed": {
		LocaleZH: "获取账务流水失败",
		LocaleEN: "failed to fetch ledger entries",
	},
	"error.ledger_save_failed": {
		LocaleZH: "账务调整失败",
		LocaleEN: "failed to adjust ledger",
	},
	"error.affiliate_not_opened": {
		LocaleZH: "尚未开通推广",
		LocaleEN: "affiliate profile not opened",
	},
	"error.order_fetch_failed": {
		LocaleZH: "获取订单失败",
		LocaleEN: "failed to fetch orders",
	},
	"error.order_create_failed": {
		LocaleZH: "创建订单失败",
		LocaleEN: "failed to create order",
	},
	"error.order_pay_failed": {
		LocaleZH: "订单支付失败",
		LocaleEN: "failed to pay order",
	},
	"error.order_cancel_failed": {
		LocaleZH: "取消订单失败",
		LocaleEN: "failed to cancel order",
	},
	"error.order_refund_failed": {
		LocaleZH: "订单退款失败",
		LocaleEN: "failed to refund order",
	},
	"error.product_fetch_failed": {
		LocaleZH: "获取商品失败",
		LocaleEN: "failed to fetch products",
	},
	"error.product_save_failed": {
		LocaleZH: "保存商品失败",
		LocaleEN: "failed to save product",
	},
	"error.category_fetch_failed": {
		LocaleZH: "获取分类失败",
		LocaleEN: "failed to fetch categories",
	},
	"error.category_save_failed": {
		LocaleZH: "保存分类失败",
		LocaleEN: "failed to save category",
	},
	"error.user_fetch_failed": {
		LocaleZH: "获取用户失败",
		LocaleEN: "failed to fetch users",
	},
	"error.authz_failed": {
		LocaleZH: "权限操作失败",
		LocaleEN: "authorization operation failed",
	},
}

// ResolveLocale 解析请求语言（query 参数优先，其次 Accept-Language）
func ResolveLocale(c *gin.Context) string {
	if c == nil {
		return defaultLocale
	}
	if locale := normalizeLocale(c.Query("locale")); locale != "" {
		return locale
	}
	if locale := normalizeLocale(c.GetHeader("Accept-Language")); locale != "" {
		return locale
	}
	return defaultLocale
}

// T 返回指定语言的文案，未命中时回退默认语言，再回退键本身。
func T(locale, key string) string {
	entry, ok := messages[key]
	if !ok {
		return key
	}
	if msg, ok := entry[locale]; ok && msg != "" {
		return msg
	}
	if msg, ok := entry[defaultLocale]; ok && msg != "" {
		return msg
	}
	return key
}

// Sprintf 返回带参数的本地化文案
func Sprintf(locale, key string, args ...interface{}) string {
	return fmt.Sprintf(T(locale, key), args...)
}

func normalizeLocale(raw string) string {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return ""
	}
	// Accept-Language 可能携带权重列表，只取第一个
	if idx := strings.IndexAny(raw, ",;"); idx >= 0 {
		raw = raw[:idx]
	}
	lower := strings.ToLower(strings.TrimSpace(raw))
	switch {
	case strings.HasPrefix(lower, "zh"):
		return LocaleZH
	case strings.HasPrefix(lower, "en"):
		return LocaleEN
	default:
		return ""
	}
}
