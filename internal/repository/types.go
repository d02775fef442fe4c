package repository

import "time"

// ProductListFilter 查询商品列表的过滤条件
type ProductListFilter struct {
	Page          int
	PageSize      int
	CategoryID    uint
	Search        string
	OnlyActive    bool
	AffiliateOnly bool
	WithCategory  bool
}

// CategoryListFilter 查询分类列表的过滤条件
type CategoryListFilter struct {
	Page     int
	PageSize int
	Search   string
}

// OrderListFilter 查询订单列表的过滤条件
type OrderListFilter struct {
	Page               int
	PageSize           int
	UserID             uint
	AffiliateProfileID uint
	Status             string
	OrderNo            string
	CreatedFrom        *time.Time
	CreatedTo          *time.Time
}

// UserListFilter 查询用户列表的过滤条件
type UserListFilter struct {
	Page        int
	PageSize    int
	Keyword     string
	Status      string
	CreatedFrom *time.Time
	CreatedTo   *time.Time
}

// CommissionRuleListFilter 查询佣金规则列表的过滤条件
type CommissionRuleListFilter struct {
	Page     int
	PageSize int
	Keyword  string
	IsActive *bool
}

// AffiliateProfileListFilter 查询推广档案列表的过滤条件
type AffiliateProfileListFilter struct {
	Page      int
	PageSize  int
	UserID    uint
	SponsorID uint
	Code      string
	Status    string
	Keyword   string
}

// AffiliateCommissionListFilter 查询佣金记录列表的过滤条件
type AffiliateCommissionListFilter struct {
	Page               int
	PageSize           int
	AffiliateProfileID uint
	OrderID            uint
	OrderNo            string
	CommissionType     string
	Status             string
	Level              *int
	Keyword            string
	CreatedFrom        *time.Time
	CreatedTo          *time.Time
}

// LedgerEntryListFilter 查询账务流水列表的过滤条件
type LedgerEntryListFilter struct {
	Page               int
	PageSize           int
	AffiliateProfileID uint
	OrderID            uint
	Type               string
	Direction          string
	CreatedFrom        *time.Time
	CreatedTo          *time.Time
}
