package service

import "errors"

// 业务错误定义
var (
	ErrNotFound           = errors.New("resource not found")
	ErrInvalidCredentials = errors.New("invalid credentials")
	ErrUserDisabled       = errors.New("user disabled")
	ErrEmailExists        = errors.New("email already registered")
	ErrPasswordPolicy     = errors.New("password does not meet policy")

	ErrAffiliateDisabled             = errors.New("affiliate program disabled")
	ErrAffiliateNotOpened            = errors.New("affiliate profile not opened")
	ErrAffiliateAlreadyOpened        = errors.New("affiliate profile already opened")
	ErrAffiliateCodeInvalid          = errors.New("affiliate code invalid")
	ErrAffiliateProfileStatusInvalid = errors.New("affiliate profile status invalid")
	ErrAffiliateConfigInvalid        = errors.New("affiliate config invalid")

	ErrSponsorNotFound = errors.New("sponsor profile not found")
	ErrSponsorSelf     = errors.New("cannot sponsor yourself")
	ErrSponsorCycle    = errors.New("sponsor assignment would create a cycle")

	ErrRuleInvalid      = errors.New("commission rule invalid")
	ErrMLMConfigInvalid = errors.New("mlm config invalid")

	ErrOrderStatusInvalid = errors.New("order status invalid")

	ErrLedgerInsufficientBalance = errors.New("ledger balance insufficient")
	ErrLedgerAdjustInvalid       = errors.New("ledger adjustment invalid")
	ErrLedgerAccountUpdateFailed = errors.New("ledger account update failed")
	ErrLedgerEntryCreateFailed   = errors.New("ledger entry create failed")
)
