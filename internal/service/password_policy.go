package service

import (
	"unicode"

	"github.com/fenxiao-next/internal/config"
)

type passwordPolicyError struct {
	key string
}

func (e passwordPolicyError) Error() string {
	return e.key
}

func (e passwordPolicyError) Is(target error) bool {
	return target == ErrPasswordPolicy
}

// Key 返回用于国际化的文案键
func (e passwordPolicyError) Key() string {
	return e.key
}

func validatePassword(policy config.PasswordPolicyConfig, password string) error {
	if policy.MinLength <= 0 &&
		!policy.RequireUpper &&
		!policy.RequireLower &&
		!policy.RequireNumber &&
		!policy.RequireSpecial {
		return nil
	}

	if policy.MinLength > 0 {
		if len([]rune(password)) < policy.MinLength {
			return passwordPolicyError{key: "error.password_weak"}
		}
	}

	var hasUpper, hasLower, hasNumber, hasSpecial bool
	for _, r := range password {
		switch {
		case unicode.IsUpper(r):
			hasUpper = true
		case unicode.IsLower(r):
			hasLower = true
		case unicode.IsDigit(r):
			hasNumber = true
		default:
			hasSpecial = true
		}
	}

	if policy.RequireUpper && !hasUpper {
		return passwordPolicyError{key: "error.password_weak"}
	}
	if policy.RequireLower && !hasLower {
		return passwordPolicyError{key: "error.password_weak"}
	}
	if policy.RequireNumber && !hasNumber {
		return passwordPolicyError{key: "error.password_weak"}
	}
	if policy.RequireSpecial && !hasSpecial {
		return passwordPolicyError{key: "error.password_weak"}
	}

	return nil
}
