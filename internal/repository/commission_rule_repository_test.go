package repository

import (
	"fmt"
	"testing"
	"time"

	"github.com/fenxiao-next/internal/models"

	"github.com/glebarez/sqlite"
	"gorm.io/gorm"
)

func setupRuleRepositoryTest(t *testing.T) *GormCommissionRuleRepository {
	t.Helper()
	dsn := fmt.Sprintf("file:rule_repo_%d?mode=memory&cache=shared", time.Now().UnixNano())
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{})
	if err != nil {
		t.Fatalf("open sqlite failed: %v", err)
	}
	if err := db.AutoMigrate(&models.CommissionRule{}); err != nil {
		t.Fatalf("migrate rules failed: %v", err)
	}
	return NewCommissionRuleRepository(db)
}

func TestListActiveOrdering(t *testing.T) {
	repo := setupRuleRepositoryTest(t)

	base := time.Now().Add(-time.Hour)
	rules := []*models.CommissionRule{
		{Name: "低优先级", IsActive: true, Priority: 1, ActionJSON: models.JSON{"type": "percentage", "value": 5}, CreatedAt: base},
		{Name: "高优先级较新", IsActive: true, Priority: 10, ActionJSON: models.JSON{"type": "percentage", "value": 8}, CreatedAt: base.Add(10 * time.Minute)},
		{Name: "高优先级较早", IsActive: true, Priority: 10, ActionJSON: models.JSON{"type": "percentage", "value": 9}, CreatedAt: base.Add(5 * time.Minute)},
		{Name: "已停用", IsActive: false, Priority: 99, ActionJSON: models.JSON{"type": "percentage", "value": 50}, CreatedAt: base},
	}
	for _, rule := range rules {
		if err := repo.Create(rule); err != nil {
			t.Fatalf("create rule failed: %v", err)
		}
	}

	active, err := repo.ListActive()
	if err != nil {
		t.Fatalf("list active failed: %v", err)
	}
	if len(active) != 3 {
		t.Fatalf("active rules = %d, want 3", len(active))
	}
	if active[0].Name != "高优先级较早" {
		t.Fatalf("first rule = %s, want 高优先级较早", active[0].Name)
	}
	if active[1].Name != "高优先级较新" {
		t.Fatalf("second rule = %s, want 高优先级较新", active[1].Name)
	}
	if active[2].Name != "低优先级" {
		t.Fatalf("third rule = %s, want 低优先级", active[2].Name)
	}
}

func TestRuleSoftDelete(t *testing.T) {
	repo := setupRuleRepositoryTest(t)

	rule := &models.CommissionRule{
		Name:       "待删除规则",
		IsActive:   true,
		ActionJSON: models.JSON{"type": "fixed", "value": 5},
	}
	if err := repo.Create(rule); err != nil {
		t.Fatalf("create rule failed: %v", err)
	}
	if err := repo.Delete(rule.ID); err != nil {
		t.Fatalf("delete rule failed: %v", err)
	}

	got, err := repo.GetByID(rule.ID)
	if err != nil {
		t.Fatalf("get deleted rule failed: %v", err)
	}
	if got != nil {
		t.Fatalf("deleted rule should not resolve, got %v", got)
	}

	active, err := repo.ListActive()
	if err != nil {
		t.Fatalf("list active failed: %v", err)
	}
	if len(active) != 0 {
		t.Fatalf("deleted rule should leave active list empty, got %d", len(active))
	}
}

func TestRuleListFilter(t *testing.T) {
	repo := setupRuleRepositoryTest(t)

	enabled := true
	disabled := false
	rules := []*models.CommissionRule{
		{Name: "新客专享", IsActive: true, ActionJSON: models.JSON{"type": "percentage", "value": 10}},
		{Name: "大促加成", IsActive: true, ActionJSON: models.JSON{"type": "percentage", "value": 15}},
		{Name: "历史规则", IsActive: false, ActionJSON: models.JSON{"type": "percentage", "value": 3}},
	}
	for _, rule := range rules {
		if err := repo.Create(rule); err != nil {
			t.Fatalf("create rule failed: %v", err)
		}
	}

	_, total, err := repo.List(CommissionRuleListFilter{IsActive: &enabled, Page: 1, PageSize: 10})
	if err != nil {
		t.Fatalf("list enabled failed: %v", err)
	}
	if total != 2 {
		t.Fatalf("enabled total = %d, want 2", total)
	}

	_, total, err = repo.List(CommissionRuleListFilter{IsActive: &disabled, Page: 1, PageSize: 10})
	if err != nil {
		t.Fatalf("list disabled failed: %v", err)
	}
	if total != 1 {
		t.Fatalf("disabled total = %d, want 1", total)
	}

	rows, total, err := repo.List(CommissionRuleListFilter{Keyword: "新客", Page: 1, PageSize: 10})
	if err != nil {
		t.Fatalf("list by keyword failed: %v", err)
	}
	if total != 1 || len(rows) != 1 || rows[0].Name != "新客专享" {
		t.Fatalf("keyword filter total = %d rows = %d", total, len(rows))
	}
}
