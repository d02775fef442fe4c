package main

import (
	"github.com/fenxiao-next/internal/config"
	"github.com/fenxiao-next/internal/constants"
	"github.com/fenxiao-next/internal/logger"
	"github.com/fenxiao-next/internal/models"
	"github.com/fenxiao-next/internal/repository"
	"github.com/fenxiao-next/internal/service"

	"github.com/shopspring/decimal"
)

// 演示数据种子：分类、商品、分销与分润配置、示例佣金规则。
func main() {
	cfg := config.Load()
	logger.Init(cfg.Server.Mode, cfg.Log.ToLoggerOptions())
	stdLog := logger.StdLogger()

	if err := models.InitDB(cfg.Database.Driver, cfg.Database.DSN, models.DBPoolConfig{
		MaxOpenConns:           cfg.Database.Pool.MaxOpenConns,
		MaxIdleConns:           cfg.Database.Pool.MaxIdleConns,
		ConnMaxLifetimeSeconds: cfg.Database.Pool.ConnMaxLifetimeSeconds,
		ConnMaxIdleTimeSeconds: cfg.Database.Pool.ConnMaxIdleTimeSeconds,
	}); err != nil {
		stdLog.Fatalf("Failed to connect database: %v", err)
	}

	if err := models.AutoMigrate(); err != nil {
		stdLog.Fatalf("Failed to migrate database: %v", err)
	}

	categories := []models.Category{
		{
			NameJSON: models.JSON(map[string]interface{}{
				"zh-CN": "数字软件",
				"en-US": "Software",
			}),
			Slug: "software",
		},
		{
			NameJSON: models.JSON(map[string]interface{}{
				"zh-CN": "在线课程",
				"en-US": "Courses",
			}),
			Slug: "courses",
		},
		{
			NameJSON: models.JSON(map[string]interface{}{
				"zh-CN": "会员订阅",
				"en-US": "Memberships",
			}),
			Slug: "memberships",
		},
	}

	for _, cat := range categories {
		var existing models.Category
		if err := models.DB.Where("slug = ?", cat.Slug).First(&existing).Error; err != nil {
			if err := models.DB.Create(&cat).Error; err != nil {
				stdLog.Printf("Failed to create category %s: %v", cat.Slug, err)
			} else {
				stdLog.Printf("Created category: %s", cat.Slug)
			}
		} else {
			stdLog.Printf("Category already exists: %s", cat.Slug)
		}
	}

	categoryIDs := map[string]uint{}
	var categoryList []models.Category
	if err := models.DB.Where("slug IN ?", []string{"software", "courses", "memberships"}).Find(&categoryList).Error; err != nil {
		stdLog.Printf("Failed to load categories: %v", err)
	}
	for _, cat := range categoryList {
		categoryIDs[cat.Slug] = cat.ID
	}

	products := []models.Product{
		{
			CategoryID: categoryIDs["software"],
			Slug:       "pro-license",
			TitleJSON: models.JSON(map[string]interface{}{
				"zh-CN": "专业版授权",
				"en-US": "Pro License",
			}),
			PriceAmount: models.NewMoneyFromDecimal(decimal.NewFromInt(299)),
			CostAmount:  models.NewMoneyFromDecimal(decimal.NewFromInt(50)),
		},
		{
			CategoryID: categoryIDs["courses"],
			Slug:       "growth-course",
			TitleJSON: models.JSON(map[string]interface{}{
				"zh-CN": "增长实战课",
				"en-US": "Growth Course",
			}),
			PriceAmount: models.NewMoneyFromDecimal(decimal.NewFromInt(199)),
			CostAmount:  models.NewMoneyFromDecimal(decimal.NewFromInt(20)),
		},
		{
			CategoryID: categoryIDs["memberships"],
			Slug:       "annual-membership",
			TitleJSON: models.JSON(map[string]interface{}{
				"zh-CN": "年度会员",
				"en-US": "Annual Membership",
			}),
			PriceAmount: models.NewMoneyFromDecimal(decimal.NewFromInt(365)),
			CostAmount:  models.NewMoneyFromDecimal(decimal.NewFromInt(30)),
		},
	}

	for _, p := range products {
		if p.CategoryID == 0 {
			continue
		}
		var existing models.Product
		if err := models.DB.Where("slug = ?", p.Slug).First(&existing).Error; err != nil {
			if err := models.DB.Create(&p).Error; err != nil {
				stdLog.Printf("Failed to create product %s: %v", p.Slug, err)
			} else {
				stdLog.Printf("Created product: %s", p.Slug)
			}
		} else {
			stdLog.Printf("Product already exists: %s", p.Slug)
		}
	}

	settingRepo := repository.NewSettingRepository(models.DB)
	settingService := service.NewSettingService(settingRepo)

	if existing, err := settingRepo.GetByKey(constants.SettingKeyAffiliateConfig); err != nil {
		stdLog.Printf("Failed to load affiliate setting: %v", err)
	} else if existing != nil {
		stdLog.Printf("Affiliate setting already exists")
	} else if _, err := settingService.UpdateAffiliateSetting(service.AffiliateSetting{
		Enabled:     true,
		DefaultRate: 10,
		ConfirmDays: 7,
	}); err != nil {
		stdLog.Printf("Failed to seed affiliate setting: %v", err)
	} else {
		stdLog.Printf("Created affiliate setting: rate=10%% confirm_days=7")
	}

	if existing, err := settingRepo.GetByKey(constants.SettingKeyMLMConfig); err != nil {
		stdLog.Printf("Failed to load mlm setting: %v", err)
	} else if existing != nil {
		stdLog.Printf("MLM setting already exists")
	} else if _, err := settingService.UpdateMLMSetting(service.MLMSetting{
		Enabled:    true,
		MaxLevels:  2,
		Basis:      constants.PayoutBasisSalesAmount,
		LevelRates: []float64{5, 2},
	}); err != nil {
		stdLog.Printf("Failed to seed mlm setting: %v", err)
	} else {
		stdLog.Printf("Created mlm setting: levels=[5%% 2%%]")
	}

	demoRule := models.CommissionRule{
		Name:     "大额订单加成",
		IsActive: true,
		Priority: 10,
		ConditionJSON: models.JSON(map[string]interface{}{
			"minOrderAmount": 300,
		}),
		ActionJSON: models.JSON(map[string]interface{}{
			"type":  "percentage",
			"value": 15,
		}),
		Remark: "满 300 按 15% 计佣",
	}
	var ruleCount int64
	if err := models.DB.Model(&models.CommissionRule{}).Count(&ruleCount).Error; err != nil {
		stdLog.Printf("Failed to count commission rules: %v", err)
	} else if ruleCount > 0 {
		stdLog.Printf("Commission rules already exist")
	} else if err := models.DB.Create(&demoRule).Error; err != nil {
		stdLog.Printf("Failed to create commission rule: %v", err)
	} else {
		stdLog.Printf("Created commission rule: %s", demoRule.Name)
	}

	stdLog.Printf("Seed done")
}
