package provider

import (
	"github.com/fenxiao-next/internal/authz"
	"github.com/fenxiao-next/internal/cache"
	"github.com/fenxiao-next/internal/config"
	"github.com/fenxiao-next/internal/logger"
	"github.com/fenxiao-next/internal/models"
	"github.com/fenxiao-next/internal/queue"
	"github.com/fenxiao-next/internal/repository"
	"github.com/fenxiao-next/internal/service"
)

// Container 依赖注入容器
type Container struct {
	Config      *config.Config
	QueueClient *queue.Client

	// Repositories
	AdminRepo     repository.AdminRepository
	UserRepo      repository.UserRepository
	OrderRepo     repository.OrderRepository
	ProductRepo   repository.ProductRepository
	CategoryRepo  repository.CategoryRepository
	RuleRepo      repository.CommissionRuleRepository
	AffiliateRepo repository.AffiliateRepository
	LedgerRepo    repository.LedgerRepository
	SettingRepo   repository.SettingRepository

	// Services
	AuthzService          *authz.Service
	AuthService           *service.AuthService
	UserAuthService       *service.UserAuthService
	SettingService        *service.SettingService
	ProductService        *service.ProductService
	CategoryService       *service.CategoryService
	CommissionRuleService *service.CommissionRuleService
	AffiliateService      *service.AffiliateService
	LedgerService         *service.LedgerService
	CommissionService     *service.CommissionService
	OrderService          *service.OrderService
}

// NewContainer 初始化容器
func NewContainer(cfg *config.Config) *Container {
	// 初始化缓存
	if err := cache.InitRedis(&cfg.Redis); err != nil {
		logger.Warnw("provider_init_redis_failed", "error", err)
	}

	// 初始化队列客户端
	var queueClient *queue.Client
	if cfg.Queue.Enabled {
		qc, err := queue.NewClient(&cfg.Queue)
		if err != nil {
			logger.Errorw("provider_init_queue_client_failed", "error", err)
		} else {
			queueClient = qc
		}
	}

	c := &Container{
		Config:      cfg,
		QueueClient: queueClient,
	}

	c.initRepositories()
	c.initServices()

	return c
}

func (c *Container) initRepositories() {
	db := models.DB
	c.AdminRepo = repository.NewAdminRepository(db)
	c.UserRepo = repository.NewUserRepository(db)
	c.OrderRepo = repository.NewOrderRepository(db)
	c.ProductRepo = repository.NewProductRepository(db)
	c.CategoryRepo = repository.NewCategoryRepository(db)
	c.RuleRepo = repository.NewCommissionRuleRepository(db)
	c.AffiliateRepo = repository.NewAffiliateRepository(db)
	c.LedgerRepo = repository.NewLedgerRepository(db)
	c.SettingRepo = repository.NewSettingRepository(db)
}

func (c *Container) initServices() {
	authzService, err := authz.NewService(models.DB)
	if err != nil {
		logger.Errorw("provider_init_authz_failed", "error", err)
		panic(err)
	}
	c.AuthzService = authzService
	if err := c.AuthzService.BootstrapBuiltinRoles(); err != nil {
		logger.Errorw("provider_bootstrap_builtin_roles_failed", "error", err)
		panic(err)
	}

	c.SettingService = service.NewSettingService(c.SettingRepo)
	c.AuthService = service.NewAuthService(c.Config, c.AdminRepo)
	c.UserAuthService = service.NewUserAuthService(c.Config, c.UserRepo)
	c.ProductService = service.NewProductService(c.ProductRepo, c.CategoryRepo)
	c.CategoryService = service.NewCategoryService(c.CategoryRepo, c.ProductRepo)
	c.CommissionRuleService = service.NewCommissionRuleService(c.RuleRepo)
	c.LedgerService = service.NewLedgerService(c.LedgerRepo)
	c.AffiliateService = service.NewAffiliateService(c.AffiliateRepo, c.UserRepo, c.SettingService, c.LedgerService)
	c.CommissionService = service.NewCommissionService(c.AffiliateRepo, c.RuleRepo, c.OrderRepo, c.SettingService, c.LedgerService)
	c.OrderService = service.NewOrderService(c.OrderRepo, c.ProductRepo, c.UserRepo, c.AffiliateService, c.CommissionService, c.QueueClient)
}
