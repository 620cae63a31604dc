package provider

import (
	"github.com/couponstore/internal/authz"
	"github.com/couponstore/internal/cache"
	"github.com/couponstore/internal/config"
	"github.com/couponstore/internal/logger"
	"github.com/couponstore/internal/models"
	"github.com/couponstore/internal/queue"
	"github.com/couponstore/internal/repository"
	"github.com/couponstore/internal/service"
)

// Container 依赖注入容器
type Container struct {
	Config      *config.Config
	QueueClient *queue.Client

	// Repositories
	UserRepo       repository.UserRepository
	ProductRepo    repository.ProductRepository
	CartRepo       repository.CartRepository
	CouponRepo     repository.CouponRepository
	RedemptionRepo repository.RedemptionRepository
	OrderRepo      repository.OrderRepository

	// Services
	AuthzService       *authz.Service
	UserAuthService    *service.UserAuthService
	CouponService      *service.CouponService
	CouponAdminService *service.CouponAdminService
	RedemptionService  *service.RedemptionService
	ProductService     *service.ProductService
	CartService        *service.CartService
	OrderService       *service.OrderService
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

	// 1. 初始化 Repositories
	c.initRepositories()

	// 2. 初始化 Services
	c.initServices()

	return c
}

func (c *Container) initRepositories() {
	db := models.DB
	c.UserRepo = repository.NewUserRepository(db)
	c.ProductRepo = repository.NewProductRepository(db)
	c.CartRepo = repository.NewCartRepository(db)
	c.CouponRepo = repository.NewCouponRepository(db)
	c.RedemptionRepo = repository.NewRedemptionRepository(db)
	c.OrderRepo = repository.NewOrderRepository(db)
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

	c.UserAuthService = service.NewUserAuthService(c.Config, c.UserRepo)
	c.CouponService = service.NewCouponService(c.CouponRepo, c.RedemptionRepo, c.OrderRepo)
	c.CouponAdminService = service.NewCouponAdminService(c.CouponRepo, c.RedemptionRepo)
	c.RedemptionService = service.NewRedemptionService(c.CouponRepo, c.RedemptionRepo, c.OrderRepo, c.CouponService)
	c.ProductService = service.NewProductService(c.ProductRepo)
	c.CartService = service.NewCartService(c.CartRepo, c.ProductRepo, c.CouponService, &c.Config.Cart)
	c.OrderService = service.NewOrderService(c.OrderRepo, c.CartRepo, c.ProductRepo, c.CouponRepo, c.RedemptionRepo, c.CouponService, c.QueueClient)
}
