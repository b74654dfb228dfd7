package api

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"sellerhub/internal/activity"
	"sellerhub/internal/api/auth"
	"sellerhub/internal/api/middleware"
	"sellerhub/internal/config"
	"sellerhub/internal/curation"
	"sellerhub/internal/hub"
	"sellerhub/internal/messaging"
	"sellerhub/internal/model"
	"sellerhub/internal/pkg/metrics"
	"sellerhub/internal/pkg/notify"
	"sellerhub/internal/pkg/ratelimit"
	"sellerhub/internal/review"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/redis/go-redis/v9"
	"gorm.io/driver/mysql"
	"gorm.io/gorm"
	gormLogger "gorm.io/gorm/logger"
)

// Server 封装了 API 服务所需的依赖和路由处理。
//
// 它持有数据库连接、Redis 客户端以及 Gin 路由引擎；
// 各业务子系统通过窄接口注入，便于在测试中替换。
type Server struct {
	cfg     *config.Config
	logger  *slog.Logger
	db      *gorm.DB
	rdb     *redis.Client
	router  *gin.Engine
	limiter *ratelimit.RateLimiter
	auth    *auth.Handler

	feed        FeedStore
	reviews     ReviewStore
	activityLog ActivityStore
	messages    MessageStore
}

type FeedStore interface {
	HomepageFeed(ctx context.Context, country string) (*curation.Feed, error)
	QueryItems(ctx context.Context, keyword, sellerEmail string, filters []curation.Filter) ([]curation.ItemDetails, error)
	ItemByCode(ctx context.Context, code string) (*curation.ItemDetails, error)
	Categories(ctx context.Context, parent string) ([]model.Category, error)
}

type ReviewStore interface {
	Add(ctx context.Context, itemCode string, in review.Input) (*model.Review, error)
	List(ctx context.Context, itemCode string) ([]model.Review, error)
}

type ActivityStore interface {
	Record(ctx context.Context, logType, itemCode, actor string, flag bool) (*model.LogEntry, error)
	CountViews(ctx context.Context, itemCode string) (int64, error)
	Save(ctx context.Context, itemCode, actor string) (*model.LogEntry, error)
	Unsave(ctx context.Context, itemCode, actor string) (*model.LogEntry, error)
	SavedItemCodes(ctx context.Context, sellerEmail string) ([]string, error)
	AppendSellerActivity(ctx context.Context, sellerEmail, details string) (*model.ActivityEntry, error)
}

type MessageStore interface {
	ConversationPartners(ctx context.Context, sellerEmail string) ([]messaging.Partner, error)
	ListMessages(ctx context.Context, caller, counterpart, itemCode, order string, limit int) ([]model.Message, error)
	BuyingThreads(ctx context.Context, sellerEmail string) ([]messaging.Thread, error)
	SellingThreads(ctx context.Context, sellerEmail string) ([]messaging.Thread, error)
	Send(ctx context.Context, caller hub.Caller, from, to, content, itemCode string) (*model.Message, error)
}

// NewServer 初始化 API 服务器。
//
// 它负责：
// 1. 连接 MySQL 数据库并执行自动迁移
// 2. 连接 Redis
// 3. 初始化各业务子系统与 Gin 路由引擎
//
// 参数:
//
//	ctx: 上下文
//	cfg: 配置对象
//	logger: 日志记录器
//
// 返回值:
//
//	*Server: 初始化完成的服务器实例
//	error: 初始化失败返回错误
func NewServer(ctx context.Context, cfg *config.Config, logger *slog.Logger) (*Server, error) {
	db, err := gorm.Open(mysql.Open(cfg.MySQL.DSN), &gorm.Config{
		Logger:         gormLogger.Default.LogMode(gormLogger.Silent), // 关闭GORM调试日志
		TranslateError: true,                                          // 唯一索引冲突转为 gorm.ErrDuplicatedKey
	})
	if err != nil {
		return nil, err
	}
	if err := db.AutoMigrate(
		&model.User{}, &model.Seller{}, &model.ActivityEntry{},
		&model.Item{}, &model.Category{}, &model.Review{},
		&model.LogEntry{}, &model.Message{}, &model.SavedItem{},
	); err != nil {
		return nil, err
	}
	if err := EnsureBaseData(db); err != nil {
		return nil, err
	}

	rdb := redis.NewClient(&redis.Options{
		Addr:     cfg.Redis.Addr,
		Password: cfg.Redis.Password,
		DB:       0,
	})
	if err := rdb.Ping(ctx).Err(); err != nil {
		return nil, err
	}

	emailNotifier := notify.NewEmailNotifier(&cfg.Email, logger)

	// 初始化 Prometheus 指标
	metrics.InitMetrics()

	var limiter *ratelimit.RateLimiter
	if cfg.App.RateLimit > 0 {
		limiter = ratelimit.NewRedisRateLimiter(rdb, logger, "guest", cfg.App.RateLimit, cfg.App.RateBurst)
	}

	items := curation.NewService(db, logger, cfg.App.CategorySampleSize)

	gin.SetMode(gin.ReleaseMode)
	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(middleware.RequestLogger(logger))

	s := &Server{
		cfg:         cfg,
		logger:      logger,
		db:          db,
		rdb:         rdb,
		router:      r,
		limiter:     limiter,
		auth:        auth.NewHandler(db, cfg.Security.JWTSecret, emailNotifier, logger),
		feed:        items,
		reviews:     review.NewService(db, logger),
		activityLog: activity.NewService(db, logger),
		messages:    messaging.NewService(db, items, logger),
	}
	s.registerRoutes()
	return s, nil
}

// Run 启动 HTTP 服务器并开始监听请求。
func (s *Server) Run() error {
	s.logger.Info("api server listening", slog.String("addr", s.cfg.App.HTTPAddr))
	return s.router.Run(s.cfg.App.HTTPAddr)
}

// Router 返回 HTTP 路由处理器。
func (s *Server) Router() http.Handler {
	return s.router
}

// Close 关闭数据库与缓存连接。
func (s *Server) Close() error {
	var firstErr error
	if s.rdb != nil {
		if err := s.rdb.Close(); err != nil {
			firstErr = err
		}
	}
	if s.db != nil {
		sqlDB, err := s.db.DB()
		if err != nil {
			if firstErr == nil {
				firstErr = err
			}
		} else {
			if closeErr := sqlDB.Close(); closeErr != nil {
				if firstErr == nil {
					firstErr = closeErr
				}
			}
		}
	}
	return firstErr
}

// registerRoutes 注册所有的 API 路由。
//
// 游客路由经过 Redis 限流；会话路由经过 JWT 校验并刷新卖家活跃标记。
func (s *Server) registerRoutes() {
	// Prometheus metrics 端点
	s.router.GET("/metrics", gin.WrapH(promhttp.Handler()))
	s.router.GET("/healthz", s.handleHealthz)

	guest := s.router.Group("/")
	guest.Use(s.guestRateLimit())
	guest.POST("/register", s.auth.Register)
	guest.POST("/login", s.auth.Login)
	guest.GET("/homepage", s.handleHomepage)
	guest.GET("/items", s.handleQueryItems)
	guest.GET("/items/:code", s.handleItemDetails)
	guest.GET("/items/:code/reviews", s.handleListReviews)
	guest.GET("/categories", s.handleListCategories)
	guest.GET("/sellers/page-info", s.handleSellerPageInfo)

	authed := s.router.Group("/")
	authed.Use(middleware.AuthMiddleware(s.cfg.Security.JWTSecret))
	authed.Use(middleware.SellerActivityMiddleware(s.rdb, s.cfg.App.SellerActiveTTL))
	authed.PATCH("/profile", s.handleUpdateProfile)
	authed.GET("/sellers/profile", s.handleSellerProfile)
	authed.POST("/items/:code/reviews", s.handleAddReview)
	authed.POST("/items/:code/view", s.handleRecordView)
	authed.POST("/items/:code/save", s.handleSaveItem)
	authed.DELETE("/items/:code/save", s.handleUnsaveItem)
	authed.GET("/saved-items", s.handleSavedItems)
	authed.POST("/activity", s.handleAddActivity)
	authed.GET("/messages/partners", s.handleMessagePartners)
	authed.GET("/messages", s.handleListMessages)
	authed.GET("/messages/buying", s.handleBuyingThreads)
	authed.GET("/messages/selling", s.handleSellingThreads)
	authed.POST("/messages", s.handleSendMessage)
}

// guestRateLimit 对游客路由做令牌桶限流；Redis 故障时放行并告警。
func (s *Server) guestRateLimit() gin.HandlerFunc {
	return func(c *gin.Context) {
		if s.limiter == nil {
			c.Next()
			return
		}
		ctx, cancel := context.WithTimeout(c.Request.Context(), s.cfg.App.RateWaitTimeout)
		defer cancel()
		if err := s.limiter.Acquire(ctx); err != nil {
			if errors.Is(err, ratelimit.ErrRateLimitTimeout) {
				c.JSON(http.StatusTooManyRequests, gin.H{"error": "too many requests"})
				c.Abort()
				return
			}
			s.logger.Warn("rate limiter unavailable", slog.String("error", err.Error()))
		}
		c.Next()
	}
}

func (s *Server) handleHealthz(c *gin.Context) {
	ctx, cancel := context.WithTimeout(c.Request.Context(), 2*time.Second)
	defer cancel()

	if s.db == nil || s.rdb == nil {
		c.JSON(http.StatusServiceUnavailable, gin.H{"status": "error"})
		return
	}

	var one int
	if err := s.db.WithContext(ctx).Raw("SELECT 1").Scan(&one).Error; err != nil {
		c.JSON(http.StatusServiceUnavailable, gin.H{"status": "error"})
		return
	}
	if err := s.rdb.Ping(ctx).Err(); err != nil {
		c.JSON(http.StatusServiceUnavailable, gin.H{"status": "error"})
		return
	}

	c.JSON(http.StatusOK, gin.H{"status": "ok"})
}

// writeError 将业务错误映射为 HTTP 状态码。
//
// 未分类的错误记录全量细节，只向调用方返回不透明的提示。
func (s *Server) writeError(c *gin.Context, err error, opaque string) {
	var (
		validationErr *hub.ValidationError
		permissionErr *hub.PermissionError
		notFoundErr   *hub.NotFoundError
		duplicateErr  *hub.DuplicateError
	)
	switch {
	case errors.As(err, &validationErr):
		c.JSON(http.StatusBadRequest, gin.H{"error": validationErr.Msg})
	case errors.As(err, &permissionErr):
		c.JSON(http.StatusForbidden, gin.H{"error": permissionErr.Msg})
	case errors.As(err, &notFoundErr):
		c.JSON(http.StatusNotFound, gin.H{"error": notFoundErr.Error()})
	case errors.As(err, &duplicateErr):
		c.JSON(http.StatusConflict, gin.H{"error": duplicateErr.Msg})
	default:
		s.logger.Error(opaque, slog.String("error", err.Error()), slog.String("path", c.FullPath()))
		c.JSON(http.StatusInternalServerError, gin.H{"error": opaque})
	}
}

// parseQueryInt 解析查询参数中的整数值。
func parseQueryInt(c *gin.Context, key string, def int) int {
	val := c.Query(key)
	if val == "" {
		return def
	}
	iv, err := strconv.Atoi(val)
	if err != nil {
		return def
	}
	return iv
}

func getUserEmail(c *gin.Context) string {
	return c.GetString("email")
}

// resolveSeller 解析可选的 seller 查询参数。
//
// 缺省取会话用户自己；指定其他卖家时要求管理员身份，否则返回 403。
// 返回 false 表示响应已写出。
func (s *Server) resolveSeller(c *gin.Context) (string, bool) {
	caller := getCaller(c)
	seller := c.Query("seller")
	if seller == "" || seller == caller.Email {
		return caller.Email, true
	}
	if !caller.IsAdmin() {
		c.JSON(http.StatusForbidden, gin.H{"error": "not permitted to act for " + seller})
		return "", false
	}
	return seller, true
}

// getCaller 从上下文还原经过认证的调用方身份。
func getCaller(c *gin.Context) hub.Caller {
	caller := hub.Caller{Role: "seller"}
	if v, ok := c.Get("userID"); ok {
		if id, ok := v.(uint); ok {
			caller.UserID = id
		}
	}
	caller.Email = c.GetString("email")
	if role := c.GetString("role"); role != "" {
		caller.Role = role
	}
	return caller
}
