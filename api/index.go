package handler

import (
	"fmt"
	"net/http"
	"sync"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"idea-incubator-backend/pkg/config"
	"idea-incubator-backend/pkg/database"
	"idea-incubator-backend/pkg/handlers"
	"idea-incubator-backend/pkg/logging"
	"idea-incubator-backend/pkg/metrics"
	customMiddleware "idea-incubator-backend/pkg/middleware"
	"idea-incubator-backend/pkg/realtime"
	"idea-incubator-backend/pkg/services"
	"idea-incubator-backend/pkg/utils"
)

// Dependencies 路由所需的运行时依赖
type Dependencies struct {
	DB          database.DatabaseInterface
	Services    *services.Services
	RateLimiter *customMiddleware.RateLimiter
	// Realtime 为 nil 时不挂载 /ws（无服务器环境没有长连接）
	Realtime http.Handler
}

var (
	routerMu     sync.Mutex
	cachedDB     database.DatabaseInterface
	cachedRouter http.Handler
	limiter      *customMiddleware.RateLimiter
)

// Handler 是Vercel函数的入口点
// 这个函数实现了"单体路由模式"，将所有API端点集中在一个Chi路由器中管理
func Handler(w http.ResponseWriter, r *http.Request) {
	cfg, err := config.GetCached()
	if err != nil {
		utils.WriteInternalServerErrorResponse(w, "Configuration error: "+err.Error())
		return
	}
	// 连接池在多次调用之间复用连接，健康检查失败或配置变化时重建
	db, err := database.GetDatabase(r.Context(), databaseConfig(cfg))
	if err != nil {
		utils.WriteInternalServerErrorResponse(w, "Database unavailable")
		return
	}

	routerFor(cfg, db).ServeHTTP(w, r)
}

// routerFor 复用已构建的路由器，只有数据库实例变化时才重建
func routerFor(cfg *config.Config, db database.DatabaseInterface) http.Handler {
	routerMu.Lock()
	defer routerMu.Unlock()

	if cachedRouter != nil && cachedDB == db {
		return cachedRouter
	}
	if limiter == nil {
		logging.Configure(logging.Options{Level: cfg.LogLevel, JSON: cfg.IsProduction()})
		limiter = customMiddleware.NewRateLimiter(cfg.RateLimitPerMinute)
	}
	cachedRouter = NewRouter(cfg, Dependencies{
		DB:          db,
		Services:    services.New(db, realtime.NopNotifier{}, services.OptionsFromConfig(cfg)),
		RateLimiter: limiter,
	})
	cachedDB = db
	return cachedRouter
}

func databaseConfig(cfg *config.Config) database.DatabaseConfig {
	return database.DatabaseConfig{
		PostgresDSN:   cfg.PostgresDSN,
		MongoURI:      cfg.MongoURI,
		MongoDatabase: cfg.MongoDatabase,
		UseLocalDB:    cfg.UseLocalDB,
		LocalDataDir:  cfg.LocalDataDir,
		Debug:         cfg.Debug,
	}
}

// DatabaseConfig 供 cmd/server 使用同一套配置映射
func DatabaseConfig(cfg *config.Config) database.DatabaseConfig {
	return databaseConfig(cfg)
}

// NewRouter 构建完整的路由树，Vercel 入口与长驻服务共用
func NewRouter(cfg *config.Config, deps Dependencies) *chi.Mux {
	router := chi.NewRouter()
	setupMiddleware(router, cfg)
	setupRoutes(router, cfg, deps)
	return router
}

// setupMiddleware 设置全局中间件
func setupMiddleware(router *chi.Mux, cfg *config.Config) {
	// 基础中间件
	router.Use(middleware.RequestID)
	router.Use(middleware.RealIP)
	// Normalize path and restore scheme/host before logging and routing
	router.Use(customMiddleware.Normalize())
	router.Use(customMiddleware.Logger())
	router.Use(customMiddleware.Recovery(cfg))
	router.Use(metrics.Instrument)

	// CORS中间件
	router.Use(customMiddleware.CORS(cfg))

	router.Use(middleware.Heartbeat("/ping"))
}

// setupRoutes 设置所有API路由
func setupRoutes(router *chi.Mux, cfg *config.Config, deps Dependencies) {
	svc := deps.Services

	// 创建处理器
	systemHandler := handlers.NewSystemHandler(cfg, deps.DB)
	authHandler := handlers.NewAuthHandler(cfg, svc.Auth)
	ideaHandler := handlers.NewIdeaHandler(cfg, svc.Ideas)
	collabHandler := handlers.NewCollaborationHandler(cfg, svc.Collaborations)
	startupHandler := handlers.NewStartupHandler(cfg, svc.Startups)
	notificationHandler := handlers.NewNotificationHandler(cfg, svc.Notifications)

	// 长连接与抓取端点不走超时和压缩
	router.Handle("/metrics", metrics.Handler())
	if deps.Realtime != nil {
		router.Handle("/ws", deps.Realtime)
	}

	router.Group(func(router chi.Router) {
		// 超时中间件（Vercel函数有时间限制）
		router.Use(middleware.Timeout(25 * time.Second)) // 留5秒缓冲
		router.Use(middleware.Compress(5))

		// 健康检查端点
		router.Get("/", systemHandler.HealthCheck)

		// 数据库连接池状态端点（调试用）
		if cfg.IsDevelopment() {
			router.Get("/debug/db-pool", systemHandler.PoolStats)
		}

		// Google OAuth（浏览器跳转，不在 /api 下）
		router.Route("/auth/google", func(r chi.Router) {
			r.Get("/", authHandler.GoogleLogin)
			r.Get("/callback", authHandler.GoogleCallback)
		})

		// API路由组
		router.Route("/api", func(r chi.Router) {
			r.Use(customMiddleware.MaxBodySize(1 << 20))
			r.Use(customMiddleware.ContentTypeJSON)
			// 先解析可选身份，限流才能按用户计数
			r.Use(customMiddleware.OptionalAuthMiddleware(svc.Auth))
			r.Use(deps.RateLimiter.Handler)

			// 公开路由（不需要认证）
			r.Route("/auth", func(r chi.Router) {
				r.Post("/signup", authHandler.Signup)
				r.Post("/login", authHandler.Login)
				r.Post("/logout", authHandler.Logout)
				r.Post("/refresh", authHandler.RefreshToken)

				r.Group(func(r chi.Router) {
					r.Use(customMiddleware.AuthMiddleware(svc.Auth))
					r.Get("/getCurrent", authHandler.GetCurrent)
					r.Get("/me", authHandler.GetCurrent)
				})
			})

			r.Route("/ideas", func(r chi.Router) {
				r.Get("/", ideaHandler.ListIdeas)
				r.Get("/{id}", ideaHandler.GetIdea)

				r.Group(func(r chi.Router) {
					r.Use(customMiddleware.AuthMiddleware(svc.Auth))
					r.Post("/create", ideaHandler.CreateIdea)
					r.Put("/{id}", ideaHandler.UpdateIdea)
					r.Patch("/{id}/status", ideaHandler.UpdateStatus)
					r.Delete("/{id}", ideaHandler.DeleteIdea)
					r.Post("/join/{id}", ideaHandler.Join)
					r.Post("/leave/{id}", ideaHandler.Leave)
					r.Post("/upvote/{id}", ideaHandler.Upvote)
					r.Post("/downvote/{id}", ideaHandler.Downvote)
				})
			})

			// 需要认证的路由
			r.Group(func(r chi.Router) {
				r.Use(customMiddleware.AuthMiddleware(svc.Auth))

				r.Route("/collaboration", func(r chi.Router) {
					r.Get("/idea/{ideaId}", collabHandler.ListForIdea)
					r.Get("/mine", collabHandler.ListMine)
					r.Post("/request", collabHandler.Request)
					r.Patch("/approve/{id}", collabHandler.Approve)
					r.Patch("/reject/{id}", collabHandler.Reject)
					r.Patch("/withdraw/{id}", collabHandler.Withdraw)
				})

				r.Route("/startup", func(r chi.Router) {
					r.Post("/create", startupHandler.Create)
					r.Get("/mine", startupHandler.ListMine)
					r.Get("/analytics", startupHandler.Analytics)
					r.Post("/invite", startupHandler.Invite)
					r.Post("/create-idea", startupHandler.CreateIdea)
					r.Post("/add-task", startupHandler.AddTask)
					r.Patch("/task/{taskId}", startupHandler.UpdateTask)
					r.Post("/update-funding", startupHandler.UpdateFunding)
					r.Get("/{id}", startupHandler.Get)
					r.Patch("/{id}/status", startupHandler.UpdateStatus)
					r.Get("/{id}/analytics", startupHandler.Analytics)
				})

				r.Route("/notifications", func(r chi.Router) {
					r.Get("/", notificationHandler.List)
					r.Post("/", notificationHandler.Create)
					r.Put("/{id}", notificationHandler.MarkRead)
					r.Delete("/{id}", notificationHandler.Delete)
				})
			})
		})
	})

	// 404处理
	router.NotFound(func(w http.ResponseWriter, r *http.Request) {
		utils.WriteNotFoundResponse(w, fmt.Sprintf("Route not found: %s %s", r.Method, r.URL.Path))
	})

	// 405处理
	router.MethodNotAllowed(func(w http.ResponseWriter, r *http.Request) {
		utils.WriteErrorResponseWithCode(w, http.StatusMethodNotAllowed, "METHOD_NOT_ALLOWED",
			fmt.Sprintf("Method %s not allowed for %s", r.Method, r.URL.Path), nil)
	})
}
