package main

import (
	"context"
	"log"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/redis/go-redis/v9"
	swaggerFiles "github.com/swaggo/files"
	ginSwagger "github.com/swaggo/gin-swagger"

	"campusmarket/config"
	"campusmarket/internal/db"
	"campusmarket/internal/handlers"
	"campusmarket/internal/notifications"
	"campusmarket/internal/services"
	"campusmarket/internal/services/storage"
)

// @title Campus Market API
// @version 1.0
// @description API кампусной барахолки: объявления, ордера, эскроу, чаты.
// @BasePath /
// @securityDefinitions.apikey BearerAuth
// @in header
// @name Authorization
func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("config: %v", err)
	}

	database, err := db.NewDB(cfg.DSN)
	if err != nil {
		log.Fatalf("db: %v", err)
	}
	notifications.SetDB(database)

	var chatCache *services.ChatCache
	if cfg.RedisAddr != "" {
		rdb := redis.NewClient(&redis.Options{Addr: cfg.RedisAddr})
		chatCache = services.NewChatCache(rdb, cfg.ChatCacheSize)
	}

	store, err := storage.New(cfg.MinioEndpoint, cfg.MinioAccessKey, cfg.MinioSecretKey, cfg.MinioBucket, cfg.MinioUseSSL)
	if err != nil {
		log.Fatalf("storage: %v", err)
	}

	sweeper := handlers.NewEscrowSweeper(database, cfg.EscrowSweepInterval)
	sweeper.Start()

	r := gin.Default()
	r.Use(cors.Default())

	r.GET("/health", handlers.Health(database))
	r.GET("/swagger/*any", ginSwagger.WrapHandler(swaggerFiles.Handler))

	r.POST("/auth/register", handlers.Register(database, cfg.TokenTypeTTL))
	r.POST("/auth/login", handlers.Login(database, cfg.TokenTypeTTL))
	r.POST("/auth/refresh", handlers.Refresh(database, cfg.TokenTypeTTL))

	r.GET("/items", handlers.ListItems(database))
	r.GET("/items/:id", handlers.GetItem(database))

	auth := r.Group("/", handlers.AuthMiddleware(database))
	{
		auth.POST("auth/logout", handlers.Logout(database))
		auth.GET("auth/profile", handlers.Profile(database))
		auth.POST("auth/password", handlers.ChangePassword(database))
		auth.POST("auth/2fa/enable", handlers.Enable2FA(database))

		auth.POST("client/items", handlers.CreateItem(database))
		auth.PUT("client/items/:id", handlers.UpdateItem(database))
		auth.POST("client/items/:id/images", handlers.UploadItemImage(database, store))

		auth.POST("client/orders", handlers.CreateOrder(database))
		auth.GET("client/orders", handlers.ListClientOrders(database))
		auth.GET("orders/:id", handlers.GetOrder(database))
		auth.POST("orders/:id/confirm", handlers.ConfirmOrder(database))
		auth.POST("orders/:id/reject", handlers.RejectOrder(database))
		auth.POST("orders/:id/deliver", handlers.DeliverOrder(database))
		auth.POST("orders/:id/receive", handlers.ConfirmReceive(database))
		auth.POST("orders/:id/cancel", handlers.CancelOrder(database))
		auth.POST("orders/:id/comment", handlers.CommentOrder(database))

		auth.POST("client/escrows", handlers.CreateEscrow(database, cfg.EscrowExpireHours))
		auth.GET("client/escrows/:id", handlers.GetEscrow(database))
		auth.GET("orders/:id/escrow", handlers.GetOrderEscrow(database))
		auth.POST("client/escrows/:id/pay", handlers.PayEscrow(database))
		auth.POST("client/escrows/:id/release", handlers.ReleaseEscrow(database))
		auth.POST("client/escrows/:id/refund", handlers.RefundEscrow(database))

		auth.GET("orders/:id/messages", handlers.ListOrderMessages(database))
		auth.POST("orders/:id/messages", handlers.SendOrderMessage(database, chatCache, store))
		auth.PATCH("orders/:id/messages/:msgId/read", handlers.ReadOrderMessage(database))
		auth.GET("ws/orders/:id/chat", handlers.OrderChatWS(database, chatCache))

		auth.GET("notifications", handlers.ListNotifications(database))
		auth.PATCH("notifications/:id/read", handlers.ReadNotification(database))
		auth.POST("notifications/read-all", handlers.ReadAllNotifications(database))
		auth.GET("ws/notifications", handlers.NotificationsWS(database))
		auth.GET("ws/orders/:id/status", handlers.OrderStatusWS(database))
	}

	srv := &http.Server{Addr: ":" + cfg.Port, Handler: r}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	go func() {
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatalf("listen: %v", err)
		}
	}()
	log.Printf("listening on :%s", cfg.Port)

	<-ctx.Done()
	log.Println("shutting down")
	sweeper.Stop()
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Printf("shutdown: %v", err)
	}
}
