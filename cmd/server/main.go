package main

import (
	"os"
	"strings"
	"time"

	"graminstore-backend/internal/cache"
	"graminstore-backend/internal/database"
	"graminstore-backend/internal/handlers"
	"graminstore-backend/internal/ledger"
	"graminstore-backend/internal/logger"
	"graminstore-backend/internal/middleware"
	"graminstore-backend/internal/notify"
	"graminstore-backend/internal/orders"
	"graminstore-backend/internal/ws"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/joho/godotenv"
)

func main() {
	// Load .env file (ignore error if it doesn't exist)
	godotenv.Load()

	log := logger.Get()

	database.Connect()

	registry := ledger.NewRegistry(database.DB)
	if _, err := registry.LoadExisting(); err != nil {
		log.WithError(err).Fatal("failed to discover ledger tables")
	}
	store := ledger.NewStore(database.DB, registry)

	hub := ws.NewHub()
	push := notify.NewPushService()
	statsCache := cache.New()
	orderService := orders.NewService(database.DB, store, hub, push)

	router := gin.Default()
	router.Use(cors.New(corsConfig()))

	router.GET("/health", func(c *gin.Context) {
		c.JSON(200, gin.H{"status": "ok", "service": "graminstore-backend"})
	})

	api := router.Group("/api/v1")

	merchantOnly := []gin.HandlerFunc{middleware.AuthMiddleware(), middleware.RequireRole("merchant")}
	userOnly := []gin.HandlerFunc{middleware.AuthMiddleware(), middleware.RequireRole("user")}

	authRoutes := api.Group("/auth")
	{
		authRoutes.POST("/register/merchant", handlers.RegisterMerchant(registry))
		authRoutes.POST("/register/user", handlers.RegisterUser)
		authRoutes.POST("/login/merchant", handlers.LoginMerchant)
		authRoutes.POST("/login/user", handlers.LoginUser)
		authRoutes.GET("/profile/merchant", append(merchantOnly, handlers.MerchantProfile)...)
		authRoutes.GET("/profile/user", append(userOnly, handlers.UserProfile)...)
	}

	transactions := api.Group("/transactions")
	{
		transactions.POST("/create", append(merchantOnly, handlers.CreateTransaction(store))...)
		transactions.GET("/history", append(merchantOnly, handlers.TransactionHistory(store))...)
		transactions.GET("/analytics", append(merchantOnly, handlers.TransactionAnalytics(store))...)
		transactions.GET("/guest-users", append(merchantOnly, handlers.GuestUsers(store))...)
		transactions.GET("/user-transactions/:merchant_id", append(userOnly, handlers.UserTransactionsWithMerchant(store))...)
	}

	inventory := api.Group("/inventory")
	inventory.Use(merchantOnly...)
	{
		inventory.POST("/items", handlers.CreateInventoryItem)
		inventory.GET("/items", handlers.ListInventory)
		inventory.GET("/items/:id", handlers.GetInventoryItem)
		inventory.PUT("/items/:id", handlers.UpdateInventoryItem)
		inventory.DELETE("/items/:id", handlers.DeleteInventoryItem)
		inventory.POST("/items/:id/quantity", handlers.UpdateQuantity)
		inventory.GET("/items/:id/transactions", handlers.ItemTransactions)
		inventory.GET("/stats", handlers.InventoryStats)
		inventory.GET("/categories", handlers.InventoryCategories)
		inventory.GET("/purchase-list", handlers.GetPurchaseList)
		inventory.POST("/purchase-list", handlers.AddToPurchaseList)
		inventory.GET("/purchase-list/download", handlers.DownloadPurchaseList)
		inventory.POST("/purchase-list/:id/mark-purchased", handlers.MarkPurchased)
	}

	marketplace := api.Group("/marketplace")
	{
		marketplace.GET("/merchants", handlers.MarketplaceMerchants)
		marketplace.GET("/search", handlers.MarketplaceSearch)
		marketplace.GET("/categories", handlers.MarketplaceCategories)
		marketplace.GET("/merchant/:id/items", handlers.MerchantStorefront)
		marketplace.GET("/merchant/:id/categories", handlers.MerchantItemCategories)
		marketplace.GET("/stats", handlers.MarketplaceStats(statsCache))
	}

	ordersGroup := api.Group("/orders")
	{
		// Checkout is public: guests order without an account, a bearer
		// token ties the order to its user when present.
		ordersGroup.POST("/checkout", middleware.OptionalAuth(), handlers.ProcessCheckout(orderService))
		ordersGroup.GET("/merchant/:id", append(merchantOnly, handlers.GetMerchantOrders(orderService))...)
		ordersGroup.GET("/user/:id", append(userOnly, handlers.GetUserOrders(orderService))...)
		ordersGroup.PUT("/:order_id/status", append(merchantOnly, handlers.UpdateOrderStatus(orderService))...)
		ordersGroup.POST("/push/subscribe", append(merchantOnly, handlers.SubscribePush(push))...)
		ordersGroup.DELETE("/push/unsubscribe", append(merchantOnly, handlers.UnsubscribePush(push))...)
	}

	dashboard := api.Group("/dashboard")
	{
		dashboard.GET("/merchant", append(merchantOnly, handlers.MerchantDashboard(store))...)
		dashboard.GET("/merchant/top-customers", append(merchantOnly, handlers.TopCustomers(store))...)
		dashboard.GET("/user", append(userOnly, handlers.UserDashboard(store))...)
		dashboard.GET("/user/expenses", append(userOnly, handlers.UserExpenses(store))...)
	}

	api.GET("/ws/orders/:token", handlers.OrderSocket(hub, store))

	port := os.Getenv("PORT")
	if port == "" {
		port = "8080"
	}

	log.WithField("port", port).Info("starting graminstore backend")
	if err := router.Run(":" + port); err != nil {
		log.WithError(err).Fatal("server exited")
	}
}

func corsConfig() cors.Config {
	config := cors.DefaultConfig()

	origins := os.Getenv("ALLOWED_ORIGINS")
	if origins == "" {
		config.AllowAllOrigins = true
	} else {
		config.AllowOrigins = strings.Split(origins, ",")
	}

	config.AllowMethods = []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"}
	config.AllowHeaders = []string{"Origin", "Content-Type", "Authorization"}
	config.MaxAge = 12 * time.Hour
	return config
}
