package main

import (
	"context"
	"log"
	"net/http"
	"strings"

	"github.com/joho/godotenv"
	"github.com/labstack/echo/v4"
	echomw "github.com/labstack/echo/v4/middleware"

	"edportal/internal/config"
	"edportal/internal/handlers"
	appmw "edportal/internal/middleware"
	"edportal/internal/payments"
	"edportal/internal/services"
	"edportal/internal/store"
)

func main() {
	// Load environment variables
	if err := godotenv.Load(); err != nil {
		log.Println("No .env file found, using system environment")
	}

	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}

	ctx := context.Background()

	// Initialize Firebase (auth + document store)
	fb, err := services.InitFirebase(ctx, cfg.FirebaseCredentials)
	if err != nil {
		log.Fatalf("Firebase initialization failed: %v", err)
	}
	defer fb.Close()
	st := store.New(fb.Firestore)

	// Initialize Redis cache (optional)
	var cache *services.RedisCache
	if cfg.RedisURL != "" {
		cache, err = services.NewRedisCache(cfg.RedisURL)
		if err != nil {
			log.Printf("Warning: Redis initialization failed, caching disabled: %v", err)
			cache = nil
		} else {
			defer cache.Close()
		}
	} else {
		log.Println("REDIS_URL not set, caching disabled")
	}

	// Resolve Stripe credentials and the collection qualifier once at startup
	keys := cfg.StripeKeys()
	secretKey := keys.ResolveSecretKey()
	qualifier := payments.ResolveQualifier(cfg.SchemaQualifier, nil, secretKey)
	if qualifier == payments.ProdQualifier {
		log.Println("Running against production collections")
	}

	var checkout *payments.CheckoutService
	var processor payments.ProcessorClient
	if secretKey != "" {
		processor = payments.NewProcessorClient(secretKey)
		checkout = payments.NewCheckoutService(keys, qualifier, processor, st, st, st, cfg.Domain, cfg.AppBasename, cfg.Project)
	} else {
		log.Println("Warning: no Stripe secret key configured, checkout routes disabled")
	}
	webhook := payments.NewWebhookProcessor(keys, st)
	subscriptions := payments.NewSubscriptionService(processor, st, st, qualifier)

	// Create Echo instance
	e := echo.New()
	e.HideBanner = true
	e.HTTPErrorHandler = appmw.JSONErrorHandler

	// Middleware
	e.Use(echomw.Logger())
	e.Use(echomw.Recover())
	if origins := splitOrigins(cfg.AllowOrigin); len(origins) > 0 {
		e.Use(echomw.CORSWithConfig(echomw.CORSConfig{
			AllowOrigins:     origins,
			AllowHeaders:     []string{echo.HeaderOrigin, echo.HeaderContentType, echo.HeaderAuthorization},
			AllowCredentials: true,
		}))
	} else {
		e.Use(echomw.CORS())
	}

	// Initialize handlers
	usersCollection := qualifier + payments.TableUsers
	paymentHandler := handlers.NewPaymentHandler(checkout, webhook)
	subscriptionHandler := handlers.NewSubscriptionHandler(subscriptions)
	moduleHandler := handlers.NewModuleHandler(st, cache, qualifier)
	lessonHandler := handlers.NewLessonHandler(st, qualifier)
	unitHandler := handlers.NewUnitHandler(st, qualifier)
	userHandler := handlers.NewUserHandler(st, qualifier)

	requireAuth := appmw.RequireAuth(fb.Auth)
	requireTeacher := appmw.RequireTeacher(st, usersCollection)

	e.GET("/", func(c echo.Context) error {
		return c.String(http.StatusOK, "Curriculum portal API is running")
	})

	// Payment routes are mounted both at the root (the processor's webhook
	// destination and the legacy client paths) and under /api/payment.
	registerPaymentRoutes(e.Group(""), paymentHandler, requireAuth)
	registerPaymentRoutes(e.Group("/api/payment"), paymentHandler, requireAuth)
	e.POST("/confirm-payment", subscriptionHandler.ConfirmPayment, requireAuth)
	e.POST("/api/payment/confirm-payment", subscriptionHandler.ConfirmPayment, requireAuth)

	// Subscription lifecycle
	subscription := e.Group("/api/subscription", requireAuth)
	subscription.GET("/status", subscriptionHandler.Status)
	subscription.POST("/cancel", subscriptionHandler.Cancel)
	subscription.POST("/reactivate", subscriptionHandler.Reactivate)

	// Content routes
	api := e.Group("/api")
	api.GET("/modules", moduleHandler.ListModules)
	api.GET("/module/:id", moduleHandler.GetModule)
	api.POST("/module", moduleHandler.CreateModule, requireAuth, requireTeacher)
	api.POST("/module/:id", moduleHandler.EditModule, requireAuth, requireTeacher)
	api.DELETE("/module/:id", moduleHandler.DeleteModule, requireAuth, requireTeacher)

	api.GET("/lessons", lessonHandler.ListLessons)
	api.POST("/lesson", lessonHandler.CreateLesson, requireAuth, requireTeacher)

	api.GET("/units", unitHandler.ListUnits)
	api.GET("/unit/:id", unitHandler.GetUnit)
	api.POST("/unit", unitHandler.CreateUnit, requireAuth)
	api.DELETE("/unit/:id", unitHandler.DeleteUnit, requireAuth, requireTeacher)

	// User routes
	user := e.Group("/api/user", requireAuth)
	user.GET("/me", userHandler.Me)
	user.POST("/register", userHandler.Register)

	log.Printf("Server starting on port %s", cfg.Port)
	e.Logger.Fatal(e.Start(":" + cfg.Port))
}

func registerPaymentRoutes(g *echo.Group, h *handlers.PaymentHandler, requireAuth echo.MiddlewareFunc) {
	g.GET("/test", h.Test)
	g.POST("/webhook", h.Webhook)
	g.POST("/create-module-checkout-session", h.CreateModuleCheckoutSession, requireAuth)
	g.POST("/create-embedded-checkout-session", h.CreateEmbeddedCheckoutSession, requireAuth)
	g.POST("/create-payment-intent", h.CreatePaymentIntent, requireAuth)
	g.GET("/history", h.History, requireAuth)
}

func splitOrigins(raw string) []string {
	var origins []string
	for _, o := range strings.Split(raw, ",") {
		if o = strings.TrimSpace(o); o != "" {
			origins = append(origins, o)
		}
	}
	return origins
}
