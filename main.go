package main

import (
	"context"
	"fmt"
	"log"
	"os"
	"strings"
	"time"

	"restaurant-order/bot"
	"restaurant-order/config"
	"restaurant-order/db"
	"restaurant-order/handlers"
	"restaurant-order/rabbitmq"
	"restaurant-order/services"

	"github.com/gin-gonic/gin"
)

func main() {
	// Check for migrate subcommand
	if len(os.Args) > 1 && os.Args[1] == "migrate" {
		runMigrate(config.Read())
		return
	}

	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintln(os.Stderr, "config:", err)
		os.Exit(1)
	}

	if cfg.DB.Enabled {
		if err := db.Init(context.Background(), cfg.DB); err != nil {
			fmt.Fprintln(os.Stderr, "db:", err)
			os.Exit(1)
		}
		defer db.Close()

		// AUTO_MIGRATE=1 (or "true") applies migrations on startup.
		if v := strings.TrimSpace(os.Getenv("AUTO_MIGRATE")); v == "1" || strings.EqualFold(v, "true") {
			if err := applyMigrations(context.Background(), false); err != nil {
				fmt.Fprintln(os.Stderr, "migrate:", err)
				os.Exit(1)
			}
		}
	}

	var menu services.MenuSource = services.DefaultStaticMenu()
	if cfg.Menu.SourceURL != "" {
		menu = services.NewCSVMenuSource(cfg.Menu.SourceURL, cfg.Menu.FetchTimeout)
	} else {
		log.Println("MENU_SOURCE_URL not set, serving the built-in menu")
	}

	deps := services.Deps{
		Menu:      menu,
		Submitter: services.NewWebhookClient(cfg.Order.WebhookURL, cfg.Order.ResponseMode, cfg.Order.SubmitTimeout),
		Policy:    services.CartPolicy{ClampToStock: cfg.Order.ClampToStock},
	}

	if cfg.Queue.URL != "" {
		pool, err := rabbitmq.NewChannelPool(cfg.Queue.URL, cfg.Queue.Queue, cfg.Queue.ChannelPoolSize)
		if err != nil {
			fmt.Fprintln(os.Stderr, "rabbitmq:", err)
			os.Exit(1)
		}
		defer pool.Close()
		deps.Notifier = rabbitmq.NewPublisher(pool, cfg.Queue.Queue)
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	storeOpts := services.StoreOptions{IdleTTL: cfg.Session.IdleTTL, MenuMaxAge: cfg.Session.MenuCacheTTL}

	if cfg.Telegram.Token != "" {
		chats := services.NewSessionStore[int64](deps, storeOpts)
		go chats.RunJanitor(ctx, time.Minute)
		b, err := bot.New(cfg.Telegram.Token, chats)
		if err != nil {
			fmt.Fprintln(os.Stderr, "bot:", err)
			os.Exit(1)
		}
		go b.Start()
		defer b.Stop()
		fmt.Println("Bot started.")
	}

	if cfg.HTTP.LogLevel == "debug" {
		gin.SetMode(gin.DebugMode)
	} else {
		gin.SetMode(gin.ReleaseMode)
	}
	sessions := services.NewSessionStore[string](deps, storeOpts)
	go sessions.RunJanitor(ctx, time.Minute)
	router := handlers.NewRouter(sessions, menu, cfg.HTTP.CORSOrigins)

	log.Printf("Starting HTTP API on port %s", cfg.HTTP.Port)
	if err := router.Run(":" + cfg.HTTP.Port); err != nil {
		log.Printf("http: %v", err)
	}
}

func runMigrate(cfg *config.Config) {
	if err := db.Init(context.Background(), cfg.DB); err != nil {
		fmt.Fprintln(os.Stderr, "db:", err)
		os.Exit(1)
	}
	defer db.Close()

	if err := applyMigrations(context.Background(), true); err != nil {
		fmt.Fprintln(os.Stderr, "migrate:", err)
		os.Exit(1)
	}
}
