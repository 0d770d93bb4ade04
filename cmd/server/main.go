package main

import (
	"context"
	"errors"
	"flag"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-redis/redis/v8"

	"github.com/UkralStul/social-articles-service/internal/api"
	"github.com/UkralStul/social-articles-service/internal/auth"
	"github.com/UkralStul/social-articles-service/internal/config"
	"github.com/UkralStul/social-articles-service/internal/domain"
	"github.com/UkralStul/social-articles-service/internal/feed"
	"github.com/UkralStul/social-articles-service/internal/service"
	"github.com/UkralStul/social-articles-service/internal/storage"
	"github.com/UkralStul/social-articles-service/internal/storage/gormstore"
	"github.com/UkralStul/social-articles-service/internal/storage/inmemory"
)

// Размер in-process списка отозванных токенов
const blacklistSize = 100_000

func main() {
	storageType := flag.String("storage", "", "Storage type (in-memory, postgres or sqlite), overrides STORAGE")
	flag.Parse()

	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("failed to load config: %v", err)
	}
	if *storageType != "" {
		cfg.Storage = *storageType
		if err := cfg.Validate(); err != nil {
			log.Fatalf("invalid config: %v", err)
		}
	}

	ctx := context.Background()

	log.Printf("Starting server with %s storage", cfg.Storage)
	var store storage.Storage
	switch cfg.Storage {
	case config.StoragePostgres:
		db, err := gormstore.OpenPostgres(cfg.DatabaseURL, cfg.DBDebug)
		if err != nil {
			log.Fatalf("failed to connect to postgres: %v", err)
		}
		defer db.Close()
		store = db
	case config.StorageSQLite:
		db, err := gormstore.OpenSQLite(cfg.SQLitePath, cfg.DBDebug)
		if err != nil {
			log.Fatalf("failed to open sqlite %s: %v", cfg.SQLitePath, err)
		}
		defer db.Close()
		store = db
	default:
		store = inmemory.New()
	}

	var revoked auth.Blacklist
	if cfg.RedisAddr != "" {
		rb, err := auth.NewRedisBlacklist(ctx, &redis.Options{
			Addr:     cfg.RedisAddr,
			Password: cfg.RedisPassword,
			DB:       cfg.RedisDB,
		})
		if err != nil {
			log.Fatalf("failed to connect to redis: %v", err)
		}
		defer rb.Close()
		revoked = rb
		log.Printf("Token blacklist: redis at %s", cfg.RedisAddr)
	} else {
		revoked = auth.NewMemoryBlacklist(blacklistSize, cfg.RefreshTTL())
		log.Printf("Token blacklist: in-process")
	}

	gate, err := auth.NewGate(store, auth.Options{
		SecretKey:  cfg.SecretKey,
		AccessTTL:  cfg.AccessTTL(),
		RefreshTTL: cfg.RefreshTTL(),
	}, revoked)
	if err != nil {
		log.Fatalf("failed to create credential gate: %v", err)
	}

	observer := feed.NewObserver()
	svc := service.New(store, gate, service.WithPublisher(observer))

	if cfg.Storage == config.StorageInMemory && cfg.SeedData {
		// Заполним данными для ручной проверки
		fillWithMockData(ctx, svc)
	}

	router := api.NewRouter(api.Deps{
		Service:        svc,
		Tokens:         gate,
		Feed:           observer,
		Users:          store,
		AllowedOrigins: cfg.Origins(),
		AccessLog:      cfg.AccessLog,
	})

	srv := &http.Server{
		Addr:              ":" + cfg.ServerPort,
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		log.Printf("listening on http://localhost:%s/", cfg.ServerPort)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatalf("server failed to start: %v", err)
		}
	}()

	stop := make(chan os.Signal, 1)
	signal.Notify(stop, syscall.SIGINT, syscall.SIGTERM)
	<-stop

	log.Printf("shutting down")
	shutdownCtx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Printf("graceful shutdown failed: %v", err)
	}
}

func fillWithMockData(ctx context.Context, svc *service.Service) {
	register := func(name, nickname string) *domain.Principal {
		u, err := svc.Register(ctx, service.RegisterInput{
			Username: name,
			Email:    name + "@example.com",
			Password: name + "-password",
			Fullname: "Demo " + name,
			Nickname: nickname,
		})
		if err != nil {
			log.Fatalf("fillWithMockData: failed to register %s: %v", name, err)
		}
		return &domain.Principal{UserID: u.ID, Nickname: u.Nickname}
	}

	// 1. Пользователи: у alice и bob взаимная подписка, carol подписана односторонне
	alice := register("alice", "alice")
	bob := register("bob", "bobby")
	carol := register("carol", "carol")

	follow := func(actor *domain.Principal, target uint) {
		if _, err := svc.ToggleFollow(ctx, actor, target); err != nil {
			log.Fatalf("fillWithMockData: failed to toggle follow: %v", err)
		}
	}
	follow(alice, bob.UserID)
	follow(bob, alice.UserID)
	follow(carol, alice.UserID)

	// 2. Статьи
	movie, err := svc.CreateArticle(ctx, alice, service.ArticleInput{
		Title:   "Лучшие фильмы года",
		Content: "Короткий обзор фильмов, которые стоит посмотреть.",
		Topic:   string(domain.TopicMovie),
	})
	if err != nil {
		log.Fatalf("fillWithMockData: failed to create article: %v", err)
	}
	book, err := svc.CreateArticle(ctx, bob, service.ArticleInput{
		Title:   "Что почитать зимой",
		Content: "Список книг для длинных вечеров.",
		Topic:   string(domain.TopicBook),
	})
	if err != nil {
		log.Fatalf("fillWithMockData: failed to create article: %v", err)
	}

	// 3. Комментарии: от автора и анонимный с паролем
	if _, err := svc.CreateComment(ctx, bob, alice.UserID, movie.ID, service.CommentInput{
		Content: "Отличная подборка!",
	}); err != nil {
		log.Fatalf("fillWithMockData: failed to create comment: %v", err)
	}
	if _, err := svc.CreateComment(ctx, nil, alice.UserID, movie.ID, service.CommentInput{
		Content:  "А где документальное кино?",
		Password: "anonymous",
	}); err != nil {
		log.Fatalf("fillWithMockData: failed to create anonymous comment: %v", err)
	}

	// 4. Лайки
	if _, err := svc.ToggleLike(ctx, bob, alice.UserID, movie.ID); err != nil {
		log.Fatalf("fillWithMockData: failed to like: %v", err)
	}
	if _, err := svc.ToggleLike(ctx, carol, bob.UserID, book.ID); err != nil {
		log.Fatalf("fillWithMockData: failed to like: %v", err)
	}

	log.Printf("Mock data filled successfully. Users: alice/alice-password, bob/bob-password, carol/carol-password; articles %d and %d", movie.ID, book.ID)
}
