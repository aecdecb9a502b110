package main

import (
	"context"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
	"github.com/joho/godotenv"
	"github.com/redis/go-redis/v9"

	"github.com/openshelf/bookapp/comments"
	"github.com/openshelf/bookapp/config"
	"github.com/openshelf/bookapp/counter"
	"github.com/openshelf/bookapp/delivery"
	"github.com/openshelf/bookapp/favorites"
	"github.com/openshelf/bookapp/handlers"
	"github.com/openshelf/bookapp/middleware"
	"github.com/openshelf/bookapp/service"
	"github.com/openshelf/bookapp/store"
)

func main() {
	_ = godotenv.Load()

	cfg, err := config.Load()
	if err != nil {
		log.Fatal("config:", err)
	}

	ctx := context.Background()
	db, err := store.NewMongoDB(ctx, cfg.MongoURI, cfg.DBName)
	if err != nil {
		log.Fatal("mongodb:", err)
	}
	defer func() {
		if err := db.Disconnect(context.Background()); err != nil {
			log.Println("mongodb disconnect:", err)
		}
	}()

	var blob store.Blob
	if cfg.S3Bucket != "" {
		s3Blob, err := service.NewS3Blob(ctx, cfg.S3Bucket, cfg.S3Region, cfg.S3AccessKeyID, cfg.S3SecretKey)
		if err != nil {
			log.Fatal("s3:", err)
		}
		blob = s3Blob
	} else {
		log.Println("warning: AWS_S3_BUCKET not set; uploads and downloads will fail")
	}

	var cache *redis.Client
	if cfg.RedisAddr != "" {
		cache = redis.NewClient(&redis.Options{Addr: cfg.RedisAddr})
		if err := cache.Ping(ctx).Err(); err != nil {
			log.Println("warning: redis unreachable, category cache disabled:", err)
			cache = nil
		}
	}

	counters := counter.New(db)
	pipeline := delivery.NewPipeline(blob, counters, cfg.MaxPDFBytes, cfg.DownloadsDir)

	authHandler := &handlers.AuthHandler{DB: db, JWTSecret: cfg.JWTSecret}
	uploader := service.NewUploader(db, blob)
	booksHandler := &handlers.BooksHandler{Remote: db, Counters: counters, Pipeline: pipeline, Uploader: uploader}
	favoritesHandler := &handlers.FavoritesHandler{Favorites: favorites.NewManager(db)}
	commentsHandler := &handlers.CommentsHandler{Comments: comments.NewService(db)}
	categoriesHandler := &handlers.CategoriesHandler{Categories: service.NewCategories(db, cache)}
	uploadHandler := &handlers.UploadHandler{
		Uploader: uploader,
		MaxBytes: cfg.MaxPDFBytes,
	}

	r := chi.NewRouter()
	r.Use(middleware.AllowAll())
	r.Use(chimw.Logger)
	r.Use(chimw.Recoverer)
	r.Use(chimw.RealIP)

	r.Get("/health", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusOK)
		w.Write([]byte(`{"status":"ok"}`))
	})

	r.Route("/api", func(r chi.Router) {
		r.Post("/auth/register", authHandler.Register)
		r.Post("/auth/login", authHandler.Login)
		// Protected routes
		r.Group(func(r chi.Router) {
			r.Use(middleware.Auth(cfg.JWTSecret))
			r.Get("/profile", authHandler.Profile)
			r.Put("/profile", authHandler.UpdateProfile)
			r.Post("/upload", uploadHandler.Upload)
			r.Get("/categories", categoriesHandler.List)
			r.Post("/categories", categoriesHandler.Create)
			r.Get("/books", booksHandler.List)
			r.Get("/books/{id}", booksHandler.Get)
			r.Delete("/books/{id}", booksHandler.Delete)
			r.Get("/books/{id}/size", booksHandler.Size)
			r.Get("/books/{id}/preview", booksHandler.Preview)
			r.Get("/books/{id}/download", booksHandler.Download)
			r.Get("/books/{id}/favorite", favoritesHandler.Check)
			r.Put("/books/{id}/favorite", favoritesHandler.Add)
			r.Delete("/books/{id}/favorite", favoritesHandler.Remove)
			r.Get("/books/{id}/comments", commentsHandler.List)
			r.Post("/books/{id}/comments", commentsHandler.Add)
			r.Delete("/books/{id}/comments/{commentId}", commentsHandler.Delete)
			r.Get("/favorites", favoritesHandler.List)
		})
	})

	server := &http.Server{Addr: ":" + cfg.Port, Handler: r}
	go func() {
		log.Println("server listening on :" + cfg.Port)
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatal(err)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		log.Println("shutdown:", err)
	}
}
