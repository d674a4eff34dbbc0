package main

import (
	"context"
	"log"
	"net/http"
	"os"
	"time"

	webAdapter "procurement-docs/internal/adapters/web"
	"procurement-docs/internal/app"
	"procurement-docs/internal/core"
	"procurement-docs/internal/db"
	"procurement-docs/internal/render"

	"github.com/joho/godotenv"
	"golang.org/x/text/language"
)

func main() {
	_ = godotenv.Load()

	ctx := context.Background()
	pool, err := db.NewPool(ctx)
	if err != nil {
		log.Fatalf("database: %v", err)
	}
	defer pool.Close()

	repo := core.NewDocumentRepository(pool)

	numbers := render.NewNumberFormatter(language.Und)
	if tag := os.Getenv("NUMBER_LOCALE"); tag != "" {
		t, err := language.Parse(tag)
		if err != nil {
			log.Fatalf("NUMBER_LOCALE: %v", err)
		}
		numbers = render.NewNumberFormatter(t)
	}
	svc := app.NewAppService(repo, render.PDFOptions{
		CompanyName: os.Getenv("COMPANY_NAME"),
		QRBaseURL:   os.Getenv("PDF_QR_BASE_URL"),
		Numbers:     numbers,
	})

	port := os.Getenv("SERVER_PORT")
	if port == "" {
		port = "8080"
	}

	allowedOrigins := os.Getenv("ALLOWED_ORIGINS")
	handler := webAdapter.NewHandler(svc, allowedOrigins)

	srv := &http.Server{
		Addr:              ":" + port,
		Handler:           handler,
		ReadHeaderTimeout: 10 * time.Second,
	}
	log.Printf("server starting on :%s", port)
	if err := srv.ListenAndServe(); err != nil {
		log.Fatalf("server: %v", err)
	}
}
