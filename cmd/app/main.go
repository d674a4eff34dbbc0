package main

import (
	"bufio"
	"context"
	"log"
	"os"
	"strconv"
	"time"

	"procurement-docs/internal/adapters/cli"
	"procurement-docs/internal/adapters/repl"
	"procurement-docs/internal/adapters/restclient"
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

	repo, closeRepo := openRepository(ctx)
	defer closeRepo()

	numbers := render.NewNumberFormatter(language.Und)
	if tag := os.Getenv("NUMBER_LOCALE"); tag != "" {
		t, err := language.Parse(tag)
		if err != nil {
			log.Fatalf("NUMBER_LOCALE: %v", err)
		}
		numbers = render.NewNumberFormatter(t)
	}
	pdfOpts := render.PDFOptions{
		CompanyName: os.Getenv("COMPANY_NAME"),
		QRBaseURL:   os.Getenv("PDF_QR_BASE_URL"),
		Numbers:     numbers,
	}

	if len(os.Args) > 1 {
		svc := app.NewAppService(repo, pdfOpts)
		if err := cli.Run(ctx, svc, os.Args[1:], os.Stdin, os.Stdout, numbers); err != nil {
			log.Fatal(err)
		}
		return
	}

	delay := 400 * time.Millisecond
	if s := os.Getenv("DUPLICATE_CHECK_DELAY_MS"); s != "" {
		ms, err := strconv.Atoi(s)
		if err != nil || ms < 0 {
			log.Fatalf("DUPLICATE_CHECK_DELAY_MS must be a non-negative integer, got %q", s)
		}
		delay = time.Duration(ms) * time.Millisecond
	}

	repl.Run(ctx, repo, bufio.NewReader(os.Stdin), os.Stdout, repl.Options{
		DuplicateDelay:  delay,
		ClampQuantities: os.Getenv("CLAMP_QUANTITIES") != "false",
		Numbers:         numbers,
		PDF:             pdfOpts,
	})
}

// openRepository picks the backend: a remote editor server, PostgreSQL, or an
// in-memory scratch store, in that order of preference.
func openRepository(ctx context.Context) (core.DocumentRepository, func()) {
	if url := os.Getenv("EDITOR_API_URL"); url != "" {
		log.Printf("using editor server at %s", url)
		return restclient.New(url, nil), func() {}
	}
	if os.Getenv("DATABASE_URL") != "" {
		pool, err := db.NewPool(ctx)
		if err != nil {
			log.Fatalf("Unable to connect to database: %v", err)
		}
		return core.NewDocumentRepository(pool), pool.Close
	}
	log.Println("Warning: neither EDITOR_API_URL nor DATABASE_URL is set; documents are kept in memory only")
	return core.NewMemoryRepository(), func() {}
}
