// Command kairo-mock serves an in-memory KAIRO API for local development.
package main

import (
	"errors"
	"flag"
	"log"
	"net/http"
	"time"

	"go.uber.org/zap"

	"github.com/NorbeyRuales/KAIRO-CLIENT/internal/apitest"
)

func main() {
	var (
		addr     = flag.String("addr", ":8080", "Listen address")
		email    = flag.String("email", "demo@kairo.dev", "Email of the seeded account (empty to skip)")
		password = flag.String("password", "Demo1234", "Password of the seeded account")
	)
	flag.Parse()

	logger, err := zap.NewDevelopment()
	if err != nil {
		log.Fatalf("Failed to initialize logger: %v", err)
	}
	defer logger.Sync()

	backend := apitest.NewBackend()
	if *email != "" {
		backend.AddUser("demo", *email, *password)
		logger.Info("seeded account", zap.String("email", *email), zap.String("password", *password))
	}

	srv := &http.Server{
		Addr:              *addr,
		Handler:           backend.Handler(),
		ReadHeaderTimeout: 5 * time.Second,
	}

	logger.Info("mock KAIRO API listening",
		zap.String("addr", *addr),
		zap.String("base_path", apitest.BasePath))
	if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		logger.Fatal("server error", zap.Error(err))
	}
}
