package main

import (
	"log"
	"net/http"
	"os"
	"time"

	"github.com/jmjalil96/CotizateAlgo/internal/router"
)

// @title CotizateAlgo API
// @version 0.1
// @description Backend multi-tenant para brokers de seguros: jerarquía de brokers, RBAC y autorización por scope.
// @BasePath /
func main() {
	addr := ":8080"
	if v := os.Getenv("PORT"); v != "" {
		addr = ":" + v
	}

	r := router.NewRouter(router.Options{})

	srv := &http.Server{
		Addr:         addr,
		Handler:      r,
		ReadTimeout:  5 * time.Second,
		WriteTimeout: 10 * time.Second,
	}

	log.Printf("starting server on %s", addr)
	if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		log.Fatalf("server error: %v", err)
	}
}
