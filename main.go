package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/alphaofficial/vassal/internal/api"
	"github.com/alphaofficial/vassal/internal/config"
	"github.com/alphaofficial/vassal/internal/queue"
)

func main() {
	cfg := config.Load()

	log := logrus.New()
	if level, err := logrus.ParseLevel(cfg.LogLevel); err == nil {
		log.SetLevel(level)
	}

	engine := queue.NewEngine(cfg.BaseURL, log.WithField("component", "engine"))
	handler := api.NewHandler(engine, log)
	router := api.NewRouter(handler, log)

	server := &http.Server{
		Addr:    cfg.Addr(),
		Handler: router,
	}

	go func() {
		log.WithFields(logrus.Fields{
			"addr":     cfg.Addr(),
			"base_url": cfg.BaseURL,
		}).Info("starting vassal")

		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.WithError(err).Fatal("server failed to start")
		}
	}()

	stop := make(chan os.Signal, 1)
	signal.Notify(stop, os.Interrupt, syscall.SIGTERM)
	<-stop

	log.Info("shutting down")

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := server.Shutdown(ctx); err != nil {
		log.WithError(err).Warn("server forced to shutdown")
	}

	log.Info("server exited")
}
