package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"

	"github.com/codewith-lab/forexfeed/cache"
	"github.com/codewith-lab/forexfeed/config"
	"github.com/codewith-lab/forexfeed/finnhub"
	"github.com/codewith-lab/forexfeed/ingest"
	"github.com/codewith-lab/forexfeed/server"
	"github.com/codewith-lab/forexfeed/store"
)

func main() {
	os.Exit(run())
}

func run() int {
	log := logrus.New()
	log.SetFormatter(&logrus.TextFormatter{FullTimestamp: true})

	cfg, err := config.Load()
	if err != nil {
		log.WithError(err).Error("configuration error")
		return 1
	}

	dsn, err := cfg.DSN()
	if err != nil {
		log.WithError(err).Error("configuration error")
		return 1
	}

	st, err := store.Open(dsn)
	if err != nil {
		log.WithError(err).Error("database setup failed")
		return 1
	}

	var articleCache *cache.Cache
	if cfg.RedisAddr != "" {
		articleCache, err = cache.New(cfg.RedisAddr, cfg.RedisPassword, cfg.RedisDB)
		if err != nil {
			log.WithError(err).Error("redis setup failed")
			return 1
		}
		defer articleCache.Close()
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	var ops *http.Server
	if cfg.HTTPAddr != "" {
		gin.SetMode(gin.ReleaseMode)
		ops = &http.Server{
			Addr:    cfg.HTTPAddr,
			Handler: server.New(st, articleCache, log).Router(),
		}
		go func() {
			if err := ops.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
				log.WithError(err).Error("ops server stopped")
			}
		}()
		defer func() {
			shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()
			_ = ops.Shutdown(shutdownCtx)
		}()
	}

	fetcher := finnhub.NewClient(cfg.APIKey, log)
	ingestor := ingest.NewIngestor(cfg.Category, fetcher, st, articleCache, log)
	sched := ingest.NewScheduler(ingestor, log)

	log.Infof("%s news ingestion service starting", cfg.Category)
	log.Infof("fetching the latest articles every minute into forex_news (mode: %s)", cfg.RunMode)

	if cfg.RunMode == config.RunModeOnce {
		if err := sched.RunOnce(ctx); err != nil {
			log.WithError(err).Error("ingestion failed")
			return 1
		}
		log.Info("ingestion completed")
		return 0
	}

	if err := sched.RunForever(ctx); err != nil {
		log.WithError(err).Error("ingestion stopped")
		return 1
	}
	log.Info("shutdown complete")
	return 0
}
