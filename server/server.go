// Package server exposes the optional read-only ops API. Nothing in the
// ingestion loop depends on it; when HTTP_ADDR is unset it never runs.
package server

import (
	"net/http"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"

	"github.com/codewith-lab/forexfeed/cache"
	"github.com/codewith-lab/forexfeed/store"
)

const latestLimit = 50

type Server struct {
	store *store.Store
	cache *cache.Cache
	log   *logrus.Logger
}

func New(st *store.Store, c *cache.Cache, log *logrus.Logger) *Server {
	return &Server{store: st, cache: c, log: log}
}

func (s *Server) Router() *gin.Engine {
	r := gin.New()
	r.Use(gin.Recovery())

	r.Use(cors.New(cors.Config{
		AllowOrigins:  []string{"*"},
		AllowMethods:  []string{"GET", "OPTIONS"},
		AllowHeaders:  []string{"Origin", "Content-Type"},
		ExposeHeaders: []string{"Content-Length"},
		MaxAge:        12 * time.Hour,
	}))

	r.GET("/api/health", s.health)
	r.GET("/api/articles", s.latestArticles)

	return r
}

func (s *Server) health(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"status":    "ok",
		"timestamp": time.Now().UTC(),
	})
}

// latestArticles serves the newest stored records, cache-aside: redis
// first, then the store, refilling the cache on a miss.
func (s *Server) latestArticles(c *gin.Context) {
	ctx := c.Request.Context()

	if records, ok := s.cache.GetLatest(ctx); ok {
		c.JSON(http.StatusOK, records)
		return
	}

	records, err := s.store.Latest(ctx, latestLimit)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}

	if err := s.cache.SetLatest(ctx, records); err != nil {
		s.log.WithError(err).Warn("caching latest articles failed")
	}

	c.JSON(http.StatusOK, records)
}
