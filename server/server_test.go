package server_test

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"github.com/codewith-lab/forexfeed/models"
	"github.com/codewith-lab/forexfeed/server"
	"github.com/codewith-lab/forexfeed/store"
)

func newTestRouter(t *testing.T) (*gin.Engine, *store.Store) {
	t.Helper()
	gin.SetMode(gin.TestMode)

	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	require.NoError(t, err)
	st, err := store.NewWithDB(db)
	require.NoError(t, err)

	log := logrus.New()
	log.SetOutput(io.Discard)

	// nil cache: handlers must work with caching disabled.
	return server.New(st, nil, log).Router(), st
}

func TestHealth(t *testing.T) {
	router, _ := newTestRouter(t)

	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/api/health", nil)
	router.ServeHTTP(w, req)

	assert.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), `"status":"ok"`)
}

func TestLatestArticles(t *testing.T) {
	router, st := newTestRouter(t)

	require.NoError(t, st.InsertBatch(context.Background(), []models.NewsRecord{
		{ID: 1, Category: "forex", Datetime: 100, Headline: "old", IngestedAt: time.Now().UTC()},
		{ID: 2, Category: "forex", Datetime: 300, Headline: "new", IngestedAt: time.Now().UTC()},
		{ID: 3, Category: "forex", Datetime: 200, Headline: "mid", IngestedAt: time.Now().UTC()},
	}))

	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/api/articles", nil)
	router.ServeHTTP(w, req)

	require.Equal(t, http.StatusOK, w.Code)

	var got []models.NewsRecord
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &got))
	require.Len(t, got, 3)
	assert.Equal(t, "new", got[0].Headline)
	assert.Equal(t, "mid", got[1].Headline)
	assert.Equal(t, "old", got[2].Headline)
}

func TestLatestArticlesEmptyTable(t *testing.T) {
	router, _ := newTestRouter(t)

	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/api/articles", nil)
	router.ServeHTTP(w, req)

	require.Equal(t, http.StatusOK, w.Code)
	assert.JSONEq(t, `[]`, w.Body.String())
}
