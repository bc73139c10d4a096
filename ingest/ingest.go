// Package ingest runs the fetch → dedupe → persist cycle and the
// scheduler around it.
package ingest

import (
	"context"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/codewith-lab/forexfeed/cache"
	"github.com/codewith-lab/forexfeed/models"
)

// fallbackMinID is the cursor used when the store is empty or the cursor
// lookup fails. It guarantees forward progress on a cold store.
const fallbackMinID = 10

const headlinePreviewLen = 60

// Fetcher returns candidate articles at or above minID, newest first.
// Implementations never fail; absence of data covers fetch errors too.
type Fetcher interface {
	FetchLatest(ctx context.Context, category string, minID int64) []models.Article
}

// Store is the slice of the table store the cycle touches.
type Store interface {
	LastNewsID(ctx context.Context) (int64, error)
	ExistingIDs(ctx context.Context, ids []int64) (map[int64]struct{}, error)
	InsertBatch(ctx context.Context, records []models.NewsRecord) error
}

// Ingestor executes one full cycle per Run call. It holds no state across
// cycles; everything it knows is in the store.
type Ingestor struct {
	category string
	fetcher  Fetcher
	store    Store
	cache    *cache.Cache // nil disables invalidation
	log      *logrus.Logger

	now func() time.Time
}

func NewIngestor(category string, fetcher Fetcher, store Store, c *cache.Cache, log *logrus.Logger) *Ingestor {
	return &Ingestor{
		category: category,
		fetcher:  fetcher,
		store:    store,
		cache:    c,
		log:      log,
		now:      time.Now,
	}
}

// Run executes one cycle. Only a failed bulk insert makes the cycle fail;
// cursor and duplicate-check errors degrade to safe defaults, and an empty
// or failed fetch is a successful cycle with nothing to do.
func (ing *Ingestor) Run(ctx context.Context) error {
	minID := ing.resolveCursor(ctx)

	articles := ing.fetcher.FetchLatest(ctx, ing.category, minID)
	ing.log.WithFields(logrus.Fields{
		"category": ing.category,
		"min_id":   minID,
		"fetched":  len(articles),
	}).Info("fetched news")

	if len(articles) == 0 {
		return nil
	}

	records := ing.filterNew(ctx, articles)
	ing.log.WithFields(logrus.Fields{
		"candidates": len(articles),
		"duplicates": len(articles) - len(records),
		"new":        len(records),
	}).Info("deduplicated candidates")

	if len(records) == 0 {
		return nil
	}

	if err := ing.store.InsertBatch(ctx, records); err != nil {
		ing.log.WithError(err).Error("storing articles failed")
		return err
	}

	ing.log.WithField("stored", len(records)).Info("stored new articles")
	for i, rec := range records {
		if i == 3 {
			break
		}
		ing.log.Infof("  %d. %s", i+1, preview(rec.Headline))
	}

	ing.cache.Invalidate(ctx)
	return nil
}

// resolveCursor never fails: any lookup problem degrades to the fallback.
func (ing *Ingestor) resolveCursor(ctx context.Context) int64 {
	lastID, err := ing.store.LastNewsID(ctx)
	if err != nil {
		ing.log.WithError(err).Warnf("no usable last id, using default minId %d", fallbackMinID)
		return fallbackMinID
	}
	return lastID
}

// filterNew drops candidates already present in the store and normalizes
// the rest. A failed duplicate check treats everything as new; the
// conflict-tolerant insert makes that safe.
func (ing *Ingestor) filterNew(ctx context.Context, articles []models.Article) []models.NewsRecord {
	ids := make([]int64, 0, len(articles))
	for _, a := range articles {
		ids = append(ids, a.ID)
	}

	existing, err := ing.store.ExistingIDs(ctx, ids)
	if err != nil {
		ing.log.WithError(err).Error("duplicate check failed, treating all candidates as new")
		existing = map[int64]struct{}{}
	}

	ingestedAt := ing.now().UTC()
	records := make([]models.NewsRecord, 0, len(articles))
	for _, a := range articles {
		if _, ok := existing[a.ID]; ok {
			continue
		}
		category := a.Category
		if category == "" {
			category = ing.category
		}
		records = append(records, models.NewsRecord{
			ID:         a.ID,
			Category:   category,
			Datetime:   a.Datetime,
			Headline:   a.Headline,
			Source:     a.Source,
			Summary:    a.Summary,
			URL:        a.URL,
			IngestedAt: ingestedAt,
		})
	}
	return records
}

func preview(headline string) string {
	runes := []rune(headline)
	if len(runes) <= headlinePreviewLen {
		return headline
	}
	return string(runes[:headlinePreviewLen]) + "..."
}
