package catalog

import (
	"context"
	"time"

	"github.com/pkg/errors"
	"github.com/rs/zerolog/log"
	"golang.org/x/time/rate"
)

var (
	ErrShowNotAvailable = errors.New("show not available")
	ErrStore            = errors.New("show store failure")
)

type Store interface {
	IsShowStored(id string) (bool, error)
	GetShow(id string) (Show, error)
	PutShow(show Show) error
	UpdateShow(show Show) error
	AllShowIDs() ([]string, error)
}

type ShowScraper interface {
	Scrape(ctx context.Context, id string) (Show, error)
}

// Catalog is a read-through cache of show metadata: shows are scraped on
// first sight and refreshed periodically, never evicted.
type Catalog struct {
	store   Store
	scraper ShowScraper
	limiter *rate.Limiter
}

// New creates a catalog that waits delay between two scrapes of a refresh.
func New(store Store, scraper ShowScraper, delay time.Duration) *Catalog {
	limit := rate.Inf
	if delay > 0 {
		limit = rate.Every(delay)
	}
	return &Catalog{
		store:   store,
		scraper: scraper,
		limiter: rate.NewLimiter(limit, 1),
	}
}

func (c *Catalog) ResolveOrCreate(ctx context.Context, id string) (Show, error) {
	stored, err := c.store.IsShowStored(id)
	if err != nil {
		return Show{}, errors.Wrap(ErrStore, err.Error())
	}
	if stored {
		show, err := c.store.GetShow(id)
		if err != nil {
			return Show{}, errors.Wrap(ErrStore, err.Error())
		}
		return show, nil
	}
	show, err := c.scraper.Scrape(ctx, id)
	if err != nil {
		if errors.Is(err, ErrShowNotAvailable) {
			return Show{}, err
		}
		return Show{}, errors.Wrap(ErrShowNotAvailable, err.Error())
	}
	// Two first sights of the same show may both get here, PutShow upserts.
	err = c.store.PutShow(show)
	if err != nil {
		return Show{}, errors.Wrap(ErrStore, err.Error())
	}
	log.Info().Str("show", show.ID).Msg("added show to catalog")
	return show, nil
}

// RefreshAll scrapes every stored show again. The first failing scrape stops
// the batch so a down site isn't hit for every show.
func (c *Catalog) RefreshAll(ctx context.Context) error {
	ids, err := c.store.AllShowIDs()
	if err != nil {
		return errors.Wrap(ErrStore, err.Error())
	}
	log.Info().Int("shows", len(ids)).Msg("refreshing catalog")
	updated := 0
	for _, id := range ids {
		err := c.limiter.Wait(ctx)
		if err != nil {
			return errors.Wrap(err, "catalog refresh interrupted")
		}
		show, err := c.scraper.Scrape(ctx, id)
		if err != nil {
			log.Error().Err(err).Str("show", id).Msg("error updating show, stopping refresh")
			return errors.Wrapf(err, "refresh stopped at %v", id)
		}
		err = c.store.UpdateShow(show)
		if err != nil {
			log.Error().Err(err).Str("show", id).Msg("error saving refreshed show")
			continue
		}
		updated++
	}
	log.Info().Int("updated", updated).Int("shows", len(ids)).Msg("catalog refreshed")
	return nil
}
