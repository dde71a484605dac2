package release

import (
	"context"

	"github.com/pkg/errors"
	"github.com/rs/zerolog/log"
)

// Handler processes a single new release.
type Handler func(ctx context.Context, item Item) error

// Poll hands every item newer than cursor to handle, newest first, and
// returns the cursor to persist. The returned cursor is always the newest
// guid of the feed: a release that failed is reported once and not retried.
// Once ctx is done the remaining new items are skipped and reported, so the
// releases already handled are never handled twice.
func Poll(ctx context.Context, feed Feed, cursor string, handle Handler) (string, []error) {
	if len(feed.Items) == 0 {
		return cursor, nil
	}
	var errs []error
	for _, item := range feed.Items {
		if item.GUID == cursor {
			break
		}
		if ctx.Err() != nil {
			log.Warn().Err(ctx.Err()).Str("guid", item.GUID).Msgf("skipping release %v", item.Title)
			errs = append(errs, errors.Wrapf(ctx.Err(), "release %v skipped", item))
			continue
		}
		err := handle(ctx, item)
		if err != nil {
			log.Error().Err(err).Str("guid", item.GUID).Msgf("unable to process release %v", item.Title)
			errs = append(errs, errors.Wrapf(err, "release %v", item))
		}
	}
	return feed.Items[0].GUID, errs
}

// NewItems returns the items before cursor in feed order.
func NewItems(feed Feed, cursor string) []Item {
	var items []Item
	for _, item := range feed.Items {
		if item.GUID == cursor {
			break
		}
		items = append(items, item)
	}
	return items
}
