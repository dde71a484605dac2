package bot

import (
	"context"
	"fmt"
	"time"

	"github.com/pkg/errors"
	"github.com/robfig/cron/v3"
	"github.com/rs/zerolog/log"

	"release-notifier-bot/db"
	"release-notifier-bot/mutex"
	"release-notifier-bot/release"
)

const (
	releasesJob     = "releases"
	refreshJob      = "refresh"
	releasesTimeout = time.Minute * 10
	refreshTimeout  = time.Hour * 6
)

var ErrJobRunning = errors.New("previous run is still in progress")

type FeedSource interface {
	Fetch(ctx context.Context) (release.Feed, error)
}

type CursorStore interface {
	GetCursor() (string, error)
	SetCursor(guid string) error
}

type Dispatcher interface {
	Dispatch(ctx context.Context, item release.Item) error
}

type Refresher interface {
	RefreshAll(ctx context.Context) error
}

type JobLocks interface {
	Job(name string, expiry time.Duration) mutex.Mutex
}

// Jobs runs the periodic work of the bot. Every job holds a lock for its
// whole run so that overlapping runs across instances are skipped.
type Jobs struct {
	source     FeedSource
	cursor     CursorStore
	dispatcher Dispatcher
	refresher  Refresher
	locks      JobLocks
}

func NewJobs(source FeedSource, cursor CursorStore, dispatcher Dispatcher, refresher Refresher, locks JobLocks) *Jobs {
	return &Jobs{
		source:     source,
		cursor:     cursor,
		dispatcher: dispatcher,
		refresher:  refresher,
		locks:      locks,
	}
}

// CheckReleases fetches the feed and dispatches every item newer than the
// stored cursor. On the very first run the cursor is only seeded.
func (j *Jobs) CheckReleases(ctx context.Context) error {
	return j.exclusive(releasesJob, releasesTimeout, func() error {
		feed, err := j.source.Fetch(ctx)
		if err != nil {
			return errors.Wrap(err, "cannot fetch release feed")
		}
		cursor, err := j.cursor.GetCursor()
		if errors.Is(err, db.ErrNotFound) {
			if len(feed.Items) == 0 {
				return nil
			}
			log.Info().Str("guid", feed.Items[0].GUID).Msg("seeding release cursor")
			return errors.Wrap(j.cursor.SetCursor(feed.Items[0].GUID), "cannot seed release cursor")
		}
		if err != nil {
			return errors.Wrap(err, "cannot read release cursor")
		}
		next, errs := release.Poll(ctx, feed, cursor, j.dispatcher.Dispatch)
		if next == cursor {
			log.Debug().Msg("no new releases")
			return nil
		}
		err = j.cursor.SetCursor(next)
		if err != nil {
			return errors.Wrap(err, "cannot store release cursor")
		}
		if ctx.Err() != nil {
			return errors.Wrapf(ctx.Err(), "release check interrupted, %v releases not sent", len(errs))
		}
		log.Info().Str("cursor", next).Int("failed", len(errs)).Msg("releases processed")
		return nil
	})
}

func (j *Jobs) RefreshCatalog(ctx context.Context) error {
	return j.exclusive(refreshJob, refreshTimeout, func() error {
		return j.refresher.RefreshAll(ctx)
	})
}

func (j *Jobs) exclusive(name string, expiry time.Duration, run func() error) error {
	lock := j.locks.Job(name, expiry)
	if err := lock.Lock(); err != nil {
		return errors.Wrap(ErrJobRunning, err.Error())
	}
	defer func() {
		_, err := lock.Unlock()
		if err != nil {
			log.Warn().Err(err).Str("job", name).Msg("couldn't release job lock")
		}
	}()
	return run()
}

// Schedule registers the release check every interval and the catalog
// refresh on refreshSpec. Runs stop being started once ctx is done.
func (j *Jobs) Schedule(ctx context.Context, c *cron.Cron, interval time.Duration, refreshSpec string) error {
	_, err := c.AddFunc(fmt.Sprintf("@every %v", interval), func() {
		j.run(ctx, releasesJob, releasesTimeout, j.CheckReleases)
	})
	if err != nil {
		return errors.Wrap(err, "cannot schedule release check")
	}
	_, err = c.AddFunc(refreshSpec, func() {
		j.run(ctx, refreshJob, refreshTimeout, j.RefreshCatalog)
	})
	if err != nil {
		return errors.Wrapf(err, "cannot schedule catalog refresh %q", refreshSpec)
	}
	return nil
}

func (j *Jobs) run(parent context.Context, name string, timeout time.Duration, job func(context.Context) error) {
	if parent.Err() != nil {
		return
	}
	ctx, cancel := context.WithTimeout(parent, timeout)
	defer cancel()
	started := time.Now()
	err := job(ctx)
	if errors.Is(err, ErrJobRunning) {
		log.Debug().Str("job", name).Msg("skipped, another run holds the lock")
		return
	}
	if err != nil {
		log.Error().Err(err).Str("job", name).Msg("job failed")
		return
	}
	log.Debug().Str("job", name).Dur("took", time.Since(started)).Msg("job finished")
}

// cronLogger forwards cron's own messages to zerolog.
type cronLogger struct{}

func (cronLogger) Info(msg string, keysAndValues ...interface{}) {
	log.Debug().Fields(keysAndValues).Msg(msg)
}

func (cronLogger) Error(err error, msg string, keysAndValues ...interface{}) {
	log.Error().Err(err).Fields(keysAndValues).Msg(msg)
}
