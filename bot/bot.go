package bot

import (
	"context"
	"net/http"
	"time"

	"github.com/pkg/errors"
	"github.com/robfig/cron/v3"
	"github.com/rs/zerolog/log"
	tele "gopkg.in/telebot.v3"

	"release-notifier-bot/api"
	"release-notifier-bot/catalog"
	"release-notifier-bot/config"
	"release-notifier-bot/db"
	"release-notifier-bot/mutex"
	"release-notifier-bot/notify"
	"release-notifier-bot/release"
	"release-notifier-bot/templates"
	"release-notifier-bot/watchlist"
)

const (
	pollerTimeout   = time.Second * 10
	shutdownTimeout = time.Second * 5
)

// Start wires every component and blocks until the bot is stopped. confirm
// receives a value once ctx is done and everything has shut down.
func Start(ctx context.Context, c config.Config, confirm chan<- struct{}) error {
	dbService := db.New(c.DBAddress, c.DBUser, c.DBPassword, c.DB)
	if c.Debug {
		dbService.EnableDebug()
	}
	if err := dbService.CreateSchema(ctx); err != nil {
		return errors.Wrap(err, "cannot create schema")
	}
	mutexBuilder := mutex.NewBuilder(c.RedisAddress)
	scraper := catalog.NewScraper(c.SiteURL, c.ScheduleURL, c.RequestTimeout())
	showCatalog := catalog.New(dbService, scraper, c.ScrapeInterval())
	users := watchlist.NewService(dbService, showCatalog, mutexBuilder)

	s := tele.Settings{
		Token: c.TelegramBotToken,
		Poller: &tele.LongPoller{
			Timeout: pollerTimeout,
		},
		Client: &http.Client{Timeout: pollerTimeout + c.RequestTimeout()},
	}
	bot, err := tele.NewBot(s)
	if err != nil {
		return errors.Wrap(err, "error during creation of a new bot")
	}

	botService := NewService(users)
	bot.Handle(tele.OnText, botService.OnText)
	bot.OnError = func(err error, context tele.Context) {
		log.Error().Err(err).Msg("update handling failed")
		if context == nil {
			return
		}
		err = context.Send(templates.UnexpectedError)
		if err != nil {
			log.Error().Err(err).Msg("couldn't report failure to user")
		}
	}

	dispatcher := notify.NewDispatcher(dbService, NewTelegramSink(bot), c.MagnetBase)
	source := release.NewSource(c.RSSLink, c.RequestTimeout())
	jobs := NewJobs(source, dbService, dispatcher, showCatalog, mutexBuilder)
	scheduler := cron.New(
		cron.WithLogger(cronLogger{}),
		cron.WithChain(cron.SkipIfStillRunning(cronLogger{})),
	)
	err = jobs.Schedule(ctx, scheduler, c.PollInterval(), c.RefreshSpec)
	if err != nil {
		return err
	}
	scheduler.Start()
	log.Info().Dur("interval", c.PollInterval()).Str("refresh", c.RefreshSpec).Msg("jobs scheduled")

	var server *http.Server
	if len(c.HTTPAddress) > 0 {
		server = &http.Server{
			Addr:              c.HTTPAddress,
			Handler:           api.NewRouter(dbService, dbService, users),
			ReadHeaderTimeout: c.RequestTimeout(),
		}
		go func() {
			err := server.ListenAndServe()
			if err != nil && !errors.Is(err, http.ErrServerClosed) {
				log.Error().Err(err).Str("address", c.HTTPAddress).Msg("http server stopped")
			}
		}()
		log.Info().Str("address", c.HTTPAddress).Msg("http server started")
	}

	go func() {
		<-ctx.Done()
		bot.Stop()
		<-scheduler.Stop().Done()
		if server != nil {
			shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
			if err := server.Shutdown(shutdownCtx); err != nil {
				log.Error().Err(err).Msg("http server shutdown failed")
			}
			cancel()
		}
		if err := dbService.Close(); err != nil {
			log.Error().Err(err).Msg("couldn't close database")
		}
		confirm <- struct{}{}
	}()

	log.Info().Str("bot", bot.Me.Username).Msg("bot started")
	// Blocks until stop
	bot.Start()
	return nil
}
