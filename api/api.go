// Package api exposes a read-only HTTP view of the bot's state.
package api

import (
	"context"
	"encoding/json"
	"net/http"
	"strconv"
	"time"

	"github.com/gorilla/mux"
	"github.com/pkg/errors"
	"github.com/rs/zerolog/hlog"
	"github.com/rs/zerolog/log"

	"release-notifier-bot/catalog"
	"release-notifier-bot/db"
	"release-notifier-bot/schedule"
)

type Pinger interface {
	Ping(ctx context.Context) error
}

type ShowStore interface {
	GetShow(id string) (catalog.Show, error)
}

type Schedules interface {
	IsRegistered(userId int64) (bool, error)
	Schedule(userId int64) (schedule.Table, error)
}

type showResponse struct {
	ID       string `json:"id"`
	Name     string `json:"name"`
	URL      string `json:"url"`
	ImageURL string `json:"image_url"`
	Synopsis string `json:"synopsis"`
	Airing   bool   `json:"airing"`
	Day      string `json:"day,omitempty"`
	Time     string `json:"time,omitempty"`
}

type scheduleResponse struct {
	Entries []schedule.Entry `json:"entries"`
}

type handler struct {
	pinger    Pinger
	shows     ShowStore
	schedules Schedules
}

// NewRouter returns the routes wrapped in request logging.
func NewRouter(pinger Pinger, shows ShowStore, schedules Schedules) http.Handler {
	h := &handler{pinger: pinger, shows: shows, schedules: schedules}
	router := mux.NewRouter()
	router.Methods(http.MethodGet).Path("/health").HandlerFunc(h.health)
	router.Methods(http.MethodGet).Path("/shows/{id}").HandlerFunc(h.show)
	router.Methods(http.MethodGet).Path("/users/{id:[0-9]+}/schedule").HandlerFunc(h.schedule)

	var chain http.Handler = router
	chain = hlog.AccessHandler(func(r *http.Request, status, size int, duration time.Duration) {
		hlog.FromRequest(r).Debug().
			Str("method", r.Method).
			Stringer("url", r.URL).
			Int("status", status).
			Int("size", size).
			Dur("duration", duration).
			Msg("http request")
	})(chain)
	chain = hlog.RequestIDHandler("req_id", "Request-Id")(chain)
	return hlog.NewHandler(log.Logger)(chain)
}

func (h *handler) health(w http.ResponseWriter, r *http.Request) {
	if err := h.pinger.Ping(r.Context()); err != nil {
		hlog.FromRequest(r).Warn().Err(err).Msg("database unreachable")
		http.Error(w, http.StatusText(http.StatusServiceUnavailable), http.StatusServiceUnavailable)
		return
	}
	w.Header().Set("Content-Type", "text/plain")
	_, err := w.Write([]byte("OK"))
	if err != nil {
		hlog.FromRequest(r).Error().Err(err).Msg("error writing health response")
	}
}

func (h *handler) show(w http.ResponseWriter, r *http.Request) {
	id := mux.Vars(r)["id"]
	show, err := h.shows.GetShow(id)
	if errors.Is(err, db.ErrNotFound) {
		http.Error(w, http.StatusText(http.StatusNotFound), http.StatusNotFound)
		return
	}
	if err != nil {
		hlog.FromRequest(r).Error().Err(err).Str("show", id).Msg("couldn't load show")
		http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
		return
	}
	writeJSON(w, r, showResponse{
		ID:       show.ID,
		Name:     show.Name,
		URL:      catalog.ShowURL(show.ID),
		ImageURL: show.ImageURL,
		Synopsis: show.Synopsis,
		Airing:   show.AirTime.IsAiring,
		Day:      show.AirTime.Day(),
		Time:     show.AirTime.Clock(),
	})
}

func (h *handler) schedule(w http.ResponseWriter, r *http.Request) {
	userId, err := strconv.ParseInt(mux.Vars(r)["id"], 10, 64)
	if err != nil {
		http.Error(w, http.StatusText(http.StatusBadRequest), http.StatusBadRequest)
		return
	}
	registered, err := h.schedules.IsRegistered(userId)
	if err != nil {
		hlog.FromRequest(r).Error().Err(err).Int64("user", userId).Msg("couldn't check registration")
		http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
		return
	}
	if !registered {
		http.Error(w, http.StatusText(http.StatusNotFound), http.StatusNotFound)
		return
	}
	entries, err := h.entries(userId)
	if err != nil {
		hlog.FromRequest(r).Error().Err(err).Int64("user", userId).Msg("couldn't build schedule")
		http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
		return
	}
	writeJSON(w, r, scheduleResponse{Entries: entries})
}

func (h *handler) entries(userId int64) ([]schedule.Entry, error) {
	table, err := h.schedules.Schedule(userId)
	if err != nil {
		return nil, err
	}
	return table.Printable()
}

func writeJSON(w http.ResponseWriter, r *http.Request, body interface{}) {
	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(body); err != nil {
		hlog.FromRequest(r).Error().Err(err).Msg("error writing response")
	}
}
