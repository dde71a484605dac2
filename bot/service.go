package bot

import (
	"context"
	"fmt"
	"html"
	"strings"

	"github.com/pkg/errors"
	"github.com/rs/zerolog/log"
	tele "gopkg.in/telebot.v3"

	"release-notifier-bot/catalog"
	"release-notifier-bot/schedule"
	"release-notifier-bot/templates"
	"release-notifier-bot/watchlist"
)

const (
	captionLimit       = 1024
	messageLimit       = 4096
	ellipsis           = "..."
	removeNonAiringArg = "non-airing"
)

type Watchlist interface {
	IsRegistered(userId int64) (bool, error)
	Register(userId int64) error
	Unregister(userId int64) error
	Add(ctx context.Context, userId int64, identifier string) (catalog.Show, error)
	Remove(userId int64, identifier string) error
	RemoveNonAiring(userId int64) ([]catalog.Show, error)
	Schedule(userId int64) (schedule.Table, error)
}

type Service struct {
	watchlist Watchlist
}

func NewService(watchlist Watchlist) *Service {
	return &Service{watchlist: watchlist}
}

// OnText answers private messages of human users. Group chats and bots are
// ignored.
func (s *Service) OnText(c tele.Context) error {
	sender := c.Sender()
	if c.Chat() == nil || c.Chat().Type != tele.ChatPrivate || sender == nil || sender.IsBot {
		return nil
	}
	if err := c.Notify(tele.Typing); err != nil {
		log.Debug().Err(err).Msg("couldn't send chat action")
	}
	return s.Respond(context.Background(), sender.ID, c.Text()).send(c)
}

// Respond routes a message to its command. Unregistered users can only
// register or ask for help.
func (s *Service) Respond(ctx context.Context, userId int64, text string) Reply {
	command, argument := splitCommand(text)
	registered, err := s.watchlist.IsRegistered(userId)
	if err != nil {
		log.Error().Err(err).Int64("user", userId).Msg("couldn't check registration")
		return Reply{Text: templates.DatabaseError}
	}
	if !registered {
		switch command {
		case "register", "start":
			return s.register(userId)
		case "help":
			return Reply{Text: templates.Hello}
		default:
			return Reply{Text: templates.UnknownCommand}
		}
	}
	switch command {
	case "help", "start":
		return Reply{Text: templates.Help}
	case "register":
		return Reply{Text: templates.AlreadyRegistered}
	case "unregister":
		return s.unregister(userId)
	case "add":
		return s.add(ctx, userId, argument)
	case "remove":
		if argument == removeNonAiringArg {
			return s.removeNonAiring(userId)
		}
		return s.remove(userId, argument)
	case "schedule":
		return s.schedule(userId)
	case "examples":
		return Reply{Text: templates.Examples}
	default:
		return Reply{Text: templates.UnknownCommand}
	}
}

func (s *Service) register(userId int64) Reply {
	if err := s.watchlist.Register(userId); err != nil {
		log.Error().Err(err).Int64("user", userId).Msg("couldn't register user")
		return Reply{Text: templates.DatabaseError}
	}
	log.Info().Int64("user", userId).Msg("user registered")
	return Reply{Text: templates.RegisterSuccess}
}

func (s *Service) unregister(userId int64) Reply {
	if err := s.watchlist.Unregister(userId); err != nil {
		log.Error().Err(err).Int64("user", userId).Msg("couldn't unregister user")
		return Reply{Text: templates.DatabaseError}
	}
	log.Info().Int64("user", userId).Msg("user unregistered")
	return Reply{Text: templates.UnregisterSuccess}
}

func (s *Service) add(ctx context.Context, userId int64, identifier string) Reply {
	if len(identifier) == 0 {
		return Reply{Text: templates.EmptyAdd}
	}
	show, err := s.watchlist.Add(ctx, userId, identifier)
	if err != nil {
		return errorReply(userId, err)
	}
	airing := templates.NotAiring
	if show.AirTime.IsAiring {
		airing = fmt.Sprintf(templates.Airing, show.AirTime)
	}
	name := html.EscapeString(show.Name)
	airing = html.EscapeString(airing)
	bare := fmt.Sprintf(templates.AddSuccess, name, "", airing)
	synopsis := truncate(show.Synopsis, captionLimit-runeCount(bare))
	text := fmt.Sprintf(templates.AddSuccess, name, synopsis, airing)
	return Reply{Text: text, HTML: true, ImageURL: show.ImageURL}
}

func (s *Service) remove(userId int64, identifier string) Reply {
	if err := s.watchlist.Remove(userId, identifier); err != nil {
		return errorReply(userId, err)
	}
	return Reply{Text: templates.RemoveSuccess}
}

func (s *Service) removeNonAiring(userId int64) Reply {
	removed, err := s.watchlist.RemoveNonAiring(userId)
	if err != nil {
		log.Error().Err(err).Int64("user", userId).Msg("couldn't remove non-airing shows")
		return Reply{Text: templates.RemoveNonAiringError}
	}
	if len(removed) == 0 {
		return Reply{Text: templates.NoNonAiring}
	}
	names := make([]string, 0, len(removed))
	for _, show := range removed {
		names = append(names, show.Name)
	}
	return Reply{Text: fmt.Sprintf(templates.RemovedNonAiring, strings.Join(names, "\n"))}
}

func (s *Service) schedule(userId int64) Reply {
	table, err := s.watchlist.Schedule(userId)
	if err != nil {
		return errorReply(userId, err)
	}
	rendered, err := table.Render()
	if err != nil {
		log.Error().Err(err).Int64("user", userId).Msg("couldn't render schedule")
		return Reply{Text: templates.ScheduleError}
	}
	if len(rendered) == 0 {
		return Reply{Text: templates.EmptySchedule}
	}
	pages := schedulePages(rendered)
	reply := Reply{Text: fmt.Sprintf(templates.Schedule, pages[0]), HTML: true}
	for _, page := range pages[1:] {
		reply.More = append(reply.More, fmt.Sprintf(templates.ScheduleContinued, page))
	}
	return reply
}

// schedulePages escapes the rendered table and splits it at line breaks so
// that every page fits a message once wrapped in its template.
func schedulePages(rendered string) []string {
	budget := messageLimit - runeCount(fmt.Sprintf(templates.Schedule, ""))
	rest := messageLimit - runeCount(fmt.Sprintf(templates.ScheduleContinued, ""))
	var pages []string
	var page []string
	size := 0
	for _, line := range strings.Split(rendered, "\n") {
		line = truncate(line, min(budget, rest))
		n := runeCount(line)
		if len(page) > 0 && size+1+n > budget {
			pages = append(pages, strings.Join(page, "\n"))
			page, size, budget = nil, 0, rest
		}
		if len(page) > 0 {
			size++
		}
		page = append(page, line)
		size += n
	}
	return append(pages, strings.Join(page, "\n"))
}

func errorReply(userId int64, err error) Reply {
	switch {
	case errors.Is(err, watchlist.ErrAlreadyAdded):
		return Reply{Text: templates.AlreadyAdded}
	case errors.Is(err, watchlist.ErrInvalidURL):
		return Reply{Text: templates.InvalidUrl}
	case errors.Is(err, watchlist.ErrNameNotFound):
		return Reply{Text: templates.NameNotSupported}
	case errors.Is(err, watchlist.ErrShowNotAvailable):
		return Reply{Text: templates.ShowNotAvailable}
	case errors.Is(err, watchlist.ErrShowNotFound):
		return Reply{Text: templates.ShowNotFound}
	case errors.Is(err, watchlist.ErrInvalidIdentifier):
		return Reply{Text: templates.InvalidIdentifier}
	case errors.Is(err, watchlist.ErrStore):
		log.Error().Err(err).Int64("user", userId).Msg("database failure")
		return Reply{Text: templates.DatabaseError}
	}
	log.Error().Err(err).Int64("user", userId).Msg("unexpected failure")
	return Reply{Text: templates.UnexpectedError}
}

// truncate escapes text and cuts it to at most budget runes. Markup counts
// against the budget, so the result is conservative.
func truncate(text string, budget int) string {
	escaped := html.EscapeString(text)
	if runeCount(escaped) <= budget {
		return escaped
	}
	runes := []rune(text)
	if len(runes) > budget {
		runes = runes[:max(budget, 0)]
	}
	for ; len(runes) > 0; runes = runes[:len(runes)-1] {
		cut := html.EscapeString(string(runes)) + ellipsis
		if runeCount(cut) <= budget {
			return cut
		}
	}
	return ""
}

func runeCount(text string) int {
	return len([]rune(text))
}
