package catalog

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/PuerkitoBio/goquery"
	"github.com/pkg/errors"
	"github.com/rs/zerolog/log"
)

const (
	imageSelector    = "img.img-responsive.img-center"
	synopsisSelector = "div.series-syn p"
	nameSelector     = "h1.entry-title"
	scrapeTimeout    = time.Second * 20
)

type scheduleEntry struct {
	Title    string `json:"title"`
	Page     string `json:"page"`
	ImageURL string `json:"image_url"`
	Time     string `json:"time"`
}

type scheduleContainer struct {
	TimeZone string                     `json:"tz"`
	Schedule map[string][]scheduleEntry `json:"schedule"`
}

// Scraper reads show pages and the weekly release schedule of the site.
type Scraper struct {
	siteURL     string
	scheduleURL string
	client      *http.Client
}

func NewScraper(siteURL, scheduleURL string, timeout time.Duration) *Scraper {
	if timeout <= 0 {
		timeout = scrapeTimeout
	}
	return &Scraper{
		siteURL:     strings.TrimSuffix(siteURL, "/"),
		scheduleURL: scheduleURL,
		client:      &http.Client{Timeout: timeout},
	}
}

// Scrape builds the show from its page and the schedule. Every failure is
// reported as ErrShowNotAvailable.
func (s *Scraper) Scrape(ctx context.Context, id string) (Show, error) {
	show, err := s.scrape(ctx, id)
	if err != nil {
		return Show{}, errors.Wrap(ErrShowNotAvailable, err.Error())
	}
	return show, nil
}

func (s *Scraper) scrape(ctx context.Context, id string) (Show, error) {
	page, err := s.get(ctx, fmt.Sprintf(showURLFormat, s.siteURL, id))
	if err != nil {
		return Show{}, err
	}
	defer closeBody(page)
	document, err := goquery.NewDocumentFromReader(page)
	if err != nil {
		return Show{}, errors.Wrap(err, "unable to parse show page")
	}
	imageURL, ok := document.Find(imageSelector).First().Attr("src")
	if !ok || len(imageURL) == 0 {
		return Show{}, errors.Errorf("image is missing on page of %v", id)
	}
	synopsis := strings.TrimSpace(document.Find(synopsisSelector).First().Text())
	if len(synopsis) == 0 {
		return Show{}, errors.Errorf("synopsis is missing on page of %v", id)
	}
	name := strings.TrimSpace(document.Find(nameSelector).First().Text())
	if len(name) == 0 {
		return Show{}, errors.Errorf("name is missing on page of %v", id)
	}
	airTime, err := s.airTime(ctx, id)
	if err != nil {
		return Show{}, err
	}
	return Show{
		ID:       id,
		Name:     name,
		ImageURL: s.absolute(imageURL),
		Synopsis: synopsis,
		AirTime:  airTime,
	}, nil
}

func (s *Scraper) airTime(ctx context.Context, id string) (AirTime, error) {
	body, err := s.get(ctx, s.scheduleURL)
	if err != nil {
		return AirTime{}, err
	}
	defer closeBody(body)
	var container scheduleContainer
	err = json.NewDecoder(body).Decode(&container)
	if err != nil {
		return AirTime{}, errors.Wrap(err, "unable to decode schedule")
	}
	for day, name := range weekdays {
		for _, entry := range container.Schedule[name] {
			if entry.Page != id {
				continue
			}
			hour, minute, err := parseClock(entry.Time)
			if err != nil {
				return AirTime{}, errors.Wrapf(err, "bad schedule time for %v", id)
			}
			return AirTime{IsAiring: true, WeekDay: day, Hour: hour, Minute: minute}, nil
		}
	}
	return NotAiring(), nil
}

func parseClock(clock string) (int, int, error) {
	parts := strings.Split(clock, ":")
	if len(parts) != 2 {
		return 0, 0, errors.Errorf("unexpected time format %q", clock)
	}
	hour, err := strconv.Atoi(parts[0])
	if err != nil || hour < 0 || hour > 23 {
		return 0, 0, errors.Errorf("unexpected hour in %q", clock)
	}
	minute, err := strconv.Atoi(parts[1])
	if err != nil || minute < 0 || minute > 59 {
		return 0, 0, errors.Errorf("unexpected minute in %q", clock)
	}
	return hour, minute, nil
}

func (s *Scraper) absolute(url string) string {
	if strings.HasPrefix(url, "http://") || strings.HasPrefix(url, "https://") {
		return url
	}
	return s.siteURL + "/" + strings.TrimPrefix(url, "/")
}

func (s *Scraper) get(ctx context.Context, url string) (io.ReadCloser, error) {
	request, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, errors.Wrap(err, "unable to create request")
	}
	response, err := s.client.Do(request)
	if err != nil {
		return nil, errors.Wrapf(err, "unable to get %v", url)
	}
	if response.StatusCode < 200 || response.StatusCode > 299 {
		closeBody(response.Body)
		return nil, errors.Errorf("unexpected status %v for %v", response.StatusCode, url)
	}
	return response.Body, nil
}

func closeBody(body io.Closer) {
	err := body.Close()
	if err != nil {
		log.Warn().Err(err).Msg("error when closing the body")
	}
}
