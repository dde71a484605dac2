package catalog

import (
	"fmt"
	"regexp"
)

const (
	SiteURL       = "https://subsplease.org"
	ScheduleURL   = SiteURL + "/api/?f=schedule&tz=Europe/Berlin"
	showURLFormat = "%v/shows/%v/"
	showIdIndex   = 1
)

var showURLPattern = regexp.MustCompile(`\Ahttps://subsplease\.org/shows/([A-Za-z0-9_-]+)/\z`)

// ShowIDFromURL extracts the show id from a show page url. Only the exact
// https show page form is accepted.
func ShowIDFromURL(url string) (string, bool) {
	submatch := showURLPattern.FindStringSubmatch(url)
	if submatch == nil {
		return "", false
	}
	return submatch[showIdIndex], true
}

func ShowURL(id string) string {
	return fmt.Sprintf(showURLFormat, SiteURL, id)
}
