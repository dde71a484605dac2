package bot

import (
	"strings"

	tele "gopkg.in/telebot.v3"
)

// splitCommand splits a message at its first space into the command and
// its argument. A leading slash and a bot mention are dropped from the
// command so "/add@bot x" and "add x" route the same way.
func splitCommand(text string) (string, string) {
	text = strings.TrimSpace(text)
	command, argument := text, ""
	if i := strings.Index(text, " "); i != -1 {
		command, argument = text[:i], strings.TrimSpace(text[i+1:])
	}
	command = strings.TrimPrefix(command, "/")
	if i := strings.Index(command, "@"); i != -1 {
		command = command[:i]
	}
	return strings.ToLower(command), argument
}

// Reply is the answer to a command. More holds follow-up messages sent
// with the same options after Text.
type Reply struct {
	Text     string
	HTML     bool
	ImageURL string
	More     []string
}

func (r Reply) send(context tele.Context) error {
	var opts []interface{}
	if r.HTML {
		opts = append(opts, tele.ModeHTML)
	}
	var err error
	if len(r.ImageURL) > 0 {
		photo := &tele.Photo{File: tele.FromURL(r.ImageURL), Caption: r.Text}
		err = context.Send(photo, opts...)
	} else {
		err = context.Send(r.Text, opts...)
	}
	for _, text := range r.More {
		if err != nil {
			return err
		}
		err = context.Send(text, opts...)
	}
	return err
}
