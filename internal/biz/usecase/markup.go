package usecase

import (
	"html"
	"regexp"
	"strings"

	"github.com/irctelegram/ircbridge/internal/biz/domain"
)

const (
	ctrlBold  = '\x02'
	ctrlReset = '\x0F'

	// HTMLMode is the chat-service markup the IRC mode translates into
	HTMLMode = "HTML"
)

var (
	noopFormatting = regexp.MustCompile("\x03(?:[0-9]{1,2}(?:,[0-9]{1,2})?)?|[\x1D\x12\x16]")
	allFormatting  = regexp.MustCompile("\x03(?:[0-9]{1,2}(?:,[0-9]{1,2})?)?|[\x02\x0F\x12\x16\x1D\x1F]")
)

// TranslateIRC converts IRC inline formatting into the HTML subset.
// Only bold survives; color, reverse and italic codes are dropped.
func TranslateIRC(text string) string {
	text = noopFormatting.ReplaceAllString(text, "")
	text = html.EscapeString(text)

	var b strings.Builder
	b.Grow(len(text) + 8)
	bold := false
	for _, r := range text {
		switch r {
		case ctrlBold:
			if bold {
				b.WriteString("</b>")
			} else {
				b.WriteString("<b>")
			}
			bold = !bold
		case ctrlReset:
			if bold {
				b.WriteString("</b>")
				bold = false
			}
		default:
			b.WriteRune(r)
		}
	}
	if bold {
		b.WriteString("</b>")
	}
	return b.String()
}

// StripFormatting removes every IRC formatting control code
func StripFormatting(text string) string {
	return allFormatting.ReplaceAllString(text, "")
}

// Render prepares text for a send under the given session markup mode.
// It returns the body and the parse mode to hand to the chat service.
func Render(mode, text string) (body, apiMode string) {
	switch {
	case mode == domain.ParseModeIRC:
		return TranslateIRC(text), HTMLMode
	case mode == "" || strings.EqualFold(mode, domain.ParseModePlain):
		return text, ""
	default:
		return text, mode
	}
}

// PlainFallback is the body of the retry after a formatted send was rejected
func PlainFallback(mode, text string, cause error) string {
	if mode == domain.ParseModeIRC {
		text = StripFormatting(text)
	}
	return text + "\n\n(Error: " + cause.Error() + ")"
}
