// Package irc frames and unframes IRC protocol lines.
package irc

import (
	"errors"
	"fmt"
	"strings"

	"github.com/ergochat/irc-go/ircmsg"
)

// Line is one decoded IRC line.
type Line struct {
	Tags    map[string]string
	Prefix  string
	Command string
	Args    []string
}

// Arg returns the i-th argument or "" when absent.
func (l Line) Arg(i int) string {
	if i < 0 || i >= len(l.Args) {
		return ""
	}
	return l.Args[i]
}

// Tag returns the value of a message tag.
func (l Line) Tag(name string) (string, bool) {
	v, ok := l.Tags[name]
	return v, ok
}

// Empty reports whether the line carried no command.
func (l Line) Empty() bool {
	return l.Command == ""
}

// String encodes the line back to wire form, without the terminator.
func (l Line) String() string {
	return Encode(l.Prefix, l.Command, l.Args...)
}

// ParseError is returned when a non-empty line cannot be framed.
type ParseError struct {
	Raw string
	Err error
}

func (e *ParseError) Error() string {
	return fmt.Sprintf("malformed line %q: %v", e.Raw, e.Err)
}

func (e *ParseError) Unwrap() error {
	return e.Err
}

// Decode parses a raw line. Empty and blank lines yield a zero Line and no error.
func Decode(raw string) (Line, error) {
	raw = strings.TrimRight(raw, "\r\n")
	if strings.TrimSpace(raw) == "" {
		return Line{}, nil
	}

	msg, err := ircmsg.ParseLine(raw)
	if err != nil {
		if errors.Is(err, ircmsg.ErrorLineIsEmpty) {
			return Line{}, nil
		}
		return Line{}, &ParseError{Raw: raw, Err: err}
	}

	line := Line{
		Prefix:  msg.Source,
		Command: strings.ToUpper(msg.Command),
		Args:    msg.Params,
	}
	if line.Args == nil {
		line.Args = []string{}
	}
	if tags := msg.AllTags(); len(tags) > 0 {
		line.Tags = tags
	}
	return line, nil
}

// Encode serializes a line. The last argument is written in trailing form
// whenever it is empty, contains a space or starts with ':'.
func Encode(prefix, command string, args ...string) string {
	msg := ircmsg.MakeMessage(nil, prefix, command, args...)
	out, err := msg.Line()
	if err != nil && !errors.Is(err, ircmsg.ErrorBodyTooLong) {
		// CR, LF and NUL inside an argument would split the line
		return encodeFallback(prefix, command, args)
	}
	return strings.TrimRight(out, "\r\n")
}

func encodeFallback(prefix, command string, args []string) string {
	clean := strings.NewReplacer("\r", " ", "\n", " ", "\x00", "")
	var b strings.Builder
	if prefix != "" {
		b.WriteString(":")
		b.WriteString(clean.Replace(prefix))
		b.WriteString(" ")
	}
	b.WriteString(command)
	for i, arg := range args {
		arg = clean.Replace(arg)
		b.WriteString(" ")
		if i == len(args)-1 && (arg == "" || strings.Contains(arg, " ") || strings.HasPrefix(arg, ":")) {
			b.WriteString(":")
		}
		b.WriteString(arg)
	}
	return b.String()
}
