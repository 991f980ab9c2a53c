package wire

import (
	"strconv"
	"strings"
)

// Verb names a listener command.
type Verb string

const (
	VerbPlaylistUpdate Verb = "SendPlaylistUpdate"
	VerbMediaOpen      Verb = "SendMediaOpenPacket"
	VerbMediaSyncStart Verb = "SendMediaSyncStartPacket"
	VerbMediaSyncStop  Verb = "SendMediaSyncStopPacket"
	VerbMediaSync      Verb = "SendMediaSyncPacket"
)

const (
	// Delimiter separates the verb and each argument.
	Delimiter = "/"
	// Substitute replaces Delimiter inside sanitized arguments.
	Substitute = "_"
)

// Encode joins verb and args with Delimiter. Arguments are written as given;
// callers sanitize free-text fields first.
func Encode(verb Verb, args ...string) string {
	var b strings.Builder
	n := len(verb)
	for _, arg := range args {
		n += len(Delimiter) + len(arg)
	}
	b.Grow(n)
	b.WriteString(string(verb))
	for _, arg := range args {
		b.WriteString(Delimiter)
		b.WriteString(arg)
	}
	return b.String()
}

// Sanitize replaces every Delimiter in value with Substitute.
func Sanitize(value string) string {
	return strings.ReplaceAll(value, Delimiter, Substitute)
}

// FormatSeconds renders a media position with six fractional digits.
func FormatSeconds(seconds float64) string {
	return strconv.FormatFloat(seconds, 'f', 6, 64)
}

// Encoder builds the fixed listener commands.
type Encoder struct {
	// SanitizeFilenames applies Sanitize to media filenames as well as
	// playlist names and sections.
	SanitizeFilenames bool
}

// PlaylistUpdate encodes SendPlaylistUpdate/<name>/<section>/<item>.
func (e Encoder) PlaylistUpdate(name, section string, item int) string {
	return Encode(VerbPlaylistUpdate, Sanitize(name), Sanitize(section), strconv.Itoa(item))
}

// MediaOpen encodes SendMediaOpenPacket/<filename>.
func (e Encoder) MediaOpen(filename string) string {
	return Encode(VerbMediaOpen, e.filename(filename))
}

// MediaSyncStart encodes SendMediaSyncStartPacket/<filename>.
func (e Encoder) MediaSyncStart(filename string) string {
	return Encode(VerbMediaSyncStart, e.filename(filename))
}

// MediaSyncStop encodes SendMediaSyncStopPacket/<filename>.
func (e Encoder) MediaSyncStop(filename string) string {
	return Encode(VerbMediaSyncStop, e.filename(filename))
}

// MediaSync encodes SendMediaSyncPacket/<filename>/<seconds>.
func (e Encoder) MediaSync(filename string, seconds float64) string {
	return Encode(VerbMediaSync, e.filename(filename), FormatSeconds(seconds))
}

func (e Encoder) filename(value string) string {
	if e.SanitizeFilenames {
		return Sanitize(value)
	}
	return value
}
