// Package wire encodes bridge notifications into the listener's text command
// format.
//
// A command is a verb followed by its arguments, joined by "/" with no
// trailing delimiter and no framing; one command fills one datagram. Free-text
// arguments such as playlist names and sections have every "/" replaced by
// "_" so the listener's split stays unambiguous. Numeric arguments are
// formatted by the encoder and never need sanitizing. Filenames are forwarded
// verbatim unless the Encoder is configured to sanitize them too.
package wire
