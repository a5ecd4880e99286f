// Package sanitize cleans raw bytes captured from a device shell into
// human-readable command output.
package sanitize

import (
	"regexp"
	"strings"
	"unicode/utf8"
)

var (
	// moreBannerRe matches the pager banner some devices still emit before
	// pagination is disabled, through its trailing newline.
	moreBannerRe = regexp.MustCompile(`(?s)--More\(CTRL\+C break\)--.*?\r?\n?`)

	// ctrlRe matches backspaces and ANSI color escape sequences.
	ctrlRe = regexp.MustCompile(`\x08|\x1b\[.*?m`)
)

// Output transforms one command's captured bytes into clean text.
//
// Rules, in order: lossy-decode invalid UTF-8, drop pager banners, drop
// backspace/ANSI sequences, drop a leading echo of the issued command, drop
// a trailing device prompt, trim surrounding whitespace. Nothing else is
// removed, and re-applying the transform to its own result is a no-op.
func Output(raw []byte, command, deviceName string) string {
	text := strings.ToValidUTF8(string(raw), string(utf8.RuneError))

	text = moreBannerRe.ReplaceAllString(text, "")
	text = ctrlRe.ReplaceAllString(text, "")

	if command != "" {
		echoRe := regexp.MustCompile(`^` + regexp.QuoteMeta(command) + `\s*\r?\n`)
		text = echoRe.ReplaceAllString(text, "")
	}
	if deviceName != "" {
		promptRe := regexp.MustCompile(regexp.QuoteMeta(deviceName) + `[>#]\s*$`)
		text = promptRe.ReplaceAllString(text, "")
	}
	return strings.TrimSpace(text)
}
