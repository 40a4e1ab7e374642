package crawler

import (
	"crypto/sha1"
	"encoding/hex"
	"fmt"
	"regexp"
	"strings"
	"time"
)

const titlePrefixMaxLen = 50

var invalidFilenameChars = regexp.MustCompile(`[:/\\?%*|"<>\n\r]+`)

var whitespaceRuns = regexp.MustCompile(`\s+`)

// sanitizeTitle turns a page title into a filesystem-safe filename
// prefix, truncated so the fingerprint suffix stays the discriminator.
func sanitizeTitle(title string) string {
	s := invalidFilenameChars.ReplaceAllString(title, "_")
	s = whitespaceRuns.ReplaceAllString(s, "_")
	if len(s) > titlePrefixMaxLen {
		s = s[:titlePrefixMaxLen]
	}
	s = strings.Trim(s, "_")
	if s == "" {
		return "page"
	}
	return s
}

// Fingerprint is the stable SHA-1 of a URL. It names artifacts, so the
// same URL always maps to the same file across runs.
func Fingerprint(rawURL string) string {
	sum := sha1.Sum([]byte(rawURL))
	return hex.EncodeToString(sum[:])
}

// artifactFilename derives the deterministic PDF name for a page.
func artifactFilename(title, fingerprint string) string {
	return fmt.Sprintf("%s_%s.pdf", sanitizeTitle(title), fingerprint)
}

func nowUTC() time.Time {
	return time.Now().UTC()
}
