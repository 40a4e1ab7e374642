package crawler

import (
	"context"
	"errors"
	"time"
)

// ErrNavigation marks a page open that timed out or failed while a
// usable session still exists. Callers proceed best-effort with
// whatever state the page reached.
var ErrNavigation = errors.New("navigation failed")

// SelectorKind discriminates how a Selector query is interpreted.
type SelectorKind string

// Selector query kinds understood by Session.Click.
const (
	SelectorCSS   SelectorKind = "css"
	SelectorXPath SelectorKind = "xpath"
)

// Selector describes one clickable target on a page.
type Selector struct {
	Kind  SelectorKind
	Query string
}

// Browser is the page-rendering collaborator. The engine never touches
// the DOM directly; everything goes through sessions opened here.
type Browser interface {
	// Open navigates a fresh session to rawURL, waiting up to timeout.
	// On navigation timeout or error it returns the partially loaded
	// session together with an error wrapping ErrNavigation.
	Open(ctx context.Context, rawURL string, timeout time.Duration) (Session, error)
	Close() error
}

// Session is one open page. All operations are best-effort against the
// page's current state.
type Session interface {
	Title(ctx context.Context) (string, error)
	HTML(ctx context.Context) (string, error)
	// Location is the session's current URL, used to resolve relative
	// links; it falls back to the originally opened URL.
	Location() string
	ExportPDF(ctx context.Context, path string, timeout time.Duration) error
	Click(ctx context.Context, sel Selector, timeout time.Duration) error
	ScrollBottom(ctx context.Context) error
	// Settle pauses to let in-flight loads finish after an interaction.
	Settle(ctx context.Context, d time.Duration)
	Close() error
}
