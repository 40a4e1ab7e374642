// Package crawler implements the portal archiving engine: BFS frontier
// scheduling, durable history, politeness, and content-reveal driving.
package crawler

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// pagesSaved tracks artifacts successfully exported and recorded.
	pagesSaved = promauto.NewCounter(prometheus.CounterOpts{
		Name: "portarc_pages_saved_total",
		Help: "The total number of page artifacts saved and recorded in history.",
	})
	// navigationErrors tracks page opens that timed out or failed.
	navigationErrors = promauto.NewCounter(prometheus.CounterOpts{
		Name: "portarc_navigation_errors_total",
		Help: "The total number of page navigations that failed or timed out.",
	})
	// exportErrors tracks artifact exports that failed or timed out.
	exportErrors = promauto.NewCounter(prometheus.CounterOpts{
		Name: "portarc_export_errors_total",
		Help: "The total number of artifact exports that failed; the URL stays unrecorded.",
	})
	// robotsDenied tracks URLs skipped because robots.txt disallowed them.
	robotsDenied = promauto.NewCounter(prometheus.CounterOpts{
		Name: "portarc_robots_denied_total",
		Help: "The total number of URLs skipped due to robots.txt.",
	})
	// revealAttempts tracks reveal interactions, labeled by outcome.
	revealAttempts = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "portarc_reveal_attempts_total",
		Help: "The total number of reveal interactions attempted against the portal.",
	}, []string{"outcome"})
	// historyWriteErrors tracks failed history persists (memory-only entries).
	historyWriteErrors = promauto.NewCounter(prometheus.CounterOpts{
		Name: "portarc_history_write_errors_total",
		Help: "The total number of history persists that failed after the in-memory update.",
	})
)
