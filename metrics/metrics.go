/*
 * Copyright (C) 2025 Nethesis S.r.l.
 * SPDX-License-Identifier: GPL-3.0-or-later
 */

package metrics

import (
	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	Runs = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "voltdocs",
		Subsystem: "audit",
		Name:      "runs_total",
		Help:      "Audit runs closed, by final status.",
	}, []string{"status"})

	RunDuration = promauto.NewHistogram(prometheus.HistogramOpts{
		Namespace: "voltdocs",
		Subsystem: "audit",
		Name:      "run_duration_seconds",
		Help:      "Duration of successful audit runs.",
		Buckets:   prometheus.ExponentialBuckets(0.05, 2, 10),
	})

	AutoLinks = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: "voltdocs",
		Subsystem: "audit",
		Name:      "auto_links_total",
		Help:      "Evidence links created by the auto-linker.",
	})

	RAGFailures = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: "voltdocs",
		Subsystem: "audit",
		Name:      "similarity_failures_total",
		Help:      "Similarity searches that failed and were ignored.",
	})

	IndexedChunks = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: "voltdocs",
		Subsystem: "index",
		Name:      "chunks_total",
		Help:      "Document chunks written to the similarity index.",
	})
)

// Handler exposes the default registry.
func Handler() gin.HandlerFunc {
	return gin.WrapH(promhttp.Handler())
}
