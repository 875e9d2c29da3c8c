/*
 * Copyright (C) 2025 Nethesis S.r.l.
 * SPDX-License-Identifier: GPL-3.0-or-later
 */

package rag

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/walterneylp/voltdocs19022026-sub000/logs"
)

// Rebuilder is implemented by Indexer.
type Rebuilder interface {
	Rebuild(ctx context.Context, tenantID string, documentIDs ...string) (IndexStats, error)
}

// Scheduler runs background rebuilds with at most one active rebuild per
// tenant. Requests for a busy tenant are folded into one follow-up rebuild.
type Scheduler struct {
	rebuilder Rebuilder
	timeout   time.Duration

	mutex   sync.Mutex
	active  map[string]context.CancelFunc
	pending map[string]*pendingRebuild
	wg      sync.WaitGroup

	// done is called after each rebuild; tests hook into it
	done func(tenantID string, stats IndexStats, err error)
}

type pendingRebuild struct {
	full        bool
	documentIDs []string
}

func NewScheduler(rebuilder Rebuilder, timeout time.Duration) *Scheduler {
	if timeout <= 0 {
		timeout = 10 * time.Minute
	}
	return &Scheduler{
		rebuilder: rebuilder,
		timeout:   timeout,
		active:    make(map[string]context.CancelFunc),
		pending:   make(map[string]*pendingRebuild),
		done:      func(string, IndexStats, error) {},
	}
}

// Schedule starts a rebuild of the tenant. It returns false when a rebuild
// is already running; the request then runs once that one finishes.
func (s *Scheduler) Schedule(tenantID string, documentIDs ...string) bool {
	tenantID = strings.TrimSpace(tenantID)
	if tenantID == "" {
		return false
	}

	s.mutex.Lock()
	defer s.mutex.Unlock()

	if _, running := s.active[tenantID]; running {
		next, ok := s.pending[tenantID]
		if !ok {
			next = &pendingRebuild{}
			s.pending[tenantID] = next
		}
		if len(documentIDs) == 0 {
			next.full = true
		}
		next.documentIDs = append(next.documentIDs, documentIDs...)
		return false
	}

	s.start(tenantID, documentIDs)
	return true
}

// start must be called with the mutex held.
func (s *Scheduler) start(tenantID string, documentIDs []string) {
	ctx, cancel := context.WithTimeout(context.Background(), s.timeout)
	s.active[tenantID] = cancel
	s.wg.Add(1)
	go s.run(ctx, tenantID, documentIDs)
}

func (s *Scheduler) run(ctx context.Context, tenantID string, documentIDs []string) {
	defer s.wg.Done()

	stats, err := s.rebuilder.Rebuild(ctx, tenantID, documentIDs...)
	if err != nil {
		logs.Log(fmt.Sprintf("[ERROR][INDEX] Reindex of tenant %s failed: %v", tenantID, err))
	} else {
		logs.Log(fmt.Sprintf("[INFO][INDEX] Reindexed tenant %s: %d documents, %d chunks", tenantID, stats.Documents, stats.Chunks))
	}
	s.done(tenantID, stats, err)

	s.mutex.Lock()
	defer s.mutex.Unlock()

	if cancel, ok := s.active[tenantID]; ok {
		cancel()
		delete(s.active, tenantID)
	}

	if next, ok := s.pending[tenantID]; ok {
		delete(s.pending, tenantID)
		if next.full {
			s.start(tenantID, nil)
		} else {
			s.start(tenantID, next.documentIDs)
		}
	}
}

// Stop cancels running rebuilds, drops pending ones and waits for the
// workers to return.
func (s *Scheduler) Stop() {
	s.mutex.Lock()
	for tenantID, cancel := range s.active {
		cancel()
		delete(s.pending, tenantID)
	}
	s.mutex.Unlock()

	s.wg.Wait()
}
