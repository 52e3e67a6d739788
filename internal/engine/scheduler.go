package engine

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"github.com/PuerkitoBio/goquery"

	"shelfstalk/internal/fetcher"
	"shelfstalk/internal/types"
)

// scheduler manages worker goroutines that dequeue from the frontier
// and dispatch fetches.
type scheduler struct {
	engine      *Engine
	logger      *slog.Logger
	wg          sync.WaitGroup
	throttle    map[string]*domainThrottle
	throttleMu  sync.RWMutex
	idleWorkers atomic.Int32
}

// domainThrottle implements per-domain rate limiting.
type domainThrottle struct {
	lastFetch time.Time
	mu        sync.Mutex
}

func newScheduler(e *Engine) *scheduler {
	return &scheduler{
		engine:   e,
		logger:   e.logger.With("component", "scheduler"),
		throttle: make(map[string]*domainThrottle),
	}
}

// Start launches the worker pool and idle monitor.
func (s *scheduler) Start(ctx context.Context) {
	concurrency := s.engine.cfg.Crawl.Concurrency
	s.logger.Info("starting worker pool", "workers", concurrency)

	for i := 0; i < concurrency; i++ {
		s.wg.Add(1)
		go s.worker(ctx, i)
	}

	// Start idle monitor to detect when all work is done
	go s.idleMonitor(ctx, concurrency)
}

// Wait blocks until all workers are done.
func (s *scheduler) Wait() {
	s.wg.Wait()
}

// idleMonitor checks if all workers are idle and the frontier is empty.
// When this condition holds for a sustained period, it closes the
// frontier so the workers exit.
func (s *scheduler) idleMonitor(ctx context.Context, concurrency int) {
	ticker := time.NewTicker(200 * time.Millisecond)
	defer ticker.Stop()
	idleStreak := 0

	for {
		select {
		case <-ctx.Done():
			s.engine.frontier.Close()
			return
		case <-ticker.C:
			if s.engine.frontier.IsClosed() {
				return
			}
			idle := int(s.idleWorkers.Load())
			queueLen := s.engine.frontier.Len()

			if idle >= concurrency && queueLen == 0 {
				idleStreak++
				// Require 3 consecutive idle checks (~600ms) to confirm completion
				if idleStreak >= 3 {
					s.logger.Info("all workers idle, frontier empty — crawl complete")
					s.engine.frontier.Close()
					return
				}
			} else {
				idleStreak = 0
			}
		}
	}
}

// worker is a single crawl worker goroutine.
func (s *scheduler) worker(ctx context.Context, id int) {
	defer s.wg.Done()
	logger := s.logger.With("worker_id", id)

	for {
		// Mark as idle while waiting for work
		s.idleWorkers.Add(1)

		// Try to dequeue with short polling
		var req *types.Request
		for {
			req = s.engine.frontier.TryPop()
			if req != nil {
				break
			}

			// Check if frontier is closed (no more work coming)
			if s.engine.frontier.IsClosed() {
				s.idleWorkers.Add(-1)
				return
			}

			select {
			case <-ctx.Done():
				s.idleWorkers.Add(-1)
				return
			default:
			}

			// Brief sleep before next poll attempt
			time.Sleep(50 * time.Millisecond)
		}

		s.idleWorkers.Add(-1)

		// Apply per-domain politeness delay
		s.applyThrottle(req.Domain())

		s.engine.stats.ActiveWorkers.Add(1)
		s.processRequest(ctx, logger, req)
		s.engine.stats.ActiveWorkers.Add(-1)
	}
}

// processRequest handles a single request: fetch, parse, dispatch by role.
func (s *scheduler) processRequest(ctx context.Context, logger *slog.Logger, req *types.Request) {
	logger = logger.With("url", req.URLString(), "role", string(req.Role))

	fetchCtx, fetchCancel := context.WithTimeout(ctx, s.engine.cfg.Crawl.RequestTimeout)
	defer fetchCancel()

	s.engine.stats.RequestsSent.Add(1)
	resp, err := s.engine.fetcher.Fetch(fetchCtx, req)
	if err != nil {
		s.handleFetchError(logger, req, err)
		return
	}

	s.engine.stats.BytesDownloaded.Add(resp.ContentLength)
	logger.Debug("fetched", "status", resp.StatusCode, "size", resp.ContentLength, "duration", resp.FetchDuration)

	// Redirect and not-found pages come back as responses, not fetch
	// errors; they carry no book content.
	if !resp.IsSuccess() {
		s.engine.stats.ResponsesError.Add(1)
		if req.Role == types.RoleDetail {
			s.engine.budget.release(1)
		}
		logger.Warn("non-success response", "status", resp.StatusCode)
		return
	}
	s.engine.stats.ResponsesOK.Add(1)

	doc, err := resp.Document()
	if err != nil {
		s.engine.stats.ResponsesError.Add(1)
		if req.Role == types.RoleDetail {
			s.engine.budget.release(1)
		}
		logger.Warn("failed to parse HTML", "error", err)
		return
	}

	switch req.Role {
	case types.RoleList:
		s.engine.stats.ListPages.Add(1)
		s.handleList(logger, req, resp, doc)
	case types.RoleDetail:
		s.engine.stats.DetailPages.Add(1)
		s.handleDetail(logger, resp, doc)
	}
}

// handleList extracts book summaries from a shelf page, commits them
// against the result budget, and queues the next page.
func (s *scheduler) handleList(logger *slog.Logger, req *types.Request, resp *types.Response, doc *goquery.Document) {
	books := s.engine.lister.Extract(doc, resp.PageURL())
	s.engine.stats.BooksFound.Add(int64(len(books)))
	logger.Info("list page processed", "page", req.PageNo, "books", len(books))

	if len(books) == 0 {
		// Either past the last page or the shelf requires a login.
		logger.Warn("no books found on list page, stopping pagination", "page", req.PageNo)
		return
	}

	granted := s.engine.budget.reserve(len(books))
	if granted < len(books) {
		logger.Debug("result budget reached", "granted", granted, "found", len(books))
	}

	if s.engine.cfg.Crawl.CollectDetails {
		for _, summary := range books[:granted] {
			detailReq, err := types.NewRequest(summary.URL, types.RoleDetail)
			if err != nil {
				logger.Warn("invalid detail URL", "url", summary.URL, "error", err)
				s.engine.budget.release(1)
				continue
			}
			detailReq.MaxRetries = s.engine.cfg.Crawl.MaxRetries
			s.engine.frontier.Push(detailReq)
		}
	} else {
		for _, summary := range books[:granted] {
			s.engine.recordCh <- types.FromSummary(summary)
		}
	}

	if s.engine.budget.left() <= 0 {
		return
	}
	if req.PageNo >= s.engine.cfg.Crawl.MaxPages {
		logger.Info("max pages reached, stopping pagination", "page", req.PageNo)
		return
	}

	next := s.engine.lister.NextPage(doc, resp.PageURL(), req.PageNo)
	if next == nil {
		return
	}
	if !s.engine.visited.Add(*next) {
		return
	}
	nextReq, err := types.NewRequest(*next, types.RoleList)
	if err != nil {
		logger.Warn("invalid next page URL", "url", *next, "error", err)
		return
	}
	nextReq.PageNo = req.PageNo + 1
	nextReq.MaxRetries = s.engine.cfg.Crawl.MaxRetries
	s.engine.frontier.Push(nextReq)
}

// handleDetail resolves full book fields from a detail page.
func (s *scheduler) handleDetail(logger *slog.Logger, resp *types.Response, doc *goquery.Document) {
	detail := s.engine.resolver.Resolve(doc, resp.PageURL())
	logger.Debug("detail page resolved", "url", detail.URL)
	s.engine.recordCh <- detail
}

// handleFetchError handles fetch failures with retry logic.
func (s *scheduler) handleFetchError(logger *slog.Logger, req *types.Request, err error) {
	s.engine.stats.RequestsFailed.Add(1)

	var fetchErr *types.FetchError
	if errors.As(err, &fetchErr) && fetchErr.IsRetryable() && req.RetryCount < req.MaxRetries {
		req.RetryCount++
		req.Priority = types.PriorityRetry
		logger.Warn("retrying request",
			"retry", req.RetryCount,
			"max_retries", req.MaxRetries,
			"error", err,
		)
		// For 429: respect Retry-After before re-queuing
		if fetchErr.RetryAfter > 0 {
			logger.Info("rate limited, backing off", "retry_after", fetchErr.RetryAfter)
			time.Sleep(fetchErr.RetryAfter)
		}
		s.engine.frontier.Push(req)
		return
	}

	s.engine.stats.ResponsesError.Add(1)
	if req.Role == types.RoleDetail {
		s.engine.budget.release(1)
	}
	if fetchErr != nil && fetchErr.IsRetryable() {
		err = fmt.Errorf("%w: %v", types.ErrMaxRetries, err)
	}
	logger.Error("fetch failed permanently", "error", err, "retries", req.RetryCount)
}

// applyThrottle enforces per-domain politeness delays with jitter.
func (s *scheduler) applyThrottle(domain string) {
	delay := s.engine.cfg.Crawl.PolitenessDelay
	if delay <= 0 {
		return
	}

	s.throttleMu.Lock()
	t, ok := s.throttle[domain]
	if !ok {
		t = &domainThrottle{}
		s.throttle[domain] = t
	}
	s.throttleMu.Unlock()

	t.mu.Lock()
	defer t.mu.Unlock()

	target := fetcher.RandomDelay(delay)
	elapsed := time.Since(t.lastFetch)
	if elapsed < target {
		time.Sleep(target - elapsed)
	}
	t.lastFetch = time.Now()
}
