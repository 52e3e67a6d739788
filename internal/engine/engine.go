package engine

import (
	"context"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"shelfstalk/internal/config"
	"shelfstalk/internal/extract"
	"shelfstalk/internal/types"
)

// Fetcher is the interface for page fetchers.
type Fetcher interface {
	Fetch(ctx context.Context, req *types.Request) (*types.Response, error)
	Close() error
}

// Storage is the interface for record sinks.
type Storage interface {
	Store(records []*types.BookDetail) error
	Close() error
	Name() string
}

// Stats tracks crawl statistics.
type Stats struct {
	RequestsSent    atomic.Int64
	RequestsFailed  atomic.Int64
	ResponsesOK     atomic.Int64
	ResponsesError  atomic.Int64
	ListPages       atomic.Int64
	DetailPages     atomic.Int64
	BooksFound      atomic.Int64
	BooksSaved      atomic.Int64
	BytesDownloaded atomic.Int64
	ActiveWorkers   atomic.Int32
	StartTime       time.Time
}

// Snapshot returns a copy of stats safe for logging.
func (s *Stats) Snapshot() map[string]any {
	return map[string]any{
		"requests_sent":    s.RequestsSent.Load(),
		"requests_failed":  s.RequestsFailed.Load(),
		"responses_ok":     s.ResponsesOK.Load(),
		"responses_error":  s.ResponsesError.Load(),
		"list_pages":       s.ListPages.Load(),
		"detail_pages":     s.DetailPages.Load(),
		"books_found":      s.BooksFound.Load(),
		"books_saved":      s.BooksSaved.Load(),
		"bytes_downloaded": s.BytesDownloaded.Load(),
		"elapsed":          time.Since(s.StartTime).String(),
	}
}

// budget hands out result slots up to a fixed total. Slots are reserved
// when a book is committed to (detail request enqueued or summary
// emitted), so concurrent workers cannot overshoot the target.
type budget struct {
	mu        sync.Mutex
	remaining int
}

func newBudget(total int) *budget {
	return &budget{remaining: total}
}

// reserve grants up to n slots and returns how many were granted.
func (b *budget) reserve(n int) int {
	b.mu.Lock()
	defer b.mu.Unlock()

	if n > b.remaining {
		n = b.remaining
	}
	b.remaining -= n
	return n
}

// release returns unused slots, e.g. after a permanent detail failure.
func (b *budget) release(n int) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.remaining += n
}

func (b *budget) left() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.remaining
}

// Engine orchestrates the crawl: it seeds shelf list pages, fans work
// out to a worker pool, and streams resolved books to storage.
type Engine struct {
	cfg      *config.Config
	logger   *slog.Logger
	frontier *Frontier
	seen     *extract.SeenSet
	visited  *extract.SeenSet
	lister   *extract.Lister
	resolver *extract.Resolver
	fetcher  Fetcher
	storage  Storage

	stats    *Stats
	budget   *budget
	recordCh chan *types.BookDetail

	ctx      context.Context
	cancel   context.CancelFunc
	writerWg sync.WaitGroup
	stopOnce sync.Once
	stopped  atomic.Bool
}

// New creates an Engine wired to the given fetcher and storage. The
// crawl context is created here so Stop is safe to call from another
// goroutine at any point in the engine's life.
func New(cfg *config.Config, logger *slog.Logger, fetcher Fetcher, storage Storage) *Engine {
	seen := extract.NewSeenSet()
	ctx, cancel := context.WithCancel(context.Background())
	return &Engine{
		cfg:      cfg,
		logger:   logger,
		frontier: NewFrontier(),
		seen:     seen,
		visited:  extract.NewSeenSet(),
		lister:   extract.NewLister(seen, logger),
		resolver: extract.NewResolver(logger),
		fetcher:  fetcher,
		storage:  storage,
		stats:    &Stats{},
		budget:   newBudget(cfg.Crawl.ResultsWanted),
		recordCh: make(chan *types.BookDetail, cfg.Crawl.Concurrency*4),
		ctx:      ctx,
		cancel:   cancel,
	}
}

// Run executes the crawl to completion. It blocks until the result
// budget is exhausted, pagination ends, or ctx is cancelled.
func (e *Engine) Run(ctx context.Context) error {
	defer e.cancel()

	// Propagate caller cancellation into the crawl context.
	go func() {
		select {
		case <-ctx.Done():
			e.Stop()
		case <-e.ctx.Done():
		}
	}()

	startURLs := e.cfg.Crawl.StartURLStrings()
	seeded := 0
	for _, rawURL := range startURLs {
		req, err := types.NewRequest(rawURL, types.RoleList)
		if err != nil {
			e.logger.Warn("skipping invalid start URL", "url", rawURL, "error", err)
			continue
		}
		req.PageNo = 1
		req.MaxRetries = e.cfg.Crawl.MaxRetries
		e.visited.Add(rawURL)
		e.frontier.Push(req)
		seeded++
	}
	if seeded == 0 {
		return types.ErrInvalidURL
	}

	e.stats.StartTime = time.Now()
	e.logger.Info("crawl starting",
		"start_urls", seeded,
		"results_wanted", e.cfg.Crawl.ResultsWanted,
		"max_pages", e.cfg.Crawl.MaxPages,
		"collect_details", e.cfg.Crawl.CollectDetails,
		"concurrency", e.cfg.Crawl.Concurrency,
	)

	e.writerWg.Add(1)
	go e.storeRecords()

	sched := newScheduler(e)
	sched.Start(e.ctx)
	sched.Wait()

	close(e.recordCh)
	e.writerWg.Wait()

	if err := e.fetcher.Close(); err != nil {
		e.logger.Error("fetcher close error", "error", err)
	}

	e.logger.Info("crawl finished", "stats", e.stats.Snapshot())
	if err := ctx.Err(); err != nil {
		return err
	}
	if e.stopped.Load() {
		return types.ErrCrawlStopped
	}
	return nil
}

// Stop aborts the crawl early. Safe to call from a signal handler.
func (e *Engine) Stop() {
	e.stopOnce.Do(func() {
		e.logger.Info("stopping crawl...")
		e.stopped.Store(true)
		e.frontier.Close()
		e.cancel()
	})
}

// Stats returns the live crawl statistics.
func (e *Engine) Stats() *Stats {
	return e.stats
}

// storeRecords persists resolved books from the record channel in
// batches sized by the storage config.
func (e *Engine) storeRecords() {
	defer e.writerWg.Done()
	batch := make([]*types.BookDetail, 0, e.cfg.Storage.BatchSize)

	flush := func() {
		if len(batch) == 0 {
			return
		}
		if err := e.storage.Store(batch); err != nil {
			e.logger.Error("storage error", "backend", e.storage.Name(), "error", err, "batch_size", len(batch))
		} else {
			e.stats.BooksSaved.Add(int64(len(batch)))
		}
		batch = batch[:0]
	}

	for record := range e.recordCh {
		batch = append(batch, record)
		if len(batch) >= e.cfg.Storage.BatchSize {
			flush()
		}
	}
	flush()

	if err := e.storage.Close(); err != nil {
		e.logger.Error("storage close error", "backend", e.storage.Name(), "error", err)
	}
}
