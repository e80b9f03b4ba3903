// Package stream implements the incremental filter stream: it watches a line
// store, applies the filter engine fully or incrementally as lines arrive and
// settings change, and emits ordered view updates plus line-count telemetry.
package stream

import (
	"context"
	"log"
	"sync"
	"time"

	"github.com/dustin/go-humanize"

	"github.com/tailview/tailview/engine"
	"github.com/tailview/tailview/filter"
	"github.com/tailview/tailview/logstore"
)

// Options configures a Stream.
type Options struct {
	// TotalsInterval is the sampling period for the total-line-count channel.
	TotalsInterval time.Duration
}

const defaultTotalsInterval = 100 * time.Millisecond

// request is a unit of work for the stream's worker goroutine. All state
// transitions go through the worker, which serializes settings changes,
// append notifications, resets, and completed background passes.
type request interface{ streamRequest() }

type settingsReq struct {
	root         *filter.Node
	contextLines int
}

type appendReq struct{}

type resetReq struct{}

type scanDoneReq struct {
	epoch uint64
	gen   uint64
	snap  []logstore.Line
	view  []engine.FilteredLine
}

func (settingsReq) streamRequest() {}
func (appendReq) streamRequest()   {}
func (resetReq) streamRequest()    {}
func (scanDoneReq) streamRequest() {}

// tailEntry is bookkeeping for one recently processed line. The worker keeps
// the last contextLines processed lines so a new match can pull trailing
// context back in without rescanning the store.
type tailEntry struct {
	num     uint64
	text    string
	matched bool
	emitted bool
}

// Stream is the stateful engine between a line store and its consumers.
type Stream struct {
	store *logstore.Store
	opts  Options

	reqs      chan request
	done      chan struct{}
	wg        sync.WaitGroup
	scanWg    sync.WaitGroup
	closeOnce sync.Once

	subMu  sync.Mutex
	subs   []chan Update
	errs   chan LineError
	totals chan uint64

	// Worker-owned state. Touched only by the run goroutine.
	configured     bool
	root           *filter.Node
	contextLines   int
	epoch          uint64
	gen            uint64
	pendingScan    bool
	initialPending bool
	processed      int // lines of the current generation already processed
	lastEmitted    uint64
	lastMatch      uint64
	tail           []tailEntry
}

// New creates a Stream over the given store. Call Start before using it.
func New(store *logstore.Store, opts Options) *Stream {
	if opts.TotalsInterval <= 0 {
		opts.TotalsInterval = defaultTotalsInterval
	}
	return &Stream{
		store:          store,
		opts:           opts,
		reqs:           make(chan request, 64),
		done:           make(chan struct{}),
		errs:           make(chan LineError, 64),
		totals:         make(chan uint64, 1),
		initialPending: true,
		gen:            store.Generation(),
	}
}

// Start launches the worker and telemetry goroutines. Call it once.
func (s *Stream) Start(ctx context.Context) {
	s.wg.Add(2)
	go s.run(ctx)
	go s.totalsLoop(ctx)
}

// Close stops the stream, delivers the final line count, and closes all
// subscriber channels. Safe to call more than once.
func (s *Stream) Close() {
	s.closeOnce.Do(func() {
		close(s.done)
		s.wg.Wait()
		s.scanWg.Wait()

		// The throttle may have skipped intermediate samples; the final value
		// is always delivered.
		s.sendTotal(uint64(s.store.Len()))
		close(s.totals)
		close(s.errs)

		s.subMu.Lock()
		for _, ch := range s.subs {
			close(ch)
		}
		s.subs = nil
		s.subMu.Unlock()
	})
}

// Subscribe registers a consumer. Updates arrive in emission order on the
// returned channel, which is closed by Close.
func (s *Stream) Subscribe() <-chan Update {
	ch := make(chan Update, 64)
	s.subMu.Lock()
	s.subs = append(s.subs, ch)
	s.subMu.Unlock()
	return ch
}

// Errors returns the side channel for line-scoped evaluation failures.
func (s *Stream) Errors() <-chan LineError { return s.errs }

// Totals returns the throttled total-line-count channel. Samples coalesce;
// the latest value wins, and the final value is delivered on Close.
func (s *Stream) Totals() <-chan uint64 { return s.totals }

// UpdateFilterSettings replaces the active predicate root and context window.
// It always forces a full Replace pass, computed against the store state at
// the moment the settings are applied. The root is cloned, so the caller may
// keep mutating its tree afterwards.
func (s *Stream) UpdateFilterSettings(root *filter.Node, contextLines int) {
	if contextLines < 0 {
		contextLines = 0
	}
	s.post(settingsReq{root: root.Clone(), contextLines: contextLines})
}

// NotifyAppend tells the stream that new lines were appended to the store.
func (s *Stream) NotifyAppend() {
	s.post(appendReq{})
}

// Reset clears the already-emitted bookkeeping and marks the next update as a
// full Replace carrying the initial-load flag. Call it when the line source
// resets.
func (s *Stream) Reset() {
	s.post(resetReq{})
}

func (s *Stream) post(r request) {
	select {
	case s.reqs <- r:
	case <-s.done:
	}
}

func (s *Stream) run(ctx context.Context) {
	defer s.wg.Done()
	for {
		select {
		case <-ctx.Done():
			return
		case <-s.done:
			return
		case req := <-s.reqs:
			switch r := req.(type) {
			case settingsReq:
				s.configured = true
				s.root = r.root
				s.contextLines = r.contextLines
				s.launchScan()
			case resetReq:
				s.resetBookkeeping()
				if s.configured {
					s.launchScan()
				}
			case appendReq:
				// While a full pass is in flight its completion handler picks
				// up whatever arrived after the snapshot.
				if !s.configured || s.pendingScan {
					continue
				}
				s.incremental()
			case scanDoneReq:
				s.applyScan(r)
			}
		}
	}
}

func (s *Stream) resetBookkeeping() {
	s.epoch++ // Invalidate any in-flight pass
	s.pendingScan = false
	s.initialPending = true
	s.processed = 0
	s.lastEmitted = 0
	s.lastMatch = 0
	s.tail = nil
	s.gen = s.store.Generation()
}

// launchScan starts a full background pass under a new settings epoch.
func (s *Stream) launchScan() {
	s.epoch++
	s.pendingScan = true

	epoch := s.epoch
	gen := s.store.Generation()
	snap := s.store.Snapshot()
	root := s.root
	ctxLines := s.contextLines

	s.scanWg.Add(1)
	go func() {
		defer s.scanWg.Done()
		view := engine.Scan(snap, root, engine.Options{
			ContextLines: ctxLines,
			OnLineError:  s.reportLineError,
		})
		s.post(scanDoneReq{epoch: epoch, gen: gen, snap: snap, view: view})
	}()
}

// applyScan installs the result of a completed background pass, unless a
// newer settings epoch has superseded it.
func (s *Stream) applyScan(r scanDoneReq) {
	if r.epoch != s.epoch {
		return // Stale pass; last writer wins
	}
	s.pendingScan = false

	if r.gen != s.store.Generation() {
		// The store was cleared under the pass; its snapshot is from a dead
		// numbering generation.
		s.gen = s.store.Generation()
		s.launchScan()
		return
	}

	s.gen = r.gen
	s.processed = len(r.snap)
	s.rebuildTail(r.snap, r.view)

	initial := s.initialPending
	s.initialPending = false
	s.emit(Update{Kind: UpdateReplace, Lines: r.view, InitialLoadComplete: initial})

	log.Printf("stream: replace pass done: %d of %d lines included (%s in store)",
		len(r.view), len(r.snap), humanize.Bytes(uint64(s.store.SizeBytes())))

	// Lines appended after the snapshot go out as a separate Append, never
	// merged into the Replace.
	s.incremental()
}

// rebuildTail derives the trailing bookkeeping window from a full view.
func (s *Stream) rebuildTail(snap []logstore.Line, view []engine.FilteredLine) {
	s.lastEmitted = 0
	s.lastMatch = 0
	if len(view) > 0 {
		s.lastEmitted = view[len(view)-1].Num
	}
	for i := len(view) - 1; i >= 0; i-- {
		if !view[i].Context {
			s.lastMatch = view[i].Num
			break
		}
	}

	k := min(s.contextLines, len(snap))
	s.tail = s.tail[:0]
	if k == 0 {
		return
	}
	start := len(snap) - k
	firstNum := snap[start].Num

	emitted := make(map[uint64]bool, k)
	matched := make(map[uint64]bool, k)
	for i := len(view) - 1; i >= 0; i-- {
		if view[i].Num < firstNum {
			break
		}
		emitted[view[i].Num] = true
		matched[view[i].Num] = !view[i].Context
	}

	for _, ln := range snap[start:] {
		s.tail = append(s.tail, tailEntry{
			num:     ln.Num,
			text:    ln.Text,
			matched: matched[ln.Num],
			emitted: emitted[ln.Num],
		})
	}
}

// incremental evaluates lines appended since the last processed position and
// emits an Append for everything newly included. It falls back to a full pass
// whenever the step would change the inclusion status of a line that was
// already emitted.
func (s *Stream) incremental() {
	if s.store.Generation() != s.gen {
		s.gen = s.store.Generation()
		s.launchScan()
		return
	}

	snap := s.store.Snapshot()
	if len(snap) <= s.processed {
		return
	}
	newLines := snap[s.processed:]
	ctx := uint64(s.contextLines)

	// Working set: the retained tail plus the new batch, in line order.
	work := make([]tailEntry, 0, len(s.tail)+len(newLines))
	work = append(work, s.tail...)
	for _, ln := range newLines {
		work = append(work, tailEntry{
			num:     ln.Num,
			text:    ln.Text,
			matched: engine.MatchLine(s.root, ln, s.reportLineError),
		})
	}

	include := make([]bool, len(work))

	// Forward context, seeded with the last match before the window.
	prevMatch := s.lastMatch
	for i := range work {
		if work[i].matched {
			prevMatch = work[i].num
			include[i] = true
			continue
		}
		if prevMatch != 0 && work[i].num-prevMatch <= ctx {
			include[i] = true
		}
	}

	// Backward context from matches inside the window.
	var nextMatch uint64
	for i := len(work) - 1; i >= 0; i-- {
		if work[i].matched {
			nextMatch = work[i].num
			continue
		}
		if nextMatch != 0 && nextMatch-work[i].num <= ctx {
			include[i] = true
		}
	}

	var fresh []engine.FilteredLine
	for i := range work {
		if !include[i] || work[i].emitted {
			continue
		}
		if work[i].num <= s.lastEmitted {
			// A leading context window reached back past a line that was
			// skipped before the last emitted one. Appending it now would
			// break emission order, so recompute the whole view instead.
			s.launchScan()
			return
		}
		fresh = append(fresh, engine.FilteredLine{
			Num:     work[i].num,
			Text:    work[i].text,
			Context: !work[i].matched,
		})
	}

	s.processed = len(snap)
	for i := range work {
		if include[i] {
			work[i].emitted = true
		}
		if work[i].matched {
			s.lastMatch = work[i].num
		}
	}
	if len(fresh) > 0 {
		s.lastEmitted = fresh[len(fresh)-1].Num
		s.emit(Update{Kind: UpdateAppend, Lines: fresh})
	}

	k := min(int(ctx), len(work))
	s.tail = append(s.tail[:0], work[len(work)-k:]...)
}

func (s *Stream) emit(u Update) {
	s.subMu.Lock()
	subs := make([]chan Update, len(s.subs))
	copy(subs, s.subs)
	s.subMu.Unlock()

	for _, ch := range subs {
		select {
		case ch <- u:
		case <-s.done:
			return
		}
	}
}

func (s *Stream) reportLineError(num uint64, err error) {
	le := LineError{Num: num, Err: err}
	select {
	case s.errs <- le:
	default:
		log.Printf("stream: error channel full, dropping: %v", le)
	}
}

func (s *Stream) totalsLoop(ctx context.Context) {
	defer s.wg.Done()
	ticker := time.NewTicker(s.opts.TotalsInterval)
	defer ticker.Stop()

	var last uint64
	sent := false
	for {
		select {
		case <-ctx.Done():
			return
		case <-s.done:
			return
		case <-ticker.C:
			n := uint64(s.store.Len())
			if sent && n == last {
				continue
			}
			s.sendTotal(n)
			last, sent = n, true
		}
	}
}

// sendTotal delivers a sample, replacing a stale undelivered one.
func (s *Stream) sendTotal(n uint64) {
	for {
		select {
		case s.totals <- n:
			return
		default:
			select {
			case <-s.totals:
			default:
			}
		}
	}
}
