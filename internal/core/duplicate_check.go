package core

import (
	"context"
	"log"
	"sync"
	"time"
)

// DuplicateChecker runs the advisory "number already used?" check behind a debounce.
//
// Each Schedule call takes the next sequence number. A response is applied only if
// its sequence number is still the latest issued, so a slow response to an older
// keystroke can never overwrite the answer for a newer one.
type DuplicateChecker struct {
	repo     DocumentRepository
	delay    time.Duration
	timeout  time.Duration
	onResult func(DuplicateCheckResult)

	mu        sync.Mutex
	seq       uint64
	timer     *time.Timer
	latest    *DuplicateCheckResult
	latestSeq uint64
	inflight  sync.WaitGroup
}

// NewDuplicateChecker builds a checker. onResult may be nil; it is called from a
// background goroutine with each accepted result.
func NewDuplicateChecker(repo DocumentRepository, delay time.Duration, onResult func(DuplicateCheckResult)) *DuplicateChecker {
	return &DuplicateChecker{
		repo:     repo,
		delay:    delay,
		timeout:  10 * time.Second,
		onResult: onResult,
	}
}

// Schedule (re)starts the debounce timer for a check of number/date. It returns the
// sequence number assigned to this request.
func (c *DuplicateChecker) Schedule(docType DocumentType, number, date string, excludeID int) uint64 {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.seq++
	seq := c.seq
	if c.timer != nil && c.timer.Stop() {
		// The superseded check never started.
		c.inflight.Done()
	}
	c.inflight.Add(1)
	c.timer = time.AfterFunc(c.delay, func() {
		defer c.inflight.Done()
		c.run(seq, docType, number, date, excludeID)
	})
	return seq
}

func (c *DuplicateChecker) run(seq uint64, docType DocumentType, number, date string, excludeID int) {
	ctx, cancel := context.WithTimeout(context.Background(), c.timeout)
	defer cancel()

	res, err := c.repo.CheckDuplicate(ctx, docType, number, date, excludeID)

	c.mu.Lock()
	if seq != c.seq {
		c.mu.Unlock()
		log.Printf("duplicate check %s %q: discarding stale response #%d", docType, number, seq)
		return
	}
	if err != nil {
		// The previous answer belongs to another number.
		c.latest = nil
		c.mu.Unlock()
		log.Printf("duplicate check %s %q: %v", docType, number, err)
		return
	}
	c.latest = res
	c.latestSeq = seq
	c.mu.Unlock()

	if c.onResult != nil {
		c.onResult(*res)
	}
}

// Latest returns the result for the most recently scheduled check. ok is false while
// that check is pending or if it failed.
func (c *DuplicateChecker) Latest() (DuplicateCheckResult, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.latest == nil || c.latestSeq != c.seq {
		return DuplicateCheckResult{}, false
	}
	return *c.latest, true
}

// Wait blocks until every scheduled check has finished or been superseded.
func (c *DuplicateChecker) Wait() {
	c.inflight.Wait()
}

// FinancialYear returns the starting calendar year of the Indian financial year
// (April to March) containing date. Unparsable dates return 0.
func FinancialYear(date string) int {
	t, err := time.Parse("2006-01-02", date)
	if err != nil {
		return 0
	}
	if t.Month() < time.April {
		return t.Year() - 1
	}
	return t.Year()
}

// ClassifyConflict compares the date of the existing document with the date being
// entered. Numbering restarts every financial year, so a clash within the same year
// is the serious case.
func ClassifyConflict(existingDate, date string) ConflictType {
	fy := FinancialYear(date)
	if fy != 0 && fy == FinancialYear(existingDate) {
		return ConflictSameFinancialYear
	}
	return ConflictOtherFinancialYear
}
