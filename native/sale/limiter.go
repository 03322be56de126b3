package sale

type limiterState interface {
	BuyWindowGet(buyer [20]byte, categoryID uint64) (*BuyLimitWindow, bool, error)
	BuyWindowPut(buyer [20]byte, categoryID uint64, window *BuyLimitWindow) error
}

// Limiter maintains the sliding per-buyer-per-category purchase windows.
// Windows are created lazily on first purchase and superseded rather than
// deleted once stale.
type Limiter struct {
	state limiterState
}

// NewLimiter constructs a rate limiter over the supplied state backend.
func NewLimiter(state limiterState) *Limiter {
	return &Limiter{state: state}
}

// advanceWindow returns the window state after accounting one more purchase
// attempt at the given height. An absent or expired window resets to a fresh
// single-count window; an open window increments.
func advanceWindow(prev *BuyLimitWindow, height, period uint64) *BuyLimitWindow {
	if prev == nil || prev.WindowStart == 0 || height-prev.WindowStart > period {
		return &BuyLimitWindow{Count: 1, WindowStart: height}
	}
	return &BuyLimitWindow{Count: prev.Count + 1, WindowStart: prev.WindowStart}
}

// RecordAndCheck advances the buyer's window for the category and persists
// it, returning the post-increment count. The caller compares the count
// against its limit after the fact: the increment survives even when the
// attempt is then rejected, so replayed attempts keep debiting the window.
func (l *Limiter) RecordAndCheck(buyer [20]byte, categoryID uint64, height, period uint64) (uint64, error) {
	if l == nil || l.state == nil {
		return 0, errNilState
	}
	prev, ok, err := l.state.BuyWindowGet(buyer, categoryID)
	if err != nil {
		return 0, err
	}
	if !ok {
		prev = nil
	}
	next := advanceWindow(prev, height, period)
	if err := l.state.BuyWindowPut(buyer, categoryID, next); err != nil {
		return 0, err
	}
	return next.Count, nil
}

// Window returns the current window for a buyer and category, if any.
func (l *Limiter) Window(buyer [20]byte, categoryID uint64) (*BuyLimitWindow, bool, error) {
	if l == nil || l.state == nil {
		return nil, false, errNilState
	}
	return l.state.BuyWindowGet(buyer, categoryID)
}
