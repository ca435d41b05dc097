package compliance

import (
	"fmt"
	"strconv"
	"strings"
	"time"

	pkgerrors "github.com/MosandosSantos/cronos-sub000/pkg/errors"
)

// GlobalScope is the scope key of the installation-wide window row.
const GlobalScope = "global"

// DefaultOffsets are the alert windows created on first read.
var DefaultOffsets = []int{30, 60, 90}

// ─────────────────────────────────────────────────────────────────────────────
// Bucket
// ─────────────────────────────────────────────────────────────────────────────

// Bucket is a classification slot.  BucketExpired holds overdue items and
// bucket k (k >= 1) holds items due within (offset[k-1], offset[k]] days, with
// bucket 1 starting at day 0.
type Bucket int

// BucketExpired holds items with a negative day count.
const BucketExpired Bucket = 0

// Name is the wire name: "expired", "due1", "due2", ...
func (b Bucket) Name() string {
	if b == BucketExpired {
		return "expired"
	}
	return "due" + strconv.Itoa(int(b))
}

func (b Bucket) String() string { return b.Name() }

// ─────────────────────────────────────────────────────────────────────────────
// AlertWindows
// ─────────────────────────────────────────────────────────────────────────────

// AlertWindows is the ordered list of day offsets that split the due horizon
// into buckets.  The classic configuration has three offsets.
type AlertWindows struct {
	ID        int64     `json:"id"`
	Scope     string    `json:"scope"`
	Offsets   []int     `json:"offsets"`
	CreatedAt time.Time `json:"createdAt"`
}

// NewAlertWindows builds and validates a window set for scope.
func NewAlertWindows(scope string, offsets []int) (*AlertWindows, error) {
	w := &AlertWindows{Scope: scope, Offsets: append([]int(nil), offsets...)}
	if err := w.Validate(); err != nil {
		return nil, err
	}
	return w, nil
}

// DefaultAlertWindows returns the default window set for scope.
func DefaultAlertWindows(scope string) *AlertWindows {
	return &AlertWindows{Scope: scope, Offsets: append([]int(nil), DefaultOffsets...)}
}

// Validate requires at least one offset, all positive and strictly increasing.
func (w *AlertWindows) Validate() error {
	if len(w.Offsets) == 0 {
		return pkgerrors.New(pkgerrors.ErrCodeAlertWindowsInvalid, "alert windows must have at least one offset")
	}
	prev := 0
	for i, off := range w.Offsets {
		if off <= 0 {
			return pkgerrors.Newf(pkgerrors.ErrCodeAlertWindowsInvalid, "offset %d must be positive, got %d", i+1, off)
		}
		if off <= prev {
			return pkgerrors.Newf(pkgerrors.ErrCodeAlertWindowsInvalid,
				"offsets must be strictly increasing: %d follows %d", off, prev)
		}
		prev = off
	}
	return nil
}

// Buckets lists every bucket in order, expired first.
func (w *AlertWindows) Buckets() []Bucket {
	out := make([]Bucket, 0, len(w.Offsets)+1)
	out = append(out, BucketExpired)
	for i := range w.Offsets {
		out = append(out, Bucket(i+1))
	}
	return out
}

// Horizon is the last offset; nothing beyond it is reported.
func (w *AlertWindows) Horizon() int {
	if len(w.Offsets) == 0 {
		return 0
	}
	return w.Offsets[len(w.Offsets)-1]
}

// Classify places daysToDue in a bucket.  ok is false past the horizon.
func (w *AlertWindows) Classify(daysToDue int) (b Bucket, ok bool) {
	if daysToDue < 0 {
		return BucketExpired, true
	}
	for i, off := range w.Offsets {
		if daysToDue <= off {
			return Bucket(i + 1), true
		}
	}
	return 0, false
}

// ParseBucket resolves a filter name.  Matching is case-insensitive and
// ignores surrounding spaces; ok is false for anything unrecognised, including
// dueK beyond the configured number of windows.
func (w *AlertWindows) ParseBucket(name string) (Bucket, bool) {
	n := strings.ToLower(strings.TrimSpace(name))
	if n == "expired" {
		return BucketExpired, true
	}
	if !strings.HasPrefix(n, "due") {
		return 0, false
	}
	k, err := strconv.Atoi(n[len("due"):])
	if err != nil || k < 1 || k > len(w.Offsets) {
		return 0, false
	}
	return Bucket(k), true
}

// DueRange is the inclusive calendar-date interval of bucket b relative to
// today.  A nil from means unbounded in the past.
func (w *AlertWindows) DueRange(b Bucket, today time.Time) (from, to *time.Time) {
	day := DateOf(today)
	if b == BucketExpired {
		t := day.AddDate(0, 0, -1)
		return nil, &t
	}
	k := int(b)
	if k < 1 || k > len(w.Offsets) {
		panic(fmt.Sprintf("compliance: bucket %d out of range", k))
	}
	lo := 0
	if k > 1 {
		lo = w.Offsets[k-2] + 1
	}
	f := day.AddDate(0, 0, lo)
	t := day.AddDate(0, 0, w.Offsets[k-1])
	return &f, &t
}

// HorizonRange is the interval covering every bucket: everything due up to
// today + Horizon, including all overdue items.
func (w *AlertWindows) HorizonRange(today time.Time) (from, to *time.Time) {
	t := DateOf(today).AddDate(0, 0, w.Horizon())
	return nil, &t
}
