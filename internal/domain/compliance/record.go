package compliance

import (
	"context"
	"time"
)

// RecordKind identifies one tracked compliance category.
type RecordKind string

const (
	// KindMedicalExam is an admission/return-to-work occupational exam (ASO).
	KindMedicalExam RecordKind = "medical_exam"

	// KindPeriodicExam is a recurring occupational exam.
	KindPeriodicExam RecordKind = "periodic_exam"

	// KindTraining is a mandatory safety training certificate.
	KindTraining RecordKind = "training"

	// KindDocument is a company document with an expiry date.
	KindDocument RecordKind = "document"
)

// AllKinds lists the kinds in their display order.
var AllKinds = []RecordKind{KindMedicalExam, KindPeriodicExam, KindTraining, KindDocument}

var kindCategories = map[RecordKind]string{
	KindMedicalExam:  "Medical exam",
	KindPeriodicExam: "Periodic exam",
	KindTraining:     "Training",
	KindDocument:     "Document",
}

// IsValid reports whether k is a known kind.
func (k RecordKind) IsValid() bool {
	_, ok := kindCategories[k]
	return ok
}

// Category is the human display label of the kind.
func (k RecordKind) Category() string {
	if c, ok := kindCategories[k]; ok {
		return c
	}
	return string(k)
}

// Rank orders kinds by their position in AllKinds; unknown kinds sort last.
func (k RecordKind) Rank() int {
	for i, known := range AllKinds {
		if known == k {
			return i
		}
	}
	return len(AllKinds)
}

// Record is one dated compliance item as projected by a RecordSource.
type Record struct {
	Kind         RecordKind
	SourceID     string
	TenantID     string
	SubjectLabel string
	Label        string
	DueDate      time.Time
}

// RecordQuery narrows a RecordSource listing.  An empty TenantID lists every
// tenant; nil bounds are open.  Both bounds are inclusive calendar dates.
type RecordQuery struct {
	TenantID string
	DueFrom  *time.Time
	DueTo    *time.Time
}

// Contains reports whether the calendar date of due falls inside q's bounds.
func (q RecordQuery) Contains(due time.Time) bool {
	d := DateOf(due)
	if q.DueFrom != nil && d.Before(DateOf(*q.DueFrom)) {
		return false
	}
	if q.DueTo != nil && d.After(DateOf(*q.DueTo)) {
		return false
	}
	return true
}

// RecordSource projects one kind of compliance item as dated records.
// Implementations must honour the tenant filter: a record of another tenant
// must never be returned for a non-empty TenantID.
type RecordSource interface {
	Kind() RecordKind
	ListDue(ctx context.Context, q RecordQuery) ([]Record, error)
}

// TenantLister enumerates the tenants that own compliance data.
type TenantLister interface {
	ListTenantIDs(ctx context.Context) ([]string, error)
}
