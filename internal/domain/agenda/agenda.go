// Package agenda models the unified calendar: persisted CRM tasks merged
// with entries derived from contract renewals and compliance due dates.
package agenda

import (
	"context"
	"strings"
	"time"

	"github.com/MosandosSantos/cronos-sub000/internal/domain/compliance"
	pkgerrors "github.com/MosandosSantos/cronos-sub000/pkg/errors"
)

// ─────────────────────────────────────────────────────────────────────────────
// TaskStatus enumeration
// ─────────────────────────────────────────────────────────────────────────────

// TaskStatus is the lifecycle state of an agenda entry.
type TaskStatus string

const (
	// StatusOpen: pending work.  Derived entries are always open.
	StatusOpen TaskStatus = "open"

	// StatusDone: completed CRM task.
	StatusDone TaskStatus = "done"
)

// ParseTaskStatus parses a status filter.  Empty input returns ("", nil),
// meaning no filter.
func ParseTaskStatus(s string) (TaskStatus, error) {
	switch TaskStatus(strings.ToLower(strings.TrimSpace(s))) {
	case "":
		return "", nil
	case StatusOpen:
		return StatusOpen, nil
	case StatusDone:
		return StatusDone, nil
	default:
		return "", pkgerrors.Newf(pkgerrors.ErrCodeTaskStatusInvalid, "unknown task status %q", s)
	}
}

// ─────────────────────────────────────────────────────────────────────────────
// Origin enumeration
// ─────────────────────────────────────────────────────────────────────────────

// Origin names where an entry came from.
type Origin string

const (
	OriginCRMTask         Origin = "crm_task"
	OriginContractRenewal Origin = "contract_renewal"
)

// OriginOf maps a compliance kind to its agenda origin.
func OriginOf(kind compliance.RecordKind) Origin { return Origin(kind) }

// ─────────────────────────────────────────────────────────────────────────────
// Entry references
// ─────────────────────────────────────────────────────────────────────────────

// EntryRef identifies the thing behind an entry.  It is either Persisted (a
// CRM task row) or Derived (computed from a source record, never stored).
type EntryRef interface {
	// ID is the wire identifier of the entry.
	ID() string
	isEntryRef()
}

// Persisted points at a stored CRM task.
type Persisted struct {
	TaskID string
}

func (p Persisted) ID() string { return p.TaskID }
func (Persisted) isEntryRef()  {}

// Derived points at the source record of a synthetic entry.
type Derived struct {
	Kind     Origin
	SourceID string
}

// ID is "<kind>-<sourceId>".
func (d Derived) ID() string { return string(d.Kind) + "-" + d.SourceID }
func (Derived) isEntryRef()  {}

// LeadRef links a CRM task to its lead.
type LeadRef struct {
	ID   string `json:"id"`
	Name string `json:"name"`
}

// Entry is one row of the unified agenda.
type Entry struct {
	Ref      EntryRef
	Title    string
	DateTime time.Time
	Status   TaskStatus
	Origin   Origin
	Lead     *LeadRef
}

// ID is the wire identifier.
func (e Entry) ID() string { return e.Ref.ID() }

// ─────────────────────────────────────────────────────────────────────────────
// Persisted tasks and external feeds
// ─────────────────────────────────────────────────────────────────────────────

// Task is a CRM task row.
type Task struct {
	ID       string
	TenantID string
	OwnerID  string
	Title    string
	DueAt    time.Time
	Status   TaskStatus
	Lead     *LeadRef
}

// ToEntry projects t onto the agenda.
func (t Task) ToEntry() Entry {
	return Entry{
		Ref:      Persisted{TaskID: t.ID},
		Title:    t.Title,
		DateTime: t.DueAt,
		Status:   t.Status,
		Origin:   OriginCRMTask,
		Lead:     t.Lead,
	}
}

// TaskQuery narrows a task listing.  Empty strings mean "any"; From and To
// are inclusive instants and nil leaves that side open.
type TaskQuery struct {
	TenantID string
	OwnerID  string
	Status   TaskStatus
	From     *time.Time
	To       *time.Time
}

// TaskFeed lists CRM tasks.
type TaskFeed interface {
	ListTasks(ctx context.Context, q TaskQuery) ([]Task, error)
}

// ContractRenewal is the renewal date of a client contract.
type ContractRenewal struct {
	ContractID  string
	TenantID    string
	ClientName  string
	RenewalDate time.Time
}

// ToEntry projects r as a derived agenda entry.
func (r ContractRenewal) ToEntry() Entry {
	return Entry{
		Ref:      Derived{Kind: OriginContractRenewal, SourceID: r.ContractID},
		Title:    SyntheticTitle("Contract renewal", r.ClientName),
		DateTime: compliance.DateOf(r.RenewalDate),
		Status:   StatusOpen,
		Origin:   OriginContractRenewal,
	}
}

// ContractFeed lists contract renewals due in a date range.  A nil bound is
// open.
type ContractFeed interface {
	ListRenewals(ctx context.Context, tenantID string, from, to *time.Time) ([]ContractRenewal, error)
}

// RecordEntry projects a compliance record as a derived agenda entry.
func RecordEntry(r compliance.Record) Entry {
	origin := OriginOf(r.Kind)
	return Entry{
		Ref:      Derived{Kind: origin, SourceID: r.SourceID},
		Title:    SyntheticTitle(r.Label, r.SubjectLabel),
		DateTime: compliance.DateOf(r.DueDate),
		Status:   StatusOpen,
		Origin:   origin,
	}
}

// SyntheticTitle joins a label and its subject, dropping empty parts.
func SyntheticTitle(label, subject string) string {
	label, subject = strings.TrimSpace(label), strings.TrimSpace(subject)
	switch {
	case label == "":
		return subject
	case subject == "":
		return label
	default:
		return label + " - " + subject
	}
}
