package repositories

import (
	"context"
	"fmt"
	"strconv"
	"time"

	"github.com/MosandosSantos/cronos-sub000/internal/domain/compliance"
	"github.com/MosandosSantos/cronos-sub000/internal/infrastructure/database/postgres"
	"github.com/MosandosSantos/cronos-sub000/internal/infrastructure/monitoring/logging"
	"github.com/MosandosSantos/cronos-sub000/pkg/errors"
)

// Every record query selects (id, tenant_id, subject_label, label, due_date)
// and takes $1 tenant ('' for all), $2 due-from and $3 due-to (NULL for open).
const (
	examQuery = `
SELECT e.id, e.tenant_id, emp.full_name, e.exam_type, (e.performed_on + e.validity_days) AS due_date
FROM occupational_exams e
JOIN employees emp ON emp.id = e.employee_id
WHERE e.kind = '%s'
  AND ($1 = '' OR e.tenant_id = $1)
  AND ($2::date IS NULL OR (e.performed_on + e.validity_days) >= $2::date)
  AND ($3::date IS NULL OR (e.performed_on + e.validity_days) <= $3::date)
ORDER BY due_date, e.id`

	trainingQuery = `
SELECT t.id, t.tenant_id, emp.full_name, t.title, (t.completed_on + t.validity_days) AS due_date
FROM trainings t
JOIN employees emp ON emp.id = t.employee_id
WHERE ($1 = '' OR t.tenant_id = $1)
  AND ($2::date IS NULL OR (t.completed_on + t.validity_days) >= $2::date)
  AND ($3::date IS NULL OR (t.completed_on + t.validity_days) <= $3::date)
ORDER BY due_date, t.id`

	documentQuery = `
SELECT d.id, d.tenant_id, tn.name, d.title, (d.issued_on + d.validity_days) AS due_date
FROM company_documents d
JOIN tenants tn ON tn.id = d.tenant_id
WHERE ($1 = '' OR d.tenant_id = $1)
  AND ($2::date IS NULL OR (d.issued_on + d.validity_days) >= $2::date)
  AND ($3::date IS NULL OR (d.issued_on + d.validity_days) <= $3::date)
ORDER BY due_date, d.id`
)

type sqlRecordSource struct {
	kind     compliance.RecordKind
	query    string
	log      logging.Logger
	executor queryExecutor
}

func newSQLRecordSource(conn *postgres.Connection, kind compliance.RecordKind, query string, log logging.Logger) compliance.RecordSource {
	return &sqlRecordSource{kind: kind, query: query, log: log, executor: conn.DB()}
}

// NewMedicalExamSource lists non-periodic occupational exams.
func NewMedicalExamSource(conn *postgres.Connection, log logging.Logger) compliance.RecordSource {
	return newSQLRecordSource(conn, compliance.KindMedicalExam, fmt.Sprintf(examQuery, "medical"), log)
}

// NewPeriodicExamSource lists periodic occupational exams.
func NewPeriodicExamSource(conn *postgres.Connection, log logging.Logger) compliance.RecordSource {
	return newSQLRecordSource(conn, compliance.KindPeriodicExam, fmt.Sprintf(examQuery, "periodic"), log)
}

// NewTrainingSource lists training certificates.
func NewTrainingSource(conn *postgres.Connection, log logging.Logger) compliance.RecordSource {
	return newSQLRecordSource(conn, compliance.KindTraining, trainingQuery, log)
}

// NewDocumentSource lists company documents; the subject is the tenant name.
func NewDocumentSource(conn *postgres.Connection, log logging.Logger) compliance.RecordSource {
	return newSQLRecordSource(conn, compliance.KindDocument, documentQuery, log)
}

// NewRecordSources returns one source per record kind, in display order.
func NewRecordSources(conn *postgres.Connection, log logging.Logger) []compliance.RecordSource {
	return []compliance.RecordSource{
		NewMedicalExamSource(conn, log),
		NewPeriodicExamSource(conn, log),
		NewTrainingSource(conn, log),
		NewDocumentSource(conn, log),
	}
}

func (s *sqlRecordSource) Kind() compliance.RecordKind { return s.kind }

func (s *sqlRecordSource) ListDue(ctx context.Context, q compliance.RecordQuery) ([]compliance.Record, error) {
	rows, err := s.executor.QueryContext(ctx, s.query, q.TenantID, nullDate(q.DueFrom), nullDate(q.DueTo))
	if err != nil {
		s.log.Error("record query failed", logging.String("kind", string(s.kind)), logging.Err(err))
		return nil, errors.Wrap(err, errors.ErrCodeDatabaseError, "failed to list "+string(s.kind)+" records")
	}
	defer rows.Close()

	var out []compliance.Record
	for rows.Next() {
		r, err := s.scanRecord(rows)
		if err != nil {
			return nil, errors.Wrap(err, errors.ErrCodeDatabaseError, "failed to scan "+string(s.kind)+" record")
		}
		out = append(out, r)
	}
	if err := rows.Err(); err != nil {
		return nil, errors.Wrap(err, errors.ErrCodeDatabaseError, "failed to iterate "+string(s.kind)+" records")
	}
	return out, nil
}

func (s *sqlRecordSource) scanRecord(sc scanner) (compliance.Record, error) {
	var (
		id      int64
		r       compliance.Record
		dueDate time.Time
	)
	if err := sc.Scan(&id, &r.TenantID, &r.SubjectLabel, &r.Label, &dueDate); err != nil {
		return r, err
	}
	r.Kind = s.kind
	r.SourceID = strconv.FormatInt(id, 10)
	r.DueDate = compliance.DateOf(dueDate)
	return r, nil
}
