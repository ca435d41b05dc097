package repositories

import (
	"context"
	"database/sql"
	"errors"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/suite"

	"github.com/MosandosSantos/cronos-sub000/internal/domain/compliance"
	"github.com/MosandosSantos/cronos-sub000/internal/infrastructure/database/postgres"
	"github.com/MosandosSantos/cronos-sub000/internal/infrastructure/monitoring/logging"
	pkgerrors "github.com/MosandosSantos/cronos-sub000/pkg/errors"
)

type RecordSourceTestSuite struct {
	suite.Suite
	mock sqlmock.Sqlmock
	db   *sql.DB
	conn *postgres.Connection
}

func (s *RecordSourceTestSuite) SetupTest() {
	var err error
	s.db, s.mock, err = sqlmock.New()
	s.Require().NoError(err)
	s.conn = postgres.NewConnectionWithDB(s.db, logging.NewNopLogger())
}

func (s *RecordSourceTestSuite) TearDownTest() {
	s.NoError(s.mock.ExpectationsWereMet())
	s.db.Close()
}

var recordColumns = []string{"id", "tenant_id", "subject_label", "label", "due_date"}

func (s *RecordSourceTestSuite) TestMedicalExam_ListDue() {
	from := time.Date(2025, 1, 20, 15, 0, 0, 0, time.UTC)
	to := time.Date(2025, 2, 19, 0, 0, 0, 0, time.UTC)

	s.mock.ExpectQuery("FROM occupational_exams e .* WHERE e.kind = 'medical'").
		WithArgs("t1", time.Date(2025, 1, 20, 0, 0, 0, 0, time.UTC), to).
		WillReturnRows(sqlmock.NewRows(recordColumns).
			AddRow(int64(11), "t1", "Ana Souza", "admission", time.Date(2025, 1, 31, 0, 0, 0, 0, time.UTC)))

	src := NewMedicalExamSource(s.conn, logging.NewNopLogger())
	s.Equal(compliance.KindMedicalExam, src.Kind())

	records, err := src.ListDue(context.Background(), compliance.RecordQuery{TenantID: "t1", DueFrom: &from, DueTo: &to})
	s.Require().NoError(err)
	s.Require().Len(records, 1)
	s.Equal(compliance.Record{
		Kind:         compliance.KindMedicalExam,
		SourceID:     "11",
		TenantID:     "t1",
		SubjectLabel: "Ana Souza",
		Label:        "admission",
		DueDate:      time.Date(2025, 1, 31, 0, 0, 0, 0, time.UTC),
	}, records[0])
}

func (s *RecordSourceTestSuite) TestPeriodicExam_OpenBounds() {
	s.mock.ExpectQuery("WHERE e.kind = 'periodic'").
		WithArgs("", nil, nil).
		WillReturnRows(sqlmock.NewRows(recordColumns))

	records, err := NewPeriodicExamSource(s.conn, logging.NewNopLogger()).
		ListDue(context.Background(), compliance.RecordQuery{})
	s.Require().NoError(err)
	s.Empty(records)
}

func (s *RecordSourceTestSuite) TestTrainingAndDocumentQueries() {
	due := time.Date(2025, 3, 1, 0, 0, 0, 0, time.UTC)
	s.mock.ExpectQuery("FROM trainings t").
		WillReturnRows(sqlmock.NewRows(recordColumns).AddRow(int64(7), "t1", "Bo", "NR-35", due))
	s.mock.ExpectQuery("FROM company_documents d").
		WillReturnRows(sqlmock.NewRows(recordColumns).AddRow(int64(3), "t1", "ACME Ltda", "PGR", due))

	ctx := context.Background()
	tr, err := NewTrainingSource(s.conn, logging.NewNopLogger()).ListDue(ctx, compliance.RecordQuery{TenantID: "t1"})
	s.Require().NoError(err)
	s.Equal(compliance.KindTraining, tr[0].Kind)

	docs, err := NewDocumentSource(s.conn, logging.NewNopLogger()).ListDue(ctx, compliance.RecordQuery{TenantID: "t1"})
	s.Require().NoError(err)
	s.Equal("ACME Ltda", docs[0].SubjectLabel)
	s.Equal("3", docs[0].SourceID)
}

func (s *RecordSourceTestSuite) TestQueryError() {
	s.mock.ExpectQuery("FROM trainings").WillReturnError(errors.New("canceling statement due to statement timeout"))

	_, err := NewTrainingSource(s.conn, logging.NewNopLogger()).ListDue(context.Background(), compliance.RecordQuery{})
	s.Require().Error(err)
	s.True(pkgerrors.IsCode(err, pkgerrors.ErrCodeDatabaseError))
}

func (s *RecordSourceTestSuite) TestScanError() {
	s.mock.ExpectQuery("FROM company_documents").
		WillReturnRows(sqlmock.NewRows(recordColumns).AddRow("not-a-number", "t1", "x", "y", time.Now()))

	_, err := NewDocumentSource(s.conn, logging.NewNopLogger()).ListDue(context.Background(), compliance.RecordQuery{})
	s.Error(err)
}

func (s *RecordSourceTestSuite) TestNewRecordSources_CoversEveryKind() {
	sources := NewRecordSources(s.conn, logging.NewNopLogger())
	s.Require().Len(sources, len(compliance.AllKinds))
	for i, src := range sources {
		s.Equal(compliance.AllKinds[i], src.Kind())
	}
}

func TestRecordSourceTestSuite(t *testing.T) {
	suite.Run(t, new(RecordSourceTestSuite))
}
