//go:build integration

package postgres

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/suite"

	"dossier/internal/platform/database"
	id "dossier/pkg/domain"
	audit "dossier/pkg/platform/audit"
	"dossier/pkg/testutil/containers"
)

type OutboxStoreSuite struct {
	suite.Suite
	pg    *containers.PostgresContainer
	db    *sql.DB
	store *Store
}

func TestOutboxStoreSuite(t *testing.T) {
	suite.Run(t, new(OutboxStoreSuite))
}

func (s *OutboxStoreSuite) SetupSuite() {
	s.pg = containers.GetManager().GetPostgres(s.T())
	s.db = database.SQLDB(s.pg.Pool)
	s.store = New(s.db)
}

func (s *OutboxStoreSuite) SetupTest() {
	s.Require().NoError(s.pg.TruncateTables(context.Background(), "audit_outbox"))
}

func (s *OutboxStoreSuite) TestAppendAndListByUser() {
	ctx := context.Background()
	student := id.UserID(uuid.New())
	base := time.Date(2026, 4, 2, 9, 0, 0, 0, time.UTC)

	s.Require().NoError(s.store.Append(ctx, audit.Event{
		UserID: student, Subject: "doc-1", Action: string(audit.EventDocumentUploaded), Timestamp: base,
	}))
	s.Require().NoError(s.store.Append(ctx, audit.Event{
		UserID: student, Subject: "doc-1", Action: string(audit.EventDocumentRejected),
		Reason: "blurry", ActorID: "reviewer-1", ActorRole: "PARTNER", Timestamp: base.Add(time.Minute),
	}))
	s.Require().NoError(s.store.Append(ctx, audit.Event{
		UserID: id.UserID(uuid.New()), Action: string(audit.EventDocumentUploaded), Timestamp: base,
	}))

	events, err := s.store.ListByUser(ctx, student)
	s.Require().NoError(err)
	s.Require().Len(events, 2)
	s.Equal(string(audit.EventDocumentUploaded), events[0].Action)
	s.Equal(audit.CategoryOperations, events[0].Category)

	rejected := events[1]
	s.Equal(audit.CategoryCompliance, rejected.Category)
	s.Equal("blurry", rejected.Reason)
	s.Equal("PARTNER", rejected.ActorRole)
	s.Equal(student, rejected.UserID)
	s.True(base.Add(time.Minute).Equal(rejected.Timestamp))
}

func (s *OutboxStoreSuite) TestRelayCycle() {
	ctx := context.Background()
	for range 3 {
		s.Require().NoError(s.store.Append(ctx, audit.Event{Action: string(audit.EventPaymentRecorded), Subject: "reg-1"}))
	}

	var fetched []Entry
	err := s.store.WithinTx(ctx, func(ctx context.Context) error {
		entries, err := s.store.FetchUnpublished(ctx, 2)
		if err != nil {
			return err
		}
		fetched = entries
		ids := make([]uuid.UUID, len(entries))
		for i, e := range entries {
			ids[i] = e.ID
		}
		return s.store.MarkPublished(ctx, ids, time.Now())
	})
	s.Require().NoError(err)
	s.Require().Len(fetched, 2)
	s.Equal("audit", fetched[0].AggregateType, "events without a student are keyed by event id")
	s.Equal(audit.CategoryCompliance, fetched[0].Category)

	var payload map[string]any
	s.Require().NoError(json.Unmarshal(fetched[0].Payload, &payload))
	s.Equal("reg-1", payload["subject"])
	s.NotContains(payload, "user_id")

	remaining, err := s.store.FetchUnpublished(ctx, 10)
	s.Require().NoError(err)
	s.Len(remaining, 1)
}

func (s *OutboxStoreSuite) TestRollbackDiscardsMarks() {
	ctx := context.Background()
	s.Require().NoError(s.store.Append(ctx, audit.Event{Action: string(audit.EventDocumentDeleted)}))

	boom := errors.New("kafka unavailable")
	err := s.store.WithinTx(ctx, func(ctx context.Context) error {
		entries, err := s.store.FetchUnpublished(ctx, 10)
		s.Require().NoError(err)
		s.Require().Len(entries, 1)
		s.Require().NoError(s.store.MarkPublished(ctx, []uuid.UUID{entries[0].ID}, time.Now()))
		return boom
	})
	s.ErrorIs(err, boom)

	remaining, err := s.store.FetchUnpublished(ctx, 10)
	s.Require().NoError(err)
	s.Len(remaining, 1)
}
