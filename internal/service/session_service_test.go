package service

import (
	"context"
	"errors"
	"testing"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/rs/zerolog"
	"github.com/talentgate/talentgate-backend/internal/config"
	"github.com/talentgate/talentgate-backend/internal/model"
)

type fakeAssessmentStore struct {
	submission       *model.Submission
	disqualification *model.Disqualification
	err              error
}

func (f *fakeAssessmentStore) GetSubmissionByApplication(_ context.Context, _ uuid.UUID) (*model.Submission, error) {
	if f.err != nil {
		return nil, f.err
	}
	if f.submission == nil {
		return nil, pgx.ErrNoRows
	}
	return f.submission, nil
}

func (f *fakeAssessmentStore) GetDisqualification(_ context.Context, _ uuid.UUID) (*model.Disqualification, error) {
	if f.err != nil {
		return nil, f.err
	}
	if f.disqualification == nil {
		return nil, pgx.ErrNoRows
	}
	return f.disqualification, nil
}

func (f *fakeAssessmentStore) CreateDisqualification(_ context.Context, _ *model.Disqualification) error {
	return nil
}

type fakeApplicationStore struct {
	healedFrom model.ApplicationStatus
	healedTo   model.ApplicationStatus
}

func (f *fakeApplicationStore) UpdateStatusIf(_ context.Context, _ uuid.UUID, from, to model.ApplicationStatus) (bool, error) {
	f.healedFrom = from
	f.healedTo = to
	return true, nil
}

func newPreconditionService(store *fakeAssessmentStore, apps *fakeApplicationStore) *SessionService {
	return NewSessionService(&config.Config{}, nil, nil, store, apps, nil, zerolog.Nop())
}

func invitedApplication() *model.Application {
	return &model.Application{
		ID:     uuid.New(),
		JobID:  uuid.New(),
		Status: model.ApplicationStatusInvited,
	}
}

// A candidate must never get a second attempt once a terminal record is
// durable, even when the application status update was lost to a crash
// between the submission commit and the status write.
func TestBeginRefusesTerminalRecords(t *testing.T) {
	ctx := context.Background()

	t.Run("persisted submission blocks a retake", func(t *testing.T) {
		store := &fakeAssessmentStore{submission: &model.Submission{ID: uuid.New()}}
		apps := &fakeApplicationStore{}
		svc := newPreconditionService(store, apps)

		_, err := svc.Begin(ctx, invitedApplication())
		if !errors.Is(err, ErrAssessmentDone) {
			t.Fatalf("Begin error = %v, want ErrAssessmentDone", err)
		}
		if apps.healedTo != model.ApplicationStatusAssessed {
			t.Fatalf("healed status = %q, want ASSESSED", apps.healedTo)
		}
		if apps.healedFrom != model.ApplicationStatusInvited {
			t.Fatalf("healed from = %q, want INVITED", apps.healedFrom)
		}
	})

	t.Run("disqualification record blocks a retake", func(t *testing.T) {
		store := &fakeAssessmentStore{disqualification: &model.Disqualification{ID: uuid.New()}}
		apps := &fakeApplicationStore{}
		svc := newPreconditionService(store, apps)

		_, err := svc.Begin(ctx, invitedApplication())
		if !errors.Is(err, ErrAssessmentDone) {
			t.Fatalf("Begin error = %v, want ErrAssessmentDone", err)
		}
		if apps.healedTo != model.ApplicationStatusDisqualified {
			t.Fatalf("healed status = %q, want DISQUALIFIED", apps.healedTo)
		}
	})

	t.Run("terminal application status refused outright", func(t *testing.T) {
		svc := newPreconditionService(&fakeAssessmentStore{}, &fakeApplicationStore{})

		app := invitedApplication()
		app.Status = model.ApplicationStatusAssessed
		if _, err := svc.Begin(ctx, app); !errors.Is(err, ErrAssessmentDone) {
			t.Fatalf("Begin error = %v, want ErrAssessmentDone", err)
		}
	})

	t.Run("uninvited application refused", func(t *testing.T) {
		svc := newPreconditionService(&fakeAssessmentStore{}, &fakeApplicationStore{})

		app := invitedApplication()
		app.Status = model.ApplicationStatusSubmitted
		if _, err := svc.Begin(ctx, app); !errors.Is(err, ErrNotInvited) {
			t.Fatalf("Begin error = %v, want ErrNotInvited", err)
		}
	})

	t.Run("lookup failure propagates", func(t *testing.T) {
		dbErr := errors.New("connection reset")
		svc := newPreconditionService(&fakeAssessmentStore{err: dbErr}, &fakeApplicationStore{})

		_, err := svc.Begin(ctx, invitedApplication())
		if !errors.Is(err, dbErr) {
			t.Fatalf("Begin error = %v, want wrapped %v", err, dbErr)
		}
		if errors.Is(err, ErrAssessmentDone) {
			t.Fatalf("lookup failure must not masquerade as ErrAssessmentDone")
		}
	})
}
