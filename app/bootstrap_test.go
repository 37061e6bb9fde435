package app

import (
	"context"
	"errors"
	"testing"

	"Gin_postgres_redis_library/models"
	"Gin_postgres_redis_library/services"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type stubMembers struct {
	existing []models.Member
	created  []services.MemberInput
}

func (s *stubMembers) List(context.Context) ([]models.Member, error) { return s.existing, nil }

func (s *stubMembers) Create(_ context.Context, in services.MemberInput) (*models.Member, error) {
	s.created = append(s.created, in)
	return &models.Member{ID: int64(len(s.created)), Name: in.Name, Email: in.Email}, nil
}

type stubBooks struct {
	reconciled int
	created    []services.BookInput
	err        error
}

func (s *stubBooks) Create(_ context.Context, in services.BookInput) (*models.Book, error) {
	s.created = append(s.created, in)
	return &models.Book{ID: int64(len(s.created)), ISBN: in.ISBN}, nil
}

func (s *stubBooks) ReconcileAvailability(context.Context) (int64, error) {
	s.reconciled++
	return 0, s.err
}

type stubLoans struct{ calls int }

func (s *stubLoans) MarkOverdue(context.Context) (int, error) { s.calls++; return 2, nil }

func TestBootstrap_SeedsEmptyLibrary(t *testing.T) {
	m, b, l := &stubMembers{}, &stubBooks{}, &stubLoans{}

	require.NoError(t, Bootstrap(context.Background(), true, m, b, l))

	assert.Equal(t, 1, b.reconciled)
	assert.Equal(t, 1, l.calls)
	assert.Len(t, m.created, len(sampleMembers))
	assert.Len(t, b.created, len(sampleBooks))
}

func TestBootstrap_SkipsSeedWhenMembersExist(t *testing.T) {
	m := &stubMembers{existing: []models.Member{{ID: 1}}}
	b, l := &stubBooks{}, &stubLoans{}

	require.NoError(t, Bootstrap(context.Background(), true, m, b, l))

	assert.Empty(t, m.created)
	assert.Empty(t, b.created)
}

func TestBootstrap_SeedDisabled(t *testing.T) {
	m, b, l := &stubMembers{}, &stubBooks{}, &stubLoans{}

	require.NoError(t, Bootstrap(context.Background(), false, m, b, l))

	assert.Equal(t, 1, b.reconciled)
	assert.Empty(t, m.created)
}

func TestBootstrap_ReconcileFailureStops(t *testing.T) {
	m, l := &stubMembers{}, &stubLoans{}
	b := &stubBooks{err: errors.New("connection refused")}

	err := Bootstrap(context.Background(), true, m, b, l)

	require.ErrorContains(t, err, "reconcile availability")
	assert.Zero(t, l.calls)
	assert.Empty(t, m.created)
}

func TestSplitOrigins(t *testing.T) {
	assert.Equal(t, []string{"https://a.example", "https://b.example"}, splitOrigins(" https://a.example, https://b.example ,"))
	assert.Equal(t, []string{"http://localhost:5173"}, splitOrigins(""))
}
