package sequence

import (
	"context"
	"errors"
	"regexp"
	"testing"

	"github.com/pashagolub/pgxmock/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRepository_NextSequence(t *testing.T) {
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	mock.ExpectQuery(regexp.QuoteMeta(`INSERT INTO event_sequence`)).
		WithArgs("owner-1").
		WillReturnRows(pgxmock.NewRows([]string{"last_sequence"}).AddRow(int64(7)))

	seq, err := NewRepository(mock).NextSequence(context.Background(), "owner-1")
	require.NoError(t, err)
	assert.Equal(t, int64(7), seq)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestRepository_NextSequenceError(t *testing.T) {
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	mock.ExpectQuery(regexp.QuoteMeta(`INSERT INTO event_sequence`)).
		WithArgs("owner-1").
		WillReturnError(errors.New("boom"))

	_, err = NewRepository(mock).NextSequence(context.Background(), "owner-1")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "next sequence")
}

func TestMemory_NextSequence(t *testing.T) {
	m := NewMemory()
	ctx := context.Background()

	a1, _ := m.NextSequence(ctx, "a")
	a2, _ := m.NextSequence(ctx, "a")
	b1, _ := m.NextSequence(ctx, "b")

	assert.Equal(t, int64(1), a1)
	assert.Equal(t, int64(2), a2)
	assert.Equal(t, int64(1), b1)
}
