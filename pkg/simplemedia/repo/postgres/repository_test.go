package postgres

import (
	"errors"
	"testing"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tendant/simple-media/pkg/simplemedia"
)

func TestHandlePostgresError(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want error
	}{
		{"unique", &pgconn.PgError{Code: "23505", ConstraintName: "media_name_key"}, simplemedia.ErrDuplicate},
		{"foreign key", &pgconn.PgError{Code: "23503"}, simplemedia.ErrReferenceNotFound},
		{"not null", &pgconn.PgError{Code: "23502"}, simplemedia.ErrInvalidData},
		{"too long", &pgconn.PgError{Code: "22001"}, simplemedia.ErrInvalidData},
		{"no rows", pgx.ErrNoRows, simplemedia.ErrNotFound},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.ErrorIs(t, handlePostgresError("op", tt.err), tt.want)
		})
	}

	err := handlePostgresError("op", errors.New("connection reset"))
	assert.False(t, simplemedia.IsDataError(err))
	assert.Contains(t, err.Error(), "database error in op")

	for _, code := range []string{"40001", "42P01"} {
		err = handlePostgresError("op", &pgconn.PgError{Code: code, Message: "failed"})
		var pgErr *pgconn.PgError
		require.ErrorAs(t, err, &pgErr)
		assert.Equal(t, code, pgErr.Code)
		assert.False(t, simplemedia.IsDataError(err))
	}
}

func TestSchemaEmbedded(t *testing.T) {
	content, err := schemaFS.ReadFile("schema/0001_init.sql")
	assert.NoError(t, err)
	assert.Contains(t, string(content), "DEFERRABLE INITIALLY DEFERRED")
}
