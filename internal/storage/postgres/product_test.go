package postgres

import (
	"fmt"
	"testing"

	"github.com/jackc/pgx/v5/pgconn"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/bakehouse/pos/internal/domain/catalog"
)

func pgError(code string) error {
	return fmt.Errorf("exec: %w", &pgconn.PgError{Code: code})
}

func TestClassifyProductErr(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want error
	}{
		{"unique violation", pgError("23505"), catalog.ErrDuplicateName},
		{"foreign key violation", pgError("23503"), catalog.ErrUnknownCategory},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.ErrorIs(t, classifyProductErr("creating", "p1", tt.err), tt.want)
		})
	}

	t.Run("other errors pass through wrapped", func(t *testing.T) {
		cause := pgError("57014")
		got := classifyProductErr("updating", "p1", cause)
		require.Error(t, got)
		assert.NotErrorIs(t, got, catalog.ErrDuplicateName)
		assert.NotErrorIs(t, got, catalog.ErrUnknownCategory)
		assert.Contains(t, got.Error(), `updating product "p1"`)
	})
}

func TestViolationChecks(t *testing.T) {
	assert.True(t, isUniqueViolation(pgError("23505")))
	assert.False(t, isUniqueViolation(pgError("23503")))
	assert.True(t, isForeignKeyViolation(pgError("23503")))
	assert.False(t, isForeignKeyViolation(fmt.Errorf("plain error")))
}
