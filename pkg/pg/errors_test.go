package pg_test

import (
	"errors"
	"fmt"
	"testing"

	"github.com/jackc/pgx/v5"
	"github.com/stretchr/testify/assert"

	"github.com/dmitrymomot/authkit/pkg/pg"
)

func TestIsNotFoundError(t *testing.T) {
	t.Parallel()

	assert.True(t, pg.IsNotFoundError(pgx.ErrNoRows))
	assert.True(t, pg.IsNotFoundError(fmt.Errorf("load user: %w", pgx.ErrNoRows)))

	assert.False(t, pg.IsNotFoundError(nil))
	assert.False(t, pg.IsNotFoundError(errors.New("connection reset")))
}
