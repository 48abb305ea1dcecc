package authz

import (
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestErrors_KindOf(t *testing.T) {
	assert.Equal(t, KindForbidden, KindOf(Forbidden()))
	assert.Equal(t, KindNotFound, KindOf(NotFound("project")))
	assert.Equal(t, KindBadRequest, KindOf(BadRequest("bad")))
	assert.Equal(t, KindConflict, KindOf(Conflict("dup")))
	assert.Equal(t, KindUnauthorized, KindOf(Unauthorized()))
	assert.Equal(t, KindInternal, KindOf(errors.New("boom")))
	assert.Equal(t, KindNotFound, KindOf(fmt.Errorf("wrapped: %w", NotFound("report"))))
}

func TestErrors_IsMatchesKind(t *testing.T) {
	assert.ErrorIs(t, Forbidden(), ErrForbidden)
	assert.ErrorIs(t, NotFound("report"), ErrNotFound)
	assert.NotErrorIs(t, NotFound("report"), ErrForbidden)
}

// TestPurpose: Validates that internal causes are never exposed to callers.
// Scope: Unit Test
// Security: Information disclosure (CWE-209)
// Expected: Internal errors render a generic message but keep the cause for logging.
// Test Case ID: ERR-01
func TestErrors_InternalHidesCause(t *testing.T) {
	cause := errors.New("pq: connection refused to 10.0.0.3")
	err := Internal(cause)

	assert.Equal(t, KindInternal, KindOf(err))
	assert.Equal(t, "internal error", PublicMessage(err))
	assert.ErrorIs(t, err, cause)

	classified := Forbidden()
	assert.Same(t, classified, Internal(classified))
	assert.Nil(t, Internal(nil))
}
