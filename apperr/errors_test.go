package apperr

import (
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestStatusOf(t *testing.T) {
	assert.Equal(t, 400, StatusOf(BadRequest("bad")))
	assert.Equal(t, 404, StatusOf(fmt.Errorf("wrapped: %w", NotFound("gone"))))
	assert.Equal(t, 500, StatusOf(errors.New("plain")))
	assert.True(t, Is(Forbidden("no"), 403))
	assert.False(t, Is(Unauthorized("no"), 403))
}

func TestWithInfo(t *testing.T) {
	base := BadRequest("Survey name already exists")
	tagged := base.WithInfo(InfoDuplicateSurveyName)
	assert.Equal(t, "", base.Info)
	assert.Equal(t, InfoDuplicateSurveyName, tagged.Info)
	assert.Equal(t, base.Message, tagged.Message)
}

func TestInternalUnwrap(t *testing.T) {
	cause := errors.New("connection reset")
	err := Internal("db.get_survey", cause)
	assert.ErrorIs(t, err, cause)
	assert.Equal(t, "db.get_survey: connection reset", err.Error())
}
