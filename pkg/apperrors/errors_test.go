package apperrors

import (
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestCodeOf(t *testing.T) {
	assert.Equal(t, CodeNotFound, CodeOf(New(CodeNotFound, "donation missing")))
	assert.Equal(t, CodeInternal, CodeOf(errors.New("plain")))
	assert.Equal(t, Code(""), CodeOf(nil))
}

func TestCodeOfWrapped(t *testing.T) {
	err := fmt.Errorf("accept failed: %w", New(CodePreconditionFailed, "status changed"))
	assert.True(t, Is(err, CodePreconditionFailed))
	assert.False(t, Is(err, CodeInvalidState))
}

func TestValidationFields(t *testing.T) {
	err := Validation("invalid donation", map[string]string{"serves": "must be positive"})
	assert.Equal(t, CodeValidation, err.Code)
	assert.Equal(t, "must be positive", err.Fields["serves"])
	assert.Contains(t, err.Error(), "invalid donation")
}
