package core

import (
	"testing"

	"github.com/cockroachdb/errors"
	"github.com/stretchr/testify/assert"
)

func TestWrapFatalNamesObjectClass(t *testing.T) {
	err := WrapFatal(ErrDeviceLost, "command buffer")

	assert.Contains(t, err.Error(), `gpu object class "command buffer"`)
	// Classification by sentinel survives the wrap.
	assert.True(t, errors.Is(err, ErrDeviceLost))
}
