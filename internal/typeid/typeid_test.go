package typeid

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewIDs(t *testing.T) {
	for prefix, next := range map[string]func() string{
		PrefixShape:  NewShapeID,
		PrefixLoad:   NewLoadID,
		PrefixRender: NewRenderID,
	} {
		id := next()
		assert.True(t, strings.HasPrefix(id, prefix+"_"), id)
		require.NoError(t, Validate(id, prefix))
		assert.NotEqual(t, id, next(), "ids are unique")
	}
}

func TestValidate(t *testing.T) {
	assert.Error(t, Validate("not-an-id", PrefixShape))
	assert.ErrorContains(t, Validate(NewLoadID(), PrefixShape), `expected prefix "shape"`)
}
