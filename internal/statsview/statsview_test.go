//go:build !statsview

package statsview

import (
	"bytes"
	"testing"

	"github.com/retroenv/retrogolib/assert"
)

func TestStubLaunch(t *testing.T) {
	assert.False(t, Available())
	var buf bytes.Buffer
	Launch(&buf)
	assert.Contains(t, buf.String(), "-tags statsview")
}
