package obslog

import (
	"bytes"
	"testing"

	"github.com/joeycumines/logiface"
	"github.com/stretchr/testify/assert"
)

func TestNew_WritesAtOrAboveConfiguredLevel(t *testing.T) {
	var buf bytes.Buffer
	l := New(&buf, logiface.LevelInformational)
	l.Info().Log("hello")
	assert.Contains(t, buf.String(), "hello")
}

func TestNew_DropsBelowConfiguredLevel(t *testing.T) {
	var buf bytes.Buffer
	l := New(&buf, logiface.LevelWarning)
	l.Debug().Log("should not appear")
	assert.Empty(t, buf.String())
}

func TestDisabled_NeverWrites(t *testing.T) {
	l := Disabled()
	assert.False(t, l.Warning().Enabled())
}

func TestNilLogger_IsSafe(t *testing.T) {
	var l Logger
	assert.NotPanics(t, func() {
		l.Info().Log("nil logger should no-op")
	})
}
