package logger

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"go.uber.org/zap/zapcore"
)

func Test_Logger(t *testing.T) {
	t.Run("Should parse every supported level", func(t *testing.T) {
		cases := map[string]zapcore.Level{
			"trace": TraceLevel,
			"debug": zapcore.DebugLevel,
			"INFO":  zapcore.InfoLevel,
			"warn":  zapcore.WarnLevel,
			"error": zapcore.ErrorLevel,
		}
		for in, want := range cases {
			got, err := ParseLevel(in)
			assert.Nil(t, err)
			assert.Equal(t, want, got)
		}
	})
	t.Run("Should reject unknown levels", func(t *testing.T) {
		_, err := ParseLevel("verbose")
		assert.NotNil(t, err)

		_, err = NewLogger(&LoggerConfig{Level: "verbose"})
		assert.NotNil(t, err)
	})
	t.Run("Should enable trace only at trace level", func(t *testing.T) {
		l, err := NewLogger(&LoggerConfig{Level: "trace"})
		assert.Nil(t, err)
		assert.True(t, l.Core().Enabled(TraceLevel))
		Trace(l, "visible")

		l, err = NewLogger(&LoggerConfig{Level: "debug"})
		assert.Nil(t, err)
		assert.False(t, l.Core().Enabled(TraceLevel))
		assert.True(t, l.Core().Enabled(zapcore.DebugLevel))
	})
}
