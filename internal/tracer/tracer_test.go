package tracer

import (
	"testing"

	"github.com/stretchr/testify/assert"
	ddTracer "gopkg.in/DataDog/dd-trace-go.v1/ddtrace/tracer"
)

func Test_StartTracer(t *testing.T) {
	t.Run("Should start a mock tracer when disabled", func(t *testing.T) {
		stop := StartTracer(false, "run-1")
		defer stop()

		span := ddTracer.StartSpan("scanner.block")
		span.SetTag("height", 10)
		span.Finish()
		assert.NotNil(t, span.Context())
	})
}
