package tracer

import (
	"gopkg.in/DataDog/dd-trace-go.v1/ddtrace/mocktracer"
	ddTracer "gopkg.in/DataDog/dd-trace-go.v1/ddtrace/tracer"
)

const serviceName = "did-provisioner"

// StartTracer initializes the DataDog tracer. If enabled is false, it starts
// a mock tracer instead. The returned func stops whichever was started.
func StartTracer(enabled bool, runId string) func() {
	if !enabled {
		mt := mocktracer.Start()
		return mt.Stop
	}
	ddTracer.Start(
		ddTracer.WithServiceName(serviceName),
		ddTracer.WithGlobalServiceName(true),
		ddTracer.WithGlobalTag("run_id", runId),
		ddTracer.WithDebugMode(false),
		ddTracer.WithLogStartup(false),
	)
	return ddTracer.Stop
}
