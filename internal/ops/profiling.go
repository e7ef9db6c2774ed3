package ops

import (
	pyroscope "github.com/grafana/pyroscope-go"
)

type emptyLogger struct{}

func (emptyLogger) Infof(string, ...any)  {}
func (emptyLogger) Debugf(string, ...any) {}
func (emptyLogger) Errorf(string, ...any) {}

// StartProfiler attaches continuous profiling when enabled. The returned
// stop func is always safe to call.
func StartProfiler(app string, cfg Profiling) (stop func(), err error) {
	if !cfg.Enabled {
		return func() {}, nil
	}
	profiler, err := pyroscope.Start(pyroscope.Config{
		ApplicationName: app,
		ServerAddress:   cfg.ServerAddress,
		Tags: map[string]string{
			"env": "local",
		},
		Logger: emptyLogger{},
		ProfileTypes: []pyroscope.ProfileType{
			pyroscope.ProfileCPU,
			pyroscope.ProfileAllocObjects,
			pyroscope.ProfileAllocSpace,
			pyroscope.ProfileInuseObjects,
			pyroscope.ProfileInuseSpace,
		},
	})
	if err != nil {
		return func() {}, err
	}
	return func() { _ = profiler.Stop() }, nil
}
