package logging

import "go.uber.org/zap"

// New builds the production logger used by every process, tagged with the
// service name so api and notifier logs are distinguishable.
func New(service string) *zap.Logger {
	cfg := zap.NewProductionConfig()
	cfg.OutputPaths = []string{"stdout"}
	log, err := cfg.Build(zap.Fields(zap.String("service", service)))
	if err != nil {
		panic(err)
	}
	return log
}
