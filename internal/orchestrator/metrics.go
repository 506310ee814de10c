package orchestrator

import "expvar"

var (
	metricTransitions = expvar.NewInt("orchestrator_transitions_total")
	metricRejections  = expvar.NewInt("orchestrator_rejections_total")
	metricResyncs     = expvar.NewInt("orchestrator_seq_resyncs_total")
)
