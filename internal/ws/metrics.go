package ws

import "expvar"

var (
	metricWSConnsTotal  = expvar.NewInt("ws_connections_total")
	metricWSConnsActive = expvar.NewInt("ws_connections_active")
	metricWSPushes      = expvar.NewInt("ws_pushes_total")
	metricWSDropped     = expvar.NewInt("ws_frames_dropped_total")
)
