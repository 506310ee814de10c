package live

import "expvar"

var (
	metricRoundsOpened = expvar.NewInt("table_rounds_opened_total")
	metricBetsAccepted = expvar.NewInt("table_bets_accepted_total")
	metricBetsRejected = expvar.NewInt("table_bets_rejected_total")
	metricSettleDeltas = expvar.NewInt("table_settle_deltas_total")
	metricHalts        = expvar.NewInt("table_halts_total")
)
