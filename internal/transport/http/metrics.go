package httptransport

import "expvar"

var (
	metricStateQueryTotal   = expvar.NewInt("api_state_query_total")
	metricBalanceQueryTotal = expvar.NewInt("api_balance_query_total")
	metricLedgerQueryTotal  = expvar.NewInt("api_ledger_query_total")
	metricTopupTotal        = expvar.NewInt("api_admin_topup_total")
)
