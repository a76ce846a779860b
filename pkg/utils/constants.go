package utils

const (
	MsgHealthy           = "service is healthy"
	MsgStatusRetrieved   = "target statuses retrieved"
	MsgStatsRetrieved    = "incident statistics retrieved"
	MsgHistoryRetrieved  = "incident history retrieved"
	MsgIncidentRetrieved = "incident retrieved"
	MsgCycleCompleted    = "check cycle completed"
)
