package status

import (
	"healthwatch/internals/modules/alert"
	"healthwatch/internals/modules/engine"
	"healthwatch/internals/modules/incident"
)

type HealthResponse struct {
	Status  string `json:"status"`
	Targets int    `json:"targets"`
	Down    int    `json:"down"`
}

type StatusResponse struct {
	Targets []engine.TargetStatus `json:"targets"`
	Up      int                   `json:"up"`
	Down    int                   `json:"down"`
}

type StatisticsResponse struct {
	Incidents incident.Stats `json:"incidents"`
	Alerts    alert.Stats    `json:"alerts"`
}

type IncidentsResponse struct {
	Incidents []incident.Incident `json:"incidents"`
	Count     int                 `json:"count"`
}
