package config

type WorkerKeyStruct struct {
	PersistIntegrityEventsQueue string
	ScoreSubmissionsQueue       string
}

var WorkerKey = &WorkerKeyStruct{
	PersistIntegrityEventsQueue: "persist_integrity_events_queue",
	ScoreSubmissionsQueue:       "score_submissions_queue",
}
