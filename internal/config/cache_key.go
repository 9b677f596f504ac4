package config

import (
	"fmt"
)

type CacheKeyStruct struct{}

func NewCacheKeyStruct() *CacheKeyStruct {
	return &CacheKeyStruct{}
}

// CandidateSessionKey returns the cache key for a candidate's login session.
func (r *CacheKeyStruct) CandidateSessionKey(candidateID int) string {
	return fmt.Sprintf("login:%d", candidateID)
}

// AssessmentStartKey returns the cache key holding the Unix start time of an
// assessment session, keyed by application.
func (r *CacheKeyStruct) AssessmentStartKey(applicationID string) string {
	return fmt.Sprintf("application:%s:assessment:start", applicationID)
}

// AssessmentNodeKey returns the cache key naming the server instance that
// owns a live assessment session. Sessions are process-local; the key lets
// another instance reject a duplicate start.
func (r *CacheKeyStruct) AssessmentNodeKey(applicationID string) string {
	return fmt.Sprintf("application:%s:assessment:node", applicationID)
}

// JobPayloadKey returns the cache key for a job's candidate-facing
// assessment payload (questions without desired answers).
func (r *CacheKeyStruct) JobPayloadKey(jobID string) string {
	return fmt.Sprintf("job:%s:payload", jobID)
}

// AssessmentMonitorChannel returns the Redis Pub/Sub channel carrying live
// assessment session events for the HR monitor.
func (r *CacheKeyStruct) AssessmentMonitorChannel() string {
	return "assessment:monitor"
}

var CacheKey = NewCacheKeyStruct()
