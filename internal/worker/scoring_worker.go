package worker

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
	"github.com/talentgate/talentgate-backend/internal/config"
	"github.com/talentgate/talentgate-backend/internal/repository"
)

const (
	ScorePollTimeout = 1 * time.Second
	scoreMaxAttempts = 5
)

// ScoringWorker consumes queued submissions, sends each answer set to the
// external scoring API, and writes the per-answer scores back. Scoring is
// deliberately out of the session's critical path: a submission is already
// durable before this worker ever sees it.
type ScoringWorker struct {
	assessmentRepo *repository.AssessmentRepository
	questionRepo   *repository.QuestionRepository
	rdb            *redis.Client
	httpClient     *http.Client
	apiURL         string
	apiKey         string
	log            zerolog.Logger
}

func NewScoringWorker(
	assessmentRepo *repository.AssessmentRepository,
	questionRepo *repository.QuestionRepository,
	rdb *redis.Client,
	cfg *config.Config,
	log zerolog.Logger,
) *ScoringWorker {
	return &ScoringWorker{
		assessmentRepo: assessmentRepo,
		questionRepo:   questionRepo,
		rdb:            rdb,
		httpClient:     &http.Client{Timeout: 60 * time.Second},
		apiURL:         cfg.ScoringAPIURL,
		apiKey:         cfg.ScoringAPIKey,
		log:            log.With().Str("component", "scoring_worker").Logger(),
	}
}

type scoringJob struct {
	SubmissionID string `json:"submission_id"`
	Attempts     int    `json:"attempts,omitempty"`
}

// scoreRequestItem is one answer sent to the scoring API.
type scoreRequestItem struct {
	QuestionID      string `json:"question_id"`
	Question        string `json:"question"`
	DesiredAnswer   string `json:"desired_answer"`
	CandidateAnswer string `json:"candidate_answer"`
}

type scoreRequest struct {
	SubmissionID string             `json:"submission_id"`
	Answers      []scoreRequestItem `json:"answers"`
}

// scoreResult is one scored answer returned by the API: a 0-10 score with
// the reviewer model's reasoning.
type scoreResult struct {
	QuestionID string  `json:"question_id"`
	Score      float64 `json:"score"`
	Reasoning  string  `json:"reasoning"`
}

type scoreResponse struct {
	Scores []scoreResult `json:"scores"`
}

func (w *ScoringWorker) Start(ctx context.Context) {
	if w.apiURL == "" {
		w.log.Warn().Msg("SCORING_API_URL not set; submissions will remain unscored")
	}
	w.log.Info().Msg("ScoringWorker started")

	for {
		select {
		case <-ctx.Done():
			w.log.Info().Msg("ScoringWorker stopping")
			return
		default:
		}

		result, err := w.rdb.BLPop(ctx, ScorePollTimeout, config.WorkerKey.ScoreSubmissionsQueue).Result()
		if err != nil {
			if err == redis.Nil {
				continue
			}
			if ctx.Err() != nil {
				return
			}
			w.log.Error().Err(err).Msg("Redis connection error, sleeping 3s")
			time.Sleep(3 * time.Second)
			continue
		}
		if len(result) < 2 {
			continue
		}

		var job scoringJob
		if err := json.Unmarshal([]byte(result[1]), &job); err != nil {
			w.log.Error().Err(err).Str("data", result[1]).Msg("Discarding malformed JSON")
			continue
		}

		if err := w.process(ctx, &job); err != nil {
			w.retry(ctx, &job, err)
		}
	}
}

func (w *ScoringWorker) process(ctx context.Context, job *scoringJob) error {
	if w.apiURL == "" {
		return nil // Scoring disabled; leave the submission unscored.
	}

	submissionID, err := uuid.Parse(job.SubmissionID)
	if err != nil {
		w.log.Error().Str("submission_id", job.SubmissionID).Msg("Dropping job with invalid UUID")
		return nil
	}

	submission, err := w.assessmentRepo.GetSubmissionByID(ctx, submissionID)
	if err != nil {
		return fmt.Errorf("load submission: %w", err)
	}
	if submission.Scored {
		return nil // Already scored by an earlier attempt.
	}

	questions, err := w.questionRepo.ListByJob(ctx, submission.JobID)
	if err != nil {
		return fmt.Errorf("load questions: %w", err)
	}
	prompts := make(map[uuid.UUID]string, len(questions))
	desired := make(map[uuid.UUID]string, len(questions))
	for _, q := range questions {
		prompts[q.ID] = q.Prompt
		desired[q.ID] = q.DesiredAnswer
	}

	req := scoreRequest{
		SubmissionID: submission.ID.String(),
		Answers:      make([]scoreRequestItem, len(submission.Answers)),
	}
	for i, a := range submission.Answers {
		req.Answers[i] = scoreRequestItem{
			QuestionID:      a.QuestionID.String(),
			Question:        prompts[a.QuestionID],
			DesiredAnswer:   desired[a.QuestionID],
			CandidateAnswer: a.AnswerText,
		}
	}

	resp, err := w.callScoringAPI(ctx, &req)
	if err != nil {
		return err
	}

	// Map API results back to answer rows by question ID.
	answerByQuestion := make(map[string]uuid.UUID, len(submission.Answers))
	for _, a := range submission.Answers {
		answerByQuestion[a.QuestionID.String()] = a.ID
	}

	scores := make([]repository.AnswerScore, 0, len(resp.Scores))
	var total float64
	for _, sc := range resp.Scores {
		answerID, ok := answerByQuestion[sc.QuestionID]
		if !ok {
			w.log.Warn().
				Str("submission_id", job.SubmissionID).
				Str("question_id", sc.QuestionID).
				Msg("Score for unknown question, skipping")
			continue
		}
		scores = append(scores, repository.AnswerScore{
			AnswerID:  answerID,
			Score:     sc.Score,
			Reasoning: sc.Reasoning,
		})
		total += sc.Score
	}
	if len(scores) == 0 {
		return fmt.Errorf("scoring API returned no usable scores")
	}
	average := total / float64(len(scores))

	if err := w.assessmentRepo.ApplyScores(ctx, submission.ID, scores, average); err != nil {
		return fmt.Errorf("apply scores: %w", err)
	}

	w.log.Info().
		Str("submission_id", job.SubmissionID).
		Int("answers", len(scores)).
		Float64("total_score", average).
		Msg("Submission scored")
	return nil
}

func (w *ScoringWorker) callScoringAPI(ctx context.Context, req *scoreRequest) (*scoreResponse, error) {
	body, err := json.Marshal(req)
	if err != nil {
		return nil, fmt.Errorf("marshal scoring request: %w", err)
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, w.apiURL, bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("build scoring request: %w", err)
	}
	httpReq.Header.Set("Content-Type", "application/json")
	if w.apiKey != "" {
		httpReq.Header.Set("Authorization", "Bearer "+w.apiKey)
	}

	httpResp, err := w.httpClient.Do(httpReq)
	if err != nil {
		return nil, fmt.Errorf("call scoring API: %w", err)
	}
	defer httpResp.Body.Close()

	if httpResp.StatusCode != http.StatusOK {
		snippet, _ := io.ReadAll(io.LimitReader(httpResp.Body, 512))
		return nil, fmt.Errorf("scoring API returned %d: %s", httpResp.StatusCode, snippet)
	}

	var resp scoreResponse
	if err := json.NewDecoder(httpResp.Body).Decode(&resp); err != nil {
		return nil, fmt.Errorf("decode scoring response: %w", err)
	}
	return &resp, nil
}

// retry pushes a failed job back on the queue until it exhausts its attempts.
func (w *ScoringWorker) retry(ctx context.Context, job *scoringJob, cause error) {
	job.Attempts++
	if job.Attempts >= scoreMaxAttempts {
		w.log.Error().Err(cause).
			Str("submission_id", job.SubmissionID).
			Int("attempts", job.Attempts).
			Msg("Scoring failed permanently, dropping job")
		return
	}

	w.log.Warn().Err(cause).
		Str("submission_id", job.SubmissionID).
		Int("attempt", job.Attempts).
		Msg("Scoring failed, requeueing")

	data, _ := json.Marshal(job)
	if err := w.rdb.RPush(ctx, config.WorkerKey.ScoreSubmissionsQueue, data).Err(); err != nil {
		w.log.Error().Err(err).Msg("CRITICAL: Failed to requeue scoring job")
	}
	time.Sleep(2 * time.Second)
}
