package assessment

import "strings"

// SentinelAnswer is recorded for every question the candidate left
// unanswered (or answered with only whitespace) at submission time. Scoring
// treats it as a zero-credit answer.
const SentinelAnswer = "No Answer Provided"

// assemble produces the complete, ordered answer set: one entry per question,
// in definition order, regardless of how many questions were actually
// answered. This holds identically for manual and timer-expired submissions.
func assemble(questions []Question, ledger map[int]string) []Answer {
	answers := make([]Answer, len(questions))
	for i, q := range questions {
		text, ok := ledger[i]
		if !ok || strings.TrimSpace(text) == "" {
			text = SentinelAnswer
		}
		answers[i] = Answer{
			QuestionID: q.ID,
			Text:       text,
		}
	}
	return answers
}
