package assessment

import (
	"testing"

	"github.com/google/uuid"
)

func TestAssemble(t *testing.T) {
	questions := []Question{
		{ID: uuid.New(), Prompt: "q0"},
		{ID: uuid.New(), Prompt: "q1"},
		{ID: uuid.New(), Prompt: "q2"},
		{ID: uuid.New(), Prompt: "q3"},
	}

	t.Run("FillsGapsWithSentinel", func(t *testing.T) {
		ledger := map[int]string{
			0: "answered",
			2: "   ", // whitespace-only counts as unanswered
		}
		answers := assemble(questions, ledger)

		if len(answers) != len(questions) {
			t.Fatalf("assembled %d answers, want %d", len(answers), len(questions))
		}
		want := []string{"answered", SentinelAnswer, SentinelAnswer, SentinelAnswer}
		for i, a := range answers {
			if a.QuestionID != questions[i].ID {
				t.Errorf("answer %d paired with wrong question", i)
			}
			if a.Text != want[i] {
				t.Errorf("answer %d = %q, want %q", i, a.Text, want[i])
			}
		}
	})

	t.Run("VerbatimWhenFullyAnswered", func(t *testing.T) {
		ledger := map[int]string{0: "a", 1: "b", 2: "c", 3: "d"}
		answers := assemble(questions, ledger)
		for i, want := range []string{"a", "b", "c", "d"} {
			if answers[i].Text != want {
				t.Errorf("answer %d = %q, want %q", i, answers[i].Text, want)
			}
		}
	})

	t.Run("StrayLedgerIndexesIgnored", func(t *testing.T) {
		ledger := map[int]string{7: "out of range"}
		answers := assemble(questions, ledger)
		if len(answers) != len(questions) {
			t.Fatalf("assembled %d answers, want %d", len(answers), len(questions))
		}
		for i, a := range answers {
			if a.Text != SentinelAnswer {
				t.Errorf("answer %d = %q, want sentinel", i, a.Text)
			}
		}
	})

	t.Run("EmptyDefinition", func(t *testing.T) {
		if got := assemble(nil, map[int]string{0: "x"}); len(got) != 0 {
			t.Errorf("assembled %d answers for empty definition, want 0", len(got))
		}
	})
}
