package reasoning

import (
	"context"
	"reflect"
	"testing"

	"github.com/hakimbdev/TeleMedicineAIHelper2-sub000/internal/domain/interview"
	"github.com/hakimbdev/TeleMedicineAIHelper2-sub000/internal/domain/knowledge"
)

func newFlow() *interview.Interview {
	limits := interview.DefaultLimits()
	return interview.New(NewLocal(knowledge.Builtin(), limits), limits)
}

func answerCurrent(t *testing.T, iv *interview.Interview, state interview.EvidenceState) *interview.PatientCase {
	t.Helper()
	c := iv.Case()
	if c.CurrentQuestion == nil {
		t.Fatal("expected an outstanding question")
	}
	next, err := iv.AnswerQuestion(context.Background(), c.CurrentQuestion.Items[0].ConceptID, state)
	if err != nil {
		t.Fatalf("answer: %v", err)
	}
	return next
}

func TestFlow_FreshCase(t *testing.T) {
	c, err := newFlow().Start(context.Background(), 34, interview.SexFemale, nil)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if c.Status != interview.StatusActive || c.CurrentQuestion != nil || len(c.Conditions) != 0 {
		t.Errorf("unexpected fresh case: %+v", c)
	}
}

func TestFlow_SeededCase(t *testing.T) {
	c, err := newFlow().Start(context.Background(), 30, interview.SexMale, []string{"s_headache"})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !c.Evidence[0].IsInitial || c.Evidence[0].State != interview.StatePresent {
		t.Errorf("expected initial present headache, got %+v", c.Evidence[0])
	}
	if c.CurrentQuestion == nil || c.CurrentQuestion.Items[0].ConceptID != "s_photophobia" {
		t.Fatalf("expected light sensitivity question, got %+v", c.CurrentQuestion)
	}
	found := false
	for _, sc := range c.Conditions {
		if sc.ID == "c_migraine" && sc.Probability > 0 {
			found = true
		}
	}
	if !found {
		t.Errorf("expected migraine among conditions, got %+v", c.Conditions)
	}
}

func TestFlow_StopsAfterQuestionLimit(t *testing.T) {
	iv := newFlow()
	if _, err := iv.Start(context.Background(), 30, interview.SexMale, []string{"s_headache"}); err != nil {
		t.Fatalf("start: %v", err)
	}

	var c *interview.PatientCase
	for n := 1; n <= 5; n++ {
		c = answerCurrent(t, iv, interview.StateAbsent)
		if n < 5 && c.Status != interview.StatusActive {
			t.Fatalf("expected active after %d answers, got %s", n, c.Status)
		}
	}
	if c.Status != interview.StatusCompleted {
		t.Fatalf("expected completed after 5 answers, got %s", c.Status)
	}
	if c.QuestionsAsked != 5 || c.CurrentQuestion != nil {
		t.Errorf("unexpected final case: asked=%d question=%+v", c.QuestionsAsked, c.CurrentQuestion)
	}
	if c.Triage == nil || c.Triage.Level != interview.TriageSelfCare {
		t.Errorf("expected self-care triage, got %+v", c.Triage)
	}
	if iv.Progress() != 100 {
		t.Errorf("expected progress 100, got %d", iv.Progress())
	}
}

func TestFlow_StopsAtPresentLimitWithEmergency(t *testing.T) {
	iv := newFlow()
	if _, err := iv.Start(context.Background(), 30, interview.SexMale, []string{"s_headache"}); err != nil {
		t.Fatalf("start: %v", err)
	}

	var c *interview.PatientCase
	for c == nil || c.Status == interview.StatusActive {
		c = answerCurrent(t, iv, interview.StatePresent)
	}
	if c.Status != interview.StatusCompleted || c.PresentCount() != 4 || c.QuestionsAsked != 3 {
		t.Fatalf("expected completion at 4 present after 3 answers, got status=%s present=%d asked=%d",
			c.Status, c.PresentCount(), c.QuestionsAsked)
	}
	if c.Triage == nil || c.Triage.Level != interview.TriageEmergency {
		t.Errorf("expected emergency triage from neck stiffness, got %+v", c.Triage)
	}
}

func TestFlow_CompleteKeepsEvidence(t *testing.T) {
	iv := newFlow()
	before, err := iv.Start(context.Background(), 30, interview.SexMale, []string{"s_headache"})
	if err != nil {
		t.Fatalf("start: %v", err)
	}
	after, err := iv.Complete()
	if err != nil {
		t.Fatalf("complete: %v", err)
	}
	if after.Status != interview.StatusCompleted {
		t.Errorf("expected completed, got %s", after.Status)
	}
	if !reflect.DeepEqual(before.Evidence, after.Evidence) || !reflect.DeepEqual(before.Conditions, after.Conditions) {
		t.Error("expected evidence and conditions to be unchanged")
	}
}

func TestFlow_RequestTriageEscalates(t *testing.T) {
	iv := newFlow()
	if _, err := iv.Start(context.Background(), 40, interview.SexFemale, []string{"s_neck_stiffness", "s_fever", "s_headache"}); err != nil {
		t.Fatalf("start: %v", err)
	}
	tr, err := iv.RequestTriage(context.Background())
	if err != nil {
		t.Fatalf("triage: %v", err)
	}
	if tr.Level != interview.TriageEmergency {
		t.Errorf("expected emergency, got %s", tr.Level)
	}
	if len(tr.SeriousConditions) == 0 || tr.SeriousConditions[0].ID != "c_meningitis" {
		t.Errorf("expected meningitis first, got %+v", tr.SeriousConditions)
	}
}
