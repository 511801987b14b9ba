package lifecycle

import "testing"

func TestNextStageWalksTheFullSequence(t *testing.T) {
	stage := StageCutting
	want := []Stage{StageSewing, StageReview, StagePackaging}

	for _, expected := range want {
		next, ok := NextStage(stage)
		if !ok {
			t.Fatalf("expected a next stage after %s", stage)
		}
		if next != expected {
			t.Fatalf("expected %s after %s, got %s", expected, stage, next)
		}
		stage = next
	}
}

func TestNextStageStopsAtPackaging(t *testing.T) {
	if _, ok := NextStage(StagePackaging); ok {
		t.Fatal("expected no stage beyond packaging")
	}
	if !IsFinalStage(StagePackaging) {
		t.Fatal("expected packaging to be the final stage")
	}
}

func TestNextStageRejectsUnknownStage(t *testing.T) {
	if _, ok := NextStage(Stage("ironing")); ok {
		t.Fatal("expected no next stage for an unknown stage")
	}
}

func TestTerminalStatuses(t *testing.T) {
	terminal := []Status{StatusCompleted, StatusFinished, StatusCancelled}
	for _, s := range terminal {
		if !s.IsTerminal() {
			t.Fatalf("expected %s to be terminal", s)
		}
	}

	open := []Status{StatusInProduction, StatusStopped, StatusPaused}
	for _, s := range open {
		if s.IsTerminal() {
			t.Fatalf("expected %s to be non-terminal", s)
		}
	}
}

func TestParseStage(t *testing.T) {
	s, err := ParseStage("sewing")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if s != StageSewing {
		t.Fatalf("expected sewing, got %s", s)
	}

	if _, err := ParseStage("warehouse"); err == nil {
		t.Fatal("expected error for unknown stage")
	}
}

func TestParseStatus(t *testing.T) {
	s, err := ParseStatus("stopped")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if s != StatusStopped {
		t.Fatalf("expected stopped, got %s", s)
	}

	if _, err := ParseStatus("waiting"); err == nil {
		t.Fatal("expected error for unknown status")
	}
}
