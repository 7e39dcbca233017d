package progress

import (
	"reflect"
	"testing"
)

func TestStateCounts(t *testing.T) {
	s := NewState()
	s.ExpectBatch([]string{"S1", "S2", "S3"})
	s.Complete("S1")
	s.Complete("S3")
	s.Fail("S2", "unknown security")

	completed, failed, expected := s.Counts()
	if completed != 2 || failed != 1 || expected != 3 {
		t.Errorf("Counts() = %d/%d/%d, want 2/1/3", completed, failed, expected)
	}
	if !reflect.DeepEqual(s.Done, []string{"S1", "S3"}) {
		t.Errorf("Done = %v, want completion order", s.Done)
	}
}

func TestStateAutoExpectsUnknownSecurities(t *testing.T) {
	s := NewState()
	s.Complete("S1")
	s.Fail("S2", "boom")

	_, _, expected := s.Counts()
	if expected != 2 {
		t.Errorf("expected = %d, want 2", expected)
	}
}

func TestFailedListIsSortedWithReasons(t *testing.T) {
	s := NewState()
	s.Fail("S2", "throttled")
	s.Fail("S1", "unknown security")

	want := []string{"S1: unknown security", "S2: throttled"}
	if got := s.FailedList(); !reflect.DeepEqual(got, want) {
		t.Errorf("FailedList() = %v, want %v", got, want)
	}
}
