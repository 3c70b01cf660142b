package segmenter

import "testing"

func TestObserveFirstAndRepeat(t *testing.T) {
	filter := NewTextFilter()

	text, fresh := filter.Observe("hello")
	if !fresh || text != "hello" {
		t.Errorf(`First Observe("hello") = (%q, %v), want ("hello", true)`, text, fresh)
	}

	for i := 0; i < 3; i++ {
		if _, fresh := filter.Observe("hello"); fresh {
			t.Errorf("Repeat %d should not be fresh", i+1)
		}
	}
}

func TestObserveDistinctStrings(t *testing.T) {
	filter := NewTextFilter()

	filter.Observe("hello")
	if _, fresh := filter.Observe("world"); !fresh {
		t.Error("Distinct string should be fresh")
	}
	if filter.Size() != 2 {
		t.Errorf("Expected 2 observed strings, got %d", filter.Size())
	}
}

func TestResetForgetsSeenText(t *testing.T) {
	filter := NewTextFilter()

	filter.Observe("hello")
	filter.Reset()

	text, fresh := filter.Observe("hello")
	if !fresh || text != "hello" {
		t.Errorf(`Observe("hello") after Reset = (%q, %v), want ("hello", true)`, text, fresh)
	}
	if filter.Size() != 1 {
		t.Errorf("Expected 1 observed string after reset, got %d", filter.Size())
	}
}
