package transport_test

import (
	"testing"

	"github.com/bobboyms/gridrepair/pkg/transport"
)

func TestSequence_NextIsMonotonicallyIncreasing(t *testing.T) {
	s := transport.NewSequence(0)
	if got := s.Next(); got != 1 {
		t.Fatalf("expected 1, got %d", got)
	}
	if got := s.Next(); got != 2 {
		t.Fatalf("expected 2, got %d", got)
	}
	if got := s.Current(); got != 2 {
		t.Fatalf("expected Current()=2, got %d", got)
	}
}
