package judge

import "testing"

func TestNewCorrelationID_ReturnsDistinctIDs(t *testing.T) {
	a := NewCorrelationID()
	b := NewCorrelationID()
	if a == "" || b == "" {
		t.Fatal("NewCorrelationID() returned empty string")
	}
	if a == b {
		t.Error("NewCorrelationID() returned the same id twice")
	}
}
