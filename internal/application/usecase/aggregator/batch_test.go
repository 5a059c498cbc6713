package aggregator

import (
	"fmt"
	"testing"
)

func TestPartitionEmpty(t *testing.T) {
	if got := Partition(nil, 2); len(got) != 0 {
		t.Fatalf("expected no batches for empty input, got %d", len(got))
	}
}

func TestPartitionRemainder(t *testing.T) {
	batches := Partition([]string{"AAAUSDT", "BBBUSDT", "CCCUSDT"}, 2)
	if len(batches) != 2 {
		t.Fatalf("expected 2 batches, got %d", len(batches))
	}
	if len(batches[0]) != 2 || batches[0][0] != "AAAUSDT" || batches[0][1] != "BBBUSDT" {
		t.Errorf("unexpected first batch: %v", batches[0])
	}
	if len(batches[1]) != 1 || batches[1][0] != "CCCUSDT" {
		t.Errorf("unexpected second batch: %v", batches[1])
	}
}

func TestPartitionExhaustiveAndBounded(t *testing.T) {
	for _, n := range []int{1, 5, 100, 1023, 1024, 1025, 3000} {
		pairs := make([]string, n)
		for i := range pairs {
			pairs[i] = fmt.Sprintf("S%dUSDT", i)
		}

		batches := Partition(pairs, 1024)

		var flat []string
		for _, b := range batches {
			if len(b) == 0 {
				t.Fatalf("n=%d: empty batch", n)
			}
			if len(b) > 1024 {
				t.Fatalf("n=%d: batch size %d exceeds max", n, len(b))
			}
			flat = append(flat, b...)
		}
		if len(flat) != n {
			t.Fatalf("n=%d: union has %d pairs", n, len(flat))
		}
		for i, p := range flat {
			if p != pairs[i] {
				t.Fatalf("n=%d: order broken at %d: %s != %s", n, i, p, pairs[i])
			}
		}
	}
}

func TestPartitionDefaultSize(t *testing.T) {
	batches := Partition([]string{"AUSDT", "BUSDT"}, 0)
	if len(batches) != 1 || len(batches[0]) != 2 {
		t.Fatalf("expected one batch with default size, got %v", batches)
	}
}
