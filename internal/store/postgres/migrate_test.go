package postgres

import "testing"

func TestMigrationChainIsContiguous(t *testing.T) {
	if len(migrations) == 0 {
		t.Fatal("no migrations defined")
	}

	expected := 1
	for i, step := range migrations {
		if step.From != expected {
			t.Fatalf("step %d starts at version %d, want %d", i, step.From, expected)
		}
		if step.To != step.From+1 {
			t.Fatalf("step %d jumps %d->%d, steps must advance one version", i, step.From, step.To)
		}
		if step.Apply == nil {
			t.Fatalf("step %d->%d has no apply func", step.From, step.To)
		}
		expected = step.To
	}

	if expected != CurrentSchemaVersion {
		t.Fatalf("chain ends at version %d, want %d", expected, CurrentSchemaVersion)
	}
}
