package capability

import "testing"

func TestRender(t *testing.T) {
	exts := []Extension{Creation, Termination}
	if got := Render(exts); got != "creation,termination" {
		t.Fatalf("Render = %q, want %q", got, "creation,termination")
	}
}

func TestRender_OrderStable(t *testing.T) {
	exts := []Extension{Termination, Concatenation, Creation}
	if got := Render(exts); got != "termination,concatenation,creation" {
		t.Fatalf("Render = %q, want configured order preserved", got)
	}
}

func TestParse_IgnoresUnknown(t *testing.T) {
	exts := Parse([]string{"creation", " Termination ", "bogus", ""})
	if len(exts) != 2 {
		t.Fatalf("expected 2 extensions, got %v", exts)
	}
	if exts[0] != Creation || exts[1] != Termination {
		t.Fatalf("unexpected parse result: %v", exts)
	}
}

func TestWithout(t *testing.T) {
	exts := []Extension{Creation, Concatenation, Termination}
	got := Without(exts, Concatenation)
	if Render(got) != "creation,termination" {
		t.Fatalf("Without = %q", Render(got))
	}
	if len(exts) != 3 {
		t.Fatal("Without mutated the input slice")
	}
}

func TestContains(t *testing.T) {
	exts := []Extension{Creation, Checksum}
	if !Contains(exts, Checksum) {
		t.Fatal("expected Contains to find checksum")
	}
	if Contains(exts, Termination) {
		t.Fatal("expected Contains to miss termination")
	}
}
