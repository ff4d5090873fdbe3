package topology

import "testing"

func TestLinuxDetectorReturnsAtLeastOneCPU(t *testing.T) {
	d := LinuxDetector{}
	info, err := d.Detect()
	if err != nil {
		t.Fatalf("Detect() error: %v", err)
	}
	if info.NumCPU < 1 {
		t.Fatalf("NumCPU = %d, want at least 1", info.NumCPU)
	}
	if info.Architecture == "" {
		t.Fatalf("Architecture is empty")
	}
}

func TestInfoStringIncludesArchitectureAndCount(t *testing.T) {
	i := Info{Architecture: "x86_64", NumCPU: 4}
	got := i.String()
	want := "x86_64 (4 schedulable CPUs)"
	if got != want {
		t.Fatalf("String() = %q, want %q", got, want)
	}
}
