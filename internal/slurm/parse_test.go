package slurm

import "testing"

func TestParseGresSingleModel(t *testing.T) {
	got := ParseGres("gpu:a100:4(S:0-1)")
	if got.Kind != "a100" || got.Count != 4 {
		t.Fatalf("unexpected gres decode: %+v", got)
	}
}

func TestParseGresMixedModels(t *testing.T) {
	got := ParseGres("gpu:a100:2,gpu:h100:1")
	if got.Kind != "(a100|h100)" || got.Count != 3 {
		t.Fatalf("unexpected mixed gres decode: %+v", got)
	}
}

func TestParseGresRepeatedModelCountsOnce(t *testing.T) {
	got := ParseGres("gpu:a100:2,gpu:a100:2")
	if got.Kind != "a100" || got.Count != 4 {
		t.Fatalf("expected model listed once with summed count, got %+v", got)
	}
}

func TestParseGresNull(t *testing.T) {
	for _, in := range []string{"(null)", "null", "gpu:(null):0"} {
		got := ParseGres(in)
		if got.Kind != "null" || got.Count != 0 {
			t.Fatalf("ParseGres(%q)=%+v want null/0", in, got)
		}
	}
}

func TestParseGresIgnoresShortAndForeignEntries(t *testing.T) {
	tests := []struct {
		in        string
		wantKind  string
		wantCount int
	}{
		{in: "gpu:2", wantKind: "null", wantCount: 0},
		{in: "mps:a100:400", wantKind: "null", wantCount: 0},
		{in: "mps:x:4,gpu:v100:2", wantKind: "v100", wantCount: 2},
		{in: "gpu:t4:junk", wantKind: "t4", wantCount: 0},
	}
	for _, tt := range tests {
		got := ParseGres(tt.in)
		if got.Kind != tt.wantKind || got.Count != tt.wantCount {
			t.Fatalf("ParseGres(%q)=%+v want %s/%d", tt.in, got, tt.wantKind, tt.wantCount)
		}
	}
}

func TestParseCPUState(t *testing.T) {
	tests := []struct {
		in   string
		want int
	}{
		{in: "8/56/0/64", want: 56},
		{in: "0/0/0/0", want: 0},
		{in: "8/x/0/64", want: 0},
		{in: "64", want: 0},
		{in: "", want: 0},
	}
	for _, tt := range tests {
		if got := ParseCPUState(tt.in); got.Idle != tt.want {
			t.Fatalf("ParseCPUState(%q).Idle=%d want=%d", tt.in, got.Idle, tt.want)
		}
	}
}

func TestParseMemory(t *testing.T) {
	got := ParseMemory("128000", "256000")
	if got.IdleMB != 128000 || got.TotalMB != 256000 {
		t.Fatalf("unexpected memory decode: %+v", got)
	}

	got = ParseMemory("N/A", "256000")
	if got.IdleMB != 256000 || got.TotalMB != 256000 {
		t.Fatalf("expected unparsable alloc to read as zero, got %+v", got)
	}

	got = ParseMemory("3000", "junk")
	if got.IdleMB != -3000 || got.TotalMB != 0 {
		t.Fatalf("expected negative idle to pass through, got %+v", got)
	}
}

func TestParseAllocTRES(t *testing.T) {
	got := ParseAllocTRES("billing=4,cpu=4,gres/gpu=2,mem=32G,node=1")
	if got.CPU != 4 || got.GPU != 2 || got.MemGB != 32 {
		t.Fatalf("unexpected alloc decode: %+v", got)
	}
}

func TestParseAllocTRESMissingKeysReadZero(t *testing.T) {
	got := ParseAllocTRES("billing=4,node=1")
	if got.CPU != 0 || got.GPU != 0 || got.MemGB != 0 {
		t.Fatalf("expected zero usage, got %+v", got)
	}
}

func TestParseAllocTRESFractionalAndMalformedValues(t *testing.T) {
	got := ParseAllocTRES("cpu=4,mem=0.50G")
	if got.MemGB != 0.5 {
		t.Fatalf("unexpected fractional mem: %+v", got)
	}

	got = ParseAllocTRES("cpu=4,mem=512M,gpu=oops")
	if got.CPU != 4 || got.GPU != 0 || got.MemGB != 0 {
		t.Fatalf("expected malformed values to read as zero, got %+v", got)
	}
}

func TestParseAllocTRESValueAtEndOfString(t *testing.T) {
	got := ParseAllocTRES("cpu=16,mem=64G,gpu=8")
	if got.GPU != 8 || got.MemGB != 64 {
		t.Fatalf("unexpected decode for trailing key: %+v", got)
	}
}

func TestClassifyPartition(t *testing.T) {
	tests := []struct {
		in   string
		want Class
	}{
		{in: "tideman-default", want: ClassDefault},
		{in: "gpu-default", want: ClassDefault},
		{in: "tideman-gpu", want: ClassDefault},
		{in: "main-priority", want: ClassPriority},
		{in: "research", want: ClassPriority},
		{in: "", want: ClassPriority},
	}
	for _, tt := range tests {
		if got := ClassifyPartition(tt.in); got != tt.want {
			t.Fatalf("ClassifyPartition(%q)=%q want=%q", tt.in, got, tt.want)
		}
	}
}
