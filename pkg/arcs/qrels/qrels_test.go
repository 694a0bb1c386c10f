package qrels

import (
	"errors"
	"math/rand/v2"
	"testing"

	"github.com/google/go-cmp/cmp"

	"github.com/cognicore/arcs/pkg/arcs/errs"
	"github.com/cognicore/arcs/pkg/arcs/stream"
)

const scenario = "100 0 docA 1\n100 0 docB 0\n100 0 docC 0\n"

func load(t *testing.T, text string) *Store {
	t.Helper()
	s, err := Load(stream.FromString("qrels", text))
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	return s
}

func newRand() *rand.Rand {
	return rand.New(rand.NewPCG(1, 2))
}

func TestLoadScenario(t *testing.T) {
	s := load(t, scenario)

	rel, err := s.DocList(100, true)
	if err != nil {
		t.Fatalf("DocList: %v", err)
	}
	if diff := cmp.Diff([]string{"docA"}, rel); diff != "" {
		t.Errorf("relevant mismatch (-want +got):\n%s", diff)
	}

	irr, err := s.DocList(100, false)
	if err != nil {
		t.Fatalf("DocList: %v", err)
	}
	if diff := cmp.Diff([]string{"docB", "docC"}, irr); diff != "" {
		t.Errorf("irrelevant mismatch (-want +got):\n%s", diff)
	}

	if s.Len() != 3 {
		t.Errorf("Len = %d, want 3", s.Len())
	}
	if !s.Contains(100, "docA", true) || s.Contains(100, "docA", false) {
		t.Error("docA should be relevant only")
	}
	if !s.Judged(100, "docC") || s.Judged(100, "docD") {
		t.Error("Judged mismatch")
	}
	if s.Contains(999, "docA", true) {
		t.Error("unknown topic must not contain anything")
	}
}

func TestLoadSkipsBlankAndNonOneIsIrrelevant(t *testing.T) {
	s := load(t, "51 0 X 2\n\n51 0 Y -1\n51 0 Z 1\n")
	irr, _ := s.DocList(51, false)
	if diff := cmp.Diff([]string{"X", "Y"}, irr); diff != "" {
		t.Errorf("irrelevant mismatch (-want +got):\n%s", diff)
	}
	if diff := cmp.Diff([]int{51}, s.Topics(true)); diff != "" {
		t.Errorf("topics mismatch (-want +got):\n%s", diff)
	}
}

func TestLoadMalformed(t *testing.T) {
	tests := []struct {
		name string
		text string
	}{
		{"too few columns", "51 0 X\n"},
		{"bad topic", "fifty 0 X 1\n"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, err := Load(stream.FromString("bad", tt.text)); !errors.Is(err, errs.ErrMalformedRecord) {
				t.Errorf("expected ErrMalformedRecord, got %v", err)
			}
		})
	}
}

func TestDocListUnknown(t *testing.T) {
	s := load(t, scenario)
	if _, err := s.DocList(100, false); err != nil {
		t.Fatalf("DocList: %v", err)
	}
	if _, err := s.DocList(101, true); !errors.Is(err, errs.ErrKeyNotFound) {
		t.Errorf("expected ErrKeyNotFound, got %v", err)
	}
}

func TestDocListReturnsCopy(t *testing.T) {
	s := load(t, scenario)
	got, _ := s.DocList(100, false)
	got[0] = "mutated"
	again, _ := s.DocList(100, false)
	if again[0] != "docB" {
		t.Errorf("store was mutated through DocList result: %v", again)
	}
}

func TestRandomDocsWithoutReplacement(t *testing.T) {
	s := load(t, "51 0 A 0\n51 0 B 0\n51 0 C 0\n51 0 D 0\n51 0 E 0\n")
	rng := newRand()

	for k := 0; k <= 5; k++ {
		got, err := s.RandomDocs(rng, k, 51, false)
		if err != nil {
			t.Fatalf("RandomDocs(%d): %v", k, err)
		}
		if len(got) != k {
			t.Fatalf("RandomDocs(%d) returned %d docs", k, len(got))
		}
		seen := make(map[string]bool)
		for _, id := range got {
			if seen[id] {
				t.Fatalf("RandomDocs(%d) returned duplicate %q: %v", k, id, got)
			}
			seen[id] = true
			if !s.Contains(51, id, false) {
				t.Fatalf("RandomDocs returned %q outside the set", id)
			}
		}
	}
}

func TestRandomDocsWithReplacement(t *testing.T) {
	s := load(t, "51 0 A 0\n51 0 B 0\n")
	got, err := s.RandomDocs(newRand(), 7, 51, false)
	if err != nil {
		t.Fatalf("RandomDocs: %v", err)
	}
	if len(got) != 7 {
		t.Fatalf("len = %d, want 7", len(got))
	}
	for _, id := range got {
		if id != "A" && id != "B" {
			t.Errorf("unexpected id %q", id)
		}
	}
}

func TestRandomDocsErrors(t *testing.T) {
	s := load(t, scenario)
	rng := newRand()
	if _, err := s.RandomDocs(rng, -1, 100, true); !errors.Is(err, errs.ErrInvalidConfiguration) {
		t.Errorf("k<0: expected ErrInvalidConfiguration, got %v", err)
	}
	if _, err := s.RandomDocs(rng, 1, 7, true); !errors.Is(err, errs.ErrKeyNotFound) {
		t.Errorf("unknown topic: expected ErrKeyNotFound, got %v", err)
	}
	if _, err := Sample(rng, nil, 2); !errors.Is(err, errs.ErrEmptySamplingPool) {
		t.Errorf("empty pool: expected ErrEmptySamplingPool, got %v", err)
	}
}

func TestRandomDocsDeterministicForSeed(t *testing.T) {
	s := load(t, "51 0 A 0\n51 0 B 0\n51 0 C 0\n51 0 D 0\n")
	a, _ := s.RandomDocs(newRand(), 3, 51, false)
	b, _ := s.RandomDocs(newRand(), 3, 51, false)
	if diff := cmp.Diff(a, b); diff != "" {
		t.Errorf("same seed gave different draws (-a +b):\n%s", diff)
	}
}

func TestConflicts(t *testing.T) {
	s := load(t, "51 0 A 1\n51 0 A 0\n52 0 B 1\n52 0 C 0\n")
	want := []Conflict{{Topic: 51, DocID: "A"}}
	if diff := cmp.Diff(want, s.Conflicts()); diff != "" {
		t.Errorf("conflicts mismatch (-want +got):\n%s", diff)
	}
}
