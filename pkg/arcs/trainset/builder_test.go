package trainset

import (
	"bytes"
	"errors"
	"fmt"
	"math/rand/v2"
	"sort"
	"strings"
	"testing"

	"github.com/google/go-cmp/cmp"

	"github.com/cognicore/arcs/pkg/arcs/errs"
	"github.com/cognicore/arcs/pkg/arcs/qrels"
	"github.com/cognicore/arcs/pkg/arcs/stream"
)

func loadQrels(t *testing.T, text string) *qrels.Store {
	t.Helper()
	q, err := qrels.Load(stream.FromString("qrels", text))
	if err != nil {
		t.Fatalf("qrels.Load: %v", err)
	}
	return q
}

func newRand(seed uint64) *rand.Rand {
	return rand.New(rand.NewPCG(seed, 7))
}

func build(t *testing.T, q Judgments, universe []string, opts ...Option) *Set {
	t.Helper()
	b, err := NewBuilder(q, universe, append([]Option{WithRand(newRand(1))}, opts...)...)
	if err != nil {
		t.Fatalf("NewBuilder: %v", err)
	}
	set, err := b.Build()
	if err != nil {
		t.Fatalf("Build: %v", err)
	}
	return set
}

func TestBuildScenario(t *testing.T) {
	q := loadQrels(t, "100 0 docA 1\n100 0 docB 0\n100 0 docC 0\n")
	universe := []string{"docA", "docB", "docC", "docD", "docE"}

	for seed := uint64(0); seed < 20; seed++ {
		b, err := NewBuilder(q, universe, WithRand(newRand(seed)))
		if err != nil {
			t.Fatal(err)
		}
		set, err := b.Build()
		if err != nil {
			t.Fatalf("Build: %v", err)
		}

		if set.Len() != 3 {
			t.Fatalf("Len = %d, want 3", set.Len())
		}
		if set.DocIDs[0] != "docA" || set.Labels[0] != 1 {
			t.Errorf("row 0 = (%s, %d), want (docA, 1)", set.DocIDs[0], set.Labels[0])
		}
		if hard := set.DocIDs[1]; (hard != "docB" && hard != "docC") || set.Labels[1] != 0 {
			t.Errorf("hard negative = (%s, %d), want docB or docC with label 0", hard, set.Labels[1])
		}
		if easy := set.DocIDs[2]; (easy != "docD" && easy != "docE") || set.Labels[2] != 0 {
			t.Errorf("easy negative = (%s, %d), want docD or docE with label 0", easy, set.Labels[2])
		}
		if diff := cmp.Diff([]int{100, 100, 100}, set.Topics); diff != "" {
			t.Errorf("topics mismatch (-want +got):\n%s", diff)
		}

		want := []TopicReport{{Topic: 100, Positive: 1, Hard: 1, Easy: 1}}
		if diff := cmp.Diff(want, b.Reports()); diff != "" {
			t.Errorf("reports mismatch (-want +got):\n%s", diff)
		}
	}
}

// bigFixture has 7 relevant and 3 irrelevant judgments for topic 51 and a
// universe of 50 documents.
func bigFixture(t *testing.T) (*qrels.Store, []string) {
	t.Helper()
	var lines strings.Builder
	var universe []string
	for i := 0; i < 50; i++ {
		id := fmt.Sprintf("D%02d", i)
		universe = append(universe, id)
		switch {
		case i < 7:
			fmt.Fprintf(&lines, "51 0 %s 1\n", id)
		case i < 10:
			fmt.Fprintf(&lines, "51 0 %s 0\n", id)
		}
	}
	fmt.Fprintf(&lines, "52 0 D00 0\n")
	return loadQrels(t, lines.String()), universe
}

func TestBuildRatioCeiling(t *testing.T) {
	q, universe := bigFixture(t)
	set := build(t, q, universe)

	// 7 relevant: ceil(7/0.7*0.2)=2 hard, ceil(7/0.7*0.1)=1 easy
	if set.Len() != 10 {
		t.Fatalf("Len = %d, want 10", set.Len())
	}
	want := []Summary{{Topic: 51, Positive: 7, Negative: 3}}
	if diff := cmp.Diff(want, set.Summaries()); diff != "" {
		t.Errorf("summaries mismatch (-want +got):\n%s", diff)
	}

	hard := set.DocIDs[7:9]
	if hard[0] == hard[1] {
		t.Errorf("hard negatives must be distinct when the pool is large enough: %v", hard)
	}
	for _, id := range hard {
		if !q.Contains(51, id, false) {
			t.Errorf("hard negative %s is not judged irrelevant", id)
		}
	}
	if easy := set.DocIDs[9]; q.Judged(51, easy) {
		t.Errorf("easy negative %s is judged for topic 51", easy)
	}
}

func TestBuildAlignmentAndShuffle(t *testing.T) {
	q, universe := bigFixture(t)
	set := build(t, q, universe)
	if err := set.Validate(); err != nil {
		t.Fatalf("Validate before shuffle: %v", err)
	}

	triples := func(s *Set) []string {
		out := make([]string, s.Len())
		for i := range out {
			out[i] = fmt.Sprintf("%s/%d/%d", s.DocIDs[i], s.Topics[i], s.Labels[i])
		}
		sort.Strings(out)
		return out
	}
	before := triples(set)

	set.Shuffle(newRand(42))
	if err := set.Validate(); err != nil {
		t.Fatalf("Validate after shuffle: %v", err)
	}
	if diff := cmp.Diff(before, triples(set)); diff != "" {
		t.Errorf("shuffle changed the multiset of rows (-before +after):\n%s", diff)
	}
}

func TestBuildRerunGuard(t *testing.T) {
	q, universe := bigFixture(t)
	b, err := NewBuilder(q, universe, WithRand(newRand(3)))
	if err != nil {
		t.Fatal(err)
	}
	first, err := b.Build()
	if err != nil {
		t.Fatal(err)
	}
	if _, err := b.Build(); !errors.Is(err, ErrAlreadyBuilt) {
		t.Fatalf("expected ErrAlreadyBuilt, got %v", err)
	}

	b.Reset()
	second, err := b.Build()
	if err != nil {
		t.Fatalf("Build after Reset: %v", err)
	}
	if second.Len() != first.Len() {
		t.Errorf("rebuilt Len = %d, want %d", second.Len(), first.Len())
	}
	if second.ID == first.ID {
		t.Error("each build should get a fresh id")
	}
}

func TestBuildEmptyEasyPool(t *testing.T) {
	q := loadQrels(t, "100 0 docA 1\n100 0 docB 0\n100 0 docC 0\n")
	b, err := NewBuilder(q, []string{"docA", "docB", "docC"}, WithRand(newRand(1)))
	if err != nil {
		t.Fatal(err)
	}
	if _, err := b.Build(); !errors.Is(err, errs.ErrEmptySamplingPool) {
		t.Errorf("expected ErrEmptySamplingPool, got %v", err)
	}
}

func TestBuildEasyWithReplacement(t *testing.T) {
	// 10 relevant need 2 easy negatives; only docX is never judged.
	var lines strings.Builder
	universe := []string{"docX"}
	for i := 0; i < 10; i++ {
		fmt.Fprintf(&lines, "60 0 R%d 1\n", i)
		universe = append(universe, fmt.Sprintf("R%d", i))
	}
	lines.WriteString("60 0 N0 0\n")

	set := build(t, loadQrels(t, lines.String()), universe)
	easy := set.DocIDs[set.Len()-2:]
	if diff := cmp.Diff([]string{"docX", "docX"}, easy); diff != "" {
		t.Errorf("easy negatives mismatch (-want +got):\n%s", diff)
	}
}

func TestBuildSkipsAndPropagates(t *testing.T) {
	// topic 52 only has irrelevant judgments and is skipped
	q := loadQrels(t, "52 0 A 0\n")
	if set := build(t, q, []string{"A", "B"}); set.Len() != 0 {
		t.Errorf("Len = %d, want 0", set.Len())
	}

	// relevant but no irrelevant judgments: hard negatives cannot be drawn
	q = loadQrels(t, "53 0 A 1\n")
	b, _ := NewBuilder(q, []string{"A", "B"}, WithRand(newRand(1)))
	if _, err := b.Build(); !errors.Is(err, errs.ErrKeyNotFound) {
		t.Errorf("expected ErrKeyNotFound, got %v", err)
	}
}

func TestBuildStrictTopics(t *testing.T) {
	q := loadQrels(t, "51 0 A 1\n51 0 B 0\n52 0 C 0\n")
	universe := []string{"A", "B", "C", "D", "E"}

	b, err := NewBuilder(q, universe, WithRand(newRand(1)), WithTopicRange(51, 52), WithStrictTopics(true))
	if err != nil {
		t.Fatalf("NewBuilder: %v", err)
	}
	if _, err := b.Build(); !errors.Is(err, errs.ErrKeyNotFound) {
		t.Errorf("strict build: expected ErrKeyNotFound for topic 52, got %v", err)
	}

	set := build(t, q, universe, WithTopicRange(51, 52))
	if diff := cmp.Diff([]Summary{{Topic: 51, Positive: 1, Negative: 2}}, set.Summaries()); diff != "" {
		t.Errorf("lenient build summaries mismatch (-want +got):\n%s", diff)
	}
}

func TestBuildTopicRange(t *testing.T) {
	q := loadQrels(t, "100 0 docA 1\n100 0 docB 0\n")
	set := build(t, q, []string{"docA", "docB", "docC"}, WithTopicRange(51, 99))
	if set.Len() != 0 {
		t.Errorf("topic outside range was included: %+v", set)
	}
}

func TestNewBuilderInvalid(t *testing.T) {
	q := loadQrels(t, "")
	if _, err := NewBuilder(q, nil, WithRatio(Ratio{0.5, 0.5, 0.5})); !errors.Is(err, errs.ErrInvalidConfiguration) {
		t.Errorf("bad ratio: expected ErrInvalidConfiguration, got %v", err)
	}
	if _, err := NewBuilder(q, nil, WithTopicRange(10, 5)); !errors.Is(err, errs.ErrInvalidConfiguration) {
		t.Errorf("bad range: expected ErrInvalidConfiguration, got %v", err)
	}
}

func TestSetWriteAndRead(t *testing.T) {
	q := loadQrels(t, "100 0 docA 1\n100 0 docB 0\n100 0 docC 0\n")
	set := build(t, q, []string{"docA", "docB", "docC", "docD", "docE"})

	var buf bytes.Buffer
	if _, err := set.WriteTo(&buf); err != nil {
		t.Fatalf("WriteTo: %v", err)
	}
	if !strings.HasPrefix(buf.String(), "# build "+set.ID.String()+"\n") {
		t.Errorf("missing build header in %q", buf.String())
	}

	got, err := Read(stream.FromString("set", buf.String()))
	if err != nil {
		t.Fatalf("Read: %v", err)
	}
	if diff := cmp.Diff(set, got); diff != "" {
		t.Errorf("round trip mismatch (-want +got):\n%s", diff)
	}
}

func TestReadMalformed(t *testing.T) {
	tests := []string{
		"docA 100\n",
		"docA x 1\n",
		"docA 100 2\n",
		"# build not-a-ulid\n",
	}
	for _, text := range tests {
		if _, err := Read(stream.FromString("bad", text)); !errors.Is(err, errs.ErrMalformedRecord) {
			t.Errorf("Read(%q): expected ErrMalformedRecord, got %v", text, err)
		}
	}
}

func TestValidateMisaligned(t *testing.T) {
	s := &Set{DocIDs: []string{"a", "b"}, Topics: []int{51}, Labels: []int{1, 0}}
	if err := s.Validate(); !errors.Is(err, ErrMisaligned) {
		t.Errorf("expected ErrMisaligned, got %v", err)
	}
}
