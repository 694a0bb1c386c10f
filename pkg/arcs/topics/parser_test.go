package topics

import (
	"errors"
	"io"
	"testing"

	"github.com/google/go-cmp/cmp"

	"github.com/cognicore/arcs/pkg/arcs/errs"
	"github.com/cognicore/arcs/pkg/arcs/ingest"
	"github.com/cognicore/arcs/pkg/arcs/stoplist"
	"github.com/cognicore/arcs/pkg/arcs/stream"
)

func newTokenizer() *ingest.Tokenizer {
	return ingest.NewTokenizer(ingest.DefaultOptions(), stoplist.English())
}

const airbus = `<top>
<head> Tipster Topic Description
<num> Number: 051
<dom> Domain: International Economics
<title> Topic: Airbus Subsidies

<desc> Description:
Document will discuss government assistance to Airbus Industrie.

<narr> Narrative:
To be relevant, a document must cite or discuss
assistance to Airbus.
<con> Concept(s):
1. Airbus Industrie
</top>
`

func TestParserSingleTopic(t *testing.T) {
	p := NewParser(stream.FromString("topics", airbus), newTokenizer())

	got, err := p.Next()
	if err != nil {
		t.Fatalf("Next: %v", err)
	}
	if got.Number != 51 {
		t.Errorf("Number = %d, want 51", got.Number)
	}
	if got.RawTitle != "Airbus Subsidies" {
		t.Errorf("RawTitle = %q", got.RawTitle)
	}
	if diff := cmp.Diff([]string{"airbus", "subsidies"}, got.Title); diff != "" {
		t.Errorf("title mismatch (-want +got):\n%s", diff)
	}

	wantDesc := "Document will discuss government assistance to Airbus Industrie.\n"
	if got.RawDescription != wantDesc {
		t.Errorf("RawDescription = %q, want %q", got.RawDescription, wantDesc)
	}
	wantNarr := "To be relevant, a document must cite or discuss\nassistance to Airbus."
	if got.RawNarrative != wantNarr {
		t.Errorf("RawNarrative = %q, want %q", got.RawNarrative, wantNarr)
	}
	if diff := cmp.Diff([]string{"relevant", "document", "cite", "discuss", "assistance", "airbus"}, got.Narrative); diff != "" {
		t.Errorf("narrative tokens mismatch (-want +got):\n%s", diff)
	}

	if _, err := p.Next(); !errors.Is(err, io.EOF) {
		t.Errorf("expected io.EOF, got %v", err)
	}
	if p.State() != Idle {
		t.Errorf("state = %s, want idle", p.State())
	}
}

func TestParserDescriptionOnSameLine(t *testing.T) {
	text := "<top>\n<num> Number: 301\n<title> International Organized Crime\n<desc> Description: Identify organizations\n<narr> Narrative: A relevant document\n</top>\n"
	p := NewParser(stream.FromString("topics", text), newTokenizer())
	got, err := p.Next()
	if err != nil {
		t.Fatalf("Next: %v", err)
	}
	if got.RawTitle != "International Organized Crime" {
		t.Errorf("RawTitle = %q", got.RawTitle)
	}
	if got.RawDescription != "Identify organizations" {
		t.Errorf("RawDescription = %q", got.RawDescription)
	}
	if got.RawNarrative != "A relevant document" {
		t.Errorf("RawNarrative = %q", got.RawNarrative)
	}
}

func TestParserStateTransitions(t *testing.T) {
	tests := []struct {
		line string
		want State
	}{
		{"noise", Idle},
		{"<top>", InRecord},
		{"<num> Number: 60", InRecord},
		{"<desc> Description:", InDescription},
		{"some description", InDescription},
		{"", InDescription},
		{"<narr> Narrative:", InNarrative},
		{"narrative text", InNarrative},
		{"<con> Concept(s):", InRecord},
	}

	p := NewParser(stream.FromString("unused", ""), newTokenizer())
	for _, tt := range tests {
		if _, _, err := p.step(tt.line); err != nil {
			t.Fatalf("step(%q): %v", tt.line, err)
		}
		if p.State() != tt.want {
			t.Fatalf("after %q state = %s, want %s", tt.line, p.State(), tt.want)
		}
	}

	topic, emitted, err := p.step("</top>")
	if err != nil || !emitted {
		t.Fatalf("expected topic on </top>, emitted=%v err=%v", emitted, err)
	}
	if topic.Number != 60 || topic.RawDescription != "some description\n" {
		t.Errorf("unexpected topic %+v", topic)
	}
	if p.State() != Idle {
		t.Errorf("state = %s, want idle", p.State())
	}
}

func TestParserMalformed(t *testing.T) {
	tests := []struct {
		name string
		text string
	}{
		{"eof inside record", "<top>\n<num> Number: 51\n<desc> Description:\ncut"},
		{"nested top", "<top>\n<num> Number: 51\n<top>\n</top>\n"},
		{"close outside record", "</top>\n"},
		{"bad number", "<top>\n<num> Number: fifty\n</top>\n"},
		{"missing number", "<top>\n<title> no number\n</top>\n"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			p := NewParser(stream.FromString("bad", tt.text), newTokenizer())
			if _, err := p.Next(); !errors.Is(err, errs.ErrMalformedRecord) {
				t.Fatalf("expected ErrMalformedRecord, got %v", err)
			}
			if _, err := p.Next(); !errors.Is(err, errs.ErrMalformedRecord) {
				t.Errorf("error should be sticky, got %v", err)
			}
		})
	}
}
