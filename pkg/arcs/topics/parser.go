// Package topics parses TREC topic files into structured query records.
//
//	<top>
//	<num> Number: 051
//	<title> Topic: Airbus Subsidies
//	<desc> Description:
//	Document will discuss government assistance to Airbus Industrie ...
//	<narr> Narrative:
//	To be relevant, a document must cite or discuss ...
//	</top>
package topics

import (
	"errors"
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/cognicore/arcs/pkg/arcs/errs"
)

const (
	tagTop      = "<top>"
	tagTopEnd   = "</top>"
	tagNum      = "<num>"
	tagTitle    = "<title>"
	tagDesc     = "<desc>"
	tagNarr     = "<narr>"
	markNumber  = "Number:"
	markTopic   = "Topic:"
	markDesc    = "Description:"
	markNarr    = "Narrative:"
	blockSep    = "\n"
	noNumberYet = -1
)

// LineSource yields trimmed lines until io.EOF. *stream.Reader satisfies it.
type LineSource interface {
	Next() (string, error)
}

// Tokenizer turns cleaned text into tokens. *ingest.Tokenizer satisfies it.
type Tokenizer interface {
	Tokenize(text string) []string
}

// Topic is one parsed <top> record.
type Topic struct {
	Number      int
	Title       []string
	Description []string
	Narrative   []string

	RawTitle       string
	RawDescription string
	RawNarrative   string
}

// State is the parser position within the topic grammar.
type State int

const (
	Idle State = iota
	InRecord
	InDescription
	InNarrative
)

func (s State) String() string {
	switch s {
	case Idle:
		return "idle"
	case InRecord:
		return "in-record"
	case InDescription:
		return "in-description"
	case InNarrative:
		return "in-narrative"
	default:
		return fmt.Sprintf("state(%d)", int(s))
	}
}

// Parser is a pull iterator over the topics of a line source. It is
// single-pass and not safe for concurrent use.
type Parser struct {
	src   LineSource
	tok   Tokenizer
	state State
	line  int
	err   error

	number int
	title  string
	desc   strings.Builder
	narr   strings.Builder
	// descSep/narrSep hold the separator to write before the next block line.
	descSep, narrSep string
}

// NewParser creates a topic parser over src.
func NewParser(src LineSource, tok Tokenizer) *Parser {
	p := &Parser{src: src, tok: tok}
	p.reset()
	return p
}

// State returns the current parser state.
func (p *Parser) State() State {
	return p.state
}

// Next returns the next topic, or io.EOF at the end of input. Input that ends
// inside a record yields errs.ErrMalformedRecord; errors are sticky.
func (p *Parser) Next() (Topic, error) {
	if p.err != nil {
		return Topic{}, p.err
	}

	for {
		line, err := p.src.Next()
		if errors.Is(err, io.EOF) {
			if p.state != Idle {
				return p.fail(fmt.Errorf("%w: line %d: input ended inside topic (%s)", errs.ErrMalformedRecord, p.line, p.state))
			}
			p.err = io.EOF
			return Topic{}, io.EOF
		}
		if err != nil {
			return p.fail(err)
		}
		p.line++

		topic, emitted, err := p.step(line)
		if err != nil {
			return p.fail(err)
		}
		if emitted {
			return topic, nil
		}
	}
}

func (p *Parser) fail(err error) (Topic, error) {
	p.err = err
	return Topic{}, err
}

// step applies one line to the state machine.
//
//	Idle          --<top>-->            InRecord
//	InRecord      --<desc>-->           InDescription
//	InRecord      --<narr>-->           InNarrative
//	InRecord      --</top>-->           Idle (emit)
//	InDescription --line starting "<"-> InRecord, line re-evaluated
//	InNarrative   --line starting "<"-> InRecord, line re-evaluated
func (p *Parser) step(line string) (Topic, bool, error) {
	switch p.state {
	case Idle:
		if hasTag(line, tagTop) {
			p.reset()
			p.state = InRecord
			return Topic{}, false, nil
		}
		if hasTag(line, tagTopEnd) {
			return Topic{}, false, p.malformed("%s outside a topic", tagTopEnd)
		}
		return Topic{}, false, nil

	case InDescription, InNarrative:
		if strings.HasPrefix(line, "<") {
			p.state = InRecord
			return p.directive(line)
		}
		p.appendBlock(line)
		return Topic{}, false, nil

	case InRecord:
		return p.directive(line)
	}
	return Topic{}, false, p.malformed("unknown parser state %s", p.state)
}

// directive handles a line while InRecord.
func (p *Parser) directive(line string) (Topic, bool, error) {
	switch {
	case hasTag(line, tagTopEnd):
		topic, err := p.emit()
		if err != nil {
			return Topic{}, false, err
		}
		p.state = Idle
		return topic, true, nil

	case hasTag(line, tagTop):
		return Topic{}, false, p.malformed("nested %s", tagTop)

	case hasTag(line, tagNum):
		rest := afterTag(line, tagNum)
		if k := strings.Index(rest, markNumber); k >= 0 {
			rest = rest[k+len(markNumber):]
		}
		n, err := strconv.Atoi(strings.TrimSpace(rest))
		if err != nil {
			return Topic{}, false, p.malformed("bad topic number %q", strings.TrimSpace(rest))
		}
		p.number = n

	case hasTag(line, tagTitle):
		rest := strings.Replace(afterTag(line, tagTitle), markTopic, "", 1)
		p.title = strings.TrimSpace(rest)

	case hasTag(line, tagDesc):
		p.state = InDescription
		p.appendBlock(strings.TrimSpace(strings.Replace(afterTag(line, tagDesc), markDesc, "", 1)))

	case hasTag(line, tagNarr):
		p.state = InNarrative
		p.appendBlock(strings.TrimSpace(strings.Replace(afterTag(line, tagNarr), markNarr, "", 1)))
	}
	return Topic{}, false, nil
}

// appendBlock adds a line to the open block. The empty remainder of an
// opening <desc>/<narr> line is skipped; later blank lines are kept.
func (p *Parser) appendBlock(line string) {
	switch p.state {
	case InDescription:
		if p.desc.Len() == 0 && p.descSep == "" && line == "" {
			return
		}
		p.desc.WriteString(p.descSep)
		p.desc.WriteString(line)
		p.descSep = blockSep
	case InNarrative:
		if p.narr.Len() == 0 && p.narrSep == "" && line == "" {
			return
		}
		p.narr.WriteString(p.narrSep)
		p.narr.WriteString(line)
		p.narrSep = blockSep
	}
}

func (p *Parser) emit() (Topic, error) {
	if p.number == noNumberYet {
		return Topic{}, p.malformed("topic without %s", tagNum)
	}
	desc, narr := p.desc.String(), p.narr.String()
	return Topic{
		Number:         p.number,
		Title:          p.tok.Tokenize(p.title),
		Description:    p.tok.Tokenize(desc),
		Narrative:      p.tok.Tokenize(narr),
		RawTitle:       p.title,
		RawDescription: desc,
		RawNarrative:   narr,
	}, nil
}

func (p *Parser) reset() {
	p.number = noNumberYet
	p.title = ""
	p.desc.Reset()
	p.narr.Reset()
	p.descSep, p.narrSep = "", ""
}

func (p *Parser) malformed(format string, args ...any) error {
	return fmt.Errorf("%w: line %d: %s", errs.ErrMalformedRecord, p.line, fmt.Sprintf(format, args...))
}

func hasTag(line, tag string) bool {
	return len(line) >= len(tag) && strings.EqualFold(line[:len(tag)], tag)
}

func afterTag(line, tag string) string {
	return line[len(tag):]
}
