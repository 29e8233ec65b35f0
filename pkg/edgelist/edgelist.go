// Package edgelist reads weighted undirected graphs from text.
//
// Two formats are supported. "edgelist" lines are "u v [w]" with integer
// node ids. "ncol" lines are "name1 name2 [w]" with arbitrary names, mapped
// to ids in order of first appearance; a line with a single name adds an
// isolated node. Missing weights default to 1. Blank lines and lines
// starting with '#' or '%' are skipped.
package edgelist

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"math"
	"strconv"
	"strings"

	"golang.org/x/exp/mmap"

	"github.com/dd0wney/cluso-louvain/pkg/algorithms"
)

// Format selects the line syntax.
type Format string

const (
	FormatEdgeList Format = "edgelist"
	FormatNCOL     Format = "ncol"
)

// DefaultWeight is used for lines without a weight column.
const DefaultWeight = 1.0

// maxLineBytes bounds a single input line.
const maxLineBytes = 1 << 20

var (
	// ErrMalformedLine is returned for lines that cannot be parsed.
	ErrMalformedLine = errors.New("malformed line")
	// ErrUnknownFormat is returned for format names other than edgelist and ncol.
	ErrUnknownFormat = errors.New("unknown input format")
)

// ParseFormat converts a format name, defaulting to edgelist when empty.
func ParseFormat(name string) (Format, error) {
	switch Format(strings.ToLower(name)) {
	case "", FormatEdgeList:
		return FormatEdgeList, nil
	case FormatNCOL:
		return FormatNCOL, nil
	default:
		return "", fmt.Errorf("%w: %q", ErrUnknownFormat, name)
	}
}

// Parsed is a graph read from text. Names is set for ncol input only.
type Parsed struct {
	NodeCount int
	Edges     []algorithms.Edge
	Names     []string
}

// Graph builds the weighted graph. Edge and weight errors come from
// algorithms.NewWeightedGraph.
func (p *Parsed) Graph() (*algorithms.WeightedGraph, error) {
	return algorithms.NewWeightedGraph(p.NodeCount, p.Edges)
}

// Name returns the display name of node.
func (p *Parsed) Name(node int) string {
	if node >= 0 && node < len(p.Names) {
		return p.Names[node]
	}
	return strconv.Itoa(node)
}

// Parse reads a whole graph from r.
func Parse(r io.Reader, format Format) (*Parsed, error) {
	var p parser
	switch format {
	case FormatEdgeList:
		p.line = p.edgeListLine
	case FormatNCOL:
		p.ids = make(map[string]int)
		p.out.Names = make([]string, 0)
		p.line = p.ncolLine
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnknownFormat, format)
	}

	scanner := bufio.NewScanner(r)
	scanner.Buffer(make([]byte, 64*1024), maxLineBytes)

	lineNo := 0
	for scanner.Scan() {
		lineNo++
		text := strings.TrimSpace(scanner.Text())
		if text == "" || text[0] == '#' || text[0] == '%' {
			continue
		}
		if err := p.line(strings.Fields(text)); err != nil {
			return nil, fmt.Errorf("%w: line %d: %w", ErrMalformedLine, lineNo, err)
		}
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("failed to read input: %w", err)
	}

	return &p.out, nil
}

// ReadFile memory-maps path and parses it.
func ReadFile(path string, format Format) (*Parsed, error) {
	reader, err := mmap.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open %s: %w", path, err)
	}
	defer reader.Close()

	parsed, err := Parse(io.NewSectionReader(reader, 0, int64(reader.Len())), format)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return parsed, nil
}

type parser struct {
	out  Parsed
	ids  map[string]int
	line func(fields []string) error
}

func (p *parser) edgeListLine(fields []string) error {
	if len(fields) < 2 || len(fields) > 3 {
		return fmt.Errorf("want 2 or 3 fields, got %d", len(fields))
	}

	from, err := parseNode(fields[0])
	if err != nil {
		return err
	}
	to, err := parseNode(fields[1])
	if err != nil {
		return err
	}
	weight, err := parseWeight(fields[2:])
	if err != nil {
		return err
	}

	if from >= p.out.NodeCount {
		p.out.NodeCount = from + 1
	}
	if to >= p.out.NodeCount {
		p.out.NodeCount = to + 1
	}
	p.out.Edges = append(p.out.Edges, algorithms.Edge{From: from, To: to, Weight: weight})
	return nil
}

func (p *parser) ncolLine(fields []string) error {
	switch len(fields) {
	case 1:
		p.nodeID(fields[0])
		return nil
	case 2, 3:
	default:
		return fmt.Errorf("want 1 to 3 fields, got %d", len(fields))
	}

	weight, err := parseWeight(fields[2:])
	if err != nil {
		return err
	}
	from := p.nodeID(fields[0])
	to := p.nodeID(fields[1])
	p.out.Edges = append(p.out.Edges, algorithms.Edge{From: from, To: to, Weight: weight})
	return nil
}

func (p *parser) nodeID(name string) int {
	if id, ok := p.ids[name]; ok {
		return id
	}
	id := len(p.out.Names)
	p.ids[name] = id
	p.out.Names = append(p.out.Names, name)
	p.out.NodeCount = id + 1
	return id
}

func parseNode(field string) (int, error) {
	id, err := strconv.Atoi(field)
	if err != nil {
		return 0, fmt.Errorf("node id %q is not an integer", field)
	}
	if id < 0 {
		return 0, fmt.Errorf("node id %d is negative", id)
	}
	if id == math.MaxInt {
		return 0, fmt.Errorf("node id %d is too large", id)
	}
	return id, nil
}

// parseWeight reads the optional weight column. Negative and non-finite
// values are returned as is for the graph constructor to reject.
func parseWeight(rest []string) (float64, error) {
	if len(rest) == 0 {
		return DefaultWeight, nil
	}
	w, err := strconv.ParseFloat(rest[0], 64)
	if err != nil {
		return 0, fmt.Errorf("weight %q is not a number", rest[0])
	}
	return w, nil
}
