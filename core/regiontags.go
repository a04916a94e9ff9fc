package core

import (
	"bufio"
	"io"
	"os"
	"regexp"
	"slices"

	"github.com/joeshirey/JSRepoAnalysis/internal/contract"
)

// StdinPath makes the extractor read from standard input.
const StdinPath = "-"

// regionTagPattern matches "# [START name]" and "// [END name]" markers.
var regionTagPattern = regexp.MustCompile(`(?:#|//)\s*\[(START|END)\s+(.+?)\]`)

const maxLineBytes = 1024 * 1024

// RegionTagExtractor finds documentation region tags in a sample.
type RegionTagExtractor struct {
	stdin io.Reader
}

// NewRegionTagExtractor creates an extractor that reads StdinPath from os.Stdin.
func NewRegionTagExtractor() *RegionTagExtractor {
	return &RegionTagExtractor{stdin: os.Stdin}
}

// Execute returns the sorted, unique region tags in the file at path.
// An empty result means the file has no tags; I/O failures return *contract.RegionTagError.
func (e *RegionTagExtractor) Execute(path string) ([]string, error) {
	if path == StdinPath {
		tags, err := ExtractFrom(e.stdin)
		if err != nil {
			return nil, &contract.RegionTagError{Path: path, Err: err}
		}
		return tags, nil
	}

	f, err := os.Open(path)
	if err != nil {
		return nil, &contract.RegionTagError{Path: path, Err: err}
	}
	defer func() { _ = f.Close() }()

	tags, err := ExtractFrom(f)
	if err != nil {
		return nil, &contract.RegionTagError{Path: path, Err: err}
	}
	return tags, nil
}

// ExtractFrom streams r line by line. START and END markers contribute the same tag.
func ExtractFrom(r io.Reader) ([]string, error) {
	seen := make(map[string]struct{})
	scanner := bufio.NewScanner(r)
	scanner.Buffer(make([]byte, 0, 64*1024), maxLineBytes)
	for scanner.Scan() {
		for _, m := range regionTagPattern.FindAllStringSubmatch(scanner.Text(), -1) {
			seen[m[2]] = struct{}{}
		}
	}
	if err := scanner.Err(); err != nil {
		return nil, err
	}

	tags := make([]string, 0, len(seen))
	for tag := range seen {
		tags = append(tags, tag)
	}
	slices.Sort(tags)
	return tags, nil
}
