// Package dataset reads voltage-change sample files.
//
// The format is one record per line, `<epoch-ms>,<signed change>`, with no
// header row. Extra trailing fields are ignored. A line whose timestamp or
// change does not parse as a number is dropped; it never fails the file.
// So is a change whose decimal exponent lies outside ±18.
package dataset

import (
	"errors"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"

	"github.com/shopspring/decimal"
)

// ErrUnreadable marks a failure to acquire content from the source. It is
// distinct from a dataset that reads fine but holds no valid samples.
var ErrUnreadable = errors.New("dataset source unreadable")

// maxScale bounds the decimal exponent of a change value. Values outside it
// are dropped like any other unparseable change.
const maxScale = 18

// Sample is one parsed energy-change record.
type Sample struct {
	Timestamp   int64           `json:"timestamp"`
	Magnitude   decimal.Decimal `json:"magnitude"`
	SignedValue decimal.Decimal `json:"signed_value"`
}

// Parse converts raw text into samples in input order. The result is never
// nil: callers test len() to tell an empty dataset apart.
func Parse(content string) []Sample {
	samples := make([]Sample, 0)
	for _, line := range strings.Split(content, "\n") {
		if s, ok := parseLine(line); ok {
			samples = append(samples, s)
		}
	}
	return samples
}

func parseLine(line string) (Sample, bool) {
	line = strings.TrimSpace(line)
	if line == "" {
		return Sample{}, false
	}
	fields := strings.Split(line, ",")
	if len(fields) < 2 {
		return Sample{}, false
	}

	ts, err := strconv.ParseInt(strings.TrimSpace(fields[0]), 10, 64)
	if err != nil {
		return Sample{}, false
	}
	change, err := decimal.NewFromString(strings.TrimSpace(fields[1]))
	if err != nil {
		return Sample{}, false
	}
	if exp := change.Exponent(); exp < -maxScale || exp > maxScale {
		return Sample{}, false
	}

	return Sample{
		Timestamp:   ts,
		Magnitude:   change.Abs(),
		SignedValue: change,
	}, true
}

// Read consumes r fully and parses it.
func Read(r io.Reader) ([]Sample, error) {
	data, err := io.ReadAll(r)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrUnreadable, err)
	}
	return Parse(string(data)), nil
}

// Load reads and parses the file at path.
func Load(path string) ([]Sample, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrUnreadable, err)
	}
	defer f.Close()
	return Read(f)
}
