// Package report summarizes per-item word counts for display.
package report

import (
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/charmbracelet/lipgloss"
	"golang.org/x/text/language"
	"golang.org/x/text/message"
)

// maxBarWidth is the width of the longest histogram bar.
const maxBarWidth = 40

var (
	headerStyle = lipgloss.NewStyle().Bold(true)
	labelStyle  = lipgloss.NewStyle().Foreground(lipgloss.Color("245"))
	barStyle    = lipgloss.NewStyle().Foreground(lipgloss.Color("39"))
)

// Summary holds aggregate statistics over a result sequence.
type Summary struct {
	Count int
	Total int
	Zeros int
	Min   int
	Max   int
	Mean  float64
}

// Bucket is one histogram bin covering [Low, High].
type Bucket struct {
	Low   int
	High  int
	Count int
}

// Summarize computes statistics over results.
func Summarize(results []int) Summary {
	s := Summary{Count: len(results)}
	for i, v := range results {
		if i == 0 || v < s.Min {
			s.Min = v
		}
		if i == 0 || v > s.Max {
			s.Max = v
		}
		if v == 0 {
			s.Zeros++
		}
		s.Total += v
	}
	if s.Count > 0 {
		s.Mean = float64(s.Total) / float64(s.Count)
	}
	return s
}

// Histogram groups results into at most bins equal-width integer buckets
// spanning [min, max].
func Histogram(results []int, bins int) ([]Bucket, error) {
	if bins <= 0 {
		return nil, errors.New("histogram bins must be >= 1")
	}
	if len(results) == 0 {
		return []Bucket{}, nil
	}

	s := Summarize(results)
	span := s.Max - s.Min + 1
	width := (span + bins - 1) / bins
	n := (span + width - 1) / width

	buckets := make([]Bucket, n)
	for i := range buckets {
		low := s.Min + i*width
		buckets[i] = Bucket{Low: low, High: min(low+width-1, s.Max)}
	}
	for _, v := range results {
		buckets[(v-s.Min)/width].Count++
	}
	return buckets, nil
}

// Render writes a human-readable summary and histogram to w.
func Render(w io.Writer, s Summary, buckets []Bucket) error {
	p := message.NewPrinter(language.English)

	var b strings.Builder
	b.WriteString(headerStyle.Render("DESCRIPTION WORD COUNTS"))
	b.WriteString("\n")
	fmt.Fprintf(&b, "%s %s\n", labelStyle.Render("Items:      "), p.Sprintf("%d", s.Count))
	fmt.Fprintf(&b, "%s %s\n", labelStyle.Render("Total words:"), p.Sprintf("%d", s.Total))
	fmt.Fprintf(&b, "%s %s\n", labelStyle.Render("Mean:       "), p.Sprintf("%.1f", s.Mean))
	fmt.Fprintf(&b, "%s %s\n", labelStyle.Render("Min / Max:  "), p.Sprintf("%d / %d", s.Min, s.Max))
	fmt.Fprintf(&b, "%s %s\n", labelStyle.Render("No text:    "), p.Sprintf("%d", s.Zeros))

	if len(buckets) > 0 {
		peak := 0
		for _, bk := range buckets {
			peak = max(peak, bk.Count)
		}

		b.WriteString("\n")
		b.WriteString(headerStyle.Render("HISTOGRAM"))
		b.WriteString("\n")
		for _, bk := range buckets {
			width := 0
			if peak > 0 {
				width = bk.Count * maxBarWidth / peak
			}
			if bk.Count > 0 && width == 0 {
				width = 1
			}
			label := p.Sprintf("%6d - %-6d", bk.Low, bk.High)
			fmt.Fprintf(&b, "%s | %s %d\n", labelStyle.Render(label), barStyle.Render(strings.Repeat("#", width)), bk.Count)
		}
	}

	_, err := io.WriteString(w, b.String())
	return err
}
