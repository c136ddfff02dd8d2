package ui

import (
	"strings"
)

// SparklineChars are the Unicode block characters for rendering, eight
// levels from lowest to full.
var SparklineChars = []rune{'▁', '▂', '▃', '▄', '▅', '▆', '▇', '█'}

// Sparkline keeps a ring buffer of samples and renders them as a
// block-character chart, oldest on the left.
type Sparkline struct {
	samples []float64
	head    int
	count   int
	max     float64
}

// NewSparkline creates a sparkline holding up to capacity samples.
func NewSparkline(capacity int) *Sparkline {
	if capacity <= 0 {
		capacity = 60
	}
	return &Sparkline{samples: make([]float64, capacity)}
}

// Add appends a sample, evicting the oldest once the buffer is full.
func (s *Sparkline) Add(value float64) {
	s.samples[s.head] = value
	s.head = (s.head + 1) % len(s.samples)
	s.count++

	if value > s.max {
		s.max = value
	}
	// The evicted sample may have been the max; rescan periodically.
	if s.count%len(s.samples) == 0 {
		s.recalculateMax()
	}
}

func (s *Sparkline) recalculateMax() {
	s.max = 0
	for _, v := range s.samples {
		if v > s.max {
			s.max = v
		}
	}
}

// ordered returns the buffered samples oldest first.
func (s *Sparkline) ordered() []float64 {
	n := s.count
	if n > len(s.samples) {
		n = len(s.samples)
	}
	start := 0
	if s.count >= len(s.samples) {
		start = s.head
	}

	out := make([]float64, 0, n)
	for i := 0; i < n; i++ {
		out = append(out, s.samples[(start+i)%len(s.samples)])
	}
	return out
}

// Render returns the most recent samples as block characters, padded
// with spaces to width. Non-positive width renders at full capacity.
func (s *Sparkline) Render(width int) string {
	if width <= 0 || width > len(s.samples) {
		width = len(s.samples)
	}

	if s.count == 0 {
		return strings.Repeat(string(SparklineChars[0]), width)
	}

	values := s.ordered()
	if len(values) > width {
		values = values[len(values)-width:]
	}

	var sb strings.Builder
	sb.Grow(width * 3)
	sb.WriteString(renderScaled(values, s.max))
	for i := len(values); i < width; i++ {
		sb.WriteRune(' ')
	}
	return sb.String()
}

// Clear resets the sparkline.
func (s *Sparkline) Clear() {
	for i := range s.samples {
		s.samples[i] = 0
	}
	s.head = 0
	s.count = 0
	s.max = 0
}

// Count returns the number of samples added.
func (s *Sparkline) Count() int {
	return s.count
}

// Max returns the current maximum value.
func (s *Sparkline) Max() float64 {
	return s.max
}

// RenderSamples renders a fixed slice of samples at the given width,
// averaging into buckets when there are more samples than columns.
// The stats command uses this for recent search latencies.
func RenderSamples(values []float64, width int) string {
	if len(values) == 0 || width <= 0 {
		return ""
	}
	if len(values) > width {
		values = bucketAverage(values, width)
	}

	max := 0.0
	for _, v := range values {
		if v > max {
			max = v
		}
	}
	return renderScaled(values, max)
}

// bucketAverage folds values into width buckets, preserving order.
func bucketAverage(values []float64, width int) []float64 {
	out := make([]float64, width)
	counts := make([]int, width)
	for i, v := range values {
		b := i * width / len(values)
		out[b] += v
		counts[b]++
	}
	for i := range out {
		if counts[i] > 0 {
			out[i] /= float64(counts[i])
		}
	}
	return out
}

// renderScaled maps values onto the block levels relative to max.
func renderScaled(values []float64, max float64) string {
	if max <= 0 {
		max = 1
	}

	var sb strings.Builder
	sb.Grow(len(values) * 3)
	for _, v := range values {
		idx := int(v / max * float64(len(SparklineChars)-1))
		if idx < 0 {
			idx = 0
		}
		if idx >= len(SparklineChars) {
			idx = len(SparklineChars) - 1
		}
		sb.WriteRune(SparklineChars[idx])
	}
	return sb.String()
}
