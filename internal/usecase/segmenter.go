package usecase

import (
	"unicode"

	"github.com/productsheet/backend/internal/domain"
)

// TextSegmenter splits long source text into overlapping segments that fit
// the model's effective context budget.
type TextSegmenter struct {
	maxLength int
	overlap   int
}

// NewTextSegmenter creates a segmenter. A negative overlap is treated as zero.
func NewTextSegmenter(maxLength, overlap int) *TextSegmenter {
	if overlap < 0 {
		overlap = 0
	}
	return &TextSegmenter{maxLength: maxLength, overlap: overlap}
}

// Split splits text using the segmenter's window settings.
func (s *TextSegmenter) Split(text string) []domain.Segment {
	return SplitText(text, s.maxLength, s.overlap)
}

// SplitText splits text into windows of at most maxLength runes. Each cut is
// moved back to the nearest line break, else sentence end, else space, within
// the second half of the window. The next window starts overlap runes before
// the cut but always strictly after the previous start.
func SplitText(text string, maxLength, overlap int) []domain.Segment {
	runes := []rune(text)
	n := len(runes)

	if maxLength <= 0 || n <= maxLength {
		return []domain.Segment{{Index: 0, Text: text, Start: 0, End: n}}
	}
	if overlap < 0 {
		overlap = 0
	}

	var segments []domain.Segment
	start, prevEnd := 0, 0

	for start < n {
		end := start + maxLength
		if end >= n {
			end = n
		} else {
			end = findBreakpoint(runes, start, end, maxLength)
		}

		shared := 0
		if len(segments) > 0 && prevEnd > start {
			shared = prevEnd - start
		}
		segments = append(segments, domain.Segment{
			Index:   len(segments),
			Text:    string(runes[start:end]),
			Start:   start,
			End:     end,
			Overlap: shared,
		})

		if end == n {
			break
		}

		next := end - overlap
		if next <= start {
			next = end
		}
		prevEnd = end
		start = next
	}

	return segments
}

// findBreakpoint returns the cut offset for the window [start, end). The
// returned offset is always greater than start.
func findBreakpoint(runes []rune, start, end, maxLength int) int {
	floor := start + maxLength/2

	if cut := lastCut(runes, floor, end, func(i int) bool { return runes[i] == '\n' }); cut > 0 {
		return cut
	}
	sentenceEnd := func(i int) bool {
		return runes[i] == '.' && (i+1 == len(runes) || unicode.IsSpace(runes[i+1]))
	}
	if cut := lastCut(runes, floor, end, sentenceEnd); cut > 0 {
		return cut
	}
	if cut := lastCut(runes, floor, end, func(i int) bool { return runes[i] == ' ' }); cut > 0 {
		return cut
	}
	return end
}

// lastCut scans backward from end for a rune matching isBreak and returns
// the offset just after it, or 0 when none is found at or above floor.
func lastCut(runes []rune, floor, end int, isBreak func(int) bool) int {
	for i := end - 1; i >= floor; i-- {
		if isBreak(i) {
			return i + 1
		}
	}
	return 0
}
