package usecase

import (
	"strings"
	"testing"
	"unicode/utf8"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSplitText_ShortTextIsSingleSegment(t *testing.T) {
	tests := []struct {
		name      string
		text      string
		maxLength int
	}{
		{"empty", "", 10},
		{"shorter than window", "Réfrigérateur XC500", 40},
		{"exactly the window", strings.Repeat("a", 40), 40},
		{"accented runes counted once", strings.Repeat("é", 40), 40},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			segments := SplitText(tt.text, tt.maxLength, 5)

			require.Len(t, segments, 1)
			assert.Equal(t, tt.text, segments[0].Text)
			assert.Equal(t, 0, segments[0].Start)
			assert.Equal(t, utf8.RuneCountInString(tt.text), segments[0].End)
			assert.Equal(t, 0, segments[0].Overlap)
		})
	}
}

func TestSplitText_PrefersNaturalBreakpoints(t *testing.T) {
	tests := []struct {
		name     string
		text     string
		firstCut string
	}{
		{
			name:     "line break before sentence end",
			text:     "Première ligne. Suite\nDeuxième partie du texte qui continue",
			firstCut: "Première ligne. Suite\n",
		},
		{
			name:     "sentence end before space",
			text:     "Une phrase assez longue ici. Puis une autre suite",
			firstCut: "Une phrase assez longue ici.",
		},
		{
			name:     "space when no punctuation",
			text:     "Réfrigérateur XC500, marque CoolTech, 500L, classe A++",
			firstCut: "Réfrigérateur XC500, marque CoolTech, ",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			segments := SplitText(tt.text, 40, 10)

			require.GreaterOrEqual(t, len(segments), 2)
			assert.Equal(t, tt.firstCut, segments[0].Text)
		})
	}
}

func TestSplitText_HardBoundaryWithoutBreakpoints(t *testing.T) {
	text := strings.Repeat("x", 25)

	segments := SplitText(text, 10, 0)

	require.Len(t, segments, 3)
	assert.Equal(t, 10, segments[0].End)
	assert.Equal(t, 20, segments[1].End)
	assert.Equal(t, 25, segments[2].End)
}

func TestSplitText_WorkedExample(t *testing.T) {
	text := "Réfrigérateur XC500, marque CoolTech, 500L, classe A++"

	segments := SplitText(text, 40, 10)

	require.Len(t, segments, 2)
	assert.Equal(t, 0, segments[0].Start)
	assert.Equal(t, 38, segments[0].End)
	assert.Equal(t, 28, segments[1].Start)
	assert.Equal(t, 54, segments[1].End)
	assert.Equal(t, 10, segments[1].Overlap)
	assert.Equal(t, "CoolTech, 500L, classe A++", segments[1].Text)
}

func TestSplitText_CoversTextWithoutGaps(t *testing.T) {
	texts := []string{
		strings.Repeat("Le compresseur inverter réduit la consommation. ", 40),
		strings.Repeat("ligne\n", 200),
		strings.Repeat("z", 1000),
		"Réfrigérateur XC500, marque CoolTech, 500L, classe A++",
	}
	windows := []struct{ maxLength, overlap int }{
		{40, 10}, {100, 0}, {64, 63}, {10, 50}, {1, 0},
	}

	for _, text := range texts {
		runes := []rune(text)
		for _, w := range windows {
			segments := SplitText(text, w.maxLength, w.overlap)

			require.NotEmpty(t, segments)
			assert.Equal(t, 0, segments[0].Start)
			assert.Equal(t, len(runes), segments[len(segments)-1].End)

			for i, seg := range segments {
				assert.Equal(t, i, seg.Index)
				assert.LessOrEqual(t, seg.End-seg.Start, w.maxLength)
				assert.Equal(t, string(runes[seg.Start:seg.End]), seg.Text)
				if i == 0 {
					continue
				}
				prev := segments[i-1]
				assert.Greater(t, seg.Start, prev.Start, "start must advance")
				assert.LessOrEqual(t, seg.Start, prev.End, "gap between segments")
				assert.Equal(t, prev.End-seg.Start, seg.Overlap)
			}
		}
	}
}

func TestSplitText_OverlapNotSmallerThanWindowTerminates(t *testing.T) {
	text := strings.Repeat("abc ", 50)

	segments := SplitText(text, 8, 100)

	require.NotEmpty(t, segments)
	assert.Equal(t, utf8.RuneCountInString(text), segments[len(segments)-1].End)
}

func TestTextSegmenter_Split(t *testing.T) {
	segmenter := NewTextSegmenter(40, -3)

	segments := segmenter.Split("Réfrigérateur XC500, marque CoolTech, 500L, classe A++")

	require.Len(t, segments, 2)
	assert.Equal(t, 0, segments[1].Overlap)
}
