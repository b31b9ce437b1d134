package pdftext

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/productsheet/backend/internal/domain"
)

func TestClean(t *testing.T) {
	tests := []struct {
		name  string
		input string
		want  string
	}{
		{
			name:  "collapses spaces",
			input: "Réfrigérateur   XC500  \t marque CoolTech",
			want:  "Réfrigérateur XC500 marque CoolTech",
		},
		{
			name:  "drops blank lines",
			input: "Ligne 1\r\n\r\n   \nLigne 2\n",
			want:  "Ligne 1\nLigne 2",
		},
		{
			name:  "strips control characters",
			input: "Classe\x00 A\x07++",
			want:  "Classe A++",
		},
		{
			name:  "composes decomposed accents",
			input: "Re\u0301frige\u0301rateur",
			want:  "Réfrigérateur",
		},
		{
			name:  "empty input",
			input: " \n\t ",
			want:  "",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, Clean(tt.input))
		})
	}
}

func TestExtract_InvalidDocument(t *testing.T) {
	tests := []struct {
		name string
		data []byte
	}{
		{name: "empty bytes", data: nil},
		{name: "not a pdf", data: []byte("this is plain text, not a PDF")},
		{name: "truncated header", data: []byte("%PDF-1.4\n%\xe2\xe3\xcf\xd3\n1 0 obj")},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			text, err := Extract(tt.data)

			assert.Empty(t, text)
			assert.ErrorIs(t, err, domain.ErrInvalidDocument)
		})
	}
}
