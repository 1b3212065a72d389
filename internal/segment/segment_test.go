package segment

import (
	"errors"
	"testing"

	"github.com/Lllllllleong/docxflow/internal/pdftest"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPartition(t *testing.T) {
	sel := []int{0, 1, 2, 3, 4, 5, 6, 7, 8, 9, 10, 11}

	tests := []struct {
		name  string
		sel   []int
		size  int
		sizes []int
	}{
		{"twelve by five", sel, 5, []int{5, 5, 2}},
		{"exact multiple", sel[:10], 5, []int{5, 5}},
		{"single chunk", sel[:3], 5, []int{3}},
		{"size one", sel[:3], 1, []int{1, 1, 1}},
		{"default size", sel, 0, []int{5, 5, 2}},
		{"empty", nil, 5, []int{}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			groups := Partition(tt.sel, tt.size)

			sizes := make([]int, 0, len(groups))
			var flat []int
			for _, g := range groups {
				sizes = append(sizes, len(g))
				flat = append(flat, g...)
			}
			assert.Equal(t, tt.sizes, sizes)
			if len(tt.sel) == 0 {
				assert.Empty(t, flat)
				return
			}
			assert.Equal(t, tt.sel, flat)
		})
	}
}

func TestPartitionDoesNotAlias(t *testing.T) {
	sel := []int{0, 1, 2}
	groups := Partition(sel, 2)
	groups[0][0] = 99
	assert.Equal(t, 0, sel[0])
}

func TestLoad(t *testing.T) {
	src, err := Load(pdftest.Numbered(4))
	require.NoError(t, err)
	assert.Equal(t, 4, src.PageCount())
}

func TestLoadRejectsGarbage(t *testing.T) {
	for name, data := range map[string][]byte{
		"empty":     nil,
		"not a pdf": []byte("hello, this is not a pdf document at all"),
	} {
		t.Run(name, func(t *testing.T) {
			_, err := Load(data)
			var segErr *SegmentationError
			require.True(t, errors.As(err, &segErr), "got %v", err)
		})
	}
}

func TestSegmentKeepsSelectedPagesInOrder(t *testing.T) {
	src, err := Load(pdftest.Numbered(12))
	require.NoError(t, err)

	chunks, err := Segment(src, []int{0, 1, 2, 3, 4, 9}, 5)
	require.NoError(t, err)
	require.Len(t, chunks, 2)

	assert.Equal(t, 0, chunks[0].Index)
	assert.Equal(t, []int{0, 1, 2, 3, 4}, chunks[0].Pages)
	assert.Equal(t, "1-5", chunks[0].PageLabel())
	assert.Equal(t, 1, chunks[1].Index)
	assert.Equal(t, []int{9}, chunks[1].Pages)
	assert.Equal(t, "10", chunks[1].PageLabel())

	first, err := pdftest.PageTexts(chunks[0].Payload)
	require.NoError(t, err)
	assert.Equal(t, []string{"Page 1", "Page 2", "Page 3", "Page 4", "Page 5"}, first)

	second, err := pdftest.PageTexts(chunks[1].Payload)
	require.NoError(t, err)
	assert.Equal(t, []string{"Page 10"}, second)
}

func TestSegmentRejectsIndexOutsideDocument(t *testing.T) {
	src, err := Load(pdftest.Numbered(3))
	require.NoError(t, err)

	_, err = Segment(src, []int{1, 3}, 5)
	var segErr *SegmentationError
	require.ErrorAs(t, err, &segErr)
	assert.Equal(t, "select", segErr.Op)
}

func TestPageLabel(t *testing.T) {
	assert.Equal(t, "3", Chunk{Pages: []int{2}}.PageLabel())
	assert.Equal(t, "1-3", Chunk{Pages: []int{0, 2}}.PageLabel())
	assert.Equal(t, "", Chunk{}.PageLabel())
}
