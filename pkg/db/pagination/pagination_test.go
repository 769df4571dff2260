package pagination

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFetchAllConcatenatesInPageOrder(t *testing.T) {
	data := [][]int{{1, 2}, {3, 4}, {5, 6}, {7}}
	var calls atomic.Int32

	got, err := FetchAll(context.Background(), func(ctx context.Context, page int) (Page[int], error) {
		calls.Add(1)
		return Page[int]{Items: data[page-1], TotalPages: len(data)}, nil
	}, 2)

	require.NoError(t, err)
	assert.Equal(t, []int{1, 2, 3, 4, 5, 6, 7}, got)
	assert.Equal(t, int32(4), calls.Load())
}

func TestFetchAllSinglePage(t *testing.T) {
	got, err := FetchAll(context.Background(), func(ctx context.Context, page int) (Page[string], error) {
		if page != 1 {
			t.Fatalf("unexpected page %d", page)
		}
		return Page[string]{Items: []string{"a"}, TotalPages: 1}, nil
	}, 0)

	require.NoError(t, err)
	assert.Equal(t, []string{"a"}, got)
}

func TestFetchAllPropagatesPageError(t *testing.T) {
	boom := errors.New("boom")
	_, err := FetchAll(context.Background(), func(ctx context.Context, page int) (Page[int], error) {
		if page == 3 {
			return Page[int]{}, boom
		}
		return Page[int]{Items: []int{page}, TotalPages: 3}, nil
	}, 4)

	assert.ErrorIs(t, err, boom)
}

func TestFetchAllRequiresFetcher(t *testing.T) {
	_, err := FetchAll[int](context.Background(), nil, 1)
	assert.Error(t, err)
}

func TestTotalPages(t *testing.T) {
	assert.Equal(t, 0, TotalPages(0, 10))
	assert.Equal(t, 1, TotalPages(10, 10))
	assert.Equal(t, 2, TotalPages(11, 10))
	assert.Equal(t, 0, TotalPages(5, 0))
}
