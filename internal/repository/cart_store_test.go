package repository

import (
    "testing"

    "github.com/stretchr/testify/assert"
)

func TestCartStore_MergeSeatIDs(t *testing.T) {
    merged := mergeSeatIDs([]uint64{3, 1}, []uint64{1, 4, 3, 4, 2})

    assert.Equal(t, []uint64{3, 1, 4, 2}, merged, "first appearance wins, duplicates dropped")
}

func TestCartStore_MergeSeatIDs_EmptyCart(t *testing.T) {
    assert.Equal(t, []uint64{5, 6}, mergeSeatIDs(nil, []uint64{5, 6, 5}))
    assert.Empty(t, mergeSeatIDs(nil, nil))
}

func TestCartStore_FilterSeatIDs(t *testing.T) {
    kept := filterSeatIDs([]uint64{3, 1, 4, 2}, []uint64{1, 2, 99})

    assert.Equal(t, []uint64{3, 4}, kept, "order of survivors is preserved")
}

func TestCartStore_FilterSeatIDs_RemoveAll(t *testing.T) {
    kept := filterSeatIDs([]uint64{1, 2}, []uint64{2, 1})

    assert.NotNil(t, kept)
    assert.Empty(t, kept)
}

func TestCartStore_CartKey(t *testing.T) {
    assert.Equal(t, "cart:7:9", cartKey(7, 9))
}
