package types

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestNewPagination(t *testing.T) {
	t.Run("ExactFit", func(t *testing.T) {
		p := NewPagination(2, 1, 2)
		assert.Equal(t, 2, p.CurrentPage)
		assert.Equal(t, 2, p.TotalPages)
		assert.Equal(t, 2, p.TotalItems)
		assert.False(t, p.HasNext)
	})

	t.Run("HasNext", func(t *testing.T) {
		p := NewPagination(1, 20, 45)
		assert.Equal(t, 3, p.TotalPages)
		assert.True(t, p.HasNext)
	})

	t.Run("Empty", func(t *testing.T) {
		p := NewPagination(1, 20, 0)
		assert.Equal(t, 0, p.TotalPages)
		assert.Equal(t, 0, p.TotalItems)
		assert.False(t, p.HasNext)
	})

	t.Run("LastPartialPage", func(t *testing.T) {
		p := NewPagination(3, 20, 45)
		assert.Equal(t, 3, p.TotalPages)
		assert.False(t, p.HasNext)
	})
}
