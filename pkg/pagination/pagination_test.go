package pagination

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestClamp(t *testing.T) {
	p := Clamp(3, 25)
	assert.Equal(t, 3, p.Page)
	assert.Equal(t, 25, p.Limit)
	assert.Equal(t, 50, p.Offset)

	p = Clamp(0, 0)
	assert.Equal(t, DefaultPage, p.Page)
	assert.Equal(t, DefaultLimit, p.Limit)
	assert.Equal(t, 0, p.Offset)

	p = Clamp(-5, 500)
	assert.Equal(t, DefaultPage, p.Page)
	assert.Equal(t, MaxLimit, p.Limit)
}

func TestPages(t *testing.T) {
	p := Params{Limit: 20}
	assert.Equal(t, int64(0), p.Pages(0))
	assert.Equal(t, int64(1), p.Pages(1))
	assert.Equal(t, int64(1), p.Pages(20))
	assert.Equal(t, int64(2), p.Pages(21))
	assert.Equal(t, int64(5), p.Pages(100))

	assert.Equal(t, int64(0), Params{}.Pages(100))
}
