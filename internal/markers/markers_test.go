package markers

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

const sample = "before\n<!-- mulch:start -->\nold\n<!-- mulch:end -->\nafter"

func TestHas(t *testing.T) {
	assert.True(t, Has(sample))
	assert.False(t, Has("no markers here"))
}

func TestWrap(t *testing.T) {
	assert.Equal(t, "<!-- mulch:start -->\nhello\n<!-- mulch:end -->", Wrap("hello\n"))
}

func TestReplace(t *testing.T) {
	got, ok := Replace(sample, "NEW")
	assert.True(t, ok)
	assert.Equal(t, "before\nNEW\nafter", got)

	got, ok = Replace("no markers", "NEW")
	assert.False(t, ok)
	assert.Equal(t, "no markers", got)

	_, ok = Replace("<!-- mulch:end --> then <!-- mulch:start -->", "NEW")
	assert.False(t, ok, "end before start is not a section")
}

func TestRemove(t *testing.T) {
	got := Remove("# Title\n\n<!-- mulch:start -->\nstuff\n<!-- mulch:end -->\n\n\nafter\n")
	assert.Equal(t, "# Title\n\nafter\n", got)

	assert.Equal(t, "untouched", Remove("untouched"))
}

func TestUpsert(t *testing.T) {
	assert.Equal(t, Wrap("body\n")+"\n", Upsert("", "body\n"))
	assert.Equal(t, "# Readme\n\n"+Wrap("body\n")+"\n", Upsert("# Readme\n", "body\n"))
	assert.Equal(t, "before\n"+Wrap("new\n")+"\nafter", Upsert(sample, "new\n"))
}
