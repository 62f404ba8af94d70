package sanitize

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestPostRemovesScripts(t *testing.T) {
	out := Post(`<p onclick="steal()">hi <script>alert(1)</script><b>there</b></p>`)
	assert.NotContains(t, out, "script")
	assert.NotContains(t, out, "onclick")
	assert.Contains(t, out, "<b>there</b>")
}

func TestPostLinksAreNoFollow(t *testing.T) {
	out := Post(`<a href="https://example.com">x</a>`)
	assert.Contains(t, out, `rel="nofollow`)
	assert.NotContains(t, Post(`<a href="javascript:alert(1)">x</a>`), "javascript")
}

func TestStripTags(t *testing.T) {
	assert.Equal(t, "Fish & chips are good", StripTags("<p>Fish &amp; chips</p>\n<p>are   <i>good</i></p>"))
	assert.Equal(t, "", StripTags("<p> </p>"))
}

func TestIsBlank(t *testing.T) {
	assert.True(t, IsBlank("<p>&nbsp;</p>"))
	assert.True(t, IsBlank(""))
	assert.False(t, IsBlank("<p>x</p>"))
	assert.False(t, IsBlank(`<img src="/smile.png" alt=":)">`))
}

func TestTruncateWords(t *testing.T) {
	assert.Equal(t, "a b c", TruncateWords("a b c", 3, "..."))
	assert.Equal(t, "a b...", TruncateWords("a  b c", 2, "..."))
	assert.Equal(t, "", TruncateWords("   ", 5, "..."))
}
