package cleaner_test

import (
	"testing"

	"headline-sft/internal/core/cleaner"

	"github.com/stretchr/testify/assert"
)

func TestClean(t *testing.T) {
	tests := []struct {
		name string
		raw  string
		want string
	}{
		{
			name: "script removed and wrapper unwrapped",
			raw:  "<div>Hello</div><script>x</script> world",
			want: "Hello\nworld",
		},
		{
			name: "empty input",
			raw:  "",
			want: "",
		},
		{
			name: "whitespace only",
			raw:  " \n\t ",
			want: "",
		},
		{
			name: "figures and styles removed",
			raw: `<p class="Normal">Hà Nội  mưa lớn. </p>
<figure><img src="a.jpg"/><figcaption>Ảnh minh họa</figcaption></figure>
<style>.a{color:red}</style>
<p>Nhiều tuyến phố ngập.</p>`,
			want: "Hà Nội  mưa lớn.\nNhiều tuyến phố ngập.",
		},
		{
			name: "entities decoded",
			raw:  "<p>Tom &amp; Jerry</p>",
			want: "Tom & Jerry",
		},
		{
			name: "inline elements split fragments",
			raw:  "<p>Giá <strong>tăng</strong> mạnh</p>",
			want: "Giá\ntăng\nmạnh",
		},
		{
			name: "plain multi line text",
			raw:  "  dòng một \n\n\n dòng hai  ",
			want: "dòng một\ndòng hai",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, cleaner.Clean(tt.raw))
		})
	}
}

func TestCleanIdempotent(t *testing.T) {
	inputs := []string{
		"<div>Hello</div><script>x</script> world",
		"Sáng 19/10, hàng nghìn du khách đổ về Đà Lạt.\n\nThời tiết se lạnh.",
		"<article><h1>Tiêu đề</h1><p>Nội dung bài viết</p></article>",
		"",
	}
	for _, in := range inputs {
		once := cleaner.Clean(in)
		assert.Equal(t, once, cleaner.Clean(once), "input %q", in)
	}
}

func TestCleanDecodesEntities(t *testing.T) {
	assert.Equal(t, "a <b> c", cleaner.Clean("a &lt;b&gt; c"))
	assert.Equal(t, "Giá & lãi suất", cleaner.Clean("<p>Giá &amp; lãi suất</p>"))
	assert.Equal(t, "Giá & lãi suất", cleaner.Clean(cleaner.Clean("<p>Giá &amp; lãi suất</p>")))

	// A decoded tag is markup on the next pass.
	assert.Equal(t, "a\nc", cleaner.Clean(cleaner.Clean("a &lt;b&gt; c")))
}
