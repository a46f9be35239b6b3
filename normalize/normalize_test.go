package normalize

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestNormalize_Scenario(t *testing.T) {
	in := "# Title\n\nSome **bold** text with a [link](http://x.com)."
	assert.Equal(t, "Title\n\nSome bold text with a link.", Normalize(in))
}

func TestPasses(t *testing.T) {
	tests := []struct {
		name string
		pass func(string) string
		in   string
		want string
	}{
		{"fenced code", StripCode, "before\n```go\nfmt.Println()\n```\nafter", "before\n\nafter"},
		{"tilde fence", StripCode, "a\n~~~\ncode\n~~~\nb", "a\n\nb"},
		{"inline code", StripCode, "call `foo()` now", "call  now"},
		{"long fence with shorter inner fence", StripCode, "a\n````\n```\nx\n````\nb", "a\n\nb"},
		{"mid-line fence is prose", StripCode, "Type ``` to start a code block.", "Type ``` to start a code block."},
		{"fence markers on separate prose lines", StripCode, "open with ```\nprose\nclose with ```", "open with ```\nprose\nclose with ```"},
		{"unclosed fence kept", StripCode, "a\n```\nb", "a\n```\nb"},
		{"mismatched closer", StripCode, "a\n```\nb\n~~~\nc", "a\n```\nb\n~~~\nc"},
		{"closer with trailing text", StripCode, "~~~\nb\n~~~ not a closer", "~~~\nb\n~~~ not a closer"},
		{"indented code is not a fence", StripCode, "    ```\nx\n```", "    ```\nx\n```"},
		{"link", UnwrapLinks, "see [the docs](https://x.com/docs) here", "see the docs here"},
		{"adjacent links", UnwrapLinks, "[a](x)[b](y)", "ab"},
		{"link leaves images", UnwrapLinks, "![logo](logo.png)", "![logo](logo.png)"},
		{"image", StripImages, "a ![logo](logo.png) b", "a  b"},
		{"heading", StripHeadings, "## Section\ntext", "Section\ntext"},
		{"deep heading", StripHeadings, "###### Six", "Six"},
		{"hashtag is not heading", StripHeadings, "#golang rocks", "#golang rocks"},
		{"stacked heading markers", StripHeadings, "# # # Title", "Title"},
		{"bold", StripEmphasis, "a **b** c", "a b c"},
		{"bold underscore", StripEmphasis, "a __b__ c", "a b c"},
		{"italic", StripEmphasis, "a *b* c", "a b c"},
		{"italic underscore", StripEmphasis, "a _b_ c", "a b c"},
		{"nested emphasis", StripEmphasis, "**a *b* c**", "a b c"},
		{"snake case kept", StripEmphasis, "use snake_case_names", "use snake_case_names"},
		{"bullet star kept", StripEmphasis, "* item", "* item"},
		{"dash rule", StripRules, "a\n---\nb", "a\n\nb"},
		{"spaced star rule", StripRules, "a\n* * *\nb", "a\n\nb"},
		{"underscore rule", StripRules, "a\n_____\nb", "a\n\nb"},
		{"html tags", StripHTML, "<p>Hello <b>there</b></p>", "Hello there"},
		{"html comment", StripHTML, "a<!-- hidden -->b", "ab"},
		{"comparison survives", StripHTML, "1 < 2 and 3 > 2", "1 < 2 and 3 > 2"},
		{"bullets", NormalizeBullets, "* one\n+ two\n  - three", "- one\n- two\n- three"},
		{"blank lines", CollapseBlankLines, "a\n\n\n\nb", "a\n\nb"},
		{"whitespace-only lines", CollapseBlankLines, "a\n  \n\t\n\nb", "a\n\nb"},
		{"trim", TrimDocument, "\n\n  text \n", "text"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, tt.pass(tt.in))
		})
	}
}

func TestNormalize(t *testing.T) {
	tests := []struct {
		name string
		in   string
		want string
	}{
		{
			name: "empty",
			in:   "",
			want: "",
		},
		{
			name: "plain prose unchanged",
			in:   "Just a sentence.",
			want: "Just a sentence.",
		},
		{
			name: "image inside paragraph",
			in:   "Intro ![diagram](d.png) text",
			want: "Intro  text",
		},
		{
			name: "document",
			in: "# Pricing\n\n" +
				"Our **Pro** plan costs $10.\n\n\n\n" +
				"* Unlimited [agents](/agents)\n" +
				"* `api` access\n\n" +
				"---\n\n" +
				"<div>Contact us</div>\n",
			want: "Pricing\n\n" +
				"Our Pro plan costs $10.\n\n" +
				"- Unlimited agents\n" +
				"- access\n\n" +
				"Contact us",
		},
		{
			name: "tag that forms a link after removal",
			in:   "[a]<span>(x)",
			want: "a",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, Normalize(tt.in))
		})
	}
}

func TestNormalize_Idempotent(t *testing.T) {
	inputs := []string{
		"",
		"   ",
		"# Title\n\nSome **bold** text with a [link](http://x.com).",
		"***strong emphasis*** and *a*b*c*",
		"[a]<span>(x)",
		"```\nunterminated fence",
		"+ one\n\n\n\n- two\n    * three",
		"<div><p>__x__</p></div>",
		"line one  \nline two\t\n\n\n",
		"![img](a.png)[link](b)![img2](c.png)",
		"### \n---\n***\n___",
		"snake_case and _italic_ and __bold__",
		strings.Repeat("# ", 20) + "Title",
		strings.Repeat("[", 20) + "a" + strings.Repeat("](x)", 20),
		strings.Repeat("<", 20) + "b" + strings.Repeat(">", 20),
		"Type ``` to start a code block in chat.",
	}

	for _, in := range inputs {
		once := Normalize(in)
		assert.Equal(t, once, Normalize(once), "input %q", in)
	}
}

func TestNormalize_StrayFenceKeepsFollowingText(t *testing.T) {
	in := "Type ``` to start a code block in chat.\n\nClose blocks with ``` too.\n\nFinal paragraph."
	got := Normalize(in)
	assert.Contains(t, got, "Close blocks with")
	assert.Contains(t, got, "Final paragraph.")
}

func TestPasses_Order(t *testing.T) {
	names := make([]string, 0, len(Passes()))
	for _, p := range Passes() {
		names = append(names, p.Name)
	}
	assert.Equal(t, []string{
		"code", "links", "images", "headings", "emphasis",
		"rules", "html", "bullets", "blank-lines", "trim",
	}, names)
}
