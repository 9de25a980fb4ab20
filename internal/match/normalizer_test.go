package match

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

type renames map[string]string

func (r renames) Rename(name string) (string, bool) {
	v, ok := r[name]
	return v, ok
}

func TestNormalizerVariants(t *testing.T) {
	tests := []struct {
		name  string
		input string
		rules Renamer
		want  []string
	}{
		{
			name:  "plain name has no variants",
			input: "zlib",
			want:  []string{"zlib"},
		},
		{
			name:  "hyphenated name",
			input: "alsa-utils-alsamixer",
			want: []string{
				"alsa-utils-alsamixer",
				"alsa::utils::alsamixer",
				"alsa utils alsamixer",
				"alsa-utils",
				"alsa",
			},
		},
		{
			name:  "underscore gets separator variants",
			input: "python3_six",
			want:  []string{"python3_six", "python3::six", "python3 six"},
		},
		{
			name:  "dot segments stripped after hyphens",
			input: "libxml2-python.so",
			want: []string{
				"libxml2-python.so",
				"libxml2::python.so",
				"libxml2 python.so",
				"libxml2",
			},
		},
		{
			name:  "dot only",
			input: "perl.module.io",
			want:  []string{"perl.module.io", "perl.module", "perl"},
		},
		{
			name:  "replacement is the base",
			input: "busybox-syslog",
			rules: renames{"busybox-syslog": "busybox"},
			want:  []string{"busybox"},
		},
		{
			name:  "longer replacement skips separator variants",
			input: "gtk+3",
			rules: renames{"gtk+3": "gtk-plus"},
			want:  []string{"gtk-plus", "gtk"},
		},
		{
			name:  "same length replacement keeps separator variants",
			input: "gtk+3",
			rules: renames{"gtk+3": "gtk-3"},
			want:  []string{"gtk-3", "gtk::3", "gtk 3", "gtk"},
		},
		{
			name:  "leading hyphen stops",
			input: "-weird",
			want:  []string{"-weird", "::weird", " weird"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			n := NewNormalizer(tt.input, tt.rules)
			assert.Equal(t, tt.want, n.Variants())
			assert.Equal(t, tt.input, n.Original())

			_, ok := n.Next()
			assert.False(t, ok, "exhausted normalizer must stay exhausted")
		})
	}
}

func TestNormalizerNilRules(t *testing.T) {
	n := NewNormalizer("a-b", nil)
	first, ok := n.Next()
	assert.True(t, ok)
	assert.Equal(t, "a-b", first)
}

func TestStripSegment(t *testing.T) {
	tests := []struct {
		in     string
		want   string
		wantOK bool
	}{
		{"a-b-c", "a-b", true},
		{"a.b-c", "a.b", true},
		{"a.b.c", "a.b", true},
		{"abc", "", false},
		{"-abc", "", false},
		{".abc", "", false},
		{"abc-", "abc", true},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			got, ok := StripSegment(tt.in)
			assert.Equal(t, tt.wantOK, ok)
			assert.Equal(t, tt.want, got)
		})
	}
}
