package pathutil

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNormalize(t *testing.T) {
	cases := []struct {
		name  string
		input string
		want  string
	}{
		{"Root", "/", "/"},
		{"SingleSegment", "/a", "/a"},
		{"Nested", "/a/b/c", "/a/b/c"},
		{"TrailingSlash", "/a/b/", "/a/b"},
		{"DotSegment", "/a/./b", "/a/b"},
		{"DotDotSegment", "/a/b/../c", "/a/c"},
		{"DotDotToRoot", "/a/..", "/"},
		{"LeadingDot", "/./a", "/a"},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			got, err := Normalize(tc.input)
			require.NoError(t, err)
			assert.Equal(t, tc.want, got)
		})
	}
}

func TestNormalizeIdempotent(t *testing.T) {
	inputs := []string{"/", "/a", "/a/b/../c", "/a/./b/", "/x/y/z"}
	for _, input := range inputs {
		first, err := Normalize(input)
		require.NoError(t, err)
		second, err := Normalize(first)
		require.NoError(t, err)
		assert.Equal(t, first, second, "Normalize must be idempotent for %q", input)
	}
}

func TestNormalizeInvalid(t *testing.T) {
	cases := []struct {
		name  string
		input string
	}{
		{"Empty", ""},
		{"Relative", "a/b"},
		{"EscapesRoot", "/.."},
		{"EscapesRootNested", "/a/../../b"},
		{"EmptySegment", "/a//b"},
		{"DoubleSlashRoot", "//"},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			_, err := Normalize(tc.input)
			require.Error(t, err)
			assert.ErrorIs(t, err, ErrInvalidPath)
		})
	}
}

func TestSplit(t *testing.T) {
	cases := []struct {
		input      string
		wantParent string
		wantName   string
	}{
		{"/", "/", ""},
		{"/a", "/", "a"},
		{"/a/b", "/a", "b"},
		{"/a/b/c/", "/a/b", "c"},
		{"/a/./b", "/a", "b"},
	}

	for _, tc := range cases {
		parent, name, err := Split(tc.input)
		require.NoError(t, err)
		assert.Equal(t, tc.wantParent, parent)
		assert.Equal(t, tc.wantName, name)
	}
}

func TestComponents(t *testing.T) {
	components, err := Components("/a/b/c")
	require.NoError(t, err)
	assert.Equal(t, []string{"a", "b", "c"}, components)

	components, err = Components("/")
	require.NoError(t, err)
	assert.Empty(t, components)

	_, err = Components("/a//b")
	assert.ErrorIs(t, err, ErrInvalidPath)
}

func TestJoin(t *testing.T) {
	assert.Equal(t, "/a", Join("/", "a"))
	assert.Equal(t, "/a/b", Join("/a", "b"))
}

func TestIsWithin(t *testing.T) {
	assert.True(t, IsWithin("/a/b", "/a"))
	assert.True(t, IsWithin("/a", "/a"))
	assert.True(t, IsWithin("/anything", "/"))
	assert.False(t, IsWithin("/ab", "/a"))
	assert.False(t, IsWithin("/b", "/a"))
}
