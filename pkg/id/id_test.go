package id

import (
	"sort"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewIsSortable(t *testing.T) {
	t.Parallel()

	ids := make([]string, 50)
	for i := range ids {
		ids[i] = New()
	}
	assert.True(t, sort.StringsAreSorted(ids))
	assert.Len(t, ids[0], 26)
}

func TestPrefixedAndTime(t *testing.T) {
	t.Parallel()

	at := time.Date(2024, 5, 6, 7, 8, 9, 0, time.UTC)
	raw := NewAt(at)
	got, err := Time(raw)
	require.NoError(t, err)
	assert.True(t, got.Equal(at))

	p := Prefixed("hr")
	assert.True(t, strings.HasPrefix(p, "HR-"))
	_, err = Time(p)
	assert.NoError(t, err)

	_, err = Time("not-an-id")
	assert.Error(t, err)
}
