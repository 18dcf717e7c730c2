package model

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestListQueryNormalize(t *testing.T) {
	assert.Equal(t, DefaultListLimit, ListQuery{}.Normalize().Limit)
	assert.Equal(t, MaxListLimit, ListQuery{Limit: 5000}.Normalize().Limit)
	assert.Equal(t, 7, ListQuery{Limit: 7}.Normalize().Limit)
	assert.Equal(t, "abc", ListQuery{Before: " abc "}.Normalize().Before)
}

func TestContentLengthCountsRunes(t *testing.T) {
	assert.Equal(t, 5, ContentLength("hello"))
	assert.Equal(t, 2, ContentLength("你好"))
}
