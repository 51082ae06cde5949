package domain

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestNormalizeQuery(t *testing.T) {
	assert.Equal(t, "best electric truck", NormalizeQuery("  Best Electric TRUCK \n"))
	assert.Equal(t, "", NormalizeQuery("   "))
}

func TestHashQuery_UsesNormalizedForm(t *testing.T) {
	assert.Equal(t, HashQuery("hello world"), HashQuery("  HELLO World "))
	assert.Len(t, HashQuery("x"), 64)
	assert.NotEqual(t, HashQuery("a"), HashQuery("b"))
}

func TestSearchEvent_Anonymize(t *testing.T) {
	e := SearchEvent{Query: "Secret Query"}
	e.Anonymize()

	assert.Empty(t, e.Query)
	assert.Equal(t, HashQuery("secret query"), e.QueryHash)
}

func TestRateWindow_Prune(t *testing.T) {
	w := RateWindow{Timestamps: []int64{100, 130, 159, 160, 200}}
	w.Prune(220, 60)

	assert.Equal(t, []int64{200}, w.Timestamps)
	assert.Equal(t, 1, w.Count())

	w.Add(221)
	assert.Equal(t, 2, w.Count())
}
