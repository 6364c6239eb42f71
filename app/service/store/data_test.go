package store

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestEntityMapAddDeduplicates(t *testing.T) {
	var m EntityMap

	assert.True(t, m.Add("PROBLEM", "hives"))
	assert.True(t, m.Add("PROBLEM", "itching"))
	assert.False(t, m.Add("PROBLEM", "hives"))

	assert.Equal(t, []string{"hives", "itching"}, m.Terms("PROBLEM"))
	assert.Equal(t, 2, m.Len())
}

func TestEntityMapMergeKeepsFirstSeenOrder(t *testing.T) {
	var a EntityMap
	a.Add("PROBLEM", "hives")
	a.Add("TEST", "CT scan")

	var b EntityMap
	b.Add("PROBLEM", "itching")
	b.Add("PROBLEM", "hives")
	b.Add("TREATMENT", "metformin")

	a.Merge(b)

	assert.Equal(t, []string{"PROBLEM", "TEST", "TREATMENT"}, a.Categories())
	assert.Equal(t, []string{"hives", "itching"}, a.Terms("PROBLEM"))
	assert.Equal(t, []string{"CT scan"}, a.Terms("TEST"))
}

func TestEntityMapCloneIsIndependent(t *testing.T) {
	var m EntityMap
	m.Add("PROBLEM", "hives")

	clone := m.Clone()
	clone.Add("PROBLEM", "rash")

	assert.Equal(t, []string{"hives"}, m.Terms("PROBLEM"))
	assert.Equal(t, []string{"hives", "rash"}, clone.Terms("PROBLEM"))
}

func TestEntityMapJSONRoundTrip(t *testing.T) {
	var m EntityMap
	m.Add("PROBLEM", "hives")
	m.Add("PROBLEM", "itching")
	m.Add("TEST", "CT scan")

	data, err := json.Marshal(m)
	require.NoError(t, err)

	var back EntityMap
	require.NoError(t, json.Unmarshal(data, &back))

	assert.Equal(t, []string{"hives", "itching"}, back.Terms("PROBLEM"))
	assert.Equal(t, []string{"CT scan"}, back.Terms("TEST"))
}

func TestEntityMapFromSortsCategories(t *testing.T) {
	m := EntityMapFrom(map[string][]string{
		"TEST":    {"CT scan"},
		"PROBLEM": {"hives"},
	})

	assert.Equal(t, []string{"PROBLEM", "TEST"}, m.Categories())
}
