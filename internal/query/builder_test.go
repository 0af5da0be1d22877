package query

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestBuild(t *testing.T) {
	tests := []struct {
		name     string
		location []string
		topic    []string
		years    *YearRange
		expected string
	}{
		{
			name:     "both clauses with year range",
			location: []string{"Atacama Desert", "Chile"},
			topic:    []string{"remote sensing", "lithium"},
			years:    &YearRange{Start: 2017, End: 2024},
			expected: `("Atacama Desert" OR "Chile") AND ("remote sensing" OR "lithium") PUBYEAR AFT 2017 AND PUBYEAR BEF 2024`,
		},
		{
			name:     "wildcard terms are never quoted",
			topic:    []string{"geotherm*", "volcano"},
			expected: `(geotherm* OR "volcano")`,
		},
		{
			name:     "single clause stands alone without AND",
			location: []string{"Patagonia"},
			expected: `("Patagonia")`,
		},
		{
			name:     "year range only",
			years:    &YearRange{Start: 2018, End: 2022},
			expected: "PUBYEAR AFT 2018 AND PUBYEAR BEF 2022",
		},
		{
			name:     "no inputs yields empty query",
			expected: "",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			q := Build(tt.location, tt.topic, tt.years)
			assert.Equal(t, tt.expected, q.String())
		})
	}
}

func TestBuild_CopiesInputs(t *testing.T) {
	terms := []string{"glacier"}
	years := YearRange{Start: 2018, End: 2022}

	q := Build(terms, nil, &years)
	terms[0] = "mutated"
	years.Start = 1900

	assert.Equal(t, "glacier", q.LocationTerms[0])
	assert.Equal(t, 2018, q.Years.Start)
	assert.Equal(t, `("glacier") PUBYEAR AFT 2018 AND PUBYEAR BEF 2022`, q.String())
}

func TestBalancedParens(t *testing.T) {
	tests := []struct {
		name     string
		input    string
		expected bool
	}{
		{name: "nested pairs balance", input: "(A AND (B OR C))", expected: true},
		{name: "unclosed paren fails", input: "(A AND (B OR C)", expected: false},
		{name: "close before open fails", input: ")(", expected: false},
		{name: "empty string balances", input: "", expected: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, BalancedParens(tt.input))
		})
	}
}
