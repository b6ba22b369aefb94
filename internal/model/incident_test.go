package model

import (
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
)

func TestSeverityForScore(t *testing.T) {
	cases := []struct {
		score    string
		severity string
	}{
		{"10", SeverityCritical},
		{"9.8", SeverityCritical},
		{"9", SeverityCritical},
		{"8.9", SeverityHigh},
		{"7", SeverityHigh},
		{"6.9", SeverityMedium},
		{"4", SeverityMedium},
		{"3.9", SeverityLow},
		{"0.1", SeverityLow},
		{"0", SeverityNone},
	}
	for _, tc := range cases {
		t.Run(tc.score, func(t *testing.T) {
			score := decimal.RequireFromString(tc.score)
			assert.Equal(t, tc.severity, SeverityForScore(score))
		})
	}
}
