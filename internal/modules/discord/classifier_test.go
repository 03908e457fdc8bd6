package discord

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

var testCatalog = []MachineRef{
	{ModelID: "mm", Term: "medieval madness"},
	{ModelID: "mm", Term: "mm"},
	{ModelID: "taf", Term: "the addams family"},
	{ModelID: "taf", Term: "taf"},
	{ModelID: "ww", Term: "whirlwind"},
}

func TestClassify(t *testing.T) {
	testCases := []struct {
		name     string
		content  string
		expected Classification
	}{
		{
			name:    "problem keyword with machine",
			content: "Medieval Madness is broken again",
			expected: Classification{
				Action: ActionProblemReport, ModelID: "mm",
				ReportRefs: []string{}, Matched: "broken",
			},
		},
		{
			name:    "abbreviation matches on word boundary",
			content: "mm flipper weak tonight",
			expected: Classification{
				Action: ActionProblemReport, ModelID: "mm",
				ReportRefs: []string{}, Matched: "flipper weak",
			},
		},
		{
			name:    "abbreviation does not fire inside a word",
			content: "hmm, the hallway smells broken",
			expected: Classification{
				Action: ActionNone, ReportRefs: []string{},
			},
		},
		{
			name:    "work keyword with machine and report ref",
			content: "replaced the flipper coil on whirlwind, closes #482",
			expected: Classification{
				Action: ActionLogEntry, ModelID: "ww",
				ReportRefs: []string{"482"}, Matched: "replaced",
			},
		},
		{
			name:    "parts keyword wins without machine",
			content: "we need a part for the popper",
			expected: Classification{
				Action: ActionPartRequest,
				ReportRefs: []string{}, Matched: "need a part",
			},
		},
		{
			name:    "parts beats problem at equal relevance",
			content: "the addams family needs a new coil, it's dead",
			expected: Classification{
				Action: ActionPartRequest, ModelID: "taf",
				ReportRefs: []string{}, Matched: "needs a new",
			},
		},
		{
			name:    "problem keyword without machine is no action",
			content: "something is broken",
			expected: Classification{
				Action: ActionNone, ReportRefs: []string{},
			},
		},
		{
			name:    "longer machine term preferred",
			content: "the addams family and taf are the same game, fixed it",
			expected: Classification{
				Action: ActionLogEntry, ModelID: "taf",
				ReportRefs: []string{}, Matched: "fixed",
			},
		},
		{
			name:    "duplicate report refs deduped",
			content: "whirlwind fixed, see #12 and #12 and #34",
			expected: Classification{
				Action: ActionLogEntry, ModelID: "ww",
				ReportRefs: []string{"12", "34"}, Matched: "fixed",
			},
		},
		{
			name:    "empty message",
			content: "",
			expected: Classification{
				Action: ActionNone, ReportRefs: []string{},
			},
		},
	}
	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			assert.Equal(t, tc.expected, Classify(tc.content, testCatalog))
		})
	}
}

func TestFirstKeywordTieBreak(t *testing.T) {
	// At the same position the longer phrase wins.
	got := firstKeyword("order a part now", []string{"order part", "order a part"})
	assert.Equal(t, "order a part", got)
}
