package discord

import (
	"regexp"
	"sort"
	"strings"
)

// Action is the record-creation outcome a chat message maps to.
type Action string

const (
	ActionNone          Action = "none"
	ActionPartRequest   Action = "part_request"
	ActionProblemReport Action = "problem_report"
	ActionLogEntry      Action = "log_entry"
)

// The vocabularies are matched as whole phrases, case-insensitive.
// Precedence: parts, then problem, then work.
var (
	partsKeywords = []string{
		"need a part", "need part", "order part", "order a part", "part number",
		"replacement part", "new coil", "new flipper", "new rubber", "new rubbers",
		"needs a new", "out of stock", "ordered a", "order new",
	}
	problemKeywords = []string{
		"broken", "not working", "doesn't work", "dead", "stuck", "jammed",
		"won't start", "wont start", "no credit", "ball stuck", "tilted out",
		"reset loop", "flipper weak", "display out", "sound is out", "acting up",
	}
	workKeywords = []string{
		"fixed", "repaired", "replaced", "adjusted", "cleaned", "waxed",
		"rebuilt", "soldered", "tightened", "swapped", "installed", "leveled",
		"resolved", "done with",
	}
)

// reportRefPattern captures short report references like "#123". The digits
// are matched as a report id prefix when resolved.
var reportRefPattern = regexp.MustCompile(`#(\d{1,8})`)

// MachineRef is one catalog entry the matcher knows about.
type MachineRef struct {
	ModelID string
	Term    string // lowered name or abbreviation
}

// Classification is the deterministic outcome for one message.
type Classification struct {
	Action     Action
	ModelID    string // matched machine model, if any
	ReportRefs []string
	Matched    string // the keyword that decided the action
}

// Classify routes a message. Parts keywords win outright; problem and work
// keywords additionally require a machine match to act on.
func Classify(content string, machines []MachineRef) Classification {
	lowered := strings.ToLower(content)
	out := Classification{Action: ActionNone}

	out.ModelID = matchMachine(lowered, machines)
	out.ReportRefs = extractReportRefs(content)

	if kw := firstKeyword(lowered, partsKeywords); kw != "" {
		out.Action = ActionPartRequest
		out.Matched = kw
		return out
	}
	if out.ModelID != "" {
		if kw := firstKeyword(lowered, problemKeywords); kw != "" {
			out.Action = ActionProblemReport
			out.Matched = kw
			return out
		}
		if kw := firstKeyword(lowered, workKeywords); kw != "" {
			out.Action = ActionLogEntry
			out.Matched = kw
			return out
		}
	}
	return out
}

// firstKeyword returns the earliest keyword occurring in s; position ties
// break toward the longer phrase so "order a part" beats "order a".
func firstKeyword(s string, keywords []string) string {
	best := ""
	bestPos := -1
	for _, kw := range keywords {
		pos := strings.Index(s, kw)
		if pos < 0 {
			continue
		}
		if bestPos == -1 || pos < bestPos || (pos == bestPos && len(kw) > len(best)) {
			best = kw
			bestPos = pos
		}
	}
	return best
}

// matchMachine finds the catalog term present in the message, preferring
// longer terms so "Medieval Madness" beats an abbreviation like "MM".
func matchMachine(lowered string, machines []MachineRef) string {
	sorted := make([]MachineRef, len(machines))
	copy(sorted, machines)
	sort.SliceStable(sorted, func(i, j int) bool {
		return len(sorted[i].Term) > len(sorted[j].Term)
	})
	for _, m := range sorted {
		term := strings.ToLower(strings.TrimSpace(m.Term))
		if term == "" {
			continue
		}
		if containsTerm(lowered, term) {
			return m.ModelID
		}
	}
	return ""
}

// containsTerm requires word boundaries so short abbreviations do not fire
// inside unrelated words.
func containsTerm(s, term string) bool {
	idx := 0
	for {
		pos := strings.Index(s[idx:], term)
		if pos < 0 {
			return false
		}
		start := idx + pos
		end := start + len(term)
		beforeOK := start == 0 || !isWordChar(s[start-1])
		afterOK := end == len(s) || !isWordChar(s[end])
		if beforeOK && afterOK {
			return true
		}
		idx = start + 1
	}
}

func isWordChar(b byte) bool {
	return b >= 'a' && b <= 'z' || b >= 'A' && b <= 'Z' || b >= '0' && b <= '9'
}

func extractReportRefs(content string) []string {
	matches := reportRefPattern.FindAllStringSubmatch(content, -1)
	refs := make([]string, 0, len(matches))
	seen := map[string]struct{}{}
	for _, m := range matches {
		if _, ok := seen[m[1]]; ok {
			continue
		}
		seen[m[1]] = struct{}{}
		refs = append(refs, m[1])
	}
	return refs
}
