package parser

import "fmt"

type Status int

const (
	Absent Status = iota
	Found
	ParseFailed
)

func (s Status) String() string {
	switch s {
	case Found:
		return "found"
	case ParseFailed:
		return "parse_failed"
	default:
		return "absent"
	}
}

// Result is the outcome of a single extraction strategy. ParseFailed means the
// source element was present but its content could not be interpreted.
type Result[T any] struct {
	Value  T
	Status Status
	Reason string
}

func found[T any](v T) Result[T] {
	return Result[T]{Value: v, Status: Found}
}

func absent[T any]() Result[T] {
	return Result[T]{Status: Absent}
}

func parseFailed[T any](format string, args ...any) Result[T] {
	return Result[T]{Status: ParseFailed, Reason: fmt.Sprintf(format, args...)}
}

// Outcome records how a field was resolved.
type Outcome struct {
	Status   Status
	Strategy string
	Reason   string
}

type Trace map[string]Outcome

type strategy[T any] struct {
	name string
	run  func(*page) Result[T]
}

// firstOf tries strategies in priority order and returns the first Found value.
// When nothing is found the first parse failure, if any, is kept in the trace.
func firstOf[T any](pg *page, tr Trace, field string, strategies ...strategy[T]) (T, bool) {
	outcome := Outcome{Status: Absent, Reason: "no strategy matched"}
	for _, s := range strategies {
		r := s.run(pg)
		switch r.Status {
		case Found:
			tr[field] = Outcome{Status: Found, Strategy: s.name}
			return r.Value, true
		case ParseFailed:
			if outcome.Status == Absent {
				outcome = Outcome{Status: ParseFailed, Strategy: s.name, Reason: r.Reason}
			}
		}
	}

	tr[field] = outcome
	var zero T
	return zero, false
}

type listStrategy struct {
	name string
	// fallback strategies only run while nothing has been collected yet
	fallback bool
	run      func(*page) []string
}

// mergeAll runs list strategies in order, normalizes each candidate with clean
// and returns the ordered, deduplicated union.
func mergeAll(pg *page, tr Trace, field string, clean func(string) (string, bool), strategies ...listStrategy) []string {
	merged := make([]string, 0)
	seen := make(map[string]bool)
	var contributors []string

	for _, s := range strategies {
		if s.fallback && len(merged) > 0 {
			continue
		}
		added := false
		for _, candidate := range s.run(pg) {
			value, ok := clean(candidate)
			if !ok || seen[value] {
				continue
			}
			seen[value] = true
			merged = append(merged, value)
			added = true
		}
		if added {
			contributors = append(contributors, s.name)
		}
	}

	if len(merged) == 0 {
		tr[field] = Outcome{Status: Absent, Reason: "no strategy matched"}
	} else {
		tr[field] = Outcome{Status: Found, Strategy: fmt.Sprint(contributors)}
	}
	return merged
}
