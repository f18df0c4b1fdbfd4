package grouping

import "city-samadhan/types"

type Tab string

const (
	TabAll        Tab = "All"
	TabPending    Tab = "Pending"
	TabInProgress Tab = "In Progress"
	TabResolved   Tab = "Resolved"
)

// Tabs in display order.
var Tabs = []Tab{TabAll, TabPending, TabInProgress, TabResolved}

type Counts struct {
	All        int `json:"all"`
	Pending    int `json:"pending"`
	InProgress int `json:"inProgress"`
	Resolved   int `json:"resolved"`
	// Unrecognized counts reports whose status is none of the three known
	// values. All == Pending + InProgress + Resolved + Unrecognized.
	Unrecognized int `json:"unrecognized"`
}

func GroupCounts(reports []types.Report) Counts {
	c := Counts{All: len(reports)}
	for _, r := range reports {
		switch r.Status {
		case types.Pending:
			c.Pending++
		case types.InProgress:
			c.InProgress++
		case types.Resolved:
			c.Resolved++
		default:
			c.Unrecognized++
		}
	}
	return c
}

func (t Tab) status() (types.Status, bool) {
	switch t {
	case TabPending:
		return types.Pending, true
	case TabInProgress:
		return types.InProgress, true
	case TabResolved:
		return types.Resolved, true
	}
	return "", false
}

// FilterByTab keeps the reports shown under tab, in input order. An unknown
// tab, like All, shows everything.
func FilterByTab(reports []types.Report, tab Tab) []types.Report {
	status, ok := tab.status()
	if !ok {
		return reports
	}

	out := make([]types.Report, 0, len(reports))
	for _, r := range reports {
		if r.Status == status {
			out = append(out, r)
		}
	}
	return out
}

// Unrecognized returns the reports whose status is outside the known set.
func Unrecognized(reports []types.Report) []types.Report {
	var out []types.Report
	for _, r := range reports {
		if !r.Status.Known() {
			out = append(out, r)
		}
	}
	return out
}
