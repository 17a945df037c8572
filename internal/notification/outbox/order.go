package outbox

import "sort"

func priorityRank(p Priority) int {
	switch p {
	case PriorityHigh:
		return 0
	case PriorityNormal, "":
		return 1
	default:
		return 2
	}
}

// UPDATE ... RETURNING does not preserve the CTE's order, so claimed batches
// are re-sorted before processing.
func sortByPriority(records []Record) {
	sort.SliceStable(records, func(i, j int) bool {
		ri, rj := priorityRank(records[i].Priority), priorityRank(records[j].Priority)
		if ri != rj {
			return ri < rj
		}
		return records[i].CreatedAt.Before(records[j].CreatedAt)
	})
}
