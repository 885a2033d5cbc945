package bridge

import "strings"

// JoinCondition renders join pairs as "lt.lc = rt.rc" clauses joined by " AND ".
// No pairs yield an empty condition.
func JoinCondition(pairs []JoinPair) string {
	if len(pairs) == 0 {
		return ""
	}

	conditions := make([]string, 0, len(pairs))
	for _, pair := range pairs {
		conditions = append(conditions, pair.Local.String()+" = "+pair.Remote.String())
	}
	return strings.Join(conditions, " AND ")
}
