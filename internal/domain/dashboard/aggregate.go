package dashboard

import (
	"sort"
	"strings"
	"time"

	"golang.org/x/text/cases"
	"golang.org/x/text/collate"
	"golang.org/x/text/language"
)

// UnspecifiedLabel groups rows with an empty Direction
const UnspecifiedLabel = "Non renseignée"

var caseFolder = cases.Fold()

// GroupLabels merges rows whose labels differ only by case or spacing, maps
// empty labels to UnspecifiedLabel and sorts by value desc, then label in
// French collation order. The first spelling seen for a group is kept.
func GroupLabels(rows []LabelValue) []LabelValue {
	index := make(map[string]int)
	out := make([]LabelValue, 0, len(rows))

	for _, row := range rows {
		label := strings.Join(strings.Fields(row.Label), " ")
		if label == "" {
			label = UnspecifiedLabel
		}
		key := caseFolder.String(label)
		if i, ok := index[key]; ok {
			out[i].Value += row.Value
			continue
		}
		index[key] = len(out)
		out = append(out, LabelValue{Label: label, Value: row.Value})
	}

	col := collate.New(language.French, collate.IgnoreCase)
	sort.SliceStable(out, func(i, j int) bool {
		if out[i].Value != out[j].Value {
			return out[i].Value > out[j].Value
		}
		return col.CompareString(out[i].Label, out[j].Label) < 0
	})
	return out
}

// MonthLabels returns the last n months ending with now's month, oldest first
func MonthLabels(now time.Time, n int) []string {
	if n <= 0 {
		return []string{}
	}
	first := time.Date(now.Year(), now.Month(), 1, 0, 0, 0, 0, now.Location()).AddDate(0, -(n - 1), 0)
	labels := make([]string, n)
	for i := 0; i < n; i++ {
		labels[i] = first.AddDate(0, i, 0).Format("2006-01")
	}
	return labels
}

// TrendStart returns the first instant covered by a trend of n months
func TrendStart(now time.Time, n int) time.Time {
	if n <= 0 {
		n = 1
	}
	return time.Date(now.Year(), now.Month(), 1, 0, 0, 0, 0, now.Location()).AddDate(0, -(n - 1), 0)
}

// BuildTrends buckets order activity into monthly series
func BuildTrends(now time.Time, months int, activity []OrderActivity) Trends {
	labels := MonthLabels(now, months)
	pos := make(map[string]int, len(labels))
	for i, l := range labels {
		pos[l] = i
	}

	t := Trends{
		Labels:    labels,
		Orders:    make([]int64, len(labels)),
		Delivered: make([]int64, len(labels)),
		Rejected:  make([]int64, len(labels)),
	}
	bucket := func(ts time.Time) (int, bool) {
		i, ok := pos[ts.In(now.Location()).Format("2006-01")]
		return i, ok
	}

	for _, a := range activity {
		if i, ok := bucket(a.CreatedAt); ok {
			t.Orders[i]++
		}
		if a.DeliveredAt != nil {
			if i, ok := bucket(*a.DeliveredAt); ok {
				t.Delivered[i]++
			}
		}
		if a.RejectedAt != nil {
			if i, ok := bucket(*a.RejectedAt); ok {
				t.Rejected[i]++
			}
		}
	}
	return t
}

// MonthBounds returns [start, end) of the month containing t, shifted by offset months
func MonthBounds(t time.Time, offset int) (time.Time, time.Time) {
	start := time.Date(t.Year(), t.Month(), 1, 0, 0, 0, 0, t.Location()).AddDate(0, offset, 0)
	return start, start.AddDate(0, 1, 0)
}

// SplitSeries turns user deliveries into parallel chart arrays
func SplitSeries(users []UserDelivery) ([]string, []int64) {
	labels := make([]string, len(users))
	values := make([]int64, len(users))
	for i, u := range users {
		labels[i] = u.Name
		values[i] = u.DeliveredOrders
	}
	return labels, values
}
