// Package report selects which reading represents each user in a report.
package report

import (
	"sort"
	"time"

	"github.com/smallbiznis/berair/internal/aggregation"
	"github.com/smallbiznis/berair/internal/billing"
	meterdomain "github.com/smallbiznis/berair/internal/meter/domain"
	"github.com/smallbiznis/berair/internal/usage"
	userdomain "github.com/smallbiznis/berair/internal/user/domain"
)

// Criteria narrows a report. Zero Month or Year and an empty Region are
// not applied.
type Criteria struct {
	Month    int
	Year     int
	Region   string
	Location *time.Location
}

func (c Criteria) window() aggregation.Window {
	return aggregation.Window{
		Month:    c.Month,
		Year:     c.Year,
		Region:   c.Region,
		Location: c.Location,
	}
}

// Entry is one user with the reading chosen for them. Reading is nil only
// when no time filter is active and the user has never been read.
type Entry struct {
	User    userdomain.User
	Reading *meterdomain.Reading
	Usage   int64
}

type Result struct {
	Entries        []Entry
	Readings       []meterdomain.Reading
	TotalUsage     int64
	TotalUsagePaid int64
}

// Filter applies the month/year window to build an allowlist of readings,
// restricts users by region and joins each user to their newest allowed
// reading. With a time filter, users without an allowed reading are left
// out; an empty allowlist yields an empty result.
func Filter(readings []meterdomain.Reading, users []userdomain.User, c Criteria) Result {
	w := c.window()

	allowed := aggregation.InWindow(readings, w)
	if w.HasTimeFilter() && len(allowed) == 0 {
		return Result{Entries: []Entry{}, Readings: []meterdomain.Reading{}}
	}
	latest := aggregation.LatestReadingPerUser(allowed)

	res := Result{
		Entries:  make([]Entry, 0, len(users)),
		Readings: make([]meterdomain.Reading, 0, len(latest)),
	}
	for _, u := range users {
		if !aggregation.MatchRegion(u.Region, c.Region) {
			continue
		}
		r, ok := latest[u.ID]
		if !ok {
			if w.HasTimeFilter() {
				continue
			}
			res.Entries = append(res.Entries, Entry{User: u})
			continue
		}

		reading := r
		used := usage.ComputeGuarded(&reading.MeterNow, reading.MeterBefore)
		res.Entries = append(res.Entries, Entry{User: u, Reading: &reading, Usage: used})
		res.Readings = append(res.Readings, reading)
		res.TotalUsage += used
		if billing.StatusOf(reading) == billing.StatusPaid {
			res.TotalUsagePaid += used
		}
	}

	sort.SliceStable(res.Entries, func(i, j int) bool {
		return res.Entries[i].User.Name < res.Entries[j].User.Name
	})
	return res
}
