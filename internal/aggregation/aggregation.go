// Package aggregation folds meter readings into per-user and per-period
// figures. All functions are pure; usage always comes from package usage.
package aggregation

import (
	"sort"
	"strings"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/gosimple/slug"
	meterdomain "github.com/smallbiznis/berair/internal/meter/domain"
	"github.com/smallbiznis/berair/internal/usage"
	userdomain "github.com/smallbiznis/berair/internal/user/domain"
)

// Window restricts readings by calendar month, year and user region. Zero
// Month or Year and an empty Region are not applied.
type Window struct {
	Month    int
	Year     int
	Region   string
	Location *time.Location
}

// HasTimeFilter reports whether Month or Year is set.
func (w Window) HasTimeFilter() bool {
	return w.Month != 0 || w.Year != 0
}

func (w Window) location() *time.Location {
	if w.Location == nil {
		return time.UTC
	}
	return w.Location
}

// Contains reports whether t falls in the window's month and year.
func (w Window) Contains(t time.Time) bool {
	local := t.In(w.location())
	if w.Month != 0 && int(local.Month()) != w.Month {
		return false
	}
	if w.Year != 0 && local.Year() != w.Year {
		return false
	}
	return true
}

// MatchRegion is a case-insensitive substring match. An empty filter
// matches every region.
func MatchRegion(region, filter string) bool {
	filter = strings.TrimSpace(filter)
	if filter == "" {
		return true
	}
	return strings.Contains(strings.ToLower(region), strings.ToLower(filter))
}

// newer orders readings by RecordedAt and then by ID.
func newer(a, b meterdomain.Reading) bool {
	if !a.RecordedAt.Equal(b.RecordedAt) {
		return a.RecordedAt.After(b.RecordedAt)
	}
	return a.ID > b.ID
}

// LatestReadingPerUser keeps each user's reading with the greatest
// RecordedAt. Readings recorded at the same instant resolve to the higher ID.
func LatestReadingPerUser(readings []meterdomain.Reading) map[snowflake.ID]meterdomain.Reading {
	latest := make(map[snowflake.ID]meterdomain.Reading)
	for _, r := range readings {
		current, ok := latest[r.UserID]
		if !ok || newer(r, current) {
			latest[r.UserID] = r
		}
	}
	return latest
}

// MonthlyUsage sums usage of every reading of userID recorded within the
// closed interval [monthStart, monthEnd].
func MonthlyUsage(readings []meterdomain.Reading, userID snowflake.ID, monthStart, monthEnd time.Time) int64 {
	var total int64
	for _, r := range readings {
		if r.UserID != userID {
			continue
		}
		if r.RecordedAt.Before(monthStart) || r.RecordedAt.After(monthEnd) {
			continue
		}
		total += usage.ForReading(r)
	}
	return total
}

// TotalUsage sums usage over all of userID's readings in any order.
func TotalUsage(readings []meterdomain.Reading, userID snowflake.ID) int64 {
	var total int64
	for _, r := range readings {
		if r.UserID == userID {
			total += usage.ForReading(r)
		}
	}
	return total
}

// SumUsage sums usage over every reading regardless of owner.
func SumUsage(readings []meterdomain.Reading) int64 {
	var total int64
	for _, r := range readings {
		total += usage.ForReading(r)
	}
	return total
}

// AverageUsagePerReading divides the summed usage by the number of
// readings, not by the number of users.
func AverageUsagePerReading(readings []meterdomain.Reading) float64 {
	if len(readings) == 0 {
		return 0
	}
	return float64(SumUsage(readings)) / float64(len(readings))
}

// InRange keeps readings recorded within the closed interval [from, to].
func InRange(readings []meterdomain.Reading, from, to time.Time) []meterdomain.Reading {
	out := make([]meterdomain.Reading, 0, len(readings))
	for _, r := range readings {
		if r.RecordedAt.Before(from) || r.RecordedAt.After(to) {
			continue
		}
		out = append(out, r)
	}
	return out
}

// InWindow keeps readings whose RecordedAt matches the window's month and
// year. The region is not applied here.
func InWindow(readings []meterdomain.Reading, w Window) []meterdomain.Reading {
	if !w.HasTimeFilter() {
		return readings
	}
	out := make([]meterdomain.Reading, 0, len(readings))
	for _, r := range readings {
		if w.Contains(r.RecordedAt) {
			out = append(out, r)
		}
	}
	return out
}

// LatestReadingInWindowPerUser picks each matching user's newest reading
// among those in the window. Users without such a reading are absent.
func LatestReadingInWindowPerUser(readings []meterdomain.Reading, users []userdomain.User, w Window) map[snowflake.ID]meterdomain.Reading {
	allowed := make(map[snowflake.ID]struct{}, len(users))
	for _, u := range users {
		if MatchRegion(u.Region, w.Region) {
			allowed[u.ID] = struct{}{}
		}
	}

	latest := LatestReadingPerUser(InWindow(readings, w))
	for userID := range latest {
		if _, ok := allowed[userID]; !ok {
			delete(latest, userID)
		}
	}
	return latest
}

type RegionFacet struct {
	Key      string `json:"key"`
	Region   string `json:"region"`
	Users    int    `json:"users"`
	Readings int    `json:"readings"`
	Usage    int64  `json:"usage"`
}

// RegionFacets groups users and their readings by region, sorted by name.
func RegionFacets(readings []meterdomain.Reading, users []userdomain.User) []RegionFacet {
	regionOf := make(map[snowflake.ID]string, len(users))
	facets := make(map[string]*RegionFacet)
	for _, u := range users {
		regionOf[u.ID] = u.Region
		facet, ok := facets[u.Region]
		if !ok {
			facet = &RegionFacet{Key: slug.Make(u.Region), Region: u.Region}
			facets[u.Region] = facet
		}
		facet.Users++
	}

	for _, r := range readings {
		region, ok := regionOf[r.UserID]
		if !ok {
			continue
		}
		facet := facets[region]
		facet.Readings++
		facet.Usage += usage.ForReading(r)
	}

	out := make([]RegionFacet, 0, len(facets))
	for _, facet := range facets {
		out = append(out, *facet)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Region < out[j].Region })
	return out
}

// SortNewestFirst orders readings by RecordedAt descending, ties by ID.
func SortNewestFirst(readings []meterdomain.Reading) {
	sort.SliceStable(readings, func(i, j int) bool { return newer(readings[i], readings[j]) })
}
