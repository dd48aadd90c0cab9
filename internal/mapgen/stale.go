package mapgen

import (
	"sort"
	"time"

	"github.com/alucardeht/spfpack/internal/pack"
)

type StaleEntity struct {
	ID   string `json:"id"`
	Days int    `json:"days"`
	Path string `json:"path"`
}

// StaleEntities returns entities whose last_updated is more than threshold
// days before today, most stale first. Ties keep input order.
func StaleEntities(entities []*pack.Entity, today time.Time, threshold int) []StaleEntity {
	day := truncateDay(today)

	var stale []StaleEntity
	for _, e := range entities {
		if e.LastUpdated == nil {
			continue
		}
		days := DaysBetween(*e.LastUpdated, day)
		if days > threshold {
			stale = append(stale, StaleEntity{ID: e.ID, Days: days, Path: e.Path})
		}
	}

	sort.SliceStable(stale, func(i, j int) bool {
		return stale[i].Days > stale[j].Days
	})
	return stale
}

const secondsPerDay = 24 * 60 * 60

// DaysBetween counts calendar days from a to b. It works on Unix seconds
// because a time.Duration cannot span more than about 292 years.
func DaysBetween(a, b time.Time) int {
	return int((truncateDay(b).Unix() - truncateDay(a).Unix()) / secondsPerDay)
}

func truncateDay(t time.Time) time.Time {
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.UTC)
}
