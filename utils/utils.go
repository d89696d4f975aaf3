package utils

import (
	"math/rand"
	"os"
	"time"

	"github.com/neurocrypto/newsforge/utils/dotenv"
)

const letters = "abcdefghijklmnopqrstuvwxyz"

// ContainsString returns true iff the provided string slice hay contains string
// needle.
func ContainsString(hay []string, needle string) bool {
	for _, str := range hay {
		if str == needle {
			return true
		}
	}
	return false
}

// RandomAlphabetString generates a random lowercase string of length n.
func RandomAlphabetString(n int) string {
	b := make([]byte, n)
	for i := range b {
		b[i] = letters[rand.Intn(len(letters))]
	}
	return string(b)
}

func IsProdEnv() bool {
	return os.Getenv("NEWSFORGE_ENV") == dotenv.ProdEnv
}

// WeekStart returns midnight of the Monday of t's week, in t's location.
// The planner keys every weekly plan by this date.
func WeekStart(t time.Time) time.Time {
	daysSinceMonday := (int(t.Weekday()) + 6) % 7
	y, m, d := t.AddDate(0, 0, -daysSinceMonday).Date()
	return time.Date(y, m, d, 0, 0, 0, 0, t.Location())
}

// DayKey returns the three letter day-of-week key ("Mon" ... "Sun") used by
// weekly plan rows.
func DayKey(t time.Time) string {
	return t.Format("Mon")
}

// DateKey formats t the way the store keys dates.
func DateKey(t time.Time) string {
	return t.Format("2006-01-02")
}
