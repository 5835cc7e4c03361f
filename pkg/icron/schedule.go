package icron

import (
	"fmt"
	"time"

	"github.com/robfig/cron/v3"
)

// standardParser accepts the same five-field expressions as cron.New().
var standardParser = cron.NewParser(cron.Minute | cron.Hour |
	cron.Dom | cron.Month | cron.Dow | cron.Descriptor)

type TriggerInfo struct {
	Next       time.Time `json:"next"`
	Last       time.Time `json:"last"`
	Expression string    `json:"expression"`

	TimeSinceLast time.Duration `json:"time_since_last"`
	TimeUntilNext time.Duration `json:"time_until_next"`
}

func GetTriggerInfo(cronExpr string, refTime time.Time) (*TriggerInfo, error) {
	schedule, err := standardParser.Parse(cronExpr)
	if err != nil {
		return nil, fmt.Errorf("invalid cron expression: %w", err)
	}

	nextTime := schedule.Next(refTime)
	prevTime := lastTrigger(schedule, refTime)

	info := &TriggerInfo{
		Expression: cronExpr,
		Next:       nextTime,
		Last:       prevTime,
	}

	if !prevTime.IsZero() {
		info.TimeSinceLast = refTime.Sub(prevTime)
	}

	info.TimeUntilNext = nextTime.Sub(refTime)

	return info, nil
}

// lastTrigger finds the latest activation at or before refTime, looking back
// at most a year. It steps back an hour at a time until some activation
// falls before refTime, then walks forward to the latest one.
func lastTrigger(schedule cron.Schedule, refTime time.Time) time.Time {
	var prev time.Time
	searchStart := refTime.Add(-time.Minute)

	for i := range 366 * 24 {
		checkTime := searchStart.Add(-time.Duration(i) * time.Hour)
		candidate := schedule.Next(checkTime)
		if !candidate.IsZero() && !candidate.After(refTime) {
			prev = candidate
			break
		}
	}
	if prev.IsZero() {
		return prev
	}

	for {
		following := schedule.Next(prev)
		if following.IsZero() || following.After(refTime) {
			return prev
		}
		prev = following
	}
}
