package recurrence

import (
	"fmt"
	"strings"
	"time"

	"github.com/teambition/rrule-go"

	"github.com/cyp0633/libcalsched/server/storage"
)

var frequencyToRRule = map[storage.Frequency]rrule.Frequency{
	storage.FrequencyDaily:   rrule.DAILY,
	storage.FrequencyWeekly:  rrule.WEEKLY,
	storage.FrequencyMonthly: rrule.MONTHLY,
	storage.FrequencyYearly:  rrule.YEARLY,
}

// rrule-go weekdays start at Monday; time.Weekday starts at Sunday.
var weekdayToRRule = [7]rrule.Weekday{
	time.Sunday:    rrule.SU,
	time.Monday:    rrule.MO,
	time.Tuesday:   rrule.TU,
	time.Wednesday: rrule.WE,
	time.Thursday:  rrule.TH,
	time.Friday:    rrule.FR,
	time.Saturday:  rrule.SA,
}

func weekdayFromRRule(w rrule.Weekday) time.Weekday {
	return time.Weekday((w.Day() + 1) % 7)
}

// ROption converts a pattern into rrule-go options anchored at dtstart.
// Weekly rules use a Sunday week start to match the expander.
func ROption(p *storage.RecurrencePattern, dtstart time.Time) (*rrule.ROption, error) {
	if err := p.Validate(); err != nil {
		return nil, err
	}

	opt := &rrule.ROption{
		Freq:     frequencyToRRule[p.Type],
		Interval: p.Interval,
		Dtstart:  dtstart,
		Wkst:     rrule.SU,
	}
	if p.Type == storage.FrequencyWeekly {
		for _, d := range normalizeWeekdays(p.DaysOfWeek) {
			opt.Byweekday = append(opt.Byweekday, weekdayToRRule[d])
		}
	}
	if p.EndDate != nil {
		opt.Until = *p.EndDate
	}
	if p.Occurrences != nil {
		opt.Count = *p.Occurrences
	}
	return opt, nil
}

// ToRRule renders a pattern as an RRULE value (without the "RRULE:" prefix).
// Monthly and yearly rules on days that some months lack are exported as-is;
// RFC 5545 consumers skip those months instead of clamping.
func ToRRule(p *storage.RecurrencePattern) (string, error) {
	opt, err := ROption(p, time.Time{})
	if err != nil {
		return "", err
	}
	return opt.RRuleString(), nil
}

// PatternFromRRule parses an RRULE value into a pattern. Only FREQ, INTERVAL,
// BYDAY (weekly, no ordinals), UNTIL, COUNT and WKST are accepted.
func PatternFromRRule(value string) (*storage.RecurrencePattern, error) {
	value = strings.TrimPrefix(strings.TrimSpace(value), "RRULE:")
	opt, err := rrule.StrToROption(value)
	if err != nil {
		return nil, &storage.Error{
			Type:    storage.ErrInvalidPattern,
			Message: fmt.Sprintf("failed to parse RRULE '%s'", value),
			Err:     err,
		}
	}

	p := &storage.RecurrencePattern{Interval: opt.Interval}
	if p.Interval == 0 {
		p.Interval = 1
	}
	switch opt.Freq {
	case rrule.DAILY:
		p.Type = storage.FrequencyDaily
	case rrule.WEEKLY:
		p.Type = storage.FrequencyWeekly
	case rrule.MONTHLY:
		p.Type = storage.FrequencyMonthly
	case rrule.YEARLY:
		p.Type = storage.FrequencyYearly
	default:
		return nil, storage.NewError(storage.ErrInvalidPattern, "unsupported frequency %v", opt.Freq)
	}

	if len(opt.Bysetpos)+len(opt.Bymonth)+len(opt.Bymonthday)+len(opt.Byyearday)+
		len(opt.Byweekno)+len(opt.Byhour)+len(opt.Byminute)+len(opt.Bysecond)+len(opt.Byeaster) > 0 {
		return nil, storage.NewError(storage.ErrInvalidPattern, "unsupported RRULE parts in '%s'", value)
	}
	if len(opt.Byweekday) > 0 {
		if p.Type != storage.FrequencyWeekly {
			return nil, storage.NewError(storage.ErrInvalidPattern, "BYDAY is only supported for weekly rules")
		}
		for _, w := range opt.Byweekday {
			if w.N() != 0 {
				return nil, storage.NewError(storage.ErrInvalidPattern, "ordinal BYDAY %v is not supported", w)
			}
			p.DaysOfWeek = append(p.DaysOfWeek, weekdayFromRRule(w))
		}
		p.DaysOfWeek = normalizeWeekdays(p.DaysOfWeek)
	}
	if !opt.Until.IsZero() {
		until := opt.Until
		p.EndDate = &until
	}
	if opt.Count > 0 {
		count := opt.Count
		p.Occurrences = &count
	}

	return p, p.Validate()
}
