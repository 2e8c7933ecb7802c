package query

import (
	"fmt"
	"strings"
	"time"

	"github.com/vegasq/lazytab/frame"
)

// Date/Time Functions
//
// Arguments may be Date, Datetime or strings in one of the accepted date
// layouts. Null arguments yield null.

func temporalArgs(name string, args []frame.DataType) error {
	return expectTypes(name, args, "a date", isTimeLike)
}

// datePart extracts an integer component of a date argument
func datePart(args []frame.Value, part func(time.Time) int64) (frame.Value, error) {
	if anyNull(args) {
		return frame.Value{}, nil
	}
	v, err := valueToTime(args[0])
	if err != nil {
		return frame.Value{}, err
	}
	return frame.Int(part(v.Time())), nil
}

// YearFunc extracts the year
type YearFunc struct{}

func (f *YearFunc) Name() string  { return "year" }
func (f *YearFunc) MinArity() int { return 1 }
func (f *YearFunc) MaxArity() int { return 1 }
func (f *YearFunc) ReturnType(args []frame.DataType) (frame.DataType, error) {
	return frame.Int64, temporalArgs(f.Name(), args)
}
func (f *YearFunc) Evaluate(args []frame.Value) (frame.Value, error) {
	return datePart(args, func(t time.Time) int64 { return int64(t.Year()) })
}

// MonthFunc extracts the month, 1 to 12
type MonthFunc struct{}

func (f *MonthFunc) Name() string  { return "month" }
func (f *MonthFunc) MinArity() int { return 1 }
func (f *MonthFunc) MaxArity() int { return 1 }
func (f *MonthFunc) ReturnType(args []frame.DataType) (frame.DataType, error) {
	return frame.Int64, temporalArgs(f.Name(), args)
}
func (f *MonthFunc) Evaluate(args []frame.Value) (frame.Value, error) {
	return datePart(args, func(t time.Time) int64 { return int64(t.Month()) })
}

// DayFunc extracts the day of the month
type DayFunc struct{}

func (f *DayFunc) Name() string  { return "day" }
func (f *DayFunc) MinArity() int { return 1 }
func (f *DayFunc) MaxArity() int { return 1 }
func (f *DayFunc) ReturnType(args []frame.DataType) (frame.DataType, error) {
	return frame.Int64, temporalArgs(f.Name(), args)
}
func (f *DayFunc) Evaluate(args []frame.Value) (frame.Value, error) {
	return datePart(args, func(t time.Time) int64 { return int64(t.Day()) })
}

// WeekdayFunc returns the ISO weekday, Monday = 1 through Sunday = 7
type WeekdayFunc struct{}

func (f *WeekdayFunc) Name() string  { return "weekday" }
func (f *WeekdayFunc) MinArity() int { return 1 }
func (f *WeekdayFunc) MaxArity() int { return 1 }
func (f *WeekdayFunc) ReturnType(args []frame.DataType) (frame.DataType, error) {
	return frame.Int64, temporalArgs(f.Name(), args)
}
func (f *WeekdayFunc) Evaluate(args []frame.Value) (frame.Value, error) {
	return datePart(args, func(t time.Time) int64 {
		if wd := t.Weekday(); wd != time.Sunday {
			return int64(wd)
		}
		return 7
	})
}

// DatePartFunc extracts a named component: year, month, day, hour, minute
// or second
type DatePartFunc struct{}

func (f *DatePartFunc) Name() string  { return "date_part" }
func (f *DatePartFunc) MinArity() int { return 2 }
func (f *DatePartFunc) MaxArity() int { return 2 }
func (f *DatePartFunc) ReturnType(args []frame.DataType) (frame.DataType, error) {
	if err := expectTypes(f.Name(), args[:1], "a string", isString); err != nil {
		return frame.Unknown, err
	}
	return frame.Int64, temporalArgs(f.Name(), args[1:])
}
func (f *DatePartFunc) Evaluate(args []frame.Value) (frame.Value, error) {
	if anyNull(args) {
		return frame.Value{}, nil
	}
	unit := strings.ToLower(args[0].Str())
	return datePart(args[1:], func(t time.Time) int64 {
		switch unit {
		case "year":
			return int64(t.Year())
		case "month":
			return int64(t.Month())
		case "day":
			return int64(t.Day())
		case "hour":
			return int64(t.Hour())
		case "minute":
			return int64(t.Minute())
		case "second":
			return int64(t.Second())
		}
		return -1
	})
}

// temporalResult is Date for Date input and Datetime otherwise
func temporalResult(t frame.DataType) frame.DataType {
	if t == frame.Date {
		return frame.Date
	}
	return frame.Datetime
}

// DateTruncFunc truncates a date to a unit: year, month, day or hour
type DateTruncFunc struct{}

func (f *DateTruncFunc) Name() string  { return "date_trunc" }
func (f *DateTruncFunc) MinArity() int { return 2 }
func (f *DateTruncFunc) MaxArity() int { return 2 }
func (f *DateTruncFunc) ReturnType(args []frame.DataType) (frame.DataType, error) {
	if err := expectTypes(f.Name(), args[:1], "a string", isString); err != nil {
		return frame.Unknown, err
	}
	if err := temporalArgs(f.Name(), args[1:]); err != nil {
		return frame.Unknown, err
	}
	return temporalResult(args[1]), nil
}
func (f *DateTruncFunc) Evaluate(args []frame.Value) (frame.Value, error) {
	if anyNull(args) {
		return frame.Value{}, nil
	}
	v, err := valueToTime(args[1])
	if err != nil {
		return frame.Value{}, err
	}
	d := v.Time()
	var out time.Time
	switch strings.ToLower(args[0].Str()) {
	case "year":
		out = time.Date(d.Year(), 1, 1, 0, 0, 0, 0, d.Location())
	case "month":
		out = time.Date(d.Year(), d.Month(), 1, 0, 0, 0, 0, d.Location())
	case "day":
		out = time.Date(d.Year(), d.Month(), d.Day(), 0, 0, 0, 0, d.Location())
	case "hour":
		out = time.Date(d.Year(), d.Month(), d.Day(), d.Hour(), 0, 0, 0, d.Location())
	default:
		return frame.Value{}, fmt.Errorf("invalid unit: %s", args[0].Str())
	}
	if args[1].Type == frame.Date {
		return frame.DateOf(out), nil
	}
	return frame.DatetimeOf(out), nil
}

// maxDateOffset bounds calendar offsets so AddDate cannot overflow
const maxDateOffset = 1 << 30

// DateAddFunc adds an integer amount of a unit (year, month, day, hour,
// minute, second) to a date
type DateAddFunc struct{}

func (f *DateAddFunc) Name() string  { return "date_add" }
func (f *DateAddFunc) MinArity() int { return 3 }
func (f *DateAddFunc) MaxArity() int { return 3 }
func (f *DateAddFunc) ReturnType(args []frame.DataType) (frame.DataType, error) {
	if err := temporalArgs(f.Name(), args[:1]); err != nil {
		return frame.Unknown, err
	}
	if err := expectTypes(f.Name(), args[1:2], "an integer", isInteger); err != nil {
		return frame.Unknown, err
	}
	if err := expectTypes(f.Name(), args[2:], "a string", isString); err != nil {
		return frame.Unknown, err
	}
	return temporalResult(args[0]), nil
}
func (f *DateAddFunc) Evaluate(args []frame.Value) (frame.Value, error) {
	if anyNull(args) {
		return frame.Value{}, nil
	}
	v, err := valueToTime(args[0])
	if err != nil {
		return frame.Value{}, err
	}
	amount := args[1].Int64()
	if amount > maxDateOffset || amount < -maxDateOffset {
		return frame.Value{}, fmt.Errorf("amount %d out of range", amount)
	}
	d, n := v.Time(), int(amount)
	var out time.Time
	switch strings.ToLower(args[2].Str()) {
	case "year":
		out = d.AddDate(n, 0, 0)
	case "month":
		out = d.AddDate(0, n, 0)
	case "day":
		out = d.AddDate(0, 0, n)
	case "hour":
		out = d.Add(time.Duration(n) * time.Hour)
	case "minute":
		out = d.Add(time.Duration(n) * time.Minute)
	case "second":
		out = d.Add(time.Duration(n) * time.Second)
	default:
		return frame.Value{}, fmt.Errorf("invalid unit: %s", args[2].Str())
	}
	if args[0].Type == frame.Date {
		return frame.DateOf(out), nil
	}
	return frame.DatetimeOf(out), nil
}

// DateDiffFunc returns a - b in whole units, truncated toward zero. The unit
// defaults to days; hours, minutes and seconds are also accepted.
type DateDiffFunc struct{}

func (f *DateDiffFunc) Name() string  { return "date_diff" }
func (f *DateDiffFunc) MinArity() int { return 2 }
func (f *DateDiffFunc) MaxArity() int { return 3 }
func (f *DateDiffFunc) ReturnType(args []frame.DataType) (frame.DataType, error) {
	if err := temporalArgs(f.Name(), args[:2]); err != nil {
		return frame.Unknown, err
	}
	return frame.Int64, expectTypes(f.Name(), args[2:], "a string", isString)
}
func (f *DateDiffFunc) Evaluate(args []frame.Value) (frame.Value, error) {
	if anyNull(args) {
		return frame.Value{}, nil
	}
	a, err := valueToTime(args[0])
	if err != nil {
		return frame.Value{}, err
	}
	b, err := valueToTime(args[1])
	if err != nil {
		return frame.Value{}, err
	}
	unit := time.Hour * 24
	if len(args) == 3 {
		switch strings.ToLower(args[2].Str()) {
		case "day":
		case "hour":
			unit = time.Hour
		case "minute":
			unit = time.Minute
		case "second":
			unit = time.Second
		default:
			return frame.Value{}, fmt.Errorf("invalid unit: %s", args[2].Str())
		}
	}
	return frame.Int(int64(a.Time().Sub(b.Time()) / unit)), nil
}

// strftimeLayouts maps strftime directives to Go layout fragments
var strftimeLayouts = map[byte]string{
	'Y': "2006", 'y': "06", 'm': "01", 'd': "02", 'e': "_2",
	'H': "15", 'I': "03", 'M': "04", 'S': "05", 'p': "PM",
	'b': "Jan", 'B': "January", 'a': "Mon", 'A': "Monday",
	'j': "002", 'z': "-0700", 'Z': "MST",
	'F': "2006-01-02", 'T': "15:04:05",
}

// strftime formats t directive by directive; literal text is copied as is
func strftime(t time.Time, format string) (string, error) {
	var sb strings.Builder
	for i := 0; i < len(format); i++ {
		if format[i] != '%' {
			sb.WriteByte(format[i])
			continue
		}
		i++
		if i == len(format) {
			return "", fmt.Errorf("format %q ends with %%", format)
		}
		switch format[i] {
		case '%':
			sb.WriteByte('%')
			continue
		case 'f':
			fmt.Fprintf(&sb, "%06d", t.Nanosecond()/1000)
			continue
		}
		layout, ok := strftimeLayouts[format[i]]
		if !ok {
			return "", fmt.Errorf("unsupported directive %%%c", format[i])
		}
		sb.WriteString(t.Format(layout))
	}
	return sb.String(), nil
}

// StrftimeFunc formats a date with strftime directives such as %Y-%m-%d
type StrftimeFunc struct{}

func (f *StrftimeFunc) Name() string  { return "strftime" }
func (f *StrftimeFunc) MinArity() int { return 2 }
func (f *StrftimeFunc) MaxArity() int { return 2 }
func (f *StrftimeFunc) ReturnType(args []frame.DataType) (frame.DataType, error) {
	if err := temporalArgs(f.Name(), args[:1]); err != nil {
		return frame.Unknown, err
	}
	return frame.Utf8, expectTypes(f.Name(), args[1:], "a string", isString)
}
func (f *StrftimeFunc) Evaluate(args []frame.Value) (frame.Value, error) {
	if anyNull(args) {
		return frame.Value{}, nil
	}
	v, err := valueToTime(args[0])
	if err != nil {
		return frame.Value{}, err
	}
	out, err := strftime(v.Time(), args[1].Str())
	if err != nil {
		return frame.Value{}, err
	}
	return frame.Str(out), nil
}
