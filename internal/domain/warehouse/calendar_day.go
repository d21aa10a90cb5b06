package warehouse

import "time"

// CalendarDay is derived from observed invoice dates. FullDate is always UTC midnight.
type CalendarDay struct {
	DateID   uint      `gorm:"column:date_id;primaryKey;autoIncrement" json:"date_id"`
	FullDate time.Time `gorm:"column:full_date;type:date;not null;uniqueIndex:idx_dim_date_full_date" json:"full_date"`
	Year     int       `gorm:"column:year;not null" json:"year"`
	Month    int       `gorm:"column:month;not null" json:"month"`
	Day      int       `gorm:"column:day;not null" json:"day"`
	Weekday  string    `gorm:"column:weekday;type:varchar(16);not null" json:"weekday"`

	Sales []SalesLineItem `gorm:"foreignKey:DateID;references:DateID;constraint:OnUpdate:RESTRICT,OnDelete:RESTRICT" json:"-"`
}

func (CalendarDay) TableName() string { return "dim_date" }

// DayOf truncates t to its UTC calendar day.
func DayOf(t time.Time) time.Time {
	u := t.UTC()
	return time.Date(u.Year(), u.Month(), u.Day(), 0, 0, 0, 0, time.UTC)
}

// DayKey is the lookup key used to resolve a timestamp to its dim_date row.
func DayKey(t time.Time) string {
	return DayOf(t).Format("2006-01-02")
}

func NewCalendarDay(t time.Time) CalendarDay {
	d := DayOf(t)
	return CalendarDay{
		FullDate: d,
		Year:     d.Year(),
		Month:    int(d.Month()),
		Day:      d.Day(),
		Weekday:  d.Weekday().String(),
	}
}
