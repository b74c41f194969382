package journal

import "slices"

// WeekBucket sums the days of a month that fall in the same week.
type WeekBucket struct {
	Start       Date // Monday starting the week, possibly in the previous month
	WeekOfMonth int  // 1 for the week containing the 1st of the month
	Profit      Profit
	HasHoldings bool // some day still holds an instrument
	HasSells    bool // some day had a sell matched against it
	Days        []*DayLedger
}

// MonthBucket sums the weeks of a calendar month.
type MonthBucket struct {
	Start       Date // first day of the month
	Profit      Profit
	HasHoldings bool
	HasSells    bool
	Weeks       []*WeekBucket
}

func (w *WeekBucket) add(day *DayLedger) {
	w.Profit = w.Profit.Add(day.Profit)
	w.HasHoldings = w.HasHoldings || day.HasHoldings()
	w.HasSells = w.HasSells || day.HasSells()
	w.Days = append(w.Days, day)
}

func (m *MonthBucket) add(week *WeekBucket, day *DayLedger) {
	m.Profit = m.Profit.Add(day.Profit)
	m.HasHoldings = m.HasHoldings || day.HasHoldings()
	m.HasSells = m.HasSells || day.HasSells()
	week.add(day)
}

// Aggregate groups the days of l into weeks and months.
//
// Every level is ordered most recent first: months, the weeks within a month
// and the days within a week. l is expected to be the result of Recompute;
// Aggregate sums the day profits as they are.
func Aggregate(l *Ledger) []*MonthBucket {
	var months []*MonthBucket
	var month *MonthBucket
	var week *WeekBucket
	for _, day := range l.Days() {
		if start := day.Date.StartOf(Monthly); month == nil || month.Start != start {
			month = &MonthBucket{Start: start}
			months = append(months, month)
			week = nil
		}
		if start := day.Date.StartOf(Weekly); week == nil || week.Start != start {
			week = &WeekBucket{Start: start, WeekOfMonth: day.Date.WeekOfMonth()}
			month.Weeks = append(month.Weeks, week)
		}
		month.add(week, day)
	}

	slices.Reverse(months)
	for _, m := range months {
		slices.Reverse(m.Weeks)
		for _, w := range m.Weeks {
			slices.Reverse(w.Days)
		}
	}
	return months
}
