package service

import "time"

// Calendar-date comparisons. Slot dates come back from DATE columns and
// civil dates from the clock's timezone, so instants are never compared
// directly; only the (year, month, day) tuple matters.

func sameDay(a, b time.Time) bool {
	ay, am, ad := a.Date()
	by, bm, bd := b.Date()
	return ay == by && am == bm && ad == bd
}

func beforeDay(a, b time.Time) bool {
	ay, am, ad := a.Date()
	by, bm, bd := b.Date()
	if ay != by {
		return ay < by
	}
	if am != bm {
		return am < bm
	}
	return ad < bd
}

func onOrAfterDay(a, b time.Time) bool {
	return !beforeDay(a, b)
}
