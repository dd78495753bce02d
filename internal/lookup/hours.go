package lookup

import "time"

// ReorderFromToday moves today's entry of a Sunday-first, seven-day
// opening-hours list to the front. The other six keep their relative order.
// Lists of any other length are returned unchanged.
func ReorderFromToday(hours []string, today time.Weekday) []string {
	if len(hours) != 7 || today < time.Sunday || today > time.Saturday {
		return hours
	}
	out := make([]string, 0, len(hours))
	out = append(out, hours[today])
	out = append(out, hours[:today]...)
	return append(out, hours[today+1:]...)
}
