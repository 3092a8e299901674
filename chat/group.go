package chat

import "time"

// GroupForDisplay folds an ordered message sequence into the display
// sequence: a date separator before the first message of every local
// calendar day, and at most one unread marker immediately before the
// earliest message whose ID is in the unread set.
//
// The function is pure: the same inputs always produce the same output.
// Messages are not re-sorted; backend delivery order is kept.
func GroupForDisplay(messages []Message, unread map[string]struct{}) []DisplayItem {
	items := make([]DisplayItem, 0, len(messages)+4)

	var (
		havePrev     bool
		prevDay      time.Time
		unreadPlaced bool
	)
	for _, m := range messages {
		day := localDay(m.Timestamp)
		if !havePrev || !sameDay(day, prevDay) {
			items = append(items, DisplayItem{Kind: DisplayDate, Day: day})
			prevDay = day
			havePrev = true
		}

		if !unreadPlaced {
			if _, isUnread := unread[m.ID]; isUnread {
				items = append(items, DisplayItem{Kind: DisplayUnread})
				unreadPlaced = true
			}
		}

		items = append(items, DisplayItem{Kind: DisplayMessage, Day: day, Message: m})
	}

	return items
}

// localDay truncates a millisecond timestamp to local midnight.
func localDay(timestampMillis int64) time.Time {
	t := time.UnixMilli(timestampMillis).Local()
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, t.Location())
}

func sameDay(a, b time.Time) bool {
	return a.Year() == b.Year() && a.Month() == b.Month() && a.Day() == b.Day()
}
