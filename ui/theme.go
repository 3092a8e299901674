package ui

import (
	"fmt"
	"image/color"
	"strings"
	"time"

	"fyne.io/fyne/v2"
	"fyne.io/fyne/v2/canvas"
	"fyne.io/fyne/v2/container"
)

// Catppuccin Mocha palette.
var (
	ctpBase     = color.NRGBA{R: 30, G: 30, B: 46, A: 255}
	ctpSurface0 = color.NRGBA{R: 49, G: 50, B: 68, A: 255}
	ctpSurface1 = color.NRGBA{R: 69, G: 71, B: 90, A: 255}
	ctpOverlay1 = color.NRGBA{R: 127, G: 132, B: 156, A: 255}
	ctpBlue     = color.NRGBA{R: 137, G: 180, B: 250, A: 255}
	ctpGreen    = color.NRGBA{R: 166, G: 227, B: 161, A: 255}
	ctpMauve    = color.NRGBA{R: 203, G: 166, B: 247, A: 255}
)

var (
	colorMuted       = ctpOverlay1
	colorAccent      = ctpBlue
	colorTranslated  = ctpMauve
	colorUnreadBadge = ctpGreen
	colorIncomingMsg = ctpSurface0
	colorOutgoingMsg = ctpSurface1
)

// newRoundedBg creates a container with a rounded colored rectangle behind the content.
func newRoundedBg(bgColor color.Color, radius float32, content fyne.CanvasObject) fyne.CanvasObject {
	bg := canvas.NewRectangle(bgColor)
	bg.CornerRadius = radius
	return container.NewStack(bg, container.NewPadded(content))
}

func formatTimestamp(timestamp int64) string {
	if timestamp <= 0 {
		return ""
	}
	return time.UnixMilli(timestamp).Format("3:04 PM")
}

// formatDaySeparator renders the date line between calendar days. Today and
// yesterday get readable labels, everything else the full date.
func formatDaySeparator(day, now time.Time) string {
	today := time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, now.Location())
	switch {
	case day.Equal(today):
		return "Today"
	case day.Equal(today.AddDate(0, 0, -1)):
		return "Yesterday"
	default:
		return day.Format("January 2, 2006")
	}
}

func unreadBadgeText(count int) string {
	if count <= 0 {
		return ""
	}
	if count > 99 {
		return "99+"
	}
	return fmt.Sprintf("%d", count)
}

func valueOrDefault(value, fallback string) string {
	if strings.TrimSpace(value) == "" {
		return fallback
	}
	return value
}

func formatBytes(size int64) string {
	if size < 0 {
		return "0 B"
	}
	const unit = 1024
	if size < unit {
		return fmt.Sprintf("%d B", size)
	}
	div, exp := int64(unit), 0
	for n := size / unit; n >= unit; n /= unit {
		div *= unit
		exp++
	}
	prefixes := []string{"KB", "MB", "GB", "TB"}
	if exp >= len(prefixes) {
		exp = len(prefixes) - 1
	}
	return fmt.Sprintf("%.1f %s", float64(size)/float64(div), prefixes[exp])
}
