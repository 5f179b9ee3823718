// Package ui drives the pages of the panel: navigation history, key routing,
// the wait overlay and the screens themselves.
package ui

import "fmt"

// Page is a picture of the panel. The low 12 bits are the picture number
// sent to the display, the high bits are flags kept on the firmware side.
type Page uint16

const (
	// Temporary pages are never recorded in the navigation history
	Temporary Page = 0x8000
	// BlockedWhilePrinting pages cannot be entered during a print
	BlockedWhilePrinting Page = 0x4000

	pageNumberMask Page = 0x0FFF
)

// Pages of the panel firmware
const (
	PageNone             Page = 0
	PageBoot             Page = 1
	PageMain             Page = 2
	PagePrint            Page = 4
	PageLeveling         Page = 5 | BlockedWhilePrinting
	PageLoadUnload       Page = 6 | BlockedWhilePrinting
	PageBrightness       Page = 8
	PageVersions         Page = 9
	PageWaiting          Page = 10 | Temporary
	PageWaitBack         Page = 11 | Temporary
	PageWaitBackContinue Page = 12 | Temporary
)

// Number returns the picture number without flags
func (p Page) Number() uint16 {
	return uint16(p & pageNumberMask)
}

// IsTemporary reports whether the page is excluded from the history
func (p Page) IsTemporary() bool {
	return p&Temporary != 0
}

// IsBlockedWhilePrinting reports whether the page is refused during a print
func (p Page) IsBlockedWhilePrinting() bool {
	return p&BlockedWhilePrinting != 0
}

func (p Page) String() string {
	switch p {
	case PageNone:
		return "none"
	case PageBoot:
		return "boot"
	case PageMain:
		return "main"
	case PagePrint:
		return "print"
	case PageLeveling:
		return "leveling"
	case PageLoadUnload:
		return "load-unload"
	case PageBrightness:
		return "brightness"
	case PageVersions:
		return "versions"
	case PageWaiting:
		return "waiting"
	case PageWaitBack:
		return "wait-back"
	case PageWaitBackContinue:
		return "wait-back-continue"
	default:
		return fmt.Sprintf("page-%d", p.Number())
	}
}
