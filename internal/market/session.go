package market

import (
	"time"

	"github.com/wonny/riptide/internal/contracts"
)

// Clock maps wall-clock time onto A-share session segments. The exchange
// trades 09:30-11:30 and 13:00-15:00 with a 09:15-09:25 call auction.
type Clock struct {
	loc *time.Location
}

// NewClock creates a session clock. An empty tz falls back to the
// exchange's timezone.
func NewClock(tz string) (*Clock, error) {
	if tz == "" {
		tz = "Asia/Shanghai"
	}
	loc, err := time.LoadLocation(tz)
	if err != nil {
		return nil, err
	}
	return &Clock{loc: loc}, nil
}

// Location returns the exchange timezone.
func (c *Clock) Location() *time.Location {
	return c.loc
}

// SegmentAt returns the session segment containing t.
func (c *Clock) SegmentAt(t time.Time) contracts.SessionSegment {
	lt := t.In(c.loc)
	if lt.Weekday() == time.Saturday || lt.Weekday() == time.Sunday {
		return contracts.SegmentClosed
	}

	m := lt.Hour()*60 + lt.Minute()
	switch {
	case m >= 9*60+15 && m < 9*60+25:
		return contracts.SegmentAuction
	case m >= 9*60+30 && m < 10*60:
		return contracts.SegmentOpenDrive
	case m >= 10*60 && m < 11*60+30:
		return contracts.SegmentMidSession
	case m >= 13*60 && m < 14*60+30:
		return contracts.SegmentMidSession
	case m >= 14*60+30 && m < 15*60:
		return contracts.SegmentLateClose
	default:
		return contracts.SegmentClosed
	}
}

// InSession reports whether continuous trading or the call auction is
// running at t.
func (c *Clock) InSession(t time.Time) bool {
	return c.SegmentAt(t) != contracts.SegmentClosed
}

// TradeDate truncates t to its trading date in exchange time.
func (c *Clock) TradeDate(t time.Time) time.Time {
	lt := t.In(c.loc)
	return time.Date(lt.Year(), lt.Month(), lt.Day(), 0, 0, 0, 0, c.loc)
}

// SameSession reports whether a and b fall on the same trading date.
// With T+1 settlement this is the sell-guard boundary.
func (c *Clock) SameSession(a, b time.Time) bool {
	return c.TradeDate(a).Equal(c.TradeDate(b))
}
