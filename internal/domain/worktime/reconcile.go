package worktime

import (
	"sort"
	"strings"
	"time"
)

// ---------------------------------------------------------------------------
// Milestone classification
// ---------------------------------------------------------------------------

type milestone int

const (
	milestoneNone milestone = iota
	milestoneReady
	milestonePickedUp
	milestoneDelivered
)

// Alias sets are matched case-insensitively with separators collapsed, so
// "READY_TO_PICKUP", "ready to pickup" and "ReadyToPickup" are one label.
// "dispatching" marks the order ready for the courier; "dispatched" marks it
// collected.
var (
	readyAliases = map[string]struct{}{
		"dispatching":        {},
		"ready":              {},
		"readytopickup":      {},
		"readyforpickup":     {},
		"productionfinished": {},
	}
	pickedUpAliases = map[string]struct{}{
		"dispatched": {},
		"pickedup":   {},
		"collected":  {},
		"sent":       {},
	}
	deliveredAliases = map[string]struct{}{
		"delivered": {},
		"closed":    {},
		"concluded": {},
		"completed": {},
	}
)

func classify(label string) milestone {
	key := collapseLabel(label)
	if _, ok := readyAliases[key]; ok {
		return milestoneReady
	}
	if _, ok := pickedUpAliases[key]; ok {
		return milestonePickedUp
	}
	if _, ok := deliveredAliases[key]; ok {
		return milestoneDelivered
	}
	return milestoneNone
}

func collapseLabel(label string) string {
	lower := strings.ToLower(strings.TrimSpace(label))
	return strings.Map(func(r rune) rune {
		if r == '_' || r == '-' || r == ' ' {
			return -1
		}
		return r
	}, lower)
}

// ---------------------------------------------------------------------------
// Reconciliation
// ---------------------------------------------------------------------------

// HistoryEntry is one (label, timestamp) pair of a platform status trail
type HistoryEntry struct {
	Label string
	At    time.Time
}

// Input is everything reconciliation looks at: the arrival instant, the raw
// status trail in whatever order the platform sent it, and the platform's
// explicit milestone fields when it has them.
type Input struct {
	ArrivedAt time.Time
	History   []HistoryEntry

	ReadyAt     *time.Time
	PickedUpAt  *time.Time
	DeliveredAt *time.Time
}

// Timing is the reconciled result. Durations are whole minutes; a missing
// endpoint leaves the duration nil, never zero.
type Timing struct {
	ArrivedAt   time.Time
	ReadyAt     *time.Time
	PickedUpAt  *time.Time
	DeliveredAt *time.Time

	PrepMinutes     *int
	PickupMinutes   *int
	DeliveryMinutes *int
	TotalMinutes    *int

	// Invalidated is set when the payload carried no genuine timing signal
	// (prep and pickup both exactly zero); derived timestamps and durations
	// are nil in that case while business data is unaffected.
	Invalidated bool

	Shift   Shift
	Workday time.Time
}

// Rules carries the tunable constants of the business calendar
type Rules struct {
	// UTCOffsetHours is the fixed offset of the business's local clock.
	// Workdays and shifts are attributed against this offset, independent of
	// the host timezone and of DST.
	UTCOffsetHours int
	// DayShiftCutoffHour splits DAY from NIGHT on the local clock
	DayShiftCutoffHour int
}

// DefaultRules returns the production calendar: UTC-3, day shift until 16h
func DefaultRules() Rules {
	return Rules{
		UTCOffsetHours:     -3,
		DayShiftCutoffHour: 16,
	}
}

// Reconcile derives milestones and durations with the default rules
func Reconcile(in Input) Timing {
	return DefaultRules().Reconcile(in)
}

// Reconcile walks the status trail once and assigns each milestone its
// earliest matching timestamp, falling back to the platform's explicit
// fields for slots the trail did not fill.
func (r Rules) Reconcile(in Input) Timing {
	out := Timing{ArrivedAt: in.ArrivedAt}

	// Source order is not guaranteed; sort a copy ascending before the walk.
	history := make([]HistoryEntry, len(in.History))
	copy(history, in.History)
	sort.SliceStable(history, func(i, j int) bool {
		return history[i].At.Before(history[j].At)
	})

	for i := range history {
		entry := history[i]
		if entry.At.IsZero() {
			continue
		}
		switch classify(entry.Label) {
		case milestoneReady:
			if out.ReadyAt == nil {
				at := entry.At
				out.ReadyAt = &at
			}
		case milestonePickedUp:
			if out.PickedUpAt == nil {
				at := entry.At
				out.PickedUpAt = &at
			}
		case milestoneDelivered:
			if out.DeliveredAt == nil {
				at := entry.At
				out.DeliveredAt = &at
			}
		}
	}

	if out.ReadyAt == nil && in.ReadyAt != nil {
		out.ReadyAt = cloneTime(in.ReadyAt)
	}
	if out.PickedUpAt == nil && in.PickedUpAt != nil {
		out.PickedUpAt = cloneTime(in.PickedUpAt)
	}
	if out.DeliveredAt == nil && in.DeliveredAt != nil {
		out.DeliveredAt = cloneTime(in.DeliveredAt)
	}

	// The kitchen cannot have handed the order over before it was ready.
	if out.ReadyAt == nil && out.PickedUpAt != nil {
		out.ReadyAt = cloneTime(out.PickedUpAt)
	}

	out.PrepMinutes = minutesBetween(&in.ArrivedAt, out.ReadyAt)
	out.PickupMinutes = minutesBetween(out.ReadyAt, out.PickedUpAt)
	out.DeliveryMinutes = minutesBetween(out.PickedUpAt, out.DeliveredAt)
	out.TotalMinutes = minutesBetween(&in.ArrivedAt, out.DeliveredAt)

	// Some platforms echo the arrival instant into every milestone field.
	// Prep and pickup both exactly zero means the payload carries no genuine
	// timing signal; drop everything derived so it stays out of the metrics.
	if out.PrepMinutes != nil && out.PickupMinutes != nil &&
		*out.PrepMinutes == 0 && *out.PickupMinutes == 0 {
		out.ReadyAt = nil
		out.PickedUpAt = nil
		out.DeliveredAt = nil
		out.PrepMinutes = nil
		out.PickupMinutes = nil
		out.DeliveryMinutes = nil
		out.TotalMinutes = nil
		out.Invalidated = true
	}

	out.Shift, out.Workday = r.shiftAndWorkday(in.ArrivedAt)
	return out
}

// shiftAndWorkday attributes the arrival to the business calendar
func (r Rules) shiftAndWorkday(arrivedAt time.Time) (Shift, time.Time) {
	local := arrivedAt.UTC().Add(time.Duration(r.UTCOffsetHours) * time.Hour)

	shift := ShiftNight
	if local.Hour() < r.DayShiftCutoffHour {
		shift = ShiftDay
	}

	workday := time.Date(local.Year(), local.Month(), local.Day(), 0, 0, 0, 0, time.UTC)
	return shift, workday
}

func minutesBetween(from, to *time.Time) *int {
	if from == nil || to == nil {
		return nil
	}
	minutes := int(to.Sub(*from) / time.Minute)
	return &minutes
}

func cloneTime(t *time.Time) *time.Time {
	if t == nil {
		return nil
	}
	v := *t
	return &v
}
