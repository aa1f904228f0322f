package model

import (
	"errors"
	"fmt"
	"strings"
)

// Roster errors. The service layer re-exports these so callers only need
// one errors.Is target per failure.
var (
	ErrSlotNotFound          = errors.New("slot not found")
	ErrSlotAlreadyEmpty      = errors.New("slot is already empty")
	ErrAlreadyAssigned       = errors.New("participant already occupies another slot in this event")
	ErrJobRestricted         = errors.New("slot is restricted to a different job")
	ErrIncompleteRoster      = errors.New("roster is incomplete")
	ErrUnsupportedPartySize  = errors.New("unsupported party size")
	ErrRosterInvariantBroken = errors.New("roster invariant violated")
)

const (
	StandardPartySize = 8
	LightPartySize    = 4
)

// RoleCounts is a per-role tally of slots
type RoleCounts struct {
	Tank   int `json:"tank"`
	Healer int `json:"healer"`
	DPS    int `json:"dps"`
}

// Get returns the count for role
func (c RoleCounts) Get(role Role) int {
	switch role {
	case RoleTank:
		return c.Tank
	case RoleHealer:
		return c.Healer
	case RoleDPS:
		return c.DPS
	}
	return 0
}

func (c *RoleCounts) add(role Role, n int) {
	switch role {
	case RoleTank:
		c.Tank += n
	case RoleHealer:
		c.Healer += n
	case RoleDPS:
		c.DPS += n
	}
}

// Total sums all roles
func (c RoleCounts) Total() int {
	return c.Tank + c.Healer + c.DPS
}

// String renders non-zero counts, e.g. "1 Tank, 2 DPS"
func (c RoleCounts) String() string {
	var parts []string
	for _, role := range Roles {
		if n := c.Get(role); n > 0 {
			parts = append(parts, fmt.Sprintf("%d %s", n, role))
		}
	}
	return strings.Join(parts, ", ")
}

// RosterTemplate returns the role composition for a party size
func RosterTemplate(size int) (RoleCounts, bool) {
	switch size {
	case StandardPartySize:
		return RoleCounts{Tank: 2, Healer: 2, DPS: 4}, true
	case LightPartySize:
		return RoleCounts{Tank: 1, Healer: 1, DPS: 2}, true
	}
	return RoleCounts{}, false
}

// PartySlot is one seat in the roster. Role never changes after creation.
type PartySlot struct {
	ID                  string          `json:"id"`
	Role                Role            `json:"role"`
	IsHelperSlot        bool            `json:"is_helper_slot"`
	JobRestriction      *Job            `json:"job_restriction,omitempty"`
	AssignedParticipant *SlotAssignment `json:"assigned_participant,omitempty"`
	DraftedBy           *string         `json:"drafted_by,omitempty"`
}

// IsEmpty reports whether nobody occupies the slot
func (s *PartySlot) IsEmpty() bool {
	return s.AssignedParticipant == nil
}

// EventRoster is the fixed-size party of an event.
// FilledSlots is maintained by Assign/Unassign, never by scanning.
type EventRoster struct {
	Slots       []PartySlot `json:"slots"`
	TotalSlots  int         `json:"total_slots"`
	FilledSlots int         `json:"filled_slots"`
}

// NewRoster builds an empty roster for a supported party size.
// Slot ids are role-indexed: tank-1, tank-2, healer-1, ..., dps-4.
func NewRoster(size int) (*EventRoster, error) {
	tmpl, ok := RosterTemplate(size)
	if !ok {
		return nil, fmt.Errorf("%w: %d", ErrUnsupportedPartySize, size)
	}
	r := &EventRoster{
		Slots:      make([]PartySlot, 0, size),
		TotalSlots: size,
	}
	for _, role := range Roles {
		for i := 1; i <= tmpl.Get(role); i++ {
			r.Slots = append(r.Slots, PartySlot{
				ID:   fmt.Sprintf("%s-%d", strings.ToLower(string(role)), i),
				Role: role,
			})
		}
	}
	return r, nil
}

// Slot returns the slot with id, or nil
func (r *EventRoster) Slot(id string) *PartySlot {
	for i := range r.Slots {
		if r.Slots[i].ID == id {
			return &r.Slots[i]
		}
	}
	return nil
}

// SlotOf returns the slot occupied by ref, or nil
func (r *EventRoster) SlotOf(ref ParticipantRef) *PartySlot {
	for i := range r.Slots {
		if a := r.Slots[i].AssignedParticipant; a != nil && a.Ref() == ref {
			return &r.Slots[i]
		}
	}
	return nil
}

// Assign places a into the slot. An existing occupant is replaced and
// returned; FilledSlots only grows when the slot was empty. The slot role
// does not constrain the job: role fit is checked at publish.
func (r *EventRoster) Assign(slotID string, a *SlotAssignment) (*SlotAssignment, error) {
	slot := r.Slot(slotID)
	if slot == nil {
		return nil, fmt.Errorf("%w: %s", ErrSlotNotFound, slotID)
	}
	if other := r.SlotOf(a.Ref()); other != nil && other.ID != slotID {
		return nil, fmt.Errorf("%w: %s", ErrAlreadyAssigned, other.ID)
	}
	if slot.JobRestriction != nil && *slot.JobRestriction != a.Job {
		return nil, fmt.Errorf("%w: %s", ErrJobRestricted, *slot.JobRestriction)
	}

	previous := slot.AssignedParticipant
	slot.AssignedParticipant = a
	slot.DraftedBy = nil
	if previous == nil {
		r.FilledSlots++
	}
	return previous, nil
}

// Unassign empties the slot and returns the removed occupant
func (r *EventRoster) Unassign(slotID string) (*SlotAssignment, error) {
	slot := r.Slot(slotID)
	if slot == nil {
		return nil, fmt.Errorf("%w: %s", ErrSlotNotFound, slotID)
	}
	if slot.AssignedParticipant == nil {
		return nil, fmt.Errorf("%w: %s", ErrSlotAlreadyEmpty, slotID)
	}
	removed := slot.AssignedParticipant
	slot.AssignedParticipant = nil
	r.FilledSlots--
	return removed, nil
}

// RequiredRoles counts slots per role
func (r *EventRoster) RequiredRoles() RoleCounts {
	var c RoleCounts
	for i := range r.Slots {
		c.add(r.Slots[i].Role, 1)
	}
	return c
}

// FilledRoles counts occupants by the role of the job they were assigned on
func (r *EventRoster) FilledRoles() RoleCounts {
	var c RoleCounts
	for i := range r.Slots {
		if a := r.Slots[i].AssignedParticipant; a != nil {
			c.add(a.Job.Role(), 1)
		}
	}
	return c
}

// CheckComplete enforces the publish gate: every slot filled and role
// counts equal to the party template.
func (r *EventRoster) CheckComplete() error {
	tmpl, ok := RosterTemplate(r.TotalSlots)
	if !ok {
		return fmt.Errorf("%w: %d", ErrUnsupportedPartySize, r.TotalSlots)
	}
	filled := r.FilledRoles()
	var missing RoleCounts
	for _, role := range Roles {
		if n := tmpl.Get(role) - filled.Get(role); n > 0 {
			missing.add(role, n)
		}
	}
	if r.FilledSlots != r.TotalSlots || missing.Total() > 0 {
		return &IncompleteRosterError{
			Filled:   r.FilledSlots,
			Total:    r.TotalSlots,
			Required: tmpl,
			Missing:  missing,
		}
	}
	return nil
}

// Validate checks the structural invariants of the roster
func (r *EventRoster) Validate() error {
	if len(r.Slots) != r.TotalSlots {
		return fmt.Errorf("%w: %d slots, total_slots %d", ErrRosterInvariantBroken, len(r.Slots), r.TotalSlots)
	}
	seen := make(map[ParticipantRef]string, len(r.Slots))
	filled := 0
	for i := range r.Slots {
		s := &r.Slots[i]
		if !s.Role.IsValid() {
			return fmt.Errorf("%w: slot %s has role %q", ErrRosterInvariantBroken, s.ID, s.Role)
		}
		if s.AssignedParticipant == nil {
			continue
		}
		filled++
		ref := s.AssignedParticipant.Ref()
		if prev, dup := seen[ref]; dup {
			return fmt.Errorf("%w: %s in %s and %s", ErrRosterInvariantBroken, ref, prev, s.ID)
		}
		seen[ref] = s.ID
	}
	if filled != r.FilledSlots {
		return fmt.Errorf("%w: filled_slots %d, occupied %d", ErrRosterInvariantBroken, r.FilledSlots, filled)
	}
	return nil
}

// Clone returns a deep copy
func (r *EventRoster) Clone() *EventRoster {
	if r == nil {
		return nil
	}
	out := &EventRoster{
		Slots:       make([]PartySlot, len(r.Slots)),
		TotalSlots:  r.TotalSlots,
		FilledSlots: r.FilledSlots,
	}
	for i, s := range r.Slots {
		if s.JobRestriction != nil {
			j := *s.JobRestriction
			s.JobRestriction = &j
		}
		if s.AssignedParticipant != nil {
			a := *s.AssignedParticipant
			s.AssignedParticipant = &a
		}
		if s.DraftedBy != nil {
			d := *s.DraftedBy
			s.DraftedBy = &d
		}
		out.Slots[i] = s
	}
	return out
}

// IncompleteRosterError carries the unmet slot counts of a failed publish
type IncompleteRosterError struct {
	Filled   int
	Total    int
	Required RoleCounts
	Missing  RoleCounts
}

func (e *IncompleteRosterError) Error() string {
	if e.Missing.Total() == 0 {
		return fmt.Sprintf("roster is incomplete: %d of %d slots filled", e.Filled, e.Total)
	}
	return fmt.Sprintf("roster is incomplete: %d of %d slots filled, missing %s", e.Filled, e.Total, e.Missing)
}

func (e *IncompleteRosterError) Is(target error) bool {
	return target == ErrIncompleteRoster
}
