// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package render

import (
	"fmt"

	"github.com/bureau-foundation/courier/lib/blockfmt"
	"github.com/bureau-foundation/courier/lib/ref"
)

// Phase is the message identity state of a turn.
type Phase int

const (
	// PhaseIdle has no active message: the next content posts a new
	// one.
	PhaseIdle Phase = iota

	// PhasePlaceholder targets the placeholder posted at turn start,
	// which nothing has overwritten yet.
	PhasePlaceholder

	// PhaseStreamingContent targets a message holding streamed prose.
	PhaseStreamingContent

	// PhaseToolAnnouncement has a tool card as the newest message. Its
	// content is owned by the tool and prose never flushes into it.
	PhaseToolAnnouncement

	// PhaseFinalized ends the turn. No transition leaves it.
	PhaseFinalized

	phaseCount
)

func (p Phase) String() string {
	switch p {
	case PhaseIdle:
		return "idle"
	case PhasePlaceholder:
		return "placeholder"
	case PhaseStreamingContent:
		return "streaming_content"
	case PhaseToolAnnouncement:
		return "tool_announcement"
	case PhaseFinalized:
		return "finalized"
	default:
		return fmt.Sprintf("Phase(%d)", int(p))
	}
}

// transitions lists the phases reachable from each phase. Staying in
// the same phase is always allowed and not listed.
var transitions = map[Phase][]Phase{
	PhaseIdle:             {PhasePlaceholder, PhaseStreamingContent, PhaseToolAnnouncement, PhaseFinalized},
	PhasePlaceholder:      {PhaseStreamingContent, PhaseToolAnnouncement, PhaseFinalized},
	PhaseStreamingContent: {PhaseToolAnnouncement, PhaseIdle, PhaseFinalized},
	PhaseToolAnnouncement: {PhaseIdle, PhaseStreamingContent, PhaseFinalized},
	PhaseFinalized:        nil,
}

// CanTransition reports whether the state machine may move from p to
// next.
func (p Phase) CanTransition(next Phase) bool {
	if p == next {
		return p != PhaseFinalized
	}
	for _, allowed := range transitions[p] {
		if allowed == next {
			return true
		}
	}
	return false
}

// Role tags a posted message with what it shows.
type Role int

const (
	RolePlaceholder Role = iota + 1
	RoleStreamingContent
	RoleToolAnnouncement
)

func (r Role) String() string {
	switch r {
	case RolePlaceholder:
		return "placeholder"
	case RoleStreamingContent:
		return "streaming_content"
	case RoleToolAnnouncement:
		return "tool_announcement"
	default:
		return fmt.Sprintf("Role(%d)", int(r))
	}
}

// Handle is a posted message and the blocks last written to it.
type Handle struct {
	Message ref.MessageRef
	Role    Role
	Blocks  []blockfmt.Block
}

// messageIdentity tracks which message the turn writes to next.
type messageIdentity struct {
	phase  Phase
	active *Handle

	// placeholder is the turn-start message while nothing has been
	// written to it. Nil once it is used or superseded.
	placeholder *Handle

	// cards are tool announcements still waiting for a result, oldest
	// first.
	cards []*toolCard
}

func (m *messageIdentity) advance(next Phase) error {
	if !m.phase.CanTransition(next) {
		return fmt.Errorf("render: invalid phase transition %s -> %s", m.phase, next)
	}
	m.phase = next
	return nil
}

// placeholderPosted makes the placeholder the active target.
func (m *messageIdentity) placeholderPosted(handle *Handle) error {
	if err := m.advance(PhasePlaceholder); err != nil {
		return err
	}
	m.placeholder = handle
	m.active = handle
	return nil
}

// contentTarget returns the message prose should be written to, or nil
// when prose must start a new message.
func (m *messageIdentity) contentTarget() *Handle {
	if m.active == nil || m.active.Role == RoleToolAnnouncement {
		return nil
	}
	return m.active
}

// untouchedPlaceholder returns the placeholder if nothing has been
// written to it.
func (m *messageIdentity) untouchedPlaceholder() *Handle {
	return m.placeholder
}

// contentWritten records a successful prose write to handle, which may
// be a newly posted message.
func (m *messageIdentity) contentWritten(handle *Handle) error {
	if err := m.advance(PhaseStreamingContent); err != nil {
		return err
	}
	if handle == m.placeholder {
		m.placeholder = nil
	}
	handle.Role = RoleStreamingContent
	m.active = handle
	return nil
}

// cardPosted makes a tool card the active message.
func (m *messageIdentity) cardPosted(card *toolCard) error {
	if err := m.advance(PhaseToolAnnouncement); err != nil {
		return err
	}
	if card.handle == m.placeholder {
		m.placeholder = nil
	}
	card.handle.Role = RoleToolAnnouncement
	m.active = card.handle
	m.cards = append(m.cards, card)
	return nil
}

// takeCard removes and returns the pending card for a tool result: the
// oldest card with the same name, else the oldest card.
func (m *messageIdentity) takeCard(name string) *toolCard {
	if len(m.cards) == 0 {
		return nil
	}
	index := 0
	if name != "" {
		for candidate, card := range m.cards {
			if card.name == name {
				index = candidate
				break
			}
		}
	}
	card := m.cards[index]
	m.cards = append(m.cards[:index], m.cards[index+1:]...)
	return card
}

// release clears the active message after a tool result.
func (m *messageIdentity) release() error {
	if err := m.advance(PhaseIdle); err != nil {
		return err
	}
	m.active = nil
	return nil
}

// finalize ends the turn.
func (m *messageIdentity) finalize() error {
	if err := m.advance(PhaseFinalized); err != nil {
		return err
	}
	m.active = nil
	m.placeholder = nil
	return nil
}
