// Package midi provides the note and controller events that drive envelope gates.
package midi

import (
	"fmt"
	"math"
)

type EventType uint8

const (
	EventTypeNoteOff EventType = iota
	EventTypeNoteOn
	EventTypeControlChange
)

type Event interface {
	Type() EventType
	Channel() uint8
	SampleOffset() int32
	// WithOffset returns a copy of the event at a different sample offset
	WithOffset(offset int32) Event
	String() string
}

// BaseEvent carries the fields shared by every event. EventID identifies a
// note: a note-off carries the id of the note-on it ends. Zero means unknown.
type BaseEvent struct {
	EventChannel uint8
	Offset       int32
	EventID      uint32
}

func (e BaseEvent) Channel() uint8 {
	return e.EventChannel
}

func (e BaseEvent) SampleOffset() int32 {
	return e.Offset
}

// ID returns the event id
func (e BaseEvent) ID() uint32 {
	return e.EventID
}

// noteKey identifies a held note. Events without an id fall back to channel and note number.
func noteKey(e BaseEvent, note uint8) uint32 {
	if e.EventID != 0 {
		return e.EventID
	}
	return 1<<31 | uint32(e.EventChannel)<<8 | uint32(note)
}

type NoteOnEvent struct {
	BaseEvent
	NoteNumber uint8
	Velocity   uint8
}

func (e NoteOnEvent) Type() EventType {
	return EventTypeNoteOn
}

func (e NoteOnEvent) WithOffset(offset int32) Event {
	e.Offset = offset
	return e
}

// Key returns the identifier used to pair this note-on with its note-off
func (e NoteOnEvent) Key() uint32 {
	return noteKey(e.BaseEvent, e.NoteNumber)
}

func (e NoteOnEvent) String() string {
	return fmt.Sprintf("NoteOn{ch:%d, note:%d, vel:%d, id:%d, offset:%d}",
		e.EventChannel, e.NoteNumber, e.Velocity, e.EventID, e.Offset)
}

type NoteOffEvent struct {
	BaseEvent
	NoteNumber uint8
	Velocity   uint8
}

func (e NoteOffEvent) Type() EventType {
	return EventTypeNoteOff
}

func (e NoteOffEvent) WithOffset(offset int32) Event {
	e.Offset = offset
	return e
}

// Key returns the identifier used to pair this note-off with its note-on
func (e NoteOffEvent) Key() uint32 {
	return noteKey(e.BaseEvent, e.NoteNumber)
}

func (e NoteOffEvent) String() string {
	return fmt.Sprintf("NoteOff{ch:%d, note:%d, vel:%d, id:%d, offset:%d}",
		e.EventChannel, e.NoteNumber, e.Velocity, e.EventID, e.Offset)
}

type ControlChangeEvent struct {
	BaseEvent
	Controller uint8
	Value      uint8
}

func (e ControlChangeEvent) Type() EventType {
	return EventTypeControlChange
}

func (e ControlChangeEvent) WithOffset(offset int32) Event {
	e.Offset = offset
	return e
}

func (e ControlChangeEvent) String() string {
	return fmt.Sprintf("CC{ch:%d, ctrl:%d, val:%d, offset:%d}",
		e.EventChannel, e.Controller, e.Value, e.Offset)
}

const (
	CCModWheel    uint8 = 1
	CCSustain     uint8 = 64
	CCAllSoundOff uint8 = 120
	CCAllNotesOff uint8 = 123
)

// IsNoteOn reports whether e starts a note. A note-on with velocity 0 is a note-off.
func IsNoteOn(e Event) bool {
	on, ok := e.(NoteOnEvent)
	return ok && on.Velocity > 0
}

// IsNoteOff reports whether e ends a note
func IsNoteOff(e Event) bool {
	switch ev := e.(type) {
	case NoteOffEvent:
		return true
	case NoteOnEvent:
		return ev.Velocity == 0
	}
	return false
}

// NoteKey returns the pairing key of a note event and whether e is one
func NoteKey(e Event) (uint32, bool) {
	switch ev := e.(type) {
	case NoteOnEvent:
		return ev.Key(), true
	case NoteOffEvent:
		return ev.Key(), true
	}
	return 0, false
}

var noteNames = [12]string{"C", "C#", "D", "D#", "E", "F", "F#", "G", "G#", "A", "A#", "B"}

func NoteNumberToName(note uint8) string {
	octave := int(note/12) - 1
	return fmt.Sprintf("%s%d", noteNames[note%12], octave)
}

// NoteToFrequency converts a MIDI note number to Hz. A zero tuning uses 440 Hz.
func NoteToFrequency(note uint8, tuningA4 float64) float64 {
	if tuningA4 == 0 {
		tuningA4 = 440.0
	}
	return tuningA4 * math.Pow(2, (float64(note)-69.0)/12.0)
}
