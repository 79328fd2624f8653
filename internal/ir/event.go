package ir

import (
	"fmt"
	"strconv"
	"strings"
)

// EventType classifies a submission. The store accepts every value; the
// named codes below are the catalog used by the mail analyzer clients and
// exist for display and CLI parsing only.
type EventType uint8

// Known event codes.
const (
	EventPhishing          EventType = 0
	EventSpam              EventType = 1
	EventMalware           EventType = 2
	EventSocialEngineering EventType = 3
)

var eventNames = map[EventType]string{
	EventPhishing:          "phishing",
	EventSpam:              "spam",
	EventMalware:           "malware",
	EventSocialEngineering: "social_engineering",
}

// String returns the catalog name, or the decimal code for unknown values.
func (e EventType) String() string {
	if name, ok := eventNames[e]; ok {
		return name
	}
	return strconv.Itoa(int(e))
}

// Known reports whether e has a catalog name.
func (e EventType) Known() bool {
	_, ok := eventNames[e]
	return ok
}

// ParseEventType accepts a catalog name (case-insensitive, "-" or "_") or a
// decimal code in 0..255.
func ParseEventType(s string) (EventType, error) {
	key := strings.ReplaceAll(strings.ToLower(strings.TrimSpace(s)), "-", "_")
	for code, name := range eventNames {
		if name == key {
			return code, nil
		}
	}
	n, err := strconv.ParseUint(key, 10, 8)
	if err != nil {
		return 0, fmt.Errorf("event type %q: not a catalog name or a code in 0..255", s)
	}
	return EventType(n), nil
}
