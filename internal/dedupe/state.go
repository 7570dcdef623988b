// Package dedupe holds the per-build selection state and the multi-pass
// relaxation selector that picks a deduplicated, diversity-respecting
// subset from a candidate pool.
package dedupe

import (
	"github.com/tanukilabs/questrun/internal/contentkey"
	"github.com/tanukilabs/questrun/internal/types"
)

const (
	topicWindowSize  = 3
	lessonWindowSize = 2
)

// State is the mutable selection state owned by exactly one plan build.
// It is never safe to share one State across concurrent builds; callers
// construct a fresh State per BuildPlan invocation.
type State struct {
	usedKeys      map[string]struct{}
	recentTopics  []types.Topic
	recentLessons []string
}

// NewState returns an empty selection state.
func NewState() *State {
	return &State{
		usedKeys: make(map[string]struct{}),
	}
}

// MarkUsed records an activity as consumed: its content keys become
// unavailable and its topic and lesson enter the recency windows.
// Updates are never rolled back.
func (s *State) MarkUsed(a types.Activity) {
	for _, key := range contentkey.Keys(a) {
		s.usedKeys[key] = struct{}{}
	}
	s.recentTopics = pushWindow(s.recentTopics, a.Topic, topicWindowSize)
	if a.LessonID != "" {
		s.recentLessons = pushWindow(s.recentLessons, a.LessonID, lessonWindowSize)
	}
}

// MarkKeyUsed records a bare content key without touching the windows.
// Used when generated questions claim their fingerprints.
func (s *State) MarkKeyUsed(key string) {
	s.usedKeys[key] = struct{}{}
}

// Used reports whether any of the activity's content keys has already
// been consumed within this build.
func (s *State) Used(a types.Activity) bool {
	for _, key := range contentkey.Keys(a) {
		if _, ok := s.usedKeys[key]; ok {
			return true
		}
	}
	return false
}

// KeyUsed reports whether a single content key has been consumed.
func (s *State) KeyUsed(key string) bool {
	_, ok := s.usedKeys[key]
	return ok
}

// TopicRecentlyUsed reports whether the topic is inside the 3-slot window.
func (s *State) TopicRecentlyUsed(t types.Topic) bool {
	for _, recent := range s.recentTopics {
		if recent == t {
			return true
		}
	}
	return false
}

// LessonRecentlyUsed reports whether the lesson is inside the 2-slot window.
func (s *State) LessonRecentlyUsed(lessonID string) bool {
	if lessonID == "" {
		return false
	}
	for _, recent := range s.recentLessons {
		if recent == lessonID {
			return true
		}
	}
	return false
}

// UsedKeys returns a snapshot of every content key consumed so far.
func (s *State) UsedKeys() []string {
	keys := make([]string, 0, len(s.usedKeys))
	for k := range s.usedKeys {
		keys = append(keys, k)
	}
	return keys
}

func pushWindow[T comparable](window []T, value T, size int) []T {
	window = append(window, value)
	if len(window) > size {
		window = window[len(window)-size:]
	}
	return window
}
