package keyframe

import (
	"encoding/json"
	"fmt"
)

// editStep is a single edit in a script. Keyframes are addressed by object,
// property and time; indices never appear in scripts because they are not
// stable across edits.
type editStep struct {
	Action        string     `json:"action"`
	Object        string     `json:"object"`
	Property      string     `json:"property"`
	Time          float64    `json:"time"`
	To            float64    `json:"to,omitempty"`
	Value         [3]float64 `json:"value"`
	Interpolation string     `json:"interpolation,omitempty"`
}

// editScriptFile is the top-level JSON structure of an edit script.
type editScriptFile struct {
	Steps []editStep `json:"steps"`
}

// EditScript replays a recorded sequence of timeline edits against a Store.
// Supported actions: add, remove, move, set, interp, remove_track, max_time.
type EditScript struct {
	steps  []editStep
	cursor int
}

// LoadEditScript parses a JSON edit script.
func LoadEditScript(jsonData []byte) (*EditScript, error) {
	var f editScriptFile
	if err := json.Unmarshal(jsonData, &f); err != nil {
		return nil, fmt.Errorf("parse edit script: %w", err)
	}
	if len(f.Steps) == 0 {
		return nil, fmt.Errorf("parse edit script: no steps")
	}
	for i, st := range f.Steps {
		if _, err := parseInterpolation(st.Interpolation); err != nil {
			return nil, fmt.Errorf("parse edit script: step %d: %w", i, err)
		}
	}
	return &EditScript{steps: f.Steps}, nil
}

// Done reports whether every step has been applied.
func (e *EditScript) Done() bool {
	return e.cursor >= len(e.steps)
}

// Len returns the number of steps in the script.
func (e *EditScript) Len() int {
	return len(e.steps)
}

// Step applies the next edit. A failing step is still consumed.
func (e *EditScript) Step(s *Store) error {
	if e.Done() {
		return nil
	}
	st := e.steps[e.cursor]
	e.cursor++
	if err := applyStep(s, st); err != nil {
		return fmt.Errorf("step %d (%s %s/%s @%gs): %w", e.cursor-1, st.Action, st.Object, st.Property, st.Time, err)
	}
	return nil
}

// Run applies every remaining step, stopping at the first failure.
func (e *EditScript) Run(s *Store) error {
	for !e.Done() {
		if err := e.Step(s); err != nil {
			return err
		}
	}
	return nil
}

// Reset rewinds the script to its first step.
func (e *EditScript) Reset() {
	e.cursor = 0
}

func applyStep(s *Store, st editStep) error {
	value := Vec3{st.Value[0], st.Value[1], st.Value[2]}
	switch st.Action {
	case "add":
		interp, _ := parseInterpolation(st.Interpolation)
		_, missing := s.Track(st.Object, st.Property)
		dirty := s.dirty
		if _, err := s.AddTrack(st.Object, st.Property).Add(st.Time, value, interp); err != nil {
			if missing != nil {
				_ = s.RemoveTrack(st.Object, st.Property)
				s.dirty = dirty
			}
			return err
		}
		return nil
	case "remove_track":
		return s.RemoveTrack(st.Object, st.Property)
	case "max_time":
		s.UpdateMaxTime(st.Time)
		return nil
	}

	t, err := s.Track(st.Object, st.Property)
	if err != nil {
		return err
	}
	i, ok := t.FindIndex(st.Time)
	if !ok {
		return ErrIndexOutOfRange
	}
	switch st.Action {
	case "remove":
		return t.RemoveAt(i)
	case "move":
		return t.UpdateTime(i, st.To)
	case "set":
		return t.UpdateValue(i, value)
	case "interp":
		interp, _ := parseInterpolation(st.Interpolation)
		return t.SetInterpolation(i, interp)
	}
	return fmt.Errorf("unknown action %q", st.Action)
}

func parseInterpolation(name string) (Interpolation, error) {
	switch name {
	case "", "linear":
		return InterpolationLinear, nil
	case "step":
		return InterpolationStep, nil
	case "bezier":
		return InterpolationBezier, nil
	}
	return 0, fmt.Errorf("%q: %w", name, ErrInvalidInterpolation)
}
