package keyframe

import (
	"fmt"
	"math"
)

// Clone returns a deep copy of the store's tracks, frame rate and extent.
// Subscribers, the event sink and the sample cache are not copied.
func (s *Store) Clone() *Store {
	c := NewStore(StoreConfig{FrameRate: s.frameRate, Capacity: s.capacity, Debug: s.debug})
	c.maxTime = s.maxTime
	for id, props := range s.tracks {
		for p, t := range props {
			c.adopt(id, p, t.Clone())
		}
	}
	return c
}

// Backup captures the store's current contents for a later Restore.
func (s *Store) Backup() *Portable {
	return s.ToPortable()
}

// Restore replaces the store's contents with a backup. The backup is
// validated in full before the store is touched. Existing tracks are removed
// and every restored keyframe is re-added through Track.Add, so subscribers
// observe one EventAdded per keyframe. Unlike incremental edits, Restore sets
// the extent to the backup's value.
func (s *Store) Restore(p *Portable) error {
	if _, err := FromPortable(p); err != nil {
		return fmt.Errorf("restore: %w", err)
	}
	for _, id := range s.Objects() {
		for _, prop := range s.Properties(id) {
			_ = s.RemoveTrack(id, prop)
		}
	}
	s.capacity = max(s.capacity, longestTrack(p))
	s.frameRate = p.FrameRate
	s.maxTime = 0
	if err := s.replay(p); err != nil {
		return fmt.Errorf("restore: %w", err)
	}
	s.UpdateMaxTime(p.MaxTime)
	return nil
}

// MergePolicy decides what Merge does when both stores hold a keyframe at the
// same time on the same track.
type MergePolicy uint8

const (
	MergeKeepExisting MergePolicy = iota // leave the receiver's keyframe untouched
	MergeOverwrite                       // replace value and interpolation with the incoming keyframe
)

// MergeResult counts what a Merge did.
type MergeResult struct {
	TracksCreated int
	Added         int
	Overwritten   int
	Skipped       int
}

// Merge adds every track and keyframe of other into s. Conflicting keyframes
// are resolved by policy. All changes go through the normal track mutations,
// so subscribers see an event for each one. On error the merge stops and the
// result reports what was applied so far.
func (s *Store) Merge(other *Store, policy MergePolicy) (MergeResult, error) {
	var res MergeResult
	if other == nil || other == s {
		return res, nil
	}
	for _, id := range other.Objects() {
		for _, prop := range other.Properties(id) {
			if _, err := s.Track(id, prop); err != nil {
				res.TracksCreated++
			}
			dst := s.AddTrack(id, prop)
			for _, kf := range other.tracks[id][prop].Keyframes() {
				if err := mergeKeyframe(dst, kf, policy, &res); err != nil {
					return res, fmt.Errorf("merge %s/%s at %gs: %w", id, prop, kf.Time, err)
				}
			}
		}
	}
	if other.maxTime > s.maxTime {
		s.UpdateMaxTime(other.maxTime)
	}
	return res, nil
}

func mergeKeyframe(dst *Track, kf Keyframe, policy MergePolicy, res *MergeResult) error {
	i, exists := dst.FindIndex(kf.Time)
	if !exists {
		var err error
		if kf.Handles != nil {
			_, err = dst.AddBezier(kf.Time, kf.Value, *kf.Handles)
		} else {
			_, err = dst.Add(kf.Time, kf.Value, kf.Interpolation)
		}
		if err == nil {
			res.Added++
		}
		return err
	}
	if policy == MergeKeepExisting {
		res.Skipped++
		return nil
	}
	if err := dst.UpdateValue(i, kf.Value); err != nil {
		return err
	}
	var err error
	if kf.Handles != nil {
		err = dst.SetHandles(i, *kf.Handles)
	} else {
		err = dst.SetInterpolation(i, kf.Interpolation)
		if err == nil {
			dst.clearHandles(i)
		}
	}
	if err == nil {
		res.Overwritten++
	}
	return err
}

// Stats summarises a store's contents.
type Stats struct {
	Objects      int
	Tracks       int
	Keyframes    int
	MaxTime      float64
	Duration     float64
	FrameRate    int
	CachedFrames int

	// ByInterpolation counts keyframes per Interpolation code.
	ByInterpolation [3]int
}

// Statistics counts objects, tracks and keyframes.
func (s *Store) Statistics() Stats {
	st := Stats{
		Objects:      len(s.tracks),
		MaxTime:      s.maxTime,
		FrameRate:    s.frameRate,
		CachedFrames: s.cacheFrames,
	}
	for _, props := range s.tracks {
		st.Tracks += len(props)
		for _, t := range props {
			st.Keyframes += t.count
			st.Duration = math.Max(st.Duration, t.Duration())
			for i := 0; i < t.count; i++ {
				st.ByInterpolation[t.interps[i]]++
			}
		}
	}
	return st
}
