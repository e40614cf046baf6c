package swd

// recordingSink collects every frame, FrameV2, and marker emitted during
// a test, the shared fixture every *_test.go file in this package drives
// Commit against.
type recordingSink struct {
	frames   []Frame
	framesV2 []FrameV2
	markers  []Marker
}

func (s *recordingSink) AddFrame(f Frame)       { s.frames = append(s.frames, f) }
func (s *recordingSink) AddFrameV2(f FrameV2)   { s.framesV2 = append(s.framesV2, f) }
func (s *recordingSink) AddMarker(m Marker)     { s.markers = append(s.markers, m) }
