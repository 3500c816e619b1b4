package dice

import "sync"

// Script is a Source that replays fixed die faces, for tests and replays.
// Each entry is the face to return (1-based); faces larger than the die are
// wrapped into range. When the script runs out it keeps returning 1.
type Script struct {
	mu    sync.Mutex
	faces []int
	pos   int
}

// NewScript creates a scripted source.
func NewScript(faces ...int) *Script {
	return &Script{faces: faces}
}

// Intn implements Source.
func (s *Script) Intn(n int) int {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.pos >= len(s.faces) {
		return 0
	}
	face := s.faces[s.pos]
	s.pos++
	if face < 1 {
		face = 1
	}
	return (face - 1) % n
}

// Remaining returns how many scripted faces have not been consumed.
func (s *Script) Remaining() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.faces) - s.pos
}
