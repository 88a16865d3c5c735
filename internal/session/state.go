package session

import "fmt"

// State is the pipeline position of a session.
type State int

const (
	Idle State = iota
	DatasetLoaded
	Accounted
	Distributed
)

var stateNames = [...]string{"idle", "dataset_loaded", "accounted", "distributed"}

func (s State) String() string {
	if s < 0 || int(s) >= len(stateNames) {
		return fmt.Sprintf("state(%d)", int(s))
	}
	return stateNames[s]
}

func (s State) MarshalText() ([]byte, error) {
	return []byte(s.String()), nil
}

func (s *State) UnmarshalText(b []byte) error {
	for i, name := range stateNames {
		if name == string(b) {
			*s = State(i)
			return nil
		}
	}
	return fmt.Errorf("unknown pipeline state %q", b)
}
