package governor

import (
	"sync"

	"codeberg.org/mutker/cpufreqctl/internal/cpufreq"
	"github.com/stretchr/testify/mock"
)

// recordingActuator remembers every ceiling it was asked to apply.
type recordingActuator struct {
	mu      sync.Mutex
	applied []cpufreq.Frequency
	err     error
}

func (a *recordingActuator) Apply(freq cpufreq.Frequency) error {
	a.mu.Lock()
	defer a.mu.Unlock()

	if a.err != nil {
		return a.err
	}
	a.applied = append(a.applied, freq)

	return nil
}

func (a *recordingActuator) Applied() []cpufreq.Frequency {
	a.mu.Lock()
	defer a.mu.Unlock()

	out := make([]cpufreq.Frequency, len(a.applied))
	copy(out, a.applied)

	return out
}

// scriptedSampler replays temperatures, repeating the last one.
type scriptedSampler struct {
	mu    sync.Mutex
	temps []int
	err   error
	calls int
}

func (s *scriptedSampler) Sample() (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.calls++
	if s.err != nil {
		return 0, s.err
	}

	temp := s.temps[0]
	if len(s.temps) > 1 {
		s.temps = s.temps[1:]
	}

	return temp, nil
}

func (s *scriptedSampler) Calls() int {
	s.mu.Lock()
	defer s.mu.Unlock()

	return s.calls
}

type mockActuator struct {
	mock.Mock
}

func (m *mockActuator) Apply(freq cpufreq.Frequency) error {
	args := m.Called(freq)
	return args.Error(0)
}
