package shelly

import (
	"context"
	"sync"

	"github.com/spotswitch/spotswitch/pkg/types"
)

// SetCall records one SetSwitch invocation on the mock.
type SetCall struct {
	ID int
	On bool
}

// Mock is an in-memory Device used by tests.
type Mock struct {
	mu sync.Mutex

	UnixTime int64
	Switches map[int]types.SwitchStatus

	SystemErr error
	StatusErr error
	SetErr    error
	ColorErr  error

	setCalls []SetCall
	colors   []string
}

// NewMock returns a mock with no switches.
func NewMock() *Mock {
	return &Mock{
		Switches: make(map[int]types.SwitchStatus),
	}
}

// SystemStatus implements Device.
func (m *Mock) SystemStatus(ctx context.Context) (types.SystemStatus, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.SystemErr != nil {
		return types.SystemStatus{}, m.SystemErr
	}
	return types.SystemStatus{UnixTime: m.UnixTime}, nil
}

// SwitchStatus implements Device.
func (m *Mock) SwitchStatus(ctx context.Context, id int) (types.SwitchStatus, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.StatusErr != nil {
		return types.SwitchStatus{}, m.StatusErr
	}
	return m.Switches[id], nil
}

// SetSwitch implements Device and records the command, mirroring it into the
// stored switch state like real hardware would.
func (m *Mock) SetSwitch(ctx context.Context, id int, on bool) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.SetErr != nil {
		return m.SetErr
	}
	m.setCalls = append(m.setCalls, SetCall{ID: id, On: on})
	st := m.Switches[id]
	st.Output = on
	m.Switches[id] = st
	return nil
}

// SetLEDColor implements Device.
func (m *Mock) SetLEDColor(ctx context.Context, rgb string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.ColorErr != nil {
		return m.ColorErr
	}
	m.colors = append(m.colors, rgb)
	return nil
}

// SetCalls returns a copy of the recorded SetSwitch commands.
func (m *Mock) SetCalls() []SetCall {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]SetCall, len(m.setCalls))
	copy(out, m.setCalls)
	return out
}

// Colors returns a copy of the recorded LED color updates.
func (m *Mock) Colors() []string {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]string, len(m.colors))
	copy(out, m.colors)
	return out
}
