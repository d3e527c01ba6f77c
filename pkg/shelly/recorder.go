package shelly

import (
	"context"
	"log/slog"
	"sync"

	"github.com/spotswitch/spotswitch/pkg/log"
	"github.com/spotswitch/spotswitch/pkg/types"
)

// Recorder wraps a Device for simulate mode: reads pass through to the real
// hardware, but switch commands only update an in-memory shadow state. The
// shadow state replaces the reported output so the next cycle's no-op
// comparison sees the simulated state, not the real one.
type Recorder struct {
	real Device

	mu     sync.Mutex
	states map[int]bool
}

// NewRecorder wraps a real device.
func NewRecorder(real Device) *Recorder {
	return &Recorder{
		real:   real,
		states: make(map[int]bool),
	}
}

// SystemStatus implements Device.
func (r *Recorder) SystemStatus(ctx context.Context) (types.SystemStatus, error) {
	return r.real.SystemStatus(ctx)
}

// SwitchStatus implements Device. The real status is fetched, then the output
// is overridden with the recorded shadow state once one exists.
func (r *Recorder) SwitchStatus(ctx context.Context, id int) (types.SwitchStatus, error) {
	st, err := r.real.SwitchStatus(ctx, id)
	if err != nil {
		return types.SwitchStatus{}, err
	}

	r.mu.Lock()
	shadow, ok := r.states[id]
	r.mu.Unlock()
	if ok && shadow != st.Output {
		log.Ctx(ctx).InfoContext(ctx, "overriding real switch state with simulated state",
			slog.Int("switch", id),
			slog.Bool("real", st.Output),
			slog.Bool("simulated", shadow))
	}
	if ok {
		st.Output = shadow
	}
	return st, nil
}

// SetSwitch implements Device by only recording the command.
func (r *Recorder) SetSwitch(ctx context.Context, id int, on bool) error {
	log.Ctx(ctx).InfoContext(ctx, "simulating switch change",
		slog.Int("switch", id), slog.Bool("on", on))
	r.mu.Lock()
	r.states[id] = on
	r.mu.Unlock()
	return nil
}

// SetLEDColor implements Device. Indicator updates are harmless, so they are
// passed through even in simulate mode.
func (r *Recorder) SetLEDColor(ctx context.Context, rgb string) error {
	return r.real.SetLEDColor(ctx, rgb)
}
