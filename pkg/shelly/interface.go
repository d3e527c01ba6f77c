// Package shelly talks to Gen2-style smart switch hardware over its local
// HTTP RPC surface.
package shelly

import (
	"context"

	"github.com/spotswitch/spotswitch/pkg/types"
)

// Device is the RPC surface of the switch hardware the control loop drives.
type Device interface {
	// SystemStatus returns the device status including its clock.
	SystemStatus(ctx context.Context) (types.SystemStatus, error)

	// SwitchStatus returns the state of one switch: output, power draw,
	// energy counters and the internal temperature.
	SwitchStatus(ctx context.Context, id int) (types.SwitchStatus, error)

	// SetSwitch turns one switch output on or off.
	SetSwitch(ctx context.Context, id int, on bool) error

	// SetLEDColor sets the LED indicator color from an "r,g,b" triple
	// (components 0-100).
	SetLEDColor(ctx context.Context, rgb string) error
}
