package probe

import (
	"context"
)

// Pinger checks whether a single host answers an ICMP echo.
type Pinger interface {
	Ping(ctx context.Context, ip string) bool
}

// ExecPinger shells out to the system ping utility with a single echo
// request and a one second reply deadline.
type ExecPinger struct {
	run commandRunner
}

// NewExecPinger creates a pinger backed by the ping utility.
func NewExecPinger() *ExecPinger {
	return &ExecPinger{run: runCommand}
}

// Ping reports whether the host answered. Any failure, including a
// missing ping binary, counts as unreachable.
func (p *ExecPinger) Ping(ctx context.Context, ip string) bool {
	_, err := p.run(ctx, "ping", "-c", "1", "-W", "1", ip)
	return err == nil
}

var _ Pinger = (*ExecPinger)(nil)
