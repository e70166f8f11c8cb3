package transport

import "context"

// Local runs commands through a login shell on this machine.
type Local struct{}

func NewLocal() *Local {
	return &Local{}
}

func (t *Local) Describe() string {
	return "local"
}

func (t *Local) Run(ctx context.Context, command string) (RunResult, error) {
	return capture(ctx, t.Describe(), command, "bash", "-lc", command)
}
