package power

import (
	"context"
	"fmt"
	"strings"

	"github.com/netlab-io/fwutil-harness/pkg/log"
)

// Runner executes a command on the PDU's management interface.
type Runner interface {
	Execute(ctx context.Context, command string) (stdout string, stderr string, exitCode int)
}

// Config describes the PDU endpoint and its outlet command templates. Each
// template receives the outlet identifier via %s; the status command's output
// is matched against OnMarker to decide outlet state.
type Config struct {
	Host     string `json:"host"`
	Port     int    `json:"port,omitempty"`
	User     string `json:"user"`
	Password string `json:"password"`

	Outlets       []string `json:"outlets"`
	StatusCommand string   `json:"statusCommand"`
	OnCommand     string   `json:"onCommand"`
	OffCommand    string   `json:"offCommand"`
	OnMarker      string   `json:"onMarker,omitempty"`
}

type pdu struct {
	runner Runner
	config Config
	log    *log.PrefixLogger
}

var _ Controller = (*pdu)(nil)

// NewPDU returns a Controller driving outlets over a command-line PDU.
func NewPDU(runner Runner, config Config, logger *log.PrefixLogger) (Controller, error) {
	if len(config.Outlets) == 0 {
		return nil, fmt.Errorf("pdu config has no outlets")
	}
	if config.StatusCommand == "" || config.OnCommand == "" || config.OffCommand == "" {
		return nil, fmt.Errorf("pdu config is missing outlet command templates")
	}
	if config.OnMarker == "" {
		config.OnMarker = "on"
	}
	return &pdu{runner: runner, config: config, log: logger}, nil
}

func (p *pdu) Status(ctx context.Context) ([]PSUStatus, error) {
	statuses := make([]PSUStatus, 0, len(p.config.Outlets))
	for _, outlet := range p.config.Outlets {
		stdout, stderr, code := p.runner.Execute(ctx, fmt.Sprintf(p.config.StatusCommand, outlet))
		if code != 0 {
			return nil, fmt.Errorf("pdu status for outlet %s failed: %s", outlet, strings.TrimSpace(stderr))
		}
		statuses = append(statuses, PSUStatus{
			ID: outlet,
			On: strings.Contains(strings.ToLower(stdout), p.config.OnMarker),
		})
	}
	return statuses, nil
}

func (p *pdu) TurnOn(ctx context.Context, id string) error {
	return p.toggle(ctx, p.config.OnCommand, id)
}

func (p *pdu) TurnOff(ctx context.Context, id string) error {
	return p.toggle(ctx, p.config.OffCommand, id)
}

func (p *pdu) toggle(ctx context.Context, template, id string) error {
	_, stderr, code := p.runner.Execute(ctx, fmt.Sprintf(template, id))
	if code != 0 {
		return fmt.Errorf("pdu command for outlet %s failed: %s", id, strings.TrimSpace(stderr))
	}
	return nil
}
