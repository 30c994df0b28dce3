package cli

import (
	"context"
	"fmt"
	"os"
	"time"

	"github.com/spf13/pflag"

	"github.com/netlab-io/fwutil-harness/internal/component"
	"github.com/netlab-io/fwutil-harness/internal/config"
	"github.com/netlab-io/fwutil-harness/internal/dut"
	"github.com/netlab-io/fwutil-harness/internal/power"
	"github.com/netlab-io/fwutil-harness/pkg/log"
)

const defaultConfigFile = "fwharness.yaml"

type GlobalOptions struct {
	ConfigFile     string
	RequestTimeout int
}

func DefaultGlobalOptions() GlobalOptions {
	configFile := defaultConfigFile
	if env := os.Getenv(config.EnvConfigFile); env != "" {
		configFile = env
	}
	return GlobalOptions{
		ConfigFile: configFile,
	}
}

func (o *GlobalOptions) Bind(fs *pflag.FlagSet) {
	fs.StringVarP(&o.ConfigFile, "config", "c", o.ConfigFile, "Path to the harness configuration file.")
	fs.IntVar(&o.RequestTimeout, "request-timeout", o.RequestTimeout, "Overall timeout in seconds (0 - no timeout).")
}

func (o *GlobalOptions) Validate(args []string) error {
	if o.RequestTimeout < 0 {
		return fmt.Errorf("request-timeout must not be negative")
	}
	return nil
}

func (o *GlobalOptions) WithTimeout(ctx context.Context) (context.Context, context.CancelFunc) {
	if o.RequestTimeout != 0 {
		return context.WithTimeout(ctx, time.Duration(o.RequestTimeout)*time.Second)
	}
	return ctx, func() {}
}

// session is the shared wiring every command needs: loaded config, a device
// client and the platform's component set.
type session struct {
	cfg      *config.Config
	device   dut.Client
	platform string
	log      *log.PrefixLogger
}

func (o *GlobalOptions) connect(ctx context.Context) (*session, error) {
	cfg, err := config.Load(o.ConfigFile)
	if err != nil {
		return nil, err
	}
	logger := log.NewPrefixLogger("fwharness")
	device := dut.NewSSHClient(cfg.DUT, logger)
	platform, err := device.Platform(ctx)
	if err != nil {
		return nil, fmt.Errorf("reading DUT platform: %w", err)
	}
	return &session{
		cfg:      cfg,
		device:   device,
		platform: platform,
		log:      logger,
	}, nil
}

// powerController builds the PDU client when one is configured. Workflows
// that never power cycle run fine without it.
func (s *session) powerController() (power.Controller, error) {
	if s.cfg.PDU.Host == "" {
		return nil, nil
	}
	runner := dut.NewSSHClient(dut.Config{
		Host:     s.cfg.PDU.Host,
		Port:     s.cfg.PDU.Port,
		User:     s.cfg.PDU.User,
		Password: s.cfg.PDU.Password,
	}, s.log)
	return power.NewPDU(runner, s.cfg.PDU, s.log)
}

func (s *session) components() ([]component.Component, error) {
	names, err := s.cfg.ComponentsFor(s.platform)
	if err != nil {
		return nil, err
	}
	partNumbers, err := s.cfg.PartNumbers()
	if err != nil {
		return nil, err
	}
	components := make([]component.Component, 0, len(names))
	for _, name := range names {
		comp, err := component.New(name, s.platform, partNumbers)
		if err != nil {
			return nil, err
		}
		components = append(components, comp)
	}
	return components, nil
}

// selectComponents returns the platform's component set, narrowed to one
// component when a name is given.
func (s *session) selectComponents(args []string) ([]component.Component, error) {
	if len(args) == 1 {
		comp, err := s.component(args[0])
		if err != nil {
			return nil, err
		}
		return []component.Component{comp}, nil
	}
	return s.components()
}

func (s *session) component(name string) (component.Component, error) {
	components, err := s.components()
	if err != nil {
		return nil, err
	}
	for _, comp := range components {
		if comp.Name() == name {
			return comp, nil
		}
	}
	return nil, fmt.Errorf("component %q is not supported on platform %s", name, s.platform)
}
