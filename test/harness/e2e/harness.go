package e2e

import (
	"context"
	"errors"
	"os"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/netlab-io/fwutil-harness/internal/component"
	"github.com/netlab-io/fwutil-harness/internal/config"
	"github.com/netlab-io/fwutil-harness/internal/dut"
	"github.com/netlab-io/fwutil-harness/internal/image"
	"github.com/netlab-io/fwutil-harness/internal/inventory"
	"github.com/netlab-io/fwutil-harness/internal/loganalyzer"
	"github.com/netlab-io/fwutil-harness/internal/power"
	"github.com/netlab-io/fwutil-harness/internal/reconcile"
	"github.com/netlab-io/fwutil-harness/internal/workflow"
	"github.com/netlab-io/fwutil-harness/pkg/log"
)

// Harness wires one e2e test to the lab DUT described by the configuration
// file named in FWHARNESS_CONFIG.
type Harness struct {
	Config   *config.Config
	Device   dut.Client
	Platform string
	Images   *image.Manager
	Logger   *log.PrefixLogger

	Context   context.Context
	ctxCancel context.CancelFunc
}

// NewTestHarness connects to the configured DUT. Specs are skipped, not
// failed, when no lab configuration is present.
func NewTestHarness() *Harness {
	if os.Getenv(config.EnvConfigFile) == "" {
		Skip("FWHARNESS_CONFIG is not set, skipping DUT tests")
	}

	cfg, err := config.LoadFromEnv()
	Expect(err).ToNot(HaveOccurred())

	logger := log.NewPrefixLogger("e2e")
	device := dut.NewSSHClient(cfg.DUT, logger)

	ctx, cancel := context.WithCancel(context.Background())
	platform, err := device.Platform(ctx)
	Expect(err).ToNot(HaveOccurred())

	return &Harness{
		Config:    cfg,
		Device:    device,
		Platform:  platform,
		Images:    image.NewManager(device, logger),
		Logger:    logger,
		Context:   ctx,
		ctxCancel: cancel,
	}
}

func (h *Harness) Cleanup() {
	h.ctxCancel()
}

// Components returns the component set supported on the DUT's platform.
func (h *Harness) Components() []component.Component {
	names, err := h.Config.ComponentsFor(h.Platform)
	Expect(err).ToNot(HaveOccurred())

	partNumbers, err := h.Config.PartNumbers()
	Expect(err).ToNot(HaveOccurred())

	components := make([]component.Component, 0, len(names))
	for _, name := range names {
		comp, err := component.New(name, h.Platform, partNumbers)
		Expect(err).ToNot(HaveOccurred())
		components = append(components, comp)
	}
	return components
}

// Status fetches and parses the DUT's current firmware inventory.
func (h *Harness) Status() inventory.Status {
	stdout, err := dut.Run(h.Context, h.Device, "sudo fwutil show status")
	Expect(err).ToNot(HaveOccurred())

	status, err := inventory.Parse(stdout)
	Expect(err).ToNot(HaveOccurred())
	return status
}

// Decide computes the install decision for comp from the live inventory. The
// second return is false when no candidate build exists for the platform.
func (h *Harness) Decide(comp component.Component) (reconcile.Result, bool) {
	entry := h.Status()[comp.Name()]
	candidates, err := comp.ParseVersions(h.Config.BinariesDir, entry.Version)
	Expect(err).ToNot(HaveOccurred())

	result, err := reconcile.Decide(comp, candidates, entry)
	if errors.Is(err, reconcile.ErrNothingToInstall) {
		return reconcile.Result{}, false
	}
	Expect(err).ToNot(HaveOccurred())
	return result, true
}

// Orchestrator builds the full update workflow for comp.
func (h *Harness) Orchestrator(comp component.Component) *workflow.Orchestrator {
	analyzer := loganalyzer.New(h.Device, h.Logger)
	return workflow.New(h.Device, analyzer, h.PowerController(), comp, h.Logger)
}

// PowerController returns the PDU client, or nil when the lab has none.
func (h *Harness) PowerController() power.Controller {
	if h.Config.PDU.Host == "" {
		return nil
	}
	runner := dut.NewSSHClient(dut.Config{
		Host:     h.Config.PDU.Host,
		Port:     h.Config.PDU.Port,
		User:     h.Config.PDU.User,
		Password: h.Config.PDU.Password,
	}, h.Logger)
	ctrl, err := power.NewPDU(runner, h.Config.PDU, h.Logger)
	Expect(err).ToNot(HaveOccurred())
	return ctrl
}
