package fwutil_test

import (
	"fmt"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/netlab-io/fwutil-harness/internal/workflow"
	"github.com/netlab-io/fwutil-harness/test/harness/e2e"
)

var _ = Describe("fwutil install", func() {
	var harness *e2e.Harness

	BeforeEach(func() {
		harness = e2e.NewTestHarness()
	})

	AfterEach(func() {
		harness.Cleanup()
	})

	Context("positive", Label("install"), func() {
		It("installs a candidate build for each supported component", func() {
			for _, comp := range harness.Components() {
				result, ok := harness.Decide(comp)
				if !ok {
					GinkgoWriter.Printf("no candidate build for %s, skipping\n", comp.Name())
					continue
				}

				orchestrator := harness.Orchestrator(comp)
				Expect(orchestrator.Run(harness.Context, result, workflow.ModeInstall)).To(Succeed())
				Expect(orchestrator.State()).To(Equal(workflow.StateSucceeded))
			}
		})
	})

	Context("negative", Label("install", "negative"), func() {
		It("rejects an unknown component name", func() {
			orchestrator := harness.Orchestrator(harness.Components()[0])
			err := orchestrator.ExpectCommandFailure(harness.Context,
				"sudo fwutil install chassis component UNVALID fw -y /tmp/nonexistent.rom",
				`Invalid value for "<component_name>"`)
			Expect(err).ToNot(HaveOccurred())
		})

		It("rejects a nonexistent firmware path", func() {
			comp := harness.Components()[0]
			orchestrator := harness.Orchestrator(comp)
			err := orchestrator.ExpectCommandFailure(harness.Context,
				fmt.Sprintf("sudo fwutil install chassis component %s fw -y /tmp/nonexistent.rom", comp.Name()),
				`Invalid value for "<fw_path>"`)
			Expect(err).ToNot(HaveOccurred())
		})

		It("rejects an unreachable firmware URL", func() {
			comp := harness.Components()[0]
			orchestrator := harness.Orchestrator(comp)
			err := orchestrator.ExpectCommandFailure(harness.Context,
				fmt.Sprintf("sudo fwutil install chassis component %s fw -y http://not-existing-url.invalid/fw.rom", comp.Name()),
				`Error: Did not receive a response from remote machine`)
			Expect(err).ToNot(HaveOccurred())
		})
	})
})
