package fwutil_test

import (
	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/netlab-io/fwutil-harness/internal/descriptor"
	"github.com/netlab-io/fwutil-harness/internal/workflow"
	"github.com/netlab-io/fwutil-harness/test/harness/e2e"
)

var _ = Describe("fwutil update", func() {
	var harness *e2e.Harness

	BeforeEach(func() {
		harness = e2e.NewTestHarness()
	})

	AfterEach(func() {
		harness.Cleanup()
	})

	Context("against the current image", Label("update"), func() {
		It("updates each supported component through a generated descriptor", func() {
			for _, comp := range harness.Components() {
				result, ok := harness.Decide(comp)
				if !ok {
					GinkgoWriter.Printf("no candidate build for %s, skipping\n", comp.Name())
					continue
				}

				backup, err := descriptor.NewBackup(harness.Context, harness.Device, harness.Platform, GinkgoT().TempDir())
				Expect(err).ToNot(HaveOccurred())
				defer func() {
					Expect(backup.Restore(harness.Context)).To(Succeed())
				}()

				content, err := descriptor.Generate(harness.Platform, []string{result.Component}, map[string]descriptor.Firmware{
					result.Component: {
						Firmware: workflow.StagePath(result),
						Version:  result.VersionToInstall,
					},
				})
				Expect(err).ToNot(HaveOccurred())
				Expect(descriptor.Push(harness.Context, harness.Device, harness.Platform, content)).To(Succeed())

				orchestrator := harness.Orchestrator(comp)
				Expect(orchestrator.Run(harness.Context, result, workflow.ModeUpdateCurrent)).To(Succeed())
			}
		})
	})

	Context("with a corrupted descriptor", Label("update", "negative"), func() {
		DescribeTable("fails with the matching schema error",
			func(kind descriptor.Corruption) {
				components := harness.Components()
				comp := components[0]

				backup, err := descriptor.NewBackup(harness.Context, harness.Device, harness.Platform, GinkgoT().TempDir())
				Expect(err).ToNot(HaveOccurred())
				defer func() {
					Expect(backup.Restore(harness.Context)).To(Succeed())
				}()

				names := make([]string, 0, len(components))
				for _, c := range components {
					names = append(names, c.Name())
				}
				content, err := descriptor.GenerateInvalid(harness.Platform, names, kind)
				Expect(err).ToNot(HaveOccurred())
				Expect(descriptor.Push(harness.Context, harness.Device, harness.Platform, content)).To(Succeed())

				orchestrator := harness.Orchestrator(comp)
				Expect(orchestrator.ExpectCommandFailure(harness.Context,
					"sudo fwutil update -y", kind.ExpectedFailure())).To(Succeed())
			},
			Entry("corrupted chassis key", descriptor.CorruptChassisKey),
			Entry("corrupted platform key", descriptor.CorruptPlatformKey),
			Entry("corrupted component shape", descriptor.CorruptComponentShape),
		)
	})

	Context("against the next image", Label("update", "dual-image"), func() {
		It("updates through the next image and restores both descriptors", func() {
			comp := harness.Components()[0]
			result, ok := harness.Decide(comp)
			if !ok {
				Skip("no candidate build for " + comp.Name())
			}

			orchestrator := harness.Orchestrator(comp)
			dual := workflow.NewDualImage(harness.Device, harness.Images, orchestrator,
				harness.Platform, GinkgoT().TempDir(), harness.Logger)

			original := originalDescriptor(harness)
			Expect(dual.Setup(harness.Context, result, harness.Config.SecondImagePath)).To(Succeed())
			defer func() {
				Expect(dual.Teardown(harness.Context)).To(Succeed())

				// the live descriptor is byte-identical to the pre-test state
				Expect(originalDescriptor(harness)).To(Equal(original))
			}()

			Expect(dual.Run(harness.Context, result)).To(Succeed())

			final, err := dual.Final(harness.Context)
			Expect(err).ToNot(HaveOccurred())
			Expect(final).To(BeElementOf(workflow.EndedOnCurrent, workflow.EndedOnNext))
		})
	})
})

func originalDescriptor(harness *e2e.Harness) []byte {
	backup, err := descriptor.NewBackup(harness.Context, harness.Device, harness.Platform, GinkgoT().TempDir())
	Expect(err).ToNot(HaveOccurred())
	content, err := backup.Bytes()
	Expect(err).ToNot(HaveOccurred())
	return content
}
