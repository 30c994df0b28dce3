package fwutil_test

import (
	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/netlab-io/fwutil-harness/test/harness/e2e"
)

var _ = Describe("fwutil show", Label("sanity"), func() {
	var harness *e2e.Harness

	BeforeEach(func() {
		harness = e2e.NewTestHarness()
	})

	AfterEach(func() {
		harness.Cleanup()
	})

	It("reports every supported component with a version", func() {
		status := harness.Status()
		Expect(status).ToNot(BeEmpty())

		for _, comp := range harness.Components() {
			entry, ok := status[comp.Name()]
			Expect(ok).To(BeTrue(), "component %s missing from fwutil show status", comp.Name())
			Expect(entry.Version).ToNot(BeEmpty(), "component %s has no version", comp.Name())
		}
	})

	It("lists the installed boot images", func() {
		info, err := harness.Images.List(harness.Context)
		Expect(err).ToNot(HaveOccurred())
		Expect(info.Current).ToNot(BeEmpty())
		Expect(info.Available).To(ContainElement(info.Current))
	})
})
