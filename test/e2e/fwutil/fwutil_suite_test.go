package fwutil_test

import (
	"testing"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
)

func TestFwutil(t *testing.T) {
	RegisterFailHandler(Fail)
	RunSpecs(t, "Fwutil E2E Suite")
}
