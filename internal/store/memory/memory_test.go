package memory

import (
	"testing"

	"github.com/Silozo17/homeholdem-sub001/internal/store/storetest"
)

func TestConformance(t *testing.T) {
	t.Parallel()
	storetest.Run(t, New(), "mem-1")
}
