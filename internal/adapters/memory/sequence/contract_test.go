package sequence

import (
	"testing"

	"github.com/alubilles/membership-api/internal/adapters/contracttest"
	sequenceport "github.com/alubilles/membership-api/internal/ports/out/sequence"
)

func TestContract_Sequencer(t *testing.T) {
	contracttest.RunSequencer(t, func(t *testing.T) (sequenceport.Sequencer, func()) {
		t.Helper()
		return NewSequencer(), nil
	})
}
