package pdf

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/ternarybob/arbor"
)

func TestProbeRejectsEmptyPayload(t *testing.T) {
	prober := NewProber(arbor.NewLogger())

	_, err := prober.Probe(context.Background(), nil)
	assert.Error(t, err)
}

func TestProbeRejectsGarbage(t *testing.T) {
	prober := NewProber(arbor.NewLogger())

	_, err := prober.Probe(context.Background(), []byte("this is not a pdf"))
	assert.Error(t, err)
}

func TestProbeResultCheck(t *testing.T) {
	assert.NoError(t, (&ProbeResult{PageCount: 3}).Check())
	assert.Error(t, (&ProbeResult{PageCount: 0}).Check())
	assert.Error(t, (&ProbeResult{PageCount: 3, IsEncrypted: true}).Check())
}
