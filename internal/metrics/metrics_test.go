package metrics

import (
	"os"
	"path/filepath"
	"sync"
	"testing"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestInit_Idempotent(t *testing.T) {
	t.Parallel()

	var wg sync.WaitGroup
	for i := 0; i < 10; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			Init()
		}()
	}
	wg.Wait()

	assert.NotNil(t, renderTotal)
	assert.NotNil(t, configSwaps)
}

func TestRecorders(t *testing.T) {
	t.Parallel()

	Init()
	before := testutil.ToFloat64(revealTotal.WithLabelValues("binary"))
	RecordReveal("binary")
	RecordReveal("binary")
	assert.Equal(t, before+2, testutil.ToFloat64(revealTotal.WithLabelValues("binary")))

	RecordRender("string", "display", "default")
	assert.GreaterOrEqual(t, testutil.ToFloat64(renderTotal.WithLabelValues("string", "display", "default")), 1.0)

	RecordWrap("int", false)
	assert.GreaterOrEqual(t, testutil.ToFloat64(wrapTotal.WithLabelValues("int", "rejected")), 1.0)

	RecordConfigChange("import", true)
	assert.GreaterOrEqual(t, testutil.ToFloat64(configSwaps.WithLabelValues("import", "success")), 1.0)

	RecordRenderFallback("date")
	assert.GreaterOrEqual(t, testutil.ToFloat64(renderFallbacks.WithLabelValues("date")), 1.0)
}

func TestWriteTextfile(t *testing.T) {
	t.Parallel()

	RecordReveal("string")

	path := filepath.Join(t.TempDir(), "secretval.prom")
	require.NoError(t, WriteTextfile(path))

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Contains(t, string(data), "secretval_reveal_total")
}
