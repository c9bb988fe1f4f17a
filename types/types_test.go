package types

import (
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestFloatCellLastWriteWins(t *testing.T) {
	var c FloatCell
	assert.Equal(t, 0.0, c.Load())

	c.Store(42.5)
	assert.Equal(t, 42.5, c.Load())
	c.Store(-10)
	assert.Equal(t, -10.0, c.Load())
}

// TestFloatCellConcurrent hammers the cell from writers and readers; every
// load must be one of the stored values, never a torn mix.
func TestFloatCellConcurrent(t *testing.T) {
	var c FloatCell
	c.Store(1.0)
	values := map[float64]bool{1.0: true, 2.5: true, 100.0: true}

	var wg sync.WaitGroup
	for v := range values {
		wg.Add(1)
		go func(v float64) {
			defer wg.Done()
			for i := 0; i < 10000; i++ {
				c.Store(v)
			}
		}(v)
	}

	for r := 0; r < 4; r++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for i := 0; i < 10000; i++ {
				if !values[c.Load()] {
					t.Errorf("torn read: %v", c.Load())
					return
				}
			}
		}()
	}
	wg.Wait()
}
