package flight

import (
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestContext_IdleByDefault(t *testing.T) {
	ctx := NewContext()
	assert.Nil(t, ctx.Get())
	assert.Nil(t, ctx.LogAttrs())
}

func TestContext_SetGet(t *testing.T) {
	ctx := NewContext()
	ctx.Set(&Flight{ID: 7, Name: "pattern work", VehicleClass: "multirotor"})

	f := ctx.Get()
	assert.Equal(t, uint(7), f.ID)

	attrs := ctx.LogAttrs()
	assert.Len(t, attrs, 3)
	assert.Equal(t, "flightId", attrs[0].Key)
}

func TestContext_ConcurrentAccess(t *testing.T) {
	ctx := NewContext()
	var wg sync.WaitGroup

	for i := 0; i < 10; i++ {
		wg.Add(1)
		go func(n int) {
			defer wg.Done()
			ctx.Set(&Flight{ID: uint(n)})
			_ = ctx.Get()
			_ = ctx.LogAttrs()
		}(i)
	}
	wg.Wait()

	assert.NotNil(t, ctx.Get())
}
