package realtime

import (
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"gitlab.com/timkado/api/daisi-wa-crm/internal/config"
	"gitlab.com/timkado/api/daisi-wa-crm/internal/model"
)

func TestPoolEmitter_Delivers(t *testing.T) {
	var mu sync.Mutex
	var got []model.RealtimeEvent

	emitter, err := NewPoolEmitter(config.WorkerPoolConfig{PoolSize: 2}, func(evt model.RealtimeEvent) {
		mu.Lock()
		defer mu.Unlock()
		got = append(got, evt)
	})
	require.NoError(t, err)
	defer emitter.Release()

	emitter.Emit(model.RealtimeEvent{CompanyID: "company-a", Type: model.EventMessageCreated})
	emitter.Emit(model.RealtimeEvent{CompanyID: "company-a", Type: model.EventTicketUpdated})

	assert.Eventually(t, func() bool {
		mu.Lock()
		defer mu.Unlock()
		return len(got) == 2
	}, time.Second, 10*time.Millisecond)
}

func TestPoolEmitter_SaturatedPoolDropsWithoutBlocking(t *testing.T) {
	release := make(chan struct{})
	emitter, err := NewPoolEmitter(config.WorkerPoolConfig{PoolSize: 1}, func(evt model.RealtimeEvent) {
		<-release
	})
	require.NoError(t, err)
	defer emitter.Release()
	defer close(release)

	done := make(chan struct{})
	go func() {
		for i := 0; i < 10; i++ {
			emitter.Emit(model.RealtimeEvent{CompanyID: "company-a", Type: model.EventMessageCreated})
		}
		close(done)
	}()

	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("Emit blocked on a saturated pool")
	}
}
