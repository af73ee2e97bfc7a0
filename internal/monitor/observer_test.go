package monitor

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"github.com/SprengerV/volume-analyzer/internal/domain"
)

func silence(n int64) domain.Event {
	return domain.SilenceEvent{Address: addrA, At: time.Unix(n, 0), SinceSeconds: n}
}

func TestChannelObserver_DropsWhenFull(t *testing.T) {
	obs := NewChannelObserver(2)
	obs.OnEvent(silence(1))
	obs.OnEvent(silence(2))
	obs.OnEvent(silence(3))

	assert.Equal(t, int64(1), obs.Dropped())
	assert.Equal(t, silence(1), <-obs.Events())
	assert.Equal(t, silence(2), <-obs.Events())
}

func TestEventBuffer_KeepsMostRecent(t *testing.T) {
	buf := NewEventBuffer(3)
	assert.Empty(t, buf.Snapshot())

	buf.OnEvent(silence(1))
	buf.OnEvent(silence(2))
	assert.Equal(t, []domain.Event{silence(1), silence(2)}, buf.Snapshot())

	buf.OnEvent(silence(3))
	buf.OnEvent(silence(4))
	buf.OnEvent(silence(5))
	assert.Equal(t, []domain.Event{silence(3), silence(4), silence(5)}, buf.Snapshot())
}

func TestMultiObserver_DeliversInOrder(t *testing.T) {
	var got []string
	mo := MultiObserver{
		ObserverFunc(func(domain.Event) { got = append(got, "first") }),
		nil,
		ObserverFunc(func(domain.Event) { got = append(got, "second") }),
	}
	mo.OnEvent(silence(1))
	assert.Equal(t, []string{"first", "second"}, got)
}
