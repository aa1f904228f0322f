package messaging

import (
	"context"
	"encoding/json"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/twmb/franz-go/pkg/kgo"

	"github.com/forgo/raidplan/api/internal/service"
)

type fakeProducer struct {
	mu         sync.Mutex
	records    []*kgo.Record
	produceErr error
	flushErr   error
	flushed    bool
	closed     bool
}

func (p *fakeProducer) TryProduce(ctx context.Context, r *kgo.Record, promise func(*kgo.Record, error)) {
	p.mu.Lock()
	p.records = append(p.records, r)
	err := p.produceErr
	p.mu.Unlock()
	promise(r, err)
}

func (p *fakeProducer) Flush(ctx context.Context) error {
	p.flushed = true
	return p.flushErr
}

func (p *fakeProducer) Close() { p.closed = true }

func TestBuildRecord(t *testing.T) {
	at := time.Date(2026, 10, 19, 20, 0, 0, 0, time.UTC)
	change := &service.Change{
		Type:    service.ChangeParticipantAssigned,
		EventID: "evt-1",
		Version: 7,
		Data:    service.SlotChange{SlotID: "tank-1", FilledSlots: 1, TotalSlots: 8},
		At:      at,
	}

	record, err := buildRecord("roster", change)
	require.NoError(t, err)
	assert.Equal(t, "roster", record.Topic)
	assert.Equal(t, []byte("evt-1"), record.Key)
	assert.Equal(t, at, record.Timestamp)
	assert.Equal(t, []kgo.RecordHeader{
		{Key: "change_type", Value: []byte("participant_assigned")},
		{Key: "version", Value: []byte("7")},
	}, record.Headers)

	var decoded map[string]interface{}
	require.NoError(t, json.Unmarshal(record.Value, &decoded))
	assert.Equal(t, "participant_assigned", decoded["type"])
	assert.Equal(t, float64(7), decoded["version"])
}

func TestKafkaChangeFeed_Emit(t *testing.T) {
	fake := &fakeProducer{}
	feed := newKafkaChangeFeed(fake, KafkaConfig{Topic: "roster"}, nil)

	require.NoError(t, feed.Emit(context.Background(), &service.Change{Type: service.ChangeHeartbeat, EventID: "evt-1"}))
	assert.Empty(t, fake.records)

	require.NoError(t, feed.Emit(context.Background(), &service.Change{Type: service.ChangeEventUpdated, EventID: "evt-1", Version: 2}))
	require.NoError(t, feed.Emit(context.Background(), &service.Change{Type: service.ChangeEventDeleted, EventID: "evt-1", Version: 2}))
	require.Len(t, fake.records, 2)
	assert.Equal(t, []byte("event_updated"), fake.records[0].Headers[0].Value)
	assert.Equal(t, []byte("event_deleted"), fake.records[1].Headers[0].Value)
}

func TestKafkaChangeFeed_DeliveryFailureIsNotReturned(t *testing.T) {
	fake := &fakeProducer{produceErr: errors.New("broker unavailable")}
	feed := newKafkaChangeFeed(fake, KafkaConfig{Topic: "roster"}, nil)

	err := feed.Emit(context.Background(), &service.Change{Type: service.ChangeEventUpdated, EventID: "evt-1"})
	assert.NoError(t, err)
}

func TestKafkaChangeFeed_FullBufferDropsWithoutBlocking(t *testing.T) {
	fake := &fakeProducer{produceErr: kgo.ErrMaxBuffered}
	feed := newKafkaChangeFeed(fake, KafkaConfig{Topic: "roster"}, nil)

	done := make(chan error, 1)
	go func() {
		done <- feed.Emit(context.Background(), &service.Change{Type: service.ChangeParticipantAssigned, EventID: "evt-1", Version: 3})
	}()

	select {
	case err := <-done:
		assert.NoError(t, err)
	case <-time.After(time.Second):
		t.Fatal("emit blocked on a full producer buffer")
	}
	assert.Len(t, fake.records, 1)
}

func TestKafkaChangeFeed_CloseFlushes(t *testing.T) {
	fake := &fakeProducer{flushErr: context.DeadlineExceeded}
	feed := newKafkaChangeFeed(fake, KafkaConfig{Topic: "roster"}, nil)

	err := feed.Close()
	assert.ErrorIs(t, err, context.DeadlineExceeded)
	assert.True(t, fake.flushed)
	assert.True(t, fake.closed)
}

func TestNewKafkaChangeFeed_RequiresBrokers(t *testing.T) {
	_, err := NewKafkaChangeFeed(context.Background(), KafkaConfig{}, nil)
	assert.Error(t, err)
}

var _ service.ChangeSink = (*KafkaChangeFeed)(nil)
