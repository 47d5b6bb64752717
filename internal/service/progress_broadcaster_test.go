package service

import (
	"context"
	"encoding/json"
	"sync"
	"testing"
	"time"

	"winnow-be/internal/pkg/logger"
	"winnow-be/pkg/events"
	"winnow-be/pkg/staging"

	"github.com/ThreeDotsLabs/watermill"
	"github.com/ThreeDotsLabs/watermill/pubsub/gochannel"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type collectingSink struct {
	mu       sync.Mutex
	messages [][]byte
}

func (s *collectingSink) Broadcast(data []byte) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.messages = append(s.messages, data)
}

func (s *collectingSink) snapshot() [][]byte {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([][]byte{}, s.messages...)
}

func TestProgressEventsReachSink(t *testing.T) {
	pubSub := gochannel.NewGoChannel(gochannel.Config{}, watermill.NopLogger{})
	t.Cleanup(func() { _ = pubSub.Close() })

	ctx, cancel := context.WithCancel(context.Background())
	t.Cleanup(cancel)

	sink := &collectingSink{}
	require.NoError(t, NewProgressBroadcaster(pubSub, events.TopicRunProgress, sink, logger.NewNopLogger()).Consume(ctx))

	publisher := NewPublisherService(events.TopicRunProgress, pubSub)
	require.NoError(t, publisher.Publish(events.NewRunProgressEvent(staging.Progress{RunId: "r1", Total: 40, Status: staging.StatusRunning})))
	require.NoError(t, publisher.Publish(events.NewRunProgressEvent(staging.Progress{RunId: "r1", Total: 100, Status: staging.StatusSucceeded})))

	require.Eventually(t, func() bool { return len(sink.snapshot()) == 2 }, time.Second, 5*time.Millisecond)

	var first, last events.Envelope
	msgs := sink.snapshot()
	require.NoError(t, json.Unmarshal(msgs[0], &first))
	require.NoError(t, json.Unmarshal(msgs[1], &last))
	assert.Equal(t, events.TypeRunProgress, first.Type)
	assert.Equal(t, events.TypeRunFinished, last.Type)

	progress := last.Data["progress"].(map[string]interface{})
	assert.EqualValues(t, 100, progress["total"])
	assert.Equal(t, "succeeded", progress["status"])
}
