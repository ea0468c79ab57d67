package observability

import (
	"bytes"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zapcore"

	"github.com/scoutflow/credverify/internal/config"
)

// testSyncer is an in-memory WriteSyncer for capturing log output.
type testSyncer struct {
	mu  sync.Mutex
	buf bytes.Buffer
}

func (s *testSyncer) Write(p []byte) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.buf.Write(p)
}

func (s *testSyncer) Sync() error { return nil }

func (s *testSyncer) String() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.buf.String()
}

func TestInitializeAndGetLogger(t *testing.T) {
	ResetForTest()
	t.Cleanup(ResetForTest)

	sink := &testSyncer{}
	Initialize(config.LoggerConfig{
		Level:       "debug",
		Format:      "console",
		ServiceName: "credverify-test",
	}, zapcore.Lock(sink))

	logger := GetLogger()
	require.NotNil(t, logger)

	logger.Info("hello from the test")
	assert.Contains(t, sink.String(), "hello from the test")
	assert.Contains(t, sink.String(), "credverify-test")
}

func TestInitializeOnlyOnce(t *testing.T) {
	ResetForTest()
	t.Cleanup(ResetForTest)

	first := &testSyncer{}
	second := &testSyncer{}
	Initialize(config.LoggerConfig{Level: "info", Format: "json", ServiceName: "one"}, zapcore.Lock(first))
	Initialize(config.LoggerConfig{Level: "info", Format: "json", ServiceName: "two"}, zapcore.Lock(second))

	GetLogger().Info("routed to the first sink")

	assert.Contains(t, first.String(), "routed to the first sink")
	assert.Empty(t, second.String())
}

func TestInvalidLevelFallsBackToInfo(t *testing.T) {
	ResetForTest()
	t.Cleanup(ResetForTest)

	sink := &testSyncer{}
	Initialize(config.LoggerConfig{Level: "not-a-level", Format: "json", ServiceName: "svc"}, zapcore.Lock(sink))

	GetLogger().Debug("should be filtered")
	GetLogger().Info("should appear")

	out := sink.String()
	assert.NotContains(t, out, "should be filtered")
	assert.Contains(t, out, "should appear")
}

func TestGetLoggerBeforeInitialize(t *testing.T) {
	ResetForTest()
	t.Cleanup(ResetForTest)

	// Must never return nil, even uninitialized.
	assert.NotNil(t, GetLogger())
}
