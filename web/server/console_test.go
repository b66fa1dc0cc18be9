package server

import (
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/df07/go-render-inspector/pkg/core"
)

var _ core.Logger = (*Console)(nil)

type recordingLogger struct {
	lines []string
}

func (l *recordingLogger) Printf(format string, args ...interface{}) {
	l.lines = append(l.lines, fmt.Sprintf(format, args...))
}

func TestConsole_RetainsMessages(t *testing.T) {
	cs := NewConsole(nil, 10)

	cs.Printf("loading %s with %d triangles...\n", "dragon.ply", 12345)
	cs.Printf("rendered %dx%d in %s\n", 256, 256, "1.2s")

	msgs := cs.Messages()
	require.Len(t, msgs, 2)
	assert.Equal(t, "loading dragon.ply with 12345 triangles...", msgs[0].Message)
	assert.Equal(t, "rendered 256x256 in 1.2s", msgs[1].Message)
	assert.Equal(t, "info", msgs[0].Level)
	assert.WithinDuration(t, time.Now(), msgs[0].Timestamp, time.Second)
}

func TestConsole_CapacityEviction(t *testing.T) {
	cs := NewConsole(nil, 3)
	for i := 1; i <= 5; i++ {
		cs.Printf("message %d", i)
	}

	msgs := cs.Messages()
	require.Len(t, msgs, 3)
	assert.Equal(t, "message 3", msgs[0].Message)
	assert.Equal(t, "message 5", msgs[2].Message)
}

func TestConsole_ForwardsToNext(t *testing.T) {
	next := &recordingLogger{}
	cs := NewConsole(next, 10)

	cs.Printf("pass %d/%d\n", 2, 7)

	require.Len(t, next.lines, 1)
	assert.Equal(t, "pass 2/7\n", next.lines[0], "forwarded lines keep their formatting")
}

func TestConsole_BlankLinesNotRetained(t *testing.T) {
	cs := NewConsole(nil, 10)
	cs.Printf("\n")
	cs.Printf("")
	assert.Empty(t, cs.Messages())
}

func TestConsole_ConcurrentPrintf(t *testing.T) {
	cs := NewConsole(nil, 64)

	var wg sync.WaitGroup
	for g := 0; g < 8; g++ {
		wg.Add(1)
		go func(g int) {
			defer wg.Done()
			for i := 0; i < 8; i++ {
				cs.Printf("worker %d line %d", g, i)
			}
		}(g)
	}
	wg.Wait()

	assert.Len(t, cs.Messages(), 64)
}
