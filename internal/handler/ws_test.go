package handler

import (
	"testing"

	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/require"
)

func TestLiveRun_SubscribeAfterCloseIsRejected(t *testing.T) {
	cancelled := false
	live := newLiveRun(func() { cancelled = true })

	conn := &websocket.Conn{}
	require.True(t, live.subscribe(conn))
	live.unsubscribe(conn)

	// 任务结束后 closeAll 会清空订阅者并拒绝后续的订阅
	live.closeAll()
	require.False(t, live.subscribe(conn))
	require.Empty(t, live.subscribers)

	live.cancel()
	require.True(t, cancelled)
}
