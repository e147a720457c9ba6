package handler

import (
	"context"
	"encoding/json"
	"net/http"
	"sync"

	"github.com/gorilla/websocket"
	"github.com/sysu-ecnc-dev/calendar-optimizer/backend/internal/domain"
)

var upgrader = websocket.Upgrader{
	CheckOrigin: func(r *http.Request) bool {
		// 前端和后端不同源，这里放开检查，由部署层负责限制来源
		return true
	},
}

// liveRun 表示一个正在运行的优化任务的实时状态
type liveRun struct {
	cancel context.CancelFunc

	mu          sync.Mutex
	closed      bool
	subscribers map[*websocket.Conn]bool
}

func newLiveRun(cancel context.CancelFunc) *liveRun {
	return &liveRun{
		cancel:      cancel,
		subscribers: make(map[*websocket.Conn]bool),
	}
}

// subscribe 注册一个订阅者
// 任务可能在查到 liveRun 之后、订阅之前恰好结束，此时返回 false，
// 订阅者应该按任务已结束处理，否则连接会一直挂在一个没人再广播的 liveRun 上
func (l *liveRun) subscribe(conn *websocket.Conn) bool {
	l.mu.Lock()
	defer l.mu.Unlock()

	if l.closed {
		return false
	}
	l.subscribers[conn] = true
	return true
}

func (l *liveRun) unsubscribe(conn *websocket.Conn) {
	l.mu.Lock()
	defer l.mu.Unlock()
	delete(l.subscribers, conn)
}

// broadcast 把进度推送给所有订阅者，写失败的连接直接关掉并移除
func (l *liveRun) broadcast(v any) {
	body, err := json.Marshal(v)
	if err != nil {
		return
	}

	l.mu.Lock()
	defer l.mu.Unlock()

	for conn := range l.subscribers {
		if err := conn.WriteMessage(websocket.TextMessage, body); err != nil {
			conn.Close()
			delete(l.subscribers, conn)
		}
	}
}

// closeAll 在任务结束时关闭所有订阅连接，之后的订阅请求会被拒绝
func (l *liveRun) closeAll() {
	l.mu.Lock()
	defer l.mu.Unlock()

	l.closed = true
	for conn := range l.subscribers {
		conn.Close()
		delete(l.subscribers, conn)
	}
}

// StreamOptimizationRunProgress 通过 websocket 向订阅者实时推送每一代的进度
func (h *Handler) StreamOptimizationRunProgress(w http.ResponseWriter, r *http.Request) {
	run := r.Context().Value(OptimizationRunCtx).(*domain.OptimizationRun)

	h.runsMu.Lock()
	live, exists := h.liveRuns[run.ID]
	h.runsMu.Unlock()

	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		h.errorResponse(w, r, "websocket 升级失败")
		return
	}

	if !exists || !live.subscribe(conn) {
		// 任务已经结束（或恰好在订阅前结束），把最终状态发给客户端然后关闭连接
		if latest, err := h.repository.GetOptimizationRunByID(run.ID); err == nil {
			run = latest
		}
		body, err := json.Marshal(run)
		if err == nil {
			_ = conn.WriteMessage(websocket.TextMessage, body)
		}
		conn.Close()
		return
	}

	// 阻塞读保持连接存活，客户端断开时清理
	for {
		if _, _, err := conn.ReadMessage(); err != nil {
			break
		}
	}

	live.unsubscribe(conn)
	conn.Close()
}
