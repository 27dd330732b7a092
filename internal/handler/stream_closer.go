package handler

import "sync"

// StreamCloser はサーバー停止時に開いているSSEストリームを終了させる。
// http.Server.RegisterOnShutdownにCloseを登録して使う。
type StreamCloser struct {
	once sync.Once
	done chan struct{}
}

// NewStreamCloser はStreamCloserを生成する。
func NewStreamCloser() *StreamCloser {
	return &StreamCloser{done: make(chan struct{})}
}

// Close はすべてのストリームに終了を通知する。複数回呼んでもよい。
func (c *StreamCloser) Close() {
	c.once.Do(func() { close(c.done) })
}

// Done はClose後に閉じられるチャネルを返す。
func (c *StreamCloser) Done() <-chan struct{} {
	return c.done
}
