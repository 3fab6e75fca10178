// channel.go

package ws

import (
	"fmt"
	"sync"
	"time"

	"github.com/gorilla/websocket"
)

const (
	// 写入超时时间
	writeWait = 10 * time.Second

	// 读取超时时间
	pongWait = 60 * time.Second

	// 发送 ping 的间隔时间
	pingPeriod = (pongWait * 9) / 10

	// 最大消息大小
	maxMessageSize = 64 * 1024 // 64KB

	// 发送缓冲区大小
	sendBufferSize = 256
)

// Channel 客户端双向通道抽象
// 真实连接由WSChannel实现，机器人使用VirtualChannel静默吞掉出站消息。
type Channel interface {
	Send(data []byte) error
	Receive() ([]byte, error)
	Close() error
	IsClosed() bool
}

// WSChannel 基于gorilla/websocket的通道实现
type WSChannel struct {
	conn *websocket.Conn
	send chan []byte

	closeOnce sync.Once
	closed    chan struct{}
}

// NewWSChannel 包装一个已升级的WebSocket连接并启动写协程
func NewWSChannel(conn *websocket.Conn) *WSChannel {
	ch := &WSChannel{
		conn:   conn,
		send:   make(chan []byte, sendBufferSize),
		closed: make(chan struct{}),
	}

	conn.SetReadLimit(maxMessageSize)
	conn.SetReadDeadline(time.Now().Add(pongWait))
	conn.SetPongHandler(func(string) error {
		conn.SetReadDeadline(time.Now().Add(pongWait))
		return nil
	})

	go ch.writePump()
	return ch
}

// Send 将消息放入发送队列
func (c *WSChannel) Send(data []byte) error {
	select {
	case <-c.closed:
		return fmt.Errorf("通道已关闭")
	default:
	}

	select {
	case c.send <- data:
		return nil
	default:
		return fmt.Errorf("发送缓冲区已满")
	}
}

// Receive 阻塞读取下一条消息
func (c *WSChannel) Receive() ([]byte, error) {
	_, data, err := c.conn.ReadMessage()
	if err != nil {
		return nil, err
	}
	return data, nil
}

// Close 关闭通道，可重复调用
func (c *WSChannel) Close() error {
	c.closeOnce.Do(func() {
		close(c.closed)
		c.conn.WriteControl(websocket.CloseMessage,
			websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""),
			time.Now().Add(writeWait))
		c.conn.Close()
	})
	return nil
}

// IsClosed 通道是否已关闭
func (c *WSChannel) IsClosed() bool {
	select {
	case <-c.closed:
		return true
	default:
		return false
	}
}

// writePump 向WebSocket写入数据
func (c *WSChannel) writePump() {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		c.Close()
	}()

	for {
		select {
		case data := <-c.send:
			c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.conn.WriteMessage(websocket.TextMessage, data); err != nil {
				return
			}
		case <-ticker.C:
			c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		case <-c.closed:
			return
		}
	}
}

// VirtualChannel 机器人占位通道，出站消息被静默丢弃
type VirtualChannel struct {
	mu     sync.Mutex
	closed bool
	// Receive在关闭前一直阻塞
	done chan struct{}
}

// NewVirtualChannel 创建机器人占位通道
func NewVirtualChannel() *VirtualChannel {
	return &VirtualChannel{done: make(chan struct{})}
}

// Send 丢弃消息
func (c *VirtualChannel) Send(data []byte) error {
	if c.IsClosed() {
		return fmt.Errorf("通道已关闭")
	}
	return nil
}

// Receive 阻塞到通道关闭
func (c *VirtualChannel) Receive() ([]byte, error) {
	<-c.done
	return nil, fmt.Errorf("通道已关闭")
}

// Close 关闭通道
func (c *VirtualChannel) Close() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if !c.closed {
		c.closed = true
		close(c.done)
	}
	return nil
}

// IsClosed 通道是否已关闭
func (c *VirtualChannel) IsClosed() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.closed
}
