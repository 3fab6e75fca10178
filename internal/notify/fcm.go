// fcm.go

package notify

import (
	"bytes"
	"encoding/json"
	"fmt"
	"log"
	"net/http"
	"time"

	"github.com/jacl-coder/WordDuel-Server/config"
)

// Notifier 推送通知发送方
type Notifier interface {
	// Notify 向指定设备发送一条通知
	Notify(deviceToken, title, body string, data map[string]string) error
}

// FCMNotifier 基于FCM旧版HTTP接口的推送实现
type FCMNotifier struct {
	serverKey string
	endpoint  string
	client    *http.Client
}

// NewFCMNotifier 创建FCM推送客户端，未启用时返回nil
func NewFCMNotifier(cfg *config.FCMConfig) *FCMNotifier {
	if !cfg.Enabled || cfg.ServerKey == "" {
		return nil
	}
	endpoint := cfg.Endpoint
	if endpoint == "" {
		endpoint = "https://fcm.googleapis.com/fcm/send"
	}
	return &FCMNotifier{
		serverKey: cfg.ServerKey,
		endpoint:  endpoint,
		client:    &http.Client{Timeout: 5 * time.Second},
	}
}

// fcmMessage FCM请求体
type fcmMessage struct {
	To           string            `json:"to"`
	Notification fcmNotification   `json:"notification"`
	Data         map[string]string `json:"data,omitempty"`
}

// fcmNotification 通知内容
type fcmNotification struct {
	Title string `json:"title"`
	Body  string `json:"body"`
}

// Notify 发送一条推送通知
func (n *FCMNotifier) Notify(deviceToken, title, body string, data map[string]string) error {
	msg := fcmMessage{
		To:           deviceToken,
		Notification: fcmNotification{Title: title, Body: body},
		Data:         data,
	}

	payload, err := json.Marshal(msg)
	if err != nil {
		return err
	}

	req, err := http.NewRequest(http.MethodPost, n.endpoint, bytes.NewReader(payload))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "key="+n.serverKey)

	resp, err := n.client.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("FCM返回状态码 %d", resp.StatusCode)
	}
	return nil
}

// NotifyAsync 异步发送，失败只记录日志
// 对局流程不因推送失败而受影响。
func NotifyAsync(n Notifier, deviceToken, title, body string, data map[string]string) {
	if n == nil || deviceToken == "" {
		return
	}
	go func() {
		if err := n.Notify(deviceToken, title, body, data); err != nil {
			log.Printf("推送通知失败: %v", err)
		}
	}()
}
