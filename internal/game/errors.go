// errors.go

package game

import (
	"errors"
	"fmt"
)

// GameError 带客户端可见消息的游戏错误
// Message用于下发给客户端，内部细节只进日志。
type GameError struct {
	Code    string
	Message string
}

// Error 实现error接口
func (e *GameError) Error() string {
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

// newGameError 创建游戏错误
func newGameError(code, message string) *GameError {
	return &GameError{Code: code, Message: message}
}

// ClientMessage 提取错误中适合下发客户端的消息
// 非GameError时返回通用提示，不泄漏内部细节。
func ClientMessage(err error) string {
	var gameErr *GameError
	if errors.As(err, &gameErr) {
		return gameErr.Message
	}
	return "Internal error"
}
