// service.go

package ai

import (
	"bytes"
	"encoding/json"
	"fmt"
	"log"
	"net/http"
	"regexp"
	"strings"
	"time"

	"github.com/jacl-coder/WordDuel-Server/config"
	"github.com/jacl-coder/WordDuel-Server/internal/models"
)

// 合法单词：3到12个英文字母
var wordPattern = regexp.MustCompile(`^[a-zA-Z]{3,12}$`)

// 不提供释义的单词
var bannedWords = map[string]bool{
	"fuck": true, "shit": true, "cunt": true, "bitch": true,
}

// Service 词义生成服务客户端
type Service struct {
	apiKey  string
	apiURL  string
	model   string
	timeout time.Duration
	client  *http.Client
}

// NewService 根据配置创建词义服务客户端
func NewService(cfg *config.AIConfig) *Service {
	timeout := time.Duration(cfg.Timeout) * time.Second
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	return &Service{
		apiKey:  cfg.APIKey,
		apiURL:  cfg.APIURL,
		model:   cfg.Model,
		timeout: timeout,
		client:  &http.Client{Timeout: timeout},
	}
}

// Enabled 是否已配置可用
func (s *Service) Enabled() bool {
	return s.apiKey != "" && s.apiURL != ""
}

// generatePart 生成接口的文本片段
type generatePart struct {
	Text string `json:"text"`
}

// generateContent 生成接口的内容块
type generateContent struct {
	Parts []generatePart `json:"parts"`
}

// generateRequest 上游生成接口的请求体
type generateRequest struct {
	Contents []generateContent `json:"contents"`
}

// generateResponse 上游生成接口的响应体
type generateResponse struct {
	Candidates []struct {
		Content generateContent `json:"content"`
	} `json:"candidates"`
}

// GetWordMeaning 获取单词释义
// 服务不可用或单词非法时返回带错误说明的结果，不返回error，
// 调用方可以直接把结果下发给客户端。
func (s *Service) GetWordMeaning(word string) *models.WordDefinition {
	word = strings.ToLower(strings.TrimSpace(word))

	if !wordPattern.MatchString(word) {
		return &models.WordDefinition{
			Word:  word,
			Valid: false,
			Error: "invalid word",
		}
	}
	if bannedWords[word] {
		return &models.WordDefinition{
			Word:  word,
			Valid: false,
			Error: "word not available",
		}
	}
	if !s.Enabled() {
		return &models.WordDefinition{
			Word:  word,
			Valid: false,
			Error: "definition service unavailable",
		}
	}

	result, err := s.requestDefinition(word)
	if err != nil {
		log.Printf("词义服务请求失败: %v", err)
		return &models.WordDefinition{
			Word:  word,
			Valid: false,
			Error: "definition service unavailable",
		}
	}
	return result
}

// requestDefinition 调用上游模型生成释义
func (s *Service) requestDefinition(word string) (*models.WordDefinition, error) {
	req := generateRequest{
		Contents: []generateContent{
			{Parts: []generatePart{{Text: buildPrompt(word)}}},
		},
	}

	body, err := json.Marshal(req)
	if err != nil {
		return nil, err
	}

	url := fmt.Sprintf("%s/%s:generateContent?key=%s", s.apiURL, s.model, s.apiKey)
	resp, err := s.client.Post(url, "application/json", bytes.NewReader(body))
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("词义服务返回状态码 %d", resp.StatusCode)
	}

	var gen generateResponse
	if err := json.NewDecoder(resp.Body).Decode(&gen); err != nil {
		return nil, err
	}
	if len(gen.Candidates) == 0 || len(gen.Candidates[0].Content.Parts) == 0 {
		return nil, fmt.Errorf("词义服务响应为空")
	}

	return parseDefinition(word, gen.Candidates[0].Content.Parts[0].Text)
}

// buildPrompt 构造释义生成提示词
func buildPrompt(word string) string {
	return fmt.Sprintf(`Provide up to 3 dictionary definitions for the English word "%s".
Respond with JSON only, in this exact shape:
{"valid": true, "definitions": [{"part_of_speech": "...", "meaning": "...", "example": "..."}]}
If "%s" is not a real English word, respond with {"valid": false, "definitions": []}.`, word, word)
}

// parseDefinition 解析模型输出
// 模型偶尔会把JSON包在Markdown代码块里，先剥掉围栏再解析。
func parseDefinition(word, text string) (*models.WordDefinition, error) {
	text = strings.TrimSpace(text)
	text = strings.TrimPrefix(text, "```json")
	text = strings.TrimPrefix(text, "```")
	text = strings.TrimSuffix(text, "```")
	text = strings.TrimSpace(text)

	var parsed struct {
		Valid       bool                `json:"valid"`
		Definitions []models.Definition `json:"definitions"`
	}
	if err := json.Unmarshal([]byte(text), &parsed); err != nil {
		return nil, fmt.Errorf("解析词义响应失败: %w", err)
	}

	// 最多保留3条释义
	if len(parsed.Definitions) > 3 {
		parsed.Definitions = parsed.Definitions[:3]
	}

	return &models.WordDefinition{
		Word:        word,
		Valid:       parsed.Valid,
		Definitions: parsed.Definitions,
	}, nil
}
