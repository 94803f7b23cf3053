package api

import (
	"papertrade/internal/repository"

	"github.com/gin-gonic/gin"
)

type ChatRequest struct {
	Messages    []repository.ChatMessage `json:"messages"`
	Model       string                   `json:"model"`
	Temperature float64                  `json:"temperature"`
	MaxTokens   int                      `json:"max_tokens"`
}

func (m ApiHandler) chat(c *gin.Context) {
	var requestBody ChatRequest
	if err := c.ShouldBindJSON(&requestBody); err != nil {
		returnErrorJsonCode(err, c, 400)
		return
	}

	result, err := m.GptRepository.Chat(
		c.Request.Context(),
		requestBody.Messages,
		requestBody.Model,
		requestBody.Temperature,
		requestBody.MaxTokens,
	)
	if err != nil {
		returnUpstreamErrorJson(err, c)
		return
	}

	c.JSON(200, result)
}
