package services

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/sashabaranov/go-openai"
)

type AIService struct {
	client *openai.Client
}

type SuggestedRole struct {
	Name              string  `json:"name"`
	Description       string  `json:"description"`
	EstimatedValue    float64 `json:"estimated_value"`
	EstimatedUnit     string  `json:"estimated_unit"`
	SuggestedPosition int     `json:"suggested_position"`
}

func NewAIService(apiKey string) *AIService {
	return &AIService{
		client: openai.NewClient(apiKey),
	}
}

// SuggestWorkflowRoles asks GPT for an ordered workflow role sequence that
// fits a project description
func (s *AIService) SuggestWorkflowRoles(ctx context.Context, description string) ([]SuggestedRole, error) {
	if s.client == nil {
		return nil, fmt.Errorf("OpenAI client not initialized")
	}

	prompt := fmt.Sprintf(`You are a project planning assistant. Suggest a sequential workflow of roles for the following project. Each role is one stage of work handed off to the next.

Project description:
%s

Return a JSON array of suggested roles:
[
  {
    "name": "short role name",
    "description": "what this stage produces",
    "estimated_value": 3,
    "estimated_unit": "days",
    "suggested_position": 1
  }
]

Rules:
- estimated_unit must be one of: minutes, hours, days, weeks
- suggested_position starts at 1 and follows the handoff order
- Suggest at most 10 roles
- Return only JSON, no explanation`, description)

	resp, err := s.client.CreateChatCompletion(
		ctx,
		openai.ChatCompletionRequest{
			Model: openai.GPT4o,
			Messages: []openai.ChatCompletionMessage{
				{
					Role:    openai.ChatMessageRoleUser,
					Content: prompt,
				},
			},
			Temperature: 0.3,
		},
	)

	if err != nil {
		return nil, fmt.Errorf("OpenAI API error: %w", err)
	}

	if len(resp.Choices) == 0 {
		return nil, fmt.Errorf("no response from OpenAI")
	}

	content := resp.Choices[0].Message.Content

	var roles []SuggestedRole
	if err := json.Unmarshal([]byte(content), &roles); err != nil {
		return nil, fmt.Errorf("failed to parse AI response: %w (response: %s)", err, content)
	}

	return roles, nil
}
