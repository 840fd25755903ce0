package services

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestNewAIServiceWithoutKey(t *testing.T) {
	assert.Nil(t, NewAIService(""))
	assert.NotNil(t, NewAIService("sk-test"))
}

// A nil service is a valid receiver; callers wire it straight through
// without checking whether AI was configured.
func TestGenerateTasksUnconfigured(t *testing.T) {
	var svc *AIService

	tasks, err := svc.GenerateTasks(context.Background(), "build the thing")
	assert.ErrorIs(t, err, ErrAIServiceNotConfigured)
	assert.Nil(t, tasks)
}
