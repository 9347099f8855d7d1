package llm

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"counto/pkg/config"

	"github.com/Role1776/gigago"
	"go.uber.org/zap"
)

type GigaChatProvider struct {
	client    *gigago.Client
	modelName string
	logger    *zap.Logger
}

func NewGigaChatProvider(ctx context.Context, cfg *config.GigaChatConfig, logger *zap.Logger) (*GigaChatProvider, error) {
	if cfg.APIKey == "" {
		return nil, errors.New("GIGACHAT_API_KEY is not set")
	}

	opts := []gigago.Option{
		gigago.WithCustomScope(cfg.Scope),
	}
	if cfg.InsecureSkipVerify {
		opts = append(opts, gigago.WithCustomInsecureSkipVerify(true))
		logger.Warn("GigaChat TLS certificate verification is disabled")
	}

	client, err := gigago.NewClient(ctx, cfg.APIKey, opts...)
	if err != nil {
		return nil, fmt.Errorf("failed to create GigaChat client: %w", err)
	}

	logger.Info("Using GigaChat model", zap.String("model", cfg.Model))
	return &GigaChatProvider{
		client:    client,
		modelName: cfg.Model,
		logger:    logger,
	}, nil
}

func (p *GigaChatProvider) Name() string { return "gigachat" }

func (p *GigaChatProvider) Complete(ctx context.Context, system, prompt string) (string, error) {
	// the model carries the system instruction, so build one per call
	model := p.client.GenerativeModel(p.modelName)
	model.SystemInstruction = system
	model.Temperature = 0.2

	resp, err := model.Generate(ctx, []gigago.Message{
		{Role: gigago.RoleUser, Content: prompt},
	})
	if err != nil {
		return "", fmt.Errorf("failed to generate response: %w", err)
	}
	if len(resp.Choices) == 0 {
		return "", errors.New("no response from GigaChat")
	}
	return strings.TrimSpace(resp.Choices[0].Message.Content), nil
}

func (p *GigaChatProvider) Close() error {
	if p.client != nil {
		p.client.Close()
	}
	return nil
}
