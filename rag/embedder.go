/*
 * Copyright (C) 2025 Nethesis S.r.l.
 * SPDX-License-Identifier: GPL-3.0-or-later
 */

package rag

import (
	"context"
	"fmt"

	"github.com/pkg/errors"
	openai "github.com/sashabaranov/go-openai"
)

// Embedder turns texts into vectors, one per input and in input order.
type Embedder interface {
	Embed(ctx context.Context, inputs []string) ([][]float32, error)
}

// OpenAIEmbedder calls an OpenAI-compatible embeddings endpoint.
type OpenAIEmbedder struct {
	client *openai.Client
	model  openai.EmbeddingModel
}

func NewOpenAIEmbedder(baseURL, apiKey, model string) *OpenAIEmbedder {
	config := openai.DefaultConfig(apiKey)
	if baseURL != "" {
		config.BaseURL = baseURL
	}
	return &OpenAIEmbedder{
		client: openai.NewClientWithConfig(config),
		model:  openai.EmbeddingModel(model),
	}
}

func (e *OpenAIEmbedder) Embed(ctx context.Context, inputs []string) ([][]float32, error) {
	if len(inputs) == 0 {
		return nil, nil
	}

	response, err := e.client.CreateEmbeddings(ctx, openai.EmbeddingRequest{
		Input: inputs,
		Model: e.model,
	})
	if err != nil {
		return nil, errors.Wrap(err, "create embeddings")
	}
	if len(response.Data) != len(inputs) {
		return nil, fmt.Errorf("embeddings provider returned %d vectors for %d inputs", len(response.Data), len(inputs))
	}

	vectors := make([][]float32, len(inputs))
	for _, embedding := range response.Data {
		if embedding.Index < 0 || embedding.Index >= len(inputs) {
			return nil, fmt.Errorf("embedding index %d out of range", embedding.Index)
		}
		vectors[embedding.Index] = embedding.Embedding
	}
	return vectors, nil
}
