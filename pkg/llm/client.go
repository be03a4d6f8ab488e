// Package llm wraps the streaming chat call to the external reasoning
// backend. The wire method name and chunk shape mirror a thinking-model
// gRPC service; request/response payloads are carried as
// google.protobuf.Struct so the client needs no generated stubs for a
// .proto this retrieval doesn't carry.
package llm

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"strconv"

	"google.golang.org/grpc"
	"google.golang.org/grpc/credentials/insecure"
	"google.golang.org/protobuf/types/known/structpb"
)

const generateMethod = "/reasoner.llm.LLMService/GenerateWithThinking"

// Client streams chat completions from a gRPC-reachable LLM backend.
type Client struct {
	conn        *grpc.ClientConn
	model       string
	temperature *float32
	maxTokens   *int32
	log         *slog.Logger
}

// NewClient dials addr and configures the model from environment
// variables, matching the backend's own configuration surface.
func NewClient(addr string, log *slog.Logger) (*Client, error) {
	conn, err := grpc.NewClient(addr, grpc.WithTransportCredentials(insecure.NewCredentials()))
	if err != nil {
		return nil, fmt.Errorf("dialing LLM backend: %w", err)
	}

	model := os.Getenv("REASONER_LLM_MODEL")
	if model == "" {
		model = "gemini-2.0-flash-thinking-exp-01-21"
	}

	var temperature *float32
	if v := os.Getenv("REASONER_LLM_TEMPERATURE"); v != "" {
		if t, err := strconv.ParseFloat(v, 32); err == nil {
			t32 := float32(t)
			temperature = &t32
		}
	}

	var maxTokens *int32
	if v := os.Getenv("REASONER_LLM_MAX_TOKENS"); v != "" {
		if m, err := strconv.ParseInt(v, 10, 32); err == nil {
			m32 := int32(m)
			maxTokens = &m32
		}
	}

	if log != nil {
		log.Info("llm client configured", "model", model)
	}

	return &Client{conn: conn, model: model, temperature: temperature, maxTokens: maxTokens, log: log}, nil
}

// Close releases the gRPC connection.
func (c *Client) Close() error {
	return c.conn.Close()
}

func requestToStruct(req Request, model string, temperature *float32, maxTokens *int32) (*structpb.Struct, error) {
	messages := make([]any, len(req.Messages))
	for i, m := range req.Messages {
		messages[i] = map[string]any{"role": string(m.Role), "content": m.Content}
	}
	payload := map[string]any{
		"session_id": req.SessionID,
		"messages":   messages,
		"model":      model,
	}
	if temperature != nil {
		payload["temperature"] = float64(*temperature)
	}
	if maxTokens != nil {
		payload["max_tokens"] = float64(*maxTokens)
	}
	return structpb.NewStruct(payload)
}

func structToChunk(s *structpb.Struct) StreamChunk {
	fields := s.AsMap()
	chunk := StreamChunk{}
	if v, ok := fields["content"].(string); ok {
		chunk.Content = v
	}
	if v, ok := fields["is_thinking"].(bool); ok {
		chunk.IsThinking = v
	}
	if v, ok := fields["is_complete"].(bool); ok {
		chunk.IsComplete = v
	}
	if v, ok := fields["is_final"].(bool); ok {
		chunk.IsFinal = v
	}
	if v, ok := fields["error"].(string); ok {
		chunk.Error = v
	}
	return chunk
}

// Stream opens a server-streaming call and bridges received chunks onto
// a buffered channel, the same channel-pair shape the backend's own
// streaming clients use.
func (c *Client) Stream(ctx context.Context, req Request) (<-chan StreamChunk, <-chan error) {
	chunks := make(chan StreamChunk, 100)
	errs := make(chan error, 1)

	go func() {
		defer close(chunks)
		defer close(errs)

		reqStruct, err := requestToStruct(req, c.model, c.temperature, c.maxTokens)
		if err != nil {
			errs <- fmt.Errorf("encoding llm request: %w", err)
			return
		}

		stream, err := c.conn.NewStream(ctx, &grpc.StreamDesc{ServerStreams: true}, generateMethod)
		if err != nil {
			errs <- fmt.Errorf("opening llm stream: %w", err)
			return
		}
		if err := stream.SendMsg(reqStruct); err != nil {
			errs <- fmt.Errorf("sending llm request: %w", err)
			return
		}
		if err := stream.CloseSend(); err != nil {
			errs <- fmt.Errorf("closing llm send: %w", err)
			return
		}

		if c.log != nil {
			c.log.Info("llm stream started", "session_id", req.SessionID)
		}

		for {
			respStruct := &structpb.Struct{}
			err := stream.RecvMsg(respStruct)
			if err == io.EOF {
				return
			}
			if err != nil {
				errs <- fmt.Errorf("llm stream recv: %w", err)
				return
			}

			chunk := structToChunk(respStruct)
			select {
			case chunks <- chunk:
			case <-ctx.Done():
				return
			}
			if chunk.IsFinal {
				return
			}
		}
	}()

	return chunks, errs
}
