// Reelcast - Video Platform Recommendation and Moderation Backend
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/reelcast

package moderation

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/goccy/go-json"
	ollama "github.com/ollama/ollama/api"
	"github.com/rs/zerolog"

	"github.com/tomtom215/reelcast/internal/metrics"
	"github.com/tomtom215/reelcast/internal/models"
)

// LabelOK is the only label that approves a comment.
const LabelOK = "OK"

// CommentLabels is the label set of the comment classifier, in tie-break order.
var CommentLabels = []string{"OK", "H", "H2", "HR", "S", "S3", "SH", "V", "V2"}

var labelDescriptions = map[string]string{
	"OK": "acceptable, not offensive",
	"H":  "hate",
	"H2": "hate or threatening",
	"HR": "harassment",
	"S":  "sexual",
	"S3": "sexual content involving minors",
	"SH": "self-harm",
	"V":  "violence",
	"V2": "graphic violence",
}

// Generator is the subset of the Ollama client used here. *ollama.Client implements it.
type Generator interface {
	Generate(ctx context.Context, req *ollama.GenerateRequest, fn ollama.GenerateResponseFunc) error
}

// TextClassifier scores comments with an Ollama model that returns a
// probability per label. The comment is approved iff OK has the highest
// probability.
type TextClassifier struct {
	gen     Generator
	model   string
	timeout time.Duration
	logger  zerolog.Logger
}

// NewTextClassifier creates a TextClassifier for model.
//
//nolint:gocritic // zerolog.Logger is designed to be passed by value
func NewTextClassifier(gen Generator, model string, timeout time.Duration, logger zerolog.Logger) *TextClassifier {
	return &TextClassifier{
		gen:     gen,
		model:   model,
		timeout: timeout,
		logger:  logger.With().Str("component", "text_classifier").Str("model", model).Logger(),
	}
}

// Classify implements Classifier.
func (c *TextClassifier) Classify(ctx context.Context, p Payload) (Verdict, error) {
	if strings.TrimSpace(p.Text) == "" {
		return Verdict{}, ErrNoPayload
	}

	if c.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, c.timeout)
		defer cancel()
	}

	stream := false
	var out strings.Builder
	err := c.gen.Generate(ctx, &ollama.GenerateRequest{
		Model:  c.model,
		System: textSystemPrompt(),
		Prompt: p.Text,
		Format: labelSchema,
		Stream: &stream,
		Options: map[string]interface{}{
			"temperature": 0,
		},
	}, func(res ollama.GenerateResponse) error {
		out.WriteString(res.Response)
		return nil
	})
	metrics.RecordClassifierCall("ollama_text", err)
	if err != nil {
		return Verdict{}, classifierError("ollama generate", err)
	}

	dist, err := ParseLabelDistribution(out.String())
	if err != nil {
		c.logger.Debug().Str("comment_id", p.ID).Str("response", out.String()).Msg("Unparseable classifier response")
		return Verdict{}, classifierError("parse labels", err)
	}
	return VerdictFromLabels(dist), nil
}

func textSystemPrompt() string {
	var b strings.Builder
	b.WriteString("You moderate comments on a video platform. Rate the user's comment against each label ")
	b.WriteString("and answer with a JSON object mapping every label to a probability between 0 and 1. ")
	b.WriteString("The probabilities must sum to 1.\n\nLabels:\n")
	for _, l := range CommentLabels {
		fmt.Fprintf(&b, "- %s: %s\n", l, labelDescriptions[l])
	}
	return b.String()
}

// labelSchema constrains the model output to one number per label.
var labelSchema = func() []byte {
	props := make(map[string]any, len(CommentLabels))
	for _, l := range CommentLabels {
		props[l] = map[string]string{"type": "number"}
	}
	schema, err := json.Marshal(map[string]any{
		"type":       "object",
		"properties": props,
		"required":   CommentLabels,
	})
	if err != nil {
		panic(err)
	}
	return schema
}()

// ParseLabelDistribution extracts the label probabilities from a model
// response. Unknown labels are dropped and the rest renormalized to sum to 1.
func ParseLabelDistribution(response string) (map[string]float64, error) {
	start, end := strings.Index(response, "{"), strings.LastIndex(response, "}")
	if start < 0 || end < start {
		return nil, errors.New("no JSON object in response")
	}

	var raw map[string]float64
	if err := json.Unmarshal([]byte(response[start:end+1]), &raw); err != nil {
		return nil, fmt.Errorf("decode labels: %w", err)
	}

	dist := make(map[string]float64, len(CommentLabels))
	var sum float64
	for _, l := range CommentLabels {
		v, ok := raw[l]
		if !ok {
			continue
		}
		if v < 0 {
			return nil, fmt.Errorf("label %s has negative probability %v", l, v)
		}
		dist[l] = v
		sum += v
	}
	if sum == 0 {
		return nil, errors.New("response has no positive label probability")
	}
	for l := range dist {
		dist[l] /= sum
	}
	return dist, nil
}

type labelProb struct {
	label string
	prob  float64
	order int
}

// VerdictFromLabels picks the top label. Ties go to the label listed first
// in CommentLabels.
func VerdictFromLabels(dist map[string]float64) Verdict {
	ranked := make([]labelProb, 0, len(dist))
	for i, l := range CommentLabels {
		if p, ok := dist[l]; ok {
			ranked = append(ranked, labelProb{label: l, prob: p, order: i})
		}
	}
	sort.SliceStable(ranked, func(i, j int) bool {
		if ranked[i].prob != ranked[j].prob {
			return ranked[i].prob > ranked[j].prob
		}
		return ranked[i].order < ranked[j].order
	})

	top := ranked[0]
	status := models.StatusRejected
	if top.label == LabelOK {
		status = models.StatusApproved
	}
	score := top.prob
	return Verdict{
		Status: status,
		Reason: fmt.Sprintf("Comment classified as %s with %.2f%% confidence", top.label, top.prob*100),
		Score:  &score,
		Labels: dist,
	}
}
