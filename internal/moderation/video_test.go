// Reelcast - Video Platform Recommendation and Moderation Backend
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/reelcast

package moderation

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	vipb "cloud.google.com/go/videointelligence/apiv1/videointelligencepb"
	"github.com/rs/zerolog"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
	"google.golang.org/protobuf/types/known/durationpb"

	"github.com/tomtom215/reelcast/internal/models"
)

func explicitResponse(likelihoods ...vipb.Likelihood) *vipb.AnnotateVideoResponse {
	frames := make([]*vipb.ExplicitContentFrame, len(likelihoods))
	for i, l := range likelihoods {
		frames[i] = &vipb.ExplicitContentFrame{
			TimeOffset:            durationpb.New(time.Duration(i) * time.Second),
			PornographyLikelihood: l,
		}
	}
	return &vipb.AnnotateVideoResponse{
		AnnotationResults: []*vipb.VideoAnnotationResults{{
			ExplicitAnnotation: &vipb.ExplicitContentAnnotation{Frames: frames},
		}},
	}
}

func staticAnnotator(resp *vipb.AnnotateVideoResponse, err error) annotateFunc {
	return func(context.Context, []byte, []vipb.Feature) (*vipb.AnnotateVideoResponse, error) {
		return resp, err
	}
}

func TestVideoClassifierVerdicts(t *testing.T) {
	tests := []struct {
		name       string
		resp       *vipb.AnnotateVideoResponse
		wantStatus models.ModerationStatus
		wantReason string
	}{
		{
			name:       "clean",
			resp:       explicitResponse(vipb.Likelihood_VERY_UNLIKELY, vipb.Likelihood_POSSIBLE),
			wantStatus: models.StatusApproved,
			wantReason: "No explicit content detected in 2 frames",
		},
		{
			name:       "likely frame",
			resp:       explicitResponse(vipb.Likelihood_UNLIKELY, vipb.Likelihood_LIKELY, vipb.Likelihood_VERY_LIKELY),
			wantStatus: models.StatusRejected,
			wantReason: "Explicit content detected in 2 of 3 frames, first at 1s",
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c := newVideoClassifier(staticAnnotator(tt.resp, nil), nil, VideoOptions{Timeout: time.Minute}, zerolog.Nop())
			v, err := c.Classify(context.Background(), Payload{Kind: models.KindVideo, ID: "v1", Media: []byte{1, 2, 3}})
			if err != nil {
				t.Fatalf("Classify: %v", err)
			}
			if v.Status != tt.wantStatus || v.Reason != tt.wantReason {
				t.Errorf("verdict = (%s, %q), want (%s, %q)", v.Status, v.Reason, tt.wantStatus, tt.wantReason)
			}
			if v.Score != nil || v.Labels != nil {
				t.Error("video verdicts carry no score or labels")
			}
		})
	}
}

func TestVideoClassifierErrors(t *testing.T) {
	c := newVideoClassifier(staticAnnotator(nil, nil), nil, VideoOptions{}, zerolog.Nop())
	if _, err := c.Classify(context.Background(), Payload{ID: "v1"}); !errors.Is(err, ErrNoPayload) {
		t.Errorf("empty media err = %v, want ErrNoPayload", err)
	}
	if _, err := c.Classify(context.Background(), Payload{ID: "v1", Media: []byte{1}}); !errors.Is(err, ErrClassifier) {
		t.Errorf("empty response err = %v, want ErrClassifier", err)
	}

	tests := []struct {
		code      codes.Code
		permanent bool
	}{
		{codes.Unavailable, false},
		{codes.ResourceExhausted, false},
		{codes.InvalidArgument, true},
		{codes.PermissionDenied, true},
	}
	for _, tt := range tests {
		t.Run(tt.code.String(), func(t *testing.T) {
			c := newVideoClassifier(staticAnnotator(nil, status.Error(tt.code, "boom")), nil, VideoOptions{}, zerolog.Nop())
			_, err := c.Classify(context.Background(), Payload{ID: "v1", Media: []byte{1}})
			if !errors.Is(err, ErrClassifier) {
				t.Fatalf("err = %v, want ErrClassifier", err)
			}
			if IsPermanent(err) != tt.permanent {
				t.Errorf("IsPermanent = %v, want %v", IsPermanent(err), tt.permanent)
			}
		})
	}
}

func TestVideoClassifierNoFrames(t *testing.T) {
	resp := &vipb.AnnotateVideoResponse{
		AnnotationResults: []*vipb.VideoAnnotationResults{{}},
	}
	c := newVideoClassifier(staticAnnotator(resp, nil), nil, VideoOptions{}, zerolog.Nop())
	v, err := c.Classify(context.Background(), Payload{ID: "v1", Media: []byte{1}})
	if err != nil {
		t.Fatalf("Classify: %v", err)
	}
	if v.Status != models.StatusApproved || !strings.Contains(v.Reason, "0 frames") {
		t.Errorf("verdict = %+v", v)
	}
}

func labelResponse(frames *vipb.AnnotateVideoResponse, shot bool, labels map[string]float32) *vipb.AnnotateVideoResponse {
	var anns []*vipb.LabelAnnotation
	for name, conf := range labels {
		anns = append(anns, &vipb.LabelAnnotation{
			Entity:   &vipb.Entity{Description: name},
			Segments: []*vipb.LabelSegment{{Confidence: conf}},
		})
	}
	result := frames.AnnotationResults[0]
	if shot {
		result.ShotLabelAnnotations = anns
	} else {
		result.SegmentLabelAnnotations = anns
	}
	return frames
}

func TestVideoClassifierUnsafeLabels(t *testing.T) {
	opts := VideoOptions{UnsafeLabels: []string{" Weapon ", "blood", ""}, LabelConfidence: 0.8}
	clean := func() *vipb.AnnotateVideoResponse { return explicitResponse(vipb.Likelihood_VERY_UNLIKELY) }

	tests := []struct {
		name       string
		opts       VideoOptions
		resp       *vipb.AnnotateVideoResponse
		wantStatus models.ModerationStatus
		wantReason string
	}{
		{
			name:       "segment label above threshold",
			opts:       opts,
			resp:       labelResponse(clean(), false, map[string]float32{"Weapon": 0.9, "cat": 0.99}),
			wantStatus: models.StatusRejected,
			wantReason: "Unsafe content detected: weapon with 90.00% confidence",
		},
		{
			name:       "shot label picks the most confident",
			opts:       opts,
			resp:       labelResponse(clean(), true, map[string]float32{"blood": 0.85, "weapon": 0.95}),
			wantStatus: models.StatusRejected,
			wantReason: "Unsafe content detected: weapon with 95.00% confidence",
		},
		{
			name:       "below threshold",
			opts:       opts,
			resp:       labelResponse(clean(), false, map[string]float32{"weapon": 0.5}),
			wantStatus: models.StatusApproved,
			wantReason: "No explicit content detected in 1 frames",
		},
		{
			name:       "label checks disabled",
			opts:       VideoOptions{LabelConfidence: 0.1},
			resp:       labelResponse(clean(), false, map[string]float32{"weapon": 0.99}),
			wantStatus: models.StatusApproved,
			wantReason: "No explicit content detected in 1 frames",
		},
		{
			name:       "explicit frames win over labels",
			opts:       opts,
			resp:       labelResponse(explicitResponse(vipb.Likelihood_VERY_LIKELY), false, map[string]float32{"weapon": 0.99}),
			wantStatus: models.StatusRejected,
			wantReason: "Explicit content detected in 1 of 1 frames, first at 0s",
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c := newVideoClassifier(staticAnnotator(tt.resp, nil), nil, tt.opts, zerolog.Nop())
			v, err := c.Classify(context.Background(), Payload{Kind: models.KindVideo, ID: "v1", Media: []byte{1}})
			if err != nil {
				t.Fatalf("Classify: %v", err)
			}
			if v.Status != tt.wantStatus || v.Reason != tt.wantReason {
				t.Errorf("verdict = (%s, %q), want (%s, %q)", v.Status, v.Reason, tt.wantStatus, tt.wantReason)
			}
		})
	}
}

func TestVideoClassifierRequestedFeatures(t *testing.T) {
	tests := []struct {
		name string
		opts VideoOptions
		want []vipb.Feature
	}{
		{"explicit only", VideoOptions{}, []vipb.Feature{vipb.Feature_EXPLICIT_CONTENT_DETECTION}},
		{"with labels", VideoOptions{UnsafeLabels: []string{"gore"}}, []vipb.Feature{vipb.Feature_EXPLICIT_CONTENT_DETECTION, vipb.Feature_LABEL_DETECTION}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var got []vipb.Feature
			annotate := func(_ context.Context, _ []byte, features []vipb.Feature) (*vipb.AnnotateVideoResponse, error) {
				got = features
				return explicitResponse(), nil
			}
			c := newVideoClassifier(annotate, nil, tt.opts, zerolog.Nop())
			if _, err := c.Classify(context.Background(), Payload{ID: "v1", Media: []byte{1}}); err != nil {
				t.Fatalf("Classify: %v", err)
			}
			if len(got) != len(tt.want) {
				t.Fatalf("features = %v, want %v", got, tt.want)
			}
			for i := range got {
				if got[i] != tt.want[i] {
					t.Errorf("features = %v, want %v", got, tt.want)
				}
			}
		})
	}
}

func TestCredentialOptions(t *testing.T) {
	if opts := CredentialOptions("  "); opts != nil {
		t.Errorf("empty credentials = %v, want nil", opts)
	}
	if opts := CredentialOptions(`{"type":"service_account"}`); len(opts) != 1 {
		t.Errorf("inline JSON gave %d options", len(opts))
	}
	if opts := CredentialOptions("/etc/gcp/key.json"); len(opts) != 1 {
		t.Errorf("file path gave %d options", len(opts))
	}
}
