// Reelcast - Video Platform Recommendation and Moderation Backend
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/reelcast

package moderation

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	videointelligence "cloud.google.com/go/videointelligence/apiv1"
	vipb "cloud.google.com/go/videointelligence/apiv1/videointelligencepb"
	"github.com/rs/zerolog"
	"google.golang.org/api/option"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"

	"github.com/tomtom215/reelcast/internal/metrics"
	"github.com/tomtom215/reelcast/internal/models"
)

// annotateFunc runs the requested features over inline video bytes.
type annotateFunc func(ctx context.Context, data []byte, features []vipb.Feature) (*vipb.AnnotateVideoResponse, error)

// VideoOptions tunes a VideoClassifier.
type VideoOptions struct {
	Timeout time.Duration
	// UnsafeLabels are matched case-insensitively against segment and shot
	// labels. Empty skips label detection.
	UnsafeLabels    []string
	LabelConfidence float64
}

// VideoClassifier moderates videos with Google Cloud Video Intelligence.
// A video is rejected when any frame is likely pornographic, or when a
// segment or shot carries an unsafe label with enough confidence.
type VideoClassifier struct {
	annotate      annotateFunc
	close         func() error
	timeout       time.Duration
	unsafe        map[string]struct{}
	minConfidence float64
	logger        zerolog.Logger
}

// CredentialOptions turns a credentials setting into client options: inline
// JSON when it starts with "{", otherwise a file path. Empty means
// application default credentials.
func CredentialOptions(creds string) []option.ClientOption {
	creds = strings.TrimSpace(creds)
	if creds == "" {
		return nil
	}
	if strings.HasPrefix(creds, "{") {
		return []option.ClientOption{option.WithCredentialsJSON([]byte(creds))}
	}
	return []option.ClientOption{option.WithCredentialsFile(creds)}
}

// NewVideoClassifier dials the Video Intelligence API.
//
//nolint:gocritic // zerolog.Logger is designed to be passed by value
func NewVideoClassifier(ctx context.Context, creds string, opts VideoOptions, logger zerolog.Logger) (*VideoClassifier, error) {
	client, err := videointelligence.NewClient(ctx, CredentialOptions(creds)...)
	if err != nil {
		return nil, fmt.Errorf("videointelligence client: %w", err)
	}

	annotate := func(ctx context.Context, data []byte, features []vipb.Feature) (*vipb.AnnotateVideoResponse, error) {
		op, err := client.AnnotateVideo(ctx, &vipb.AnnotateVideoRequest{
			InputContent: data,
			Features:     features,
		})
		if err != nil {
			return nil, err
		}
		return op.Wait(ctx)
	}
	return newVideoClassifier(annotate, client.Close, opts, logger), nil
}

//nolint:gocritic // zerolog.Logger is designed to be passed by value
func newVideoClassifier(annotate annotateFunc, closeFn func() error, opts VideoOptions, logger zerolog.Logger) *VideoClassifier {
	unsafe := make(map[string]struct{}, len(opts.UnsafeLabels))
	for _, l := range opts.UnsafeLabels {
		if l = strings.ToLower(strings.TrimSpace(l)); l != "" {
			unsafe[l] = struct{}{}
		}
	}
	return &VideoClassifier{
		annotate:      annotate,
		close:         closeFn,
		timeout:       opts.Timeout,
		unsafe:        unsafe,
		minConfidence: opts.LabelConfidence,
		logger:        logger.With().Str("component", "video_classifier").Logger(),
	}
}

// features lists the detections one annotate call requests.
func (c *VideoClassifier) features() []vipb.Feature {
	if len(c.unsafe) == 0 {
		return []vipb.Feature{vipb.Feature_EXPLICIT_CONTENT_DETECTION}
	}
	return []vipb.Feature{vipb.Feature_EXPLICIT_CONTENT_DETECTION, vipb.Feature_LABEL_DETECTION}
}

// Classify implements Classifier.
func (c *VideoClassifier) Classify(ctx context.Context, p Payload) (Verdict, error) {
	if len(p.Media) == 0 {
		return Verdict{}, ErrNoPayload
	}
	if c.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, c.timeout)
		defer cancel()
	}

	resp, err := c.annotate(ctx, p.Media, c.features())
	metrics.RecordClassifierCall("video_intelligence", err)
	if err != nil {
		code := status.Code(err)
		err = classifierError("annotate video", err)
		if !retryableCode(code) {
			err = Permanent(err)
		}
		return Verdict{}, err
	}
	return c.verdict(resp)
}

// retryableCode matches the transient gRPC failures worth another attempt.
func retryableCode(code codes.Code) bool {
	switch code {
	case codes.Unavailable, codes.ResourceExhausted, codes.DeadlineExceeded, codes.Internal, codes.Unknown, codes.Aborted:
		return true
	default:
		return false
	}
}

func (c *VideoClassifier) verdict(resp *vipb.AnnotateVideoResponse) (Verdict, error) {
	if resp == nil || len(resp.GetAnnotationResults()) == 0 {
		return Verdict{}, classifierError("annotate video", errors.New("no annotation results"))
	}
	result := resp.GetAnnotationResults()[0]
	if e := result.GetError(); e != nil {
		return Verdict{}, classifierError("annotate video", fmt.Errorf("annotation error %d: %s", e.GetCode(), e.GetMessage()))
	}

	frames := result.GetExplicitAnnotation().GetFrames()
	flagged := 0
	var firstFlagged time.Duration
	for _, f := range frames {
		switch f.GetPornographyLikelihood() {
		case vipb.Likelihood_LIKELY, vipb.Likelihood_VERY_LIKELY:
			if flagged == 0 {
				firstFlagged = f.GetTimeOffset().AsDuration()
			}
			flagged++
		}
	}
	if flagged > 0 {
		return Verdict{
			Status: models.StatusRejected,
			Reason: fmt.Sprintf("Explicit content detected in %d of %d frames, first at %s", flagged, len(frames), firstFlagged),
		}, nil
	}

	if label, confidence, ok := c.unsafeLabel(result); ok {
		return Verdict{
			Status: models.StatusRejected,
			Reason: fmt.Sprintf("Unsafe content detected: %s with %.2f%% confidence", label, confidence*100),
		}, nil
	}

	return Verdict{
		Status: models.StatusApproved,
		Reason: fmt.Sprintf("No explicit content detected in %d frames", len(frames)),
	}, nil
}

// unsafeLabel returns the most confident unsafe segment or shot label at or
// above the confidence threshold.
func (c *VideoClassifier) unsafeLabel(result *vipb.VideoAnnotationResults) (string, float32, bool) {
	if len(c.unsafe) == 0 {
		return "", 0, false
	}
	var (
		best     string
		bestConf float32
	)
	groups := [][]*vipb.LabelAnnotation{result.GetSegmentLabelAnnotations(), result.GetShotLabelAnnotations()}
	for _, labels := range groups {
		for _, l := range labels {
			name := strings.ToLower(l.GetEntity().GetDescription())
			if _, bad := c.unsafe[name]; !bad {
				continue
			}
			for _, seg := range l.GetSegments() {
				conf := seg.GetConfidence()
				if float64(conf) >= c.minConfidence && conf > bestConf {
					best, bestConf = name, conf
				}
			}
		}
	}
	return best, bestConf, best != ""
}

// Close releases the API client.
func (c *VideoClassifier) Close() error {
	if c.close == nil {
		return nil
	}
	return c.close()
}
