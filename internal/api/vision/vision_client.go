package vision

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"time"

	visionapi "cloud.google.com/go/vision/apiv1"
	visionpb "cloud.google.com/go/vision/v2/apiv1/visionpb"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/metric"
	"golang.org/x/sync/errgroup"
	"google.golang.org/api/option"

	"github.com/facundoguellutn/mapsy/app/observability/metrics"
	"github.com/facundoguellutn/mapsy/internal/types"
)

const (
	maxLandmarkResults = 10
	maxTextResults     = 5
	detectTimeout      = 15 * time.Second
)

// Detector classifies an image into landmark, web and text annotations.
type Detector interface {
	DetectImage(ctx context.Context, imageData []byte) (*types.LandmarkDetection, error)
}

var _ Detector = (*Client)(nil)

type Client struct {
	logger    *slog.Logger
	annotator *visionapi.ImageAnnotatorClient
}

func NewClient(ctx context.Context, logger *slog.Logger) (*Client, error) {
	ctx, span := otel.Tracer("VisionClient").Start(ctx, "NewClient")
	defer span.End()

	var opts []option.ClientOption
	if apiKey := os.Getenv("GOOGLE_VISION_API_KEY"); apiKey != "" {
		opts = append(opts, option.WithAPIKey(apiKey))
	}

	annotator, err := visionapi.NewImageAnnotatorClient(ctx, opts...)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "Failed to create image annotator client")
		return nil, fmt.Errorf("failed to create image annotator client: %w", err)
	}

	return &Client{
		logger:    logger,
		annotator: annotator,
	}, nil
}

func (c *Client) Close() error {
	return c.annotator.Close()
}

// DetectImage runs landmark, web and text detection concurrently and merges
// the three annotation sets. An error from any detection fails the whole call.
func (c *Client) DetectImage(ctx context.Context, imageData []byte) (*types.LandmarkDetection, error) {
	ctx, span := otel.Tracer("VisionClient").Start(ctx, "DetectImage")
	defer span.End()

	ctx, cancel := context.WithTimeout(ctx, detectTimeout)
	defer cancel()

	img := &visionpb.Image{Content: imageData}
	result := &types.LandmarkDetection{}

	g, gctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		annotations, err := c.annotator.DetectLandmarks(gctx, img, nil, maxLandmarkResults)
		if err != nil {
			return fmt.Errorf("landmark detection: %w", err)
		}
		result.Landmarks = mapLandmarks(annotations)
		return nil
	})

	g.Go(func() error {
		web, err := c.annotator.DetectWeb(gctx, img, nil)
		if err != nil {
			return fmt.Errorf("web detection: %w", err)
		}
		result.WebDetection = mapWebDetection(web)
		return nil
	})

	g.Go(func() error {
		annotations, err := c.annotator.DetectTexts(gctx, img, nil, maxTextResults)
		if err != nil {
			return fmt.Errorf("text detection: %w", err)
		}
		result.TextAnnotations = mapTexts(annotations)
		return nil
	})

	if err := g.Wait(); err != nil {
		metrics.Get().VisionRequestsTotal.Add(ctx, 1, metric.WithAttributes(attribute.String("status", "error")))
		span.RecordError(err)
		span.SetStatus(codes.Error, "Image annotation failed")
		return nil, fmt.Errorf("%w: %s", types.ErrUpstream, err)
	}

	metrics.Get().VisionRequestsTotal.Add(ctx, 1, metric.WithAttributes(attribute.String("status", "ok")))
	span.SetAttributes(
		attribute.Int("vision.landmarks", len(result.Landmarks)),
		attribute.Int("vision.texts", len(result.TextAnnotations)),
	)
	return result, nil
}

func mapLandmarks(annotations []*visionpb.EntityAnnotation) []types.Landmark {
	landmarks := make([]types.Landmark, 0, len(annotations))
	for _, a := range annotations {
		lm := types.Landmark{
			Description: a.GetDescription(),
			Score:       float64(a.GetScore()),
		}
		for _, loc := range a.GetLocations() {
			if latLng := loc.GetLatLng(); latLng != nil {
				lm.Locations = append(lm.Locations, types.LandmarkLocation{
					LatLng: types.LatLng{
						Latitude:  latLng.GetLatitude(),
						Longitude: latLng.GetLongitude(),
					},
				})
			}
		}
		landmarks = append(landmarks, lm)
	}
	return landmarks
}

func mapWebDetection(web *visionpb.WebDetection) *types.WebDetection {
	if web == nil {
		return nil
	}
	out := &types.WebDetection{}
	for _, e := range web.GetWebEntities() {
		out.WebEntities = append(out.WebEntities, types.WebEntity{
			Description: e.GetDescription(),
			Score:       float64(e.GetScore()),
		})
	}
	for _, l := range web.GetBestGuessLabels() {
		out.BestGuessLabels = append(out.BestGuessLabels, types.WebLabel{Label: l.GetLabel()})
	}
	for _, p := range web.GetPagesWithMatchingImages() {
		out.PagesWithMatchingImages = append(out.PagesWithMatchingImages, types.MatchingPage{
			URL:       p.GetUrl(),
			PageTitle: p.GetPageTitle(),
		})
	}
	return out
}

func mapTexts(annotations []*visionpb.EntityAnnotation) []types.TextAnnotation {
	texts := make([]types.TextAnnotation, 0, len(annotations))
	for _, a := range annotations {
		texts = append(texts, types.TextAnnotation{
			Description: a.GetDescription(),
			Locale:      a.GetLocale(),
		})
	}
	return texts
}
