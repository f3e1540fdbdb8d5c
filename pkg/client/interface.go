package client

import (
	"context"

	"github.com/menta2k/frame-selector/pkg/types"
)

// VisionClient is a model backend able to locate objects in a frame
type VisionClient interface {
	SimpleQuery(ctx context.Context, model, prompt, imgB64 string) (string, error)
	DetectItems(ctx context.Context, model, prompt, imgB64 string) (*types.DetectionResult, error)
}
