package aiparse

import (
	"context"
	"math/rand"

	"github.com/rs/zerolog"
)

// FallbackProvider tries the primary provider and, when it fails,
// retries the same document with the secondary one. The secondary's
// error wins if both fail.
type FallbackProvider struct {
	Primary   Provider
	Secondary Provider
	Logger    zerolog.Logger
}

func (p *FallbackProvider) Name() string { return p.Primary.Name() }

func (p *FallbackProvider) Parse(ctx context.Context, data []byte, mimeType, locale string) (*Response, error) {
	resp, err := p.Primary.Parse(ctx, data, mimeType, locale)
	if err == nil {
		return resp, nil
	}
	if ctx.Err() != nil {
		return nil, err
	}
	p.Logger.Warn().
		Str("provider", p.Primary.Name()).
		Str("fallback", p.Secondary.Name()).
		Err(err).
		Msg("parse failed, falling back")
	return p.Secondary.Parse(ctx, data, mimeType, locale)
}

// ABProvider splits traffic between two providers at random, with
// cross-fallback when the chosen one fails. Rand is injectable so
// tests can pin the choice.
type ABProvider struct {
	A      Provider
	B      Provider
	Rand   func() float64
	Logger zerolog.Logger
}

func NewABProvider(a, b Provider, logger zerolog.Logger) *ABProvider {
	return &ABProvider{A: a, B: b, Rand: rand.Float64, Logger: logger}
}

func (p *ABProvider) Name() string { return "ab:" + p.A.Name() + "/" + p.B.Name() }

func (p *ABProvider) Parse(ctx context.Context, data []byte, mimeType, locale string) (*Response, error) {
	first, second := p.A, p.B
	if p.Rand() > 0.5 {
		first, second = p.B, p.A
	}
	fb := &FallbackProvider{Primary: first, Secondary: second, Logger: p.Logger}
	return fb.Parse(ctx, data, mimeType, locale)
}
