package dropper

import (
	"math/rand"

	"github.com/pkg/errors"

	"github.com/shardfec/shardfec/internal/config"
)

// Dropper decides, packet by packet, whether a simulated link loses it.
type Dropper interface {
	Drop() bool
}

// None never drops.
type None struct{}

func (None) Drop() bool { return false }

// Bernoulli drops each packet independently with probability p.
type Bernoulli struct {
	p   float64
	rng *rand.Rand
}

func NewBernoulli(p float64, rng *rand.Rand) *Bernoulli { return &Bernoulli{p: p, rng: rng} }

func (b *Bernoulli) Drop() bool {
	if b.p <= 0 {
		return false
	}
	if b.p >= 1 {
		return true
	}
	return b.rng.Float64() < b.p
}

// GilbertElliott is a two-state burst loss model. In the good state nothing
// is lost; in the bad state packets are lost with probability loss.
type GilbertElliott struct {
	enter, exit, loss float64
	bad               bool
	rng               *rand.Rand
}

func NewGilbertElliott(enter, exit, loss float64, rng *rand.Rand) *GilbertElliott {
	return &GilbertElliott{enter: enter, exit: exit, loss: loss, rng: rng}
}

func (g *GilbertElliott) Drop() bool {
	if g.bad {
		if g.rng.Float64() < g.exit {
			g.bad = false
		}
	} else if g.rng.Float64() < g.enter {
		g.bad = true
	}
	return g.bad && g.rng.Float64() < g.loss
}

// FromConfig builds the configured model seeded with seed.
func FromConfig(l config.Loss, seed int64) (Dropper, error) {
	rng := rand.New(rand.NewSource(seed))
	switch l.Model {
	case "", config.LossNone:
		return None{}, nil
	case config.LossBernoulli:
		return NewBernoulli(l.Rate, rng), nil
	case config.LossGilbert:
		return NewGilbertElliott(l.BurstEnter, l.BurstExit, l.Rate, rng), nil
	}
	return nil, errors.Errorf("unknown loss model %q", l.Model)
}
