// internal/service/relevance/ranker.go

package relevance

import (
	"context"
	"fmt"
	"sort"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/cb671/streetsafe-server/internal/domain/crime"
	"github.com/cb671/streetsafe-server/internal/domain/geo"
	"github.com/cb671/streetsafe-server/internal/domain/resource"
	"github.com/cb671/streetsafe-server/internal/logger"
)

// Config contains configuration for the ranker
type Config struct {
	Resolution      int
	WiderResolution int
	Window          time.Duration
	TopN            int
}

// Ranker implements resource.Ranker
type Ranker struct {
	incidents crime.Store
	resources resource.Store
	config    Config
	now       func() time.Time
}

// NewRanker creates a new relevance ranker
func NewRanker(incidents crime.Store, resources resource.Store, config Config) *Ranker {
	if config.Resolution <= 0 {
		config.Resolution = geo.ReferenceResolution
	}
	if config.WiderResolution <= 0 {
		config.WiderResolution = config.Resolution - 1
	}
	if config.Window <= 0 {
		config.Window = 365 * 24 * time.Hour
	}
	if config.TopN <= 0 {
		config.TopN = 5
	}

	return &Ranker{
		incidents: incidents,
		resources: resources,
		config:    config,
		now:       time.Now,
	}
}

// TopCategories returns the keys of the most frequent categories around
// home over the last window. When the home area holds no records the
// surrounding wider area is tried once. Failures yield an empty list.
func (r *Ranker) TopCategories(ctx context.Context, home geo.Cell) []string {
	if home.IsZero() {
		return []string{}
	}

	to := r.now()
	from := to.Add(-r.config.Window)
	log := logger.L().WithField("cell", home)

	v, err := r.incidents.SumForCell(ctx, home, r.config.Resolution, from, to)
	if err != nil {
		log.WithError(err).Warn("top_categories_failed")
		return []string{}
	}

	if v == nil {
		v, err = r.incidents.SumForCell(ctx, home, r.config.WiderResolution, from, to)
		if err != nil {
			log.WithError(err).Warn("top_categories_wider_failed")
			return []string{}
		}
	}
	if v == nil {
		log.Debug("no_local_crime_data")
		return []string{}
	}

	return TopCategories(*v, r.config.TopN)
}

// Tailored returns resources matching the top local categories of home,
// annotated with their relevance. Without local categories every resource
// is returned unannotated.
func (r *Ranker) Tailored(ctx context.Context, home geo.Cell) (*resource.Tailored, error) {
	top := r.TopCategories(ctx, home)

	if len(top) == 0 {
		all, err := r.resources.All(ctx)
		if err != nil {
			return nil, fmt.Errorf("error getting tailored resources: %w", err)
		}
		return &resource.Tailored{
			Resources:      annotate(all, nil),
			TopLocalCrimes: top,
		}, nil
	}

	matched, err := r.resources.ByCategories(ctx, top)
	if err != nil {
		return nil, fmt.Errorf("error getting tailored resources: %w", err)
	}

	logger.L().WithFields(logrus.Fields{
		"cell":      home,
		"top":       top,
		"resources": len(matched),
	}).Debug("resources_tailored")

	return &resource.Tailored{
		Resources:      annotate(matched, top),
		TopLocalCrimes: top,
		Personalised:   true,
	}, nil
}

// TopCategories returns the keys of at most n nonzero categories of v by
// descending count. Equal counts keep canonical order.
func TopCategories(v crime.Vector, n int) []string {
	cats := make([]crime.Category, 0, crime.NumCategories)
	for _, c := range crime.AllCategories() {
		if v.Get(c) > 0 {
			cats = append(cats, c)
		}
	}

	sort.SliceStable(cats, func(i, j int) bool {
		return v.Get(cats[i]) > v.Get(cats[j])
	})

	if len(cats) > n {
		cats = cats[:n]
	}

	keys := make([]string, len(cats))
	for i, c := range cats {
		keys[i] = c.Key()
	}
	return keys
}

// Score weights each tag found in top by its rank: the first of top scores
// 2*len(top), the last scores 2.
func Score(tags []string, top []string) int {
	score := 0
	for _, tag := range tags {
		for i, key := range top {
			if tag == key {
				score += (len(top) - i) * 2
				break
			}
		}
	}
	return score
}

func annotate(resources []resource.Resource, top []string) []resource.Annotated {
	out := make([]resource.Annotated, 0, len(resources))
	for _, res := range resources {
		a := resource.Annotated{Resource: res}
		if len(top) > 0 {
			score := Score(res.Tags(), top)
			a.RelevanceScore = &score
			a.TopLocalCrimes = top
		}
		out = append(out, a)
	}
	return out
}
