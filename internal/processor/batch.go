package processor

import (
	"context"
	"sync"

	"github.com/woozymasta/speckle2geojson/internal/config"
	"github.com/woozymasta/speckle2geojson/internal/convert"

	"github.com/rs/zerolog/log"
)

// Result is the outcome of one model in a batch.
type Result struct {
	Err   error
	Model string
}

// ProcessModels converts models with a pool of workers. Results come back in
// model order; a failed model does not stop the others.
func ProcessModels(
	ctx context.Context,
	conv *convert.Converter,
	out string,
	models []config.Model,
	concurrency int,
	force bool,
) []Result {
	if concurrency <= 0 {
		concurrency = 1
	}

	type job struct {
		model config.Model
		index int
	}

	jobs := make(chan job, len(models))
	results := make([]Result, len(models))

	go func() {
		for i, m := range models {
			jobs <- job{model: m, index: i}
		}
		close(jobs)
	}()

	var wg sync.WaitGroup
	for i := 0; i < concurrency; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for j := range jobs {
				err := ProcessModel(ctx, conv, out, j.model, force)
				if err != nil {
					log.Error().Err(err).Str("model", j.model.Name).Msg("Failed to process model")
				}
				results[j.index] = Result{Model: j.model.Name, Err: err}
			}
		}()
	}
	wg.Wait()

	return results
}
