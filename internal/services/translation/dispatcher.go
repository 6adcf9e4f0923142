package translation

import (
	"context"
	"sync"
	"time"
)

const (
	defaultConcurrency = 3
	defaultChunkDelay  = 500 * time.Millisecond
)

// OnItemDone is invoked once per item as it finishes, from worker
// goroutines. Exactly one of result or itemErr is non-nil.
type OnItemDone func(result *ItemResult, itemErr *ItemError)

// Dispatcher runs batches of translation items in bounded-concurrency
// chunks. One item failing never affects its siblings.
type Dispatcher struct {
	translator Translator
}

func NewDispatcher(translator Translator) *Dispatcher {
	return &Dispatcher{translator: translator}
}

// RunBatch translates all items and returns the aggregated outcome. Items
// are processed in chunks of opts.Concurrency (default 3), with a short
// pause between chunks to stay under provider rate limits. Blocks until
// every item has finished.
func (d *Dispatcher) RunBatch(ctx context.Context, items []BatchItem, targetLang, sourceLang string, opts Options, onDone OnItemDone) BatchResult {
	concurrency := opts.Concurrency
	if concurrency <= 0 {
		concurrency = defaultConcurrency
	}
	chunkDelay := opts.ChunkDelay
	if chunkDelay <= 0 {
		chunkDelay = defaultChunkDelay
	}

	var (
		mu      sync.Mutex
		results []ItemResult
		errs    []ItemError
	)

	for start := 0; start < len(items); start += concurrency {
		end := start + concurrency
		if end > len(items) {
			end = len(items)
		}
		chunk := items[start:end]

		var wg sync.WaitGroup
		for _, item := range chunk {
			wg.Add(1)
			go func(item BatchItem) {
				defer wg.Done()

				translated, err := d.translator.Translate(ctx, item.Text, targetLang, sourceLang, opts)
				if err != nil {
					itemErr := ItemError{ID: item.ID, Err: err, Attempts: maxAttempts}
					mu.Lock()
					errs = append(errs, itemErr)
					mu.Unlock()
					if onDone != nil {
						onDone(nil, &itemErr)
					}
					return
				}

				result := ItemResult{
					ID:             item.ID,
					TranslatedText: translated.TranslatedText,
					Model:          translated.Model,
					Usage:          translated.Usage,
				}
				mu.Lock()
				results = append(results, result)
				mu.Unlock()
				if onDone != nil {
					onDone(&result, nil)
				}
			}(item)
		}
		wg.Wait()

		if end < len(items) {
			select {
			case <-time.After(chunkDelay):
			case <-ctx.Done():
				// Mark everything not yet attempted as cancelled
				for _, item := range items[end:] {
					itemErr := ItemError{ID: item.ID, Err: ctx.Err(), Attempts: 0}
					errs = append(errs, itemErr)
					if onDone != nil {
						onDone(nil, &itemErr)
					}
				}
				return BatchResult{Results: results, Errors: errs}
			}
		}
	}

	return BatchResult{Results: results, Errors: errs}
}
