package parallel

import "sync"

// ForEach calls body for every integer from 0 to length with at most limit
// calls running at once. It returns after all calls have finished.
func ForEach(length, limit int, body func(i int)) {
	if limit <= 0 {
		limit = 1
	}
	if length <= 0 {
		return
	}
	// no goroutines when nothing can overlap
	if limit == 1 || length == 1 {
		for i := 0; i < length; i++ {
			body(i)
		}
		return
	}

	sem := make(chan struct{}, limit)
	var wg sync.WaitGroup
	wg.Add(length)

	for i := 0; i < length; i++ {
		sem <- struct{}{} // acquire
		go func(i int) {
			defer wg.Done()
			defer func() { <-sem }() // release

			body(i)
		}(i)
	}

	wg.Wait()
}
