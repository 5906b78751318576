// Package cache provides a generic thread-safe cache with a soft size limit.
//
// The d3d11 layer uses it to memoize format capability queries and compiled
// pipelines:
//
//	formats := cache.New[formatKey, formatResult](256)
//	props := formats.GetOrCreate(key, func() formatResult { return query(key) })
//
//	pipelines := cache.New[gpucore.PipelineDesc, gpucore.Pipeline](0)
//	p, err := pipelines.GetOrCreateErr(desc, create)
//
// A soft limit of 0 disables eviction, which is required for values that
// must outlive every command buffer referencing them.
//
// # Thread Safety
//
// Cache is safe for concurrent use and must not be copied after creation.
package cache
