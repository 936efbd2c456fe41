/*
Package observability turns engine lifecycle hooks into Prometheus metrics and
structured log records.

Both constructors return domain.LifecycleHooks, so they compose with each other and
with caller hooks through LifecycleHooks.Merge.
*/
package observability
