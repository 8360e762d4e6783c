package metrics

// Tag formats a DogStatsD tag as "key:value".
func Tag(key, value string) string {
	return key + ":" + value
}

// LayerTag tags a metric with the cache layer it came from (memory,
// disk or redis).
func LayerTag(layer string) string {
	return Tag("layer", layer)
}

// OperationTag tags a metric with the cache operation (get, set,
// delete, clear).
func OperationTag(op string) string {
	return Tag("operation", op)
}

// StatusTag tags a metric with the operation outcome (hit, miss,
// error).
func StatusTag(status string) string {
	return Tag("status", status)
}

// CircuitStateTag tags a metric with a breaker state (closed, open,
// half-open).
func CircuitStateTag(state string) string {
	return Tag("circuit_state", state)
}

// NamespaceTag tags a metric with the cache namespace.
func NamespaceTag(namespace string) string {
	return Tag("namespace", namespace)
}
