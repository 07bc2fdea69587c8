package domain

// KeyPrefix namespaces every key this service writes to the key-value store.
const KeyPrefix = "faq:"

// FallbackModel tags vectors produced by the deterministic hash embedder.
const FallbackModel = "fallback-hash"
