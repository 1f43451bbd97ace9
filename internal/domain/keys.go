package domain

// KeyPrefix namespaces every key the engine writes to the key-value store.
const KeyPrefix = "gamedex:"
