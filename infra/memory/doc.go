// Package memory provides the fixed-capacity slot arenas backing every
// order and price-level record in the engine. Nothing in the hot path
// allocates after startup: records are acquired from and released to these
// pools in O(1).
package memory
