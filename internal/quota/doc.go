// Package quota tracks daily consumption of the external AI providers.
// It maintains speech-minute and translation-character counters that reset
// lazily at the UTC day boundary and enforces the free-tier ceilings before
// any provider call is made.
package quota
