// Package timer drives one exercise through its phases: a lead-in countdown,
// work and rest, a continuous block, and a data-entry pause for logging.
//
// The engine is configured per modality by ConfigFor and publishes every
// transition, tick and 3-2-1 cue to its subscribers. Durations come from the
// prescription through CalculateWorkDuration and CalculateRestDuration.
package timer
