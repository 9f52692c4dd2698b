// Package model defines the NeoBank domain records and the rules that are
// pure functions of them.
//
// Records in this package are plain values. Persistence lives in
// internal/store and every state transition lives in the engines
// (internal/engine, internal/governance, internal/hooks). Nothing here
// reads a clock or touches storage.
//
// Amounts are uint64 base units. Timestamps are int64 Unix seconds.
// All amount arithmetic goes through the checked helpers in math.go.
package model
