// Package exrun launches a catalog of prebuilt example programs under a
// per-process time budget and reports how each one finished.
package exrun

// Version is the exrun release version.
const Version = "0.3.0"
