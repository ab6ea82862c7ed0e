// Package translit loads tab-separated parallel text for transliteration
// training, builds per-side vocabularies and yields padded ID batches.
package translit
