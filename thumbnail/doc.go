// Package thumbnail turns encoded image bytes into a baseline JPEG of an
// exact size.
//
// The pipeline has four steps:
//
//	Sniff   detect the format from the leading bytes (never from a name)
//	Decode  build a raster and drop alpha and color-profile data
//	Resize  resample to exactly width x height, ignoring aspect ratio
//	Encode  baseline JPEG at the encoder's default quality
//
// A Pipeline holds only immutable configuration. Identical inputs always
// produce byte-identical output.
//
// Thumbnail reports why a conversion failed. Transform is the boundary form:
// any failure collapses into an empty result.
package thumbnail
