// Package hansard incrementally harvests parliamentary proceeding transcripts
// from a remote sitemap index and normalizes them into debates, speeches and
// speaker turns.
//
// This package contains domain types and interfaces following Ben Johnson's
// Standard Package Layout. Implementations live in subdirectories named
// after their primary dependency (e.g., sqlite/, etree/, goquery/).
package hansard
