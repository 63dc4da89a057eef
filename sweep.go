// Package sweep provides exhaustive discovery of web resources associated
// with a target: every URL of a domain, every backlink pointing at it, every
// document of a given filetype hosted on it, every search-engine page
// mentioning an exact phrase. It optimizes for recall: a missed result is
// worse than a duplicate.
//
// This package contains domain types and interfaces following Ben Johnson's
// Standard Package Layout. Implementations live in subdirectories named
// after their primary dependency (e.g., sqlite/, gemini/, rod/) or their
// concern (plan/, fanout/, dedup/, discover/).
package sweep
