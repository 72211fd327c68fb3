// Package scanner harvests an account's following and follower graph.
//
// A scan runs in three stages, all strictly sequential:
//
//  1. Collector walks the ids.json endpoints for both relations.
//  2. Hydrator walks the list.json endpoints, classifies every profile and
//     synthesizes placeholders for ids the endpoint never returned.
//  3. Scanner stamps relationship flags from the two id sets.
//
// Every page is separated by a random 2-4s pause, a 429 is answered with a
// 60-90s pause and a retry of the same page, and a run.Token stops the
// pipeline at the next page boundary.
package scanner
