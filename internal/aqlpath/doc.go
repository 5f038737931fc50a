// Package aqlpath resolves archetype path token streams into path expressions.
//
// An archetype path such as
//
//	content[openEHR-EHR-OBSERVATION.blood_pressure.v1]/data[at0001]/events[at0002]/data[at0003]/items[at0004,'Systolic']
//
// reaches this package already split by the AQL parser into a flat token
// stream: one Segment per container, an Index after a repeating container
// when a position was selected, and a PredicateSentinel + PredicateLiteral
// pair after a container that carries an inline name predicate.
//
// ARCHITECTURE:
//
//	[raw parser output] → ParseRaw → []Token → Resolve → Expression → [querysql]
//
// Resolve re-attaches the lexically separated pieces to the step they modify:
//   - Index binds to the nearest preceding Segment, never to a later one
//   - A sentinel/literal pair is consumed in one move and attached, unquoted,
//     as the name predicate of the nearest preceding Segment
//   - A Segment without a following Index leaves the step unconstrained
//     ("all members"), which is NOT the same as index 0
//
// Malformed streams fail with a *ResolveError naming the offending token
// position. Nothing is dropped or guessed: a misattached predicate would
// silently change query semantics.
//
// Resolution is pure. It performs no I/O, holds no shared state, and is safe
// to call from any number of goroutines.
package aqlpath
