// Package ldraw reads and writes the LDraw text model format.
//
// An LDraw file is a sequence of lines of whitespace-separated tokens. The
// first token is the line type:
//
//	0 <meta or comment>
//	1 <color> x y z a b c d e f g h i <file>   sub-part reference
//	2 <color> x1 y1 z1 x2 y2 z2                 edge line
//	3 <color> <3 points>                        triangle
//	4 <color> <4 points>                        quad
//	5 <color> <4 points>                        optional line (ignored)
//
// Multi-part documents (MPD) embed several files with "0 FILE <name>"; the
// first embedded file is the main model and every embedded file becomes a
// submodel. References that are not embedded are looked up through a
// [Resolver]. A reference that cannot be resolved is recorded as a
// [errors.MissingPartError] and dropped, leaving the rest of the model usable.
// A malformed line aborts the parse with an [errors.ParseError].
//
// "0 STEP" lines are recorded as [StepBreaks] so that authored step
// boundaries survive an import, and "0 BFC INVERTNEXT" marks the following
// reference as inverted.
package ldraw
