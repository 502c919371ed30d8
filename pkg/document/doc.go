// Package document is the page and step model of an instruction book.
//
// A [Document] owns a part [partgraph.Registry] and a forest of
// [Submodel]s rooted at the main model. Each submodel holds pages, pages
// hold steps, and each step holds the parts it adds, a CSI (the cumulative
// construction image), a parts list and optional callouts.
//
// # Numbering
//
// Page numbers are global. Walking the forest depth first, a child
// submodel's pages come right before the page that first uses it; child
// submodels nobody uses come before their parent's first page. Step
// numbers restart at 1 in every submodel and every callout.
//
// Mutations mark the document dirty. [Document.Sync] renumbers pages and
// steps, relinks previous CSIs and rebuilds parts lists. Callers outside a
// transaction must never observe a dirty document; [Document.CheckNumbering]
// reports one as NUMBERING_INVARIANT.
//
// # Tree access
//
// Every node implements [TreeNode], so views can walk the document without
// knowing the concrete types.
package document
