// Package risk scores login attempts and maps the score to the minimum
// authentication strength a flow must enforce.
//
// Calculate aggregates independently computable factors - IP reputation
// (VPN/Tor/known-bad heuristics), impossible travel between the previous and
// current login locations, and an optional credential-breach lookup - into a
// score in [0,1]. Each factor is supplied by a collaborator interface; absent
// collaborators simply contribute nothing, and a collaborator failure degrades
// that factor to zero rather than failing the login. Risk scoring informs
// policy, it never blocks on its own.
//
// Thresholds: Low < 0.3, Medium < 0.6, High < 0.8, Critical >= 0.8. Flows
// consult RecommendedAuthLevel regardless of which ceremony the user picked.
package risk
