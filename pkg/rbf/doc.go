// Package rbf fits and evaluates an implicit surface as a weighted sum of
// cubic radial basis functions,
//
//	f(x) = Σ_j λ_j · ‖x − c_j‖³,
//
// where the centers c_j are the on-surface samples of a training set and the
// weights λ_j are the minimum-norm least-squares solution of the dense
// N×K collocation system. The zero level set of f approximates the sampled
// surface; off-surface samples orient its sign.
//
// A Model starts Unbuilt. Build publishes centers and weights together, after
// which the model is immutable and safe for concurrent evaluation.
package rbf
