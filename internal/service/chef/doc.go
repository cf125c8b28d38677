// Package chef is the run orchestration core of the Sous Chef Kitchen.
//
// It fields every order against the remote workflow engine: admission
// control against the per-user run quota, parameter validation against the
// recipe's declared schema, run dispatch, tag-scoped run queries, and
// ownership-checked lifecycle transitions (cancel, pause, resume).
//
// The service is stateless. Ownership and admission counting are always
// expressed as tag-set membership queries against the engine; there is no
// local run index or database.
package chef
