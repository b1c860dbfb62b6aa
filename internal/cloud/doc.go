// Package cloud defines the backend model shared by all planning components:
// the closed set of supported backends, their default regions, the feature
// matrix, per-backend naming and label rules, target specifications and their
// resolution, and the per-backend provider option payloads.
//
// Everything here is static data and pure functions. Effectful work against a
// backend's control plane lives behind the dispatch.Provider contract.
package cloud
