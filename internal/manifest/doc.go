// Package manifest loads declarative descriptor manifests (HCL files shipped
// inside module archives) for the host's native discovery pass.
package manifest
