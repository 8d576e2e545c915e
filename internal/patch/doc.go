// Package patch defines the format-agnostic description of a chain tree and
// turns it into live modules.
//
// A Patch is produced by a Loader (see the hclpatch and yamlpatch packages)
// from one or more files and consumed by Build, which instantiates every stage
// through the module registry and appends it to a chain. Nested stages are
// built into the branches of modules that own child chains. Describe goes the
// other way and renders a live chain back into stages, which is how the
// control surface reports state to the UI.
package patch
